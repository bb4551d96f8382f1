// Package logging constructs the zap logger shared by every component,
// replacing the teacher's bare log.Printf calls throughout
// internal/collector and internal/servermgr with structured, leveled
// logging in the idiom caddyserver/caddy uses for its own long-running
// server processes.
package logging

import "go.uber.org/zap"

// New builds a production logger unless debug is set, in which case
// it builds a development logger (console output, caller, stacktrace
// on warn+).
func New(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
