// Package engine wires the eleven cache-engine components behind one
// shared mutex and runs the poller and response-handler activities.
// This is the non-singleton "engine handle" the reference
// implementation's global singleton engine is re-architected into
// (see DESIGN.md): callers are handed a *Engine value and inject it
// into the downstream cache servers, rather than reaching a
// process-wide variable.
package engine

import (
	"context"
	"sync"
	"time"

	mb "github.com/goburrow/modbus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"et112-cache-gateway/internal/health"
	"et112-cache-gateway/internal/inflight"
	"et112-cache-gateway/internal/register"
	"et112-cache-gateway/internal/sanity"
	"et112-cache-gateway/internal/scheduler"
	"et112-cache-gateway/internal/snapshot"
	"et112-cache-gateway/internal/translate"
	"et112-cache-gateway/internal/upstream"
)

// Engine is the cache engine: C1 (register model) through C6 (upstream
// dispatch) plus C10 (health) live here behind a single mutex, exactly
// matching the concurrency model's "one short mutex guards the
// register cells and watermarks, the in-flight table, the unexpected
// address set, the bogus counter, and the completion/staleness
// bookkeeping" contract. No I/O happens while the mutex is held.
type Engine struct {
	mu sync.Mutex

	backend  *register.Model
	filter   *sanity.Filter
	inflight *inflight.Table
	sched    *scheduler.Scheduler
	sup      *health.Supervisor
	codec    *upstream.Codec

	dispatcher   *upstream.Dispatcher
	translate    *translate.Layer // nil when translation is disabled
	upstreamBaud int
	limiter      *rate.Limiter

	log *zap.Logger
}

// New constructs the engine. client must already be connected; the
// caller (cmd/gateway) owns its lifetime via the returned io.Closer
// from upstream.NewClient. upstreamBaud is recorded only for telemetry
// (it never affects cache behavior).
func New(pollInterval time.Duration, queueDepth int, upstreamBaud int, client mb.Client, log *zap.Logger) *Engine {
	backend := register.ET112()
	filter := &sanity.Filter{}
	sched := scheduler.New(backend, pollInterval)

	e := &Engine{
		backend:      backend,
		filter:       filter,
		inflight:     inflight.New(),
		sched:        sched,
		sup:          health.New(pollInterval),
		dispatcher:   upstream.NewDispatcher(client, queueDepth),
		upstreamBaud: upstreamBaud,
		limiter:      rate.NewLimiter(rate.Every(pollInterval), 1),
		log:          log,
	}
	e.codec = upstream.NewCodec(backend, filter, sched)
	return e
}

// EnableTranslation attaches an optional translation layer (C9) over a
// destination register model, per SPEC_FULL.md's translation config.
func (e *Engine) EnableTranslation(destination *register.Model) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.translate = translate.New(destination, e.backend)
}

// IsOperational implements cacheserver.Engine.
func (e *Engine) IsOperational() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isOperationalLocked(time.Now())
}

func (e *Engine) isOperationalLocked(now time.Time) bool {
	return e.sup.IsOperational(now, e.sched.StaticComplete(), e.sched.DynamicComplete())
}

// ReadWords implements cacheserver.Engine: the downstream read path
// (§4.7/4.8), served entirely from the cache.
func (e *Engine) ReadWords(start uint16, count int) []uint16 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.translate != nil {
		return e.translate.ReadWords(start, count)
	}
	return e.backend.ReadWords(start, count)
}

// WriteSingle implements cacheserver.Engine: a downstream FC6
// write-through (§4.7/4.8). The cell is updated immediately and an
// upstream write is enqueued; the downstream server always echoes the
// request, regardless of the eventual upstream outcome (no rollback,
// per the decided Open Question).
func (e *Engine) WriteSingle(address, value uint16) {
	e.mu.Lock()
	if _, ok := e.backend.Definition(address); !ok {
		e.mu.Unlock()
		return
	}
	bits := uint32(value)
	scaled, _ := e.backend.ProposeScaled(address, bits)
	e.backend.WriteRaw(address, bits, scaled)

	token := e.inflight.Issue()
	e.inflight.Record(token, address, 1, time.Now())
	e.mu.Unlock()

	e.dispatcher.Submit(upstream.WriteRequest(token, address, value))
}

// Snapshot implements C11: an atomically assembled picture of the
// cache, consistent with respect to the engine mutex.
func (e *Engine) Snapshot() snapshot.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := time.Now()
	return snapshot.Build(
		now,
		e.backend,
		e.filter.BogusCount(),
		e.upstreamBaud,
		e.isOperationalLocked(now),
		e.sched.StaticComplete(),
		e.sched.DynamicComplete(),
	)
}

// Run drives the poller and response-handler activities until ctx is
// canceled. The third cooperating activity (server workers) runs
// independently in the cache server packages, which call back into
// this same Engine value.
func (e *Engine) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return e.pollLoop(ctx) })
	g.Go(func() error { return e.responseLoop(ctx) })
	return g.Wait()
}

// pollLoop paces itself with a token-bucket limiter configured to one
// token per poll interval (SPEC_FULL.md C4), rather than a bare
// ticker. Every iteration takes one token, whether or not the
// scheduler then issues anything; the scheduler applies its own
// interval and backpressure checks on top of that pacing.
func (e *Engine) pollLoop(ctx context.Context) error {
	for {
		if err := e.limiter.Wait(ctx); err != nil {
			e.dispatcher.Close()
			return nil
		}
		e.poll(time.Now())
	}
}

func (e *Engine) poll(now time.Time) {
	e.mu.Lock()
	e.inflight.Purge(now)
	runs := e.sched.Tick(now, e.inflight.Depth())
	tokens := make([]uint32, len(runs))
	for i, r := range runs {
		token := e.inflight.Issue()
		e.inflight.Record(token, r.Start, r.Count, now)
		tokens[i] = token
	}
	e.mu.Unlock()

	for i, r := range runs {
		if !e.dispatcher.Submit(upstream.ReadRequest(tokens[i], r.Start, r.Count)) {
			e.mu.Lock()
			e.inflight.Resolve(tokens[i])
			e.mu.Unlock()
		}
	}
}

func (e *Engine) responseLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case res, open := <-e.dispatcher.Results:
			if !open {
				return nil
			}
			e.handleResult(res)
		}
	}
}

func (e *Engine) handleResult(res upstream.Result) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.inflight.Resolve(res.Token)
	if !ok {
		// Late response for an already-purged token: not fatal, per
		// the in-flight table's contract.
		if e.log != nil {
			e.log.Debug("resolve miss", zap.Uint32("token", res.Token))
		}
		return
	}
	if res.Err != nil {
		if e.log != nil {
			e.log.Warn("upstream request failed",
				zap.Uint16("start", entry.Start), zap.Bool("write", res.IsWrite), zap.Error(res.Err))
		}
		return
	}
	if res.IsWrite {
		// Write-through already updated the cache optimistically;
		// nothing further to do on success.
		return
	}
	e.codec.DecodeResponse(entry.Start, entry.Count, res.Words)
	e.sup.RecordSuccess(time.Now())
}
