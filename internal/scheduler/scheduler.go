// Package scheduler implements the cache engine's poll scheduler (C4):
// it decides which register set to fetch on a given tick, partitions
// that set into contiguous runs bounded at 100 words, and applies
// backpressure against the in-flight table.
package scheduler

import (
	"time"

	"et112-cache-gateway/internal/register"
)

// MaxRunWords is the upper bound on words requested in a single
// upstream read.
const MaxRunWords = 100

// BackpressureDepth is the in-flight depth above which a tick is
// skipped entirely.
const BackpressureDepth = 2

// DefaultPollInterval is the minimum spacing between poll attempts.
const DefaultPollInterval = 500 * time.Millisecond

// Run is one upstream read request a tick wants to issue.
type Run struct {
	Start uint16
	Count int
}

// Scheduler is not internally synchronized; the engine serializes all
// access under its single mutex alongside the register model.
type Scheduler struct {
	backend      *register.Model
	pollInterval time.Duration

	lastPollStart time.Time

	fetchedStatic  map[uint16]bool
	fetchedDynamic map[uint16]bool

	staticComplete  bool
	dynamicComplete bool
}

// New constructs a scheduler over the backend register model.
func New(backend *register.Model, pollInterval time.Duration) *Scheduler {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}
	return &Scheduler{
		backend:        backend,
		pollInterval:   pollInterval,
		fetchedStatic:  make(map[uint16]bool),
		fetchedDynamic: make(map[uint16]bool),
	}
}

// StaticComplete reports whether every static address has been
// observed in at least one successful response.
func (s *Scheduler) StaticComplete() bool { return s.staticComplete }

// DynamicComplete reports whether every dynamic address has been
// observed in at least one successful response.
func (s *Scheduler) DynamicComplete() bool { return s.dynamicComplete }

// MarkFetched records that address was present in a successful
// upstream response, then recomputes the completion flags by
// set-equality against the definition address sets. Called by the
// upstream codec (C5) once per accepted address in a batch.
func (s *Scheduler) MarkFetched(address uint16, dynamic bool) {
	if dynamic {
		s.fetchedDynamic[address] = true
	} else {
		s.fetchedStatic[address] = true
	}
	s.recomputeCompletion()
}

func (s *Scheduler) recomputeCompletion() {
	s.staticComplete = setEquals(s.fetchedStatic, s.backend.Static())
	s.dynamicComplete = setEquals(s.fetchedDynamic, s.backend.Dynamic())
}

func setEquals(fetched map[uint16]bool, want []uint16) bool {
	if len(want) == 0 {
		return true
	}
	for _, a := range want {
		if !fetched[a] {
			return false
		}
	}
	return true
}

// Tick runs the scheduling algorithm for one invocation. It returns
// the runs to dispatch this tick, or nil if nothing should be issued
// (interval not yet elapsed, or backpressure). Per the algorithm, the
// backpressure check happens before last_poll_start is updated, so a
// backpressure-skipped tick does not push the next eligible attempt
// out by a further full interval.
func (s *Scheduler) Tick(now time.Time, inflightDepth int) []Run {
	if !s.lastPollStart.IsZero() && now.Sub(s.lastPollStart) < s.pollInterval {
		return nil
	}
	if inflightDepth > BackpressureDepth {
		return nil
	}
	s.lastPollStart = now

	var active []uint16
	if !s.staticComplete {
		for _, a := range s.backend.Static() {
			if !s.fetchedStatic[a] {
				active = append(active, a)
			}
		}
	} else {
		active = s.backend.Dynamic()
	}
	return batchRuns(active, s.backend)
}

// batchRuns partitions ascending addresses into contiguous runs,
// breaking whenever the next address doesn't immediately follow the
// previous register's width, or the running word count would exceed
// MaxRunWords.
func batchRuns(addrs []uint16, backend *register.Model) []Run {
	var runs []Run
	var cur *Run
	var nextExpected uint16
	var haveNext bool

	flush := func() {
		if cur != nil {
			runs = append(runs, *cur)
			cur = nil
		}
	}

	for _, a := range addrs {
		d, _ := backend.Definition(a)
		width := d.Kind.Width()

		if cur != nil && haveNext && a == nextExpected && cur.Count+width <= MaxRunWords {
			cur.Count += width
		} else {
			flush()
			cur = &Run{Start: a, Count: width}
		}
		nextExpected = a + uint16(width)
		haveNext = true
	}
	flush()
	return runs
}
