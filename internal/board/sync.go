package board

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// step is one remote call of a plan.
type step struct {
	name string
	run  func(ctx context.Context) error
}

// plan is the ordered list of remote writes that makes durable state match
// one local mutation. Step 0 is the primary write; later steps are
// compactions whose failure leaves the primary write in place.
type plan struct {
	ctx    context.Context
	op     string
	entity ID
	steps  []step
	done   func(outcome)
}

// outcome reports how a plan ended. failed is -1 when every step succeeded.
// moot is set when the plan addressed an entity whose create was rolled
// back, so nothing needed to be written.
type outcome struct {
	failed int
	step   string
	err    error
	moot   bool
}

func (o outcome) ok() bool { return o.failed < 0 && !o.moot }

// syncer runs plans one at a time in submission order, off the caller's
// goroutine. Serializing the whole board keeps every entity's writes in the
// order they were issued locally.
type syncer struct {
	log *slog.Logger

	mu       sync.Mutex
	queue    []*plan
	running  bool
	inflight int
	waiters  []chan struct{}
}

func newSyncer(log *slog.Logger) *syncer {
	return &syncer{log: log}
}

func (s *syncer) submit(p *plan) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = append(s.queue, p)
	s.inflight++
	if !s.running {
		s.running = true
		go s.loop()
	}
}

func (s *syncer) loop() {
	for {
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.running = false
			s.mu.Unlock()
			return
		}
		p := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		s.mu.Unlock()

		s.execute(p)

		s.mu.Lock()
		s.inflight--
		if s.inflight == 0 {
			for _, w := range s.waiters {
				close(w)
			}
			s.waiters = nil
		}
		s.mu.Unlock()
	}
}

func (s *syncer) execute(p *plan) {
	for i, st := range p.steps {
		err := st.run(p.ctx)
		if err == nil {
			continue
		}
		if errors.Is(err, errAbandoned) {
			s.log.Debug("dropping write for rolled back entity",
				"op", p.op, "entity", p.entity.String(), "step", st.name)
			p.done(outcome{failed: i, step: st.name, err: err, moot: true})
			return
		}
		s.log.Warn("remote write failed",
			"op", p.op, "entity", p.entity.String(), "step", st.name, "index", i, "error", err)
		p.done(outcome{failed: i, step: st.name, err: err})
		return
	}
	s.log.Debug("remote write applied", "op", p.op, "entity", p.entity.String(), "steps", len(p.steps))
	p.done(outcome{failed: -1})
}

// drain blocks until every submitted plan has finished or ctx ends.
func (s *syncer) drain(ctx context.Context) error {
	s.mu.Lock()
	if s.inflight == 0 {
		s.mu.Unlock()
		return nil
	}
	w := make(chan struct{})
	s.waiters = append(s.waiters, w)
	s.mu.Unlock()

	select {
	case <-w:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
