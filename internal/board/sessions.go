package board

import (
	"context"
	"sync"

	"flowboard/internal/remote"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Sessions holds one Store per user, created on first use.
type Sessions struct {
	collab remote.Collaborator
	opts   []Option

	mu     sync.Mutex
	stores map[uuid.UUID]*Store
}

func NewSessions(collab remote.Collaborator, opts ...Option) *Sessions {
	return &Sessions{
		collab: collab,
		opts:   opts,
		stores: make(map[uuid.UUID]*Store),
	}
}

func (s *Sessions) Collaborator() remote.Collaborator { return s.collab }

// For returns the user's store.
func (s *Sessions) For(userID uuid.UUID) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.stores[userID]; ok {
		return st
	}
	st := NewStore(s.collab, remote.Scope{UserID: userID}, s.opts...)
	s.stores[userID] = st
	return st
}

// Drain waits for the queued writes of every store.
func (s *Sessions) Drain(ctx context.Context) error {
	s.mu.Lock()
	stores := make([]*Store, 0, len(s.stores))
	for _, st := range s.stores {
		stores = append(stores, st)
	}
	s.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	for _, st := range stores {
		st := st
		g.Go(func() error { return st.Drain(ctx) })
	}
	return g.Wait()
}
