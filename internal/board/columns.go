package board

import (
	"context"

	"flowboard/internal/ordering"
	"flowboard/internal/remote"

	"github.com/google/uuid"
)

// AddColumn appends a column with a pending id. The collaborator's row
// replaces the placeholder on success; on failure the column is removed again.
func (s *Store) AddColumn(ctx context.Context) (Column, error) {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return Column{}, err
	}
	id := newPendingID()
	col := &column{id: id, title: DefaultColumnTitle, color: ColorBlue}
	s.columns[id] = col
	s.columnIDs = append(s.columnIDs, id)
	gen, wf := s.gen, s.workflowID
	fallbackOrder := len(s.columnIDs) - 1
	view := s.columnView(col, fallbackOrder)
	s.mu.Unlock()
	s.notify(EventChanged, gen, wf, nil)

	s.submit(ctx, &plan{
		op:     "create column",
		entity: id,
		steps: []step{{
			name: "create column",
			run: func(ctx context.Context) error {
				order := fallbackOrder
				if live := s.liveColumnOrder(gen, nil); live != nil {
					order = ordering.IndexOf(live, id)
				}
				row, err := s.collab.CreateColumn(ctx, s.scope, remote.NewColumn{
					WorkflowID: wf,
					Title:      view.Title,
					Color:      string(view.Color),
					Order:      max(order, 0),
				})
				if err != nil {
					return err
				}
				s.ids.confirm(id, row.ID)
				return nil
			},
		}},
		done: func(o outcome) { s.settleColumnCreate(gen, wf, id, o) },
	})
	return view, nil
}

func (s *Store) settleColumnCreate(gen uint64, wf uuid.UUID, id ID, o outcome) {
	if !o.ok() {
		s.ids.abandon(id)
	}
	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	col, ok := s.columns[id]
	if !ok {
		// deleted locally while the create was in flight
		s.mu.Unlock()
		return
	}
	var err error
	if o.ok() {
		s.rekeyColumn(col, s.ids.canonical(id))
		col.created = true
	} else {
		for _, tid := range col.taskIDs {
			if t, ok := s.tasks[tid]; ok {
				s.dropTask(t)
			}
		}
		delete(s.columns, id)
		s.columnIDs = ordering.Without(s.columnIDs, id)
		if !o.moot {
			err = &WriteError{Op: "create column", Entity: id, Err: o.err}
		}
	}
	s.mu.Unlock()
	s.settled(gen, wf, err)
}

func (s *Store) rekeyColumn(c *column, to ID) {
	from := c.id
	if from == to {
		return
	}
	delete(s.columns, from)
	c.id = to
	s.columns[to] = c
	for i, id := range s.columnIDs {
		if id == from {
			s.columnIDs[i] = to
		}
	}
	for _, tid := range c.taskIDs {
		if t, ok := s.tasks[tid]; ok {
			t.columnID = to
		}
	}
}

// UpdateColumn changes a column's title and/or color.
func (s *Store) UpdateColumn(ctx context.Context, id ID, patch ColumnPatch) (Column, error) {
	if patch.Color != nil && !patch.Color.Valid() {
		return Column{}, ErrInvalidColor
	}

	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return Column{}, err
	}
	col, err := s.findColumn(id)
	if err != nil {
		s.mu.Unlock()
		return Column{}, err
	}
	prevTitle, prevColor := col.title, col.color
	if patch.Title != nil {
		col.title = *patch.Title
	}
	if patch.Color != nil {
		col.color = *patch.Color
	}
	col.pending++
	gen, wf, key := s.gen, s.workflowID, col.id
	view := s.columnView(col, ordering.IndexOf(s.columnIDs, col.id))
	s.mu.Unlock()
	s.notify(EventChanged, gen, wf, nil)

	upd := remote.ColumnUpdate{Title: patch.Title}
	if patch.Color != nil {
		color := string(*patch.Color)
		upd.Color = &color
	}

	s.submit(ctx, &plan{
		op:     "update column",
		entity: key,
		steps: []step{{
			name: "update column",
			run: func(ctx context.Context) error {
				u, err := s.ids.resolve(key)
				if err != nil {
					return err
				}
				return s.collab.UpdateColumn(ctx, s.scope, u, upd)
			},
		}},
		done: func(o outcome) {
			s.mu.Lock()
			if !s.current(gen) {
				s.mu.Unlock()
				return
			}
			col, err := s.findColumn(key)
			if err != nil {
				s.mu.Unlock()
				return
			}
			col.pending--
			var werr error
			if !o.ok() && !o.moot {
				if patch.Title != nil {
					col.title = prevTitle
				}
				if patch.Color != nil {
					col.color = prevColor
				}
				werr = &WriteError{Op: "update column", Entity: col.id, Err: o.err}
			}
			s.mu.Unlock()
			s.settled(gen, wf, werr)
		},
	})
	return view, nil
}

// DeleteColumn removes a column with all its tasks and subtasks. If the
// collaborator refuses, the column comes back at its previous position.
func (s *Store) DeleteColumn(ctx context.Context, id ID) error {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return err
	}
	col, err := s.findColumn(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	prevOrder := append([]ID(nil), s.columnIDs...)
	removed := make([]detachedTask, 0, len(col.taskIDs))
	for _, tid := range col.taskIDs {
		if t, ok := s.tasks[tid]; ok {
			removed = append(removed, s.detachTask(t))
		}
	}
	delete(s.columns, col.id)
	s.columnIDs = ordering.Without(s.columnIDs, col.id)
	next := append([]ID(nil), s.columnIDs...)
	gen, wf, key := s.gen, s.workflowID, col.id
	s.mu.Unlock()
	s.notify(EventChanged, gen, wf, nil)

	s.submit(ctx, &plan{
		op:     "delete column",
		entity: key,
		steps: []step{
			{
				name: "delete column",
				run: func(ctx context.Context) error {
					u, err := s.ids.resolve(key)
					if err != nil {
						return err
					}
					return s.collab.DeleteColumn(ctx, s.scope, u)
				},
			},
			{
				name: "compact columns",
				run: func(ctx context.Context) error {
					return s.compactColumns(ctx, gen, next)
				},
			},
		},
		done: func(o outcome) {
			if o.ok() || o.moot {
				return
			}
			if o.failed > 0 {
				s.settled(gen, wf, &PartialMoveError{Op: "delete column", Entity: key, Step: o.step, Err: o.err})
				return
			}
			s.mu.Lock()
			if !s.current(gen) {
				s.mu.Unlock()
				return
			}
			col.id = s.ids.canonical(col.id)
			col.created, col.pending = true, 0
			col.taskIDs = make([]ID, 0, len(removed))
			for _, d := range removed {
				if tid, ok := s.reattach(d, col.id); ok {
					col.taskIDs = append(col.taskIDs, tid)
				}
			}
			s.columns[col.id] = col
			s.columnIDs = ordering.Reconcile(s.canonicalAll(prevOrder), s.columnIDs, s.hasColumn)
			s.mu.Unlock()
			s.settled(gen, wf, &WriteError{Op: "delete column", Entity: key, Err: o.err})
		},
	})
	return nil
}

// MoveColumn moves the column at from to to within the workflow's sequence.
// Local orders change immediately; the returned mapping lists every column
// whose order changed.
func (s *Store) MoveColumn(ctx context.Context, id ID, from, to int) (ColumnMove, error) {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return ColumnMove{}, err
	}
	col, err := s.findColumn(id)
	if err != nil {
		s.mu.Unlock()
		return ColumnMove{}, err
	}
	next, changed, err := ordering.Move(s.columnIDs, from, to)
	if err != nil {
		s.mu.Unlock()
		return ColumnMove{}, err
	}
	if s.columnIDs[from] != col.id {
		s.mu.Unlock()
		return ColumnMove{}, ErrPositionMismatch
	}
	prev := s.columnIDs
	s.columnIDs = next
	col.pending++
	gen, wf, key := s.gen, s.workflowID, col.id
	s.mu.Unlock()
	s.notify(EventChanged, gen, wf, nil)

	fallback := append([]ID(nil), next...)
	s.submit(ctx, &plan{
		op:     "move column",
		entity: key,
		steps: []step{{
			name: "reorder columns",
			run: func(ctx context.Context) error {
				return s.compactColumns(ctx, gen, fallback)
			},
		}},
		done: func(o outcome) {
			s.mu.Lock()
			if !s.current(gen) {
				s.mu.Unlock()
				return
			}
			if c, err := s.findColumn(key); err == nil {
				c.pending--
			}
			var werr error
			if !o.ok() && !o.moot {
				s.columnIDs = ordering.Reconcile(s.canonicalAll(prev), s.columnIDs, s.hasColumn)
				werr = &WriteError{Op: "move column", Entity: key, Err: o.err}
			}
			s.mu.Unlock()
			s.settled(gen, wf, werr)
		},
	})

	return ColumnMove{Order: append([]ID(nil), next...), Changed: changed}, nil
}
