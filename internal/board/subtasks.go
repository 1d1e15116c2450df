package board

import (
	"context"
	"strings"

	"flowboard/internal/ordering"
	"flowboard/internal/remote"

	"github.com/google/uuid"
)

// AddSubtask appends a subtask to a task. Unlike columns and tasks a subtask
// has no default title.
func (s *Store) AddSubtask(ctx context.Context, taskID ID, title string) (Subtask, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Subtask{}, ErrEmptyTitle
	}

	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return Subtask{}, err
	}
	t, err := s.findTask(taskID)
	if err != nil {
		s.mu.Unlock()
		return Subtask{}, err
	}
	st := &subtask{id: newPendingID(), taskID: t.id, title: title}
	s.subtasks[st.id] = st
	t.subtaskIDs = append(t.subtaskIDs, st.id)
	gen, wf, taskKey := s.gen, s.workflowID, t.id
	fallbackOrder := len(t.subtaskIDs) - 1
	view := s.subtaskView(st, fallbackOrder)
	s.mu.Unlock()
	s.notify(EventChanged, gen, wf, nil)

	id := st.id
	s.submit(ctx, &plan{
		op:     "create subtask",
		entity: id,
		steps: []step{{
			name: "create subtask",
			run: func(ctx context.Context) error {
				order := fallbackOrder
				if live := s.liveSubtaskOrder(gen, taskKey, nil); live != nil {
					order = max(ordering.IndexOf(live, id), 0)
				}
				taskUUID, err := s.ids.resolve(taskKey)
				if err != nil {
					return err
				}
				row, err := s.collab.CreateSubtask(ctx, s.scope, remote.NewSubtask{
					TaskID: taskUUID,
					Title:  title,
					Order:  order,
				})
				if err != nil {
					return err
				}
				s.ids.confirm(id, row.ID)
				return nil
			},
		}},
		done: func(o outcome) { s.settleSubtaskCreate(gen, wf, id, o) },
	})
	return view, nil
}

func (s *Store) settleSubtaskCreate(gen uint64, wf uuid.UUID, id ID, o outcome) {
	if !o.ok() {
		s.ids.abandon(id)
	}
	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	st, ok := s.subtasks[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	var err error
	t := s.tasks[st.taskID]
	if o.ok() {
		to := s.ids.canonical(id)
		delete(s.subtasks, id)
		st.id = to
		st.created = true
		s.subtasks[to] = st
		if t != nil {
			for i, sid := range t.subtaskIDs {
				if sid == id {
					t.subtaskIDs[i] = to
				}
			}
		}
	} else {
		delete(s.subtasks, id)
		if t != nil {
			t.subtaskIDs = ordering.Without(t.subtaskIDs, id)
		}
		if !o.moot {
			err = &WriteError{Op: "create subtask", Entity: id, Err: o.err}
		}
	}
	s.mu.Unlock()
	s.settled(gen, wf, err)
}

// UpdateSubtask changes a subtask's title, description or completion flag.
func (s *Store) UpdateSubtask(ctx context.Context, taskID, id ID, patch SubtaskPatch) (Subtask, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return Subtask{}, ErrEmptyTitle
	}

	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return Subtask{}, err
	}
	t, err := s.findTask(taskID)
	if err != nil {
		s.mu.Unlock()
		return Subtask{}, err
	}
	st, err := s.findSubtask(t, id)
	if err != nil {
		s.mu.Unlock()
		return Subtask{}, err
	}
	prev := *st
	if patch.Title != nil {
		st.title = *patch.Title
	}
	if patch.Description != nil {
		st.description = *patch.Description
	}
	if patch.Completed != nil {
		st.completed = *patch.Completed
	}
	st.pending++
	gen, wf, key := s.gen, s.workflowID, st.id
	view := s.subtaskView(st, ordering.IndexOf(t.subtaskIDs, st.id))
	s.mu.Unlock()
	s.notify(EventChanged, gen, wf, nil)

	upd := remote.SubtaskUpdate{Title: patch.Title, Description: patch.Description, Completed: patch.Completed}
	s.submit(ctx, &plan{
		op:     "update subtask",
		entity: key,
		steps: []step{{
			name: "update subtask",
			run: func(ctx context.Context) error {
				u, err := s.ids.resolve(key)
				if err != nil {
					return err
				}
				return s.collab.UpdateSubtask(ctx, s.scope, u, upd)
			},
		}},
		done: func(o outcome) {
			s.mu.Lock()
			if !s.current(gen) {
				s.mu.Unlock()
				return
			}
			st, ok := s.subtasks[s.ids.canonical(key)]
			if !ok {
				st, ok = s.subtasks[key]
			}
			if !ok {
				s.mu.Unlock()
				return
			}
			st.pending--
			var werr error
			if !o.ok() && !o.moot {
				if patch.Title != nil {
					st.title = prev.title
				}
				if patch.Description != nil {
					st.description = prev.description
				}
				if patch.Completed != nil {
					st.completed = prev.completed
				}
				werr = &WriteError{Op: "update subtask", Entity: st.id, Err: o.err}
			}
			s.mu.Unlock()
			s.settled(gen, wf, werr)
		},
	})
	return view, nil
}

// DeleteSubtask removes a subtask and compacts the orders of its siblings.
func (s *Store) DeleteSubtask(ctx context.Context, taskID, id ID) error {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return err
	}
	t, err := s.findTask(taskID)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	st, err := s.findSubtask(t, id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	prevOrder := append([]ID(nil), t.subtaskIDs...)
	delete(s.subtasks, st.id)
	t.subtaskIDs = ordering.Without(t.subtaskIDs, st.id)
	next := append([]ID(nil), t.subtaskIDs...)
	gen, wf, key, taskKey := s.gen, s.workflowID, st.id, t.id
	s.mu.Unlock()
	s.notify(EventChanged, gen, wf, nil)

	s.submit(ctx, &plan{
		op:     "delete subtask",
		entity: key,
		steps: []step{
			{
				name: "delete subtask",
				run: func(ctx context.Context) error {
					u, err := s.ids.resolve(key)
					if err != nil {
						return err
					}
					return s.collab.DeleteSubtask(ctx, s.scope, u)
				},
			},
			{
				name: "compact subtasks",
				run: func(ctx context.Context) error {
					return s.compactSubtasks(ctx, gen, taskKey, next)
				},
			},
		},
		done: func(o outcome) {
			if o.ok() || o.moot {
				return
			}
			if o.failed > 0 {
				s.settled(gen, wf, &PartialMoveError{Op: "delete subtask", Entity: key, Step: o.step, Err: o.err})
				return
			}
			s.mu.Lock()
			if !s.current(gen) {
				s.mu.Unlock()
				return
			}
			if s.tasks[t.id] == t {
				if sid, ok := s.ids.settle(st.id); ok {
					st.id, st.taskID = sid, t.id
					st.created, st.pending = true, 0
					s.subtasks[sid] = st
					t.subtaskIDs = ordering.Reconcile(s.canonicalAll(prevOrder), t.subtaskIDs, s.subtasksOf(t.id))
				}
			}
			s.mu.Unlock()
			s.settled(gen, wf, &WriteError{Op: "delete subtask", Entity: key, Err: o.err})
		},
	})
	return nil
}

// ReorderSubtasks moves subtask id from index from to index to within a task
// and writes the order of every subtask of that task.
func (s *Store) ReorderSubtasks(ctx context.Context, taskID, id ID, from, to int) (SubtaskMove, error) {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return SubtaskMove{}, err
	}
	t, err := s.findTask(taskID)
	if err != nil {
		s.mu.Unlock()
		return SubtaskMove{}, err
	}
	st, err := s.findSubtask(t, id)
	if err != nil {
		s.mu.Unlock()
		return SubtaskMove{}, err
	}
	next, changed, err := ordering.Move(t.subtaskIDs, from, to)
	if err != nil {
		s.mu.Unlock()
		return SubtaskMove{}, err
	}
	if t.subtaskIDs[from] != st.id {
		s.mu.Unlock()
		return SubtaskMove{}, ErrPositionMismatch
	}
	prev := t.subtaskIDs
	t.subtaskIDs = next
	t.pending++
	gen, wf, taskKey := s.gen, s.workflowID, t.id
	s.mu.Unlock()
	s.notify(EventChanged, gen, wf, nil)

	fallback := append([]ID(nil), next...)
	s.submit(ctx, &plan{
		op:     "reorder subtasks",
		entity: taskKey,
		steps: []step{{
			name: "compact subtasks",
			run: func(ctx context.Context) error {
				return s.compactSubtasks(ctx, gen, taskKey, fallback)
			},
		}},
		done: func(o outcome) {
			s.mu.Lock()
			if !s.current(gen) {
				s.mu.Unlock()
				return
			}
			t, terr := s.findTask(taskKey)
			if terr == nil {
				t.pending--
			}
			var werr error
			if !o.ok() && !o.moot {
				if terr == nil {
					t.subtaskIDs = ordering.Reconcile(s.canonicalAll(prev), t.subtaskIDs, s.subtasksOf(t.id))
				}
				werr = &WriteError{Op: "reorder subtasks", Entity: taskKey, Err: o.err}
			}
			s.mu.Unlock()
			s.settled(gen, wf, werr)
		},
	})

	return SubtaskMove{TaskID: taskKey, Order: append([]ID(nil), next...), Changed: changed}, nil
}

func (s *Store) subtasksOf(taskID ID) func(ID) bool {
	return func(id ID) bool {
		st, ok := s.subtasks[id]
		return ok && st.taskID == taskID
	}
}

func (s *Store) subtaskView(st *subtask, order int) Subtask {
	return Subtask{
		ID:          st.id,
		TaskID:      st.taskID,
		Title:       st.title,
		Description: st.description,
		Completed:   st.completed,
		Order:       order,
		Pending:     !st.created || st.pending > 0,
	}
}
