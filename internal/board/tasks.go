package board

import (
	"context"

	"flowboard/internal/ordering"
	"flowboard/internal/remote"

	"github.com/google/uuid"
)

// AddTask appends a task with a pending id to the end of a column.
func (s *Store) AddTask(ctx context.Context, columnID ID) (Task, error) {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return Task{}, err
	}
	col, err := s.findColumn(columnID)
	if err != nil {
		s.mu.Unlock()
		return Task{}, err
	}
	id := newPendingID()
	t := &task{id: id, columnID: col.id, title: DefaultTaskTitle}
	s.tasks[id] = t
	col.taskIDs = append(col.taskIDs, id)
	gen, wf := s.gen, s.workflowID
	fallbackCol, fallbackOrder := col.id, len(col.taskIDs)-1
	view := s.taskView(t)
	s.mu.Unlock()
	s.notify(EventChanged, gen, wf, nil)

	s.submit(ctx, &plan{
		op:     "create task",
		entity: id,
		steps: []step{{
			name: "create task",
			run: func(ctx context.Context) error {
				colID, order := s.taskPlacement(gen, id, fallbackCol, fallbackOrder)
				colUUID, err := s.ids.resolve(colID)
				if err != nil {
					return err
				}
				row, err := s.collab.CreateTask(ctx, s.scope, remote.NewTask{
					ColumnID:    colUUID,
					Title:       view.Title,
					Description: view.Description,
					Order:       order,
				})
				if err != nil {
					return err
				}
				s.ids.confirm(id, row.ID)
				return nil
			},
		}},
		done: func(o outcome) { s.settleTaskCreate(gen, wf, id, o) },
	})
	return view, nil
}

// taskPlacement returns a task's live column and position, or the fallback
// when the task or its board is gone. While the live column's create is still
// queued behind this write the fallback is used too; the move that put the
// task there writes the final placement.
func (s *Store) taskPlacement(gen uint64, id, fallbackCol ID, fallbackOrder int) (ID, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(gen) {
		return fallbackCol, fallbackOrder
	}
	t, err := s.findTask(id)
	if err != nil {
		return fallbackCol, fallbackOrder
	}
	col, ok := s.columns[t.columnID]
	if !ok {
		return fallbackCol, fallbackOrder
	}
	if _, err := s.ids.resolve(col.id); err != nil {
		return fallbackCol, fallbackOrder
	}
	return col.id, max(ordering.IndexOf(col.taskIDs, t.id), 0)
}

func (s *Store) settleTaskCreate(gen uint64, wf uuid.UUID, id ID, o outcome) {
	if !o.ok() {
		s.ids.abandon(id)
	}
	s.mu.Lock()
	if !s.current(gen) {
		s.mu.Unlock()
		return
	}
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	var err error
	if o.ok() {
		s.rekeyTask(t, s.ids.canonical(id))
		t.created = true
	} else {
		s.unlinkTask(t)
		s.dropTask(t)
		if !o.moot {
			err = &WriteError{Op: "create task", Entity: id, Err: o.err}
		}
	}
	s.mu.Unlock()
	s.settled(gen, wf, err)
}

func (s *Store) rekeyTask(t *task, to ID) {
	from := t.id
	if from == to {
		return
	}
	delete(s.tasks, from)
	t.id = to
	s.tasks[to] = t
	if col, ok := s.columns[t.columnID]; ok {
		for i, id := range col.taskIDs {
			if id == from {
				col.taskIDs[i] = to
			}
		}
	}
	for _, sid := range t.subtaskIDs {
		if st, ok := s.subtasks[sid]; ok {
			st.taskID = to
		}
	}
}

// unlinkTask removes the task from the sequence of the column holding it.
func (s *Store) unlinkTask(t *task) {
	if col, ok := s.columns[t.columnID]; ok {
		col.taskIDs = ordering.Without(col.taskIDs, t.id)
	}
}

// tasksOf reports whether a task id belongs to the column, for Reconcile.
func (s *Store) tasksOf(columnID ID) func(ID) bool {
	return func(id ID) bool {
		t, ok := s.tasks[id]
		return ok && t.columnID == columnID
	}
}

// UpdateTask changes a task's title and/or description.
func (s *Store) UpdateTask(ctx context.Context, id ID, patch TaskPatch) (Task, error) {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return Task{}, err
	}
	t, err := s.findTask(id)
	if err != nil {
		s.mu.Unlock()
		return Task{}, err
	}
	prevTitle, prevDesc := t.title, t.description
	if patch.Title != nil {
		t.title = *patch.Title
	}
	if patch.Description != nil {
		t.description = *patch.Description
	}
	t.pending++
	gen, wf, key := s.gen, s.workflowID, t.id
	view := s.taskView(t)
	s.mu.Unlock()
	s.notify(EventChanged, gen, wf, nil)

	upd := remote.TaskUpdate{Title: patch.Title, Description: patch.Description}
	s.submit(ctx, &plan{
		op:     "update task",
		entity: key,
		steps: []step{{
			name: "update task",
			run: func(ctx context.Context) error {
				u, err := s.ids.resolve(key)
				if err != nil {
					return err
				}
				return s.collab.UpdateTask(ctx, s.scope, u, upd)
			},
		}},
		done: func(o outcome) {
			s.mu.Lock()
			if !s.current(gen) {
				s.mu.Unlock()
				return
			}
			t, err := s.findTask(key)
			if err != nil {
				s.mu.Unlock()
				return
			}
			t.pending--
			var werr error
			if !o.ok() && !o.moot {
				if patch.Title != nil {
					t.title = prevTitle
				}
				if patch.Description != nil {
					t.description = prevDesc
				}
				werr = &WriteError{Op: "update task", Entity: t.id, Err: o.err}
			}
			s.mu.Unlock()
			s.settled(gen, wf, werr)
		},
	})
	return view, nil
}

// DeleteTask removes a task and its subtasks, then compacts the remaining
// tasks of its column.
func (s *Store) DeleteTask(ctx context.Context, id ID) error {
	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return err
	}
	t, err := s.findTask(id)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	col := s.columns[t.columnID]
	prevOrder := append([]ID(nil), col.taskIDs...)
	s.unlinkTask(t)
	removed := s.detachTask(t)
	next := append([]ID(nil), col.taskIDs...)
	gen, wf, key, colKey := s.gen, s.workflowID, t.id, col.id
	s.mu.Unlock()
	s.notify(EventChanged, gen, wf, nil)

	s.submit(ctx, &plan{
		op:     "delete task",
		entity: key,
		steps: []step{
			{
				name: "delete task",
				run: func(ctx context.Context) error {
					u, err := s.ids.resolve(key)
					if err != nil {
						return err
					}
					return s.collab.DeleteTask(ctx, s.scope, u)
				},
			},
			{
				name: "compact column",
				run: func(ctx context.Context) error {
					return s.compactTasks(ctx, gen, colKey, next, ID{})
				},
			},
		},
		done: func(o outcome) {
			if o.ok() || o.moot {
				return
			}
			if o.failed > 0 {
				s.settled(gen, wf, &PartialMoveError{Op: "delete task", Entity: key, Step: o.step, Err: o.err})
				return
			}
			s.mu.Lock()
			if !s.current(gen) {
				s.mu.Unlock()
				return
			}
			if s.columns[col.id] == col {
				if _, ok := s.reattach(removed, col.id); ok {
					col.taskIDs = ordering.Reconcile(s.canonicalAll(prevOrder), col.taskIDs, s.tasksOf(col.id))
				}
			}
			s.mu.Unlock()
			s.settled(gen, wf, &WriteError{Op: "delete task", Entity: key, Err: o.err})
		},
	})
	return nil
}

// MoveTask moves a task from index from of column src to index to of column
// dst. When src and dst are the same column this is a reorder; otherwise the
// task changes column and both columns are compacted.
func (s *Store) MoveTask(ctx context.Context, id, src, dst ID, from, to int) (TaskMove, error) {
	s.mu.Lock()
	res, p, err := s.applyTaskMove(id, src, dst, from, to)
	gen, wf := s.gen, s.workflowID
	s.mu.Unlock()
	if err != nil {
		return TaskMove{}, err
	}
	s.notify(EventChanged, gen, wf, nil)
	s.submit(ctx, p)
	return res, nil
}

func (s *Store) applyTaskMove(id, src, dst ID, from, to int) (TaskMove, *plan, error) {
	if err := s.ready(); err != nil {
		return TaskMove{}, nil, err
	}
	t, err := s.findTask(id)
	if err != nil {
		return TaskMove{}, nil, err
	}
	srcCol, err := s.findColumn(src)
	if err != nil {
		return TaskMove{}, nil, err
	}
	dstCol, err := s.findColumn(dst)
	if err != nil {
		return TaskMove{}, nil, err
	}
	if t.columnID != srcCol.id {
		return TaskMove{}, nil, ErrPositionMismatch
	}
	if srcCol == dstCol {
		return s.reorderTasks(t, srcCol, from, to)
	}
	return s.moveTaskAcross(t, srcCol, dstCol, from, to)
}

func (s *Store) reorderTasks(t *task, col *column, from, to int) (TaskMove, *plan, error) {
	next, changed, err := ordering.Move(col.taskIDs, from, to)
	if err != nil {
		return TaskMove{}, nil, err
	}
	if col.taskIDs[from] != t.id {
		return TaskMove{}, nil, ErrPositionMismatch
	}
	prev := col.taskIDs
	col.taskIDs = next
	t.pending++
	gen, wf, key, colKey := s.gen, s.workflowID, t.id, col.id

	fallback := append([]ID(nil), next...)
	p := &plan{
		op:     "reorder tasks",
		entity: key,
		steps: []step{{
			name: "compact column",
			run: func(ctx context.Context) error {
				return s.compactTasks(ctx, gen, colKey, fallback, ID{})
			},
		}},
		done: func(o outcome) {
			s.mu.Lock()
			if !s.current(gen) {
				s.mu.Unlock()
				return
			}
			if t, err := s.findTask(key); err == nil {
				t.pending--
			}
			var werr error
			if !o.ok() && !o.moot {
				if s.columns[col.id] == col {
					col.taskIDs = ordering.Reconcile(s.canonicalAll(prev), col.taskIDs, s.tasksOf(col.id))
				}
				werr = &WriteError{Op: "reorder tasks", Entity: key, Err: o.err}
			}
			s.mu.Unlock()
			s.settled(gen, wf, werr)
		},
	}

	return TaskMove{TaskID: key, ColumnID: colKey, Order: to, Changed: changed}, p, nil
}

func (s *Store) moveTaskAcross(t *task, srcCol, dstCol *column, from, to int) (TaskMove, *plan, error) {
	nextSrc, moved, err := ordering.Remove(srcCol.taskIDs, from)
	if err != nil {
		return TaskMove{}, nil, err
	}
	if moved != t.id {
		return TaskMove{}, nil, ErrPositionMismatch
	}
	nextDst, err := ordering.Insert(dstCol.taskIDs, to, t.id)
	if err != nil {
		return TaskMove{}, nil, err
	}
	prevSrc, prevDst := srcCol.taskIDs, dstCol.taskIDs
	srcCol.taskIDs, dstCol.taskIDs = nextSrc, nextDst
	t.columnID = dstCol.id
	t.pending++
	gen, wf, key := s.gen, s.workflowID, t.id
	srcKey, dstKey := srcCol.id, dstCol.id

	result := TaskMove{
		TaskID:      key,
		ColumnID:    dstKey,
		Order:       to,
		CrossColumn: true,
		Source:      ordering.Positions(nextSrc),
		Destination: ordering.Positions(nextDst),
	}
	delete(result.Destination, key)

	fallbackSrc := append([]ID(nil), nextSrc...)
	fallbackDst := append([]ID(nil), nextDst...)
	p := &plan{
		op:     "move task",
		entity: key,
		steps: []step{
			{
				name: "move task",
				run: func(ctx context.Context) error {
					u, err := s.ids.resolve(key)
					if err != nil {
						return err
					}
					colID, order := s.taskPlacement(gen, key, dstKey, to)
					colUUID, err := s.ids.resolve(colID)
					if err != nil {
						return err
					}
					return s.collab.UpdateTask(ctx, s.scope, u, remote.TaskUpdate{ColumnID: &colUUID, Order: &order})
				},
			},
			{
				name: "compact source column",
				run: func(ctx context.Context) error {
					return s.compactTasks(ctx, gen, srcKey, fallbackSrc, ID{})
				},
			},
			{
				name: "compact destination column",
				run: func(ctx context.Context) error {
					return s.compactTasks(ctx, gen, dstKey, fallbackDst, key)
				},
			},
		},
		done: func(o outcome) {
			s.mu.Lock()
			if !s.current(gen) {
				s.mu.Unlock()
				return
			}
			t, terr := s.findTask(key)
			if terr == nil {
				t.pending--
			}
			var werr error
			switch {
			case o.ok() || o.moot:
			case o.failed > 0:
				werr = &PartialMoveError{Op: "move task", Entity: key, Step: o.step, Err: o.err}
			default:
				if terr == nil && s.columns[srcCol.id] == srcCol {
					s.unlinkTask(t)
					t.columnID = srcCol.id
					srcCol.taskIDs = ordering.Reconcile(s.canonicalAll(prevSrc), srcCol.taskIDs, s.tasksOf(srcCol.id))
					if s.columns[dstCol.id] == dstCol {
						dstCol.taskIDs = ordering.Reconcile(s.canonicalAll(prevDst), dstCol.taskIDs, s.tasksOf(dstCol.id))
					}
				}
				werr = &WriteError{Op: "move task", Entity: key, Err: o.err}
			}
			s.mu.Unlock()
			s.settled(gen, wf, werr)
		},
	}

	return result, p, nil
}
