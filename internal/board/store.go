// Package board keeps the in-memory kanban board of one user and keeps it in
// step with the remote collaborator. Every mutation is applied locally first
// and then written through an ordered plan; a failed write rolls back only
// the entities it touched.
package board

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	"flowboard/internal/ordering"
	"flowboard/internal/remote"

	"github.com/google/uuid"
)

type column struct {
	id      ID
	title   string
	color   Color
	taskIDs []ID
	created bool
	pending int
}

type task struct {
	id          ID
	columnID    ID
	title       string
	description string
	subtaskIDs  []ID
	created     bool
	pending     int
}

type subtask struct {
	id          ID
	taskID      ID
	title       string
	description string
	completed   bool
	created     bool
	pending     int
}

// Store is the single source of truth for a rendered board.
type Store struct {
	collab   remote.Collaborator
	scope    remote.Scope
	listener Listener
	log      *slog.Logger
	ids      *registry
	sync     *syncer

	mu         sync.Mutex
	gen        uint64
	status     Status
	loadErr    error
	workflowID uuid.UUID
	columnIDs  []ID
	columns    map[ID]*column
	tasks      map[ID]*task
	subtasks   map[ID]*subtask
}

type Option func(*Store)

func WithListener(l Listener) Option {
	return func(s *Store) { s.listener = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

func NewStore(collab remote.Collaborator, scope remote.Scope, opts ...Option) *Store {
	s := &Store{
		collab: collab,
		scope:  scope,
		log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:    newRegistry(),
		status: StatusEmpty,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With("user_id", scope.UserID.String())
	s.sync = newSyncer(s.log)
	s.clear()
	return s
}

func (s *Store) Scope() remote.Scope { return s.scope }

// Drain waits until every queued remote write has been applied or failed.
func (s *Store) Drain(ctx context.Context) error {
	return s.sync.drain(ctx)
}

func (s *Store) clear() {
	s.columnIDs = nil
	s.columns = make(map[ID]*column)
	s.tasks = make(map[ID]*task)
	s.subtasks = make(map[ID]*subtask)
}

func (s *Store) notify(kind EventKind, gen uint64, workflowID uuid.UUID, err error) {
	if s.listener == nil {
		return
	}
	s.listener(Event{
		Kind:       kind,
		UserID:     s.scope.UserID,
		WorkflowID: workflowID,
		Generation: gen,
		Err:        err,
	})
}

// settled publishes the change event and, for failed writes, the error.
func (s *Store) settled(gen uint64, workflowID uuid.UUID, err error) {
	s.notify(EventChanged, gen, workflowID, nil)
	if err != nil {
		s.notify(EventError, gen, workflowID, err)
	}
}

func (s *Store) submit(ctx context.Context, p *plan) {
	p.ctx = context.WithoutCancel(ctx)
	s.sync.submit(p)
}

// LoadWorkflow replaces the whole board with a fresh snapshot of workflowID.
// Results of writes still in flight for the previous board are discarded.
func (s *Store) LoadWorkflow(ctx context.Context, workflowID uuid.UUID) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.workflowID = workflowID
	s.status = StatusLoading
	s.loadErr = nil
	s.clear()
	s.mu.Unlock()
	s.notify(EventChanged, gen, workflowID, nil)

	cols, tasks, err := s.fetch(ctx, workflowID)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return ErrSuperseded
	}
	if err != nil {
		loadErr := &LoadError{WorkflowID: workflowID, Err: err}
		s.status = StatusFailed
		s.loadErr = loadErr
		s.mu.Unlock()
		s.log.Error("workflow load failed", "workflow_id", workflowID.String(), "error", err)
		s.settled(gen, workflowID, loadErr)
		return loadErr
	}
	s.ingest(cols, tasks)
	s.status = StatusReady
	s.mu.Unlock()

	s.notify(EventChanged, gen, workflowID, nil)
	return nil
}

// Reset empties the store, e.g. after its workflow was deleted.
func (s *Store) Reset() {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.workflowID = uuid.Nil
	s.status = StatusEmpty
	s.loadErr = nil
	s.clear()
	s.mu.Unlock()
	s.notify(EventChanged, gen, uuid.Nil, nil)
}

func (s *Store) fetch(ctx context.Context, workflowID uuid.UUID) ([]remote.ColumnRow, []remote.TaskRow, error) {
	cols, err := s.collab.ListColumns(ctx, s.scope, workflowID)
	if err != nil {
		return nil, nil, err
	}
	if len(cols) == 0 {
		return cols, nil, nil
	}
	ids := make([]uuid.UUID, len(cols))
	for i, c := range cols {
		ids[i] = c.ID
	}
	tasks, err := s.collab.ListTasksWithSubtasks(ctx, s.scope, ids)
	if err != nil {
		return nil, nil, err
	}
	return cols, tasks, nil
}

// ingest narrows collaborator rows into board state. Stored order values are
// only used for sorting; positions are recomputed from scratch.
func (s *Store) ingest(cols []remote.ColumnRow, tasks []remote.TaskRow) {
	sort.SliceStable(cols, func(i, j int) bool { return cols[i].Order < cols[j].Order })
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Order < tasks[j].Order })

	for _, row := range cols {
		color := Color(row.Color)
		if !color.Valid() {
			s.log.Warn("unknown column color, using default", "column_id", row.ID.String(), "color", row.Color)
			color = ColorBlue
		}
		c := &column{id: DurableID(row.ID), title: row.Title, color: color, created: true}
		s.columns[c.id] = c
		s.columnIDs = append(s.columnIDs, c.id)
	}

	for _, row := range tasks {
		col, ok := s.columns[DurableID(row.ColumnID)]
		if !ok {
			s.log.Warn("task outside loaded columns", "task_id", row.ID.String(), "column_id", row.ColumnID.String())
			continue
		}
		t := &task{
			id:          DurableID(row.ID),
			columnID:    col.id,
			title:       row.Title,
			description: row.Description,
			created:     true,
		}
		subs := append([]remote.SubtaskRow(nil), row.Subtasks...)
		sort.SliceStable(subs, func(i, j int) bool { return subs[i].Order < subs[j].Order })
		for _, sr := range subs {
			st := &subtask{
				id:          DurableID(sr.ID),
				taskID:      t.id,
				title:       sr.Title,
				description: sr.Description,
				completed:   sr.Completed,
				created:     true,
			}
			s.subtasks[st.id] = st
			t.subtaskIDs = append(t.subtaskIDs, st.id)
		}
		s.tasks[t.id] = t
		col.taskIDs = append(col.taskIDs, t.id)
	}
}

func (s *Store) ready() error {
	if s.status != StatusReady {
		return ErrNotReady
	}
	return nil
}

func (s *Store) findColumn(id ID) (*column, error) {
	if c, ok := s.columns[id]; ok {
		return c, nil
	}
	if c, ok := s.columns[s.ids.canonical(id)]; ok {
		return c, nil
	}
	return nil, ErrColumnNotFound
}

func (s *Store) findTask(id ID) (*task, error) {
	if t, ok := s.tasks[id]; ok {
		return t, nil
	}
	if t, ok := s.tasks[s.ids.canonical(id)]; ok {
		return t, nil
	}
	return nil, ErrTaskNotFound
}

func (s *Store) findSubtask(t *task, id ID) (*subtask, error) {
	st, ok := s.subtasks[id]
	if !ok {
		st, ok = s.subtasks[s.ids.canonical(id)]
	}
	if !ok || st.taskID != t.id {
		return nil, ErrSubtaskNotFound
	}
	return st, nil
}

// current reports whether a settling plan still targets the loaded board.
func (s *Store) current(gen uint64) bool {
	return s.gen == gen && s.status == StatusReady
}

// liveColumnOrder returns the column sequence at send time, or fallback when
// the board has since been switched.
func (s *Store) liveColumnOrder(gen uint64, fallback []ID) []ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(gen) {
		return fallback
	}
	return append([]ID(nil), s.columnIDs...)
}

func (s *Store) liveTaskOrder(gen uint64, columnID ID, fallback []ID) []ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(gen) {
		return fallback
	}
	col, err := s.findColumn(columnID)
	if err != nil {
		return fallback
	}
	return append([]ID(nil), col.taskIDs...)
}

func (s *Store) liveSubtaskOrder(gen uint64, taskID ID, fallback []ID) []ID {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.current(gen) {
		return fallback
	}
	t, err := s.findTask(taskID)
	if err != nil {
		return fallback
	}
	return append([]ID(nil), t.subtaskIDs...)
}

// compactColumns writes the order of every column of the board.
func (s *Store) compactColumns(ctx context.Context, gen uint64, fallback []ID) error {
	for i, id := range s.liveColumnOrder(gen, fallback) {
		u, err := s.ids.resolve(id)
		if err != nil {
			// created after this plan or rolled back: its own create carries its order
			continue
		}
		order := i
		if err := s.collab.UpdateColumn(ctx, s.scope, u, remote.ColumnUpdate{Order: &order}); err != nil {
			return err
		}
	}
	return nil
}

// compactTasks writes column id and order of every task in the column,
// except skip which the caller has already written.
func (s *Store) compactTasks(ctx context.Context, gen uint64, columnID ID, fallback []ID, skip ID) error {
	colUUID, err := s.ids.resolve(columnID)
	if err != nil {
		if errors.Is(err, errAbandoned) {
			return nil
		}
		return err
	}
	for i, id := range s.liveTaskOrder(gen, columnID, fallback) {
		if id == skip || s.ids.canonical(id) == s.ids.canonical(skip) {
			continue
		}
		u, err := s.ids.resolve(id)
		if err != nil {
			continue
		}
		order := i
		upd := remote.TaskUpdate{ColumnID: &colUUID, Order: &order}
		if err := s.collab.UpdateTask(ctx, s.scope, u, upd); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) compactSubtasks(ctx context.Context, gen uint64, taskID ID, fallback []ID) error {
	for i, id := range s.liveSubtaskOrder(gen, taskID, fallback) {
		u, err := s.ids.resolve(id)
		if err != nil {
			continue
		}
		order := i
		if err := s.collab.UpdateSubtask(ctx, s.scope, u, remote.SubtaskUpdate{Order: &order}); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot renders the board.
func (s *Store) Snapshot() Board {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := Board{
		WorkflowID: s.workflowID,
		Generation: s.gen,
		Status:     s.status,
		Columns:    make([]Column, 0, len(s.columnIDs)),
	}
	if s.loadErr != nil {
		b.Error = s.loadErr.Error()
	}
	for i, id := range s.columnIDs {
		b.Columns = append(b.Columns, s.columnView(s.columns[id], i))
	}
	return b
}

func (s *Store) Column(id ID) (Column, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := s.findColumn(id)
	if err != nil {
		return Column{}, false
	}
	return s.columnView(c, ordering.IndexOf(s.columnIDs, c.id)), true
}

func (s *Store) Task(id ID) (Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.findTask(id)
	if err != nil {
		return Task{}, false
	}
	return s.taskView(t), true
}

func (s *Store) WorkflowID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workflowID
}

func (s *Store) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Store) columnView(c *column, order int) Column {
	v := Column{
		ID:      c.id,
		Title:   c.title,
		Color:   c.color,
		Order:   order,
		Pending: !c.created || c.pending > 0,
		Tasks:   make([]Task, 0, len(c.taskIDs)),
	}
	for _, tid := range c.taskIDs {
		v.Tasks = append(v.Tasks, s.taskView(s.tasks[tid]))
	}
	return v
}

func (s *Store) taskView(t *task) Task {
	order := 0
	if col, ok := s.columns[t.columnID]; ok {
		order = ordering.IndexOf(col.taskIDs, t.id)
	}
	v := Task{
		ID:          t.id,
		ColumnID:    t.columnID,
		Title:       t.title,
		Description: t.description,
		Order:       order,
		Pending:     !t.created || t.pending > 0,
		Subtasks:    make([]Subtask, 0, len(t.subtaskIDs)),
	}
	for i, sid := range t.subtaskIDs {
		v.Subtasks = append(v.Subtasks, s.subtaskView(s.subtasks[sid], i))
	}
	return v
}

// dropTask removes a task and its subtasks from the maps. The caller fixes
// the owning column's sequence.
func (s *Store) dropTask(t *task) {
	for _, sid := range t.subtaskIDs {
		delete(s.subtasks, sid)
	}
	delete(s.tasks, t.id)
}

// detachedTask is a task removed by a delete that may still be rolled back.
type detachedTask struct {
	t    *task
	subs []*subtask
}

func (s *Store) detachTask(t *task) detachedTask {
	d := detachedTask{t: t}
	for _, sid := range t.subtaskIDs {
		if st, ok := s.subtasks[sid]; ok {
			d.subs = append(d.subs, st)
		}
	}
	s.dropTask(t)
	return d
}

// reattach puts a detached task back under columnID. Every write issued
// before the delete has settled by now, so ids are in their final form and
// nothing is pending. A task whose create was rolled back stays gone.
func (s *Store) reattach(d detachedTask, columnID ID) (ID, bool) {
	t := d.t
	id, ok := s.ids.settle(t.id)
	if !ok {
		return ID{}, false
	}
	t.id, t.columnID = id, columnID
	t.created, t.pending = true, 0
	t.subtaskIDs = make([]ID, 0, len(d.subs))
	for _, st := range d.subs {
		sid, ok := s.ids.settle(st.id)
		if !ok {
			continue
		}
		st.id, st.taskID = sid, t.id
		st.created, st.pending = true, 0
		s.subtasks[sid] = st
		t.subtaskIDs = append(t.subtaskIDs, sid)
	}
	s.tasks[t.id] = t
	return t.id, true
}

func (s *Store) hasColumn(id ID) bool {
	_, ok := s.columns[id]
	return ok
}

func (s *Store) canonicalAll(ids []ID) []ID {
	out := make([]ID, len(ids))
	for i, id := range ids {
		out[i] = s.ids.canonical(id)
	}
	return out
}
