// Package remotetest provides an in-memory remote.Collaborator for tests.
package remotetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"flowboard/internal/remote"

	"github.com/google/uuid"
)

// Call records one collaborator invocation.
type Call struct {
	Method string
	ID     uuid.UUID
}

// IsWrite reports whether the call mutates remote state.
func (c Call) IsWrite() bool {
	return !strings.HasPrefix(c.Method, "List")
}

// Memory is a collaborator that keeps rows in maps and enforces the same
// ownership rules as the Postgres implementation.
type Memory struct {
	mu        sync.Mutex
	workflows map[uuid.UUID]remote.WorkflowRow
	columns   map[uuid.UUID]remote.ColumnRow
	tasks     map[uuid.UUID]remote.TaskRow
	subtasks  map[uuid.UUID]remote.SubtaskRow
	calls     []Call
	fail      func(method string, id uuid.UUID) error
	gate      chan struct{}
}

var _ remote.Collaborator = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		workflows: make(map[uuid.UUID]remote.WorkflowRow),
		columns:   make(map[uuid.UUID]remote.ColumnRow),
		tasks:     make(map[uuid.UUID]remote.TaskRow),
		subtasks:  make(map[uuid.UUID]remote.SubtaskRow),
	}
}

// FailWhen installs a hook consulted before every call; a non-nil result is
// returned instead of performing the call. Pass nil to remove it.
func (m *Memory) FailWhen(fn func(method string, id uuid.UUID) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = fn
}

// Hold blocks every subsequent write until the returned release func runs.
func (m *Memory) Hold() (release func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	gate := make(chan struct{})
	m.gate = gate
	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			if m.gate == gate {
				m.gate = nil
			}
			m.mu.Unlock()
			close(gate)
		})
	}
}

func (m *Memory) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

func (m *Memory) Writes() []Call {
	var out []Call
	for _, c := range m.Calls() {
		if c.IsWrite() {
			out = append(out, c)
		}
	}
	return out
}

func (m *Memory) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// begin records the call, waits on a held gate for writes, and returns with
// the lock held unless an injected failure fires.
func (m *Memory) begin(method string, id uuid.UUID) error {
	m.mu.Lock()
	call := Call{Method: method, ID: id}
	m.calls = append(m.calls, call)
	gate := m.gate
	if gate != nil && call.IsWrite() {
		m.mu.Unlock()
		<-gate
		m.mu.Lock()
	}
	if m.fail != nil {
		if err := m.fail(method, id); err != nil {
			m.mu.Unlock()
			return err
		}
	}
	return nil
}

func (m *Memory) SeedWorkflow(userID uuid.UUID, title string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.workflows[id] = remote.WorkflowRow{ID: id, Title: title, UserID: userID, CreatedAt: time.Now()}
	return id
}

func (m *Memory) SeedColumn(workflowID uuid.UUID, title, color string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.columns[id] = remote.ColumnRow{
		ID:         id,
		WorkflowID: workflowID,
		Title:      title,
		Color:      color,
		Order:      m.countColumns(workflowID),
	}
	return id
}

func (m *Memory) SeedTask(columnID uuid.UUID, title string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.tasks[id] = remote.TaskRow{ID: id, ColumnID: columnID, Title: title, Order: m.countTasks(columnID)}
	return id
}

func (m *Memory) SeedSubtask(taskID uuid.UUID, title string) uuid.UUID {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.New()
	m.subtasks[id] = remote.SubtaskRow{ID: id, TaskID: taskID, Title: title, Order: m.countSubtasks(taskID)}
	return id
}

// Column returns the stored row, for assertions.
func (m *Memory) Column(id uuid.UUID) (remote.ColumnRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.columns[id]
	return row, ok
}

func (m *Memory) Task(id uuid.UUID) (remote.TaskRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.tasks[id]
	return row, ok
}

func (m *Memory) Subtask(id uuid.UUID) (remote.SubtaskRow, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.subtasks[id]
	return row, ok
}

func (m *Memory) countColumns(workflowID uuid.UUID) int {
	n := 0
	for _, c := range m.columns {
		if c.WorkflowID == workflowID {
			n++
		}
	}
	return n
}

func (m *Memory) countTasks(columnID uuid.UUID) int {
	n := 0
	for _, t := range m.tasks {
		if t.ColumnID == columnID {
			n++
		}
	}
	return n
}

func (m *Memory) countSubtasks(taskID uuid.UUID) int {
	n := 0
	for _, s := range m.subtasks {
		if s.TaskID == taskID {
			n++
		}
	}
	return n
}

func (m *Memory) checkWorkflow(scope remote.Scope, id uuid.UUID) error {
	w, ok := m.workflows[id]
	if !ok {
		return remote.ErrNotFound
	}
	if w.UserID != scope.UserID {
		return remote.ErrRejected
	}
	return nil
}

func (m *Memory) checkColumn(scope remote.Scope, id uuid.UUID) error {
	c, ok := m.columns[id]
	if !ok {
		return remote.ErrNotFound
	}
	return m.checkWorkflow(scope, c.WorkflowID)
}

func (m *Memory) checkTask(scope remote.Scope, id uuid.UUID) error {
	t, ok := m.tasks[id]
	if !ok {
		return remote.ErrNotFound
	}
	return m.checkColumn(scope, t.ColumnID)
}

func (m *Memory) checkSubtask(scope remote.Scope, id uuid.UUID) error {
	s, ok := m.subtasks[id]
	if !ok {
		return remote.ErrNotFound
	}
	return m.checkTask(scope, s.TaskID)
}

func (m *Memory) ListWorkflows(ctx context.Context, scope remote.Scope) ([]remote.WorkflowRow, error) {
	if err := m.begin("ListWorkflows", scope.UserID); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	var out []remote.WorkflowRow
	for _, w := range m.workflows {
		if w.UserID == scope.UserID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateWorkflow(ctx context.Context, scope remote.Scope, title string) (*remote.WorkflowRow, error) {
	if err := m.begin("CreateWorkflow", uuid.Nil); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	row := remote.WorkflowRow{ID: uuid.New(), Title: title, UserID: scope.UserID, CreatedAt: time.Now()}
	m.workflows[row.ID] = row
	return &row, nil
}

func (m *Memory) UpdateWorkflow(ctx context.Context, scope remote.Scope, id uuid.UUID, title string) error {
	if err := m.begin("UpdateWorkflow", id); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if err := m.checkWorkflow(scope, id); err != nil {
		return err
	}
	w := m.workflows[id]
	w.Title = title
	m.workflows[id] = w
	return nil
}

func (m *Memory) DeleteWorkflow(ctx context.Context, scope remote.Scope, id uuid.UUID) error {
	if err := m.begin("DeleteWorkflow", id); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if err := m.checkWorkflow(scope, id); err != nil {
		return err
	}
	for cid, c := range m.columns {
		if c.WorkflowID == id {
			m.deleteColumn(cid)
		}
	}
	delete(m.workflows, id)
	return nil
}

func (m *Memory) ListColumns(ctx context.Context, scope remote.Scope, workflowID uuid.UUID) ([]remote.ColumnRow, error) {
	if err := m.begin("ListColumns", workflowID); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if err := m.checkWorkflow(scope, workflowID); err != nil {
		return nil, err
	}
	var out []remote.ColumnRow
	for _, c := range m.columns {
		if c.WorkflowID == workflowID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *Memory) CreateColumn(ctx context.Context, scope remote.Scope, col remote.NewColumn) (*remote.ColumnRow, error) {
	if err := m.begin("CreateColumn", col.WorkflowID); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if err := m.checkWorkflow(scope, col.WorkflowID); err != nil {
		return nil, err
	}
	row := remote.ColumnRow{
		ID:         uuid.New(),
		WorkflowID: col.WorkflowID,
		Title:      col.Title,
		Color:      col.Color,
		Order:      col.Order,
	}
	m.columns[row.ID] = row
	return &row, nil
}

func (m *Memory) UpdateColumn(ctx context.Context, scope remote.Scope, id uuid.UUID, upd remote.ColumnUpdate) error {
	if err := m.begin("UpdateColumn", id); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if err := m.checkColumn(scope, id); err != nil {
		return err
	}
	c := m.columns[id]
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	if upd.Color != nil {
		c.Color = *upd.Color
	}
	if upd.Order != nil {
		c.Order = *upd.Order
	}
	m.columns[id] = c
	return nil
}

func (m *Memory) DeleteColumn(ctx context.Context, scope remote.Scope, id uuid.UUID) error {
	if err := m.begin("DeleteColumn", id); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if err := m.checkColumn(scope, id); err != nil {
		return err
	}
	m.deleteColumn(id)
	return nil
}

func (m *Memory) deleteColumn(id uuid.UUID) {
	for tid, t := range m.tasks {
		if t.ColumnID == id {
			m.deleteTask(tid)
		}
	}
	delete(m.columns, id)
}

func (m *Memory) ListTasksWithSubtasks(ctx context.Context, scope remote.Scope, columnIDs []uuid.UUID) ([]remote.TaskRow, error) {
	if err := m.begin("ListTasksWithSubtasks", uuid.Nil); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	wanted := make(map[uuid.UUID]bool, len(columnIDs))
	for _, id := range columnIDs {
		if err := m.checkColumn(scope, id); err != nil {
			return nil, err
		}
		wanted[id] = true
	}

	var out []remote.TaskRow
	for _, t := range m.tasks {
		if !wanted[t.ColumnID] {
			continue
		}
		row := t
		row.Subtasks = nil
		for _, s := range m.subtasks {
			if s.TaskID == t.ID {
				row.Subtasks = append(row.Subtasks, s)
			}
		}
		sort.Slice(row.Subtasks, func(i, j int) bool { return row.Subtasks[i].Order < row.Subtasks[j].Order })
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (m *Memory) CreateTask(ctx context.Context, scope remote.Scope, task remote.NewTask) (*remote.TaskRow, error) {
	if err := m.begin("CreateTask", task.ColumnID); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if err := m.checkColumn(scope, task.ColumnID); err != nil {
		return nil, err
	}
	row := remote.TaskRow{
		ID:          uuid.New(),
		ColumnID:    task.ColumnID,
		Title:       task.Title,
		Description: task.Description,
		Order:       task.Order,
	}
	m.tasks[row.ID] = row
	return &row, nil
}

func (m *Memory) UpdateTask(ctx context.Context, scope remote.Scope, id uuid.UUID, upd remote.TaskUpdate) error {
	if err := m.begin("UpdateTask", id); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if err := m.checkTask(scope, id); err != nil {
		return err
	}
	if upd.ColumnID != nil {
		if err := m.checkColumn(scope, *upd.ColumnID); err != nil {
			return err
		}
	}
	t := m.tasks[id]
	if upd.Title != nil {
		t.Title = *upd.Title
	}
	if upd.Description != nil {
		t.Description = *upd.Description
	}
	if upd.ColumnID != nil {
		t.ColumnID = *upd.ColumnID
	}
	if upd.Order != nil {
		t.Order = *upd.Order
	}
	m.tasks[id] = t
	return nil
}

func (m *Memory) DeleteTask(ctx context.Context, scope remote.Scope, id uuid.UUID) error {
	if err := m.begin("DeleteTask", id); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if err := m.checkTask(scope, id); err != nil {
		return err
	}
	m.deleteTask(id)
	return nil
}

func (m *Memory) deleteTask(id uuid.UUID) {
	for sid, s := range m.subtasks {
		if s.TaskID == id {
			delete(m.subtasks, sid)
		}
	}
	delete(m.tasks, id)
}

func (m *Memory) CreateSubtask(ctx context.Context, scope remote.Scope, sub remote.NewSubtask) (*remote.SubtaskRow, error) {
	if err := m.begin("CreateSubtask", sub.TaskID); err != nil {
		return nil, err
	}
	defer m.mu.Unlock()

	if err := m.checkTask(scope, sub.TaskID); err != nil {
		return nil, err
	}
	row := remote.SubtaskRow{
		ID:          uuid.New(),
		TaskID:      sub.TaskID,
		Title:       sub.Title,
		Description: sub.Description,
		Completed:   sub.Completed,
		Order:       sub.Order,
	}
	m.subtasks[row.ID] = row
	return &row, nil
}

func (m *Memory) UpdateSubtask(ctx context.Context, scope remote.Scope, id uuid.UUID, upd remote.SubtaskUpdate) error {
	if err := m.begin("UpdateSubtask", id); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if err := m.checkSubtask(scope, id); err != nil {
		return err
	}
	s := m.subtasks[id]
	if upd.Title != nil {
		s.Title = *upd.Title
	}
	if upd.Description != nil {
		s.Description = *upd.Description
	}
	if upd.Completed != nil {
		s.Completed = *upd.Completed
	}
	if upd.Order != nil {
		s.Order = *upd.Order
	}
	m.subtasks[id] = s
	return nil
}

func (m *Memory) DeleteSubtask(ctx context.Context, scope remote.Scope, id uuid.UUID) error {
	if err := m.begin("DeleteSubtask", id); err != nil {
		return err
	}
	defer m.mu.Unlock()

	if err := m.checkSubtask(scope, id); err != nil {
		return err
	}
	delete(m.subtasks, id)
	return nil
}
