// Package remote describes the persistence collaborator the board core writes
// through. Authorization is the collaborator's job: every call carries the
// acting user's Scope and the collaborator rejects writes outside it.
package remote

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Scope identifies the user a call is made on behalf of.
type Scope struct {
	UserID uuid.UUID
}

type WorkflowRow struct {
	ID        uuid.UUID
	Title     string
	UserID    uuid.UUID
	CreatedAt time.Time
}

type ColumnRow struct {
	ID         uuid.UUID
	WorkflowID uuid.UUID
	Title      string
	Color      string
	Order      int
}

type TaskRow struct {
	ID          uuid.UUID
	ColumnID    uuid.UUID
	Title       string
	Description string
	Order       int
	Subtasks    []SubtaskRow
}

type SubtaskRow struct {
	ID          uuid.UUID
	TaskID      uuid.UUID
	Title       string
	Description string
	Completed   bool
	Order       int
}

type NewColumn struct {
	WorkflowID uuid.UUID
	Title      string
	Color      string
	Order      int
}

// ColumnUpdate carries only the fields to change; nil means untouched.
type ColumnUpdate struct {
	Title *string
	Color *string
	Order *int
}

type NewTask struct {
	ColumnID    uuid.UUID
	Title       string
	Description string
	Order       int
}

// TaskUpdate carries only the fields to change. ColumnID and Order are
// always sent together when a task changes columns.
type TaskUpdate struct {
	Title       *string
	Description *string
	ColumnID    *uuid.UUID
	Order       *int
}

type NewSubtask struct {
	TaskID      uuid.UUID
	Title       string
	Description string
	Completed   bool
	Order       int
}

type SubtaskUpdate struct {
	Title       *string
	Description *string
	Completed   *bool
	Order       *int
}

// Collaborator is the remote store behind a board. Write methods return
// errors wrapping ErrRejected, ErrNotFound or ErrUnavailable.
type Collaborator interface {
	ListWorkflows(ctx context.Context, scope Scope) ([]WorkflowRow, error)
	CreateWorkflow(ctx context.Context, scope Scope, title string) (*WorkflowRow, error)
	UpdateWorkflow(ctx context.Context, scope Scope, id uuid.UUID, title string) error
	DeleteWorkflow(ctx context.Context, scope Scope, id uuid.UUID) error

	ListColumns(ctx context.Context, scope Scope, workflowID uuid.UUID) ([]ColumnRow, error)
	CreateColumn(ctx context.Context, scope Scope, col NewColumn) (*ColumnRow, error)
	UpdateColumn(ctx context.Context, scope Scope, id uuid.UUID, upd ColumnUpdate) error
	DeleteColumn(ctx context.Context, scope Scope, id uuid.UUID) error

	ListTasksWithSubtasks(ctx context.Context, scope Scope, columnIDs []uuid.UUID) ([]TaskRow, error)
	CreateTask(ctx context.Context, scope Scope, task NewTask) (*TaskRow, error)
	UpdateTask(ctx context.Context, scope Scope, id uuid.UUID, upd TaskUpdate) error
	DeleteTask(ctx context.Context, scope Scope, id uuid.UUID) error

	CreateSubtask(ctx context.Context, scope Scope, sub NewSubtask) (*SubtaskRow, error)
	UpdateSubtask(ctx context.Context, scope Scope, id uuid.UUID, upd SubtaskUpdate) error
	DeleteSubtask(ctx context.Context, scope Scope, id uuid.UUID) error
}
