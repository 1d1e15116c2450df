// Package gesture turns a finished drag-and-drop into the matching board
// mutation.
package gesture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"flowboard/internal/board"
)

type Kind string

const (
	KindColumn  Kind = "column"
	KindTask    Kind = "task"
	KindSubtask Kind = "subtask"
)

// SubtaskContainerPrefix marks the drop container holding a task's subtasks.
const SubtaskContainerPrefix = "subtasks-"

var (
	ErrUnknownKind    = errors.New("unknown gesture kind")
	ErrCrossContainer = errors.New("subtasks cannot move between tasks")
)

// Location is a position inside a drop container. For tasks the container
// is a column id; for subtasks it is the owning task.
type Location struct {
	ContainerID string `json:"droppableId"`
	Index       int    `json:"index"`
}

// Gesture is a completed drag. Destination is nil when the item was dropped
// outside any container.
type Gesture struct {
	Kind        Kind      `json:"type" binding:"required"`
	EntityID    string    `json:"draggableId" binding:"required"`
	Source      Location  `json:"source"`
	Destination *Location `json:"destination"`
}

// Board is the subset of the board store a gesture can drive.
type Board interface {
	MoveColumn(ctx context.Context, id board.ID, from, to int) (board.ColumnMove, error)
	MoveTask(ctx context.Context, id, src, dst board.ID, from, to int) (board.TaskMove, error)
	ReorderSubtasks(ctx context.Context, taskID, id board.ID, from, to int) (board.SubtaskMove, error)
}

// Result reports what a gesture did. Applied is false for a no-op drop.
type Result struct {
	Applied bool               `json:"applied"`
	Column  *board.ColumnMove  `json:"column,omitempty"`
	Task    *board.TaskMove    `json:"task,omitempty"`
	Subtask *board.SubtaskMove `json:"subtask,omitempty"`
}

type Coordinator struct {
	board Board
}

func New(b Board) *Coordinator {
	return &Coordinator{board: b}
}

// Noop reports whether g leaves everything where it was.
func (g Gesture) Noop() bool {
	if g.Destination == nil {
		return true
	}
	return g.Destination.ContainerID == g.Source.ContainerID && g.Destination.Index == g.Source.Index
}

// Handle dispatches g. A no-op gesture never reaches the board.
func (c *Coordinator) Handle(ctx context.Context, g Gesture) (Result, error) {
	if g.Noop() {
		return Result{}, nil
	}
	dst := *g.Destination

	switch g.Kind {
	case KindColumn:
		id, err := board.ParseID(g.EntityID)
		if err != nil {
			return Result{}, err
		}
		res, err := c.board.MoveColumn(ctx, id, g.Source.Index, dst.Index)
		if err != nil {
			return Result{}, err
		}
		return Result{Applied: true, Column: &res}, nil

	case KindTask:
		id, err := board.ParseID(g.EntityID)
		if err != nil {
			return Result{}, err
		}
		src, err := board.ParseID(g.Source.ContainerID)
		if err != nil {
			return Result{}, fmt.Errorf("source column: %w", err)
		}
		to, err := board.ParseID(dst.ContainerID)
		if err != nil {
			return Result{}, fmt.Errorf("destination column: %w", err)
		}
		res, err := c.board.MoveTask(ctx, id, src, to, g.Source.Index, dst.Index)
		if err != nil {
			return Result{}, err
		}
		return Result{Applied: true, Task: &res}, nil

	case KindSubtask:
		if dst.ContainerID != g.Source.ContainerID {
			return Result{}, ErrCrossContainer
		}
		id, err := board.ParseID(g.EntityID)
		if err != nil {
			return Result{}, err
		}
		taskID, err := board.ParseID(strings.TrimPrefix(g.Source.ContainerID, SubtaskContainerPrefix))
		if err != nil {
			return Result{}, fmt.Errorf("subtask container: %w", err)
		}
		res, err := c.board.ReorderSubtasks(ctx, taskID, id, g.Source.Index, dst.Index)
		if err != nil {
			return Result{}, err
		}
		return Result{Applied: true, Subtask: &res}, nil
	}

	return Result{}, fmt.Errorf("%w: %q", ErrUnknownKind, g.Kind)
}
