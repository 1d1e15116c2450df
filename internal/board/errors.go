package board

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrNotReady         = errors.New("board is not loaded")
	ErrColumnNotFound   = errors.New("column not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrSubtaskNotFound  = errors.New("subtask not found")
	ErrInvalidColor     = errors.New("invalid column color")
	ErrPositionMismatch = errors.New("entity is not at the given source index")
	ErrPendingID        = errors.New("entity has no durable id yet")
	ErrEmptyTitle       = errors.New("title must not be empty")
	ErrSuperseded       = errors.New("load superseded by a newer workflow switch")
	ErrInvalidID        = errors.New("invalid id")
)

// LoadError is returned when a workflow's board could not be fetched. The
// store is left empty rather than partially loaded.
type LoadError struct {
	WorkflowID uuid.UUID
	Err        error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load workflow %s: %v", e.WorkflowID, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// WriteError reports a rejected or failed write after its optimistic apply
// was rolled back.
type WriteError struct {
	Op     string
	Entity ID
	Err    error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// PartialMoveError reports that the primary write of a multi-row change
// succeeded but a later compaction write failed. The primary write stands;
// stale sibling orders are recomputed on the next load.
type PartialMoveError struct {
	Op     string
	Entity ID
	Step   string
	Err    error
}

func (e *PartialMoveError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Entity, e.Step, e.Err)
}

func (e *PartialMoveError) Unwrap() error { return e.Err }
