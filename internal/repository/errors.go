package repository

import (
	"errors"
	"fmt"

	"flowboard/internal/remote"
)

// Not-found errors wrap remote.ErrNotFound so the board core can classify them.
var (
	ErrWorkflowNotFound = fmt.Errorf("workflow %w", remote.ErrNotFound)
	ErrColumnNotFound   = fmt.Errorf("column %w", remote.ErrNotFound)
	ErrTaskNotFound     = fmt.Errorf("task %w", remote.ErrNotFound)
	ErrSubtaskNotFound  = fmt.Errorf("subtask %w", remote.ErrNotFound)

	// ErrEmailTaken is returned when registering an email that already exists.
	ErrEmailTaken = errors.New("email already registered")
)
