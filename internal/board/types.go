package board

import (
	"github.com/google/uuid"
)

// Color is a column color tag from a fixed palette.
type Color string

const (
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorPurple Color = "purple"
	ColorPink   Color = "pink"
	ColorYellow Color = "yellow"
)

// Palette lists every valid column color.
var Palette = []Color{ColorBlue, ColorGreen, ColorPurple, ColorPink, ColorYellow}

func (c Color) Valid() bool {
	for _, p := range Palette {
		if c == p {
			return true
		}
	}
	return false
}

const (
	DefaultColumnTitle = "New Column"
	DefaultTaskTitle   = "New Task"
)

// Status is the load state of a store.
type Status string

const (
	StatusEmpty   Status = "empty"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusFailed  Status = "failed"
)

// Board is a read-only rendering of the store at one instant.
type Board struct {
	WorkflowID uuid.UUID `json:"workflow_id"`
	Generation uint64    `json:"generation"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	Columns    []Column  `json:"columns"`
}

type Column struct {
	ID      ID     `json:"id"`
	Title   string `json:"title"`
	Color   Color  `json:"color"`
	Order   int    `json:"order"`
	Pending bool   `json:"pending"`
	Tasks   []Task `json:"tasks"`
}

type Task struct {
	ID          ID        `json:"id"`
	ColumnID    ID        `json:"column_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Order       int       `json:"order"`
	Pending     bool      `json:"pending"`
	Subtasks    []Subtask `json:"subtasks"`
}

type Subtask struct {
	ID          ID     `json:"id"`
	TaskID      ID     `json:"task_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
	Order       int    `json:"order"`
	Pending     bool   `json:"pending"`
}

// ColumnPatch changes a column's attributes; nil fields are left alone.
type ColumnPatch struct {
	Title *string
	Color *Color
}

type TaskPatch struct {
	Title       *string
	Description *string
}

type SubtaskPatch struct {
	Title       *string
	Description *string
	Completed   *bool
}

// ColumnMove is the outcome of MoveColumn: the new sequence and the order of
// every column whose position changed.
type ColumnMove struct {
	Order   []ID       `json:"order"`
	Changed map[ID]int `json:"changed"`
}

// TaskMove is the outcome of MoveTask. For a same-column move only Changed
// is set. For a cross-column move Source and Destination hold the compacted
// orders of both columns, Destination without the moved task.
type TaskMove struct {
	TaskID      ID         `json:"task_id"`
	ColumnID    ID         `json:"column_id"`
	Order       int        `json:"order"`
	CrossColumn bool       `json:"cross_column"`
	Changed     map[ID]int `json:"changed,omitempty"`
	Source      map[ID]int `json:"source,omitempty"`
	Destination map[ID]int `json:"destination,omitempty"`
}

type SubtaskMove struct {
	TaskID  ID         `json:"task_id"`
	Order   []ID       `json:"order"`
	Changed map[ID]int `json:"changed"`
}

// EventKind classifies notifications published by a store.
type EventKind string

const (
	EventChanged EventKind = "board.changed"
	EventError   EventKind = "board.error"
)

// Event is published after every visible state change and every failed
// write. Err is set for EventError.
type Event struct {
	Kind       EventKind
	UserID     uuid.UUID
	WorkflowID uuid.UUID
	Generation uint64
	Err        error
}

// Listener receives store events. It is called without the store lock held.
type Listener func(Event)
