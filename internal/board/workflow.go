package board

import (
	"context"
	"fmt"

	"flowboard/internal/remote"
)

const DefaultWorkflowTitle = "Current Project"

var defaultColumns = []struct {
	title string
	color Color
}{
	{"To Do", ColorBlue},
	{"In Progress", ColorGreen},
	{"Done", ColorPurple},
}

// EnsureWorkflows lists the user's workflows, newest first. A user without
// any gets the default workflow created on the spot.
func EnsureWorkflows(ctx context.Context, collab remote.Collaborator, scope remote.Scope) ([]remote.WorkflowRow, error) {
	rows, err := collab.ListWorkflows(ctx, scope)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	if len(rows) > 0 {
		return rows, nil
	}
	wf, err := CreateDefaultWorkflow(ctx, collab, scope)
	if err != nil {
		return nil, err
	}
	return []remote.WorkflowRow{*wf}, nil
}

// CreateDefaultWorkflow creates "Current Project" with its three starter columns.
func CreateDefaultWorkflow(ctx context.Context, collab remote.Collaborator, scope remote.Scope) (*remote.WorkflowRow, error) {
	wf, err := collab.CreateWorkflow(ctx, scope, DefaultWorkflowTitle)
	if err != nil {
		return nil, fmt.Errorf("create default workflow: %w", err)
	}
	for i, c := range defaultColumns {
		_, err := collab.CreateColumn(ctx, scope, remote.NewColumn{
			WorkflowID: wf.ID,
			Title:      c.title,
			Color:      string(c.color),
			Order:      i,
		})
		if err != nil {
			return nil, fmt.Errorf("create default column %q: %w", c.title, err)
		}
	}
	return wf, nil
}
