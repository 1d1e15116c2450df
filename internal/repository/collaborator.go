package repository

import (
	"context"
	"errors"

	"flowboard/internal/model"
	"flowboard/internal/remote"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	workflowOwnerQuery = `SELECT w.user_id FROM workflows w WHERE w.id = ?`
	columnOwnerQuery   = `SELECT w.user_id FROM columns c
		JOIN workflows w ON w.id = c.workflow_id
		WHERE c.id = ?`
	taskOwnerQuery = `SELECT w.user_id FROM tasks t
		JOIN columns c ON c.id = t.column_id
		JOIN workflows w ON w.id = c.workflow_id
		WHERE t.id = ?`
	subtaskOwnerQuery = `SELECT w.user_id FROM subtasks s
		JOIN tasks t ON t.id = s.task_id
		JOIN columns c ON c.id = t.column_id
		JOIN workflows w ON w.id = c.workflow_id
		WHERE s.id = ?`
)

// Collaborator is the Postgres-backed remote.Collaborator. Every call checks
// that the addressed row belongs to a workflow of the calling user.
type Collaborator struct {
	db        *gorm.DB
	workflows *WorkflowRepository
	columns   *ColumnRepository
	tasks     *TaskRepository
	subtasks  *SubtaskRepository
}

var _ remote.Collaborator = (*Collaborator)(nil)

func NewCollaborator(db *gorm.DB) *Collaborator {
	return &Collaborator{
		db:        db,
		workflows: NewWorkflowRepository(db),
		columns:   NewColumnRepository(db),
		tasks:     NewTaskRepository(db),
		subtasks:  NewSubtaskRepository(db),
	}
}

// authorize runs an owner query for id. A missing row yields notFound, a row
// owned by someone else remote.ErrRejected.
func (c *Collaborator) authorize(ctx context.Context, scope remote.Scope, query string, id uuid.UUID, notFound error) error {
	var owner struct {
		UserID uuid.UUID
	}
	result := c.db.WithContext(ctx).Raw(query, id).Scan(&owner)
	if result.Error != nil {
		return remote.Unavailable(result.Error)
	}
	if result.RowsAffected == 0 {
		return notFound
	}
	if owner.UserID != scope.UserID {
		return remote.ErrRejected
	}
	return nil
}

// classify maps repository errors onto the remote error classes.
func classify(err error) error {
	if err == nil || errors.Is(err, remote.ErrNotFound) {
		return err
	}
	return remote.Unavailable(err)
}

func (c *Collaborator) ListWorkflows(ctx context.Context, scope remote.Scope) ([]remote.WorkflowRow, error) {
	workflows, err := c.workflows.GetOwned(ctx, scope.UserID)
	if err != nil {
		return nil, classify(err)
	}
	rows := make([]remote.WorkflowRow, len(workflows))
	for i, w := range workflows {
		rows[i] = workflowRow(w)
	}
	return rows, nil
}

func (c *Collaborator) CreateWorkflow(ctx context.Context, scope remote.Scope, title string) (*remote.WorkflowRow, error) {
	w := &model.Workflow{Title: title, UserID: scope.UserID}
	if err := c.workflows.Create(ctx, w); err != nil {
		return nil, classify(err)
	}
	row := workflowRow(*w)
	return &row, nil
}

func (c *Collaborator) UpdateWorkflow(ctx context.Context, scope remote.Scope, id uuid.UUID, title string) error {
	if err := c.authorize(ctx, scope, workflowOwnerQuery, id, ErrWorkflowNotFound); err != nil {
		return err
	}
	return classify(c.workflows.UpdateTitle(ctx, id, title))
}

func (c *Collaborator) DeleteWorkflow(ctx context.Context, scope remote.Scope, id uuid.UUID) error {
	if err := c.authorize(ctx, scope, workflowOwnerQuery, id, ErrWorkflowNotFound); err != nil {
		return err
	}
	return classify(c.workflows.Delete(ctx, id))
}

func (c *Collaborator) ListColumns(ctx context.Context, scope remote.Scope, workflowID uuid.UUID) ([]remote.ColumnRow, error) {
	if err := c.authorize(ctx, scope, workflowOwnerQuery, workflowID, ErrWorkflowNotFound); err != nil {
		return nil, err
	}
	columns, err := c.columns.GetByWorkflowID(ctx, workflowID)
	if err != nil {
		return nil, classify(err)
	}
	rows := make([]remote.ColumnRow, len(columns))
	for i, col := range columns {
		rows[i] = columnRow(col)
	}
	return rows, nil
}

func (c *Collaborator) CreateColumn(ctx context.Context, scope remote.Scope, col remote.NewColumn) (*remote.ColumnRow, error) {
	if err := c.authorize(ctx, scope, workflowOwnerQuery, col.WorkflowID, ErrWorkflowNotFound); err != nil {
		return nil, err
	}
	m := &model.Column{WorkflowID: col.WorkflowID, Title: col.Title, Color: col.Color, Order: col.Order}
	if err := c.columns.Create(ctx, m); err != nil {
		return nil, classify(err)
	}
	row := columnRow(*m)
	return &row, nil
}

func (c *Collaborator) UpdateColumn(ctx context.Context, scope remote.Scope, id uuid.UUID, upd remote.ColumnUpdate) error {
	if err := c.authorize(ctx, scope, columnOwnerQuery, id, ErrColumnNotFound); err != nil {
		return err
	}
	fields := map[string]interface{}{}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	if upd.Color != nil {
		fields["color"] = *upd.Color
	}
	if upd.Order != nil {
		fields["order"] = *upd.Order
	}
	return classify(c.columns.Update(ctx, id, fields))
}

func (c *Collaborator) DeleteColumn(ctx context.Context, scope remote.Scope, id uuid.UUID) error {
	if err := c.authorize(ctx, scope, columnOwnerQuery, id, ErrColumnNotFound); err != nil {
		return err
	}
	return classify(c.columns.Delete(ctx, id))
}

func (c *Collaborator) ListTasksWithSubtasks(ctx context.Context, scope remote.Scope, columnIDs []uuid.UUID) ([]remote.TaskRow, error) {
	for _, id := range columnIDs {
		if err := c.authorize(ctx, scope, columnOwnerQuery, id, ErrColumnNotFound); err != nil {
			return nil, err
		}
	}
	tasks, err := c.tasks.GetWithSubtasks(ctx, columnIDs)
	if err != nil {
		return nil, classify(err)
	}
	rows := make([]remote.TaskRow, len(tasks))
	for i, t := range tasks {
		rows[i] = taskRow(t)
	}
	return rows, nil
}

func (c *Collaborator) CreateTask(ctx context.Context, scope remote.Scope, task remote.NewTask) (*remote.TaskRow, error) {
	if err := c.authorize(ctx, scope, columnOwnerQuery, task.ColumnID, ErrColumnNotFound); err != nil {
		return nil, err
	}
	m := &model.Task{ColumnID: task.ColumnID, Title: task.Title, Description: task.Description, Order: task.Order}
	if err := c.tasks.Create(ctx, m); err != nil {
		return nil, classify(err)
	}
	row := taskRow(*m)
	return &row, nil
}

func (c *Collaborator) UpdateTask(ctx context.Context, scope remote.Scope, id uuid.UUID, upd remote.TaskUpdate) error {
	if err := c.authorize(ctx, scope, taskOwnerQuery, id, ErrTaskNotFound); err != nil {
		return err
	}
	fields := map[string]interface{}{}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	if upd.Description != nil {
		fields["description"] = *upd.Description
	}
	if upd.ColumnID != nil {
		if err := c.authorize(ctx, scope, columnOwnerQuery, *upd.ColumnID, ErrColumnNotFound); err != nil {
			return err
		}
		fields["column_id"] = *upd.ColumnID
	}
	if upd.Order != nil {
		fields["order"] = *upd.Order
	}
	return classify(c.tasks.Update(ctx, id, fields))
}

func (c *Collaborator) DeleteTask(ctx context.Context, scope remote.Scope, id uuid.UUID) error {
	if err := c.authorize(ctx, scope, taskOwnerQuery, id, ErrTaskNotFound); err != nil {
		return err
	}
	return classify(c.tasks.Delete(ctx, id))
}

func (c *Collaborator) CreateSubtask(ctx context.Context, scope remote.Scope, sub remote.NewSubtask) (*remote.SubtaskRow, error) {
	if err := c.authorize(ctx, scope, taskOwnerQuery, sub.TaskID, ErrTaskNotFound); err != nil {
		return nil, err
	}
	m := &model.Subtask{
		TaskID:      sub.TaskID,
		Title:       sub.Title,
		Description: sub.Description,
		Completed:   sub.Completed,
		Order:       sub.Order,
	}
	if err := c.subtasks.Create(ctx, m); err != nil {
		return nil, classify(err)
	}
	row := subtaskRow(*m)
	return &row, nil
}

func (c *Collaborator) UpdateSubtask(ctx context.Context, scope remote.Scope, id uuid.UUID, upd remote.SubtaskUpdate) error {
	if err := c.authorize(ctx, scope, subtaskOwnerQuery, id, ErrSubtaskNotFound); err != nil {
		return err
	}
	fields := map[string]interface{}{}
	if upd.Title != nil {
		fields["title"] = *upd.Title
	}
	if upd.Description != nil {
		fields["description"] = *upd.Description
	}
	if upd.Completed != nil {
		fields["completed"] = *upd.Completed
	}
	if upd.Order != nil {
		fields["order"] = *upd.Order
	}
	return classify(c.subtasks.Update(ctx, id, fields))
}

func (c *Collaborator) DeleteSubtask(ctx context.Context, scope remote.Scope, id uuid.UUID) error {
	if err := c.authorize(ctx, scope, subtaskOwnerQuery, id, ErrSubtaskNotFound); err != nil {
		return err
	}
	return classify(c.subtasks.Delete(ctx, id))
}

func workflowRow(w model.Workflow) remote.WorkflowRow {
	return remote.WorkflowRow{ID: w.ID, Title: w.Title, UserID: w.UserID, CreatedAt: w.CreatedAt}
}

func columnRow(c model.Column) remote.ColumnRow {
	return remote.ColumnRow{ID: c.ID, WorkflowID: c.WorkflowID, Title: c.Title, Color: c.Color, Order: c.Order}
}

func taskRow(t model.Task) remote.TaskRow {
	row := remote.TaskRow{
		ID:          t.ID,
		ColumnID:    t.ColumnID,
		Title:       t.Title,
		Description: t.Description,
		Order:       t.Order,
	}
	for _, s := range t.Subtasks {
		row.Subtasks = append(row.Subtasks, subtaskRow(s))
	}
	return row
}

func subtaskRow(s model.Subtask) remote.SubtaskRow {
	return remote.SubtaskRow{
		ID:          s.ID,
		TaskID:      s.TaskID,
		Title:       s.Title,
		Description: s.Description,
		Completed:   s.Completed,
		Order:       s.Order,
	}
}
