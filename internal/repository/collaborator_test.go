package repository_test

import (
	"context"
	"testing"
	"time"

	"flowboard/internal/remote"
	"flowboard/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollaborator_UpdateColumn_Order(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	collab := repository.NewCollaborator(gormDB)
	user, columnID := uuid.New(), uuid.New()
	order := 2

	mock.ExpectQuery(`SELECT w.user_id FROM columns c`).
		WithArgs(columnID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(user.String()))
	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "columns" SET "order"`).
		WithArgs(order, columnID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	// Act
	err := collab.UpdateColumn(context.Background(), remote.Scope{UserID: user}, columnID, remote.ColumnUpdate{Order: &order})

	// Assert
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollaborator_UpdateColumn_OtherOwner(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	collab := repository.NewCollaborator(gormDB)
	columnID := uuid.New()
	title := "mine now"

	mock.ExpectQuery(`SELECT w.user_id FROM columns c`).
		WithArgs(columnID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(uuid.NewString()))

	// Act
	err := collab.UpdateColumn(context.Background(), remote.Scope{UserID: uuid.New()}, columnID, remote.ColumnUpdate{Title: &title})

	// Assert
	assert.ErrorIs(t, err, remote.ErrRejected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollaborator_DeleteTask_NotFound(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	collab := repository.NewCollaborator(gormDB)
	taskID := uuid.New()

	mock.ExpectQuery(`SELECT w.user_id FROM tasks t`).
		WithArgs(taskID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	// Act
	err := collab.DeleteTask(context.Background(), remote.Scope{UserID: uuid.New()}, taskID)

	// Assert
	assert.ErrorIs(t, err, remote.ErrNotFound)
	assert.ErrorIs(t, err, repository.ErrTaskNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollaborator_DatabaseFailureIsUnavailable(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	collab := repository.NewCollaborator(gormDB)
	subtaskID := uuid.New()
	done := true

	mock.ExpectQuery(`SELECT w.user_id FROM subtasks s`).
		WithArgs(subtaskID).
		WillReturnError(assert.AnError)

	// Act
	err := collab.UpdateSubtask(context.Background(), remote.Scope{UserID: uuid.New()}, subtaskID, remote.SubtaskUpdate{Completed: &done})

	// Assert
	assert.ErrorIs(t, err, remote.ErrUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollaborator_ListWorkflows(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	collab := repository.NewCollaborator(gormDB)
	user, workflowID := uuid.New(), uuid.New()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT \* FROM "workflows" WHERE user_id = .* ORDER BY created_at DESC`).
		WithArgs(user).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "user_id", "created_at"}).
			AddRow(workflowID.String(), "Current Project", user.String(), created))

	// Act
	rows, err := collab.ListWorkflows(context.Background(), remote.Scope{UserID: user})

	// Assert
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, workflowID, rows[0].ID)
	assert.Equal(t, "Current Project", rows[0].Title)
	assert.Equal(t, user, rows[0].UserID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCollaborator_ListColumns_RejectsForeignWorkflow(t *testing.T) {
	// Arrange
	gormDB, mock := setupMockDB(t)
	collab := repository.NewCollaborator(gormDB)
	workflowID := uuid.New()

	mock.ExpectQuery(`SELECT w.user_id FROM workflows w WHERE w.id = `).
		WithArgs(workflowID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(uuid.NewString()))

	// Act
	rows, err := collab.ListColumns(context.Background(), remote.Scope{UserID: uuid.New()}, workflowID)

	// Assert
	assert.True(t, remote.IsRejected(err))
	assert.Nil(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
