package gesture_test

import (
	"context"
	"testing"

	"flowboard/internal/board"
	"flowboard/internal/gesture"
	"flowboard/internal/remote"
	"flowboard/internal/remote/remotetest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockBoard struct {
	mock.Mock
}

func (m *MockBoard) MoveColumn(ctx context.Context, id board.ID, from, to int) (board.ColumnMove, error) {
	args := m.Called(ctx, id, from, to)
	return args.Get(0).(board.ColumnMove), args.Error(1)
}

func (m *MockBoard) MoveTask(ctx context.Context, id, src, dst board.ID, from, to int) (board.TaskMove, error) {
	args := m.Called(ctx, id, src, dst, from, to)
	return args.Get(0).(board.TaskMove), args.Error(1)
}

func (m *MockBoard) ReorderSubtasks(ctx context.Context, taskID, id board.ID, from, to int) (board.SubtaskMove, error) {
	args := m.Called(ctx, taskID, id, from, to)
	return args.Get(0).(board.SubtaskMove), args.Error(1)
}

func TestHandle_Noop(t *testing.T) {
	col := uuid.NewString()
	tests := []struct {
		name string
		g    gesture.Gesture
	}{
		{
			name: "dropped outside",
			g: gesture.Gesture{
				Kind:     gesture.KindTask,
				EntityID: uuid.NewString(),
				Source:   gesture.Location{ContainerID: col, Index: 1},
			},
		},
		{
			name: "same place",
			g: gesture.Gesture{
				Kind:        gesture.KindTask,
				EntityID:    uuid.NewString(),
				Source:      gesture.Location{ContainerID: col, Index: 1},
				Destination: &gesture.Location{ContainerID: col, Index: 1},
			},
		},
		{
			name: "unknown kind at same place",
			g: gesture.Gesture{
				Kind:        "lane",
				Source:      gesture.Location{ContainerID: "x", Index: 0},
				Destination: &gesture.Location{ContainerID: "x", Index: 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := new(MockBoard)
			res, err := gesture.New(b).Handle(context.Background(), tt.g)

			require.NoError(t, err)
			assert.False(t, res.Applied)
			b.AssertNotCalled(t, "MoveColumn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			b.AssertNotCalled(t, "MoveTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
			b.AssertNotCalled(t, "ReorderSubtasks", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestHandle_Column(t *testing.T) {
	b := new(MockBoard)
	id := board.DurableID(uuid.New())
	want := board.ColumnMove{Order: []board.ID{id}}
	b.On("MoveColumn", mock.Anything, id, 0, 2).Return(want, nil)

	res, err := gesture.New(b).Handle(context.Background(), gesture.Gesture{
		Kind:        gesture.KindColumn,
		EntityID:    id.String(),
		Source:      gesture.Location{ContainerID: "all-columns", Index: 0},
		Destination: &gesture.Location{ContainerID: "all-columns", Index: 2},
	})

	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, &want, res.Column)
	b.AssertExpectations(t)
}

func TestHandle_Task(t *testing.T) {
	id, src, dst := board.DurableID(uuid.New()), board.DurableID(uuid.New()), board.DurableID(uuid.New())

	t.Run("same column", func(t *testing.T) {
		b := new(MockBoard)
		b.On("MoveTask", mock.Anything, id, src, src, 0, 3).Return(board.TaskMove{TaskID: id}, nil)

		res, err := gesture.New(b).Handle(context.Background(), gesture.Gesture{
			Kind:        gesture.KindTask,
			EntityID:    id.String(),
			Source:      gesture.Location{ContainerID: src.String(), Index: 0},
			Destination: &gesture.Location{ContainerID: src.String(), Index: 3},
		})

		require.NoError(t, err)
		assert.True(t, res.Applied)
		b.AssertExpectations(t)
	})

	t.Run("across columns", func(t *testing.T) {
		b := new(MockBoard)
		b.On("MoveTask", mock.Anything, id, src, dst, 2, 0).Return(board.TaskMove{TaskID: id, CrossColumn: true}, nil)

		res, err := gesture.New(b).Handle(context.Background(), gesture.Gesture{
			Kind:        gesture.KindTask,
			EntityID:    id.String(),
			Source:      gesture.Location{ContainerID: src.String(), Index: 2},
			Destination: &gesture.Location{ContainerID: dst.String(), Index: 0},
		})

		require.NoError(t, err)
		assert.True(t, res.Task.CrossColumn)
		b.AssertExpectations(t)
	})

	t.Run("bad container", func(t *testing.T) {
		b := new(MockBoard)
		_, err := gesture.New(b).Handle(context.Background(), gesture.Gesture{
			Kind:        gesture.KindTask,
			EntityID:    id.String(),
			Source:      gesture.Location{ContainerID: "nope", Index: 2},
			Destination: &gesture.Location{ContainerID: dst.String(), Index: 0},
		})

		assert.Error(t, err)
		b.AssertNotCalled(t, "MoveTask", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestHandle_Subtask(t *testing.T) {
	taskID, subID := board.DurableID(uuid.New()), board.DurableID(uuid.New())
	container := gesture.SubtaskContainerPrefix + taskID.String()

	b := new(MockBoard)
	b.On("ReorderSubtasks", mock.Anything, taskID, subID, 1, 0).Return(board.SubtaskMove{TaskID: taskID}, nil)

	res, err := gesture.New(b).Handle(context.Background(), gesture.Gesture{
		Kind:        gesture.KindSubtask,
		EntityID:    subID.String(),
		Source:      gesture.Location{ContainerID: container, Index: 1},
		Destination: &gesture.Location{ContainerID: container, Index: 0},
	})

	require.NoError(t, err)
	assert.Equal(t, taskID, res.Subtask.TaskID)
	b.AssertExpectations(t)

	_, err = gesture.New(b).Handle(context.Background(), gesture.Gesture{
		Kind:        gesture.KindSubtask,
		EntityID:    uuid.NewString(),
		Source:      gesture.Location{ContainerID: container, Index: 1},
		Destination: &gesture.Location{ContainerID: gesture.SubtaskContainerPrefix + uuid.NewString(), Index: 0},
	})
	assert.ErrorIs(t, err, gesture.ErrCrossContainer)
}

func TestHandle_UnknownKind(t *testing.T) {
	_, err := gesture.New(new(MockBoard)).Handle(context.Background(), gesture.Gesture{
		Kind:        "lane",
		Source:      gesture.Location{Index: 0},
		Destination: &gesture.Location{Index: 1},
	})

	assert.ErrorIs(t, err, gesture.ErrUnknownKind)
}

func TestHandle_SubtaskNotAtSource(t *testing.T) {
	mem := remotetest.NewMemory()
	user := uuid.New()
	wf := mem.SeedWorkflow(user, "Board")
	col := mem.SeedColumn(wf, "To Do", "blue")
	task := mem.SeedTask(col, "Task")
	mem.SeedSubtask(task, "first")
	second := mem.SeedSubtask(task, "second")
	store := board.NewStore(mem, remote.Scope{UserID: user})
	require.NoError(t, store.LoadWorkflow(context.Background(), wf))
	container := gesture.SubtaskContainerPrefix + task.String()

	_, err := gesture.New(store).Handle(context.Background(), gesture.Gesture{
		Kind:        gesture.KindSubtask,
		EntityID:    second.String(),
		Source:      gesture.Location{ContainerID: container, Index: 0},
		Destination: &gesture.Location{ContainerID: container, Index: 1},
	})

	assert.ErrorIs(t, err, board.ErrPositionMismatch)
	got, ok := store.Task(board.DurableID(task))
	require.True(t, ok)
	assert.Equal(t, "first", got.Subtasks[0].Title)
}

// A drop back onto the starting slot leaves the collaborator untouched.
func TestHandle_SamePlaceWritesNothing(t *testing.T) {
	mem := remotetest.NewMemory()
	user := uuid.New()
	wf := mem.SeedWorkflow(user, "Board")
	col := mem.SeedColumn(wf, "To Do", "blue")
	task := mem.SeedTask(col, "Task")
	store := board.NewStore(mem, remote.Scope{UserID: user})
	require.NoError(t, store.LoadWorkflow(context.Background(), wf))
	mem.ResetCalls()

	res, err := gesture.New(store).Handle(context.Background(), gesture.Gesture{
		Kind:        gesture.KindTask,
		EntityID:    task.String(),
		Source:      gesture.Location{ContainerID: col.String(), Index: 0},
		Destination: &gesture.Location{ContainerID: col.String(), Index: 0},
	})

	require.NoError(t, err)
	assert.False(t, res.Applied)
	require.NoError(t, store.Drain(context.Background()))
	assert.Empty(t, mem.Calls())
}
