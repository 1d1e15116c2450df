package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"flowboard/internal/board"
	"flowboard/internal/gesture"
	"flowboard/internal/handler"
	"flowboard/internal/middleware"
	"flowboard/internal/remote"
	"flowboard/internal/remote/remotetest"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type boardEnv struct {
	router   *gin.Engine
	mem      *remotetest.Memory
	sessions *board.Sessions
	user     uuid.UUID
}

func setupBoard(t *testing.T) *boardEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	handler.RegisterValidators()

	mem := remotetest.NewMemory()
	sessions := board.NewSessions(mem)
	user := uuid.New()

	r := gin.New()
	api := r.Group("/", func(c *gin.Context) {
		c.Set(middleware.UserIDKey, user)
		c.Next()
	})
	handler.NewWorkflowHandler(sessions).Register(api)
	handler.NewBoardHandler(sessions).Register(api)

	return &boardEnv{router: r, mem: mem, sessions: sessions, user: user}
}

func (e *boardEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	e.router.ServeHTTP(resp, req)
	return resp
}

func (e *boardEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, e.sessions.Drain(ctx))
}

// openDefault lists workflows, which creates the default one, and opens it.
func (e *boardEnv) openDefault(t *testing.T) (handler.WorkflowResponse, board.Board) {
	t.Helper()
	resp := e.do(t, "GET", "/workflows", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var workflows []handler.WorkflowResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &workflows))
	require.Len(t, workflows, 1)

	resp = e.do(t, "POST", "/workflows/"+workflows[0].ID+"/open", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var b board.Board
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &b))
	return workflows[0], b
}

func (e *boardEnv) snapshot(t *testing.T) board.Board {
	t.Helper()
	resp := e.do(t, "GET", "/board", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var b board.Board
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &b))
	return b
}

func columnTitles(b board.Board) []string {
	var out []string
	for _, c := range b.Columns {
		out = append(out, c.Title)
	}
	return out
}

func TestWorkflows_DefaultCreatedAndOpened(t *testing.T) {
	env := setupBoard(t)

	wf, b := env.openDefault(t)

	assert.Equal(t, board.DefaultWorkflowTitle, wf.Title)
	assert.Equal(t, board.StatusReady, b.Status)
	assert.Equal(t, []string{"To Do", "In Progress", "Done"}, columnTitles(b))
	assert.Equal(t, board.ColorBlue, b.Columns[0].Color)
	assert.Equal(t, board.ColorGreen, b.Columns[1].Color)
	assert.Equal(t, board.ColorPurple, b.Columns[2].Color)

	resp := env.do(t, "GET", "/workflows", nil)
	var workflows []handler.WorkflowResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &workflows))
	require.Len(t, workflows, 1)
	assert.True(t, workflows[0].Active)
}

func TestGesture_ColumnMovePersists(t *testing.T) {
	env := setupBoard(t)
	wf, b := env.openDefault(t)

	resp := env.do(t, "POST", "/board/gestures", gesture.Gesture{
		Kind:        gesture.KindColumn,
		EntityID:    b.Columns[0].ID.String(),
		Source:      gesture.Location{ContainerID: "board", Index: 0},
		Destination: &gesture.Location{ContainerID: "board", Index: 2},
	})
	require.Equal(t, http.StatusOK, resp.Code)
	var result gesture.Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.True(t, result.Applied)
	require.NotNil(t, result.Column)

	env.drain(t)
	resp = env.do(t, "POST", "/workflows/"+wf.ID+"/open", nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var reloaded board.Board
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &reloaded))
	assert.Equal(t, []string{"In Progress", "Done", "To Do"}, columnTitles(reloaded))
}

func TestGesture_DropOutsideIsNoop(t *testing.T) {
	env := setupBoard(t)
	_, b := env.openDefault(t)
	env.mem.ResetCalls()

	resp := env.do(t, "POST", "/board/gestures", gesture.Gesture{
		Kind:     gesture.KindColumn,
		EntityID: b.Columns[0].ID.String(),
		Source:   gesture.Location{ContainerID: "board", Index: 0},
	})
	require.Equal(t, http.StatusOK, resp.Code)
	var result gesture.Result
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &result))
	assert.False(t, result.Applied)

	env.drain(t)
	assert.Empty(t, env.mem.Calls())
}

func TestGesture_BadIndexIsBadRequest(t *testing.T) {
	env := setupBoard(t)
	_, b := env.openDefault(t)

	resp := env.do(t, "POST", "/board/gestures", gesture.Gesture{
		Kind:        gesture.KindColumn,
		EntityID:    b.Columns[0].ID.String(),
		Source:      gesture.Location{ContainerID: "board", Index: 0},
		Destination: &gesture.Location{ContainerID: "board", Index: 7},
	})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateColumn_ColorMustBeInPalette(t *testing.T) {
	env := setupBoard(t)
	_, b := env.openDefault(t)
	path := "/board/columns/" + b.Columns[0].ID.String()

	resp := env.do(t, "PATCH", path, map[string]string{"color": "red"})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.do(t, "PATCH", path, map[string]string{"color": "pink"})
	require.Equal(t, http.StatusOK, resp.Code)
	var col board.Column
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &col))
	assert.Equal(t, board.ColorPink, col.Color)

	env.drain(t)
	id, _ := b.Columns[0].ID.UUID()
	row, ok := env.mem.Column(id)
	require.True(t, ok)
	assert.Equal(t, "pink", row.Color)
}

func TestTaskLifecycle(t *testing.T) {
	env := setupBoard(t)
	_, b := env.openDefault(t)

	resp := env.do(t, "POST", "/board/columns/"+b.Columns[0].ID.String()+"/tasks", nil)
	require.Equal(t, http.StatusCreated, resp.Code)
	var created board.Task
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &created))
	assert.True(t, created.ID.IsPending())
	assert.Equal(t, board.DefaultTaskTitle, created.Title)

	env.drain(t)
	task := env.snapshot(t).Columns[0].Tasks[0]
	require.False(t, task.ID.IsPending())

	resp = env.do(t, "PATCH", "/board/tasks/"+task.ID.String(), map[string]string{"title": "Write tests"})
	require.Equal(t, http.StatusOK, resp.Code)

	resp = env.do(t, "GET", "/board/tasks/"+task.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var fetched board.Task
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &fetched))
	assert.Equal(t, "Write tests", fetched.Title)
	assert.Equal(t, b.Columns[0].ID, fetched.ColumnID)

	resp = env.do(t, "POST", "/board/tasks/"+task.ID.String()+"/subtasks", map[string]string{"title": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	resp = env.do(t, "POST", "/board/tasks/"+task.ID.String()+"/subtasks", map[string]string{"title": "first"})
	assert.Equal(t, http.StatusCreated, resp.Code)

	env.drain(t)
	id, _ := task.ID.UUID()
	row, ok := env.mem.Task(id)
	require.True(t, ok)
	assert.Equal(t, "Write tests", row.Title)

	resp = env.do(t, "DELETE", "/board/tasks/"+task.ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	env.drain(t)
	_, ok = env.mem.Task(id)
	assert.False(t, ok)

	resp = env.do(t, "GET", "/board/tasks/"+task.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.Code)
	resp = env.do(t, "GET", "/board/columns/"+b.Columns[0].ID.String(), nil)
	require.Equal(t, http.StatusOK, resp.Code)
	var col board.Column
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &col))
	assert.Empty(t, col.Tasks)
}

func TestReorderSubtasks(t *testing.T) {
	env := setupBoard(t)
	_, b := env.openDefault(t)

	resp := env.do(t, "POST", "/board/columns/"+b.Columns[0].ID.String()+"/tasks", nil)
	require.Equal(t, http.StatusCreated, resp.Code)
	env.drain(t)
	task := env.snapshot(t).Columns[0].Tasks[0]
	path := "/board/tasks/" + task.ID.String() + "/subtasks"
	for _, title := range []string{"first", "second"} {
		resp = env.do(t, "POST", path, map[string]string{"title": title})
		require.Equal(t, http.StatusCreated, resp.Code)
	}
	env.drain(t)
	subs := env.snapshot(t).Columns[0].Tasks[0].Subtasks
	require.Len(t, subs, 2)

	resp = env.do(t, "POST", path+"/reorder", map[string]interface{}{"subtask_id": subs[1].ID.String(), "from": 0, "to": 1})
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = env.do(t, "POST", path+"/reorder", map[string]interface{}{"subtask_id": subs[1].ID.String(), "from": 1, "to": 0})
	require.Equal(t, http.StatusOK, resp.Code)
	var move board.SubtaskMove
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &move))
	assert.Equal(t, []board.ID{subs[1].ID, subs[0].ID}, move.Order)

	env.drain(t)
	id, _ := subs[1].ID.UUID()
	row, ok := env.mem.Subtask(id)
	require.True(t, ok)
	assert.Equal(t, 0, row.Order)
}

func TestBoard_NotLoadedIsConflict(t *testing.T) {
	env := setupBoard(t)

	resp := env.do(t, "POST", "/board/columns", nil)

	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestOpen_ForeignWorkflowIsForbidden(t *testing.T) {
	env := setupBoard(t)
	foreign := env.mem.SeedWorkflow(uuid.New(), "Not yours")

	resp := env.do(t, "POST", "/workflows/"+foreign.String()+"/open", nil)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.Equal(t, board.StatusFailed, env.snapshot(t).Status)
}

func TestDeleteWorkflow_ResetsOpenBoard(t *testing.T) {
	env := setupBoard(t)
	wf, _ := env.openDefault(t)

	resp := env.do(t, "DELETE", "/workflows/"+wf.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	b := env.snapshot(t)
	assert.Equal(t, board.StatusEmpty, b.Status)
	assert.Empty(t, b.Columns)
}

func TestDeleteWorkflow_ListFailureIsLogged(t *testing.T) {
	env := setupBoard(t)
	wf, _ := env.openDefault(t)
	var logs bytes.Buffer
	log.SetOutput(&logs)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	env.mem.FailWhen(func(method string, _ uuid.UUID) error {
		if method == "ListWorkflows" {
			return remote.ErrUnavailable
		}
		return nil
	})

	resp := env.do(t, "DELETE", "/workflows/"+wf.ID, nil)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, board.StatusEmpty, env.snapshot(t).Status)
	assert.Contains(t, logs.String(), "Failed to list workflows after deleting "+wf.ID)
}

func TestDeleteWorkflow_OpensRemaining(t *testing.T) {
	env := setupBoard(t)
	first, _ := env.openDefault(t)

	resp := env.do(t, "POST", "/workflows", handler.WorkflowRequest{Title: "Side project"})
	require.Equal(t, http.StatusCreated, resp.Code)
	var second handler.WorkflowResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &second))
	assert.True(t, second.Active)

	resp = env.do(t, "DELETE", "/workflows/"+second.ID, nil)
	require.Equal(t, http.StatusOK, resp.Code)

	b := env.snapshot(t)
	assert.Equal(t, first.ID, b.WorkflowID.String())
	assert.Len(t, b.Columns, 3)
}

func TestBoard_RequiresUser(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/board", handler.NewBoardHandler(board.NewSessions(remotetest.NewMemory())).Get)

	req, _ := http.NewRequest("GET", "/board", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
