package handler

import (
	"net/http"

	"flowboard/internal/board"
	"flowboard/internal/gesture"

	"github.com/gin-gonic/gin"
)

// BoardHandler drives the open board of the calling user. Mutations answer
// with the optimistic result; the remote write runs after the response and
// its outcome is pushed over the websocket.
type BoardHandler struct {
	sessions *board.Sessions
}

func NewBoardHandler(sessions *board.Sessions) *BoardHandler {
	return &BoardHandler{sessions: sessions}
}

func (h *BoardHandler) store(c *gin.Context) (*board.Store, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	return h.sessions.For(userID), true
}

// Get godoc
// @Summary      Get the open board
// @Tags         Board
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} board.Board
// @Router       /board [get]
func (h *BoardHandler) Get(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, store.Snapshot())
}

// Gesture godoc
// @Summary      Apply a finished drag
// @Description  A drop outside any container or back at its origin changes nothing.
// @Tags         Board
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body gesture.Gesture true "Drag result"
// @Success      200 {object} gesture.Result
// @Router       /board/gestures [post]
func (h *BoardHandler) Gesture(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	var g gesture.Gesture
	if err := c.ShouldBindJSON(&g); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	result, err := gesture.New(store).Handle(c.Request.Context(), g)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Register mounts the board routes on rg.
func (h *BoardHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/board", h.Get)
	rg.POST("/board/gestures", h.Gesture)

	rg.POST("/board/columns", h.CreateColumn)
	rg.GET("/board/columns/:id", h.GetColumn)
	rg.PATCH("/board/columns/:id", h.UpdateColumn)
	rg.DELETE("/board/columns/:id", h.DeleteColumn)
	rg.POST("/board/columns/:id/move", h.MoveColumn)
	rg.POST("/board/columns/:id/tasks", h.CreateTask)

	rg.GET("/board/tasks/:id", h.GetTask)
	rg.PATCH("/board/tasks/:id", h.UpdateTask)
	rg.DELETE("/board/tasks/:id", h.DeleteTask)
	rg.POST("/board/tasks/:id/move", h.MoveTask)

	rg.POST("/board/tasks/:id/subtasks", h.CreateSubtask)
	rg.POST("/board/tasks/:id/subtasks/reorder", h.ReorderSubtasks)
	rg.PATCH("/board/tasks/:id/subtasks/:subtask_id", h.UpdateSubtask)
	rg.DELETE("/board/tasks/:id/subtasks/:subtask_id", h.DeleteSubtask)
}
