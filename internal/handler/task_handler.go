package handler

import (
	"net/http"

	"flowboard/internal/board"

	"github.com/gin-gonic/gin"
)

type TaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

type MoveTaskRequest struct {
	SourceColumnID      board.ID `json:"source_column_id"`
	DestinationColumnID board.ID `json:"destination_column_id"`
	From                int      `json:"from" binding:"min=0"`
	To                  int      `json:"to" binding:"min=0"`
}

// CreateTask godoc
// @Summary      Append a task to a column
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Column ID"
// @Success      201 {object} board.Task
// @Router       /board/columns/{id}/tasks [post]
func (h *BoardHandler) CreateTask(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	columnID, ok := idParam(c, "id", "column")
	if !ok {
		return
	}
	task, err := store.AddTask(c.Request.Context(), columnID)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// GetTask godoc
// @Summary      Get a task with its subtasks
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} board.Task
// @Router       /board/tasks/{id} [get]
func (h *BoardHandler) GetTask(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "task")
	if !ok {
		return
	}
	task, found := store.Task(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTask godoc
// @Summary      Edit a task
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body TaskRequest true "Changes"
// @Success      200 {object} board.Task
// @Router       /board/tasks/{id} [patch]
func (h *BoardHandler) UpdateTask(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "task")
	if !ok {
		return
	}
	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	task, err := store.UpdateTask(c.Request.Context(), id, board.TaskPatch{Title: req.Title, Description: req.Description})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary      Delete a task with its subtasks
// @Tags         Tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Success      200 {object} map[string]string
// @Router       /board/tasks/{id} [delete]
func (h *BoardHandler) DeleteTask(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "task")
	if !ok {
		return
	}
	if err := store.DeleteTask(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Task deleted successfully"})
}

// MoveTask godoc
// @Summary      Move a task within or across columns
// @Tags         Tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body MoveTaskRequest true "Source and destination"
// @Success      200 {object} board.TaskMove
// @Router       /board/tasks/{id}/move [post]
func (h *BoardHandler) MoveTask(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "task")
	if !ok {
		return
	}
	var req MoveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	move, err := store.MoveTask(c.Request.Context(), id, req.SourceColumnID, req.DestinationColumnID, req.From, req.To)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, move)
}
