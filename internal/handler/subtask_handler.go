package handler

import (
	"net/http"
	"strings"

	"flowboard/internal/board"

	"github.com/gin-gonic/gin"
)

type SubtaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

type CreateSubtaskRequest struct {
	Title string `json:"title" binding:"required"`
}

type ReorderSubtasksRequest struct {
	SubtaskID board.ID `json:"subtask_id"`
	From      int      `json:"from" binding:"min=0"`
	To        int      `json:"to" binding:"min=0"`
}

// CreateSubtask godoc
// @Summary      Append a subtask
// @Tags         Subtasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body CreateSubtaskRequest true "Subtask"
// @Success      201 {object} board.Subtask
// @Router       /board/tasks/{id}/subtasks [post]
func (h *BoardHandler) CreateSubtask(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "id", "task")
	if !ok {
		return
	}
	var req CreateSubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	sub, err := store.AddSubtask(c.Request.Context(), taskID, req.Title)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sub)
}

// UpdateSubtask godoc
// @Summary      Edit or toggle a subtask
// @Tags         Subtasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        subtask_id path string true "Subtask ID"
// @Param        request body SubtaskRequest true "Changes"
// @Success      200 {object} board.Subtask
// @Router       /board/tasks/{id}/subtasks/{subtask_id} [patch]
func (h *BoardHandler) UpdateSubtask(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "id", "task")
	if !ok {
		return
	}
	id, ok := idParam(c, "subtask_id", "subtask")
	if !ok {
		return
	}
	var req SubtaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	sub, err := store.UpdateSubtask(c.Request.Context(), taskID, id, board.SubtaskPatch{
		Title:       req.Title,
		Description: req.Description,
		Completed:   req.Completed,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sub)
}

// DeleteSubtask godoc
// @Summary      Delete a subtask
// @Tags         Subtasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        subtask_id path string true "Subtask ID"
// @Success      200 {object} map[string]string
// @Router       /board/tasks/{id}/subtasks/{subtask_id} [delete]
func (h *BoardHandler) DeleteSubtask(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "id", "task")
	if !ok {
		return
	}
	id, ok := idParam(c, "subtask_id", "subtask")
	if !ok {
		return
	}
	if err := store.DeleteSubtask(c.Request.Context(), taskID, id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subtask deleted successfully"})
}

// ReorderSubtasks godoc
// @Summary      Reorder the subtasks of a task
// @Tags         Subtasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Task ID"
// @Param        request body ReorderSubtasksRequest true "Subtask and indexes"
// @Success      200 {object} board.SubtaskMove
// @Router       /board/tasks/{id}/subtasks/reorder [post]
func (h *BoardHandler) ReorderSubtasks(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "id", "task")
	if !ok {
		return
	}
	var req ReorderSubtasksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	move, err := store.ReorderSubtasks(c.Request.Context(), taskID, req.SubtaskID, req.From, req.To)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, move)
}
