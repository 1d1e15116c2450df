package handler

import (
	"net/http"

	"flowboard/internal/board"

	"github.com/gin-gonic/gin"
)

type UpdateColumnRequest struct {
	Title *string `json:"title"`
	Color *string `json:"color" binding:"omitempty,palette"`
}

type MoveRequest struct {
	From int `json:"from" binding:"min=0"`
	To   int `json:"to" binding:"min=0"`
}

// CreateColumn godoc
// @Summary      Append a column
// @Tags         Columns
// @Produce      json
// @Security     BearerAuth
// @Success      201 {object} board.Column
// @Router       /board/columns [post]
func (h *BoardHandler) CreateColumn(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	col, err := store.AddColumn(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, col)
}

// GetColumn godoc
// @Summary      Get a column with its tasks
// @Tags         Columns
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Column ID"
// @Success      200 {object} board.Column
// @Router       /board/columns/{id} [get]
func (h *BoardHandler) GetColumn(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "column")
	if !ok {
		return
	}
	col, found := store.Column(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Column not found"})
		return
	}
	c.JSON(http.StatusOK, col)
}

// UpdateColumn godoc
// @Summary      Rename or recolor a column
// @Tags         Columns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Column ID"
// @Param        request body UpdateColumnRequest true "Changes"
// @Success      200 {object} board.Column
// @Router       /board/columns/{id} [patch]
func (h *BoardHandler) UpdateColumn(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "column")
	if !ok {
		return
	}

	var req UpdateColumnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	patch := board.ColumnPatch{Title: req.Title}
	if req.Color != nil {
		color := board.Color(*req.Color)
		patch.Color = &color
	}
	col, err := store.UpdateColumn(c.Request.Context(), id, patch)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, col)
}

// DeleteColumn godoc
// @Summary      Delete a column with its tasks
// @Tags         Columns
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Column ID"
// @Success      200 {object} map[string]string
// @Router       /board/columns/{id} [delete]
func (h *BoardHandler) DeleteColumn(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "column")
	if !ok {
		return
	}
	if err := store.DeleteColumn(c.Request.Context(), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Column deleted successfully"})
}

// MoveColumn godoc
// @Summary      Move a column
// @Tags         Columns
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Column ID"
// @Param        request body MoveRequest true "Indexes"
// @Success      200 {object} board.ColumnMove
// @Router       /board/columns/{id}/move [post]
func (h *BoardHandler) MoveColumn(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id", "column")
	if !ok {
		return
	}
	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	move, err := store.MoveColumn(c.Request.Context(), id, req.From, req.To)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, move)
}
