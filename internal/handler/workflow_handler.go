package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"flowboard/internal/board"
	"flowboard/internal/remote"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type WorkflowHandler struct {
	sessions *board.Sessions
}

func NewWorkflowHandler(sessions *board.Sessions) *WorkflowHandler {
	return &WorkflowHandler{sessions: sessions}
}

type WorkflowRequest struct {
	Title string `json:"title" binding:"required"`
}

type WorkflowResponse struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	UserID    string `json:"user_id"`
	CreatedAt string `json:"created_at"`
	Active    bool   `json:"active"`
}

func workflowResponse(w remote.WorkflowRow, active uuid.UUID) WorkflowResponse {
	return WorkflowResponse{
		ID:        w.ID.String(),
		Title:     w.Title,
		UserID:    w.UserID.String(),
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
		Active:    w.ID == active,
	}
}

// GetAll godoc
// @Summary      List workflows
// @Description  Lists the user's workflows, creating the default one on first use.
// @Tags         Workflows
// @Produce      json
// @Security     BearerAuth
// @Success      200 {array} WorkflowResponse
// @Router       /workflows [get]
func (h *WorkflowHandler) GetAll(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	store := h.sessions.For(userID)

	workflows, err := board.EnsureWorkflows(c.Request.Context(), h.sessions.Collaborator(), store.Scope())
	if err != nil {
		abortWithError(c, err)
		return
	}

	active := store.WorkflowID()
	response := make([]WorkflowResponse, len(workflows))
	for i, w := range workflows {
		response[i] = workflowResponse(w, active)
	}
	c.JSON(http.StatusOK, response)
}

// Create godoc
// @Summary      Create a workflow
// @Description  Creates an empty workflow and opens it.
// @Tags         Workflows
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body WorkflowRequest true "Workflow"
// @Success      201 {object} WorkflowResponse
// @Router       /workflows [post]
func (h *WorkflowHandler) Create(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req WorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	store := h.sessions.For(userID)
	row, err := h.sessions.Collaborator().CreateWorkflow(c.Request.Context(), store.Scope(), strings.TrimSpace(req.Title))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if err := store.LoadWorkflow(c.Request.Context(), row.ID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, workflowResponse(*row, row.ID))
}

// Update godoc
// @Summary      Rename a workflow
// @Tags         Workflows
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Workflow ID"
// @Param        request body WorkflowRequest true "Workflow"
// @Success      200 {object} map[string]string
// @Router       /workflows/{id} [put]
func (h *WorkflowHandler) Update(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workflowID, ok := uuidParam(c, "id", "workflow")
	if !ok {
		return
	}

	var req WorkflowRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	store := h.sessions.For(userID)
	if err := h.sessions.Collaborator().UpdateWorkflow(c.Request.Context(), store.Scope(), workflowID, strings.TrimSpace(req.Title)); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Workflow updated successfully"})
}

// Delete godoc
// @Summary      Delete a workflow
// @Description  Deletes a workflow with its columns, tasks and subtasks. When it was open the first remaining workflow is opened instead.
// @Tags         Workflows
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Workflow ID"
// @Success      200 {object} map[string]string
// @Router       /workflows/{id} [delete]
func (h *WorkflowHandler) Delete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workflowID, ok := uuidParam(c, "id", "workflow")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	store := h.sessions.For(userID)
	collab := h.sessions.Collaborator()
	if err := collab.DeleteWorkflow(ctx, store.Scope(), workflowID); err != nil {
		abortWithError(c, err)
		return
	}

	if store.WorkflowID() == workflowID {
		remaining, err := collab.ListWorkflows(ctx, store.Scope())
		if err != nil {
			log.Printf("⚠️  Failed to list workflows after deleting %s: %v", workflowID, err)
		}
		if err != nil || len(remaining) == 0 {
			store.Reset()
		} else if err := store.LoadWorkflow(ctx, remaining[0].ID); err != nil {
			abortWithError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Workflow deleted successfully"})
}

// Open godoc
// @Summary      Open a workflow
// @Description  Loads the workflow's board, replacing the open one.
// @Tags         Workflows
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Workflow ID"
// @Success      200 {object} board.Board
// @Failure      502 {object} map[string]string
// @Router       /workflows/{id}/open [post]
func (h *WorkflowHandler) Open(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	workflowID, ok := uuidParam(c, "id", "workflow")
	if !ok {
		return
	}

	store := h.sessions.For(userID)
	if err := store.LoadWorkflow(c.Request.Context(), workflowID); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, store.Snapshot())
}

// Register mounts the workflow routes on rg.
func (h *WorkflowHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/workflows", h.GetAll)
	rg.POST("/workflows", h.Create)
	rg.PUT("/workflows/:id", h.Update)
	rg.DELETE("/workflows/:id", h.Delete)
	rg.POST("/workflows/:id/open", h.Open)
}
