package handler

import (
	"errors"
	"net/http"

	"flowboard/internal/board"
	"flowboard/internal/gesture"
	"flowboard/internal/middleware"
	"flowboard/internal/ordering"
	"flowboard/internal/remote"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return uuid.Nil, false
	}
	return userID, true
}

func uuidParam(c *gin.Context, name, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID format"})
		return uuid.Nil, false
	}
	return id, true
}

// idParam accepts durable and pending board ids.
func idParam(c *gin.Context, name, what string) (board.ID, bool) {
	id, err := board.ParseID(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + " ID format"})
		return board.ID{}, false
	}
	return id, true
}

// statusOf maps board, gesture and collaborator errors onto HTTP statuses.
func statusOf(err error) int {
	var loadErr *board.LoadError
	switch {
	case errors.As(err, &loadErr):
		if errors.Is(err, remote.ErrRejected) {
			return http.StatusForbidden
		}
		if errors.Is(err, remote.ErrNotFound) {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.Is(err, board.ErrInvalidColor),
		errors.Is(err, board.ErrInvalidID),
		errors.Is(err, board.ErrEmptyTitle),
		errors.Is(err, board.ErrPositionMismatch),
		errors.Is(err, ordering.ErrIndexOutOfRange),
		errors.Is(err, gesture.ErrUnknownKind),
		errors.Is(err, gesture.ErrCrossContainer):
		return http.StatusBadRequest
	case errors.Is(err, remote.ErrRejected):
		return http.StatusForbidden
	case errors.Is(err, board.ErrColumnNotFound),
		errors.Is(err, board.ErrTaskNotFound),
		errors.Is(err, board.ErrSubtaskNotFound),
		errors.Is(err, remote.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, board.ErrNotReady),
		errors.Is(err, board.ErrPendingID),
		errors.Is(err, board.ErrSuperseded):
		return http.StatusConflict
	case errors.Is(err, remote.ErrUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "Internal server error"
	}
	c.JSON(status, gin.H{"error": msg})
}
