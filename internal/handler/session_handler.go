package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quizhive/quizroom-backend/internal/middleware"
	"github.com/quizhive/quizroom-backend/internal/model"
	"github.com/quizhive/quizroom-backend/internal/response"
	"github.com/quizhive/quizroom-backend/internal/service"
	"github.com/quizhive/quizroom-backend/internal/validator"
)

// SessionHandler handles the creator's lifecycle controls on a room.
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// StartRoom godoc
// POST /api/v1/rooms/:room_id/start
// Starts a waiting room, freezing its configuration and question set.
func (h *SessionHandler) StartRoom(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	result, err := h.sessionService.StartRoom(c.Request.Context(), roomID, claims.UserID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ControlRoom godoc
// POST /api/v1/rooms/:room_id/control
// Applies a pause, resume or end action to a live room.
func (h *SessionHandler) ControlRoom(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ControlRoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.sessionService.ControlRoom(c.Request.Context(), roomID, claims.UserID, model.ControlAction(req.Action))
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// CancelRoom godoc
// DELETE /api/v1/rooms/:room_id
// Cancels a room that has not started.
func (h *SessionHandler) CancelRoom(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.sessionService.CancelRoom(c.Request.Context(), roomID, claims.UserID); err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": model.RoomStatusCancelled})
}
