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

// RoomHandler handles room lifecycle and roster endpoints.
type RoomHandler struct {
	roomService *service.RoomService
}

// NewRoomHandler creates a new RoomHandler.
func NewRoomHandler(roomService *service.RoomService) *RoomHandler {
	return &RoomHandler{roomService: roomService}
}

// CreateRoom godoc
// POST /api/v1/rooms
// Creates a new waiting room owned by the caller.
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.CreateRoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room, err := h.roomService.CreateRoom(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"room": room})
}

// GetRoom godoc
// GET /api/v1/rooms/:room_id
// Returns the creator's full view of a room.
func (h *RoomHandler) GetRoom(c *gin.Context) {
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

	room, err := h.roomService.GetRoom(c.Request.Context(), roomID, claims.UserID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// UpdateRoom godoc
// PATCH /api/v1/rooms/:room_id
// Updates a waiting room's configuration.
func (h *RoomHandler) UpdateRoom(c *gin.Context) {
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

	var req model.UpdateRoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	room, err := h.roomService.UpdateConfig(c.Request.Context(), roomID, claims.UserID, &req)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": room})
}

// GetRoomByCode godoc
// GET /api/v1/rooms/code/:code
// Resolves a shareable room code to the room's public summary.
func (h *RoomHandler) GetRoomByCode(c *gin.Context) {
	summary, err := h.roomService.GetRoomByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"room": summary})
}

// GetRoomStatus godoc
// GET /api/v1/rooms/:room_id/status
// Polling endpoint: room state, roster and live session snapshot.
func (h *RoomHandler) GetRoomStatus(c *gin.Context) {
	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	info, err := h.roomService.GetRoomStatus(c.Request.Context(), roomID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, info)
}
