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

// ParticipantHandler handles the participant-facing endpoints: joining a
// room, fetching the quiz and submitting answers. Routes carry the
// ResolveParticipant middleware, so the caller may be a user or a guest.
type ParticipantHandler struct {
	roomService    *service.RoomService
	sessionService *service.SessionService
	answerService  *service.AnswerService
}

// NewParticipantHandler creates a new ParticipantHandler.
func NewParticipantHandler(roomService *service.RoomService, sessionService *service.SessionService, answerService *service.AnswerService) *ParticipantHandler {
	return &ParticipantHandler{
		roomService:    roomService,
		sessionService: sessionService,
		answerService:  answerService,
	}
}

// JoinRoom godoc
// POST /api/v1/rooms/:room_id/join
// Adds the caller to the room's roster. Re-joining is idempotent.
func (h *ParticipantHandler) JoinRoom(c *gin.Context) {
	key := middleware.GetParticipantKey(c)
	if key.IsZero() {
		response.Fail(c, http.StatusUnauthorized, response.ErrIdentityRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.JoinRoomRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	displayName := req.DisplayName
	if displayName == "" {
		if claims := middleware.GetClaims(c); claims != nil {
			displayName = claims.UserName
		}
	}

	participant, err := h.roomService.JoinRoom(c.Request.Context(), roomID, key, displayName)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"participant": participant})
}

// GetQuiz godoc
// GET /api/v1/rooms/:room_id/quiz
// Returns the caller's answer-free quiz view of an active room.
func (h *ParticipantHandler) GetQuiz(c *gin.Context) {
	key := middleware.GetParticipantKey(c)
	if key.IsZero() {
		response.Fail(c, http.StatusUnauthorized, response.ErrIdentityRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	view, err := h.sessionService.GetQuizForParticipant(c.Request.Context(), roomID, key)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, view)
}

// SubmitAnswer godoc
// POST /api/v1/rooms/:room_id/answers
// Records the caller's answer; resubmission replaces the prior one.
func (h *ParticipantHandler) SubmitAnswer(c *gin.Context) {
	key := middleware.GetParticipantKey(c)
	if key.IsZero() {
		response.Fail(c, http.StatusUnauthorized, response.ErrIdentityRequired)
		return
	}

	roomID, err := uuid.Parse(c.Param("room_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SubmitAnswerRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	feedback, err := h.answerService.SubmitAnswer(c.Request.Context(), roomID, key, &req)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, feedback)
}
