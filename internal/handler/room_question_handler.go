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

// RoomQuestionHandler handles the room-question linkage endpoints. All of
// them are creator-only and valid only while the room is waiting.
type RoomQuestionHandler struct {
	linkService *service.RoomQuestionService
}

// NewRoomQuestionHandler creates a new RoomQuestionHandler.
func NewRoomQuestionHandler(linkService *service.RoomQuestionService) *RoomQuestionHandler {
	return &RoomQuestionHandler{linkService: linkService}
}

// ListQuestions godoc
// GET /api/v1/rooms/:room_id/questions
// Lists the room's linked questions in play order.
func (h *RoomQuestionHandler) ListQuestions(c *gin.Context) {
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

	links, err := h.linkService.ListQuestions(c.Request.Context(), roomID, claims.UserID)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"questions":       links,
		"total_questions": len(links),
	})
}

// AddQuestions godoc
// POST /api/v1/rooms/:room_id/questions
// Links catalog questions to the room, appending after the current order.
func (h *RoomQuestionHandler) AddQuestions(c *gin.Context) {
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

	var req model.AddRoomQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	total, err := h.linkService.AddQuestions(c.Request.Context(), roomID, claims.UserID, req.QuestionIDs, req.ReplaceAll)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, model.RoomQuestionCount{TotalQuestions: total})
}

// RemoveQuestions godoc
// DELETE /api/v1/rooms/:room_id/questions
// Unlinks questions from the room. Unknown IDs are ignored.
func (h *RoomQuestionHandler) RemoveQuestions(c *gin.Context) {
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

	var req model.RemoveRoomQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	total, err := h.linkService.RemoveQuestions(c.Request.Context(), roomID, claims.UserID, req.QuestionIDs)
	if err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, model.RoomQuestionCount{TotalQuestions: total})
}

// ReorderQuestions godoc
// PUT /api/v1/rooms/:room_id/questions/order
// Reorders the linkage and applies per-room overrides atomically.
func (h *RoomQuestionHandler) ReorderQuestions(c *gin.Context) {
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

	var req model.ReorderRoomQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.linkService.ReorderQuestions(c.Request.Context(), roomID, claims.UserID, req.Entries); err != nil {
		failDomain(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"reordered": len(req.Entries)})
}
