package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quizhive/quizroom-backend/internal/response"
	"github.com/quizhive/quizroom-backend/internal/service"
)

// failDomain translates a service error into the HTTP status and error
// code for the response envelope. Unrecognized errors become a 500
// without leaking their message.
func failDomain(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrRoomNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrRoomNotFound)
	case errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrQuestionNotFound)
	case errors.Is(err, service.ErrNotCreator):
		response.Fail(c, http.StatusForbidden, response.ErrNotRoomCreator)
	case errors.Is(err, service.ErrNotParticipant):
		response.Fail(c, http.StatusForbidden, response.ErrNotAParticipant)
	case errors.Is(err, service.ErrQuestionNotAccessible):
		response.Fail(c, http.StatusForbidden, response.ErrQuestionNotAccessible)
	case errors.Is(err, service.ErrRoomNotWaiting):
		response.Fail(c, http.StatusConflict, response.ErrRoomNotWaiting)
	case errors.Is(err, service.ErrRoomNotActive):
		response.Fail(c, http.StatusConflict, response.ErrRoomNotActive)
	case errors.Is(err, service.ErrRoomNotPaused):
		response.Fail(c, http.StatusConflict, response.ErrRoomNotPaused)
	case errors.Is(err, service.ErrRoomNotStarted):
		response.Fail(c, http.StatusConflict, response.ErrRoomNotStarted)
	case errors.Is(err, service.ErrRoomEnded):
		response.Fail(c, http.StatusConflict, response.ErrRoomEnded)
	case errors.Is(err, service.ErrRoomLocked):
		response.Fail(c, http.StatusConflict, response.ErrRoomLocked)
	case errors.Is(err, service.ErrRoomFull):
		response.Fail(c, http.StatusConflict, response.ErrRoomFull)
	case errors.Is(err, service.ErrLateJoinClosed):
		response.Fail(c, http.StatusConflict, response.ErrLateJoinClosed)
	case errors.Is(err, service.ErrDeadlinePassed):
		response.Fail(c, http.StatusConflict, response.ErrDeadlinePassed)
	case errors.Is(err, service.ErrQuestionAlreadyLinked):
		response.Fail(c, http.StatusConflict, response.ErrQuestionAlreadyLinked)
	case errors.Is(err, service.ErrStatusConflict):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
	case errors.Is(err, service.ErrDuplicateOrder):
		response.Fail(c, http.StatusBadRequest, response.ErrDuplicateOrder)
	case errors.Is(err, service.ErrInvalidAction):
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidAction)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
