package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quizhive/quizroom-backend/internal/config"
	"github.com/quizhive/quizroom-backend/internal/handler"
	"github.com/quizhive/quizroom-backend/internal/middleware"
	"github.com/quizhive/quizroom-backend/internal/response"
	"github.com/quizhive/quizroom-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Room         *handler.RoomHandler
	RoomQuestion *handler.RoomQuestionHandler
	Session      *handler.SessionHandler
	Participant  *handler.ParticipantHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	identityService *service.IdentityService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.HeaderGuestName}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for submission endpoints (60 requests per minute per
	// participant).
	answerLimiter := middleware.NewRateLimiter(60, time.Minute)
	// Joins are cheaper to abuse; keep them tighter.
	joinLimiter := middleware.NewRateLimiter(20, time.Minute)

	api := router.Group("/api/v1")

	// ─── 1. Public Group (No Auth) ─────────────────────────────────────
	{
		api.GET("/rooms/code/:code", handlers.Room.GetRoomByCode)
		api.GET("/rooms/:room_id/status", handlers.Room.GetRoomStatus)
	}

	// ─── 2. Creator Group (JWT) ────────────────────────────────────────
	creatorAPI := api.Group("/rooms")
	creatorAPI.Use(middleware.RequireUser(identityService))
	{
		creatorAPI.POST("", handlers.Room.CreateRoom)
		creatorAPI.GET("/:room_id", handlers.Room.GetRoom)
		creatorAPI.PATCH("/:room_id", handlers.Room.UpdateRoom)
		creatorAPI.DELETE("/:room_id", handlers.Session.CancelRoom)

		creatorAPI.GET("/:room_id/questions", handlers.RoomQuestion.ListQuestions)
		creatorAPI.POST("/:room_id/questions", handlers.RoomQuestion.AddQuestions)
		creatorAPI.DELETE("/:room_id/questions", handlers.RoomQuestion.RemoveQuestions)
		creatorAPI.PUT("/:room_id/questions/order", handlers.RoomQuestion.ReorderQuestions)

		creatorAPI.POST("/:room_id/start", handlers.Session.StartRoom)
		creatorAPI.POST("/:room_id/control", handlers.Session.ControlRoom)
	}

	// ─── 3. Participant Group (JWT or Guest Name) ──────────────────────
	participantAPI := api.Group("/rooms")
	participantAPI.Use(middleware.ResolveParticipant(identityService))
	{
		participantAPI.POST("/:room_id/join", joinLimiter.Middleware(), handlers.Participant.JoinRoom)
		participantAPI.GET("/:room_id/quiz", handlers.Participant.GetQuiz)
		participantAPI.POST("/:room_id/answers", answerLimiter.Middleware(), handlers.Participant.SubmitAnswer)
	}

	return router
}
