package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/quizhive/quizroom-backend/internal/cache"
	"github.com/quizhive/quizroom-backend/internal/config"
	"github.com/quizhive/quizroom-backend/internal/handler"
	"github.com/quizhive/quizroom-backend/internal/memstore"
	"github.com/quizhive/quizroom-backend/internal/middleware"
	"github.com/quizhive/quizroom-backend/internal/model"
	"github.com/quizhive/quizroom-backend/internal/router"
	"github.com/quizhive/quizroom-backend/internal/service"
	"github.com/quizhive/quizroom-backend/internal/validator"
)

const testCreatorID = 11

type testServer struct {
	engine  *gin.Engine
	store   *memstore.Store
	catalog *memstore.Catalog
	token   string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	validator.Setup()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := &config.Config{
		GinMode:   gin.TestMode,
		JWTSecret: "router-test-secret",
		JWTExpiry: time.Hour,
	}

	store := memstore.New()
	catalog := memstore.NewCatalog()
	tracker := cache.NewSessionTracker(rdb)
	log := zerolog.Nop()

	identity := service.NewIdentityService(cfg)
	rooms := service.NewRoomService(store, store.Links(), tracker, log)
	links := service.NewRoomQuestionService(store, store.Links(), catalog, log)
	session := service.NewSessionService(store, store.Links(), catalog, store.Answers(), rdb, tracker, log)
	answers := service.NewAnswerService(store, store.Links(), catalog, store.Answers(), rdb, tracker, cfg, log)

	engine := router.SetupRouter(identity, &router.Handlers{
		Room:         handler.NewRoomHandler(rooms),
		RoomQuestion: handler.NewRoomQuestionHandler(links),
		Session:      handler.NewSessionHandler(session),
		Participant:  handler.NewParticipantHandler(rooms, session, answers),
	}, cfg)

	token, err := identity.IssueToken(testCreatorID, "creator")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	return &testServer{engine: engine, store: store, catalog: catalog, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, decorate func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewBuffer(encoded)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if decorate != nil {
		decorate(req)
	}

	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func asCreator(s *testServer) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
}

func asGuest(name string) func(*http.Request) {
	return func(req *http.Request) {
		req.Header.Set(middleware.HeaderGuestName, name)
	}
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code   string            `json:"code"`
		Fields map[string]string `json:"fields"`
	} `json:"error"`
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (body %s)", err, rec.Body.String())
	}
	return env
}

func createRoom(t *testing.T, s *testServer) (id, code string) {
	t.Helper()

	rec := s.do(t, "POST", "/api/v1/rooms", model.CreateRoomRequest{
		Title:            "router test room",
		TimeLimitMinutes: 15,
	}, asCreator(s))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create room: status %d: %s", rec.Code, rec.Body.String())
	}

	var payload struct {
		Room model.Room `json:"room"`
	}
	env := decode(t, rec)
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode room: %v", err)
	}
	return payload.Room.ID.String(), payload.Room.Code
}

func TestCreateRoomRequiresToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "POST", "/api/v1/rooms", model.CreateRoomRequest{
		Title:            "no auth",
		TimeLimitMinutes: 10,
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec = s.do(t, "POST", "/api/v1/rooms", nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer not-a-token")
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", rec.Code)
	}
	env := decode(t, rec)
	if env.Error == nil || env.Error.Code != "TOKEN_INVALID" {
		t.Fatalf("expected TOKEN_INVALID, got %+v", env.Error)
	}
}

func TestCreateRoomValidation(t *testing.T) {
	s := newTestServer(t)

	// Title too short and missing time limit.
	rec := s.do(t, "POST", "/api/v1/rooms", map[string]interface{}{
		"title": "ab",
	}, asCreator(s))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decode(t, rec)
	if env.Error == nil || env.Error.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %+v", env.Error)
	}
	if len(env.Error.Fields) == 0 {
		t.Fatal("expected field-level details")
	}
}

func TestPublicCodeLookup(t *testing.T) {
	s := newTestServer(t)
	_, code := createRoom(t, s)

	rec := s.do(t, "GET", "/api/v1/rooms/code/"+code, nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decode(t, rec)
	if env.Metadata.RequestID == "" {
		t.Fatal("expected request id in metadata")
	}

	rec = s.do(t, "GET", "/api/v1/rooms/code/NOPE99", nil, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestRoomAccessByNonCreator(t *testing.T) {
	s := newTestServer(t)
	id, _ := createRoom(t, s)

	other := service.NewIdentityService(&config.Config{JWTSecret: "router-test-secret", JWTExpiry: time.Hour})
	otherToken, err := other.IssueToken(testCreatorID+1, "intruder")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	rec := s.do(t, "GET", "/api/v1/rooms/"+id, nil, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+otherToken)
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestInvalidRoomID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, "GET", "/api/v1/rooms/not-a-uuid", nil, asCreator(s))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStartWithoutQuestionsMapsTo400(t *testing.T) {
	s := newTestServer(t)
	id, _ := createRoom(t, s)

	rec := s.do(t, "POST", "/api/v1/rooms/"+id+"/start", nil, asCreator(s))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	env := decode(t, rec)
	if env.Error == nil || env.Error.Code != "NO_QUESTIONS" {
		t.Fatalf("expected NO_QUESTIONS, got %+v", env.Error)
	}
}

func TestJoinAndSubmitAsGuest(t *testing.T) {
	s := newTestServer(t)

	q := model.Question{
		ID:            uuid.New(),
		OwnerID:       testCreatorID,
		QuestionText:  "pick b",
		Options:       json.RawMessage(`["a","b"]`),
		CorrectAnswer: 1,
		Points:        2,
		IsPublic:      true,
	}
	s.catalog.Put(q)

	id, _ := createRoom(t, s)

	rec := s.do(t, "POST", "/api/v1/rooms/"+id+"/questions", model.AddRoomQuestionsRequest{
		QuestionIDs: []uuid.UUID{q.ID},
	}, asCreator(s))
	if rec.Code != http.StatusOK {
		t.Fatalf("add questions: %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, "POST", "/api/v1/rooms/"+id+"/start", nil, asCreator(s))
	if rec.Code != http.StatusOK {
		t.Fatalf("start: %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, "POST", "/api/v1/rooms/"+id+"/join", model.JoinRoomRequest{}, asGuest("dana"))
	if rec.Code != http.StatusOK {
		t.Fatalf("join: %d: %s", rec.Code, rec.Body.String())
	}

	// Identityless join is rejected before any room lookup.
	rec = s.do(t, "POST", "/api/v1/rooms/"+id+"/join", model.JoinRoomRequest{}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}

	selected := 1
	rec = s.do(t, "POST", "/api/v1/rooms/"+id+"/answers", model.SubmitAnswerRequest{
		QuestionID:     q.ID,
		SelectedAnswer: &selected,
	}, asGuest("dana"))
	if rec.Code != http.StatusOK {
		t.Fatalf("submit: %d: %s", rec.Code, rec.Body.String())
	}

	var feedback model.AnswerFeedback
	env := decode(t, rec)
	if err := json.Unmarshal(env.Data, &feedback); err != nil {
		t.Fatalf("decode feedback: %v", err)
	}
	if !feedback.Submitted || feedback.IsCorrect == nil || !*feedback.IsCorrect {
		t.Fatalf("unexpected feedback: %+v", feedback)
	}
}

func TestGuestCannotReachCreatorRoutes(t *testing.T) {
	s := newTestServer(t)
	id, _ := createRoom(t, s)

	rec := s.do(t, "POST", "/api/v1/rooms/"+id+"/control", model.ControlRoomRequest{Action: "end"}, asGuest("dana"))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStatusPollIsPublic(t *testing.T) {
	s := newTestServer(t)
	id, _ := createRoom(t, s)

	rec := s.do(t, "GET", "/api/v1/rooms/"+id+"/status", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var info model.RoomStatusInfo
	env := decode(t, rec)
	if err := json.Unmarshal(env.Data, &info); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if info.Room.Status != model.RoomStatusWaiting {
		t.Fatalf("expected waiting, got %s", info.Room.Status)
	}
}
