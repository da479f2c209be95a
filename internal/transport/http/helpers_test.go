package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/domain"
	"campus-quiz-service/internal/infra/memory"
)

func noTicks() (<-chan time.Time, func()) {
	return nil, func() {}
}

type testEnv struct {
	service  *app.QuizService
	sessions *memory.SessionStore
	attempts *memory.AttemptStore
	server   *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	catalog := memory.NewCatalog(
		[]domain.Category{
			{ID: "physics", Name: "Physics", Type: domain.CategorySubject},
			{ID: "history", Name: "History", Type: domain.CategorySubject},
		},
		[]domain.Question{
			{ID: "q1", CategoryID: "physics", Prompt: "SI unit of force?", OptionA: "Newton", OptionB: "Joule", OptionC: "Watt", OptionD: "Pascal", CorrectAnswer: domain.OptionA},
			{ID: "q2", CategoryID: "physics", Prompt: "Which is a vector?", OptionA: "Mass", OptionB: "Speed", OptionC: "Velocity", OptionD: "Energy", CorrectAnswer: domain.OptionC},
		},
	)
	sessions := memory.NewSessionStore()
	attempts := memory.NewAttemptStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := app.NewQuizService(
		sessions,
		memory.NewQuestionRepository(catalog, time.Minute),
		catalog,
		attempts,
		app.WithTickSource(noTicks),
		app.WithLogger(logger),
	)

	mux := http.NewServeMux()
	NewAPIHandler(service, logger).Register(mux)
	mux.HandleFunc("GET /ws", NewWSHandler(service, logger).ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return &testEnv{service: service, sessions: sessions, attempts: attempts, server: server}
}

func (e *testEnv) startSession(t *testing.T) *app.Session {
	t.Helper()
	session, err := e.service.Start(context.Background(), app.StartRequest{
		Student:    domain.Student{Name: "Asha Rao", Email: "asha@example.com", Mobile: "9876543210"},
		CategoryID: "physics",
		QuizType:   "short",
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(session.Exit)
	return session
}
