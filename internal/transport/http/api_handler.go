package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"campus-quiz-service/internal/app"
	"campus-quiz-service/internal/domain"
)

const defaultLeaderboardLimit = 10

// LiveCounter reports how many sessions are open, e.g. across instances.
type LiveCounter interface {
	Live(ctx context.Context) (int, error)
}

// APIHandler serves the REST side of the quiz: catalogue, session start and attempt history.
type APIHandler struct {
	service *app.QuizService
	log     *slog.Logger
	live    LiveCounter
}

func NewAPIHandler(service *app.QuizService, logger *slog.Logger) *APIHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIHandler{service: service, log: logger}
}

// WithLiveCounter adds the open-session count to /healthz.
func (h *APIHandler) WithLiveCounter(live LiveCounter) *APIHandler {
	h.live = live
	return h
}

// Register mounts every route on mux.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("GET /api/categories", h.categories)
	mux.HandleFunc("GET /api/questions", h.questions)
	mux.HandleFunc("POST /api/quiz-sessions", h.startSession)
	mux.HandleFunc("GET /api/quiz-attempts", h.attempts)
	mux.HandleFunc("GET /api/quiz-answers", h.answers)
	mux.HandleFunc("GET /api/standing", h.standing)
	mux.HandleFunc("GET /api/leaderboard", h.leaderboard)
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *APIHandler) health(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok"}
	if h.live != nil {
		if n, err := h.live.Live(r.Context()); err == nil {
			body["live_sessions"] = n
		} else {
			h.log.Warn("count live sessions", "error", err)
		}
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *APIHandler) categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *APIHandler) questions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	categoryID := q.Get("categoryId")
	if categoryID == "" {
		h.writeError(w, r, &domain.ValidationError{Fields: map[string]string{"categoryId": "required"}})
		return
	}
	quizType := q.Get("quizType")
	if quizType == "" {
		quizType = string(domain.QuizShort)
	}
	questions, err := h.service.Questions(r.Context(), categoryID, quizType)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (h *APIHandler) startSession(w http.ResponseWriter, r *http.Request) {
	var req app.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	session, err := h.service.Start(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, session.Snapshot())
}

func (h *APIHandler) attempts(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("attemptId"); id != "" {
		attempt, err := h.service.Attempt(r.Context(), id)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, attempt)
		return
	}
	attempts, err := h.service.Attempts(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, attempts)
}

func (h *APIHandler) answers(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("attemptId")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "attemptId is required"})
		return
	}
	answers, err := h.service.Answers(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, answers)
}

func (h *APIHandler) standing(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("attemptId")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "attemptId is required"})
		return
	}
	standing, err := h.service.Standing(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, standing)
}

func (h *APIHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultLeaderboardLimit
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			h.writeError(w, r, &domain.ValidationError{Fields: map[string]string{"limit": "must be a positive integer"}})
			return
		}
		limit = n
	}
	lb, err := h.service.Leaderboard(r.Context(), q.Get("categoryId"), q.Get("quizType"), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrAttemptNotFound),
		errors.Is(err, domain.ErrCategoryNotFound),
		errors.Is(err, domain.ErrNoQuestions):
		return http.StatusNotFound
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrSubmitUnavailable),
		errors.Is(err, domain.ErrSessionClosed),
		errors.Is(err, domain.ErrQuestionNotFound):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
