package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"campus-quiz-service/internal/app"
	"github.com/gorilla/websocket"
)

// submitTimeout bounds a confirm or retry so a dropped client cannot cancel a save halfway.
const submitTimeout = 30 * time.Second

// SessionToucher refreshes a session's liveness marker after client activity.
type SessionToucher interface {
	Touch(ctx context.Context, sessionID string) error
}

type WSHandler struct {
	service  *app.QuizService
	log      *slog.Logger
	touch    SessionToucher
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// WithSessionToucher refreshes liveness markers on every handled message.
func (h *WSHandler) WithSessionToucher(t SessionToucher) *WSHandler {
	h.touch = t
	return h
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type selectPayload struct {
	QuestionID string `json:"questionId"`
	Option     string `json:"option"`
}

type jumpPayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades HTTP requests to websockets and drives one quiz session.
// Every state change reaches the client as a "state" snapshot through the
// session subscription, so actions reply only when they fail.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	session, err := h.service.Session(sessionID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	log := h.log.With("session_id", sessionID)

	updates, cancel := session.Subscribe()
	defer cancel()
	defer h.service.Release(sessionID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				log.Debug("ws write error", "error", err)
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	exited := false
	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if inbound.Type == "exit" {
			if err := h.service.Exit(r.Context(), sessionID); err != nil {
				send <- errorMessage(err)
				break
			}
			exited = true
			break
		}
		if err := h.dispatch(session, inbound); err != nil {
			log.Debug("ws action rejected", "type", inbound.Type, "error", err)
			send <- errorMessage(err)
		}
		if h.touch != nil {
			if err := h.touch.Touch(r.Context(), sessionID); err != nil {
				log.Warn("refresh session marker", "error", err)
			}
		}
	}

	if exited {
		// Exit closed the subscription; let the final snapshot through.
		<-updatesDone
	}
	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(session *app.Session, inbound inboundMessage) error {
	switch inbound.Type {
	case "select":
		var payload selectPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return session.Select(payload.QuestionID, payload.Option)
	case "next":
		return session.Next()
	case "previous":
		return session.Previous()
	case "jump":
		var payload jumpPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errInvalidPayload
		}
		return session.Jump(payload.Index)
	case "submit":
		_, err := session.RequestSubmit()
		return err
	case "cancel":
		return session.CancelSubmit()
	case "confirm":
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		return session.ConfirmSubmit(ctx)
	case "retry":
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		return session.RetrySubmit(ctx)
	}
	return errUnsupported
}

type wsError string

func (e wsError) Error() string { return string(e) }

const (
	errInvalidPayload = wsError("invalid payload")
	errUnsupported    = wsError("unsupported message type")
)

func errorMessage(err error) outboundMessage[any] {
	return outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}}
}
