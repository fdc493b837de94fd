package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"live-trivia-service/internal/app"
	"live-trivia-service/internal/domain"
)

// WSConfig holds configuration for WebSocket connections.
type WSConfig struct {
	ReadBufferSize  int
	WriteBufferSize int
	MaxMessageSize  int64
	PingInterval    time.Duration
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		MaxMessageSize:  4096,
		PingInterval:    30 * time.Second,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
	}
}

type WSHandler struct {
	service  *app.QuizService
	hub      *Hub
	cfg      WSConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, hub *Hub, cfg WSConfig) *WSHandler {
	def := DefaultWSConfig()
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = def.MaxMessageSize
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = def.ReadTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	return &WSHandler{
		service: service,
		hub:     hub,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades HTTP requests to websockets and feeds each inbound message
// to the quiz service. The connection's lifetime is the participant's lifetime:
// when the read loop ends the service is told the connection is gone.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	connID := uuid.NewString()
	logger := log.With().Str("connection_id", connID).Logger()
	send := h.hub.Register(connID)
	logger.Debug().Str("remote", r.RemoteAddr).Msg("connection opened")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writePump(conn, send, connID)
	}()

	conn.SetReadLimit(h.cfg.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
	})

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug().Err(err).Msg("connection closed unexpectedly")
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(h.cfg.ReadTimeout))
		h.dispatch(ctx, connID, data)
	}

	h.service.Disconnect(context.WithoutCancel(ctx), connID)
	h.hub.Unregister(connID)
	<-writerDone
	logger.Debug().Msg("connection closed")
}

// dispatch decodes one frame and applies it. Bad frames are answered with an
// error event and never end the connection.
func (h *WSHandler) dispatch(ctx context.Context, connID string, data []byte) {
	cmd, err := decodeMessage(data)
	if err != nil {
		h.hub.Send(connID, domain.NewErrorEvent(err.Error()))
		return
	}

	switch c := cmd.(type) {
	case createSessionCommand:
		_, err = h.service.CreateSession(ctx, connID, c.BankID)
	case joinSessionCommand:
		_, err = h.service.JoinSession(ctx, connID, c.SessionID, c.PlayerName)
	case startQuizCommand:
		err = h.service.StartQuiz(ctx, connID)
	case submitAnswerCommand:
		err = h.service.SubmitAnswer(ctx, connID, *c.AnswerIndex)
	case endQuizCommand:
		err = h.service.EndQuiz(ctx, connID)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Debug().Err(err).Str("connection_id", connID).Str("command", cmd.name()).Msg("command not applied")
	}
}

// writePump is the only goroutine writing to conn.
func (h *WSHandler) writePump(conn *websocket.Conn, send <-chan []byte, connID string) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-send:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Debug().Err(err).Str("connection_id", connID).Msg("ws write error")
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("connection_id", connID).Msg("ws ping failed")
				return
			}
		}
	}
}
