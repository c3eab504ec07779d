// Package websocket pushes document snapshots to the browsers editing a
// session over socket.io.
package websocket

import (
	"fmt"

	"github.com/Pabi691/custom-clothology/core"
	"github.com/Pabi691/custom-clothology/handlers/auth"
	"github.com/Pabi691/custom-clothology/session"
	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"
)

// Events emitted to clients.
const (
	EventDesignUpdated  = "design-updated"
	EventSessionExpired = "session-expired"
	EventJoinAck        = "join-session-ack"
)

// TokenVerifier validates session JWTs.
type TokenVerifier interface {
	ParseJWT(token string) (*auth.AppClaims, error)
	LoginURL() string
}

type emitFunc func(room socketio.Room, event string, args ...any) error

// Hub keeps one socket.io room per session.
type Hub struct {
	srv      *socketio.Server
	tokens   TokenVerifier
	registry *session.Registry
	emit     emitFunc
}

// NewHub creates the socket.io server and subscribes it to registry events.
func NewHub(tokens TokenVerifier, registry *session.Registry) *Hub {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	opts.SetCors(&types.Cors{
		Origin:      "*",
		Credentials: true,
	})
	srv := socketio.NewServer(nil, opts)

	h := &Hub{
		srv:      srv,
		tokens:   tokens,
		registry: registry,
		emit: func(room socketio.Room, event string, args ...any) error {
			return srv.To(room).Emit(event, args...)
		},
	}
	srv.On("connection", h.onConnection)
	h.subscribe()
	return h
}

// Server returns the socket.io server for mounting.
func (h *Hub) Server() *socketio.Server {
	return h.srv
}

func (h *Hub) subscribe() {
	h.registry.OnChange(h.publish)
	h.registry.OnExpire(h.expired)
}

func (h *Hub) onConnection(clients ...any) {
	socket, ok := clients[0].(*socketio.Socket)
	if !ok {
		return
	}
	me := socket.Id()

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	socket.On("join-session", func(datas ...any) {
		var token string
		if len(datas) > 0 {
			token, _ = datas[0].(string)
		}

		id, snap, err := h.join(token)
		if err != nil {
			logrus.WithFields(logrus.Fields{"socket_id": me, "error": err}).Warn("Rejected join-session")
			_ = socket.Emit(EventJoinAck, map[string]any{
				"status": "error",
				"error":  err.Error(),
				"login":  h.tokens.LoginURL(),
			})
			return
		}

		socket.Join(socketio.Room(id))
		logrus.WithFields(logrus.Fields{"socket_id": me, "session_id": id}).Debug("Socket joined session")
		_ = socket.Emit(EventJoinAck, map[string]any{"status": "ok", "session": id})
		_ = socket.Emit(EventDesignUpdated, snap)
	})

	//nolint:errcheck // Socket.IO event handlers do not return useful errors
	socket.On("disconnect", func(datas ...any) {
		socket.RemoveAllListeners("")
	})
}

// join resolves a session JWT to a live session and its current snapshot.
func (h *Hub) join(token string) (string, core.Snapshot, error) {
	if token == "" {
		return "", core.Snapshot{}, fmt.Errorf("token is required")
	}
	claims, err := h.tokens.ParseJWT(token)
	if err != nil {
		return "", core.Snapshot{}, fmt.Errorf("invalid token: %w", err)
	}
	s, err := h.registry.Get(claims.Subject)
	if err != nil {
		return "", core.Snapshot{}, err
	}
	return s.ID, s.Store.Snapshot(), nil
}

func (h *Hub) publish(sessionID string, snap core.Snapshot) {
	if err := h.emit(socketio.Room(sessionID), EventDesignUpdated, snap); err != nil {
		logrus.WithFields(logrus.Fields{"session_id": sessionID, "error": err}).Warn("Failed to push snapshot")
	}
}

func (h *Hub) expired(sessionID string) {
	err := h.emit(socketio.Room(sessionID), EventSessionExpired, map[string]string{"login": h.tokens.LoginURL()})
	if err != nil {
		logrus.WithFields(logrus.Fields{"session_id": sessionID, "error": err}).Warn("Failed to push expiry")
	}
}

// Close shuts the socket.io server down.
func (h *Hub) Close() {
	h.srv.Close(nil)
}
