package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zishang520/engine.io/v2/types"
	socketio "github.com/zishang520/socket.io/v2/socket"

	"youngin-studio/studio"
)

type ackInvoker func(err error, payload map[string]any)

// Authorizer checks that the bearer of token may watch a session.
type Authorizer func(token, sessionID string) error

// Hub pushes studio session updates to socket.io clients. Each session is a room.
type Hub struct {
	srv       *socketio.Server
	authorize Authorizer

	mu      sync.RWMutex
	viewers map[string]int
}

// NewHub creates the socket.io server. A nil authorizer admits every client.
func NewHub(authorize Authorizer) *Hub {
	opts := socketio.DefaultServerOptions()
	opts.SetMaxHttpBufferSize(5000000)
	opts.SetPath("/socket.io")
	opts.SetAllowEIO3(true)
	localhostOrigin := regexp.MustCompile(`^https?://(localhost|127\.0\.0\.1|\[::1\])(:\d+)?$`)
	opts.SetCors(&types.Cors{
		Origin:      []any{localhostOrigin},
		Credentials: true,
	})

	h := &Hub{
		srv:       socketio.NewServer(nil, opts),
		authorize: authorize,
		viewers:   make(map[string]int),
	}
	h.srv.On("connection", h.onConnection)
	return h
}

// Server returns the underlying socket.io server for mounting and shutdown.
func (h *Hub) Server() *socketio.Server {
	return h.srv
}

// Viewers returns the number of clients watching each session.
func (h *Hub) Viewers() map[string]int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make(map[string]int, len(h.viewers))
	for k, v := range h.viewers {
		out[k] = v
	}
	return out
}

func (h *Hub) setViewers(sessionID string, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n <= 0 {
		delete(h.viewers, sessionID)
		return
	}
	h.viewers[sessionID] = n
}

//nolint:errcheck // Socket.IO event handlers do not return useful errors
func (h *Hub) onConnection(clients ...any) {
	socket, ok := clients[0].(*socketio.Socket)
	if !ok {
		return
	}
	me := socket.Id()
	log := logrus.WithField("socket_id", me)

	socket.On("join-session", func(datas ...any) {
		ack, args := extractAck(datas)
		sessionID, err := h.checkJoin(args)
		if err != nil {
			log.WithError(err).Warn("Rejected join-session")
			respondWithAck(socket, ack, "join-session-ack", map[string]any{
				"status": "error",
				"error":  err.Error(),
			}, err)
			return
		}

		room := socketio.Room(sessionID)
		socket.Join(room)
		h.srv.In(room).FetchSockets()(func(sockets []*socketio.RemoteSocket, fetchErr error) {
			if fetchErr != nil {
				respondWithAck(socket, ack, "join-session-ack", map[string]any{
					"status": "error",
					"error":  fetchErr.Error(),
				}, fetchErr)
				return
			}
			h.setViewers(sessionID, len(sockets))
			log.WithFields(logrus.Fields{"session_id": sessionID, "viewers": len(sockets)}).Info("Socket joined session")
			respondWithAck(socket, ack, "join-session-ack", map[string]any{
				"status":  "ok",
				"viewers": len(sockets),
			}, nil)
		})
	})

	socket.On("disconnecting", func(...any) {
		for _, room := range socket.Rooms().Keys() {
			if room == socketio.Room(me) {
				continue
			}
			sessionID := string(room)
			h.srv.In(room).FetchSockets()(func(sockets []*socketio.RemoteSocket, _ error) {
				remaining := 0
				for _, s := range sockets {
					if s.Id() != me {
						remaining++
					}
				}
				h.setViewers(sessionID, remaining)
			})
		}
	})

	socket.On("disconnect", func(...any) {
		socket.RemoveAllListeners("")
	})
}

// checkJoin validates join-session arguments: a session id, then a bearer token.
func (h *Hub) checkJoin(args []any) (string, error) {
	if len(args) == 0 {
		return "", errors.New("session id is required")
	}
	sessionID, ok := args[0].(string)
	if !ok || sessionID == "" {
		return "", errors.New("invalid session id")
	}
	if h.authorize == nil {
		return sessionID, nil
	}
	var token string
	if len(args) > 1 {
		token, _ = args[1].(string)
	}
	if err := h.authorize(token, sessionID); err != nil {
		return "", fmt.Errorf("not allowed to join session: %w", err)
	}
	return sessionID, nil
}

// SessionChanged emits session-changed to everyone watching the session.
func (h *Hub) SessionChanged(view studio.View) {
	payload, err := toPayload(view)
	if err != nil {
		logrus.WithError(err).WithField("session_id", view.SessionID).Warn("Failed to encode session-changed")
		return
	}
	_ = h.srv.To(socketio.Room(view.SessionID)).Emit("session-changed", payload)
}

// DesignSaved emits design-saved to everyone watching the session.
func (h *Hub) DesignSaved(sessionID, designID string) {
	_ = h.srv.To(socketio.Room(sessionID)).Emit("design-saved", map[string]any{
		"sessionId": sessionID,
		"designId":  designID,
	})
}

// toPayload flattens v into plain maps and slices; byte slices would otherwise
// travel as binary attachments.
func toPayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func extractAck(datas []any) (ack ackInvoker, args []any) {
	if len(datas) == 0 {
		return nil, datas
	}
	ack = wrapAck(datas[len(datas)-1])
	if ack == nil {
		return nil, datas
	}
	return ack, datas[:len(datas)-1]
}

func wrapAck(candidate any) ackInvoker {
	if candidate == nil {
		return nil
	}
	value := reflect.ValueOf(candidate)
	if value.Kind() != reflect.Func {
		return nil
	}

	typ := value.Type()
	return func(err error, payload map[string]any) {
		args := make([]reflect.Value, typ.NumIn())
		for i := range args {
			var arg any
			switch {
			case typ.NumIn() == 1 && err == nil:
				arg = payload
			case typ.NumIn() == 1, i == 0:
				arg = err
			case i == 1:
				arg = payload
			}
			args[i] = coerceValue(arg, typ.In(i))
		}
		value.Call(args)
	}
}

func coerceValue(value any, targetType reflect.Type) reflect.Value {
	if value == nil {
		return reflect.Zero(targetType)
	}
	rv := reflect.ValueOf(value)
	switch {
	case rv.Type().AssignableTo(targetType):
		return rv
	case rv.Type().ConvertibleTo(targetType):
		return rv.Convert(targetType)
	case targetType.Kind() == reflect.String:
		return reflect.ValueOf(fmt.Sprint(value)).Convert(targetType)
	}
	return reflect.Zero(targetType)
}

func respondWithAck(socket *socketio.Socket, ack ackInvoker, event string, payload map[string]any, ackErr error) {
	if ack != nil {
		ack(ackErr, payload)
	}
	if event != "" && payload != nil {
		_ = socket.Emit(event, payload)
	}
}
