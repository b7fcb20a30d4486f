// Package ws is the realtime gateway: a websocket hub that delivers named
// {name, data} events to connections, groups connections into per-game rooms
// and dispatches inbound client actions to the orchestrator.
package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"wagerchess/internal/app"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ActionHandler receives decoded client actions and disconnect notifications.
// *app.Service satisfies it.
type ActionHandler interface {
	Create(ctx context.Context, conn string, timeControl, wager int, walletAddr string, nRounds int) error
	GameDetails(ctx context.Context, conn, gameID string) error
	Accept(ctx context.Context, conn, gameID, walletAddr string) error
	Cancel(ctx context.Context, conn string, createdOnContract bool) error
	HandleExit(ctx context.Context, conn string) error
}

// Hub implements ports.Gateway and serves the websocket upgrade endpoint.
type Hub struct {
	log     *zap.SugaredLogger
	tokens  *app.TokenService
	handler ActionHandler

	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	rooms   map[string]map[string]struct{}
}

// NewHub builds a hub. tokens may be nil to disable handshake auth
// (local development).
func NewHub(log *zap.SugaredLogger, tokens *app.TokenService) *Hub {
	return &Hub{
		log:    log,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		clients: make(map[string]*client),
		rooms:   make(map[string]map[string]struct{}),
	}
}

// SetHandler wires the orchestrator; must be called before serving.
func (h *Hub) SetHandler(handler ActionHandler) {
	h.handler = handler
}

// ServeHTTP upgrades the connection, assigns it a connection id and runs the
// read loop until the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.tokens != nil {
		if _, err := h.tokens.Verify(r.URL.Query().Get("token")); err != nil {
			http.Error(w, "invalid session token", http.StatusUnauthorized)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Errorf("websocket upgrade: %v", err)
		return
	}

	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()

	h.log.Infof("connection %s opened", c.id)

	go c.writePump()

	// Tell the client its connection id before anything else.
	if err := h.Emit(r.Context(), c.id, "connected", c.id); err != nil {
		h.log.Errorf("emit connected to %s: %v", c.id, err)
	}

	c.readPump(h)

	h.drop(c.id)
	if h.handler != nil {
		if err := h.handler.HandleExit(context.Background(), c.id); err != nil {
			h.log.Errorf("handle exit for %s: %v", c.id, err)
		}
	}
}

// Emit sends one event frame to a connection. A missing connection, a
// connection shut down since the lookup, or a full send buffer is an error;
// the caller's retry wrapper owns the policy.
func (h *Hub) Emit(_ context.Context, conn, event string, data any) error {
	h.mu.Lock()
	c, ok := h.clients[conn]
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("connection %s is not registered", conn)
	}

	frame, err := json.Marshal(app.Event{Name: event, Data: data})
	if err != nil {
		return fmt.Errorf("encode %s frame: %w", event, err)
	}

	if err := c.trySend(frame); err != nil {
		return fmt.Errorf("connection %s: %w", conn, err)
	}
	return nil
}

func (h *Hub) EnterRoom(conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[room] = members
	}
	members[conn] = struct{}{}
}

func (h *Hub) LeaveRoom(conn, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) CloseRoom(room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, room)
}

// RoomMembers reports the connections currently in a room.
func (h *Hub) RoomMembers(room string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	members := make([]string, 0, len(h.rooms[room]))
	for conn := range h.rooms[room] {
		members = append(members, conn)
	}
	return members
}

func (h *Hub) drop(conn string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[conn]; ok {
		c.shutdown()
		delete(h.clients, conn)
	}
	for room, members := range h.rooms {
		delete(members, conn)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	h.log.Infof("connection %s closed", conn)
}

// dispatch routes one inbound action to the orchestrator, surfacing
// user-facing rejections back to the originating connection.
func (h *Hub) dispatch(ctx context.Context, conn string, raw []byte) {
	if h.handler == nil {
		return
	}

	var frame actionFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.log.Errorf("decode action from %s: %v", conn, err)
		return
	}

	var err error
	switch frame.Action {
	case actionCreate:
		err = h.handler.Create(ctx, conn, frame.TimeControl, frame.Wager, frame.WalletAddr, frame.NRounds)
	case actionDetails:
		err = h.handler.GameDetails(ctx, conn, frame.GameID)
	case actionAccept:
		err = h.handler.Accept(ctx, conn, frame.GameID, frame.WalletAddr)
	case actionCancel:
		err = h.handler.Cancel(ctx, conn, frame.CreatedOnContract)
	default:
		h.log.Warnf("unknown action %q from %s", frame.Action, conn)
		return
	}
	if err == nil {
		return
	}

	if msg, ok := app.UserMessage(err); ok {
		if emitErr := h.Emit(ctx, conn, app.EventError, app.ErrorPayload{Message: msg}); emitErr != nil {
			h.log.Errorf("emit error to %s: %v", conn, emitErr)
		}
		return
	}
	h.log.Errorf("action %s from %s failed: %v", frame.Action, conn, err)
}
