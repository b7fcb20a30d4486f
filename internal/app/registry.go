package app

import "sync"

// Registry is the process-local session index: connection id → game id (at
// most one active game per connection) and game id → active consumer tags.
// It is not shared across orchestrator instances; a connection must stay
// pinned to the instance holding its entry (sticky routing upstream).
type Registry struct {
	mu              sync.Mutex
	gameByConn      map[string]string
	consumersByGame map[string][]string
}

func NewRegistry() *Registry {
	return &Registry{
		gameByConn:      make(map[string]string),
		consumersByGame: make(map[string][]string),
	}
}

// BindConn records the connection's active game.
func (r *Registry) BindConn(conn, gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gameByConn[conn] = gameID
}

// GameFor returns the game the connection is bound to, if any.
func (r *Registry) GameFor(conn string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gid, ok := r.gameByConn[conn]
	return gid, ok
}

// UnbindConn drops the connection's entry. Safe to call twice.
func (r *Registry) UnbindConn(conn string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.gameByConn, conn)
}

// AddConsumer tracks a broker consumer tag under the game for later cancel.
func (r *Registry) AddConsumer(gameID, tag string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.consumersByGame[gameID] = append(r.consumersByGame[gameID], tag)
}

// Consumers returns a copy of the tags tracked for the game.
func (r *Registry) Consumers(gameID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	tags := r.consumersByGame[gameID]
	out := make([]string, len(tags))
	copy(out, tags)
	return out
}

// DropConsumers clears the game's consumer entries.
func (r *Registry) DropConsumers(gameID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.consumersByGame, gameID)
}
