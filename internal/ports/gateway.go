package ports

import "context"

// Gateway delivers named events to live client connections and groups
// connections into per-game rooms. Delivery is fire-and-forget at the
// transport layer; callers own any retry policy.
type Gateway interface {
	// Emit sends the event to a single connection.
	Emit(ctx context.Context, conn, event string, data any) error

	EnterRoom(conn, room string)
	LeaveRoom(conn, room string)
	CloseRoom(room string)
}
