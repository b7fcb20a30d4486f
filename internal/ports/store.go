package ports

import (
	"context"
	"errors"

	"wagerchess/internal/domain"
)

// ErrNoSnapshot is returned by GameStore.Get when no snapshot exists for the id.
var ErrNoSnapshot = errors.New("no game snapshot")

// GameStore persists serialized game snapshots plus simple usage counters.
// Implementations may be backed by Redis, memory, etc. No transactional
// guarantees beyond single-key operations are assumed.
type GameStore interface {
	// Get retrieves a snapshot by game id. Returns ErrNoSnapshot when absent.
	Get(ctx context.Context, gameID string) (*domain.Game, error)

	// Save persists or overwrites the snapshot for the game id.
	Save(ctx context.Context, gameID string, game *domain.Game) error

	// Delete removes the snapshot.
	Delete(ctx context.Context, gameID string) error

	// CountInProgress counts live game snapshots. The count is an
	// approximate, non-atomic scan; concurrent creates may race past it.
	CountInProgress(ctx context.Context) (int, error)

	// IncrCounter adds delta to a named usage counter.
	IncrCounter(ctx context.Context, name string, delta int64) error
}
