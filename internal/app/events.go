package app

import "wagerchess/internal/domain"

// Event is the transient unit published through a game's fan-out topology and
// delivered to clients as {name, data}. Events are never persisted.
type Event struct {
	Name string `json:"name"`
	Data any    `json:"data"`
}

// Wire event names.
const (
	EventGameID        = "gameId"
	EventGameInfo      = "gameInfo"
	EventGameCancelled = "gameCancelled"
	EventStart         = "start"
	EventMove          = "move"
	EventMatchEnded    = "matchEnded"
	EventError         = "error"
)

// BroadcastKey is the fixed routing key bound to every player queue of a
// game's exchange; publishing under it reaches all participants.
const BroadcastKey = "broadcast"

// GameInfoPayload summarizes a game's terms for a prospective joiner.
type GameInfoPayload struct {
	WagerAmount int `json:"wagerAmount"`
	TimeControl int `json:"timeControl"`
	TotalRounds int `json:"totalRounds"`
}

// StartPayload announces a round to one player with their colour assignment.
type StartPayload struct {
	Colour        domain.Colour `json:"colour"`
	TimeRemaining int64         `json:"timeRemaining"`
	Round         int           `json:"round"`
	TotalRounds   int           `json:"totalRounds"`
}

// MovePayload carries a round outcome; used here for abandonment only, the
// in-round move stream is produced by the rules pipeline.
type MovePayload struct {
	Winner     int                `json:"winner"`
	Outcome    domain.Outcome     `json:"outcome"`
	MatchScore map[string]float64 `json:"matchScore"`
}

// MatchEndedPayload names the overall winner index, or null on a draw.
type MatchEndedPayload struct {
	OverallWinner *int `json:"overallWinner"`
}

// ErrorPayload is surfaced to the originating connection for rejected actions.
type ErrorPayload struct {
	Message string `json:"message"`
}
