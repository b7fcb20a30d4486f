// Package chessrules adapts the chess rules engine; the orchestrator only
// consumes fresh board positions, move legality lives in the rules pipeline.
package chessrules

import "github.com/corentings/chess/v2"

// Engine implements ports.Rules.
type Engine struct{}

func New() Engine {
	return Engine{}
}

// StartingPosition returns the FEN of a fresh game.
func (Engine) StartingPosition() string {
	return chess.NewGame().Position().String()
}
