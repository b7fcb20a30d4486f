package ports

import "context"

// Settlement finalizes wager outcomes on the external ledger. Each method is
// invoked at most once per terminal transition and never retried by the
// orchestrator; failures propagate to the calling operation.
type Settlement interface {
	// CancelGame refunds the creator of a game that never started.
	CancelGame(ctx context.Context, gameID string) error

	// DeclareWinner pays out the full pot to the wallet address.
	DeclareWinner(ctx context.Context, gameID, walletAddr string) error

	// DeclareDraw splits the pot between both players.
	DeclareDraw(ctx context.Context, gameID string) error
}
