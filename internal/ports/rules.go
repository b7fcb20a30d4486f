package ports

// Rules is the slice of the external rules engine this core consumes: board
// state is opaque here, the orchestrator only needs fresh positions when a
// game is created or a round advances.
type Rules interface {
	// StartingPosition returns the serialized board state of a new game.
	StartingPosition() string
}
