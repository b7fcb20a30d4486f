package domain

// Colour identifies a side of the board on the wire.
type Colour string

const (
	ColourBlack Colour = "b"
	ColourWhite Colour = "w"
)

// Outcome labels how a round or match concluded.
type Outcome string

const (
	OutcomeAbandoned Outcome = "abandoned"
)

// MillisecondsPerMinute converts a time control in minutes to clock millis.
const MillisecondsPerMinute = 60_000

// Game is the persisted snapshot of one match. The player slice order encodes
// colour assignment for the current round: index 0 plays black, index 1 plays
// white. The order is shuffled once when the match starts and reversed on
// every round advance.
type Game struct {
	Players           []string           `json:"players"`
	Board             string             `json:"board"`
	Wager             int                `json:"wager"`
	TimeControl       int                `json:"timeControl"`
	NRounds           int                `json:"nRounds"`
	Round             int                `json:"round"`
	Finished          bool               `json:"finished"`
	MatchScore        map[string]float64 `json:"matchScore"`
	WalletAddrs       map[string]string  `json:"walletAddrs"`
	TRWhite           int64              `json:"trWhite"`
	TRBlack           int64              `json:"trBlack"`
	LastTurnTimestamp int64              `json:"lastTurnTimestamp"`
}

// PlayerIndex returns the position of the connection in the player order, or
// -1 when the connection is not part of the game.
func (g *Game) PlayerIndex(conn string) int {
	for i, p := range g.Players {
		if p == conn {
			return i
		}
	}
	return -1
}

// OpponentIndex maps a player position to the other seat of a two-player game.
func OpponentIndex(i int) int {
	return 1 - i
}

// OverallWinner compares the accumulated match score of the two players.
// It returns the winning player index and true, or 0 and false on a draw.
// The comparison is positional: indexes refer to the current player order.
func (g *Game) OverallWinner() (int, bool) {
	a := g.MatchScore[g.Players[0]]
	b := g.MatchScore[g.Players[1]]
	switch {
	case a > b:
		return 0, true
	case b > a:
		return 1, true
	default:
		return 0, false
	}
}

// ReversePlayers swaps the colour assignment for the next round.
func (g *Game) ReversePlayers() {
	for i, j := 0, len(g.Players)-1; i < j; i, j = i+1, j-1 {
		g.Players[i], g.Players[j] = g.Players[j], g.Players[i]
	}
}

// ResetClocks restores both clocks to the full time control.
func (g *Game) ResetClocks() {
	tr := int64(g.TimeControl) * MillisecondsPerMinute
	g.TRWhite = tr
	g.TRBlack = tr
}

// RemovePlayer drops the connection from the player order, keeping the
// remaining order intact. Score and wallet entries are kept for history.
func (g *Game) RemovePlayer(conn string) {
	for i, p := range g.Players {
		if p == conn {
			g.Players = append(g.Players[:i], g.Players[i+1:]...)
			return
		}
	}
}
