package domain

import "testing"

func newTwoPlayerGame() *Game {
	return &Game{
		Players:     []string{"p0", "p1"},
		TimeControl: 5,
		NRounds:     3,
		Round:       1,
		MatchScore:  map[string]float64{"p0": 0, "p1": 0},
		WalletAddrs: map[string]string{"p0": "0xa", "p1": "0xb"},
	}
}

func TestOverallWinnerPositional(t *testing.T) {
	g := newTwoPlayerGame()
	g.MatchScore["p0"] = 3
	g.MatchScore["p1"] = 1

	idx, decisive := g.OverallWinner()
	if !decisive {
		t.Fatalf("expected decisive result")
	}
	if idx != 0 {
		t.Fatalf("winner index = %d, want 0", idx)
	}

	// Reversing the order must flip the winning index, not the player.
	g.ReversePlayers()
	idx, decisive = g.OverallWinner()
	if !decisive || idx != 1 {
		t.Fatalf("after reverse winner index = %d decisive=%v, want 1 true", idx, decisive)
	}
}

func TestOverallWinnerDraw(t *testing.T) {
	g := newTwoPlayerGame()
	g.MatchScore["p0"] = 1.5
	g.MatchScore["p1"] = 1.5

	if _, decisive := g.OverallWinner(); decisive {
		t.Fatalf("equal scores must be a draw")
	}
}

func TestResetClocks(t *testing.T) {
	g := newTwoPlayerGame()
	g.TRWhite = 120
	g.TRBlack = 45
	g.ResetClocks()
	if g.TRWhite != 5*MillisecondsPerMinute || g.TRBlack != 5*MillisecondsPerMinute {
		t.Fatalf("clocks = %d/%d, want full time control", g.TRWhite, g.TRBlack)
	}
}

func TestPlayerIndexAndOpponent(t *testing.T) {
	g := newTwoPlayerGame()
	if got := g.PlayerIndex("p1"); got != 1 {
		t.Fatalf("index = %d, want 1", got)
	}
	if got := g.PlayerIndex("stranger"); got != -1 {
		t.Fatalf("index = %d, want -1", got)
	}
	if OpponentIndex(0) != 1 || OpponentIndex(1) != 0 {
		t.Fatalf("opponent mapping broken")
	}
}

func TestRemovePlayerKeepsHistory(t *testing.T) {
	g := newTwoPlayerGame()
	g.RemovePlayer("p0")
	if len(g.Players) != 1 || g.Players[0] != "p1" {
		t.Fatalf("players = %v, want [p1]", g.Players)
	}
	if _, ok := g.MatchScore["p0"]; !ok {
		t.Fatalf("score history should be kept")
	}
}
