package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"slices"
	"time"

	"wagerchess/internal/domain"
	"wagerchess/internal/ports"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Limits holds the admission bounds and operational knobs of the orchestrator.
type Limits struct {
	ConcurrentGames int
	WagerMin        int
	WagerMax        int
	TimeControls    []int
	RoundsMin       int
	RoundsMax       int
	RoundCooldown   time.Duration
	MaxEmitAttempts int
}

// Deps are the collaborators a Service operates against.
type Deps struct {
	Store      ports.GameStore
	Broker     ports.Broker
	Gateway    ports.Gateway
	Settlement ports.Settlement
	Rules      ports.Rules
	Limits     Limits
	Log        *zap.SugaredLogger
	RNG        *rand.Rand
}

// Service orchestrates live match sessions: lifecycle, the round/match state
// machine, per-game messaging topology and best-effort delivery. All methods
// are safe for the single-threaded-per-connection dispatch model of the
// gateway; shared snapshot mutation across instances is unsynchronized by
// design (last write wins).
type Service struct {
	store      ports.GameStore
	broker     ports.Broker
	gateway    ports.Gateway
	settlement ports.Settlement
	rules      ports.Rules
	reg        *Registry
	limits     Limits
	log        *zap.SugaredLogger
	rng        *rand.Rand

	newID func() string
	now   func() int64
}

// NewService constructs a Service with the provided rng or a time-seeded default.
func NewService(deps Deps) *Service {
	rng := deps.RNG
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{
		store:      deps.Store,
		broker:     deps.Broker,
		gateway:    deps.Gateway,
		settlement: deps.Settlement,
		rules:      deps.Rules,
		reg:        NewRegistry(),
		limits:     deps.Limits,
		log:        deps.Log,
		rng:        rng,
		newID:      uuid.NewString,
		now:        func() int64 { return time.Now().UnixMilli() },
	}
}

// QueueName derives the broker queue name for a player of a game.
func QueueName(gameID, conn string) string {
	return gameID + "." + conn
}

// Create admits and registers a new single-player game, builds its fan-out
// topology and tells the creator the game id.
func (s *Service) Create(ctx context.Context, conn string, timeControl, wager int, walletAddr string, nRounds int) error {
	if err := s.validateCreation(ctx, timeControl, wager, nRounds); err != nil {
		return err
	}

	gid := s.newID()
	s.gateway.EnterRoom(conn, gid)

	tr := int64(timeControl) * domain.MillisecondsPerMinute
	game := &domain.Game{
		Players:     []string{conn},
		Board:       s.rules.StartingPosition(),
		Wager:       wager,
		TimeControl: timeControl,
		NRounds:     nRounds,
		Round:       1,
		MatchScore:  map[string]float64{conn: 0},
		WalletAddrs: map[string]string{conn: walletAddr},
		TRWhite:     tr,
		TRBlack:     tr,
	}

	s.reg.BindConn(conn, gid)
	if err := s.saveGame(ctx, gid, game); err != nil {
		return err
	}

	// Private ack with the game id; no second party exists yet, so this
	// bypasses the fan-out.
	if err := s.gateway.Emit(ctx, conn, EventGameID, gid); err != nil {
		s.log.Errorf("emit gameId to %s failed: %v", conn, err)
	}

	if err := s.broker.ExchangeDeclare(ctx, gid); err != nil {
		return fmt.Errorf("declare exchange for game %s: %w", gid, err)
	}
	if err := s.bindPlayerQueue(ctx, gid, conn); err != nil {
		return err
	}
	return s.startListener(gid, conn)
}

// GameDetails lets a prospective joiner review the terms before accepting.
func (s *Service) GameDetails(ctx context.Context, conn, gameID string) error {
	if _, err := uuid.Parse(gameID); err != nil {
		return &ValidationError{Msg: "invalid game code"}
	}

	game, err := s.getGame(ctx, gameID)
	if err != nil {
		return err
	}
	if len(game.Players) >= 2 {
		return &ValidationError{Msg: "this game already has two players"}
	}

	info := GameInfoPayload{
		WagerAmount: game.Wager,
		TimeControl: game.TimeControl,
		TotalRounds: game.NRounds,
	}
	if err := s.gateway.Emit(ctx, conn, EventGameInfo, info); err != nil {
		s.log.Errorf("emit gameInfo to %s failed: %v", conn, err)
	}
	return nil
}

// Accept joins the second player, randomizes colours, wires the joiner's
// queue and announces the first round to both players.
func (s *Service) Accept(ctx context.Context, conn, gameID, walletAddr string) error {
	game, err := s.getGame(ctx, gameID)
	if err != nil {
		return err
	}
	if len(game.Players) >= 2 {
		return &ValidationError{Msg: "this game already has two players"}
	}

	s.gateway.EnterRoom(conn, gameID)
	game.Players = append(game.Players, conn)
	game.WalletAddrs[conn] = walletAddr
	game.MatchScore[conn] = 0

	s.reg.BindConn(conn, gameID)

	// Randomly pick black and white.
	s.rng.Shuffle(len(game.Players), func(i, j int) {
		game.Players[i], game.Players[j] = game.Players[j], game.Players[i]
	})

	if err := s.bindPlayerQueue(ctx, gameID, conn); err != nil {
		return err
	}
	if err := s.startListener(gameID, conn); err != nil {
		return err
	}

	game.LastTurnTimestamp = s.now()
	if err := s.saveGame(ctx, gameID, game); err != nil {
		return err
	}

	s.publishStartEvents(ctx, gameID, game)

	if err := s.store.IncrCounter(ctx, "n_games", 1); err != nil {
		s.log.Errorf("increment n_games failed: %v", err)
	}
	if err := s.store.IncrCounter(ctx, "total_wagered", int64(game.Wager)*2); err != nil {
		s.log.Errorf("increment total_wagered failed: %v", err)
	}
	return nil
}

// Cancel lets the creator cash out before an opponent joins. When the ledger
// game was already created externally, the settlement cancellation runs first.
func (s *Service) Cancel(ctx context.Context, conn string, createdOnContract bool) error {
	gid, ok := s.reg.GameFor(conn)
	if !ok {
		return &NotFoundError{Msg: "no active game for this session"}
	}
	game, err := s.getGame(ctx, gid)
	if err != nil {
		return err
	}

	if createdOnContract {
		if err := s.settlement.CancelGame(ctx, gid); err != nil {
			return err
		}
	}

	if err := s.gateway.Emit(ctx, conn, EventGameCancelled, nil); err != nil {
		s.log.Errorf("emit gameCancelled to %s failed: %v", conn, err)
	}
	return s.clearGame(ctx, conn, game, gid)
}

// EndOfRound advances the round/match state machine once per completed round.
// The game argument is the in-memory snapshot holding the round's score
// update; on a non-final round the snapshot is re-fetched after the cooldown
// because a concurrent abandonment may have finished the match meanwhile.
func (s *Service) EndOfRound(ctx context.Context, gameID string, game *domain.Game) error {
	if game.Round == game.NRounds {
		return s.endMatch(ctx, gameID, game)
	}
	return s.advanceRound(ctx, gameID, game)
}

func (s *Service) endMatch(ctx context.Context, gameID string, game *domain.Game) error {
	var overall *int
	if idx, decisive := game.OverallWinner(); decisive {
		overall = &idx
	}

	s.publish(ctx, gameID, BroadcastKey, Event{Name: EventMatchEnded, Data: MatchEndedPayload{OverallWinner: overall}})

	game.Finished = true
	if err := s.saveGame(ctx, gameID, game); err != nil {
		return err
	}

	// Declared exactly once per match conclusion; never retried here.
	if overall != nil {
		return s.settlement.DeclareWinner(ctx, gameID, game.WalletAddrs[game.Players[*overall]])
	}
	return s.settlement.DeclareDraw(ctx, gameID)
}

func (s *Service) advanceRound(ctx context.Context, gameID string, game *domain.Game) error {
	score := game.MatchScore

	// Cooldown before the next round. A disconnect during this window marks
	// the stored snapshot finished, which is why it is re-fetched below.
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.limits.RoundCooldown):
	}

	game, err := s.getGame(ctx, gameID)
	if err != nil {
		return err
	}

	game.Round++
	game.MatchScore = score
	game.Board = s.rules.StartingPosition()
	game.ReversePlayers()
	game.ResetClocks()
	game.LastTurnTimestamp = s.now()

	if err := s.saveGame(ctx, gameID, game); err != nil {
		return err
	}

	if !game.Finished {
		s.publishStartEvents(ctx, gameID, game)
	}
	return nil
}

// HandleExit processes a disconnect notification. It is idempotent: without a
// registry entry for the connection it is a no-op.
func (s *Service) HandleExit(ctx context.Context, conn string) error {
	gid, ok := s.reg.GameFor(conn)
	if !ok {
		return nil
	}
	game, err := s.getGame(ctx, gid)
	if err != nil {
		return err
	}

	// A stale registry entry can point at a snapshot that no longer lists
	// the connection (rewritten by another instance); only a seated player
	// forfeits.
	if idx := game.PlayerIndex(conn); idx >= 0 && len(game.Players) > 1 && !game.Finished {
		// Leaving an unfinished match forfeits it to the opponent.
		winner := domain.OpponentIndex(idx)
		s.publish(ctx, gid, BroadcastKey, Event{Name: EventMove, Data: MovePayload{
			Winner:     winner,
			Outcome:    domain.OutcomeAbandoned,
			MatchScore: game.MatchScore,
		}})
		s.publish(ctx, gid, BroadcastKey, Event{Name: EventMatchEnded, Data: MatchEndedPayload{OverallWinner: &winner}})

		game.Finished = true
		if err := s.saveGame(ctx, gid, game); err != nil {
			return err
		}
		if err := s.settlement.DeclareWinner(ctx, gid, game.WalletAddrs[game.Players[winner]]); err != nil {
			return err
		}
	}

	return s.clearGame(ctx, conn, game, gid)
}

// clearGame tears down one player's share of the session: registry entry,
// queue bindings and room membership. The last player to leave also takes
// the exchange, the tracked consumers and the snapshot with them.
func (s *Service) clearGame(ctx context.Context, conn string, game *domain.Game, gameID string) error {
	s.log.Infof("clearing game %s (connection %s)", gameID, conn)

	s.reg.UnbindConn(conn)

	queue := QueueName(gameID, conn)
	if err := s.broker.QueueUnbind(ctx, queue, gameID, conn); err != nil {
		s.log.Errorf("unbind %s from %s: %v", queue, conn, err)
	}
	if err := s.broker.QueueUnbind(ctx, queue, gameID, BroadcastKey); err != nil {
		s.log.Errorf("unbind %s from broadcast: %v", queue, err)
	}
	if err := s.broker.QueueDelete(ctx, queue); err != nil {
		s.log.Errorf("delete queue %s: %v", queue, err)
	}
	s.gateway.LeaveRoom(conn, gameID)

	if len(game.Players) > 1 {
		game.RemovePlayer(conn)
		return s.saveGame(ctx, gameID, game)
	}

	s.gateway.CloseRoom(gameID)
	for _, tag := range s.reg.Consumers(gameID) {
		if err := s.broker.Cancel(tag); err != nil {
			s.log.Errorf("cancel consumer %s: %v", tag, err)
		}
	}
	s.reg.DropConsumers(gameID)
	if err := s.broker.ExchangeDelete(ctx, gameID); err != nil {
		s.log.Errorf("delete exchange %s: %v", gameID, err)
	}
	if err := s.store.Delete(ctx, gameID); err != nil {
		return &StoreError{Op: "delete", Err: err}
	}
	return nil
}

func (s *Service) validateCreation(ctx context.Context, timeControl, wager, nRounds int) error {
	inProgress, err := s.store.CountInProgress(ctx)
	if err != nil {
		return &StoreError{Op: "count", Err: err}
	}
	if inProgress >= s.limits.ConcurrentGames {
		return &ValidationError{Msg: "server at capacity, please come back later"}
	}
	if wager < s.limits.WagerMin || wager > s.limits.WagerMax {
		return &ValidationError{Msg: fmt.Sprintf("invalid wager, must be between %d and %d", s.limits.WagerMin, s.limits.WagerMax)}
	}
	if !slices.Contains(s.limits.TimeControls, timeControl) {
		return &ValidationError{Msg: "invalid time control"}
	}
	if nRounds < s.limits.RoundsMin || nRounds > s.limits.RoundsMax {
		return &ValidationError{Msg: fmt.Sprintf("number of rounds must be between %d and %d", s.limits.RoundsMin, s.limits.RoundsMax)}
	}
	return nil
}

func (s *Service) bindPlayerQueue(ctx context.Context, gameID, conn string) error {
	queue := QueueName(gameID, conn)
	if err := s.broker.QueueDeclare(ctx, queue); err != nil {
		return fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := s.broker.QueueBind(ctx, queue, gameID, conn); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", queue, conn, err)
	}
	if err := s.broker.QueueBind(ctx, queue, gameID, BroadcastKey); err != nil {
		return fmt.Errorf("bind queue %s to broadcast: %w", queue, err)
	}
	return nil
}

// startListener consumes the player's queue and forwards each decoded event
// to the delivery wrapper targeting that connection.
func (s *Service) startListener(gameID, conn string) error {
	s.log.Infof("initialising listener for game %s, connection %s", gameID, conn)

	tag, err := s.broker.Consume(QueueName(gameID, conn), func(body []byte) {
		var ev Event
		if err := json.Unmarshal(body, &ev); err != nil {
			s.log.Errorf("decode event for %s: %v", conn, err)
			return
		}
		s.deliver(conn, ev)
	})
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", QueueName(gameID, conn), err)
	}
	s.reg.AddConsumer(gameID, tag)
	return nil
}

// publish routes an event through the game's exchange. Publish failures are
// logged, not surfaced: listeners are the delivery path of record.
func (s *Service) publish(ctx context.Context, gameID, routingKey string, ev Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		s.log.Errorf("marshal event %s: %v", ev.Name, err)
		return
	}
	if err := s.broker.Publish(ctx, gameID, routingKey, body); err != nil {
		s.log.Errorf("publish %s to game %s: %v", ev.Name, gameID, err)
	}
}

// publishStartEvents tells each player their colour for the round: player
// index 0 receives black, index 1 receives white.
func (s *Service) publishStartEvents(ctx context.Context, gameID string, game *domain.Game) {
	for i, colour := range []domain.Colour{domain.ColourBlack, domain.ColourWhite} {
		s.publish(ctx, gameID, game.Players[i], Event{Name: EventStart, Data: StartPayload{
			Colour:        colour,
			TimeRemaining: game.TRWhite,
			Round:         game.Round,
			TotalRounds:   game.NRounds,
		}})
	}
}

func (s *Service) getGame(ctx context.Context, gameID string) (*domain.Game, error) {
	game, err := s.store.Get(ctx, gameID)
	if err != nil {
		if errors.Is(err, ports.ErrNoSnapshot) {
			return nil, &NotFoundError{Msg: "game not found"}
		}
		return nil, &StoreError{Op: "get", Err: err}
	}
	return game, nil
}

func (s *Service) saveGame(ctx context.Context, gameID string, game *domain.Game) error {
	if err := s.store.Save(ctx, gameID, game); err != nil {
		return &StoreError{Op: "save", Err: err}
	}
	return nil
}
