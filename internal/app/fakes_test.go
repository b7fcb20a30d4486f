package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"wagerchess/internal/domain"
	"wagerchess/internal/ports"
)

// fakeStore keeps snapshots in memory, round-tripping them through JSON so
// callers never share pointers with the "persisted" copy.
type fakeStore struct {
	mu       sync.Mutex
	games    map[string][]byte
	counters map[string]int64
	getCalls int
	saveErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{games: make(map[string][]byte), counters: make(map[string]int64)}
}

func (f *fakeStore) Get(_ context.Context, gameID string) (*domain.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	data, ok := f.games[gameID]
	if !ok {
		return nil, ports.ErrNoSnapshot
	}
	var g domain.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (f *fakeStore) Save(_ context.Context, gameID string, game *domain.Game) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	data, err := json.Marshal(game)
	if err != nil {
		return err
	}
	f.games[gameID] = data
	return nil
}

func (f *fakeStore) Delete(_ context.Context, gameID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.games, gameID)
	return nil
}

func (f *fakeStore) CountInProgress(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.games), nil
}

func (f *fakeStore) IncrCounter(_ context.Context, name string, delta int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[name] += delta
	return nil
}

// snapshot returns the stored game, or nil when nothing is persisted.
func (f *fakeStore) snapshot(gameID string) *domain.Game {
	g, err := f.Get(context.Background(), gameID)
	if err != nil {
		return nil
	}
	return g
}

type publishRec struct {
	Exchange   string
	RoutingKey string
	Body       []byte
}

type bindRec struct {
	Queue      string
	Exchange   string
	RoutingKey string
}

type fakeBroker struct {
	mu              sync.Mutex
	exchanges       map[string]int
	exchangeDeletes map[string]int
	queues          []string
	binds           []bindRec
	unbinds         []bindRec
	queueDeletes    []string
	published       []publishRec
	handlers        map[string]ports.MessageHandler
	cancelled       []string
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{
		exchanges:       make(map[string]int),
		exchangeDeletes: make(map[string]int),
		handlers:        make(map[string]ports.MessageHandler),
	}
}

func (f *fakeBroker) ExchangeDeclare(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchanges[name]++
	return nil
}

func (f *fakeBroker) ExchangeDelete(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exchangeDeletes[name]++
	return nil
}

func (f *fakeBroker) QueueDeclare(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queues = append(f.queues, name)
	return nil
}

func (f *fakeBroker) QueueBind(_ context.Context, queue, exchange, routingKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.binds = append(f.binds, bindRec{queue, exchange, routingKey})
	return nil
}

func (f *fakeBroker) QueueUnbind(_ context.Context, queue, exchange, routingKey string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unbinds = append(f.unbinds, bindRec{queue, exchange, routingKey})
	return nil
}

func (f *fakeBroker) QueueDelete(_ context.Context, queue string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queueDeletes = append(f.queueDeletes, queue)
	return nil
}

func (f *fakeBroker) Publish(_ context.Context, exchange, routingKey string, body []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, publishRec{exchange, routingKey, body})
	return nil
}

func (f *fakeBroker) Consume(queue string, handler ports.MessageHandler) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[queue] = handler
	return queue, nil
}

func (f *fakeBroker) Cancel(tag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, tag)
	return nil
}

func (f *fakeBroker) publishedEvents() []publishRec {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]publishRec, len(f.published))
	copy(out, f.published)
	return out
}

type emitRec struct {
	Conn  string
	Event string
	Data  any
}

type fakeGateway struct {
	mu       sync.Mutex
	emits    []emitRec
	attempts int
	failFor  int // fail this many emit calls before succeeding

	entered []string
	left    []string
	closed  []string
}

func (f *fakeGateway) Emit(_ context.Context, conn, event string, data any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	if f.failFor > 0 {
		f.failFor--
		return errors.New("transport down")
	}
	f.emits = append(f.emits, emitRec{conn, event, data})
	return nil
}

func (f *fakeGateway) EnterRoom(conn, room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entered = append(f.entered, conn+"/"+room)
}

func (f *fakeGateway) LeaveRoom(conn, room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.left = append(f.left, conn+"/"+room)
}

func (f *fakeGateway) CloseRoom(room string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, room)
}

func (f *fakeGateway) emitted(event string) []emitRec {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []emitRec
	for _, e := range f.emits {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeSettlement struct {
	mu      sync.Mutex
	cancels []string
	winners []string // "gameID/walletAddr"
	draws   []string
}

func (f *fakeSettlement) CancelGame(_ context.Context, gameID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels = append(f.cancels, gameID)
	return nil
}

func (f *fakeSettlement) DeclareWinner(_ context.Context, gameID, walletAddr string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.winners = append(f.winners, fmt.Sprintf("%s/%s", gameID, walletAddr))
	return nil
}

func (f *fakeSettlement) DeclareDraw(_ context.Context, gameID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draws = append(f.draws, gameID)
	return nil
}

type fakeRules struct{}

func (fakeRules) StartingPosition() string { return "fresh-board" }
