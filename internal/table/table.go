// Package table runs a single poker table: the lobby, the per-hand phase
// machine, the betting engine, showdown and payout.
//
// A Table is a mutex-guarded aggregate. Sessions call Join, Handle and Leave
// from their own goroutines; each hand is driven by one goroutine that waits
// on re-armable signals between phases and can be cancelled when a seated
// player disconnects.
package table

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/tcpoker/internal/deck"
	"github.com/lox/tcpoker/internal/evaluator"
	"github.com/lox/tcpoker/internal/handid"
	"github.com/lox/tcpoker/internal/protocol"
	"github.com/lox/tcpoker/internal/randutil"
)

// Phase is where the table is in the hand cycle.
type Phase int

const (
	PhaseLobby Phase = iota
	PhaseAnte
	PhaseDeal
	PhaseBetting
	PhaseShowdown
	PhasePayout
)

func (p Phase) String() string {
	return [...]string{"lobby", "ante", "deal", "betting", "showdown", "payout"}[p]
}

// Street is one of the four betting rounds.
type Street int

const (
	Preflop Street = iota
	Flop
	Turn
	River
)

func (s Street) String() string {
	return [...]string{"preflop", "flop", "turn", "river"}[s]
}

// Config holds the fixed parameters of a table.
type Config struct {
	Capacity      int
	Ante          int
	StartingStack int
	AutoSolve     bool
	TurnTimeout   time.Duration // zero waits forever
}

// Option customises a Table.
type Option func(*Table)

// WithClock sets the clock used for turn timeouts.
func WithClock(clock quartz.Clock) Option {
	return func(t *Table) { t.clock = clock }
}

// WithRand sets the generator used to shuffle each hand's deck.
func WithRand(rng *rand.Rand) Option {
	return func(t *Table) { t.rng = rng }
}

// WithDeck replaces the shuffled deck with one built by fn for every hand.
func WithDeck(fn func() *deck.Deck) Option {
	return func(t *Table) { t.newDeck = fn }
}

// WithHandIDs sets the generator for hand identifiers.
func WithHandIDs(ids *handid.Generator) Option {
	return func(t *Table) { t.ids = ids }
}

type shownHand struct {
	cards []deck.Card
	rank  evaluator.Rank
}

// Table is the authoritative game state. All fields below mu are guarded by it.
type Table struct {
	cfg    Config
	logger *log.Logger
	clock  quartz.Clock
	rng    *rand.Rand
	ids    *handid.Generator

	newDeck func() *deck.Deck

	ctx  context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	players    []*Player
	phase      Phase
	street     Street
	active     bool
	handID     string
	deck       *deck.Deck
	pot        int
	community  []deck.Card
	dealer     int
	currentBet int
	streetBets map[*Player]int
	lastBettor *Player
	current    *Player
	turn       uint64
	turnTimer  *quartz.Timer
	bestHands  map[*Player]shownHand
	history    []StreetSummary
	cancelHand context.CancelFunc

	antesIn  *signal
	turnDone *signal
	handsIn  *signal
}

// New creates an empty table in the lobby.
func New(cfg Config, logger *log.Logger, opts ...Option) *Table {
	ctx, stop := context.WithCancel(context.Background())
	t := &Table{
		cfg:        cfg,
		logger:     logger.WithPrefix("table"),
		clock:      quartz.NewReal(),
		ids:        handid.NewGenerator(nil),
		ctx:        ctx,
		stop:       stop,
		streetBets: make(map[*Player]int),
		bestHands:  make(map[*Player]shownHand),
		antesIn:    newSignal(),
		turnDone:   newSignal(),
		handsIn:    newSignal(),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.rng == nil {
		t.rng = randutil.New(randutil.Seed(0))
	}
	if t.newDeck == nil {
		t.newDeck = func() *deck.Deck { return deck.New(t.rng) }
	}
	return t
}

// Config returns the table parameters.
func (t *Table) Config() Config {
	return t.cfg
}

// Close aborts any hand in progress and waits for its goroutine to exit.
// Seated players may still leave, but nobody can join or start a hand.
func (t *Table) Close() {
	t.mu.Lock()
	t.closed = true
	if t.active {
		t.abortLocked("the table is closing")
	}
	t.mu.Unlock()
	t.stop()
	t.wg.Wait()
}

// Join seats a new player. The sink receives every event addressed to them.
func (t *Table) Join(name string, sink Sink) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrClosed
	}
	if t.playerLocked(name) != nil {
		return fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	if len(t.players) >= t.cfg.Capacity {
		return fmt.Errorf("%w: %d/%d seats taken", ErrTableFull, len(t.players), t.cfg.Capacity)
	}

	p := newPlayer(name, t.cfg.StartingStack, sink)
	t.players = append(t.players, p)
	t.logger.Info("Player joined", "player", name, "seats", len(t.players), "capacity", t.cfg.Capacity)

	t.broadcastLocked(protocol.Broadcast(fmt.Sprintf("%s has joined the table.", name)))
	p.send(protocol.StackUpdate(p.Stack))
	return nil
}

// Leave removes a player. Leaving during a hand aborts it.
func (t *Table) Leave(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	idx := t.seatLocked(name)
	if idx < 0 {
		return
	}
	t.players = append(t.players[:idx], t.players[idx+1:]...)
	t.logger.Info("Player left", "player", name, "seats", len(t.players))
	t.broadcastLocked(protocol.Broadcast(fmt.Sprintf("%s has left the table.", name)))

	if t.active {
		t.abortLocked(fmt.Sprintf("%s disconnected", name))
	} else if len(t.players) > 0 {
		t.dealer %= len(t.players)
	}
}

// Handle applies one command from a seated player. A returned error means the
// command was rejected and nothing changed.
func (t *Table) Handle(name string, cmd protocol.Command) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	p := t.playerLocked(name)
	if p == nil {
		return fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
	}

	switch c := cmd.(type) {
	case protocol.Status:
		p.send(t.statusLocked())
		return nil
	case protocol.Exit:
		// the session closes the connection, Leave does the rest
		return nil
	case protocol.Ready:
		return t.readyLocked(p)
	case protocol.Ante:
		return t.anteLocked(p, c.Amount)
	case protocol.Check:
		return t.actLocked(p, ActionCheck, 0)
	case protocol.Bet:
		return t.actLocked(p, ActionBet, c.Amount)
	case protocol.Call:
		return t.actLocked(p, ActionCall, 0)
	case protocol.Raise:
		return t.actLocked(p, ActionRaise, c.Amount)
	case protocol.Fold:
		return t.actLocked(p, ActionFold, 0)
	case protocol.SubmitHand:
		return t.submitLocked(p, c.Picks)
	default:
		return fmt.Errorf("%w: %s", ErrIllegalAction, cmd.Verb())
	}
}

func (t *Table) readyLocked(p *Player) error {
	if t.closed {
		return ErrClosed
	}
	if t.phase != PhaseLobby {
		return fmt.Errorf("%w: ready only in the lobby", ErrWrongPhase)
	}
	if p.Stack < t.cfg.Ante {
		return fmt.Errorf("%w: stack %d is below the ante %d", ErrInsufficientStack, p.Stack, t.cfg.Ante)
	}
	if p.Ready {
		return nil
	}
	p.Ready = true
	t.broadcastLocked(protocol.Broadcast(fmt.Sprintf("%s is ready.", p.Name)))

	if len(t.players) < t.cfg.Capacity {
		return nil
	}
	for _, other := range t.players {
		if !other.Ready {
			return nil
		}
	}
	t.startHandLocked()
	return nil
}

func (t *Table) statusLocked() protocol.StatusReport {
	report := make(protocol.StatusReport, len(t.players))
	for _, p := range t.players {
		report[p.Name] = p.Ready
	}
	return report
}

func (t *Table) playerLocked(name string) *Player {
	if idx := t.seatLocked(name); idx >= 0 {
		return t.players[idx]
	}
	return nil
}

func (t *Table) seatLocked(name string) int {
	for i, p := range t.players {
		if p.Name == name {
			return i
		}
	}
	return -1
}

func (t *Table) broadcastLocked(ev protocol.Event) {
	for _, p := range t.players {
		p.send(ev)
	}
}

func (t *Table) broadcastExceptLocked(skip *Player, ev protocol.Event) {
	for _, p := range t.players {
		if p != skip {
			p.send(ev)
		}
	}
}

// orderLocked returns the seated players starting at offset from the dealer.
func (t *Table) orderLocked(offset int) []*Player {
	n := len(t.players)
	out := make([]*Player, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, t.players[(i+t.dealer+offset)%n])
	}
	return out
}

func (t *Table) liveLocked(offset int) []*Player {
	var live []*Player
	for _, p := range t.orderLocked(offset) {
		if !p.Folded {
			live = append(live, p)
		}
	}
	return live
}
