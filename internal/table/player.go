package table

import (
	"github.com/lox/tcpoker/internal/deck"
	"github.com/lox/tcpoker/internal/protocol"
)

// Action is the last betting decision a player made this street.
type Action int

const (
	ActionNone Action = iota
	ActionCheck
	ActionBet
	ActionCall
	ActionRaise
	ActionFold
)

func (a Action) String() string {
	return [...]string{"none", "check", "bet", "call", "raise", "fold"}[a]
}

// Sink receives events addressed to one seated player. Send must not block.
type Sink interface {
	Send(ev protocol.Event)
}

// Player is a seat at the table. Players are owned by the Table and only
// touched with the table lock held.
type Player struct {
	Name          string
	Stack         int
	Hand          []deck.Card
	Ready         bool
	Folded        bool
	AntePlaced    bool
	HandSubmitted bool
	LastAction    Action
	Committed     int // chips put in the pot this hand

	sink Sink
}

func newPlayer(name string, stack int, sink Sink) *Player {
	return &Player{Name: name, Stack: stack, sink: sink}
}

func (p *Player) send(ev protocol.Event) {
	if p.sink != nil {
		p.sink.Send(ev)
	}
}

// resetForHand clears everything scoped to a single hand. Ready is left alone.
func (p *Player) resetForHand() {
	p.Hand = nil
	p.Folded = false
	p.AntePlaced = false
	p.HandSubmitted = false
	p.LastAction = ActionNone
	p.Committed = 0
}
