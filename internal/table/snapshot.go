package table

import (
	"maps"

	"github.com/lox/tcpoker/internal/deck"
)

// Snapshot is a copy of the table state taken under the lock.
type Snapshot struct {
	Phase      Phase
	Street     Street
	Active     bool
	HandID     string
	Pot        int
	CurrentBet int
	Dealer     int
	Current    string
	Community  []string
	Players    []PlayerSnapshot
	History    []StreetSummary
}

// PlayerSnapshot is one seat in a Snapshot.
type PlayerSnapshot struct {
	Name          string
	Stack         int
	Ready         bool
	Folded        bool
	AntePlaced    bool
	HandSubmitted bool
	LastAction    Action
	Committed     int
	StreetBet     int
	Hand          []string
}

// Snapshot returns the current table state.
func (t *Table) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := Snapshot{
		Phase:      t.phase,
		Street:     t.street,
		Active:     t.active,
		HandID:     t.handID,
		Pot:        t.pot,
		CurrentBet: t.currentBet,
		Dealer:     t.dealer,
		Community:  deck.Strings(t.community),
		Players:    make([]PlayerSnapshot, len(t.players)),
	}
	if t.current != nil {
		s.Current = t.current.Name
	}
	for i, p := range t.players {
		s.Players[i] = PlayerSnapshot{
			Name:          p.Name,
			Stack:         p.Stack,
			Ready:         p.Ready,
			Folded:        p.Folded,
			AntePlaced:    p.AntePlaced,
			HandSubmitted: p.HandSubmitted,
			LastAction:    p.LastAction,
			Committed:     p.Committed,
			StreetBet:     t.streetBets[p],
			Hand:          deck.Strings(p.Hand),
		}
	}
	for _, h := range t.history {
		h.Committed = maps.Clone(h.Committed)
		s.History = append(s.History, h)
	}
	return s
}

// Player returns the snapshot of one seat.
func (s Snapshot) Player(name string) (PlayerSnapshot, bool) {
	for _, p := range s.Players {
		if p.Name == name {
			return p, true
		}
	}
	return PlayerSnapshot{}, false
}

// Total is the number of chips on the table, stacks plus pot.
func (s Snapshot) Total() int {
	total := s.Pot
	for _, p := range s.Players {
		total += p.Stack
	}
	return total
}
