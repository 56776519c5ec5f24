// Package evaluator ranks five-card poker hands and picks the best five cards
// out of a larger set.
package evaluator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/lox/tcpoker/internal/deck"
)

// Category is the class of a five-card hand. Higher categories win.
type Category int

const (
	HighCard Category = iota
	OnePair
	TwoPair
	ThreeOfAKind
	Straight
	Flush
	FullHouse
	FourOfAKind
	StraightFlush
	RoyalFlush
)

func (c Category) String() string {
	names := [...]string{
		"High Card", "One Pair", "Two Pair", "Three of a Kind", "Straight",
		"Flush", "Full House", "Four of a Kind", "Straight Flush", "Royal Flush",
	}
	if c < HighCard || c > RoyalFlush {
		return "Unknown"
	}
	return names[c]
}

// HandSize is the number of cards in an evaluated hand.
const HandSize = 5

var ErrInvalidHand = errors.New("invalid hand")

// Rank is the comparable strength of a five-card hand: the category, then
// the tie-break ranks compared lexicographically.
type Rank struct {
	Category Category
	Tiebreak []int
}

// Compare returns 1 if r beats o, -1 if o beats r and 0 for an exact tie.
func (r Rank) Compare(o Rank) int {
	if r.Category != o.Category {
		if r.Category > o.Category {
			return 1
		}
		return -1
	}
	for i := 0; i < len(r.Tiebreak) && i < len(o.Tiebreak); i++ {
		if r.Tiebreak[i] != o.Tiebreak[i] {
			if r.Tiebreak[i] > o.Tiebreak[i] {
				return 1
			}
			return -1
		}
	}
	switch {
	case len(r.Tiebreak) > len(o.Tiebreak):
		return 1
	case len(r.Tiebreak) < len(o.Tiebreak):
		return -1
	}
	return 0
}

func (r Rank) String() string {
	return r.Category.String()
}

type group struct {
	rank  int
	count int
}

// Evaluate ranks exactly five distinct cards.
func Evaluate(hand []deck.Card) (Rank, error) {
	if len(hand) != HandSize {
		return Rank{}, fmt.Errorf("%w: need %d cards, got %d", ErrInvalidHand, HandSize, len(hand))
	}
	seen := make(map[deck.Card]bool, HandSize)
	for _, c := range hand {
		if !c.Valid() {
			return Rank{}, fmt.Errorf("%w: bad card %v", ErrInvalidHand, c)
		}
		if seen[c] {
			return Rank{}, fmt.Errorf("%w: duplicate card %s", ErrInvalidHand, c)
		}
		seen[c] = true
	}
	return evaluate(hand), nil
}

// evaluate assumes five valid distinct cards.
func evaluate(hand []deck.Card) Rank {
	flush := true
	counts := make(map[int]int, HandSize)
	for i, c := range hand {
		if i > 0 && c.Suit != hand[0].Suit {
			flush = false
		}
		counts[int(c.Rank)]++
	}

	// most common first, then highest rank
	groups := make([]group, 0, len(counts))
	for rank, n := range counts {
		groups = append(groups, group{rank: rank, count: n})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].count != groups[j].count {
			return groups[i].count > groups[j].count
		}
		return groups[i].rank > groups[j].rank
	})

	ranks := make([]int, len(groups))
	for i, g := range groups {
		ranks[i] = g.rank
	}

	straight, high := straightHigh(ranks)
	switch {
	case straight && flush && high == int(deck.Ace):
		return Rank{Category: RoyalFlush, Tiebreak: run(high)}
	case straight && flush:
		return Rank{Category: StraightFlush, Tiebreak: run(high)}
	case groups[0].count == 4:
		return Rank{Category: FourOfAKind, Tiebreak: ranks}
	case groups[0].count == 3 && groups[1].count == 2:
		return Rank{Category: FullHouse, Tiebreak: ranks}
	case flush:
		return Rank{Category: Flush, Tiebreak: ranks}
	case straight:
		return Rank{Category: Straight, Tiebreak: run(high)}
	case groups[0].count == 3:
		return Rank{Category: ThreeOfAKind, Tiebreak: ranks}
	case groups[0].count == 2 && groups[1].count == 2:
		return Rank{Category: TwoPair, Tiebreak: ranks}
	case groups[0].count == 2:
		return Rank{Category: OnePair, Tiebreak: ranks}
	}
	return Rank{Category: HighCard, Tiebreak: ranks}
}

// straightHigh reports whether five distinct ranks, sorted descending, form a
// straight and returns its top card. The wheel A-2-3-4-5 plays five high.
func straightHigh(ranks []int) (bool, int) {
	if len(ranks) != HandSize {
		return false, 0
	}
	if ranks[0]-ranks[4] == 4 {
		return true, ranks[0]
	}
	if ranks[0] == int(deck.Ace) && ranks[1] == 5 && ranks[4] == 2 {
		return true, 5
	}
	return false, 0
}

// run lists the five ranks of a straight topped by high; the ace in a wheel
// counts as 1.
func run(high int) []int {
	out := make([]int, HandSize)
	for i := range out {
		out[i] = high - i
	}
	return out
}

// BestOf returns the strongest five-card subset of cards along with its rank.
// Every subset is evaluated; among equal ranks the first found is kept.
func BestOf(cards []deck.Card) ([]deck.Card, Rank, error) {
	if len(cards) < HandSize {
		return nil, Rank{}, fmt.Errorf("%w: need at least %d cards, got %d", ErrInvalidHand, HandSize, len(cards))
	}
	seen := make(map[deck.Card]bool, len(cards))
	for _, c := range cards {
		if !c.Valid() || seen[c] {
			return nil, Rank{}, fmt.Errorf("%w: bad or duplicate card %s", ErrInvalidHand, c)
		}
		seen[c] = true
	}

	var (
		best     []deck.Card
		bestRank Rank
		hand     = make([]deck.Card, HandSize)
	)
	combinations(len(cards), HandSize, func(idx []int) {
		for i, j := range idx {
			hand[i] = cards[j]
		}
		r := evaluate(hand)
		if best == nil || r.Compare(bestRank) > 0 {
			best = append(best[:0], hand...)
			bestRank = r
		}
	})
	return best, bestRank, nil
}

// combinations calls fn with every k-subset of 0..n-1 in lexicographic order.
// The slice passed to fn is reused between calls.
func combinations(n, k int, fn func([]int)) {
	idx := make([]int, k)
	for i := range idx {
		idx[i] = i
	}
	for {
		fn(idx)
		i := k - 1
		for i >= 0 && idx[i] == n-k+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < k; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}

// Winners returns the indexes of the strongest ranks. More than one index
// means an exact tie.
func Winners(ranks []Rank) []int {
	var winners []int
	for i, r := range ranks {
		if len(winners) == 0 {
			winners = []int{i}
			continue
		}
		switch r.Compare(ranks[winners[0]]) {
		case 1:
			winners = []int{i}
		case 0:
			winners = append(winners, i)
		}
	}
	return winners
}
