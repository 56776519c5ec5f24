package deck

import (
	"errors"
	rand "math/rand/v2"

	"github.com/lox/tcpoker/internal/randutil"
)

// Size is the number of cards in a full deck.
const Size = 52

var ErrEmpty = errors.New("deck is empty")

// Deck is an ordered, shuffled set of cards dealt from the front. A deck is
// used for exactly one hand.
type Deck struct {
	cards []Card
}

// New returns a full deck shuffled with rng.
func New(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, Size)}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

// NewSeeded returns a full deck whose order is fixed by seed.
func NewSeeded(seed int64) *Deck {
	return New(randutil.New(seed))
}

// Stacked returns a deck that deals cards in the given order. Used to replay
// or script hands.
func Stacked(cards ...Card) *Deck {
	return &Deck{cards: append([]Card(nil), cards...)}
}

// Deal removes and returns the top card from the deck
func (d *Deck) Deal() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrEmpty
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// DealN deals n cards from the deck. It deals nothing if fewer than n remain.
func (d *Deck) DealN(n int) ([]Card, error) {
	if n > len(d.cards) {
		return nil, ErrEmpty
	}
	cards := make([]Card, n)
	copy(cards, d.cards[:n])
	d.cards = d.cards[n:]
	return cards, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}
