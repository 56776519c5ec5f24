package deck

import (
	"errors"
	"fmt"
	"strings"
)

// Suit represents a card suit. Suits never break ties.
type Suit int

const (
	Spades Suit = iota
	Hearts
	Diamonds
	Clubs
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Diamonds:
		return "♦"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Rank represents a card rank
type Rank int

const (
	Two Rank = iota + 2
	Three
	Four
	Five
	Six
	Seven
	Eight
	Nine
	Ten
	Jack
	Queen
	King
	Ace
)

// String returns the string representation of a rank
func (r Rank) String() string {
	switch {
	case r >= Two && r <= Nine:
		return string(rune('0' + int(r)))
	case r == Ten:
		return "T"
	case r == Jack:
		return "J"
	case r == Queen:
		return "Q"
	case r == King:
		return "K"
	case r == Ace:
		return "A"
	default:
		return "?"
	}
}

// Card represents a playing card
type Card struct {
	Rank Rank
	Suit Suit
}

// NewCard creates a new card
func NewCard(rank Rank, suit Suit) Card {
	return Card{Rank: rank, Suit: suit}
}

// String returns the wire form of a card, e.g. "A♠" or "T♥".
func (c Card) String() string {
	return c.Rank.String() + c.Suit.String()
}

// Valid reports whether c is one of the 52 cards.
func (c Card) Valid() bool {
	return c.Rank >= Two && c.Rank <= Ace && c.Suit >= Spades && c.Suit <= Clubs
}

var ErrInvalidCard = errors.New("invalid card")

// Parse reads a card label. Ranks are 2-9, T (or 10), J, Q, K, A; suits are
// either the symbols ♠♥♦♣ or the letters s, h, d, c. Case is ignored.
func Parse(s string) (Card, error) {
	label := strings.TrimSpace(s)
	if label == "" {
		return Card{}, fmt.Errorf("%w: empty label", ErrInvalidCard)
	}

	var rankPart, suitPart string
	if strings.HasPrefix(label, "10") {
		rankPart, suitPart = "T", label[2:]
	} else {
		rankPart, suitPart = label[:1], label[1:]
	}

	rank, ok := parseRank(rankPart)
	if !ok {
		return Card{}, fmt.Errorf("%w: bad rank in %q", ErrInvalidCard, s)
	}
	suit, ok := parseSuit(suitPart)
	if !ok {
		return Card{}, fmt.Errorf("%w: bad suit in %q", ErrInvalidCard, s)
	}
	return Card{Rank: rank, Suit: suit}, nil
}

// ParseCards parses whitespace separated labels, e.g. "A♥ K♥ Q♥".
func ParseCards(s string) ([]Card, error) {
	fields := strings.Fields(s)
	cards := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := Parse(f)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// Strings renders cards in wire form.
func Strings(cards []Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.String()
	}
	return out
}

func parseRank(s string) (Rank, bool) {
	switch strings.ToUpper(s) {
	case "2", "3", "4", "5", "6", "7", "8", "9":
		return Rank(s[0] - '0'), true
	case "T":
		return Ten, true
	case "J":
		return Jack, true
	case "Q":
		return Queen, true
	case "K":
		return King, true
	case "A":
		return Ace, true
	}
	return 0, false
}

func parseSuit(s string) (Suit, bool) {
	switch strings.ToLower(s) {
	case "♠", "s":
		return Spades, true
	case "♥", "h":
		return Hearts, true
	case "♦", "d":
		return Diamonds, true
	case "♣", "c":
		return Clubs, true
	}
	return 0, false
}
