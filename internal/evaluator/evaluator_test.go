package evaluator

import (
	"testing"

	"github.com/chehsunliu/poker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/tcpoker/internal/deck"
	"github.com/lox/tcpoker/internal/randutil"
)

func cards(t *testing.T, s string) []deck.Card {
	t.Helper()
	cs, err := deck.ParseCards(s)
	require.NoError(t, err)
	return cs
}

func eval(t *testing.T, s string) Rank {
	t.Helper()
	r, err := Evaluate(cards(t, s))
	require.NoError(t, err)
	return r
}

func TestEvaluateCategories(t *testing.T) {
	tests := []struct {
		name     string
		hand     string
		category Category
		tiebreak []int
	}{
		{"royal flush", "A♥ K♥ Q♥ J♥ T♥", RoyalFlush, []int{14, 13, 12, 11, 10}},
		{"straight flush", "2♥ 3♥ 4♥ 5♥ 6♥", StraightFlush, []int{6, 5, 4, 3, 2}},
		{"steel wheel", "A♣ 2♣ 3♣ 4♣ 5♣", StraightFlush, []int{5, 4, 3, 2, 1}},
		{"four of a kind", "9♠ 9♥ 9♦ 9♣ K♠", FourOfAKind, []int{9, 13}},
		{"full house", "K♠ K♣ K♦ 5♥ 5♣", FullHouse, []int{13, 5}},
		{"flush", "A♥ K♥ 9♥ 5♥ 2♥", Flush, []int{14, 13, 9, 5, 2}},
		{"straight", "9♠ T♥ J♦ Q♣ K♠", Straight, []int{13, 12, 11, 10, 9}},
		{"wheel", "A♠ 2♥ 3♦ 4♣ 5♠", Straight, []int{5, 4, 3, 2, 1}},
		{"three of a kind", "7♠ 7♥ 7♦ A♣ 2♠", ThreeOfAKind, []int{7, 14, 2}},
		{"two pair", "J♠ J♥ 4♦ 4♣ 9♠", TwoPair, []int{11, 4, 9}},
		{"one pair", "Q♠ Q♥ 3♦ 8♣ 6♠", OnePair, []int{12, 8, 6, 3}},
		{"high card", "A♠ J♥ 8♦ 4♣ 2♠", HighCard, []int{14, 11, 8, 4, 2}},
		{"ace high no wrap", "Q♠ K♥ A♦ 2♣ 3♠", HighCard, []int{14, 13, 12, 3, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := eval(t, tt.hand)
			assert.Equal(t, tt.category, r.Category)
			assert.Equal(t, tt.tiebreak, r.Tiebreak)
		})
	}
}

func TestEvaluateRejectsBadHands(t *testing.T) {
	_, err := Evaluate(cards(t, "A♠ K♠ Q♠ J♠"))
	assert.ErrorIs(t, err, ErrInvalidHand)

	_, err = Evaluate(cards(t, "A♠ A♠ Q♠ J♠ T♠"))
	assert.ErrorIs(t, err, ErrInvalidHand)
}

func TestRoyalFlushBeatsStraightFlush(t *testing.T) {
	royal := eval(t, "A♥ K♥ Q♥ J♥ T♥")
	sf := eval(t, "2♥ 3♥ 4♥ 5♥ 6♥")
	assert.Equal(t, RoyalFlush, royal.Category)
	assert.Equal(t, StraightFlush, sf.Category)
	assert.Equal(t, 1, royal.Compare(sf))
	assert.Equal(t, -1, sf.Compare(royal))
}

func TestWheelBoundaries(t *testing.T) {
	wheel := eval(t, "A♠ 2♥ 3♦ 4♣ 5♠")
	six := eval(t, "2♠ 3♥ 4♦ 5♣ 6♠")
	trips := eval(t, "A♠ A♥ A♦ K♣ Q♠")

	assert.Equal(t, -1, wheel.Compare(six), "wheel loses to a six-high straight")
	assert.Equal(t, 1, wheel.Compare(trips), "wheel beats any non-straight")
}

func TestTieBreakers(t *testing.T) {
	t.Run("higher flush kicker", func(t *testing.T) {
		low := eval(t, "A♥ K♥ 9♥ 5♥ 2♥")
		high := eval(t, "A♦ K♦ 9♦ 6♦ 3♦")
		assert.Equal(t, 1, high.Compare(low))
	})

	t.Run("full house trips first", func(t *testing.T) {
		kings := eval(t, "K♠ K♣ K♦ J♠ J♣")
		queens := eval(t, "Q♠ Q♣ Q♦ A♠ A♣")
		assert.Equal(t, 1, kings.Compare(queens))
	})

	t.Run("two pair kicker", func(t *testing.T) {
		a := eval(t, "J♠ J♥ 4♦ 4♣ 9♠")
		b := eval(t, "J♦ J♣ 4♠ 4♥ 8♠")
		assert.Equal(t, 1, a.Compare(b))
	})

	t.Run("exact tie", func(t *testing.T) {
		a := eval(t, "K♠ K♣ K♦ 5♥ 5♣")
		b := eval(t, "K♠ K♥ K♦ 5♠ 5♦")
		assert.Equal(t, FullHouse, a.Category)
		assert.Equal(t, 0, a.Compare(b))
		assert.Equal(t, []int{0, 1}, Winners([]Rank{a, b}))
	})
}

func TestEvaluateIgnoresCardOrder(t *testing.T) {
	rng := randutil.New(7)
	for i := 0; i < 500; i++ {
		hand, err := deck.New(rng).DealN(HandSize)
		require.NoError(t, err)
		want := evaluate(hand)

		shuffled := append([]deck.Card(nil), hand...)
		rng.Shuffle(len(shuffled), func(a, b int) {
			shuffled[a], shuffled[b] = shuffled[b], shuffled[a]
		})
		got := evaluate(shuffled)
		require.Equal(t, 0, got.Compare(want), "hand %v vs %v", hand, shuffled)
		require.Equal(t, want, got)
	}
}

func TestBestOfBeatsEverySubset(t *testing.T) {
	rng := randutil.New(11)
	for i := 0; i < 200; i++ {
		seven, err := deck.New(rng).DealN(7)
		require.NoError(t, err)

		best, bestRank, err := BestOf(seven)
		require.NoError(t, err)
		require.Len(t, best, HandSize)

		r, err := Evaluate(best)
		require.NoError(t, err)
		require.Equal(t, 0, r.Compare(bestRank))

		combinations(len(seven), HandSize, func(idx []int) {
			hand := make([]deck.Card, HandSize)
			for k, j := range idx {
				hand[k] = seven[j]
			}
			require.GreaterOrEqual(t, bestRank.Compare(evaluate(hand)), 0)
		})
	}
}

func TestBestOfFindsHiddenStraightFlush(t *testing.T) {
	best, r, err := BestOf(cards(t, "6♣ 7♣ 3♣ 4♣ 5♣ 9♦ 8♣"))
	require.NoError(t, err)
	assert.Equal(t, StraightFlush, r.Category)
	assert.Equal(t, []int{8, 7, 6, 5, 4}, r.Tiebreak)
	assert.ElementsMatch(t, cards(t, "4♣ 5♣ 6♣ 7♣ 8♣"), best)
}

func TestBestOfRejectsShortInput(t *testing.T) {
	_, _, err := BestOf(cards(t, "A♠ K♠ Q♠"))
	assert.ErrorIs(t, err, ErrInvalidHand)
}

func TestCombinationsCount(t *testing.T) {
	n := 0
	combinations(7, 5, func([]int) { n++ })
	assert.Equal(t, 21, n)
}

func TestWinners(t *testing.T) {
	pair := eval(t, "Q♠ Q♥ 3♦ 8♣ 6♠")
	flush := eval(t, "A♥ K♥ 9♥ 5♥ 2♥")
	assert.Equal(t, []int{1}, Winners([]Rank{pair, flush}))
	assert.Empty(t, Winners(nil))
}

// referenceCard converts to the reference evaluator's two-letter labels.
func referenceCard(c deck.Card) poker.Card {
	suits := map[deck.Suit]string{deck.Spades: "s", deck.Hearts: "h", deck.Diamonds: "d", deck.Clubs: "c"}
	return poker.NewCard(c.Rank.String() + suits[c.Suit])
}

// The reference library scores hands where lower is stronger.
func TestOrderingMatchesReferenceEvaluator(t *testing.T) {
	rng := randutil.New(2024)
	for i := 0; i < 2000; i++ {
		d := deck.New(rng)
		a, err := d.DealN(HandSize)
		require.NoError(t, err)
		b, err := d.DealN(HandSize)
		require.NoError(t, err)

		refA := make([]poker.Card, HandSize)
		refB := make([]poker.Card, HandSize)
		for k := range a {
			refA[k] = referenceCard(a[k])
			refB[k] = referenceCard(b[k])
		}
		scoreA, scoreB := poker.Evaluate(refA), poker.Evaluate(refB)

		want := 0
		switch {
		case scoreA < scoreB:
			want = 1
		case scoreA > scoreB:
			want = -1
		}
		require.Equal(t, want, evaluate(a).Compare(evaluate(b)), "%v vs %v", a, b)
	}
}
