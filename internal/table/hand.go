package table

import (
	"context"
	"fmt"
	"strings"

	"github.com/lox/tcpoker/internal/deck"
	"github.com/lox/tcpoker/internal/evaluator"
	"github.com/lox/tcpoker/internal/protocol"
)

// StreetSummary records how a betting round closed.
type StreetSummary struct {
	Street     Street
	Pot        int
	CurrentBet int
	Committed  map[string]int
}

// boardCards is how many community cards are dealt after each street.
var boardCards = map[Street]int{Preflop: 3, Flop: 1, Turn: 1}

func (t *Table) startHandLocked() {
	ctx, cancel := context.WithCancel(t.ctx)
	t.cancelHand = cancel
	t.active = true
	t.handID = t.ids.Generate()
	t.deck = t.newDeck()
	t.phase = PhaseAnte
	t.street = Preflop
	t.pot = 0
	t.community = nil
	t.history = nil
	clear(t.bestHands)
	for _, p := range t.players {
		p.resetForHand()
	}
	t.antesIn.reset()
	t.turnDone.reset()
	t.handsIn.reset()

	dealer := t.players[t.dealer]
	t.logger.Info("Starting hand", "hand", t.handID, "dealer", dealer.Name, "players", len(t.players))
	t.broadcastLocked(protocol.StartGame(true))
	t.broadcastLocked(protocol.Broadcast(fmt.Sprintf("Hand %s is starting. %s has the button.", t.handID, dealer.Name)))
	t.broadcastLocked(protocol.AntePrompt(t.cfg.Ante))

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.playHand(ctx)
	}()
}

// waitLocked releases the lock until ch closes, then takes it back. It
// reports false if the hand was cancelled in the meantime.
func (t *Table) waitLocked(ctx context.Context, ch <-chan struct{}) bool {
	t.mu.Unlock()
	select {
	case <-ch:
	case <-ctx.Done():
	}
	t.mu.Lock()
	return ctx.Err() == nil
}

func (t *Table) playHand(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.waitLocked(ctx, t.antesIn.wait()) {
		return
	}

	t.phase = PhaseDeal
	if err := t.dealHoleCardsLocked(); err != nil {
		t.logger.Error("Failed to deal", "hand", t.handID, "error", err)
		t.abortLocked("the deck ran out")
		return
	}

	for street := Preflop; street <= River; street++ {
		t.street = street
		t.phase = PhaseBetting
		if !t.bettingRoundLocked(ctx) {
			return
		}
		if len(t.liveLocked(1)) == 1 {
			t.phase = PhasePayout
			t.payoutLocked()
			t.endHandLocked()
			return
		}
		if n := boardCards[street]; n > 0 {
			cards, err := t.deck.DealN(n)
			if err != nil {
				t.logger.Error("Failed to deal board", "hand", t.handID, "error", err)
				t.abortLocked("the deck ran out")
				return
			}
			t.community = append(t.community, cards...)
			t.logger.Debug("Dealt board", "hand", t.handID, "board", deck.Strings(t.community))
			t.broadcastLocked(protocol.Board(deck.Strings(t.community)))
		}
	}

	t.phase = PhaseShowdown
	if !t.showdownLocked(ctx) {
		return
	}
	t.phase = PhasePayout
	t.payoutLocked()
	t.endHandLocked()
}

func (t *Table) anteLocked(p *Player, amount int) error {
	if t.phase != PhaseAnte {
		return fmt.Errorf("%w: no ante is being collected", ErrWrongPhase)
	}
	if p.AntePlaced {
		return ErrAlreadyAnted
	}
	if amount < t.cfg.Ante {
		return fmt.Errorf("%w: ante must be at least %d", ErrIllegalAmount, t.cfg.Ante)
	}
	if amount > p.Stack {
		return fmt.Errorf("%w: ante %d exceeds stack %d", ErrInsufficientStack, amount, p.Stack)
	}

	p.Stack -= amount
	p.Committed += amount
	p.AntePlaced = true
	t.pot += amount

	t.broadcastLocked(protocol.Broadcast(fmt.Sprintf("%s antes %d.", p.Name, amount)))
	p.send(protocol.StackUpdate(p.Stack))
	p.send(protocol.Prompt{Kind: protocol.ClearPrompt})

	for _, other := range t.players {
		if !other.AntePlaced {
			return nil
		}
	}
	t.antesIn.fire()
	return nil
}

func (t *Table) dealHoleCardsLocked() error {
	for _, p := range t.orderLocked(1) {
		cards, err := t.deck.DealN(2)
		if err != nil {
			return err
		}
		p.Hand = cards
		p.send(protocol.HoleCards(deck.Strings(cards)))
	}
	t.broadcastLocked(protocol.Broadcast("Hole cards are dealt."))
	return nil
}

func (t *Table) showdownLocked(ctx context.Context) bool {
	live := t.liveLocked(1)

	if t.cfg.AutoSolve {
		for _, p := range live {
			cards, rank, err := evaluator.BestOf(append(append([]deck.Card{}, p.Hand...), t.community...))
			if err != nil {
				t.logger.Error("Failed to solve hand", "player", p.Name, "error", err)
				t.abortLocked("a hand could not be evaluated")
				return false
			}
			t.showLocked(p, cards, rank)
		}
		return true
	}

	for _, p := range live {
		p.send(protocol.Prompt{Kind: protocol.CollectHands})
	}
	t.broadcastLocked(protocol.Broadcast("Showdown: pick your best five cards."))
	return t.waitLocked(ctx, t.handsIn.wait())
}

func (t *Table) submitLocked(p *Player, picks [5]protocol.Pick) error {
	if t.phase != PhaseShowdown {
		return fmt.Errorf("%w: not at showdown", ErrWrongPhase)
	}
	if t.cfg.AutoSolve {
		return fmt.Errorf("%w: hands are solved automatically", ErrWrongPhase)
	}
	if p.Folded {
		return ErrFolded
	}
	if p.HandSubmitted {
		return ErrAlreadySubmitted
	}

	cards := make([]deck.Card, 0, len(picks))
	for _, pick := range picks {
		src := t.community
		if pick.Source == protocol.Hole {
			src = p.Hand
		}
		if pick.Index < 0 || pick.Index >= len(src) {
			return fmt.Errorf("%w: %s is not a card you hold", ErrIllegalHand, pick)
		}
		cards = append(cards, src[pick.Index])
	}
	rank, err := evaluator.Evaluate(cards)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIllegalHand, err)
	}

	p.HandSubmitted = true
	p.send(protocol.Prompt{Kind: protocol.ClearPrompt})
	t.showLocked(p, cards, rank)

	for _, other := range t.liveLocked(0) {
		if !other.HandSubmitted {
			return nil
		}
	}
	t.handsIn.fire()
	return nil
}

func (t *Table) showLocked(p *Player, cards []deck.Card, rank evaluator.Rank) {
	t.bestHands[p] = shownHand{cards: cards, rank: rank}
	t.logger.Debug("Player shows", "hand", t.handID, "player", p.Name, "cards", deck.Strings(cards), "rank", rank)
	t.broadcastLocked(protocol.Broadcast(fmt.Sprintf("%s shows %s (%s).",
		p.Name, strings.Join(deck.Strings(cards), " "), rank.Category)))
}

// payoutLocked awards the pot to the best hand, or to the last player
// standing. Exact ties split evenly; odd chips go to the winners closest to
// the left of the dealer.
func (t *Table) payoutLocked() {
	live := t.liveLocked(1)
	winners := live
	var category string

	if len(live) > 1 {
		ranks := make([]evaluator.Rank, len(live))
		for i, p := range live {
			ranks[i] = t.bestHands[p].rank
		}
		best := evaluator.Winners(ranks)
		winners = make([]*Player, len(best))
		for i, idx := range best {
			winners[i] = live[idx]
		}
		category = ranks[best[0]].Category.String()
	}

	pot := t.pot
	share, odd := pot/len(winners), pot%len(winners)
	names := make([]string, len(winners))
	for i, w := range winners {
		amount := share
		if i < odd {
			amount++
		}
		w.Stack += amount
		names[i] = w.Name
		t.logger.Info("Pot awarded", "hand", t.handID, "player", w.Name, "amount", amount)
	}
	t.pot = 0

	switch {
	case category == "":
		t.broadcastLocked(protocol.Broadcast(fmt.Sprintf("%s wins %d; everyone else folded.", names[0], pot)))
	case len(winners) == 1:
		t.broadcastLocked(protocol.Broadcast(fmt.Sprintf("%s wins %d with %s.", names[0], pot, category)))
	default:
		t.broadcastLocked(protocol.Broadcast(fmt.Sprintf("Split pot of %d between %s with %s.",
			pot, strings.Join(names, " and "), category)))
	}
	for _, p := range t.players {
		p.send(protocol.StackUpdate(p.Stack))
	}
}

// abortLocked cancels the hand in progress. Players still seated get back
// what they put in this hand; a departed player's chips stay forfeit.
func (t *Table) abortLocked(reason string) {
	t.logger.Warn("Aborting hand", "hand", t.handID, "reason", reason, "pot", t.pot)
	for _, p := range t.players {
		if p.Committed > 0 {
			p.Stack += p.Committed
			t.pot -= p.Committed
			p.Committed = 0
		}
	}
	if t.pot != 0 {
		t.logger.Info("Forfeited chips leave with their owner", "hand", t.handID, "chips", t.pot)
	}
	t.pot = 0

	t.broadcastLocked(protocol.Broadcast(fmt.Sprintf("Hand aborted: %s. Bets are returned.", reason)))
	for _, p := range t.players {
		p.send(protocol.StackUpdate(p.Stack))
	}
	t.endHandLocked()
}

// endHandLocked is the single cleanup path for finished and aborted hands.
func (t *Table) endHandLocked() {
	if t.cancelHand != nil {
		t.cancelHand()
		t.cancelHand = nil
	}
	t.stopTimerLocked()
	t.logger.Info("Hand finished", "hand", t.handID)

	t.active = false
	t.phase = PhaseLobby
	t.current = nil
	t.currentBet = 0
	t.lastBettor = nil
	t.community = nil
	clear(t.streetBets)
	clear(t.bestHands)
	for _, p := range t.players {
		p.Ready = false
		p.resetForHand()
	}
	if len(t.players) > 0 {
		t.dealer = (t.dealer + 1) % len(t.players)
	} else {
		t.dealer = 0
	}
	t.broadcastLocked(protocol.LobbyState)
}
