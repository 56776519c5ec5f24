package table

import (
	"context"
	"fmt"
	"slices"

	"github.com/lox/tcpoker/internal/protocol"
)

// bettingRoundLocked runs one street. It returns false if the hand was
// cancelled while waiting on a player.
func (t *Table) bettingRoundLocked(ctx context.Context) bool {
	t.currentBet = 0
	t.lastBettor = nil
	clear(t.streetBets)
	for _, p := range t.players {
		p.LastAction = ActionNone
	}
	t.logger.Debug("Betting round", "hand", t.handID, "street", t.street, "pot", t.pot)

	for i := 0; ; i++ {
		p := t.players[(i+t.dealer)%len(t.players)]
		if p.Folded {
			continue
		}
		if t.roundOverLocked(p) {
			break
		}

		t.turnDone.reset()
		t.promptLocked(p)
		if !t.waitLocked(ctx, t.turnDone.wait()) {
			return false
		}
	}

	summary := StreetSummary{
		Street:     t.street,
		Pot:        t.pot,
		CurrentBet: t.currentBet,
		Committed:  make(map[string]int, len(t.players)),
	}
	for _, p := range t.players {
		summary.Committed[p.Name] = t.streetBets[p]
	}
	t.history = append(t.history, summary)
	t.broadcastLocked(protocol.Broadcast(fmt.Sprintf("Betting on the %s is closed. Pot is %d.", t.street, t.pot)))
	return true
}

// roundOverLocked is checked before p is prompted. A matched bet only closes
// the round once action is back with the last bettor, so a raise reopens it.
func (t *Table) roundOverLocked(next *Player) bool {
	live := t.liveLocked(0)
	if len(live) <= 1 {
		return true
	}
	if t.currentBet == 0 {
		for _, p := range live {
			if p.LastAction != ActionCheck {
				return false
			}
		}
		return true
	}
	if t.lastBettor == nil || t.lastBettor != next {
		return false
	}
	for _, p := range live {
		if t.streetBets[p] != t.currentBet {
			return false
		}
	}
	return true
}

func (t *Table) toCallLocked(p *Player) int {
	return t.currentBet - t.streetBets[p]
}

// legalActionsLocked derives what p may do from the bet facing them.
func (t *Table) legalActionsLocked(p *Player) []Action {
	if t.currentBet == 0 {
		return []Action{ActionCheck, ActionBet}
	}
	toCall := t.toCallLocked(p)
	switch {
	case toCall > p.Stack:
		return []Action{ActionFold}
	case p.Stack >= toCall*2:
		return []Action{ActionCall, ActionRaise, ActionFold}
	default:
		return []Action{ActionCall, ActionFold}
	}
}

func (t *Table) promptLocked(p *Player) {
	legal := t.legalActionsLocked(p)
	names := make([]string, len(legal))
	for i, a := range legal {
		names[i] = a.String()
	}

	t.current = p
	t.turn++
	p.send(protocol.BetPrompt(names, t.currentBet, t.toCallLocked(p), t.pot))
	t.broadcastExceptLocked(p, protocol.Broadcast(fmt.Sprintf("Waiting for %s to act.", p.Name)))

	if t.cfg.TurnTimeout > 0 {
		turn := t.turn
		t.turnTimer = t.clock.AfterFunc(t.cfg.TurnTimeout, func() {
			t.expireTurn(p, turn)
		}, "table", "turn")
	}
}

// expireTurn acts for a player who let the turn timer run out: check when
// that is allowed, fold otherwise.
func (t *Table) expireTurn(p *Player, turn uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.current != p || t.turn != turn {
		return
	}
	action := ActionFold
	if slices.Contains(t.legalActionsLocked(p), ActionCheck) {
		action = ActionCheck
	}
	t.logger.Info("Turn timed out", "hand", t.handID, "player", p.Name, "action", action)
	t.broadcastLocked(protocol.Broadcast(fmt.Sprintf("%s ran out of time.", p.Name)))
	if err := t.actLocked(p, action, 0); err != nil {
		t.logger.Error("Failed to apply timeout action", "player", p.Name, "error", err)
	}
}

func (t *Table) stopTimerLocked() {
	if t.turnTimer != nil {
		t.turnTimer.Stop()
		t.turnTimer = nil
	}
}

// actLocked validates and applies a betting action. Rejected actions leave
// the turn with the same player.
func (t *Table) actLocked(p *Player, action Action, amount int) error {
	if t.phase != PhaseBetting {
		return fmt.Errorf("%w: no betting round in progress", ErrWrongPhase)
	}
	if t.current != p {
		return ErrNotYourTurn
	}
	if !slices.Contains(t.legalActionsLocked(p), action) {
		return fmt.Errorf("%w: cannot %s facing a bet of %d", ErrIllegalAction, action, t.currentBet)
	}

	var delta int
	switch action {
	case ActionCheck:
	case ActionBet:
		if amount < t.cfg.Ante {
			return fmt.Errorf("%w: bet must be at least %d", ErrIllegalAmount, t.cfg.Ante)
		}
		if amount > p.Stack {
			return fmt.Errorf("%w: bet %d exceeds stack %d", ErrInsufficientStack, amount, p.Stack)
		}
		delta = amount
		t.currentBet = amount
		t.lastBettor = p
	case ActionCall:
		delta = t.toCallLocked(p)
		if delta > p.Stack {
			return fmt.Errorf("%w: call of %d exceeds stack %d", ErrInsufficientStack, delta, p.Stack)
		}
	case ActionRaise:
		if amount < t.currentBet*2 {
			return fmt.Errorf("%w: raise must be at least %d", ErrIllegalAmount, t.currentBet*2)
		}
		if amount > p.Stack {
			return fmt.Errorf("%w: raise %d exceeds stack %d", ErrInsufficientStack, amount, p.Stack)
		}
		delta = amount - t.streetBets[p]
		t.currentBet = amount
		t.lastBettor = p
	case ActionFold:
		p.Folded = true
	}

	p.Stack -= delta
	p.Committed += delta
	t.streetBets[p] += delta
	t.pot += delta
	p.LastAction = action

	t.logger.Debug("Player acted", "hand", t.handID, "player", p.Name, "action", action, "amount", delta, "pot", t.pot)
	t.broadcastLocked(protocol.Broadcast(describe(p.Name, action, t.streetBets[p])))
	p.send(protocol.StackUpdate(p.Stack))
	p.send(protocol.Prompt{Kind: protocol.ClearPrompt})

	t.stopTimerLocked()
	t.current = nil
	t.turnDone.fire()
	return nil
}

func describe(name string, action Action, committed int) string {
	switch action {
	case ActionCheck:
		return fmt.Sprintf("%s checks.", name)
	case ActionBet:
		return fmt.Sprintf("%s bets %d.", name, committed)
	case ActionCall:
		return fmt.Sprintf("%s calls %d.", name, committed)
	case ActionRaise:
		return fmt.Sprintf("%s raises to %d.", name, committed)
	default:
		return fmt.Sprintf("%s folds.", name)
	}
}
