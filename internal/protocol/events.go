package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event is a server to client frame. Each event encodes as a JSON object
// keyed by its Key; prompts carry their parameters alongside the key.
type Event interface {
	Key() string
	event()
}

const (
	KeyBroadcast = "broadcast"
	KeyStatus    = "status"
	KeyError     = "error"
	KeyStartGame = "start_game"
	KeyAction    = "action"
	KeyHand      = "hand"
	KeyStack     = "stack"
	KeyBoard     = "community_cards"
	KeyGameState = "game_state"
)

type (
	// Broadcast is table chatter shown to every seated player.
	Broadcast string
	// StatusReport maps player name to ready flag.
	StatusReport map[string]bool
	// ErrorReport tells one connection its last frame was rejected.
	ErrorReport string
	// StartGame announces that a hand is starting.
	StartGame bool
	// HoleCards are the two private cards dealt to the receiver.
	HoleCards []string
	// StackUpdate is the receiver's chip count.
	StackUpdate int
	// Board lists the community cards dealt so far.
	Board []string
	// GameState names the phase the table returned to.
	GameState string
)

// LobbyState is the only GameState the server sends.
const LobbyState GameState = "lobby"

func (Broadcast) Key() string    { return KeyBroadcast }
func (StatusReport) Key() string { return KeyStatus }
func (ErrorReport) Key() string  { return KeyError }
func (StartGame) Key() string    { return KeyStartGame }
func (HoleCards) Key() string    { return KeyHand }
func (StackUpdate) Key() string  { return KeyStack }
func (Board) Key() string        { return KeyBoard }
func (GameState) Key() string    { return KeyGameState }
func (Prompt) Key() string       { return KeyAction }

func (Broadcast) event()    {}
func (StatusReport) event() {}
func (ErrorReport) event()  {}
func (StartGame) event()    {}
func (HoleCards) event()    {}
func (StackUpdate) event()  {}
func (Board) event()        {}
func (GameState) event()    {}
func (Prompt) event()       {}

// PromptKind selects what a Prompt asks of the client.
type PromptKind string

const (
	CollectAnte  PromptKind = "collect_ante"
	CollectBets  PromptKind = "collect_bets"
	CollectHands PromptKind = "collect_hands"
	ClearPrompt  PromptKind = "clear_prompt"
)

// Prompt asks the receiver to act, or withdraws a previous request.
type Prompt struct {
	Kind PromptKind

	// collect_ante
	Amount int

	// collect_bets
	ValidActions []string
	CurrentBet   int
	ToCall       int
	Pot          int
}

// AntePrompt requests an ante of at least amount.
func AntePrompt(amount int) Prompt {
	return Prompt{Kind: CollectAnte, Amount: amount}
}

// BetPrompt requests a betting decision.
func BetPrompt(valid []string, currentBet, toCall, pot int) Prompt {
	return Prompt{Kind: CollectBets, ValidActions: valid, CurrentBet: currentBet, ToCall: toCall, Pot: pot}
}

type promptWire struct {
	Action       PromptKind `json:"action"`
	Amount       *int       `json:"amount,omitempty"`
	ValidActions []string   `json:"valid_actions,omitempty"`
	CurrentBet   *int       `json:"current_bet,omitempty"`
	ToCall       *int       `json:"to_call,omitempty"`
	Pot          *int       `json:"pot,omitempty"`
}

func (p Prompt) wire() promptWire {
	w := promptWire{Action: p.Kind}
	switch p.Kind {
	case CollectAnte:
		w.Amount = &p.Amount
	case CollectBets:
		w.ValidActions = p.ValidActions
		w.CurrentBet = &p.CurrentBet
		w.ToCall = &p.ToCall
		w.Pot = &p.Pot
	}
	return w
}

func (w promptWire) prompt() Prompt {
	p := Prompt{Kind: w.Action}
	deref := func(v *int) int {
		if v == nil {
			return 0
		}
		return *v
	}
	switch w.Action {
	case CollectAnte:
		p.Amount = deref(w.Amount)
	case CollectBets:
		p.ValidActions = w.ValidActions
		p.CurrentBet = deref(w.CurrentBet)
		p.ToCall = deref(w.ToCall)
		p.Pot = deref(w.Pot)
	}
	return p
}

// Encode renders ev as a newline-terminated frame.
func Encode(ev Event) ([]byte, error) {
	if p, ok := ev.(Prompt); ok {
		return marshalLine(p.wire())
	}
	return marshalLine(map[string]Event{ev.Key(): ev})
}

// Decode parses one server frame.
func Decode(frame []byte) (Event, error) {
	if IsBlank(frame) {
		return nil, ErrEmptyFrame
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(frame, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if _, ok := fields[KeyAction]; ok {
		var w promptWire
		if err := json.Unmarshal(frame, &w); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		switch w.Action {
		case CollectAnte, CollectBets, CollectHands, ClearPrompt:
			return w.prompt(), nil
		}
		return nil, fmt.Errorf("%w: action %q", ErrUnknownEvent, w.Action)
	}

	if len(fields) != 1 {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, errMultipleEvent)
	}
	for key, raw := range fields {
		ev, err := decodeValue(key, raw)
		if errors.Is(err, ErrUnknownEvent) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, key)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, key, err)
		}
		return ev, nil
	}
	return nil, ErrUnknownEvent
}

func decodeValue(key string, raw json.RawMessage) (Event, error) {
	switch key {
	case KeyBroadcast:
		var v Broadcast
		err := json.Unmarshal(raw, &v)
		return v, err
	case KeyStatus:
		var v StatusReport
		err := json.Unmarshal(raw, &v)
		return v, err
	case KeyError:
		var v ErrorReport
		err := json.Unmarshal(raw, &v)
		return v, err
	case KeyStartGame:
		var v StartGame
		err := json.Unmarshal(raw, &v)
		return v, err
	case KeyHand:
		var v HoleCards
		err := json.Unmarshal(raw, &v)
		return v, err
	case KeyStack:
		var v StackUpdate
		err := json.Unmarshal(raw, &v)
		return v, err
	case KeyBoard:
		var v Board
		err := json.Unmarshal(raw, &v)
		return v, err
	case KeyGameState:
		var v GameState
		err := json.Unmarshal(raw, &v)
		return v, err
	}
	return nil, ErrUnknownEvent
}
