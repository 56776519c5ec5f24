package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Verb names a client command.
type Verb string

const (
	VerbReady  Verb = "ready"
	VerbStatus Verb = "status"
	VerbExit   Verb = "exit"
	VerbAnte   Verb = "ante"
	VerbCheck  Verb = "check"
	VerbBet    Verb = "bet"
	VerbCall   Verb = "call"
	VerbRaise  Verb = "raise"
	VerbFold   Verb = "fold"
	VerbHand   Verb = "hand"
)

// Command is a decoded client command. The set of implementations is closed;
// callers switch on the concrete type.
type Command interface {
	Verb() Verb
	command()
}

type (
	Ready  struct{}
	Status struct{}
	Exit   struct{}
	Check  struct{}
	Call   struct{}
	Fold   struct{}

	Ante  struct{ Amount int }
	Bet   struct{ Amount int }
	Raise struct{ Amount int }

	// SubmitHand names five of the seven cards available at showdown.
	SubmitHand struct{ Picks [5]Pick }
)

func (Ready) Verb() Verb      { return VerbReady }
func (Status) Verb() Verb     { return VerbStatus }
func (Exit) Verb() Verb       { return VerbExit }
func (Check) Verb() Verb      { return VerbCheck }
func (Call) Verb() Verb       { return VerbCall }
func (Fold) Verb() Verb       { return VerbFold }
func (Ante) Verb() Verb       { return VerbAnte }
func (Bet) Verb() Verb        { return VerbBet }
func (Raise) Verb() Verb      { return VerbRaise }
func (SubmitHand) Verb() Verb { return VerbHand }

func (Ready) command()      {}
func (Status) command()     {}
func (Exit) command()       {}
func (Check) command()      {}
func (Call) command()       {}
func (Fold) command()       {}
func (Ante) command()       {}
func (Bet) command()        {}
func (Raise) command()      {}
func (SubmitHand) command() {}

// PickSource says which card list a Pick indexes.
type PickSource int

const (
	Community PickSource = iota
	Hole
)

// Pick addresses one card by position: c1..c5 for the board, h1..h2 for the
// player's hole cards. Index is zero based.
type Pick struct {
	Source PickSource
	Index  int
}

func (p Pick) String() string {
	if p.Source == Hole {
		return "h" + strconv.Itoa(p.Index+1)
	}
	return "c" + strconv.Itoa(p.Index+1)
}

// ParsePick reads a c1..c5 or h1..h2 token.
func ParsePick(token string) (Pick, error) {
	t := strings.ToLower(strings.TrimSpace(token))
	if len(t) != 2 {
		return Pick{}, fmt.Errorf("%w: bad card position %q", ErrBadArguments, token)
	}
	n := int(t[1] - '0')
	switch {
	case t[0] == 'c' && n >= 1 && n <= 5:
		return Pick{Source: Community, Index: n - 1}, nil
	case t[0] == 'h' && n >= 1 && n <= 2:
		return Pick{Source: Hole, Index: n - 1}, nil
	}
	return Pick{}, fmt.Errorf("%w: bad card position %q", ErrBadArguments, token)
}

type hello struct {
	Username *string `json:"username"`
}

// DecodeHello reads the opening frame and returns the requested username.
func DecodeHello(frame []byte) (string, error) {
	if IsBlank(frame) {
		return "", ErrEmptyFrame
	}
	var h hello
	if err := json.Unmarshal(frame, &h); err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadHandshake, err)
	}
	if h.Username == nil {
		return "", ErrBadHandshake
	}
	name := strings.TrimSpace(*h.Username)
	if name == "" {
		return "", fmt.Errorf("%w: username is empty", ErrBadHandshake)
	}
	return name, nil
}

// EncodeHello builds the opening frame for name.
func EncodeHello(name string) ([]byte, error) {
	return marshalLine(map[string]string{"username": name})
}

type commandFrame struct {
	Command []string `json:"command"`
}

// DecodeCommand parses a {"command": [verb, args...]} frame.
func DecodeCommand(frame []byte) (Command, error) {
	if IsBlank(frame) {
		return nil, ErrEmptyFrame
	}
	var f commandFrame
	if err := json.Unmarshal(frame, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(f.Command) == 0 {
		return nil, fmt.Errorf("%w: missing command", ErrMalformed)
	}
	return ParseCommand(f.Command)
}

// ParseCommand converts verb and arguments into a Command.
func ParseCommand(parts []string) (Command, error) {
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: missing command", ErrMalformed)
	}
	verb := Verb(strings.ToLower(strings.TrimSpace(parts[0])))
	args := parts[1:]

	switch verb {
	case VerbReady, VerbStatus, VerbExit, VerbCheck, VerbCall, VerbFold:
		if len(args) != 0 {
			return nil, fmt.Errorf("%w: %s takes no arguments", ErrBadArguments, verb)
		}
		switch verb {
		case VerbReady:
			return Ready{}, nil
		case VerbStatus:
			return Status{}, nil
		case VerbExit:
			return Exit{}, nil
		case VerbCheck:
			return Check{}, nil
		case VerbCall:
			return Call{}, nil
		default:
			return Fold{}, nil
		}

	case VerbAnte, VerbBet, VerbRaise:
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: usage: %s <amount>", ErrBadArguments, verb)
		}
		amount, err := strconv.Atoi(args[0])
		if err != nil || amount <= 0 {
			return nil, fmt.Errorf("%w: %q is not a positive amount", ErrBadArguments, args[0])
		}
		switch verb {
		case VerbAnte:
			return Ante{Amount: amount}, nil
		case VerbBet:
			return Bet{Amount: amount}, nil
		default:
			return Raise{Amount: amount}, nil
		}

	case VerbHand:
		if len(args) != 5 {
			return nil, fmt.Errorf("%w: usage: hand <5 of c1..c5 h1 h2>", ErrBadArguments)
		}
		var cmd SubmitHand
		seen := make(map[Pick]bool, 5)
		for i, a := range args {
			p, err := ParsePick(a)
			if err != nil {
				return nil, err
			}
			if seen[p] {
				return nil, fmt.Errorf("%w: %s named twice", ErrBadArguments, p)
			}
			seen[p] = true
			cmd.Picks[i] = p
		}
		return cmd, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownVerb, parts[0])
}

// EncodeCommand renders a command as a frame, the inverse of DecodeCommand.
func EncodeCommand(cmd Command) ([]byte, error) {
	parts := []string{string(cmd.Verb())}
	switch c := cmd.(type) {
	case Ante:
		parts = append(parts, strconv.Itoa(c.Amount))
	case Bet:
		parts = append(parts, strconv.Itoa(c.Amount))
	case Raise:
		parts = append(parts, strconv.Itoa(c.Amount))
	case SubmitHand:
		for _, p := range c.Picks {
			parts = append(parts, p.String())
		}
	}
	return marshalLine(commandFrame{Command: parts})
}

// marshalLine encodes v as one newline-terminated frame.
func marshalLine(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
