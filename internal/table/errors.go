package table

import "errors"

var (
	ErrEmptyName         = errors.New("username must not be empty")
	ErrNameTaken         = errors.New("username is already seated")
	ErrTableFull         = errors.New("table is full")
	ErrClosed            = errors.New("table is closed")
	ErrUnknownPlayer     = errors.New("player is not seated")
	ErrWrongPhase        = errors.New("command not allowed right now")
	ErrNotYourTurn       = errors.New("it is not your turn")
	ErrIllegalAction     = errors.New("action not allowed")
	ErrIllegalAmount     = errors.New("illegal amount")
	ErrInsufficientStack = errors.New("not enough chips")
	ErrAlreadyAnted      = errors.New("ante already placed")
	ErrAlreadySubmitted  = errors.New("hand already submitted")
	ErrFolded            = errors.New("you have folded")
	ErrIllegalHand       = errors.New("illegal hand")
)
