package gameerr

import "errors"

// Error is a rejected engine operation. Rejections never leave partial state.
type Error struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return string(e.Code) + ": " + e.Message
}

// Kind returns the taxonomy bucket of the rejection.
func (e *Error) Kind() Kind {
	return e.Code.Kind()
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a rejection with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Sentinels for errors.Is comparisons.
var (
	ErrNotOwner                  = New(CodeNotOwner, "")
	ErrNotOracle                 = New(CodeNotOracle, "")
	ErrGameHalted                = New(CodeGameHalted, "")
	ErrGameNotStarted            = New(CodeGameNotStarted, "")
	ErrGameAlreadyStarted        = New(CodeGameAlreadyStarted, "")
	ErrWrongMode                 = New(CodeWrongMode, "")
	ErrNoActiveRound             = New(CodeNoActiveRound, "")
	ErrRoundNotEnded             = New(CodeRoundNotEnded, "")
	ErrRoundAlreadyResolved      = New(CodeRoundAlreadyResolved, "")
	ErrPreviousRoundUnresolved   = New(CodePreviousRoundUnresolved, "")
	ErrRoundInProgress           = New(CodeRoundInProgress, "")
	ErrCannotActDuringTransition = New(CodeCannotActDuringTransition, "")
	ErrDeploymentActive          = New(CodeDeploymentActive, "")
	ErrNoActiveTour              = New(CodeNoActiveTour, "")
	ErrTourInProgress            = New(CodeTourInProgress, "")
	ErrGracePeriodNotElapsed     = New(CodeGracePeriodNotElapsed, "")
	ErrInvalidBunker             = New(CodeInvalidBunker, "")
	ErrInvalidMove               = New(CodeInvalidMove, "")
	ErrBelowMinimum              = New(CodeBelowMinimum, "")
	ErrZeroAmount                = New(CodeZeroAmount, "")
	ErrInvalidBatch              = New(CodeInvalidBatch, "")
	ErrInvalidTourConfig         = New(CodeInvalidTourConfig, "")
	ErrInvalidCombatStart        = New(CodeInvalidCombatStart, "")
	ErrInvalidEmissionMode       = New(CodeInvalidEmissionMode, "")
	ErrEmissionExceedsVault      = New(CodeEmissionExceedsVault, "")
	ErrInsufficientBalance       = New(CodeInsufficientBalance, "")
	ErrArithmeticOverflow        = New(CodeArithmeticOverflow, "")
	ErrBunkerNotDestroyed        = New(CodeBunkerNotDestroyed, "")
	ErrBunkerDestroyed           = New(CodeBunkerDestroyed, "")
	ErrResetNotNeeded            = New(CodeResetNotNeeded, "")
	ErrResetInProgress           = New(CodeResetInProgress, "")
	ErrAlreadyActed              = New(CodeAlreadyActed, "")
	ErrAlreadyDeposited          = New(CodeAlreadyDeposited, "")
	ErrNotDeposited              = New(CodeNotDeposited, "")
)

// KindOf returns the kind of a rejection anywhere in err's chain, or "".
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind()
	}
	return ""
}
