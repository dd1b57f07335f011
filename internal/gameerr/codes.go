// Package gameerr defines the rejection taxonomy of the settlement engine.
package gameerr

// Kind groups codes by the remediation a caller needs.
type Kind string

const (
	KindAccessControl  Kind = "ACCESS_CONTROL"
	KindPhaseViolation Kind = "PHASE_VIOLATION"
	KindValidation     Kind = "VALIDATION"
	KindStateConflict  Kind = "STATE_CONFLICT"
	KindDoubleAction   Kind = "DOUBLE_ACTION"
)

// Code is a machine-readable rejection condition.
type Code string

const (
	// Access control
	CodeNotOwner  Code = "NOT_OWNER"
	CodeNotOracle Code = "NOT_ORACLE"

	// Phase
	CodeGameHalted                Code = "GAME_HALTED"
	CodeGameNotStarted            Code = "GAME_NOT_STARTED"
	CodeGameAlreadyStarted        Code = "GAME_ALREADY_STARTED"
	CodeWrongMode                 Code = "WRONG_GAME_MODE"
	CodeNoActiveRound             Code = "NO_ACTIVE_ROUND"
	CodeRoundNotEnded             Code = "ROUND_NOT_ENDED"
	CodeRoundAlreadyResolved      Code = "ROUND_ALREADY_RESOLVED"
	CodePreviousRoundUnresolved   Code = "PREVIOUS_ROUND_UNRESOLVED"
	CodeRoundInProgress           Code = "ROUND_IN_PROGRESS"
	CodeCannotActDuringTransition Code = "CANNOT_ACT_DURING_TRANSITION"
	CodeDeploymentActive          Code = "DEPLOYMENT_WINDOW_ACTIVE"
	CodeNoActiveTour              Code = "NO_ACTIVE_TOUR"
	CodeTourInProgress            Code = "TOUR_IN_PROGRESS"
	CodeGracePeriodNotElapsed     Code = "GRACE_PERIOD_NOT_ELAPSED"

	// Validation
	CodeInvalidBunker        Code = "INVALID_BUNKER"
	CodeInvalidMove          Code = "INVALID_MOVE"
	CodeBelowMinimum         Code = "AMOUNT_BELOW_MINIMUM"
	CodeZeroAmount           Code = "ZERO_AMOUNT"
	CodeInvalidBatch         Code = "INVALID_BATCH_SIZE"
	CodeInvalidTourConfig    Code = "INVALID_TOUR_CONFIG"
	CodeInvalidCombatStart   Code = "INVALID_COMBAT_START"
	CodeInvalidEmissionMode  Code = "INVALID_EMISSION_MODE"
	CodeEmissionExceedsVault Code = "EMISSION_EXCEEDS_VAULT"
	CodeInsufficientBalance  Code = "INSUFFICIENT_BALANCE"
	CodeArithmeticOverflow   Code = "ARITHMETIC_OVERFLOW"

	// State conflict
	CodeBunkerNotDestroyed Code = "BUNKER_NOT_DESTROYED"
	CodeBunkerDestroyed    Code = "BUNKER_DESTROYED"
	CodeResetNotNeeded     Code = "RESET_NOT_NEEDED"
	CodeResetInProgress    Code = "RESET_IN_PROGRESS"

	// Double action
	CodeAlreadyActed     Code = "ALREADY_ACTED_THIS_ROUND"
	CodeAlreadyDeposited Code = "ALREADY_DEPOSITED"
	CodeNotDeposited     Code = "NOT_DEPOSITED"
)

var kinds = map[Code]Kind{
	CodeNotOwner:  KindAccessControl,
	CodeNotOracle: KindAccessControl,

	CodeGameHalted:                KindPhaseViolation,
	CodeGameNotStarted:            KindPhaseViolation,
	CodeGameAlreadyStarted:        KindPhaseViolation,
	CodeWrongMode:                 KindPhaseViolation,
	CodeNoActiveRound:             KindPhaseViolation,
	CodeRoundNotEnded:             KindPhaseViolation,
	CodeRoundAlreadyResolved:      KindPhaseViolation,
	CodePreviousRoundUnresolved:   KindPhaseViolation,
	CodeRoundInProgress:           KindPhaseViolation,
	CodeCannotActDuringTransition: KindPhaseViolation,
	CodeDeploymentActive:          KindPhaseViolation,
	CodeNoActiveTour:              KindPhaseViolation,
	CodeTourInProgress:            KindPhaseViolation,
	CodeGracePeriodNotElapsed:     KindPhaseViolation,

	CodeInvalidBunker:        KindValidation,
	CodeInvalidMove:          KindValidation,
	CodeBelowMinimum:         KindValidation,
	CodeZeroAmount:           KindValidation,
	CodeInvalidBatch:         KindValidation,
	CodeInvalidTourConfig:    KindValidation,
	CodeInvalidCombatStart:   KindValidation,
	CodeInvalidEmissionMode:  KindValidation,
	CodeEmissionExceedsVault: KindValidation,
	CodeInsufficientBalance:  KindValidation,
	CodeArithmeticOverflow:   KindValidation,

	CodeBunkerNotDestroyed: KindStateConflict,
	CodeBunkerDestroyed:    KindStateConflict,
	CodeResetNotNeeded:     KindStateConflict,
	CodeResetInProgress:    KindStateConflict,

	CodeAlreadyActed:     KindDoubleAction,
	CodeAlreadyDeposited: KindDoubleAction,
	CodeNotDeposited:     KindDoubleAction,
}

// Kind returns the taxonomy bucket for the code.
func (c Code) Kind() Kind {
	return kinds[c]
}
