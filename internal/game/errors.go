package game

import (
	"errors"

	"github.com/kiliankoe/parodyparty/internal/store"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrCodeAllocation  = errors.New("could not allocate session code")
	ErrNotHost         = errors.New("not host")
	ErrInvalidPhase    = errors.New("invalid phase for action")
)

// Validation errors are caused by the caller's input or timing and are
// never worth retrying.
var (
	ErrGameStarted       = errors.New("game has already started")
	ErrSessionFull       = errors.New("session is full")
	ErrUnknownPlayer     = errors.New("unknown player")
	ErrInvalidName       = errors.New("invalid player name")
	ErrNameTaken         = errors.New("name is already taken")
	ErrInvalidAnswer     = errors.New("invalid answer")
	ErrSubmissionsClosed = errors.New("submissions are closed for this round")
	ErrNotEnoughPlayers  = errors.New("not enough players")
	ErrNotVoter          = errors.New("player is not voting this round")
	ErrBallotSize        = errors.New("wrong ballot size")
	ErrDuplicateTarget   = errors.New("ballot ranks the same answer twice")
	ErrSelfVote          = errors.New("cannot vote for your own answer")
	ErrTargetNotInRound  = errors.New("ballot target is not in this round")
	ErrDisplayOnlyHost   = errors.New("display-only host cannot play")
)

var validation = []error{
	ErrNotHost, ErrInvalidPhase,
	ErrGameStarted, ErrSessionFull, ErrUnknownPlayer, ErrInvalidName, ErrNameTaken,
	ErrInvalidAnswer, ErrSubmissionsClosed, ErrNotEnoughPlayers, ErrNotVoter, ErrBallotSize,
	ErrDuplicateTarget, ErrSelfVote, ErrTargetNotInRound, ErrDisplayOnlyHost,
}

// IsValidation reports whether err should be shown to the user as-is.
func IsValidation(err error) bool {
	for _, v := range validation {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err came from store contention and the same
// call may simply be tried again.
func IsTransient(err error) bool {
	return errors.Is(err, store.ErrContention)
}

func mapStoreErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	return err
}

// Error codes shared by every transport.
const (
	CodeSessionNotFound = "session_not_found"
	CodeValidation      = "validation"
	CodeBusy            = "busy"
	CodeInternal        = "internal"
)

// ErrorCode classifies err into one of the stable client-facing codes.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return CodeSessionNotFound
	case IsValidation(err):
		return CodeValidation
	case IsTransient(err):
		return CodeBusy
	default:
		return CodeInternal
	}
}
