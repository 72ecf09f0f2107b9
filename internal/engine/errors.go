package engine

import "errors"

var (
	ErrEmptyUtterance = errors.New("empty utterance")
	ErrTurnInFlight   = errors.New("a turn is already in flight")
	ErrSessionOver    = errors.New("session is over")
)

// UnresponsiveMessage is shown to the player when the oracle fails.
const UnresponsiveMessage = "E.V.A. seems unresponsive. Her systems might be unstable. Please try again."

// OracleError is a transient failure talking to the oracle. The session stays
// in progress and the player may retry.
type OracleError struct {
	Err error
}

func (e *OracleError) Error() string {
	return "oracle unavailable: " + e.Err.Error()
}

func (e *OracleError) Unwrap() error {
	return e.Err
}
