package game

import "errors"

var (
	ErrNoRound         = errors.New("no active round")
	ErrNoSubject       = errors.New("no subject selected")
	ErrStaleRound      = errors.New("round is no longer current")
	ErrNotAnswerable   = errors.New("round is not accepting answers")
	ErrNotAnswered     = errors.New("round has not been answered")
	ErrNotRetryable    = errors.New("round has not failed")
	ErrNoQuestion      = errors.New("round has no question yet")
	ErrUnknownOption   = errors.New("option is not one of the choices")
	ErrUnknownSubject  = errors.New("unknown subject")
	ErrSessionNotFound = errors.New("session not found")
)
