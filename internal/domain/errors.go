package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no live session has the requested id.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrParticipantNotFound is returned when a participant id is unknown to its session.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrSessionAlreadyStarted rejects joins once the lobby has closed.
	ErrSessionAlreadyStarted = errors.New("quiz already in progress")
	// ErrInvalidTransition covers events that the current session state does not accept.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrNotAdmin is returned when an admin-only command comes from elsewhere.
	ErrNotAdmin = errors.New("connection is not a session admin")
	// ErrNotParticipant is returned when a player-only command comes from elsewhere.
	ErrNotParticipant = errors.New("connection is not a session participant")
	// ErrAlreadyBound rejects create/join from a connection already attached to a live session.
	ErrAlreadyBound = errors.New("connection already bound to a session")
	// ErrSessionExists is a registry collision; callers retry with a fresh id.
	ErrSessionExists = errors.New("session id already in use")
	// ErrIDSpaceExhausted means no unused id was found after bounded retries.
	ErrIDSpaceExhausted = errors.New("could not allocate a unique id")
	// ErrBankNotFound indicates the question bank could not be loaded.
	ErrBankNotFound = errors.New("question bank not found")
	// ErrInvalidBank indicates malformed question bank content.
	ErrInvalidBank = errors.New("invalid question bank")
)
