package app

import (
	"strings"

	"github.com/google/uuid"
)

// IDGenerator supplies session and participant identifiers. The engine only
// relies on them being unique among live ids; collisions are retried.
type IDGenerator interface {
	SessionID() string
	ParticipantID() string
}

// UUIDGenerator derives ids from random UUIDs. Session ids are short
// upper-case codes meant to be typed by players.
type UUIDGenerator struct{}

func (UUIDGenerator) SessionID() string {
	return strings.ToUpper(uuid.NewString()[:6])
}

func (UUIDGenerator) ParticipantID() string {
	return uuid.NewString()
}
