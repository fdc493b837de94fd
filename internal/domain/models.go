package domain

import "fmt"

// Question is a single multiple-choice prompt. It is never mutated once loaded.
type Question struct {
	ID           int      `json:"id" yaml:"id"`
	Prompt       string   `json:"prompt" yaml:"prompt"`
	Options      []string `json:"options" yaml:"options"`
	CorrectIndex int      `json:"correctIndex" yaml:"correctIndex"`
}

// QuestionBank is the ordered sequence of questions a session walks through.
type QuestionBank struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// Validate checks that every question has at least two options and a correct
// index that points into them.
func (b QuestionBank) Validate() error {
	if b.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidBank)
	}
	for i, q := range b.Questions {
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: question %d has %d options", ErrInvalidBank, i+1, len(q.Options))
		}
		if q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			return fmt.Errorf("%w: question %d correct index %d out of range", ErrInvalidBank, i+1, q.CorrectIndex)
		}
	}
	return nil
}

// Len returns the number of questions in the bank.
func (b QuestionBank) Len() int {
	return len(b.Questions)
}

// RosterEntry is the public view of a participant.
type RosterEntry struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// SessionState enumerates the lifecycle stages of a quiz session.
type SessionState int

const (
	StateLobby SessionState = iota
	StateQuestionActive
	StateQuestionSettled
	StateEnded
	StateTornDown
)

func (s SessionState) String() string {
	switch s {
	case StateLobby:
		return "lobby"
	case StateQuestionActive:
		return "question_active"
	case StateQuestionSettled:
		return "question_settled"
	case StateEnded:
		return "ended"
	case StateTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

// ConnectionRole records what a live connection is bound to.
type ConnectionRole struct {
	SessionID     string
	ParticipantID string
	IsAdmin       bool
}
