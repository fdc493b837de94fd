package domain

// EventType names an outbound message variant.
type EventType string

const (
	EventSessionCreated   EventType = "sessionCreated"
	EventJoinedSession    EventType = "joinedSession"
	EventPlayerListUpdate EventType = "playerListUpdate"
	EventPlayerJoined     EventType = "playerJoined"
	EventNewQuestion      EventType = "newQuestion"
	EventQuestionResults  EventType = "questionResults"
	EventQuizEnd          EventType = "quizEnd"
	EventSessionEnded     EventType = "sessionEnded"
	EventError            EventType = "error"
)

// Event is an outbound message addressed to a session or a single connection.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type SessionCreatedPayload struct {
	SessionID      string `json:"sessionId"`
	BankID         string `json:"bankId"`
	TotalQuestions int    `json:"totalQuestions"`
}

type JoinedSessionPayload struct {
	ParticipantID string `json:"participantId"`
	SessionID     string `json:"sessionId"`
}

// RosterPayload carries the current participant list. It is used for both
// playerListUpdate (session-wide) and playerJoined (admin only).
type RosterPayload struct {
	Roster []RosterEntry `json:"roster"`
}

// PublicQuestion is a question with the correct answer withheld.
type PublicQuestion struct {
	ID      int      `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

type NewQuestionPayload struct {
	Question         PublicQuestion `json:"question"`
	QuestionNumber   int            `json:"questionNumber"`
	TotalQuestions   int            `json:"totalQuestions"`
	TimeLimitSeconds int            `json:"timeLimitSeconds"`
}

// QuestionResult is one participant's outcome for a settled question.
type QuestionResult struct {
	ParticipantID   string `json:"participantId"`
	Name            string `json:"name"`
	SubmittedAnswer *int   `json:"submittedAnswer"`
	IsCorrect       bool   `json:"isCorrect"`
	Points          int    `json:"points"`
	Score           int    `json:"score"`
	Bonus           bool   `json:"bonus,omitempty"`
}

type QuestionResultsPayload struct {
	Results       []QuestionResult `json:"results"`
	CorrectAnswer int              `json:"correctAnswer"`
	QuestionText  string           `json:"questionText"`
}

type QuizEndPayload struct {
	FinalStandings []RosterEntry `json:"finalStandings"`
}

type MessagePayload struct {
	Message string `json:"message"`
}

// NewErrorEvent builds a user-facing error event.
func NewErrorEvent(message string) Event {
	return Event{Type: EventError, Payload: MessagePayload{Message: message}}
}
