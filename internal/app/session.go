package app

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"live-trivia-service/internal/domain"
)

const (
	DefaultAnswerWindow = 10 * time.Second
	DefaultSettlePause  = 3 * time.Second

	// maxIDAttempts bounds the retries when a generated id collides.
	maxIDAttempts = 5
)

// Broadcaster delivers events to connections. Sessions call it while holding
// their own lock, so implementations must not block and must not call back
// into the session.
type Broadcaster interface {
	Join(sessionID, connID string)
	Leave(sessionID, connID string)
	Publish(sessionID string, event domain.Event)
	Send(connID string, event domain.Event)
	Close(sessionID string)
}

// SessionConfig tunes a session. Zero values fall back to defaults.
type SessionConfig struct {
	AnswerWindow time.Duration
	SettlePause  time.Duration
	Clock        clockwork.Clock
	Broadcaster  Broadcaster
	NewID        func() string
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.AnswerWindow <= 0 {
		c.AnswerWindow = DefaultAnswerWindow
	}
	if c.SettlePause <= 0 {
		c.SettlePause = DefaultSettlePause
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Broadcaster == nil {
		c.Broadcaster = nopBroadcaster{}
	}
	if c.NewID == nil {
		c.NewID = uuid.NewString
	}
	return c
}

type participant struct {
	id       string
	name     string
	connID   string
	score    int
	answer   *int
	answered bool
	elapsed  time.Duration
}

// Session is the state machine for one live quiz. Every exported method and
// every timer callback runs under mu.
type Session struct {
	id        string
	adminConn string
	bank      domain.QuestionBank
	cfg       SessionConfig
	createdAt time.Time
	log       zerolog.Logger

	mu            sync.Mutex
	state         domain.SessionState
	current       int
	questionStart time.Time
	participants  map[string]*participant
	order         []string
	timer         clockwork.Timer
	timerSeq      uint64
}

// SessionSnapshot is a read-only copy of session state.
type SessionSnapshot struct {
	ID            string
	BankID        string
	State         domain.SessionState
	QuestionIndex int
	Active        bool
	TimerArmed    bool
	Roster        []domain.RosterEntry
}

// NewSession builds a session in the lobby state. The bank is shared, not copied.
func NewSession(id, adminConn string, bank domain.QuestionBank, cfg SessionConfig) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		id:           id,
		adminConn:    adminConn,
		bank:         bank,
		cfg:          cfg,
		createdAt:    cfg.Clock.Now(),
		log:          log.With().Str("session_id", id).Logger(),
		state:        domain.StateLobby,
		current:      -1,
		participants: make(map[string]*participant),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) AdminConn() string { return s.adminConn }

func (s *Session) CreatedAt() time.Time { return s.createdAt }

// AddParticipant registers a player while the session is still in the lobby.
func (s *Session) AddParticipant(name, connID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateLobby {
		return "", domain.ErrSessionAlreadyStarted
	}

	id := ""
	for i := 0; i < maxIDAttempts; i++ {
		candidate := s.cfg.NewID()
		if _, taken := s.participants[candidate]; !taken && candidate != "" {
			id = candidate
			break
		}
	}
	if id == "" {
		return "", domain.ErrIDSpaceExhausted
	}

	s.participants[id] = &participant{id: id, name: name, connID: connID}
	s.order = append(s.order, id)

	s.cfg.Broadcaster.Join(s.id, connID)
	s.cfg.Broadcaster.Send(connID, domain.Event{
		Type:    domain.EventJoinedSession,
		Payload: domain.JoinedSessionPayload{ParticipantID: id, SessionID: s.id},
	})
	roster := s.rosterLocked()
	s.cfg.Broadcaster.Publish(s.id, domain.Event{Type: domain.EventPlayerListUpdate, Payload: domain.RosterPayload{Roster: roster}})
	s.cfg.Broadcaster.Send(s.adminConn, domain.Event{Type: domain.EventPlayerJoined, Payload: domain.RosterPayload{Roster: roster}})

	s.log.Info().Str("participant_id", id).Str("name", name).Int("players", len(s.order)).Msg("participant joined")
	return id, nil
}

// Start leaves the lobby and opens the first question.
func (s *Session) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateLobby {
		return domain.ErrInvalidTransition
	}
	s.log.Info().Int("players", len(s.order)).Int("questions", s.bank.Len()).Msg("quiz started")
	s.enterQuestionLocked(0)
	return nil
}

// SubmitAnswer records the first answer a participant gives for the open
// question. Repeated answers for the same question are dropped.
func (s *Session) SubmitAnswer(participantID string, optionIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != domain.StateQuestionActive {
		return domain.ErrInvalidTransition
	}
	p, ok := s.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	if p.answered {
		s.log.Debug().Str("participant_id", participantID).Msg("duplicate answer dropped")
		return nil
	}

	answer := optionIndex
	p.answer = &answer
	p.answered = true
	p.elapsed = s.cfg.Clock.Since(s.questionStart)

	if s.allAnsweredLocked() {
		s.log.Debug().Int("question", s.current+1).Msg("all participants answered, closing window early")
		s.stopTimerLocked()
		s.settleLocked()
	}
	return nil
}

// RemoveParticipant drops a player, usually because their connection closed.
func (s *Session) RemoveParticipant(participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateTornDown {
		return domain.ErrInvalidTransition
	}
	p, ok := s.participants[participantID]
	if !ok {
		return domain.ErrParticipantNotFound
	}
	delete(s.participants, participantID)
	for i, id := range s.order {
		if id == participantID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.cfg.Broadcaster.Leave(s.id, p.connID)
	s.log.Info().Str("participant_id", participantID).Int("players", len(s.order)).Msg("participant left")

	if s.state == domain.StateEnded {
		return nil
	}
	s.cfg.Broadcaster.Publish(s.id, domain.Event{Type: domain.EventPlayerListUpdate, Payload: domain.RosterPayload{Roster: s.rosterLocked()}})

	if s.state == domain.StateQuestionActive && s.allAnsweredLocked() {
		s.stopTimerLocked()
		s.settleLocked()
	}
	return nil
}

// Teardown ends the session from any state and notifies everyone still connected.
func (s *Session) Teardown(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == domain.StateTornDown {
		return
	}
	s.stopTimerLocked()
	s.state = domain.StateTornDown
	s.cfg.Broadcaster.Publish(s.id, domain.Event{Type: domain.EventSessionEnded, Payload: domain.MessagePayload{Message: reason}})
	s.cfg.Broadcaster.Close(s.id)
	s.log.Info().Str("reason", reason).Msg("session torn down")
}

// State returns the current lifecycle state.
func (s *Session) State() domain.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HasParticipant reports whether participantID is in the roster and bound to connID.
func (s *Session) HasParticipant(participantID, connID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	return ok && p.connID == connID
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() SessionSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionSnapshot{
		ID:            s.id,
		BankID:        s.bank.ID,
		State:         s.state,
		QuestionIndex: s.current,
		Active:        s.activeLocked(),
		TimerArmed:    s.timer != nil,
		Roster:        s.rosterLocked(),
	}
}

func (s *Session) activeLocked() bool {
	return s.state == domain.StateQuestionActive || s.state == domain.StateQuestionSettled
}

func (s *Session) enterQuestionLocked(index int) {
	s.current = index
	if index >= s.bank.Len() {
		s.endLocked()
		return
	}

	for _, p := range s.participants {
		p.answer = nil
		p.answered = false
		p.elapsed = 0
	}
	s.questionStart = s.cfg.Clock.Now()
	s.state = domain.StateQuestionActive

	q := s.bank.Questions[index]
	s.cfg.Broadcaster.Publish(s.id, domain.Event{
		Type: domain.EventNewQuestion,
		Payload: domain.NewQuestionPayload{
			Question:         domain.PublicQuestion{ID: q.ID, Prompt: q.Prompt, Options: q.Options},
			QuestionNumber:   index + 1,
			TotalQuestions:   s.bank.Len(),
			TimeLimitSeconds: int((s.cfg.AnswerWindow + time.Second - 1) / time.Second),
		},
	})
	s.armLocked(s.cfg.AnswerWindow, s.settleLocked)
	s.log.Debug().Int("question", index+1).Dur("window", s.cfg.AnswerWindow).Msg("question opened")
}

func (s *Session) settleLocked() {
	if s.state != domain.StateQuestionActive {
		return
	}
	q := s.bank.Questions[s.current]

	subs := make([]Submission, 0, len(s.order))
	for _, id := range s.order {
		p := s.participants[id]
		subs = append(subs, Submission{ParticipantID: id, Answer: p.answer, Elapsed: p.elapsed})
	}
	outcomes := ScoreQuestion(q, subs)

	results := make([]domain.QuestionResult, 0, len(outcomes))
	for _, o := range outcomes {
		p := s.participants[o.ParticipantID]
		p.score += o.Points
		results = append(results, domain.QuestionResult{
			ParticipantID:   p.id,
			Name:            p.name,
			SubmittedAnswer: p.answer,
			IsCorrect:       o.Correct,
			Points:          o.Points,
			Score:           p.score,
			Bonus:           o.Bonus,
		})
	}

	s.state = domain.StateQuestionSettled
	s.cfg.Broadcaster.Publish(s.id, domain.Event{
		Type: domain.EventQuestionResults,
		Payload: domain.QuestionResultsPayload{
			Results:       results,
			CorrectAnswer: q.CorrectIndex,
			QuestionText:  q.Prompt,
		},
	})
	s.log.Debug().Int("question", s.current+1).Int("results", len(results)).Msg("question settled")

	s.armLocked(s.cfg.SettlePause, func() {
		s.enterQuestionLocked(s.current + 1)
	})
}

func (s *Session) endLocked() {
	s.stopTimerLocked()
	s.state = domain.StateEnded

	standings := s.rosterLocked()
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Score > standings[j].Score
	})
	s.cfg.Broadcaster.Publish(s.id, domain.Event{Type: domain.EventQuizEnd, Payload: domain.QuizEndPayload{FinalStandings: standings}})
	s.log.Info().Int("players", len(standings)).Msg("quiz ended")
}

// armLocked schedules fire to run under the session lock after d. Each timer
// carries the sequence number it was armed with; a callback whose number no
// longer matches was cancelled and does nothing.
func (s *Session) armLocked(d time.Duration, fire func()) {
	s.stopTimerLocked()
	s.timerSeq++
	seq := s.timerSeq
	s.timer = s.cfg.Clock.AfterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.timer == nil || s.timerSeq != seq {
			return
		}
		s.timer = nil
		fire()
	})
}

func (s *Session) stopTimerLocked() {
	if s.timer == nil {
		return
	}
	s.timer.Stop()
	s.timer = nil
	s.timerSeq++
}

// allAnsweredLocked is vacuously true for an empty roster.
func (s *Session) allAnsweredLocked() bool {
	for _, p := range s.participants {
		if !p.answered {
			return false
		}
	}
	return true
}

func (s *Session) rosterLocked() []domain.RosterEntry {
	roster := make([]domain.RosterEntry, 0, len(s.order))
	for _, id := range s.order {
		p := s.participants[id]
		roster = append(roster, domain.RosterEntry{ID: p.id, Name: p.name, Score: p.score})
	}
	return roster
}

type nopBroadcaster struct{}

func (nopBroadcaster) Join(string, string)          {}
func (nopBroadcaster) Leave(string, string)         {}
func (nopBroadcaster) Publish(string, domain.Event) {}
func (nopBroadcaster) Send(string, domain.Event)    {}
func (nopBroadcaster) Close(string)                 {}
