package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"live-trivia-service/internal/domain"
)

const (
	ReasonHostDisconnected = "Host disconnected"
	ReasonHostEnded        = "Quiz ended by host"
	ReasonShutdown         = "Server shutting down"
)

// SessionRepository abstracts where live sessions are registered (in-memory, Redis, etc).
type SessionRepository interface {
	// Create registers a session, returning domain.ErrSessionExists when its id is taken.
	Create(session *Session) error
	Get(sessionID string) (*Session, bool)
	// Delete is idempotent.
	Delete(sessionID string)
	All() []*Session
}

// BankRepository loads question banks (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) (domain.QuestionBank, error)
}

// Options configures a QuizService. Zero values fall back to defaults.
type Options struct {
	AnswerWindow  time.Duration
	SettlePause   time.Duration
	DefaultBankID string
	Clock         clockwork.Clock
	IDs           IDGenerator
}

// QuizService is the top-level coordinator: it owns the session registry and
// the connection directory, and dispatches inbound connection events to the
// right session.
type QuizService struct {
	sessions SessionRepository
	banks    BankRepository
	out      Broadcaster
	dir      *Directory
	opts     Options
}

func NewQuizService(store SessionRepository, banks BankRepository, out Broadcaster, opts Options) *QuizService {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.IDs == nil {
		opts.IDs = UUIDGenerator{}
	}
	if out == nil {
		out = nopBroadcaster{}
	}
	return &QuizService{
		sessions: store,
		banks:    banks,
		out:      out,
		dir:      NewDirectory(),
		opts:     opts,
	}
}

// CreateSession opens a new lobby administered by connID.
func (s *QuizService) CreateSession(ctx context.Context, connID, bankID string) (string, error) {
	if s.boundToLiveSession(connID) {
		return "", s.reject(connID, domain.ErrAlreadyBound)
	}
	if bankID == "" {
		bankID = s.opts.DefaultBankID
	}
	bank, err := s.banks.GetBank(ctx, bankID)
	if err != nil {
		log.Warn().Err(err).Str("bank_id", bankID).Str("connection_id", connID).Msg("load question bank failed")
		return "", s.reject(connID, err)
	}

	var session *Session
	for i := 0; i < maxIDAttempts && session == nil; i++ {
		candidate := NewSession(s.opts.IDs.SessionID(), connID, bank, s.sessionConfig())
		err := s.sessions.Create(candidate)
		switch {
		case err == nil:
			session = candidate
		case errors.Is(err, domain.ErrSessionExists):
			log.Debug().Str("session_id", candidate.ID()).Msg("session id collision, retrying")
		default:
			return "", s.reject(connID, fmt.Errorf("register session: %w", err))
		}
	}
	if session == nil {
		log.Error().Str("connection_id", connID).Int("attempts", maxIDAttempts).Msg("session id space exhausted")
		return "", s.reject(connID, domain.ErrIDSpaceExhausted)
	}

	s.dir.Bind(connID, domain.ConnectionRole{SessionID: session.ID(), IsAdmin: true})
	s.out.Join(session.ID(), connID)
	s.out.Send(connID, domain.Event{
		Type: domain.EventSessionCreated,
		Payload: domain.SessionCreatedPayload{
			SessionID:      session.ID(),
			BankID:         bank.ID,
			TotalQuestions: bank.Len(),
		},
	})
	log.Info().Str("session_id", session.ID()).Str("bank_id", bank.ID).Str("connection_id", connID).Msg("session created")
	return session.ID(), nil
}

// JoinSession adds connID as a player of sessionID.
func (s *QuizService) JoinSession(_ context.Context, connID, sessionID, playerName string) (string, error) {
	if s.boundToLiveSession(connID) {
		return "", s.reject(connID, domain.ErrAlreadyBound)
	}
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return "", s.reject(connID, domain.ErrSessionNotFound)
	}
	participantID, err := session.AddParticipant(playerName, connID)
	if err != nil {
		return "", s.reject(connID, err)
	}
	s.dir.Bind(connID, domain.ConnectionRole{SessionID: sessionID, ParticipantID: participantID})
	return participantID, nil
}

// StartQuiz is honored only from the admin of a live session.
func (s *QuizService) StartQuiz(_ context.Context, connID string) error {
	session, err := s.adminSession(connID)
	if err != nil {
		return err
	}
	return session.Start()
}

// SubmitAnswer is honored only from a participant of a live session.
func (s *QuizService) SubmitAnswer(_ context.Context, connID string, answerIndex int) error {
	role, ok := s.dir.Lookup(connID)
	if !ok || role.IsAdmin {
		return domain.ErrNotParticipant
	}
	session, ok := s.sessions.Get(role.SessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if !owns(session, connID, role) {
		return domain.ErrNotParticipant
	}
	return session.SubmitAnswer(role.ParticipantID, answerIndex)
}

// EndQuiz lets the admin close the session explicitly.
func (s *QuizService) EndQuiz(_ context.Context, connID string) error {
	session, err := s.adminSession(connID)
	if err != nil {
		return err
	}
	s.teardown(session, ReasonHostEnded)
	s.dir.Remove(connID)
	return nil
}

// Disconnect handles a closed connection. An admin leaving tears the whole
// session down; a player leaving is removed from the roster.
func (s *QuizService) Disconnect(_ context.Context, connID string) {
	role, ok := s.dir.Remove(connID)
	if !ok {
		return
	}
	session, ok := s.sessions.Get(role.SessionID)
	if !ok || !owns(session, connID, role) {
		return
	}
	if role.IsAdmin {
		s.teardown(session, ReasonHostDisconnected)
		return
	}
	if err := session.RemoveParticipant(role.ParticipantID); err != nil {
		log.Debug().Err(err).Str("session_id", role.SessionID).Str("participant_id", role.ParticipantID).Msg("remove participant")
	}
}

// Session looks up a live session by id.
func (s *QuizService) Session(sessionID string) (*Session, bool) {
	return s.sessions.Get(sessionID)
}

// Shutdown tears down every live session.
func (s *QuizService) Shutdown(ctx context.Context) error {
	for _, session := range s.sessions.All() {
		if err := ctx.Err(); err != nil {
			return err
		}
		s.teardown(session, ReasonShutdown)
	}
	return nil
}

func (s *QuizService) teardown(session *Session, reason string) {
	session.Teardown(reason)
	s.sessions.Delete(session.ID())
	log.Debug().Str("session_id", session.ID()).Dur("age", s.opts.Clock.Since(session.CreatedAt())).Msg("session removed")
}

func (s *QuizService) adminSession(connID string) (*Session, error) {
	role, ok := s.dir.Lookup(connID)
	if !ok || !role.IsAdmin {
		return nil, domain.ErrNotAdmin
	}
	session, ok := s.sessions.Get(role.SessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.AdminConn() != connID {
		return nil, domain.ErrNotAdmin
	}
	return session, nil
}

// boundToLiveSession reports whether connID still belongs to a live session.
// A player whose quiz has ended is released so it can join elsewhere.
func (s *QuizService) boundToLiveSession(connID string) bool {
	role, ok := s.dir.Lookup(connID)
	if !ok {
		return false
	}
	session, live := s.sessions.Get(role.SessionID)
	if !live || !owns(session, connID, role) {
		return false
	}
	if !role.IsAdmin && session.State() == domain.StateEnded {
		if err := session.RemoveParticipant(role.ParticipantID); err != nil {
			log.Debug().Err(err).Str("session_id", role.SessionID).Str("participant_id", role.ParticipantID).Msg("release finished participant")
		}
		s.dir.Remove(connID)
		return false
	}
	return true
}

// owns reports whether role still refers to this session instance. Session
// ids are reused once a session is gone, so a stale binding can name a
// different session.
func owns(session *Session, connID string, role domain.ConnectionRole) bool {
	if role.IsAdmin {
		return session.AdminConn() == connID
	}
	return session.HasParticipant(role.ParticipantID, connID)
}

func (s *QuizService) sessionConfig() SessionConfig {
	return SessionConfig{
		AnswerWindow: s.opts.AnswerWindow,
		SettlePause:  s.opts.SettlePause,
		Clock:        s.opts.Clock,
		Broadcaster:  s.out,
		NewID:        s.opts.IDs.ParticipantID,
	}
}

// reject reports err to the requesting connection and returns it.
func (s *QuizService) reject(connID string, err error) error {
	s.out.Send(connID, domain.NewErrorEvent(UserMessage(err)))
	return err
}

// UserMessage maps engine errors to the text shown to players.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		return "Session not found"
	case errors.Is(err, domain.ErrSessionAlreadyStarted):
		return "Quiz already in progress"
	case errors.Is(err, domain.ErrAlreadyBound):
		return "Already in a session"
	case errors.Is(err, domain.ErrBankNotFound):
		return "Question bank not found"
	case errors.Is(err, domain.ErrInvalidBank):
		return "Question bank is invalid"
	case errors.Is(err, domain.ErrIDSpaceExhausted):
		return "Could not create session, try again"
	default:
		return "Something went wrong"
	}
}
