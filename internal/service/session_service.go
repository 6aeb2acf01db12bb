package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"taskboard/internal/controller"
)

// ControllerFactory builds a fresh controller for one chat.
type ControllerFactory func() *controller.Controller

type session struct {
	ctrl     *controller.Controller
	lastSeen time.Time
}

// SessionService keeps one mounted controller per chat.
type SessionService struct {
	factory     ControllerFactory
	idleTimeout time.Duration
	now         func() time.Time
	logger      zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewSessionService(factory ControllerFactory, idleTimeout time.Duration, logger zerolog.Logger) *SessionService {
	return &SessionService{
		factory:     factory,
		idleTimeout: idleTimeout,
		now:         time.Now,
		logger:      logger.With().Str("component", "sessions").Logger(),
		sessions:    make(map[int64]*session),
	}
}

// Acquire returns the chat's controller. A controller is mounted and loaded on
// first use; the initial load runs outside the service lock.
func (s *SessionService) Acquire(ctx context.Context, chatID int64) *controller.Controller {
	s.mu.Lock()
	if sess, ok := s.sessions[chatID]; ok {
		sess.lastSeen = s.now()
		s.mu.Unlock()
		return sess.ctrl
	}
	ctrl := s.factory()
	s.sessions[chatID] = &session{ctrl: ctrl, lastSeen: s.now()}
	s.mu.Unlock()

	s.logger.Debug().Int64("chat_id", chatID).Msg("mounted controller")
	ctrl.Load(ctx)
	return ctrl
}

// Release closes and forgets the chat's controller, if any.
func (s *SessionService) Release(chatID int64) {
	s.mu.Lock()
	sess, ok := s.sessions[chatID]
	delete(s.sessions, chatID)
	s.mu.Unlock()

	if ok {
		sess.ctrl.Close()
		s.logger.Debug().Int64("chat_id", chatID).Msg("released controller")
	}
}

// SweepIdle releases controllers not seen for longer than the idle timeout and
// returns how many were released.
func (s *SessionService) SweepIdle(now time.Time) int {
	s.mu.Lock()
	var idle []*session
	for chatID, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idleTimeout {
			idle = append(idle, sess)
			delete(s.sessions, chatID)
		}
	}
	s.mu.Unlock()

	for _, sess := range idle {
		sess.ctrl.Close()
	}
	if len(idle) > 0 {
		s.logger.Info().Int("released", len(idle)).Msg("swept idle sessions")
	}
	return len(idle)
}

// CloseAll releases every controller.
func (s *SessionService) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[int64]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.ctrl.Close()
	}
	s.logger.Info().Int("released", len(sessions)).Msg("closed all sessions")
}

func (s *SessionService) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
