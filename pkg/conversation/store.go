package conversation

import (
	"sync"

	"go.uber.org/zap"

	"github.com/giobale/agentic-analytics-with-CUBE/pkg/apperrors"
	"github.com/giobale/agentic-analytics-with-CUBE/pkg/models"
)

// Store holds per-session conversation state in memory. Turns within one
// session are serialized by a per-session mutex; different sessions
// proceed concurrently.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*session
	maxTurns int
	logger   *zap.Logger
}

type session struct {
	mu  sync.Mutex
	ctx *models.ConversationContext
}

// NewStore creates an empty store with the given rolling-window size.
func NewStore(maxTurns int, logger *zap.Logger) *Store {
	return &Store{
		sessions: make(map[string]*session),
		maxTurns: maxTurns,
		logger:   logger.Named("conversation"),
	}
}

// MaxTurns returns the configured rolling-window size.
func (s *Store) MaxTurns() int {
	return s.maxTurns
}

func (s *Store) getOrCreate(sessionID string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok = s.sessions[sessionID]; ok {
		return sess
	}
	sess = &session{ctx: models.NewConversationContext(sessionID)}
	s.sessions[sessionID] = sess
	s.logger.Debug("session created", zap.String("session_id", sessionID))
	return sess
}

// WithSession runs fn with exclusive access to the session's context,
// creating the session if it does not exist. Mutations made by fn are
// retained.
func (s *Store) WithSession(sessionID string, fn func(*models.ConversationContext) error) error {
	sess := s.getOrCreate(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return fn(sess.ctx)
}

// Get returns a copy of the session's context, or ErrSessionNotFound.
func (s *Store) Get(sessionID string) (*models.ConversationContext, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	return copyContext(sess.ctx), nil
}

// Delete removes a session entirely.
func (s *Store) Delete(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return apperrors.ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	s.logger.Debug("session deleted", zap.String("session_id", sessionID))
	return nil
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func copyContext(src *models.ConversationContext) *models.ConversationContext {
	dst := &models.ConversationContext{
		SessionID:            src.SessionID,
		OriginalQuery:        src.OriginalQuery,
		ResolvedAspects:      make(map[models.AmbiguityKind]string, len(src.ResolvedAspects)),
		Turns:                append([]models.Turn(nil), src.Turns...),
		PendingAmbiguity:     src.PendingAmbiguity,
		AwaitingConfirmation: src.AwaitingConfirmation,
	}
	for k, v := range src.ResolvedAspects {
		dst.ResolvedAspects[k] = v
	}
	if src.ProposedParameters != nil {
		q := *src.ProposedParameters
		dst.ProposedParameters = &q
	}
	return dst
}
