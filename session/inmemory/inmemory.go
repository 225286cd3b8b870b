package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripweaver/tripweaver/models"
	"github.com/tripweaver/tripweaver/session"
)

type entry struct {
	conv      models.Conversation
	expiresAt time.Time
}

// Store is an in-process conversation store with TTL-based expiry.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

func NewStore() session.Store {
	return &Store{sessions: make(map[string]*entry)}
}

func (s *Store) EnsureConversation(ctx context.Context, id string, ttl time.Duration) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id != "" {
		if e, ok := s.sessions[id]; ok && time.Now().Before(e.expiresAt) {
			e.expiresAt = time.Now().Add(ttl)
			conv := e.conv
			return &conv, nil
		}
	}
	conv := models.Conversation{ID: uuid.NewString(), UpdatedAt: time.Now()}
	s.sessions[conv.ID] = &entry{conv: conv, expiresAt: time.Now().Add(ttl)}
	return &conv, nil
}

func (s *Store) AppendMessage(ctx context.Context, id string, msg models.ChatMessage, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok || time.Now().After(e.expiresAt) {
		delete(s.sessions, id)
		return models.ErrConversationNotFound
	}
	e.conv.Messages = append(e.conv.Messages, msg)
	e.conv.UpdatedAt = time.Now()
	e.expiresAt = time.Now().Add(ttl)
	return nil
}

func (s *Store) History(ctx context.Context, id string) ([]models.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	if !ok || time.Now().After(e.expiresAt) {
		return nil, models.ErrConversationNotFound
	}
	out := make([]models.ChatMessage, len(e.conv.Messages))
	copy(out, e.conv.Messages)
	return out, nil
}
