package redis_session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tripweaver/tripweaver/models"
	"github.com/tripweaver/tripweaver/session"
)

// Store keeps conversation transcripts as redis lists keyed per
// conversation, with TTL-based expiry.
type Store struct {
	client *redis.Client
}

func NewStore(client *redis.Client) session.Store {
	return &Store{client: client}
}

func key(id string) string { return fmt.Sprintf("conversation:%s", id) }

func (s *Store) EnsureConversation(ctx context.Context, id string, ttl time.Duration) (*models.Conversation, error) {
	if id != "" {
		exists, err := s.client.Exists(ctx, key(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis exists: %w", err)
		}
		if exists == 1 {
			if err := s.client.Expire(ctx, key(id), ttl).Err(); err != nil {
				return nil, fmt.Errorf("redis expire: %w", err)
			}
			msgs, err := s.History(ctx, id)
			if err != nil {
				return nil, err
			}
			return &models.Conversation{ID: id, Messages: msgs, UpdatedAt: time.Now()}, nil
		}
	}
	newID := uuid.NewString()
	// initialize with an empty sentinel so Exists works before any turn
	if err := s.client.RPush(ctx, key(newID), "{}").Err(); err != nil {
		return nil, fmt.Errorf("redis rpush: %w", err)
	}
	if err := s.client.Expire(ctx, key(newID), ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis expire: %w", err)
	}
	return &models.Conversation{ID: newID, UpdatedAt: time.Now()}, nil
}

func (s *Store) AppendMessage(ctx context.Context, id string, msg models.ChatMessage, ttl time.Duration) error {
	exists, err := s.client.Exists(ctx, key(id)).Result()
	if err != nil {
		return fmt.Errorf("redis exists: %w", err)
	}
	if exists == 0 {
		return models.ErrConversationNotFound
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	if err := s.client.RPush(ctx, key(id), payload).Err(); err != nil {
		return fmt.Errorf("redis rpush: %w", err)
	}
	return s.client.Expire(ctx, key(id), ttl).Err()
}

func (s *Store) History(ctx context.Context, id string) ([]models.ChatMessage, error) {
	vals, err := s.client.LRange(ctx, key(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lrange: %w", err)
	}
	if len(vals) == 0 {
		return nil, models.ErrConversationNotFound
	}
	var msgs []models.ChatMessage
	for _, v := range vals {
		var m models.ChatMessage
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			continue
		}
		if m.Role == "" {
			// empty sentinel written at creation
			continue
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}
