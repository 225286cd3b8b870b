package session

import (
	"context"
	"time"

	"github.com/tripweaver/tripweaver/models"
)

// Store keeps assistant conversation transcripts between requests.
type Store interface {
	// EnsureConversation returns the conversation with the given id,
	// creating a fresh one (with a generated id) when id is empty or
	// unknown. The TTL is refreshed on every call.
	EnsureConversation(ctx context.Context, id string, ttl time.Duration) (*models.Conversation, error)
	// AppendMessage appends one turn to an existing conversation.
	AppendMessage(ctx context.Context, id string, msg models.ChatMessage, ttl time.Duration) error
	// History returns the transcript for a conversation, or
	// models.ErrConversationNotFound.
	History(ctx context.Context, id string) ([]models.ChatMessage, error)
}
