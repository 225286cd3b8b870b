package inmemory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tripweaver/tripweaver/models"
)

func TestEnsureConversationCreatesAndReuses(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	conv, err := store.EnsureConversation(ctx, "", time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conv.ID == "" {
		t.Fatalf("expected generated conversation id")
	}

	again, err := store.EnsureConversation(ctx, conv.ID, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ID != conv.ID {
		t.Fatalf("expected same conversation, got %s vs %s", again.ID, conv.ID)
	}
}

func TestAppendAndHistory(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	conv, _ := store.EnsureConversation(ctx, "", time.Minute)

	if err := store.AppendMessage(ctx, conv.ID, models.ChatMessage{Role: "user", Content: "plan a trip to Lisbon"}, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.AppendMessage(ctx, conv.ID, models.ChatMessage{Role: "assistant", Content: "sure"}, time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msgs, err := store.History(ctx, conv.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Role != "user" || msgs[1].Role != "assistant" {
		t.Fatalf("unexpected history: %#v", msgs)
	}
}

func TestUnknownConversation(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if _, err := store.History(ctx, "nope"); !errors.Is(err, models.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
	if err := store.AppendMessage(ctx, "nope", models.ChatMessage{Role: "user", Content: "x"}, time.Minute); !errors.Is(err, models.ErrConversationNotFound) {
		t.Fatalf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestExpiredConversation(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	conv, _ := store.EnsureConversation(ctx, "", time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	if _, err := store.History(ctx, conv.ID); !errors.Is(err, models.ErrConversationNotFound) {
		t.Fatalf("expected expiry, got %v", err)
	}
}
