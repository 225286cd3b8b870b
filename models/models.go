package models

import (
	"errors"
	"time"
)

// ErrConversationNotFound is returned when a conversation is not found.
var ErrConversationNotFound = errors.New("conversation not found")

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"` // user or assistant
	Content string `json:"content"`
}

// TripDetails are the trip preferences collected by the conversational
// frontend. Dates use the 2006-01-02 layout.
type TripDetails struct {
	Destination    string  `json:"destination"`
	OriginCity     string  `json:"origin_city,omitempty"`
	Accommodation  string  `json:"accommodation,omitempty"`
	StartDate      string  `json:"start_date,omitempty"`
	EndDate        string  `json:"end_date,omitempty"`
	TripLengthDays int     `json:"trip_length_days,omitempty"`
	Travelers      int     `json:"travelers,omitempty"`
	Budget         float64 `json:"budget,omitempty"`
}

// Conversation is a stored assistant transcript.
type Conversation struct {
	ID        string        `json:"id"`
	Messages  []ChatMessage `json:"messages"`
	UpdatedAt time.Time     `json:"updated_at"`
}
