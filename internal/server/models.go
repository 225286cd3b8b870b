package server

import (
	"time"

	"github.com/tripweaver/tripweaver/internal/search"
	"github.com/tripweaver/tripweaver/models"
)

// HTTPError is the JSON error envelope returned by the API.
type HTTPError struct {
	Error string `json:"error"`
}

type AuthSignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	Token string `json:"token"`
}

// AssistantRequest is one conversational turn. Trip details are optional:
// when Destination is empty the message is answered without running any
// provider searches.
type AssistantRequest struct {
	SessionID string             `json:"session_id,omitempty"`
	Message   string             `json:"message"`
	Trip      models.TripDetails `json:"trip"`
}

type AssistantResponse struct {
	SessionID    string               `json:"session_id"`
	Reply        string               `json:"reply"`
	BundleID     string               `json:"bundle_id,omitempty"`
	Verification *search.Verification `json:"verification,omitempty"`
}

type BundleSummary struct {
	ID          string            `json:"id"`
	RequestID   string            `json:"request_id"`
	Destination string            `json:"destination"`
	Inputs      search.TripInputs `json:"inputs"`
	CreatedAt   time.Time         `json:"created_at"`
}
