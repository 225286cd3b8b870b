package provider

import (
	"context"
	"errors"

	"github.com/tripweaver/tripweaver/config"
	"github.com/tripweaver/tripweaver/internal/search"
	"github.com/tripweaver/tripweaver/models"
	openai_provider "github.com/tripweaver/tripweaver/provider/openai"
)

// Client represents different LLM providers
type Client string

const (
	OpenAI    Client = "openai"
	Anthropic Client = "anthropic"
	Gemini    Client = "gemini"
)

// Provider is the prompt-builder collaborator: it turns trip details plus
// a search bundle into an itinerary reply. The bundle is handed over as
// structured data; the provider decides how to render it into prompts.
type Provider interface {
	BuildItinerary(ctx context.Context, details models.TripDetails, bundle *search.SearchBundle, history []models.ChatMessage) (string, error)
	GeneralMessage(ctx context.Context, message string, history []models.ChatMessage) (string, error)
}

// NewProvider creates an LLM client from configuration.
func NewProvider(cfg config.LLMConfig) (Provider, error) {
	switch Client(cfg.Provider) {
	case OpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("llm.api_key not set")
		}
		return openai_provider.NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.Temperature, cfg.MaxTokens, cfg.Timeout), nil
	case Anthropic:
		return nil, errors.New("anthropic client not implemented yet")
	case Gemini:
		return nil, errors.New("gemini client not implemented yet")
	default:
		return nil, errors.New("unsupported LLM provider")
	}
}
