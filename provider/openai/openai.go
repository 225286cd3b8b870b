package openai_provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tripweaver/tripweaver/internal/search"
	"github.com/tripweaver/tripweaver/models"
)

const (
	openaiAPIURL = "https://api.openai.com/v1/chat/completions"
)

// client implements the provider interface using OpenAI's API
type client struct {
	apiKey          string
	completionModel string
	temperature     float64
	maxTokens       int
	httpClient      *http.Client
}

// request represents a request to the OpenAI API
type request struct {
	Model       string               `json:"model"`
	Messages    []models.ChatMessage `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
}

// response represents a response from the OpenAI API
type response struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey, completionModel string, temperature float64, maxTokens int, timeout time.Duration) *client {
	if timeout == 0 {
		timeout = 45 * time.Second
	}
	return &client{
		apiKey:          apiKey,
		completionModel: completionModel,
		temperature:     temperature,
		maxTokens:       maxTokens,
		httpClient:      &http.Client{Timeout: timeout},
	}
}

const itinerarySystemPrompt = `You are a travel-planning assistant. Draft a day-by-day itinerary
for the trip described below, grounding lodging and flight suggestions in the attached search
results only. Cite listings by their titles. If a category of search results is empty, say so
and advise the traveler to check that provider directly instead of inventing listings.`

// BuildItinerary renders the trip details and search bundle into prompts
// and asks the model for an itinerary reply.
func (c *client) BuildItinerary(ctx context.Context, details models.TripDetails, bundle *search.SearchBundle, history []models.ChatMessage) (string, error) {
	detailsJSON, err := json.MarshalIndent(details, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal trip details: %w", err)
	}

	msgs := []models.ChatMessage{
		{Role: "system", Content: itinerarySystemPrompt},
		{Role: "system", Content: "Trip details:\n" + string(detailsJSON)},
	}
	if bundle != nil {
		bundleJSON, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal search bundle: %w", err)
		}
		msgs = append(msgs, models.ChatMessage{
			Role:    "system",
			Content: "Current search results (with provider attribution):\n" + string(bundleJSON),
		})
	}
	msgs = append(msgs, truncateHistory(history, 20)...)

	return c.complete(ctx, msgs)
}

// GeneralMessage answers a free-form question in the context of the
// conversation so far.
func (c *client) GeneralMessage(ctx context.Context, message string, history []models.ChatMessage) (string, error) {
	msgs := []models.ChatMessage{
		{Role: "system", Content: "You are a concise, helpful travel-planning assistant."},
	}
	msgs = append(msgs, truncateHistory(history, 20)...)
	msgs = append(msgs, models.ChatMessage{Role: "user", Content: message})
	return c.complete(ctx, msgs)
}

func (c *client) complete(ctx context.Context, msgs []models.ChatMessage) (string, error) {
	reqBody := request{
		Model:       c.completionModel,
		Messages:    msgs,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", openaiAPIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API returned status: %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	reply := strings.TrimSpace(out.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("assistant returned an empty message")
	}
	return reply, nil
}

func truncateHistory(history []models.ChatMessage, limit int) []models.ChatMessage {
	var out []models.ChatMessage
	for _, m := range history {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		if m.Content == "" {
			continue
		}
		out = append(out, m)
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
