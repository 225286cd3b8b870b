package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/tripweaver/tripweaver/internal/search"
	"github.com/tripweaver/tripweaver/internal/store"
	"github.com/tripweaver/tripweaver/models"
	"github.com/tripweaver/tripweaver/provider"
	"github.com/tripweaver/tripweaver/session"
)

// BundleGatherer runs the provider fan-out for one trip.
type BundleGatherer interface {
	GatherSearchBundle(ctx context.Context, inputs search.TripInputs, requestID string) (*search.SearchBundle, error)
}

// BundleStore persists and retrieves search bundles.
type BundleStore interface {
	SaveSearchBundle(ctx context.Context, requestID, userID string, inputs search.TripInputs, bundle *search.SearchBundle) (string, error)
	GetSearchBundle(ctx context.Context, id, userID string) (*store.SavedBundle, error)
	ListSearchBundles(ctx context.Context, userID string, limit int) ([]store.SavedBundle, error)
}

type AssistantHandler struct {
	Sessions session.Store
	Bundles  BundleStore
	Gatherer BundleGatherer
	LLM      provider.Provider
	TTL      time.Duration
	Logger   *log.Logger
}

func (h *AssistantHandler) Register(g *echo.Group, secret []byte) {
	g.Use(func(next echo.HandlerFunc) echo.HandlerFunc { return withAuth(next, secret) })
	g.POST("/assistant", h.assistant)
	g.GET("/bundles", h.listBundles)
	g.GET("/bundles/:id", h.getBundle)
}

// assistant handles one conversational turn. When trip details carry a
// destination it runs the search fan-out first and grounds the reply in
// the resulting bundle; otherwise it answers from the transcript alone.
func (h *AssistantHandler) assistant(c echo.Context) error {
	var req AssistantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	ctx := c.Request().Context()
	userID, _ := c.Get("user_id").(string)

	conv, err := h.Sessions.EnsureConversation(ctx, req.SessionID, h.TTL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	history := conv.Messages
	userMsg := models.ChatMessage{Role: "user", Content: req.Message}
	if err := h.Sessions.AppendMessage(ctx, conv.ID, userMsg, h.TTL); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := AssistantResponse{SessionID: conv.ID}
	if req.Trip.Destination != "" {
		inputs := tripInputs(req.Trip)
		requestID := uuid.NewString()
		bundle, err := h.Gatherer.GatherSearchBundle(ctx, inputs, requestID)
		if err != nil {
			// only malformed trip inputs abort the gather
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if h.Bundles != nil && userID != "" {
			id, err := h.Bundles.SaveSearchBundle(ctx, requestID, userID, inputs, bundle)
			if err != nil {
				h.Logger.Printf("save bundle failed request=%s: %v", requestID, err)
			} else {
				resp.BundleID = id
			}
		}
		resp.Verification = &bundle.Verification

		reply, err := h.LLM.BuildItinerary(ctx, req.Trip, bundle, append(history, userMsg))
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		resp.Reply = reply
	} else {
		reply, err := h.LLM.GeneralMessage(ctx, req.Message, history)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadGateway, err.Error())
		}
		resp.Reply = reply
	}

	assistantMsg := models.ChatMessage{Role: "assistant", Content: resp.Reply}
	if err := h.Sessions.AppendMessage(ctx, conv.ID, assistantMsg, h.TTL); err != nil {
		h.Logger.Printf("append assistant message failed session=%s: %v", conv.ID, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AssistantHandler) getBundle(c echo.Context) error {
	if h.Bundles == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "bundle storage not configured")
	}
	userID, _ := c.Get("user_id").(string)
	sb, err := h.Bundles.GetSearchBundle(c.Request().Context(), c.Param("id"), userID)
	if errors.Is(err, store.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "bundle not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sb)
}

func (h *AssistantHandler) listBundles(c echo.Context) error {
	if h.Bundles == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "bundle storage not configured")
	}
	userID, _ := c.Get("user_id").(string)
	items, err := h.Bundles.ListSearchBundles(c.Request().Context(), userID, 20)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]BundleSummary, 0, len(items))
	for _, sb := range items {
		out = append(out, BundleSummary{
			ID:          sb.ID,
			RequestID:   sb.RequestID,
			Destination: sb.Inputs.Destination,
			Inputs:      sb.Inputs,
			CreatedAt:   sb.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func tripInputs(d models.TripDetails) search.TripInputs {
	return search.TripInputs{
		Destination:    d.Destination,
		OriginCity:     d.OriginCity,
		Accommodation:  d.Accommodation,
		StartDate:      d.StartDate,
		EndDate:        d.EndDate,
		TripLengthDays: d.TripLengthDays,
		Travelers:      d.Travelers,
		Budget:         d.Budget,
	}
}
