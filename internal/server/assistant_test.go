package server

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tripweaver/tripweaver/internal/search"
	"github.com/tripweaver/tripweaver/internal/store"
	"github.com/tripweaver/tripweaver/models"
	"github.com/tripweaver/tripweaver/session/inmemory"
)

type gathererStub struct {
	bundle *search.SearchBundle
	err    error
	calls  int
	lastID string
}

func (g *gathererStub) GatherSearchBundle(ctx context.Context, inputs search.TripInputs, requestID string) (*search.SearchBundle, error) {
	g.calls++
	g.lastID = requestID
	return g.bundle, g.err
}

type llmStub struct {
	itineraries int
	generals    int
}

func (l *llmStub) BuildItinerary(ctx context.Context, details models.TripDetails, bundle *search.SearchBundle, history []models.ChatMessage) (string, error) {
	l.itineraries++
	return "here is your itinerary", nil
}

func (l *llmStub) GeneralMessage(ctx context.Context, message string, history []models.ChatMessage) (string, error) {
	l.generals++
	return "general answer", nil
}

type bundleStoreStub struct {
	saved  map[string]*store.SavedBundle
	nextID string
}

func (b *bundleStoreStub) SaveSearchBundle(ctx context.Context, requestID, userID string, inputs search.TripInputs, bundle *search.SearchBundle) (string, error) {
	if b.saved == nil {
		b.saved = map[string]*store.SavedBundle{}
	}
	id := b.nextID
	if id == "" {
		id = "bundle-1"
	}
	b.saved[id] = &store.SavedBundle{ID: id, RequestID: requestID, UserID: userID, Inputs: inputs, Bundle: bundle, CreatedAt: time.Now()}
	return id, nil
}

func (b *bundleStoreStub) GetSearchBundle(ctx context.Context, id, userID string) (*store.SavedBundle, error) {
	sb, ok := b.saved[id]
	if !ok || sb.UserID != userID {
		return nil, store.ErrNotFound
	}
	return sb, nil
}

func (b *bundleStoreStub) ListSearchBundles(ctx context.Context, userID string, limit int) ([]store.SavedBundle, error) {
	var out []store.SavedBundle
	for _, sb := range b.saved {
		if sb.UserID == userID {
			out = append(out, *sb)
		}
	}
	return out, nil
}

func okBundle() *search.SearchBundle {
	return &search.SearchBundle{
		Stays:   []map[string]interface{}{{"title": "Harbor Loft"}},
		Flights: []map[string]interface{}{},
		Verification: search.Verification{
			SearchedAt:         time.Now(),
			ProvidersAttempted: []search.ProviderKey{search.ProviderLodgingPeer},
			ProvidersSucceeded: []search.ProviderKey{search.ProviderLodgingPeer},
			Counts:             map[search.ProviderKey]int{search.ProviderLodgingPeer: 1},
			Status:             search.BundleOK,
		},
	}
}

func newTestHandler(g *gathererStub, l *llmStub, b *bundleStoreStub) (*echo.Echo, []byte) {
	secret := []byte("test-secret")
	h := &AssistantHandler{
		Sessions: inmemory.NewStore(),
		Bundles:  b,
		Gatherer: g,
		LLM:      l,
		TTL:      time.Hour,
		Logger:   log.New(io.Discard, "", 0),
	}
	e := echo.New()
	h.Register(e.Group("/api/trips"), secret)
	return e, secret
}

func authedRequest(t *testing.T, method, target, body string, secret []byte) *http.Request {
	t.Helper()
	token, err := SignJWT("user-1", secret, time.Hour)
	if err != nil {
		t.Fatalf("sign jwt: %v", err)
	}
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, rd)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAssistantRunsSearchWhenDestinationPresent(t *testing.T) {
	g := &gathererStub{bundle: okBundle()}
	l := &llmStub{}
	b := &bundleStoreStub{}
	e, secret := newTestHandler(g, l, b)

	body := `{"message":"plan my trip","trip":{"destination":"Lisbon","accommodation":"apartment rental","travelers":2}}`
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/trips/assistant", body, secret))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if g.calls != 1 {
		t.Fatalf("expected one gather call, got %d", g.calls)
	}
	if l.itineraries != 1 || l.generals != 0 {
		t.Fatalf("expected itinerary path, got itineraries=%d generals=%d", l.itineraries, l.generals)
	}
	var resp AssistantResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatalf("expected session id in response")
	}
	if resp.Verification == nil || resp.Verification.Status != search.BundleOK {
		t.Fatalf("expected ok verification, got %+v", resp.Verification)
	}
	if resp.BundleID == "" {
		t.Fatalf("expected saved bundle id")
	}
	if resp.Reply != "here is your itinerary" {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
}

func TestAssistantGeneralMessageWithoutDestination(t *testing.T) {
	g := &gathererStub{bundle: okBundle()}
	l := &llmStub{}
	e, secret := newTestHandler(g, l, &bundleStoreStub{})

	body := `{"message":"what should I pack for rain?"}`
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/trips/assistant", body, secret))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if g.calls != 0 {
		t.Fatalf("expected no gather calls, got %d", g.calls)
	}
	if l.generals != 1 {
		t.Fatalf("expected general message path, got %d", l.generals)
	}
}

func TestAssistantReusesSession(t *testing.T) {
	g := &gathererStub{bundle: okBundle()}
	l := &llmStub{}
	e, secret := newTestHandler(g, l, &bundleStoreStub{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/trips/assistant", `{"message":"hello"}`, secret))
	var first AssistantResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &first)
	if first.SessionID == "" {
		t.Fatalf("expected session id")
	}

	rec = httptest.NewRecorder()
	body := `{"session_id":"` + first.SessionID + `","message":"and again"}`
	e.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/trips/assistant", body, secret))
	var second AssistantResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &second)
	if second.SessionID != first.SessionID {
		t.Fatalf("expected same session id, got %q vs %q", second.SessionID, first.SessionID)
	}
}

func TestAssistantRejectsEmptyMessage(t *testing.T) {
	e, secret := newTestHandler(&gathererStub{}, &llmStub{}, &bundleStoreStub{})
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/trips/assistant", `{"message":""}`, secret))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAssistantBadTripInputsReturn400(t *testing.T) {
	g := &gathererStub{err: echoCompatibleErr("start_date after end_date")}
	e, secret := newTestHandler(g, &llmStub{}, &bundleStoreStub{})
	body := `{"message":"plan","trip":{"destination":"Lisbon","start_date":"2026-07-10","end_date":"2026-07-01"}}`
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, authedRequest(t, http.MethodPost, "/api/trips/assistant", body, secret))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAssistantRequiresAuth(t *testing.T) {
	e, _ := newTestHandler(&gathererStub{}, &llmStub{}, &bundleStoreStub{})
	req := httptest.NewRequest(http.MethodPost, "/api/trips/assistant", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestGetBundleScopedToOwner(t *testing.T) {
	b := &bundleStoreStub{saved: map[string]*store.SavedBundle{
		"b1": {ID: "b1", UserID: "someone-else", Bundle: okBundle()},
		"b2": {ID: "b2", UserID: "user-1", Bundle: okBundle()},
	}}
	e, secret := newTestHandler(&gathererStub{}, &llmStub{}, b)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/api/trips/bundles/b1", "", secret))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign bundle, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, authedRequest(t, http.MethodGet, "/api/trips/bundles/b2", "", secret))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for own bundle, got %d", rec.Code)
	}
}

type echoCompatibleErr string

func (e echoCompatibleErr) Error() string { return string(e) }
