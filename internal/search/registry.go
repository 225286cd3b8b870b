package search

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/tripweaver/tripweaver/internal/scrapehub"
)

// ErrProviderNotFound is returned when the remote catalog has no job
// definition with the expected display name.
var ErrProviderNotFound = errors.New("provider job not found in catalog")

// jobNames maps provider keys to the display names under which their job
// definitions are registered in the scraping service catalog.
var jobNames = map[ProviderKey]string{
	ProviderLodgingPeer:  "Peer Stay Search",
	ProviderLodgingHotel: "Hotel Listing Search",
	ProviderFlights:      "Flight Fare Search",
}

// CatalogClient lists the remote job catalog.
type CatalogClient interface {
	ListJobs(ctx context.Context) ([]scrapehub.JobDefinition, error)
}

// Registry resolves provider keys to remote job-definition ids. The
// catalog changes rarely and the lookup is a network round trip, so the
// name->id map is cached process-wide after the first successful fetch.
// A failed fetch never populates the cache. Constructed once at startup
// and passed by reference so tests can reset or substitute it.
type Registry struct {
	client CatalogClient
	logger *log.Logger

	mu  sync.RWMutex
	ids map[ProviderKey]string
}

func NewRegistry(client CatalogClient, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.New(log.Writer(), "[REGISTRY] ", log.LstdFlags)
	}
	return &Registry{client: client, logger: logger}
}

// Resolve translates a provider key to its remote job-definition id,
// fetching the catalog on a cold cache.
func (r *Registry) Resolve(ctx context.Context, key ProviderKey) (string, error) {
	r.mu.RLock()
	ids := r.ids
	r.mu.RUnlock()

	if ids == nil {
		fetched, err := r.fetch(ctx)
		if err != nil {
			return "", err
		}
		// Two cold callers may both fetch; both produce the same map
		// content, so last-writer-wins is fine.
		r.mu.Lock()
		r.ids = fetched
		r.mu.Unlock()
		ids = fetched
	}

	id, ok := ids[key]
	if !ok {
		return "", fmt.Errorf("%w: %s (%s)", ErrProviderNotFound, key, jobNames[key])
	}
	return id, nil
}

func (r *Registry) fetch(ctx context.Context) (map[ProviderKey]string, error) {
	jobs, err := r.client.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog lookup: %w", err)
	}
	byName := make(map[string]string, len(jobs))
	for _, j := range jobs {
		byName[j.Name] = j.ID
	}
	ids := make(map[ProviderKey]string, len(jobNames))
	for key, name := range jobNames {
		if id, ok := byName[name]; ok {
			ids[key] = id
		}
	}
	r.logger.Printf("catalog loaded: %d definitions, %d providers resolved", len(jobs), len(ids))
	return ids, nil
}

// Reset drops the cached catalog so the next Resolve refetches it.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.ids = nil
	r.mu.Unlock()
}
