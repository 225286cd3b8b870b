package search

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tripweaver/tripweaver/config"
	"github.com/tripweaver/tripweaver/internal/telemetry"
)

var orchestratorTracer trace.Tracer = otel.Tracer("tripweaver/internal/search/orchestrator")

// Resolver translates provider keys to remote job-definition ids.
type Resolver interface {
	Resolve(ctx context.Context, key ProviderKey) (string, error)
}

// ProviderRunner executes one provider's remote job to a terminal result.
type ProviderRunner interface {
	Run(ctx context.Context, key ProviderKey, jobID string, params map[string]interface{}) ProviderResult
}

// Orchestrator gates, fans out, and aggregates provider searches into a
// single attributable bundle. Providers run concurrently and each bounds
// its own deadline, so the bundle's worst case is the slowest provider's
// timeout (plus its retries), not the sum across providers.
type Orchestrator struct {
	cfg       config.SearchConfig
	registry  Resolver
	runner    ProviderRunner
	logger    *log.Logger
	telemetry *telemetry.Telemetry
	now       func() time.Time
}

func NewOrchestrator(cfg config.SearchConfig, registry Resolver, runner ProviderRunner, logger *log.Logger, tel *telemetry.Telemetry) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{
		cfg:       cfg,
		registry:  registry,
		runner:    runner,
		logger:    logger,
		telemetry: tel,
		now:       time.Now,
	}
}

// GatherSearchBundle runs the full orchestration for one trip request.
// Provider-level failures are folded into the bundle; only pre-flight
// failures (parameter construction) surface as errors, since no
// meaningful partial bundle exists in that case.
func (o *Orchestrator) GatherSearchBundle(ctx context.Context, inputs TripInputs, requestID string) (*SearchBundle, error) {
	ctx, span := orchestratorTracer.Start(ctx, "search.gather_bundle",
		trace.WithAttributes(
			attribute.String("request.id", requestID),
			attribute.String("destination", inputs.Destination),
		))
	defer span.End()

	searchedAt := o.now()
	providers := SelectProviders(inputs)
	span.SetAttributes(attribute.Int("providers.selected", len(providers)))

	if len(providers) == 0 {
		o.logger.Printf("request=%s no providers needed", requestID)
		return &SearchBundle{
			Stays:        []map[string]interface{}{},
			Flights:      []map[string]interface{}{},
			Providers:    []ProviderResult{},
			Verification: buildVerification([]ProviderKey{}, nil, searchedAt),
		}, nil
	}

	params := make(map[ProviderKey]map[string]interface{}, len(providers))
	for _, key := range providers {
		p, err := BuildParams(key, inputs, searchedAt)
		if err != nil {
			return nil, fmt.Errorf("build params for %s: %w", key, err)
		}
		params[key] = p
	}

	o.logger.Printf("request=%s launching %d providers: %v", requestID, len(providers), providers)

	// one result slot per provider, filled in launch order
	results := make([]ProviderResult, len(providers))
	var wg sync.WaitGroup
	for i, key := range providers {
		wg.Add(1)
		go func(i int, key ProviderKey) {
			defer wg.Done()
			results[i] = o.runProvider(ctx, key, params[key])
		}(i, key)
	}
	wg.Wait()

	bundle := &SearchBundle{
		Stays:     []map[string]interface{}{},
		Flights:   []map[string]interface{}{},
		Providers: results,
	}
	for _, r := range results {
		switch {
		case r.Provider.IsLodging():
			bundle.Stays = append(bundle.Stays, r.Results...)
		case r.Provider.IsFlights():
			bundle.Flights = append(bundle.Flights, r.Results...)
		}
	}
	bundle.Verification = buildVerification(providers, results, searchedAt)

	if o.telemetry != nil {
		o.telemetry.RecordBundle(string(bundle.Verification.Status))
	}
	span.SetAttributes(attribute.String("bundle.status", string(bundle.Verification.Status)))
	o.logger.Printf("request=%s bundle status=%s stays=%d flights=%d",
		requestID, bundle.Verification.Status, len(bundle.Stays), len(bundle.Flights))
	return bundle, nil
}

// runProvider resolves the provider's job id and drives the run. A
// catalog failure becomes an error result for this provider; the next
// orchestration call retries the catalog fetch.
func (o *Orchestrator) runProvider(ctx context.Context, key ProviderKey, params map[string]interface{}) ProviderResult {
	jobID, err := o.registry.Resolve(ctx, key)
	if err != nil {
		o.logger.Printf("provider=%s resolve failed: %v", key, err)
		return ProviderResult{
			Provider: key,
			Status:   StatusError,
			Results:  []map[string]interface{}{},
			Error:    fmt.Sprintf("resolve job: %v", err),
		}
	}
	return o.runner.Run(ctx, key, jobID, params)
}
