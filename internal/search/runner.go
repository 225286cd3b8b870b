package search

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tripweaver/tripweaver/config"
	"github.com/tripweaver/tripweaver/internal/scrapehub"
	"github.com/tripweaver/tripweaver/internal/telemetry"
)

var runnerTracer trace.Tracer = otel.Tracer("tripweaver/internal/search/runner")

// RunClient drives one remote job execution: submit, poll, fetch.
type RunClient interface {
	StartRun(ctx context.Context, jobID string, params map[string]interface{}) (string, error)
	RunStatus(ctx context.Context, runID string) (string, error)
	RunResults(ctx context.Context, runID string) ([]map[string]interface{}, error)
}

// Runner executes one provider's remote job to completion or failure.
// Each attempt owns its own deadline (submit time + provider timeout);
// a retry restarts the whole job with a fresh submit and fresh deadline,
// because remote run ids are not guaranteed resumable.
type Runner struct {
	client    RunClient
	cfg       config.SearchConfig
	logger    *log.Logger
	telemetry *telemetry.Telemetry
}

func NewRunner(client RunClient, cfg config.SearchConfig, logger *log.Logger, tel *telemetry.Telemetry) *Runner {
	if logger == nil {
		logger = log.New(log.Writer(), "[SEARCH] ", log.LstdFlags)
	}
	return &Runner{client: client, cfg: cfg, logger: logger, telemetry: tel}
}

// Run drives the provider's job through submit -> poll -> fetch and maps
// the terminal outcome onto a ProviderResult. Failures never escape as
// errors; they are folded into the result.
func (r *Runner) Run(ctx context.Context, key ProviderKey, jobID string, params map[string]interface{}) ProviderResult {
	ctx, span := runnerTracer.Start(ctx, "search.provider_run",
		trace.WithAttributes(
			attribute.String("provider", string(key)),
			attribute.String("job.id", jobID),
		))
	defer span.End()

	start := time.Now()
	timeout := r.cfg.TimeoutFor(string(key))
	attempts := r.cfg.MaxRetries + 1

	var result ProviderResult
	for attempt := 1; attempt <= attempts; attempt++ {
		var retryable bool
		result, retryable = r.attempt(ctx, key, jobID, params, attempt, timeout)
		if result.Status == StatusOK || !retryable || ctx.Err() != nil {
			break
		}
		if attempt < attempts {
			r.logger.Printf("provider=%s attempt=%d failed (%s), restarting job", key, attempt, result.Error)
		}
	}

	result.DurationMs = time.Since(start).Milliseconds()
	if r.telemetry != nil {
		r.telemetry.RecordProviderRun(string(key), string(result.Status), time.Since(start), len(result.Results))
	}
	span.SetAttributes(
		attribute.String("result.status", string(result.Status)),
		attribute.Int("result.count", len(result.Results)),
	)
	if result.Status != StatusOK {
		span.SetStatus(codes.Error, result.Error)
	}
	r.logger.Printf("provider=%s status=%s results=%d elapsed=%dms", key, result.Status, len(result.Results), result.DurationMs)
	return result
}

// attempt runs one full submit/poll/fetch cycle. The second return value
// reports whether the failure is worth a fresh submit: transport failures
// on submit or fetch are; a remote "failed" verdict and a blown deadline
// are final.
func (r *Runner) attempt(ctx context.Context, key ProviderKey, jobID string, params map[string]interface{}, attempt int, timeout time.Duration) (ProviderResult, bool) {
	result := ProviderResult{Provider: key, Results: []map[string]interface{}{}}
	attemptStart := time.Now()
	deadline := attemptStart.Add(timeout)

	runID, err := r.client.StartRun(ctx, jobID, params)
	if err != nil {
		result.Status = StatusError
		result.Error = fmt.Sprintf("submit: %v", err)
		return result, true
	}
	r.logger.Printf("provider=%s attempt=%d run=%s submitted", key, attempt, runID)

	for {
		select {
		case <-ctx.Done():
			result.Status = StatusError
			result.Error = ctx.Err().Error()
			return result, false
		case <-time.After(r.cfg.PollInterval):
		}
		if time.Now().After(deadline) {
			result.Status = StatusTimeout
			result.Error = fmt.Sprintf("no terminal status within %s", timeout)
			return result, false
		}

		status, err := r.client.RunStatus(ctx, runID)
		if err != nil {
			// transient: keep polling until the deadline
			r.logger.Printf("provider=%s attempt=%d run=%s poll failed: %v", key, attempt, runID, err)
			continue
		}

		switch status {
		case scrapehub.RunStatusSuccess:
			records, err := r.client.RunResults(ctx, runID)
			if err != nil {
				result.Status = StatusError
				result.Error = fmt.Sprintf("fetch results: %v", err)
				return result, true
			}
			result.Status = StatusOK
			if records != nil {
				result.Results = records
			}
			r.logger.Printf("provider=%s attempt=%d run=%s elapsed=%s results=%d", key, attempt, runID, time.Since(attemptStart).Round(time.Millisecond), len(result.Results))
			return result, false
		case scrapehub.RunStatusFailed:
			result.Status = StatusError
			result.Error = "remote job failed"
			return result, false
		}
	}
}
