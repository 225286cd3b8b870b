package search

import (
	"time"
)

// ProviderKey identifies one external data source category.
type ProviderKey string

const (
	ProviderLodgingPeer  ProviderKey = "lodging-peer"
	ProviderLodgingHotel ProviderKey = "lodging-hotel"
	ProviderFlights      ProviderKey = "flights"
)

// IsLodging reports whether the provider belongs to the lodging category.
func (k ProviderKey) IsLodging() bool {
	return k == ProviderLodgingPeer || k == ProviderLodgingHotel
}

// IsFlights reports whether the provider belongs to the flight category.
func (k ProviderKey) IsFlights() bool {
	return k == ProviderFlights
}

// ResultStatus is the terminal outcome of one provider attempt chain.
type ResultStatus string

const (
	StatusOK      ResultStatus = "ok"
	StatusError   ResultStatus = "error"
	StatusTimeout ResultStatus = "timeout"
)

// ProviderResult is the immutable outcome of driving one provider's remote
// job to completion or failure. Produced exactly once per attempted
// provider per orchestration call.
type ProviderResult struct {
	Provider   ProviderKey              `json:"provider"`
	Status     ResultStatus             `json:"status"`
	Results    []map[string]interface{} `json:"results"`
	Error      string                   `json:"error,omitempty"`
	DurationMs int64                    `json:"duration_ms"`
}

// BundleStatus summarises an orchestration call across all attempted
// providers.
type BundleStatus string

const (
	BundleOK           BundleStatus = "ok"
	BundlePartial      BundleStatus = "partial"
	BundleScrapeFailed BundleStatus = "scrape_failed"
)

// Verification is the attribution report attached to a bundle. It is
// derived entirely from the collected ProviderResults and never mutated
// after construction.
type Verification struct {
	SearchedAt         time.Time               `json:"searched_at"`
	ProvidersAttempted []ProviderKey           `json:"providers_attempted"`
	ProvidersSucceeded []ProviderKey           `json:"providers_succeeded"`
	ProviderErrors     map[ProviderKey]string  `json:"provider_errors,omitempty"`
	Counts             map[ProviderKey]int     `json:"counts"`
	Status             BundleStatus            `json:"status"`
}

// SearchBundle is the unit handed to the downstream prompt builder.
type SearchBundle struct {
	Stays        []map[string]interface{} `json:"stays"`
	Flights      []map[string]interface{} `json:"flights"`
	Providers    []ProviderResult         `json:"providers"`
	Verification Verification             `json:"verification"`
}

// TripInputs are the normalized trip preferences the orchestrator works
// from. Dates use the 2006-01-02 layout; zero values mean "not provided".
type TripInputs struct {
	Destination    string  `json:"destination"`
	OriginCity     string  `json:"origin_city"`
	Accommodation  string  `json:"accommodation"`
	StartDate      string  `json:"start_date,omitempty"`
	EndDate        string  `json:"end_date,omitempty"`
	TripLengthDays int     `json:"trip_length_days,omitempty"`
	Travelers      int     `json:"travelers,omitempty"`
	Budget         float64 `json:"budget,omitempty"`
}

// buildVerification derives the report per the status invariants:
// ok requires every attempted provider succeeded (or none were needed),
// scrape_failed requires zero successes with at least one attempt, and
// partial is the residual case.
func buildVerification(attempted []ProviderKey, results []ProviderResult, searchedAt time.Time) Verification {
	v := Verification{
		SearchedAt:         searchedAt,
		ProvidersAttempted: attempted,
		ProvidersSucceeded: []ProviderKey{},
		ProviderErrors:     map[ProviderKey]string{},
		Counts:             map[ProviderKey]int{},
	}
	for _, r := range results {
		v.Counts[r.Provider] = len(r.Results)
		if r.Status == StatusOK {
			v.ProvidersSucceeded = append(v.ProvidersSucceeded, r.Provider)
			continue
		}
		msg := r.Error
		if msg == "" {
			msg = string(r.Status)
		}
		v.ProviderErrors[r.Provider] = msg
	}
	switch {
	case len(v.ProvidersSucceeded) == len(attempted):
		v.Status = BundleOK
	case len(v.ProvidersSucceeded) == 0:
		v.Status = BundleScrapeFailed
	default:
		v.Status = BundlePartial
	}
	return v
}
