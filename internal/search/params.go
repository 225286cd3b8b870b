package search

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	dateLayout = "2006-01-02"

	// Applied when the trip has no explicit dates.
	defaultLeadTimeDays   = 30
	defaultTripLengthDays = 5

	// Share of the total trip budget assumed to go to lodging when
	// deriving a nightly cap.
	lodgingBudgetShare = 0.5
)

// stayWindow computes check-in/check-out from explicit dates when present,
// otherwise from a default lead time plus the trip length.
func stayWindow(inputs TripInputs, now time.Time) (time.Time, time.Time, error) {
	if strings.TrimSpace(inputs.StartDate) != "" {
		checkIn, err := time.Parse(dateLayout, inputs.StartDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %w", inputs.StartDate, err)
		}
		var checkOut time.Time
		if strings.TrimSpace(inputs.EndDate) != "" {
			checkOut, err = time.Parse(dateLayout, inputs.EndDate)
			if err != nil {
				return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %w", inputs.EndDate, err)
			}
		} else {
			checkOut = checkIn.AddDate(0, 0, tripLength(inputs))
		}
		if !checkOut.After(checkIn) {
			return time.Time{}, time.Time{}, fmt.Errorf("end date %s is not after start date %s", inputs.EndDate, inputs.StartDate)
		}
		return checkIn, checkOut, nil
	}
	checkIn := now.AddDate(0, 0, defaultLeadTimeDays)
	return checkIn, checkIn.AddDate(0, 0, tripLength(inputs)), nil
}

func tripLength(inputs TripInputs) int {
	if inputs.TripLengthDays > 0 {
		return inputs.TripLengthDays
	}
	return defaultTripLengthDays
}

func travelers(inputs TripInputs) int {
	if inputs.Travelers > 0 {
		return inputs.Travelers
	}
	return 1
}

// nightlyCap derives a lodging price ceiling from the total trip budget.
// Zero means "no cap".
func nightlyCap(inputs TripInputs, nights int) float64 {
	if inputs.Budget <= 0 || nights <= 0 {
		return 0
	}
	return math.Round(inputs.Budget * lodgingBudgetShare / float64(nights))
}

// BuildLodgingParams builds the provider-specific parameters for a
// lodging job submission.
func BuildLodgingParams(inputs TripInputs, now time.Time) (map[string]interface{}, error) {
	if strings.TrimSpace(inputs.Destination) == "" {
		return nil, fmt.Errorf("lodging search requires a destination")
	}
	checkIn, checkOut, err := stayWindow(inputs, now)
	if err != nil {
		return nil, err
	}
	nights := int(checkOut.Sub(checkIn).Hours() / 24)
	params := map[string]interface{}{
		"destination": strings.TrimSpace(inputs.Destination),
		"check_in":    checkIn.Format(dateLayout),
		"check_out":   checkOut.Format(dateLayout),
		"guests":      travelers(inputs),
	}
	if cap := nightlyCap(inputs, nights); cap > 0 {
		params["max_nightly_price"] = cap
	}
	return params, nil
}

// BuildFlightParams builds the provider-specific parameters for a flight
// job submission.
func BuildFlightParams(inputs TripInputs, now time.Time) (map[string]interface{}, error) {
	if strings.TrimSpace(inputs.OriginCity) == "" || strings.TrimSpace(inputs.Destination) == "" {
		return nil, fmt.Errorf("flight search requires origin and destination")
	}
	depart, ret, err := stayWindow(inputs, now)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"origin":      strings.TrimSpace(inputs.OriginCity),
		"destination": strings.TrimSpace(inputs.Destination),
		"depart_date": depart.Format(dateLayout),
		"return_date": ret.Format(dateLayout),
		"passengers":  travelers(inputs),
	}, nil
}

// BuildParams dispatches to the category-specific builder for a provider.
func BuildParams(key ProviderKey, inputs TripInputs, now time.Time) (map[string]interface{}, error) {
	switch {
	case key.IsLodging():
		return BuildLodgingParams(inputs, now)
	case key.IsFlights():
		return BuildFlightParams(inputs, now)
	}
	return nil, fmt.Errorf("unknown provider %q", key)
}
