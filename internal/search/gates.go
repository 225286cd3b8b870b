package search

import "strings"

// Accommodation lexicons. Matching is case-insensitive substring matching
// against the normalized preference string; the gate stays deliberately
// inclusive, so an unrecognized non-empty preference still triggers a
// lodging search.
var (
	privateRentalTerms = []string{"home", "house", "villa", "cabin", "apartment", "condo", "cottage", "entire place", "entire home", "airbnb"}
	hotelTerms         = []string{"hotel", "hostel", "resort", "boutique", "lodge", "motel", "inn"}
)

func matchesAny(pref string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(pref, t) {
			return true
		}
	}
	return false
}

// NeedsLodging decides whether any lodging provider applies. No I/O.
func NeedsLodging(accommodation, destination string) bool {
	if strings.TrimSpace(destination) == "" {
		return false
	}
	pref := strings.ToLower(strings.TrimSpace(accommodation))
	if pref == "" {
		// no stated preference: search broadly
		return true
	}
	if matchesAny(pref, privateRentalTerms) || matchesAny(pref, hotelTerms) {
		return true
	}
	// permissive default: any other explicit preference still searches
	return true
}

// NeedsFlights decides whether the flight provider applies. No I/O.
func NeedsFlights(originCity, destination string) bool {
	origin := strings.ToLower(strings.TrimSpace(originCity))
	dest := strings.ToLower(strings.TrimSpace(destination))
	if origin == "" || dest == "" {
		return false
	}
	return origin != dest
}

// SelectProviders produces the ordered provider set for one trip request,
// lodging providers first. When the accommodation preference matches
// exactly one lodging lexicon the set narrows to that category's provider;
// an empty, ambiguous, or unrecognized preference selects both.
func SelectProviders(inputs TripInputs) []ProviderKey {
	var keys []ProviderKey
	if NeedsLodging(inputs.Accommodation, inputs.Destination) {
		pref := strings.ToLower(strings.TrimSpace(inputs.Accommodation))
		peer := matchesAny(pref, privateRentalTerms)
		hotel := matchesAny(pref, hotelTerms)
		switch {
		case peer && !hotel:
			keys = append(keys, ProviderLodgingPeer)
		case hotel && !peer:
			keys = append(keys, ProviderLodgingHotel)
		default:
			keys = append(keys, ProviderLodgingPeer, ProviderLodgingHotel)
		}
	}
	if NeedsFlights(inputs.OriginCity, inputs.Destination) {
		keys = append(keys, ProviderFlights)
	}
	return keys
}
