package usecase

import (
	"github.com/rs/zerolog"

	"github.com/prodcompare/backend/internal/domain"
)

// RegionResolver decides whether a product is available at the caller's location
type RegionResolver struct {
	table  *domain.RegionTable
	logger zerolog.Logger
}

// NewRegionResolver creates a resolver over a static regional table
func NewRegionResolver(table *domain.RegionTable, logger zerolog.Logger) *RegionResolver {
	return &RegionResolver{
		table:  table,
		logger: logger.With().Str("component", "region_resolver").Logger(),
	}
}

// IsAvailable reports whether availableRegions names the caller's region,
// sub-region or own subdivision. Matching is exact and
// case-sensitive. An empty region list or an unknown country is never available.
func (r *RegionResolver) IsAvailable(location *domain.LocationData, availableRegions []string) bool {
	if location == nil || len(availableRegions) == 0 {
		return false
	}

	row, ok := r.table.Lookup(location.Country)
	if !ok {
		r.logger.Debug().
			Str("country", location.Country).
			Err(domain.ErrUnknownRegion).
			Msg("treating product as unavailable")
		return false
	}

	candidates := []string{row.Region, row.SubRegion, location.Region}
	for _, region := range availableRegions {
		for _, candidate := range candidates {
			if candidate != "" && region == candidate {
				return true
			}
		}
	}
	return false
}

// Availability is the tri-state shown in the regional row of a comparison
type Availability string

const (
	// AvailabilityUnknown is shown while the location is unresolved or the cell has no region list
	AvailabilityUnknown     Availability = "unknown"
	AvailabilityAvailable   Availability = "available"
	AvailabilityUnavailable Availability = "unavailable"
)

// AvailabilityOf evaluates a spec value holding a region list. Without a
// location or a list value there is nothing to decide.
func (r *RegionResolver) AvailabilityOf(location *domain.LocationData, value domain.SpecValue) Availability {
	if location == nil || !value.IsList() {
		return AvailabilityUnknown
	}
	if r.IsAvailable(location, value.Values) {
		return AvailabilityAvailable
	}
	return AvailabilityUnavailable
}
