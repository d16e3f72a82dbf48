package geo

import (
	"context"

	"github.com/prodcompare/backend/internal/domain"
)

// MockProvider returns a fixed location. Used in development so regional
// availability can be exercised without calling ipapi.co.
type MockProvider struct {
	Location domain.LocationData
}

// NewMockProvider returns a provider that always reports Vancouver, Canada
func NewMockProvider() *MockProvider {
	return &MockProvider{Location: Vancouver()}
}

// Locate returns a copy of the fixed location
func (m *MockProvider) Locate(ctx context.Context, ip string) (*domain.LocationData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	location := m.Location
	if ip != "" {
		location.IP = ip
	}
	return &location, nil
}

// Vancouver is the fixed development location
func Vancouver() domain.LocationData {
	return domain.LocationData{
		IP:              "24.48.0.1",
		Version:         "IPv4",
		City:            "Vancouver",
		Region:          "British Columbia",
		RegionCode:      "BC",
		Country:         "CA",
		CountryName:     "Canada",
		CountryCode:     "CA",
		CountryCodeISO3: "CAN",
		CountryCapital:  "Ottawa",
		ContinentCode:   "NA",
		Postal:          "V5K",
		Latitude:        49.2827,
		Longitude:       -123.1207,
		Timezone:        "America/Vancouver",
		UTCOffset:       "-0800",
		Currency:        "CAD",
		CurrencyName:    "Dollar",
	}
}
