package domain

// LocationData is the caller's coarse geolocation as reported by ipapi.co
type LocationData struct {
	IP                 string  `json:"ip"`
	Network            string  `json:"network,omitempty"`
	Version            string  `json:"version,omitempty"`
	City               string  `json:"city"`
	Region             string  `json:"region"`
	RegionCode         string  `json:"region_code"`
	Country            string  `json:"country"`
	CountryName        string  `json:"country_name"`
	CountryCode        string  `json:"country_code"`
	CountryCodeISO3    string  `json:"country_code_iso3,omitempty"`
	CountryCapital     string  `json:"country_capital,omitempty"`
	CountryTLD         string  `json:"country_tld,omitempty"`
	ContinentCode      string  `json:"continent_code"`
	InEU               bool    `json:"in_eu"`
	Postal             string  `json:"postal,omitempty"`
	Latitude           float64 `json:"latitude"`
	Longitude          float64 `json:"longitude"`
	Timezone           string  `json:"timezone"`
	UTCOffset          string  `json:"utc_offset,omitempty"`
	CountryCallingCode string  `json:"country_calling_code,omitempty"`
	Currency           string  `json:"currency,omitempty"`
	CurrencyName       string  `json:"currency_name,omitempty"`
	Languages          string  `json:"languages,omitempty"`
	CountryArea        float64 `json:"country_area,omitempty"`
	CountryPopulation  int64   `json:"country_population,omitempty"`
	ASN                string  `json:"asn,omitempty"`
	Org                string  `json:"org,omitempty"`
}

// RegionData is a row of the ISO-3166 regional codes table
type RegionData struct {
	Name                   string `json:"name"`
	Alpha2                 string `json:"alpha-2"`
	Alpha3                 string `json:"alpha-3"`
	CountryCode            string `json:"country-code"`
	ISO31662               string `json:"iso_3166-2"`
	Region                 string `json:"region"`
	SubRegion              string `json:"sub-region"`
	IntermediateRegion     string `json:"intermediate-region"`
	RegionCode             string `json:"region-code"`
	SubRegionCode          string `json:"sub-region-code"`
	IntermediateRegionCode string `json:"intermediate-region-code"`
}

// RegionTable is an immutable lookup of RegionData by alpha-2 country code
type RegionTable struct {
	byAlpha2 map[string]RegionData
	rows     []RegionData
}

// NewRegionTable indexes rows by alpha-2 code. Later duplicates are ignored.
func NewRegionTable(rows []RegionData) *RegionTable {
	t := &RegionTable{
		byAlpha2: make(map[string]RegionData, len(rows)),
		rows:     make([]RegionData, 0, len(rows)),
	}
	for _, row := range rows {
		if row.Alpha2 == "" {
			continue
		}
		if _, exists := t.byAlpha2[row.Alpha2]; exists {
			continue
		}
		t.byAlpha2[row.Alpha2] = row
		t.rows = append(t.rows, row)
	}
	return t
}

// Lookup returns the row for an alpha-2 country code
func (t *RegionTable) Lookup(alpha2 string) (RegionData, bool) {
	if t == nil {
		return RegionData{}, false
	}
	row, ok := t.byAlpha2[alpha2]
	return row, ok
}

// Len returns the number of countries in the table
func (t *RegionTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// RegionNames returns the distinct region and sub-region names in table order
func (t *RegionTable) RegionNames() (regions []string, subRegions []string) {
	if t == nil {
		return nil, nil
	}
	seenRegion := make(map[string]bool)
	seenSub := make(map[string]bool)
	for _, row := range t.rows {
		if row.Region != "" && !seenRegion[row.Region] {
			seenRegion[row.Region] = true
			regions = append(regions, row.Region)
		}
		if row.SubRegion != "" && !seenSub[row.SubRegion] {
			seenSub[row.SubRegion] = true
			subRegions = append(subRegions, row.SubRegion)
		}
	}
	return regions, subRegions
}
