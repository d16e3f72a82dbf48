package reference

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prodcompare/backend/internal/domain"
	"github.com/prodcompare/backend/internal/usecase"
)

func TestDefaultRegions(t *testing.T) {
	table, err := DefaultRegions()
	require.NoError(t, err)
	assert.Equal(t, 249, table.Len())

	ca, ok := table.Lookup("CA")
	require.True(t, ok)
	assert.Equal(t, "Americas", ca.Region)
	assert.Equal(t, "Northern America", ca.SubRegion)

	br, ok := table.Lookup("BR")
	require.True(t, ok)
	assert.Equal(t, "South America", br.IntermediateRegion)

	_, ok = table.Lookup("XX")
	assert.False(t, ok)

	subRegions := map[string]string{
		"GR": "Southern Europe",
		"RU": "Eastern Europe",
		"TR": "Western Asia",
		"SA": "Western Asia",
		"PH": "South-eastern Asia",
		"TH": "South-eastern Asia",
		"UA": "Eastern Europe",
		"CZ": "Eastern Europe",
	}
	for code, want := range subRegions {
		row, ok := table.Lookup(code)
		if assert.True(t, ok, "country %s missing", code) {
			assert.Equal(t, want, row.SubRegion, "country %s", code)
		}
	}
}

func TestDefaultRegions_Availability(t *testing.T) {
	table, err := DefaultRegions()
	require.NoError(t, err)

	resolver := usecase.NewRegionResolver(table, zerolog.Nop())
	for _, code := range []string{"GR", "RU", "TR", "SA", "PH", "TH", "UA", "CZ"} {
		assert.True(t, resolver.IsAvailable(&domain.LocationData{Country: code}, []string{"Europe", "Asia"}), "country %s", code)
	}
	assert.False(t, resolver.IsAvailable(&domain.LocationData{Country: "BR"}, []string{"South America"}))
}

func TestRegionTable_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regions.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"name":"Japan","alpha-2":"JP","region":"Asia","sub-region":"Eastern Asia"}]`), 0o600))

	table, err := RegionTable(path)
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())

	_, err = RegionTable(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadRegions_Invalid(t *testing.T) {
	_, err := LoadRegions(strings.NewReader(`[]`))
	assert.Error(t, err)

	_, err = LoadRegions(strings.NewReader(`{"name":"Japan"}`))
	assert.Error(t, err)
}

func TestLoadOrderingPolicy_YAML(t *testing.T) {
	input := `
- metafield_key: screen_size
  metafield_ascending_order: false
- metafield_key: weight
  metafield_ascending_order: true
- metafield_key: screen_size
  metafield_ascending_order: true
`
	policy, err := LoadOrderingPolicy(strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, domain.OrderingPolicy{
		{MetafieldKey: "screen_size", MetafieldAscendingOrder: false},
		{MetafieldKey: "weight", MetafieldAscendingOrder: true},
	}, policy)
}

func TestLoadOrderingPolicy_JSON(t *testing.T) {
	input := `[{"metafield_key":"storage","metafield_ascending_order":false}]`

	policy, err := LoadOrderingPolicy(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, policy, 1)
	assert.Equal(t, "storage", policy[0].MetafieldKey)
}

func TestLoadOrderingPolicy_Edges(t *testing.T) {
	policy, err := LoadOrderingPolicy(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, policy)

	_, err = LoadOrderingPolicy(strings.NewReader(`- metafield_ascending_order: true`))
	assert.Error(t, err)

	policy, err = OrderingPolicyFile("")
	require.NoError(t, err)
	assert.Empty(t, policy)
}

func TestLoadCatalog(t *testing.T) {
	bare := `[{"id":9962241655059,"title":"Copper Light","handle":"copper-light","specs":{"wattage":60,"available_regions":["Americas"]}}]`
	wrapped := `{"products":[{"id":"gid://shopify/Product/1","title":"Desk","handle":"desk","specs":{"height":"120 cm"}}]}`

	products, err := LoadCatalog(strings.NewReader(bare))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "9962241655059", products[0].ID.String())
	regions, ok := products[0].Lookup(domain.AvailableRegionsKey)
	require.True(t, ok)
	assert.True(t, regions.IsList())

	products, err = LoadCatalog(strings.NewReader(wrapped))
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "desk", products[0].Handle)
}

func TestLoadCatalog_Invalid(t *testing.T) {
	_, err := LoadCatalog(strings.NewReader("  "))
	assert.Error(t, err)

	_, err = LoadCatalog(strings.NewReader(`[{"title":"No ID"}]`))
	assert.Error(t, err)

	_, err = LoadCatalog(strings.NewReader(`[{"id":1,"specs":{"bad":[[1]]}}]`))
	assert.Error(t, err)
}
