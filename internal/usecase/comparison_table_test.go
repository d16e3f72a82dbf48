package usecase

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/prodcompare/backend/internal/domain"
)

func tableCatalog() []domain.Product {
	return []domain.Product{
		{ID: "1", Title: "Tall Lamp", Handle: "tall-lamp", Specs: domain.Specs{
			"height":                   domain.StringSpec("160 cm"),
			domain.AvailableRegionsKey: domain.ListSpec("Americas", "Europe"),
		}},
		{ID: "2", Title: "Short Lamp", Handle: "short-lamp", Specs: domain.Specs{
			"height":      domain.StringSpec("1.5 m"),
			"bulb_weight": domain.StringSpec("2 kg"),
		}},
	}
}

func newTestTableBuilder() *TableBuilder {
	return NewTableBuilder(
		NewBestSpecRanker(nil, RankerConfig{}, zerolog.Nop()),
		NewRegionResolver(testRegionTable(), zerolog.Nop()),
	)
}

func TestTableBuilder_Build(t *testing.T) {
	catalog := tableCatalog()
	policy := domain.OrderingPolicy{{MetafieldKey: "height"}}
	table := newTestTableBuilder().Build(catalog, domain.OptionsFor(catalog), policy, vancouver())

	wantColumns := []ComparisonColumn{
		{ProductID: "1", Title: "Tall Lamp", Handle: "tall-lamp"},
		{ProductID: "2", Title: "Short Lamp", Handle: "short-lamp"},
	}
	if diff := cmp.Diff(wantColumns, table.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	wantRows := []ComparisonRow{
		{
			Key:   domain.AvailableRegionsKey,
			Label: "Available in Canada?",
			Cells: []ComparisonCell{
				{ProductID: "1", Display: "Americas, Europe", Availability: AvailabilityAvailable, Regions: []string{"Americas", "Europe"}},
				{ProductID: "2", Display: NotAvailableText},
			},
		},
		{
			Key:       "height",
			Label:     "height",
			Orderable: true,
			Cells: []ComparisonCell{
				{ProductID: "1", Display: "160 cm", Best: true},
				{ProductID: "2", Display: "1.5 m"},
			},
		},
		{
			Key:   "bulb_weight",
			Label: "bulb weight",
			Cells: []ComparisonCell{
				{ProductID: "1", Display: NotAvailableText},
				{ProductID: "2", Display: "2 kg"},
			},
		},
	}
	if diff := cmp.Diff(wantRows, table.Rows); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}

	if len(table.BestSpecs) != 1 || !table.BestSpecs[0].IsBest("1") {
		t.Errorf("BestSpecs = %+v, want height -> 1", table.BestSpecs)
	}
}

func TestTableBuilder_UnresolvedLocation(t *testing.T) {
	catalog := tableCatalog()
	table := newTestTableBuilder().Build(catalog, domain.OptionsFor(catalog)[:1], nil, nil)

	if len(table.Rows) != 2 {
		t.Fatalf("len(Rows) = %d, want 2", len(table.Rows))
	}
	row := table.Rows[0]
	if row.Label != "available regions" {
		t.Errorf("Label = %q, want %q", row.Label, "available regions")
	}
	if got := row.Cells[0].Availability; got != AvailabilityUnknown {
		t.Errorf("Availability = %q, want unknown", got)
	}
	if row.Orderable {
		t.Error("row orderable without a policy")
	}
}

func TestTableBuilder_EmptySelection(t *testing.T) {
	table := newTestTableBuilder().Build(tableCatalog(), nil, nil, vancouver())
	if table.Columns == nil || table.Rows == nil || table.BestSpecs == nil {
		t.Errorf("expected empty, non-nil slices, got %+v", table)
	}
	if len(table.Columns)+len(table.Rows)+len(table.BestSpecs) != 0 {
		t.Errorf("expected empty table, got %+v", table)
	}
}

func TestRowLabel(t *testing.T) {
	tests := []struct {
		key      string
		location *domain.LocationData
		want     string
	}{
		{"screen_size", nil, "screen size"},
		{"screen_size", vancouver(), "screen size"},
		{domain.AvailableRegionsKey, vancouver(), "Available in Canada?"},
		{domain.AvailableRegionsKey, &domain.LocationData{}, "Available in N/A?"},
		{domain.AvailableRegionsKey, nil, "available regions"},
	}
	for _, tt := range tests {
		if got := RowLabel(tt.key, tt.location); got != tt.want {
			t.Errorf("RowLabel(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestPredefinedSelection(t *testing.T) {
	collection := []domain.Product{{ID: "2"}, {ID: "3"}}

	t.Run("prepends the current product", func(t *testing.T) {
		got := PredefinedSelection(collection, &domain.Product{ID: "1"})
		var ids []string
		for _, p := range got {
			ids = append(ids, p.ID.String())
		}
		if diff := cmp.Diff([]string{"1", "2", "3"}, ids); diff != "" {
			t.Errorf("mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("keeps the collection when it holds the current product", func(t *testing.T) {
		got := PredefinedSelection(collection, &domain.Product{ID: "gid://shopify/Product/3"})
		if len(got) != 2 {
			t.Errorf("len = %d, want 2", len(got))
		}
	})

	t.Run("no current product", func(t *testing.T) {
		if got := PredefinedSelection(collection, nil); len(got) != 2 {
			t.Errorf("len = %d, want 2", len(got))
		}
	})
}
