package usecase

import (
	"strings"

	"github.com/prodcompare/backend/internal/domain"
)

// NotAvailableText is displayed for cells without a value
const NotAvailableText = "N/A"

// ComparisonColumn is one compared product
type ComparisonColumn struct {
	ProductID string `json:"productId"`
	Title     string `json:"title"`
	Handle    string `json:"handle"`
}

// ComparisonCell is the value of one spec for one product
type ComparisonCell struct {
	ProductID    string       `json:"productId"`
	Display      string       `json:"display"`
	Best         bool         `json:"best"`
	Availability Availability `json:"availability,omitempty"`
	Regions      []string     `json:"regions,omitempty"`
}

// ComparisonRow is one spec key across all compared products
type ComparisonRow struct {
	Key       string           `json:"key"`
	Label     string           `json:"label"`
	Orderable bool             `json:"orderable"`
	Cells     []ComparisonCell `json:"cells"`
}

// ComparisonTable is the rendered side-by-side comparison
type ComparisonTable struct {
	Columns   []ComparisonColumn          `json:"columns"`
	Rows      []ComparisonRow             `json:"rows"`
	BestSpecs []domain.BestSpecDefinition `json:"bestSpecs"`
}

// TableBuilder combines aggregation, ranking and regional availability
type TableBuilder struct {
	ranker  *BestSpecRanker
	regions *RegionResolver
}

// NewTableBuilder creates a table builder
func NewTableBuilder(ranker *BestSpecRanker, regions *RegionResolver) *TableBuilder {
	return &TableBuilder{ranker: ranker, regions: regions}
}

// Build renders the comparison for selection. location may be nil while the
// geolocation lookup is outstanding; regional cells then show their raw list
// with an unknown availability.
func (b *TableBuilder) Build(
	products []domain.Product,
	selection []domain.ProductOption,
	policy domain.OrderingPolicy,
	location *domain.LocationData,
) ComparisonTable {
	table := ComparisonTable{
		Columns:   []ComparisonColumn{},
		Rows:      []ComparisonRow{},
		BestSpecs: []domain.BestSpecDefinition{},
	}
	if len(selection) == 0 {
		return table
	}

	selected := SelectedProducts(products, selection)
	for _, p := range selected {
		table.Columns = append(table.Columns, ComparisonColumn{
			ProductID: p.ID.String(),
			Title:     p.Title,
			Handle:    p.Handle,
		})
	}

	if b.ranker != nil {
		table.BestSpecs = b.ranker.RankBestSpecs(products, selection, policy)
	}
	bestByKey := make(map[string]domain.BestSpecDefinition, len(table.BestSpecs))
	for _, def := range table.BestSpecs {
		bestByKey[def.Key] = def
	}

	for _, key := range AggregateKeys(products, selection) {
		best, orderable := bestByKey[key]
		row := ComparisonRow{
			Key:       key,
			Label:     RowLabel(key, location),
			Orderable: orderable,
			Cells:     make([]ComparisonCell, 0, len(selected)),
		}
		for _, p := range selected {
			row.Cells = append(row.Cells, b.cell(p, key, best, location))
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

func (b *TableBuilder) cell(p *domain.Product, key string, best domain.BestSpecDefinition, location *domain.LocationData) ComparisonCell {
	cell := ComparisonCell{
		ProductID: p.ID.String(),
		Display:   NotAvailableText,
		Best:      best.IsBest(p.ID.String()),
	}

	value, ok := p.Lookup(key)
	if !ok {
		return cell
	}
	if display := value.String(); display != "" {
		cell.Display = display
	}

	if key == domain.AvailableRegionsKey && value.IsList() {
		cell.Regions = append([]string(nil), value.Values...)
		cell.Availability = AvailabilityUnknown
		if b.regions != nil {
			cell.Availability = b.regions.AvailabilityOf(location, value)
		}
	}
	return cell
}

// RowLabel returns the human label of a spec row. The regional row asks
// whether the product is available in the caller's country once it is known.
func RowLabel(key string, location *domain.LocationData) string {
	if key == domain.AvailableRegionsKey && location != nil {
		country := location.CountryName
		if country == "" {
			country = NotAvailableText
		}
		return "Available in " + country + "?"
	}
	return strings.ReplaceAll(key, "_", " ")
}

// PredefinedSelection returns a merchant-curated collection to compare as a
// whole, with the current product prepended when the collection lacks it.
func PredefinedSelection(collection []domain.Product, current *domain.Product) []domain.Product {
	if current == nil || current.ID == "" {
		return collection
	}
	for _, p := range collection {
		if domain.SameProduct(p.ID.String(), current.ID.String()) {
			return collection
		}
	}
	out := make([]domain.Product, 0, len(collection)+1)
	out = append(out, *current)
	return append(out, collection...)
}
