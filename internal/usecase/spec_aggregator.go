package usecase

import (
	"sort"

	"github.com/prodcompare/backend/internal/domain"
)

// AggregateKeys returns the union of spec keys across the selected products.
// Products are visited in catalog order and keys are kept in first-encounter
// order; within one product, keys are visited alphabetically so the result is
// deterministic.
func AggregateKeys(products []domain.Product, selection []domain.ProductOption) []string {
	if len(selection) == 0 {
		return []string{}
	}

	selected := make(map[string]bool, len(selection))
	for _, option := range selection {
		selected[option.Value] = true
	}

	seen := make(map[string]bool)
	keys := []string{}
	for i := range products {
		if !selected[products[i].ID.String()] {
			continue
		}
		for _, key := range sortedSpecKeys(products[i].Specs) {
			if seen[key] {
				continue
			}
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys
}

// SelectedProducts resolves a selection against the catalog, in selection
// order. Options whose value is missing from the catalog fall back to the
// product carried by the option itself.
func SelectedProducts(products []domain.Product, selection []domain.ProductOption) []*domain.Product {
	byID := make(map[string]*domain.Product, len(products))
	for i := range products {
		byID[products[i].ID.String()] = &products[i]
	}

	resolved := make([]*domain.Product, 0, len(selection))
	for _, option := range selection {
		if p, ok := byID[option.Value]; ok {
			resolved = append(resolved, p)
			continue
		}
		if option.Product != nil {
			resolved = append(resolved, option.Product)
		}
	}
	return resolved
}

func sortedSpecKeys(specs domain.Specs) []string {
	keys := make([]string, 0, len(specs))
	for key, value := range specs {
		if value.Kind == domain.SpecAbsent {
			continue
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
