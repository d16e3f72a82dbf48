// Package reference loads the static data the comparison engine is
// configured with: the ISO-3166 region table, the merchant's spec ordering
// policy and product catalogs.
package reference

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/prodcompare/backend/internal/domain"
)

//go:embed regions.json
var embeddedRegions []byte

// DefaultRegions returns the embedded region table
func DefaultRegions() (*domain.RegionTable, error) {
	rows, err := LoadRegions(bytes.NewReader(embeddedRegions))
	if err != nil {
		return nil, err
	}
	return domain.NewRegionTable(rows), nil
}

// RegionTable loads the table at path, or the embedded one when path is empty
func RegionTable(path string) (*domain.RegionTable, error) {
	if path == "" {
		return DefaultRegions()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open region table: %w", err)
	}
	defer f.Close()

	rows, err := LoadRegions(f)
	if err != nil {
		return nil, err
	}
	return domain.NewRegionTable(rows), nil
}

// LoadRegions decodes an ISO-3166 table in the lukes/ISO-3166-Countries-with-Regional-Codes layout
func LoadRegions(r io.Reader) ([]domain.RegionData, error) {
	var rows []domain.RegionData
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode region table: %w", err)
	}
	if len(rows) == 0 {
		return nil, errors.New("region table is empty")
	}
	return rows, nil
}

// LoadOrderingPolicy decodes a list of spec ordering entries. YAML and JSON
// are both accepted. Entries without a key are rejected, duplicate keys keep
// the first entry.
func LoadOrderingPolicy(r io.Reader) (domain.OrderingPolicy, error) {
	var entries []domain.SpecOrderingEntry
	if err := yaml.NewDecoder(r).Decode(&entries); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.OrderingPolicy{}, nil
		}
		return nil, fmt.Errorf("decode ordering policy: %w", err)
	}

	policy := make(domain.OrderingPolicy, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, entry := range entries {
		entry.MetafieldKey = strings.TrimSpace(entry.MetafieldKey)
		if entry.MetafieldKey == "" {
			return nil, fmt.Errorf("ordering policy entry %d: metafield_key is required", i)
		}
		if seen[entry.MetafieldKey] {
			continue
		}
		seen[entry.MetafieldKey] = true
		policy = append(policy, entry)
	}
	return policy, nil
}

// OrderingPolicyFile loads a policy from path. An empty path yields an empty policy.
func OrderingPolicyFile(path string) (domain.OrderingPolicy, error) {
	if path == "" {
		return domain.OrderingPolicy{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ordering policy: %w", err)
	}
	defer f.Close()
	return LoadOrderingPolicy(f)
}

// catalogEnvelope is the {"products": [...]} shape of a Shopify collection export
type catalogEnvelope struct {
	Products []domain.Product `json:"products"`
}

// LoadCatalog decodes either a bare JSON array of products or an object
// with a "products" array. Products without an ID are rejected.
func LoadCatalog(r io.Reader) ([]domain.Product, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	data = bytes.TrimSpace(data)

	var products []domain.Product
	switch {
	case len(data) == 0:
		return nil, errors.New("catalog is empty")
	case data[0] == '[':
		err = json.Unmarshal(data, &products)
	default:
		var envelope catalogEnvelope
		err = json.Unmarshal(data, &envelope)
		products = envelope.Products
	}
	if err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	for i, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("catalog product %d has no id", i)
		}
	}
	return products, nil
}

// CatalogFile loads a catalog from path
func CatalogFile(path string) ([]domain.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return LoadCatalog(f)
}
