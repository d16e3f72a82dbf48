package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Product represents a storefront catalog entry with merchant-defined specs
type Product struct {
	ID     ProductID `json:"id"`
	Title  string    `json:"title"`
	Handle string    `json:"handle"`
	Specs  Specs     `json:"specs"`
}

// Specs maps a metafield key to its value. Keys are merchant-defined and
// any two products may have disjoint key sets.
type Specs map[string]SpecValue

// AvailableRegionsKey is the spec key holding a product's region list
const AvailableRegionsKey = "available_regions"

// ProductID is a product identifier. The storefront sends numeric IDs while
// the admin API uses GIDs, so both JSON numbers and strings are accepted.
type ProductID string

// UnmarshalJSON accepts a JSON string or number
func (id *ProductID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ProductID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("product id must be a string or number: %w", err)
	}
	*id = ProductID(n.String())
	return nil
}

// String returns the raw identifier
func (id ProductID) String() string {
	return string(id)
}

// Short returns the identifier without its GID namespace prefix
func (id ProductID) Short() string {
	return ShortID(string(id))
}

// gidPrefix is the namespace used by Shopify global IDs, e.g. gid://shopify/Product/123
const gidPrefix = "gid://shopify/"

// ShortID strips a Shopify GID namespace ("gid://shopify/<Type>/") from an ID.
// IDs without the prefix are returned unchanged.
func ShortID(id string) string {
	id = strings.TrimSpace(id)
	if !strings.HasPrefix(id, gidPrefix) {
		return id
	}
	rest := strings.TrimPrefix(id, gidPrefix)
	if idx := strings.LastIndex(rest, "/"); idx >= 0 {
		return rest[idx+1:]
	}
	return rest
}

// SameProduct reports whether two IDs refer to the same product, ignoring namespace prefixes
func SameProduct(a, b string) bool {
	return ShortID(a) == ShortID(b)
}

// SpecKind tags the variant held by a SpecValue
type SpecKind int

const (
	// SpecAbsent is the zero value: the key is not present
	SpecAbsent SpecKind = iota
	// SpecString is a free-text scalar such as "160 cm"
	SpecString
	// SpecNumber is a numeric scalar
	SpecNumber
	// SpecList is an ordered list of strings (region lists)
	SpecList
)

// SpecValue is a tagged union of the shapes a metafield value can take
type SpecValue struct {
	Kind   SpecKind
	Str    string
	Num    float64
	Values []string
}

// StringSpec builds a free-text scalar value
func StringSpec(s string) SpecValue {
	return SpecValue{Kind: SpecString, Str: s}
}

// NumberSpec builds a numeric scalar value
func NumberSpec(n float64) SpecValue {
	return SpecValue{Kind: SpecNumber, Num: n}
}

// ListSpec builds a list value
func ListSpec(values ...string) SpecValue {
	return SpecValue{Kind: SpecList, Values: append([]string(nil), values...)}
}

// IsList reports whether the value holds the list variant
func (v SpecValue) IsList() bool {
	return v.Kind == SpecList
}

// IsScalar reports whether the value holds a string or number
func (v SpecValue) IsScalar() bool {
	return v.Kind == SpecString || v.Kind == SpecNumber
}

// String renders the value the way the storefront displays it
func (v SpecValue) String() string {
	switch v.Kind {
	case SpecString:
		return v.Str
	case SpecNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case SpecList:
		return strings.Join(v.Values, ", ")
	default:
		return ""
	}
}

// MarshalJSON writes the value back in its original shape
func (v SpecValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case SpecString:
		return json.Marshal(v.Str)
	case SpecNumber:
		return json.Marshal(v.Num)
	case SpecList:
		if v.Values == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.Values)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a string, number, boolean or array of scalars
func (v *SpecValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = SpecValue{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringSpec(s)
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		values := make([]string, 0, len(raw))
		for _, item := range raw {
			var elem SpecValue
			if err := elem.UnmarshalJSON(item); err != nil {
				return err
			}
			if elem.Kind == SpecList {
				return fmt.Errorf("nested lists are not supported in spec values")
			}
			values = append(values, elem.String())
		}
		*v = SpecValue{Kind: SpecList, Values: values}
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = StringSpec(strconv.FormatBool(b))
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("unsupported spec value %s: %w", string(data), err)
		}
		*v = NumberSpec(n)
	}
	return nil
}

// Lookup returns the value stored under key and whether it is present
func (p *Product) Lookup(key string) (SpecValue, bool) {
	if p == nil || p.Specs == nil {
		return SpecValue{}, false
	}
	v, ok := p.Specs[key]
	if !ok || v.Kind == SpecAbsent {
		return SpecValue{}, false
	}
	return v, true
}

// HasSpec reports whether the product declares the given key
func (p *Product) HasSpec(key string) bool {
	_, ok := p.Lookup(key)
	return ok
}

// ProductOption pairs a product with its display label and selection key
type ProductOption struct {
	Value   string   `json:"value"`
	Label   string   `json:"label"`
	Product *Product `json:"product"`
}

// OptionFor derives the selection option for a product
func OptionFor(p *Product) ProductOption {
	label := p.Title
	if label == "" {
		label = p.ID.String()
	}
	return ProductOption{
		Value:   p.ID.String(),
		Label:   label,
		Product: p,
	}
}

// OptionsFor derives selection options for a catalog, preserving order
func OptionsFor(products []Product) []ProductOption {
	options := make([]ProductOption, 0, len(products))
	for i := range products {
		options = append(options, OptionFor(&products[i]))
	}
	return options
}
