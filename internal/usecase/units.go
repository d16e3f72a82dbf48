package usecase

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/prodcompare/backend/internal/domain"
)

// UnitFamily groups units that can be converted into one another
type UnitFamily int

const (
	FamilyUnknown UnitFamily = iota
	FamilyLength
	FamilyDigitalStorage
	FamilyMass
	FamilyDuration
	// FamilyDimensionless holds bare numbers such as a core count
	FamilyDimensionless
)

// String returns the family name used in logs
func (f UnitFamily) String() string {
	switch f {
	case FamilyLength:
		return "length"
	case FamilyDigitalStorage:
		return "digital_storage"
	case FamilyMass:
		return "mass"
	case FamilyDuration:
		return "duration"
	case FamilyDimensionless:
		return "dimensionless"
	default:
		return "unknown"
	}
}

// Quantity is a spec value expressed in the canonical unit of its family
// (metre, byte, gram, second, or a bare number).
type Quantity struct {
	Value  float64
	Family UnitFamily
}

// UnitNormalizer turns free-text spec values into comparable quantities.
// Implementations must return domain.ErrNotConvertible rather than panic.
type UnitNormalizer interface {
	Normalize(value domain.SpecValue) (Quantity, error)
	NormalizeTo(value domain.SpecValue, family UnitFamily) (Quantity, error)
}

type unitDef struct {
	family UnitFamily
	factor float64
}

// quantityToken matches one "<number><unit>" pair, e.g. "160 cm", "8GB", "5'"
var quantityToken = regexp.MustCompile(`^\s*([-+]?(?:\d+(?:\.\d*)?|\.\d+))\s*([^\d\s.+-]*)`)

// caseSensitiveUnits distinguishes bits from bytes by the case of the suffix
var caseSensitiveUnits = map[string]unitDef{
	"B": {FamilyDigitalStorage, 1},
	"b": {FamilyDigitalStorage, 0.125},

	"kB": {FamilyDigitalStorage, 1e3}, "KB": {FamilyDigitalStorage, 1e3},
	"MB": {FamilyDigitalStorage, 1e6},
	"GB": {FamilyDigitalStorage, 1e9},
	"TB": {FamilyDigitalStorage, 1e12},
	"PB": {FamilyDigitalStorage, 1e15},

	"KiB": {FamilyDigitalStorage, 1 << 10},
	"MiB": {FamilyDigitalStorage, 1 << 20},
	"GiB": {FamilyDigitalStorage, 1 << 30},
	"TiB": {FamilyDigitalStorage, 1 << 40},

	"Kb": {FamilyDigitalStorage, 1e3 / 8},
	"Mb": {FamilyDigitalStorage, 1e6 / 8},
	"Gb": {FamilyDigitalStorage, 1e9 / 8},
	"Tb": {FamilyDigitalStorage, 1e12 / 8},
}

// units is matched after lower-casing. Lower-case storage abbreviations
// ("8gb") are read as bytes, which is what merchants mean in practice.
var units = map[string]unitDef{
	// length, canonical metre
	"mm": {FamilyLength, 1e-3}, "millimeter": {FamilyLength, 1e-3}, "millimeters": {FamilyLength, 1e-3},
	"millimetre": {FamilyLength, 1e-3}, "millimetres": {FamilyLength, 1e-3},
	"cm": {FamilyLength, 1e-2}, "centimeter": {FamilyLength, 1e-2}, "centimeters": {FamilyLength, 1e-2},
	"centimetre": {FamilyLength, 1e-2}, "centimetres": {FamilyLength, 1e-2},
	"m": {FamilyLength, 1}, "meter": {FamilyLength, 1}, "meters": {FamilyLength, 1},
	"metre": {FamilyLength, 1}, "metres": {FamilyLength, 1},
	"km": {FamilyLength, 1e3}, "kilometer": {FamilyLength, 1e3}, "kilometers": {FamilyLength, 1e3},
	"kilometre": {FamilyLength, 1e3}, "kilometres": {FamilyLength, 1e3},
	"in": {FamilyLength, 0.0254}, "inch": {FamilyLength, 0.0254}, "inches": {FamilyLength, 0.0254}, `"`: {FamilyLength, 0.0254},
	"ft": {FamilyLength, 0.3048}, "foot": {FamilyLength, 0.3048}, "feet": {FamilyLength, 0.3048}, "'": {FamilyLength, 0.3048},
	"yd": {FamilyLength, 0.9144}, "yard": {FamilyLength, 0.9144}, "yards": {FamilyLength, 0.9144},
	"mi": {FamilyLength, 1609.344}, "mile": {FamilyLength, 1609.344}, "miles": {FamilyLength, 1609.344},

	// digital storage, canonical byte
	"byte": {FamilyDigitalStorage, 1}, "bytes": {FamilyDigitalStorage, 1},
	"bit": {FamilyDigitalStorage, 0.125}, "bits": {FamilyDigitalStorage, 0.125},
	"kb": {FamilyDigitalStorage, 1e3}, "kilobyte": {FamilyDigitalStorage, 1e3}, "kilobytes": {FamilyDigitalStorage, 1e3},
	"mb": {FamilyDigitalStorage, 1e6}, "megabyte": {FamilyDigitalStorage, 1e6}, "megabytes": {FamilyDigitalStorage, 1e6},
	"gb": {FamilyDigitalStorage, 1e9}, "gigabyte": {FamilyDigitalStorage, 1e9}, "gigabytes": {FamilyDigitalStorage, 1e9},
	"tb": {FamilyDigitalStorage, 1e12}, "terabyte": {FamilyDigitalStorage, 1e12}, "terabytes": {FamilyDigitalStorage, 1e12},
	"pb": {FamilyDigitalStorage, 1e15}, "petabyte": {FamilyDigitalStorage, 1e15}, "petabytes": {FamilyDigitalStorage, 1e15},

	// mass, canonical gram
	"mg": {FamilyMass, 1e-3}, "milligram": {FamilyMass, 1e-3}, "milligrams": {FamilyMass, 1e-3},
	"g": {FamilyMass, 1}, "gram": {FamilyMass, 1}, "grams": {FamilyMass, 1},
	"kg": {FamilyMass, 1e3}, "kilogram": {FamilyMass, 1e3}, "kilograms": {FamilyMass, 1e3},
	"lb": {FamilyMass, 453.59237}, "lbs": {FamilyMass, 453.59237}, "pound": {FamilyMass, 453.59237}, "pounds": {FamilyMass, 453.59237},
	"oz": {FamilyMass, 28.349523125}, "ounce": {FamilyMass, 28.349523125}, "ounces": {FamilyMass, 28.349523125},

	// duration, canonical second
	"ms": {FamilyDuration, 1e-3}, "millisecond": {FamilyDuration, 1e-3}, "milliseconds": {FamilyDuration, 1e-3},
	"s": {FamilyDuration, 1}, "sec": {FamilyDuration, 1}, "secs": {FamilyDuration, 1}, "second": {FamilyDuration, 1}, "seconds": {FamilyDuration, 1},
	"min": {FamilyDuration, 60}, "mins": {FamilyDuration, 60}, "minute": {FamilyDuration, 60}, "minutes": {FamilyDuration, 60},
	"h": {FamilyDuration, 3600}, "hr": {FamilyDuration, 3600}, "hrs": {FamilyDuration, 3600}, "hour": {FamilyDuration, 3600}, "hours": {FamilyDuration, 3600},
	"d": {FamilyDuration, 86400}, "day": {FamilyDuration, 86400}, "days": {FamilyDuration, 86400},
	"wk": {FamilyDuration, 604800}, "week": {FamilyDuration, 604800}, "weeks": {FamilyDuration, 604800},
	"mo": {FamilyDuration, 2629800}, "month": {FamilyDuration, 2629800}, "months": {FamilyDuration, 2629800},
	"y": {FamilyDuration, 31557600}, "yr": {FamilyDuration, 31557600}, "yrs": {FamilyDuration, 31557600},
	"year": {FamilyDuration, 31557600}, "years": {FamilyDuration, 31557600},
}

// StandardNormalizer recognises length, digital storage, mass and duration
// units plus bare numbers. Compound values of one family ("1 m 20 cm") are summed.
type StandardNormalizer struct{}

// NewStandardNormalizer creates the default unit normalizer
func NewStandardNormalizer() *StandardNormalizer {
	return &StandardNormalizer{}
}

// Normalize converts a spec value into its canonical quantity
func (n *StandardNormalizer) Normalize(value domain.SpecValue) (Quantity, error) {
	switch value.Kind {
	case domain.SpecNumber:
		return Quantity{Value: value.Num, Family: FamilyDimensionless}, nil
	case domain.SpecString:
		return ParseQuantity(value.Str)
	default:
		return Quantity{}, domain.ErrNotConvertible
	}
}

// NormalizeTo converts a spec value and requires it to belong to family
func (n *StandardNormalizer) NormalizeTo(value domain.SpecValue, family UnitFamily) (Quantity, error) {
	q, err := n.Normalize(value)
	if err != nil {
		return Quantity{}, err
	}
	if q.Family != family {
		return Quantity{}, fmt.Errorf("%w: %s value cannot be expressed as %s", domain.ErrNotConvertible, q.Family, family)
	}
	return q, nil
}

// ParseQuantity parses free text such as "160 cm", "8GB" or "1 m 20 cm"
func ParseQuantity(raw string) (Quantity, error) {
	rest := strings.TrimSpace(raw)
	if rest == "" {
		return Quantity{}, fmt.Errorf("%w: empty value", domain.ErrNotConvertible)
	}

	var (
		total  float64
		family = FamilyUnknown
		tokens int
	)
	for rest != "" {
		m := quantityToken.FindStringSubmatch(rest)
		if m == nil {
			return Quantity{}, fmt.Errorf("%w: %q", domain.ErrNotConvertible, raw)
		}
		number, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return Quantity{}, fmt.Errorf("%w: %q", domain.ErrNotConvertible, raw)
		}

		def, ok := lookupUnit(m[2])
		if !ok {
			return Quantity{}, fmt.Errorf("%w: unknown unit %q", domain.ErrNotConvertible, m[2])
		}
		if tokens > 0 && (def.family != family || def.family == FamilyDimensionless) {
			return Quantity{}, fmt.Errorf("%w: mixed units in %q", domain.ErrNotConvertible, raw)
		}

		family = def.family
		total += number * def.factor
		tokens++
		rest = strings.TrimSpace(rest[len(m[0]):])
	}

	return Quantity{Value: total, Family: family}, nil
}

// lookupUnit resolves a unit suffix, trying the case-sensitive storage table first
func lookupUnit(unit string) (unitDef, bool) {
	if unit == "" {
		return unitDef{family: FamilyDimensionless, factor: 1}, true
	}
	if def, ok := caseSensitiveUnits[unit]; ok {
		return def, true
	}
	def, ok := units[strings.ToLower(unit)]
	return def, ok
}
