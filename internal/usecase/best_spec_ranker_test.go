package usecase

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/prodcompare/backend/internal/domain"
)

// panickingNormalizer panics on one marker value and delegates otherwise
type panickingNormalizer struct {
	marker string
	next   UnitNormalizer
}

func (n panickingNormalizer) Normalize(value domain.SpecValue) (Quantity, error) {
	if value.Str == n.marker {
		panic("normalizer exploded")
	}
	return n.next.Normalize(value)
}

func (n panickingNormalizer) NormalizeTo(value domain.SpecValue, family UnitFamily) (Quantity, error) {
	if value.Str == n.marker {
		panic("normalizer exploded")
	}
	return n.next.NormalizeTo(value, family)
}

func bestID(t *testing.T, defs []domain.BestSpecDefinition, key string) string {
	t.Helper()
	for _, def := range defs {
		if def.Key != key {
			continue
		}
		if def.BestProduct == nil {
			return ""
		}
		return def.BestProduct.ID.String()
	}
	t.Fatalf("no definition for key %q", key)
	return ""
}

func TestRankBestSpecs_Direction(t *testing.T) {
	catalog := []domain.Product{
		{ID: "1", Specs: domain.Specs{"height": domain.StringSpec("160 cm")}},
		{ID: "2", Specs: domain.Specs{"height": domain.StringSpec("1.5 m")}},
	}
	selection := domain.OptionsFor(catalog)

	tests := []struct {
		name      string
		ascending bool
		config    RankerConfig
		want      string
	}{
		{"descending picks maximum", false, RankerConfig{}, "1"},
		{"ascending picks minimum", true, RankerConfig{}, "2"},
		{"always maximum ignores ascending", true, RankerConfig{AlwaysMaximum: true}, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewBestSpecRanker(nil, tt.config, zerolog.Nop())
			policy := domain.OrderingPolicy{{MetafieldKey: "height", MetafieldAscendingOrder: tt.ascending}}
			defs := r.RankBestSpecs(catalog, selection, policy)
			if len(defs) != 1 {
				t.Fatalf("len(defs) = %d, want 1", len(defs))
			}
			if got := bestID(t, defs, "height"); got != tt.want {
				t.Errorf("best = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRankBestSpecs_Eligibility(t *testing.T) {
	catalog := []domain.Product{
		{ID: "1", Specs: domain.Specs{
			"storage": domain.StringSpec("8GB"),
			"color":   domain.StringSpec("red"),
			"finish":  domain.StringSpec("matte"),
			"cores":   domain.NumberSpec(4),
		}},
		{ID: "2", Specs: domain.Specs{
			"storage": domain.StringSpec("160 cm"),
			"color":   domain.StringSpec("blue"),
			"finish":  domain.StringSpec("2 m"),
			"cores":   domain.NumberSpec(8),
		}},
		{ID: "3", Specs: domain.Specs{
			"storage": domain.StringSpec("1 TB"),
		}},
	}
	options := domain.OptionsFor(catalog)
	policy := domain.OrderingPolicy{
		{MetafieldKey: "storage"},
		{MetafieldKey: "finish"},
		{MetafieldKey: "cores"},
		{MetafieldKey: "missing"},
	}
	r := NewBestSpecRanker(nil, RankerConfig{}, zerolog.Nop())

	t.Run("only policy keys are ranked in aggregated order", func(t *testing.T) {
		defs := r.RankBestSpecs(catalog, options[:2], policy)
		var keys []string
		for _, def := range defs {
			keys = append(keys, def.Key)
		}
		want := []string{"cores", "finish", "storage"}
		if len(keys) != len(want) {
			t.Fatalf("keys = %v, want %v", keys, want)
		}
		for i := range want {
			if keys[i] != want[i] {
				t.Errorf("keys[%d] = %q, want %q", i, keys[i], want[i])
			}
		}
	})

	t.Run("values outside the first family are skipped", func(t *testing.T) {
		defs := r.RankBestSpecs(catalog, options[:2], policy)
		if got := bestID(t, defs, "storage"); got != "1" {
			t.Errorf("storage best = %q, want 1", got)
		}
	})

	t.Run("unconvertible first value yields no best", func(t *testing.T) {
		defs := r.RankBestSpecs(catalog, options[:2], policy)
		if got := bestID(t, defs, "finish"); got != "" {
			t.Errorf("finish best = %q, want none", got)
		}
	})

	t.Run("bare numbers compare", func(t *testing.T) {
		defs := r.RankBestSpecs(catalog, options[:2], policy)
		if got := bestID(t, defs, "cores"); got != "2" {
			t.Errorf("cores best = %q, want 2", got)
		}
	})

	t.Run("unselected products never win", func(t *testing.T) {
		defs := r.RankBestSpecs(catalog, []domain.ProductOption{options[0], options[1]}, policy)
		if got := bestID(t, defs, "storage"); got == "3" {
			t.Error("unselected product 3 chosen as best")
		}
	})

	t.Run("single product holding the key is best", func(t *testing.T) {
		defs := r.RankBestSpecs(catalog, []domain.ProductOption{options[2]}, policy)
		if len(defs) != 1 {
			t.Fatalf("len(defs) = %d, want 1", len(defs))
		}
		if got := bestID(t, defs, "storage"); got != "3" {
			t.Errorf("storage best = %q, want 3", got)
		}
	})

	t.Run("empty selection yields nothing", func(t *testing.T) {
		if defs := r.RankBestSpecs(catalog, nil, policy); len(defs) != 0 {
			t.Errorf("len(defs) = %d, want 0", len(defs))
		}
	})
}

func TestRankBestSpecs_TieKeepsFirst(t *testing.T) {
	catalog := []domain.Product{
		{ID: "1", Specs: domain.Specs{"weight": domain.StringSpec("2 kg")}},
		{ID: "2", Specs: domain.Specs{"weight": domain.StringSpec("2 kg")}},
	}
	r := NewBestSpecRanker(nil, RankerConfig{}, zerolog.Nop())

	for _, ascending := range []bool{false, true} {
		policy := domain.OrderingPolicy{{MetafieldKey: "weight", MetafieldAscendingOrder: ascending}}
		defs := r.RankBestSpecs(catalog, domain.OptionsFor(catalog), policy)
		if got := bestID(t, defs, "weight"); got != "1" {
			t.Errorf("ascending=%v: best = %q, want 1", ascending, got)
		}
	}
}

func TestRankBestSpecs_RecoversFromPanics(t *testing.T) {
	catalog := []domain.Product{
		{ID: "1", Specs: domain.Specs{"height": domain.StringSpec("boom"), "weight": domain.StringSpec("1 kg")}},
		{ID: "2", Specs: domain.Specs{"height": domain.StringSpec("1 m"), "weight": domain.StringSpec("3 kg")}},
	}
	policy := domain.OrderingPolicy{{MetafieldKey: "height"}, {MetafieldKey: "weight"}}
	r := NewBestSpecRanker(panickingNormalizer{marker: "boom", next: NewStandardNormalizer()}, RankerConfig{}, zerolog.Nop())

	defs := r.RankBestSpecs(catalog, domain.OptionsFor(catalog), policy)

	if got := bestID(t, defs, "height"); got != "" {
		t.Errorf("height best = %q, want none after panic", got)
	}
	if got := bestID(t, defs, "weight"); got != "2" {
		t.Errorf("weight best = %q, want 2", got)
	}
}
