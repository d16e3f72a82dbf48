package usecase

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prodcompare/backend/internal/domain"
)

// RankerConfig holds configuration for the best-spec ranker
type RankerConfig struct {
	// AlwaysMaximum ignores metafield_ascending_order and always picks the
	// largest quantity, matching the storefront's historical behaviour.
	AlwaysMaximum bool
}

// BestSpecRanker determines which selected product holds the best value for
// each orderable spec key
type BestSpecRanker struct {
	normalizer    UnitNormalizer
	alwaysMaximum bool
	logger        zerolog.Logger
}

// NewBestSpecRanker creates a ranker. A nil normalizer uses the standard one.
func NewBestSpecRanker(normalizer UnitNormalizer, config RankerConfig, logger zerolog.Logger) *BestSpecRanker {
	if normalizer == nil {
		normalizer = NewStandardNormalizer()
	}
	return &BestSpecRanker{
		normalizer:    normalizer,
		alwaysMaximum: config.AlwaysMaximum,
		logger:        logger.With().Str("component", "best_spec_ranker").Logger(),
	}
}

// RankBestSpecs returns one definition per aggregated key that the policy
// declares orderable, in aggregated key order. Keys outside the policy are
// omitted entirely.
func (r *BestSpecRanker) RankBestSpecs(
	products []domain.Product,
	selection []domain.ProductOption,
	policy domain.OrderingPolicy,
) []domain.BestSpecDefinition {
	selected := SelectedProducts(products, selection)
	keys := AggregateKeys(products, selection)

	definitions := make([]domain.BestSpecDefinition, 0, len(keys))
	for _, key := range keys {
		entry, ok := policy.Entry(key)
		if !ok {
			continue
		}
		definitions = append(definitions, r.rankKey(key, entry, selected))
	}
	return definitions
}

// rankKey finds the best product for one key. Any failure degrades this key
// to a nil best product without affecting the others.
func (r *BestSpecRanker) rankKey(key string, entry domain.SpecOrderingEntry, selected []*domain.Product) (def domain.BestSpecDefinition) {
	def = domain.BestSpecDefinition{Key: key}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error().
				Str("key", key).
				Str("panic", fmt.Sprint(rec)).
				Msg("ranking failed; no best value for key")
			def.BestProduct = nil
		}
	}()

	var first *domain.Product
	for _, p := range selected {
		if p.HasSpec(key) {
			first = p
			break
		}
	}
	if first == nil {
		return def
	}

	firstValue, _ := first.Lookup(key)
	target, err := r.normalizer.Normalize(firstValue)
	if err != nil {
		r.logger.Debug().
			Str("key", key).
			Str("product_id", first.ID.String()).
			Err(err).
			Msg("first value not comparable")
		return def
	}

	minimize := entry.MetafieldAscendingOrder && !r.alwaysMaximum

	var (
		best    *domain.Product
		bestQty float64
	)
	for _, p := range selected {
		value, ok := p.Lookup(key)
		if !ok {
			continue
		}
		q, err := r.normalizer.NormalizeTo(value, target.Family)
		if err != nil {
			continue
		}
		if best == nil || isBetter(q.Value, bestQty, minimize) {
			best = p
			bestQty = q.Value
		}
	}

	def.BestProduct = best
	return def
}

// isBetter uses strict comparison so the first-encountered product wins ties
func isBetter(candidate, current float64, minimize bool) bool {
	if minimize {
		return candidate < current
	}
	return candidate > current
}
