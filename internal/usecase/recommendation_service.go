package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prodcompare/backend/internal/domain"
)

// RecommendationSystemPrompt instructs the model how to treat the product array
const RecommendationSystemPrompt = "Compare the products inside the JSON array based on the user's use case."

const productsPreamble = "Here is a JSON array of the products I'm interested in:"

var (
	nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9\s]`)
	multipleSpacesRegex  = regexp.MustCompile(`\s+`)
)

// RecommendationServiceConfig holds configuration for the recommendation service
type RecommendationServiceConfig struct {
	CacheTTL time.Duration
	// MaxProducts bounds the prompt size; larger requests are rejected
	MaxProducts            int
	MinConfidenceThreshold float64
}

// RecommendationService answers POST /recommend: it builds the prompt, asks
// the recommender and caches answers per query and product set.
type RecommendationService struct {
	cache       domain.CacheRepository
	recommender domain.Recommender
	matcher     *TitleMatcher
	cacheTTL    time.Duration
	maxProducts int
	logger      zerolog.Logger
}

// NewRecommendationService creates a new recommendation service with dependencies
func NewRecommendationService(
	cache domain.CacheRepository,
	recommender domain.Recommender,
	config RecommendationServiceConfig,
	logger zerolog.Logger,
) *RecommendationService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 24 * time.Hour
	}
	maxProducts := config.MaxProducts
	if maxProducts <= 0 {
		maxProducts = 50
	}

	return &RecommendationService{
		cache:       cache,
		recommender: recommender,
		matcher:     NewTitleMatcher(MatchConfig{MinConfidenceThreshold: config.MinConfidenceThreshold}),
		cacheTTL:    cacheTTL,
		maxProducts: maxProducts,
		logger:      logger.With().Str("component", "recommendation_service").Logger(),
	}
}

// Recommend picks the product that best fits the shopper's query.
// Flow: validate -> check cache -> prompt recommender -> repair id -> cache -> return
func (s *RecommendationService) Recommend(
	ctx context.Context,
	request *domain.RecommendationRequest,
) (*domain.Recommendation, error) {
	if request == nil || strings.TrimSpace(request.Query) == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	if len(request.Products) == 0 {
		return nil, fmt.Errorf("%w: at least one product is required", domain.ErrInvalidRequest)
	}
	if len(request.Products) > s.maxProducts {
		return nil, fmt.Errorf("%w: %d products exceeds the limit of %d", domain.ErrInvalidRequest, len(request.Products), s.maxProducts)
	}

	cacheKey, err := s.generateCacheKey(request)
	if err != nil {
		return nil, err
	}

	if cached, err := s.getFromCache(ctx, cacheKey); err == nil && cached != nil {
		s.logger.Debug().Str("cache_key", cacheKey).Msg("recommendation served from cache")
		return cached, nil
	}

	userPrompt, err := BuildUserPrompt(request.Query, request.Products)
	if err != nil {
		return nil, err
	}

	rec, err := s.recommender.Recommend(ctx, RecommendationSystemPrompt, userPrompt)
	if err != nil {
		if errors.Is(err, domain.ErrRecommendationParse) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrRecommendationUnavailable, err)
	}
	if rec == nil {
		return nil, domain.ErrRecommendationParse
	}

	s.repairProductID(rec, request.Products)

	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey, rec, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("cache_key", cacheKey).Msg("failed to cache recommendation")
		}
	}

	s.logger.Info().
		Str("recommended_product_id", rec.RecommendedProductID).
		Int("products", len(request.Products)).
		Msg("recommendation generated")
	return rec, nil
}

// BuildUserPrompt appends the product array to the shopper's query
func BuildUserPrompt(query string, products []domain.Product) (string, error) {
	data, err := json.Marshal(products)
	if err != nil {
		return "", fmt.Errorf("failed to encode products: %w", err)
	}
	return fmt.Sprintf("%s\n%s\n%s", strings.TrimSpace(query), productsPreamble, data), nil
}

// repairProductID rewrites a recommended id that names none of the products
// when the recommended title identifies one of them unambiguously. An
// unrepairable id is returned as-is; the storefront then clears its selection.
func (s *RecommendationService) repairProductID(rec *domain.Recommendation, products []domain.Product) {
	for i := range products {
		if rec.RecommendedProductID != "" && domain.SameProduct(products[i].ID.String(), rec.RecommendedProductID) {
			return
		}
	}

	match, err := s.matcher.FindBestMatch(rec.RecommendedProductTitle, products)
	if err != nil {
		s.logger.Warn().
			Str("recommended_product_id", rec.RecommendedProductID).
			Str("recommended_product_title", rec.RecommendedProductTitle).
			Err(err).
			Msg("recommended product is not among the compared products")
		return
	}

	s.logger.Info().
		Str("recommended_product_id", rec.RecommendedProductID).
		Str("matched_product_id", match.Product.ID.String()).
		Float64("score", match.Score).
		Strs("matched_tokens", match.MatchedTokens).
		Msg("repaired recommended product id from title")
	rec.RecommendedProductID = match.Product.ID.String()
}

// generateCacheKey creates a cache key from the normalized query and a
// digest of the product payload.
// Format: "recommendation:{normalized_query}:{sha256_prefix}"
func (s *RecommendationService) generateCacheKey(request *domain.RecommendationRequest) (string, error) {
	payload, err := json.Marshal(request.Products)
	if err != nil {
		return "", fmt.Errorf("failed to encode products: %w", err)
	}
	digest := sha256.Sum256(payload)
	return fmt.Sprintf("recommendation:%s:%s", normalizeForCacheKey(request.Query), hex.EncodeToString(digest[:8])), nil
}

// normalizeForCacheKey lowercases s, strips special characters and collapses whitespace
func normalizeForCacheKey(s string) string {
	if s == "" {
		return ""
	}
	result := strings.ToLower(s)
	result = nonAlphanumericRegex.ReplaceAllString(result, "")
	result = multipleSpacesRegex.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// getFromCache retrieves a recommendation from cache
func (s *RecommendationService) getFromCache(ctx context.Context, key string) (*domain.Recommendation, error) {
	if s.cache == nil {
		return nil, domain.ErrCacheMiss
	}
	value, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case *domain.Recommendation:
		return v, nil
	case map[string]interface{}:
		return mapToRecommendation(v), nil
	default:
		return nil, domain.ErrCacheMiss
	}
}

// mapToRecommendation converts a map (from JSON cache) to a Recommendation
func mapToRecommendation(data map[string]interface{}) *domain.Recommendation {
	result := &domain.Recommendation{}
	if v, ok := data["recommendedProductId"].(string); ok {
		result.RecommendedProductID = v
	}
	if v, ok := data["recommendedProductTitle"].(string); ok {
		result.RecommendedProductTitle = v
	}
	if v, ok := data["reason"].(string); ok {
		result.Reason = v
	}
	return result
}
