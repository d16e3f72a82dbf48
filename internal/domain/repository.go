package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) (interface{}, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// RecommendationClient asks the recommendation backend which product fits a shopper query
type RecommendationClient interface {
	Recommend(ctx context.Context, query string, products []Product) (*Recommendation, error)
}

// Recommender produces a recommendation from a prepared prompt. Implemented
// by the LLM adapter on the backend side of POST /recommend.
type Recommender interface {
	Recommend(ctx context.Context, systemPrompt, userPrompt string) (*Recommendation, error)
}

// ComparisonTracker is the outbound port comparison events are dispatched through
type ComparisonTracker interface {
	Track(ctx context.Context, event ComparisonEvent) error
}

// GeolocationProvider resolves the caller's coarse location
type GeolocationProvider interface {
	Locate(ctx context.Context, ip string) (*LocationData, error)
}

// ComparisonRepository persists comparison events on the backend
type ComparisonRepository interface {
	Save(ctx context.Context, event *ComparisonEvent) error
	ListByProduct(ctx context.Context, productID string) ([]ComparisonEvent, error)
}
