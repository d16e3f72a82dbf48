package domain

import "errors"

var (
	// ErrNotConvertible is returned when a spec value has no comparable quantity
	ErrNotConvertible = errors.New("spec value is not convertible")

	// ErrUnknownRegion is returned when a country code has no regional table entry
	ErrUnknownRegion = errors.New("country not found in region table")

	// ErrRecommendationParse is returned when the recommender output does not match the Recommendation shape
	ErrRecommendationParse = errors.New("malformed recommendation response")

	// ErrRecommendationUnavailable is returned when the recommendation backend cannot be reached
	ErrRecommendationUnavailable = errors.New("recommendation backend request failed")

	// ErrSelectionMismatch is returned when a recommendation names a product absent from the catalog
	ErrSelectionMismatch = errors.New("recommended product not in catalog")

	// ErrTrackingDispatch is returned when a comparison event cannot be delivered
	ErrTrackingDispatch = errors.New("comparison tracking dispatch failed")

	// ErrGeolocationFailure is returned when the geolocation provider request fails
	ErrGeolocationFailure = errors.New("geolocation request failed")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheUnavailable is returned when cache service is unavailable
	ErrCacheUnavailable = errors.New("cache service unavailable")

	// ErrStorageFailure is returned when the comparison store rejects a read or write
	ErrStorageFailure = errors.New("comparison storage failure")
)
