package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/prodcompare/backend/internal/domain"
)

// DefaultBaseURL is the public ipapi.co endpoint
const DefaultBaseURL = "https://ipapi.co"

// ClientConfig holds configuration for the ipapi.co client
type ClientConfig struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second
	Burst     int
	CacheTTL  time.Duration
}

// Client resolves caller locations through ipapi.co. Results are cached per IP.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	cache       domain.CacheRepository
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewClient creates a geolocation client. cache may be nil.
func NewClient(cfg ClientConfig, cache domain.CacheRepository, logger zerolog.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Limit(1)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 6 * time.Hour
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(baseURL, "/"),
		rateLimiter: rate.NewLimiter(limit, burst),
		cache:       cache,
		cacheTTL:    ttl,
		logger:      logger.With().Str("component", "geo_client").Logger(),
	}
}

// errorBody is what ipapi.co returns for reserved addresses and quota errors
type errorBody struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Locate looks up ip. An empty or private address asks ipapi.co about the
// address the request comes from, which is the server itself.
func (c *Client) Locate(ctx context.Context, ip string) (*domain.LocationData, error) {
	ip = lookupAddress(ip)
	cacheKey := "geo:" + ip
	if ip == "" {
		cacheKey = "geo:self"
	}

	if location, err := c.getFromCache(ctx, cacheKey); err == nil {
		c.logger.Debug().Str("ip", ip).Msg("location cache hit")
		return location, nil
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrGeolocationFailure, err)
	}

	location, err := c.fetch(ctx, ip)
	if err != nil {
		c.logger.Warn().Err(err).Str("ip", ip).Msg("location lookup failed")
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, location, c.cacheTTL); err != nil {
			c.logger.Warn().Err(err).Msg("failed to cache location")
		}
	}
	return location, nil
}

func (c *Client) fetch(ctx context.Context, ip string) (*domain.LocationData, error) {
	endpoint := c.baseURL + "/json/"
	if ip != "" {
		endpoint = c.baseURL + "/" + ip + "/json/"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeolocationFailure, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "prodcompare-backend/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGeolocationFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: %w", domain.ErrGeolocationFailure, domain.ErrRateLimited)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrGeolocationFailure, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", domain.ErrGeolocationFailure, resp.StatusCode)
	}

	var failure errorBody
	if err := json.Unmarshal(payload, &failure); err == nil && failure.Error {
		return nil, fmt.Errorf("%w: %s", domain.ErrGeolocationFailure, failure.Reason)
	}

	var location domain.LocationData
	if err := json.Unmarshal(payload, &location); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrGeolocationFailure, err)
	}
	if location.Country == "" {
		return nil, fmt.Errorf("%w: response has no country", domain.ErrGeolocationFailure)
	}
	return &location, nil
}

func (c *Client) getFromCache(ctx context.Context, key string) (*domain.LocationData, error) {
	if c.cache == nil {
		return nil, domain.ErrCacheMiss
	}
	value, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	switch v := value.(type) {
	case *domain.LocationData:
		return v, nil
	case map[string]interface{}:
		// JSON caches hand back a generic map
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, domain.ErrCacheMiss
		}
		var location domain.LocationData
		if err := json.Unmarshal(raw, &location); err != nil || location.Country == "" {
			return nil, domain.ErrCacheMiss
		}
		return &location, nil
	default:
		return nil, domain.ErrCacheMiss
	}
}

// lookupAddress returns the address to ask about, or "" when ipapi.co should
// use the request's own address.
func lookupAddress(ip string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(ip))
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() || addr.IsLinkLocalUnicast() {
		return ""
	}
	return addr.String()
}
