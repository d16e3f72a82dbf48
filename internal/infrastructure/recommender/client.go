package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/prodcompare/backend/internal/domain"
)

// ClientConfig holds configuration for the recommendation backend client
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	RateLimit  float64 // requests per second
	Burst      int
	MaxRetries int
}

// Client calls the recommendation backend's POST /recommend endpoint
type Client struct {
	httpClient  *http.Client
	baseURL     string
	rateLimiter *rate.Limiter
	maxRetries  int
	logger      zerolog.Logger
}

// NewClient creates a new recommendation backend client
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Limit(2)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		rateLimiter: rate.NewLimiter(limit, burst),
		maxRetries:  maxRetries,
		logger:      logger.With().Str("component", "recommender_client").Logger(),
	}
}

// recommendEnvelope is the response body of POST /recommend. outputJson is
// kept raw so it can be decoded strictly.
type recommendEnvelope struct {
	Success    bool            `json:"success"`
	OutputJSON json.RawMessage `json:"outputJson"`
	Message    string          `json:"message"`
}

// exponentialBackoff returns the wait before retrying attempt: 500ms, 1s, 2s, ...
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500*(1<<(attempt-1))) * time.Millisecond
}

// Recommend asks the backend which product fits query. Transient failures
// (network, 429, 5xx) are retried with exponential backoff.
func (c *Client) Recommend(ctx context.Context, query string, products []domain.Product) (*domain.Recommendation, error) {
	body, err := json.Marshal(domain.RecommendationRequest{Query: query, Products: products})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}
	endpoint := c.baseURL + "/recommend"

	var lastErr error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", domain.ErrRecommendationUnavailable, err)
		}

		status, payload, err := c.post(ctx, endpoint, body)
		if err != nil {
			c.logger.Warn().Err(err).Int("attempt", attempt).Msg("recommend request failed")
			lastErr = err
		} else {
			switch {
			case status == http.StatusOK:
				return decodeEnvelope(payload)
			case status == http.StatusTooManyRequests || status >= 500:
				c.logger.Warn().Int("status", status).Int("attempt", attempt).Msg("recommend request rejected")
				lastErr = fmt.Errorf("%w: status %d", domain.ErrRecommendationUnavailable, status)
			default:
				return nil, fmt.Errorf("%w: status %d: %s", domain.ErrRecommendationUnavailable, status, truncate(payload, 200))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", domain.ErrRecommendationUnavailable, ctx.Err())
		case <-time.After(exponentialBackoff(attempt)):
		}
	}

	c.logger.Error().Err(lastErr).Msg("all recommend retries failed")
	return nil, lastErr
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", domain.ErrRecommendationUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: read body: %v", domain.ErrRecommendationUnavailable, err)
	}
	return resp.StatusCode, payload, nil
}

func decodeEnvelope(payload []byte) (*domain.Recommendation, error) {
	var envelope recommendEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRecommendationParse, err)
	}
	if !envelope.Success && len(envelope.OutputJSON) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrRecommendationUnavailable, envelope.Message)
	}
	return domain.DecodeRecommendation(envelope.OutputJSON)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
