package tracking

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

	"github.com/prodcompare/backend/internal/domain"
)

// TrackPath is the backend route comparison events are posted to
const TrackPath = "/api/product/comparison/track"

// ClientConfig holds configuration for the tracking backend client
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// Client posts comparison events to the tracking backend. Events are
// telemetry, so a failed post is reported once and never retried.
type Client struct {
	httpClient *http.Client
	endpoint   string
	logger     zerolog.Logger
}

// NewClient creates a new tracking backend client
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + TrackPath,
		logger:     logger.With().Str("component", "tracking_client").Logger(),
	}
}

type trackRequest struct {
	CollectionID      string   `json:"collectionId"`
	OriginalProductID string   `json:"originalProductId"`
	ComparedProducts  []string `json:"comparedProducts"`
	SessionID         string   `json:"sessionId"`
}

type trackResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Track sends one comparison event
func (c *Client) Track(ctx context.Context, event domain.ComparisonEvent) error {
	body, err := json.Marshal(trackRequest{
		CollectionID:      event.CollectionID,
		OriginalProductID: event.OriginalProductID,
		ComparedProducts:  event.ComparedProducts,
		SessionID:         event.SessionID,
	})
	if err != nil {
		return fmt.Errorf("%w: encode event: %v", domain.ErrTrackingDispatch, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTrackingDispatch, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrTrackingDispatch, err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var decoded trackResponse
		if json.Unmarshal(payload, &decoded) == nil && decoded.Message != "" {
			return fmt.Errorf("%w: status %d: %s", domain.ErrTrackingDispatch, resp.StatusCode, decoded.Message)
		}
		return fmt.Errorf("%w: status %d", domain.ErrTrackingDispatch, resp.StatusCode)
	}

	c.logger.Debug().
		Str("original_product_id", event.OriginalProductID).
		Int("compared", len(event.ComparedProducts)).
		Msg("comparison event delivered")
	return nil
}
