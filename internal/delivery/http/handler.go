package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/prodcompare/backend/internal/domain"
	"github.com/prodcompare/backend/internal/usecase"
)

// ServiceName is reported by the health check
const ServiceName = "prodcompare-backend"

// HandlerDeps holds the services the HTTP handlers delegate to. Nil services
// make their endpoints answer 503.
type HandlerDeps struct {
	Recommendations *usecase.RecommendationService
	Tracking        *usecase.TrackingService
	Tables          *usecase.TableBuilder
	Policy          domain.OrderingPolicy
	Geolocation     domain.GeolocationProvider
	SessionCookie   string
	Logger          zerolog.Logger
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	recommendations *usecase.RecommendationService
	tracking        *usecase.TrackingService
	tables          *usecase.TableBuilder
	policy          domain.OrderingPolicy
	geolocation     domain.GeolocationProvider
	sessionCookie   string
	logger          zerolog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps HandlerDeps) *Handler {
	return &Handler{
		recommendations: deps.Recommendations,
		tracking:        deps.Tracking,
		tables:          deps.Tables,
		policy:          deps.Policy,
		geolocation:     deps.Geolocation,
		sessionCookie:   deps.SessionCookie,
		logger:          deps.Logger.With().Str("component", "http_handler").Logger(),
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": ServiceName,
		"version": "1.0.0",
	})
}

// Recommend handles POST /recommend
func (h *Handler) Recommend(c *gin.Context) {
	if h.recommendations == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": "Recommendation service not configured",
		})
		return
	}

	var req domain.RecommendationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Invalid request: query is required",
		})
		return
	}

	rec, err := h.recommendations.Recommend(c.Request.Context(), &req)
	if err != nil {
		status, message := recommendationError(err)
		h.logger.Warn().Err(err).Int("status", status).Msg("recommendation failed")
		c.JSON(status, gin.H{
			"success": false,
			"message": message,
		})
		return
	}

	c.JSON(http.StatusOK, domain.RecommendationResponse{
		Success:    true,
		OutputJSON: rec,
		Message:    "Recommendation generated",
	})
}

func recommendationError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrRecommendationParse):
		return http.StatusBadGateway, "Recommender returned a malformed answer"
	case errors.Is(err, domain.ErrRecommendationUnavailable):
		return http.StatusServiceUnavailable, "Recommender temporarily unavailable"
	default:
		return http.StatusInternalServerError, "Failed to generate recommendation"
	}
}

// trackRequest accepts product IDs as JSON numbers or strings
type trackRequest struct {
	CollectionID      string             `json:"collectionId"`
	OriginalProductID domain.ProductID   `json:"originalProductId"`
	ComparedProducts  []domain.ProductID `json:"comparedProducts"`
	SessionID         string             `json:"sessionId"`
}

// TrackComparison handles POST /api/product/comparison/track
func (h *Handler) TrackComparison(c *gin.Context) {
	if h.tracking == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": "Tracking service not configured",
		})
		return
	}

	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OriginalProductID == "" || req.ComparedProducts == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Missing product IDs",
		})
		return
	}

	event := &domain.ComparisonEvent{
		CollectionID:      req.CollectionID,
		OriginalProductID: req.OriginalProductID.String(),
		ComparedProducts:  make([]string, 0, len(req.ComparedProducts)),
		SessionID:         req.SessionID,
	}
	for _, id := range req.ComparedProducts {
		event.ComparedProducts = append(event.ComparedProducts, id.String())
	}
	if event.SessionID == "" && h.sessionCookie != "" {
		if cookie, err := c.Cookie(h.sessionCookie); err == nil {
			event.SessionID = cookie
		}
	}

	if err := h.tracking.Track(c.Request.Context(), event); err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "Missing product IDs",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Failed to track comparison",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Comparison tracked",
	})
}

// ComparisonStats handles GET /api/product/comparison/stats/:productId
func (h *Handler) ComparisonStats(c *gin.Context) {
	if h.tracking == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Tracking service not configured",
		})
		return
	}

	stats, err := h.tracking.Stats(c.Request.Context(), c.Param("productId"))
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error().Err(err).Msg("failed to load comparison stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load comparison stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// TableRequest is the body of POST /api/v1/comparison/table
type TableRequest struct {
	Products  []domain.Product `json:"products" binding:"required"`
	Selection []string         `json:"selection"`
	// Location overrides the caller's geolocation when set
	Location *domain.LocationData `json:"location,omitempty"`
}

// BuildTable handles POST /api/v1/comparison/table. An empty selection
// compares the whole product list, as a predefined comparison does.
func (h *Handler) BuildTable(c *gin.Context) {
	if h.tables == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Comparison table not configured"})
		return
	}

	var req TableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: products are required"})
		return
	}

	options := domain.OptionsFor(req.Products)
	if len(req.Selection) > 0 {
		options = selectOptions(options, req.Selection)
	}

	location := req.Location
	if location == nil && h.geolocation != nil {
		resolved, err := h.geolocation.Locate(c.Request.Context(), c.ClientIP())
		if err != nil {
			h.logger.Warn().Err(err).Msg("location unavailable; regional cells unknown")
		} else {
			location = resolved
		}
	}

	c.JSON(http.StatusOK, h.tables.Build(req.Products, options, h.policy, location))
}

// selectOptions keeps the options named by selection, in selection order
func selectOptions(options []domain.ProductOption, selection []string) []domain.ProductOption {
	selected := make([]domain.ProductOption, 0, len(selection))
	seen := make(map[string]bool, len(selection))
	for _, value := range selection {
		short := domain.ShortID(strings.TrimSpace(value))
		if seen[short] {
			continue
		}
		for _, option := range options {
			if domain.ShortID(option.Value) == short {
				selected = append(selected, option)
				seen[short] = true
				break
			}
		}
	}
	return selected
}
