package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/prodcompare/backend/config"
	"github.com/prodcompare/backend/internal/domain"
	"github.com/prodcompare/backend/internal/infrastructure/geo"
	"github.com/prodcompare/backend/internal/infrastructure/reference"
	"github.com/prodcompare/backend/internal/infrastructure/storage"
	"github.com/prodcompare/backend/internal/usecase"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	// Set Gin to test mode once for all tests
	gin.SetMode(gin.TestMode)

	// Run tests
	exitCode := m.Run()

	// Exit with the test result code
	os.Exit(exitCode)
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"https://*.myshopify.com", "http://localhost:3000"},
		},
		Cache: config.CacheConfig{
			Type: "memory",
		},
	}
}

// setupTestRouter creates a router without any services configured
func setupTestRouter() *gin.Engine {
	handler := NewHandler(HandlerDeps{Logger: zerolog.Nop()})
	if handler == nil {
		panic("setupTestRouter: NewHandler returned nil")
	}

	router := SetupRouter(testConfig(), handler, zerolog.Nop())
	if router == nil {
		panic("setupTestRouter: SetupRouter returned nil *gin.Engine")
	}

	return router
}

// mockRecommender is a mock implementation of domain.Recommender
type mockRecommender struct {
	rec        *domain.Recommendation
	err        error
	userPrompt string
}

func (m *mockRecommender) Recommend(ctx context.Context, systemPrompt, userPrompt string) (*domain.Recommendation, error) {
	m.userPrompt = userPrompt
	if m.err != nil {
		return nil, m.err
	}
	return m.rec, nil
}

// setupTestRouterWithServices wires real services over a mock recommender
// and an in-memory SQLite comparison store
func setupTestRouterWithServices(t *testing.T, recommender domain.Recommender) *gin.Engine {
	t.Helper()
	logger := zerolog.Nop()

	db, dialect, err := storage.Open(context.Background(), storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(context.Background(), db, dialect); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	regions, err := reference.DefaultRegions()
	if err != nil {
		t.Fatalf("regions: %v", err)
	}

	handler := NewHandler(HandlerDeps{
		Recommendations: usecase.NewRecommendationService(nil, recommender, usecase.RecommendationServiceConfig{}, logger),
		Tracking:        usecase.NewTrackingService(storage.NewComparisonRepository(db, dialect), logger),
		Tables: usecase.NewTableBuilder(
			usecase.NewBestSpecRanker(nil, usecase.RankerConfig{}, logger),
			usecase.NewRegionResolver(regions, logger),
		),
		Policy:        domain.OrderingPolicy{{MetafieldKey: "height", MetafieldAscendingOrder: false}},
		Geolocation:   geo.NewMockProvider(),
		SessionCookie: "_shopify_s",
		Logger:        logger,
	})
	return SetupRouter(testConfig(), handler, logger)
}

func doJSON(router *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req, _ := http.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var response map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &response)
	return w, response
}

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		w, response := doJSON(router, "GET", "/health", "")

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "prodcompare-backend" {
			t.Errorf("service = %v, want prodcompare-backend", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		methods := []string{"POST", "PUT", "DELETE", "PATCH"}

		for _, method := range methods {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestUnconfiguredServices(t *testing.T) {
	router := setupTestRouter()

	endpoints := []struct {
		method string
		path   string
		body   string
	}{
		{"POST", "/recommend", `{"query":"q","products":[]}`},
		{"POST", "/api/product/comparison/track", `{"originalProductId":"1","comparedProducts":["2"]}`},
		{"GET", "/api/product/comparison/stats/1", ""},
		{"POST", "/api/v1/comparison/table", `{"products":[]}`},
	}

	for _, endpoint := range endpoints {
		w, _ := doJSON(router, endpoint.method, endpoint.path, endpoint.body)
		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s %s: Status = %d, want %d", endpoint.method, endpoint.path, w.Code, http.StatusServiceUnavailable)
		}
	}
}

const recommendBody = `{
	"query": "I need something that lights up a room",
	"products": [
		{"id": 9962241655059, "title": "Copper Light", "handle": "copper-light", "specs": {"wattage": 60}},
		{"id": 9962241655060, "title": "Oak Desk", "handle": "oak-desk", "specs": {"height": "120 cm"}}
	]
}`

func TestRecommendEndpoint(t *testing.T) {
	t.Run("returns the structured recommendation", func(t *testing.T) {
		recommender := &mockRecommender{rec: &domain.Recommendation{
			RecommendedProductID:    "9962241655059",
			RecommendedProductTitle: "Copper Light",
			Reason:                  "It produces light.",
		}}
		router := setupTestRouterWithServices(t, recommender)

		w, response := doJSON(router, "POST", "/recommend", recommendBody)

		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}
		if response["success"] != true {
			t.Errorf("success = %v, want true", response["success"])
		}
		if response["message"] != "Recommendation generated" {
			t.Errorf("message = %v, want 'Recommendation generated'", response["message"])
		}
		output, ok := response["outputJson"].(map[string]interface{})
		if !ok {
			t.Fatalf("outputJson = %v, want object", response["outputJson"])
		}
		if output["recommendedProductId"] != "9962241655059" {
			t.Errorf("recommendedProductId = %v, want 9962241655059", output["recommendedProductId"])
		}
		if !strings.Contains(recommender.userPrompt, "I need something that lights up a room") {
			t.Errorf("user prompt does not contain the query: %q", recommender.userPrompt)
		}
		if !strings.Contains(recommender.userPrompt, "Copper Light") {
			t.Errorf("user prompt does not contain the catalog: %q", recommender.userPrompt)
		}
	})

	t.Run("returns 400 for missing query", func(t *testing.T) {
		router := setupTestRouterWithServices(t, &mockRecommender{})

		w, response := doJSON(router, "POST", "/recommend", `{"products":[]}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
		if response["success"] != false {
			t.Errorf("success = %v, want false", response["success"])
		}
	})

	t.Run("returns 400 for invalid JSON", func(t *testing.T) {
		router := setupTestRouterWithServices(t, &mockRecommender{})

		w, _ := doJSON(router, "POST", "/recommend", `{invalid json}`)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})

	t.Run("returns 502 for malformed recommender output", func(t *testing.T) {
		router := setupTestRouterWithServices(t, &mockRecommender{err: domain.ErrRecommendationParse})

		w, _ := doJSON(router, "POST", "/recommend", recommendBody)

		if w.Code != http.StatusBadGateway {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadGateway)
		}
	})

	t.Run("returns 503 when the recommender is down", func(t *testing.T) {
		router := setupTestRouterWithServices(t, &mockRecommender{err: context.DeadlineExceeded})

		w, response := doJSON(router, "POST", "/recommend", recommendBody)

		if w.Code != http.StatusServiceUnavailable {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusServiceUnavailable)
		}
		if response["message"] != "Recommender temporarily unavailable" {
			t.Errorf("message = %v, want 'Recommender temporarily unavailable'", response["message"])
		}
	})
}

func TestTrackComparisonEndpoint(t *testing.T) {
	t.Run("tracks and reports stats", func(t *testing.T) {
		router := setupTestRouterWithServices(t, &mockRecommender{})

		bodies := []string{
			`{"collectionId":"c1","originalProductId":1,"comparedProducts":[2,3],"sessionId":"s1"}`,
			`{"collectionId":"c1","originalProductId":"gid://shopify/Product/1","comparedProducts":["gid://shopify/Product/2"],"sessionId":"s2"}`,
		}
		for _, body := range bodies {
			w, response := doJSON(router, "POST", "/api/product/comparison/track", body)
			if w.Code != http.StatusOK {
				t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
			}
			if response["message"] != "Comparison tracked" {
				t.Errorf("message = %v, want 'Comparison tracked'", response["message"])
			}
		}

		w, response := doJSON(router, "GET", "/api/product/comparison/stats/1", "")
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
		}
		if response["totalEvents"] != float64(2) {
			t.Errorf("totalEvents = %v, want 2", response["totalEvents"])
		}
		if response["uniqueSessions"] != float64(2) {
			t.Errorf("uniqueSessions = %v, want 2", response["uniqueSessions"])
		}
		comparedWith, _ := response["comparedWith"].(map[string]interface{})
		if comparedWith["2"] != float64(2) || comparedWith["3"] != float64(1) {
			t.Errorf("comparedWith = %v, want map[2:2 3:1]", comparedWith)
		}
	})

	t.Run("returns 400 for missing product IDs", func(t *testing.T) {
		router := setupTestRouterWithServices(t, &mockRecommender{})

		bodies := []string{
			`{"comparedProducts":["2"]}`,
			`{"originalProductId":"1"}`,
			`{"originalProductId":"1","comparedProducts":null}`,
			`not json`,
		}
		for _, body := range bodies {
			w, response := doJSON(router, "POST", "/api/product/comparison/track", body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("body %s: Status = %d, want %d", body, w.Code, http.StatusBadRequest)
			}
			if response["message"] != "Missing product IDs" {
				t.Errorf("body %s: message = %v, want 'Missing product IDs'", body, response["message"])
			}
		}
	})

	t.Run("falls back to the session cookie", func(t *testing.T) {
		router := setupTestRouterWithServices(t, &mockRecommender{})

		req, _ := http.NewRequest("POST", "/api/product/comparison/track",
			strings.NewReader(`{"originalProductId":"7","comparedProducts":["8"]}`))
		req.Header.Set("Content-Type", "application/json")
		req.AddCookie(&http.Cookie{Name: "_shopify_s", Value: "cookie-session"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		_, response := doJSON(router, "GET", "/api/product/comparison/stats/7", "")
		if response["uniqueSessions"] != float64(1) {
			t.Errorf("uniqueSessions = %v, want 1", response["uniqueSessions"])
		}
	})
}

func TestBuildTableEndpoint(t *testing.T) {
	body := `{
		"products": [
			{"id": 1, "title": "Short Desk", "handle": "short-desk", "specs": {"height": "1.5 m", "available_regions": ["Asia"]}},
			{"id": 2, "title": "Tall Desk", "handle": "tall-desk", "specs": {"height": "160 cm", "available_regions": ["Northern America"]}}
		]
	}`

	router := setupTestRouterWithServices(t, &mockRecommender{})
	w, _ := doJSON(router, "POST", "/api/v1/comparison/table", body)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	var table usecase.ComparisonTable
	if err := json.Unmarshal(w.Body.Bytes(), &table); err != nil {
		t.Fatalf("Failed to unmarshal table: %v", err)
	}
	if len(table.Columns) != 2 {
		t.Fatalf("columns = %d, want 2", len(table.Columns))
	}
	if len(table.BestSpecs) != 1 || table.BestSpecs[0].BestProduct == nil || table.BestSpecs[0].BestProduct.ID != "2" {
		t.Errorf("bestSpecs = %+v, want height won by product 2", table.BestSpecs)
	}

	var regionRow *usecase.ComparisonRow
	for i := range table.Rows {
		if table.Rows[i].Key == domain.AvailableRegionsKey {
			regionRow = &table.Rows[i]
		}
	}
	if regionRow == nil {
		t.Fatal("available_regions row missing")
	}
	if regionRow.Label != "Available in Canada?" {
		t.Errorf("label = %q, want 'Available in Canada?'", regionRow.Label)
	}
	if regionRow.Cells[0].Availability != usecase.AvailabilityUnavailable || regionRow.Cells[1].Availability != usecase.AvailabilityAvailable {
		t.Errorf("availability = %v/%v, want unavailable/available", regionRow.Cells[0].Availability, regionRow.Cells[1].Availability)
	}

	t.Run("selection narrows the columns", func(t *testing.T) {
		narrowed := strings.Replace(body, `"products"`, `"selection": ["gid://shopify/Product/2"], "products"`, 1)
		w, _ := doJSON(router, "POST", "/api/v1/comparison/table", narrowed)

		var table usecase.ComparisonTable
		if err := json.Unmarshal(w.Body.Bytes(), &table); err != nil {
			t.Fatalf("Failed to unmarshal table: %v", err)
		}
		if len(table.Columns) != 1 || table.Columns[0].ProductID != "2" {
			t.Errorf("columns = %+v, want only product 2", table.Columns)
		}
	})

	t.Run("returns 400 without products", func(t *testing.T) {
		w, _ := doJSON(router, "POST", "/api/v1/comparison/table", `{"selection":["1"]}`)
		if w.Code != http.StatusBadRequest {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusBadRequest)
		}
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for shop domains", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://demo-store.myshopify.com")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		gotOrigin := w.Header().Get("Access-Control-Allow-Origin")
		if gotOrigin != "https://demo-store.myshopify.com" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", gotOrigin, "https://demo-store.myshopify.com")
		}
		if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want true", w.Header().Get("Access-Control-Allow-Credentials"))
		}
	})

	t.Run("recommend endpoint has CORS for localhost", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("POST", "/recommend", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	router := setupTestRouter()

	// Add a test route that panics
	router.GET("/panic", func(c *gin.Context) {
		panic("test panic")
	})

	w, response := doJSON(router, "GET", "/panic", "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	if response["success"] != false {
		t.Errorf("success = %v, want false", response["success"])
	}
}

func TestRateLimitIntegration(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{PerIP: 1, Burst: 2}
	router := SetupRouter(cfg, NewHandler(HandlerDeps{Logger: zerolog.Nop()}), zerolog.Nop())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w, _ := doJSON(router, "GET", "/api/product/comparison/stats/1", "")
		codes = append(codes, w.Code)
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want third request limited", codes)
	}

	// Health checks are never limited
	for i := 0; i < 5; i++ {
		if w, _ := doJSON(router, "GET", "/health", ""); w.Code != http.StatusOK {
			t.Errorf("health Status = %d, want %d", w.Code, http.StatusOK)
		}
	}
}

// TestJSONResponses tests that all responses are valid JSON
func TestJSONResponses(t *testing.T) {
	endpoints := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"POST", "/recommend"},
		{"POST", "/api/product/comparison/track"},
	}

	for _, endpoint := range endpoints {
		t.Run(endpoint.method+" "+endpoint.path, func(t *testing.T) {
			router := setupTestRouter()

			req, _ := http.NewRequest(endpoint.method, endpoint.path, nil)
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			gotContentType := w.Header().Get("Content-Type")
			wantContentType := "application/json; charset=utf-8"
			if gotContentType != wantContentType {
				t.Errorf("Content-Type = %q, want %q", gotContentType, wantContentType)
			}

			var response map[string]interface{}
			if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
				t.Errorf("Response should be valid JSON, got error: %v", err)
			}
		})
	}
}
