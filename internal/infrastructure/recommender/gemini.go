package recommender

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/prodcompare/backend/internal/domain"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the subset of genai.Models the recommender uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiRecommender implements domain.Recommender with structured JSON output
type GeminiRecommender struct {
	models      contentGenerator
	model       string
	temperature *float32
	logger      zerolog.Logger
}

// GeminiConfig holds configuration for the Gemini recommender
type GeminiConfig struct {
	APIKey      string
	Model       string
	Temperature float32
}

// NewGeminiRecommender creates a recommender backed by the Gemini API
func NewGeminiRecommender(ctx context.Context, cfg GeminiConfig, logger zerolog.Logger) (*GeminiRecommender, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newGeminiRecommender(client.Models, cfg, logger), nil
}

func newGeminiRecommender(models contentGenerator, cfg GeminiConfig, logger zerolog.Logger) *GeminiRecommender {
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	r := &GeminiRecommender{
		models: models,
		model:  model,
		logger: logger.With().Str("component", "gemini_recommender").Str("model", model).Logger(),
	}
	if cfg.Temperature > 0 {
		temperature := cfg.Temperature
		r.temperature = &temperature
	}
	return r
}

// RecommendationSchema constrains the model to the Recommendation shape
func RecommendationSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"recommendedProductId": {
				Type:        genai.TypeString,
				Description: "The id of the recommended product, copied from the product array",
			},
			"recommendedProductTitle": {
				Type:        genai.TypeString,
				Description: "The title of the recommended product",
			},
			"reason": {
				Type:        genai.TypeString,
				Description: "Why this product fits the user's use case",
			},
		},
		Required:         []string{"recommendedProductId", "recommendedProductTitle", "reason"},
		PropertyOrdering: []string{"recommendedProductId", "recommendedProductTitle", "reason"},
	}
}

// Recommend sends the prompts and decodes the structured answer strictly
func (r *GeminiRecommender) Recommend(ctx context.Context, systemPrompt, userPrompt string) (*domain.Recommendation, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    RecommendationSchema(),
		Temperature:       r.temperature,
	}
	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}

	resp, err := r.models.GenerateContent(ctx, r.model, contents, config)
	if err != nil {
		r.logger.Error().Err(err).Msg("generate content failed")
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: empty response", domain.ErrRecommendationParse)
	}

	rec, err := domain.DecodeRecommendation([]byte(resp.Text()))
	if err != nil {
		r.logger.Warn().Err(err).Msg("model output did not match the recommendation schema")
		return nil, err
	}
	return rec, nil
}
