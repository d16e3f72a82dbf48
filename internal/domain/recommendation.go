package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// recommendationFields are the only keys a structured recommendation may carry
var recommendationFields = []string{"recommendedProductId", "recommendedProductTitle", "reason"}

// DecodeRecommendation parses a structured recommendation strictly: the
// three fields must be present as strings and nothing else is allowed.
func DecodeRecommendation(data []byte) (*Recommendation, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, fmt.Errorf("%w: empty output", ErrRecommendationParse)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecommendationParse, err)
	}
	if len(raw) != len(recommendationFields) {
		return nil, fmt.Errorf("%w: expected %d fields, got %d", ErrRecommendationParse, len(recommendationFields), len(raw))
	}

	values := make(map[string]string, len(recommendationFields))
	for _, field := range recommendationFields {
		value, ok := raw[field]
		if !ok {
			return nil, fmt.Errorf("%w: missing field %q", ErrRecommendationParse, field)
		}
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return nil, fmt.Errorf("%w: field %q must be a string", ErrRecommendationParse, field)
		}
		values[field] = s
	}

	return &Recommendation{
		RecommendedProductID:    values["recommendedProductId"],
		RecommendedProductTitle: values["recommendedProductTitle"],
		Reason:                  values["reason"],
	}, nil
}
