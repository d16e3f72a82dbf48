package domain

import "time"

// SpecOrderingEntry declares a spec key as orderable and the direction of "best"
type SpecOrderingEntry struct {
	MetafieldKey            string `json:"metafield_key" yaml:"metafield_key"`
	MetafieldAscendingOrder bool   `json:"metafield_ascending_order" yaml:"metafield_ascending_order"`
}

// OrderingPolicy is the merchant-supplied list of orderable spec keys
type OrderingPolicy []SpecOrderingEntry

// Entry returns the policy entry for key, if any
func (p OrderingPolicy) Entry(key string) (SpecOrderingEntry, bool) {
	for _, entry := range p {
		if entry.MetafieldKey == key {
			return entry, true
		}
	}
	return SpecOrderingEntry{}, false
}

// BestSpecDefinition names the selected product holding the best value for a key
type BestSpecDefinition struct {
	Key         string   `json:"key"`
	BestProduct *Product `json:"bestProduct"`
}

// IsBest reports whether productID holds the best value for this key
func (d BestSpecDefinition) IsBest(productID string) bool {
	return d.BestProduct != nil && SameProduct(d.BestProduct.ID.String(), productID)
}

// Recommendation is the structured answer returned by the AI recommender
type Recommendation struct {
	RecommendedProductID    string `json:"recommendedProductId"`
	RecommendedProductTitle string `json:"recommendedProductTitle"`
	Reason                  string `json:"reason"`
}

// RecommendationRequest is the body sent to the recommendation backend
type RecommendationRequest struct {
	Query    string    `json:"query" binding:"required"`
	Products []Product `json:"products"`
}

// RecommendationResponse is the body of a successful POST /recommend
type RecommendationResponse struct {
	Success    bool            `json:"success"`
	OutputJSON *Recommendation `json:"outputJson"`
	Message    string          `json:"message,omitempty"`
}

// ComparisonEvent records that a shopper compared an origin product against others
type ComparisonEvent struct {
	ID                string    `json:"id,omitempty"`
	CollectionID      string    `json:"collectionId,omitempty"`
	OriginalProductID string    `json:"originalProductId"`
	ComparedProducts  []string  `json:"comparedProducts"`
	SessionID         string    `json:"sessionId,omitempty"`
	CreatedAt         time.Time `json:"createdAt,omitempty"`
}

// ComparisonStats summarizes how often a product was compared and with what
type ComparisonStats struct {
	ProductID      string         `json:"productId"`
	TotalEvents    int            `json:"totalEvents"`
	ComparedWith   map[string]int `json:"comparedWith"`
	UniqueSessions int            `json:"uniqueSessions"`
}
