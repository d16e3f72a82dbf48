package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prodcompare/backend/internal/domain"
)

// TrackingService records comparison events and summarizes them per product
type TrackingService struct {
	repo   domain.ComparisonRepository
	now    func() time.Time
	logger zerolog.Logger
}

// NewTrackingService creates a tracking service backed by repo
func NewTrackingService(repo domain.ComparisonRepository, logger zerolog.Logger) *TrackingService {
	return &TrackingService{
		repo:   repo,
		now:    time.Now,
		logger: logger.With().Str("component", "tracking_service").Logger(),
	}
}

// Track validates and persists a comparison event. The origin product is
// stripped from the compared list if a client sent it along.
func (s *TrackingService) Track(ctx context.Context, event *domain.ComparisonEvent) error {
	if event == nil || strings.TrimSpace(event.OriginalProductID) == "" || event.ComparedProducts == nil {
		return fmt.Errorf("%w: missing product IDs", domain.ErrInvalidRequest)
	}

	event.ComparedProducts = ComparedProductIDs(event.ComparedProducts, event.OriginalProductID)
	event.ID = uuid.NewString()
	event.CreatedAt = s.now().UTC()

	if err := s.repo.Save(ctx, event); err != nil {
		s.logger.Error().
			Err(err).
			Str("original_product_id", event.OriginalProductID).
			Msg("failed to persist comparison event")
		return fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	s.logger.Info().
		Str("event_id", event.ID).
		Str("original_product_id", event.OriginalProductID).
		Strs("compared_products", event.ComparedProducts).
		Msg("comparison tracked")
	return nil
}

// Stats summarizes every event whose origin is productID. IDs are compared
// without their GID namespace.
func (s *TrackingService) Stats(ctx context.Context, productID string) (*domain.ComparisonStats, error) {
	short := domain.ShortID(productID)
	if short == "" {
		return nil, fmt.Errorf("%w: product id is required", domain.ErrInvalidRequest)
	}

	events, err := s.repo.ListByProduct(ctx, short)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageFailure, err)
	}

	stats := &domain.ComparisonStats{
		ProductID:    short,
		TotalEvents:  len(events),
		ComparedWith: make(map[string]int),
	}
	sessions := make(map[string]bool)
	for _, event := range events {
		if event.SessionID != "" {
			sessions[event.SessionID] = true
		}
		seen := make(map[string]bool, len(event.ComparedProducts))
		for _, id := range event.ComparedProducts {
			other := domain.ShortID(id)
			if other == short || seen[other] {
				continue
			}
			seen[other] = true
			stats.ComparedWith[other]++
		}
	}
	stats.UniqueSessions = len(sessions)
	return stats, nil
}
