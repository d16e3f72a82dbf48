package usecase

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/prodcompare/backend/internal/domain"
)

// SessionDeps are the collaborators a comparison session is wired to
type SessionDeps struct {
	Geolocation     domain.GeolocationProvider
	Recommendations domain.RecommendationClient
	Tracking        domain.ComparisonTracker
	Ranker          *BestSpecRanker
	Regions         *RegionResolver
}

// SessionConfig holds per-session context that the storefront used to read
// from globals: page path, session cookie, collection and caller IP.
type SessionConfig struct {
	Mode                  SelectionMode
	CurrentPath           string
	SessionID             string
	CollectionID          string
	ClientIP              string
	TrackingDebounce      time.Duration
	LocationTimeout       time.Duration
	RecommendationTimeout time.Duration
}

// ComparisonSession is the session-scoped composition of the comparison
// engine: one reconciler, one tracker observing it, and a location that is
// resolved once in the background.
type ComparisonSession struct {
	catalog    []domain.Product
	policy     domain.OrderingPolicy
	reconciler *SelectionReconciler
	tracker    *ComparisonTracker
	builder    *TableBuilder
	location   atomic.Pointer[domain.LocationData]
	group      *errgroup.Group
	cancel     context.CancelFunc
	logger     zerolog.Logger
}

// NewComparisonSession wires a session and starts the location lookup. The
// lookup never blocks the session: tables built before it resolves show
// regional cells as unknown.
func NewComparisonSession(
	ctx context.Context,
	catalog []domain.Product,
	policy domain.OrderingPolicy,
	deps SessionDeps,
	config SessionConfig,
	logger zerolog.Logger,
) *ComparisonSession {
	logger = logger.With().Str("session_id", config.SessionID).Logger()

	reconciler := NewSelectionReconciler(catalog, deps.Recommendations, ReconcilerConfig{
		Mode:                  config.Mode,
		CurrentPath:           config.CurrentPath,
		RecommendationTimeout: config.RecommendationTimeout,
	}, logger)

	origin := ""
	if current := reconciler.CurrentProduct(); current != nil {
		origin = current.ID.String()
	}

	tracker := NewComparisonTracker(deps.Tracking, TrackerConfig{
		OriginProductID: origin,
		SessionID:       config.SessionID,
		CollectionID:    config.CollectionID,
		Debounce:        config.TrackingDebounce,
	}, logger)
	reconciler.Subscribe(tracker.Observe)

	ranker := deps.Ranker
	if ranker == nil {
		ranker = NewBestSpecRanker(nil, RankerConfig{}, logger)
	}

	sessionCtx, cancel := context.WithCancel(ctx)
	group, groupCtx := errgroup.WithContext(sessionCtx)

	s := &ComparisonSession{
		catalog:    catalog,
		policy:     policy,
		reconciler: reconciler,
		tracker:    tracker,
		builder:    NewTableBuilder(ranker, deps.Regions),
		group:      group,
		cancel:     cancel,
		logger:     logger.With().Str("component", "comparison_session").Logger(),
	}

	if deps.Geolocation != nil {
		timeout := config.LocationTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		group.Go(func() error {
			locCtx, cancelLoc := context.WithTimeout(groupCtx, timeout)
			defer cancelLoc()

			location, err := deps.Geolocation.Locate(locCtx, config.ClientIP)
			if err != nil {
				s.logger.Warn().Err(err).Msg("location unavailable; regional rows stay unknown")
				return err
			}
			s.location.Store(location)
			return nil
		})
	}

	return s
}

// Reconciler returns the selection state machine driven by UI events
func (s *ComparisonSession) Reconciler() *SelectionReconciler {
	return s.reconciler
}

// Location returns the resolved location, or nil while it is outstanding or failed
func (s *ComparisonSession) Location() *domain.LocationData {
	return s.location.Load()
}

// WaitLocation blocks until the background location lookup has finished
func (s *ComparisonSession) WaitLocation() error {
	return s.group.Wait()
}

// Table renders the comparison for the current selection snapshot
func (s *ComparisonSession) Table() ComparisonTable {
	snap := s.reconciler.Snapshot()
	return s.builder.Build(s.catalog, snap.Options, s.policy, s.Location())
}

// FlushTracking dispatches a debounced comparison event without waiting for
// the debounce window, for callers that are about to end the session.
func (s *ComparisonSession) FlushTracking() {
	s.tracker.Flush()
}

// Close cancels outstanding requests and waits for tracking dispatches
func (s *ComparisonSession) Close() {
	s.reconciler.Close()
	s.cancel()
	_ = s.group.Wait()
	s.tracker.Close()
}
