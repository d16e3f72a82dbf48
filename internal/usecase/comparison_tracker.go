package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prodcompare/backend/internal/domain"
)

// TrackerConfig holds configuration for comparison tracking
type TrackerConfig struct {
	// OriginProductID is the product the shopper started from
	OriginProductID string
	SessionID       string
	CollectionID    string
	// Debounce collapses bursts of selection changes into one event. Zero dispatches immediately.
	Debounce        time.Duration
	DispatchTimeout time.Duration
}

// ComparisonTracker reports finalized comparisons through a tracking port.
// Dispatch is fire-and-forget: failures are logged and never retried.
// Selections are keyed by their ordered short IDs: observed is the last one
// seen, pendingKey the one awaiting dispatch and lastSent the last dispatched.
type ComparisonTracker struct {
	port       domain.ComparisonTracker
	config     TrackerConfig
	logger     zerolog.Logger
	mu         sync.Mutex
	timer      *time.Timer
	pending    []string
	observed   string
	pendingKey string
	lastSent   string
	version    uint64
	closed     bool
	inflight   sync.WaitGroup
}

// NewComparisonTracker creates a tracker dispatching through port
func NewComparisonTracker(port domain.ComparisonTracker, config TrackerConfig, logger zerolog.Logger) *ComparisonTracker {
	if config.DispatchTimeout <= 0 {
		config.DispatchTimeout = 10 * time.Second
	}
	return &ComparisonTracker{
		port:   port,
		config: config,
		logger: logger.With().Str("component", "comparison_tracker").Logger(),
	}
}

// ComparedProductIDs returns the selection minus the origin product
func ComparedProductIDs(values []string, originProductID string) []string {
	compared := make([]string, 0, len(values))
	for _, value := range values {
		if originProductID != "" && domain.SameProduct(value, originProductID) {
			continue
		}
		compared = append(compared, value)
	}
	return compared
}

// Observe receives a selection snapshot. Snapshots older than one already
// observed are ignored. It never blocks on the network.
func (t *ComparisonTracker) Observe(snap SelectionSnapshot) {
	if t.config.OriginProductID == "" {
		t.logger.Debug().Msg("no origin product; comparison not tracked")
		return
	}
	compared := ComparedProductIDs(snap.Values(), t.config.OriginProductID)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || snap.Version < t.version {
		return
	}
	t.version = snap.Version

	// Snapshots that only carry query or loading state are not selection changes
	key := selectionKey(snap.Values())
	if key == t.observed {
		return
	}
	t.observed = key

	if len(compared) == 0 {
		// A later empty selection cancels a pending burst and starts a new comparison
		t.pending = nil
		t.pendingKey = ""
		t.lastSent = ""
		if t.timer != nil {
			t.timer.Stop()
		}
		return
	}

	t.pending = compared
	t.pendingKey = key
	if t.config.Debounce <= 0 {
		t.flushLocked()
		return
	}
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.config.Debounce, t.flush)
}

func (t *ComparisonTracker) flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.flushLocked()
}

// flushLocked dispatches the pending compared set. A burst that settles back
// on the last dispatched selection sends nothing.
func (t *ComparisonTracker) flushLocked() {
	compared, key := t.pending, t.pendingKey
	t.pending, t.pendingKey = nil, ""
	if len(compared) == 0 {
		return
	}

	if key == t.lastSent {
		t.logger.Debug().Strs("compared_products", compared).Msg("selection settled unchanged; no comparison event")
		return
	}
	t.lastSent = key

	event := domain.ComparisonEvent{
		CollectionID:      t.config.CollectionID,
		OriginalProductID: t.config.OriginProductID,
		ComparedProducts:  compared,
		SessionID:         t.config.SessionID,
	}

	t.inflight.Add(1)
	go t.dispatch(event)
}

func (t *ComparisonTracker) dispatch(event domain.ComparisonEvent) {
	defer t.inflight.Done()

	if t.port == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.config.DispatchTimeout)
	defer cancel()

	if err := t.port.Track(ctx, event); err != nil {
		t.logger.Warn().
			Err(err).
			Str("original_product_id", event.OriginalProductID).
			Strs("compared_products", event.ComparedProducts).
			Msg("comparison tracking failed")
		return
	}
	t.logger.Debug().
		Str("original_product_id", event.OriginalProductID).
		Strs("compared_products", event.ComparedProducts).
		Msg("comparison tracked")
}

// Flush dispatches a pending debounced event immediately
func (t *ComparisonTracker) Flush() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.timer != nil {
		t.timer.Stop()
	}
	if !t.closed {
		t.flushLocked()
	}
}

// Close stops accepting snapshots and waits for in-flight dispatches
func (t *ComparisonTracker) Close() {
	t.mu.Lock()
	t.closed = true
	if t.timer != nil {
		t.timer.Stop()
	}
	t.pending = nil
	t.mu.Unlock()

	t.inflight.Wait()
}

// selectionKey identifies an ordered selection
func selectionKey(values []string) string {
	short := make([]string, len(values))
	for i, value := range values {
		short[i] = domain.ShortID(value)
	}
	return strings.Join(short, ",")
}
