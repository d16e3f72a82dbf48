package usecase

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/prodcompare/backend/internal/domain"
)

// SelectionMode selects the comparison layout the reconciler serves
type SelectionMode int

const (
	// ModeTwoColumn caps the selection at two products with FIFO eviction
	ModeTwoColumn SelectionMode = iota + 1
	// ModeMultiColumn allows any number of products
	ModeMultiColumn
)

// TwoColumnCapacity is the selection limit in two-column mode
const TwoColumnCapacity = 2

// ParseSelectionMode maps a config string to a mode, defaulting to multi-column
func ParseSelectionMode(s string) SelectionMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "two_column", "two-column", "two":
		return ModeTwoColumn
	default:
		return ModeMultiColumn
	}
}

// SelectionSnapshot is an immutable view of the reconciler state after a transition
type SelectionSnapshot struct {
	Version        uint64
	Options        []domain.ProductOption
	Recommendation *domain.Recommendation
	Query          string
	Loading        bool
}

// Values returns the selection keys in order
func (s SelectionSnapshot) Values() []string {
	values := make([]string, len(s.Options))
	for i, option := range s.Options {
		values[i] = option.Value
	}
	return values
}

// ReconcilerConfig holds configuration for the selection reconciler
type ReconcilerConfig struct {
	Mode                  SelectionMode
	CurrentPath           string
	RecommendationTimeout time.Duration
}

// SelectionReconciler owns the selection set. It merges manual toggles,
// multi-select replacement, drag reordering and AI recommendations into one
// authoritative, ordered, duplicate-free selection. It is the only writer;
// readers receive copy-on-write snapshots.
type SelectionReconciler struct {
	mu sync.Mutex

	catalog []domain.Product
	options []domain.ProductOption
	mode    SelectionMode
	client  domain.RecommendationClient
	timeout time.Duration
	logger  zerolog.Logger

	selection          []domain.ProductOption
	recommendation     *domain.Recommendation
	lastRecommendation *domain.Recommendation
	query              string
	generation         uint64
	inFlight           bool
	cancelInFlight     context.CancelFunc
	version            uint64
	current            *domain.ProductOption

	subscribers []func(SelectionSnapshot)
}

// NewSelectionReconciler creates a reconciler over a catalog. The product whose
// handle appears as a segment of config.CurrentPath is pre-selected.
func NewSelectionReconciler(
	catalog []domain.Product,
	client domain.RecommendationClient,
	config ReconcilerConfig,
	logger zerolog.Logger,
) *SelectionReconciler {
	mode := config.Mode
	if mode == 0 {
		mode = ModeMultiColumn
	}

	timeout := config.RecommendationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := &SelectionReconciler{
		catalog: catalog,
		options: domain.OptionsFor(catalog),
		mode:    mode,
		client:  client,
		timeout: timeout,
		logger:  logger.With().Str("component", "selection_reconciler").Logger(),
	}

	for _, option := range r.options {
		if matchesPath(option.Product.Handle, config.CurrentPath) {
			opt := option
			r.current = &opt
			r.selection = []domain.ProductOption{option}
			break
		}
	}

	return r
}

// matchesPath reports whether handle equals one segment of a storefront path
func matchesPath(handle, path string) bool {
	if handle == "" || path == "" {
		return false
	}
	if idx := strings.IndexAny(path, "?#"); idx >= 0 {
		path = path[:idx]
	}
	for _, segment := range strings.Split(path, "/") {
		if segment == handle {
			return true
		}
	}
	return false
}

// CurrentProduct returns the product the page is about, if the path identified one
func (r *SelectionReconciler) CurrentProduct() *domain.Product {
	if r.current == nil {
		return nil
	}
	return r.current.Product
}

// Options returns every selectable option in catalog order
func (r *SelectionReconciler) Options() []domain.ProductOption {
	return append([]domain.ProductOption(nil), r.options...)
}

// Subscribe registers fn to receive a snapshot after every committed transition.
// Callbacks run on the goroutine that performed the transition, outside the lock.
func (r *SelectionReconciler) Subscribe(fn func(SelectionSnapshot)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subscribers = append(r.subscribers, fn)
}

// Snapshot returns the current state
func (r *SelectionReconciler) Snapshot() SelectionSnapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotLocked()
}

// Loading reports whether a submitted query is still awaiting its recommendation
func (r *SelectionReconciler) Loading() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadingLocked()
}

func (r *SelectionReconciler) loadingLocked() bool {
	return r.inFlight && r.query != "" && (r.recommendation == nil || r.recommendation.Reason == "")
}

// Toggle removes productID if selected, otherwise appends it. In two-column
// mode a full selection evicts its oldest entry first.
func (r *SelectionReconciler) Toggle(productID string) error {
	option, ok := r.findOption(productID)
	if !ok {
		r.logger.Warn().Str("product_id", productID).Msg("toggle ignored: product not in catalog")
		return domain.ErrInvalidRequest
	}

	r.mu.Lock()
	next := make([]domain.ProductOption, 0, len(r.selection)+1)
	removed := false
	for _, selected := range r.selection {
		if selected.Value == option.Value {
			removed = true
			continue
		}
		next = append(next, selected)
	}
	if !removed {
		if r.mode == ModeTwoColumn && len(next) >= TwoColumnCapacity {
			next = next[len(next)-TwoColumnCapacity+1:]
		}
		next = append(next, option)
	}
	snap := r.commitLocked(next)
	r.mu.Unlock()

	r.publish(snap)
	return nil
}

// Replace sets the selection wholesale, as a multi-select picker does.
// Unknown values are ignored and duplicates collapse to their first position.
func (r *SelectionReconciler) Replace(values []string) {
	next := make([]domain.ProductOption, 0, len(values))
	seen := make(map[string]bool, len(values))
	for _, value := range values {
		option, ok := r.findOption(value)
		if !ok {
			r.logger.Warn().Str("product_id", value).Msg("ignoring unknown product in selection")
			continue
		}
		if seen[option.Value] {
			continue
		}
		seen[option.Value] = true
		next = append(next, option)
	}
	if r.mode == ModeTwoColumn && len(next) > TwoColumnCapacity {
		next = next[len(next)-TwoColumnCapacity:]
	}

	r.mu.Lock()
	snap := r.commitLocked(next)
	r.mu.Unlock()

	r.publish(snap)
}

// Move relocates the option at index from to index to, shifting the others.
// Out-of-range indices leave the selection untouched.
func (r *SelectionReconciler) Move(from, to int) {
	r.mu.Lock()
	n := len(r.selection)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		r.mu.Unlock()
		return
	}

	next := make([]domain.ProductOption, 0, n)
	moved := r.selection[from]
	for i, option := range r.selection {
		if i == from {
			continue
		}
		next = append(next, option)
	}
	next = append(next[:to], append([]domain.ProductOption{moved}, next[to:]...)...)
	snap := r.commitLocked(next)
	r.mu.Unlock()

	r.publish(snap)
}

// ApplyRecommendation stores rec and replaces the selection with the single
// recommended product. A recommendation naming an unknown product empties the
// selection.
func (r *SelectionReconciler) ApplyRecommendation(rec *domain.Recommendation) {
	r.mu.Lock()
	snap := r.applyRecommendationLocked(rec)
	r.mu.Unlock()

	r.publish(snap)
}

func (r *SelectionReconciler) applyRecommendationLocked(rec *domain.Recommendation) SelectionSnapshot {
	if rec == nil {
		r.recommendation = nil
		return r.commitLocked(r.selection)
	}

	stored := *rec
	r.recommendation = &stored
	r.lastRecommendation = &stored

	next := []domain.ProductOption{}
	for _, option := range r.options {
		if rec.RecommendedProductID != "" && domain.SameProduct(option.Value, rec.RecommendedProductID) {
			next = append(next, option)
			break
		}
	}
	if len(next) == 0 {
		r.logger.Warn().
			Str("recommended_product_id", rec.RecommendedProductID).
			Err(domain.ErrSelectionMismatch).
			Msg("clearing selection")
	}
	return r.commitLocked(next)
}

// SubmitQuery clears the current recommendation, stores query and asks the
// recommendation client asynchronously. Only the response to the latest query
// is applied; an earlier in-flight request is cancelled. The returned channel
// closes once this request has resolved or been discarded.
func (r *SelectionReconciler) SubmitQuery(ctx context.Context, query string) <-chan struct{} {
	done := make(chan struct{})
	query = strings.TrimSpace(query)
	if query == "" {
		close(done)
		return done
	}

	reqCtx, cancel := context.WithTimeout(ctx, r.timeout)

	r.mu.Lock()
	if r.cancelInFlight != nil {
		r.cancelInFlight()
	}
	r.generation++
	gen := r.generation
	r.cancelInFlight = cancel
	r.inFlight = true
	r.query = query
	r.recommendation = nil
	snap := r.commitLocked(r.selection)
	r.mu.Unlock()

	r.publish(snap)

	go func() {
		defer close(done)
		defer cancel()

		var (
			rec *domain.Recommendation
			err error
		)
		if r.client == nil {
			err = domain.ErrRecommendationUnavailable
		} else {
			rec, err = r.client.Recommend(reqCtx, query, r.catalog)
		}
		r.resolve(gen, rec, err)
	}()

	return done
}

// resolve applies the outcome of request gen if it is still the latest one
func (r *SelectionReconciler) resolve(gen uint64, rec *domain.Recommendation, err error) {
	r.mu.Lock()
	if gen != r.generation {
		r.mu.Unlock()
		r.logger.Debug().Uint64("generation", gen).Msg("discarding stale recommendation response")
		return
	}
	r.inFlight = false
	r.cancelInFlight = nil

	var snap SelectionSnapshot
	if err != nil || rec == nil {
		if err == nil {
			err = domain.ErrRecommendationParse
		}
		r.logger.Error().Err(err).Str("query", r.query).Msg("recommendation failed; keeping previous state")
		r.recommendation = r.lastRecommendation
		snap = r.commitLocked(r.selection)
	} else {
		snap = r.applyRecommendationLocked(rec)
	}
	r.mu.Unlock()

	r.publish(snap)
}

// Close cancels any in-flight recommendation request
func (r *SelectionReconciler) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancelInFlight != nil {
		r.cancelInFlight()
		r.cancelInFlight = nil
	}
}

func (r *SelectionReconciler) findOption(productID string) (domain.ProductOption, bool) {
	for _, option := range r.options {
		if option.Value == productID {
			return option, true
		}
	}
	for _, option := range r.options {
		if domain.SameProduct(option.Value, productID) {
			return option, true
		}
	}
	return domain.ProductOption{}, false
}

// commitLocked installs next as the selection and returns the new snapshot.
// next must not be shared with a previous snapshot.
func (r *SelectionReconciler) commitLocked(next []domain.ProductOption) SelectionSnapshot {
	r.selection = append([]domain.ProductOption(nil), next...)
	r.version++
	return r.snapshotLocked()
}

func (r *SelectionReconciler) snapshotLocked() SelectionSnapshot {
	snap := SelectionSnapshot{
		Version: r.version,
		Options: append([]domain.ProductOption(nil), r.selection...),
		Query:   r.query,
		Loading: r.loadingLocked(),
	}
	if r.recommendation != nil {
		rec := *r.recommendation
		snap.Recommendation = &rec
	}
	return snap
}

func (r *SelectionReconciler) publish(snap SelectionSnapshot) {
	r.mu.Lock()
	subscribers := slices.Clone(r.subscribers)
	r.mu.Unlock()

	for _, fn := range subscribers {
		fn(snap)
	}
}
