package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/prodcompare/backend/internal/domain"
)

// ComparisonRepository stores comparison events in a SQL database
type ComparisonRepository struct {
	db      DB
	dialect Dialect
}

// NewComparisonRepository creates a new comparison event repository
func NewComparisonRepository(db DB, dialect Dialect) *ComparisonRepository {
	return &ComparisonRepository{db: db, dialect: dialect}
}

// Save inserts an event. A missing ID or timestamp is filled in.
func (r *ComparisonRepository) Save(ctx context.Context, event *domain.ComparisonEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	compared := event.ComparedProducts
	if compared == nil {
		compared = []string{}
	}
	encoded, err := json.Marshal(compared)
	if err != nil {
		return fmt.Errorf("encode compared products: %w", err)
	}

	query := r.dialect.Rebind(`
		INSERT INTO comparison_events
			(id, collection_id, original_product_id, original_short_id, compared_products, session_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	_, err = r.db.ExecContext(ctx, query,
		event.ID, event.CollectionID, event.OriginalProductID, domain.ShortID(event.OriginalProductID),
		string(encoded), event.SessionID, r.dialect.BindTime(event.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert comparison event: %w", err)
	}
	return nil
}

// ListByProduct returns the events whose origin is productID, oldest first
func (r *ComparisonRepository) ListByProduct(ctx context.Context, productID string) ([]domain.ComparisonEvent, error) {
	query := r.dialect.Rebind(`
		SELECT id, collection_id, original_product_id, compared_products, session_id, created_at
		FROM comparison_events
		WHERE original_short_id = ?
		ORDER BY created_at, id
	`)
	rows, err := r.db.QueryContext(ctx, query, domain.ShortID(productID))
	if err != nil {
		return nil, fmt.Errorf("query comparison events: %w", err)
	}
	defer rows.Close()

	var events []domain.ComparisonEvent
	for rows.Next() {
		var (
			event    domain.ComparisonEvent
			compared string
			created  timeValue
		)
		if err := rows.Scan(
			&event.ID, &event.CollectionID, &event.OriginalProductID,
			&compared, &event.SessionID, &created,
		); err != nil {
			return nil, fmt.Errorf("scan comparison event: %w", err)
		}
		if err := json.Unmarshal([]byte(compared), &event.ComparedProducts); err != nil {
			return nil, fmt.Errorf("decode compared products of %s: %w", event.ID, err)
		}
		event.CreatedAt = created.Time
		events = append(events, event)
	}
	return events, rows.Err()
}
