package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/feltworks/rangesync/internal/application/ports"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/outbox"
)

// Compile-time check that OutboxRepository implements OutboxStore.
var _ ports.OutboxStore = (*OutboxRepository)(nil)

// OutboxRepository implements the durable pending-sync log using
// SQLite. The autoincrement seq column preserves insertion order.
type OutboxRepository struct {
	db *sql.DB
}

// NewOutboxRepository creates a new outbox repository.
func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Append adds an item to the end of the log and fills in its Seq.
func (r *OutboxRepository) Append(ctx context.Context, item *outbox.PendingItem) error {
	if item.ID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "outbox item ID is required", nil)
	}
	if item.TargetID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "outbox target ID is required", nil)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO outbox (id, collection, operation, target_id, data, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		item.ID,
		string(item.Collection),
		string(item.Operation),
		item.TargetID,
		rawToNullable(item.Data),
		item.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append outbox item: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read outbox seq: %w", err)
	}
	item.Seq = seq

	return nil
}

// ReplacePayload overwrites an existing item's payload and timestamp
// in place, preserving its queue position.
func (r *OutboxRepository) ReplacePayload(ctx context.Context, item *outbox.PendingItem) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE outbox SET data = ?, timestamp = ? WHERE id = ?
	`, rawToNullable(item.Data), item.Timestamp.Format(time.RFC3339Nano), item.ID)
	if err != nil {
		return fmt.Errorf("failed to replace outbox payload: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check replace result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("outbox item not found: %s", item.ID), nil)
	}

	return nil
}

// List returns all items in insertion order.
func (r *OutboxRepository) List(ctx context.Context) ([]*outbox.PendingItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT seq, id, collection, operation, target_id, data, timestamp
		FROM outbox
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var items []*outbox.PendingItem
	for rows.Next() {
		item, err := scanOutboxItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating outbox: %w", err)
	}

	return items, nil
}

// LatestForTarget returns the most recently queued item for a target,
// or nil when none is queued.
func (r *OutboxRepository) LatestForTarget(ctx context.Context, c outbox.Collection, targetID string) (*outbox.PendingItem, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT seq, id, collection, operation, target_id, data, timestamp
		FROM outbox
		WHERE collection = ? AND target_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, string(c), targetID)

	item, err := scanOutboxItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return item, nil
}

// Remove deletes one item by id.
func (r *OutboxRepository) Remove(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove outbox item: %w", err)
	}
	return nil
}

// RemoveByTarget deletes every item referencing the given target.
func (r *OutboxRepository) RemoveByTarget(ctx context.Context, c outbox.Collection, targetID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM outbox WHERE collection = ? AND target_id = ?`, string(c), targetID); err != nil {
		return fmt.Errorf("failed to remove outbox items for target: %w", err)
	}
	return nil
}

// PendingTargets returns the set of "collection/targetId" keys that
// currently have queued items. The pull pass uses this to protect
// local intent from stale remote snapshots.
func (r *OutboxRepository) PendingTargets(ctx context.Context) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT collection, target_id FROM outbox`)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending targets: %w", err)
	}
	defer rows.Close()

	targets := make(map[string]bool)
	for rows.Next() {
		var collection, targetID string
		if err := rows.Scan(&collection, &targetID); err != nil {
			return nil, fmt.Errorf("failed to scan pending target: %w", err)
		}
		targets[collection+"/"+targetID] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pending targets: %w", err)
	}

	return targets, nil
}

// scanOutboxItem scans one row into a pending item.
func scanOutboxItem(row rowScanner) (*outbox.PendingItem, error) {
	var (
		seq                               int64
		id, collection, operation, target string
		data                              sql.NullString
		timestamp                         string
	)

	err := row.Scan(&seq, &id, &collection, &operation, &target, &data, &timestamp)
	if err != nil {
		return nil, err
	}

	item := &outbox.PendingItem{
		Seq:        seq,
		ID:         id,
		Collection: outbox.Collection(collection),
		Operation:  outbox.Operation(operation),
		TargetID:   target,
	}
	if data.Valid {
		item.Data = json.RawMessage(data.String)
	}

	item.Timestamp, err = parseTimestamp(timestamp)
	if err != nil {
		return nil, fmt.Errorf("failed to parse outbox timestamp: %w", err)
	}

	return item, nil
}

// rawToNullable converts a raw JSON payload to a nullable column value.
func rawToNullable(data json.RawMessage) sql.NullString {
	if len(data) == 0 {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: string(data), Valid: true}
}
