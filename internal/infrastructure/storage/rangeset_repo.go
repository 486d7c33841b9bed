package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/feltworks/rangesync/internal/application/ports"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/ranges"
)

// Compile-time check that RangeSetRepository implements RangeSetStore.
var _ ports.RangeSetStore = (*RangeSetRepository)(nil)

// RangeSetRepository implements the RangeSetStore port using SQLite.
// Range sets are normalized before persisting: unselected entries and
// empty ranges never reach disk.
type RangeSetRepository struct {
	db *sql.DB
}

// NewRangeSetRepository creates a new range set repository.
func NewRangeSetRepository(db *sql.DB) *RangeSetRepository {
	return &RangeSetRepository{db: db}
}

// Put inserts or replaces a player's range set, stored sparsely.
func (r *RangeSetRepository) Put(ctx context.Context, playerID string, set ranges.RangeSet) error {
	if playerID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "player ID is required", nil)
	}

	data, err := json.Marshal(set.Normalized())
	if err != nil {
		return fmt.Errorf("failed to marshal range set: %w", err)
	}

	query := `
		INSERT INTO range_sets (player_id, data)
		VALUES (?, ?)
		ON CONFLICT(player_id) DO UPDATE SET data = excluded.data
	`
	if _, err := r.db.ExecContext(ctx, query, playerID, string(data)); err != nil {
		return fmt.Errorf("failed to put range set: %w", err)
	}

	return nil
}

// Get retrieves a player's range set. A player with no stored ranges
// yields an empty set, not an error.
func (r *RangeSetRepository) Get(ctx context.Context, playerID string) (ranges.RangeSet, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM range_sets WHERE player_id = ?`, playerID).Scan(&data)
	if err == sql.ErrNoRows {
		return ranges.RangeSet{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get range set: %w", err)
	}

	var set ranges.RangeSet
	if err := json.Unmarshal([]byte(data), &set); err != nil {
		return nil, fmt.Errorf("failed to unmarshal range set: %w", err)
	}
	if set == nil {
		set = ranges.RangeSet{}
	}

	return set, nil
}

// Delete removes a player's range set. Deleting an absent set is not
// an error; cascade deletes go through the players table anyway.
func (r *RangeSetRepository) Delete(ctx context.Context, playerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM range_sets WHERE player_id = ?`, playerID); err != nil {
		return fmt.Errorf("failed to delete range set: %w", err)
	}
	return nil
}
