package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/feltworks/rangesync/internal/application/ports"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/player"
)

// Compile-time check that PlayerRepository implements PlayerStore.
var _ ports.PlayerStore = (*PlayerRepository)(nil)

// PlayerRepository implements the PlayerStore port using SQLite.
// Range sets are stored separately by RangeSetRepository; the Ranges
// field on the entity is not persisted here.
type PlayerRepository struct {
	db *sql.DB
}

// NewPlayerRepository creates a new player repository.
func NewPlayerRepository(db *sql.DB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Put inserts or replaces a player.
func (r *PlayerRepository) Put(ctx context.Context, p *player.Player) error {
	if p.ID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "player ID is required", nil)
	}
	if p.Name == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "player name is required", nil)
	}

	noteEntriesJSON, err := json.Marshal(p.NoteEntries)
	if err != nil {
		return fmt.Errorf("failed to marshal note entries: %w", err)
	}
	locationsJSON, err := json.Marshal(p.Locations)
	if err != nil {
		return fmt.Errorf("failed to marshal locations: %w", err)
	}

	query := `
		INSERT INTO players (id, name, color, notes, note_entries, locations, range_version, is_shared, created_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			notes = excluded.notes,
			note_entries = excluded.note_entries,
			locations = excluded.locations,
			range_version = excluded.range_version,
			is_shared = excluded.is_shared,
			created_by = excluded.created_by,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.Name,
		nullableString(p.Color),
		nullableString(p.Notes),
		string(noteEntriesJSON),
		string(locationsJSON),
		p.RangeVersion,
		boolToInt(p.IsShared),
		nullableString(p.CreatedBy),
		p.CreatedAt.Format(time.RFC3339Nano),
		p.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to put player: %w", err)
	}

	return nil
}

// Get retrieves a player by id.
func (r *PlayerRepository) Get(ctx context.Context, id string) (*player.Player, error) {
	query := `
		SELECT id, name, color, notes, note_entries, locations, range_version, is_shared, created_by, created_at, updated_at
		FROM players
		WHERE id = ?
	`

	p, err := scanPlayer(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("player not found: %s", id), domainErrors.ErrPlayerNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return p, nil
}

// GetAll retrieves all players ordered by name.
func (r *PlayerRepository) GetAll(ctx context.Context) ([]*player.Player, error) {
	query := `
		SELECT id, name, color, notes, note_entries, locations, range_version, is_shared, created_by, created_at, updated_at
		FROM players
		ORDER BY name COLLATE NOCASE
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	var players []*player.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}

// Delete removes a player. The range_sets row cascades.
func (r *PlayerRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM players WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete player: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("player not found: %s", id), domainErrors.ErrPlayerNotFound)
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanPlayer scans one row into a player entity.
func scanPlayer(row rowScanner) (*player.Player, error) {
	var (
		id, name                      string
		color, notes, createdBy       sql.NullString
		noteEntriesJSON, locationsJSON sql.NullString
		rangeVersion                  int64
		isShared                      int
		createdAt, updatedAt          string
	)

	err := row.Scan(&id, &name, &color, &notes, &noteEntriesJSON, &locationsJSON,
		&rangeVersion, &isShared, &createdBy, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	p := &player.Player{
		ID:           id,
		Name:         name,
		RangeVersion: rangeVersion,
		IsShared:     isShared != 0,
	}
	if color.Valid {
		p.Color = color.String
	}
	if notes.Valid {
		p.Notes = notes.String
	}
	if createdBy.Valid {
		p.CreatedBy = createdBy.String
	}

	if noteEntriesJSON.Valid && noteEntriesJSON.String != "" && noteEntriesJSON.String != "null" {
		if err := json.Unmarshal([]byte(noteEntriesJSON.String), &p.NoteEntries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal note entries: %w", err)
		}
	}
	if locationsJSON.Valid && locationsJSON.String != "" && locationsJSON.String != "null" {
		if err := json.Unmarshal([]byte(locationsJSON.String), &p.Locations); err != nil {
			return nil, fmt.Errorf("failed to unmarshal locations: %w", err)
		}
	}

	p.CreatedAt, err = parseTimestamp(createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	p.UpdatedAt, err = parseTimestamp(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return p, nil
}

// parseTimestamp accepts both nano and second precision RFC3339.
func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// nullableString returns a sql.NullString for the given string.
func nullableString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
