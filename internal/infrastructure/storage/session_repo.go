package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/feltworks/rangesync/internal/application/ports"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/session"
)

// Compile-time check that SessionRepository implements SessionStore.
var _ ports.SessionStore = (*SessionRepository)(nil)

// SessionRepository implements the SessionStore port using SQLite.
// Transient table state is persisted locally (it survives restarts)
// but is stripped upstream before any remote write.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new session repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Put inserts or replaces a session.
func (r *SessionRepository) Put(ctx context.Context, s *session.Session) error {
	if s.ID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "session ID is required", nil)
	}

	var tableJSON sql.NullString
	if s.Table != nil {
		data, err := json.Marshal(s.Table)
		if err != nil {
			return fmt.Errorf("failed to marshal table state: %w", err)
		}
		tableJSON = sql.NullString{String: string(data), Valid: true}
	}

	var endedAt sql.NullString
	if s.EndedAt != nil {
		endedAt = sql.NullString{String: s.EndedAt.Format(time.RFC3339Nano), Valid: true}
	}

	query := `
		INSERT INTO sessions (id, venue, stakes, game_type, is_active, started_at, ended_at, table_state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			venue = excluded.venue,
			stakes = excluded.stakes,
			game_type = excluded.game_type,
			is_active = excluded.is_active,
			started_at = excluded.started_at,
			ended_at = excluded.ended_at,
			table_state = excluded.table_state,
			updated_at = excluded.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		nullableString(s.Venue),
		nullableString(s.Stakes),
		nullableString(s.GameType),
		boolToInt(s.IsActive),
		s.StartedAt.Format(time.RFC3339Nano),
		endedAt,
		tableJSON,
		s.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to put session: %w", err)
	}

	return nil
}

// Get retrieves a session by id.
func (r *SessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	query := `
		SELECT id, venue, stakes, game_type, is_active, started_at, ended_at, table_state, updated_at
		FROM sessions
		WHERE id = ?
	`

	s, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("session not found: %s", id), domainErrors.ErrSessionNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return s, nil
}

// GetAll retrieves all sessions, most recent first.
func (r *SessionRepository) GetAll(ctx context.Context) ([]*session.Session, error) {
	query := `
		SELECT id, venue, stakes, game_type, is_active, started_at, ended_at, table_state, updated_at
		FROM sessions
		ORDER BY started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*session.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if rows == 0 {
		return domainErrors.NewError(domainErrors.CodeNotFound, fmt.Sprintf("session not found: %s", id), domainErrors.ErrSessionNotFound)
	}

	return nil
}

// scanSession scans one row into a session entity.
func scanSession(row rowScanner) (*session.Session, error) {
	var (
		id                      string
		venue, stakes, gameType sql.NullString
		isActive                int
		startedAt               string
		endedAt, tableJSON      sql.NullString
		updatedAt               string
	)

	err := row.Scan(&id, &venue, &stakes, &gameType, &isActive, &startedAt, &endedAt, &tableJSON, &updatedAt)
	if err != nil {
		return nil, err
	}

	s := &session.Session{
		ID:       id,
		IsActive: isActive != 0,
	}
	if venue.Valid {
		s.Venue = venue.String
	}
	if stakes.Valid {
		s.Stakes = stakes.String
	}
	if gameType.Valid {
		s.GameType = gameType.String
	}

	s.StartedAt, err = parseTimestamp(startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse started_at: %w", err)
	}
	s.UpdatedAt, err = parseTimestamp(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	if endedAt.Valid {
		t, err := parseTimestamp(endedAt.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse ended_at: %w", err)
		}
		s.EndedAt = &t
	}

	if tableJSON.Valid && tableJSON.String != "" && tableJSON.String != "null" {
		var tbl session.TableState
		if err := json.Unmarshal([]byte(tableJSON.String), &tbl); err != nil {
			return nil, fmt.Errorf("failed to unmarshal table state: %w", err)
		}
		s.Table = &tbl
	}

	return s, nil
}
