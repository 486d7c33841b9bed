package ports

import (
	"context"

	"github.com/feltworks/rangesync/internal/domain/link"
	"github.com/feltworks/rangesync/internal/domain/player"
	"github.com/feltworks/rangesync/internal/domain/ranges"
	"github.com/feltworks/rangesync/internal/domain/session"
)

// PlayerRemote is the remote document-store adapter for players.
// Entities live in per-user subcollections; all calls address one
// owning user. Update is partial-field last-write-wins on the remote.
type PlayerRemote interface {
	Create(ctx context.Context, userID string, p *player.Player) error
	Update(ctx context.Context, userID string, p *player.Player) error
	Delete(ctx context.Context, userID, id string) error
	GetByID(ctx context.Context, userID, id string) (*player.Player, error)
	List(ctx context.Context, userID string) ([]*player.Player, error)
}

// RangeRemote is the remote adapter for per-player range sets.
// Get also returns the owning player's range version observed at read
// time, which the link protocol records as the synced version.
type RangeRemote interface {
	Put(ctx context.Context, userID, playerID string, set ranges.RangeSet) error
	Get(ctx context.Context, userID, playerID string) (ranges.RangeSet, int64, error)
	Delete(ctx context.Context, userID, playerID string) error
}

// SessionRemote is the remote adapter for finished sessions.
type SessionRemote interface {
	Create(ctx context.Context, userID string, s *session.Session) error
	Update(ctx context.Context, userID string, s *session.Session) error
	Delete(ctx context.Context, userID, id string) error
	List(ctx context.Context, userID string) ([]*session.Session, error)
}

// LinkRemote is the remote adapter for player links. Links are shared
// records, not per-user subcollection entries: both parties read and
// mutate the same document.
type LinkRemote interface {
	Create(ctx context.Context, l *link.PlayerLink) error
	Update(ctx context.Context, l *link.PlayerLink) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*link.PlayerLink, error)
	ListForUser(ctx context.Context, userID string) ([]*link.PlayerLink, error)
}

// ShareRemote is the remote adapter for one-shot range shares. Upsert
// replaces any prior share with the same (from, to, playerName) key.
type ShareRemote interface {
	Upsert(ctx context.Context, s *link.RangeShare) error
	Delete(ctx context.Context, id string) error
	ListForRecipient(ctx context.Context, userID string) ([]*link.RangeShare, error)
}

// BadgeKind names a live badge-count subscription subject.
type BadgeKind string

const (
	BadgePendingLinks  BadgeKind = "pending-links"
	BadgePendingShares BadgeKind = "pending-shares"
)

// BadgeUpdate carries a badge count change to subscribers.
type BadgeUpdate struct {
	Kind  BadgeKind
	Count int
}

// SnapshotSource delivers live badge counts for pending links and
// shares. Range data never flows through subscriptions; it is
// pull-only by design. Unsubscribe via the returned cancel func.
type SnapshotSource interface {
	Subscribe(ctx context.Context, userID string, kind BadgeKind) (<-chan BadgeUpdate, func(), error)
}
