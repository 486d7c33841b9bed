// Package ports defines the boundary interfaces between the sync core
// and its collaborators: durable local storage, the remote document
// store, connectivity, identity, and rate limiting.
package ports

import (
	"context"

	"github.com/feltworks/rangesync/internal/domain/outbox"
	"github.com/feltworks/rangesync/internal/domain/player"
	"github.com/feltworks/rangesync/internal/domain/ranges"
	"github.com/feltworks/rangesync/internal/domain/session"
)

// PlayerStore is the durable local store for players.
type PlayerStore interface {
	Get(ctx context.Context, id string) (*player.Player, error)
	GetAll(ctx context.Context) ([]*player.Player, error)
	Put(ctx context.Context, p *player.Player) error
	Delete(ctx context.Context, id string) error
}

// RangeSetStore is the durable local store for per-player range sets.
// Implementations must persist sparsely: entries equal to unselected
// are stripped before they hit disk.
type RangeSetStore interface {
	Get(ctx context.Context, playerID string) (ranges.RangeSet, error)
	Put(ctx context.Context, playerID string, set ranges.RangeSet) error
	Delete(ctx context.Context, playerID string) error
}

// SessionStore is the durable local store for sessions.
type SessionStore interface {
	Get(ctx context.Context, id string) (*session.Session, error)
	GetAll(ctx context.Context) ([]*session.Session, error)
	Put(ctx context.Context, s *session.Session) error
	Delete(ctx context.Context, id string) error
}

// OutboxStore is the durable pending-sync log. List returns items in
// insertion order. ReplacePayload coalesces an update into an existing
// entry in place, keeping its queue position.
type OutboxStore interface {
	Append(ctx context.Context, item *outbox.PendingItem) error
	ReplacePayload(ctx context.Context, item *outbox.PendingItem) error
	List(ctx context.Context) ([]*outbox.PendingItem, error)
	LatestForTarget(ctx context.Context, c outbox.Collection, targetID string) (*outbox.PendingItem, error)
	Remove(ctx context.Context, id string) error
	RemoveByTarget(ctx context.Context, c outbox.Collection, targetID string) error
	PendingTargets(ctx context.Context) (map[string]bool, error)
}
