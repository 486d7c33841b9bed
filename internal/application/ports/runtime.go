package ports

import (
	"context"

	"github.com/feltworks/rangesync/internal/domain/player"
)

// Connectivity probes network reachability. Implementations may cache
// the result; callers treat the answer as advisory.
type Connectivity interface {
	Online(ctx context.Context) bool
}

// User identifies the signed-in user.
type User struct {
	ID          string
	DisplayName string
}

// Identity supplies the current user. The second return is false when
// nobody is signed in; the core degrades to guest behavior (local-only
// edits, no links or shares).
type Identity interface {
	CurrentUser() (User, bool)
}

// RateLimitAction names a gated operation.
type RateLimitAction string

const (
	ActionLinkCreate  RateLimitAction = "link.create"
	ActionLinkAccept  RateLimitAction = "link.accept"
	ActionLinkDecline RateLimitAction = "link.decline"
	ActionLinkRemove  RateLimitAction = "link.remove"
	ActionLinkSync    RateLimitAction = "link.sync"
	ActionShareSend   RateLimitAction = "share.send"
)

// RateLimiter gates link and share mutations. CheckRateLimit returns
// an error (wrapping errors.ErrRateLimited) when the limit is hit.
// Exact limits are policy, injected from outside the core.
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, userID string, action RateLimitAction) error
}

// FriendChecker answers whether two users are friends. The friend
// graph itself lives outside the core; links only consume this
// capability check.
type FriendChecker interface {
	IsFriend(ctx context.Context, a, b string) (bool, error)
}

// CacheSubscriber receives synchronous notification when a cached
// player changes.
type CacheSubscriber func(p *player.Player)

// RangeCache is the in-memory read-through cache in front of the
// player store. Get returns nil on a miss; Set notifies all
// subscribers synchronously.
type RangeCache interface {
	Get(id string) *player.Player
	Set(p *player.Player)
	Invalidate(id string)
	Subscribe(id string, fn CacheSubscriber) (unsubscribe func())
	Reset()
}
