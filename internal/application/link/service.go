// Package link implements the player-link protocol: pairwise link
// lifecycle, the versioned update check, the fill-empty-only range
// merge, and one-shot range shares.
//
// Link lifecycle mutations are synchronous against the remote store
// rather than outbox-queued: every transition validates against the
// link's current remote state, so failing loudly beats queueing a
// mutation that may no longer be legal by the time it is pushed.
package link

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/feltworks/rangesync/internal/application/ports"
	playerapp "github.com/feltworks/rangesync/internal/application/player"
	appsync "github.com/feltworks/rangesync/internal/application/sync"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/link"
	"github.com/feltworks/rangesync/internal/infrastructure/logging"
	"github.com/feltworks/rangesync/internal/infrastructure/tracing"
)

// DefaultMaxLinks is the default per-user cap on total links. The cap
// is global per user, not per player.
const DefaultMaxLinks = 10

// CheckCache caches per-link update-check results with a TTL. It is
// invalidated on successful sync of a link, link removal, and full
// refresh.
type CheckCache interface {
	Get(linkID string) (CheckResult, bool)
	Put(linkID string, res CheckResult)
	Invalidate(linkID string)
	Reset()
}

// Deps bundles the service's collaborators.
type Deps struct {
	Links        ports.LinkRemote
	PlayerRemote ports.PlayerRemote
	RangeRemote  ports.RangeRemote
	Shares       ports.ShareRemote
	Players      *playerapp.Service
	RangeSets    ports.RangeSetStore
	Outbox       *appsync.Outbox
	Identity     ports.Identity
	Friends      ports.FriendChecker
	Limiter      ports.RateLimiter
	Checks       CheckCache
	MaxLinks     int
	Logger       *logging.Logger
	Tracer       *tracing.Tracer
}

// Service implements the link protocol.
type Service struct {
	deps     Deps
	maxLinks int
	logger   *logging.Logger
	tracer   *tracing.Tracer
}

// NewService creates the link service.
func NewService(deps Deps) *Service {
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	if deps.Tracer == nil {
		deps.Tracer = tracing.Default()
	}
	maxLinks := deps.MaxLinks
	if maxLinks <= 0 {
		maxLinks = DefaultMaxLinks
	}
	return &Service{
		deps:     deps,
		maxLinks: maxLinks,
		logger:   deps.Logger,
		tracer:   deps.Tracer,
	}
}

// requireRemote rejects link and share operations on a local-only
// install. Without a configured remote base URL the container wires no
// remote adapters, so these operations must fail with a configuration
// error before any of them is reached.
func (s *Service) requireRemote() error {
	if s.deps.Links == nil || s.deps.PlayerRemote == nil || s.deps.RangeRemote == nil ||
		s.deps.Shares == nil || s.deps.Friends == nil {
		return domainErrors.NewError(domainErrors.CodeConfiguration,
			"link and share operations require a configured sync server", domainErrors.ErrNoRemote)
	}
	return nil
}

func (s *Service) currentUser() (ports.User, error) {
	user, ok := s.deps.Identity.CurrentUser()
	if !ok {
		return ports.User{}, domainErrors.NewError(domainErrors.CodeValidation, "link operations require a signed-in user", domainErrors.ErrNotSignedIn)
	}
	return user, nil
}

// Create requests a link from the current user's player to a friend.
// The recipient picks their own player when accepting.
func (s *Service) Create(ctx context.Context, initiatorPlayerID, recipientUserID string) (*link.PlayerLink, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	ctx = logging.WithUserID(ctx, user.ID)

	if err := s.deps.Limiter.CheckRateLimit(ctx, user.ID, ports.ActionLinkCreate); err != nil {
		return nil, err
	}
	ok, err := s.deps.Friends.IsFriend(ctx, user.ID, recipientUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if !ok {
		return nil, domainErrors.NewError(domainErrors.CodeValidation, "links require friendship", domainErrors.ErrNotFriends)
	}
	if _, err := s.deps.Players.Get(ctx, initiatorPlayerID); err != nil {
		return nil, err
	}

	existing, err := s.deps.Links.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	if len(existing) >= s.maxLinks {
		return nil, domainErrors.NewError(domainErrors.CodeConflict,
			fmt.Sprintf("link cap of %d reached", s.maxLinks), domainErrors.ErrLinkLimit)
	}
	for _, l := range existing {
		if !l.Involves(recipientUserID) {
			continue
		}
		if l.InitiatorPlayerID == initiatorPlayerID || l.RecipientPlayerID == initiatorPlayerID {
			return nil, domainErrors.NewError(domainErrors.CodeConflict, "a link already exists for this player pair", domainErrors.ErrLinkExists)
		}
	}

	l := link.NewPending(uuid.NewString(), user.ID, initiatorPlayerID, recipientUserID)
	if err := s.deps.Links.Create(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to create link: %w", err)
	}
	s.logger.InfoContext(ctx, "link requested",
		"link_id", l.ID, "recipient", recipientUserID)
	return l, nil
}

// Accept activates a pending link, recording the recipient's chosen
// player. Recipient-only; the recipient's own cap is re-checked here
// because their link count may have filled up since the request.
func (s *Service) Accept(ctx context.Context, linkID, recipientPlayerID string) (*link.PlayerLink, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	ctx = logging.WithUserID(logging.WithLinkID(ctx, linkID), user.ID)

	if err := s.deps.Limiter.CheckRateLimit(ctx, user.ID, ports.ActionLinkAccept); err != nil {
		return nil, err
	}
	l, err := s.deps.Links.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if _, err := s.deps.Players.Get(ctx, recipientPlayerID); err != nil {
		return nil, err
	}

	mine, err := s.deps.Links.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	others := 0
	for _, m := range mine {
		if m.ID != l.ID {
			others++
		}
	}
	if others >= s.maxLinks {
		return nil, domainErrors.NewError(domainErrors.CodeConflict,
			fmt.Sprintf("link cap of %d reached", s.maxLinks), domainErrors.ErrLinkLimit)
	}

	if err := l.Accept(user.ID, recipientPlayerID); err != nil {
		return nil, err
	}
	if err := s.deps.Links.Update(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to update link: %w", err)
	}
	s.logger.InfoContext(ctx, "link accepted")
	return l, nil
}

// Decline rejects a pending link. Recipient-only; the record is
// deleted, not tombstoned.
func (s *Service) Decline(ctx context.Context, linkID string) error {
	if err := s.requireRemote(); err != nil {
		return err
	}
	user, err := s.currentUser()
	if err != nil {
		return err
	}
	ctx = logging.WithUserID(logging.WithLinkID(ctx, linkID), user.ID)

	if err := s.deps.Limiter.CheckRateLimit(ctx, user.ID, ports.ActionLinkDecline); err != nil {
		return err
	}
	l, err := s.deps.Links.GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	if err := l.CanDecline(user.ID); err != nil {
		return err
	}
	if err := s.deps.Links.Delete(ctx, linkID); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	s.logger.InfoContext(ctx, "link declined")
	return nil
}

// Cancel withdraws a still-pending link. Initiator-only.
func (s *Service) Cancel(ctx context.Context, linkID string) error {
	if err := s.requireRemote(); err != nil {
		return err
	}
	user, err := s.currentUser()
	if err != nil {
		return err
	}
	ctx = logging.WithUserID(logging.WithLinkID(ctx, linkID), user.ID)

	l, err := s.deps.Links.GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	if err := l.CanCancel(user.ID); err != nil {
		return err
	}
	if err := s.deps.Links.Delete(ctx, linkID); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	s.logger.InfoContext(ctx, "link cancelled")
	return nil
}

// Remove tears down an active link. Either party may remove; cached
// version-check data for the link is invalidated.
func (s *Service) Remove(ctx context.Context, linkID string) error {
	if err := s.requireRemote(); err != nil {
		return err
	}
	user, err := s.currentUser()
	if err != nil {
		return err
	}
	ctx = logging.WithUserID(logging.WithLinkID(ctx, linkID), user.ID)

	if err := s.deps.Limiter.CheckRateLimit(ctx, user.ID, ports.ActionLinkRemove); err != nil {
		return err
	}
	l, err := s.deps.Links.GetByID(ctx, linkID)
	if err != nil {
		return err
	}
	if err := l.CanRemove(user.ID); err != nil {
		return err
	}
	if err := s.deps.Links.Delete(ctx, linkID); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if s.deps.Checks != nil {
		s.deps.Checks.Invalidate(linkID)
	}
	s.logger.InfoContext(ctx, "link removed")
	return nil
}

// ListForUser returns every link the current user is a party to.
func (s *Service) ListForUser(ctx context.Context) ([]*link.PlayerLink, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	return s.deps.Links.ListForUser(ctx, user.ID)
}
