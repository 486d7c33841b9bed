package link

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feltworks/rangesync/internal/application/ports"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/link"
	"github.com/feltworks/rangesync/internal/domain/outbox"
)

// SendShare snapshots one of the current user's players and queues it
// for delivery to a friend. A new share for the same recipient and
// player name replaces the prior one on the remote, so re-sending is
// always safe.
func (s *Service) SendShare(ctx context.Context, toUserID, playerID string) (*link.RangeShare, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	if err := s.deps.Limiter.CheckRateLimit(ctx, user.ID, ports.ActionShareSend); err != nil {
		return nil, err
	}
	ok, err := s.deps.Friends.IsFriend(ctx, user.ID, toUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if !ok {
		return nil, domainErrors.NewError(domainErrors.CodeValidation, "shares require friendship", domainErrors.ErrNotFriends)
	}

	p, err := s.deps.Players.Get(ctx, playerID)
	if err != nil {
		return nil, err
	}

	share := &link.RangeShare{
		ID:           uuid.NewString(),
		FromUserID:   user.ID,
		ToUserID:     toUserID,
		PlayerName:   p.Name,
		Ranges:       p.Ranges.Normalized(),
		RangeVersion: p.RangeVersion,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.deps.Outbox.Enqueue(ctx, outbox.CollectionShares, outbox.OperationCreate, share.ID, share); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "range share queued",
		"share_id", share.ID, "to", toUserID, "player_name", p.Name)
	return share, nil
}

// ListIncomingShares returns shares addressed to the current user.
func (s *Service) ListIncomingShares(ctx context.Context) ([]*link.RangeShare, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	return s.deps.Shares.ListForRecipient(ctx, user.ID)
}

// AcceptShare imports a received share into one of the current user's
// players using the default fill-empty-only rule, then queues the
// share's deletion. Keys the target player already has content for are
// left untouched.
func (s *Service) AcceptShare(ctx context.Context, shareID, targetPlayerID string) (*MergeResult, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	share, err := s.findIncomingShare(ctx, user.ID, shareID)
	if err != nil {
		return nil, err
	}
	localSet, err := s.deps.RangeSets.Get(ctx, targetPlayerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load local ranges: %w", err)
	}

	imported, result := mergeFillEmpty(localSet, share.Ranges, nil, false)
	result.NewVersion = share.RangeVersion
	if result.Added > 0 {
		if err := s.deps.Players.ApplyRangeImport(ctx, targetPlayerID, imported); err != nil {
			return nil, err
		}
	}
	if err := s.deps.Outbox.Enqueue(ctx, outbox.CollectionShares, outbox.OperationDelete, share.ID, nil); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "range share accepted",
		"share_id", shareID, "added", result.Added, "skipped", result.Skipped)
	return result, nil
}

// DismissShare deletes a received share without importing it.
func (s *Service) DismissShare(ctx context.Context, shareID string) error {
	if err := s.requireRemote(); err != nil {
		return err
	}
	user, err := s.currentUser()
	if err != nil {
		return err
	}
	if _, err := s.findIncomingShare(ctx, user.ID, shareID); err != nil {
		return err
	}
	return s.deps.Outbox.Enqueue(ctx, outbox.CollectionShares, outbox.OperationDelete, shareID, nil)
}

func (s *Service) findIncomingShare(ctx context.Context, userID, shareID string) (*link.RangeShare, error) {
	shares, err := s.deps.Shares.ListForRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list shares: %w", err)
	}
	for _, sh := range shares {
		if sh.ID == shareID {
			return sh, nil
		}
	}
	return nil, domainErrors.NewError(domainErrors.CodeNotFound,
		fmt.Sprintf("share not found: %s", shareID), domainErrors.ErrShareNotFound)
}
