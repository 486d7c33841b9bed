package link

import (
	"context"
	"fmt"
	"sort"

	"github.com/feltworks/rangesync/internal/application/ports"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/link"
	"github.com/feltworks/rangesync/internal/domain/ranges"
	"github.com/feltworks/rangesync/internal/infrastructure/logging"
)

// MergeResult describes the outcome of a link range merge.
type MergeResult struct {
	Added            int
	Skipped          int
	NewVersion       int64
	RangeKeysAdded   []string
	RangeKeysSkipped []string
}

// Sync performs the default fill-empty-only merge: peer range keys the
// local side has no content for are imported, everything else is
// skipped. The user's own observations are never overwritten.
func (s *Service) Sync(ctx context.Context, linkID string) (*MergeResult, error) {
	return s.syncLink(ctx, linkID, nil, false)
}

// SyncSelected merges only the named keys. Selected keys may overwrite
// existing local content; callers are expected to have confirmed the
// replacement with the user first.
func (s *Service) SyncSelected(ctx context.Context, linkID string, keys []string) (*MergeResult, error) {
	if len(keys) == 0 {
		return nil, domainErrors.NewError(domainErrors.CodeValidation, "selective sync requires at least one key", nil)
	}
	return s.syncLink(ctx, linkID, keys, true)
}

func (s *Service) syncLink(ctx context.Context, linkID string, keys []string, selective bool) (*MergeResult, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	ctx = logging.WithUserID(logging.WithLinkID(ctx, linkID), user.ID)

	if err := s.deps.Limiter.CheckRateLimit(ctx, user.ID, ports.ActionLinkSync); err != nil {
		return nil, err
	}
	l, err := s.deps.Links.GetByID(ctx, linkID)
	if err != nil {
		return nil, err
	}
	if l.Status != link.StatusActive {
		return nil, domainErrors.ErrLinkNotActive
	}
	myPlayer, err := l.PlayerIDFor(user.ID)
	if err != nil {
		return nil, err
	}
	peerUser, err := l.PeerUserID(user.ID)
	if err != nil {
		return nil, err
	}
	peerPlayer, err := l.PeerPlayerIDFor(user.ID)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.StartLinkSyncSpan(ctx, linkID, selective)

	peerSet, peerVersion, err := s.deps.RangeRemote.Get(ctx, peerUser, peerPlayer)
	if err != nil {
		if !domainErrors.IsNotFound(err) {
			span.EndWithError(err)
			return nil, fmt.Errorf("failed to fetch peer ranges: %w", err)
		}
		// Peer has no stored ranges yet; the merge still runs so the
		// synced version advances and the updates signal clears.
		peerSet = ranges.RangeSet{}
		peerVersion = 0
	}
	localSet, err := s.deps.RangeSets.Get(ctx, myPlayer)
	if err != nil {
		span.EndWithError(err)
		return nil, fmt.Errorf("failed to load local ranges: %w", err)
	}

	imported, result := mergeFillEmpty(localSet, peerSet, keys, selective)
	result.NewVersion = peerVersion

	// The local store write (and the outbox enqueue it triggers) only
	// happens when something was actually imported.
	if result.Added > 0 {
		if err := s.deps.Players.ApplyRangeImport(ctx, myPlayer, imported); err != nil {
			span.EndWithError(err)
			return nil, err
		}
	}

	// The synced version advances even on a zero-added outcome: the
	// user has seen everything available, so the updates signal must
	// not re-fire for it.
	if err := l.SetLastSyncedVersion(user.ID, peerVersion); err != nil {
		span.EndWithError(err)
		return nil, err
	}
	if err := s.deps.Links.Update(ctx, l); err != nil {
		span.EndWithError(err)
		return nil, fmt.Errorf("failed to record synced version: %w", err)
	}
	if s.deps.Checks != nil {
		s.deps.Checks.Invalidate(linkID)
	}

	span.SetMergeResult(result.Added, result.Skipped, result.NewVersion)
	span.End()
	logging.LogLinkSync(ctx, s.logger, linkID, result.Added, result.Skipped, result.NewVersion)
	return result, nil
}

// MarkReviewed advances this side's synced version to the peer's
// current version without importing anything. Used when the user has
// reviewed an "up to date" or "nothing to import" view and the updates
// indicator should not re-fire for content they chose not to take.
func (s *Service) MarkReviewed(ctx context.Context, linkID string) error {
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
	res, err := s.fetchCheck(ctx, user.ID, l)
	if err != nil {
		return err
	}
	if err := l.SetLastSyncedVersion(user.ID, res.TheirVersion); err != nil {
		return err
	}
	if err := s.deps.Links.Update(ctx, l); err != nil {
		return fmt.Errorf("failed to record synced version: %w", err)
	}
	if s.deps.Checks != nil {
		s.deps.Checks.Invalidate(linkID)
	}
	return nil
}

// mergeFillEmpty computes the importable subset of the peer's range
// set. A key is importable when the local side has no effective
// content for it, or when the caller selected it explicitly
// (allowOverwrite). Keys the peer has no content for are skipped.
func mergeFillEmpty(local, peer ranges.RangeSet, keys []string, allowOverwrite bool) (ranges.RangeSet, *MergeResult) {
	if keys == nil {
		keys = peer.Keys()
	}
	imported := make(ranges.RangeSet)
	result := &MergeResult{
		RangeKeysAdded:   []string{},
		RangeKeysSkipped: []string{},
	}
	for _, key := range keys {
		peerRange := peer.Get(key).Normalized()
		if len(peerRange) == 0 {
			result.Skipped++
			result.RangeKeysSkipped = append(result.RangeKeysSkipped, key)
			continue
		}
		if !local.Get(key).IsEmpty() && !allowOverwrite {
			result.Skipped++
			result.RangeKeysSkipped = append(result.RangeKeysSkipped, key)
			continue
		}
		imported[key] = peerRange
		result.Added++
		result.RangeKeysAdded = append(result.RangeKeysAdded, key)
	}
	sort.Strings(result.RangeKeysAdded)
	sort.Strings(result.RangeKeysSkipped)
	return imported, result
}
