package link

import (
	"context"

	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/link"
)

// CheckResult is the outcome of a versioned update check against one
// link's peer.
type CheckResult struct {
	HasUpdates   bool
	TheirVersion int64
}

// CheckForUpdates reads the peer's current range version and compares
// it against this side's last synced version. The caller is validated
// against the link record first; only the peer-player read itself is
// served from the TTL cache. The check is pull-based so no per-peer
// live subscription is ever held.
func (s *Service) CheckForUpdates(ctx context.Context, linkID string) (CheckResult, error) {
	if err := s.requireRemote(); err != nil {
		return CheckResult{}, err
	}
	user, err := s.currentUser()
	if err != nil {
		return CheckResult{}, err
	}
	l, err := s.deps.Links.GetByID(ctx, linkID)
	if err != nil {
		return CheckResult{}, err
	}
	if _, err := l.PeerUserID(user.ID); err != nil {
		return CheckResult{}, err
	}
	if s.deps.Checks != nil {
		if cached, ok := s.deps.Checks.Get(l.ID); ok {
			return cached, nil
		}
	}
	return s.fetchCheck(ctx, user.ID, l)
}

// CheckAllForUpdates runs the update check for every active link in
// one pass, seeding the cache for all of them. Per-link failures are
// collected into the result as "no updates" rather than failing the
// whole batch.
func (s *Service) CheckAllForUpdates(ctx context.Context) (map[string]CheckResult, error) {
	if err := s.requireRemote(); err != nil {
		return nil, err
	}
	user, err := s.currentUser()
	if err != nil {
		return nil, err
	}
	links, err := s.deps.Links.ListForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]CheckResult, len(links))
	for _, l := range links {
		if l.Status != link.StatusActive {
			continue
		}
		res, err := s.fetchCheck(ctx, user.ID, l)
		if err != nil {
			s.logger.WarnContext(ctx, "update check failed",
				"link_id", l.ID, "error", err.Error())
			continue
		}
		out[l.ID] = res
	}
	return out, nil
}

// fetchCheck always hits the remote and refreshes the cache entry.
func (s *Service) fetchCheck(ctx context.Context, userID string, l *link.PlayerLink) (CheckResult, error) {
	if l.Status != link.StatusActive {
		return CheckResult{}, domainErrors.ErrLinkNotActive
	}
	peerUser, err := l.PeerUserID(userID)
	if err != nil {
		return CheckResult{}, err
	}
	peerPlayer, err := l.PeerPlayerIDFor(userID)
	if err != nil {
		return CheckResult{}, err
	}

	peer, err := s.deps.PlayerRemote.GetByID(ctx, peerUser, peerPlayer)
	if err != nil {
		return CheckResult{}, err
	}
	mine, err := l.LastSyncedVersion(userID)
	if err != nil {
		return CheckResult{}, err
	}

	res := CheckResult{
		HasUpdates:   peer.RangeVersion > mine,
		TheirVersion: peer.RangeVersion,
	}
	if s.deps.Checks != nil {
		s.deps.Checks.Put(l.ID, res)
	}
	return res, nil
}
