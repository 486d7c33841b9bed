package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/feltworks/rangesync/internal/application/ports"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/link"
	"github.com/feltworks/rangesync/internal/domain/outbox"
	"github.com/feltworks/rangesync/internal/domain/player"
	"github.com/feltworks/rangesync/internal/domain/ranges"
	"github.com/feltworks/rangesync/internal/domain/session"
	"github.com/feltworks/rangesync/internal/infrastructure/logging"
	"github.com/feltworks/rangesync/internal/infrastructure/tracing"
)

// Status is the synchronizer's single-flight state flag.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusSyncing Status = "syncing"
	StatusError   Status = "error"
	StatusOffline Status = "offline"
)

// Remotes bundles the per-entity remote adapters the synchronizer
// dispatches to.
type Remotes struct {
	Players  ports.PlayerRemote
	Ranges   ports.RangeRemote
	Sessions ports.SessionRemote
	Links    ports.LinkRemote
	Shares   ports.ShareRemote
}

// Synchronizer drains the outbox to the remote store (push) and folds
// remote snapshots into the local store (pull). It owns error
// classification for push failures and the single-flight guard.
type Synchronizer struct {
	outbox   ports.OutboxStore
	players  ports.PlayerStore
	ranges   ports.RangeSetStore
	sessions ports.SessionStore
	remotes  Remotes
	probe    ports.Connectivity
	identity ports.Identity
	cache    ports.RangeCache
	logger   *logging.Logger
	tracer   *tracing.Tracer

	running atomic.Bool

	mu         sync.RWMutex
	status     Status
	lastErr    error
	lastSyncAt time.Time
}

// NewSynchronizer creates a synchronizer over the given stores and
// remote adapters. The cache may be nil; pulled players are then not
// invalidated anywhere.
func NewSynchronizer(
	ob ports.OutboxStore,
	players ports.PlayerStore,
	rangeSets ports.RangeSetStore,
	sessions ports.SessionStore,
	remotes Remotes,
	probe ports.Connectivity,
	identity ports.Identity,
	cache ports.RangeCache,
	logger *logging.Logger,
	tracer *tracing.Tracer,
) *Synchronizer {
	if logger == nil {
		logger = logging.Default()
	}
	if tracer == nil {
		tracer = tracing.Default()
	}
	return &Synchronizer{
		outbox:   ob,
		players:  players,
		ranges:   rangeSets,
		sessions: sessions,
		remotes:  remotes,
		probe:    probe,
		identity: identity,
		cache:    cache,
		logger:   logger,
		tracer:   tracer,
		status:   StatusIdle,
	}
}

// Status returns the current synchronizer status.
func (s *Synchronizer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// LastError returns the error recorded by the most recent failed pass.
func (s *Synchronizer) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// LastSyncAt returns when a pass last completed cleanly.
func (s *Synchronizer) LastSyncAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastSyncAt
}

func (s *Synchronizer) setStatus(st Status, err error) {
	s.mu.Lock()
	s.status = st
	s.lastErr = err
	if st == StatusIdle {
		s.lastSyncAt = time.Now().UTC()
	}
	s.mu.Unlock()
}

// PushPending drains the outbox FIFO to the remote store. It is a
// no-op when a pass is already running, when no user is signed in, or
// when connectivity is unavailable. Per-item failures never abort the
// pass: a not-found response purges every entry for that target and
// skips it for the rest of the pass, any other failure retains the
// entry for the next pass.
func (s *Synchronizer) PushPending(ctx context.Context) error {
	user, ok := s.identity.CurrentUser()
	if !ok {
		s.logger.DebugContext(ctx, "push skipped, no signed-in user")
		return nil
	}
	if !s.running.CompareAndSwap(false, true) {
		return nil
	}
	defer s.running.Store(false)

	ctx = logging.WithUserID(ctx, user.ID)
	s.setStatus(StatusSyncing, nil)

	if !s.probe.Online(ctx) {
		s.setStatus(StatusOffline, nil)
		s.logger.DebugContext(ctx, "push skipped, offline")
		return nil
	}

	items, err := s.outbox.List(ctx)
	if err != nil {
		s.setStatus(StatusError, err)
		return fmt.Errorf("failed to list outbox: %w", err)
	}
	if len(items) == 0 {
		s.setStatus(StatusIdle, nil)
		return nil
	}

	start := time.Now()
	logging.LogPushStart(ctx, s.logger, len(items))
	ctx, span := s.tracer.StartPushSpan(ctx, len(items))

	resolved := make(map[string]bool)
	var pushed, purged, retained int
	var lastTransient error

	for _, item := range items {
		key := string(item.Collection) + "/" + item.TargetID
		if resolved[key] {
			continue
		}

		err := s.dispatch(ctx, user.ID, item)
		switch {
		case err == nil:
			if rmErr := s.outbox.Remove(ctx, item.ID); rmErr != nil {
				s.logger.WarnContext(ctx, "failed to remove confirmed outbox entry",
					"item_id", item.ID, "error", rmErr.Error())
			}
			pushed++

		case domainErrors.IsNotFound(err):
			// The remote record no longer exists. Later ops on the
			// same target are moot, drop them all without remote calls.
			if rmErr := s.outbox.RemoveByTarget(ctx, item.Collection, item.TargetID); rmErr != nil {
				s.setStatus(StatusError, rmErr)
				span.EndWithError(rmErr)
				return fmt.Errorf("failed to purge outbox target: %w", rmErr)
			}
			resolved[key] = true
			purged++
			logging.LogTargetPurged(ctx, s.logger, string(item.Collection), item.TargetID)

		default:
			retained++
			lastTransient = err
			logging.LogItemRetained(ctx, s.logger, string(item.Collection), item.TargetID, err)
			if !s.probe.Online(ctx) {
				// Connectivity dropped mid-run. Everything not yet
				// dispatched stays queued for the next pass.
				s.setStatus(StatusOffline, nil)
				span.SetResults(pushed, purged, retained)
				span.End()
				logging.LogPushComplete(ctx, s.logger, pushed, purged, retained, time.Since(start))
				return nil
			}
		}
	}

	span.SetResults(pushed, purged, retained)
	span.End()
	logging.LogPushComplete(ctx, s.logger, pushed, purged, retained, time.Since(start))

	if retained > 0 {
		s.setStatus(StatusError, lastTransient)
	} else {
		s.setStatus(StatusIdle, nil)
	}
	return nil
}

// dispatch sends one pending item to the matching remote adapter.
// Session payloads are stripped of transient table state before they
// go remote, for creates and updates alike.
func (s *Synchronizer) dispatch(ctx context.Context, userID string, item *outbox.PendingItem) error {
	switch item.Collection {
	case outbox.CollectionPlayers:
		if item.Operation == outbox.OperationDelete {
			return s.remotes.Players.Delete(ctx, userID, item.TargetID)
		}
		var p player.Player
		if err := json.Unmarshal(item.Data, &p); err != nil {
			return domainErrors.NewError(domainErrors.CodeValidation, "malformed player payload", err)
		}
		if item.Operation == outbox.OperationCreate {
			return s.remotes.Players.Create(ctx, userID, &p)
		}
		return s.remotes.Players.Update(ctx, userID, &p)

	case outbox.CollectionRanges:
		if item.Operation == outbox.OperationDelete {
			return s.remotes.Ranges.Delete(ctx, userID, item.TargetID)
		}
		var set ranges.RangeSet
		if err := json.Unmarshal(item.Data, &set); err != nil {
			return domainErrors.NewError(domainErrors.CodeValidation, "malformed range set payload", err)
		}
		return s.remotes.Ranges.Put(ctx, userID, item.TargetID, set)

	case outbox.CollectionSessions:
		if item.Operation == outbox.OperationDelete {
			return s.remotes.Sessions.Delete(ctx, userID, item.TargetID)
		}
		var sess session.Session
		if err := json.Unmarshal(item.Data, &sess); err != nil {
			return domainErrors.NewError(domainErrors.CodeValidation, "malformed session payload", err)
		}
		stripped := sess.StripTransient()
		if item.Operation == outbox.OperationCreate {
			return s.remotes.Sessions.Create(ctx, userID, stripped)
		}
		return s.remotes.Sessions.Update(ctx, userID, stripped)

	case outbox.CollectionLinks:
		if item.Operation == outbox.OperationDelete {
			return s.remotes.Links.Delete(ctx, item.TargetID)
		}
		var l link.PlayerLink
		if err := json.Unmarshal(item.Data, &l); err != nil {
			return domainErrors.NewError(domainErrors.CodeValidation, "malformed link payload", err)
		}
		if item.Operation == outbox.OperationCreate {
			return s.remotes.Links.Create(ctx, &l)
		}
		return s.remotes.Links.Update(ctx, &l)

	case outbox.CollectionShares:
		if item.Operation == outbox.OperationDelete {
			return s.remotes.Shares.Delete(ctx, item.TargetID)
		}
		var sh link.RangeShare
		if err := json.Unmarshal(item.Data, &sh); err != nil {
			return domainErrors.NewError(domainErrors.CodeValidation, "malformed share payload", err)
		}
		return s.remotes.Shares.Upsert(ctx, &sh)
	}
	return domainErrors.NewError(domainErrors.CodeValidation,
		fmt.Sprintf("unknown outbox collection: %s", item.Collection), nil)
}

// PullFromCloud fetches the remote snapshot for each entity type and
// folds it into the local store, skipping any id with a pending outbox
// entry so a stale pull never reverts a not-yet-pushed local change.
func (s *Synchronizer) PullFromCloud(ctx context.Context) error {
	user, ok := s.identity.CurrentUser()
	if !ok {
		s.logger.DebugContext(ctx, "pull skipped, no signed-in user")
		return nil
	}
	if !s.probe.Online(ctx) {
		s.logger.DebugContext(ctx, "pull skipped, offline")
		return nil
	}

	ctx = logging.WithUserID(ctx, user.ID)

	pending, err := s.outbox.PendingTargets(ctx)
	if err != nil {
		return fmt.Errorf("failed to read pending targets: %w", err)
	}

	start := time.Now()
	ctx, span := s.tracer.StartPullSpan(ctx)

	var playersMerged, sessionsMerged, skipped int

	remotePlayers, err := s.remotes.Players.List(ctx, user.ID)
	if err != nil {
		span.EndWithError(err)
		return fmt.Errorf("failed to list remote players: %w", err)
	}
	for _, rp := range remotePlayers {
		if pending[string(outbox.CollectionPlayers)+"/"+rp.ID] {
			skipped++
			continue
		}
		local, err := s.players.Get(ctx, rp.ID)
		if err != nil && !domainErrors.IsNotFound(err) {
			span.EndWithError(err)
			return fmt.Errorf("failed to read local player: %w", err)
		}

		if err := s.players.Put(ctx, rp); err != nil {
			span.EndWithError(err)
			return fmt.Errorf("failed to store pulled player: %w", err)
		}
		if s.cache != nil {
			s.cache.Invalidate(rp.ID)
		}
		playersMerged++

		// Range sets are fetched only when the remote version is
		// ahead of the local copy, a remote read costs money.
		if local != nil && rp.RangeVersion <= local.RangeVersion {
			continue
		}
		if pending[string(outbox.CollectionRanges)+"/"+rp.ID] {
			skipped++
			continue
		}
		set, _, err := s.remotes.Ranges.Get(ctx, user.ID, rp.ID)
		if err != nil {
			if domainErrors.IsNotFound(err) {
				continue
			}
			logging.LogItemRetained(ctx, s.logger, string(outbox.CollectionRanges), rp.ID, err)
			continue
		}
		if err := s.ranges.Put(ctx, rp.ID, set); err != nil {
			span.EndWithError(err)
			return fmt.Errorf("failed to store pulled range set: %w", err)
		}
	}

	remoteSessions, err := s.remotes.Sessions.List(ctx, user.ID)
	if err != nil {
		span.EndWithError(err)
		return fmt.Errorf("failed to list remote sessions: %w", err)
	}
	for _, rs := range remoteSessions {
		if pending[string(outbox.CollectionSessions)+"/"+rs.ID] {
			skipped++
			continue
		}
		local, err := s.sessions.Get(ctx, rs.ID)
		if err != nil && !domainErrors.IsNotFound(err) {
			span.EndWithError(err)
			return fmt.Errorf("failed to read local session: %w", err)
		}
		merged := MergeSession(local, rs)
		if merged == local {
			continue
		}
		if err := s.sessions.Put(ctx, merged); err != nil {
			span.EndWithError(err)
			return fmt.Errorf("failed to store pulled session: %w", err)
		}
		sessionsMerged++
	}

	span.SetCounts(playersMerged, sessionsMerged, skipped)
	span.End()
	logging.LogPullComplete(ctx, s.logger, playersMerged, sessionsMerged, skipped, time.Since(start))

	s.mu.Lock()
	s.lastSyncAt = time.Now().UTC()
	s.mu.Unlock()
	return nil
}

// MergeSession resolves one local/remote session pair. The remote copy
// wins on conflict with one exception: a locally finished session is
// never resurrected by a remote copy that still shows it active.
// Transient table state stays on the local copy when the session
// remains active, it never round-trips through the remote.
func MergeSession(local, remote *session.Session) *session.Session {
	if local == nil {
		return remote.Clone()
	}
	if !local.IsActive && remote.IsActive {
		return local
	}
	merged := remote.Clone()
	if merged.IsActive && local.Table != nil {
		merged.Table = local.Table
	}
	return merged
}

// FullSync pushes pending local intent first, then pulls remote state,
// in that order so the pull cannot see pre-push remote snapshots as
// authoritative over unflushed local edits.
func (s *Synchronizer) FullSync(ctx context.Context) error {
	if err := s.PushPending(ctx); err != nil {
		return err
	}
	return s.PullFromCloud(ctx)
}
