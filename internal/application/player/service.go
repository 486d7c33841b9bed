// Package player implements the application service for tracked
// players: local persistence, the read-through cache, and outbox
// enqueueing for remote durability.
package player

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/feltworks/rangesync/internal/application/ports"
	appsync "github.com/feltworks/rangesync/internal/application/sync"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/outbox"
	"github.com/feltworks/rangesync/internal/domain/player"
	"github.com/feltworks/rangesync/internal/domain/ranges"
	"github.com/feltworks/rangesync/internal/infrastructure/logging"
)

// Service coordinates player reads and writes. Every mutation goes
// through the local store first and enqueues the matching remote
// mutation; the synchronizer pushes it later.
type Service struct {
	store    ports.PlayerStore
	ranges   ports.RangeSetStore
	outbox   *appsync.Outbox
	cache    ports.RangeCache
	identity ports.Identity
	logger   *logging.Logger
}

// NewService creates the player service. The cache may be nil.
func NewService(
	store ports.PlayerStore,
	rangeSets ports.RangeSetStore,
	ob *appsync.Outbox,
	cache ports.RangeCache,
	identity ports.Identity,
	logger *logging.Logger,
) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		ranges:   rangeSets,
		outbox:   ob,
		cache:    cache,
		identity: identity,
		logger:   logger,
	}
}

// Get returns one player, cache first. On a cache miss the store copy
// is loaded, its range set attached, and the cache populated.
func (s *Service) Get(ctx context.Context, id string) (*player.Player, error) {
	if s.cache != nil {
		if p := s.cache.Get(id); p != nil {
			return p, nil
		}
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	set, err := s.ranges.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load range set: %w", err)
	}
	p.Ranges = set
	if s.cache != nil {
		s.cache.Set(p)
	}
	return p, nil
}

// List returns all players without their range sets attached.
func (s *Service) List(ctx context.Context) ([]*player.Player, error) {
	return s.store.GetAll(ctx)
}

// Create makes a new player owned by the current user and queues the
// remote create. A guest-created player has an empty CreatedBy.
func (s *Service) Create(ctx context.Context, name string) (*player.Player, error) {
	if name == "" {
		return nil, domainErrors.NewError(domainErrors.CodeValidation, "player name is required", nil)
	}
	var createdBy string
	if user, ok := s.identity.CurrentUser(); ok {
		createdBy = user.ID
	}
	p := player.New(uuid.NewString(), name, createdBy)
	if err := s.store.Put(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to store player: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(p)
	}
	if err := s.outbox.Enqueue(ctx, outbox.CollectionPlayers, outbox.OperationCreate, p.ID, p); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "player created", "player_id", p.ID)
	return p, nil
}

// SaveMetadata persists metadata-only edits. The range version is not
// bumped; it tracks range content only.
func (s *Service) SaveMetadata(ctx context.Context, p *player.Player) error {
	p.Touch()
	if err := s.store.Put(ctx, p); err != nil {
		return fmt.Errorf("failed to store player: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(p)
	}
	return s.outbox.Enqueue(ctx, outbox.CollectionPlayers, outbox.OperationUpdate, p.ID, p)
}

// SetRange replaces one range under its composite key, bumps the
// player's range version, and queues both the range-set and the player
// update.
func (s *Service) SetRange(ctx context.Context, playerID, key string, r ranges.Range) error {
	if _, _, err := ranges.SplitKey(key); err != nil {
		return domainErrors.NewError(domainErrors.CodeValidation, "invalid range key", err)
	}
	p, err := s.store.Get(ctx, playerID)
	if err != nil {
		return err
	}
	set, err := s.ranges.Get(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to load range set: %w", err)
	}
	p.Ranges = set
	p.SetRange(key, r)
	return s.writeRanges(ctx, p)
}

// ApplyRangeImport folds externally sourced ranges into the player's
// set as one edit: one version bump, one queued range-set update. Used
// by the link merge and by share acceptance.
func (s *Service) ApplyRangeImport(ctx context.Context, playerID string, imported ranges.RangeSet) error {
	if len(imported) == 0 {
		return nil
	}
	p, err := s.store.Get(ctx, playerID)
	if err != nil {
		return err
	}
	set, err := s.ranges.Get(ctx, playerID)
	if err != nil {
		return fmt.Errorf("failed to load range set: %w", err)
	}
	if set == nil {
		set = make(ranges.RangeSet)
	}
	for key, r := range imported.Normalized() {
		set[key] = r
	}
	p.Ranges = set
	p.BumpRangeVersion()
	return s.writeRanges(ctx, p)
}

// writeRanges persists the player's current in-memory range set and
// metadata, then queues both remote updates.
func (s *Service) writeRanges(ctx context.Context, p *player.Player) error {
	if err := s.ranges.Put(ctx, p.ID, p.Ranges); err != nil {
		return fmt.Errorf("failed to store range set: %w", err)
	}
	if err := s.store.Put(ctx, p); err != nil {
		return fmt.Errorf("failed to store player: %w", err)
	}
	if s.cache != nil {
		s.cache.Set(p)
	}
	if err := s.outbox.Enqueue(ctx, outbox.CollectionRanges, outbox.OperationUpdate, p.ID, p.Ranges.Normalized()); err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, outbox.CollectionPlayers, outbox.OperationUpdate, p.ID, p)
}

// AddNote appends a dated note entry.
func (s *Service) AddNote(ctx context.Context, playerID, text string) error {
	p, err := s.store.Get(ctx, playerID)
	if err != nil {
		return err
	}
	p.AddNoteEntry(text)
	return s.SaveMetadata(ctx, p)
}

// AddLocation records a venue the player has been seen at.
func (s *Service) AddLocation(ctx context.Context, playerID, location string) error {
	p, err := s.store.Get(ctx, playerID)
	if err != nil {
		return err
	}
	p.AddLocation(location)
	return s.SaveMetadata(ctx, p)
}

// Delete removes the player locally (cascading its range set) and
// queues the remote deletes.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(id)
	}
	if err := s.outbox.Enqueue(ctx, outbox.CollectionRanges, outbox.OperationDelete, id, nil); err != nil {
		return err
	}
	if err := s.outbox.Enqueue(ctx, outbox.CollectionPlayers, outbox.OperationDelete, id, nil); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "player deleted", "player_id", id)
	return nil
}
