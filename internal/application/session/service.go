// Package session implements the application service for live and
// finished sessions. Active sessions are local-only: finishing a
// session is what makes it eligible for remote durability.
package session

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/feltworks/rangesync/internal/application/ports"
	appsync "github.com/feltworks/rangesync/internal/application/sync"
	domainErrors "github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/outbox"
	"github.com/feltworks/rangesync/internal/domain/session"
	"github.com/feltworks/rangesync/internal/infrastructure/logging"
)

// Service coordinates session reads and writes.
type Service struct {
	store  ports.SessionStore
	outbox *appsync.Outbox
	logger *logging.Logger
}

// NewService creates the session service.
func NewService(store ports.SessionStore, ob *appsync.Outbox, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{store: store, outbox: ob, logger: logger}
}

// Get returns one session.
func (s *Service) Get(ctx context.Context, id string) (*session.Session, error) {
	return s.store.Get(ctx, id)
}

// List returns all sessions, most recently started first.
func (s *Service) List(ctx context.Context) ([]*session.Session, error) {
	sessions, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].StartedAt.After(sessions[j].StartedAt)
	})
	return sessions, nil
}

// Start begins a new active session. Active sessions are never
// enqueued; in-progress churn stays local.
func (s *Service) Start(ctx context.Context, venue, stakes string) (*session.Session, error) {
	if venue == "" {
		return nil, domainErrors.NewError(domainErrors.CodeValidation, "venue is required", nil)
	}
	sess := session.New(uuid.NewString(), venue, stakes)
	if err := s.store.Put(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	s.logger.InfoContext(ctx, "session started", "session_id", sess.ID, "venue", venue)
	return sess, nil
}

// Save persists the session locally and, only when the session is
// finished, queues the remote update.
func (s *Service) Save(ctx context.Context, sess *session.Session) error {
	if err := s.store.Put(ctx, sess); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	if sess.IsActive {
		return nil
	}
	return s.outbox.Enqueue(ctx, outbox.CollectionSessions, outbox.OperationUpdate, sess.ID, sess)
}

// Finish ends an active session and queues its first remote write.
func (s *Service) Finish(ctx context.Context, id string) (*session.Session, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	sess.Finish()
	if err := s.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "session finished", "session_id", id)
	return sess, nil
}

// Delete removes the session locally and queues the remote delete.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	return s.outbox.Enqueue(ctx, outbox.CollectionSessions, outbox.OperationDelete, id, nil)
}

// MergeLists folds a remote session list into a local one, applying
// the per-session merge policy: a remote copy wins on conflict unless
// the local copy is already finished and the remote still shows it
// active. Locally unknown remote sessions are appended.
func MergeLists(local, remote []*session.Session) []*session.Session {
	byID := make(map[string]*session.Session, len(local))
	order := make([]string, 0, len(local))
	for _, l := range local {
		byID[l.ID] = l
		order = append(order, l.ID)
	}
	for _, r := range remote {
		if l, ok := byID[r.ID]; ok {
			byID[r.ID] = appsync.MergeSession(l, r)
			continue
		}
		byID[r.ID] = r.Clone()
		order = append(order, r.ID)
	}
	out := make([]*session.Session, 0, len(order))
	for _, id := range order {
		out = append(out, byID[id])
	}
	return out
}
