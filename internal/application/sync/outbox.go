// Package sync implements the outbox-based synchronizer: the pending
// mutation queue, the push/pull passes against the remote store, and
// the background runner that drains the queue periodically.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/feltworks/rangesync/internal/application/ports"
	"github.com/feltworks/rangesync/internal/domain/outbox"
	"github.com/feltworks/rangesync/internal/infrastructure/logging"
)

// Outbox is the application service in front of the durable pending
// queue. It owns the coalescing rule: rapid consecutive updates to the
// same target fold into one entry instead of growing the queue.
type Outbox struct {
	store  ports.OutboxStore
	logger *logging.Logger
}

// NewOutbox creates the outbox service.
func NewOutbox(store ports.OutboxStore, logger *logging.Logger) *Outbox {
	if logger == nil {
		logger = logging.Default()
	}
	return &Outbox{store: store, logger: logger}
}

// Enqueue records an intended remote mutation. An update whose latest
// queued entry for the same target is a create or update replaces that
// entry's payload in place, keeping its queue position. A delete always
// appends a fresh terminal entry.
func (o *Outbox) Enqueue(ctx context.Context, c outbox.Collection, op outbox.Operation, targetID string, payload any) error {
	var data json.RawMessage
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal outbox payload: %w", err)
		}
		data = raw
	}

	if op == outbox.OperationUpdate {
		latest, err := o.store.LatestForTarget(ctx, c, targetID)
		if err != nil {
			return fmt.Errorf("failed to check outbox for target: %w", err)
		}
		if latest != nil && latest.Coalesces(op) {
			latest.Data = data
			latest.Timestamp = time.Now().UTC()
			if err := o.store.ReplacePayload(ctx, latest); err != nil {
				return fmt.Errorf("failed to coalesce outbox entry: %w", err)
			}
			o.logger.DebugContext(ctx, "outbox entry coalesced",
				"collection", string(c),
				"target_id", targetID,
			)
			return nil
		}
	}

	item := &outbox.PendingItem{
		ID:         uuid.NewString(),
		Collection: c,
		Operation:  op,
		TargetID:   targetID,
		Data:       data,
		Timestamp:  time.Now().UTC(),
	}
	if err := o.store.Append(ctx, item); err != nil {
		return fmt.Errorf("failed to append outbox entry: %w", err)
	}
	o.logger.DebugContext(ctx, "outbox entry appended",
		"collection", string(c),
		"operation", string(op),
		"target_id", targetID,
	)
	return nil
}

// List returns pending items in insertion order.
func (o *Outbox) List(ctx context.Context) ([]*outbox.PendingItem, error) {
	return o.store.List(ctx)
}

// Remove removes one pending item by id.
func (o *Outbox) Remove(ctx context.Context, id string) error {
	return o.store.Remove(ctx, id)
}

// RemoveByTarget removes every pending item referencing the target.
func (o *Outbox) RemoveByTarget(ctx context.Context, c outbox.Collection, targetID string) error {
	return o.store.RemoveByTarget(ctx, c, targetID)
}

// PendingTargets returns the set of "collection/targetId" keys with
// at least one queued entry.
func (o *Outbox) PendingTargets(ctx context.Context) (map[string]bool, error) {
	return o.store.PendingTargets(ctx)
}
