// Package outbox defines the pending-sync item model: a durable log
// entry describing a remote mutation that has not yet been confirmed.
package outbox

import (
	"encoding/json"
	"time"
)

// Collection identifies which remote collection an item targets.
type Collection string

const (
	CollectionPlayers  Collection = "players"
	CollectionRanges   Collection = "ranges"
	CollectionSessions Collection = "sessions"
	CollectionLinks    Collection = "links"
	CollectionShares   Collection = "shares"
)

// Operation is the intended remote mutation.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// PendingItem is one not-yet-confirmed remote mutation. Seq reflects
// insertion order and is assigned by the durable store.
type PendingItem struct {
	ID         string          `json:"id"`
	Seq        int64           `json:"seq"`
	Collection Collection      `json:"collection"`
	Operation  Operation       `json:"operation"`
	TargetID   string          `json:"targetId"`
	Data       json.RawMessage `json:"data,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// Coalesces reports whether a new operation against the same target
// may replace this item's payload in place instead of appending.
// Consecutive updates fold into a prior create or update; a delete is
// terminal and always appends fresh.
func (p *PendingItem) Coalesces(next Operation) bool {
	if next != OperationUpdate {
		return false
	}
	return p.Operation == OperationCreate || p.Operation == OperationUpdate
}
