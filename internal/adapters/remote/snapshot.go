package remote

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/feltworks/rangesync/internal/application/ports"
)

// PollingSnapshotSource delivers badge-count updates by polling the
// remote store. The observer interface is transport-agnostic; polling
// is just the simplest transport. Range data never flows through here,
// it stays pull-only.
type PollingSnapshotSource struct {
	client   *Client
	interval time.Duration
}

// NewPollingSnapshotSource creates a source polling at the given
// interval. A non-positive interval falls back to 30 seconds.
func NewPollingSnapshotSource(client *Client, interval time.Duration) *PollingSnapshotSource {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &PollingSnapshotSource{client: client, interval: interval}
}

// Subscribe starts polling the badge count for the user. An update is
// delivered on the channel whenever the count changes, starting with
// the initial value. The returned cancel func stops polling and closes
// the channel.
func (s *PollingSnapshotSource) Subscribe(ctx context.Context, userID string, kind ports.BadgeKind) (<-chan ports.BadgeUpdate, func(), error) {
	initial, err := s.fetchCount(ctx, userID, kind)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	ch := make(chan ports.BadgeUpdate, 1)
	ch <- ports.BadgeUpdate{Kind: kind, Count: initial}

	go func() {
		defer close(ch)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		last := initial
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count, err := s.fetchCount(ctx, userID, kind)
				if err != nil {
					continue
				}
				if count == last {
					continue
				}
				last = count
				select {
				case ch <- ports.BadgeUpdate{Kind: kind, Count: count}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch, cancel, nil
}

func (s *PollingSnapshotSource) fetchCount(ctx context.Context, userID string, kind ports.BadgeKind) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	path := fmt.Sprintf("/users/%s/badges?kind=%s",
		url.PathEscape(userID), url.QueryEscape(string(kind)))
	if err := s.client.getJSON(ctx, path, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

var _ ports.SnapshotSource = (*PollingSnapshotSource)(nil)
