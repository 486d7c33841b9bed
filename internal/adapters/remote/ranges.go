package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/feltworks/rangesync/internal/application/ports"
	"github.com/feltworks/rangesync/internal/domain/ranges"
)

// RangeAdapter is the remote adapter for per-player range sets, stored
// at /users/{uid}/players/{pid}/ranges.
type RangeAdapter struct {
	client *Client
}

// NewRangeAdapter creates the range adapter.
func NewRangeAdapter(client *Client) *RangeAdapter {
	return &RangeAdapter{client: client}
}

func rangePath(userID, playerID string) string {
	return fmt.Sprintf("/users/%s/players/%s/ranges",
		url.PathEscape(userID), url.PathEscape(playerID))
}

// rangeDocument is the wire shape of a stored range set. The version
// is the owning player's range version observed at read time.
type rangeDocument struct {
	Ranges       ranges.RangeSet `json:"ranges"`
	RangeVersion int64           `json:"rangeVersion"`
}

// Put replaces the stored range set.
func (a *RangeAdapter) Put(ctx context.Context, userID, playerID string, set ranges.RangeSet) error {
	doc := rangeDocument{Ranges: set.Normalized()}
	return a.client.sendJSON(ctx, http.MethodPut, rangePath(userID, playerID), doc)
}

// Get fetches the range set and the range version observed with it.
func (a *RangeAdapter) Get(ctx context.Context, userID, playerID string) (ranges.RangeSet, int64, error) {
	var doc rangeDocument
	if err := a.client.getJSON(ctx, rangePath(userID, playerID), &doc); err != nil {
		return nil, 0, err
	}
	return doc.Ranges, doc.RangeVersion, nil
}

// Delete removes the stored range set.
func (a *RangeAdapter) Delete(ctx context.Context, userID, playerID string) error {
	return a.client.delete(ctx, rangePath(userID, playerID))
}

var _ ports.RangeRemote = (*RangeAdapter)(nil)
