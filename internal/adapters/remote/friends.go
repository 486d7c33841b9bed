package remote

import (
	"context"
	"fmt"
	"net/url"

	"github.com/feltworks/rangesync/internal/application/ports"
	"github.com/feltworks/rangesync/internal/domain/errors"
)

// FriendAdapter answers friendship checks against the remote store.
// The friend graph is owned by the account service; the sync core only
// reads the edge.
type FriendAdapter struct {
	client *Client
}

// NewFriendAdapter creates the friend adapter.
func NewFriendAdapter(client *Client) *FriendAdapter {
	return &FriendAdapter{client: client}
}

// IsFriend reports whether an edge exists between the two users. A
// missing edge is a negative answer, not an error.
func (a *FriendAdapter) IsFriend(ctx context.Context, userID, otherID string) (bool, error) {
	path := fmt.Sprintf("/users/%s/friends/%s",
		url.PathEscape(userID), url.PathEscape(otherID))

	var out struct {
		Friends bool `json:"friends"`
	}
	if err := a.client.getJSON(ctx, path, &out); err != nil {
		if errors.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return out.Friends, nil
}

var _ ports.FriendChecker = (*FriendAdapter)(nil)
