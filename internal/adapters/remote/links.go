package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/feltworks/rangesync/internal/application/ports"
	"github.com/feltworks/rangesync/internal/domain/link"
)

// LinkAdapter is the remote adapter for player links. Links are shared
// records under /links, not per-user subcollection entries; both
// parties read and mutate the same document.
type LinkAdapter struct {
	client *Client
}

// NewLinkAdapter creates the link adapter.
func NewLinkAdapter(client *Client) *LinkAdapter {
	return &LinkAdapter{client: client}
}

// Create stores a new link document.
func (a *LinkAdapter) Create(ctx context.Context, l *link.PlayerLink) error {
	return a.client.sendJSON(ctx, http.MethodPost, "/links", l)
}

// Update replaces the link document.
func (a *LinkAdapter) Update(ctx context.Context, l *link.PlayerLink) error {
	return a.client.sendJSON(ctx, http.MethodPut, "/links/"+url.PathEscape(l.ID), l)
}

// Delete removes the link document.
func (a *LinkAdapter) Delete(ctx context.Context, id string) error {
	return a.client.delete(ctx, "/links/"+url.PathEscape(id))
}

// GetByID fetches one link document.
func (a *LinkAdapter) GetByID(ctx context.Context, id string) (*link.PlayerLink, error) {
	var l link.PlayerLink
	if err := a.client.getJSON(ctx, "/links/"+url.PathEscape(id), &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// ListForUser fetches every link the user is a party to.
func (a *LinkAdapter) ListForUser(ctx context.Context, userID string) ([]*link.PlayerLink, error) {
	var out []*link.PlayerLink
	if err := a.client.getJSON(ctx, "/links?user="+url.QueryEscape(userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ ports.LinkRemote = (*LinkAdapter)(nil)

// ShareAdapter is the remote adapter for one-shot range shares, stored
// under /shares. The remote enforces the (from, to, playerName)
// replace-key on upsert.
type ShareAdapter struct {
	client *Client
}

// NewShareAdapter creates the share adapter.
func NewShareAdapter(client *Client) *ShareAdapter {
	return &ShareAdapter{client: client}
}

// Upsert stores the share, replacing any prior share with the same key.
func (a *ShareAdapter) Upsert(ctx context.Context, s *link.RangeShare) error {
	return a.client.sendJSON(ctx, http.MethodPut, "/shares/"+url.PathEscape(s.ID), s)
}

// Delete removes the share document.
func (a *ShareAdapter) Delete(ctx context.Context, id string) error {
	return a.client.delete(ctx, "/shares/"+url.PathEscape(id))
}

// ListForRecipient fetches shares addressed to the user.
func (a *ShareAdapter) ListForRecipient(ctx context.Context, userID string) ([]*link.RangeShare, error) {
	var out []*link.RangeShare
	if err := a.client.getJSON(ctx, "/shares?to="+url.QueryEscape(userID), &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ ports.ShareRemote = (*ShareAdapter)(nil)
