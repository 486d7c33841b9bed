package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/feltworks/rangesync/internal/application/ports"
	"github.com/feltworks/rangesync/internal/domain/player"
)

// PlayerAdapter is the remote adapter for players. Players live under
// per-user subcollections: /users/{uid}/players/{id}.
type PlayerAdapter struct {
	client *Client
}

// NewPlayerAdapter creates the player adapter.
func NewPlayerAdapter(client *Client) *PlayerAdapter {
	return &PlayerAdapter{client: client}
}

func playerPath(userID, id string) string {
	base := fmt.Sprintf("/users/%s/players", url.PathEscape(userID))
	if id == "" {
		return base
	}
	return base + "/" + url.PathEscape(id)
}

// Create stores a new player document.
func (a *PlayerAdapter) Create(ctx context.Context, userID string, p *player.Player) error {
	return a.client.sendJSON(ctx, http.MethodPost, playerPath(userID, ""), p)
}

// Update replaces the player document. The remote applies
// partial-field last-write-wins.
func (a *PlayerAdapter) Update(ctx context.Context, userID string, p *player.Player) error {
	return a.client.sendJSON(ctx, http.MethodPut, playerPath(userID, p.ID), p)
}

// Delete removes the player document.
func (a *PlayerAdapter) Delete(ctx context.Context, userID, id string) error {
	return a.client.delete(ctx, playerPath(userID, id))
}

// GetByID fetches one player document.
func (a *PlayerAdapter) GetByID(ctx context.Context, userID, id string) (*player.Player, error) {
	var p player.Player
	if err := a.client.getJSON(ctx, playerPath(userID, id), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List fetches all of the user's players.
func (a *PlayerAdapter) List(ctx context.Context, userID string) ([]*player.Player, error) {
	var out []*player.Player
	if err := a.client.getJSON(ctx, playerPath(userID, ""), &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ ports.PlayerRemote = (*PlayerAdapter)(nil)
