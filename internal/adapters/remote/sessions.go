package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/feltworks/rangesync/internal/application/ports"
	"github.com/feltworks/rangesync/internal/domain/session"
)

// SessionAdapter is the remote adapter for finished sessions, stored
// under /users/{uid}/sessions/{id}.
type SessionAdapter struct {
	client *Client
}

// NewSessionAdapter creates the session adapter.
func NewSessionAdapter(client *Client) *SessionAdapter {
	return &SessionAdapter{client: client}
}

func sessionPath(userID, id string) string {
	base := fmt.Sprintf("/users/%s/sessions", url.PathEscape(userID))
	if id == "" {
		return base
	}
	return base + "/" + url.PathEscape(id)
}

// Create stores a new session document.
func (a *SessionAdapter) Create(ctx context.Context, userID string, s *session.Session) error {
	return a.client.sendJSON(ctx, http.MethodPost, sessionPath(userID, ""), s)
}

// Update replaces the session document.
func (a *SessionAdapter) Update(ctx context.Context, userID string, s *session.Session) error {
	return a.client.sendJSON(ctx, http.MethodPut, sessionPath(userID, s.ID), s)
}

// Delete removes the session document.
func (a *SessionAdapter) Delete(ctx context.Context, userID, id string) error {
	return a.client.delete(ctx, sessionPath(userID, id))
}

// List fetches all of the user's sessions.
func (a *SessionAdapter) List(ctx context.Context, userID string) ([]*session.Session, error) {
	var out []*session.Session
	if err := a.client.getJSON(ctx, sessionPath(userID, ""), &out); err != nil {
		return nil, err
	}
	return out, nil
}

var _ ports.SessionRemote = (*SessionAdapter)(nil)
