// Package link defines the domain models for player links and range
// shares. A player link is a bidirectional pairing between two users'
// players for versioned range exchange; a range share is a one-shot
// snapshot sent to a single recipient.
package link

import (
	"time"

	"github.com/feltworks/rangesync/internal/domain/errors"
	"github.com/feltworks/rangesync/internal/domain/ranges"
)

// Status is the lifecycle state of a player link. Declined, cancelled
// and removed links are represented as deletion, not as statuses.
type Status string

const (
	StatusPending Status = "pending" // Created, awaiting the recipient's player selection
	StatusActive  Status = "active"  // Both sides have a designated player
)

// Role identifies which side of a link a user is on.
type Role string

const (
	RoleInitiator Role = "initiator"
	RoleRecipient Role = "recipient"
)

// PlayerLink pairs one user's player with another user's player.
// Each side tracks the last peer range version it has incorporated.
type PlayerLink struct {
	ID                string    `json:"id"`
	InitiatorUserID   string    `json:"initiatorUserId"`
	InitiatorPlayerID string    `json:"initiatorPlayerId"`
	RecipientUserID   string    `json:"recipientUserId"`
	RecipientPlayerID string    `json:"recipientPlayerId,omitempty"`
	Status            Status    `json:"status"`
	InitiatorSyncedV  int64     `json:"initiatorLastSyncedVersion"`
	RecipientSyncedV  int64     `json:"recipientLastSyncedVersion"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// NewPending creates a link request from initiator to recipient.
// Both synced-version counters start at zero.
func NewPending(id, initiatorUser, initiatorPlayer, recipientUser string) *PlayerLink {
	now := time.Now().UTC()
	return &PlayerLink{
		ID:                id,
		InitiatorUserID:   initiatorUser,
		InitiatorPlayerID: initiatorPlayer,
		RecipientUserID:   recipientUser,
		Status:            StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// RoleOf returns which side of the link userID is on.
func (l *PlayerLink) RoleOf(userID string) (Role, error) {
	switch userID {
	case l.InitiatorUserID:
		return RoleInitiator, nil
	case l.RecipientUserID:
		return RoleRecipient, nil
	}
	return "", errors.ErrNotLinkParty
}

// Involves reports whether userID is a party to the link.
func (l *PlayerLink) Involves(userID string) bool {
	return userID == l.InitiatorUserID || userID == l.RecipientUserID
}

// PeerUserID returns the other side's user id.
func (l *PlayerLink) PeerUserID(userID string) (string, error) {
	role, err := l.RoleOf(userID)
	if err != nil {
		return "", err
	}
	if role == RoleInitiator {
		return l.RecipientUserID, nil
	}
	return l.InitiatorUserID, nil
}

// PlayerIDFor returns the player designated by userID's own side.
func (l *PlayerLink) PlayerIDFor(userID string) (string, error) {
	role, err := l.RoleOf(userID)
	if err != nil {
		return "", err
	}
	if role == RoleInitiator {
		return l.InitiatorPlayerID, nil
	}
	return l.RecipientPlayerID, nil
}

// PeerPlayerIDFor returns the player designated by the other side.
func (l *PlayerLink) PeerPlayerIDFor(userID string) (string, error) {
	role, err := l.RoleOf(userID)
	if err != nil {
		return "", err
	}
	if role == RoleInitiator {
		return l.RecipientPlayerID, nil
	}
	return l.InitiatorPlayerID, nil
}

// LastSyncedVersion returns this side's record of the last peer range
// version it has incorporated.
func (l *PlayerLink) LastSyncedVersion(userID string) (int64, error) {
	role, err := l.RoleOf(userID)
	if err != nil {
		return 0, err
	}
	if role == RoleInitiator {
		return l.InitiatorSyncedV, nil
	}
	return l.RecipientSyncedV, nil
}

// SetLastSyncedVersion records the peer version this side has seen.
// The counter never moves backward: a peer whose data was deleted and
// recreated (version reset) reports a lower version, which is ignored.
func (l *PlayerLink) SetLastSyncedVersion(userID string, v int64) error {
	role, err := l.RoleOf(userID)
	if err != nil {
		return err
	}
	if role == RoleInitiator {
		if v > l.InitiatorSyncedV {
			l.InitiatorSyncedV = v
		}
	} else {
		if v > l.RecipientSyncedV {
			l.RecipientSyncedV = v
		}
	}
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// Accept transitions a pending link to active, recording the
// recipient's chosen player. Only the recipient may accept.
func (l *PlayerLink) Accept(userID, recipientPlayerID string) error {
	if l.Status != StatusPending {
		return errors.ErrLinkNotPending
	}
	if userID != l.RecipientUserID {
		return errors.ErrNotRecipient
	}
	if recipientPlayerID == "" {
		return errors.NewError(errors.CodeValidation, "recipient player is required", nil)
	}
	l.Status = StatusActive
	l.RecipientPlayerID = recipientPlayerID
	l.UpdatedAt = time.Now().UTC()
	return nil
}

// CanDecline reports whether userID may decline the link.
// Decline is recipient-only and only while pending.
func (l *PlayerLink) CanDecline(userID string) error {
	if l.Status != StatusPending {
		return errors.ErrLinkNotPending
	}
	if userID != l.RecipientUserID {
		return errors.ErrNotRecipient
	}
	return nil
}

// CanCancel reports whether userID may cancel the link.
// Cancel is initiator-only and only while pending.
func (l *PlayerLink) CanCancel(userID string) error {
	if l.Status != StatusPending {
		return errors.ErrLinkNotPending
	}
	if userID != l.InitiatorUserID {
		return errors.ErrNotInitiator
	}
	return nil
}

// CanRemove reports whether userID may remove the link.
// Remove is allowed for either party, only while active.
func (l *PlayerLink) CanRemove(userID string) error {
	if l.Status != StatusActive {
		return errors.ErrLinkNotActive
	}
	if !l.Involves(userID) {
		return errors.ErrNotLinkParty
	}
	return nil
}

// SamePair reports whether the link pairs the same two players as the
// given initiator/recipient player ids, in either direction.
func (l *PlayerLink) SamePair(playerA, playerB string) bool {
	if l.InitiatorPlayerID == playerA && l.RecipientPlayerID == playerB {
		return true
	}
	return l.InitiatorPlayerID == playerB && l.RecipientPlayerID == playerA
}

// RangeShare is a one-shot snapshot of a sender's range set for one
// named player, sent to a single recipient. A new share for the same
// (from, to, playerName) triple replaces the prior one.
type RangeShare struct {
	ID           string          `json:"id"`
	FromUserID   string          `json:"fromUserId"`
	ToUserID     string          `json:"toUserId"`
	PlayerName   string          `json:"playerName"`
	Ranges       ranges.RangeSet `json:"ranges,omitempty"`
	RangeVersion int64           `json:"rangeVersion"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// ShareKey is the replace-key for a range share.
func (s *RangeShare) ShareKey() string {
	return s.FromUserID + "/" + s.ToUserID + "/" + s.PlayerName
}
