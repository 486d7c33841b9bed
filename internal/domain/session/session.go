// Package session defines the domain model for live poker sessions.
package session

import (
	"time"
)

// Seat describes one occupied seat at the table.
type Seat struct {
	Number   int    `json:"number"`
	PlayerID string `json:"playerId,omitempty"`
	Label    string `json:"label,omitempty"`
}

// TableState is transient in-session seating state. It is local-only:
// it is stripped from every payload before a session goes remote.
type TableState struct {
	Seats     []Seat `json:"seats,omitempty"`
	HeroSeat  int    `json:"heroSeat,omitempty"`
	MaxSeats  int    `json:"maxSeats,omitempty"`
	ButtonPos int    `json:"buttonPos,omitempty"`
}

// Session represents one live or finished playing session.
type Session struct {
	ID        string      `json:"id"`
	Venue     string      `json:"venue"`
	Stakes    string      `json:"stakes"`
	GameType  string      `json:"gameType,omitempty"`
	IsActive  bool        `json:"isActive"`
	StartedAt time.Time   `json:"startedAt"`
	EndedAt   *time.Time  `json:"endedAt,omitempty"`
	Table     *TableState `json:"table,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// New starts a session at the given venue and stakes.
func New(id, venue, stakes string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        id,
		Venue:     venue,
		Stakes:    stakes,
		IsActive:  true,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Finish marks the session as ended. Finishing is what makes a session
// eligible for remote durability; in-progress churn stays local.
func (s *Session) Finish() {
	if !s.IsActive {
		return
	}
	now := time.Now().UTC()
	s.IsActive = false
	s.EndedAt = &now
	s.UpdatedAt = now
}

// StripTransient returns a copy with the local-only table state removed.
func (s *Session) StripTransient() *Session {
	cp := *s
	cp.Table = nil
	return &cp
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		cp.EndedAt = &t
	}
	if s.Table != nil {
		tbl := *s.Table
		tbl.Seats = append([]Seat(nil), s.Table.Seats...)
		cp.Table = &tbl
	}
	return &cp
}
