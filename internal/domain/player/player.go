// Package player defines the domain model for tracked poker players.
package player

import (
	"time"

	"github.com/feltworks/rangesync/internal/domain/ranges"
)

// Bounded-list limits. Oldest entries are dropped when a list is full.
const (
	MaxNoteEntries = 50
	MaxLocations   = 20
)

// NoteEntry is a single dated observation about a player.
type NoteEntry struct {
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// Player represents a tracked opponent and their range data.
type Player struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Color        string          `json:"color"`
	Notes        string          `json:"notes"`
	NoteEntries  []NoteEntry     `json:"noteEntries,omitempty"`
	Locations    []string        `json:"locations,omitempty"`
	Ranges       ranges.RangeSet `json:"ranges,omitempty"`
	RangeVersion int64           `json:"rangeVersion"`
	IsShared     bool            `json:"isShared"`
	CreatedBy    string          `json:"createdBy,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// New creates a player owned by the given user.
func New(id, name, createdBy string) *Player {
	now := time.Now().UTC()
	return &Player{
		ID:        id,
		Name:      name,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetRange replaces the range for one composite key and bumps the
// range version. The range is normalized before it is stored so
// unselected entries never persist.
func (p *Player) SetRange(key string, r ranges.Range) {
	if p.Ranges == nil {
		p.Ranges = make(ranges.RangeSet)
	}
	n := r.Normalized()
	if len(n) == 0 {
		delete(p.Ranges, key)
	} else {
		p.Ranges[key] = n
	}
	p.BumpRangeVersion()
}

// BumpRangeVersion advances the monotonic range content counter.
// Metadata edits must not call this; the version tracks range content
// only.
func (p *Player) BumpRangeVersion() {
	p.RangeVersion++
	p.UpdatedAt = time.Now().UTC()
}

// Touch updates the metadata timestamp without affecting RangeVersion.
func (p *Player) Touch() {
	p.UpdatedAt = time.Now().UTC()
}

// AddNoteEntry appends a dated note, dropping the oldest entry when
// the bounded list is full.
func (p *Player) AddNoteEntry(text string) {
	entry := NoteEntry{Text: text, CreatedAt: time.Now().UTC()}
	p.NoteEntries = append(p.NoteEntries, entry)
	if len(p.NoteEntries) > MaxNoteEntries {
		p.NoteEntries = p.NoteEntries[len(p.NoteEntries)-MaxNoteEntries:]
	}
	p.Touch()
}

// AddLocation records a venue the player has been seen at. Duplicates
// are ignored; the bounded list drops the oldest entry when full.
func (p *Player) AddLocation(loc string) {
	for _, l := range p.Locations {
		if l == loc {
			return
		}
	}
	p.Locations = append(p.Locations, loc)
	if len(p.Locations) > MaxLocations {
		p.Locations = p.Locations[len(p.Locations)-MaxLocations:]
	}
	p.Touch()
}

// Clone returns a deep copy, used by the cache so observers never
// share mutable state with the store.
func (p *Player) Clone() *Player {
	if p == nil {
		return nil
	}
	cp := *p
	cp.NoteEntries = append([]NoteEntry(nil), p.NoteEntries...)
	cp.Locations = append([]string(nil), p.Locations...)
	cp.Ranges = p.Ranges.Clone()
	return &cp
}
