// Package ranges defines domain models for poker hand-selection ranges.
// A Range maps canonical starting-hand labels to selection states; a
// RangeSet groups all of a player's ranges keyed by position and action.
package ranges

import (
	"fmt"
	"strings"
)

// SelectionState represents the selection state of a single starting hand.
type SelectionState string

const (
	StateUnselected     SelectionState = "unselected"       // Hand not selected (default, never persisted)
	StateManualSelected SelectionState = "manual-selected"  // User explicitly selected the hand
	StateManualUnselect SelectionState = "manual-unselected" // User explicitly deselected the hand
	StateAutoSelected   SelectionState = "auto-selected"    // Hand selected by a preset/fill tool
)

// Position represents a table position a range is defined for.
type Position string

const (
	PositionEarly  Position = "early"
	PositionMiddle Position = "middle"
	PositionLate   Position = "late"
	PositionBlinds Position = "blinds"
)

// Action represents the action a range is defined for.
type Action string

const (
	ActionOpenRaise Action = "open-raise"
	ActionCall      Action = "call"
	ActionThreeBet  Action = "3bet"
	ActionDefend    Action = "defend"
)

// Range is a sparse mapping from hand label to selection state.
// Absence of a label is equivalent to StateUnselected.
type Range map[string]SelectionState

// RangeSet maps composite keys ("{position}_{action}") to ranges.
type RangeSet map[string]Range

// ranks in descending strength order, used to enumerate hand labels.
var ranks = []string{"A", "K", "Q", "J", "T", "9", "8", "7", "6", "5", "4", "3", "2"}

// handLabels holds the 169 canonical starting-hand labels.
var handLabels = buildHandLabels()

func buildHandLabels() []string {
	labels := make([]string, 0, 169)
	for i, hi := range ranks {
		for j, lo := range ranks {
			switch {
			case i == j:
				labels = append(labels, hi+lo) // pair, e.g. AA
			case i < j:
				labels = append(labels, hi+lo+"s") // suited, e.g. AKs
			default:
				labels = append(labels, lo+hi+"o") // offsuit, e.g. AKo
			}
		}
	}
	return labels
}

// HandLabels returns all 169 canonical starting-hand labels.
func HandLabels() []string {
	out := make([]string, len(handLabels))
	copy(out, handLabels)
	return out
}

// IsValidHand reports whether label is one of the 169 canonical labels.
func IsValidHand(label string) bool {
	for _, l := range handLabels {
		if l == label {
			return true
		}
	}
	return false
}

// IsValidState reports whether s is a known selection state.
func IsValidState(s SelectionState) bool {
	switch s {
	case StateUnselected, StateManualSelected, StateManualUnselect, StateAutoSelected:
		return true
	}
	return false
}

// Key builds the composite range key for a position/action pair.
func Key(pos Position, act Action) string {
	return fmt.Sprintf("%s_%s", pos, act)
}

// SplitKey splits a composite range key back into position and action.
func SplitKey(key string) (Position, Action, error) {
	idx := strings.Index(key, "_")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", fmt.Errorf("malformed range key: %q", key)
	}
	return Position(key[:idx]), Action(key[idx+1:]), nil
}

// Get returns the state for a hand, defaulting to StateUnselected.
func (r Range) Get(hand string) SelectionState {
	if r == nil {
		return StateUnselected
	}
	if s, ok := r[hand]; ok {
		return s
	}
	return StateUnselected
}

// IsEmpty reports whether the range carries no effective selections.
// A nil range, an empty map, and a map of only unselected entries are
// all empty.
func (r Range) IsEmpty() bool {
	for _, s := range r {
		if s != StateUnselected {
			return false
		}
	}
	return true
}

// Normalized returns a copy with all StateUnselected entries stripped.
// Sparse storage depends on this: unselected entries must never reach
// the store.
func (r Range) Normalized() Range {
	if r == nil {
		return nil
	}
	out := make(Range, len(r))
	for hand, s := range r {
		if s == StateUnselected {
			continue
		}
		out[hand] = s
	}
	return out
}

// Clone returns a deep copy of the range.
func (r Range) Clone() Range {
	if r == nil {
		return nil
	}
	out := make(Range, len(r))
	for hand, s := range r {
		out[hand] = s
	}
	return out
}

// Get returns the range for key, which may be nil.
func (rs RangeSet) Get(key string) Range {
	if rs == nil {
		return nil
	}
	return rs[key]
}

// Normalized returns a copy of the set with every range normalized and
// ranges that end up empty removed entirely.
func (rs RangeSet) Normalized() RangeSet {
	if rs == nil {
		return nil
	}
	out := make(RangeSet, len(rs))
	for key, r := range rs {
		n := r.Normalized()
		if len(n) == 0 {
			continue
		}
		out[key] = n
	}
	return out
}

// Clone returns a deep copy of the set.
func (rs RangeSet) Clone() RangeSet {
	if rs == nil {
		return nil
	}
	out := make(RangeSet, len(rs))
	for key, r := range rs {
		out[key] = r.Clone()
	}
	return out
}

// Keys returns the composite keys present in the set.
func (rs RangeSet) Keys() []string {
	keys := make([]string, 0, len(rs))
	for key := range rs {
		keys = append(keys, key)
	}
	return keys
}

// HasContent reports whether the set holds a non-empty range for key.
func (rs RangeSet) HasContent(key string) bool {
	return !rs.Get(key).IsEmpty()
}
