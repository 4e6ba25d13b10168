package domain

import "slices"

// SnapshotDiff describes how the goals of a dialogue changed between two
// snapshots. It is designed to be serialized for partial updates on the
// client.
type SnapshotDiff struct {
	// DialogueID is always present to identify the target.
	DialogueID string `json:"dialogue_id"`

	// Turn is set when the turn counter moved.
	Turn *int `json:"turn,omitempty"`

	// Added holds goals that were not on the stack before.
	Added []string `json:"added,omitempty"`

	// Parked holds goals moved from the stack to the other goals,
	// typically because a revision replaced them.
	Parked []string `json:"parked,omitempty"`

	// Dropped holds goals that disappeared from both lists.
	Dropped []string `json:"dropped,omitempty"`

	// Exceptions are the exceptions of the newer snapshot.
	Exceptions []*Error `json:"exceptions,omitempty"`
}

// Diff calculates the difference between oldSnap and newSnap.
// If oldSnap is nil, the diff represents the entire newSnap (initial load).
// It returns nil when nothing changed.
func Diff(oldSnap, newSnap *DialogueSnapshot) *SnapshotDiff {
	if newSnap == nil {
		return nil
	}
	diff := &SnapshotDiff{DialogueID: newSnap.ID, Exceptions: newSnap.Exceptions}

	if oldSnap == nil {
		if newSnap.Turn != 0 {
			diff.Turn = &newSnap.Turn
		}
		diff.Added = slices.Clone(newSnap.Goals)
	} else {
		if oldSnap.Turn != newSnap.Turn {
			diff.Turn = &newSnap.Turn
		}
		for _, g := range newSnap.Goals {
			if !slices.Contains(oldSnap.Goals, g) {
				diff.Added = append(diff.Added, g)
			}
		}
		for _, g := range oldSnap.Goals {
			switch {
			case slices.Contains(newSnap.Goals, g):
			case slices.Contains(newSnap.OtherGoals, g):
				diff.Parked = append(diff.Parked, g)
			default:
				diff.Dropped = append(diff.Dropped, g)
			}
		}
	}

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *SnapshotDiff) IsEmpty() bool {
	return d.Turn == nil &&
		len(d.Added) == 0 &&
		len(d.Parked) == 0 &&
		len(d.Dropped) == 0 &&
		len(d.Exceptions) == 0
}
