// Package history implements the undo/redo engine for an in-progress route
// draft, plus the draft marker list edited alongside it.
//
// History is a value type. Every operation returns a new History and leaves
// the receiver untouched; snapshots are deep-copied on the way in and on the
// way out, so no caller ever holds coordinate storage shared with a snapshot.
// The history is linear: a Push after an Undo discards every pending redo.
package history

import "github.com/GadCoder/BikeRoutes/internal/domain"

// History holds past snapshots (oldest first), the present draft, and future
// snapshots (next redo first).
type History struct {
	past    []domain.LineString
	present domain.LineString
	future  []domain.LineString
}

// New returns a History whose present is a copy of initial, or an empty
// LineString when initial is omitted. Only the first initial is used.
func New(initial ...domain.LineString) History {
	present := domain.NewLineString()
	if len(initial) > 0 {
		present = initial[0].Clone()
	}
	return History{present: present}
}

// CanUndo reports whether there is a past snapshot to return to.
func (h History) CanUndo() bool { return len(h.past) > 0 }

// CanRedo reports whether there is an undone snapshot to reapply.
func (h History) CanRedo() bool { return len(h.future) > 0 }

// Present returns a copy of the current draft.
func (h History) Present() domain.LineString { return h.present.Clone() }

// Depth returns the number of undo and redo steps available.
func (h History) Depth() (undo, redo int) { return len(h.past), len(h.future) }

// Push records next as the new present. The old present moves to the end of
// past and all redo entries are discarded.
func (h History) Push(next domain.LineString) History {
	past := make([]domain.LineString, 0, len(h.past)+1)
	past = append(past, h.past...)
	past = append(past, h.present.Clone())
	return History{past: past, present: next.Clone()}
}

// Undo moves the last past snapshot into present and pushes the old present
// onto the front of future. It is a no-op when CanUndo is false.
func (h History) Undo() History {
	if !h.CanUndo() {
		return h
	}
	last := len(h.past) - 1
	future := make([]domain.LineString, 0, len(h.future)+1)
	future = append(future, h.present.Clone())
	future = append(future, h.future...)
	return History{
		past:    h.past[:last:last],
		present: h.past[last].Clone(),
		future:  future,
	}
}

// Redo is the inverse of Undo. It is a no-op when CanRedo is false.
func (h History) Redo() History {
	if !h.CanRedo() {
		return h
	}
	past := make([]domain.LineString, 0, len(h.past)+1)
	past = append(past, h.past...)
	past = append(past, h.present.Clone())
	return History{
		past:    past,
		present: h.future[0].Clone(),
		future:  h.future[1:len(h.future):len(h.future)],
	}
}

// Clear records an empty draft. The cleared path can be restored with Undo.
func (h History) Clear() History {
	return h.Push(domain.NewLineString())
}

// AppendVertex returns a new draft with p appended to d.
func AppendVertex(d domain.LineString, p domain.Position) domain.LineString {
	coords := make([]domain.Position, 0, len(d.Coordinates)+1)
	coords = append(coords, d.Coordinates...)
	coords = append(coords, p)
	return domain.LineString{Type: domain.GeometryLineString, Coordinates: coords}
}

// MoveVertex returns a new draft with vertex i replaced by p. An index out of
// range returns an unchanged copy.
func MoveVertex(d domain.LineString, i int, p domain.Position) domain.LineString {
	out := d.Clone()
	if i >= 0 && i < len(out.Coordinates) {
		out.Coordinates[i] = p
	}
	return out
}

// RemoveVertex returns a new draft without vertex i. An index out of range
// returns an unchanged copy.
func RemoveVertex(d domain.LineString, i int) domain.LineString {
	if i < 0 || i >= len(d.Coordinates) {
		return d.Clone()
	}
	coords := make([]domain.Position, 0, len(d.Coordinates)-1)
	coords = append(coords, d.Coordinates[:i]...)
	coords = append(coords, d.Coordinates[i+1:]...)
	return domain.LineString{Type: domain.GeometryLineString, Coordinates: coords}
}
