// Package journal records undo steps for in-memory state so that a failed
// operation can be rolled back as a whole.
package journal

// Journal is an append-only list of undo functions. It is not safe for
// concurrent use; callers serialise access (the engine holds a global lock
// around every operation).
type Journal struct {
	undo []func()
}

// New returns an empty journal.
func New() *Journal {
	return &Journal{}
}

// Record appends an undo step. A nil journal ignores the call so that
// components can run un-journaled in isolation.
func (j *Journal) Record(undo func()) {
	if j == nil {
		return
	}
	j.undo = append(j.undo, undo)
}

// Snapshot returns an identifier for the current position.
func (j *Journal) Snapshot() int {
	if j == nil {
		return 0
	}
	return len(j.undo)
}

// RevertTo undoes every step recorded after the snapshot id, newest first.
func (j *Journal) RevertTo(id int) {
	if j == nil {
		return
	}
	for i := len(j.undo) - 1; i >= id; i-- {
		j.undo[i]()
	}
	j.undo = j.undo[:id]
}

// Len returns the number of recorded steps.
func (j *Journal) Len() int {
	if j == nil {
		return 0
	}
	return len(j.undo)
}

// Reset discards all undo steps, making the current state permanent.
func (j *Journal) Reset() {
	if j == nil {
		return
	}
	j.undo = j.undo[:0]
}
