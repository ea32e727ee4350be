// Package testutil provides a snapshot recorder for task observers.
package testutil

import (
	"sync"

	"github.com/input-output-hk/catalyst-forge-libs/upload/uploadtypes"
)

// Recorder collects every snapshot delivered to it, in delivery order.
// Pass Record to Task.Subscribe.
type Recorder struct {
	mu     sync.Mutex
	states []uploadtypes.State
}

// Record stores a snapshot.
func (r *Recorder) Record(s uploadtypes.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, s)
}

// States returns a copy of all recorded snapshots.
func (r *Recorder) States() []uploadtypes.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uploadtypes.State, len(r.states))
	copy(out, r.states)
	return out
}

// Statuses returns the status of every recorded snapshot.
func (r *Recorder) Statuses() []uploadtypes.Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uploadtypes.Status, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s.Status)
	}
	return out
}

// Progress returns the progress of every recorded snapshot.
func (r *Recorder) Progress() []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s.Progress)
	}
	return out
}

// Last returns the most recent snapshot, if any.
func (r *Recorder) Last() (uploadtypes.State, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return uploadtypes.State{}, false
	}
	return r.states[len(r.states)-1], true
}

// Len returns the number of recorded snapshots.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// Reset clears the recorder.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = nil
}
