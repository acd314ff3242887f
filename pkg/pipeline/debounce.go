package pipeline

import (
	"sync"
	"time"
)

// DefaultAutosaveInterval bounds the data-loss window between a field
// edit and its buffered save.
const DefaultAutosaveInterval = 400 * time.Millisecond

// Debouncer coalesces rapid events like per-keystroke field edits.
type Debouncer struct {
	mu       sync.Mutex
	timer    *time.Timer
	duration time.Duration
}

// NewDebouncer creates a debouncer with the specified duration.
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{duration: duration}
}

// Debounce executes fn after the debounce duration has elapsed without
// any new calls. Rapid successive calls reset the timer.
func (d *Debouncer) Debounce(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, fn)
}

// Cancel cancels any pending debounced call.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Autosaver debounces draft saves so every field edit is cheap from the
// caller's perspective. The latest draft always wins; an older pending
// save never overwrites a newer edit because the full current state is
// captured at fire time.
type Autosaver struct {
	debouncer *Debouncer
	save      func(Draft)

	mu      sync.Mutex
	pending *Draft
}

// NewAutosaver creates an autosaver calling save after each quiet
// interval.
func NewAutosaver(interval time.Duration, save func(Draft)) *Autosaver {
	return &Autosaver{
		debouncer: NewDebouncer(interval),
		save:      save,
	}
}

// RecordEdit schedules a save of the given full draft state.
func (a *Autosaver) RecordEdit(d Draft) {
	a.mu.Lock()
	a.pending = &d
	a.mu.Unlock()

	a.debouncer.Debounce(a.flushPending)
}

// Flush saves any pending draft immediately and cancels the timer. Used
// before commit and before parking a draft for sign-in.
func (a *Autosaver) Flush() {
	a.debouncer.Cancel()
	a.flushPending()
}

func (a *Autosaver) flushPending() {
	a.mu.Lock()
	d := a.pending
	a.pending = nil
	a.mu.Unlock()

	if d != nil {
		a.save(*d)
	}
}
