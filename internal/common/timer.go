// Package common provides small shared utilities.
package common

import (
	"fmt"
	"time"
)

// Timer measures a named processing stage.
type Timer struct {
	name     string
	start    time.Time
	duration time.Duration
}

// StartTimer starts a timer for the given stage name.
func StartTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop stops the timer and returns the elapsed duration. Calling Stop again
// returns the duration of the first call.
func (t *Timer) Stop() time.Duration {
	if t.duration == 0 {
		t.duration = time.Since(t.start)
	}
	return t.duration
}

// Name returns the stage name.
func (t *Timer) Name() string {
	return t.name
}

// String returns a formatted representation, valid after Stop.
func (t *Timer) String() string {
	return fmt.Sprintf("%s: %v", t.name, t.duration)
}
