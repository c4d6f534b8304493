package clock

import (
	"sync"
	"time"
)

// Clock hands out record versions.
type Clock interface {
	Now() int64
}

// Wall is a Clock backed by time.Now. If the wall clock does not advance
// between two calls (coarse resolution, NTP step back) the previous version
// is bumped by one instead.
type Wall struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewWall creates a wall clock.
func NewWall() *Wall {
	return &Wall{now: time.Now}
}

// Now returns a version strictly greater than any version previously
// returned by this clock.
func (w *Wall) Now() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	v := w.now().UnixNano()
	if v <= w.last {
		v = w.last + 1
	}
	w.last = v
	return v
}

// Manual is a Clock for tests. It returns the configured value and advances
// by Step after every call.
type Manual struct {
	mu    sync.Mutex
	value int64
	Step  int64
}

// NewManual creates a manual clock starting at start and advancing by one.
func NewManual(start int64) *Manual {
	return &Manual{value: start, Step: 1}
}

// Now returns the current value and advances the clock.
func (m *Manual) Now() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.value
	m.value += m.Step
	return v
}

// Set moves the clock to v.
func (m *Manual) Set(v int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = v
}

// CompareResult represents the ordering of two versions.
type CompareResult int

const (
	// Before indicates the first version is older.
	Before CompareResult = iota
	// After indicates the first version is newer.
	After
	// Equal indicates both versions are the same.
	Equal
)

// String returns a readable name for the result.
func (c CompareResult) String() string {
	switch c {
	case Before:
		return "before"
	case After:
		return "after"
	default:
		return "equal"
	}
}

// Compare orders two versions.
func Compare(a, b int64) CompareResult {
	switch {
	case a < b:
		return Before
	case a > b:
		return After
	default:
		return Equal
	}
}
