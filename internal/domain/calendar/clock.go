package calendar

import (
	"sync"
	"time"

	"cloud.google.com/go/civil"
)

// Clock supplies the current calendar date.
type Clock interface {
	Today() civil.Date
}

// SystemClock reads the wall clock in Location. A nil Location means UTC.
type SystemClock struct {
	Location *time.Location
}

// Today returns the current date in the clock's location.
func (c SystemClock) Today() civil.Date {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	return civil.DateOf(time.Now().In(loc))
}

// FixedClock always reports the same date until Set is called.
type FixedClock struct {
	mu    sync.Mutex
	today civil.Date
}

// NewFixedClock returns a clock pinned to today.
func NewFixedClock(today civil.Date) *FixedClock {
	return &FixedClock{today: today}
}

// Today returns the pinned date.
func (c *FixedClock) Today() civil.Date {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.today
}

// Set moves the clock to a new date.
func (c *FixedClock) Set(today civil.Date) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.today = today
}

// Advance moves the clock forward by n days.
func (c *FixedClock) Advance(days int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.today = c.today.AddDays(days)
}
