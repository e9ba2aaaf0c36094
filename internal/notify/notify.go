// Package notify carries transient, dismissible feedback about mutation outcomes.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/fault"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Notification struct {
	ID    uuid.UUID `json:"id"`
	Level Level     `json:"level"`
	Text  string    `json:"text"`
	At    time.Time `json:"at"`
}

// Notifier receives exactly one notification per mutation outcome.
type Notifier interface {
	Notify(level Level, text string) Notification
}

// DefaultLimit is how many notifications a Center keeps before dropping the oldest.
const DefaultLimit = 20

// Center is an in-memory Notifier. It keeps the most recent notifications until
// they are dismissed and forwards each new one to OnNotify when set.
type Center struct {
	Limit    int
	OnNotify func(Notification)
	Now      func() time.Time

	mu    sync.Mutex
	items []Notification
}

func NewCenter() *Center {
	return &Center{Limit: DefaultLimit, Now: time.Now}
}

func (c *Center) Notify(level Level, text string) Notification {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	n := Notification{ID: uuid.New(), Level: level, Text: text, At: now().UTC()}

	c.mu.Lock()
	c.items = append(c.items, n)
	if limit := c.Limit; limit > 0 && len(c.items) > limit {
		c.items = append([]Notification(nil), c.items[len(c.items)-limit:]...)
	}
	hook := c.OnNotify
	c.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return n
}

// Success is a shorthand for Notify(LevelSuccess, text).
func (c *Center) Success(text string) Notification { return c.Notify(LevelSuccess, text) }

// Failure notifies the message of err at error level.
func (c *Center) Failure(err error) Notification {
	return c.Notify(LevelError, Message(err))
}

// List returns the pending notifications, oldest first.
func (c *Center) List() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Notification(nil), c.items...)
}

// Dismiss removes a notification and reports whether it was pending.
func (c *Center) Dismiss(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, n := range c.items {
		if n.ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear dismisses everything.
func (c *Center) Clear() {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
}

// Message is the user-facing text for a failure.
func Message(err error) string {
	if err == nil {
		return ""
	}
	return fault.From(err).Error()
}
