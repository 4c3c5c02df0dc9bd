// Package notify collects the transient success/error notifications the
// mutation path raises, so the front-end can show them after each action.
package notify

import (
	"sync"
	"time"

	"github.com/sajilostore/storefront/internal/logging"
)

// Level classifies a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one transient message.
type Notification struct {
	Level   Level
	Message string
	Time    time.Time
}

// Center buffers notifications up to a cap, dropping the oldest first.
type Center struct {
	mu     sync.Mutex
	items  []Notification
	max    int
	logger *logging.Logger
}

// NewCenter creates a notification center holding at most max entries.
func NewCenter(max int, logger *logging.Logger) *Center {
	if max <= 0 {
		max = 16
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Center{max: max, logger: logger}
}

// Success records a success notification.
func (c *Center) Success(message string) {
	c.push(Notification{Level: LevelSuccess, Message: message, Time: time.Now()})
	c.logger.WithField("notification", message).Debug("success")
}

// Error records an error notification.
func (c *Center) Error(message string) {
	c.push(Notification{Level: LevelError, Message: message, Time: time.Now()})
	c.logger.WithField("notification", message).Debug("error")
}

func (c *Center) push(n Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append(c.items, n)
	if len(c.items) > c.max {
		c.items = c.items[len(c.items)-c.max:]
	}
}

// Drain returns the buffered notifications and empties the buffer.
func (c *Center) Drain() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := c.items
	c.items = nil
	return out
}

// Peek returns the buffered notifications without clearing them.
func (c *Center) Peek() []Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Notification, len(c.items))
	copy(out, c.items)
	return out
}
