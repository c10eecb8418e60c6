// Package notify carries transient user-facing notices (toasts) from operations back to
// the view that started them.
package notify

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// Level grades a notice.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one toast.
type Notice struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier receives notices. Operations take a Notifier instead of reaching for shared
// state.
type Notifier interface {
	Notify(Notice)
}

// Discard drops every notice.
var Discard Notifier = discard{}

type discard struct{}

func (discard) Notify(Notice) {}

// DefaultLimit bounds a queue when no limit is given.
const DefaultLimit = 20

// Queue buffers notices for one view. When full the oldest notice is dropped.
type Queue struct {
	mu    sync.Mutex
	items []Notice
	limit int
	clock func() time.Time
}

// NewQueue constructs a queue holding at most limit notices.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Queue{limit: limit, clock: time.Now}
}

// Notify appends n, stamping it when At is zero.
func (q *Queue) Notify(n Notice) {
	if q == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if n.At.IsZero() {
		n.At = q.clock()
	}
	if len(q.items) >= q.limit {
		q.items = q.items[1:]
	}
	q.items = append(q.items, n)
}

// Drain returns the pending notices and empties the queue.
func (q *Queue) Drain() []Notice {
	if q == nil {
		return nil
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	if out == nil {
		out = []Notice{}
	}
	return out
}

// Len returns the number of pending notices.
func (q *Queue) Len() int {
	if q == nil {
		return 0
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Errorf pushes an error notice to n. A nil n is ignored.
func Errorf(n Notifier, format string, args ...any) {
	push(n, LevelError, format, args...)
}

// Warnf pushes a warning notice to n.
func Warnf(n Notifier, format string, args ...any) {
	push(n, LevelWarning, format, args...)
}

// Successf pushes a success notice to n.
func Successf(n Notifier, format string, args ...any) {
	push(n, LevelSuccess, format, args...)
}

func push(n Notifier, level Level, format string, args ...any) {
	if n == nil {
		return
	}
	n.Notify(Notice{Level: level, Message: fmt.Sprintf(format, args...)})
}

// UserMessager is implemented by errors that carry text meant for the user, such as a
// message returned by the backend.
type UserMessager interface {
	UserMessage() string
}

// Message returns the user-facing text for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var m UserMessager
	if errors.As(err, &m) {
		if msg := m.UserMessage(); msg != "" {
			return msg
		}
	}
	return err.Error()
}
