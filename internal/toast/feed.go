package toast

import (
	"sync"
	"time"

	"github.com/angelmondragon/orderdesk-backend/pkg/enums"
	"github.com/google/uuid"
)

const defaultCapacity = 50

// Toast is a transient user-facing notification.
type Toast struct {
	ID        string             `json:"id"`
	Title     string             `json:"title"`
	Message   string             `json:"message"`
	Variant   enums.ToastVariant `json:"variant"`
	Mode      enums.ToastMode    `json:"mode"`
	CreatedAt time.Time          `json:"created_at"`
}

// Feed buffers toasts until a client drains them; the oldest entry is evicted when full.
type Feed struct {
	mu       sync.Mutex
	capacity int
	items    []Toast
	now      func() time.Time
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Feed{capacity: capacity, now: time.Now}
}

// Push appends a toast, deriving its mode from the variant.
func (f *Feed) Push(variant enums.ToastVariant, title, message string) Toast {
	t := Toast{
		ID:        uuid.NewString(),
		Title:     title,
		Message:   message,
		Variant:   variant,
		Mode:      enums.ModeFor(variant),
		CreatedAt: f.now().UTC(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.items) >= f.capacity {
		f.items = append([]Toast(nil), f.items[1:]...)
	}
	f.items = append(f.items, t)
	return t
}

func (f *Feed) Success(title, message string) Toast {
	return f.Push(enums.ToastVariantSuccess, title, message)
}

func (f *Feed) Info(title, message string) Toast {
	return f.Push(enums.ToastVariantInfo, title, message)
}

func (f *Feed) Warning(title, message string) Toast {
	return f.Push(enums.ToastVariantWarning, title, message)
}

func (f *Feed) Error(title, message string) Toast {
	return f.Push(enums.ToastVariantError, title, message)
}

// Drain returns every pending toast in push order and empties the feed.
func (f *Feed) Drain() []Toast {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.items
	f.items = nil
	if out == nil {
		return []Toast{}
	}
	return out
}

// Len reports the number of pending toasts.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
