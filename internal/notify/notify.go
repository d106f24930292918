package notify

import (
	"sync"
	"time"

	"salondesk/internal/models"

	"github.com/google/uuid"
)

// Service keeps the transient toasts of one session. Every toast expires on
// its own timer; dismissing a toast stops that timer.
type Service struct {
	mu       sync.Mutex
	ttl      time.Duration
	max      int
	toasts   []models.Toast
	timers   map[string]*time.Timer
	closed   bool
	onChange func(active int)
	now      func() time.Time
}

func New(ttl time.Duration, max int) *Service {
	if ttl <= 0 {
		ttl = models.DefaultToastTTL * time.Millisecond
	}
	if max <= 0 {
		max = models.DefaultMaxToasts
	}
	return &Service{
		ttl:    ttl,
		max:    max,
		timers: make(map[string]*time.Timer),
		now:    time.Now,
	}
}

// OnChange registers a hook called with the number of active toasts after
// every change.
func (s *Service) OnChange(fn func(active int)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Notify enqueues a toast. An empty kind means success. When the queue is full
// the oldest toast is dropped.
func (s *Service) Notify(message string, kind models.ToastKind) models.Toast {
	if kind == "" {
		kind = models.ToastSuccess
	}
	now := s.now()
	toast := models.Toast{
		ID:        uuid.NewString(),
		Message:   message,
		Kind:      kind,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return toast
	}
	for len(s.toasts) >= s.max {
		s.removeLocked(s.toasts[0].ID)
	}
	s.toasts = append(s.toasts, toast)
	id := toast.ID
	s.timers[id] = time.AfterFunc(s.ttl, func() { s.expire(id) })
	active, hook := len(s.toasts), s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook(active)
	}
	return toast
}

// Success is shorthand for Notify with ToastSuccess.
func (s *Service) Success(message string) models.Toast {
	return s.Notify(message, models.ToastSuccess)
}

// Error is shorthand for Notify with ToastError.
func (s *Service) Error(message string) models.Toast {
	return s.Notify(message, models.ToastError)
}

// Dismiss removes a toast before it expires. Unknown ids are ignored.
func (s *Service) Dismiss(id string) bool {
	s.mu.Lock()
	removed := s.removeLocked(id)
	active, hook := len(s.toasts), s.onChange
	s.mu.Unlock()

	if removed && hook != nil {
		hook(active)
	}
	return removed
}

// List returns the active toasts, oldest first.
func (s *Service) List() []models.Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Toast, len(s.toasts))
	copy(out, s.toasts)
	return out
}

// Close drops every toast and stops all pending timers.
func (s *Service) Close() {
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.toasts = nil
	s.closed = true
	hook := s.onChange
	s.mu.Unlock()

	if hook != nil {
		hook(0)
	}
}

func (s *Service) expire(id string) {
	s.Dismiss(id)
}

func (s *Service) removeLocked(id string) bool {
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	for i, toast := range s.toasts {
		if toast.ID == id {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			return true
		}
	}
	return false
}
