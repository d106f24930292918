package booking

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"salondesk/internal/models"
)

var (
	ErrNotFound       = errors.New("booking not found")
	ErrInvalidService = errors.New("unknown service")
)

// Seed is a booking inserted as-is when a store is created.
type Seed struct {
	Fields models.BookingFields
	Status models.Status
}

// Store is the in-memory booking collection of one session. Bookings keep
// insertion order and ids are never reused.
type Store struct {
	mu       sync.RWMutex
	bookings []models.Booking
	nextID   int64
	now      func() time.Time
}

func NewStore(seed ...Seed) (*Store, error) {
	s := &Store{nextID: 1, now: time.Now}
	for i, sd := range seed {
		if _, err := s.insert(sd.Fields, sd.Status); err != nil {
			return nil, fmt.Errorf("seed booking %d: %w", i+1, err)
		}
	}
	return s, nil
}

// Add creates a waiting booking.
func (s *Store) Add(fields models.BookingFields) (models.Booking, error) {
	return s.insert(fields, models.StatusWaiting)
}

func (s *Store) insert(fields models.BookingFields, status models.Status) (models.Booking, error) {
	service, err := resolveService(fields.Service)
	if err != nil {
		return models.Booking{}, err
	}
	fields.Service = service
	if status == "" {
		status = models.StatusWaiting
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	b := models.Booking{
		ID:        s.nextID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	b.Apply(fields)
	s.nextID++
	s.bookings = append(s.bookings, b)
	return b, nil
}

// Edit replaces every field except id and status.
func (s *Store) Edit(id int64, fields models.BookingFields) (models.Booking, error) {
	service, err := resolveService(fields.Service)
	if err != nil {
		return models.Booking{}, err
	}
	fields.Service = service

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.Booking{}, fmt.Errorf("edit %d: %w", id, ErrNotFound)
	}
	b := &s.bookings[idx]
	b.Apply(fields)
	b.UpdatedAt = s.now()
	return *b, nil
}

// Confirm approves a booking. Confirming an approved booking succeeds without
// changes.
func (s *Store) Confirm(id int64) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.Booking{}, fmt.Errorf("confirm %d: %w", id, ErrNotFound)
	}
	b := &s.bookings[idx]
	if b.Status != models.StatusApproved {
		b.Status = models.StatusApproved
		b.UpdatedAt = s.now()
	}
	return *b, nil
}

// Remove deletes a booking and returns what was removed.
func (s *Store) Remove(id int64) (models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.Booking{}, fmt.Errorf("remove %d: %w", id, ErrNotFound)
	}
	removed := s.bookings[idx]
	s.bookings = append(s.bookings[:idx], s.bookings[idx+1:]...)
	return removed, nil
}

func (s *Store) Get(id int64) (models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexLocked(id)
	if idx < 0 {
		return models.Booking{}, fmt.Errorf("get %d: %w", id, ErrNotFound)
	}
	return s.bookings[idx], nil
}

// ListForIdentity returns every booking for admins and only the identity's own
// bookings for staff, in insertion order.
func (s *Store) ListForIdentity(id models.Identity) []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		if id.IsAdmin() || b.AssignedTo(id.Username) {
			out = append(out, b)
		}
	}
	return out
}

func (s *Store) All() []models.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Booking, len(s.bookings))
	copy(out, s.bookings)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings)
}

func (s *Store) indexLocked(id int64) int {
	for i := range s.bookings {
		if s.bookings[i].ID == id {
			return i
		}
	}
	return -1
}

func resolveService(raw models.Service) (models.Service, error) {
	service, ok := models.ParseService(string(raw))
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidService, raw)
	}
	return service, nil
}
