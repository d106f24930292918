package domain

import (
	"context"

	"salondesk/internal/models"
)

// BookingStore is the per-session booking collection.
type BookingStore interface {
	Add(fields models.BookingFields) (models.Booking, error)
	Edit(id int64, fields models.BookingFields) (models.Booking, error)
	Confirm(id int64) (models.Booking, error)
	Remove(id int64) (models.Booking, error)
	Get(id int64) (models.Booking, error)
	ListForIdentity(identity models.Identity) []models.Booking
}

// Notifier holds the transient toasts shown to a session.
type Notifier interface {
	Notify(message string, kind models.ToastKind) models.Toast
	Dismiss(id string) bool
	List() []models.Toast
	Close()
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// IdentityRepository maps session tokens to signed-in identities.
type IdentityRepository interface {
	GetIdentity(ctx context.Context, token string) (*models.Identity, error)
	SetIdentity(ctx context.Context, token string, identity models.Identity) error
	DeleteIdentity(ctx context.Context, token string) error
}

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (models.Identity, error)
}
