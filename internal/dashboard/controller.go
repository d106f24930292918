// Package dashboard holds the per-session view logic: role-scoped booking
// lists, statistics, the selected day and the two-step modal workflows.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"salondesk/internal/booking"
	"salondesk/internal/domain"
	"salondesk/internal/events"
	"salondesk/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrForbidden        = errors.New("not allowed to manage this booking")
	ErrNoModal          = errors.New("no modal is open")
	ErrInvalidDirection = errors.New("direction must be -1 or +1")
)

// Reloader is called after the selected day changes. There is no backend to
// fetch from yet, so the default implementation only waits.
type Reloader func(ctx context.Context, date time.Time) error

// DelayReloader imitates a fetch that takes d.
func DelayReloader(d time.Duration) Reloader {
	return func(ctx context.Context, _ time.Time) error {
		if d <= 0 {
			return nil
		}
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	}
}

type Options struct {
	Barbers []string
	Reload  Reloader
	Events  domain.EventPublisher
	Logger  *zerolog.Logger
	Now     func() time.Time
}

// Controller is the explicit session context: one identity, its store and its
// notifications.
type Controller struct {
	identity models.Identity
	store    domain.BookingStore
	notifier domain.Notifier
	events   domain.EventPublisher
	reload   Reloader
	barbers  []string
	logger   zerolog.Logger

	// writeMu serialises check-then-mutate sequences.
	writeMu sync.Mutex

	mu        sync.Mutex
	selected  time.Time
	modal     *Modal
	reloading int
}

func New(identity models.Identity, store domain.BookingStore, notifier domain.Notifier, opts Options) *Controller {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	reload := opts.Reload
	if reload == nil {
		reload = DelayReloader(0)
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().
			Str("component", "dashboard").
			Str("username", identity.Username).
			Logger()
	}

	return &Controller{
		identity: identity,
		store:    store,
		notifier: notifier,
		events:   opts.Events,
		reload:   reload,
		barbers:  opts.Barbers,
		logger:   logger,
		selected: truncateDay(now()),
	}
}

func (c *Controller) Identity() models.Identity {
	return c.identity
}

// Start greets the user and announces the session.
func (c *Controller) Start() {
	c.notifier.Notify(fmt.Sprintf("Welcome %s!", c.identity.Username), models.ToastSuccess)
	c.publish(events.EventSessionStarted, events.SessionEventPayload{
		Username: c.identity.Username,
		Role:     string(c.identity.Role),
	})
}

// Close tears the session down. Pending toast timers are stopped.
func (c *Controller) Close() {
	c.notifier.Close()
	c.publish(events.EventSessionEnded, events.SessionEventPayload{
		Username: c.identity.Username,
		Role:     string(c.identity.Role),
	})
}

// Bookings returns the bookings visible to the identity. The list is not
// filtered by the selected day.
func (c *Controller) Bookings() []models.Booking {
	return c.store.ListForIdentity(c.identity)
}

func (c *Controller) Stats() models.Stats {
	return models.ComputeStats(c.Bookings())
}

func (c *Controller) Toasts() []models.Toast {
	return c.notifier.List()
}

func (c *Controller) DismissToast(id string) bool {
	return c.notifier.Dismiss(id)
}

// CanManage reports whether the session identity may act on b.
func (c *Controller) CanManage(b models.Booking) bool {
	return models.CanManage(c.identity, b)
}

// Add creates a waiting booking. Staff bookings are always assigned to the
// staff member; an empty date defaults to the selected day.
func (c *Controller) Add(ctx context.Context, fields models.BookingFields) (models.Booking, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	fields = c.scope(fields)
	if fields.Date == "" {
		fields.Date = c.SelectedDate().Format(models.DateLayout)
	}
	if !c.CanManage(models.Booking{Barber: fields.Barber}) {
		return models.Booking{}, c.fail("add", 0, ErrForbidden)
	}

	b, err := c.store.Add(fields)
	if err != nil {
		return models.Booking{}, c.fail("add", 0, err)
	}

	c.notifier.Notify(fmt.Sprintf("Booking for %s added successfully", b.Client), models.ToastSuccess)
	c.publishBooking(events.EventBookingCreated, b)
	c.logger.Info().Int64("booking_id", b.ID).Str("barber", b.Barber).Msg("booking added")
	return b, nil
}

// Edit replaces the editable fields of a booking, keeping its status.
func (c *Controller) Edit(ctx context.Context, id int64, fields models.BookingFields) (models.Booking, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.manageable(id); err != nil {
		return models.Booking{}, c.fail("edit", id, err)
	}
	fields = c.scope(fields)

	b, err := c.store.Edit(id, fields)
	if err != nil {
		return models.Booking{}, c.fail("edit", id, err)
	}

	c.notifier.Notify("Booking updated successfully", models.ToastSuccess)
	c.publishBooking(events.EventBookingUpdated, b)
	c.logger.Info().Int64("booking_id", b.ID).Msg("booking updated")
	return b, nil
}

// Confirm approves a booking. Approving twice is not an error.
func (c *Controller) Confirm(ctx context.Context, id int64) (models.Booking, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.manageable(id); err != nil {
		return models.Booking{}, c.fail("confirm", id, err)
	}

	b, err := c.store.Confirm(id)
	if err != nil {
		return models.Booking{}, c.fail("confirm", id, err)
	}

	c.notifier.Notify(fmt.Sprintf("Booking for %s confirmed successfully", b.Client), models.ToastSuccess)
	c.publishBooking(events.EventBookingConfirmed, b)
	c.logger.Info().Int64("booking_id", b.ID).Msg("booking confirmed")
	return b, nil
}

// Delete removes a booking and returns it so callers can name the client.
func (c *Controller) Delete(ctx context.Context, id int64) (models.Booking, error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.manageable(id); err != nil {
		return models.Booking{}, c.fail("delete", id, err)
	}

	b, err := c.store.Remove(id)
	if err != nil {
		return models.Booking{}, c.fail("delete", id, err)
	}

	c.notifier.Notify(fmt.Sprintf("Booking for %s deleted successfully", b.Client), models.ToastSuccess)
	c.publishBooking(events.EventBookingDeleted, b)
	c.logger.Info().Int64("booking_id", b.ID).Msg("booking deleted")
	return b, nil
}

func (c *Controller) manageable(id int64) (models.Booking, error) {
	b, err := c.store.Get(id)
	if err != nil {
		return models.Booking{}, err
	}
	if !c.CanManage(b) {
		return models.Booking{}, ErrForbidden
	}
	return b, nil
}

// scope pins the barber of staff bookings to the staff member.
func (c *Controller) scope(fields models.BookingFields) models.BookingFields {
	if !c.identity.IsAdmin() {
		fields.Barber = c.identity.Username
	}
	return fields
}

func (c *Controller) fail(op string, id int64, err error) error {
	c.notifier.Notify(UserMessage(err), models.ToastError)
	c.logger.Warn().Err(err).Str("op", op).Int64("booking_id", id).Msg("booking operation failed")
	return err
}

// UserMessage turns an operation error into the text shown to the user.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, booking.ErrNotFound):
		return "Booking no longer exists, refresh"
	case errors.Is(err, ErrForbidden):
		return "You are not allowed to manage this booking"
	case errors.Is(err, booking.ErrInvalidService):
		return "Please choose a valid service"
	default:
		return "Something went wrong, please try again"
	}
}

func (c *Controller) publishBooking(eventType string, b models.Booking) {
	c.publish(eventType, events.BookingEventPayload{
		BookingID: b.ID,
		Client:    b.Client,
		Service:   string(b.Service),
		Barber:    b.Barber,
		Date:      b.Date,
		Time:      b.Time,
		Status:    string(b.Status),
		ChangedBy: c.identity.Username,
		Role:      string(c.identity.Role),
	})
}

func (c *Controller) publish(eventType string, payload interface{}) {
	if c.events == nil {
		return
	}
	if err := c.events.PublishJSON(eventType, payload); err != nil {
		c.logger.Error().Err(err).Str("event_type", eventType).Msg("publish event error")
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
