package dashboard

import (
	"context"
	"fmt"

	"salondesk/internal/models"
)

type ModalKind string

const (
	ModalAdd     ModalKind = "add"
	ModalEdit    ModalKind = "edit"
	ModalConfirm ModalKind = "confirm"
	ModalDelete  ModalKind = "delete"
)

// Modal is the open confirmation surface of a session. Nothing changes in the
// store until the modal is submitted.
type Modal struct {
	Kind      ModalKind            `json:"kind"`
	BookingID int64                `json:"booking_id,omitempty"`
	Form      models.BookingFields `json:"form"`
	Prompt    string               `json:"prompt,omitempty"`
	// BarberLocked is set for staff, who cannot pick another barber.
	BarberLocked bool `json:"barber_locked"`
}

// Modal returns the open modal, if any.
func (c *Controller) Modal() *Modal {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.modal == nil {
		return nil
	}
	m := *c.modal
	return &m
}

func (c *Controller) OpenAdd() Modal {
	form := c.scope(models.BookingFields{})
	form.Date = c.SelectedDate().Format(models.DateLayout)
	return c.open(Modal{Kind: ModalAdd, Form: form})
}

func (c *Controller) OpenEdit(id int64) (Modal, error) {
	b, err := c.manageable(id)
	if err != nil {
		return Modal{}, err
	}
	return c.open(Modal{Kind: ModalEdit, BookingID: b.ID, Form: c.scope(b.Fields())}), nil
}

// OpenConfirm is only offered for waiting bookings, but confirming an
// approved one is harmless.
func (c *Controller) OpenConfirm(id int64) (Modal, error) {
	b, err := c.manageable(id)
	if err != nil {
		return Modal{}, err
	}
	prompt := fmt.Sprintf("Confirm the appointment of %s at %s for %s?", b.Client, b.Time, b.Service)
	return c.open(Modal{Kind: ModalConfirm, BookingID: b.ID, Form: b.Fields(), Prompt: prompt}), nil
}

func (c *Controller) OpenDelete(id int64) (Modal, error) {
	b, err := c.manageable(id)
	if err != nil {
		return Modal{}, err
	}
	prompt := fmt.Sprintf("Are you sure you want to delete the booking of %s at %s?", b.Client, b.Time)
	return c.open(Modal{Kind: ModalDelete, BookingID: b.ID, Form: b.Fields(), Prompt: prompt}), nil
}

// CancelModal closes the modal without touching the store.
func (c *Controller) CancelModal() {
	c.mu.Lock()
	c.modal = nil
	c.mu.Unlock()
}

// SubmitModal runs the pending action and closes the modal. For add and edit
// the given fields replace the prefilled form; nil keeps the form as opened.
func (c *Controller) SubmitModal(ctx context.Context, fields *models.BookingFields) (models.Booking, error) {
	c.mu.Lock()
	m := c.modal
	c.modal = nil
	c.mu.Unlock()

	if m == nil {
		return models.Booking{}, ErrNoModal
	}

	form := m.Form
	if fields != nil {
		form = *fields
	}

	switch m.Kind {
	case ModalAdd:
		return c.Add(ctx, form)
	case ModalEdit:
		return c.Edit(ctx, m.BookingID, form)
	case ModalConfirm:
		return c.Confirm(ctx, m.BookingID)
	case ModalDelete:
		return c.Delete(ctx, m.BookingID)
	default:
		return models.Booking{}, fmt.Errorf("unknown modal kind %q", m.Kind)
	}
}

func (c *Controller) open(m Modal) Modal {
	m.BarberLocked = !c.identity.IsAdmin()
	c.mu.Lock()
	stored := m
	c.modal = &stored
	c.mu.Unlock()
	return m
}
