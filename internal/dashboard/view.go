package dashboard

import "salondesk/internal/models"

type Action string

const (
	ActionConfirm Action = "confirm"
	ActionEdit    Action = "edit"
	ActionDelete  Action = "delete"
)

// BookingRow is a booking together with the actions offered for it.
type BookingRow struct {
	models.Booking
	Actions []Action `json:"actions"`
}

// View is everything a client needs to render the dashboard.
type View struct {
	Identity     models.Identity  `json:"identity"`
	SelectedDate string           `json:"selected_date"`
	Loading      bool             `json:"loading"`
	Stats        models.Stats     `json:"stats"`
	Bookings     []BookingRow     `json:"bookings"`
	Toasts       []models.Toast   `json:"toasts"`
	Modal        *Modal           `json:"modal,omitempty"`
	Barbers      []string         `json:"barbers"`
	Services     []models.Service `json:"services"`
}

func (c *Controller) View() View {
	bookings := c.Bookings()
	rows := make([]BookingRow, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, BookingRow{Booking: b, Actions: c.Actions(b)})
	}

	barbers := c.barbers
	if !c.identity.IsAdmin() {
		barbers = []string{c.identity.Username}
	}

	return View{
		Identity:     c.identity,
		SelectedDate: c.SelectedDate().Format(models.DateLayout),
		Loading:      c.Loading(),
		Stats:        models.ComputeStats(bookings),
		Bookings:     rows,
		Toasts:       c.Toasts(),
		Modal:        c.Modal(),
		Barbers:      barbers,
		Services:     models.Services,
	}
}

// Actions lists what the identity may do with b. Confirm is only offered
// while the booking is waiting.
func (c *Controller) Actions(b models.Booking) []Action {
	if !c.CanManage(b) {
		return []Action{}
	}
	actions := make([]Action, 0, 3)
	if b.Status == models.StatusWaiting {
		actions = append(actions, ActionConfirm)
	}
	return append(actions, ActionEdit, ActionDelete)
}
