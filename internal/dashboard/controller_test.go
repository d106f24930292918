package dashboard

import (
	"context"
	"testing"
	"time"

	"salondesk/internal/booking"
	"salondesk/internal/events"
	"salondesk/internal/models"
	"salondesk/internal/notify"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(et string, p interface{}) error { return m.Called(et, p).Error(0) }

var (
	admin = models.Identity{Username: "salvatore", Role: models.RoleAdmin}
	staff = models.Identity{Username: "emanuele", Role: models.RoleStaff}
	today = time.Date(2025, 3, 14, 15, 30, 0, 0, time.UTC)
)

type fixture struct {
	ctrl     *Controller
	store    *booking.Store
	notifier *notify.Service
	bus      *mockEventBus
}

func newFixture(t *testing.T, id models.Identity) *fixture {
	t.Helper()
	store, err := booking.NewStore(
		booking.Seed{Fields: models.BookingFields{Time: "09:00", Client: "Mario Rossi", Service: models.ServiceHaircutBeard, Barber: "Salvatore"}},
		booking.Seed{Fields: models.BookingFields{Time: "10:00", Client: "Luigi Bianchi", Service: models.ServiceHaircut, Barber: "Emanuele"}, Status: models.StatusApproved},
	)
	require.NoError(t, err)

	notifier := notify.New(time.Minute, 10)
	t.Cleanup(notifier.Close)

	bus := new(mockEventBus)
	bus.On("PublishJSON", mock.Anything, mock.Anything).Return(nil)

	ctrl := New(id, store, notifier, Options{
		Barbers: []string{"Salvatore", "Emanuele"},
		Events:  bus,
		Now:     func() time.Time { return today },
	})
	return &fixture{ctrl: ctrl, store: store, notifier: notifier, bus: bus}
}

func lastToast(t *testing.T, f *fixture) models.Toast {
	t.Helper()
	toasts := f.notifier.List()
	require.NotEmpty(t, toasts)
	return toasts[len(toasts)-1]
}

func TestAdminSeesEverything(t *testing.T) {
	f := newFixture(t, admin)

	list := f.ctrl.Bookings()
	require.Len(t, list, 2)
	assert.Equal(t, models.Stats{Total: 2, Waiting: 1, Approved: 1}, f.ctrl.Stats())
}

func TestStaffSeesOwnBookings(t *testing.T) {
	f := newFixture(t, staff)

	list := f.ctrl.Bookings()
	require.Len(t, list, 1)
	assert.Equal(t, int64(2), list[0].ID)

	stats := f.ctrl.Stats()
	assert.Equal(t, stats.Total, stats.Waiting+stats.Approved)
	assert.Equal(t, models.Stats{Total: 1, Approved: 1}, stats)
}

func TestStaffCannotConfirmOthersBooking(t *testing.T) {
	f := newFixture(t, staff)

	other, err := f.store.Get(1)
	require.NoError(t, err)
	assert.Empty(t, f.ctrl.Actions(other), "no action is offered")

	_, err = f.ctrl.OpenConfirm(1)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.ctrl.Confirm(context.Background(), 1)
	assert.ErrorIs(t, err, ErrForbidden)

	still, _ := f.store.Get(1)
	assert.Equal(t, models.StatusWaiting, still.Status)
	assert.Equal(t, models.ToastError, lastToast(t, f).Kind)
}

func TestActions(t *testing.T) {
	f := newFixture(t, admin)

	waiting, _ := f.store.Get(1)
	approved, _ := f.store.Get(2)

	assert.Equal(t, []Action{ActionConfirm, ActionEdit, ActionDelete}, f.ctrl.Actions(waiting))
	assert.Equal(t, []Action{ActionEdit, ActionDelete}, f.ctrl.Actions(approved))
}

func TestAddNotifiesAndPublishes(t *testing.T) {
	f := newFixture(t, admin)

	b, err := f.ctrl.Add(context.Background(), models.BookingFields{
		Client: "Mario", Service: models.ServiceHaircut, Barber: "Salvatore", Time: "09:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusWaiting, b.Status)
	assert.Equal(t, int64(3), b.ID)
	assert.Equal(t, "2025-03-14", b.Date, "date defaults to the selected day")

	toast := lastToast(t, f)
	assert.Equal(t, models.ToastSuccess, toast.Kind)
	assert.Equal(t, "Booking for Mario added successfully", toast.Message)

	f.bus.AssertCalled(t, "PublishJSON", events.EventBookingCreated, mock.MatchedBy(func(p events.BookingEventPayload) bool {
		return p.BookingID == 3 && p.ChangedBy == "salvatore"
	}))
}

func TestStaffAddIsForcedToSelf(t *testing.T) {
	f := newFixture(t, staff)

	b, err := f.ctrl.Add(context.Background(), models.BookingFields{
		Client: "Anna", Service: models.ServiceBeard, Barber: "Salvatore", Time: "16:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "emanuele", b.Barber)
	assert.Len(t, f.ctrl.Bookings(), 2)
}

func TestAddInvalidService(t *testing.T) {
	f := newFixture(t, admin)

	_, err := f.ctrl.Add(context.Background(), models.BookingFields{Client: "X", Service: "Massage"})
	assert.ErrorIs(t, err, booking.ErrInvalidService)
	assert.Equal(t, models.ToastError, lastToast(t, f).Kind)
	assert.Len(t, f.ctrl.Bookings(), 2)
}

func TestEditKeepsStatus(t *testing.T) {
	f := newFixture(t, admin)

	fields := models.BookingFields{Time: "18:00", Date: "2025-03-15", Client: "Luigi B.", Service: models.ServiceBeard, Barber: "Salvatore"}
	b, err := f.ctrl.Edit(context.Background(), 2, fields)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, b.Status)
	assert.Equal(t, fields, b.Fields())
	assert.Equal(t, "Booking updated successfully", lastToast(t, f).Message)
}

func TestStaffEditCannotReassign(t *testing.T) {
	f := newFixture(t, staff)

	b, err := f.ctrl.Edit(context.Background(), 2, models.BookingFields{Client: "Luigi", Service: models.ServiceHaircut, Barber: "Salvatore"})
	require.NoError(t, err)
	assert.Equal(t, "emanuele", b.Barber)
}

func TestConfirmTwice(t *testing.T) {
	f := newFixture(t, admin)
	ctx := context.Background()

	first, err := f.ctrl.Confirm(ctx, 1)
	require.NoError(t, err)
	second, err := f.ctrl.Confirm(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, models.StatusApproved, second.Status)
	assert.Equal(t, first, second)
	assert.Equal(t, "Booking for Mario Rossi confirmed successfully", lastToast(t, f).Message)
}

func TestDeleteNamesClient(t *testing.T) {
	f := newFixture(t, admin)
	ctx := context.Background()

	removed, err := f.ctrl.Delete(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Luigi Bianchi", removed.Client)
	assert.Equal(t, "Booking for Luigi Bianchi deleted successfully", lastToast(t, f).Message)

	for _, b := range f.ctrl.Bookings() {
		assert.NotEqual(t, int64(2), b.ID)
	}

	_, err = f.ctrl.Confirm(ctx, 2)
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.Equal(t, "Booking no longer exists, refresh", lastToast(t, f).Message)

	_, err = f.ctrl.Edit(ctx, 2, models.BookingFields{Service: models.ServiceBeard})
	assert.ErrorIs(t, err, booking.ErrNotFound)
	_, err = f.ctrl.Delete(ctx, 2)
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestStartAndClose(t *testing.T) {
	f := newFixture(t, admin)

	f.ctrl.Start()
	assert.Equal(t, "Welcome salvatore!", lastToast(t, f).Message)
	f.bus.AssertCalled(t, "PublishJSON", events.EventSessionStarted, mock.Anything)

	f.ctrl.Close()
	assert.Empty(t, f.ctrl.Toasts())
	f.bus.AssertCalled(t, "PublishJSON", events.EventSessionEnded, mock.Anything)
}

func TestView(t *testing.T) {
	f := newFixture(t, staff)

	v := f.ctrl.View()
	assert.Equal(t, staff, v.Identity)
	assert.Equal(t, "2025-03-14", v.SelectedDate)
	assert.Equal(t, []string{"emanuele"}, v.Barbers)
	assert.Equal(t, models.Services, v.Services)
	require.Len(t, v.Bookings, 1)
	assert.Equal(t, []Action{ActionEdit, ActionDelete}, v.Bookings[0].Actions)
	assert.Nil(t, v.Modal)

	adminView := newFixture(t, admin).ctrl.View()
	assert.Equal(t, []string{"Salvatore", "Emanuele"}, adminView.Barbers)
}
