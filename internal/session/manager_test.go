package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"salondesk/internal/auth"
	"salondesk/internal/config"
	"salondesk/internal/models"
	"salondesk/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func newManager(t *testing.T, repo *repository.MemoryIdentityRepository) *Manager {
	t.Helper()
	gate, err := auth.NewGate([]models.Credential{
		{Username: "salvatore", Password: "test123", Role: "admin"},
		{Username: "emanuele", Password: "test123", Role: "staff"},
	}, 0, nil)
	require.NoError(t, err)

	m := NewManager(gate, repo, Options{
		Seed: []config.SeedBooking{
			{BookingFields: models.BookingFields{Time: "09:00", Client: "Mario Rossi", Service: models.ServiceHaircutBeard, Barber: "Salvatore"}},
			{BookingFields: models.BookingFields{Time: "10:00", Date: "2025-03-15", Client: "Luigi Bianchi", Service: models.ServiceHaircut, Barber: "Emanuele"}, Status: models.StatusApproved},
		},
		Barbers:  []string{"Salvatore", "Emanuele"},
		ToastTTL: time.Minute,
		Now:      func() time.Time { return today },
	})
	t.Cleanup(m.Close)
	return m
}

func TestLoginOpensSeededDashboard(t *testing.T) {
	m := newManager(t, repository.NewMemoryIdentityRepository(time.Hour))

	token, ctrl, err := m.Login(context.Background(), "Salvatore", "test123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, models.RoleAdmin, ctrl.Identity().Role)

	bookings := ctrl.Bookings()
	require.Len(t, bookings, 2)
	assert.Equal(t, "2025-03-14", bookings[0].Date)
	assert.Equal(t, "2025-03-15", bookings[1].Date)

	toasts := ctrl.Toasts()
	require.Len(t, toasts, 1)
	assert.Equal(t, "Welcome salvatore!", toasts[0].Message)
	assert.Equal(t, 1, m.Active())
}

func TestLoginRejected(t *testing.T) {
	m := newManager(t, repository.NewMemoryIdentityRepository(time.Hour))

	_, _, err := m.Login(context.Background(), "salvatore", "wrong")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, _, err = m.Login(context.Background(), "", "")
	assert.ErrorIs(t, err, auth.ErrMissingCredentials)
	assert.Equal(t, 0, m.Active())
}

func TestSessionsAreIsolated(t *testing.T) {
	m := newManager(t, repository.NewMemoryIdentityRepository(time.Hour))
	ctx := context.Background()

	_, adminCtrl, err := m.Login(ctx, "salvatore", "test123")
	require.NoError(t, err)
	_, staffCtrl, err := m.Login(ctx, "emanuele", "test123")
	require.NoError(t, err)

	_, err = adminCtrl.Delete(ctx, 1)
	require.NoError(t, err)

	assert.Len(t, adminCtrl.Bookings(), 1)
	// staff only sees their own booking and it is untouched
	assert.Len(t, staffCtrl.Bookings(), 1)
}

func TestResolve(t *testing.T) {
	repo := repository.NewMemoryIdentityRepository(time.Hour)
	m := newManager(t, repo)
	ctx := context.Background()

	token, ctrl, err := m.Login(ctx, "emanuele", "test123")
	require.NoError(t, err)

	got, err := m.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Same(t, ctrl, got)

	_, err = m.Resolve(ctx, "nope")
	assert.ErrorIs(t, err, ErrUnknownSession)

	_, err = m.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestResolveRestoresKnownToken(t *testing.T) {
	repo := repository.NewMemoryIdentityRepository(time.Hour)
	ctx := context.Background()
	require.NoError(t, repo.SetIdentity(ctx, "persisted", models.Identity{Username: "emanuele", Role: models.RoleStaff}))

	m := newManager(t, repo)
	ctrl, err := m.Resolve(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, "emanuele", ctrl.Identity().Username)
	assert.Len(t, ctrl.Bookings(), 1)
	assert.Empty(t, ctrl.Toasts())
	assert.Equal(t, 1, m.Active())
}

func TestResolveDropsExpiredToken(t *testing.T) {
	repo := repository.NewMemoryIdentityRepository(time.Hour)
	m := newManager(t, repo)
	ctx := context.Background()

	token, _, err := m.Login(ctx, "salvatore", "test123")
	require.NoError(t, err)
	require.NoError(t, repo.DeleteIdentity(ctx, token))

	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUnknownSession)
	assert.Equal(t, 0, m.Active())
}

func TestSweepDropsExpiredSessions(t *testing.T) {
	m := newManager(t, repository.NewMemoryIdentityRepository(10*time.Millisecond))
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		_, _, err := m.Login(ctx, "salvatore", "test123")
		require.NoError(t, err)
	}
	require.Equal(t, 100, m.Active())

	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 100, m.Sweep(ctx))
	assert.Equal(t, 0, m.Active())
}

func TestSweepKeepsLiveSessions(t *testing.T) {
	repo := repository.NewMemoryIdentityRepository(time.Hour)
	m := newManager(t, repo)
	ctx := context.Background()

	live, _, err := m.Login(ctx, "salvatore", "test123")
	require.NoError(t, err)
	gone, _, err := m.Login(ctx, "emanuele", "test123")
	require.NoError(t, err)
	require.NoError(t, repo.DeleteIdentity(ctx, gone))

	assert.Equal(t, 1, m.Sweep(ctx))
	assert.Equal(t, 1, m.Active())

	_, err = m.Resolve(ctx, live)
	assert.NoError(t, err)
}

func TestSweepKeepsSessionsOnLookupError(t *testing.T) {
	repo := new(failingRepo)
	repo.On("SetIdentity", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	repo.On("GetIdentity", mock.Anything, mock.Anything).Return(nil, errors.New("redis down"))

	gate, err := auth.NewGate([]models.Credential{{Username: "salvatore", Password: "x", Role: "admin"}}, 0, nil)
	require.NoError(t, err)
	m := NewManager(gate, repo, Options{})
	t.Cleanup(m.Close)

	_, _, err = m.Login(context.Background(), "salvatore", "x")
	require.NoError(t, err)

	assert.Equal(t, 0, m.Sweep(context.Background()))
	assert.Equal(t, 1, m.Active())
}

func TestRunJanitor(t *testing.T) {
	m := newManager(t, repository.NewMemoryIdentityRepository(10*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())

	for i := 0; i < 5; i++ {
		_, _, err := m.Login(ctx, "emanuele", "test123")
		require.NoError(t, err)
	}

	done := make(chan struct{})
	go func() {
		m.RunJanitor(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return m.Active() == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop after ctx was cancelled")
	}
}

func TestLogout(t *testing.T) {
	m := newManager(t, repository.NewMemoryIdentityRepository(time.Hour))
	ctx := context.Background()

	token, ctrl, err := m.Login(ctx, "salvatore", "test123")
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx, token))
	assert.Empty(t, ctrl.Toasts())

	_, err = m.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrUnknownSession)

	assert.ErrorIs(t, m.Logout(ctx, token), ErrUnknownSession)
}

type failingRepo struct {
	mock.Mock
}

func (f *failingRepo) GetIdentity(ctx context.Context, token string) (*models.Identity, error) {
	args := f.Called(ctx, token)
	return nil, args.Error(1)
}

func (f *failingRepo) SetIdentity(ctx context.Context, token string, identity models.Identity) error {
	return f.Called(ctx, token, identity).Error(0)
}

func (f *failingRepo) DeleteIdentity(ctx context.Context, token string) error {
	return f.Called(ctx, token).Error(0)
}

func TestLoginRepositoryFailure(t *testing.T) {
	repo := new(failingRepo)
	repo.On("SetIdentity", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))

	gate, err := auth.NewGate([]models.Credential{{Username: "salvatore", Password: "x", Role: "admin"}}, 0, nil)
	require.NoError(t, err)
	m := NewManager(gate, repo, Options{})

	_, _, err = m.Login(context.Background(), "salvatore", "x")
	assert.Error(t, err)
	assert.Equal(t, 0, m.Active())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.Config{Dashboard: config.DashboardConfig{
		ToastTTL:    2 * time.Second,
		MaxToasts:   5,
		ReloadDelay: time.Second,
		Barbers:     []string{"Salvatore"},
	}}

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 2*time.Second, opts.ToastTTL)
	assert.Equal(t, 5, opts.MaxToasts)
	assert.Equal(t, time.Second, opts.ReloadDelay)
	assert.Equal(t, []string{"Salvatore"}, opts.Barbers)
}
