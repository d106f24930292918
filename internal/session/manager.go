// Package session keeps the signed-in dashboards of this process, keyed by
// bearer token.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"salondesk/internal/booking"
	"salondesk/internal/config"
	"salondesk/internal/dashboard"
	"salondesk/internal/domain"
	"salondesk/internal/logging"
	"salondesk/internal/metrics"
	"salondesk/internal/models"
	"salondesk/internal/notify"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var ErrUnknownSession = errors.New("unknown or expired session")

type Options struct {
	Seed        []config.SeedBooking
	Barbers     []string
	ToastTTL    time.Duration
	MaxToasts   int
	ReloadDelay time.Duration
	Events      domain.EventPublisher
	Logger      *zerolog.Logger
	Now         func() time.Time
}

// OptionsFromConfig collects the dashboard settings of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Seed:        cfg.Dashboard.Seed,
		Barbers:     cfg.Dashboard.Barbers,
		ToastTTL:    cfg.Dashboard.ToastTTL,
		MaxToasts:   cfg.Dashboard.MaxToasts,
		ReloadDelay: cfg.Dashboard.ReloadDelay,
	}
}

type Manager struct {
	auth   domain.Authenticator
	repo   domain.IdentityRepository
	opts   Options
	logger zerolog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*dashboard.Controller
}

func NewManager(auth domain.Authenticator, repo domain.IdentityRepository, opts Options) *Manager {
	logger := logging.Component(opts.Logger, "session")
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	return &Manager{
		auth:     auth,
		repo:     repo,
		opts:     opts,
		logger:   logger,
		now:      now,
		sessions: make(map[string]*dashboard.Controller),
	}
}

// Login checks the credentials and opens a fresh dashboard for them.
func (m *Manager) Login(ctx context.Context, username, password string) (string, *dashboard.Controller, error) {
	identity, err := m.auth.Authenticate(ctx, username, password)
	if err != nil {
		metrics.IncLogin("failure")
		return "", nil, err
	}
	metrics.IncLogin("success")

	token := uuid.NewString()
	if err := m.repo.SetIdentity(ctx, token, identity); err != nil {
		return "", nil, fmt.Errorf("store session: %w", err)
	}

	ctrl, err := m.attach(token, identity)
	if err != nil {
		_ = m.repo.DeleteIdentity(ctx, token)
		return "", nil, err
	}
	ctrl.Start()

	m.logger.Info().Str("username", identity.Username).Msg("session opened")
	return token, ctrl, nil
}

// Resolve returns the dashboard behind token. A token known to the repository
// but not to this process, for example after a restart, gets a freshly seeded
// dashboard.
func (m *Manager) Resolve(ctx context.Context, token string) (*dashboard.Controller, error) {
	if token == "" {
		return nil, ErrUnknownSession
	}

	identity, err := m.repo.GetIdentity(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if identity == nil {
		m.drop(token)
		return nil, ErrUnknownSession
	}

	m.mu.Lock()
	ctrl, ok := m.sessions[token]
	m.mu.Unlock()
	if ok {
		return ctrl, nil
	}

	ctrl, err = m.attach(token, *identity)
	if err != nil {
		return nil, err
	}
	m.logger.Info().Str("username", identity.Username).Msg("session restored")
	return ctrl, nil
}

// Logout revokes token and tears its dashboard down.
func (m *Manager) Logout(ctx context.Context, token string) error {
	found := m.drop(token)
	if err := m.repo.DeleteIdentity(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if !found {
		return ErrUnknownSession
	}
	return nil
}

// Sweep drops the dashboards whose tokens the repository no longer knows and
// returns how many were removed. Lookup failures keep the dashboard.
func (m *Manager) Sweep(ctx context.Context) int {
	m.mu.Lock()
	tokens := make([]string, 0, len(m.sessions))
	for token := range m.sessions {
		tokens = append(tokens, token)
	}
	m.mu.Unlock()

	removed := 0
	for _, token := range tokens {
		if ctx.Err() != nil {
			break
		}
		identity, err := m.repo.GetIdentity(ctx, token)
		if err != nil {
			m.logger.Warn().Err(err).Msg("sweep: load session failed")
			continue
		}
		if identity == nil && m.drop(token) {
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info().Int("removed", removed).Msg("expired sessions swept")
	}
	return removed
}

// RunJanitor sweeps every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(ctx)
		}
	}
}

// Active returns the number of dashboards held by this process.
func (m *Manager) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close tears down every dashboard without revoking tokens.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*dashboard.Controller)
	m.mu.Unlock()

	for _, ctrl := range sessions {
		ctrl.Close()
		metrics.DecSessions()
	}
}

// attach returns the dashboard registered under token, building one if
// needed.
func (m *Manager) attach(token string, identity models.Identity) (*dashboard.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ctrl, ok := m.sessions[token]; ok {
		return ctrl, nil
	}

	ctrl, err := m.build(identity)
	if err != nil {
		return nil, err
	}
	m.sessions[token] = ctrl
	metrics.IncSessions()
	return ctrl, nil
}

func (m *Manager) drop(token string) bool {
	m.mu.Lock()
	ctrl, ok := m.sessions[token]
	delete(m.sessions, token)
	m.mu.Unlock()

	if ok {
		ctrl.Close()
		metrics.DecSessions()
	}
	return ok
}

func (m *Manager) build(identity models.Identity) (*dashboard.Controller, error) {
	store, err := booking.NewStore(m.seed()...)
	if err != nil {
		return nil, fmt.Errorf("seed bookings: %w", err)
	}

	notifier := notify.New(m.opts.ToastTTL, m.opts.MaxToasts)
	notifier.OnChange(metrics.ToastTracker())

	logger := m.logger
	return dashboard.New(identity, store, notifier, dashboard.Options{
		Barbers: m.opts.Barbers,
		Reload:  dashboard.DelayReloader(m.opts.ReloadDelay),
		Events:  m.opts.Events,
		Logger:  &logger,
		Now:     m.now,
	}), nil
}

// seed converts the configured demo bookings. Bookings without a date land on
// today.
func (m *Manager) seed() []booking.Seed {
	today := m.now().Format(models.DateLayout)
	out := make([]booking.Seed, 0, len(m.opts.Seed))
	for _, s := range m.opts.Seed {
		fields := s.BookingFields
		if fields.Date == "" {
			fields.Date = today
		}
		out = append(out, booking.Seed{Fields: fields, Status: s.Status})
	}
	return out
}
