package repository

import (
	"context"
	"sync/atomic"
	"time"

	"salondesk/internal/domain"
	"salondesk/internal/models"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverIdentityRepository reads and writes sessions through primary and
// switches to fallback while primary is failing. Primary is retried once per
// recoveryInterval.
type FailoverIdentityRepository struct {
	primary   domain.IdentityRepository
	fallback  domain.IdentityRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverIdentityRepository(primary, fallback domain.IdentityRepository, logger *zerolog.Logger) *FailoverIdentityRepository {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &FailoverIdentityRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverIdentityRepository) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary session repository failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

// usePrimary reports whether the next call should go to primary.
func (r *FailoverIdentityRepository) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverIdentityRepository) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary session repository recovered")
	}
}

func (r *FailoverIdentityRepository) GetIdentity(ctx context.Context, token string) (*models.Identity, error) {
	if r.usePrimary() {
		identity, err := r.primary.GetIdentity(ctx, token)
		if err == nil {
			r.recovered()
			if identity != nil {
				return identity, nil
			}
			// sessions opened during an outage live only in fallback
			return r.fallback.GetIdentity(ctx, token)
		}
		r.markDown(err)
	}

	return r.fallback.GetIdentity(ctx, token)
}

func (r *FailoverIdentityRepository) SetIdentity(ctx context.Context, token string, identity models.Identity) error {
	if r.usePrimary() {
		err := r.primary.SetIdentity(ctx, token, identity)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.SetIdentity(ctx, token, identity)
}

func (r *FailoverIdentityRepository) DeleteIdentity(ctx context.Context, token string) error {
	// fallback may hold a copy written during an outage
	fallbackErr := r.fallback.DeleteIdentity(ctx, token)

	if r.usePrimary() {
		err := r.primary.DeleteIdentity(ctx, token)
		if err == nil {
			r.recovered()
			return fallbackErr
		}
		r.markDown(err)
	}

	return fallbackErr
}

// Degraded reports whether calls are currently served by fallback.
func (r *FailoverIdentityRepository) Degraded() bool {
	return r.isDown.Load()
}
