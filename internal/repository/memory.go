package repository

import (
	"context"
	"sync"
	"time"

	"salondesk/internal/models"
)

type memoryEntry struct {
	identity  models.Identity
	expiresAt time.Time
}

// MemoryIdentityRepository keeps session tokens in process memory.
type MemoryIdentityRepository struct {
	entries sync.Map
	ttl     time.Duration
}

func NewMemoryIdentityRepository(ttl time.Duration) *MemoryIdentityRepository {
	return &MemoryIdentityRepository{
		ttl: ttl,
	}
}

func (r *MemoryIdentityRepository) GetIdentity(ctx context.Context, token string) (*models.Identity, error) {
	val, ok := r.entries.Load(token)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryEntry)
	if r.ttl > 0 && time.Now().After(entry.expiresAt) {
		r.entries.Delete(token)
		return nil, nil
	}
	identity := entry.identity
	return &identity, nil
}

func (r *MemoryIdentityRepository) SetIdentity(ctx context.Context, token string, identity models.Identity) error {
	r.entries.Store(token, &memoryEntry{
		identity:  identity,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryIdentityRepository) DeleteIdentity(ctx context.Context, token string) error {
	r.entries.Delete(token)
	return nil
}
