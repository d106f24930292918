// Package auth checks logins against the static credential table from config.
//
// This is a convenience gate for a demo dashboard, not a security boundary:
// passwords are stored in plain text, and there is no lockout or hashing.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"salondesk/internal/models"

	"github.com/rs/zerolog"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrMissingCredentials = errors.New("username and password are required")
)

type account struct {
	password string
	role     models.Role
}

type Gate struct {
	accounts map[string]account
	delay    time.Duration
	logger   *zerolog.Logger
}

// NewGate builds the lookup table. Usernames are matched case-insensitively.
func NewGate(users []models.Credential, delay time.Duration, logger *zerolog.Logger) (*Gate, error) {
	accounts := make(map[string]account, len(users))
	for _, u := range users {
		name := normalize(u.Username)
		role, err := models.ParseRole(u.Role)
		if err != nil {
			return nil, fmt.Errorf("user %s: %w", name, err)
		}
		accounts[name] = account{password: u.Password, role: role}
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Gate{accounts: accounts, delay: delay, logger: logger}, nil
}

// Authenticate returns the identity for a username/password pair. The
// configured delay imitates a network round trip and is cut short by ctx.
func (g *Gate) Authenticate(ctx context.Context, username, password string) (models.Identity, error) {
	name := normalize(username)
	if name == "" || password == "" {
		return models.Identity{}, ErrMissingCredentials
	}

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return models.Identity{}, ctx.Err()
		case <-timer.C:
		}
	}

	acc, ok := g.accounts[name]
	if !ok || subtle.ConstantTimeCompare([]byte(acc.password), []byte(password)) != 1 {
		g.logger.Warn().Str("username", name).Msg("login rejected")
		return models.Identity{}, ErrInvalidCredentials
	}

	g.logger.Info().Str("username", name).Str("role", string(acc.role)).Msg("login accepted")
	return models.Identity{Username: name, Role: acc.role}, nil
}

func normalize(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
