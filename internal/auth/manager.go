package auth

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/glowpull/glowpull/internal/metrics"
)

// Authenticator performs a live credential exchange against the upstream
// auth endpoint.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*Token, error)
}

// Credentials are the upstream account credentials.
type Credentials struct {
	Username string
	Password string
}

// Manager decides between reusing a cached token and performing a live
// auth request.
type Manager struct {
	auth      Authenticator
	store     Store
	creds     Credentials
	cachePath string // empty disables caching entirely
	logger    logrus.FieldLogger

	now func() time.Time
}

// NewManager builds a Manager. An empty cachePath means every Obtain call
// performs a live auth request and nothing is persisted.
func NewManager(a Authenticator, store Store, creds Credentials, cachePath string, logger logrus.FieldLogger) *Manager {
	return &Manager{
		auth:      a,
		store:     store,
		creds:     creds,
		cachePath: cachePath,
		logger:    logger,
		now:       time.Now,
	}
}

// Obtain returns a usable token.
//
// With a cache path configured it tries the cached token first and falls
// back to a live request on any load failure or expiry, persisting the
// fresh token afterwards. Persisting is best-effort: a save failure is
// logged and the token still returned. A live auth failure is fatal for
// the run and returned unwrapped for the caller to abort on.
func (m *Manager) Obtain(ctx context.Context) (*Token, error) {
	if m.cachePath == "" {
		return m.refresh(ctx)
	}

	cached, err := m.store.Load(m.cachePath)
	if err == nil {
		if verr := cached.Validate(m.now()); verr == nil {
			m.logger.WithField("cache", m.cachePath).Debug("reusing cached token")
			return cached, nil
		} else {
			m.logger.WithField("reason", verr.Error()).Info("cached token unusable, refreshing")
		}
	} else {
		m.logger.WithField("reason", err.Error()).Info("token cache miss, refreshing")
	}

	tok, err := m.refresh(ctx)
	if err != nil {
		return nil, err
	}

	if serr := m.store.Save(m.cachePath, tok); serr != nil {
		m.logger.WithError(serr).Warn("failed to persist token cache")
	}
	return tok, nil
}

func (m *Manager) refresh(ctx context.Context) (*Token, error) {
	metrics.AuthRefreshes.Inc()
	return m.auth.Authenticate(ctx, m.creds.Username, m.creds.Password)
}
