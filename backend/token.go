package backend

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"matchgate/fault"
)

// IssueFunc obtains a fresh credential from the backend.
type IssueFunc func(ctx context.Context) (Credential, error)

// TokenManager owns the process-wide credential cache for backend calls.
// Refreshes are exclusive: concurrent callers arriving on an empty or
// expired cache wait for the single in-flight refresh and share its result.
type TokenManager struct {
	mu    sync.Mutex
	cred  Credential
	issue IssueFunc
	now   func() time.Time
}

func NewTokenManager(issue IssueFunc) *TokenManager {
	return &TokenManager{issue: issue, now: time.Now}
}

// EnsureValid returns the cached credential, refreshing it first if it is
// missing or expired. Safe for concurrent use.
func (m *TokenManager) EnsureValid(ctx context.Context) (Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cred.Valid(m.now()) {
		return m.cred, nil
	}

	log.Debug().Time("expires", m.cred.Expires).Msg("token: refreshing entity token")
	cred, err := m.issue(ctx)
	if err != nil {
		log.Error().Err(err).Msg("token: entity token issuance failed")
		return Credential{}, fault.Wrap(fault.Auth, err, "entity token issuance failed")
	}
	m.cred = cred
	log.Info().Time("expires", cred.Expires).Msg("token: entity token refreshed")
	return m.cred, nil
}
