package session

import (
	"context"
	"errors"
	"sync"

	"github.com/bytedance/sonic"

	"jabbusiness-client-go/internal/domain/models"
	"jabbusiness-client-go/internal/domain/session/store"
	platformerrors "jabbusiness-client-go/internal/platform/errors"
	"jabbusiness-client-go/internal/platform/logging"
)

// Persisted keys. Their names are part of the on-disk contract.
const (
	KeyToken = "token"
	KeyUser  = "user"
)

// Options encapsulates the dependencies required to construct a Manager.
type Options struct {
	Store  store.Store
	Logger *logging.Logger
}

// Manager owns the single client session. A token alone is enough to be
// authenticated; the user record is informational.
type Manager struct {
	store  store.Store
	logger *logging.Logger
	// mu orders writers so Save and Clear never interleave.
	mu sync.Mutex
}

// NewManager wires a Manager using the supplied options.
func NewManager(opts Options) (*Manager, error) {
	if opts.Store == nil {
		return nil, errors.New("session manager requires a store")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Manager{store: opts.Store, logger: opts.Logger}, nil
}

// Save persists the token first and then the user, so a reader never sees
// a user without a token. A nil user leaves any previous user removed. When
// the user cannot be written the whole session is dropped, so a new token
// never sits next to an older user.
func (m *Manager) Save(ctx context.Context, token string, user *models.User) error {
	if token == "" {
		return platformerrors.New(platformerrors.KindValidation, "session.save", "empty token")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Set(ctx, KeyToken, token); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "session.save", "failed to persist token", err)
	}
	if user == nil {
		if err := m.store.Remove(ctx, KeyUser); err != nil {
			return platformerrors.Wrap(platformerrors.KindStorage, "session.save", "failed to drop stale user", err)
		}
		m.logger.InfoTag(logging.TagSession, "session saved")
		return nil
	}

	raw, err := sonic.Marshal(user)
	if err != nil {
		m.rollback(ctx)
		return platformerrors.Wrap(platformerrors.KindStorage, "session.save", "failed to encode user", err)
	}
	if err := m.store.Set(ctx, KeyUser, string(raw)); err != nil {
		m.rollback(ctx)
		return platformerrors.Wrap(platformerrors.KindStorage, "session.save", "failed to persist user", err)
	}
	m.logger.InfoTag(logging.TagSession, "session saved for %s", user.Email)
	return nil
}

// rollback drops a half-written session. Caller holds mu.
func (m *Manager) rollback(ctx context.Context) {
	if err := m.store.Remove(ctx, KeyToken, KeyUser); err != nil {
		m.logger.WarnTag(logging.TagSession, "rollback failed: %v", err)
	}
}

// Token returns the stored bearer token or "" when there is none. Storage
// failures are logged and read as "no token".
func (m *Manager) Token(ctx context.Context) string {
	token, ok, err := m.store.Get(ctx, KeyToken)
	if err != nil {
		m.logger.WarnTag(logging.TagSession, "read token failed: %v", err)
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

// User returns the stored user, or nil when no token is present or the
// record is missing or unreadable.
func (m *Manager) User(ctx context.Context) *models.User {
	if m.Token(ctx) == "" {
		return nil
	}
	raw, ok, err := m.store.Get(ctx, KeyUser)
	if err != nil || !ok || raw == "" {
		return nil
	}
	var user models.User
	if err := sonic.UnmarshalString(raw, &user); err != nil {
		m.logger.WarnTag(logging.TagSession, "stored user is corrupt: %v", err)
		return nil
	}
	return &user
}

func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	return m.Token(ctx) != ""
}

// Clear removes both session keys.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.Remove(ctx, KeyToken, KeyUser); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "session.clear", "failed to clear session", err)
	}
	m.logger.InfoTag(logging.TagSession, "session cleared")
	return nil
}

func (m *Manager) Stats(ctx context.Context) (map[string]any, error) {
	return m.store.Stats(ctx)
}

func (m *Manager) Close(ctx context.Context) error {
	return m.store.Close(ctx)
}
