package hooks

import (
	"context"

	"jabbusiness-client-go/internal/domain/eventbus"
	"jabbusiness-client-go/internal/domain/models"
	platformerrors "jabbusiness-client-go/internal/platform/errors"
	"jabbusiness-client-go/internal/platform/logging"
	"jabbusiness-client-go/internal/querycache"
)

const loginFailed = "Login failed"

// Auth manages login state. The session store is the only place the token
// lives; the api client reads it on every request.
type Auth struct {
	h     *Hooks
	login *querycache.Mutation[models.LoginPayload, *models.LoginResponse]
}

func newAuth(h *Hooks) *Auth {
	a := &Auth{h: h}
	a.login = querycache.NewMutation(h.cache, a.doLogin,
		querycache.MutationOptions[models.LoginPayload, *models.LoginResponse]{
			OnSuccess: func(_ models.LoginPayload, resp *models.LoginResponse) {
				h.notify(eventbus.TopicNotifySuccess, "Login successful!", "")
				email := ""
				if resp.User != nil {
					email = resp.User.Email
				}
				h.publishSession(true, email)
			},
			OnError: func(_ models.LoginPayload, err error) {
				msg := platformerrors.MessageOf(err)
				if msg == "" {
					msg = loginFailed
				}
				h.notify(eventbus.TopicNotifyError, msg, "")
			},
		})
	return a
}

func (h *Hooks) Auth() *Auth { return h.auth }

// doLogin persists the session only when the backend reports success and
// returns a token. A rejected login leaves the store untouched.
func (a *Auth) doLogin(ctx context.Context, payload models.LoginPayload) (*models.LoginResponse, error) {
	resp, err := a.h.api.Auth.Login(ctx, payload)
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.Token == "" {
		msg := resp.Error
		if msg == "" {
			msg = loginFailed
		}
		return resp, platformerrors.New(platformerrors.KindAPI, "auth.login", msg)
	}
	if err := a.h.session.Save(ctx, resp.Token, resp.User); err != nil {
		return resp, err
	}
	a.h.logger.InfoTag(logging.TagAuth, "logged in as %s", userEmail(resp.User))
	return resp, nil
}

// Login authenticates and stores the session on success.
func (a *Auth) Login(ctx context.Context, payload models.LoginPayload) (*models.LoginResponse, error) {
	return a.login.Mutate(ctx, payload)
}

// IsPending is true while a login request is in flight.
func (a *Auth) IsPending() bool { return a.login.IsPending() }

// Logout clears the session before returning.
func (a *Auth) Logout(ctx context.Context) error {
	if err := a.h.session.Clear(ctx); err != nil {
		a.h.notify(eventbus.TopicNotifyError, "Logout failed", platformerrors.MessageOf(err))
		return err
	}
	a.h.logger.InfoTag(logging.TagAuth, "logged out")
	a.h.notify(eventbus.TopicNotifySuccess, "Logged out successfully", "")
	a.h.publishSession(false, "")
	return nil
}

func (a *Auth) IsAuthenticated(ctx context.Context) bool {
	return a.h.session.IsAuthenticated(ctx)
}

// User returns the stored user, or nil when there is no token.
func (a *Auth) User(ctx context.Context) *models.User {
	return a.h.session.User(ctx)
}

// Token returns the raw stored token.
func (a *Auth) Token(ctx context.Context) string {
	return a.h.session.Token(ctx)
}

func (h *Hooks) publishSession(authenticated bool, email string) {
	if h.bus == nil {
		return
	}
	h.bus.PublishAsync(eventbus.TopicSessionChanged, eventbus.SessionEvent{
		Authenticated: authenticated,
		Email:         email,
	})
}

func userEmail(u *models.User) string {
	if u == nil {
		return "unknown user"
	}
	return u.Email
}
