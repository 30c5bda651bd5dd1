package apiclient

import (
	"context"
	"net/http"

	"jabbusiness-client-go/internal/domain/models"
)

const pathLogin = "/clients/auth/login"

// AuthClient exchanges credentials for a token. It does not persist
// anything; storing the session is the caller's decision.
type AuthClient struct {
	c *Client
}

func (a *AuthClient) Login(ctx context.Context, payload models.LoginPayload) (*models.LoginResponse, error) {
	var out models.LoginResponse
	if err := a.c.Do(ctx, http.MethodPost, pathLogin, payload, &out, nil); err != nil {
		return nil, err
	}
	return &out, nil
}
