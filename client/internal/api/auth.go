package api

import (
	"context"
	"net/http"

	"github.com/taskdesk/taskdesk/client/internal/types"
)

// Paths under AuthPrefix are sent without a bearer credential.
const AuthPrefix = "/api/auth/"

// Login exchanges email and password for a token and the user record.
func Login(ctx context.Context, httpClient types.HTTPClient, baseURL string, req types.LoginRequest) (*types.AuthResponse, error) {
	var out types.AuthResponse
	if err := send(ctx, httpClient, http.MethodPost, endpoint(baseURL, AuthPrefix+"login"), "login", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its token and user record.
// A duplicate email yields a Conflict error.
func Register(ctx context.Context, httpClient types.HTTPClient, baseURL string, req types.RegisterRequest) (*types.AuthResponse, error) {
	var out types.AuthResponse
	if err := send(ctx, httpClient, http.MethodPost, endpoint(baseURL, AuthPrefix+"register"), "register", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Profile resolves the user behind the current credential.
func Profile(ctx context.Context, httpClient types.HTTPClient, baseURL string) (*types.User, error) {
	var out types.ProfileResponse
	if err := send(ctx, httpClient, http.MethodGet, endpoint(baseURL, "/api/user/profile"), "profile", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}
