package api

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/taskdesk/taskdesk/client/internal/types"
	"github.com/taskdesk/taskdesk/internal/errors"
)

func TestLogin_Success(t *testing.T) {
	t.Parallel()
	var got types.LoginRequest
	srv := expectCall(t, http.MethodPost, "/api/auth/login", &got, http.StatusOK,
		types.AuthResponse{Token: "tok", User: &types.User{ID: "u1", Email: "a@x.com"}})

	out, err := Login(context.Background(), srv.Client(), srv.URL, types.LoginRequest{Email: "a@x.com", Password: "pw"})
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if out.Token != "tok" || out.User.ID != "u1" {
		t.Fatalf("unexpected response: %+v", out)
	}
	if got.Email != "a@x.com" || got.Password != "pw" {
		t.Fatalf("unexpected request body: %+v", got)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	t.Parallel()
	srv := expectCall(t, http.MethodPost, "/api/auth/login", nil, http.StatusUnauthorized,
		map[string]string{"message": "Invalid email or password"})

	_, err := Login(context.Background(), srv.Client(), srv.URL, types.LoginRequest{Email: "a@x.com", Password: "bad"})
	if !stderrors.Is(err, errors.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
	var ce *errors.ClassifiedError
	if !stderrors.As(err, &ce) || ce.Message != "Invalid email or password" {
		t.Fatalf("expected server message, got %v", err)
	}
}

func TestLogin_InputValidation(t *testing.T) {
	t.Parallel()
	// Missing password should be rejected before HTTP call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request to %s", r.URL.Path)
	}))
	defer srv.Close()
	_, err := Login(context.Background(), srv.Client(), srv.URL, types.LoginRequest{Email: "a@x.com"})
	if !stderrors.Is(err, errors.ErrValidationFailed) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLogin_MissingTokenIsMalformed(t *testing.T) {
	t.Parallel()
	srv := expectCall(t, http.MethodPost, "/api/auth/login", nil, http.StatusOK,
		map[string]any{"user": map[string]string{"id": "u1"}})

	out, err := Login(context.Background(), srv.Client(), srv.URL, types.LoginRequest{Email: "a@x.com", Password: "pw"})
	if out != nil || !stderrors.Is(err, errors.ErrUnreachable) {
		t.Fatalf("expected malformed response error, got out=%+v err=%v", out, err)
	}
}

func TestRegister_Conflict(t *testing.T) {
	t.Parallel()
	srv := expectCall(t, http.MethodPost, "/api/auth/register", nil, http.StatusConflict,
		map[string]string{"message": "User already exists"})

	_, err := Register(context.Background(), srv.Client(), srv.URL, types.RegisterRequest{Name: "A", Email: "a@x.com", Password: "pw"})
	if !stderrors.Is(err, errors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegister_Success(t *testing.T) {
	t.Parallel()
	var got types.RegisterRequest
	srv := expectCall(t, http.MethodPost, "/api/auth/register", &got, http.StatusCreated,
		types.AuthResponse{Token: "tok", User: &types.User{ID: "u1", Name: "A"}})

	out, err := Register(context.Background(), srv.Client(), srv.URL, types.RegisterRequest{Name: "A", Email: "a@x.com", Password: "pw"})
	if err != nil || out.User.Name != "A" {
		t.Fatalf("Register unexpected: out=%+v err=%v", out, err)
	}
	if got.Name != "A" {
		t.Fatalf("unexpected request body: %+v", got)
	}
}

func TestProfile_Success(t *testing.T) {
	t.Parallel()
	srv := expectCall(t, http.MethodGet, "/api/user/profile", nil, http.StatusOK,
		types.ProfileResponse{User: &types.User{ID: "u1"}})

	u, err := Profile(context.Background(), srv.Client(), srv.URL)
	if err != nil || u.ID != "u1" {
		t.Fatalf("Profile unexpected: u=%+v err=%v", u, err)
	}
}

func TestProfile_DecodeError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("{bad json"))
	}))
	defer srv.Close()
	if _, err := Profile(context.Background(), srv.Client(), srv.URL); !stderrors.Is(err, errors.ErrUnreachable) {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

func TestAuth_CtxCanceled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dummy := httptest.NewServer(http.NotFoundHandler())
	defer dummy.Close()
	if _, err := Login(ctx, dummy.Client(), dummy.URL, types.LoginRequest{Email: "a@x.com", Password: "pw"}); !stderrors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
}

func TestAuth_HTTPDoError(t *testing.T) {
	t.Parallel()
	hc := &http.Client{Transport: &errRT{}}
	if _, err := Login(context.Background(), hc, "http://example.com", types.LoginRequest{Email: "a@x.com", Password: "pw"}); !stderrors.Is(err, errors.ErrUnreachable) {
		t.Fatalf("expected unreachable for Login, got %v", err)
	}
	if _, err := Profile(context.Background(), hc, "http://example.com"); !stderrors.Is(err, errors.ErrUnreachable) {
		t.Fatalf("expected unreachable for Profile, got %v", err)
	}
}
