package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/taskdesk/taskdesk/client/internal/api"
	"github.com/taskdesk/taskdesk/client/internal/types"
)

// --------------------------------------------------------------------
// Client core
// --------------------------------------------------------------------

// Client is a typed client for the taskdesk HTTP API. It is safe for
// concurrent use; the bearer credential can be swapped at any time with
// SetCredential.
type Client struct {
	baseURL    string
	http       *http.Client
	credential atomic.Pointer[string]
	log        zerolog.Logger
	debug      bool
}

// New constructs a Client for baseURL. Additional options can be provided via
// functional arguments.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		log:     log.Logger,
	}

	// Auto-enable debug via env variable without changing code.
	if debugLoggingRequested() {
		opts = append(opts, WithDebugLogging(true))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	c.log = c.log.With().Str("component", "client").Logger()
	c.wrapTransport()
	return c, nil
}

// wrapTransport layers the round trippers: credential and request id on the
// outside, then metrics, then the optional debug dump, then the base.
func (c *Client) wrapTransport() {
	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	if c.debug {
		base = &debugTransport{base: base, log: c.log}
	}
	c.http.Transport = &authTransport{
		base:       instrumentTransport(base),
		credential: c.Credential,
	}
}

// SetCredential replaces the bearer credential sent with subsequent requests.
// An empty string removes the Authorization header.
func (c *Client) SetCredential(token string) {
	c.credential.Store(&token)
}

// Credential returns the current bearer credential, or "".
func (c *Client) Credential() string {
	if p := c.credential.Load(); p != nil {
		return *p
	}
	return ""
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// authTransport adds the Authorization and X-Request-ID headers.
type authTransport struct {
	base       http.RoundTripper
	credential func() string
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// Clone the request to avoid modifying the original
	cloned := req.Clone(req.Context())
	if cloned.Header.Get("X-Request-ID") == "" {
		cloned.Header.Set("X-Request-ID", uuid.NewString())
	}
	if token := t.credential(); token != "" && !strings.Contains(cloned.URL.Path, api.AuthPrefix) {
		cloned.Header.Set("Authorization", "Bearer "+token)
	}
	return t.base.RoundTrip(cloned)
}

// --------------------------------------------------------------------
// Authentication
// --------------------------------------------------------------------

// Login exchanges email and password for a credential. The returned token is
// not installed on the client; the caller decides whether to keep it.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	return api.Login(ctx, c.http, c.baseURL, types.LoginRequest{Email: email, Password: password})
}

// Register creates an account. A duplicate email yields ErrConflict.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	return api.Register(ctx, c.http, c.baseURL, types.RegisterRequest{Name: name, Email: email, Password: password})
}

// Profile resolves the user behind the current credential.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	return api.Profile(ctx, c.http, c.baseURL)
}

// --------------------------------------------------------------------
// Workspaces
// --------------------------------------------------------------------

// ListWorkspaces returns the current user's workspaces in server order.
func (c *Client) ListWorkspaces(ctx context.Context) ([]Workspace, error) {
	return api.ListWorkspaces(ctx, c.http, c.baseURL)
}

// GetWorkspaceDetails returns a workspace with owner and members.
func (c *Client) GetWorkspaceDetails(ctx context.Context, workspaceID string) (*WorkspaceDetail, error) {
	return api.GetWorkspaceDetails(ctx, c.http, c.baseURL, workspaceID)
}

// CreateWorkspace creates a workspace owned by the current user.
func (c *Client) CreateWorkspace(ctx context.Context, req CreateWorkspaceRequest) (*Workspace, error) {
	return api.CreateWorkspace(ctx, c.http, c.baseURL, req)
}

// TaskAnalytics returns task counts and completion figures for a workspace.
func (c *Client) TaskAnalytics(ctx context.Context, workspaceID string) (*TaskAnalytics, error) {
	return api.TaskAnalytics(ctx, c.http, c.baseURL, workspaceID)
}

// --------------------------------------------------------------------
// Spaces
// --------------------------------------------------------------------

// CreateSpace adds a space to a workspace.
func (c *Client) CreateSpace(ctx context.Context, req CreateSpaceRequest) (*Space, error) {
	return api.CreateSpace(ctx, c.http, c.baseURL, req)
}

// UpdateSpace renames a space. The returned space is nil when the server
// does not echo it.
func (c *Client) UpdateSpace(ctx context.Context, req UpdateSpaceRequest) (*Space, error) {
	return api.UpdateSpace(ctx, c.http, c.baseURL, req)
}

// DeleteSpace removes a space.
func (c *Client) DeleteSpace(ctx context.Context, spaceID string) error {
	return api.DeleteSpace(ctx, c.http, c.baseURL, spaceID)
}

// ListTasks returns the tasks of a space.
func (c *Client) ListTasks(ctx context.Context, spaceID string) ([]Task, error) {
	return api.ListTasks(ctx, c.http, c.baseURL, spaceID)
}

// --------------------------------------------------------------------
// Tasks
// --------------------------------------------------------------------

// GetTask returns a single task.
func (c *Client) GetTask(ctx context.Context, taskID string) (*Task, error) {
	return api.GetTask(ctx, c.http, c.baseURL, taskID)
}

// CreateTask creates a task in a space. A title is required.
func (c *Client) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	return api.CreateTask(ctx, c.http, c.baseURL, req)
}

// UpdateTask applies the non-nil fields of req to the task.
func (c *Client) UpdateTask(ctx context.Context, taskID string, req UpdateTaskRequest) (*Task, error) {
	return api.UpdateTask(ctx, c.http, c.baseURL, taskID, req)
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	return api.DeleteTask(ctx, c.http, c.baseURL, taskID)
}

// ListTaskVersions returns the version history of a task.
func (c *Client) ListTaskVersions(ctx context.Context, taskID string) ([]TaskVersion, error) {
	return api.ListTaskVersions(ctx, c.http, c.baseURL, taskID)
}

// RevertTaskVersion restores the task to the given version.
func (c *Client) RevertTaskVersion(ctx context.Context, taskID string, version int) error {
	return api.RevertTaskVersion(ctx, c.http, c.baseURL, taskID, version)
}

// --------------------------------------------------------------------
// Invitations
// --------------------------------------------------------------------

// SendInvitation invites an email address to a workspace.
func (c *Client) SendInvitation(ctx context.Context, req SendInvitationRequest) error {
	return api.SendInvitation(ctx, c.http, c.baseURL, req)
}

// JoinInvitation reports what the current user should do with an invitation.
func (c *Client) JoinInvitation(ctx context.Context, invitationID string) (*JoinInvitationResponse, error) {
	return api.JoinInvitation(ctx, c.http, c.baseURL, invitationID)
}

// AcceptInvitation joins the invitation's workspace and returns its number.
func (c *Client) AcceptInvitation(ctx context.Context, invitationID string) (Number, error) {
	return api.AcceptInvitation(ctx, c.http, c.baseURL, invitationID)
}
