package types

import (
	"net/mail"
	"strings"
	"time"

	"github.com/taskdesk/taskdesk/internal/errors"
)

// ------------------------------
// Request Types
// ------------------------------

// LoginRequest exchanges credentials for a bearer token.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (r LoginRequest) Validate() error {
	if err := validateEmail("login", r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return errors.NewValidationError("login", "password is required")
	}
	return nil
}

// RegisterRequest creates a new account.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (r RegisterRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.NewValidationError("register", "name is required")
	}
	if err := validateEmail("register", r.Email); err != nil {
		return err
	}
	if r.Password == "" {
		return errors.NewValidationError("register", "password is required")
	}
	return nil
}

// CreateWorkspaceRequest holds parameters for a new workspace
type CreateWorkspaceRequest struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	MemberEmails []string `json:"memberEmails"`
}

// Validate checks required fields.
func (r CreateWorkspaceRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.NewValidationError("create workspace", "name is required")
	}
	for _, e := range r.MemberEmails {
		if err := validateEmail("create workspace", e); err != nil {
			return err
		}
	}
	return nil
}

// CreateSpaceRequest holds parameters for a new space
type CreateSpaceRequest struct {
	WorkspaceID string `json:"workspaceId"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate checks required fields.
func (r CreateSpaceRequest) Validate() error {
	if r.WorkspaceID == "" {
		return errors.NewValidationError("create space", "workspace id is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.NewValidationError("create space", "name is required")
	}
	return nil
}

// UpdateSpaceRequest renames or re-describes a space
type UpdateSpaceRequest struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate checks required fields.
func (r UpdateSpaceRequest) Validate() error {
	if r.ID == "" {
		return errors.NewValidationError("update space", "space id is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.NewValidationError("update space", "name is required")
	}
	return nil
}

// CreateTaskRequest holds parameters for a new task
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	Status      Status     `json:"status"`
	Tags        []string   `json:"tags"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	SpaceID     string     `json:"spaceId"`
	AssigneeID  string     `json:"assigneeId,omitempty"`
}

// Validate checks required fields and enumerations.
func (r CreateTaskRequest) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return errors.NewValidationError("create task", "title is required")
	}
	if r.SpaceID == "" {
		return errors.NewValidationError("create task", "space id is required")
	}
	if !r.Priority.Valid() {
		return errors.NewValidationError("create task", "unknown priority "+string(r.Priority))
	}
	if !r.Status.Valid() {
		return errors.NewValidationError("create task", "unknown status "+string(r.Status))
	}
	return nil
}

// UpdateTaskRequest carries the fields to change; nil fields are left alone.
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *Priority  `json:"priority,omitempty"`
	Status      *Status    `json:"status,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	AssigneeID  *string    `json:"assigneeId,omitempty"`
}

// Validate checks the fields that are set.
func (r UpdateTaskRequest) Validate() error {
	if r.Title != nil && strings.TrimSpace(*r.Title) == "" {
		return errors.NewValidationError("update task", "title cannot be empty")
	}
	if r.Priority != nil && !r.Priority.Valid() {
		return errors.NewValidationError("update task", "unknown priority "+string(*r.Priority))
	}
	if r.Status != nil && !r.Status.Valid() {
		return errors.NewValidationError("update task", "unknown status "+string(*r.Status))
	}
	return nil
}

// SendInvitationRequest invites an email address into a workspace
type SendInvitationRequest struct {
	Email         string `json:"email"`
	WorkspaceID   string `json:"workspaceId"`
	WorkspaceName string `json:"workspaceName"`
}

// Validate checks required fields.
func (r SendInvitationRequest) Validate() error {
	if err := validateEmail("send invitation", r.Email); err != nil {
		return err
	}
	if r.WorkspaceID == "" {
		return errors.NewValidationError("send invitation", "workspace id is required")
	}
	return nil
}

// Wire bodies for the id-only POST endpoints.
type (
	WorkspaceIDBody struct {
		WorkspaceID string `json:"workspaceId"`
	}
	SpaceIDBody struct {
		SpaceID string `json:"spaceId"`
	}
	TaskIDBody struct {
		TaskID string `json:"taskId"`
	}
	RevertTaskBody struct {
		TaskID  string `json:"taskId"`
		Version int    `json:"version"`
	}
	InvitationIDBody struct {
		InvitationID string `json:"invitationId"`
	}
)

func validateEmail(op, email string) error {
	if strings.TrimSpace(email) == "" {
		return errors.NewValidationError(op, "email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return errors.NewValidationError(op, "invalid email "+email)
	}
	return nil
}
