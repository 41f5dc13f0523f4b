package types

import "fmt"

// ------------------------------
// Response Types
// ------------------------------
//
// Every envelope validates its required fields so that a 2xx response with an
// unexpected shape becomes an error instead of a nil payload.

// AuthResponse is returned by login and register.
type AuthResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

func (r *AuthResponse) Validate() error {
	if r.Token == "" {
		return fmt.Errorf("missing token")
	}
	return validUser(r.User)
}

// ProfileResponse wraps the profile endpoint.
type ProfileResponse struct {
	User *User `json:"user"`
}

func (r *ProfileResponse) Validate() error { return validUser(r.User) }

// ListWorkspacesResponse mirrors the list endpoint response shape
type ListWorkspacesResponse struct {
	Workspaces []Workspace `json:"workspaces"`
}

func (r *ListWorkspacesResponse) Validate() error {
	if r.Workspaces == nil {
		return fmt.Errorf("missing workspaces")
	}
	for i, w := range r.Workspaces {
		if w.ID == "" {
			return fmt.Errorf("workspace %d: missing id", i)
		}
	}
	return nil
}

// WorkspaceResponse wraps a single workspace.
type WorkspaceResponse struct {
	Workspace *Workspace `json:"workspace"`
}

func (r *WorkspaceResponse) Validate() error {
	if r.Workspace == nil || r.Workspace.ID == "" {
		return fmt.Errorf("missing workspace")
	}
	return nil
}

// WorkspaceDetailResponse wraps the details endpoint.
type WorkspaceDetailResponse struct {
	Workspace *WorkspaceDetail `json:"workspace"`
}

func (r *WorkspaceDetailResponse) Validate() error {
	if r.Workspace == nil || r.Workspace.ID == "" {
		return fmt.Errorf("missing workspace")
	}
	return nil
}

// SpaceResponse wraps a single space.
type SpaceResponse struct {
	Space *Space `json:"space"`
}

func (r *SpaceResponse) Validate() error {
	if r.Space == nil || r.Space.ID == "" {
		return fmt.Errorf("missing space")
	}
	return nil
}

// UpdateSpaceResponse may or may not echo the space.
type UpdateSpaceResponse struct {
	Space *Space `json:"space,omitempty"`
}

func (r *UpdateSpaceResponse) Validate() error { return nil }

// ListTasksResponse wraps tasks of a space.
type ListTasksResponse struct {
	Tasks []Task `json:"tasks"`
}

func (r *ListTasksResponse) Validate() error {
	if r.Tasks == nil {
		return fmt.Errorf("missing tasks")
	}
	return nil
}

// TaskResponse wraps a single task.
type TaskResponse struct {
	Task *Task `json:"task"`
}

func (r *TaskResponse) Validate() error {
	if r.Task == nil || r.Task.ID == "" {
		return fmt.Errorf("missing task")
	}
	return nil
}

// TaskVersionsResponse wraps a task's history.
type TaskVersionsResponse struct {
	Versions []TaskVersion `json:"versions"`
}

func (r *TaskVersionsResponse) Validate() error {
	if r.Versions == nil {
		return fmt.Errorf("missing versions")
	}
	return nil
}

// JoinInvitationResponse tells the caller what to do with an invitation link.
type JoinInvitationResponse struct {
	Action          string      `json:"action"`
	Invitation      *Invitation `json:"invitation,omitempty"`
	WorkspaceNumber Number      `json:"workspaceNumber,omitempty"`
}

func (r *JoinInvitationResponse) Validate() error {
	if r.Action == "" {
		return fmt.Errorf("missing action")
	}
	return nil
}

// AcceptInvitationResponse reports the outcome of accepting an invitation.
type AcceptInvitationResponse struct {
	Success         bool   `json:"success"`
	WorkspaceNumber Number `json:"workspaceNumber,omitempty"`
}

func (r *AcceptInvitationResponse) Validate() error { return nil }

// TaskAnalyticsResponse wraps the analytics endpoint.
type TaskAnalyticsResponse struct {
	Analytics *TaskAnalytics `json:"analytics"`
}

func (r *TaskAnalyticsResponse) Validate() error {
	if r.Analytics == nil {
		return fmt.Errorf("missing analytics")
	}
	return nil
}

func validUser(u *User) error {
	if u == nil || u.ID == "" {
		return fmt.Errorf("missing user")
	}
	return nil
}
