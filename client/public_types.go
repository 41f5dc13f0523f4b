package client

import "github.com/taskdesk/taskdesk/client/internal/types"

// Public type aliases so consumers can import only the client package.
type (
	// Requests
	CreateWorkspaceRequest = types.CreateWorkspaceRequest
	CreateSpaceRequest     = types.CreateSpaceRequest
	UpdateSpaceRequest     = types.UpdateSpaceRequest
	CreateTaskRequest      = types.CreateTaskRequest
	UpdateTaskRequest      = types.UpdateTaskRequest
	SendInvitationRequest  = types.SendInvitationRequest

	// Domain entities
	Number          = types.Number
	User            = types.User
	Workspace       = types.Workspace
	WorkspaceCounts = types.WorkspaceCounts
	WorkspaceDetail = types.WorkspaceDetail
	Space           = types.Space
	Task            = types.Task
	TaskVersion     = types.TaskVersion
	Invitation      = types.Invitation
	TaskAnalytics   = types.TaskAnalytics
	AssigneeCount   = types.AssigneeCount
	Priority        = types.Priority
	Status          = types.Status

	// Responses
	AuthResponse           = types.AuthResponse
	JoinInvitationResponse = types.JoinInvitationResponse
)

const (
	PriorityLow    = types.PriorityLow
	PriorityMedium = types.PriorityMedium
	PriorityHigh   = types.PriorityHigh
	PriorityUrgent = types.PriorityUrgent

	StatusTodo       = types.StatusTodo
	StatusInProgress = types.StatusInProgress
	StatusInReview   = types.StatusInReview
	StatusDone       = types.StatusDone
)
