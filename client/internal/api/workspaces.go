package api

import (
	"context"
	"net/http"

	"github.com/taskdesk/taskdesk/client/internal/types"
)

// ListWorkspaces returns the workspaces visible to the current user in server order.
func ListWorkspaces(ctx context.Context, httpClient types.HTTPClient, baseURL string) ([]types.Workspace, error) {
	var out types.ListWorkspacesResponse
	if err := send(ctx, httpClient, http.MethodGet, endpoint(baseURL, "/api/user/workspaces"), "list workspaces", nil, &out); err != nil {
		return nil, err
	}
	return out.Workspaces, nil
}

// GetWorkspaceDetails returns a workspace with its owner and members resolved.
func GetWorkspaceDetails(ctx context.Context, httpClient types.HTTPClient, baseURL, workspaceID string) (*types.WorkspaceDetail, error) {
	if err := requireID("workspace details", "workspace id", workspaceID); err != nil {
		return nil, err
	}
	var out types.WorkspaceDetailResponse
	body := types.WorkspaceIDBody{WorkspaceID: workspaceID}
	if err := send(ctx, httpClient, http.MethodPost, endpoint(baseURL, "/api/workspace/details"), "workspace details", body, &out); err != nil {
		return nil, err
	}
	return out.Workspace, nil
}

// CreateWorkspace creates a workspace owned by the current user.
func CreateWorkspace(ctx context.Context, httpClient types.HTTPClient, baseURL string, req types.CreateWorkspaceRequest) (*types.Workspace, error) {
	if req.MemberEmails == nil {
		req.MemberEmails = []string{}
	}
	var out types.WorkspaceResponse
	if err := send(ctx, httpClient, http.MethodPost, endpoint(baseURL, "/api/workspace/create"), "create workspace", req, &out); err != nil {
		return nil, err
	}
	return out.Workspace, nil
}

// TaskAnalytics returns task statistics for a workspace.
func TaskAnalytics(ctx context.Context, httpClient types.HTTPClient, baseURL, workspaceID string) (*types.TaskAnalytics, error) {
	if err := requireID("task analytics", "workspace id", workspaceID); err != nil {
		return nil, err
	}
	var out types.TaskAnalyticsResponse
	body := types.WorkspaceIDBody{WorkspaceID: workspaceID}
	if err := send(ctx, httpClient, http.MethodPost, endpoint(baseURL, "/api/task/analytics"), "task analytics", body, &out); err != nil {
		return nil, err
	}
	return out.Analytics, nil
}
