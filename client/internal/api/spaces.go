package api

import (
	"context"
	"net/http"

	"github.com/taskdesk/taskdesk/client/internal/types"
)

// CreateSpace creates a space inside a workspace.
func CreateSpace(ctx context.Context, httpClient types.HTTPClient, baseURL string, req types.CreateSpaceRequest) (*types.Space, error) {
	var out types.SpaceResponse
	if err := send(ctx, httpClient, http.MethodPost, endpoint(baseURL, "/api/space/create"), "create space", req, &out); err != nil {
		return nil, err
	}
	return out.Space, nil
}

// UpdateSpace renames a space. The server may omit the space from the
// response, in which case nil is returned with a nil error.
func UpdateSpace(ctx context.Context, httpClient types.HTTPClient, baseURL string, req types.UpdateSpaceRequest) (*types.Space, error) {
	var out types.UpdateSpaceResponse
	if err := send(ctx, httpClient, http.MethodPut, endpoint(baseURL, "/api/space/update"), "update space", req, &out); err != nil {
		return nil, err
	}
	return out.Space, nil
}

// DeleteSpace removes a space and its tasks.
func DeleteSpace(ctx context.Context, httpClient types.HTTPClient, baseURL, spaceID string) error {
	if err := requireID("delete space", "space id", spaceID); err != nil {
		return err
	}
	return send(ctx, httpClient, http.MethodDelete, endpoint(baseURL, "/api/space/delete", spaceID), "delete space", nil, nil)
}

// ListTasks returns the tasks of a space.
func ListTasks(ctx context.Context, httpClient types.HTTPClient, baseURL, spaceID string) ([]types.Task, error) {
	if err := requireID("list tasks", "space id", spaceID); err != nil {
		return nil, err
	}
	var out types.ListTasksResponse
	body := types.SpaceIDBody{SpaceID: spaceID}
	if err := send(ctx, httpClient, http.MethodPost, endpoint(baseURL, "/api/space/tasks"), "list tasks", body, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}
