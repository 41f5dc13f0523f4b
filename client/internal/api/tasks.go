package api

import (
	"context"
	"net/http"

	"github.com/taskdesk/taskdesk/client/internal/types"
	"github.com/taskdesk/taskdesk/internal/errors"
)

// GetTask retrieves a task by ID.
func GetTask(ctx context.Context, httpClient types.HTTPClient, baseURL, taskID string) (*types.Task, error) {
	if err := requireID("task details", "task id", taskID); err != nil {
		return nil, err
	}
	var out types.TaskResponse
	body := types.TaskIDBody{TaskID: taskID}
	if err := send(ctx, httpClient, http.MethodPost, endpoint(baseURL, "/api/task/details"), "task details", body, &out); err != nil {
		return nil, err
	}
	return out.Task, nil
}

// CreateTask creates a task in a space.
func CreateTask(ctx context.Context, httpClient types.HTTPClient, baseURL string, req types.CreateTaskRequest) (*types.Task, error) {
	if req.Tags == nil {
		req.Tags = []string{}
	}
	var out types.TaskResponse
	if err := send(ctx, httpClient, http.MethodPost, endpoint(baseURL, "/api/task/create"), "create task", req, &out); err != nil {
		return nil, err
	}
	return out.Task, nil
}

// UpdateTask applies a partial update and returns the new task state.
func UpdateTask(ctx context.Context, httpClient types.HTTPClient, baseURL, taskID string, req types.UpdateTaskRequest) (*types.Task, error) {
	if err := requireID("update task", "task id", taskID); err != nil {
		return nil, err
	}
	var out types.TaskResponse
	if err := send(ctx, httpClient, http.MethodPut, endpoint(baseURL, "/api/task/update", taskID), "update task", req, &out); err != nil {
		return nil, err
	}
	return out.Task, nil
}

// DeleteTask removes a task.
func DeleteTask(ctx context.Context, httpClient types.HTTPClient, baseURL, taskID string) error {
	if err := requireID("delete task", "task id", taskID); err != nil {
		return err
	}
	return send(ctx, httpClient, http.MethodDelete, endpoint(baseURL, "/api/task/delete", taskID), "delete task", nil, nil)
}

// ListTaskVersions returns the version history of a task.
func ListTaskVersions(ctx context.Context, httpClient types.HTTPClient, baseURL, taskID string) ([]types.TaskVersion, error) {
	if err := requireID("task versions", "task id", taskID); err != nil {
		return nil, err
	}
	var out types.TaskVersionsResponse
	body := types.TaskIDBody{TaskID: taskID}
	if err := send(ctx, httpClient, http.MethodPost, endpoint(baseURL, "/api/task/versions"), "task versions", body, &out); err != nil {
		return nil, err
	}
	return out.Versions, nil
}

// RevertTaskVersion restores a task to an earlier version.
func RevertTaskVersion(ctx context.Context, httpClient types.HTTPClient, baseURL, taskID string, version int) error {
	if err := requireID("revert task", "task id", taskID); err != nil {
		return err
	}
	if version <= 0 {
		return errors.NewValidationError("revert task", "version must be positive")
	}
	body := types.RevertTaskBody{TaskID: taskID, Version: version}
	return send(ctx, httpClient, http.MethodPost, endpoint(baseURL, "/api/task/version/revert"), "revert task", body, nil)
}
