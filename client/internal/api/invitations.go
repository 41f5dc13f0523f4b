package api

import (
	"context"
	"net/http"

	"github.com/taskdesk/taskdesk/client/internal/types"
	"github.com/taskdesk/taskdesk/internal/errors"
)

// SendInvitation emails an invitation to join a workspace.
func SendInvitation(ctx context.Context, httpClient types.HTTPClient, baseURL string, req types.SendInvitationRequest) error {
	return send(ctx, httpClient, http.MethodPost, endpoint(baseURL, "/api/invitation/send"), "send invitation", req, nil)
}

// JoinInvitation resolves an invitation link into the next action for the user.
func JoinInvitation(ctx context.Context, httpClient types.HTTPClient, baseURL, invitationID string) (*types.JoinInvitationResponse, error) {
	if err := requireID("join invitation", "invitation id", invitationID); err != nil {
		return nil, err
	}
	var out types.JoinInvitationResponse
	if err := send(ctx, httpClient, http.MethodGet, endpoint(baseURL, "/api/invitation/join", invitationID), "join invitation", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AcceptInvitation adds the current user to the invitation's workspace and
// returns that workspace's number. A response with success=false is reported
// as a Conflict.
func AcceptInvitation(ctx context.Context, httpClient types.HTTPClient, baseURL, invitationID string) (types.Number, error) {
	if err := requireID("accept invitation", "invitation id", invitationID); err != nil {
		return "", err
	}
	var out types.AcceptInvitationResponse
	body := types.InvitationIDBody{InvitationID: invitationID}
	if err := send(ctx, httpClient, http.MethodPost, endpoint(baseURL, "/api/invitation/accept"), "accept invitation", body, &out); err != nil {
		return "", err
	}
	if !out.Success {
		return "", &errors.ClassifiedError{
			Op:       "accept invitation",
			Kind:     errors.KindConflict,
			Category: errors.Irrecoverable,
			Message:  "invitation was not accepted",
		}
	}
	return out.WorkspaceNumber, nil
}
