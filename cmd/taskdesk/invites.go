package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdesk/taskdesk/client"
)

func newInviteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invite",
		Short: "Send and accept workspace invitations",
	}
	cmd.AddCommand(newInviteSendCmd(a))
	cmd.AddCommand(newInviteJoinCmd(a))
	cmd.AddCommand(newInviteAcceptCmd(a))
	return cmd
}

func newInviteSendCmd(a *app) *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "send <workspace-number>",
		Short: "Invite an email address into a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			ws, ok := a.dir.WorkspaceByNumber(client.Number(args[0]))
			if !ok {
				return fmt.Errorf("workspace %s not found", args[0])
			}
			if err := a.api.SendInvitation(ctx, client.SendInvitationRequest{
				Email:         email,
				WorkspaceID:   ws.ID,
				WorkspaceName: ws.Name,
			}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invitation sent to %s\n", email)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Invitee email (required)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newInviteJoinCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "join <invitation-id>",
		Short: "Check what an invitation link leads to",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			res, err := a.api.JoinInvitation(ctx, args[0])
			if err != nil {
				return err
			}
			if ok, err := a.printJSON(cmd, res); ok {
				return err
			}
			out := cmd.OutOrStdout()
			switch res.Action {
			case "already_member":
				fmt.Fprintf(out, "Already a member of workspace %s\n", res.WorkspaceNumber)
			case "accept":
				name := ""
				if res.Invitation != nil {
					name = res.Invitation.WorkspaceName
				}
				fmt.Fprintf(out, "Invitation to %q; run `taskdesk invite accept %s`\n", name, args[0])
			default:
				fmt.Fprintf(out, "Invitation cannot be used: %s\n", res.Action)
			}
			return nil
		},
	}
}

func newInviteAcceptCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "accept <invitation-id>",
		Short: "Accept an invitation and join its workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			number, err := a.api.AcceptInvitation(ctx, args[0])
			if err != nil {
				return err
			}
			a.refresh(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Joined workspace %s\n", number)
			return nil
		},
	}
}
