package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/taskdesk/taskdesk/client"
	"github.com/taskdesk/taskdesk/routes"
)

// resolveSpace maps workspace and space numbers to ids.
func (a *app) resolveSpace(workspaceNumber, spaceNumber string) (routes.Target, error) {
	return routes.Resolve(routes.Route{
		Name:            routes.Space,
		WorkspaceNumber: client.Number(workspaceNumber),
		SpaceNumber:     client.Number(spaceNumber),
	}, a.dir)
}

func newSpaceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "space",
		Short: "Create, rename and delete spaces",
	}
	cmd.AddCommand(newSpaceCreateCmd(a))
	cmd.AddCommand(newSpaceUpdateCmd(a))
	cmd.AddCommand(newSpaceDeleteCmd(a))
	return cmd
}

func newSpaceCreateCmd(a *app) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "create <workspace-number>",
		Short: "Create a space in a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			ws, err := a.selectWorkspace(ctx, args[0])
			if err != nil {
				return err
			}
			sp, err := a.api.CreateSpace(ctx, client.CreateSpaceRequest{
				WorkspaceID: ws.ID,
				Name:        name,
				Description: description,
			})
			if err != nil {
				return err
			}
			a.refresh(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Space created: %s/%s - %s\n", ws.Number, sp.Number, sp.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Space name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description (optional)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSpaceUpdateCmd(a *app) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update <workspace-number> <space-number>",
		Short: "Rename or re-describe a space",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			target, err := a.resolveSpace(args[0], args[1])
			if err != nil {
				return err
			}
			if _, err := a.api.UpdateSpace(ctx, client.UpdateSpaceRequest{
				ID:          target.SpaceID,
				Name:        name,
				Description: description,
			}); err != nil {
				return err
			}
			a.refresh(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Space %s/%s updated\n", args[0], args[1])
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "New name (required)")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newSpaceDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <workspace-number> <space-number>",
		Short: "Delete a space and its tasks",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			target, err := a.resolveSpace(args[0], args[1])
			if err != nil {
				return err
			}
			if err := a.api.DeleteSpace(ctx, target.SpaceID); err != nil {
				return err
			}
			a.refresh(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Space %s/%s deleted\n", args[0], args[1])
			return nil
		},
	}
}
