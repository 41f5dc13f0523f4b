package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/taskdesk/taskdesk/client"
	"github.com/taskdesk/taskdesk/routes"
)

func newWorkspacesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "workspaces",
		Short: "List your workspaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			snap := a.dir.Snapshot()
			if snap.LastError != nil {
				return snap.LastError
			}
			if ok, err := a.printJSON(cmd, snap.Workspaces); ok {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tNAME\tSPACES\tMEMBERS")
			for _, w := range snap.Workspaces {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", w.Number, w.Name, len(w.Spaces), len(w.MemberEmails))
			}
			return tw.Flush()
		},
	}
}

func newWorkspaceCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Inspect and create workspaces",
	}
	cmd.AddCommand(newWorkspaceShowCmd(a))
	cmd.AddCommand(newWorkspaceCreateCmd(a))
	return cmd
}

func newWorkspaceShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <workspace-number>",
		Short: "Show a workspace with its spaces and members",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			if _, err := a.selectWorkspace(ctx, args[0]); err != nil {
				return err
			}
			snap := a.dir.Snapshot()
			if snap.Detail == nil {
				if snap.LastError != nil {
					return snap.LastError
				}
				return fmt.Errorf("workspace %s could not be loaded", args[0])
			}
			return a.printDetail(cmd, snap.Detail)
		},
	}
}

func (a *app) printDetail(cmd *cobra.Command, d *client.WorkspaceDetail) error {
	if ok, err := a.printJSON(cmd, d); ok {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Workspace %s: %s\n", d.Number, d.Name)
	if d.Description != "" {
		fmt.Fprintf(out, "  %s\n", d.Description)
	}
	if d.Owner != nil {
		fmt.Fprintf(out, "Owner: %s <%s>\n", d.Owner.Name, d.Owner.Email)
	}
	members := make([]string, 0, len(d.Members))
	for _, m := range d.Members {
		members = append(members, m.Email)
	}
	sort.Strings(members)
	fmt.Fprintf(out, "Members: %s\n", strings.Join(members, ", "))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSPACE\tTASKS")
	for _, s := range d.Spaces {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", s.Number, s.Name, s.TaskCount)
	}
	return tw.Flush()
}

func newWorkspaceCreateCmd(a *app) *cobra.Command {
	var name, description string
	var members []string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			ws, err := a.api.CreateWorkspace(ctx, client.CreateWorkspaceRequest{
				Name:         name,
				Description:  description,
				MemberEmails: members,
			})
			if err != nil {
				return err
			}
			a.refresh(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Workspace created: %s - %s\n", ws.Number, ws.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Workspace name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description (optional)")
	cmd.Flags().StringSliceVar(&members, "member", nil, "Member email; repeatable")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAnalyticsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analytics <workspace-number>",
		Short: "Show task analytics for a workspace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			id, ok := a.dir.WorkspaceIDByNumber(client.Number(args[0]))
			if !ok {
				return fmt.Errorf("workspace %s not found", args[0])
			}
			an, err := a.api.TaskAnalytics(ctx, id)
			if err != nil {
				return err
			}
			if ok, err := a.printJSON(cmd, an); ok {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Total tasks: %d\n", an.TotalTasks)
			fmt.Fprintf(out, "Overdue: %d\n", an.OverdueTasks)
			fmt.Fprintf(out, "Completion: %.1f%%\n", an.CompletionRate)
			for _, s := range []client.Status{client.StatusTodo, client.StatusInProgress, client.StatusInReview, client.StatusDone} {
				fmt.Fprintf(out, "  %-12s %d\n", s, an.ByStatus[s])
			}
			return nil
		},
	}
}

// newOpenCmd resolves a browser path the way the web app's router would.
func newOpenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Resolve an app path such as /4/2 or /invitation/<id>",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := routes.Parse(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch r.Name {
			case routes.Login, routes.Register, routes.Dashboard:
				fmt.Fprintf(out, "%s\n", r.Name)
				return nil
			case routes.Invitation:
				fmt.Fprintf(out, "invitation %s; run `taskdesk invite join %s`\n", r.InvitationID, r.InvitationID)
				return nil
			}

			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			// select first so space numbers resolve against the detail
			if _, err := a.selectWorkspace(ctx, r.WorkspaceNumber.String()); err != nil {
				return err
			}
			target, err := routes.Resolve(r, a.dir)
			if err != nil {
				return err
			}
			if target.Name == routes.Workspace {
				snap := a.dir.Snapshot()
				if snap.Detail == nil {
					return fmt.Errorf("workspace %s could not be loaded", r.WorkspaceNumber)
				}
				return a.printDetail(cmd, snap.Detail)
			}
			return a.printTasks(ctx, cmd, target.SpaceID)
		},
	}
}
