package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskdesk/taskdesk/client"
)

const dueDateLayout = "2006-01-02"

func newTaskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Work with tasks in a space",
	}
	cmd.AddCommand(newTaskListCmd(a))
	cmd.AddCommand(newTaskShowCmd(a))
	cmd.AddCommand(newTaskCreateCmd(a))
	cmd.AddCommand(newTaskUpdateCmd(a))
	cmd.AddCommand(newTaskDeleteCmd(a))
	cmd.AddCommand(newTaskHistoryCmd(a))
	cmd.AddCommand(newTaskRevertCmd(a))
	return cmd
}

func (a *app) printTasks(ctx context.Context, cmd *cobra.Command, spaceID string) error {
	tasks, err := a.api.ListTasks(ctx, spaceID)
	if err != nil {
		return err
	}
	if ok, err := a.printJSON(cmd, tasks); ok {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTATUS\tPRIORITY\tASSIGNEE")
	for _, t := range tasks {
		assignee := "-"
		if t.Assignee != nil {
			assignee = t.Assignee.Email
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.Title, t.Status, t.Priority, assignee)
	}
	return tw.Flush()
}

func newTaskListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <workspace-number> <space-number>",
		Short: "List the tasks of a space",
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
			return a.printTasks(ctx, cmd, target.SpaceID)
		},
	}
}

func newTaskShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			t, err := a.api.GetTask(ctx, args[0])
			if err != nil {
				return err
			}
			if ok, err := a.printJSON(cmd, t); ok {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", t.Title)
			fmt.Fprintf(out, "  id:       %s\n", t.ID)
			fmt.Fprintf(out, "  status:   %s\n", t.Status)
			fmt.Fprintf(out, "  priority: %s\n", t.Priority)
			if len(t.Tags) > 0 {
				fmt.Fprintf(out, "  tags:     %s\n", strings.Join(t.Tags, ", "))
			}
			if t.DueDate != nil {
				fmt.Fprintf(out, "  due:      %s\n", t.DueDate.Format(dueDateLayout))
			}
			if t.Assignee != nil {
				fmt.Fprintf(out, "  assignee: %s <%s>\n", t.Assignee.Name, t.Assignee.Email)
			}
			if t.Description != "" {
				fmt.Fprintf(out, "\n%s\n", t.Description)
			}
			return nil
		},
	}
}

func parseDue(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	d, err := time.Parse(dueDateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid --due %q, want YYYY-MM-DD", s)
	}
	return &d, nil
}

func newTaskCreateCmd(a *app) *cobra.Command {
	var title, description, priority, status, due, assignee string
	var tags []string

	cmd := &cobra.Command{
		Use:   "create <workspace-number> <space-number>",
		Short: "Create a task in a space",
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
			dueDate, err := parseDue(due)
			if err != nil {
				return err
			}
			t, err := a.api.CreateTask(ctx, client.CreateTaskRequest{
				Title:       title,
				Description: description,
				Priority:    client.Priority(priority),
				Status:      client.Status(status),
				Tags:        tags,
				DueDate:     dueDate,
				SpaceID:     target.SpaceID,
				AssigneeID:  assignee,
			})
			if err != nil {
				return err
			}
			// task counts live on the workspace list
			a.refresh(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Task created: %s - %s\n", t.ID, t.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Task title (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&priority, "priority", string(client.PriorityMedium), "low|medium|high|urgent")
	cmd.Flags().StringVar(&status, "status", string(client.StatusTodo), "todo|in_progress|in_review|done")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag; repeatable")
	cmd.Flags().StringVar(&due, "due", "", "Due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee user id")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func newTaskUpdateCmd(a *app) *cobra.Command {
	var title, description, priority, status, due, assignee string
	var tags []string

	cmd := &cobra.Command{
		Use:   "update <task-id>",
		Short: "Change the given fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			var req client.UpdateTaskRequest
			flags := cmd.Flags()
			if flags.Changed("title") {
				req.Title = &title
			}
			if flags.Changed("description") {
				req.Description = &description
			}
			if flags.Changed("priority") {
				p := client.Priority(priority)
				req.Priority = &p
			}
			if flags.Changed("status") {
				s := client.Status(status)
				req.Status = &s
			}
			if flags.Changed("tag") {
				req.Tags = tags
			}
			if flags.Changed("due") {
				d, err := parseDue(due)
				if err != nil {
					return err
				}
				req.DueDate = d
			}
			if flags.Changed("assignee") {
				req.AssigneeID = &assignee
			}

			t, err := a.api.UpdateTask(ctx, args[0], req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task updated: %s - %s [%s]\n", t.ID, t.Title, t.Status)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "New title")
	cmd.Flags().StringVar(&description, "description", "", "New description")
	cmd.Flags().StringVar(&priority, "priority", "", "low|medium|high|urgent")
	cmd.Flags().StringVar(&status, "status", "", "todo|in_progress|in_review|done")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag; repeatable, replaces all tags")
	cmd.Flags().StringVar(&due, "due", "", "Due date, YYYY-MM-DD")
	cmd.Flags().StringVar(&assignee, "assignee", "", "Assignee user id")
	return cmd
}

func newTaskDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := a.api.DeleteTask(ctx, args[0]); err != nil {
				return err
			}
			a.refresh(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s deleted\n", args[0])
			return nil
		},
	}
}

func newTaskHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <task-id>",
		Short: "List the saved versions of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			versions, err := a.api.ListTaskVersions(ctx, args[0])
			if err != nil {
				return err
			}
			if ok, err := a.printJSON(cmd, versions); ok {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tCHANGED AT\tBY")
			for _, v := range versions {
				by := "-"
				if v.ChangedBy != nil {
					by = v.ChangedBy.Email
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", v.Version, v.ChangedAt.Format(time.RFC3339), by)
			}
			return tw.Flush()
		},
	}
}

func newTaskRevertCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "revert <task-id> <version>",
		Short: "Restore a task to a saved version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLogin(); err != nil {
				return err
			}
			version, err := strconv.Atoi(args[1])
			if err != nil || version < 1 {
				return fmt.Errorf("invalid version %q", args[1])
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			if err := a.api.RevertTaskVersion(ctx, args[0], version); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s reverted to version %d\n", args[0], version)
			return nil
		},
	}
}
