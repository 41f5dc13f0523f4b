package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/taskdesk/taskdesk/client"
	"github.com/taskdesk/taskdesk/directory"
	"github.com/taskdesk/taskdesk/internal/config"
	"github.com/taskdesk/taskdesk/internal/credstore"
	"github.com/taskdesk/taskdesk/internal/logger"
	"github.com/taskdesk/taskdesk/session"
)

const commandTimeout = 30 * time.Second

func main() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", client.Message(err))
		os.Exit(1)
	}
}

// app is the client stack shared by every command.
type app struct {
	apiURL  string
	debug   bool
	asJSON  bool
	cfg     *config.Config
	log     zerolog.Logger
	logFile io.Closer
	slot    credstore.Store
	api     *client.Client
	session *session.Store
	dir     *directory.Directory
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "taskdesk",
		Short:         "taskdesk command-line client for workspaces, spaces and tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.start(cmd)
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "Base URL of the taskdesk API (overrides TASKDESK_API_URL)")
	rootCmd.PersistentFlags().BoolVarP(&a.debug, "debug", "d", false, "Enable verbose debug output")
	rootCmd.PersistentFlags().BoolVar(&a.asJSON, "json", false, "Print results as JSON")

	rootCmd.AddCommand(newLoginCmd(a))
	rootCmd.AddCommand(newRegisterCmd(a))
	rootCmd.AddCommand(newLogoutCmd(a))
	rootCmd.AddCommand(newWhoamiCmd(a))
	rootCmd.AddCommand(newWorkspacesCmd(a))
	rootCmd.AddCommand(newWorkspaceCmd(a))
	rootCmd.AddCommand(newSpaceCmd(a))
	rootCmd.AddCommand(newTaskCmd(a))
	rootCmd.AddCommand(newInviteCmd(a))
	rootCmd.AddCommand(newAnalyticsCmd(a))
	rootCmd.AddCommand(newOpenCmd(a))

	withCleanup(rootCmd, a)
	return rootCmd
}

// withCleanup makes every runnable command release the client stack when it
// returns, including on error, where cobra skips post-run hooks.
func withCleanup(cmd *cobra.Command, a *app) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) (err error) {
			defer func() {
				if serr := a.stop(); err == nil {
					err = serr
				}
			}()
			return run(c, args)
		}
	}
	for _, sub := range cmd.Commands() {
		withCleanup(sub, a)
	}
}

// start builds config, logger, credential slot, client, session and
// directory, restores the session and waits for the first directory load.
func (a *app) start(cmd *cobra.Command) (err error) {
	defer func() {
		if err != nil {
			_ = a.stop()
		}
	}()

	cfg, err := config.New()
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIURL = a.apiURL
	}
	if a.debug {
		cfg.Debug = true
		cfg.LogLevel = zerolog.DebugLevel.String()
	}
	a.cfg = cfg

	l, closer, err := logger.NewCLI(logger.CLIOptions{
		Service: "taskdesk",
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
		Console: cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	a.log, a.logFile = l, closer
	log.Logger = l

	slot, err := credstore.Open(cfg.CredentialBackend, cfg.Home)
	if err != nil {
		return err
	}
	a.slot = slot

	a.api, err = client.New(cfg.APIURL,
		client.WithHTTPTimeout(cfg.HTTPTimeout),
		client.WithDebugLogging(cfg.Debug),
		client.WithLogger(l),
	)
	if err != nil {
		return err
	}

	a.session = session.New(a.api, slot, session.WithLogger(l))
	a.dir = directory.New(a.api,
		directory.WithLogger(l),
		directory.WithMaxAttempts(cfg.FetchMaxAttempts),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()
	a.session.Restore(ctx)
	a.dir.Attach(a.session)
	if err = a.dir.Settle(ctx); err != nil {
		return err
	}

	a.log.Debug().
		Str("api_url", cfg.APIURL).
		Bool("logged_in", a.session.Snapshot().LoggedIn()).
		Int("workspaces", len(a.dir.Snapshot().Workspaces)).
		Msg("client stack ready")
	return nil
}

// stop releases whatever start built. It is safe to call more than once.
func (a *app) stop() error {
	if a.dir != nil {
		_ = a.dir.Close()
		a.dir = nil
	}
	if c, ok := a.slot.(io.Closer); ok {
		_ = c.Close()
	}
	a.slot = nil
	if a.logFile != nil {
		err := a.logFile.Close()
		a.logFile = nil
		return err
	}
	return nil
}

func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), commandTimeout)
}

// requireLogin fails commands that need an identity when there is none.
func (a *app) requireLogin() error {
	if !a.session.Snapshot().LoggedIn() {
		return fmt.Errorf("not logged in; run `taskdesk login` first")
	}
	return nil
}

// refresh re-reads the directory after a mutation and waits for it.
func (a *app) refresh(ctx context.Context) {
	a.dir.Refresh(ctx)
	if err := a.dir.Settle(ctx); err != nil {
		a.log.Debug().Err(err).Msg("refresh did not settle")
	}
}

// selectWorkspace resolves a workspace number, selects it and waits for
// its detail.
func (a *app) selectWorkspace(ctx context.Context, number string) (client.Workspace, error) {
	ws, ok := a.dir.WorkspaceByNumber(client.Number(number))
	if !ok {
		return client.Workspace{}, fmt.Errorf("workspace %s not found", number)
	}
	a.dir.SetSelectedWorkspace(*ws)
	if err := a.dir.Settle(ctx); err != nil {
		return client.Workspace{}, err
	}
	return *ws, nil
}

// printJSON writes v as indented JSON when --json is set and reports
// whether it did.
func (a *app) printJSON(cmd *cobra.Command, v any) (bool, error) {
	if !a.asJSON {
		return false, nil
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return true, enc.Encode(v)
}
