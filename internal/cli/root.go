// Package cli provides the command-line interface for jobpt.
package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ashureev/jobpt/internal/app"
	"github.com/ashureev/jobpt/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

// ConfigLoader supplies the configuration for a command run.
type ConfigLoader func() (*config.Config, error)

// runtime is the per-invocation state shared by subcommands.
type runtime struct {
	load    ConfigLoader
	opts    app.Options
	verbose bool

	app      *app.App
	closeLog func() error
}

// NewRootCmd builds the command tree. load is called lazily by commands that
// need the store.
func NewRootCmd(load ConfigLoader, opts app.Options) *cobra.Command {
	root, _ := newRoot(load, opts)
	return root
}

func newRoot(load ConfigLoader, opts app.Options) (*cobra.Command, *runtime) {
	rt := &runtime{load: load, opts: opts}

	root := &cobra.Command{
		Use:   "jobpt",
		Short: "Job-search assistant with local conversation history",
		Long: `jobpt is a conversational job-search assistant. Conversations, your
profile and suggested questions are stored locally; replies come from the
remote advisory service.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return rt.close()
		},
	}
	root.PersistentFlags().BoolVarP(&rt.verbose, "verbose", "v", false, "log to stderr at the configured level")

	root.AddCommand(newChatCmd(rt))
	root.AddCommand(newSessionsCmd(rt))
	root.AddCommand(newHistoryCmd(rt))
	root.AddCommand(newProfileCmd(rt))
	root.AddCommand(newQuestionsCmd(rt))
	root.AddCommand(newStatusCmd(rt))
	root.AddCommand(newResetCmd(rt))
	return root, rt
}

// Execute runs the CLI against the environment configuration.
func Execute() error {
	_ = godotenv.Load()
	root, rt := newRoot(config.Load, app.Options{})
	err := root.Execute()
	// The post-run hook is skipped when a command fails.
	if cerr := rt.close(); err == nil {
		err = cerr
	}
	return err
}

// open builds the application once per invocation. Commands that depend on the
// advisor pass waitProbe so that the startup connectivity probe has settled.
func (rt *runtime) open(ctx context.Context, waitProbe bool) (*app.App, error) {
	if rt.app == nil {
		cfg, err := rt.load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}

		level := slog.LevelWarn
		if rt.verbose {
			level = cfg.Log.Level
		}
		logger, closeLog := config.SetupLogger(cfg.Log.File, level)

		a, err := app.Build(ctx, cfg, logger, rt.opts)
		if err != nil {
			_ = closeLog()
			return nil, err
		}
		rt.app = a
		rt.closeLog = closeLog
	}
	if waitProbe {
		rt.app.Assistant.Wait()
	}
	return rt.app, nil
}

func (rt *runtime) close() error {
	if rt.app == nil {
		return nil
	}
	err := rt.app.Close()
	rt.app = nil
	if rt.closeLog != nil {
		if cerr := rt.closeLog(); err == nil {
			err = cerr
		}
		rt.closeLog = nil
	}
	return err
}

// confirm asks a yes/no question on the command's streams.
func confirm(cmd *cobra.Command, prompt string) (bool, error) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	reader := bufio.NewReader(cmd.InOrStdin())
	response, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read input: %w", err)
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes", nil
}
