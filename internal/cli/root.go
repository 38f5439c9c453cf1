// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/arbiter/internal/config"
	"github.com/jeranaias/arbiter/internal/persona"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App holds the state shared by every command.
type App struct {
	configPath string
	logLevel   string

	cfg *config.Config
}

// NewApp creates an App with no configuration loaded yet.
func NewApp() *App {
	return &App{}
}

// RootCommand builds the command tree. Without a subcommand it runs chat.
func (a *App) RootCommand() *cobra.Command {
	chat := a.chatCommand()

	root := &cobra.Command{
		Use:   "arbiter",
		Short: "The Arbiter: a decisive persona chat",
		Long: `arbiter talks to The Arbiter (Kẻ Phán Quyết), a persona that answers
every dilemma with one verdict and the reasoning behind it.

Run "arbiter serve" to start the relay, then "arbiter chat" to talk to it.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		RunE:              chat.RunE,
	}
	root.Flags().AddFlagSet(chat.Flags())

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "config file (default ~/.arbiter/config.toml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn or error")

	root.AddCommand(
		a.serveCommand(),
		chat,
		a.askCommand(),
		a.configCommand(),
		a.versionCommand(),
	)
	return root
}

// Execute runs the command tree against os.Args.
func Execute(ctx context.Context) error {
	return NewApp().RootCommand().ExecuteContext(ctx)
}

func (a *App) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid config: %w", err)
		}
	}
	a.cfg = cfg
	return nil
}

func (a *App) persona() (*persona.Persona, error) {
	return persona.Load(a.cfg.Persona.File)
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,

		// Version needs no configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "arbiter version %s\n", Version)
			fmt.Fprintf(out, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(out, "  Build date: %s\n", BuildDate)
		},
	}
}
