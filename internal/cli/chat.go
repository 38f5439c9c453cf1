// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/arbiter/internal/config"
	"github.com/jeranaias/arbiter/internal/logging"
	"github.com/jeranaias/arbiter/internal/persona"
	"github.com/jeranaias/arbiter/internal/provider"
	"github.com/jeranaias/arbiter/internal/relay"
	"github.com/jeranaias/arbiter/internal/replay"
	"github.com/jeranaias/arbiter/internal/session"
	"github.com/jeranaias/arbiter/internal/ui/chat"
	"github.com/jeranaias/arbiter/internal/ui/styles"
)

type chatOptions struct {
	relayURL string
	local    bool
	replay   bool
	provider string
}

func (a *App) chatCommand() *cobra.Command {
	var opts chatOptions
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to The Arbiter in the terminal",
		Example: `  arbiter chat
  arbiter chat --relay http://10.0.0.5:8787
  arbiter chat --local --provider mock --replay`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runChat(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.relayURL, "relay", "", "relay URL (default from config)")
	cmd.Flags().BoolVar(&opts.local, "local", false, "run the relay pipeline in-process")
	cmd.Flags().BoolVar(&opts.replay, "replay", false, "request whole replies and reveal them word by word")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "provider kind for --local: openrouter or mock")
	return cmd
}

// chatLogFile keeps log lines off the screen the TUI draws on.
func chatLogFile(cfg *config.Config) string {
	if cfg.Log.File != "" {
		return cfg.Log.File
	}
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "arbiter.log")
}

func (a *App) runChat(ctx context.Context, opts chatOptions) error {
	cfg := a.cfg
	if opts.replay {
		cfg.Chat.Replay = true
	}

	logFile := chatLogFile(cfg)
	if logFile != "" {
		if err := ensureDir(filepath.Dir(logFile)); err != nil {
			return err
		}
	}
	if err := logging.Configure(cfg.Log.Level, logging.Format(cfg.Log.Format), logFile); err != nil {
		return err
	}

	ps, err := a.persona()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	transport, err := a.chatTransport(ctx, opts, ps)
	if err != nil {
		return err
	}

	mgr := session.New(transport, session.Options{
		Persona: ps,
		Replay:  cfg.Chat.Replay,
		Reveal: replay.Options{
			Interval: cfg.Chat.RevealInterval(),
			Jitter:   cfg.Chat.RevealJitter(),
		},
		Timeout: cfg.Chat.RequestTimeout(),
	})
	defer func() {
		mgr.Dispose()
		mgr.Wait()
	}()

	bridge := chat.NewBridge(mgr)
	defer bridge.Close()

	screen := chat.New(styles.NewTheme(), mgr, chat.Options{Persona: ps, Bridge: bridge})
	program := tea.NewProgram(screen, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat: %w", err)
	}
	return nil
}

// chatTransport connects to the configured relay, or with --local runs the
// relay pipeline in-process for as long as ctx.
func (a *App) chatTransport(ctx context.Context, opts chatOptions, ps *persona.Persona) (session.Transport, error) {
	if !opts.local {
		url := opts.relayURL
		if url == "" {
			url = a.cfg.Chat.RelayURL
		}
		c := relay.NewClient(url, 0)
		logging.For("chat").Info("using relay", "endpoint", c.Endpoint())
		return c, nil
	}

	pcfg := a.cfg.Provider
	if opts.provider != "" {
		pcfg.Kind = opts.provider
	}
	prov, err := provider.New(pcfg, ps)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", pcfg.Kind, err)
	}
	local := relay.NewLocal(prov, ps)

	if file := a.cfg.Persona.File; file != "" && a.cfg.Persona.Watch {
		log := logging.For("chat")
		go func() {
			err := persona.Watch(ctx, file,
				func(p *persona.Persona) {
					local.SetPersona(p)
					log.Info("persona reloaded", "file", file, "name", p.Name)
				},
				func(err error) {
					log.Warn("persona reload failed", "file", file, "err", err)
				},
			)
			if err != nil {
				log.Error("persona watch stopped", "err", err)
			}
		}()
	}
	return local, nil
}
