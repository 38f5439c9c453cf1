// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/arbiter/internal/config"
	"github.com/jeranaias/arbiter/internal/logging"
	"github.com/jeranaias/arbiter/internal/persona"
	"github.com/jeranaias/arbiter/internal/provider"
	"github.com/jeranaias/arbiter/internal/relay"
)

type serveOptions struct {
	addr     string
	provider string
}

func (a *App) serveCommand() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the relay endpoint",
		Long: `serve exposes POST /api/chat. Each request carries the whole conversation;
the persona instruction is prepended before it reaches the provider.

A JSON reply is returned unless the request asks for a stream with
"stream": true, ?stream=1, or Accept: text/event-stream.`,
		Example: `  arbiter serve
  arbiter serve --addr :8080 --provider mock`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runServe(cmd.Context(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "provider kind: openrouter or mock")
	return cmd
}

// serveConfig applies the command flags over the loaded configuration.
func (a *App) serveConfig(opts serveOptions) (*config.Config, error) {
	cfg := a.cfg.Clone()
	if opts.addr != "" {
		cfg.Server.Addr = opts.addr
	}
	if opts.provider != "" {
		cfg.Provider.Kind = opts.provider
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (a *App) runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := a.serveConfig(opts)
	if err != nil {
		return err
	}

	// Piped output is usually collected, so it gets one JSON object per line.
	format := logging.Format(cfg.Log.Format)
	if !isTerminal(os.Stderr) {
		format = logging.FormatJSON
	}
	if err := logging.Configure(cfg.Log.Level, format, cfg.Log.File); err != nil {
		return err
	}
	log := logging.For("serve")

	ps, err := persona.Load(cfg.Persona.File)
	if err != nil {
		return err
	}
	prov, err := provider.New(cfg.Provider, ps)
	if err != nil {
		return fmt.Errorf("provider %s: %w", cfg.Provider.Kind, err)
	}
	srv := relay.New(prov, ps, cfg.Server).WithLogger(logging.For("relay").With("addr", cfg.Server.Addr))

	g, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()

	g.Go(func() error {
		defer cancel()
		return srv.Start(gctx)
	})

	g.Go(func() error {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)

		select {
		case sig := <-sigCh:
			log.Info("shutting down", "signal", sig.String())
			cancel()
		case <-gctx.Done():
		}
		return nil
	})

	if cfg.Persona.File != "" && cfg.Persona.Watch {
		g.Go(func() error {
			return persona.Watch(gctx, cfg.Persona.File,
				func(p *persona.Persona) {
					srv.SetPersona(p)
					log.Info("persona reloaded", "file", cfg.Persona.File, "name", p.Name)
				},
				func(err error) {
					log.Warn("persona reload failed", "file", cfg.Persona.File, "err", err)
				},
			)
		})
	}

	return g.Wait()
}
