// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/jeranaias/arbiter/internal/logging"
	"github.com/jeranaias/arbiter/internal/model"
	"github.com/jeranaias/arbiter/internal/provider"
	"github.com/jeranaias/arbiter/internal/relay"
	"github.com/jeranaias/arbiter/internal/replay"
	"github.com/jeranaias/arbiter/internal/ui/styles"
)

// completer is anything that answers a conversation in one piece.
type completer interface {
	Complete(ctx context.Context, turns []model.WireTurn) (string, error)
}

type askOptions struct {
	relayURL string
	local    bool
	provider string
	raw      bool
}

func (a *App) askCommand() *cobra.Command {
	var opts askOptions
	cmd := &cobra.Command{
		Use:   "ask <question...>",
		Short: "Ask a single question",
		Example: `  arbiter ask "Nghỉ việc hay tiếp tục chịu đựng?"
  arbiter ask --local --provider mock Tỏ tình hay im lặng?`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runAsk(cmd.Context(), cmd.OutOrStdout(), opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&opts.relayURL, "relay", "", "relay URL (default from config)")
	cmd.Flags().BoolVar(&opts.local, "local", false, "call the provider in-process instead of a relay")
	cmd.Flags().StringVar(&opts.provider, "provider", "", "provider kind for --local: openrouter or mock")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "print the reply without markdown rendering")
	return cmd
}

func (a *App) runAsk(ctx context.Context, out io.Writer, opts askOptions, question string) error {
	cfg := a.cfg
	if err := logging.Configure(cfg.Log.Level, logging.Format(cfg.Log.Format), cfg.Log.File); err != nil {
		return err
	}

	ps, err := a.persona()
	if err != nil {
		return err
	}

	var c completer
	if opts.local {
		pcfg := cfg.Provider
		if opts.provider != "" {
			pcfg.Kind = opts.provider
		}
		prov, err := provider.New(pcfg, ps)
		if err != nil {
			return fmt.Errorf("provider %s: %w", pcfg.Kind, err)
		}
		c = relay.NewLocal(prov, ps)
	} else {
		url := opts.relayURL
		if url == "" {
			url = cfg.Chat.RelayURL
		}
		c = relay.NewClient(url, cfg.Chat.RequestTimeout())
	}

	pretty := !opts.raw && stdoutIsTerminal()
	answer := answerer{
		out:    out,
		pretty: pretty,
		width:  terminalWidth(),
		style:  styles.NewTheme().GlamourStyle(),
		reveal: replay.Options{
			Interval: cfg.Chat.RevealInterval(),
			Jitter:   cfg.Chat.RevealJitter(),
		},
	}
	return answer.ask(ctx, c, question)
}

// answerer prints one reply. On a terminal the words are revealed with the
// replay cadence, then the plain text is replaced by its markdown rendering.
type answerer struct {
	out    io.Writer
	pretty bool
	width  int
	style  string
	reveal replay.Options
}

func (a answerer) ask(ctx context.Context, c completer, question string) error {
	turns := []model.WireTurn{{Role: model.RoleUser, Content: question}}
	text, err := c.Complete(ctx, turns)
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}
	if !a.pretty {
		_, err := fmt.Fprintln(a.out, text)
		return err
	}

	wrapped := wordwrap.String(text, a.width)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var writeErr error
	buf := replay.New(a.reveal)
	err = buf.Play(ctx, wrapped, func(f replay.Frame) {
		if writeErr != nil {
			return
		}
		if _, writeErr = io.WriteString(a.out, f.Delta); writeErr != nil {
			cancel()
		}
	})
	if writeErr != nil {
		return fmt.Errorf("ask: write: %w", writeErr)
	}
	if err != nil {
		return err
	}

	rendered, err := renderMarkdown(text, a.style, a.width)
	if err != nil {
		// The plain reveal already shows the whole reply.
		_, err = fmt.Fprintln(a.out)
		return err
	}
	termenv.NewOutput(a.out).ClearLines(strings.Count(wrapped, "\n"))
	_, err = fmt.Fprint(a.out, "\r"+rendered)
	return err
}

func renderMarkdown(text, style string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}
	return r.Render(text)
}
