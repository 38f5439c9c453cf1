// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli provides the arbiter command tree.
//
// # Commands
//
//   - serve: run the relay endpoint
//   - chat: the interactive terminal chat (default)
//   - ask: a single question, answered once
//   - version: build information
//
// # Usage
//
//	root := cli.NewApp().RootCommand()
//	if err := root.ExecuteContext(ctx); err != nil {
//	    os.Exit(1)
//	}
package cli
