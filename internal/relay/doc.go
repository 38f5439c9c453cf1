// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package relay is the stateless HTTP endpoint between chat clients and the
// upstream model.
//
// Endpoints:
//   - POST /api/chat  - persona-prefixed completion (JSON, plain chunked, or SSE)
//   - GET  /healthz   - liveness and provider name
//
// The endpoint prepends the persona prompt to the client conversation and
// forwards it to a provider.Provider. It keeps no conversation state and
// never retries. Failures are logged in full and reported to clients only as
// {"error":"Failed to generate response"}.
//
// The package also carries the client side: Client speaks to a remote relay
// and Local runs the same pipeline in-process. Both satisfy the session
// transport contract.
package relay
