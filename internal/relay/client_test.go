// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/arbiter/internal/config"
	"github.com/jeranaias/arbiter/internal/model"
	"github.com/jeranaias/arbiter/internal/persona"
	"github.com/jeranaias/arbiter/internal/provider"
	"github.com/jeranaias/arbiter/internal/replay"
)

var userTurn = []model.WireTurn{{Role: model.RoleUser, Content: "Chào"}}

func startRelay(t *testing.T, p provider.Provider) *Client {
	t.Helper()
	srv := httptest.NewServer(newTestServer(p, config.ServerConfig{}).Handler())
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", 5*time.Second)
}

// =============================================================================
// CLIENT TESTS
// =============================================================================

func TestClient_Endpoint(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8787/api/chat", NewClient("http://127.0.0.1:8787/", 0).Endpoint())
	assert.Equal(t, "http://127.0.0.1:8787/api/chat", NewClient("http://127.0.0.1:8787/api/chat", 0).Endpoint())
}

func TestClient_Stream(t *testing.T) {
	c := startRelay(t, helloProvider())
	var got []model.Fragment

	err := c.Stream(context.Background(), userTurn, func(f model.Fragment) {
		got = append(got, f)
	})

	require.NoError(t, err)
	assert.Equal(t, helloProvider().frags, got)
}

func TestClient_Complete(t *testing.T) {
	c := startRelay(t, helloProvider())

	text, err := c.Complete(context.Background(), userTurn)

	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)
}

func TestClient_StatusError(t *testing.T) {
	c := startRelay(t, helloProvider())

	_, err := c.Complete(context.Background(), nil)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "Message is required", se.Message)
}

func TestClient_StreamErrorEvent(t *testing.T) {
	p := helloProvider()
	p.err, p.failAfter = errUpstream, 2
	c := startRelay(t, p)
	var got []model.Fragment

	err := c.Stream(context.Background(), userTurn, func(f model.Fragment) { got = append(got, f) })

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "Failed to generate response", se.Message)
	assert.Len(t, got, 2)
}

func TestClient_StreamTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: text\ndata: {\"kind\":\"text\",\"payload\":\"Hel\"}\n\n")
	}))
	defer srv.Close()

	err := NewClient(srv.URL, time.Second).Stream(context.Background(), userTurn, func(model.Fragment) {})

	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
}

func TestClient_StreamCancel(t *testing.T) {
	c := startRelay(t, &scriptedProvider{block: true})
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := c.Stream(ctx, userTurn, func(model.Fragment) {})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_NetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).Complete(context.Background(), userTurn)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay request failed")
}

// =============================================================================
// SSE READER TESTS
// =============================================================================

func TestSSEReader(t *testing.T) {
	stream := ": keepalive\n\n" +
		"event: text\ndata: one\n\n" +
		"data: two\ndata: lines\n\n" +
		"event: done\r\ndata: {}\r\n"

	r := NewSSEReader(strings.NewReader(stream))

	name, data, err := r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "text", name)
	assert.Equal(t, "one", string(data))

	name, data, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Empty(t, name)
	assert.Equal(t, "two\nlines", string(data))

	name, data, err = r.ReadEvent()
	require.NoError(t, err)
	assert.Equal(t, "done", name)
	assert.Equal(t, "{}", string(data))

	_, _, err = r.ReadEvent()
	assert.ErrorIs(t, err, io.EOF)
}

// =============================================================================
// LOCAL TESTS
// =============================================================================

func TestLocal_StreamPrependsPersona(t *testing.T) {
	p := helloProvider()
	l := NewLocal(p, nil)
	var text strings.Builder

	err := l.Stream(context.Background(), userTurn, func(f model.Fragment) {
		if f.Kind == model.FragmentText {
			text.WriteString(f.Payload)
		}
	})

	require.NoError(t, err)
	assert.Equal(t, "Hello world", text.String())
	assert.Equal(t, persona.Default().Prompt, p.lastRequest().System)
}

func TestLocal_RejectsEmptyConversation(t *testing.T) {
	_, err := NewLocal(helloProvider(), nil).Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMessageRequired)
}

func TestLocal_CompleteWithMock(t *testing.T) {
	mock := provider.NewMock(nil, provider.MockOptions{
		Seed:    3,
		Cadence: replay.Options{Interval: time.Microsecond},
	})
	l := NewLocal(mock, nil)
	swapped := *persona.Default()
	swapped.Prompt = "Short answers."
	l.SetPersona(&swapped)

	text, err := l.Complete(context.Background(), userTurn)

	require.NoError(t, err)
	assert.Contains(t, persona.Default().MockResponses, text)
}

func TestLocal_PropagatesProviderError(t *testing.T) {
	err := NewLocal(&scriptedProvider{err: errUpstream}, nil).
		Stream(context.Background(), userTurn, func(model.Fragment) {})

	assert.True(t, errors.Is(err, errUpstream))
}
