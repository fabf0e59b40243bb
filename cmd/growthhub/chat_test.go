package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xaenox/growth-hub/internal/chat"
	"github.com/xaenox/growth-hub/internal/llm"
	"github.com/xaenox/growth-hub/internal/session"
	"github.com/xaenox/growth-hub/internal/storage"
)

func newTestSession(t *testing.T) *session.Session {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m := session.NewManager(storage.NewMemoryStorage(), llm.NewClient(logger), session.Options{}, nil, logger)
	return m.Get("terminal", nil)
}

func TestREPLWithoutProvider(t *testing.T) {
	s := newTestSession(t)
	var out bytes.Buffer

	in := strings.NewReader("hello\n/quit\n")
	require.NoError(t, runREPL(context.Background(), in, &out, s))

	assert.Contains(t, out.String(), "Growth Hub provides")
	assert.Contains(t, out.String(), chat.ConfigNotice)
	assert.Empty(t, s.Store.Messages())
}

func TestREPLCrisisAndCommands(t *testing.T) {
	s := newTestSession(t)
	var out bytes.Buffer

	in := strings.NewReader("I want to end it all\n/new\n/history\n/summary\n/ok\n/bogus\n")
	require.NoError(t, runREPL(context.Background(), in, &out, s))

	text := out.String()
	assert.Contains(t, text, "988")
	assert.Contains(t, text, "Type /ok to dismiss")
	assert.Contains(t, text, `Saved "I want to end it all".`)
	assert.Contains(t, text, "1. I want to end it all")
	assert.Contains(t, text, "- [goal] I want to end it all")
	assert.Contains(t, text, "Warning dismissed.")
	assert.Contains(t, text, "Unknown command /bogus")
	assert.False(t, s.Chat.CrisisWarning())
}

func TestBellNotifier(t *testing.T) {
	var out bytes.Buffer
	n := bellNotifier{w: &out}
	n.PlayTone(chat.ToneSend)
	n.PlayTone(chat.ToneReceive)
	assert.Equal(t, "\a", out.String())
}
