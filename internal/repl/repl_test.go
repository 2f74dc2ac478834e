package repl

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"productrag/internal/domain"
	"productrag/internal/service"
)

type scriptedAnswerer struct {
	seen [][]domain.Turn
}

func (a *scriptedAnswerer) Answer(_ context.Context, query string, history []domain.Turn) (string, error) {
	a.seen = append(a.seen, history)
	return "answer to " + query, nil
}

func TestREPL_ChatSession(t *testing.T) {
	ans := &scriptedAnswerer{}
	s := service.NewSession(ans, service.ModeMultiTurn, 10)
	in := strings.NewReader("tents\nhelp\nclear\nboots\nexit\nignored\n")
	var out bytes.Buffer

	require.NoError(t, New(s, in, &out).Start(context.Background()))

	text := out.String()
	assert.Contains(t, text, "chat mode")
	assert.Contains(t, text, "Response:\nanswer to tents")
	assert.Contains(t, text, "clear  forget the conversation")
	assert.Contains(t, text, "Conversation cleared.")
	assert.Contains(t, text, "Response:\nanswer to boots")
	assert.Contains(t, text, service.Farewell)
	assert.NotContains(t, text, "ignored")
	assert.Equal(t, service.StateTerminated, s.State())

	require.Len(t, ans.seen, 2)
	assert.Len(t, ans.seen[1], 1)
}

func TestREPL_EndOfInput(t *testing.T) {
	s := service.NewSession(&scriptedAnswerer{}, service.ModeContinuous, 10)
	var out bytes.Buffer
	require.NoError(t, New(s, strings.NewReader("tents\n"), &out).Start(context.Background()))
	assert.Contains(t, out.String(), "Response:\nanswer to tents")
	assert.Contains(t, out.String(), service.Farewell)
	assert.Equal(t, service.StateTerminated, s.State())
}

func TestREPL_InterruptWhileWaiting(t *testing.T) {
	s := service.NewSession(&scriptedAnswerer{}, service.ModeMultiTurn, 10)
	pr, pw := io.Pipe()
	defer pw.Close()
	var out bytes.Buffer

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.NoError(t, New(s, pr, &out).Start(ctx))
	assert.Contains(t, out.String(), service.Farewell)
	assert.Equal(t, service.StateTerminated, s.State())
}
