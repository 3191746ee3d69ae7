package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxassist/internal/config"
	"github.com/teemow/inboxassist/internal/logging"
	"github.com/teemow/inboxassist/internal/rewrite"
	"github.com/teemow/inboxassist/internal/store"
)

// isolateConfig keeps a developer's .env and environment out of the test.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("INBOXASSIST_STORE_DRIVER", store.DriverMemory)
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("INBOXASSIST_REWRITE_API_KEY", "")
}

func TestNewRewriter(t *testing.T) {
	r, err := newRewriter(config.RewriteConfig{}, logging.Discard(), nil)
	require.NoError(t, err)
	assert.IsType(t, rewrite.MockRewriter{}, r)

	r, err = newRewriter(config.RewriteConfig{APIKey: "sk-test"}, logging.Discard(), nil)
	require.NoError(t, err)
	assert.IsType(t, &rewrite.ChatRewriter{}, r)
}

func TestNewApp(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = store.DriverMemory

	a, err := newApp(context.Background(), cfg, logging.Discard(), appOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.NotNil(t, a.inbox)
	assert.NotNil(t, a.rewriter)

	connected, err := a.resolver.Connected(context.Background())
	require.NoError(t, err)
	assert.False(t, connected)

	_, err = a.gmailToken(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "inboxassist connect")
}

func TestNewApp_BadScoringMode(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = store.DriverMemory
	cfg.Inbox.ScoringMode = "astrology"

	_, err := newApp(context.Background(), cfg, logging.Discard(), appOptions{})
	assert.Error(t, err)
}

func TestRewriteInput(t *testing.T) {
	text, err := rewriteInput(strings.NewReader("ignored"), []string{"from args"})
	require.NoError(t, err)
	assert.Equal(t, "from args", text)

	text, err = rewriteInput(strings.NewReader("  from stdin\n"), nil)
	require.NoError(t, err)
	assert.Equal(t, "from stdin", text)

	_, err = rewriteInput(strings.NewReader("   "), nil)
	assert.Error(t, err)
}

func TestPolishCmd(t *testing.T) {
	isolateConfig(t)

	cmd := newPolishCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hello world"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "hello world")
}

func TestToneCmd(t *testing.T) {
	isolateConfig(t)

	t.Run("stdin", func(t *testing.T) {
		cmd := newToneCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetIn(strings.NewReader("see you tomorrow"))
		cmd.SetArgs([]string{"friendly"})

		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "see you tomorrow")
	})

	t.Run("unknown tone", func(t *testing.T) {
		cmd := newToneCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"sarcastic", "text"})

		err := cmd.Execute()
		assert.ErrorIs(t, err, rewrite.ErrUnknownTone)
	})
}

func TestStatusCmd_NotConnected(t *testing.T) {
	isolateConfig(t)
	t.Setenv("INBOXASSIST_IDENTITY", "alice")

	cmd := newStatusCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Identity:  alice")
	assert.Contains(t, out.String(), "Store:     memory")
	assert.Contains(t, out.String(), "not connected")
}

func TestConnectCmd_RequiresClientCredentials(t *testing.T) {
	isolateConfig(t)
	t.Setenv("INBOXASSIST_GOOGLE_CLIENT_ID", "")
	t.Setenv("INBOXASSIST_GOOGLE_CLIENT_SECRET", "")

	cmd := newConnectCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client id and secret")
}
