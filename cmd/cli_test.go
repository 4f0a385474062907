package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazuki-dev/vrcwatch/internal/domain"
	"github.com/hazuki-dev/vrcwatch/internal/version"
)

// isolateEnv points every lookup the wiring performs at a throwaway home and
// clears the credential variables, so tests never touch the real app dir.
func isolateEnv(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_DATA_HOME", "")
	t.Setenv("APPDATA", "")
	t.Setenv("VRCWATCH_USERNAME", "")
	t.Setenv("VRCWATCH_PASSWORD", "")
	t.Setenv("VRCWATCH_DEBUG", "")
}

func TestVersionCommand(t *testing.T) {
	isolateEnv(t)

	cmd, cleanup := newRootCmd()
	t.Cleanup(func() { _ = cleanup() })
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, version.Version, strings.TrimSpace(out.String()))
}

func TestWatchRequiresCredentials(t *testing.T) {
	isolateEnv(t)

	cmd, cleanup := newRootCmd()
	t.Cleanup(func() { _ = cleanup() })
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"watch"})

	err := cmd.Execute()
	var cfgErr *domain.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "VRCWATCH_USERNAME", cfgErr.Field)
}

func TestSnapshotRequiresCredentials(t *testing.T) {
	isolateEnv(t)

	cmd, cleanup := newRootCmd()
	t.Cleanup(func() { _ = cleanup() })
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"snapshot"})

	var cfgErr *domain.ConfigError
	assert.ErrorAs(t, cmd.Execute(), &cfgErr)
}

func TestCleanupClosesLogFile(t *testing.T) {
	isolateEnv(t)

	cmd, cleanup := newRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"version"})
	require.NoError(t, cmd.Execute())

	require.NoError(t, cleanup())
	assert.Error(t, cleanup(), "second close fails only if the first released the handle")
}
