package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mahlburgc/lorachat/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd, _ := newRootCmd()

	assert.Equal(t, "lorachat", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Contains(t, names, "list")

	for _, name := range []string{"port", "baud", "timeout", "line-ending", "timestamp", "mock", "relay", "config", "log-file"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), name)
	}
}

func TestFlags_OnlyChangedFlagsOverride(t *testing.T) {
	cmd, flags := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"-p", "COM9", "--baud", "9600", "--line-ending", "crlf", "--mock"}))

	cfg := config.Default()
	cfg.Display.Timestamp = false
	cfg.Relay.Listen = ":4000"
	flags.apply(cmd, &cfg)

	assert.Equal(t, "COM9", cfg.Port)
	assert.Equal(t, 9600, cfg.Baud)
	assert.Equal(t, "crlf", cfg.LineEnding)
	assert.True(t, cfg.Mock)
	// not given on the command line, file values stay
	assert.False(t, cfg.Display.Timestamp)
	assert.Equal(t, ":4000", cfg.Relay.Listen)
	assert.Equal(t, time.Second, cfg.ReadTimeout)
}

func TestFlags_LoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: COM4\nbaud: 57600\n"), 0o600))

	cmd, flags := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--config", path, "-b", "19200"}))

	cfg, err := flags.loadConfig(cmd)
	require.NoError(t, err)
	assert.Equal(t, "COM4", cfg.Port)
	assert.Equal(t, 19200, cfg.Baud)
}

func TestFlags_LoadConfigValidates(t *testing.T) {
	cmd, flags := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
		"--line-ending", "cr",
	}))

	_, err := flags.loadConfig(cmd)
	assert.Error(t, err)
}
