package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStart_Disabled(t *testing.T) {
	t.Setenv(EnvVar, "")

	f, err := Start("", "debug")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestStart_WritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debug.log")

	f, err := Start(path, "info")
	require.NoError(t, err)
	require.NotNil(t, f)
	defer f.Close()

	log.Debug().Msg("hidden")
	log.Info().Str("port", "COM11").Msg("visible")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"port":"COM11"`)
	assert.Contains(t, string(data), "visible")
	assert.NotContains(t, string(data), "hidden")
}

func TestStart_InvalidLevel(t *testing.T) {
	_, err := Start(filepath.Join(t.TempDir(), "debug.log"), "loud")
	assert.Error(t, err)
}
