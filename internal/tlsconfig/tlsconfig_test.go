package tlsconfig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	mode, err := ParseMode("disable")
	require.NoError(t, err)
	assert.Equal(t, Disabled, mode)

	mode, err = ParseMode("prefer")
	require.NoError(t, err)
	assert.Equal(t, Prefer, mode)

	mode, err = ParseMode("require")
	require.NoError(t, err)
	assert.Equal(t, Require, mode)

	_, err = ParseMode("bogus")
	require.Error(t, err)
}

func TestDisabledConfig(t *testing.T) {
	cfg := DisabledConfig()
	assert.False(t, cfg.Enabled())
	assert.False(t, cfg.Required())
}

func TestLoadDisabledModeSkipsFileIO(t *testing.T) {
	cfg, err := Load("/does/not/exist.pem", "/does/not/exist-key.pem", Disabled)
	require.NoError(t, err)
	assert.False(t, cfg.Enabled())
}
