/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package log

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/acronis/go-ratelimit/config"
)

func TestConfig(t *testing.T) {
	cfgData := `
log:
  level: debug
  format: text
  output: stderr
  nocolor: true
`
	cfg := NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, LevelDebug, cfg.Level)
	require.Equal(t, FormatText, cfg.Format)
	require.Equal(t, OutputStderr, cfg.Output)
	require.True(t, cfg.NoColor)
}

func TestConfigDefaults(t *testing.T) {
	cfg := NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBuffer(nil), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, NewDefaultConfig(), cfg)
}

func TestConfigCaseInsensitiveValues(t *testing.T) {
	cfgData := `
log:
  level: WARN
  format: JSON
`
	cfg := NewConfig()
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, LevelWarn, cfg.Level)
	require.Equal(t, FormatJSON, cfg.Format)
}

func TestConfigWithKeyPrefix(t *testing.T) {
	cfgData := `
logger:
  level: error
`
	cfg := NewConfig(WithKeyPrefix("logger"))
	err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(cfgData), config.DataTypeYAML, cfg)
	require.NoError(t, err)
	require.Equal(t, LevelError, cfg.Level)
}

func TestConfigValidationErrors(t *testing.T) {
	tests := []struct {
		name     string
		yamlData string
	}{
		{
			name: "error, unknown level",
			yamlData: `
log:
  level: verbose
`,
		},
		{
			name: "error, unknown format",
			yamlData: `
log:
  format: xml
`,
		},
		{
			name: "error, unknown output",
			yamlData: `
log:
  output: /var/log/app.log
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.yamlData), config.DataTypeYAML, cfg)
			require.Error(t, err)
		})
	}
}
