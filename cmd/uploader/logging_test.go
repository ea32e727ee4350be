package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogConfig
		wantErr bool
		check   func(t *testing.T, out string)
	}{
		{
			name: "text",
			cfg:  LogConfig{Level: "info", Format: "text"},
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "msg=hello")
				assert.Contains(t, out, "file=a.txt")
			},
		},
		{
			name: "json",
			cfg:  LogConfig{Level: "debug", Format: "JSON"},
			check: func(t *testing.T, out string) {
				var rec map[string]any
				require.NoError(t, json.Unmarshal([]byte(out), &rec))
				assert.Equal(t, "hello", rec["msg"])
				assert.Equal(t, "a.txt", rec["file"])
			},
		},
		{
			name: "level filters",
			cfg:  LogConfig{Level: "error", Format: "text"},
			check: func(t *testing.T, out string) {
				assert.Empty(t, out)
			},
		},
		{
			name:    "invalid level",
			cfg:     LogConfig{Level: "loud", Format: "text"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			cfg:     LogConfig{Level: "info", Format: "xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := newLogger(tt.cfg, &buf)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			logger.Info("hello", "file", "a.txt")
			tt.check(t, buf.String())
		})
	}
}
