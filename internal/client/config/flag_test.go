package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected    *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "http://h:1/api", "-d", "/tmp/m", "-w", "120", "-l", "4", "-t", "5",
				"-b", "bkt", "-r", "eu-west-1", "-e", "http://minio:9000", "-v"},
			expected: &Config{
				ServerBaseURL:   "http://h:1/api",
				DataDir:         "/tmp/m",
				SearchDebounce:  120 * time.Millisecond,
				SearchLimit:     4,
				RequestTimeout:  5 * time.Second,
				ArchiveBucket:   "bkt",
				ArchiveRegion:   "eu-west-1",
				ArchiveEndpoint: "http://minio:9000",
				Verbose:         true,
			},
		},
		{
			name: "config flag is ignored here",
			args: []string{"-c", "cfg.json", "-a", "http://h:2/api"},
			expected: &Config{
				ServerBaseURL: "http://h:2/api",
			},
		},
		{name: "invalid debounce", args: []string{"-w", "abc"}, expectPanic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(cfg, tt.args) })
				return
			}
			require.NotPanics(t, func() { parseFlags(cfg, tt.args) })
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
