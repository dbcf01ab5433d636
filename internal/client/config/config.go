package config

import (
	"os"
	"time"
)

// Config holds runtime settings for the Melvin client.
type Config struct {
	ServerBaseURL  string
	DataDir        string
	SearchDebounce time.Duration
	SearchLimit    int
	RequestTimeout time.Duration

	ArchiveBucket   string
	ArchiveRegion   string
	ArchiveEndpoint string

	// Static archive credentials; when empty the default AWS chain is used.
	ArchiveAccessKey string
	ArchiveSecretKey string

	Verbose bool
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8000/api"
	c.DataDir = ".melvin"
	c.SearchDebounce = 300 * time.Millisecond
	c.SearchLimit = 8
	c.RequestTimeout = 30 * time.Second
	c.ArchiveRegion = "us-east-1"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags. Later sources take precedence.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg, os.Args[1:])
	parseFlags(cfg, os.Args[1:])
	return cfg
}
