package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/melvin/internal/flagx"
	"github.com/dmitrijs2005/melvin/internal/timex"
)

// JSONConfig is the on-disk shape of the config file. Pointer fields let a
// file override only what it mentions.
type JSONConfig struct {
	ServerBaseURL   *string         `json:"server_base_url"`
	DataDir         *string         `json:"data_dir"`
	SearchDebounce  *timex.Duration `json:"search_debounce"`
	SearchLimit     *int            `json:"search_limit"`
	RequestTimeout  *timex.Duration `json:"request_timeout"`
	ArchiveBucket   *string         `json:"archive_bucket"`
	ArchiveRegion   *string         `json:"archive_region"`
	ArchiveEndpoint *string         `json:"archive_endpoint"`
	ArchiveAccess   *string         `json:"archive_access_key"`
	ArchiveSecret   *string         `json:"archive_secret_key"`
	Verbose         *bool           `json:"verbose"`
}

// parseJSON overlays cfg with the file named by -c/-config, if any.
// Read and decode errors panic; the caller runs at start-up only.
func parseJSON(cfg *Config, args []string) {
	path := flagx.ConfigFilePath(args)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JSONConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerBaseURL != nil {
		cfg.ServerBaseURL = *jc.ServerBaseURL
	}
	if jc.DataDir != nil {
		cfg.DataDir = *jc.DataDir
	}
	if jc.SearchDebounce != nil {
		cfg.SearchDebounce = jc.SearchDebounce.Duration
	}
	if jc.SearchLimit != nil {
		cfg.SearchLimit = *jc.SearchLimit
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.ArchiveBucket != nil {
		cfg.ArchiveBucket = *jc.ArchiveBucket
	}
	if jc.ArchiveRegion != nil {
		cfg.ArchiveRegion = *jc.ArchiveRegion
	}
	if jc.ArchiveEndpoint != nil {
		cfg.ArchiveEndpoint = *jc.ArchiveEndpoint
	}
	if jc.ArchiveAccess != nil {
		cfg.ArchiveAccessKey = *jc.ArchiveAccess
	}
	if jc.ArchiveSecret != nil {
		cfg.ArchiveSecretKey = *jc.ArchiveSecret
	}
	if jc.Verbose != nil {
		cfg.Verbose = *jc.Verbose
	}
}
