package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/melvin/internal/flagx"
)

// parseFlags populates cfg from the command-line flags listed in the package
// documentation. Only those flags are parsed (see flagx.FilterArgs) so that
// -c/-config and unknown arguments do not interfere. Invalid values panic.
func parseFlags(cfg *Config, args []string) {
	args = flagx.FilterArgs(args,
		[]string{"-a", "-d", "-w", "-l", "-t", "-b", "-r", "-e"},
		"-v",
	)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&cfg.ServerBaseURL, "a", cfg.ServerBaseURL, "base URL of the backend API")
	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	debounce := fs.Int("w", int(cfg.SearchDebounce.Milliseconds()), "search debounce (in milliseconds)")
	fs.IntVar(&cfg.SearchLimit, "l", cfg.SearchLimit, "card search result limit")
	timeout := fs.Int("t", int(cfg.RequestTimeout.Seconds()), "request timeout (in seconds)")
	fs.StringVar(&cfg.ArchiveBucket, "b", cfg.ArchiveBucket, "S3 bucket for transcript export")
	fs.StringVar(&cfg.ArchiveRegion, "r", cfg.ArchiveRegion, "S3 region")
	fs.StringVar(&cfg.ArchiveEndpoint, "e", cfg.ArchiveEndpoint, "S3-compatible endpoint")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "verbose logging")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.SearchDebounce = time.Duration(*debounce) * time.Millisecond
	cfg.RequestTimeout = time.Duration(*timeout) * time.Second
}
