// Package config loads runtime configuration for the Melvin terminal client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJSON) selected via -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the backend API (e.g. http://127.0.0.1:8000/api)
//	-d string   data directory holding the local database and log file
//	-w int      search debounce interval (milliseconds)
//	-l int      maximum number of card search results
//	-t int      HTTP request timeout (seconds)
//	-b string   S3 bucket for transcript export (empty disables export)
//	-r string   S3 region
//	-e string   S3-compatible endpoint override
//	-v          verbose (debug) logging
//
// # JSON schema
//
// Durations use timex.Duration, so they can be strings like "300ms" or
// integer nanoseconds:
//
//	{
//	  "server_base_url": "http://127.0.0.1:8000/api",
//	  "data_dir": ".melvin",
//	  "search_debounce": "300ms",
//	  "search_limit": 8,
//	  "request_timeout": "30s",
//	  "archive_bucket": "melvin-transcripts",
//	  "archive_region": "us-east-1",
//	  "archive_endpoint": "http://127.0.0.1:9000",
//	  "verbose": false
//	}
package config
