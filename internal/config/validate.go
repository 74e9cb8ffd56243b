package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
)

var outputFormats = []string{"auto", "text", "markdown", "json"}

// Validate checks that the configuration is usable for talking to a backend.
func (c *Config) Validate() error {
	var errs []error

	switch c.Backend.Type {
	case "":
		errs = append(errs, fmt.Errorf("backend.type is required"))
	case "appwrite":
		if c.Backend.Endpoint == "" {
			errs = append(errs, fmt.Errorf("backend.endpoint is required for appwrite"))
		} else if u, err := url.Parse(c.Backend.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("backend.endpoint %q is not an absolute URL", c.Backend.Endpoint))
		}
		if c.Backend.Project == "" {
			errs = append(errs, fmt.Errorf("backend.project is required for appwrite"))
		}
		if c.Backend.Key == "" {
			errs = append(errs, fmt.Errorf("backend.key is required for appwrite\nHint: set LAZYAPPWRITE_BACKEND__KEY or use ${VAR} in the config file"))
		}
	case "postgres":
		if c.Backend.Database == "" {
			errs = append(errs, fmt.Errorf("backend.database is required for postgres"))
		}
	}

	if !slices.Contains(outputFormats, c.OutputFormat) {
		errs = append(errs, fmt.Errorf("output must be one of %v, got %q", outputFormats, c.OutputFormat))
	}
	if c.Sync.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("sync.parallelism must be at least 1"))
	}
	if c.Sync.MaxRetries < 0 || c.Sync.MaxRejoins < 0 {
		errs = append(errs, fmt.Errorf("sync.max_retries and sync.max_rejoins cannot be negative"))
	}
	if c.Sync.PollAttempts < 1 {
		errs = append(errs, fmt.Errorf("sync.poll_attempts must be at least 1"))
	}

	return errors.Join(errs...)
}
