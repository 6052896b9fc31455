package config

import (
	"os"
	"time"
)

// Timeouts holds the wait bounds of stack operations.
type Timeouts struct {
	Deploy       time.Duration // Time to wait for a create or update to finish
	Delete       time.Duration // Time to wait for a stack deletion to finish
	PollInterval time.Duration // Delay between stack status checks
}

// LoadTimeouts loads timeouts from environment variables. Unset or
// invalid values fall back to the default.
//
// Environment Variables:
//   - SDCOMFY_DEPLOY_TIMEOUT (default: 45m, the 30m readiness signal plus provisioning)
//   - SDCOMFY_DELETE_TIMEOUT (default: 20m)
//   - SDCOMFY_POLL_INTERVAL (default: 10s)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Deploy:       parseDuration("SDCOMFY_DEPLOY_TIMEOUT", 45*time.Minute),
		Delete:       parseDuration("SDCOMFY_DELETE_TIMEOUT", 20*time.Minute),
		PollInterval: parseDuration("SDCOMFY_POLL_INTERVAL", 10*time.Second),
	}
}

// parseDuration parses a positive duration from an environment variable.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}
