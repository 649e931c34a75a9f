// Package env reads the few process settings that are needed before the
// typed config is loaded.
package env

import (
	"os"
	"strings"
)

const (
	LogFormat  = "STOREFRONT_LOG_FORMAT"
	InstanceID = "STOREFRONT_INSTANCE_ID"
)

// Get returns the trimmed value of key, or fallback when it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Instance names this process in logs. It prefers an explicit id, then the
// platform dyno name, then the hostname.
func Instance(fallback string) string {
	for _, key := range []string{InstanceID, "DYNO"} {
		if v := Get(key, ""); v != "" {
			return v
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallback
}
