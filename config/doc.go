// Package config loads and validates the application configuration from
// defaults, config files, environment variables, and CLI flags, in
// increasing order of precedence.
package config
