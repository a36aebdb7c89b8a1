// Package config loads server configuration from defaults, an optional
// YAML file, and environment variables, in that order of precedence
// (environment wins). All environment variables use the ANALYTICS_ prefix.
package config
