// Package config provides environment-based configuration.
//
// Loads from environment variables with defaults, validates required fields
// and cross-field constraints (seed credentials come in pairs).
package config
