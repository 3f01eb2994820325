// Package config loads and validates the parleyd YAML configuration.
package config
