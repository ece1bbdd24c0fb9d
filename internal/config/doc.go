// Package config provides configuration loading and validation for the live
// translation service. It handles YAML-based configuration with per-section
// struct validation and duration conversion helpers.
package config
