// Package config loads and validates vanilla-extract.json, the project
// configuration file. Configuration is discovered by walking up from
// the working directory, and missing fields fall back to defaults.
package config
