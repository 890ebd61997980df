// Package config loads and validates the application configuration.
//
// Configuration comes from a YAML file, with defaults applied for anything
// omitted and optional environment variable overrides (COSTWATCH_SECTION_FIELD)
// applied on top. The loading sequence is file, defaults, environment,
// validation; a config that fails validation is never returned.
//
// The package also derives runtime artifacts from the raw configuration:
// PolicySet turns per-profile settings into budget policies, and Watcher
// re-loads the file on change with debouncing.
package config
