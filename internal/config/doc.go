// Package config defines the settings shared by the master and sensor binaries
// and provides helpers to load, validate and save them in YAML format.
//
// Validate fills in defaults for every optional field, so a loaded Config is
// ready to use. The link literals must be identical on both nodes.
package config
