// Package config defines client settings used by pgxn-client commands and
// provides helpers to load, validate and save them in YAML format.
//
// The Config type holds the mirror URL, the release URL for selfupdate,
// and the external tool paths (make, sudo, pg_config).
package config
