// Package pg talks to a local PostgreSQL installation through its
// command line tools: pg_config for the installation layout, psql for
// queries and script execution.
package pg
