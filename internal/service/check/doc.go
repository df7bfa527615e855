// Package check implements the check command: run a distribution's
// regression suite against a live database, preserving the regression
// artifacts when the suite fails.
package check
