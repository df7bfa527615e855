// Package install implements the install and uninstall commands:
// acquire a distribution source, optionally configure it, then drive
// the build tool through its build, install or uninstall targets.
package install
