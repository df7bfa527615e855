// Package release generates the manifest published alongside client
// binaries, the counterpart of the selfupdate command.
package release
