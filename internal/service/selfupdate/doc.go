// Package selfupdate replaces the running client binary with the
// latest published release.
//
// It downloads a YAML manifest from the configured release URL,
// compares the published version against the build version, and swaps
// the executable in place after verifying the binary's checksum. A
// marker file in the system temp directory keeps two updates from
// racing on the same executable.
package selfupdate
