// Package download implements the download command: resolve a
// distribution against the mirror, fetch its release archive and keep
// it only when the digest matches.
package download
