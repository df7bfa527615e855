// Package common holds helpers shared by several services.
//
// It brings distribution sources described by a specification to the
// local filesystem and builds the mirror client the services talk to.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
