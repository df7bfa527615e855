// Package cache implements persistence for mirror responses.
//
// The FileRepository stores fetched documents on disk with a time-to-live
// and exposes a Repository interface that the mirror client depends on.
// It spares the network a round trip for the API index and for immutable
// release metadata.
package cache
