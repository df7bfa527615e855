// Package load implements the load and unload commands: register or
// remove the extension objects a distribution provides inside a target
// database, choosing between the server's native extension machinery
// and plain SQL scripts.
package load
