// Package meta parses distribution metadata (META.json).
//
// The provides section maps extension names to their SQL files and the
// order of its entries is significant: extensions are loaded in document
// order and unloaded in reverse. The section is therefore decoded into a
// slice with a token walk instead of a Go map.
package meta
