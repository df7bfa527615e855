// Package mirror implements the PGXN mirror API client.
//
// A mirror serves a JSON index of URI templates ({dist}, {version}
// placeholders) which the client expands to fetch release listings,
// release metadata and archive download URLs. Resolution picks the
// highest release satisfying the requested version constraint, searching
// the stable channel before testing.
package mirror
