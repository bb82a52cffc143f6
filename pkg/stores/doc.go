// Package stores persists capability profiles in SQLite. Each profile is
// kept as its encoded script, so the store can also be read back through
// the archive interface and bulk loaded like a directory of scripts.
package stores
