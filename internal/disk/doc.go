// Package disk is the filesystem side of the cache. It maps real paths to
// typed values: directory enumeration (optionally recursive), content-type
// inference on read and type-directed serialization on write. The store keeps
// no state of its own; the memory cache owns the resident entries and calls
// into this package whenever it needs to page a path in or flush it out.
// All access goes through an afero.Fs so tests can swap in an in-memory tree.
package disk
