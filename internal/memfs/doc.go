// Package memfs is the memory layer of the cache: a map from normalized
// absolute path to a typed value plus its last access time. Reads page a path
// in from disk on miss, writes stay in memory until a flush, and two
// background sweeps owned by each Cache flush every entry periodically and
// drop entries that have been idle past the threshold (flushing them first).
// A Cache is an explicit instance; callers construct it with New and tear it
// down with Close.
package memfs
