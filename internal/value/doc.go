// Package value defines the tagged union stored for every cached path. A Value
// is one of string, number, boolean, structured object (JSON object or array)
// or absent. The same Kind discriminator drives inference when bytes are read
// from disk, serialization when an entry is flushed back, and the type
// introspection exposed by the memory cache.
package value
