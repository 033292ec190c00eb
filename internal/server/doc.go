// Package server hosts the Fiber HTTP surface over a single memfs.Cache. It
// wires the request-id and logging middleware, resolves URL wildcards into
// paths confined to the configured root, and exposes the data routes
// (/data/*) that map onto cache reads, writes and clears. Diagnostics routes
// live in the routes subpackage so cmd wiring can choose whether to mount
// them.
package server
