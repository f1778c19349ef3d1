// Package wire implements the byte-level serialization primitives the
// master and worker driver use to exchange messages: a growable byte
// area, a 6-bit alphanumeric type-code registry, and the framed message
// and response-envelope formats described in spec §6.
//
// None of this package's types are concurrency-safe; each Buffer and
// Registry is owned by a single goroutine (the event loop), matching the
// single-threaded cooperative model the rest of the module assumes.
package wire
