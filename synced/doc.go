// Package synced provides a mutual-exclusion wrapper for sharing an
// indexed table across goroutines.
//
// The root table performs no internal locking and is meant to be owned by
// one logical execution context at a time. This package supplies the
// external synchronization boundary: read operations run under a shared
// lock, mutations under an exclusive lock, and mutation callbacks are
// recovered so that a panicking callback surfaces as an error instead of
// unwinding through the shared lock.
package synced
