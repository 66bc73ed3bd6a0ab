// Package session keeps the live conductors of a process, one per session,
// keyed by a generated id. Sessions that sit idle longer than the configured
// TTL expire and are dropped.
package session
