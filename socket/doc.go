// Package socket holds the registry layer: the Record type describing
// one socket, the Table that owns all records and hands out handles, and
// the bounded PendingQueue used by listeners.
//
// The Table is the single owner of every record. Callers outside the
// package identify sockets by Handle and must not retain *Record across
// operations that can remove it. Handles start at FirstHandle, grow
// monotonically and are never reused, so closed handles stay dead.
//
// Lifecycle observers subscribe to the Table and receive an Event with a
// point-in-time Info snapshot whenever a record is created or removed.
package socket
