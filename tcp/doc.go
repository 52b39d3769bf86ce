// Package tcp models the TCP connection lifecycle as a pure transition
// table over (state, event) pairs.
//
// The table covers the classic eleven states with their kernel numeric
// values (ESTABLISHED=1 ... CLOSING=11). Applying an event that has no
// row for the current state is a no-op, not an error; the connection
// orchestrator relies on this when it drives events unconditionally.
package tcp
