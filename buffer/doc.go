// Package buffer implements the fixed-capacity byte queues backing every
// socket's send and receive paths.
//
// The contract is deliberately forgiving: writes truncate to the free
// space instead of erroring, and reads return 0 on an empty buffer. The
// delivery path builds its would-block and partial-write semantics on
// top of these two rules.
package buffer
