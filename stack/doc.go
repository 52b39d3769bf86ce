// Package stack assembles the socket subsystem. A Stack owns a socket
// registry and exposes the whole operation surface over it: lifecycle
// (Create, Bind, Listen, Accept, Connect, CloseSocket), transfer (Send,
// Recv, SendTo, RecvFrom) and introspection (State, TCPState, Info,
// QueueStatus, BufferStatus).
//
// Everything is an in-memory emulation. Connections resolve
// synchronously against the local registry, stream bytes travel inside
// constructed segments that are dispatched to whichever local record
// matches the destination address, and datagrams copy buffer to buffer.
// No operation blocks: a socket that cannot make progress reports a
// would-block error and leaves retrying to the caller.
//
// A single mutex serializes every operation on a Stack, so multi-step
// sequences like the bind conflict scan or the connect handshake commit
// atomically. Multiple Stacks are fully isolated from each other.
package stack
