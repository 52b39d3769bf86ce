// Package netsim provides an in-process emulation of a kernel-style
// socket subsystem.
//
// The library models the classic BSD socket surface: create, bind,
// listen, accept, connect, close, send, recv, sendto and recvfrom, with
// 16-byte sockaddr-style addresses and a finite TCP state machine
// underneath the stream operations. Nothing touches a real network:
// connections resolve against an in-memory registry, stream bytes ride
// in constructed IPv4/TCP segments dispatched between local records,
// and datagrams copy buffer to buffer.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	netsim/          Root package with the Stack constructor and re-exports
//	├── stack/       Operation surface: lifecycle, transfer, introspection
//	├── socket/      Socket records, the handle table and pending queues
//	├── tcp/         Finite TCP state machine (11 states, 8 events)
//	├── wire/        Simulated IPv4 and TCP headers, checksums, flag names
//	├── inet/        sockaddr addresses, byte-order helpers, IPv4 parsing
//	├── buffer/      Bounded byte buffers backing every socket
//	└── errors/      Structured errors with kernel-style result codes
//
// # Quick Start
//
// Run a UDP exchange between two sockets:
//
//	st := netsim.New()
//	defer st.Close()
//
//	a, _ := st.Create(inet.FamilyInet, socket.Datagram, socket.ProtoIP)
//	b, _ := st.Create(inet.FamilyInet, socket.Datagram, socket.ProtoIP)
//
//	addrA, _ := inet.MakeAddr("127.0.0.1", 9001)
//	addrB, _ := inet.MakeAddr("127.0.0.1", 9002)
//	st.Bind(a, addrA)
//	st.Bind(b, addrB)
//
//	st.SendTo(a, []byte("PING"), addrB)
//	data, src, _ := st.RecvFrom(b, 64)
//	fmt.Printf("%s from %s\n", data, src) // "PING from 127.0.0.1:..."
//
// TCP works the same way, with Listen/Accept/Connect completing a
// synchronous in-registry handshake before Send and Recv move bytes.
//
// # Blocking Model
//
// No operation ever blocks. Anything that cannot make progress, such as
// reading an empty buffer or writing a full one, returns an error with
// code errors.CodeWouldBlock and leaves retrying to the caller.
//
// # Thread Safety
//
// A Stack is safe for concurrent use: one stack-wide mutex serializes
// every operation, so multi-step sequences like the bind conflict scan
// commit atomically. Distinct Stacks share nothing.
//
// # Fidelity
//
// The emulation favors teachability over protocol accuracy. Sequence
// and acknowledgment numbers are fixed teaching constants, the TCP
// checksum is an inert placeholder unless replaced, and datagram
// sources are fabricated loopback endpoints. The state machine,
// address model and error codes follow the kernel shapes closely
// enough to read network code against.
package netsim
