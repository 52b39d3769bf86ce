package stack

import (
	"go.uber.org/zap"

	"github.com/wippyai/netsim/errors"
	"github.com/wippyai/netsim/inet"
	"github.com/wippyai/netsim/socket"
	"github.com/wippyai/netsim/tcp"
	"github.com/wippyai/netsim/wire"
)

// Create registers a new socket and returns its handle. Family must be
// inet or unix, type one of stream, datagram or raw. A zero protocol is
// inferred from the type: stream maps to TCP, datagram to UDP.
func (s *Stack) Create(family inet.Family, typ socket.SockType, proto socket.Protocol) (socket.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, errors.Invalid(errors.OpCreate, "stack is closed")
	}
	if family != inet.FamilyInet && family != inet.FamilyUnix {
		return 0, errors.New(errors.OpCreate, errors.CodeInvalid).
			Value(family).
			Detail("unsupported address family").
			Build()
	}
	if typ != socket.Stream && typ != socket.Datagram && typ != socket.Raw {
		return 0, errors.New(errors.OpCreate, errors.CodeInvalid).
			Value(typ).
			Detail("unsupported socket type").
			Build()
	}
	if proto == socket.ProtoIP {
		proto = socket.DefaultProtocol(typ)
	}

	rec := s.newRecord(family, typ, proto)
	h := s.table.Add(rec)

	s.log.Debug("socket created",
		zap.Uint32("handle", uint32(h)),
		zap.Stringer("family", family),
		zap.Stringer("type", typ),
		zap.Stringer("protocol", proto))
	return h, nil
}

// Bind assigns a local address to an unconnected socket. The address
// conflict scan covers wildcard binds too: equal ports conflict when
// either side is the wildcard or the IPs are equal.
func (s *Stack) Bind(h socket.Handle, addr inet.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpBind, h)
	if ferr != nil {
		return ferr
	}
	if rec.State != socket.StateUnconnected {
		return errors.Invalid(errors.OpBind, "socket is not unconnected")
	}
	if addr.Family != inet.FamilyInet {
		return errors.New(errors.OpBind, errors.CodeInvalid).
			Value(addr.Family).
			Detail("address family must be inet").
			Build()
	}
	if owner, used := s.addrInUse(addr, h); used {
		return errors.New(errors.OpBind, errors.CodeAddrInUse).
			Value(addr).
			Detail("address already bound by socket %d", owner).
			Build()
	}

	rec.Local = addr
	s.log.Debug("socket bound",
		zap.Uint32("handle", uint32(h)),
		zap.String("local", addr.String()))
	return nil
}

// Listen turns a bound stream socket into a listener with a bounded
// pending queue. Backlogs outside (0, socket.MaxBacklog] are clamped to
// socket.MaxBacklog.
func (s *Stack) Listen(h socket.Handle, backlog int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpListen, h)
	if ferr != nil {
		return ferr
	}
	if rec.Type != socket.Stream {
		return errors.Invalid(errors.OpListen, "socket is not stream")
	}
	if rec.Local.Port == 0 {
		return errors.Invalid(errors.OpListen, "socket is not bound")
	}
	if rec.State != socket.StateUnconnected {
		return errors.Invalid(errors.OpListen, "socket is not unconnected")
	}

	if backlog <= 0 || backlog > socket.MaxBacklog {
		backlog = socket.MaxBacklog
	}
	rec.Pending = socket.NewPendingQueue(backlog)
	rec.State = socket.StateListening
	rec.Transition(tcp.EventListen)

	s.log.Info("socket listening",
		zap.Uint32("handle", uint32(h)),
		zap.String("local", rec.Local.String()),
		zap.Int("backlog", backlog))
	return nil
}

// Accept takes the oldest pending connection off a listener's queue and
// completes it. With an empty queue it synthesizes an inbound connection
// instead, since no real transport can deliver one: a fresh record with
// the listener's local address and a fabricated loopback peer. Either
// way the returned handle is connected, ESTABLISHED for TCP.
func (s *Stack) Accept(h socket.Handle) (socket.Handle, inet.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpAccept, h)
	if ferr != nil {
		return 0, inet.Address{}, ferr
	}
	if rec.State != socket.StateListening || rec.Pending == nil {
		return 0, inet.Address{}, errors.Invalid(errors.OpAccept, "socket is not listening")
	}

	for {
		ch, ok := rec.Pending.Pop()
		if !ok {
			break
		}
		conn, live := s.table.Get(ch)
		if !live {
			// Closed while queued; skip to the next one.
			continue
		}
		conn.State = socket.StateConnected
		conn.Transition(tcp.EventAckRecv)

		s.log.Info("connection accepted",
			zap.Uint32("listener", uint32(h)),
			zap.Uint32("handle", uint32(ch)),
			zap.String("peer", conn.Peer.String()))
		return ch, conn.Peer, nil
	}

	conn := s.newRecord(rec.Family, rec.Type, rec.Protocol)
	conn.Local = rec.Local
	conn.Peer = s.simulatedPeer()
	conn.State = socket.StateConnected
	if conn.Protocol == socket.ProtoTCP {
		conn.TCPState = tcp.Established
	}
	ch := s.table.Add(conn)

	s.log.Info("connection accepted",
		zap.Uint32("listener", uint32(h)),
		zap.Uint32("handle", uint32(ch)),
		zap.String("peer", conn.Peer.String()),
		zap.Bool("simulated", true))
	return ch, conn.Peer, nil
}

// Connect attaches a socket to a target address. Datagram and raw
// sockets just record the peer. TCP runs the synchronous handshake: a
// SYN segment is built for observability, the sub-state walks to
// SYN_SENT, and the registry is searched for a listener matching the
// target. Found, the connect succeeds immediately and a passive-side
// record lands in the listener's pending queue; not found, or the queue
// full, the connect fails with connection-refused and the socket
// reverts to unconnected.
func (s *Stack) Connect(h socket.Handle, target inet.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpConnect, h)
	if ferr != nil {
		return ferr
	}
	if rec.State != socket.StateUnconnected {
		return errors.Invalid(errors.OpConnect, "socket is not unconnected")
	}
	if target.Family != inet.FamilyInet {
		return errors.New(errors.OpConnect, errors.CodeInvalid).
			Value(target.Family).
			Detail("address family must be inet").
			Build()
	}

	rec.Peer = target
	if rec.Local.Port == 0 {
		if aerr := s.autoBind(rec); aerr != nil {
			return aerr
		}
	}
	rec.State = socket.StateConnecting

	if rec.Protocol != socket.ProtoTCP {
		rec.State = socket.StateConnected
		s.log.Debug("peer recorded",
			zap.Uint32("handle", uint32(h)),
			zap.String("peer", target.String()))
		return nil
	}

	// The SYN is constructed and observed but not dispatched; the
	// handshake below resolves synchronously against the registry.
	syn := s.newSegment(rec, wire.FlagSYN, uint32(s.rand.Int31()), 0, nil)
	s.observe(syn)
	rec.Transition(tcp.EventConnect)

	if herr := s.handshake(rec); herr != nil {
		rec.State = socket.StateUnconnected
		rec.TCPState = tcp.Closed
		return herr
	}

	rec.State = socket.StateConnected
	rec.Transition(tcp.EventSynAckRecv)

	s.log.Info("connection established",
		zap.Uint32("handle", uint32(h)),
		zap.String("local", rec.Local.String()),
		zap.String("peer", rec.Peer.String()))
	return nil
}

// CloseSocket removes a socket from the registry. A connected stream
// socket sends a FIN to its peer first and walks its sub-state through
// CLOSE; a listener drags its still-queued pending connections down with
// it. Buffered unsent bytes are discarded.
func (s *Stack) CloseSocket(h socket.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpClose, h)
	if ferr != nil {
		return ferr
	}

	if rec.Type == socket.Stream && rec.State == socket.StateConnected {
		fin := s.newSegment(rec, wire.FlagFIN, 2000, 2001, nil)
		s.transmit(fin)
		rec.Transition(tcp.EventClose)
	}

	if rec.Pending != nil {
		for {
			ch, ok := rec.Pending.Pop()
			if !ok {
				break
			}
			if _, live := s.table.Remove(ch); live {
				s.log.Warn("pending connection dropped with listener",
					zap.Uint32("listener", uint32(h)),
					zap.Uint32("handle", uint32(ch)))
			}
		}
	}

	s.table.Remove(h)
	s.log.Debug("socket closed", zap.Uint32("handle", uint32(h)))
	return nil
}

// newRecord builds a record with this stack's configured buffer sizes.
func (s *Stack) newRecord(family inet.Family, typ socket.SockType, proto socket.Protocol) *socket.Record {
	rec := socket.NewRecord(family, typ, proto)
	rec.SendBuf.Resize(s.sendCap)
	rec.RecvBuf.Resize(s.recvCap)
	return rec
}

// handshake resolves a TCP connect against the registry. The matching
// listener receives a passive-side record in SYN_RECV on its pending
// queue; accept completes it later. A full queue refuses the connection.
func (s *Stack) handshake(rec *socket.Record) *errors.Error {
	if rec.Peer.IsWildcard() || rec.Peer.Port == 0 {
		return errors.Refused(errors.OpConnect, "target address is not reachable")
	}

	listener := s.findListener(rec.Peer)
	if listener == nil {
		return errors.New(errors.OpConnect, errors.CodeRefused).
			Value(rec.Peer).
			Detail("no listener at target").
			Build()
	}

	child := s.newRecord(rec.Family, rec.Type, rec.Protocol)
	child.Local = listener.Local
	child.Peer = rec.Local
	child.State = socket.StateConnecting
	child.Transition(tcp.EventListen)
	child.Transition(tcp.EventSynRecv)

	ch := s.table.Add(child)
	if !listener.Pending.Push(ch) {
		s.table.Remove(ch)
		return errors.New(errors.OpConnect, errors.CodeRefused).
			Value(rec.Peer).
			Detail("listener backlog full").
			Build()
	}

	s.log.Debug("connection queued",
		zap.Uint32("listener", uint32(listener.Handle)),
		zap.Uint32("handle", uint32(ch)),
		zap.Int("pending", listener.Pending.Len()),
		zap.Int("backlog", listener.Pending.Cap()))
	return nil
}

// findListener locates the newest listening socket whose local address
// matches target, wildcard or exact.
func (s *Stack) findListener(target inet.Address) *socket.Record {
	var found *socket.Record
	s.table.Scan(func(r *socket.Record) bool {
		if r.State != socket.StateListening || r.Local.Port == 0 {
			return true
		}
		if r.Local.Port != target.Port {
			return true
		}
		if r.Local.IsWildcard() || r.Local.Addr == target.Addr {
			found = r
			return false
		}
		return true
	})
	return found
}

// addrInUse reports whether addr collides with an existing binding.
// Ports must be equal, and either side being the wildcard or equal IPs
// makes the collision. Unbound records and the excluded handle are
// skipped.
func (s *Stack) addrInUse(addr inet.Address, exclude socket.Handle) (socket.Handle, bool) {
	var owner socket.Handle
	var conflict bool
	s.table.Scan(func(r *socket.Record) bool {
		if r.Handle == exclude || r.Local.Port == 0 {
			return true
		}
		if r.Local.Port != addr.Port {
			return true
		}
		if addr.IsWildcard() || r.Local.IsWildcard() || r.Local.Addr == addr.Addr {
			owner, conflict = r.Handle, true
			return false
		}
		return true
	})
	return owner, conflict
}

// autoBind claims an ephemeral wildcard binding for a socket that
// connects without an explicit bind. The rotating cursor wraps from the
// top of the configured range back to the bottom and gives up after a
// fixed number of attempts.
func (s *Stack) autoBind(rec *socket.Record) *errors.Error {
	rec.Local.Family = inet.FamilyInet
	rec.Local.Addr = 0

	for i := 0; i < ephemeralTries; i++ {
		candidate := inet.Address{Family: inet.FamilyInet, Port: inet.Htons(s.cursor)}
		port := s.cursor
		s.advanceCursor()

		if _, used := s.addrInUse(candidate, rec.Handle); used {
			continue
		}
		rec.Local.Port = inet.Htons(port)
		s.log.Debug("auto-bound",
			zap.Uint32("handle", uint32(rec.Handle)),
			zap.Uint16("port", port))
		return nil
	}
	return errors.Generic(errors.OpConnect, "ephemeral port range exhausted")
}

func (s *Stack) advanceCursor() {
	if s.cursor == s.ephHigh {
		s.cursor = s.ephLow
		return
	}
	s.cursor++
}

// simulatedPeer fabricates the loopback peer used where no real remote
// endpoint exists: synthesized accepts and recvfrom source addresses.
func (s *Stack) simulatedPeer() inet.Address {
	return inet.Address{
		Family: inet.FamilyInet,
		Port:   inet.Htons(EphemeralLow + uint16(s.rand.Intn(30000))),
		Addr:   inet.Htonl(0x7f000001),
	}
}
