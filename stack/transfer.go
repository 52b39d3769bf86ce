package stack

import (
	"go.uber.org/zap"

	"github.com/wippyai/netsim/errors"
	"github.com/wippyai/netsim/inet"
	"github.com/wippyai/netsim/socket"
	"github.com/wippyai/netsim/tcp"
	"github.com/wippyai/netsim/wire"
)

// Send queues data on a connected socket and flushes it toward the peer.
// The count returned is what the send buffer accepted; oversupplied
// bytes are truncated, and a full buffer is a would-block result. No
// receiver at the peer address is still success: there is no
// transport-level failure signal to surface.
func (s *Stack) Send(h socket.Handle, data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpSend, h)
	if ferr != nil {
		return 0, ferr
	}
	if len(data) == 0 {
		return 0, errors.Invalid(errors.OpSend, "empty payload")
	}
	if rec.State != socket.StateConnected {
		return 0, errors.Invalid(errors.OpSend, "socket is not connected")
	}
	if !rec.SendBuf.HasSpace() {
		return 0, errors.WouldBlock(errors.OpSend, "send buffer full")
	}

	n := rec.SendBuf.Write(data)
	s.flush(rec)

	s.log.Debug("sent",
		zap.Uint32("handle", uint32(h)),
		zap.Int("accepted", n),
		zap.Int("offered", len(data)))
	return n, nil
}

// Recv reads up to maxLen buffered bytes from a connected socket, after
// pulling opportunistically from the inbound feed if one is installed.
// An empty buffer is a would-block result, not success.
func (s *Stack) Recv(h socket.Handle, maxLen int) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpRecv, h)
	if ferr != nil {
		return nil, ferr
	}
	if maxLen <= 0 {
		return nil, errors.Invalid(errors.OpRecv, "max length must be positive")
	}
	if rec.State != socket.StateConnected {
		return nil, errors.Invalid(errors.OpRecv, "socket is not connected")
	}

	s.fill(rec)

	out := make([]byte, maxLen)
	n := rec.RecvBuf.Read(out)
	if n == 0 {
		return nil, errors.WouldBlock(errors.OpRecv, "no data available")
	}
	return out[:n], nil
}

// SendTo delivers a datagram to an explicit destination, bypassing any
// connected peer without touching it. The full payload length is
// reported even when no receiver matched or the receiver's buffer
// truncated the copy.
func (s *Stack) SendTo(h socket.Handle, data []byte, dst inet.Address) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpSendTo, h)
	if ferr != nil {
		return 0, ferr
	}
	if len(data) == 0 {
		return 0, errors.Invalid(errors.OpSendTo, "empty payload")
	}
	if rec.Type != socket.Datagram {
		return 0, errors.Invalid(errors.OpSendTo, "socket is not datagram")
	}
	if dst.Family != inet.FamilyInet {
		return 0, errors.New(errors.OpSendTo, errors.CodeInvalid).
			Value(dst.Family).
			Detail("address family must be inet").
			Build()
	}

	s.deliver(rec, dst, data)
	return len(data), nil
}

// RecvFrom reads up to maxLen buffered bytes from a datagram socket.
// Buffered datagrams carry no sender metadata, so the reported source is
// fabricated: loopback with a random high port.
func (s *Stack) RecvFrom(h socket.Handle, maxLen int) ([]byte, inet.Address, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpRecvFrom, h)
	if ferr != nil {
		return nil, inet.Address{}, ferr
	}
	if maxLen <= 0 {
		return nil, inet.Address{}, errors.Invalid(errors.OpRecvFrom, "max length must be positive")
	}
	if rec.Type != socket.Datagram {
		return nil, inet.Address{}, errors.Invalid(errors.OpRecvFrom, "socket is not datagram")
	}

	out := make([]byte, maxLen)
	n := rec.RecvBuf.Read(out)
	if n == 0 {
		return nil, inet.Address{}, errors.WouldBlock(errors.OpRecvFrom, "no data available")
	}
	return out[:n], s.simulatedPeer(), nil
}

// flush drains the send buffer toward the connected peer. TCP wraps the
// bytes in one segment and dispatches it; UDP copies them straight to
// the receiver. Other protocols drain without dispatch.
func (s *Stack) flush(rec *socket.Record) {
	n := rec.SendBuf.Len()
	if n == 0 {
		return
	}
	payload := make([]byte, n)
	rec.SendBuf.Read(payload)

	switch rec.Protocol {
	case socket.ProtoTCP:
		s.transmit(s.newSegment(rec, wire.FlagPSH|wire.FlagACK, 3000, 3001, payload))
	case socket.ProtoUDP:
		s.deliver(rec, rec.Peer, payload)
	default:
		s.log.Debug("flush discarded bytes: unroutable protocol",
			zap.Uint32("handle", uint32(rec.Handle)),
			zap.Stringer("protocol", rec.Protocol),
			zap.Int("bytes", n))
	}
}

// fill pulls from the inbound feed into the receive buffer. Without a
// feed the buffer only ever holds what peers on this stack delivered.
func (s *Stack) fill(rec *socket.Record) {
	if s.feed == nil || !rec.RecvBuf.HasSpace() {
		return
	}
	data := s.feed(rec.Handle, rec.Info())
	if len(data) == 0 {
		return
	}
	n := rec.RecvBuf.Write(data)
	s.log.Debug("inbound feed",
		zap.Uint32("handle", uint32(rec.Handle)),
		zap.Int("stored", n),
		zap.Int("offered", len(data)))
}

// deliver copies a datagram payload into the receive buffer of the
// newest datagram socket whose local address matches dst, wildcard or
// exact, excluding the sender itself. The count stored is returned;
// zero covers both "no receiver" and "receiver full", neither of which
// the caller treats as failure.
func (s *Stack) deliver(src *socket.Record, dst inet.Address, payload []byte) int {
	var target *socket.Record
	s.table.Scan(func(r *socket.Record) bool {
		if r == src || r.Type != socket.Datagram {
			return true
		}
		if r.Local.Port == 0 || r.Local.Port != dst.Port {
			return true
		}
		if r.Local.IsWildcard() || r.Local.Addr == dst.Addr {
			target = r
			return false
		}
		return true
	})
	if target == nil {
		s.log.Debug("datagram dropped: no receiver", zap.String("dst", dst.String()))
		return 0
	}

	n := target.RecvBuf.Write(payload)
	if n < len(payload) {
		s.log.Warn("datagram truncated: receive buffer full",
			zap.Uint32("handle", uint32(target.Handle)),
			zap.Int("stored", n),
			zap.Int("dropped", len(payload)-n))
	}
	return n
}

// transmit dispatches a segment to the newest record whose local
// address matches the destination. No receiver is not an error; the
// segment evaporates like a datagram on a dead link.
func (s *Stack) transmit(pkt *wire.Packet) {
	s.observe(pkt)

	var target *socket.Record
	s.table.Scan(func(r *socket.Record) bool {
		if r.Local.Port == 0 || r.Local.Port != pkt.TCP.DstPort {
			return true
		}
		if r.Local.IsWildcard() || r.Local.Addr == pkt.IP.Dst {
			target = r
			return false
		}
		return true
	})
	if target == nil {
		s.log.Debug("segment dropped: no receiver",
			zap.String("dst", segmentEndpoint(pkt.IP.Dst, pkt.TCP.DstPort)))
		return
	}
	s.processSegment(target, pkt)
}

// processSegment applies a delivered segment to its receiver: flag bits
// drive sub-state transitions and control replies, payload bytes land in
// the receive buffer bounded by its free space.
func (s *Stack) processSegment(target *socket.Record, pkt *wire.Packet) {
	flags := pkt.TCP.Flags

	if flags&wire.FlagSYN != 0 && target.TCPState == tcp.Listen {
		target.Transition(tcp.EventSynRecv)
		s.transmit(s.newSegment(target, wire.FlagACK, 1000, 1001, nil))
	}
	if flags&wire.FlagACK != 0 {
		switch target.TCPState {
		case tcp.SynSent:
			target.Transition(tcp.EventSynAckRecv)
		case tcp.SynReceived:
			target.Transition(tcp.EventAckRecv)
		}
	}
	if flags&wire.FlagFIN != 0 {
		target.Transition(tcp.EventFinRecv)
		s.transmit(s.newSegment(target, wire.FlagACK, 1000, 1001, nil))
	}

	if len(pkt.Payload) > 0 {
		n := target.RecvBuf.Write(pkt.Payload)
		if n < len(pkt.Payload) {
			s.log.Warn("segment truncated: receive buffer full",
				zap.Uint32("handle", uint32(target.Handle)),
				zap.Int("stored", n),
				zap.Int("dropped", len(pkt.Payload)-n))
		}
	}
}

// newSegment builds a segment from rec toward its current peer. The seq
// and ack arguments are host-order; header fields hold network order
// throughout, and both checksums are stamped before return.
func (s *Stack) newSegment(rec *socket.Record, flags uint16, seq, ack uint32, payload []byte) *wire.Packet {
	pkt := &wire.Packet{
		IP: wire.IPv4Header{
			VersionIHL: wire.DefaultVersionIHL,
			TotalLen:   inet.Htons(uint16(wire.IPv4HeaderSize + wire.TCPHeaderSize + len(payload))),
			TTL:        wire.DefaultTTL,
			Protocol:   uint8(socket.ProtoTCP),
			Src:        rec.Local.Addr,
			Dst:        rec.Peer.Addr,
		},
		TCP: wire.TCPHeader{
			SrcPort: rec.Local.Port,
			DstPort: rec.Peer.Port,
			Seq:     inet.Htonl(seq),
			Ack:     inet.Htonl(ack),
			Flags:   flags,
			Window:  inet.Htons(advertisedWindow),
		},
		Payload: payload,
	}
	pkt.TCP.Checksum = s.checksum(&pkt.TCP, payload)
	pkt.IP.Checksum = wire.HeaderChecksum(&pkt.IP)
	return pkt
}

// observe runs the tap and trace log for a constructed segment.
func (s *Stack) observe(pkt *wire.Packet) {
	if s.tap != nil {
		s.tap(pkt)
	}
	s.log.Debug("segment",
		zap.String("flags", wire.FlagString(pkt.TCP.Flags)),
		zap.String("src", segmentEndpoint(pkt.IP.Src, pkt.TCP.SrcPort)),
		zap.String("dst", segmentEndpoint(pkt.IP.Dst, pkt.TCP.DstPort)),
		zap.Int("payload", len(pkt.Payload)))
}

func segmentEndpoint(addr uint32, port uint16) string {
	return inet.Address{Family: inet.FamilyInet, Port: port, Addr: addr}.String()
}
