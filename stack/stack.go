package stack

import (
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/wippyai/netsim/errors"
	"github.com/wippyai/netsim/socket"
	"github.com/wippyai/netsim/tcp"
	"github.com/wippyai/netsim/wire"
)

// Ephemeral port range used by auto-bind, and the number of candidate
// ports tried before a connect gives up.
const (
	EphemeralLow  uint16 = 32768
	EphemeralHigh uint16 = 65535

	ephemeralTries = 1000
)

// advertisedWindow is stamped on every outgoing segment regardless of
// actual buffer occupancy.
const advertisedWindow uint16 = 8192

// InboundFeed supplies bytes that Recv pulls into a socket's receive
// buffer before reading, standing in for a real inbound network path.
// It is consulted once per Recv call; a nil or empty result means no
// data arrived.
type InboundFeed func(h socket.Handle, info socket.Info) []byte

// SegmentTap observes every constructed segment before dispatch. The
// packet is shared, not copied; taps must not hold it past the call.
type SegmentTap func(*wire.Packet)

// Stack is one isolated instance of the socket subsystem: a registry of
// socket records plus the lifecycle, dispatch and introspection
// operations over them. Every byte a socket ever "receives" was placed
// there by another socket on the same Stack; nothing touches a real
// network.
//
// All operations are synchronous and safe for concurrent use. A single
// stack-wide mutex is held for each operation's full duration, so
// check-then-act sequences such as the bind conflict scan commit
// atomically. Operations that cannot make progress return a would-block
// error instead of blocking the caller.
type Stack struct {
	mu    sync.Mutex
	table *socket.Table
	log   *zap.Logger
	rand  *rand.Rand

	sendCap int
	recvCap int

	cursor   uint16
	ephLow   uint16
	ephHigh  uint16
	checksum wire.ChecksumFunc
	feed     InboundFeed
	tap      SegmentTap

	closed bool
}

// New creates an empty stack with default buffer capacities, the
// package logger and a time-seeded random source.
func New() *Stack {
	s := &Stack{
		table:    socket.NewTable(),
		log:      Logger(),
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sendCap:  socket.DefaultSendBufferSize,
		recvCap:  socket.DefaultRecvBufferSize,
		cursor:   EphemeralLow,
		ephLow:   EphemeralLow,
		ephHigh:  EphemeralHigh,
		checksum: wire.PlaceholderChecksum,
	}
	s.table.Subscribe(&lifecycleLogger{s: s})
	return s
}

// WithLogger replaces the stack's logger.
// This must be called before any operations.
func (s *Stack) WithLogger(l *zap.Logger) *Stack {
	s.log = l
	return s
}

// WithRandom replaces the random source behind ephemeral ports,
// sequence numbers and simulated peers. Useful for deterministic tests.
// This must be called before any operations.
func (s *Stack) WithRandom(r *rand.Rand) *Stack {
	s.rand = r
	return s
}

// WithBufferSizes sets the send and receive buffer capacities applied to
// sockets created afterwards. Non-positive values keep the defaults.
// This must be called before any operations.
func (s *Stack) WithBufferSizes(send, recv int) *Stack {
	if send > 0 {
		s.sendCap = send
	}
	if recv > 0 {
		s.recvCap = recv
	}
	return s
}

// WithEphemeralRange overrides the port range auto-bind draws from.
// A zero low bound or a high bound below the low keeps the defaults.
// Fabricated peer addresses are unaffected.
// This must be called before any operations.
func (s *Stack) WithEphemeralRange(low, high uint16) *Stack {
	if low == 0 || high < low {
		return s
	}
	s.ephLow = low
	s.ephHigh = high
	s.cursor = low
	return s
}

// WithChecksum replaces the transport checksum function stamped on
// outgoing segments. The default is wire.PlaceholderChecksum; nothing
// validates the value on delivery.
// This must be called before any operations.
func (s *Stack) WithChecksum(fn wire.ChecksumFunc) *Stack {
	if fn != nil {
		s.checksum = fn
	}
	return s
}

// WithFeed installs the inbound source Recv consults before reading.
// This must be called before any operations.
func (s *Stack) WithFeed(fn InboundFeed) *Stack {
	s.feed = fn
	return s
}

// WithTap installs an observer for dispatched segments.
// This must be called before any operations.
func (s *Stack) WithTap(fn SegmentTap) *Stack {
	s.tap = fn
	return s
}

// Close destroys every socket and stops accepting operations. Closing
// an already-closed stack is an error.
func (s *Stack) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.Invalid(errors.OpShutdown, "stack already closed")
	}
	n := s.table.Len()
	s.table.Clear()
	s.closed = true

	s.log.Info("stack closed", zap.Int("sockets_destroyed", n))
	return nil
}

// getRecord resolves a handle or explains why it cannot. Callers must
// hold s.mu.
func (s *Stack) getRecord(op errors.Op, h socket.Handle) (*socket.Record, *errors.Error) {
	if s.closed {
		return nil, errors.Invalid(op, "stack is closed")
	}
	r, ok := s.table.Get(h)
	if !ok {
		return nil, errors.NotFound(op, h)
	}
	return r, nil
}

// Len returns the number of live sockets.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Len()
}

// Handles returns the live handles in creation order.
func (s *Stack) Handles() []socket.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.table.Handles()
}

// State reports a socket's coarse connection state.
func (s *Stack) State(h socket.Handle) (socket.ConnState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpInfo, h)
	if ferr != nil {
		return 0, ferr
	}
	return rec.State, nil
}

// TCPState reports a socket's TCP sub-state.
func (s *Stack) TCPState(h socket.Handle) (tcp.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpInfo, h)
	if ferr != nil {
		return 0, ferr
	}
	return rec.TCPState, nil
}

// Info snapshots a socket.
func (s *Stack) Info(h socket.Handle) (socket.Info, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpInfo, h)
	if ferr != nil {
		return socket.Info{}, ferr
	}
	return rec.Info(), nil
}

// QueueStatus reports a listener's pending-connection count and backlog.
func (s *Stack) QueueStatus(h socket.Handle) (pending, backlog int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpInfo, h)
	if ferr != nil {
		return 0, 0, ferr
	}
	if rec.State != socket.StateListening || rec.Pending == nil {
		return 0, 0, errors.Invalid(errors.OpInfo, "socket is not listening")
	}
	return rec.Pending.Len(), rec.Pending.Cap(), nil
}

// BufferStatus reports both buffers' used and capacity counters.
func (s *Stack) BufferStatus(h socket.Handle) (sendUsed, sendCap, recvUsed, recvCap int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpInfo, h)
	if ferr != nil {
		return 0, 0, 0, 0, ferr
	}
	sendUsed, sendCap = rec.SendBuf.Status()
	recvUsed, recvCap = rec.RecvBuf.Status()
	return sendUsed, sendCap, recvUsed, recvCap, nil
}

// SetBufferSizes resizes a socket's buffers. Shrinking discards bytes
// beyond the new boundary; non-positive values leave that buffer as is.
func (s *Stack) SetBufferSizes(h socket.Handle, send, recv int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpResize, h)
	if ferr != nil {
		return ferr
	}
	rec.SendBuf.Resize(send)
	rec.RecvBuf.Resize(recv)

	s.log.Debug("buffers resized",
		zap.Uint32("handle", uint32(h)),
		zap.Int("send_cap", rec.SendBuf.Cap()),
		zap.Int("recv_cap", rec.RecvBuf.Cap()))
	return nil
}

// ClearBuffers drops all buffered bytes on both sides of a socket.
func (s *Stack) ClearBuffers(h socket.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpResize, h)
	if ferr != nil {
		return ferr
	}
	rec.SendBuf.Clear()
	rec.RecvBuf.Clear()
	return nil
}

// DriveTimeout feeds the TIMEOUT event to a socket's TCP sub-state.
// Nothing schedules this internally: a socket parked in TIME_WAIT stays
// there until a caller or external timer invokes DriveTimeout. The
// return reports whether the sub-state changed.
func (s *Stack) DriveTimeout(h socket.Handle) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ferr := s.getRecord(errors.OpTimeout, h)
	if ferr != nil {
		return false, ferr
	}
	moved := rec.Transition(tcp.EventTimeout)
	if moved {
		s.log.Debug("timeout driven",
			zap.Uint32("handle", uint32(h)),
			zap.Stringer("tcp_state", rec.TCPState))
	}
	return moved, nil
}

// Subscribe registers an observer for socket lifecycle events.
func (s *Stack) Subscribe(o socket.Observer) {
	s.table.Subscribe(o)
}

// Unsubscribe removes a previously registered observer.
func (s *Stack) Unsubscribe(o socket.Observer) {
	s.table.Unsubscribe(o)
}

// lifecycleLogger mirrors registry events into the stack log.
type lifecycleLogger struct {
	s *Stack
}

func (l *lifecycleLogger) OnSocketEvent(e socket.Event) {
	l.s.log.Debug("socket lifecycle",
		zap.Stringer("event", e.Type),
		zap.Uint32("handle", uint32(e.Handle)),
		zap.Stringer("state", e.Info.State))
}
