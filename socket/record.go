package socket

import (
	"fmt"

	"github.com/wippyai/netsim/buffer"
	"github.com/wippyai/netsim/inet"
	"github.com/wippyai/netsim/tcp"
)

// Record is one socket's full state: identity, connection state, TCP
// sub-state, addresses, buffers and (for listeners) the pending queue.
// Records are owned by their Table; callers hold handles, not records.
type Record struct {
	SendBuf *buffer.Buffer
	RecvBuf *buffer.Buffer
	Pending *PendingQueue // non-nil only while listening

	Local inet.Address
	Peer  inet.Address

	Handle   Handle
	Family   inet.Family
	Type     SockType
	Protocol Protocol
	State    ConnState
	TCPState tcp.State
}

// NewRecord builds an unconnected record with default-capacity buffers.
// The handle is assigned when the record enters a Table.
func NewRecord(family inet.Family, typ SockType, proto Protocol) *Record {
	return &Record{
		SendBuf:  buffer.New(DefaultSendBufferSize),
		RecvBuf:  buffer.New(DefaultRecvBufferSize),
		Family:   family,
		Type:     typ,
		Protocol: proto,
		State:    StateUnconnected,
		TCPState: tcp.Closed,
	}
}

// Transition applies a TCP lifecycle event to the record's sub-state.
// Records of other protocols ignore events. The return reports whether
// the sub-state changed.
func (r *Record) Transition(e tcp.Event) bool {
	if r.Protocol != ProtoTCP {
		return false
	}
	next, ok := tcp.Next(r.TCPState, e)
	r.TCPState = next
	return ok
}

// Info is a point-in-time snapshot of a record, safe to retain after the
// record itself is gone.
type Info struct {
	Local    inet.Address
	Peer     inet.Address
	SendUsed int
	SendCap  int
	RecvUsed int
	RecvCap  int
	Pending  int
	Backlog  int
	Handle   Handle
	Family   inet.Family
	Type     SockType
	Protocol Protocol
	State    ConnState
	TCPState tcp.State
}

// Info snapshots the record.
func (r *Record) Info() Info {
	info := Info{
		Local:    r.Local,
		Peer:     r.Peer,
		Handle:   r.Handle,
		Family:   r.Family,
		Type:     r.Type,
		Protocol: r.Protocol,
		State:    r.State,
		TCPState: r.TCPState,
	}
	info.SendUsed, info.SendCap = r.SendBuf.Status()
	info.RecvUsed, info.RecvCap = r.RecvBuf.Status()
	if r.Pending != nil {
		info.Pending = r.Pending.Len()
		info.Backlog = r.Pending.Cap()
	}
	return info
}

// String renders the snapshot on a single line.
func (i Info) String() string {
	s := fmt.Sprintf("handle=%d %s/%s state=%s", i.Handle, i.Type, i.Protocol, i.State)
	if i.Protocol == ProtoTCP {
		s += fmt.Sprintf(" tcp=%s", i.TCPState)
	}
	s += fmt.Sprintf(" local=%s peer=%s send=%d/%d recv=%d/%d",
		i.Local, i.Peer, i.SendUsed, i.SendCap, i.RecvUsed, i.RecvCap)
	if i.Backlog > 0 {
		s += fmt.Sprintf(" pending=%d/%d", i.Pending, i.Backlog)
	}
	return s
}
