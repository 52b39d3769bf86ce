package socket

// Handle is an opaque reference to a socket record in a Table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// FirstHandle is the lowest handle a Table hands out. Values below it
// mirror the reserved standard descriptors and are never assigned.
const FirstHandle Handle = 3

// SockType selects the transport semantics of a socket.
type SockType uint16

const (
	Stream   SockType = 1
	Datagram SockType = 2
	Raw      SockType = 3
)

// String returns the conventional lowercase type name.
func (t SockType) String() string {
	switch t {
	case Stream:
		return "stream"
	case Datagram:
		return "datagram"
	case Raw:
		return "raw"
	default:
		return "unknown"
	}
}

// Protocol is an IP protocol number.
type Protocol uint16

const (
	ProtoIP  Protocol = 0
	ProtoTCP Protocol = 6
	ProtoUDP Protocol = 17
)

// String returns the conventional lowercase protocol name.
func (p Protocol) String() string {
	switch p {
	case ProtoIP:
		return "ip"
	case ProtoTCP:
		return "tcp"
	case ProtoUDP:
		return "udp"
	default:
		return "unknown"
	}
}

// DefaultProtocol infers the protocol for a socket type when the caller
// passes ProtoIP: stream maps to TCP, datagram to UDP. Raw stays IP.
func DefaultProtocol(t SockType) Protocol {
	switch t {
	case Stream:
		return ProtoTCP
	case Datagram:
		return ProtoUDP
	default:
		return ProtoIP
	}
}

// ConnState is the coarse connection state of a socket record,
// independent of the finer TCP sub-state.
type ConnState uint8

const (
	StateUnconnected ConnState = iota
	StateConnecting
	StateConnected
	StateDisconnecting
	StateListening
	StateClosed
)

// String returns the lowercase state name.
func (s ConnState) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnecting:
		return "disconnecting"
	case StateListening:
		return "listening"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Default per-record buffer capacities in bytes.
const (
	DefaultSendBufferSize = 8192
	DefaultRecvBufferSize = 8192
)

// MaxBacklog caps a listener's pending-connection queue. Listen requests
// outside (0, MaxBacklog] are clamped to it.
const MaxBacklog = 128

// EventType discriminates record lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventRemoved
)

// String returns the lowercase event name.
func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// Event describes one record lifecycle change.
type Event struct {
	Info   Info
	Handle Handle
	Type   EventType
}

// Observer receives record lifecycle events.
type Observer interface {
	OnSocketEvent(Event)
}

// ObserverFunc adapts a plain function to the Observer interface.
// Func values are not comparable, so an ObserverFunc cannot be targeted
// by Table.Unsubscribe; use a named observer type when removal matters.
type ObserverFunc func(Event)

// OnSocketEvent calls f.
func (f ObserverFunc) OnSocketEvent(e Event) { f(e) }
