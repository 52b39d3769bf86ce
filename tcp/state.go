package tcp

// State is a TCP protocol state. Values follow the classic kernel
// numbering, with ESTABLISHED first; the zero value is not a state.
type State uint8

const (
	Established State = iota + 1
	SynSent
	SynReceived
	FinWait1
	FinWait2
	TimeWait
	Closed
	CloseWait
	LastAck
	Listen
	Closing
)

// String returns the conventional upper-case state name.
func (s State) String() string {
	switch s {
	case Established:
		return "ESTABLISHED"
	case SynSent:
		return "SYN_SENT"
	case SynReceived:
		return "SYN_RECV"
	case FinWait1:
		return "FIN_WAIT1"
	case FinWait2:
		return "FIN_WAIT2"
	case TimeWait:
		return "TIME_WAIT"
	case Closed:
		return "CLOSED"
	case CloseWait:
		return "CLOSE_WAIT"
	case LastAck:
		return "LAST_ACK"
	case Listen:
		return "LISTEN"
	case Closing:
		return "CLOSING"
	default:
		return "UNKNOWN"
	}
}

// Event drives the state machine. Events model the protocol stimuli the
// emulation can produce: local opens/closes and simulated segment
// arrivals.
type Event uint8

const (
	EventListen Event = iota + 1
	EventConnect
	EventSynRecv
	EventSynAckRecv
	EventAckRecv
	EventFinRecv
	EventClose
	EventTimeout
)

// String returns the event name.
func (e Event) String() string {
	switch e {
	case EventListen:
		return "LISTEN"
	case EventConnect:
		return "CONNECT"
	case EventSynRecv:
		return "SYN_RECV"
	case EventSynAckRecv:
		return "SYN_ACK_RECV"
	case EventAckRecv:
		return "ACK_RECV"
	case EventFinRecv:
		return "FIN_RECV"
	case EventClose:
		return "CLOSE"
	case EventTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// Transition is one row of the protocol table.
type Transition struct {
	From State
	On   Event
	To   State
}

// Transitions is the complete protocol table. Pairs not listed here are
// no-ops: the state is left unchanged. TIME_WAIT leaves only through an
// explicit TIMEOUT event; nothing in the emulation schedules one.
var Transitions = []Transition{
	{Closed, EventListen, Listen},
	{Closed, EventConnect, SynSent},
	{Listen, EventSynRecv, SynReceived},
	{SynSent, EventSynAckRecv, Established},
	{SynReceived, EventAckRecv, Established},
	{Established, EventFinRecv, CloseWait},
	{Established, EventClose, FinWait1},
	{FinWait1, EventAckRecv, FinWait2},
	{FinWait1, EventFinRecv, Closing},
	{FinWait2, EventFinRecv, TimeWait},
	{CloseWait, EventClose, LastAck},
	{LastAck, EventAckRecv, Closed},
	{Closing, EventAckRecv, TimeWait},
	{TimeWait, EventTimeout, Closed},
}

type transitionKey struct {
	from State
	on   Event
}

var transitions = buildTable()

func buildTable() map[transitionKey]State {
	m := make(map[transitionKey]State, len(Transitions))
	for _, t := range Transitions {
		m[transitionKey{t.From, t.On}] = t.To
	}
	return m
}

// Next applies an event to a state. The second result reports whether a
// transition fired; unlisted pairs return the state unchanged.
func Next(s State, e Event) (State, bool) {
	if to, ok := transitions[transitionKey{s, e}]; ok {
		return to, true
	}
	return s, false
}
