package stack

import (
	"testing"

	"github.com/wippyai/netsim/errors"
	"github.com/wippyai/netsim/inet"
	"github.com/wippyai/netsim/socket"
	"github.com/wippyai/netsim/tcp"
)

func TestStack_BindWildcardConflict(t *testing.T) {
	s := newTestStack()
	a, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Bind(a, mustAddr(t, "", 7000)); err != nil {
		t.Fatalf("wildcard bind: %v", err)
	}

	// The wildcard claims the whole port: a concrete bind collides.
	if err := s.Bind(b, mustAddr(t, "127.0.0.1", 7000)); !errors.IsCode(err, errors.CodeAddrInUse) {
		t.Fatalf("concrete-over-wildcard err = %v, want address-in-use", err)
	}

	// Another port is free.
	if err := s.Bind(b, mustAddr(t, "127.0.0.1", 7001)); err != nil {
		t.Fatalf("bind on free port: %v", err)
	}
}

func TestStack_BindWildcardOverConcrete(t *testing.T) {
	s := newTestStack()
	a, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	b, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	c, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)

	if err := s.Bind(a, mustAddr(t, "192.168.0.1", 7100)); err != nil {
		t.Fatalf("concrete bind: %v", err)
	}

	// The reverse direction collides too.
	if err := s.Bind(b, mustAddr(t, "", 7100)); !errors.IsCode(err, errors.CodeAddrInUse) {
		t.Fatalf("wildcard-over-concrete err = %v, want address-in-use", err)
	}

	// Distinct concrete IPs share a port.
	if err := s.Bind(b, mustAddr(t, "192.168.0.2", 7100)); err != nil {
		t.Fatalf("bind on sibling IP: %v", err)
	}

	// An exact duplicate does not.
	if err := s.Bind(c, mustAddr(t, "192.168.0.1", 7100)); !errors.IsCode(err, errors.CodeAddrInUse) {
		t.Fatalf("duplicate bind err = %v, want address-in-use", err)
	}
}

func TestStack_BindRebind(t *testing.T) {
	s := newTestStack()
	a, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Bind(a, mustAddr(t, "127.0.0.1", 7200)); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	// Still unconnected, so rebinding is allowed and the socket's own
	// binding never counts as a conflict.
	next := mustAddr(t, "127.0.0.1", 7201)
	if err := s.Bind(a, next); err != nil {
		t.Fatalf("rebind: %v", err)
	}
	if err := s.Bind(a, next); err != nil {
		t.Fatalf("rebind to same address: %v", err)
	}

	info, err := s.Info(a)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if !info.Local.Equal(next) {
		t.Fatalf("local = %s, want %s", info.Local, next)
	}
}

func TestStack_BindValidation(t *testing.T) {
	s := newTestStack()

	if err := s.Bind(99, mustAddr(t, "127.0.0.1", 7300)); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("unknown handle err = %v, want invalid", err)
	}

	a, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	bad := inet.Address{Family: inet.FamilyUnix, Port: inet.Htons(7300)}
	if err := s.Bind(a, bad); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("unix family err = %v, want invalid", err)
	}

	ln := newListener(t, s, "127.0.0.1", 7301, 4)
	if err := s.Bind(ln, mustAddr(t, "127.0.0.1", 7302)); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("rebind listener err = %v, want invalid", err)
	}
}

func TestStack_ListenClampsBacklog(t *testing.T) {
	cases := []struct {
		in   int
		want int
	}{
		{0, socket.MaxBacklog},
		{-7, socket.MaxBacklog},
		{500, socket.MaxBacklog},
		{5, 5},
		{socket.MaxBacklog, socket.MaxBacklog},
	}
	for _, tc := range cases {
		s := newTestStack()
		h, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if err := s.Bind(h, mustAddr(t, "127.0.0.1", 8000)); err != nil {
			t.Fatalf("Bind: %v", err)
		}
		if err := s.Listen(h, tc.in); err != nil {
			t.Fatalf("Listen(%d): %v", tc.in, err)
		}
		_, backlog, err := s.QueueStatus(h)
		if err != nil {
			t.Fatalf("QueueStatus: %v", err)
		}
		if backlog != tc.want {
			t.Fatalf("Listen(%d) backlog = %d, want %d", tc.in, backlog, tc.want)
		}
	}
}

func TestStack_ListenState(t *testing.T) {
	s := newTestStack()
	h := newListener(t, s, "127.0.0.1", 8100, 6)

	st, err := s.State(h)
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if st != socket.StateListening {
		t.Fatalf("state = %v, want listening", st)
	}
	ts, err := s.TCPState(h)
	if err != nil {
		t.Fatalf("TCPState: %v", err)
	}
	if ts != tcp.Listen {
		t.Fatalf("tcp state = %v, want LISTEN", ts)
	}

	info, err := s.Info(h)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.Backlog != 6 || info.Pending != 0 {
		t.Fatalf("queue = %d/%d, want 0/6", info.Pending, info.Backlog)
	}

	// A listener cannot listen again.
	if err := s.Listen(h, 4); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("double listen err = %v, want invalid", err)
	}
}

func TestStack_ListenValidation(t *testing.T) {
	s := newTestStack()

	if err := s.Listen(99, 4); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("unknown handle err = %v, want invalid", err)
	}

	dg, err := s.Create(inet.FamilyInet, socket.Datagram, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Bind(dg, mustAddr(t, "127.0.0.1", 8200)); err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if err := s.Listen(dg, 4); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("datagram listen err = %v, want invalid", err)
	}

	unbound, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Listen(unbound, 4); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("unbound listen err = %v, want invalid", err)
	}
}

func TestStack_ConnectEstablishes(t *testing.T) {
	s := newTestStack()
	ln := newListener(t, s, "127.0.0.1", 5000, 4)
	c, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Connect(c, mustAddr(t, "127.0.0.1", 5000)); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	st, _ := s.State(c)
	if st != socket.StateConnected {
		t.Fatalf("client state = %v, want connected", st)
	}
	ts, _ := s.TCPState(c)
	if ts != tcp.Established {
		t.Fatalf("client tcp state = %v, want ESTABLISHED", ts)
	}

	// The client auto-bound the first ephemeral port, IP left wildcard.
	info, err := s.Info(c)
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if got := inet.Ntohs(info.Local.Port); got != EphemeralLow {
		t.Fatalf("auto-bound port = %d, want %d", got, EphemeralLow)
	}
	if !info.Local.IsWildcard() {
		t.Fatalf("auto-bound IP = %s, want wildcard", info.Local)
	}

	pending, backlog, err := s.QueueStatus(ln)
	if err != nil {
		t.Fatalf("QueueStatus: %v", err)
	}
	if pending != 1 || backlog != 4 {
		t.Fatalf("queue = %d/%d, want 1/4", pending, backlog)
	}

	// The passive side sits queued in SYN_RECV until accepted.
	handles := s.Handles()
	child := handles[len(handles)-1]
	if child == c || child == ln {
		t.Fatal("no passive record registered")
	}
	cts, _ := s.TCPState(child)
	if cts != tcp.SynReceived {
		t.Fatalf("queued child tcp state = %v, want SYN_RECV", cts)
	}
	cst, _ := s.State(child)
	if cst != socket.StateConnecting {
		t.Fatalf("queued child state = %v, want connecting", cst)
	}
}

func TestStack_ConnectWildcardListener(t *testing.T) {
	s := newTestStack()
	newListener(t, s, "", 5100, 4)
	c, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := s.Connect(c, mustAddr(t, "127.0.0.1", 5100)); err != nil {
		t.Fatalf("Connect via wildcard listener: %v", err)
	}
	st, _ := s.State(c)
	if st != socket.StateConnected {
		t.Fatalf("state = %v, want connected", st)
	}
}

func TestStack_ConnectRefusedNoListener(t *testing.T) {
	s := newTestStack()
	c, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = s.Connect(c, mustAddr(t, "127.0.0.1", 4444))
	if !errors.IsCode(err, errors.CodeRefused) {
		t.Fatalf("err = %v, want refused", err)
	}

	// The socket rolls all the way back.
	st, _ := s.State(c)
	if st != socket.StateUnconnected {
		t.Fatalf("state = %v, want unconnected", st)
	}
	ts, _ := s.TCPState(c)
	if ts != tcp.Closed {
		t.Fatalf("tcp state = %v, want CLOSED", ts)
	}
	if s.Len() != 1 {
		t.Fatalf("refused connect left %d records, want 1", s.Len())
	}
}

func TestStack_ConnectBacklogFull(t *testing.T) {
	s := newTestStack()
	ln := newListener(t, s, "127.0.0.1", 6000, 2)
	target := mustAddr(t, "127.0.0.1", 6000)

	var clients [3]socket.Handle
	for i := range clients {
		h, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		clients[i] = h
	}

	if err := s.Connect(clients[0], target); err != nil {
		t.Fatalf("first Connect: %v", err)
	}
	if err := s.Connect(clients[1], target); err != nil {
		t.Fatalf("second Connect: %v", err)
	}

	err := s.Connect(clients[2], target)
	if !errors.IsCode(err, errors.CodeRefused) {
		t.Fatalf("overflow Connect err = %v, want refused", err)
	}

	pending, backlog, _ := s.QueueStatus(ln)
	if pending != 2 || backlog != 2 {
		t.Fatalf("queue = %d/%d, want 2/2", pending, backlog)
	}
	st, _ := s.State(clients[2])
	if st != socket.StateUnconnected {
		t.Fatalf("refused client state = %v, want unconnected", st)
	}

	// Listener + 3 clients + 2 queued children; the refused child was
	// rolled back out of the registry.
	if s.Len() != 6 {
		t.Fatalf("Len = %d, want 6", s.Len())
	}
}

func TestStack_ConnectDatagram(t *testing.T) {
	s := newTestStack()
	c, err := s.Create(inet.FamilyInet, socket.Datagram, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// No listener anywhere; datagram connect just records the peer.
	if err := s.Connect(c, mustAddr(t, "127.0.0.1", 9999)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	st, _ := s.State(c)
	if st != socket.StateConnected {
		t.Fatalf("state = %v, want connected", st)
	}
	ts, _ := s.TCPState(c)
	if ts != tcp.Closed {
		t.Fatalf("tcp state = %v, want CLOSED", ts)
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestStack_ConnectValidation(t *testing.T) {
	s := newTestStack()

	if err := s.Connect(99, mustAddr(t, "127.0.0.1", 5000)); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("unknown handle err = %v, want invalid", err)
	}

	c, err := s.Create(inet.FamilyInet, socket.Datagram, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Connect(c, inet.Address{Family: inet.FamilyUnspec}); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("unspec target err = %v, want invalid", err)
	}

	if err := s.Connect(c, mustAddr(t, "127.0.0.1", 9999)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Connect(c, mustAddr(t, "127.0.0.1", 9998)); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("reconnect err = %v, want invalid", err)
	}
}

func TestStack_ConnectPortZero(t *testing.T) {
	s := newTestStack()
	c, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	target := inet.Address{Family: inet.FamilyInet, Addr: inet.Htonl(0x7f000001)}
	if err := s.Connect(c, target); !errors.IsCode(err, errors.CodeRefused) {
		t.Fatalf("port-zero connect err = %v, want refused", err)
	}
	st, _ := s.State(c)
	if st != socket.StateUnconnected {
		t.Fatalf("state = %v, want unconnected", st)
	}
}

func TestStack_ConnectAutoBindAdvances(t *testing.T) {
	s := newTestStack()
	newListener(t, s, "127.0.0.1", 5200, 4)
	target := mustAddr(t, "127.0.0.1", 5200)

	c1, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	c2, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)

	if err := s.Connect(c1, target); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Connect(c2, target); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	i1, _ := s.Info(c1)
	i2, _ := s.Info(c2)
	if got := inet.Ntohs(i1.Local.Port); got != EphemeralLow {
		t.Fatalf("first ephemeral = %d, want %d", got, EphemeralLow)
	}
	if got := inet.Ntohs(i2.Local.Port); got != EphemeralLow+1 {
		t.Fatalf("second ephemeral = %d, want %d", got, EphemeralLow+1)
	}
}

func TestStack_AutoBindSkipsTakenPort(t *testing.T) {
	s := newTestStack()
	newListener(t, s, "127.0.0.1", 5300, 4)

	// Squat the first ephemeral port so auto-bind has to move on.
	squatter, err := s.Create(inet.FamilyInet, socket.Datagram, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Bind(squatter, mustAddr(t, "", EphemeralLow)); err != nil {
		t.Fatalf("Bind: %v", err)
	}

	c, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err := s.Connect(c, mustAddr(t, "127.0.0.1", 5300)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	info, _ := s.Info(c)
	if got := inet.Ntohs(info.Local.Port); got != EphemeralLow+1 {
		t.Fatalf("auto-bound port = %d, want %d", got, EphemeralLow+1)
	}
}

func TestStack_EphemeralRangeOverride(t *testing.T) {
	s := newTestStack().WithEphemeralRange(40000, 40001)
	newListener(t, s, "127.0.0.1", 5900, 4)
	target := mustAddr(t, "127.0.0.1", 5900)

	c1, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	c2, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	c3, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)

	if err := s.Connect(c1, target); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Connect(c2, target); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	i1, _ := s.Info(c1)
	i2, _ := s.Info(c2)
	if got := inet.Ntohs(i1.Local.Port); got != 40000 {
		t.Fatalf("first ephemeral = %d, want 40000", got)
	}
	if got := inet.Ntohs(i2.Local.Port); got != 40001 {
		t.Fatalf("second ephemeral = %d, want 40001", got)
	}

	// Both ports taken, so the two-port range is exhausted.
	if err := s.Connect(c3, target); !errors.IsCode(err, errors.CodeGeneric) {
		t.Fatalf("exhausted range err = %v, want generic failure", err)
	}
	st, _ := s.State(c3)
	if st != socket.StateUnconnected {
		t.Fatalf("state = %v, want unconnected", st)
	}
}

func TestStack_EphemeralRangeRejectsInvalid(t *testing.T) {
	s := newTestStack().WithEphemeralRange(0, 100).WithEphemeralRange(5000, 4000)
	newListener(t, s, "127.0.0.1", 5950, 4)

	c, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err := s.Connect(c, mustAddr(t, "127.0.0.1", 5950)); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	// Both overrides were ignored; the default range is in effect.
	info, _ := s.Info(c)
	if got := inet.Ntohs(info.Local.Port); got != EphemeralLow {
		t.Fatalf("auto-bound port = %d, want %d", got, EphemeralLow)
	}
}

func TestStack_AcceptDequeues(t *testing.T) {
	s := newTestStack()
	ln := newListener(t, s, "127.0.0.1", 5000, 4)
	c, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err := s.Connect(c, mustAddr(t, "127.0.0.1", 5000)); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	ch, peer, err := s.Accept(ln)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if ch == ln || ch == c {
		t.Fatalf("accepted handle = %d, want a fresh record", ch)
	}

	// The reported peer is the client's auto-bound local address.
	if got := inet.Ntohs(peer.Port); got != EphemeralLow {
		t.Fatalf("peer port = %d, want %d", got, EphemeralLow)
	}
	if !peer.IsWildcard() {
		t.Fatalf("peer = %s, want wildcard IP", peer)
	}

	st, _ := s.State(ch)
	if st != socket.StateConnected {
		t.Fatalf("accepted state = %v, want connected", st)
	}
	ts, _ := s.TCPState(ch)
	if ts != tcp.Established {
		t.Fatalf("accepted tcp state = %v, want ESTABLISHED", ts)
	}

	// The accepted side answers on the listener's address.
	info, _ := s.Info(ch)
	if !info.Local.Equal(mustAddr(t, "127.0.0.1", 5000)) {
		t.Fatalf("accepted local = %s, want listener address", info.Local)
	}

	pending, _, _ := s.QueueStatus(ln)
	if pending != 0 {
		t.Fatalf("pending after accept = %d, want 0", pending)
	}
}

func TestStack_AcceptSynthesizes(t *testing.T) {
	s := newTestStack()
	ln := newListener(t, s, "127.0.0.1", 5400, 4)
	before := s.Len()

	ch, peer, err := s.Accept(ln)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if s.Len() != before+1 {
		t.Fatalf("Len = %d, want %d", s.Len(), before+1)
	}

	st, _ := s.State(ch)
	if st != socket.StateConnected {
		t.Fatalf("state = %v, want connected", st)
	}
	ts, _ := s.TCPState(ch)
	if ts != tcp.Established {
		t.Fatalf("tcp state = %v, want ESTABLISHED", ts)
	}

	// Fabricated peer: loopback with a random high port.
	if peer.Addr != inet.Htonl(0x7f000001) {
		t.Fatalf("peer = %s, want loopback", peer)
	}
	if got := inet.Ntohs(peer.Port); got < EphemeralLow {
		t.Fatalf("peer port = %d, want >= %d", got, EphemeralLow)
	}

	info, _ := s.Info(ch)
	if !info.Local.Equal(mustAddr(t, "127.0.0.1", 5400)) {
		t.Fatalf("local = %s, want listener address", info.Local)
	}
}

func TestStack_AcceptSkipsClosedPending(t *testing.T) {
	s := newTestStack()
	ln := newListener(t, s, "127.0.0.1", 5500, 4)
	target := mustAddr(t, "127.0.0.1", 5500)

	c1, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	c2, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)

	if err := s.Connect(c1, target); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	hs := s.Handles()
	q1 := hs[len(hs)-1]

	if err := s.Connect(c2, target); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	hs = s.Handles()
	q2 := hs[len(hs)-1]

	// First queued connection dies before anyone accepts it.
	if err := s.CloseSocket(q1); err != nil {
		t.Fatalf("CloseSocket: %v", err)
	}

	ch, _, err := s.Accept(ln)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}
	if ch != q2 {
		t.Fatalf("accepted = %d, want %d", ch, q2)
	}
	pending, _, _ := s.QueueStatus(ln)
	if pending != 0 {
		t.Fatalf("pending = %d, want 0", pending)
	}
}

func TestStack_AcceptValidation(t *testing.T) {
	s := newTestStack()

	if _, _, err := s.Accept(99); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("unknown handle err = %v, want invalid", err)
	}

	h, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, _, err := s.Accept(h); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("non-listener accept err = %v, want invalid", err)
	}
}

func TestStack_CloseConnected(t *testing.T) {
	s := newTestStack()
	ln := newListener(t, s, "127.0.0.1", 5000, 4)
	c, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err := s.Connect(c, mustAddr(t, "127.0.0.1", 5000)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ch, _, err := s.Accept(ln)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	sink := &eventSink{}
	s.Subscribe(sink)

	if err := s.CloseSocket(ch); err != nil {
		t.Fatalf("CloseSocket: %v", err)
	}

	// The handle no longer resolves.
	if _, err := s.State(ch); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("State after close err = %v, want invalid", err)
	}
	if err := s.CloseSocket(ch); !errors.IsCode(err, errors.CodeInvalid) {
		t.Fatalf("double close err = %v, want invalid", err)
	}

	// The record left through FIN_WAIT_1, observable in its removal
	// snapshot.
	if len(sink.events) != 1 {
		t.Fatalf("events = %d, want 1", len(sink.events))
	}
	last := sink.events[0]
	if last.Type != socket.EventRemoved || last.Handle != ch {
		t.Fatalf("event = %v/%d, want removed/%d", last.Type, last.Handle, ch)
	}
	if last.Info.TCPState != tcp.FinWait1 {
		t.Fatalf("removal tcp state = %v, want FIN_WAIT_1", last.Info.TCPState)
	}

	// The peer saw the FIN and sits half-closed.
	ts, _ := s.TCPState(c)
	if ts != tcp.CloseWait {
		t.Fatalf("peer tcp state = %v, want CLOSE_WAIT", ts)
	}
	st, _ := s.State(c)
	if st != socket.StateConnected {
		t.Fatalf("peer state = %v, want connected", st)
	}
}

func TestStack_CloseClientNotifiesAccepted(t *testing.T) {
	s := newTestStack()
	ln := newListener(t, s, "127.0.0.1", 5700, 4)
	c, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err := s.Connect(c, mustAddr(t, "127.0.0.1", 5700)); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	ch, _, err := s.Accept(ln)
	if err != nil {
		t.Fatalf("Accept: %v", err)
	}

	// Closing the client lands its FIN on the accepted side, which is
	// newer than the listener on the same address.
	if err := s.CloseSocket(c); err != nil {
		t.Fatalf("CloseSocket: %v", err)
	}
	ts, _ := s.TCPState(ch)
	if ts != tcp.CloseWait {
		t.Fatalf("accepted tcp state = %v, want CLOSE_WAIT", ts)
	}
	lts, _ := s.TCPState(ln)
	if lts != tcp.Listen {
		t.Fatalf("listener tcp state = %v, want LISTEN", lts)
	}
}

func TestStack_CloseListenerDropsPending(t *testing.T) {
	s := newTestStack()
	ln := newListener(t, s, "127.0.0.1", 5600, 4)
	target := mustAddr(t, "127.0.0.1", 5600)

	c1, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	c2, _ := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err := s.Connect(c1, target); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Connect(c2, target); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if s.Len() != 5 {
		t.Fatalf("Len = %d, want 5", s.Len())
	}

	if err := s.CloseSocket(ln); err != nil {
		t.Fatalf("CloseSocket: %v", err)
	}

	// Listener and both queued children are gone; the clients remain
	// and nothing told them otherwise.
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	st, _ := s.State(c1)
	if st != socket.StateConnected {
		t.Fatalf("client state = %v, want connected", st)
	}
}

func TestStack_CloseUnconnected(t *testing.T) {
	s := newTestStack()
	h, err := s.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.CloseSocket(h); err != nil {
		t.Fatalf("CloseSocket: %v", err)
	}
	if s.Len() != 0 {
		t.Fatalf("Len = %d, want 0", s.Len())
	}
}
