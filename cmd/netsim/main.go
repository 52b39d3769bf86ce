package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/netsim/inet"
	"github.com/wippyai/netsim/socket"
	"github.com/wippyai/netsim/stack"
	"github.com/wippyai/netsim/tcp"
	"github.com/wippyai/netsim/wire"
)

func main() {
	var (
		demo        = flag.String("demo", "", "Demo to run: tcp, udp or states")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
		verbose     = flag.Bool("verbose", false, "Log stack internals to stderr")
		trace       = flag.Bool("trace", false, "Hex-dump every constructed segment")
	)
	flag.Parse()

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		stack.SetLogger(logger)
	}

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode needs a terminal")
			os.Exit(1)
		}
		if err := runInteractive(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var err error
	switch *demo {
	case "tcp":
		err = runTCPDemo(*trace)
	case "udp":
		err = runUDPDemo(*trace)
	case "states":
		err = runStatesDemo()
	default:
		fmt.Fprintln(os.Stderr, "Usage: netsim -demo tcp|udp|states [-verbose] [-trace]")
		fmt.Fprintln(os.Stderr, "       netsim -i  (interactive mode)")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newDemoStack(trace bool) *stack.Stack {
	st := stack.New()
	if trace {
		st.WithTap(func(p *wire.Packet) {
			fmt.Printf("segment %s %s -> %s (%d payload bytes)\n",
				wire.FlagString(p.TCP.Flags),
				endpoint(p.IP.Src, p.TCP.SrcPort),
				endpoint(p.IP.Dst, p.TCP.DstPort),
				len(p.Payload))
			fmt.Print(hex.Dump(p.Marshal()))
		})
	}
	return st
}

func endpoint(addr uint32, port uint16) string {
	return inet.Address{Family: inet.FamilyInet, Port: port, Addr: addr}.String()
}

func printInfo(st *stack.Stack, h socket.Handle) {
	if info, err := st.Info(h); err == nil {
		fmt.Println(" ", info)
	}
}

func runTCPDemo(trace bool) error {
	st := newDemoStack(trace)

	fmt.Println("TCP demo: listener, synchronous handshake, data, teardown")

	ln, err := st.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		return fmt.Errorf("create listener: %w", err)
	}
	addr, err := inet.MakeAddr("127.0.0.1", 8080)
	if err != nil {
		return err
	}
	if err := st.Bind(ln, addr); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	if err := st.Listen(ln, 8); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	printInfo(st, ln)

	client, err := st.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	if err := st.Connect(client, addr); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	printInfo(st, client)

	server, peer, err := st.Accept(ln)
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	fmt.Printf("accepted connection from %s\n", peer)
	printInfo(st, server)

	if _, err := st.Send(client, []byte("hello from the client")); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	data, err := st.Recv(server, 64)
	if err != nil {
		return fmt.Errorf("recv: %w", err)
	}
	fmt.Printf("server read %q\n", data)

	if _, err := st.Send(server, []byte("hello back")); err != nil {
		return fmt.Errorf("send: %w", err)
	}
	data, err = st.Recv(client, 64)
	if err != nil {
		return fmt.Errorf("recv: %w", err)
	}
	fmt.Printf("client read %q\n", data)

	if err := st.CloseSocket(client); err != nil {
		return fmt.Errorf("close client: %w", err)
	}
	ts, err := st.TCPState(server)
	if err != nil {
		return err
	}
	fmt.Printf("server sub-state after client close: %s\n", ts)

	return multierr.Combine(st.CloseSocket(server), st.CloseSocket(ln), st.Close())
}

func runUDPDemo(trace bool) error {
	st := newDemoStack(trace)

	fmt.Println("UDP demo: two bound sockets exchanging datagrams")

	a, err := st.Create(inet.FamilyInet, socket.Datagram, socket.ProtoIP)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	b, err := st.Create(inet.FamilyInet, socket.Datagram, socket.ProtoIP)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	addrA, err := inet.MakeAddr("127.0.0.1", 9001)
	if err != nil {
		return err
	}
	addrB, err := inet.MakeAddr("127.0.0.1", 9002)
	if err != nil {
		return err
	}
	if err := st.Bind(a, addrA); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	if err := st.Bind(b, addrB); err != nil {
		return fmt.Errorf("bind: %w", err)
	}
	printInfo(st, a)
	printInfo(st, b)

	if _, err := st.SendTo(a, []byte("PING"), addrB); err != nil {
		return fmt.Errorf("sendto: %w", err)
	}
	data, src, err := st.RecvFrom(b, 64)
	if err != nil {
		return fmt.Errorf("recvfrom: %w", err)
	}
	fmt.Printf("b read %q from %s\n", data, src)

	if _, err := st.SendTo(b, []byte("PONG"), addrA); err != nil {
		return fmt.Errorf("sendto: %w", err)
	}
	data, src, err = st.RecvFrom(a, 64)
	if err != nil {
		return fmt.Errorf("recvfrom: %w", err)
	}
	fmt.Printf("a read %q from %s\n", data, src)

	// A drained socket reports would-block rather than blocking.
	if _, _, err := st.RecvFrom(a, 64); err != nil {
		fmt.Printf("drained: %v\n", err)
	}

	return multierr.Combine(st.CloseSocket(a), st.CloseSocket(b), st.Close())
}

func runStatesDemo() error {
	fmt.Println("TCP state machine: defined transitions")

	states := []tcp.State{
		tcp.Closed, tcp.Listen, tcp.SynSent, tcp.SynReceived, tcp.Established,
		tcp.FinWait1, tcp.FinWait2, tcp.TimeWait, tcp.CloseWait, tcp.LastAck, tcp.Closing,
	}
	events := []tcp.Event{
		tcp.EventListen, tcp.EventConnect, tcp.EventSynRecv, tcp.EventSynAckRecv,
		tcp.EventAckRecv, tcp.EventFinRecv, tcp.EventClose, tcp.EventTimeout,
	}
	for _, s := range states {
		for _, e := range events {
			if next, ok := tcp.Next(s, e); ok {
				fmt.Printf("  %-12s --%s--> %s\n", s, e, next)
			}
		}
	}

	fmt.Println("\nThe same transitions driven through a stack:")
	st := stack.New()

	ln, err := st.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	addr, err := inet.MakeAddr("127.0.0.1", 8080)
	if err != nil {
		return err
	}
	if err := st.Bind(ln, addr); err != nil {
		return fmt.Errorf("bind: %w", err)
	}

	show := func(label string, h socket.Handle) {
		if ts, err := st.TCPState(h); err == nil {
			fmt.Printf("  %-32s %s\n", label, ts)
		}
	}

	if err := st.Listen(ln, 4); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	show("listener after listen:", ln)

	client, err := st.Create(inet.FamilyInet, socket.Stream, socket.ProtoIP)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}
	show("client before connect:", client)

	if err := st.Connect(client, addr); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	show("client after connect:", client)

	server, _, err := st.Accept(ln)
	if err != nil {
		return fmt.Errorf("accept: %w", err)
	}
	show("server side after accept:", server)

	if err := st.CloseSocket(client); err != nil {
		return fmt.Errorf("close: %w", err)
	}
	show("server side after client close:", server)

	return multierr.Combine(st.CloseSocket(server), st.CloseSocket(ln), st.Close())
}
