package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/netsim/inet"
	"github.com/wippyai/netsim/socket"
	"github.com/wippyai/netsim/stack"
	"github.com/wippyai/netsim/wire"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	sockStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	segStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const helpText = `commands:
  create stream|datagram|raw        bind H IP:PORT      listen H BACKLOG
  connect H IP:PORT                 accept H            close H
  send H TEXT...                    recv H [MAX]        timeout H
  sendto H IP:PORT TEXT...          recvfrom H [MAX]    help`

const (
	maxHistory  = 8
	maxSegments = 6
	defaultRead = 64
)

type interactiveModel struct {
	st       *stack.Stack
	input    textinput.Model
	history  []string
	segments []string
}

func newInteractiveModel() *interactiveModel {
	m := &interactiveModel{}

	m.st = stack.New().WithTap(func(p *wire.Packet) {
		line := fmt.Sprintf("%s %s -> %s (%d bytes)",
			wire.FlagString(p.TCP.Flags),
			endpoint(p.IP.Src, p.TCP.SrcPort),
			endpoint(p.IP.Dst, p.TCP.DstPort),
			len(p.Payload))
		m.segments = append(m.segments, line)
		if len(m.segments) > maxSegments {
			m.segments = m.segments[len(m.segments)-maxSegments:]
		}
	})

	ti := textinput.New()
	ti.Placeholder = "help"
	ti.Prompt = "> "
	ti.Width = 64
	ti.Focus()
	m.input = ti
	return m
}

func (m *interactiveModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			_ = m.st.Close()
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			result, err := m.execute(line)
			entry := "> " + line
			if err != nil {
				entry += "\n  " + errorStyle.Render(err.Error())
			} else if result != "" {
				entry += "\n  " + resultStyle.Render(result)
			}
			m.history = append(m.history, entry)
			if len(m.history) > maxHistory {
				m.history = m.history[len(m.history)-maxHistory:]
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("netsim"))
	b.WriteString(" in-memory socket stack\n\n")

	b.WriteString("Sockets:\n")
	handles := m.st.Handles()
	if len(handles) == 0 {
		b.WriteString(helpStyle.Render(`  none; try "create stream"`))
		b.WriteString("\n")
	}
	for _, h := range handles {
		info, err := m.st.Info(h)
		if err != nil {
			continue
		}
		b.WriteString("  " + sockStyle.Render(info.String()) + "\n")
	}

	if len(m.segments) > 0 {
		b.WriteString("\nSegments:\n")
		for _, line := range m.segments {
			b.WriteString("  " + segStyle.Render(line) + "\n")
		}
	}

	if len(m.history) > 0 {
		b.WriteString("\n")
		for _, entry := range m.history {
			b.WriteString(entry + "\n")
		}
	}

	b.WriteString("\n" + m.input.View() + "\n")
	b.WriteString(helpStyle.Render("enter run • help for commands • ctrl+c quit"))
	return b.String()
}

func (m *interactiveModel) execute(line string) (string, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil
	}

	switch fields[0] {
	case "help":
		return helpText, nil

	case "create":
		if len(fields) != 2 {
			return "", fmt.Errorf("usage: create stream|datagram|raw")
		}
		var typ socket.SockType
		switch fields[1] {
		case "stream":
			typ = socket.Stream
		case "datagram":
			typ = socket.Datagram
		case "raw":
			typ = socket.Raw
		default:
			return "", fmt.Errorf("unknown socket type %q", fields[1])
		}
		h, err := m.st.Create(inet.FamilyInet, typ, socket.ProtoIP)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("socket %d created", h), nil

	case "bind":
		if len(fields) != 3 {
			return "", fmt.Errorf("usage: bind H IP:PORT")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return "", err
		}
		addr, err := parseAddr(fields[2])
		if err != nil {
			return "", err
		}
		if err := m.st.Bind(h, addr); err != nil {
			return "", err
		}
		return fmt.Sprintf("socket %d bound to %s", h, addr), nil

	case "listen":
		if len(fields) != 3 {
			return "", fmt.Errorf("usage: listen H BACKLOG")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return "", err
		}
		backlog, err := strconv.Atoi(fields[2])
		if err != nil {
			return "", fmt.Errorf("bad backlog %q", fields[2])
		}
		if err := m.st.Listen(h, backlog); err != nil {
			return "", err
		}
		return fmt.Sprintf("socket %d listening", h), nil

	case "connect":
		if len(fields) != 3 {
			return "", fmt.Errorf("usage: connect H IP:PORT")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return "", err
		}
		addr, err := parseAddr(fields[2])
		if err != nil {
			return "", err
		}
		if err := m.st.Connect(h, addr); err != nil {
			return "", err
		}
		return fmt.Sprintf("socket %d connected to %s", h, addr), nil

	case "accept":
		if len(fields) != 2 {
			return "", fmt.Errorf("usage: accept H")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return "", err
		}
		ch, peer, err := m.st.Accept(h)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("accepted socket %d, peer %s", ch, peer), nil

	case "send":
		if len(fields) < 3 {
			return "", fmt.Errorf("usage: send H TEXT...")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return "", err
		}
		n, err := m.st.Send(h, []byte(strings.Join(fields[2:], " ")))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d bytes queued and flushed", n), nil

	case "recv":
		if len(fields) < 2 || len(fields) > 3 {
			return "", fmt.Errorf("usage: recv H [MAX]")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return "", err
		}
		maxLen, err := parseMax(fields[2:])
		if err != nil {
			return "", err
		}
		data, err := m.st.Recv(h, maxLen)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("read %q", data), nil

	case "sendto":
		if len(fields) < 4 {
			return "", fmt.Errorf("usage: sendto H IP:PORT TEXT...")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return "", err
		}
		addr, err := parseAddr(fields[2])
		if err != nil {
			return "", err
		}
		n, err := m.st.SendTo(h, []byte(strings.Join(fields[3:], " ")), addr)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d bytes sent to %s", n, addr), nil

	case "recvfrom":
		if len(fields) < 2 || len(fields) > 3 {
			return "", fmt.Errorf("usage: recvfrom H [MAX]")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return "", err
		}
		maxLen, err := parseMax(fields[2:])
		if err != nil {
			return "", err
		}
		data, src, err := m.st.RecvFrom(h, maxLen)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("read %q from %s", data, src), nil

	case "close":
		if len(fields) != 2 {
			return "", fmt.Errorf("usage: close H")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return "", err
		}
		if err := m.st.CloseSocket(h); err != nil {
			return "", err
		}
		return fmt.Sprintf("socket %d closed", h), nil

	case "timeout":
		if len(fields) != 2 {
			return "", fmt.Errorf("usage: timeout H")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return "", err
		}
		moved, err := m.st.DriveTimeout(h)
		if err != nil {
			return "", err
		}
		if !moved {
			return "no transition for TIMEOUT in this state", nil
		}
		ts, err := m.st.TCPState(h)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("sub-state now %s", ts), nil
	}

	return "", fmt.Errorf("unknown command %q; try help", fields[0])
}

func parseHandle(tok string) (socket.Handle, error) {
	v, err := strconv.ParseUint(tok, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("bad handle %q", tok)
	}
	return socket.Handle(v), nil
}

// parseAddr reads "ip:port"; "*" or an empty ip means the wildcard.
func parseAddr(tok string) (inet.Address, error) {
	host, portStr, ok := strings.Cut(tok, ":")
	if !ok {
		return inet.Address{}, fmt.Errorf("address %q must be IP:PORT", tok)
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return inet.Address{}, fmt.Errorf("bad port %q", portStr)
	}
	if host == "*" {
		host = ""
	}
	return inet.MakeAddr(host, uint16(port))
}

func parseMax(rest []string) (int, error) {
	if len(rest) == 0 {
		return defaultRead, nil
	}
	maxLen, err := strconv.Atoi(rest[0])
	if err != nil {
		return 0, fmt.Errorf("bad length %q", rest[0])
	}
	return maxLen, nil
}

func runInteractive() error {
	p := tea.NewProgram(newInteractiveModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
