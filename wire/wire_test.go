package wire

import (
	"bytes"
	"testing"
)

func TestChecksum(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", nil, 0xffff},
		{"single word", []byte{0x01, 0x00}, 0xfffe},
		{"all ones word", []byte{0xff, 0xff}, 0x0000},
		{"odd trailing byte", []byte{0x01}, 0xfffe},
		{"carry folds", []byte{0xff, 0xff, 0x02, 0x00}, 0xfffd},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Checksum(tt.data); got != tt.want {
				t.Errorf("Checksum(% x) = %#04x, want %#04x", tt.data, got, tt.want)
			}
		})
	}
}

func TestChecksumVerifiesToZero(t *testing.T) {
	// Appending a block's checksum to the block must make the whole
	// thing sum to zero. That is the receiver-side validation identity.
	data := []byte{0x45, 0x00, 0x00, 0x3c, 0x1c, 0x46, 0x40, 0x00, 0x40, 0x06}
	c := Checksum(data)
	withSum := append(append([]byte(nil), data...), byte(c), byte(c>>8))
	if got := Checksum(withSum); got != 0 {
		t.Errorf("Checksum(data+checksum) = %#04x, want 0", got)
	}
}

func TestHeaderChecksum(t *testing.T) {
	h := &IPv4Header{
		VersionIHL: DefaultVersionIHL,
		TotalLen:   0x2c00,
		TTL:        DefaultTTL,
		Protocol:   6,
		Src:        0x0100007f,
		Dst:        0x0100007f,
	}
	c := HeaderChecksum(h)
	if c == 0 {
		t.Fatal("HeaderChecksum returned 0 for a populated header")
	}

	// Stale checksum content must not affect the computation.
	h.Checksum = 0xdead
	if again := HeaderChecksum(h); again != c {
		t.Errorf("HeaderChecksum with stale field = %#04x, want %#04x", again, c)
	}

	// A header carrying its own checksum sums to zero.
	h.Checksum = c
	if got := Checksum(h.Marshal()); got != 0 {
		t.Errorf("Checksum over finalized header = %#04x, want 0", got)
	}
}

func TestIPv4HeaderMarshal(t *testing.T) {
	h := &IPv4Header{
		VersionIHL: 0x45,
		TOS:        0x10,
		TotalLen:   0x2c00, // 44 in network order
		ID:         0x0201,
		FlagsFrag:  0x0040,
		TTL:        64,
		Protocol:   6,
		Checksum:   0x3412,
		Src:        0x0100007f, // 127.0.0.1 in network order
		Dst:        0x0200a8c0, // 192.168.0.2 in network order
	}
	want := []byte{
		0x45, 0x10,
		0x00, 0x2c, // total length 44, big-endian on the wire
		0x01, 0x02,
		0x40, 0x00,
		0x40, 0x06,
		0x12, 0x34,
		0x7f, 0x00, 0x00, 0x01,
		0xc0, 0xa8, 0x00, 0x02,
	}
	got := h.Marshal()
	if len(got) != IPv4HeaderSize {
		t.Fatalf("marshal length = %d, want %d", len(got), IPv4HeaderSize)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("marshal = % x, want % x", got, want)
	}
}

func TestTCPHeaderMarshal(t *testing.T) {
	h := &TCPHeader{
		SrcPort:  0x2923, // 9001 in network order
		DstPort:  0x2a23, // 9002 in network order
		Seq:      0xb80b0000,
		Ack:      0xb90b0000,
		Flags:    FlagPSH | FlagACK,
		Window:   0x0020, // 8192 in network order
		Checksum: 0x1234,
		Urgent:   0,
	}
	want := []byte{
		0x23, 0x29,
		0x23, 0x2a,
		0x00, 0x00, 0x0b, 0xb8,
		0x00, 0x00, 0x0b, 0xb9,
		0x18, 0x00,
		0x20, 0x00,
		0x34, 0x12,
		0x00, 0x00,
	}
	got := h.Marshal()
	if len(got) != TCPHeaderSize {
		t.Fatalf("marshal length = %d, want %d", len(got), TCPHeaderSize)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("marshal = % x, want % x", got, want)
	}
}

func TestPacketMarshal(t *testing.T) {
	p := &Packet{
		IP:      IPv4Header{VersionIHL: 0x45, TTL: 64, Protocol: 6},
		TCP:     TCPHeader{Flags: FlagSYN},
		Payload: []byte("PING"),
	}
	b := p.Marshal()
	if want := IPv4HeaderSize + TCPHeaderSize + 4; len(b) != want {
		t.Fatalf("packet length = %d, want %d", len(b), want)
	}
	if !bytes.Equal(b[40:], []byte("PING")) {
		t.Errorf("payload tail = % x, want PING", b[40:])
	}
	if b[0] != 0x45 || b[8] != 64 || b[9] != 6 {
		t.Errorf("ip header bytes misplaced: % x", b[:IPv4HeaderSize])
	}
}

func TestPlaceholderChecksum(t *testing.T) {
	if got := PlaceholderChecksum(nil, nil); got != 0x1234 {
		t.Errorf("PlaceholderChecksum() = %#04x, want 0x1234", got)
	}
	h := &TCPHeader{Flags: FlagSYN}
	if got := PlaceholderChecksum(h, []byte("data")); got != 0x1234 {
		t.Errorf("PlaceholderChecksum(h, data) = %#04x, want 0x1234", got)
	}
}

func TestFlagString(t *testing.T) {
	tests := []struct {
		flags uint16
		want  string
	}{
		{0, "NONE"},
		{FlagSYN, "SYN"},
		{FlagSYN | FlagACK, "SYN|ACK"},
		{FlagPSH | FlagACK, "PSH|ACK"},
		{FlagFIN | FlagSYN | FlagRST | FlagPSH | FlagACK | FlagURG, "FIN|SYN|RST|PSH|ACK|URG"},
		{0x0040, "NONE"}, // unknown bit only
	}
	for _, tt := range tests {
		if got := FlagString(tt.flags); got != tt.want {
			t.Errorf("FlagString(%#04x) = %q, want %q", tt.flags, got, tt.want)
		}
	}
}
