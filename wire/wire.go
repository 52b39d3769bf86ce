package wire

import (
	"encoding/binary"
	"strings"
)

// TCP flag bits carried in TCPHeader.Flags.
const (
	FlagFIN uint16 = 0x01
	FlagSYN uint16 = 0x02
	FlagRST uint16 = 0x04
	FlagPSH uint16 = 0x08
	FlagACK uint16 = 0x10
	FlagURG uint16 = 0x20
)

// Fixed header sizes in bytes.
const (
	IPv4HeaderSize = 20
	TCPHeaderSize  = 20
)

// Defaults stamped on every outgoing IPv4 header.
const (
	DefaultVersionIHL uint8 = 0x45 // IPv4, five 32-bit words
	DefaultTTL        uint8 = 64
)

// IPv4Header is the fixed part of a simulated IPv4 header. Multi-byte
// fields hold network-byte-order values as produced by inet.Htons and
// inet.Htonl, so marshaling their raw bytes yields standard wire order.
type IPv4Header struct {
	VersionIHL uint8
	TOS        uint8
	TotalLen   uint16
	ID         uint16
	FlagsFrag  uint16
	TTL        uint8
	Protocol   uint8
	Checksum   uint16
	Src        uint32
	Dst        uint32
}

// Marshal packs the header into its 20-byte wire form.
func (h *IPv4Header) Marshal() []byte {
	b := make([]byte, IPv4HeaderSize)
	b[0] = h.VersionIHL
	b[1] = h.TOS
	binary.LittleEndian.PutUint16(b[2:4], h.TotalLen)
	binary.LittleEndian.PutUint16(b[4:6], h.ID)
	binary.LittleEndian.PutUint16(b[6:8], h.FlagsFrag)
	b[8] = h.TTL
	b[9] = h.Protocol
	binary.LittleEndian.PutUint16(b[10:12], h.Checksum)
	binary.LittleEndian.PutUint32(b[12:16], h.Src)
	binary.LittleEndian.PutUint32(b[16:20], h.Dst)
	return b
}

// TCPHeader is a simplified 20-byte TCP header. There is no data-offset
// field; Flags occupies a full 16 bits with only the low six in use.
// Ports, sequence numbers and the window hold network-byte-order values.
type TCPHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Seq      uint32
	Ack      uint32
	Flags    uint16
	Window   uint16
	Checksum uint16
	Urgent   uint16
}

// Marshal packs the header into its 20-byte wire form.
func (h *TCPHeader) Marshal() []byte {
	b := make([]byte, TCPHeaderSize)
	binary.LittleEndian.PutUint16(b[0:2], h.SrcPort)
	binary.LittleEndian.PutUint16(b[2:4], h.DstPort)
	binary.LittleEndian.PutUint32(b[4:8], h.Seq)
	binary.LittleEndian.PutUint32(b[8:12], h.Ack)
	binary.LittleEndian.PutUint16(b[12:14], h.Flags)
	binary.LittleEndian.PutUint16(b[14:16], h.Window)
	binary.LittleEndian.PutUint16(b[16:18], h.Checksum)
	binary.LittleEndian.PutUint16(b[18:20], h.Urgent)
	return b
}

// Packet is one simulated segment: IPv4 header, TCP header and payload.
// Packets exist for dispatch, logging and inspection; delivery copies
// payload bytes directly between socket buffers.
type Packet struct {
	IP      IPv4Header
	TCP     TCPHeader
	Payload []byte
}

// Marshal concatenates both headers and the payload into wire form.
func (p *Packet) Marshal() []byte {
	b := make([]byte, 0, IPv4HeaderSize+TCPHeaderSize+len(p.Payload))
	b = append(b, p.IP.Marshal()...)
	b = append(b, p.TCP.Marshal()...)
	b = append(b, p.Payload...)
	return b
}

// FlagString renders flag bits as a pipe-joined list, e.g. "SYN|ACK".
// Zero renders as "NONE".
func FlagString(flags uint16) string {
	if flags == 0 {
		return "NONE"
	}
	names := []struct {
		bit  uint16
		name string
	}{
		{FlagFIN, "FIN"},
		{FlagSYN, "SYN"},
		{FlagRST, "RST"},
		{FlagPSH, "PSH"},
		{FlagACK, "ACK"},
		{FlagURG, "URG"},
	}
	var sb strings.Builder
	for _, n := range names {
		if flags&n.bit == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(n.name)
	}
	if sb.Len() == 0 {
		return "NONE"
	}
	return sb.String()
}
