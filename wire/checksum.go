package wire

import "encoding/binary"

// Checksum computes the RFC 1071 ones-complement sum over data: 16-bit
// words are accumulated, carries folded back in, and the result inverted.
// An odd trailing byte contributes as a single low byte.
func Checksum(data []byte) uint16 {
	var sum uint32
	for len(data) > 1 {
		sum += uint32(binary.LittleEndian.Uint16(data))
		data = data[2:]
	}
	if len(data) == 1 {
		sum += uint32(data[0])
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}

// HeaderChecksum computes the IPv4 header checksum: the ones-complement
// sum over the marshaled header with its checksum field taken as zero.
func HeaderChecksum(h *IPv4Header) uint16 {
	tmp := *h
	tmp.Checksum = 0
	return Checksum(tmp.Marshal())
}

// ChecksumFunc computes the transport checksum stamped on an outgoing
// segment. The value travels with the segment for inspection only;
// delivery never validates it.
type ChecksumFunc func(h *TCPHeader, payload []byte) uint16

// PlaceholderChecksum is the default ChecksumFunc. It returns a fixed
// marker instead of real checksum math, keeping segment dumps
// recognizable while making clear the field is not authoritative.
func PlaceholderChecksum(*TCPHeader, []byte) uint16 {
	return 0x1234
}
