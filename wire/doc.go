// Package wire defines the simulated packet formats exchanged between
// sockets: a fixed 20-byte IPv4 header, a simplified 20-byte TCP header
// and the Packet type combining both with a payload.
//
// Header fields hold network-byte-order values (see package inet), so
// Marshal emits them byte-for-byte in standard wire order. The IPv4
// header checksum is real RFC 1071 math; the TCP checksum is pluggable
// via ChecksumFunc and defaults to an inert placeholder, since nothing
// in the delivery path validates it.
package wire
