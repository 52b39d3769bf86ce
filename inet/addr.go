package inet

import (
	"encoding/binary"
	"fmt"

	"github.com/wippyai/netsim/errors"
)

// Family identifies an address/protocol family.
type Family uint16

const (
	FamilyUnspec Family = 0
	FamilyUnix   Family = 1
	FamilyInet   Family = 2
	FamilyInet6  Family = 10
)

// String returns the conventional family name.
func (f Family) String() string {
	switch f {
	case FamilyUnspec:
		return "unspec"
	case FamilyUnix:
		return "unix"
	case FamilyInet:
		return "inet"
	case FamilyInet6:
		return "inet6"
	default:
		return fmt.Sprintf("family(%d)", uint16(f))
	}
}

// SockaddrSize is the encoded size of an Address: 2 bytes family, 2 bytes
// port, 4 bytes IPv4 address, 8 reserved bytes.
const SockaddrSize = 16

// Address is a socket address in the classic sockaddr_in layout.
// Port and Addr hold network-byte-order values; use Htons/Ntohs and
// Htonl/Ntohl when doing arithmetic on them. The zero Addr is the
// wildcard "any" address; a zero Port marks an unbound socket.
type Address struct {
	Family Family
	Port   uint16 // network byte order
	Addr   uint32 // network byte order
}

// MakeAddr builds an inet address from a dotted-decimal IP and a
// host-order port. An empty ip yields the wildcard address.
func MakeAddr(ip string, port uint16) (Address, error) {
	a := Address{Family: FamilyInet, Port: Htons(port)}
	if ip == "" {
		return a, nil
	}
	addr, err := ParseIPv4(ip)
	if err != nil {
		return Address{}, err
	}
	a.Addr = addr
	return a, nil
}

// IsWildcard reports whether the IP field is the all-zero "any" value.
func (a Address) IsWildcard() bool {
	return a.Addr == 0
}

// IsValid reports whether the address can name a connection target:
// inet family and a nonzero port.
func (a Address) IsValid() bool {
	return a.Family == FamilyInet && a.Port != 0
}

// Equal reports field-wise equality.
func (a Address) Equal(b Address) bool {
	return a == b
}

// String formats the address as "ip:port" with the port in host order.
func (a Address) String() string {
	return fmt.Sprintf("%s:%d", FormatIPv4(a.Addr), Ntohs(a.Port))
}

// MarshalBinary encodes the 16-byte sockaddr layout: family as a
// little-endian u16 matching the struct's in-memory layout, port and
// address verbatim (they already hold network-order values), then the
// 8 reserved zero bytes. The encoding round-trips exactly.
func (a Address) MarshalBinary() ([]byte, error) {
	b := make([]byte, SockaddrSize)
	binary.LittleEndian.PutUint16(b[0:2], uint16(a.Family))
	binary.LittleEndian.PutUint16(b[2:4], a.Port)
	binary.LittleEndian.PutUint32(b[4:8], a.Addr)
	return b, nil
}

// UnmarshalBinary decodes the layout written by MarshalBinary.
// Undersized input is rejected; extra bytes are ignored.
func (a *Address) UnmarshalBinary(data []byte) error {
	if len(data) < SockaddrSize {
		return errors.New(errors.OpParse, errors.CodeInvalid).
			Value(len(data)).
			Detail("sockaddr too short: need %d bytes", SockaddrSize).
			Build()
	}
	a.Family = Family(binary.LittleEndian.Uint16(data[0:2]))
	a.Port = binary.LittleEndian.Uint16(data[2:4])
	a.Addr = binary.LittleEndian.Uint32(data[4:8])
	return nil
}
