// Package inet provides the address model for the socket emulation:
// protocol families, the 16-byte sockaddr layout, host/network byte-order
// conversion, and the dotted-decimal IPv4 codec.
//
// Port and address fields hold network-byte-order values, exactly like the
// classic sockaddr_in layout this package mirrors. Callers convert at the
// boundary:
//
//	addr := inet.Address{
//		Family: inet.FamilyInet,
//		Port:   inet.Htons(8080),
//	}
//	fmt.Println(inet.Ntohs(addr.Port)) // 8080
//
// MakeAddr bundles the common case:
//
//	addr, err := inet.MakeAddr("127.0.0.1", 8080)
//
// The byte-order routines are unconditional byte swaps for a
// little-endian host, which makes each routine its own inverse.
package inet
