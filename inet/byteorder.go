package inet

// Htons converts a 16-bit value from host to network byte order.
func Htons(v uint16) uint16 {
	return v<<8 | v>>8
}

// Ntohs converts a 16-bit value from network to host byte order.
// The swap is involutive, so this is the same operation as Htons.
func Ntohs(v uint16) uint16 {
	return Htons(v)
}

// Htonl converts a 32-bit value from host to network byte order.
func Htonl(v uint32) uint32 {
	return v<<24 | (v&0x0000ff00)<<8 | (v&0x00ff0000)>>8 | v>>24
}

// Ntohl converts a 32-bit value from network to host byte order.
func Ntohl(v uint32) uint32 {
	return Htonl(v)
}
