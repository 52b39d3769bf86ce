package inet

import (
	"fmt"
	"strings"

	"github.com/wippyai/netsim/errors"
)

// ParseIPv4 converts dotted-decimal notation into a 32-bit address in
// network byte order. Exactly four decimal groups in 0..255 separated by
// single dots are accepted; any other form fails. "0.0.0.0" parses to the
// wildcard value 0.
func ParseIPv4(s string) (uint32, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return 0, invalidIPv4(s, "need exactly four groups")
	}
	var host uint32
	for _, p := range parts {
		if len(p) == 0 || len(p) > 3 {
			return 0, invalidIPv4(s, "group out of range")
		}
		var v uint32
		for i := 0; i < len(p); i++ {
			c := p[i]
			if c < '0' || c > '9' {
				return 0, invalidIPv4(s, "non-decimal group")
			}
			v = v*10 + uint32(c-'0')
		}
		if v > 255 {
			return 0, invalidIPv4(s, "group out of range")
		}
		host = host<<8 | v
	}
	return Htonl(host), nil
}

// FormatIPv4 renders a network-byte-order address in canonical
// dotted-decimal form, the exact inverse of ParseIPv4.
func FormatIPv4(addr uint32) string {
	return fmt.Sprintf("%d.%d.%d.%d",
		addr&0xff, addr>>8&0xff, addr>>16&0xff, addr>>24&0xff)
}

func invalidIPv4(s, why string) *errors.Error {
	return errors.New(errors.OpParse, errors.CodeInvalid).
		Value(s).
		Detail("invalid dotted-decimal address: %s", why).
		Build()
}
