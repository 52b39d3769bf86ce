package netsim

import (
	"go.uber.org/zap"

	"github.com/wippyai/netsim/inet"
	"github.com/wippyai/netsim/socket"
	"github.com/wippyai/netsim/stack"
)

// Stack is the socket subsystem entry point; see package stack.
type Stack = stack.Stack

// Handle identifies a socket within a Stack.
type Handle = socket.Handle

// Address is the 16-byte sockaddr-style socket address.
type Address = inet.Address

// New creates an empty Stack with default settings. Tune it with the
// stack package's With options before first use.
func New() *Stack {
	return stack.New()
}

// MakeAddr builds an inet address from a dotted-quad IP and host-order
// port. An empty ip yields the wildcard address.
func MakeAddr(ip string, port uint16) (Address, error) {
	return inet.MakeAddr(ip, port)
}

// SetLogger points the stack subsystem's package logger somewhere other
// than the default no-op logger. Call it before creating any Stack.
func SetLogger(l *zap.Logger) {
	stack.SetLogger(l)
}
