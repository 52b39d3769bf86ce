// Package errors provides structured error types for the netsim library.
//
// Errors carry an Op (which public operation failed) and a numeric Code
// from a fixed enumeration (invalid argument, would-block, address in
// use, connection refused, ...). The Error type includes the offending
// value and a cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.OpBind, errors.CodeAddrInUse).
//		Value(addr.String()).
//		Detail("port %d already bound", port).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.Invalid(errors.OpListen, "socket is not a stream socket")
//	err := errors.WouldBlock(errors.OpRecv, "no data available")
//
// Callers discriminate failure cause from the returned value alone:
//
//	if errors.IsWouldBlock(err) {
//		// retry later
//	}
//	switch errors.CodeOf(err) {
//	case errors.CodeRefused:
//		...
//	}
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
