// Package dispatcher implements the command/query dispatch layer of
// spec.md §4.1: immutable Command/Query records, one Handler per command
// type, and a uniform Result envelope. Domain-rule failures are returned
// as Result values, never raised; only programmer errors (type violations,
// repository corruption) propagate as Go errors, and those are trapped at
// the Registry boundary and converted to errcode.SystemError.
package dispatcher

import "github.com/gustsr/sentinela/errcode"

// Result is the uniform outcome every Handler returns (spec.md §4.1).
type Result struct {
	OK        bool
	Message   string
	Data      map[string]any
	ErrorCode errcode.Code
}

// Ok builds a successful Result carrying a localized message and optional
// data payload.
func Ok(message string, data map[string]any) Result {
	return Result{OK: true, Message: message, Data: data}
}

// Fail builds a failed Result carrying a stable error code and localized
// message.
func Fail(code errcode.Code, message string) Result {
	return Result{OK: false, ErrorCode: code, Message: message}
}
