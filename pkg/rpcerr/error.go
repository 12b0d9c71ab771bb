// Package rpcerr defines the single error type returned by every fallible
// operation of the binding layer.
//
// An *Error carries exactly one failure, identified by its Kind. Values are
// immutable and may be handed between goroutines freely. The package never
// logs, retries or recovers; callers decide what to do with a failure.
package rpcerr

import (
	"errors"
	"fmt"

	"github.com/Goden-Gun/grpcbind/pkg/codes"
	"github.com/Goden-Gun/grpcbind/pkg/status"
)

// Kind identifies the failure variant of an Error.
type Kind uint8

// The zero Kind is invalid, so a zero Error is never mistaken for a variant.
const (
	KindCodec Kind = iota + 1
	KindCallFailure
	KindRPCFailure
	KindRPCFinished
	KindRemoteStopped
	KindShutdownFailed
	KindBindFail
	KindQueueShutdown
	KindGoogleAuthenticationFailed
	KindInvalidMetadata
)

var kindNames = [...]string{
	KindCodec:                      "Codec",
	KindCallFailure:                "CallFailure",
	KindRPCFailure:                 "RPCFailure",
	KindRPCFinished:                "RPCFinished",
	KindRemoteStopped:              "RemoteStopped",
	KindShutdownFailed:             "ShutdownFailed",
	KindBindFail:                   "BindFail",
	KindQueueShutdown:              "QueueShutdown",
	KindGoogleAuthenticationFailed: "GoogleAuthenticationFailed",
	KindInvalidMetadata:            "InvalidMetadata",
}

var descriptions = [...]string{
	KindCodec:                      "Codec Error",
	KindCallFailure:                "Call Error",
	KindRPCFailure:                 "Request Error",
	KindRPCFinished:                "Finish Error",
	KindRemoteStopped:              "Remote is stopped.",
	KindShutdownFailed:             "Failed to shutdown.",
	KindBindFail:                   "Bind Error",
	KindQueueShutdown:              "completion queue shutdown",
	KindGoogleAuthenticationFailed: "Could not create google default credentials.",
	KindInvalidMetadata:            "invalid format of metadata",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// Error is a tagged union: kind selects which of the payload fields is set.
type Error struct {
	kind      Kind
	cause     error
	callCode  codes.CallCode
	status    status.Status
	hasStatus bool
	host      string
	port      uint16
	reason    string
}

// Sentinels for the variants without payload, usable with errors.Is.
var (
	ErrRemoteStopped              = RemoteStopped()
	ErrShutdownFailed             = ShutdownFailed()
	ErrQueueShutdown              = QueueShutdown()
	ErrGoogleAuthenticationFailed = GoogleAuthenticationFailed()
)

// Codec reports a message serialization failure. cause is kept as-is and must
// be safe for concurrent use; a nil cause is replaced by an opaque one.
func Codec(cause error) *Error {
	if cause == nil {
		cause = errors.New("unknown codec error")
	}
	return &Error{kind: KindCodec, cause: cause}
}

// CallFailure reports that the engine rejected an operation on a call.
func CallFailure(code codes.CallCode) *Error { return &Error{kind: KindCallFailure, callCode: code} }

// RPCFailure reports a non-OK status returned by the peer.
func RPCFailure(st status.Status) *Error {
	return &Error{kind: KindRPCFailure, status: st, hasStatus: true}
}

// RPCFinished reports use of a call that already completed with st.
func RPCFinished(st status.Status) *Error {
	return &Error{kind: KindRPCFinished, status: st, hasStatus: true}
}

// RPCFinishedUnknown reports use of a completed call whose terminal status is
// not known.
func RPCFinishedUnknown() *Error { return &Error{kind: KindRPCFinished} }

func RemoteStopped() *Error  { return &Error{kind: KindRemoteStopped} }
func ShutdownFailed() *Error { return &Error{kind: KindShutdownFailed} }

// BindFail reports that host:port could not be bound. No validation is done.
func BindFail(host string, port uint16) *Error {
	return &Error{kind: KindBindFail, host: host, port: port}
}

func QueueShutdown() *Error              { return &Error{kind: KindQueueShutdown} }
func GoogleAuthenticationFailed() *Error { return &Error{kind: KindGoogleAuthenticationFailed} }

// InvalidMetadata reports a metadata entry that violates the format rules.
func InvalidMetadata(reason string) *Error {
	return &Error{kind: KindInvalidMetadata, reason: reason}
}

func (e *Error) Kind() Kind { return e.kind }

// CallCode is the payload of CallFailure.
func (e *Error) CallCode() codes.CallCode { return e.callCode }

// Status is the payload of RPCFailure and RPCFinished. The boolean is false
// for other kinds and for RPCFinished without a known status.
func (e *Error) Status() (status.Status, bool) { return e.status, e.hasStatus }

// Addr is the payload of BindFail.
func (e *Error) Addr() (host string, port uint16) { return e.host, e.port }

// Reason is the payload of InvalidMetadata.
func (e *Error) Reason() string { return e.reason }

// Error renders the variant and its full payload.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.kind {
	case KindCodec:
		return fmt.Sprintf("Codec(%q)", e.cause.Error())
	case KindCallFailure:
		return fmt.Sprintf("CallFailure(%s=%d, %q)", e.callCode, e.callCode.Numeric, e.callCode.Message)
	case KindRPCFailure:
		return fmt.Sprintf("RPCFailure(%s)", e.status)
	case KindRPCFinished:
		if !e.hasStatus {
			return "RPCFinished(<unknown status>)"
		}
		return fmt.Sprintf("RPCFinished(%s)", e.status)
	case KindBindFail:
		return fmt.Sprintf("BindFail(%q, %d)", e.host, e.port)
	case KindInvalidMetadata:
		return fmt.Sprintf("InvalidMetadata(%q)", e.reason)
	default:
		return e.kind.String()
	}
}

func (e *Error) String() string { return e.Error() }

// Description returns the fixed category string of the variant.
func (e *Error) Description() string {
	if int(e.kind) < len(descriptions) && descriptions[e.kind] != "" {
		return descriptions[e.kind]
	}
	return "unknown error"
}

// Cause returns the wrapped codec error. Every other variant is a leaf.
func (e *Error) Cause() error {
	if e.kind == KindCodec {
		return e.cause
	}
	return nil
}

func (e *Error) Unwrap() error { return e.Cause() }

// Is matches any *Error of the same Kind, regardless of payload.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t == nil || e == nil {
		return false
	}
	return e.kind == t.kind
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

// KindOf returns the Kind of the first *Error in err's chain.
func KindOf(err error) (Kind, bool) {
	if e, ok := As(err); ok {
		return e.kind, true
	}
	return 0, false
}
