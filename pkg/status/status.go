// Package status models the application-level outcome of an RPC: a gRPC code
// plus optional details, convertible to and from google.golang.org/grpc/status.
package status

import (
	"fmt"

	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Status is an immutable (code, optional details) pair.
type Status struct {
	code       codes.Code
	details    string
	hasDetails bool
}

// New returns a status without details.
func New(code codes.Code) Status {
	return Status{code: code}
}

// WithDetails returns a status carrying details, even when details is empty.
func WithDetails(code codes.Code, details string) Status {
	return Status{code: code, details: details, hasDetails: true}
}

// OKStatus is the status of a successfully completed call.
var OKStatus = New(codes.OK)

func (s Status) Code() codes.Code { return s.code }

// Details returns the details and whether any were set.
func (s Status) Details() (string, bool) { return s.details, s.hasDetails }

func (s Status) OK() bool { return s.code == codes.OK }

func (s Status) String() string {
	if !s.hasDetails {
		return fmt.Sprintf("Status{code: %s, details: <none>}", s.code)
	}
	return fmt.Sprintf("Status{code: %s, details: %q}", s.code, s.details)
}

// GRPC converts s into a gRPC status. Absent details become an empty message.
func (s Status) GRPC() *grpcstatus.Status {
	return grpcstatus.New(s.code, s.details)
}

// Err returns nil for OK and a gRPC status error otherwise.
func (s Status) Err() error {
	if s.OK() {
		return nil
	}
	return s.GRPC().Err()
}

// FromGRPC converts a gRPC status. A nil status is OK; an empty message is
// treated as absent details.
func FromGRPC(st *grpcstatus.Status) Status {
	if st == nil {
		return OKStatus
	}
	if msg := st.Message(); msg != "" {
		return WithDetails(st.Code(), msg)
	}
	return New(st.Code())
}

// FromError extracts a status from err. The boolean is false when err does not
// carry a gRPC status; in that case the result is Unknown with err's text.
func FromError(err error) (Status, bool) {
	if err == nil {
		return OKStatus, true
	}
	st, ok := grpcstatus.FromError(err)
	if !ok {
		return WithDetails(codes.Unknown, err.Error()), false
	}
	return FromGRPC(st), true
}
