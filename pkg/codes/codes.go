package codes

import "fmt"

// CallCode is a call-submission result reported by the call-execution engine
// when an operation batch is started on a call.
type CallCode struct {
	Numeric int32
	Symbol  string
	Message string
}

var (
	// OK indicates the batch was accepted.
	OK = CallCode{Numeric: 0, Symbol: "GRPC_CALL_OK", Message: "ok"}
	// Error is an unspecified submission failure.
	Error = CallCode{Numeric: 1, Symbol: "GRPC_CALL_ERROR", Message: "call error"}
	// NotOnServer indicates a server-only operation was started on a client call.
	NotOnServer = CallCode{Numeric: 2, Symbol: "GRPC_CALL_ERROR_NOT_ON_SERVER", Message: "operation not allowed on server"}
	// NotOnClient indicates a client-only operation was started on a server call.
	NotOnClient = CallCode{Numeric: 3, Symbol: "GRPC_CALL_ERROR_NOT_ON_CLIENT", Message: "operation not allowed on client"}
	// AlreadyAccepted indicates the call was already accepted.
	AlreadyAccepted = CallCode{Numeric: 4, Symbol: "GRPC_CALL_ERROR_ALREADY_ACCEPTED", Message: "call already accepted"}
	// AlreadyInvoked indicates the call was already invoked.
	AlreadyInvoked = CallCode{Numeric: 5, Symbol: "GRPC_CALL_ERROR_ALREADY_INVOKED", Message: "call already invoked"}
	// NotInvoked indicates the call has not been invoked yet.
	NotInvoked = CallCode{Numeric: 6, Symbol: "GRPC_CALL_ERROR_NOT_INVOKED", Message: "call not invoked"}
	// AlreadyFinished indicates the call has already terminated.
	AlreadyFinished = CallCode{Numeric: 7, Symbol: "GRPC_CALL_ERROR_ALREADY_FINISHED", Message: "call already finished"}
	// TooManyOperations indicates too many operations are outstanding on the call or queue.
	TooManyOperations = CallCode{Numeric: 8, Symbol: "GRPC_CALL_ERROR_TOO_MANY_OPERATIONS", Message: "too many operations"}
	// InvalidFlags indicates the batch carried unsupported flags.
	InvalidFlags = CallCode{Numeric: 9, Symbol: "GRPC_CALL_ERROR_INVALID_FLAGS", Message: "invalid flags"}
	// InvalidMetadata indicates the batch carried malformed metadata.
	InvalidMetadata = CallCode{Numeric: 10, Symbol: "GRPC_CALL_ERROR_INVALID_METADATA", Message: "invalid metadata"}
	// InvalidMessage indicates the batch carried a malformed message.
	InvalidMessage = CallCode{Numeric: 11, Symbol: "GRPC_CALL_ERROR_INVALID_MESSAGE", Message: "invalid message"}
	// NotServerCompletionQueue indicates the queue was not registered for server use.
	NotServerCompletionQueue = CallCode{Numeric: 12, Symbol: "GRPC_CALL_ERROR_NOT_SERVER_COMPLETION_QUEUE", Message: "not a server completion queue"}
	// BatchTooBig indicates the batch held too many operations.
	BatchTooBig = CallCode{Numeric: 13, Symbol: "GRPC_CALL_ERROR_BATCH_TOO_BIG", Message: "batch too big"}
	// PayloadTypeMismatch indicates a payload did not match the method's declared type.
	PayloadTypeMismatch = CallCode{Numeric: 14, Symbol: "GRPC_CALL_ERROR_PAYLOAD_TYPE_MISMATCH", Message: "payload type mismatch"}
	// CompletionQueueShutdown indicates the queue bound to the call is shut down.
	CompletionQueueShutdown = CallCode{Numeric: 15, Symbol: "GRPC_CALL_ERROR_COMPLETION_QUEUE_SHUTDOWN", Message: "completion queue shutdown"}
)

// Registry exposes a static list ordered by numeric value.
var Registry = []CallCode{
	OK,
	Error,
	NotOnServer,
	NotOnClient,
	AlreadyAccepted,
	AlreadyInvoked,
	NotInvoked,
	AlreadyFinished,
	TooManyOperations,
	InvalidFlags,
	InvalidMetadata,
	InvalidMessage,
	NotServerCompletionQueue,
	BatchTooBig,
	PayloadTypeMismatch,
	CompletionQueueShutdown,
}

// Lookup returns the registered code for n. Unregistered values yield a code
// whose symbol still carries n.
func Lookup(n int32) CallCode {
	if n >= 0 && int(n) < len(Registry) {
		return Registry[n]
	}
	return CallCode{Numeric: n}
}

// String returns the engine symbol of c.
func (c CallCode) String() string {
	if c.Symbol == "" {
		return fmt.Sprintf("GRPC_CALL_ERROR_UNKNOWN(%d)", c.Numeric)
	}
	return c.Symbol
}

// IsOK reports whether c signals a successful submission.
func (c CallCode) IsOK() bool { return c.Numeric == OK.Numeric }
