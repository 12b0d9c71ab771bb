package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/trace"

	log "github.com/Goden-Gun/grpcbind/pkg/logger"
	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
)

// Publisher is the part of Manager the reporter needs.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// ErrorEvent is the JSON document published for every reported failure.
type ErrorEvent struct {
	Kind        string    `json:"kind"`
	Description string    `json:"description"`
	Message     string    `json:"message"`
	Method      string    `json:"method,omitempty"`
	Code        string    `json:"code,omitempty"`
	Details     string    `json:"details,omitempty"`
	CallCode    string    `json:"call_code,omitempty"`
	Service     string    `json:"service,omitempty"`
	NodeID      string    `json:"node_id,omitempty"`
	TraceID     string    `json:"trace_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// ReporterOptions identify the reporting process in each event.
type ReporterOptions struct {
	Topic   string
	Service string
	NodeID  string
}

// Reporter publishes taxonomy errors to Kafka, keyed by kind so that events
// of one kind stay ordered within a partition.
type Reporter struct {
	pub  Publisher
	opts ReporterOptions
	now  func() time.Time
}

func NewReporter(pub Publisher, opts ReporterOptions) *Reporter {
	return &Reporter{pub: pub, opts: opts, now: time.Now}
}

// NewEvent describes err as reported by method.
func (r *Reporter) NewEvent(ctx context.Context, method string, err *rpcerr.Error) ErrorEvent {
	ev := ErrorEvent{
		Kind:        err.Kind().String(),
		Description: err.Description(),
		Message:     err.Error(),
		Method:      method,
		Service:     r.opts.Service,
		NodeID:      r.opts.NodeID,
		OccurredAt:  r.now().UTC(),
	}
	if st, ok := err.Status(); ok {
		ev.Code = st.Code().String()
		ev.Details, _ = st.Details()
	}
	if err.Kind() == rpcerr.KindCallFailure {
		ev.CallCode = err.CallCode().String()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ev.TraceID = sc.TraceID().String()
	}
	return ev
}

// Report publishes err synchronously.
func (r *Reporter) Report(ctx context.Context, method string, err *rpcerr.Error) error {
	if err == nil {
		return nil
	}
	body, mErr := json.Marshal(r.NewEvent(ctx, method, err))
	if mErr != nil {
		return fmt.Errorf("marshal error event: %w", mErr)
	}
	return r.pub.Publish(ctx, r.opts.Topic, []byte(err.Kind().String()), body)
}

// ObserveError reports err and logs publish failures, so it can be installed
// as a server error observer.
func (r *Reporter) ObserveError(ctx context.Context, method string, err *rpcerr.Error) {
	if pErr := r.Report(context.WithoutCancel(ctx), method, err); pErr != nil {
		log.WithTrace(ctx).WithError(pErr).WithField("method", method).Warn("report rpc error to kafka failed")
	}
}
