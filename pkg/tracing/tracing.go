package tracing

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/metadata"

	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
)

const (
	traceMetadataKey = "x-trace-id"

	AttrErrorKind     = attribute.Key("rpc.error.kind")
	AttrErrorCategory = attribute.Key("rpc.error.category")
	AttrGRPCCode      = attribute.Key("rpc.grpc.status_code")
)

var propagator = propagation.TraceContext{}

// mdCarrier adapts gRPC metadata to propagation.TextMapCarrier, keeping keys
// lower-case as gRPC requires.
type mdCarrier metadata.MD

func (c mdCarrier) Get(key string) string {
	if v := metadata.MD(c).Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c mdCarrier) Set(key, value string) { metadata.MD(c).Set(key, value) }

func (c mdCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

// InjectMetadata injects tracing context into gRPC metadata.
func InjectMetadata(ctx context.Context, md metadata.MD) metadata.MD {
	if md == nil {
		md = metadata.New(nil)
	}
	propagator.Inject(ctx, mdCarrier(md))
	if span := trace.SpanFromContext(ctx); span.SpanContext().HasTraceID() {
		md.Set(traceMetadataKey, span.SpanContext().TraceID().String())
	}
	return md
}

// ExtractMetadata extracts tracing context from metadata.
func ExtractMetadata(ctx context.Context, md metadata.MD) context.Context {
	if md == nil {
		return ctx
	}
	ctx = propagator.Extract(ctx, mdCarrier(md))
	if traceIDs := md.Get(traceMetadataKey); len(traceIDs) > 0 {
		span := trace.SpanFromContext(ctx)
		span.SetAttributes(attribute.String(traceMetadataKey, traceIDs[0]))
	}
	return ctx
}

// RecordError marks span as failed. Taxonomy errors additionally set the kind,
// category and resulting gRPC code attributes.
func RecordError(span trace.Span, err error) {
	if err == nil || span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(otelcodes.Error, err.Error())

	var re *rpcerr.Error
	if !errors.As(err, &re) {
		return
	}
	span.SetAttributes(
		AttrErrorKind.String(re.Kind().String()),
		AttrErrorCategory.String(re.Description()),
		AttrGRPCCode.Int(int(re.GRPCStatus().Code())),
	)
}

// Tracer returns named tracer for grpcbind components.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
