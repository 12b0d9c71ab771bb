package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	otelcodes "go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/metadata"

	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
)

func newRecorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	rec := tracetest.NewSpanRecorder()
	return rec, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
}

func TestRecordError_TaxonomyAttributes(t *testing.T) {
	t.Parallel()

	rec, tp := newRecorder()
	_, span := tp.Tracer("test").Start(context.Background(), "call")
	RecordError(span, rpcerr.QueueShutdown())
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, otelcodes.Error, spans[0].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "QueueShutdown", attrs[string(AttrErrorKind)])
	assert.Equal(t, "completion queue shutdown", attrs[string(AttrErrorCategory)])
	assert.Equal(t, "14", attrs[string(AttrGRPCCode)])
}

func TestRecordError_PlainAndNil(t *testing.T) {
	t.Parallel()

	rec, tp := newRecorder()
	_, span := tp.Tracer("test").Start(context.Background(), "call")
	RecordError(span, nil)
	RecordError(span, errors.New("boom"))
	span.End()

	s := rec.Ended()[0]
	assert.Equal(t, otelcodes.Error, s.Status().Code)
	for _, kv := range s.Attributes() {
		assert.NotEqual(t, AttrErrorKind, kv.Key)
	}
}

func TestInjectExtractRoundTrip(t *testing.T) {
	t.Parallel()

	_, tp := newRecorder()
	ctx, span := tp.Tracer("test").Start(context.Background(), "client")
	defer span.End()

	md := InjectMetadata(ctx, nil)
	require.NotEmpty(t, md.Get("traceparent"))
	assert.Equal(t, []string{span.SpanContext().TraceID().String()}, md.Get(traceMetadataKey))

	out := ExtractMetadata(context.Background(), md)
	assert.Equal(t, span.SpanContext().TraceID(), trace.SpanContextFromContext(out).TraceID())
	assert.Equal(t, context.Background(), ExtractMetadata(context.Background(), metadata.MD(nil)))
}
