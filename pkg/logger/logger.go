// Package logger is the logrus facade shared by every grpcbind package.
//
// Import it as `log`; the backend is configured once through pkg/bootstrap.
package logger

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"github.com/Goden-Gun/grpcbind/pkg/rpcerr"
)

type Fields = log.Fields
type Entry = log.Entry
type Logger = log.Logger
type Level = log.Level

const (
	FieldErrorKind     = "error_kind"
	FieldErrorCategory = "error_category"
	FieldTraceID       = "trace_id"
)

func StandardLogger() *Logger { return log.StandardLogger() }

func WithField(key string, value any) *Entry { return log.WithField(key, value) }
func WithFields(fields Fields) *Entry        { return log.WithFields(fields) }
func WithContext(ctx context.Context) *Entry { return log.WithContext(ctx) }

// WithError attaches err and, when err is a taxonomy error, its kind and
// category.
func WithError(err error) *Entry {
	return RPCErrorFields(log.WithError(err), err)
}

// WithTrace binds ctx and adds "trace_id" when OpenTelemetry span context is present.
func WithTrace(ctx context.Context) *Entry {
	e := log.WithContext(ctx)
	if ctx == nil {
		return e
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		e = e.WithField(FieldTraceID, sc.TraceID().String())
	}
	return e
}

// RPCErrorFields decorates e with the kind and category of the first
// *rpcerr.Error in err's chain. Other errors leave e unchanged.
func RPCErrorFields(e *Entry, err error) *Entry {
	var re *rpcerr.Error
	if err == nil || !errors.As(err, &re) {
		return e
	}
	return e.WithFields(Fields{
		FieldErrorKind:     re.Kind().String(),
		FieldErrorCategory: re.Description(),
	})
}

func Debug(args ...any) { log.Debug(args...) }
func Info(args ...any)  { log.Info(args...) }
func Warn(args ...any)  { log.Warn(args...) }
func Error(args ...any) { log.Error(args...) }

func Debugf(format string, args ...any) { log.Debugf(format, args...) }
func Infof(format string, args ...any)  { log.Infof(format, args...) }
func Warnf(format string, args ...any)  { log.Warnf(format, args...) }
func Errorf(format string, args ...any) { log.Errorf(format, args...) }
