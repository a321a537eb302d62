package observability

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// FinishSpan closes a span, marking it failed when the pointed-to error is
// non-nil at return time. Intended for deferred use against a named error
// return, so every traced operation records its outcome exactly once:
//
//	defer observability.FinishSpan(span, &err)
func FinishSpan(span trace.Span, errPtr *error) {
	if span == nil {
		return
	}
	if errPtr != nil && *errPtr != nil {
		span.RecordError(*errPtr, trace.WithStackTrace(true))
		span.SetStatus(codes.Error, (*errPtr).Error())
	}
	span.End()
}
