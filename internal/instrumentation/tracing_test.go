package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return rec
}

func TestStartGoogleAPISpan(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartGoogleAPISpan(context.Background(), ServiceGmail, OperationList)
	SetSpanError(span, errors.New("boom"))
	span.End()

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != "google.gmail.list" {
		t.Errorf("Name() = %q", s.Name())
	}
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	found := false
	for _, a := range s.Attributes() {
		if string(a.Key) == SpanAttrService && a.Value.AsString() == ServiceGmail {
			found = true
		}
	}
	if !found {
		t.Errorf("missing %s attribute: %v", SpanAttrService, s.Attributes())
	}
}

func TestStartToolSpan(t *testing.T) {
	rec := withRecorder(t)

	_, span := StartToolSpan(context.Background(), "inbox_list_messages")
	SetSpanSuccess(span)
	span.End()

	s := rec.Ended()[0]
	if s.Name() != "tool.inbox_list_messages" {
		t.Errorf("Name() = %q", s.Name())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	rec := withRecorder(t)
	_, span := StartSpan(context.Background(), "x")
	SetSpanError(span, nil)
	span.End()
	if got := rec.Ended()[0].Status().Code; got != codes.Unset {
		t.Errorf("status = %v, want Unset", got)
	}
}

func TestStatusOf(t *testing.T) {
	if StatusOf(nil) != StatusSuccess {
		t.Error("StatusOf(nil) != success")
	}
	if StatusOf(errors.New("x")) != StatusError {
		t.Error("StatusOf(err) != error")
	}
}
