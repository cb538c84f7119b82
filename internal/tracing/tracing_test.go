package tracing

import (
	"context"
	"io/ioutil"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/api/global"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/corehttp/txcore/internal/transact"
)

func installRecorder(t *testing.T) *recorderExporter {
	t.Helper()
	exporter, err := newRecorder(func(err error) { t.Fatal(err) })
	if err != nil {
		t.Fatal(err)
	}
	tp, err := sdktrace.NewProvider(
		sdktrace.WithConfig(sdktrace.Config{DefaultSampler: sdktrace.AlwaysSample()}),
		sdktrace.WithSyncer(exporter))
	if err != nil {
		t.Fatal(err)
	}
	global.SetTraceProvider(tp)
	return exporter
}

func TestNewChildSpanRecords(t *testing.T) {
	exporter := installRecorder(t)

	_, span := NewChildSpan(context.Background(), "test-span")
	span.End()

	if len(exporter.spans) != 1 {
		t.Fatalf("spans recorded = %d, want 1", len(exporter.spans))
	}
	if exporter.spans[0].Name != "test-span" {
		t.Errorf("span name = %q, want %q", exporter.spans[0].Name, "test-span")
	}
	out, err := ioutil.ReadAll(exporter)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) == 0 {
		t.Error("exporter buffer empty, want JSON span output")
	}
}

func TestPrepareRequestAttachesSpanContext(t *testing.T) {
	installRecorder(t)

	r := httptest.NewRequest("GET", "http://ex.test/", nil)
	r2, span := PrepareRequest(r, "Request")
	defer span.End()

	if r2.Context() == r.Context() {
		t.Error("request context unchanged; span context not attached")
	}
}

func TestStartSuspensionSpanOnlyForSuspensionPoints(t *testing.T) {
	exporter := installRecorder(t)

	_, span := StartSuspensionSpan(context.Background(), transact.ActionHandleRequest)
	if span != nil {
		t.Fatal("non-suspension action must not start a span")
	}
	EndSpan(span) // must be nil-safe

	_, span = StartSuspensionSpan(context.Background(), transact.ActionCacheLookup)
	if span == nil {
		t.Fatal("suspension action must start a span")
	}
	EndSpan(span)

	if len(exporter.spans) != 1 {
		t.Errorf("spans recorded = %d, want 1", len(exporter.spans))
	}
	if exporter.spans[0].Name != transact.ActionCacheLookup.String() {
		t.Errorf("span name = %q, want %q", exporter.spans[0].Name, transact.ActionCacheLookup.String())
	}
}

func TestSetTracerStdout(t *testing.T) {
	flush, err := SetTracer(StdoutTracerImplementation, "", 1)
	if err != nil {
		t.Fatalf("SetTracer: %v", err)
	}
	if flush == nil {
		t.Fatal("flush func is nil")
	}
	flush()
}
