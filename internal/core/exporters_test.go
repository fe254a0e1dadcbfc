package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	if rec.Name() == "" {
		t.Fatalf("expected generated export name")
	}
	ctx := context.Background()

	rec.Observe(ctx, "harvest", true, 20*time.Millisecond)
	rec.Observe(ctx, "harvest", true, 30*time.Millisecond)
	rec.Observe(ctx, "harvest", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	snap := rec.Snapshot()
	if got := snap.DurationsMS["harvest"]; got != 55 {
		t.Fatalf("expected 55ms total, got %v", got)
	}
	if got := snap.Results["harvest"]["success"]; got != 2 {
		t.Fatalf("expected 2 successes, got %d", got)
	}
	if got := snap.Results["harvest"]["error"]; got != 1 {
		t.Fatalf("expected 1 error, got %d", got)
	}
	if len(snap.DurationsMS) != 1 {
		t.Fatalf("blank operation should be ignored, got %v", snap.DurationsMS)
	}
}

func TestJSONTracerWritesAndRetainsSpans(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	ctx := context.Background()

	_, span := tracer.Start(ctx, "submit_upload")
	span.End(nil)
	_, span = tracer.Start(ctx, "like_upload")
	span.End(errors.New("boom"))

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(entries))
	}
	if entries[0].Operation != "submit_upload" || entries[0].Status != "success" {
		t.Fatalf("unexpected first span %+v", entries[0])
	}
	if entries[1].Status != "error" || entries[1].Error != "boom" {
		t.Fatalf("unexpected second span %+v", entries[1])
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 JSON lines, got %d", len(lines))
	}
	var decoded JSONTraceEntry
	if err := json.Unmarshal([]byte(lines[1]), &decoded); err != nil {
		t.Fatalf("decode trace line: %v", err)
	}
	if decoded.Operation != "like_upload" {
		t.Fatalf("unexpected decoded span %+v", decoded)
	}
}

func TestJSONTracerWithoutWriter(t *testing.T) {
	tracer := NewJSONTracer(nil)
	_, span := tracer.Start(context.Background(), "harvest")
	span.End(nil)
	if got := tracer.Entries(); len(got) != 1 {
		t.Fatalf("expected retained span, got %d", len(got))
	}
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	rec := NewPrometheusMetricsRecorder("")
	ctx := context.Background()

	rec.Observe(ctx, "start_growing", true, 10*time.Millisecond)
	rec.Observe(ctx, "start_growing", false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Second)

	if got := testutil.ToFloat64(rec.results.WithLabelValues("start_growing", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(rec.results.WithLabelValues("start_growing", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if n, err := testutil.GatherAndCount(rec.Registry(), "growvertising_service_operation_results_total"); err != nil || n != 2 {
		t.Fatalf("expected 2 exported series, got %d (%v)", n, err)
	}
}
