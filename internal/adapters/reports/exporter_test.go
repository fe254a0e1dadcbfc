package reports

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"growvertising/internal/analytics"
	"growvertising/internal/blob"
)

type stubSnapshotter struct {
	snapshot analytics.Snapshot
	err      error
}

func (s stubSnapshotter) Snapshot(context.Context) (analytics.Snapshot, error) {
	return s.snapshot, s.err
}

func fixtureSnapshot() analytics.Snapshot {
	return analytics.Snapshot{
		GeneratedAt: time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC),
		SeriesDays:  3,
		Totals: analytics.EngagementTotals{
			Uploads:      4,
			Comments:     6,
			UploadLikes:  11,
			CommentLikes: 9,
			PlantsGrown:  1200,
			SeedKits:     800,
			CO2OffsetKG:  400,
		},
		Campaigns: []analytics.CampaignMetrics{{
			Campaign:      "Greens",
			Sponsor:       "EcoEats",
			Investment:    100,
			EngagementSum: 60,
			LastGrowth:    5,
			Value:         80,
			ROI:           -0.2,
		}},
	}
}

func startWorker(t *testing.T, source Snapshotter, store blob.Store, audit AuditLogger) *Worker {
	t.Helper()
	worker := NewWorker(source, store, audit)
	worker.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := worker.Stop(ctx); err != nil {
			t.Errorf("stop worker: %v", err)
		}
	})
	return worker
}

func waitForTerminal(t *testing.T, worker *Worker, id string) ExportRecord {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		record, ok := worker.GetExport(id)
		if !ok {
			t.Fatalf("export %s disappeared", id)
		}
		if record.Status == ExportStatusSucceeded || record.Status == ExportStatusFailed {
			return record
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("export %s never reached a terminal state", id)
	return ExportRecord{}
}

func TestExportCampaignSummaryCSV(t *testing.T) {
	store := blob.NewMemory()
	audit := &MemoryAuditLog{}
	worker := startWorker(t, stubSnapshotter{snapshot: fixtureSnapshot()}, store, audit)

	record, err := worker.EnqueueExport(context.Background(), ExportInput{
		Type:        ReportCampaignSummary,
		RequestedBy: "sponsor-1",
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if record.Status != ExportStatusQueued {
		t.Fatalf("expected queued record, got %s", record.Status)
	}
	if len(record.Formats) != 1 || record.Formats[0] != FormatCSV {
		t.Fatalf("expected default csv format, got %v", record.Formats)
	}

	done := waitForTerminal(t, worker, record.ID)
	if done.Status != ExportStatusSucceeded {
		t.Fatalf("export failed: %s", done.Error)
	}
	if len(done.Artifacts) != 1 {
		t.Fatalf("expected one artifact, got %d", len(done.Artifacts))
	}
	artifact := done.Artifacts[0]
	if !strings.HasPrefix(artifact.Filename, "campaign_summary_report_") || !strings.HasSuffix(artifact.Filename, ".csv") {
		t.Fatalf("unexpected filename %q", artifact.Filename)
	}

	stored, rc, err := store.Get(context.Background(), artifact.ID)
	if err != nil {
		t.Fatalf("get artifact: %v", err)
	}
	defer rc.Close()
	if stored.Metadata["filename"] != artifact.Filename {
		t.Fatalf("filename metadata lost: %+v", stored.Metadata)
	}
	payload, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != "Campaign,Sponsor,Investment,Engagement,Growth,Value,ROI" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != "Greens,EcoEats,100.00,60.00,5.00,80.00,-0.20" {
		t.Fatalf("unexpected row %q", lines[1])
	}

	statuses := map[ExportStatus]bool{}
	for _, entry := range audit.Entries() {
		if entry.Action != "report_export" || entry.Actor != "sponsor-1" {
			t.Fatalf("unexpected audit entry %+v", entry)
		}
		statuses[entry.Status] = true
	}
	if !statuses[ExportStatusQueued] || !statuses[ExportStatusSucceeded] {
		t.Fatalf("missing lifecycle audit entries: %v", statuses)
	}
}

func TestExportBothFormats(t *testing.T) {
	store := blob.NewMemory()
	worker := startWorker(t, stubSnapshotter{snapshot: fixtureSnapshot()}, store, nil)

	record, err := worker.EnqueueExport(context.Background(), ExportInput{
		Type:    ReportImpactEstimate,
		Formats: []Format{FormatCSV, FormatPDF, FormatCSV},
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if len(record.Formats) != 2 {
		t.Fatalf("expected duplicate formats collapsed, got %v", record.Formats)
	}

	done := waitForTerminal(t, worker, record.ID)
	if done.Status != ExportStatusSucceeded {
		t.Fatalf("export failed: %s", done.Error)
	}
	if len(done.Artifacts) != 2 {
		t.Fatalf("expected two artifacts, got %d", len(done.Artifacts))
	}

	var pdf ExportArtifact
	for _, a := range done.Artifacts {
		if a.Format == FormatPDF {
			pdf = a
		}
	}
	if pdf.ContentType != "application/pdf" {
		t.Fatalf("missing pdf artifact: %+v", done.Artifacts)
	}
	_, rc, err := store.Get(context.Background(), pdf.ID)
	if err != nil {
		t.Fatalf("get pdf: %v", err)
	}
	defer rc.Close()
	payload, _ := io.ReadAll(rc)
	if !bytes.HasPrefix(payload, []byte("%PDF-1.4")) {
		t.Fatalf("pdf payload missing header: %q", payload[:min(len(payload), 16)])
	}
}

func TestReExportSameDaySucceeds(t *testing.T) {
	store := blob.NewMemory()
	worker := startWorker(t, stubSnapshotter{snapshot: fixtureSnapshot()}, store, nil)
	ctx := context.Background()

	var artifacts []ExportArtifact
	for i := 0; i < 2; i++ {
		record, err := worker.EnqueueExport(ctx, ExportInput{Type: ReportImpactEstimate})
		if err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
		done := waitForTerminal(t, worker, record.ID)
		if done.Status != ExportStatusSucceeded {
			t.Fatalf("export %d failed: %s", i, done.Error)
		}
		artifacts = append(artifacts, done.Artifacts...)
	}

	if len(artifacts) != 2 {
		t.Fatalf("expected two artifacts, got %d", len(artifacts))
	}
	if artifacts[0].Filename != artifacts[1].Filename {
		t.Fatalf("same-day artifacts should share a filename: %q vs %q", artifacts[0].Filename, artifacts[1].Filename)
	}
	for _, a := range artifacts {
		if _, err := store.Head(ctx, a.ID); err != nil {
			t.Fatalf("artifact %s not stored: %v", a.ID, err)
		}
	}
}

func TestEnqueueQueueFullDropsRecord(t *testing.T) {
	// No Start: the queue fills up because nothing drains it.
	worker := NewWorker(stubSnapshotter{snapshot: fixtureSnapshot()}, blob.NewMemory(), nil)
	ctx := context.Background()

	accepted := 0
	for {
		_, err := worker.EnqueueExport(ctx, ExportInput{Type: ReportCampaignSummary})
		if err != nil {
			if !strings.Contains(err.Error(), "queue full") {
				t.Fatalf("unexpected enqueue error: %v", err)
			}
			break
		}
		accepted++
		if accepted > cap(worker.queue)+1 {
			t.Fatalf("queue never filled after %d enqueues", accepted)
		}
	}

	worker.mu.RLock()
	tracked := len(worker.jobs)
	worker.mu.RUnlock()
	if tracked != accepted {
		t.Fatalf("rejected enqueue left a stuck record: %d jobs for %d accepted", tracked, accepted)
	}
}

func TestEnqueueRejectsBadInput(t *testing.T) {
	worker := NewWorker(stubSnapshotter{snapshot: fixtureSnapshot()}, blob.NewMemory(), nil)

	if _, err := worker.EnqueueExport(context.Background(), ExportInput{Type: "weekly_digest"}); err == nil {
		t.Fatalf("expected error for unknown report type")
	}
	if _, err := worker.EnqueueExport(context.Background(), ExportInput{
		Type:    ReportCampaignSummary,
		Formats: []Format{"docx"},
	}); err == nil {
		t.Fatalf("expected error for unsupported format")
	}
}

func TestExportFailsWhenSnapshotFails(t *testing.T) {
	audit := &MemoryAuditLog{}
	worker := startWorker(t, stubSnapshotter{err: errors.New("store offline")}, blob.NewMemory(), audit)

	record, err := worker.EnqueueExport(context.Background(), ExportInput{Type: ReportEngagementAnalysis})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	done := waitForTerminal(t, worker, record.ID)
	if done.Status != ExportStatusFailed {
		t.Fatalf("expected failed export, got %s", done.Status)
	}
	if !strings.Contains(done.Error, "store offline") {
		t.Fatalf("expected snapshot failure reason, got %q", done.Error)
	}
	if done.CompletedAt == nil {
		t.Fatalf("expected completion timestamp on failure")
	}

	var failed bool
	for _, entry := range audit.Entries() {
		if entry.Status == ExportStatusFailed && strings.Contains(entry.Note, "store offline") {
			failed = true
		}
	}
	if !failed {
		t.Fatalf("missing failure audit entry")
	}
}

func TestGetExportUnknownID(t *testing.T) {
	worker := NewWorker(stubSnapshotter{}, blob.NewMemory(), nil)
	if _, ok := worker.GetExport("nope"); ok {
		t.Fatalf("expected lookup miss")
	}
}
