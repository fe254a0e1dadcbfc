// Package reports renders dashboard report exports asynchronously. A worker
// drains an export queue, materializes the requested report from an analytics
// snapshot, and hands the payload to an object store.
package reports

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"growvertising/internal/analytics"
	"growvertising/internal/blob"
)

// ReportType selects one of the dashboard report tables.
type ReportType string

const (
	ReportCampaignSummary    ReportType = "campaign_summary"
	ReportEngagementAnalysis ReportType = "engagement_analysis"
	ReportImpactEstimate     ReportType = "impact_estimate"
)

// Format selects an output encoding.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ExportStatus describes the lifecycle stage of an export request.
type ExportStatus string

const (
	ExportStatusQueued    ExportStatus = "queued"
	ExportStatusRunning   ExportStatus = "running"
	ExportStatusSucceeded ExportStatus = "succeeded"
	ExportStatusFailed    ExportStatus = "failed"
)

// ExportArtifact captures a stored report artifact.
type ExportArtifact struct {
	ID          string    `json:"id"`
	Format      Format    `json:"format"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	URL         string    `json:"url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExportRecord tracks an export request and resulting artifacts.
type ExportRecord struct {
	ID          string           `json:"id"`
	Type        ReportType       `json:"type"`
	Formats     []Format         `json:"formats"`
	Status      ExportStatus     `json:"status"`
	Error       string           `json:"error,omitempty"`
	Artifacts   []ExportArtifact `json:"artifacts,omitempty"`
	RequestedBy string           `json:"requested_by"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// ExportInput represents an enqueue request for the worker.
type ExportInput struct {
	Type        ReportType
	Formats     []Format
	RequestedBy string
}

// Snapshotter supplies the analytics snapshot a report is rendered from.
// *analytics.Aggregator satisfies it; tests inject a deterministic stub.
type Snapshotter interface {
	Snapshot(ctx context.Context) (analytics.Snapshot, error)
}

// AuditLogger records export audit entries.
type AuditLogger interface {
	Record(ctx context.Context, entry AuditEntry)
}

// AuditEntry captures audit trail metadata for report exports.
type AuditEntry struct {
	ID         string       `json:"id"`
	Action     string       `json:"action"`
	Actor      string       `json:"actor"`
	Report     ReportType   `json:"report"`
	Status     ExportStatus `json:"status"`
	Note       string       `json:"note,omitempty"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// Worker executes report exports asynchronously.
type Worker struct {
	source Snapshotter
	store  blob.Store
	audit  AuditLogger

	queue chan exportTask
	mu    sync.RWMutex
	jobs  map[string]*ExportRecord

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type exportTask struct {
	id    string
	input ExportInput
}

// NewWorker constructs an export worker over the given snapshot source and
// artifact store. audit may be nil.
func NewWorker(source Snapshotter, store blob.Store, audit AuditLogger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		source: source,
		store:  store,
		audit:  audit,
		queue:  make(chan exportTask, 32),
		jobs:   make(map[string]*ExportRecord),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing export requests.
func (w *Worker) Start() {
	w.wg.Add(1)
	go w.loop()
}

// Stop signals the worker to halt and waits for completion.
func (w *Worker) Stop(ctx context.Context) error {
	w.cancel()
	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			return
		case task := <-w.queue:
			w.process(task)
		}
	}
}

var validReportTypes = map[ReportType]struct{}{
	ReportCampaignSummary:    {},
	ReportEngagementAnalysis: {},
	ReportImpactEstimate:     {},
}

// EnqueueExport schedules an export job and returns the queued record.
func (w *Worker) EnqueueExport(ctx context.Context, input ExportInput) (ExportRecord, error) {
	if w.source == nil {
		return ExportRecord{}, fmt.Errorf("report source not configured")
	}
	if _, ok := validReportTypes[input.Type]; !ok {
		return ExportRecord{}, fmt.Errorf("unknown report type %s", input.Type)
	}

	formats := input.Formats
	if len(formats) == 0 {
		formats = []Format{FormatCSV}
	}
	uniq := make([]Format, 0, len(formats))
	seen := make(map[Format]struct{})
	for _, format := range formats {
		if _, duplicate := seen[format]; duplicate {
			continue
		}
		if format != FormatCSV && format != FormatPDF {
			return ExportRecord{}, fmt.Errorf("unsupported report format %s", format)
		}
		uniq = append(uniq, format)
		seen[format] = struct{}{}
	}

	id := newID()
	now := time.Now().UTC()
	record := ExportRecord{
		ID:          id,
		Type:        input.Type,
		Formats:     uniq,
		Status:      ExportStatusQueued,
		RequestedBy: input.RequestedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	w.mu.Lock()
	w.jobs[id] = &record
	queuedSnapshot := record.copy()
	w.mu.Unlock()

	w.recordAudit(ctx, id, ExportStatusQueued, "")

	select {
	case w.queue <- exportTask{id: id, input: input}:
	default:
		w.mu.Lock()
		delete(w.jobs, id)
		w.mu.Unlock()
		return ExportRecord{}, fmt.Errorf("export queue full")
	}

	return queuedSnapshot, nil
}

// GetExport returns a snapshot of the export record.
func (w *Worker) GetExport(id string) (ExportRecord, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	record, ok := w.jobs[id]
	if !ok {
		return ExportRecord{}, false
	}
	return record.copy(), true
}

func (w *Worker) process(task exportTask) {
	w.updateStatus(task.id, ExportStatusRunning, "")

	snapshot, err := w.source.Snapshot(w.ctx)
	if err != nil {
		w.fail(task.id, fmt.Sprintf("snapshot failed: %v", err))
		return
	}

	table := buildTable(task.input.Type, snapshot)
	record := w.snapshot(task.id)
	if record == nil {
		return
	}

	artifacts := make([]ExportArtifact, 0, len(record.Formats))
	for _, format := range record.Formats {
		artifact, payload, err := materialize(task.input.Type, format, table)
		if err != nil {
			w.fail(task.id, err.Error())
			return
		}
		if w.store != nil {
			// Objects are keyed by the unique artifact id so re-exports never
			// collide with an earlier same-day artifact; the user-facing
			// filename travels in the record and object metadata.
			info, err := w.store.Put(w.ctx, artifact.ID, bytes.NewReader(payload), blob.PutOptions{
				ContentType: artifact.ContentType,
				Metadata: map[string]string{
					"report":   string(task.input.Type),
					"filename": artifact.Filename,
				},
			})
			if err != nil {
				w.fail(task.id, fmt.Sprintf("store artifact failed: %v", err))
				return
			}
			artifact.URL = info.URL
			if info.Size > 0 {
				artifact.SizeBytes = info.Size
			}
		}
		artifacts = append(artifacts, artifact)
	}

	w.complete(task.id, artifacts)
}

// reportTable is an ordered tabular rendering of one report.
type reportTable struct {
	columns []string
	rows    [][]string
}

func buildTable(reportType ReportType, snapshot analytics.Snapshot) reportTable {
	switch reportType {
	case ReportCampaignSummary:
		table := reportTable{columns: []string{"Campaign", "Sponsor", "Investment", "Engagement", "Growth", "Value", "ROI"}}
		for _, c := range snapshot.Campaigns {
			table.rows = append(table.rows, []string{
				c.Campaign,
				c.Sponsor,
				formatFloat(c.Investment),
				formatFloat(c.EngagementSum),
				formatFloat(c.LastGrowth),
				formatFloat(c.Value),
				formatFloat(c.ROI),
			})
		}
		return table
	case ReportEngagementAnalysis:
		t := snapshot.Totals
		return reportTable{
			columns: []string{"Metric", "Value"},
			rows: [][]string{
				{"Photos", strconv.Itoa(t.Uploads)},
				{"Comments", strconv.Itoa(t.Comments)},
				{"Likes (Photos)", strconv.Itoa(t.UploadLikes)},
				{"Likes (Comments)", strconv.Itoa(t.CommentLikes)},
				{"Kit Claims", strconv.Itoa(t.SeedKits)},
			},
		}
	case ReportImpactEstimate:
		t := snapshot.Totals
		return reportTable{
			columns: []string{"Metric", "Value"},
			rows: [][]string{
				{"Plants", strconv.Itoa(t.PlantsGrown)},
				{"CO2 (kg)", strconv.Itoa(t.CO2OffsetKG)},
				{"Kits", strconv.Itoa(t.SeedKits)},
			},
		}
	}
	return reportTable{}
}

func materialize(reportType ReportType, format Format, table reportTable) (ExportArtifact, []byte, error) {
	now := time.Now().UTC()
	filename := fmt.Sprintf("%s_report_%s.%s", reportType, now.Format("20060102"), format)
	switch format {
	case FormatCSV:
		buf := &bytes.Buffer{}
		writer := csv.NewWriter(buf)
		if err := writer.Write(table.columns); err != nil {
			return ExportArtifact{}, nil, err
		}
		for _, row := range table.rows {
			if err := writer.Write(row); err != nil {
				return ExportArtifact{}, nil, err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return ExportArtifact{}, nil, err
		}
		payload := buf.Bytes()
		return ExportArtifact{
			ID:          newID(),
			Format:      FormatCSV,
			Filename:    filename,
			ContentType: "text/csv",
			SizeBytes:   int64(len(payload)),
			CreatedAt:   now,
		}, payload, nil
	case FormatPDF:
		payload := buildPDF(reportType, table)
		return ExportArtifact{
			ID:          newID(),
			Format:      FormatPDF,
			Filename:    filename,
			ContentType: "application/pdf",
			SizeBytes:   int64(len(payload)),
			CreatedAt:   now,
		}, payload, nil
	default:
		return ExportArtifact{}, nil, fmt.Errorf("unsupported report format %s", format)
	}
}

// buildPDF emits a minimal single-page placeholder document.
// TODO: replace with a real PDF writer once dashboards need styled exports.
func buildPDF(reportType ReportType, table reportTable) []byte {
	buf := &strings.Builder{}
	buf.WriteString("%PDF-1.4\n% ")
	buf.WriteString(string(reportType))
	buf.WriteString(" report\n% ")
	buf.WriteString(strings.Join(table.columns, " | "))
	buf.WriteString("\n")
	for _, row := range table.rows {
		buf.WriteString("% ")
		buf.WriteString(strings.Join(row, " | "))
		buf.WriteString("\n")
	}
	buf.WriteString("%%EOF\n")
	return []byte(buf.String())
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func (w *Worker) snapshot(id string) *ExportRecord {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.jobs[id]
}

func (w *Worker) updateStatus(id string, status ExportStatus, message string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = status
		record.Error = message
		record.UpdatedAt = now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, status, message)
}

func (w *Worker) complete(id string, artifacts []ExportArtifact) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusSucceeded
		record.Error = ""
		record.Artifacts = artifacts
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, ExportStatusSucceeded, "")
}

func (w *Worker) fail(id, reason string) {
	now := time.Now().UTC()
	w.mu.Lock()
	if record, ok := w.jobs[id]; ok {
		record.Status = ExportStatusFailed
		record.Error = reason
		record.UpdatedAt = now
		record.CompletedAt = &now
	}
	w.mu.Unlock()
	w.recordAudit(w.ctx, id, ExportStatusFailed, reason)
}

func (w *Worker) recordAudit(ctx context.Context, id string, status ExportStatus, note string) {
	if w.audit == nil {
		return
	}
	var actor string
	var report ReportType
	w.mu.RLock()
	if record, ok := w.jobs[id]; ok {
		actor = record.RequestedBy
		report = record.Type
	}
	w.mu.RUnlock()
	w.audit.Record(ctx, AuditEntry{
		ID:         newID(),
		Action:     "report_export",
		Actor:      actor,
		Report:     report,
		Status:     status,
		Note:       note,
		OccurredAt: time.Now().UTC(),
	})
}

func (r ExportRecord) copy() ExportRecord {
	dup := r
	dup.Formats = append([]Format(nil), r.Formats...)
	if len(r.Artifacts) > 0 {
		dup.Artifacts = append([]ExportArtifact(nil), r.Artifacts...)
	}
	return dup
}

func newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return fmt.Sprintf("%x", b[:])
}

// MemoryAuditLog captures audit entries in memory for assertions.
type MemoryAuditLog struct {
	mu      sync.Mutex
	entries []AuditEntry
}

// Record stores an audit entry.
func (l *MemoryAuditLog) Record(_ context.Context, entry AuditEntry) {
	l.mu.Lock()
	l.entries = append(l.entries, entry)
	l.mu.Unlock()
}

// Entries returns a defensive copy of recorded audit entries.
func (l *MemoryAuditLog) Entries() []AuditEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]AuditEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
