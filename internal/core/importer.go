package core

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/edrees2022/log-and-ledger-sub006/internal/core")

// Creator is the persistence collaborator for one import target.
// It returns the new record's ID, or an error whose message is reported
// against the row.
type Creator interface {
	Create(ctx context.Context, target string, row CanonicalRow) (string, error)
}

// CreatorFunc adapts a function to the Creator interface.
type CreatorFunc func(ctx context.Context, target string, row CanonicalRow) (string, error)

// Create calls f.
func (f CreatorFunc) Create(ctx context.Context, target string, row CanonicalRow) (string, error) {
	return f(ctx, target, row)
}

// BatchImporter submits parsed rows to a Creator one at a time.
type BatchImporter struct {
	creator    Creator
	onProgress ProgressCallback
	logger     *slog.Logger
	sessionID  string
}

// ImporterOption configures a BatchImporter.
type ImporterOption func(*BatchImporter)

// WithProgress registers a callback invoked after every submitted row.
func WithProgress(cb ProgressCallback) ImporterOption {
	return func(b *BatchImporter) { b.onProgress = cb }
}

// WithLogger sets the logger used for per-row diagnostics.
func WithLogger(l *slog.Logger) ImporterOption {
	return func(b *BatchImporter) { b.logger = l }
}

// WithSessionID tags progress updates with a session ID.
func WithSessionID(id string) ImporterOption {
	return func(b *BatchImporter) { b.sessionID = id }
}

// NewBatchImporter creates an importer backed by creator.
func NewBatchImporter(creator Creator, opts ...ImporterOption) *BatchImporter {
	b := &BatchImporter{
		creator: creator,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run submits every importable row of rows, sequentially and in order.
//
// A failed row never aborts the batch. ctx is checked before each dispatch;
// once it is done no further Create call is made and the remaining rows are
// counted as cancelled. The Create call already in flight runs on a context
// detached from cancellation so its outcome is still recorded.
func (b *BatchImporter) Run(ctx context.Context, target string, rows []ParsedRow) ImportResult {
	start := time.Now()
	submit := Importable(rows)
	n := len(submit)

	ctx, span := tracer.Start(ctx, "import.batch")
	span.SetAttributes(
		attribute.String("import.target", target),
		attribute.Int("import.rows", n),
	)
	defer span.End()

	result := ImportResult{Errors: []string{}}
	progress := ImportProgress{
		SessionID: b.sessionID,
		Target:    target,
		Phase:     PhaseImporting,
		Total:     n,
	}

	for i, row := range submit {
		if ctx.Err() != nil {
			result.Cancelled = n - i
			break
		}

		id, err := b.create(ctx, target, row.Data)
		if err != nil {
			rowErr := &RowPersistenceError{Row: i + 1, Err: err}
			result.Failed++
			result.Errors = append(result.Errors, rowErr.Error())
			result.FailedRows = append(result.FailedRows, FailedRow{
				Row:       i + 1,
				SheetLine: row.Index + 1,
				Reason:    rowErr.Error(),
				Data:      row.Data,
			})
			observeRow(target, "failed")
			b.logger.Debug("row rejected", "target", target, "row", i+1, "error", err)
		} else {
			result.Success++
			observeRow(target, "success")
			b.logger.Debug("row created", "target", target, "row", i+1, "id", id)
		}

		progress.Processed = i + 1
		progress.Success = result.Success
		progress.Failed = result.Failed
		progress.Percent = ProgressPercent(i+1, n)
		if b.onProgress != nil {
			b.onProgress(progress)
		}
	}

	result.Duration = time.Since(start)

	span.SetAttributes(
		attribute.Int("import.success", result.Success),
		attribute.Int("import.failed", result.Failed),
		attribute.Int("import.cancelled", result.Cancelled),
	)
	if result.Cancelled > 0 {
		span.SetStatus(codes.Error, "cancelled")
	}

	return result
}

func (b *BatchImporter) create(ctx context.Context, target string, row CanonicalRow) (string, error) {
	ctx, span := tracer.Start(context.WithoutCancel(ctx), "import.create")
	defer span.End()

	id, err := b.creator.Create(ctx, target, row)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return id, err
}
