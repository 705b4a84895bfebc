package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/saturn72/efaudit/internal/platform/metrics"
	"github.com/saturn72/efaudit/internal/tracking"
	"github.com/saturn72/efaudit/pkg/requestcontext"
)

// Publisher hands a finalized record to downstream sinks. It is called at
// most once per record and must complete before the enclosing save returns.
type Publisher interface {
	Publish(ctx context.Context, record *AuditRecord) error
}

// Aggregator orchestrates audit capture around a unit of work: Begin opens a
// capture before the write, Succeed or Fail finalizes it once the outcome is
// known. Each capture is an independent handle, so concurrent transactions
// each carry their own record and correlation table.
type Aggregator struct {
	source    string
	assembler *assembler
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures the Aggregator.
type Option func(*Aggregator)

// WithLogger sets a logger for finalize diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Aggregator) {
		a.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Aggregator) {
		a.metrics = m
	}
}

// NewAggregator creates an aggregator publishing records labeled with source.
func NewAggregator(source string, registry *Registry, publisher Publisher, opts ...Option) *Aggregator {
	a := &Aggregator{
		source:    source,
		assembler: &assembler{builder: NewBuilder(registry)},
		publisher: publisher,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Capture is the in-flight audit state for one transaction attempt. Obtain it
// from Begin, hand it to exactly one of Succeed or Fail.
type Capture struct {
	record    *AuditRecord
	table     *correlationTable
	finalized bool
}

// Record exposes the in-flight record for inspection. Callers must not
// mutate it.
func (c *Capture) Record() *AuditRecord {
	return c.record
}

// Begin opens a capture for the unit of work: it walks every monitored
// tracked entry, assembles its audit entry, and registers it for post-commit
// correlation. Must run to completion before the underlying write is issued;
// any assembly failure aborts the capture rather than emit a partial record.
func (a *Aggregator) Begin(ctx context.Context, src tracking.Source) (*Capture, error) {
	record := &AuditRecord{
		ID:           uuid.New(),
		SubjectID:    requestcontext.SubjectID(ctx),
		Source:       a.source,
		TraceID:      traceID(ctx),
		ProviderInfo: src.ProviderInfo(),
		Entities:     make([]EntityAudit, 0),
	}
	table := newCorrelationTable()

	for _, entry := range src.Entries() {
		if !entry.State().Monitored() {
			continue
		}
		audit, err := a.assembler.assemble(entry, table)
		if err != nil {
			if a.metrics != nil {
				a.metrics.IncCaptureFailures()
			}
			return nil, fmt.Errorf("audit capture: %w", err)
		}
		record.Entities = append(record.Entities, audit)
	}

	if a.metrics != nil {
		a.metrics.IncCapturesOpened()
	}
	return &Capture{record: record, table: table}, nil
}

// Succeed finalizes the capture after a successful commit. Added entities get
// their store-assigned keys backfilled through the correlation table and are
// re-materialized, since the pre-commit snapshot lacks the generated key.
// Records that captured no entities are suppressed: a save that touched
// nothing monitored is not worth publishing.
func (a *Aggregator) Succeed(ctx context.Context, c *Capture) error {
	record, err := a.finalize(c)
	if err != nil {
		return err
	}

	for i := range record.Entities {
		audit := &record.Entities[i]
		if audit.State != StateAdded {
			continue
		}
		entry, ok := c.table.get(audit.Uuid)
		if !ok {
			return fmt.Errorf("audit finalize %s: %w", audit.Uuid, ErrUnknownCorrelation)
		}
		pk, err := currentPrimaryKey(entry)
		if err != nil {
			return fmt.Errorf("audit finalize %s: %w", audit.TypeName, err)
		}
		audit.PrimaryKeyValue = pk
		value, err := a.assembler.builder.Materialize(entry)
		if err != nil {
			return fmt.Errorf("audit finalize: %w", err)
		}
		audit.Value = value
	}

	success := true
	record.Success = &success
	record.EndedOnUtc = time.Now().UTC()

	if len(record.Entities) == 0 {
		if a.logger != nil {
			a.logger.DebugContext(ctx, "suppressing empty audit record",
				"record_id", record.ID,
			)
		}
		return nil
	}
	return a.publish(ctx, record)
}

// Fail finalizes the capture after a failed commit. The commit error is data,
// not a capture fault: it is recorded on the record and the record is
// published unconditionally, because the failure itself is the signal of
// interest even when nothing was captured.
func (a *Aggregator) Fail(ctx context.Context, c *Capture, cause error) error {
	record, err := a.finalize(c)
	if err != nil {
		return err
	}

	success := false
	record.Success = &success
	if cause != nil {
		record.Error = cause.Error()
	} else {
		record.Error = "commit failed"
	}
	record.EndedOnUtc = time.Now().UTC()

	return a.publish(ctx, record)
}

// Audited runs commit under audit capture: it opens the capture, invokes the
// write, and finalizes with the outcome. The returned error is the commit
// error when the write failed, joined with any finalize error.
func (a *Aggregator) Audited(ctx context.Context, src tracking.Source, commit func(context.Context) error) error {
	c, err := a.Begin(ctx, src)
	if err != nil {
		return err
	}
	if err := commit(ctx); err != nil {
		if ferr := a.Fail(ctx, c, err); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}
	return a.Succeed(ctx, c)
}

func (a *Aggregator) finalize(c *Capture) (*AuditRecord, error) {
	if c == nil || c.record == nil {
		return nil, ErrCaptureNotOpened
	}
	if c.finalized {
		return nil, ErrCaptureFinalized
	}
	c.finalized = true
	return c.record, nil
}

func (a *Aggregator) publish(ctx context.Context, record *AuditRecord) error {
	start := time.Now()
	err := a.publisher.Publish(ctx, record)
	if a.metrics != nil {
		a.metrics.ObservePublishDuration(time.Since(start).Seconds())
	}
	if err != nil {
		if a.metrics != nil {
			a.metrics.IncPublishFailures()
		}
		if a.logger != nil {
			a.logger.ErrorContext(ctx, "audit record publish failed",
				"record_id", record.ID,
				"entities", len(record.Entities),
				"error", err,
			)
		}
		return fmt.Errorf("publish audit record: %w", err)
	}
	if a.metrics != nil {
		a.metrics.IncRecordsPublished()
	}
	return nil
}

// traceID prefers the active distributed trace, falling back to the
// request-scoped identifier when no span is recording.
func traceID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return requestcontext.RequestID(ctx)
}
