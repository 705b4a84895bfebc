// Package publish fans finalized audit records out to sinks: an in-process
// recorder, a Kafka forwarder, a capped Redis list, and a Postgres store.
package publish

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/saturn72/efaudit/internal/capture"
)

// Sink consumes one finalized audit record.
type Sink interface {
	Publish(ctx context.Context, record *capture.AuditRecord) error
}

// Publisher delivers each finalized record to every registered sink. Sinks
// run concurrently; any sink failure fails the publish, since a silently
// dropped record is indistinguishable from one that was never captured.
type Publisher struct {
	sinks  []Sink
	logger *slog.Logger
}

func New(logger *slog.Logger, sinks ...Sink) *Publisher {
	return &Publisher{sinks: sinks, logger: logger}
}

// Publish forwards the record to all sinks and waits for completion. The
// record must be finalized; the caller invokes this at most once per record.
func (p *Publisher) Publish(ctx context.Context, record *capture.AuditRecord) error {
	if !record.Finalized() {
		return errors.New("publish: audit record is not finalized")
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, sink := range p.sinks {
		g.Go(func() error {
			return sink.Publish(ctx, record)
		})
	}
	if err := g.Wait(); err != nil {
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit sink failed",
				"record_id", record.ID,
				"error", err,
			)
		}
		return err
	}
	return nil
}
