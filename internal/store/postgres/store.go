// Package postgres materializes published audit records into a queryable
// table. The store implements the publish sink contract, so it plugs into
// the publisher alongside the bus and in-process sinks.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturn72/efaudit/internal/capture"
	"github.com/saturn72/efaudit/pkg/platform/tx"
)

// Schema creates the audit_records table. Applied by EnsureSchema; kept as a
// plain statement so deployments can run it through their own migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id             UUID PRIMARY KEY,
	source         TEXT NOT NULL,
	subject_id     TEXT NOT NULL DEFAULT '',
	trace_id       TEXT NOT NULL DEFAULT '',
	provider       TEXT NOT NULL DEFAULT '',
	transaction_id TEXT NOT NULL DEFAULT '',
	success        BOOLEAN NOT NULL,
	error          TEXT NOT NULL DEFAULT '',
	entities       JSONB NOT NULL,
	ended_on       TIMESTAMPTZ NOT NULL
)`

// Store persists finalized audit records.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer returns the context transaction when the caller opened one, so the
// audit row commits or rolls back together with the business write.
func (s *Store) execer(ctx context.Context) executor {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return s.db
}

// EnsureSchema creates the audit_records table if missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("create audit_records table: %w", err)
	}
	return nil
}

// Publish inserts one finalized record. Idempotent on record id, so a sink
// retry upstream cannot double-write.
func (s *Store) Publish(ctx context.Context, record *capture.AuditRecord) error {
	if !record.Finalized() {
		return errors.New("store audit record: record is not finalized")
	}
	entities, err := json.Marshal(record.Entities)
	if err != nil {
		return fmt.Errorf("marshal audit entities: %w", err)
	}

	query := `
		INSERT INTO audit_records (
			id, source, subject_id, trace_id, provider,
			transaction_id, success, error, entities, ended_on
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		record.ID,
		record.Source,
		record.SubjectID,
		record.TraceID,
		record.ProviderInfo["provider"],
		record.TransactionID(),
		*record.Success,
		record.Error,
		entities,
		record.EndedOnUtc,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// StoredRecord is one persisted audit record row.
type StoredRecord struct {
	ID            uuid.UUID
	Source        string
	SubjectID     string
	TraceID       string
	Provider      string
	TransactionID string
	Success       bool
	Error         string
	Entities      []capture.EntityAudit
}

// ListBySubject returns records for one subject, newest first.
func (s *Store) ListBySubject(ctx context.Context, subjectID string) ([]StoredRecord, error) {
	query := `
		SELECT id, source, subject_id, trace_id, provider,
			   transaction_id, success, error, entities
		FROM audit_records
		WHERE subject_id = $1
		ORDER BY ended_on DESC
	`
	rows, err := s.db.QueryContext(ctx, query, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// ListRecent returns the N most recent records.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]StoredRecord, error) {
	query := `
		SELECT id, source, subject_id, trace_id, provider,
			   transaction_id, success, error, entities
		FROM audit_records
		ORDER BY ended_on DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]StoredRecord, error) {
	var records []StoredRecord

	for rows.Next() {
		var (
			record   StoredRecord
			entities []byte
		)
		err := rows.Scan(
			&record.ID,
			&record.Source,
			&record.SubjectID,
			&record.TraceID,
			&record.Provider,
			&record.TransactionID,
			&record.Success,
			&record.Error,
			&entities,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		if err := json.Unmarshal(entities, &record.Entities); err != nil {
			return nil, fmt.Errorf("decode audit entities: %w", err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
