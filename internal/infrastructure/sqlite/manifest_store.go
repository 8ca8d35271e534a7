package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/partgraph/internal/registry/application"
	"github.com/zjrosen/partgraph/internal/tracing"
)

const snapshotColumns = `origin, digest, payload, scanned_at`

// ManifestStore implements application.SnapshotStore using SQLite.
type ManifestStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

func newManifestStore(db *sql.DB, tracer trace.Tracer) *ManifestStore {
	return &ManifestStore{db: db, tracer: tracer}
}

// Ensure ManifestStore implements application.SnapshotStore.
var _ application.SnapshotStore = (*ManifestStore)(nil)

func scanSnapshot(scanner interface{ Scan(...any) error }) (*SnapshotModel, error) {
	var model SnapshotModel
	err := scanner.Scan(&model.Origin, &model.Digest, &model.Payload, &model.ScannedAt)
	return &model, err
}

// Get returns the snapshot recorded for origin. The bool is false when none exists.
func (s *ManifestStore) Get(ctx context.Context, origin application.FileOrigin) (*application.Snapshot, bool, error) {
	ctx, span := tracing.Start(ctx, s.tracer, tracing.SpanStoreLoad, attribute.String(tracing.AttrOrigin, string(origin)))

	row := s.db.QueryRowContext(ctx,
		`SELECT `+snapshotColumns+` FROM manifest_snapshots WHERE origin = ?`,
		string(origin),
	)
	model, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetAttributes(attribute.Bool(tracing.AttrStoreSnapshot, false))
		tracing.End(span, nil)
		return nil, false, nil
	}
	if err != nil {
		err = fmt.Errorf("failed to load snapshot: %w", err)
		tracing.End(span, err)
		return nil, false, err
	}
	span.SetAttributes(attribute.Bool(tracing.AttrStoreSnapshot, true))
	tracing.End(span, nil)
	return model.toApplication(), true, nil
}

// Put inserts or replaces the snapshot for snap.Origin.
func (s *ManifestStore) Put(ctx context.Context, snap application.Snapshot) error {
	model := toSnapshotModel(snap)
	return tracing.Run(ctx, s.tracer, tracing.SpanStoreSave, func(ctx context.Context) error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO manifest_snapshots (`+snapshotColumns+`) VALUES (?, ?, ?, ?)
			 ON CONFLICT(origin) DO UPDATE SET
				digest = excluded.digest,
				payload = excluded.payload,
				scanned_at = excluded.scanned_at`,
			model.Origin, model.Digest, model.Payload, model.ScannedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save snapshot: %w", err)
		}
		return nil
	}, attribute.String(tracing.AttrOrigin, model.Origin))
}

// Delete removes the snapshots of origins. Unknown origins are ignored.
func (s *ManifestStore) Delete(ctx context.Context, origins ...application.FileOrigin) error {
	if len(origins) == 0 {
		return nil
	}
	placeholders := make([]string, len(origins))
	args := make([]any, len(origins))
	for i, o := range origins {
		placeholders[i] = "?"
		args[i] = string(o)
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM manifest_snapshots WHERE origin IN (`+strings.Join(placeholders, ", ")+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return nil
}

// List returns every stored snapshot ordered by origin.
func (s *ManifestStore) List(ctx context.Context) ([]*application.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+snapshotColumns+` FROM manifest_snapshots ORDER BY origin`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*application.Snapshot
	for rows.Next() {
		model, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		out = append(out, model.toApplication())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate snapshots: %w", err)
	}
	return out, nil
}

// Prune deletes snapshots whose origin is not in keep and returns how many were removed.
func (s *ManifestStore) Prune(ctx context.Context, keep []application.FileOrigin) (int64, error) {
	query := `DELETE FROM manifest_snapshots`
	args := make([]any, len(keep))
	if len(keep) > 0 {
		placeholders := make([]string, len(keep))
		for i, o := range keep {
			placeholders[i] = "?"
			args[i] = string(o)
		}
		query += ` WHERE origin NOT IN (` + strings.Join(placeholders, ", ") + `)`
	}
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
