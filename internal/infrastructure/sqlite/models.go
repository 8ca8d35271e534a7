package sqlite

import (
	"time"

	"github.com/zjrosen/partgraph/internal/registry/application"
)

// SnapshotModel represents the database row for the manifest_snapshots table.
type SnapshotModel struct {
	Origin    string
	Digest    string
	Payload   []byte
	ScannedAt int64 // Unix timestamp
}

// toSnapshotModel converts an application Snapshot to a database SnapshotModel.
func toSnapshotModel(s application.Snapshot) *SnapshotModel {
	scannedAt := s.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}
	return &SnapshotModel{
		Origin:    string(s.Origin),
		Digest:    s.Digest,
		Payload:   s.Payload,
		ScannedAt: scannedAt.Unix(),
	}
}

// toApplication converts the row back to an application Snapshot.
func (m *SnapshotModel) toApplication() *application.Snapshot {
	return &application.Snapshot{
		Origin:    application.FileOrigin(m.Origin),
		Digest:    m.Digest,
		Payload:   m.Payload,
		ScannedAt: time.Unix(m.ScannedAt, 0),
	}
}
