package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/zjrosen/partgraph/internal/registry/application"
	"github.com/zjrosen/partgraph/internal/tracing"
)

func newTestStore(t *testing.T) *ManifestStore {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "partgraph.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db.ManifestStore(nil)
}

func snapshot(origin, digest string) application.Snapshot {
	return application.Snapshot{
		Origin:    application.FileOrigin(origin),
		Digest:    digest,
		Payload:   []byte(`{"types":[{"name":"Acme.Widget"}]}`),
		ScannedAt: time.Unix(1_700_000_000, 0),
	}
}

func TestManifestStore_PutGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "plugins/a.yaml")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(ctx, snapshot("plugins/a.yaml", "d1")))

	got, ok, err := store.Get(ctx, "plugins/a.yaml")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "d1", got.Digest)
	require.JSONEq(t, `{"types":[{"name":"Acme.Widget"}]}`, string(got.Payload))
	require.Equal(t, int64(1_700_000_000), got.ScannedAt.Unix())
}

func TestManifestStore_PutReplaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, snapshot("plugins/a.yaml", "d1")))
	require.NoError(t, store.Put(ctx, snapshot("plugins/a.yaml", "d2")))

	got, ok, err := store.Get(ctx, "plugins/a.yaml")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "d2", got.Digest)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestManifestStore_PutDefaultsScanTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	before := time.Now().Add(-time.Second)
	require.NoError(t, store.Put(ctx, application.Snapshot{Origin: "a.yaml", Digest: "d", Payload: []byte("{}")}))

	got, ok, err := store.Get(ctx, "a.yaml")
	require.NoError(t, err)
	require.True(t, ok)
	require.False(t, got.ScannedAt.Before(before.Truncate(time.Second)))
}

func TestManifestStore_DeleteAndList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, o := range []string{"plugins/c.yaml", "plugins/a.yaml", "plugins/b.yaml"} {
		require.NoError(t, store.Put(ctx, snapshot(o, "d")))
	}

	require.NoError(t, store.Delete(ctx))
	require.NoError(t, store.Delete(ctx, "plugins/b.yaml", "plugins/missing.yaml"))

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, application.FileOrigin("plugins/a.yaml"), all[0].Origin)
	require.Equal(t, application.FileOrigin("plugins/c.yaml"), all[1].Origin)
}

func TestManifestStore_Prune(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, o := range []string{"a.yaml", "b.yaml", "c.yaml"} {
		require.NoError(t, store.Put(ctx, snapshot(o, "d")))
	}

	n, err := store.Prune(ctx, []application.FileOrigin{"b.yaml"})
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	n, err = store.Prune(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestManifestStore_Traced(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	provider := tracing.NewProviderWithExporter(tracing.DefaultConfig(), exporter)
	defer func() { _ = provider.Shutdown(context.Background()) }()

	db, err := NewDB(filepath.Join(t.TempDir(), "partgraph.db"))
	require.NoError(t, err)
	defer db.Close()
	store := db.ManifestStore(provider.Tracer())

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, snapshot("a.yaml", "d")))
	_, _, err = store.Get(ctx, "a.yaml")
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)
	require.Equal(t, tracing.SpanStoreSave, spans[0].Name)
	require.Equal(t, tracing.SpanStoreLoad, spans[1].Name)
}

// TestManifestStore_BacksScanner verifies that a second service reuses the
// manifests parsed by the first one.
func TestManifestStore_BacksScanner(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	src := application.Source{Name: "plugins", FS: fstestFS("a.yaml", "types:\n  - name: Acme.Widget\n")}

	first := application.NewRegistryService(application.WithScanner(application.NewScanner(application.WithSnapshotStore(store))))
	defer first.Close()
	report, err := first.Scan(ctx, src)
	require.NoError(t, err)
	require.Zero(t, report.Cached)

	second := application.NewRegistryService(application.WithScanner(application.NewScanner(application.WithSnapshotStore(store))))
	defer second.Close()
	report, err = second.Scan(ctx, src)
	require.NoError(t, err)
	require.Equal(t, 1, report.Cached)
	require.True(t, second.Registry().ContainsTypeName("Acme.Widget"))
}

func fstestFS(name, content string) fstest.MapFS {
	return fstest.MapFS{name: &fstest.MapFile{Data: []byte(content)}}
}
