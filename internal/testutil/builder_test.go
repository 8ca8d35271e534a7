package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/partgraph/internal/domain/registry"
	"github.com/zjrosen/partgraph/internal/registry/application"
)

func TestBuilder_RoundTrip(t *testing.T) {
	b := NewBuilder(t).
		WithType("Acme.Box`1[Acme.Widget]", Class(), Base("Acme.BoxBase"), Definition("Acme.Box`1")).
		WithPart("Acme.Factory",
			ExportsMethod("Acme.Create", "Create", "Acme.Widget", "size", "System.Int32"),
			ExportsProperty("Current", "Acme.Widget"),
			Imports("Widgets", "Acme.IWidget", Cardinality("zero_or_more"), Recomposable()),
			Imports("seed", "Acme.Seed", ConstructorParameter(1), CreationPolicy("shared"), Contract("Acme.SeedContract")),
		)

	parsed, err := application.ParseManifest([]byte(b.YAML()))
	require.NoError(t, err)
	require.Equal(t, b.Manifest(), *parsed)

	part := parsed.Parts[0]
	require.Equal(t, []application.ParameterDef{{Name: "size", Type: "System.Int32"}}, part.Exports[0].Parameters)
	require.Equal(t, application.KindConstructorParameter, part.Imports[1].Kind)
	require.Equal(t, 1, part.Imports[1].Position)
}

func TestBuilder_Write(t *testing.T) {
	dir := t.TempDir()
	path := WidgetPlugin(t).Write(dir, "nested/widgets.yaml")

	require.Equal(t, filepath.Join(dir, "nested", "widgets.yaml"), path)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), IWidget)
}

func TestManifestDir(t *testing.T) {
	dir := ManifestDir(t, map[string]string{
		"a.yaml":    "types: []\n",
		"sub/b.yml": "parts: []\n",
	})
	require.FileExists(t, filepath.Join(dir, "a.yaml"))
	require.FileExists(t, filepath.Join(dir, "sub", "b.yml"))
}

func TestPresets_Compose(t *testing.T) {
	dir := ManifestDir(t, map[string]string{
		"widgets.yaml": WidgetPlugin(t).YAML(),
		"gadgets.yaml": GadgetPlugin(t).YAML(),
		"host.yaml":    HostPlugin(t).YAML(),
	})

	svc := application.NewRegistryService()
	t.Cleanup(svc.Close)
	report, err := svc.Scan(context.Background(), application.DirSource(dir))
	require.NoError(t, err)
	require.Len(t, report.Added, 3)

	reg := svc.Registry()
	iface := registry.MustParseTypeIdentity(IWidget)
	require.True(t, reg.IsSubtypeOf(iface, registry.MustParseTypeIdentity(Widget)))
	require.True(t, reg.IsSubtypeOf(iface, registry.MustParseTypeIdentity(Gadget)))

	res, err := svc.ResolvePartByName(context.Background(), Host)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Len(t, res[0].Candidates, 2)
	require.False(t, res[0].Satisfied, "two candidates for an exactly_one import")

	res, err = svc.ResolvePartByName(context.Background(), Lonely)
	require.NoError(t, err)
	require.Empty(t, res[0].Candidates)
}
