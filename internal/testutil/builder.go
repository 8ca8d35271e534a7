// Package testutil builds plugin manifests for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/zjrosen/partgraph/internal/registry/application"
)

// Builder accumulates types and parts and renders them as one manifest.
type Builder struct {
	t        *testing.T
	manifest application.Manifest
}

// NewBuilder creates an empty manifest builder.
func NewBuilder(t *testing.T) *Builder {
	t.Helper()
	return &Builder{t: t}
}

// WithType adds a type with optional configuration.
func (b *Builder) WithType(name string, opts ...TypeOption) *Builder {
	def := application.TypeDef{Name: name}
	for _, opt := range opts {
		opt(&def)
	}
	b.manifest.Types = append(b.manifest.Types, def)
	return b
}

// WithPart adds a part declared by typeName.
func (b *Builder) WithPart(typeName string, opts ...PartOption) *Builder {
	def := application.PartDef{Type: typeName}
	for _, opt := range opts {
		opt(&def)
	}
	b.manifest.Parts = append(b.manifest.Parts, def)
	return b
}

// Manifest returns the accumulated manifest.
func (b *Builder) Manifest() application.Manifest {
	return b.manifest
}

// YAML renders the manifest as it would appear on disk.
func (b *Builder) YAML() string {
	b.t.Helper()
	data, err := yaml.Marshal(b.manifest)
	require.NoError(b.t, err)
	return string(data)
}

// Write renders the manifest into dir/name and returns the file path.
func (b *Builder) Write(dir, name string) string {
	b.t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(b.t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(b.t, os.WriteFile(path, []byte(b.YAML()), 0o600))
	return path
}

// ManifestDir writes files into a fresh temporary directory and returns it.
// Keys are paths relative to the directory.
func ManifestDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	}
	return dir
}
