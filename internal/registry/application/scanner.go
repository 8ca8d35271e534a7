package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	stdpath "path"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/zjrosen/partgraph/internal/log"
	"github.com/zjrosen/partgraph/internal/tracing"
)

// FileOrigin identifies the manifest file a type or part was loaded from.
type FileOrigin string

// Source is a tree of manifest files. Origins are Name joined with the
// file's path inside FS.
type Source struct {
	Name string
	FS   fs.FS
}

// DirSource returns a Source rooted at an OS directory.
func DirSource(dir string) Source {
	return Source{Name: filepath.Clean(dir), FS: os.DirFS(dir)}
}

// Snapshot is a manifest already parsed on an earlier run.
type Snapshot struct {
	Origin    FileOrigin
	Digest    string
	Payload   []byte
	ScannedAt time.Time
}

// SnapshotStore persists parsed manifests by origin and content digest.
type SnapshotStore interface {
	Get(ctx context.Context, origin FileOrigin) (*Snapshot, bool, error)
	Put(ctx context.Context, snap Snapshot) error
	Delete(ctx context.Context, origins ...FileOrigin) error
}

// loadedManifest is one manifest file after reading and parsing.
type loadedManifest struct {
	origin   FileOrigin
	digest   string
	manifest *Manifest
	cached   bool
	err      error
}

// Scanner discovers and parses manifest files.
type Scanner struct {
	store      SnapshotStore
	tracer     trace.Tracer
	extensions []string
	limit      int
}

// ScannerOption configures a Scanner.
type ScannerOption func(*Scanner)

// WithSnapshotStore lets the scanner reuse manifests parsed by earlier runs.
func WithSnapshotStore(store SnapshotStore) ScannerOption {
	return func(s *Scanner) { s.store = store }
}

// WithScanTracer sets the tracer for scan spans.
func WithScanTracer(tracer trace.Tracer) ScannerOption {
	return func(s *Scanner) { s.tracer = tracer }
}

// WithConcurrency caps the number of manifests parsed at once.
func WithConcurrency(n int) ScannerOption {
	return func(s *Scanner) {
		if n > 0 {
			s.limit = n
		}
	}
}

// NewScanner creates a scanner for *.yaml and *.yml manifests.
func NewScanner(opts ...ScannerOption) *Scanner {
	s := &Scanner{
		extensions: []string{".yaml", ".yml"},
		limit:      runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// discover lists manifest files under every source, sorted by origin.
func (s *Scanner) discover(sources []Source) ([]manifestFile, error) {
	var files []manifestFile
	seen := make(map[FileOrigin]bool)
	for _, src := range sources {
		err := fs.WalkDir(src.FS, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if p != "." && strings.HasPrefix(d.Name(), ".") {
					return fs.SkipDir
				}
				return nil
			}
			if !slices.Contains(s.extensions, strings.ToLower(stdpath.Ext(p))) {
				return nil
			}
			origin := originOf(src, p)
			if !seen[origin] {
				seen[origin] = true
				files = append(files, manifestFile{origin: origin, fsys: src.FS, path: p})
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", src.Name, err)
		}
	}
	slices.SortFunc(files, func(a, b manifestFile) int { return strings.Compare(string(a.origin), string(b.origin)) })
	return files, nil
}

type manifestFile struct {
	origin FileOrigin
	fsys   fs.FS
	path   string
}

func originOf(src Source, p string) FileOrigin {
	if src.Name == "" {
		return FileOrigin(p)
	}
	return FileOrigin(filepath.ToSlash(filepath.Join(src.Name, filepath.FromSlash(p))))
}

// load reads and parses every file concurrently. Per-file failures are kept
// on the result so one bad manifest never hides the others; only context
// cancellation aborts the whole load.
func (s *Scanner) load(ctx context.Context, files []manifestFile) ([]loadedManifest, error) {
	out := make([]loadedManifest, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i] = s.loadOne(gctx, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Scanner) loadOne(ctx context.Context, f manifestFile) loadedManifest {
	res := loadedManifest{origin: f.origin}

	ctx, span := tracing.Start(ctx, s.tracer, tracing.SpanParseManifest, attribute.String(tracing.AttrOrigin, string(f.origin)))
	defer func() { tracing.End(span, res.err) }()

	data, err := fs.ReadFile(f.fsys, f.path)
	if err != nil {
		res.err = fmt.Errorf("%s: read: %w", f.origin, err)
		return res
	}
	sum := sha256.Sum256(data)
	res.digest = hex.EncodeToString(sum[:])

	if s.store != nil {
		snap, ok, err := s.store.Get(ctx, f.origin)
		if err != nil {
			log.ErrorErr(log.CatStore, "snapshot lookup failed", err, "origin", f.origin)
		} else if ok && snap.Digest == res.digest {
			if m, err := decodeSnapshot(snap.Payload); err == nil {
				res.manifest = m
				res.cached = true
				return res
			}
		}
	}

	m, err := ParseManifest(data)
	if err != nil {
		res.err = fmt.Errorf("%s: %w", f.origin, err)
		return res
	}
	res.manifest = m

	if s.store != nil {
		payload, err := encodeSnapshot(m)
		if err == nil {
			err = s.store.Put(ctx, Snapshot{Origin: f.origin, Digest: res.digest, Payload: payload, ScannedAt: time.Now()})
		}
		if err != nil {
			log.ErrorErr(log.CatStore, "snapshot save failed", err, "origin", f.origin)
		}
	}
	return res
}

// ScanReport summarizes one scan or rescan.
type ScanReport struct {
	ID        string
	Files     int
	Added     []FileOrigin
	Replaced  []FileOrigin
	Unchanged []FileOrigin
	Removed   []FileOrigin
	Failed    []FileOrigin
	// Restored lists failed replacements whose previous manifest is still registered.
	Restored []FileOrigin
	Cached   int
	Duration  time.Duration
}

func newScanReport() *ScanReport {
	return &ScanReport{ID: uuid.NewString()}
}

// appendErr aggregates per-manifest failures.
func appendErr(agg *multierror.Error, err error) *multierror.Error {
	if agg == nil {
		agg = &multierror.Error{ErrorFormat: listErrors}
	}
	return multierror.Append(agg, err)
}

func listErrors(errs []error) string {
	if len(errs) == 1 {
		return errs[0].Error()
	}
	msgs := make([]string, len(errs))
	for i, err := range errs {
		msgs[i] = "  * " + err.Error()
	}
	return fmt.Sprintf("%d manifests failed:\n%s", len(errs), strings.Join(msgs, "\n"))
}
