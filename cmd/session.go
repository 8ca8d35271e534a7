package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/zjrosen/partgraph/internal/flags"
	"github.com/zjrosen/partgraph/internal/infrastructure/sqlite"
	"github.com/zjrosen/partgraph/internal/log"
	"github.com/zjrosen/partgraph/internal/paths"
	"github.com/zjrosen/partgraph/internal/registry/application"
	"github.com/zjrosen/partgraph/internal/templates"
	"github.com/zjrosen/partgraph/internal/tracing"
)

// session is one open RegistryService plus the resources backing it.
type session struct {
	svc      *application.RegistryService
	provider *tracing.Provider
	db       *sqlite.DB
	store    *sqlite.ManifestStore
	flags    *flags.Registry
	dirs     []string
}

// openSession builds a RegistryService from the loaded config. The snapshot
// store is only opened when store.path is set.
func (c *cli) openSession(ctx context.Context, stderr io.Writer) (*session, error) {
	provider, err := tracing.NewProvider(ctx, c.cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("starting tracing: %w", err)
	}
	tracer := provider.Tracer()
	s := &session{provider: provider, flags: flags.New(c.cfg.Flags)}

	scanOpts := []application.ScannerOption{application.WithScanTracer(tracer)}
	if path := paths.ExpandHome(c.cfg.Store.Path); path != "" {
		db, err := sqlite.NewDB(path)
		if err != nil {
			_ = provider.Shutdown(ctx)
			return nil, fmt.Errorf("opening snapshot store: %w", err)
		}
		s.db = db
		s.store = db.ManifestStore(tracer)
		scanOpts = append(scanOpts, application.WithSnapshotStore(s.store))
	}

	s.svc = application.NewRegistryService(
		application.WithScanner(application.NewScanner(scanOpts...)),
		application.WithTracer(tracer),
		application.WithCache(c.cfg.Cache.TTL, c.cfg.Cache.CleanupInterval),
	)

	if s.flags.Enabled(flags.FlagFrameworkTypes) {
		descs, err := application.DecodeTypes(templates.FrameworkManifest())
		if err == nil {
			err = s.svc.AddFrameworkTypes(ctx, descs...)
		}
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("registering framework types: %w", err)
		}
	}

	dirs, missing := paths.ResolveManifestDirs(c.cfg.Manifests)
	for _, dir := range missing {
		log.Warn(log.CatScan, "manifest directory missing", "dir", dir)
		_, _ = fmt.Fprintf(stderr, "skipping %s: not a directory\n", dir)
	}
	s.dirs = dirs
	return s, nil
}

func (s *session) sources() []application.Source {
	out := make([]application.Source, len(s.dirs))
	for i, dir := range s.dirs {
		out[i] = application.DirSource(dir)
	}
	return out
}

// scan runs one scan. Per-manifest failures are returned alongside a valid
// report; a nil report means the scan itself failed.
func (s *session) scan(ctx context.Context) (*application.ScanReport, []error, error) {
	report, err := s.svc.Scan(ctx, s.sources()...)
	if report == nil {
		return nil, nil, err
	}
	if s.store != nil && s.flags.Enabled(flags.FlagPruneSnapshots) {
		s.prune(ctx, report)
	}
	return report, manifestErrors(err), nil
}

// prune drops stored snapshots of manifests the scan did not see.
func (s *session) prune(ctx context.Context, report *application.ScanReport) {
	keep := slices.Concat(report.Added, report.Replaced, report.Unchanged, report.Failed)
	n, err := s.store.Prune(ctx, keep)
	if err != nil {
		log.ErrorErr(log.CatStore, "pruning snapshots", err)
		return
	}
	if n > 0 {
		log.Info(log.CatStore, "pruned snapshots", "count", n)
	}
}

// load scans and reports manifest failures on stderr, for commands that
// only query the registry afterwards.
func (s *session) load(ctx context.Context, stderr io.Writer) error {
	report, errs, err := s.scan(ctx)
	if err != nil {
		return err
	}
	if len(errs) > 0 {
		_, _ = fmt.Fprintf(stderr, "warning: %d of %d manifests failed, run 'partgraph scan' for details\n",
			len(report.Failed), report.Files)
	}
	return nil
}

func (s *session) Close() {
	s.svc.Close()
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			log.ErrorErr(log.CatStore, "closing snapshot store", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.provider.Shutdown(ctx); err != nil {
		log.ErrorErr(log.CatTrace, "tracing shutdown", err)
	}
}

// manifestErrors unpacks an aggregated scan error.
func manifestErrors(err error) []error {
	if err == nil {
		return nil
	}
	var merr *multierror.Error
	if errors.As(err, &merr) {
		return merr.WrappedErrors()
	}
	return []error{err}
}
