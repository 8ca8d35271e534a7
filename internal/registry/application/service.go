// Package application wires the registry domain to manifests on disk, the
// acceptance cache, event publication and tracing.
package application

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/partgraph/internal/cachemanager"
	"github.com/zjrosen/partgraph/internal/domain/matching"
	"github.com/zjrosen/partgraph/internal/domain/registry"
	"github.com/zjrosen/partgraph/internal/log"
	"github.com/zjrosen/partgraph/internal/pubsub"
	"github.com/zjrosen/partgraph/internal/tracing"
	"github.com/zjrosen/partgraph/internal/watcher"
)

// ErrNothingScanned is returned by Rescan before any Scan.
var ErrNothingScanned = errors.New("no sources scanned yet")

// RegistryEvent is the payload of every registry event.
type RegistryEvent struct {
	Identity string
	Origin   FileOrigin
	ScanID   string
}

// RegistryService owns one Registry keyed by manifest file and keeps it in
// step with the manifests on disk.
type RegistryService struct {
	reg     *registry.Registry[FileOrigin]
	engine  *matching.Engine
	scanner *Scanner
	broker  *pubsub.Broker[RegistryEvent]
	tracer  trace.Tracer

	decisions *cachemanager.ReadThroughCache[acceptKey, matching.Decision, acceptInput]
	cacheTTL  time.Duration

	// scanMu serializes scans; digests, registered and sources are only
	// touched under it.
	scanMu     sync.Mutex
	digests    map[FileOrigin]string
	registered map[FileOrigin]loadedManifest
	sources    []Source
}

// ServiceOption configures a RegistryService.
type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	scanner         *Scanner
	tracer          trace.Tracer
	cacheTTL        time.Duration
	cleanupInterval time.Duration
	skipCache       bool
	broker          *pubsub.Broker[RegistryEvent]
}

// WithScanner replaces the default scanner.
func WithScanner(s *Scanner) ServiceOption {
	return func(c *serviceConfig) { c.scanner = s }
}

// WithTracer sets the tracer for registry and match spans.
func WithTracer(t trace.Tracer) ServiceOption {
	return func(c *serviceConfig) { c.tracer = t }
}

// WithCache sets the acceptance cache lifetime. A zero ttl disables the cache.
func WithCache(ttl, cleanupInterval time.Duration) ServiceOption {
	return func(c *serviceConfig) {
		c.cacheTTL = ttl
		c.cleanupInterval = cleanupInterval
		c.skipCache = ttl <= 0
	}
}

// WithBroker publishes registry events on an existing broker.
func WithBroker(b *pubsub.Broker[RegistryEvent]) ServiceOption {
	return func(c *serviceConfig) { c.broker = b }
}

// NewRegistryService creates a service over an empty registry.
func NewRegistryService(opts ...ServiceOption) *RegistryService {
	cfg := serviceConfig{
		cacheTTL:        cachemanager.DefaultExpiration,
		cleanupInterval: cachemanager.DefaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.scanner == nil {
		cfg.scanner = NewScanner(WithScanTracer(cfg.tracer))
	}
	if cfg.broker == nil {
		cfg.broker = pubsub.NewBroker[RegistryEvent]()
	}

	reg := registry.NewRegistry[FileOrigin]()
	s := &RegistryService{
		reg:      reg,
		engine:   matching.NewEngine(reg),
		scanner:  cfg.scanner,
		broker:   cfg.broker,
		tracer:   cfg.tracer,
		cacheTTL: cfg.cacheTTL,
		digests:  make(map[FileOrigin]string),

		registered: make(map[FileOrigin]loadedManifest),
	}
	cache := cachemanager.NewInMemoryCacheManager[acceptKey, matching.Decision]("acceptance", cfg.cacheTTL, cfg.cleanupInterval)
	s.decisions = cachemanager.NewReadThroughCache[acceptKey, matching.Decision, acceptInput](
		cache,
		func(_ context.Context, in acceptInput) (matching.Decision, error) {
			return s.engine.Explain(in.imp, in.exp), nil
		},
		cfg.skipCache,
	)
	return s
}

// Registry exposes the underlying registry for read access.
func (s *RegistryService) Registry() *registry.Registry[FileOrigin] {
	return s.reg
}

// Subscribe streams registry events until ctx is cancelled.
func (s *RegistryService) Subscribe(ctx context.Context, types ...pubsub.EventType) <-chan pubsub.Event[RegistryEvent] {
	return s.broker.Subscribe(ctx, types...)
}

// Close stops event delivery.
func (s *RegistryService) Close() {
	s.broker.Close()
}

// EventStats reports registry event delivery, including events dropped for
// subscribers that fell behind.
func (s *RegistryService) EventStats() pubsub.Stats {
	return s.broker.Stats()
}

// CacheStats reports acceptance cache effectiveness.
func (s *RegistryService) CacheStats() cachemanager.Stats {
	return s.decisions.Stats()
}

// AddFrameworkTypes registers types no manifest owns, such as the wrapper
// definitions or primitive types every plugin refers to. They survive all rescans.
func (s *RegistryService) AddFrameworkTypes(ctx context.Context, descs ...*registry.TypeDescription) error {
	var agg *multierror.Error
	for _, d := range descs {
		if err := s.reg.AddType(d); err != nil {
			if errors.Is(err, registry.ErrDuplicateType) {
				log.Warn(log.CatRegistry, "duplicate framework type", "type", d.Identity())
			}
			agg = appendErr(agg, err)
			continue
		}
		s.broker.Publish(pubsub.TypeAddedEvent, RegistryEvent{Identity: d.Identity().String()})
	}
	s.invalidate(ctx)
	return agg.ErrorOrNil()
}

// Scan loads every manifest under sources and reconciles the registry with
// them: new manifests are added, changed ones replaced, vanished ones removed
// and unchanged ones skipped by content digest. The returned error aggregates
// per-manifest failures; the report is valid even when it is non-nil.
func (s *RegistryService) Scan(ctx context.Context, sources ...Source) (*ScanReport, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()
	s.sources = slices.Clone(sources)

	start := time.Now()
	report := newScanReport()

	ctx, span := tracing.Start(ctx, s.tracer, tracing.SpanScan,
		attribute.String(tracing.AttrScanID, report.ID),
		attribute.Int(tracing.AttrScanRoots, len(sources)),
	)
	var spanErr error
	defer func() { tracing.End(span, spanErr) }()

	files, err := s.scanner.discover(sources)
	if err != nil {
		spanErr = err
		return nil, err
	}
	report.Files = len(files)

	loaded, err := s.scanner.load(ctx, files)
	if err != nil {
		spanErr = err
		return nil, err
	}

	var agg *multierror.Error
	present := make(map[FileOrigin]bool, len(loaded))
	var changed []loadedManifest
	for _, lm := range loaded {
		present[lm.origin] = true
		if lm.err != nil {
			log.ErrorErr(log.CatScan, "manifest failed", lm.err, "origin", lm.origin, "scan", report.ID)
			report.Failed = append(report.Failed, lm.origin)
			agg = appendErr(agg, lm.err)
			continue
		}
		if lm.cached {
			report.Cached++
		}
		if prev, ok := s.digests[lm.origin]; ok && prev == lm.digest {
			report.Unchanged = append(report.Unchanged, lm.origin)
			span.AddEvent(tracing.EventManifestSkipped, trace.WithAttributes(attribute.String(tracing.AttrOrigin, string(lm.origin))))
			continue
		}
		changed = append(changed, lm)
	}

	// Vanished manifests and manifests about to be replaced leave first
	previous := make(map[FileOrigin]loadedManifest)
	var stale []FileOrigin
	for origin := range s.digests {
		if !present[origin] {
			stale = append(stale, origin)
			report.Removed = append(report.Removed, origin)
		}
	}
	for _, lm := range changed {
		if _, ok := s.digests[lm.origin]; ok {
			if prev, ok := s.registered[lm.origin]; ok {
				previous[lm.origin] = prev
			}
			stale = append(stale, lm.origin)
			report.Replaced = append(report.Replaced, lm.origin)
		} else {
			report.Added = append(report.Added, lm.origin)
		}
	}
	slices.Sort(report.Removed)
	if len(stale) > 0 {
		s.removeLocked(ctx, report.ID, stale...)
	}

	rejected := s.registerLocked(ctx, report.ID, changed)
	var restore []loadedManifest
	for _, lm := range changed {
		err, ok := rejected[lm.origin]
		if !ok {
			continue
		}
		log.ErrorErr(log.CatRegistry, "manifest rejected", err, "origin", lm.origin, "scan", report.ID)
		report.Failed = append(report.Failed, lm.origin)
		agg = appendErr(agg, fmt.Errorf("%s: %w", lm.origin, err))
		if prev, ok := previous[lm.origin]; ok {
			restore = append(restore, prev)
		}
	}

	// A rejected replacement falls back to the manifest it was replacing.
	// The old digest is kept so the next scan retries the new content.
	if len(restore) > 0 {
		lost := s.registerLocked(ctx, report.ID, restore)
		for _, prev := range restore {
			if err, ok := lost[prev.origin]; ok {
				log.ErrorErr(log.CatRegistry, "previous manifest not restored", err, "origin", prev.origin, "scan", report.ID)
				continue
			}
			report.Restored = append(report.Restored, prev.origin)
		}
	}

	// Rejected manifests are not recorded, so the next scan retries them
	report.Added = slices.DeleteFunc(report.Added, func(o FileOrigin) bool { _, ok := rejected[o]; return ok })
	report.Replaced = slices.DeleteFunc(report.Replaced, func(o FileOrigin) bool { _, ok := rejected[o]; return ok })
	slices.Sort(report.Failed)
	report.Failed = slices.Compact(report.Failed)

	if s.store() != nil && len(report.Removed) > 0 {
		if err := s.store().Delete(ctx, report.Removed...); err != nil {
			log.ErrorErr(log.CatStore, "snapshot delete failed", err)
		}
	}

	s.invalidate(ctx)
	report.Duration = time.Since(start)

	stats := s.reg.Stats()
	span.SetAttributes(
		attribute.Int(tracing.AttrScanFiles, report.Files),
		attribute.Int(tracing.AttrScanSkipped, len(report.Unchanged)),
		attribute.Int(tracing.AttrTypeCount, stats.Types),
		attribute.Int(tracing.AttrPartCount, stats.Parts),
	)
	log.Info(log.CatScan, "scan complete",
		"scan", report.ID,
		"files", report.Files,
		"added", len(report.Added),
		"replaced", len(report.Replaced),
		"removed", len(report.Removed),
		"unchanged", len(report.Unchanged),
		"failed", len(report.Failed),
		"duration", report.Duration,
	)
	s.broker.Publish(pubsub.ScanCompletedEvent, RegistryEvent{ScanID: report.ID})

	spanErr = agg.ErrorOrNil()
	return report, spanErr
}

// Rescan repeats the last Scan over the same sources.
func (s *RegistryService) Rescan(ctx context.Context) (*ScanReport, error) {
	s.scanMu.Lock()
	sources := slices.Clone(s.sources)
	s.scanMu.Unlock()
	if len(sources) == 0 {
		return nil, ErrNothingScanned
	}

	ctx, span := tracing.Start(ctx, s.tracer, tracing.SpanRescan)
	report, err := s.Scan(ctx, sources...)
	tracing.End(span, err)
	return report, err
}

// Watch rescans whenever a manifest under cfg.Dirs changes, until ctx is
// cancelled. Scan errors are logged and do not stop the watch; onScan, when
// non-nil, sees every report.
func (s *RegistryService) Watch(ctx context.Context, cfg watcher.Config, onScan func(*ScanReport, error)) error {
	w, err := watcher.New(cfg)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}
	defer func() { _ = w.Stop() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change := <-changes:
			log.Info(log.CatWatcher, "manifests changed", "paths", len(change.Paths))
			report, err := s.Rescan(ctx)
			if err != nil {
				log.ErrorErr(log.CatWatcher, "rescan failed", err)
			}
			if onScan != nil {
				onScan(report, err)
			}
		}
	}
}

func (s *RegistryService) store() SnapshotStore {
	return s.scanner.store
}

// registerLocked decodes and registers manifests in origin order, all types
// before any part, so parts never see a half-built hierarchy.
// A manifest that fails to decode or register is rolled back as a whole and
// its error returned keyed by origin.
func (s *RegistryService) registerLocked(ctx context.Context, scanID string, manifests []loadedManifest) map[FileOrigin]error {
	_, span := tracing.Start(ctx, s.tracer, tracing.SpanRegister, attribute.String(tracing.AttrScanID, scanID))
	defer func() { tracing.End(span, nil) }()

	in := newInterner()
	decodedBy := make(map[FileOrigin]*decoded, len(manifests))
	failed := make(map[FileOrigin]error)

	fail := func(origin FileOrigin, err error) {
		if _, ok := failed[origin]; ok {
			return
		}
		failed[origin] = err
		s.reg.RemoveByOrigin(origin)
	}
	isFailed := func(origin FileOrigin) bool {
		_, ok := failed[origin]
		return ok
	}

	for _, lm := range manifests {
		d, err := lm.manifest.decode(in)
		if err != nil {
			fail(lm.origin, err)
			continue
		}
		decodedBy[lm.origin] = d
	}

	// Declared types go first so a part-only manifest never claims a type
	// another manifest declares.
	added := make(map[FileOrigin][]*registry.TypeDescription, len(manifests))
	for _, implicit := range []bool{false, true} {
		for _, lm := range manifests {
			d, ok := decodedBy[lm.origin]
			if !ok || isFailed(lm.origin) {
				continue
			}
			for _, t := range d.types {
				if d.implicit[t.Identity().Key()] != implicit {
					continue
				}
				if implicit && s.reg.ContainsType(t.Identity()) {
					continue
				}
				if err := s.reg.AddTypeFrom(t, lm.origin); err != nil {
					fail(lm.origin, err)
					break
				}
				added[lm.origin] = append(added[lm.origin], t)
			}
		}
	}

	for _, lm := range manifests {
		d, ok := decodedBy[lm.origin]
		if !ok || isFailed(lm.origin) {
			continue
		}
		for _, p := range d.parts {
			if err := s.reg.AddPart(p, lm.origin); err != nil {
				fail(lm.origin, err)
				break
			}
		}
	}

	for _, lm := range manifests {
		d, ok := decodedBy[lm.origin]
		if !ok || isFailed(lm.origin) {
			continue
		}
		s.digests[lm.origin] = lm.digest
		s.registered[lm.origin] = lm
		for _, t := range added[lm.origin] {
			s.broker.Publish(pubsub.TypeAddedEvent, RegistryEvent{Identity: t.Identity().String(), Origin: lm.origin, ScanID: scanID})
		}
		for _, p := range d.parts {
			s.broker.Publish(pubsub.PartAddedEvent, RegistryEvent{Identity: p.Identity().String(), Origin: lm.origin, ScanID: scanID})
		}
		log.Debug(log.CatRegistry, "manifest registered", "origin", lm.origin, "types", len(added[lm.origin]), "parts", len(d.parts))
	}

	return failed
}

// RemoveOrigins drops everything registered from the given manifests.
func (s *RegistryService) RemoveOrigins(ctx context.Context, origins ...FileOrigin) {
	if len(origins) == 0 {
		return
	}
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	s.removeLocked(ctx, "", origins...)
	s.invalidate(ctx)
}

func (s *RegistryService) removeLocked(ctx context.Context, scanID string, origins ...FileOrigin) {
	_ = tracing.Run(ctx, s.tracer, tracing.SpanRemoveOrigin, func(context.Context) error {
		s.reg.RemoveByOrigin(origins...)
		return nil
	}, attribute.Int(tracing.AttrOriginCount, len(origins)))

	for _, o := range origins {
		delete(s.digests, o)
		delete(s.registered, o)
		s.broker.Publish(pubsub.OriginRemovedEvent, RegistryEvent{Origin: o, ScanID: scanID})
		log.Debug(log.CatRegistry, "origin removed", "origin", o)
	}
}

// invalidate flushes cached acceptance decisions after a registry mutation.
func (s *RegistryService) invalidate(ctx context.Context) {
	if err := s.decisions.Invalidate(ctx); err != nil {
		log.ErrorErr(log.CatCache, "cache flush failed", err)
	}
}

// acceptKey identifies an (import, export) pair by everything Accepts reads.
type acceptKey string

type acceptInput struct {
	imp registry.ImportDescriptor
	exp registry.ExportDescriptor
}

func keyOf(imp registry.ImportDescriptor, exp registry.ExportDescriptor) acceptKey {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(imp.ContractName()))
	sb.WriteByte(0)
	sb.WriteString(imp.RequiredType().String())
	sb.WriteByte(0)
	sb.WriteString(strings.ToLower(exp.ContractName()))
	sb.WriteByte(0)
	switch e := exp.(type) {
	case *registry.MethodExport:
		sb.WriteString("m:")
		if ret, ok := e.ReturnType(); ok {
			sb.WriteString(ret.String())
		}
		for _, p := range e.Parameters() {
			sb.WriteByte(',')
			sb.WriteString(p.Type.String())
		}
	default:
		sb.WriteString("v:")
		if t, ok := exp.ExportedType(); ok {
			sb.WriteString(t.String())
		}
	}
	return acceptKey(sb.String())
}

// Accepts reports whether exp satisfies imp and which rule decided it.
// Decisions are cached until the next registry mutation.
func (s *RegistryService) Accepts(ctx context.Context, imp registry.ImportDescriptor, exp registry.ExportDescriptor) matching.Decision {
	if imp == nil || exp == nil {
		return s.engine.Explain(imp, exp)
	}
	d, _ := s.decisions.Get(ctx, keyOf(imp, exp), acceptInput{imp: imp, exp: exp}, s.cacheTTL)
	return d
}

// Candidate is one export that satisfies an import.
type Candidate struct {
	Part   registry.TypeIdentity
	Origin FileOrigin
	Export registry.ExportDescriptor
	Rule   matching.Rule
}

// Resolution lists every export that satisfies one import.
type Resolution struct {
	Import     registry.ImportDescriptor
	Candidates []Candidate
	Satisfied  bool
}

// ResolveImport matches imp against every export of every registered part.
// Satisfied applies the import's cardinality to the number of candidates.
func (s *RegistryService) ResolveImport(ctx context.Context, imp registry.ImportDescriptor) Resolution {
	ctx, span := tracing.Start(ctx, s.tracer, tracing.SpanResolveImport,
		attribute.String(tracing.AttrContractName, imp.ContractName()),
		attribute.String(tracing.AttrRequiredType, imp.RequiredType().String()),
		attribute.String(tracing.AttrCardinality, imp.Cardinality().String()),
	)

	res := Resolution{Import: imp}
	for _, part := range s.reg.Parts() {
		for _, exp := range part.Exports() {
			d := s.Accepts(ctx, imp, exp)
			if !d.Accepted {
				continue
			}
			origin, _ := s.reg.PartOrigin(part.Identity())
			res.Candidates = append(res.Candidates, Candidate{
				Part:   part.Identity(),
				Origin: origin,
				Export: exp,
				Rule:   d.Rule,
			})
		}
	}
	res.Satisfied = imp.Cardinality().Allows(len(res.Candidates))

	span.SetAttributes(
		attribute.Int(tracing.AttrCandidates, len(res.Candidates)),
		attribute.Bool(tracing.AttrSatisfied, res.Satisfied),
	)
	tracing.End(span, nil)

	if !res.Satisfied {
		log.Debug(log.CatMatch, "import unsatisfied",
			"contract", imp.ContractName(),
			"required", imp.RequiredType(),
			"cardinality", imp.Cardinality(),
			"candidates", len(res.Candidates),
		)
	}
	return res
}

// ResolvePart resolves every import of the part declared by id.
func (s *RegistryService) ResolvePart(ctx context.Context, id registry.TypeIdentity) ([]Resolution, error) {
	ctx, span := tracing.Start(ctx, s.tracer, tracing.SpanResolvePart, attribute.String(tracing.AttrPartName, id.String()))

	part, err := s.reg.Part(id)
	if err != nil {
		tracing.End(span, err)
		return nil, err
	}
	imports := part.Imports()
	out := make([]Resolution, 0, len(imports))
	for _, imp := range imports {
		out = append(out, s.ResolveImport(ctx, imp))
	}
	tracing.End(span, nil)
	return out, nil
}

// ResolvePartByName is ResolvePart for a textual identity.
func (s *RegistryService) ResolvePartByName(ctx context.Context, name string) ([]Resolution, error) {
	id, err := registry.ParseTypeIdentity(name)
	if err != nil {
		return nil, err
	}
	return s.ResolvePart(ctx, id)
}
