package tracing

// Span attribute keys.
const (
	AttrScanID        = "scan.id"
	AttrScanRoots     = "scan.roots"
	AttrScanFiles     = "scan.files"
	AttrScanSkipped   = "scan.skipped"
	AttrOrigin        = "registry.origin"
	AttrOriginCount   = "registry.origin_count"
	AttrTypeCount     = "registry.types"
	AttrPartCount     = "registry.parts"
	AttrPartName      = "part.name"
	AttrContractName  = "import.contract"
	AttrRequiredType  = "import.required_type"
	AttrCardinality   = "import.cardinality"
	AttrCandidates    = "match.candidates"
	AttrSatisfied     = "match.satisfied"
	AttrErrorMessage  = "error.message"
	AttrStoreSnapshot = "store.snapshot"
)

// Span names.
const (
	SpanScan          = "registry.scan"
	SpanRescan        = "registry.rescan"
	SpanParseManifest = "manifest.parse"
	SpanRegister      = "registry.register"
	SpanRemoveOrigin  = "registry.remove_origin"
	SpanResolveImport = "match.resolve_import"
	SpanResolvePart   = "match.resolve_part"
	SpanStoreSave     = "store.save"
	SpanStoreLoad     = "store.load"
)

// Event names for span events.
const (
	EventManifestSkipped = "manifest.skipped"
	EventOriginReplaced  = "origin.replaced"
	EventCacheFlushed    = "cache.flushed"
)
