package presentation

import (
	"github.com/zjrosen/partgraph/internal/domain/registry"
	"github.com/zjrosen/partgraph/internal/registry/application"
)

// TypeDTO represents a registered type for presentation
type TypeDTO struct {
	Identity          string   `json:"identity"`
	Kind              string   `json:"kind"`
	Base              string   `json:"base,omitempty"`
	Interfaces        []string `json:"interfaces,omitempty"`
	GenericDefinition string   `json:"generic_definition,omitempty"`
	Ancestors         []string `json:"ancestors"` // always present, every reachable base
}

// ParameterDTO represents a method parameter
type ParameterDTO struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ExportDTO represents an export descriptor
type ExportDTO struct {
	Kind       string         `json:"kind"`
	Contract   string         `json:"contract"`
	Member     string         `json:"member,omitempty"`
	Type       string         `json:"type,omitempty"`
	Parameters []ParameterDTO `json:"parameters,omitempty"`
}

// ImportDTO represents an import descriptor
type ImportDTO struct {
	Kind           string `json:"kind"`
	Contract       string `json:"contract"`
	Member         string `json:"member"`
	Position       *int   `json:"position,omitempty"`
	RequiredType   string `json:"required_type"`
	Cardinality    string `json:"cardinality"`
	CreationPolicy string `json:"creation_policy"`
	Recomposable   bool   `json:"recomposable"`
	Prerequisite   bool   `json:"prerequisite"`
}

// PartDTO represents a registered part and the manifest it came from
type PartDTO struct {
	Identity string      `json:"identity"`
	Origin   string      `json:"origin"`
	Exports  []ExportDTO `json:"exports"`
	Imports  []ImportDTO `json:"imports"`
}

// CandidateDTO is one export that satisfies an import
type CandidateDTO struct {
	Part   string    `json:"part"`
	Origin string    `json:"origin"`
	Rule   string    `json:"rule"`
	Export ExportDTO `json:"export"`
}

// ResolutionDTO lists the candidates found for one import
type ResolutionDTO struct {
	Import     ImportDTO      `json:"import"`
	Satisfied  bool           `json:"satisfied"`
	Candidates []CandidateDTO `json:"candidates"`
}

// MatchDTO is the result of resolving every import of a part
type MatchDTO struct {
	Part        string          `json:"part"`
	Satisfied   bool            `json:"satisfied"`
	Resolutions []ResolutionDTO `json:"resolutions"`
}

// SubtypeDTO answers whether child derives from parent
type SubtypeDTO struct {
	Parent    string `json:"parent"`
	Child     string `json:"child"`
	IsSubtype bool   `json:"is_subtype"`
}

// OriginDTO is one manifest known to the registry
type OriginDTO struct {
	Origin string   `json:"origin"`
	Parts  []string `json:"parts"`
}

// ScanReportDTO summarizes a scan
type ScanReportDTO struct {
	ID         string   `json:"id"`
	Files      int      `json:"files"`
	Added      []string `json:"added"`
	Replaced   []string `json:"replaced"`
	Unchanged  []string `json:"unchanged"`
	Removed    []string `json:"removed"`
	Failed     []string `json:"failed"`
	Restored   []string `json:"restored,omitempty"`
	Cached     int      `json:"cached"`
	DurationMS int64    `json:"duration_ms"`
	Types      int      `json:"types"`
	Parts      int      `json:"parts"`
	Errors     []string `json:"errors,omitempty"`
}

func identities(ids []registry.TypeIdentity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func origins(list []application.FileOrigin) []string {
	out := make([]string, len(list))
	for i, o := range list {
		out[i] = string(o)
	}
	return out
}

// FromDomainType converts a type description to a DTO. ancestors comes from
// the registry's relationship graph.
func FromDomainType(desc *registry.TypeDescription, ancestors []registry.TypeIdentity) TypeDTO {
	dto := TypeDTO{
		Identity:   desc.Identity().String(),
		Kind:       "type",
		Interfaces: identities(desc.Interfaces()),
		Ancestors:  identities(ancestors),
	}
	switch {
	case desc.IsClass():
		dto.Kind = "class"
	case desc.IsInterface():
		dto.Kind = "interface"
	}
	if base, ok := desc.BaseType(); ok {
		dto.Base = base.String()
	}
	if def, ok := desc.GenericDefinition(); ok {
		dto.GenericDefinition = def.String()
	}
	return dto
}

// FromDomainExport converts an export descriptor to a DTO
func FromDomainExport(exp registry.ExportDescriptor) ExportDTO {
	dto := ExportDTO{Contract: exp.ContractName()}
	if t, ok := exp.ExportedType(); ok {
		dto.Type = t.String()
	}
	switch e := exp.(type) {
	case *registry.TypeExport:
		dto.Kind = "type"
	case *registry.PropertyExport:
		dto.Kind = "property"
		dto.Member = e.PropertyName()
	case *registry.MethodExport:
		dto.Kind = "method"
		dto.Member = e.MethodName()
		for _, p := range e.Parameters() {
			dto.Parameters = append(dto.Parameters, ParameterDTO{Name: p.Name, Type: p.Type.String()})
		}
	}
	return dto
}

// FromDomainImport converts an import descriptor to a DTO
func FromDomainImport(imp registry.ImportDescriptor) ImportDTO {
	dto := ImportDTO{
		Contract:       imp.ContractName(),
		RequiredType:   imp.RequiredType().String(),
		Cardinality:    imp.Cardinality().String(),
		CreationPolicy: imp.CreationPolicy().String(),
		Recomposable:   imp.IsRecomposable(),
		Prerequisite:   imp.IsPrerequisite(),
	}
	switch i := imp.(type) {
	case *registry.PropertyImport:
		dto.Kind = "property"
		dto.Member = i.PropertyName()
	case *registry.ConstructorParameterImport:
		dto.Kind = "constructor_parameter"
		dto.Member = i.ParameterName()
		pos := i.Position()
		dto.Position = &pos
	}
	return dto
}

// FromDomainPart converts a part description to a DTO
func FromDomainPart(part *registry.PartDescription, origin application.FileOrigin) PartDTO {
	exports := make([]ExportDTO, 0, len(part.Exports()))
	for _, exp := range part.Exports() {
		exports = append(exports, FromDomainExport(exp))
	}
	imports := make([]ImportDTO, 0, len(part.Imports()))
	for _, imp := range part.Imports() {
		imports = append(imports, FromDomainImport(imp))
	}
	return PartDTO{
		Identity: part.Identity().String(),
		Origin:   string(origin),
		Exports:  exports,
		Imports:  imports,
	}
}

// FromResolution converts an import resolution to a DTO
func FromResolution(res application.Resolution) ResolutionDTO {
	candidates := make([]CandidateDTO, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		candidates = append(candidates, CandidateDTO{
			Part:   c.Part.String(),
			Origin: string(c.Origin),
			Rule:   string(c.Rule),
			Export: FromDomainExport(c.Export),
		})
	}
	return ResolutionDTO{
		Import:     FromDomainImport(res.Import),
		Satisfied:  res.Satisfied,
		Candidates: candidates,
	}
}

// FromResolutions builds the match result for part. A part without imports
// is trivially satisfied.
func FromResolutions(part registry.TypeIdentity, resolutions []application.Resolution) MatchDTO {
	dto := MatchDTO{
		Part:        part.String(),
		Satisfied:   true,
		Resolutions: make([]ResolutionDTO, 0, len(resolutions)),
	}
	for _, res := range resolutions {
		dto.Resolutions = append(dto.Resolutions, FromResolution(res))
		dto.Satisfied = dto.Satisfied && res.Satisfied
	}
	return dto
}

// FromScanReport converts a scan report to a DTO. err is the aggregated
// scan error, if any; stats are the registry counts after the scan.
func FromScanReport(report *application.ScanReport, stats registry.Stats, errs []error) ScanReportDTO {
	dto := ScanReportDTO{
		ID:         report.ID,
		Files:      report.Files,
		Added:      origins(report.Added),
		Replaced:   origins(report.Replaced),
		Unchanged:  origins(report.Unchanged),
		Removed:    origins(report.Removed),
		Failed:     origins(report.Failed),
		Cached:     report.Cached,
		DurationMS: report.Duration.Milliseconds(),
		Types:      stats.Types,
		Parts:      stats.Parts,
	}
	if len(report.Restored) > 0 {
		dto.Restored = origins(report.Restored)
	}
	for _, err := range errs {
		dto.Errors = append(dto.Errors, err.Error())
	}
	return dto
}

// FromRegistry lists every known origin with the parts it contributed, in
// first-seen order.
func FromRegistry(reg *registry.Registry[application.FileOrigin]) []OriginDTO {
	byOrigin := make(map[application.FileOrigin][]string)
	for _, part := range reg.Parts() {
		if origin, ok := reg.PartOrigin(part.Identity()); ok {
			byOrigin[origin] = append(byOrigin[origin], part.Identity().String())
		}
	}
	known := reg.KnownOrigins()
	out := make([]OriginDTO, 0, len(known))
	for _, o := range known {
		parts := byOrigin[o]
		if parts == nil {
			parts = []string{}
		}
		out = append(out, OriginDTO{Origin: string(o), Parts: parts})
	}
	return out
}
