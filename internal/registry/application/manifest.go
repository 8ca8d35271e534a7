package application

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/partgraph/internal/domain/matching"
	"github.com/zjrosen/partgraph/internal/domain/registry"
)

// Manifest errors
var (
	ErrInvalidManifest = errors.New("invalid manifest")
	ErrContractMissing = errors.New("contract name required")
)

// Manifest is the root structure of a plugin manifest file. One manifest
// describes the types and parts discovered in one plugin artifact.
type Manifest struct {
	Types []TypeDef `yaml:"types,omitempty" json:"types,omitempty"`
	Parts []PartDef `yaml:"parts,omitempty" json:"parts,omitempty"`
}

// TypeDef describes one type.
type TypeDef struct {
	Name              string   `yaml:"name" json:"name"`
	Kind              string   `yaml:"kind,omitempty" json:"kind,omitempty"` // class, interface, or empty
	Base              string   `yaml:"base,omitempty" json:"base,omitempty"`
	Interfaces        []string `yaml:"interfaces,omitempty" json:"interfaces,omitempty"`
	GenericDefinition string   `yaml:"generic_definition,omitempty" json:"generic_definition,omitempty"`
}

// PartDef describes one composable part. Type names the declaring type; when
// it is not listed under types it is registered as a plain class.
type PartDef struct {
	Type    string      `yaml:"type" json:"type"`
	Exports []ExportDef `yaml:"exports,omitempty" json:"exports,omitempty"`
	Imports []ImportDef `yaml:"imports,omitempty" json:"imports,omitempty"`
}

// ExportDef describes one export. Kind is type, property or method.
// Type is the property type or the method return type; empty means void.
type ExportDef struct {
	Kind       string         `yaml:"kind,omitempty" json:"kind"`
	Contract   string         `yaml:"contract,omitempty" json:"contract,omitempty"`
	Member     string         `yaml:"member,omitempty" json:"member,omitempty"`
	Type       string         `yaml:"type,omitempty" json:"type,omitempty"`
	Parameters []ParameterDef `yaml:"parameters,omitempty" json:"parameters,omitempty"`
}

// ParameterDef is one method parameter.
type ParameterDef struct {
	Name string `yaml:"name,omitempty" json:"name"`
	Type string `yaml:"type,omitempty" json:"type"`
}

// ImportDef describes one import. Kind is property or constructor_parameter.
type ImportDef struct {
	Kind           string `yaml:"kind,omitempty" json:"kind"`
	Contract       string `yaml:"contract,omitempty" json:"contract,omitempty"`
	Member         string `yaml:"member,omitempty" json:"member,omitempty"`
	Position       int    `yaml:"position,omitempty" json:"position,omitempty"`
	Type           string `yaml:"type,omitempty" json:"type"`
	Cardinality    string `yaml:"cardinality,omitempty" json:"cardinality,omitempty"`
	Recomposable   bool   `yaml:"recomposable,omitempty" json:"recomposable,omitempty"`
	Prerequisite   *bool  `yaml:"prerequisite,omitempty" json:"prerequisite,omitempty"`
	CreationPolicy string `yaml:"creation_policy,omitempty" json:"creation_policy,omitempty"`
}

// Export and import kinds accepted in manifests.
const (
	KindType                 = "type"
	KindProperty             = "property"
	KindMethod               = "method"
	KindConstructorParameter = "constructor_parameter"

	kindClass     = "class"
	kindInterface = "interface"
)

// ParseManifest decodes YAML manifest content.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	return &m, nil
}

// DecodeTypes parses a types-only manifest, such as the framework manifest
// handed to RegistryService.AddFrameworkTypes.
func DecodeTypes(data []byte) ([]*registry.TypeDescription, error) {
	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}
	if len(m.Parts) > 0 {
		return nil, fmt.Errorf("%w: %d parts in a types-only manifest", ErrInvalidManifest, len(m.Parts))
	}
	d, err := m.decode(newInterner())
	if err != nil {
		return nil, err
	}
	return d.types, nil
}

// encodeSnapshot serializes a decoded manifest for the snapshot store.
func encodeSnapshot(m *Manifest) ([]byte, error) {
	return json.Marshal(m)
}

// decodeSnapshot is the inverse of encodeSnapshot.
func decodeSnapshot(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &m, nil
}

// interner parses identity strings once per scan and hands back the same
// identity value for every textual occurrence.
type interner struct {
	byText map[string]registry.TypeIdentity
	byKey  map[registry.IdentityKey]registry.TypeIdentity
}

func newInterner() *interner {
	return &interner{
		byText: make(map[string]registry.TypeIdentity),
		byKey:  make(map[registry.IdentityKey]registry.TypeIdentity),
	}
}

func (in *interner) identity(s string) (registry.TypeIdentity, error) {
	if id, ok := in.byText[s]; ok {
		return id, nil
	}
	id, err := registry.ParseTypeIdentity(s)
	if err != nil {
		return registry.TypeIdentity{}, err
	}
	if existing, ok := in.byKey[id.Key()]; ok {
		id = existing
	} else {
		in.byKey[id.Key()] = id
	}
	in.byText[s] = id
	return id, nil
}

// optional parses s, returning the zero identity for an empty string.
func (in *interner) optional(s string) (registry.TypeIdentity, error) {
	if strings.TrimSpace(s) == "" {
		return registry.TypeIdentity{}, nil
	}
	return in.identity(s)
}

// decoded is a manifest converted into domain descriptions.
type decoded struct {
	types []*registry.TypeDescription
	parts []*registry.PartDescription
	// implicit marks types synthesized for part declaring types.
	implicit map[registry.IdentityKey]bool
}

// decode converts m into domain descriptions. Declaring types of parts that
// are not listed under types are synthesized as classes.
func (m *Manifest) decode(in *interner) (*decoded, error) {
	out := &decoded{implicit: make(map[registry.IdentityKey]bool)}
	declared := make(map[registry.IdentityKey]bool, len(m.Types))

	for i, def := range m.Types {
		desc, err := def.decode(in)
		if err != nil {
			return nil, fmt.Errorf("types[%d] %q: %w", i, def.Name, err)
		}
		if declared[desc.Identity().Key()] {
			return nil, fmt.Errorf("types[%d]: %w: %s listed twice", i, ErrInvalidManifest, desc.Identity())
		}
		declared[desc.Identity().Key()] = true
		out.types = append(out.types, desc)
	}

	for i, def := range m.Parts {
		part, err := def.decode(in)
		if err != nil {
			return nil, fmt.Errorf("parts[%d] %q: %w", i, def.Type, err)
		}
		if !declared[part.Identity().Key()] {
			desc, err := registry.NewTypeBuilder(part.Identity()).Class().Build()
			if err != nil {
				return nil, fmt.Errorf("parts[%d] %q: %w", i, def.Type, err)
			}
			declared[part.Identity().Key()] = true
			out.implicit[part.Identity().Key()] = true
			out.types = append(out.types, desc)
		}
		out.parts = append(out.parts, part)
	}
	return out, nil
}

func (def TypeDef) decode(in *interner) (*registry.TypeDescription, error) {
	id, err := in.identity(def.Name)
	if err != nil {
		return nil, err
	}
	b := registry.NewTypeBuilder(id)

	switch strings.ToLower(def.Kind) {
	case kindClass:
		b.Class()
	case kindInterface:
		b.Interface()
	case "":
	default:
		return nil, fmt.Errorf("%w: unknown type kind %q", ErrInvalidManifest, def.Kind)
	}

	base, err := in.optional(def.Base)
	if err != nil {
		return nil, fmt.Errorf("base: %w", err)
	}
	b.Base(base)

	for _, s := range def.Interfaces {
		iface, err := in.identity(s)
		if err != nil {
			return nil, fmt.Errorf("interface: %w", err)
		}
		b.Interfaces(iface)
	}

	genericDef, err := in.optional(def.GenericDefinition)
	if err != nil {
		return nil, fmt.Errorf("generic_definition: %w", err)
	}
	if genericDef.IsZero() {
		// Closed generics default to their structural definition
		genericDef, _ = id.Definition()
	}
	b.GenericDefinition(genericDef)

	return b.Build()
}

func (def PartDef) decode(in *interner) (*registry.PartDescription, error) {
	id, err := in.identity(def.Type)
	if err != nil {
		return nil, err
	}

	exports := make([]registry.ExportDescriptor, 0, len(def.Exports))
	for i, e := range def.Exports {
		exp, err := e.decode(in, id)
		if err != nil {
			return nil, fmt.Errorf("exports[%d]: %w", i, err)
		}
		exports = append(exports, exp)
	}

	imports := make([]registry.ImportDescriptor, 0, len(def.Imports))
	for i, im := range def.Imports {
		imp, err := im.decode(in, id)
		if err != nil {
			return nil, fmt.Errorf("imports[%d]: %w", i, err)
		}
		imports = append(imports, imp)
	}

	return registry.NewPart(id, imports, exports)
}

func (def ExportDef) decode(in *interner, declaring registry.TypeIdentity) (registry.ExportDescriptor, error) {
	typ, err := in.optional(def.Type)
	if err != nil {
		return nil, fmt.Errorf("type: %w", err)
	}

	switch strings.ToLower(def.Kind) {
	case KindType, "":
		return registry.NewTypeExport(contractOr(def.Contract, declaring), declaring), nil

	case KindProperty:
		if def.Member == "" || typ.IsZero() {
			return nil, fmt.Errorf("%w: property export needs member and type", ErrInvalidManifest)
		}
		return registry.NewPropertyExport(contractOr(def.Contract, typ), declaring, def.Member, typ), nil

	case KindMethod:
		if def.Member == "" {
			return nil, fmt.Errorf("%w: method export needs member", ErrInvalidManifest)
		}
		contract := def.Contract
		if contract == "" {
			if typ.IsZero() {
				return nil, fmt.Errorf("void method %s: %w", def.Member, ErrContractMissing)
			}
			contract = typ.String()
		}
		params := make([]registry.Parameter, 0, len(def.Parameters))
		for _, p := range def.Parameters {
			pt, err := in.identity(p.Type)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", p.Name, err)
			}
			params = append(params, registry.Parameter{Name: p.Name, Type: pt})
		}
		return registry.NewMethodExport(contract, declaring, def.Member, typ, params...), nil

	default:
		return nil, fmt.Errorf("%w: unknown export kind %q", ErrInvalidManifest, def.Kind)
	}
}

func (def ImportDef) decode(in *interner, declaring registry.TypeIdentity) (registry.ImportDescriptor, error) {
	required, err := in.identity(def.Type)
	if err != nil {
		return nil, fmt.Errorf("type: %w", err)
	}

	contract := def.Contract
	if contract == "" {
		c, ok := defaultImportContract(required)
		if !ok {
			return nil, fmt.Errorf("import of %s: %w", required, ErrContractMissing)
		}
		contract = c.String()
	}

	var opts []registry.ImportOption
	if def.Cardinality != "" {
		c, ok := registry.ParseCardinality(def.Cardinality)
		if !ok {
			return nil, fmt.Errorf("%w: unknown cardinality %q", ErrInvalidManifest, def.Cardinality)
		}
		opts = append(opts, registry.WithCardinality(c))
	}
	if def.CreationPolicy != "" {
		p, ok := registry.ParseCreationPolicy(def.CreationPolicy)
		if !ok {
			return nil, fmt.Errorf("%w: unknown creation policy %q", ErrInvalidManifest, def.CreationPolicy)
		}
		opts = append(opts, registry.WithCreationPolicy(p))
	}
	if def.Recomposable {
		opts = append(opts, registry.Recomposable())
	}
	if def.Prerequisite != nil {
		opts = append(opts, registry.Prerequisite(*def.Prerequisite))
	}

	switch strings.ToLower(def.Kind) {
	case KindProperty, "":
		if def.Member == "" {
			return nil, fmt.Errorf("%w: property import needs member", ErrInvalidManifest)
		}
		return registry.NewPropertyImport(contract, declaring, def.Member, required, opts...), nil
	case KindConstructorParameter:
		if def.Position < 0 {
			return nil, fmt.Errorf("%w: negative parameter position", ErrInvalidManifest)
		}
		return registry.NewConstructorParameterImport(contract, declaring, def.Member, def.Position, required, opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown import kind %q", ErrInvalidManifest, def.Kind)
	}
}

func contractOr(contract string, id registry.TypeIdentity) string {
	if contract != "" {
		return contract
	}
	return id.String()
}

// defaultImportContract derives the contract of an import that names none:
// the element of a collection, the value of a lazy handle, the result of a
// supplier, otherwise the required type itself. Actions have no default.
func defaultImportContract(required registry.TypeIdentity) (registry.TypeIdentity, bool) {
	t := required
	for depth := 0; depth < 2; depth++ {
		kind, ok := structuralShape(t)
		if !ok {
			return t, true
		}
		switch kind {
		case matching.ShapeCollection, matching.ShapeLazy:
			t = t.Argument(0)
		case matching.ShapeFunc:
			return t.Argument(t.Arity() - 1), true
		default:
			return registry.TypeIdentity{}, false
		}
	}
	return t, true
}

// structuralShape names the wrapper shape t closes by its own definition.
func structuralShape(t registry.TypeIdentity) (matching.ShapeKind, bool) {
	def, ok := t.Definition()
	if !ok {
		return 0, false
	}
	for _, s := range matching.Shapes() {
		if s.Definition.Equal(def) {
			return s.Kind, true
		}
	}
	return 0, false
}
