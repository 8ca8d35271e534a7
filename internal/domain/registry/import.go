package registry

import "strings"

// Cardinality describes how many exports an import expects.
type Cardinality int

const (
	// ExactlyOne requires a single matching export.
	ExactlyOne Cardinality = iota
	// ZeroOrOne accepts at most one matching export.
	ZeroOrOne
	// ZeroOrMore accepts any number of matching exports.
	ZeroOrMore
)

// String returns a human-readable representation of the Cardinality.
func (c Cardinality) String() string {
	switch c {
	case ExactlyOne:
		return "exactly_one"
	case ZeroOrOne:
		return "zero_or_one"
	case ZeroOrMore:
		return "zero_or_more"
	default:
		return "unknown"
	}
}

// ParseCardinality parses the String form. Empty input yields ExactlyOne.
func ParseCardinality(s string) (Cardinality, bool) {
	switch strings.ToLower(s) {
	case "", "exactly_one":
		return ExactlyOne, true
	case "zero_or_one":
		return ZeroOrOne, true
	case "zero_or_more":
		return ZeroOrMore, true
	default:
		return ExactlyOne, false
	}
}

// Allows reports whether n matching exports satisfy the cardinality.
func (c Cardinality) Allows(n int) bool {
	switch c {
	case ExactlyOne:
		return n == 1
	case ZeroOrOne:
		return n <= 1
	default:
		return true
	}
}

// CreationPolicy describes how instances of an import should be shared.
type CreationPolicy int

const (
	AnyPolicy CreationPolicy = iota
	Shared
	NonShared
)

// String returns a human-readable representation of the CreationPolicy.
func (p CreationPolicy) String() string {
	switch p {
	case AnyPolicy:
		return "any"
	case Shared:
		return "shared"
	case NonShared:
		return "non_shared"
	default:
		return "unknown"
	}
}

// ParseCreationPolicy parses the String form. Empty input yields AnyPolicy.
func ParseCreationPolicy(s string) (CreationPolicy, bool) {
	switch strings.ToLower(s) {
	case "", "any":
		return AnyPolicy, true
	case "shared":
		return Shared, true
	case "non_shared":
		return NonShared, true
	default:
		return AnyPolicy, false
	}
}

// ImportDescriptor describes a contract required by a part.
// The set of implementations is closed: *PropertyImport and *ConstructorParameterImport.
//
// Cardinality, recomposability, prerequisite and creation policy are metadata
// for callers; matching never inspects them.
type ImportDescriptor interface {
	ContractName() string
	DeclaringType() TypeIdentity
	RequiredType() TypeIdentity
	Cardinality() Cardinality
	IsRecomposable() bool
	IsPrerequisite() bool
	CreationPolicy() CreationPolicy

	isImport()
}

// ImportOption configures an import during construction.
type ImportOption func(*importBase)

// WithCardinality sets the import cardinality.
func WithCardinality(c Cardinality) ImportOption {
	return func(b *importBase) { b.cardinality = c }
}

// Recomposable marks the import as recomposable.
func Recomposable() ImportOption {
	return func(b *importBase) { b.recomposable = true }
}

// Prerequisite overrides the prerequisite flag.
func Prerequisite(v bool) ImportOption {
	return func(b *importBase) { b.prerequisite = v }
}

// WithCreationPolicy sets the import creation policy.
func WithCreationPolicy(p CreationPolicy) ImportOption {
	return func(b *importBase) { b.creationPolicy = p }
}

type importBase struct {
	contractName   string
	declaringType  TypeIdentity
	requiredType   TypeIdentity
	cardinality    Cardinality
	recomposable   bool
	prerequisite   bool
	creationPolicy CreationPolicy
}

func (b *importBase) ContractName() string           { return b.contractName }
func (b *importBase) DeclaringType() TypeIdentity    { return b.declaringType }
func (b *importBase) RequiredType() TypeIdentity     { return b.requiredType }
func (b *importBase) Cardinality() Cardinality       { return b.cardinality }
func (b *importBase) IsRecomposable() bool           { return b.recomposable }
func (b *importBase) IsPrerequisite() bool           { return b.prerequisite }
func (b *importBase) CreationPolicy() CreationPolicy { return b.creationPolicy }

// PropertyImport is an import satisfied by setting a property.
type PropertyImport struct {
	importBase
	propertyName string
}

// NewPropertyImport creates a property import.
func NewPropertyImport(contractName string, declaringType TypeIdentity, propertyName string, requiredType TypeIdentity, opts ...ImportOption) *PropertyImport {
	imp := &PropertyImport{
		importBase: importBase{
			contractName:  contractName,
			declaringType: declaringType,
			requiredType:  requiredType,
		},
		propertyName: propertyName,
	}
	for _, opt := range opts {
		opt(&imp.importBase)
	}
	return imp
}

// PropertyName returns the name of the importing property.
func (i *PropertyImport) PropertyName() string {
	return i.propertyName
}

func (*PropertyImport) isImport() {}

// ConstructorParameterImport is an import satisfied through a constructor parameter.
// These are prerequisites unless overridden.
type ConstructorParameterImport struct {
	importBase
	parameterName string
	position      int
}

// NewConstructorParameterImport creates a constructor parameter import.
func NewConstructorParameterImport(contractName string, declaringType TypeIdentity, parameterName string, position int, requiredType TypeIdentity, opts ...ImportOption) *ConstructorParameterImport {
	imp := &ConstructorParameterImport{
		importBase: importBase{
			contractName:  contractName,
			declaringType: declaringType,
			requiredType:  requiredType,
			prerequisite:  true,
		},
		parameterName: parameterName,
		position:      position,
	}
	for _, opt := range opts {
		opt(&imp.importBase)
	}
	return imp
}

// ParameterName returns the constructor parameter name.
func (i *ConstructorParameterImport) ParameterName() string {
	return i.parameterName
}

// Position returns the zero-based parameter position.
func (i *ConstructorParameterImport) Position() int {
	return i.position
}

func (*ConstructorParameterImport) isImport() {}
