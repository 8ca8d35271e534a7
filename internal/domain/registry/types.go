package registry

// TypeDescription is the metadata recorded for a single type.
// It is immutable once built; use TypeBuilder for construction.
type TypeDescription struct {
	identity          TypeIdentity
	baseType          *TypeIdentity  // nil for roots and interfaces
	interfaces        []TypeIdentity // implemented or inherited, deduplicated, sorted
	genericDefinition *TypeIdentity  // nil when the type is itself a definition
	isClass           bool
	isInterface       bool
}

// Identity returns the type identity.
func (d *TypeDescription) Identity() TypeIdentity {
	return d.identity
}

// BaseType returns the base type, if any.
func (d *TypeDescription) BaseType() (TypeIdentity, bool) {
	if d.baseType == nil {
		return TypeIdentity{}, false
	}
	return *d.baseType, true
}

// Interfaces returns the implemented interface identities.
func (d *TypeDescription) Interfaces() []TypeIdentity {
	out := make([]TypeIdentity, len(d.interfaces))
	copy(out, d.interfaces)
	return out
}

// GenericDefinition returns the generic type definition of a closed generic.
func (d *TypeDescription) GenericDefinition() (TypeIdentity, bool) {
	if d.genericDefinition == nil {
		return TypeIdentity{}, false
	}
	return *d.genericDefinition, true
}

// IsClass reports whether the type is a class.
func (d *TypeDescription) IsClass() bool {
	return d.isClass
}

// IsInterface reports whether the type is an interface.
func (d *TypeDescription) IsInterface() bool {
	return d.isInterface
}

// ancestors returns every identity this type declares a relation to:
// base type, generic definition and interfaces.
func (d *TypeDescription) ancestors() []TypeIdentity {
	out := make([]TypeIdentity, 0, len(d.interfaces)+2)
	if d.baseType != nil {
		out = append(out, *d.baseType)
	}
	if d.genericDefinition != nil {
		out = append(out, *d.genericDefinition)
	}
	return append(out, d.interfaces...)
}
