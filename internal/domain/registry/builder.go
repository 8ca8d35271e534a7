package registry

import (
	"errors"
	"slices"
)

// Builder errors
var (
	ErrEmptyIdentity = errors.New("type identity cannot be empty")
	ErrClassAndIface = errors.New("type cannot be both class and interface")
)

// TypeBuilder provides a fluent API for creating type descriptions
type TypeBuilder struct {
	identity          TypeIdentity
	baseType          TypeIdentity
	interfaces        []TypeIdentity
	genericDefinition TypeIdentity
	isClass           bool
	isInterface       bool
}

// NewTypeBuilder creates a new type description builder
func NewTypeBuilder(id TypeIdentity) *TypeBuilder {
	return &TypeBuilder{
		identity: id,
	}
}

// Base sets the base type
func (b *TypeBuilder) Base(id TypeIdentity) *TypeBuilder {
	b.baseType = id
	return b
}

// Interfaces appends implemented interfaces
func (b *TypeBuilder) Interfaces(ids ...TypeIdentity) *TypeBuilder {
	b.interfaces = append(b.interfaces, ids...)
	return b
}

// GenericDefinition sets the generic type definition this type closes
func (b *TypeBuilder) GenericDefinition(id TypeIdentity) *TypeBuilder {
	b.genericDefinition = id
	return b
}

// Class marks the type as a class
func (b *TypeBuilder) Class() *TypeBuilder {
	b.isClass = true
	return b
}

// Interface marks the type as an interface
func (b *TypeBuilder) Interface() *TypeBuilder {
	b.isInterface = true
	return b
}

// Build creates the type description, validating required fields.
// A generic definition equal to the identity itself is dropped so that
// descriptions are never self-referential.
func (b *TypeBuilder) Build() (*TypeDescription, error) {
	if b.identity.IsZero() {
		return nil, ErrEmptyIdentity
	}
	if b.isClass && b.isInterface {
		return nil, ErrClassAndIface
	}

	desc := &TypeDescription{
		identity:    b.identity,
		isClass:     b.isClass,
		isInterface: b.isInterface,
	}
	if !b.baseType.IsZero() && !b.baseType.Equal(b.identity) {
		base := b.baseType
		desc.baseType = &base
	}
	if !b.genericDefinition.IsZero() && !b.genericDefinition.Equal(b.identity) {
		def := b.genericDefinition
		desc.genericDefinition = &def
	}

	seen := make(map[IdentityKey]bool, len(b.interfaces))
	for _, iface := range b.interfaces {
		if iface.IsZero() || iface.Equal(b.identity) || seen[iface.Key()] {
			continue
		}
		seen[iface.Key()] = true
		desc.interfaces = append(desc.interfaces, iface)
	}
	slices.SortFunc(desc.interfaces, TypeIdentity.Compare)

	return desc, nil
}
