package registry

import "slices"

// PartDescription describes a plugin-provided component: its declaring type
// and the contracts it exports and imports.
type PartDescription struct {
	identity TypeIdentity
	imports  []ImportDescriptor
	exports  []ExportDescriptor
}

// NewPart creates a part description.
func NewPart(id TypeIdentity, imports []ImportDescriptor, exports []ExportDescriptor) (*PartDescription, error) {
	if id.IsZero() {
		return nil, ErrEmptyIdentity
	}
	return &PartDescription{
		identity: id,
		imports:  slices.Clone(imports),
		exports:  slices.Clone(exports),
	}, nil
}

// Identity returns the declaring type identity.
func (p *PartDescription) Identity() TypeIdentity {
	return p.identity
}

// Imports returns the required contracts.
func (p *PartDescription) Imports() []ImportDescriptor {
	return slices.Clone(p.imports)
}

// Exports returns the published contracts.
func (p *PartDescription) Exports() []ExportDescriptor {
	return slices.Clone(p.exports)
}
