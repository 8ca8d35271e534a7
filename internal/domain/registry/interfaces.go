package registry

// TypeGraph defines read-only access to registered types and their relationships.
// This interface lets the matching engine consult a registry without depending
// on its origin type, and allows test doubles to be substituted.
type TypeGraph interface {
	// TypeByIdentity returns the description registered for id.
	// Returns ErrUnknownType if no type matches.
	TypeByIdentity(id TypeIdentity) (*TypeDescription, error)

	// ContainsType reports whether id is registered.
	ContainsType(id TypeIdentity) bool

	// IsSubtypeOf reports whether child derives from, implements or closes parent.
	// Returns false when either identity is unknown.
	IsSubtypeOf(parent, child TypeIdentity) bool
}

// PartSource defines read-only access to registered parts.
type PartSource interface {
	// Part returns the part declared by id.
	// Returns ErrUnknownPart if no part matches.
	Part(id TypeIdentity) (*PartDescription, error)

	// Parts returns all registered parts, sorted by identity.
	Parts() []*PartDescription
}

// Compile-time checks that Registry implements the read interfaces.
var (
	_ TypeGraph  = (*Registry[string])(nil)
	_ PartSource = (*Registry[string])(nil)
)
