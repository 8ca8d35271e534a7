// Package registry implements the domain layer of the plugin composition registry.
//
// This package follows the same rules as the rest of the domain layer:
//   - Contains only pure Go code with standard library imports (no external dependencies)
//   - Defines value objects (TypeIdentity) and immutable entities (TypeDescription,
//     PartDescription, export and import descriptors)
//   - Implements domain logic (relationship graph reconciliation, reachability)
//   - Has no knowledge of infrastructure concerns (manifest parsing, file watching, storage)
//
// # Core Types
//
// TypeIdentity is the structural fingerprint of a type: a fully qualified name plus
// ordered generic arguments. Its textual form is parsed by ParseTypeIdentity:
//
//	Acme.Widget
//	System.Lazy`1                          (open generic definition)
//	System.Func`2[System.Int32,Acme.IWidget] (closed generic)
//
// TypeDescription records base type, interfaces, generic definition and kind.
// Use TypeBuilder for construction.
//
// PartDescription groups the ExportDescriptor and ImportDescriptor values of a part.
// Both descriptor families are closed sets of concrete types; switch on them
// exhaustively.
//
// # Registry Collection
//
// Registry is generic over the origin key that produced its contents. It provides:
//   - AddType/AddTypeFrom/AddPart for registration (duplicates are rejected)
//   - RemoveByOrigin for bulk removal
//   - TypeByIdentity/TypeByName/Part lookups that fail with ErrUnknownType/ErrUnknownPart
//   - ContainsType/IsSubtypeOf existence checks that return false for unknown identities
//
// The relationship graph has an edge from every type to its base type, generic
// definition and interfaces. Edges are reconciled on every insert, so insertion
// order does not affect reachability.
//
// TypeGraph and PartSource are the read-only interfaces Registry implements.
package registry
