package registry

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Registry errors
var (
	ErrDuplicateType  = errors.New("type already registered")
	ErrDuplicatePart  = errors.New("part already registered")
	ErrUnknownType    = errors.New("unknown type")
	ErrUnknownPart    = errors.New("unknown part")
	ErrNilDescription = errors.New("description cannot be nil")
	ErrEmptyName      = errors.New("type name cannot be empty")
)

// typeEntry is a registered type and the origin that owns it, if any.
type typeEntry[O comparable] struct {
	desc   *TypeDescription
	origin O
	owned  bool
}

// partEntry is a registered part and the origin it came from.
type partEntry[O comparable] struct {
	desc   *PartDescription
	origin O
}

// Registry holds all known types and parts plus the derived type-relationship
// graph. O is the opaque origin key used for bulk removal; it is never interpreted.
//
// Every operation, reads included, runs under one exclusive lock so the maps
// and the graph are always observed together.
type Registry[O comparable] struct {
	mu      sync.Mutex
	types   map[IdentityKey]*typeEntry[O]
	byName  map[string]TypeIdentity
	parts   map[IdentityKey]*partEntry[O]
	origins []O
	graph   *relationGraph
}

// NewRegistry creates a new empty registry
func NewRegistry[O comparable]() *Registry[O] {
	return &Registry[O]{
		types:  make(map[IdentityKey]*typeEntry[O]),
		byName: make(map[string]TypeIdentity),
		parts:  make(map[IdentityKey]*partEntry[O]),
		graph:  newRelationGraph(),
	}
}

// AddType registers a type that no origin owns. Such types survive every
// RemoveByOrigin; use it for framework types shared by all plugins.
func (r *Registry[O]) AddType(desc *TypeDescription) error {
	var zero O
	return r.addType(desc, zero, false)
}

// AddTypeFrom registers a type owned by origin. The type is removed together
// with the origin.
func (r *Registry[O]) AddTypeFrom(desc *TypeDescription, origin O) error {
	return r.addType(desc, origin, true)
}

func (r *Registry[O]) addType(desc *TypeDescription, origin O, owned bool) error {
	if desc == nil {
		return ErrNilDescription
	}
	if desc.identity.IsZero() {
		return ErrEmptyIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := desc.identity.Key()
	if _, exists := r.types[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, desc.identity)
	}

	r.types[key] = &typeEntry[O]{desc: desc, origin: origin, owned: owned}
	if _, exists := r.byName[desc.identity.String()]; !exists {
		r.byName[desc.identity.String()] = desc.identity
	}
	if owned {
		r.recordOrigin(origin)
	}

	ancestors := desc.ancestors()
	keys := make([]IdentityKey, len(ancestors))
	for i, a := range ancestors {
		keys[i] = a.Key()
	}
	r.graph.addVertex(key, keys)
	return nil
}

// AddPart registers a part discovered in origin.
func (r *Registry[O]) AddPart(desc *PartDescription, origin O) error {
	if desc == nil {
		return ErrNilDescription
	}
	if desc.identity.IsZero() {
		return ErrEmptyIdentity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := desc.identity.Key()
	if _, exists := r.parts[key]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicatePart, desc.identity)
	}

	r.parts[key] = &partEntry[O]{desc: desc, origin: origin}
	r.recordOrigin(origin)
	return nil
}

// recordOrigin appends origin to the known origins if not already present.
// Caller must hold r.mu.
func (r *Registry[O]) recordOrigin(origin O) {
	if !slices.Contains(r.origins, origin) {
		r.origins = append(r.origins, origin)
	}
}

// RemoveByOrigin removes every part recorded under one of origins, the type
// declaring each such part, every type owned by one of origins, and their graph
// vertices. Origins that are not known are ignored.
func (r *Registry[O]) RemoveByOrigin(origins ...O) {
	if len(origins) == 0 {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	remove := make(map[O]bool, len(origins))
	for _, o := range origins {
		remove[o] = true
	}

	for key, part := range r.parts {
		if !remove[part.origin] {
			continue
		}
		delete(r.parts, key)
		r.removeTypeLocked(key)
	}
	for key, entry := range r.types {
		if entry.owned && remove[entry.origin] {
			r.removeTypeLocked(key)
		}
	}

	r.origins = slices.DeleteFunc(r.origins, func(o O) bool { return remove[o] })
}

// removeTypeLocked drops a type and its vertex. Caller must hold r.mu.
func (r *Registry[O]) removeTypeLocked(key IdentityKey) {
	entry, ok := r.types[key]
	if !ok {
		return
	}
	delete(r.types, key)
	name := entry.desc.identity.String()
	if id, ok := r.byName[name]; ok && id.Key() == key {
		delete(r.byName, name)
	}
	r.graph.removeVertex(key)
}

// ContainsType reports whether id is registered.
func (r *Registry[O]) ContainsType(id TypeIdentity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.types[id.Key()]
	return ok
}

// ContainsTypeName reports whether a type with the given name is registered.
func (r *Registry[O]) ContainsTypeName(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.byName[name]
	return ok
}

// TypeByIdentity returns the description registered for id.
// Returns ErrUnknownType if no type matches.
func (r *Registry[O]) TypeByIdentity(id TypeIdentity) (*TypeDescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.types[id.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, id)
	}
	return entry.desc, nil
}

// TypeByName returns the description registered under name.
// Returns ErrEmptyName for an empty name and ErrUnknownType if no type matches.
func (r *Registry[O]) TypeByName(name string) (*TypeDescription, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	return r.types[id.Key()].desc, nil
}

// IdentityByName returns the identity registered under name.
func (r *Registry[O]) IdentityByName(name string) (TypeIdentity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.byName[name]
	return id, ok
}

// Part returns the part declared by id.
// Returns ErrUnknownPart if no part matches.
func (r *Registry[O]) Part(id TypeIdentity) (*PartDescription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.parts[id.Key()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPart, id)
	}
	return entry.desc, nil
}

// PartOrigin returns the origin a part was registered from.
func (r *Registry[O]) PartOrigin(id TypeIdentity) (O, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.parts[id.Key()]
	if !ok {
		var zero O
		return zero, false
	}
	return entry.origin, true
}

// IsSubtypeOf reports whether a directed path leads from child to parent,
// i.e. child derives from, implements, or closes parent. Unknown identities
// yield false rather than an error.
func (r *Registry[O]) IsSubtypeOf(parent, child TypeIdentity) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.graph.reachable(child.Key(), parent.Key())
}

// Ancestors returns every type reachable from id, sorted.
func (r *Registry[O]) Ancestors(id TypeIdentity) []TypeIdentity {
	r.mu.Lock()
	defer r.mu.Unlock()

	keys := r.graph.ancestorsOf(id.Key())
	out := make([]TypeIdentity, 0, len(keys))
	for _, k := range keys {
		out = append(out, r.types[k].desc.identity)
	}
	slices.SortFunc(out, TypeIdentity.Compare)
	return out
}

// KnownOrigins returns every origin with registered content, in first-seen order.
func (r *Registry[O]) KnownOrigins() []O {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.origins)
}

// Parts returns all registered parts, sorted by identity.
func (r *Registry[O]) Parts() []*PartDescription {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*PartDescription, 0, len(r.parts))
	for _, p := range r.parts {
		out = append(out, p.desc)
	}
	slices.SortFunc(out, func(a, b *PartDescription) int {
		return a.identity.Compare(b.identity)
	})
	return out
}

// Types returns all registered types, sorted by identity.
func (r *Registry[O]) Types() []*TypeDescription {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*TypeDescription, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t.desc)
	}
	slices.SortFunc(out, func(a, b *TypeDescription) int {
		return a.identity.Compare(b.identity)
	})
	return out
}

// Stats returns the number of types, parts and graph edges.
func (r *Registry[O]) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		Types:   len(r.types),
		Parts:   len(r.parts),
		Origins: len(r.origins),
		Edges:   r.graph.edgeCount(),
	}
}

// Stats is a point-in-time count of registry contents.
type Stats struct {
	Types   int
	Parts   int
	Origins int
	Edges   int
}
