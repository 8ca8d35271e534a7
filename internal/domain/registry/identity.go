package registry

import (
	"errors"
	"fmt"
	"strings"
)

// Identity errors
var (
	ErrInvalidIdentity = errors.New("invalid type identity")
)

// IdentityKey is the hashable form of a TypeIdentity.
// Two identities are equal iff their keys are equal.
type IdentityKey string

// TypeIdentity is the structural fingerprint of a type: its fully qualified
// name plus its ordered generic type arguments.
//
// Generic definitions carry their arity in the name using the "`N" suffix
// (e.g. "System.Lazy`1"), so definitions of different arity never collide.
// A closed generic shares the definition's name and adds its arguments.
type TypeIdentity struct {
	name    string
	generic bool
	args    []TypeIdentity
	key     IdentityKey
}

// NewTypeIdentity creates an identity for name closed over args.
// The identity is generic when args are given or when name carries an arity suffix.
func NewTypeIdentity(name string, args ...TypeIdentity) TypeIdentity {
	id := TypeIdentity{
		name:    name,
		generic: len(args) > 0 || arityOf(name) > 0,
	}
	if len(args) > 0 {
		id.args = make([]TypeIdentity, len(args))
		copy(id.args, args)
	}
	id.key = IdentityKey(id.format())
	return id
}

// NewGenericDefinition creates the identity of an open generic type definition.
func NewGenericDefinition(name string) TypeIdentity {
	id := NewTypeIdentity(name)
	id.generic = true
	return id
}

// Name returns the fully qualified name without type arguments.
func (t TypeIdentity) Name() string {
	return t.name
}

// IsZero reports whether t is the zero identity.
func (t TypeIdentity) IsZero() bool {
	return t.name == ""
}

// IsGenericType reports whether t is a generic definition or a closed generic.
func (t TypeIdentity) IsGenericType() bool {
	return t.generic
}

// IsOpenGeneric reports whether t is a generic definition without arguments.
func (t TypeIdentity) IsOpenGeneric() bool {
	return t.generic && len(t.args) == 0
}

// TypeArguments returns a copy of the generic arguments.
func (t TypeIdentity) TypeArguments() []TypeIdentity {
	if len(t.args) == 0 {
		return nil
	}
	out := make([]TypeIdentity, len(t.args))
	copy(out, t.args)
	return out
}

// Arity returns the number of generic arguments.
func (t TypeIdentity) Arity() int {
	return len(t.args)
}

// Argument returns the i-th generic argument.
func (t TypeIdentity) Argument(i int) TypeIdentity {
	return t.args[i]
}

// Definition returns the open generic definition a closed generic was built from.
// Returns false for non-generic and already-open identities.
func (t TypeIdentity) Definition() (TypeIdentity, bool) {
	if len(t.args) == 0 {
		return TypeIdentity{}, false
	}
	return NewGenericDefinition(t.name), true
}

// Key returns the hashable key for t.
func (t TypeIdentity) Key() IdentityKey {
	return t.key
}

// Equal reports structural equality: same name and same argument sequence.
// Name comparison is ordinal.
func (t TypeIdentity) Equal(other TypeIdentity) bool {
	return t.key == other.key
}

// Compare orders identities by key. Returns -1, 0 or +1.
func (t TypeIdentity) Compare(other TypeIdentity) int {
	return strings.Compare(string(t.key), string(other.key))
}

// String returns the textual form accepted by ParseTypeIdentity.
func (t TypeIdentity) String() string {
	return string(t.key)
}

func (t TypeIdentity) format() string {
	if len(t.args) == 0 {
		return t.name
	}
	var sb strings.Builder
	sb.WriteString(t.name)
	sb.WriteByte('[')
	for i, a := range t.args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(a.format())
	}
	sb.WriteByte(']')
	return sb.String()
}

// arityOf extracts N from a "Name`N" generic definition name, or 0.
func arityOf(name string) int {
	i := strings.LastIndexByte(name, '`')
	if i < 0 || i == len(name)-1 {
		return 0
	}
	n := 0
	for _, r := range name[i+1:] {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

// ParseTypeIdentity parses the textual identity form.
// Format: Name | Name`N | Name`N[Arg1,Arg2,...] where each Arg is itself an identity.
// Example: System.Func`2[System.Int32,Acme.IWidget]
func ParseTypeIdentity(s string) (TypeIdentity, error) {
	p := identityParser{src: strings.TrimSpace(s)}
	if p.src == "" {
		return TypeIdentity{}, fmt.Errorf("%w: empty", ErrInvalidIdentity)
	}
	id, err := p.parse()
	if err != nil {
		return TypeIdentity{}, err
	}
	if p.pos != len(p.src) {
		return TypeIdentity{}, fmt.Errorf("%w: unexpected %q at offset %d in %q", ErrInvalidIdentity, p.src[p.pos], p.pos, s)
	}
	return id, nil
}

// MustParseTypeIdentity is like ParseTypeIdentity but panics on error.
func MustParseTypeIdentity(s string) TypeIdentity {
	id, err := ParseTypeIdentity(s)
	if err != nil {
		panic(err)
	}
	return id
}

type identityParser struct {
	src string
	pos int
}

func (p *identityParser) parse() (TypeIdentity, error) {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) && !strings.ContainsRune("[],", rune(p.src[p.pos])) {
		p.pos++
	}
	name := strings.TrimSpace(p.src[start:p.pos])
	if name == "" {
		return TypeIdentity{}, fmt.Errorf("%w: missing name at offset %d in %q", ErrInvalidIdentity, start, p.src)
	}
	if p.pos >= len(p.src) || p.src[p.pos] != '[' {
		return NewTypeIdentity(name), nil
	}

	p.pos++ // '['
	var args []TypeIdentity
	for {
		arg, err := p.parse()
		if err != nil {
			return TypeIdentity{}, err
		}
		args = append(args, arg)
		p.skipSpace()
		if p.pos >= len(p.src) {
			return TypeIdentity{}, fmt.Errorf("%w: unterminated argument list in %q", ErrInvalidIdentity, p.src)
		}
		if p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.src[p.pos] == ']' {
			p.pos++
			break
		}
		return TypeIdentity{}, fmt.Errorf("%w: unexpected %q at offset %d in %q", ErrInvalidIdentity, p.src[p.pos], p.pos, p.src)
	}

	if n := arityOf(name); n > 0 && n != len(args) {
		return TypeIdentity{}, fmt.Errorf("%w: %s expects %d type arguments, got %d", ErrInvalidIdentity, name, n, len(args))
	}
	return NewTypeIdentity(name, args...), nil
}

func (p *identityParser) skipSpace() {
	for p.pos < len(p.src) && p.src[p.pos] == ' ' {
		p.pos++
	}
}
