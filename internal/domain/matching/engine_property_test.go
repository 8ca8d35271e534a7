package matching

import (
	"fmt"
	"testing"

	"pgregory.net/rapid"

	"github.com/zjrosen/partgraph/internal/domain/registry"
)

// drawRegistry builds a random acyclic hierarchy where type i may only derive from j < i.
func drawRegistry(t *rapid.T) (*registry.Registry[string], []registry.TypeIdentity) {
	n := rapid.IntRange(1, 10).Draw(t, "numTypes")
	reg := registry.NewRegistry[string]()
	ids := make([]registry.TypeIdentity, n)
	for i := 0; i < n; i++ {
		ids[i] = registry.NewTypeIdentity(fmt.Sprintf("Acme.T%d", i))
		b := registry.NewTypeBuilder(ids[i])
		if i > 0 && rapid.Bool().Draw(t, "hasBase") {
			b.Base(ids[rapid.IntRange(0, i-1).Draw(t, "base")])
		}
		if i > 0 && rapid.Bool().Draw(t, "hasIface") {
			b.Interfaces(ids[rapid.IntRange(0, i-1).Draw(t, "iface")])
		}
		desc, err := b.Build()
		if err != nil {
			t.Fatal(err)
		}
		if err := reg.AddType(desc); err != nil {
			t.Fatal(err)
		}
	}
	return reg, ids
}

// TestEngine_Property_WrappersPreserveDirectDecision verifies that wrapping the
// required type in a collection, a lazy handle or a supplier never changes
// whether a type export is accepted.
func TestEngine_Property_WrappersPreserveDirectDecision(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg, ids := drawRegistry(t)
		e := NewEngine(reg)

		required := ids[rapid.IntRange(0, len(ids)-1).Draw(t, "required")]
		provided := ids[rapid.IntRange(0, len(ids)-1).Draw(t, "provided")]
		exp := registry.NewTypeExport("C", provided)

		want := provided.Equal(required) || reg.IsSubtypeOf(required, provided)

		wrapped := []registry.TypeIdentity{
			required,
			registry.NewTypeIdentity(CollectionDefinition, required),
			registry.NewTypeIdentity(LazyDefinition, required),
			registry.NewTypeIdentity(CollectionDefinition, registry.NewTypeIdentity(LazyDefinition, required)),
			registry.NewTypeIdentity("System.Func`1", required),
		}
		for _, w := range wrapped {
			imp := registry.NewPropertyImport("c", provided, "P", w)
			if got := e.Accepts(imp, exp); got != want {
				t.Fatalf("Accepts(%s, %s) = %v, want %v", w, provided, got, want)
			}
		}
	})
}

// TestEngine_Property_ContractMismatchAlwaysRejects verifies that differing
// contracts reject regardless of types.
func TestEngine_Property_ContractMismatchAlwaysRejects(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg, ids := drawRegistry(t)
		e := NewEngine(reg)

		a := rapid.StringMatching(`[A-Za-z]{1,8}`).Draw(t, "contractA")
		b := rapid.StringMatching(`[A-Za-z]{1,8}`).Draw(t, "contractB")
		if len(a) == len(b) {
			b += "x"
		}
		id := ids[rapid.IntRange(0, len(ids)-1).Draw(t, "id")]

		d := e.Explain(registry.NewPropertyImport(a, id, "P", id), registry.NewTypeExport(b, id))
		if d.Accepted || d.Rule != RuleContractMismatch {
			t.Fatalf("contracts %q and %q: got %+v", a, b, d)
		}
	})
}
