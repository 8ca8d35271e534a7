package matching

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/partgraph/internal/domain/registry"
)

const contract = "Acme.IWidget"

var (
	iWidget   = registry.MustParseTypeIdentity("Acme.IWidget")
	widget    = registry.MustParseTypeIdentity("Acme.Widget")
	iGadget   = registry.MustParseTypeIdentity("Acme.IGadget")
	host      = registry.MustParseTypeIdentity("Acme.Host")
	int32Type = registry.MustParseTypeIdentity("System.Int32")
	strType   = registry.MustParseTypeIdentity("System.String")
)

// newTestEngine registers a small widget hierarchy and returns an engine over it.
func newTestEngine(t *testing.T) (*Engine, *registry.Registry[string]) {
	t.Helper()
	reg := registry.NewRegistry[string]()
	add := func(b *registry.TypeBuilder) {
		desc, err := b.Build()
		require.NoError(t, err)
		require.NoError(t, reg.AddType(desc))
	}
	add(registry.NewTypeBuilder(iWidget).Interface())
	add(registry.NewTypeBuilder(iGadget).Interface())
	add(registry.NewTypeBuilder(widget).Class().Interfaces(iWidget))
	add(registry.NewTypeBuilder(host).Class())
	add(registry.NewTypeBuilder(int32Type).Class())
	add(registry.NewTypeBuilder(strType).Class())
	return NewEngine(reg), reg
}

func importOf(required string) registry.ImportDescriptor {
	return registry.NewPropertyImport(contract, host, "Widgets", registry.MustParseTypeIdentity(required))
}

func TestEngine_Direct(t *testing.T) {
	e, _ := newTestEngine(t)

	tests := []struct {
		name     string
		imp      registry.ImportDescriptor
		exp      registry.ExportDescriptor
		accepted bool
		rule     Rule
	}{
		{
			name:     "same type",
			imp:      importOf("Acme.Widget"),
			exp:      registry.NewTypeExport(contract, widget),
			accepted: true,
			rule:     RuleDirect,
		},
		{
			name:     "derived type",
			imp:      importOf("Acme.IWidget"),
			exp:      registry.NewTypeExport(contract, widget),
			accepted: true,
			rule:     RuleDirect,
		},
		{
			name:     "property export",
			imp:      importOf("Acme.IWidget"),
			exp:      registry.NewPropertyExport(contract, host, "Current", widget),
			accepted: true,
			rule:     RuleDirect,
		},
		{
			name:     "contract compared case-insensitively",
			imp:      registry.NewPropertyImport("acme.iwidget", host, "W", iWidget),
			exp:      registry.NewTypeExport("ACME.IWIDGET", widget),
			accepted: true,
			rule:     RuleDirect,
		},
		{
			name: "contract mismatch",
			imp:  registry.NewPropertyImport("Acme.Other", host, "W", iWidget),
			exp:  registry.NewTypeExport(contract, widget),
			rule: RuleContractMismatch,
		},
		{
			name: "unrelated type",
			imp:  importOf("Acme.IGadget"),
			exp:  registry.NewTypeExport(contract, widget),
			rule: RuleRejected,
		},
		{
			name: "base does not satisfy derived",
			imp:  importOf("Acme.Widget"),
			exp:  registry.NewPropertyExport(contract, host, "Current", iWidget),
			rule: RuleRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Explain(tt.imp, tt.exp)
			require.Equal(t, tt.accepted, d.Accepted)
			require.Equal(t, tt.rule, d.Rule)
			require.Equal(t, tt.accepted, e.Accepts(tt.imp, tt.exp))
		})
	}
}

func TestEngine_Wrappers(t *testing.T) {
	e, _ := newTestEngine(t)
	typeExport := registry.NewTypeExport(contract, widget)

	tests := []struct {
		name     string
		required string
		exp      registry.ExportDescriptor
		accepted bool
		rule     Rule
	}{
		{
			name:     "collection of interface",
			required: "System.Collections.Generic.IEnumerable`1[Acme.IWidget]",
			exp:      typeExport,
			accepted: true,
			rule:     RuleCollection,
		},
		{
			name:     "collection of lazy",
			required: "System.Collections.Generic.IEnumerable`1[System.Lazy`1[Acme.IWidget]]",
			exp:      typeExport,
			accepted: true,
			rule:     RuleCollection,
		},
		{
			name:     "collection of collection is not unwrapped",
			required: "System.Collections.Generic.IEnumerable`1[System.Collections.Generic.IEnumerable`1[Acme.IWidget]]",
			exp:      typeExport,
			rule:     RuleRejected,
		},
		{
			name:     "collection of unrelated",
			required: "System.Collections.Generic.IEnumerable`1[Acme.IGadget]",
			exp:      typeExport,
			rule:     RuleRejected,
		},
		{
			name:     "lazy",
			required: "System.Lazy`1[Acme.IWidget]",
			exp:      typeExport,
			accepted: true,
			rule:     RuleLazy,
		},
		{
			name:     "lazy with metadata",
			required: "System.Lazy`2[Acme.IWidget,Acme.IWidgetMetadata]",
			exp:      typeExport,
			accepted: true,
			rule:     RuleLazy,
		},
		{
			name:     "lazy of unrelated",
			required: "System.Lazy`1[Acme.IGadget]",
			exp:      typeExport,
			rule:     RuleRejected,
		},
		{
			name:     "supplier over a type export",
			required: "System.Func`1[Acme.IWidget]",
			exp:      typeExport,
			accepted: true,
			rule:     RuleFunc,
		},
		{
			name:     "supplier over a parameterless method",
			required: "System.Func`1[Acme.IWidget]",
			exp:      registry.NewMethodExport(contract, host, "Create", widget),
			accepted: true,
			rule:     RuleFunc,
		},
		{
			name:     "supplier rejects a method with parameters",
			required: "System.Func`1[Acme.IWidget]",
			exp:      registry.NewMethodExport(contract, host, "Create", widget, registry.Parameter{Name: "n", Type: int32Type}),
			rule:     RuleRejected,
		},
		{
			name:     "func matching signature",
			required: "System.Func`2[System.Int32,Acme.IWidget]",
			exp:      registry.NewMethodExport(contract, host, "M", iWidget, registry.Parameter{Name: "n", Type: int32Type}),
			accepted: true,
			rule:     RuleFunc,
		},
		{
			name:     "func parameter type mismatch",
			required: "System.Func`2[System.Int32,Acme.IWidget]",
			exp:      registry.NewMethodExport(contract, host, "M", iWidget, registry.Parameter{Name: "s", Type: strType}),
			rule:     RuleRejected,
		},
		{
			name:     "func parameter count mismatch",
			required: "System.Func`3[System.Int32,System.Int32,Acme.IWidget]",
			exp:      registry.NewMethodExport(contract, host, "M", iWidget, registry.Parameter{Name: "n", Type: int32Type}),
			rule:     RuleRejected,
		},
		{
			name:     "func with derived return type",
			required: "System.Func`2[System.Int32,Acme.IWidget]",
			exp:      registry.NewMethodExport(contract, host, "M", widget, registry.Parameter{Name: "n", Type: int32Type}),
			accepted: true,
			rule:     RuleFunc,
		},
		{
			name:     "func parameter derived from argument",
			required: "System.Func`2[Acme.IWidget,Acme.IWidget]",
			exp:      registry.NewMethodExport(contract, host, "M", iWidget, registry.Parameter{Name: "w", Type: widget}),
			accepted: true,
			rule:     RuleFunc,
		},
		{
			name:     "func argument derived from parameter",
			required: "System.Func`2[Acme.Widget,Acme.IWidget]",
			exp:      registry.NewMethodExport(contract, host, "M", iWidget, registry.Parameter{Name: "w", Type: iWidget}),
			rule:     RuleRejected,
		},
		{
			name:     "action parameter derived from argument",
			required: "System.Action`1[Acme.IWidget]",
			exp:      registry.NewMethodExport(contract, host, "Notify", registry.TypeIdentity{}, registry.Parameter{Name: "w", Type: widget}),
			accepted: true,
			rule:     RuleAction,
		},
		{
			name:     "action argument derived from parameter",
			required: "System.Action`1[Acme.Widget]",
			exp:      registry.NewMethodExport(contract, host, "Notify", registry.TypeIdentity{}, registry.Parameter{Name: "w", Type: iWidget}),
			rule:     RuleRejected,
		},
		{
			name:     "func with parameters needs a method",
			required: "System.Func`2[System.Int32,Acme.IWidget]",
			exp:      typeExport,
			rule:     RuleRejected,
		},
		{
			name:     "func rejects a void method",
			required: "System.Func`2[System.Int32,Acme.IWidget]",
			exp:      registry.NewMethodExport(contract, host, "M", registry.TypeIdentity{}, registry.Parameter{Name: "n", Type: int32Type}),
			rule:     RuleRejected,
		},
		{
			name:     "action over void method",
			required: "System.Action`1[System.Int32]",
			exp:      registry.NewMethodExport(contract, host, "Notify", registry.TypeIdentity{}, registry.Parameter{Name: "n", Type: int32Type}),
			accepted: true,
			rule:     RuleAction,
		},
		{
			name:     "action rejects non-void method",
			required: "System.Action`1[System.Int32]",
			exp:      registry.NewMethodExport(contract, host, "Notify", iWidget, registry.Parameter{Name: "n", Type: int32Type}),
			rule:     RuleRejected,
		},
		{
			name:     "action rejects parameter count mismatch",
			required: "System.Action`2[System.Int32,System.String]",
			exp:      registry.NewMethodExport(contract, host, "Notify", registry.TypeIdentity{}, registry.Parameter{Name: "n", Type: int32Type}),
			rule:     RuleRejected,
		},
		{
			name:     "action rejects type export",
			required: "System.Action`1[System.Int32]",
			exp:      typeExport,
			rule:     RuleRejected,
		},
		{
			name:     "unknown generic is not a wrapper",
			required: "Acme.Box`1[Acme.IWidget]",
			exp:      typeExport,
			rule:     RuleRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := e.Explain(importOf(tt.required), tt.exp)
			require.Equal(t, tt.accepted, d.Accepted)
			require.Equal(t, tt.rule, d.Rule)
		})
	}
}

func TestEngine_WrapperThroughRegisteredType(t *testing.T) {
	e, reg := newTestEngine(t)

	widgetList := registry.MustParseTypeIdentity("Acme.WidgetList")
	desc, err := registry.NewTypeBuilder(widgetList).
		Class().
		Interfaces(registry.MustParseTypeIdentity("System.Collections.Generic.IEnumerable`1[Acme.IWidget]")).
		Build()
	require.NoError(t, err)
	require.NoError(t, reg.AddType(desc))

	d := e.Explain(importOf("Acme.WidgetList"), registry.NewTypeExport(contract, widget))
	require.True(t, d.Accepted)
	require.Equal(t, RuleCollection, d.Rule)
}

func TestEngine_RegisteredGenericDefinitionWins(t *testing.T) {
	e, reg := newTestEngine(t)

	// A closed type whose registered definition is a lazy handle even though
	// its own name is not.
	handle := registry.MustParseTypeIdentity("Acme.Handle`1[Acme.IWidget]")
	desc, err := registry.NewTypeBuilder(handle).
		Class().
		GenericDefinition(registry.NewGenericDefinition(LazyDefinition)).
		Build()
	require.NoError(t, err)
	require.NoError(t, reg.AddType(desc))

	d := e.Explain(importOf("Acme.Handle`1[Acme.IWidget]"), registry.NewTypeExport(contract, widget))
	require.True(t, d.Accepted)
	require.Equal(t, RuleLazy, d.Rule)
}

func TestEngine_CyclicHierarchyTerminates(t *testing.T) {
	e, reg := newTestEngine(t)

	a := registry.MustParseTypeIdentity("Acme.A")
	b := registry.MustParseTypeIdentity("Acme.B")
	descA, err := registry.NewTypeBuilder(a).Interfaces(b).Build()
	require.NoError(t, err)
	descB, err := registry.NewTypeBuilder(b).Interfaces(a).Build()
	require.NoError(t, err)
	require.NoError(t, reg.AddType(descA))
	require.NoError(t, reg.AddType(descB))

	require.False(t, e.Accepts(importOf("Acme.A"), registry.NewTypeExport(contract, widget)))
}

func TestEngine_NilDescriptors(t *testing.T) {
	e, _ := newTestEngine(t)
	require.False(t, e.Accepts(nil, registry.NewTypeExport(contract, widget)))
	require.False(t, e.Accepts(importOf("Acme.IWidget"), nil))
}

func TestEngine_IgnoresImportFlags(t *testing.T) {
	e, _ := newTestEngine(t)
	imp := registry.NewPropertyImport(contract, host, "W", iWidget,
		registry.WithCardinality(registry.ZeroOrMore),
		registry.Recomposable(),
		registry.Prerequisite(true),
		registry.WithCreationPolicy(registry.NonShared),
	)
	require.True(t, e.Accepts(imp, registry.NewTypeExport(contract, widget)))
}

func TestEngine_ConstructorParameterImport(t *testing.T) {
	e, _ := newTestEngine(t)
	imp := registry.NewConstructorParameterImport(contract, host, "widget", 0, iWidget)
	require.True(t, e.Accepts(imp, registry.NewTypeExport(contract, widget)))
}

func TestShapes(t *testing.T) {
	shapes := Shapes()
	require.Len(t, shapes, 3+2*maxAdapterArity)
	require.Equal(t, ShapeCollection, shapes[0].Kind)
	require.True(t, shapes[0].Definition.IsOpenGeneric())

	counts := make(map[ShapeKind]int)
	for _, s := range shapes {
		counts[s.Kind]++
	}
	require.Equal(t, 1, counts[ShapeCollection])
	require.Equal(t, 2, counts[ShapeLazy])
	require.Equal(t, maxAdapterArity, counts[ShapeFunc])
	require.Equal(t, maxAdapterArity, counts[ShapeAction])

	shapes[0] = Shape{}
	require.Equal(t, ShapeCollection, Shapes()[0].Kind)
}

func TestShapeKind_String(t *testing.T) {
	require.Equal(t, "collection", ShapeCollection.String())
	require.Equal(t, "lazy", ShapeLazy.String())
	require.Equal(t, "func", ShapeFunc.String())
	require.Equal(t, "action", ShapeAction.String())
	require.Equal(t, "unknown", ShapeKind(0).String())
}
