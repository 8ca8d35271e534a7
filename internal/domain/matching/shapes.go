package matching

import (
	"fmt"

	"github.com/zjrosen/partgraph/internal/domain/registry"
)

// ShapeKind identifies one of the open generic wrapper shapes an import may use.
type ShapeKind int

const (
	// ShapeCollection is a sequence of values: IEnumerable<T>.
	ShapeCollection ShapeKind = iota + 1
	// ShapeLazy is a deferred value handle: Lazy<T> or Lazy<T, TMetadata>.
	ShapeLazy
	// ShapeFunc is a supplier or function: Func<..., TResult>.
	ShapeFunc
	// ShapeAction is a void callback: Action<...>.
	ShapeAction
)

// String returns a human-readable representation of the ShapeKind.
func (k ShapeKind) String() string {
	switch k {
	case ShapeCollection:
		return "collection"
	case ShapeLazy:
		return "lazy"
	case ShapeFunc:
		return "func"
	case ShapeAction:
		return "action"
	default:
		return "unknown"
	}
}

// Shape binds a wrapper kind to the open generic definition that expresses it.
type Shape struct {
	Kind       ShapeKind
	Definition registry.TypeIdentity
}

// Open generic definition names recognized as wrappers.
const (
	CollectionDefinition = "System.Collections.Generic.IEnumerable`1"
	LazyDefinition       = "System.Lazy`1"
	LazyMetaDefinition   = "System.Lazy`2"
	funcPrefix           = "System.Func`"
	actionPrefix         = "System.Action`"

	maxAdapterArity = 4
)

// shapeTable is the closed set of wrapper shapes, in recognition order.
// Adding a shape requires revisiting Accepts.
var shapeTable = buildShapeTable()

func buildShapeTable() []Shape {
	table := []Shape{
		{Kind: ShapeCollection, Definition: registry.NewGenericDefinition(CollectionDefinition)},
		{Kind: ShapeLazy, Definition: registry.NewGenericDefinition(LazyDefinition)},
		{Kind: ShapeLazy, Definition: registry.NewGenericDefinition(LazyMetaDefinition)},
	}
	for n := 1; n <= maxAdapterArity; n++ {
		table = append(table, Shape{Kind: ShapeFunc, Definition: registry.NewGenericDefinition(fmt.Sprintf("%s%d", funcPrefix, n))})
	}
	for n := 1; n <= maxAdapterArity; n++ {
		table = append(table, Shape{Kind: ShapeAction, Definition: registry.NewGenericDefinition(fmt.Sprintf("%s%d", actionPrefix, n))})
	}
	return table
}

// Shapes returns a copy of the wrapper shape table.
func Shapes() []Shape {
	out := make([]Shape, len(shapeTable))
	copy(out, shapeTable)
	return out
}
