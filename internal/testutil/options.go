package testutil

import "github.com/zjrosen/partgraph/internal/registry/application"

// TypeOption configures a type definition.
type TypeOption func(*application.TypeDef)

// Class marks the type as a class.
func Class() TypeOption {
	return func(d *application.TypeDef) { d.Kind = "class" }
}

// Interface marks the type as an interface.
func Interface() TypeOption {
	return func(d *application.TypeDef) { d.Kind = "interface" }
}

// Base sets the base type.
func Base(name string) TypeOption {
	return func(d *application.TypeDef) { d.Base = name }
}

// Implements adds implemented interfaces.
func Implements(names ...string) TypeOption {
	return func(d *application.TypeDef) { d.Interfaces = append(d.Interfaces, names...) }
}

// Definition sets the generic type definition of a closed generic.
func Definition(name string) TypeOption {
	return func(d *application.TypeDef) { d.GenericDefinition = name }
}

// PartOption configures a part definition.
type PartOption func(*application.PartDef)

// ExportsType exports the part's own type under contract.
func ExportsType(contract string) PartOption {
	return func(d *application.PartDef) {
		d.Exports = append(d.Exports, application.ExportDef{Kind: application.KindType, Contract: contract})
	}
}

// ExportsProperty exports a property of type typ.
func ExportsProperty(member, typ string) PartOption {
	return func(d *application.PartDef) {
		d.Exports = append(d.Exports, application.ExportDef{Kind: application.KindProperty, Member: member, Type: typ})
	}
}

// ExportsMethod exports a method returning ret, which may be empty for void
// methods when contract is given. Parameters alternate name and type.
func ExportsMethod(contract, member, ret string, params ...string) PartOption {
	return func(d *application.PartDef) {
		exp := application.ExportDef{Kind: application.KindMethod, Contract: contract, Member: member, Type: ret}
		for i := 0; i+1 < len(params); i += 2 {
			exp.Parameters = append(exp.Parameters, application.ParameterDef{Name: params[i], Type: params[i+1]})
		}
		d.Exports = append(d.Exports, exp)
	}
}

// Imports adds a property import of typ.
func Imports(member, typ string, opts ...ImportOption) PartOption {
	return func(d *application.PartDef) {
		imp := application.ImportDef{Kind: application.KindProperty, Member: member, Type: typ}
		for _, opt := range opts {
			opt(&imp)
		}
		d.Imports = append(d.Imports, imp)
	}
}

// ImportOption configures an import definition.
type ImportOption func(*application.ImportDef)

// Cardinality sets the import cardinality (exactly_one, zero_or_one, zero_or_more).
func Cardinality(c string) ImportOption {
	return func(d *application.ImportDef) { d.Cardinality = c }
}

// Contract overrides the defaulted contract name.
func Contract(name string) ImportOption {
	return func(d *application.ImportDef) { d.Contract = name }
}

// Recomposable marks the import recomposable.
func Recomposable() ImportOption {
	return func(d *application.ImportDef) { d.Recomposable = true }
}

// CreationPolicy sets the creation policy (any, shared, non_shared).
func CreationPolicy(p string) ImportOption {
	return func(d *application.ImportDef) { d.CreationPolicy = p }
}

// ConstructorParameter turns the import into a constructor parameter at pos.
func ConstructorParameter(pos int) ImportOption {
	return func(d *application.ImportDef) {
		d.Kind = application.KindConstructorParameter
		d.Position = pos
	}
}
