package registry

import (
	"slices"
	"strings"
)

// ExportDescriptor describes a contract published by a part.
// The set of implementations is closed: *TypeExport, *PropertyExport and *MethodExport.
type ExportDescriptor interface {
	// ContractName returns the published contract name.
	ContractName() string
	// DeclaringType returns the type that declares the export.
	DeclaringType() TypeIdentity
	// ExportedType returns the type a consumer receives. For methods this is
	// the return type; false for void methods.
	ExportedType() (TypeIdentity, bool)
	// Equal reports structural equality. Contract names compare case-insensitively.
	Equal(other ExportDescriptor) bool

	isExport()
}

// exportBase holds the fields shared by every export shape.
type exportBase struct {
	contractName  string
	declaringType TypeIdentity
}

func (e exportBase) ContractName() string        { return e.contractName }
func (e exportBase) DeclaringType() TypeIdentity { return e.declaringType }

func (e exportBase) equal(other exportBase) bool {
	return strings.EqualFold(e.contractName, other.contractName) &&
		e.declaringType.Equal(other.declaringType)
}

// TypeExport is an export attached to the type itself.
type TypeExport struct {
	exportBase
}

// NewTypeExport creates an export of declaringType under contractName.
func NewTypeExport(contractName string, declaringType TypeIdentity) *TypeExport {
	return &TypeExport{exportBase{contractName: contractName, declaringType: declaringType}}
}

// ExportedType returns the declaring type.
func (e *TypeExport) ExportedType() (TypeIdentity, bool) {
	return e.declaringType, !e.declaringType.IsZero()
}

// Equal implements ExportDescriptor.
func (e *TypeExport) Equal(other ExportDescriptor) bool {
	o, ok := other.(*TypeExport)
	return ok && e.exportBase.equal(o.exportBase)
}

func (*TypeExport) isExport() {}

// PropertyExport is an export attached to a property.
type PropertyExport struct {
	exportBase
	propertyName string
	propertyType TypeIdentity
}

// NewPropertyExport creates an export of a property value.
func NewPropertyExport(contractName string, declaringType TypeIdentity, propertyName string, propertyType TypeIdentity) *PropertyExport {
	return &PropertyExport{
		exportBase:   exportBase{contractName: contractName, declaringType: declaringType},
		propertyName: propertyName,
		propertyType: propertyType,
	}
}

// PropertyName returns the exported property name.
func (e *PropertyExport) PropertyName() string {
	return e.propertyName
}

// ExportedType returns the property type.
func (e *PropertyExport) ExportedType() (TypeIdentity, bool) {
	return e.propertyType, !e.propertyType.IsZero()
}

// Equal implements ExportDescriptor.
func (e *PropertyExport) Equal(other ExportDescriptor) bool {
	o, ok := other.(*PropertyExport)
	return ok && e.exportBase.equal(o.exportBase) &&
		e.propertyName == o.propertyName &&
		e.propertyType.Equal(o.propertyType)
}

func (*PropertyExport) isExport() {}

// Parameter is a single method parameter.
type Parameter struct {
	Name string
	Type TypeIdentity
}

// MethodExport is an export attached to a method.
type MethodExport struct {
	exportBase
	methodName string
	returnType TypeIdentity // zero for void
	parameters []Parameter
}

// NewMethodExport creates an export of a method. A zero returnType means void.
func NewMethodExport(contractName string, declaringType TypeIdentity, methodName string, returnType TypeIdentity, params ...Parameter) *MethodExport {
	return &MethodExport{
		exportBase: exportBase{contractName: contractName, declaringType: declaringType},
		methodName: methodName,
		returnType: returnType,
		parameters: slices.Clone(params),
	}
}

// MethodName returns the exported method name.
func (e *MethodExport) MethodName() string {
	return e.methodName
}

// ReturnType returns the method return type; false for void.
func (e *MethodExport) ReturnType() (TypeIdentity, bool) {
	return e.returnType, !e.returnType.IsZero()
}

// Parameters returns the ordered parameter list.
func (e *MethodExport) Parameters() []Parameter {
	return slices.Clone(e.parameters)
}

// ExportedType returns the return type.
func (e *MethodExport) ExportedType() (TypeIdentity, bool) {
	return e.ReturnType()
}

// Equal implements ExportDescriptor.
func (e *MethodExport) Equal(other ExportDescriptor) bool {
	o, ok := other.(*MethodExport)
	if !ok || !e.exportBase.equal(o.exportBase) || e.methodName != o.methodName ||
		!e.returnType.Equal(o.returnType) || len(e.parameters) != len(o.parameters) {
		return false
	}
	for i, p := range e.parameters {
		if p.Name != o.parameters[i].Name || !p.Type.Equal(o.parameters[i].Type) {
			return false
		}
	}
	return true
}

func (*MethodExport) isExport() {}
