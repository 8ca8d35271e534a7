// Package matching decides whether an export can satisfy an import.
//
// The decision is pure: it reads type relationships through registry.TypeGraph
// and never mutates anything. Callers run their own loop over (import, export)
// pairs and apply cardinality themselves; Accepts ignores cardinality,
// recomposability, prerequisite and creation policy.
//
// Acceptance order:
//  1. contract names must match case-insensitively
//  2. the exported type equals or derives from the required type (direct)
//  3. the required type closes a wrapper shape (collection, lazy, func, action)
//     and the unwrapped requirement matches the export
package matching

import (
	"strings"

	"github.com/zjrosen/partgraph/internal/domain/registry"
)

// Rule names the step that decided an acceptance check.
type Rule string

const (
	RuleContractMismatch Rule = "contract-mismatch"
	RuleDirect           Rule = "direct"
	RuleCollection       Rule = "collection"
	RuleLazy             Rule = "lazy"
	RuleFunc             Rule = "func"
	RuleAction           Rule = "action"
	RuleRejected         Rule = "rejected"
)

// Decision is the outcome of an acceptance check and the rule that produced it.
type Decision struct {
	Accepted bool
	Rule     Rule
}

// Engine evaluates import/export compatibility.
type Engine struct {
	graph registry.TypeGraph
}

// NewEngine creates an engine reading type relationships from graph.
func NewEngine(graph registry.TypeGraph) *Engine {
	return &Engine{graph: graph}
}

// Accepts reports whether exp can satisfy imp.
func (e *Engine) Accepts(imp registry.ImportDescriptor, exp registry.ExportDescriptor) bool {
	return e.Explain(imp, exp).Accepted
}

// Explain is Accepts plus the rule that decided the outcome.
func (e *Engine) Explain(imp registry.ImportDescriptor, exp registry.ExportDescriptor) Decision {
	if imp == nil || exp == nil {
		return Decision{Rule: RuleRejected}
	}
	if !strings.EqualFold(imp.ContractName(), exp.ContractName()) {
		return Decision{Rule: RuleContractMismatch}
	}

	required := imp.RequiredType()
	exported, hasExported := exp.ExportedType()
	if hasExported && e.assignable(required, exported) {
		return Decision{Accepted: true, Rule: RuleDirect}
	}

	closed, shape, ok := e.wrapperOf(required)
	if !ok {
		return Decision{Rule: RuleRejected}
	}

	var accepted bool
	var rule Rule
	switch shape.Kind {
	case ShapeCollection:
		rule = RuleCollection
		accepted = hasExported && e.acceptsCollection(closed, exported)
	case ShapeLazy:
		rule = RuleLazy
		accepted = hasExported && e.assignable(closed.Argument(0), exported)
	case ShapeFunc:
		rule = RuleFunc
		accepted = e.acceptsFunc(closed, exp)
	case ShapeAction:
		rule = RuleAction
		accepted = e.acceptsAction(closed, exp)
	}
	if !accepted {
		return Decision{Rule: RuleRejected}
	}
	return Decision{Accepted: true, Rule: rule}
}

// assignable reports whether a value of type provided satisfies required.
func (e *Engine) assignable(required, provided registry.TypeIdentity) bool {
	if required.IsZero() || provided.IsZero() {
		return false
	}
	return provided.Equal(required) || e.graph.IsSubtypeOf(required, provided)
}

// acceptsCollection unwraps one collection level, then optionally one lazy level.
// Collections of collections are not unwrapped.
func (e *Engine) acceptsCollection(closed, exported registry.TypeIdentity) bool {
	elem := closed.Argument(0)
	if e.assignable(elem, exported) {
		return true
	}
	lazy, shape, ok := e.wrapperOf(elem)
	return ok && shape.Kind == ShapeLazy && e.assignable(lazy.Argument(0), exported)
}

// acceptsFunc matches Func<TResult> against any value export or a
// parameterless method, and Func<T1..Tn, TResult> against a method with the
// same parameter count. A method that takes parameters never satisfies
// Func<TResult>, even when its return type matches.
func (e *Engine) acceptsFunc(closed registry.TypeIdentity, exp registry.ExportDescriptor) bool {
	arity := closed.Arity()
	result := closed.Argument(arity - 1)

	method, isMethod := exp.(*registry.MethodExport)
	if !isMethod {
		if arity != 1 {
			return false
		}
		exported, ok := exp.ExportedType()
		return ok && e.assignable(result, exported)
	}

	ret, ok := method.ReturnType()
	if !ok || !e.assignable(result, ret) {
		return false
	}
	return e.parametersMatch(closed.TypeArguments()[:arity-1], method.Parameters())
}

// acceptsAction matches Action<T1..Tn> against a void method with n parameters.
func (e *Engine) acceptsAction(closed registry.TypeIdentity, exp registry.ExportDescriptor) bool {
	method, ok := exp.(*registry.MethodExport)
	if !ok {
		return false
	}
	if _, returns := method.ReturnType(); returns {
		return false
	}
	return e.parametersMatch(closed.TypeArguments(), method.Parameters())
}

// parametersMatch compares argument types to method parameters positionally
// by direct acceptance: each parameter type must equal or derive from the
// corresponding type argument.
func (e *Engine) parametersMatch(args []registry.TypeIdentity, params []registry.Parameter) bool {
	if len(args) != len(params) {
		return false
	}
	for i, arg := range args {
		if !e.assignable(arg, params[i].Type) {
			return false
		}
	}
	return true
}

// wrapperOf finds the first wrapper shape that t closes, directly or through
// its base types and interfaces, and returns the closed wrapper identity.
func (e *Engine) wrapperOf(t registry.TypeIdentity) (registry.TypeIdentity, Shape, bool) {
	for _, shape := range shapeTable {
		if closed, ok := e.closedOver(t, shape.Definition, make(map[registry.IdentityKey]bool)); ok {
			return closed, shape, true
		}
	}
	return registry.TypeIdentity{}, Shape{}, false
}

// closedOver reports whether t is based on the open generic def: t closes def
// itself, or its base type or one of its interfaces does. Recursion stops at
// unregistered types, at def itself, and at types already visited.
func (e *Engine) closedOver(t, def registry.TypeIdentity, visited map[registry.IdentityKey]bool) (registry.TypeIdentity, bool) {
	if t.IsZero() || t.Equal(def) || visited[t.Key()] {
		return registry.TypeIdentity{}, false
	}
	visited[t.Key()] = true

	desc, err := e.graph.TypeByIdentity(t)
	if err != nil {
		desc = nil
	}
	if t.Arity() > 0 {
		if d, ok := e.definitionOf(t, desc); ok && d.Equal(def) {
			return t, true
		}
	}
	if desc == nil {
		return registry.TypeIdentity{}, false
	}

	if base, ok := desc.BaseType(); ok {
		if closed, ok := e.closedOver(base, def, visited); ok {
			return closed, true
		}
	}
	for _, iface := range desc.Interfaces() {
		if closed, ok := e.closedOver(iface, def, visited); ok {
			return closed, true
		}
	}
	return registry.TypeIdentity{}, false
}

// definitionOf prefers the registered generic definition and falls back to
// the structural one, so unregistered closed wrappers are still recognized.
func (e *Engine) definitionOf(t registry.TypeIdentity, desc *registry.TypeDescription) (registry.TypeIdentity, bool) {
	if desc != nil {
		if def, ok := desc.GenericDefinition(); ok {
			return def, true
		}
	}
	return t.Definition()
}
