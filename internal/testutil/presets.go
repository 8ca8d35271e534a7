package testutil

import "testing"

// Well-known identities used by the presets.
const (
	IWidget = "Acme.IWidget"
	Widget  = "Acme.Widget"
	Gadget  = "Acme.Gadget"
	Host    = "Acme.Host"
	Lonely  = "Acme.Lonely"
)

// WidgetPlugin declares IWidget and a Widget part exporting it.
func WidgetPlugin(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(t).
		WithType(IWidget, Interface()).
		WithType(Widget, Class(), Implements(IWidget)).
		WithPart(Widget, ExportsType(IWidget))
}

// GadgetPlugin adds a second IWidget export.
func GadgetPlugin(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(t).
		WithType(Gadget, Class(), Implements(IWidget)).
		WithPart(Gadget, ExportsType(IWidget))
}

// HostPlugin declares a Host part importing exactly one IWidget and a Lonely
// part whose import nothing can satisfy.
func HostPlugin(t *testing.T) *Builder {
	t.Helper()
	return NewBuilder(t).
		WithPart(Host, Imports("Widget", IWidget)).
		WithPart(Lonely, Imports("Missing", "Acme.IMissing"))
}
