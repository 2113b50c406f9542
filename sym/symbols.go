// Package sym defines the component tags and glyphs maestro uses in log fields
// and in control-channel responses.
package sym

// Component tags. Control-channel responses are prefixed with "<tag>: ".
const (
	DbOps     = "DbOps"
	Scheduler = "Scheduler"
	Sky       = "Sky"
	Store     = "Store"
	AM        = "am"
)

// Glyphs for console log lines.
const (
	Pulse      = "꩜" // dispatch loop ticks and job transitions
	PulseOpen  = "✿" // startup
	PulseClose = "❀" // shutdown
	Star       = "✦" // observability and transit
	Plan       = "⌬" // schedule building
	DB         = "⊔" // candidate store
)

// ComponentGlyphs maps component tags to the glyph logged next to them.
var ComponentGlyphs = map[string]string{
	DbOps:     Pulse,
	Scheduler: Plan,
	Sky:       Star,
	Store:     DB,
	AM:        "≡",
}

// Prefix returns the control-channel response prefix for a component.
func Prefix(component string) string {
	return component + ": "
}

// GlyphFor returns the glyph for a component, or an empty string.
func GlyphFor(component string) string {
	return ComponentGlyphs[component]
}
