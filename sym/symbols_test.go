package sym

import "testing"

func TestPrefix(t *testing.T) {
	if got := Prefix(DbOps); got != "DbOps: " {
		t.Errorf("Prefix(DbOps) = %q, want %q", got, "DbOps: ")
	}
}

func TestEveryComponentHasGlyph(t *testing.T) {
	for _, c := range []string{DbOps, Scheduler, Sky, Store, AM} {
		if GlyphFor(c) == "" {
			t.Errorf("component %s has no glyph", c)
		}
	}
	if GlyphFor("unknown") != "" {
		t.Error("unknown component should have no glyph")
	}
}
