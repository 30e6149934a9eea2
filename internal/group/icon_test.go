package group

import "testing"

func TestIconForKnownKey(t *testing.T) {
	if got := IconFor("HK"); got == DefaultIcon {
		t.Fatal("HK should resolve to its own icon, not the default")
	}
}

func TestIconForUnknownKeyFallsBackToDefault(t *testing.T) {
	if got := IconFor("Narnia"); got != DefaultIcon {
		t.Errorf("IconFor(unknown) = %q, want DefaultIcon", got)
	}
}

func TestDefaultMetaGroupDefsReferencesAllRegionsPlusOthers(t *testing.T) {
	defs := DefaultMetaGroupDefs([]string{"HK", "US"})
	if len(defs) != 1 {
		t.Fatalf("got %d meta group defs, want 1", len(defs))
	}
	def := defs[0]
	if !def.IncludeDirect {
		t.Error("top-level selector should include a direct option")
	}
	want := map[string]bool{"HK": true, "US": true, othersGroupName: true}
	if len(def.IncludeGroups) != len(want) {
		t.Fatalf("IncludeGroups = %v, want exactly %v", def.IncludeGroups, want)
	}
	for _, g := range def.IncludeGroups {
		if !want[g] {
			t.Errorf("unexpected group %q in meta def", g)
		}
	}
}

func TestDefaultMetaGroupDefsDoesNotMutateInput(t *testing.T) {
	regions := []string{"HK", "US"}
	DefaultMetaGroupDefs(regions)
	if len(regions) != 2 || regions[0] != "HK" || regions[1] != "US" {
		t.Errorf("input slice mutated: %v", regions)
	}
}
