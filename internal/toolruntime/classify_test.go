package toolruntime

import "testing"

func TestIsMutating_ByPrefix(t *testing.T) {
	cases := []struct {
		name string
		want bool
	}{
		{"create_loadout", true},
		{"update_loadout", true},
		{"delete_loadout", true},
		{"set_officer_overlay", true},
		{"sync_below_deck", true},
		{"assign_bridge_core", true},
		{"remove_plan_item", true},
		{"complete_plan_item", true},
		{"get_loadout", false},
		{"list_officers", false},
		{"search_catalog", false},
		{"read_receipt", false},
		{"whatever_else", false},
	}
	for _, c := range cases {
		got := isMutating(&Tool{Name: c.name})
		if got != c.want {
			t.Errorf("isMutating(%q) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestIsMutating_ExplicitMutatingOverridesUnmatchedPrefix(t *testing.T) {
	if !isMutating(&Tool{Name: "activate_preset", Mutating: true}) {
		t.Fatal("expected Mutating:true to classify a non-prefix-matching tool as mutating")
	}
}

func TestIsMutating_ReadOnlyPrefixWinsEvenIfMarkedMutating(t *testing.T) {
	if isMutating(&Tool{Name: "get_loadout", Mutating: true}) {
		t.Fatal("expected a get_ prefix to stay read-only regardless of the Mutating flag")
	}
}
