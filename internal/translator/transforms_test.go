package translator

import "testing"

func TestToBooleanValue_TruthTable(t *testing.T) {
	cases := []struct {
		in   any
		want bool
	}{
		{"true", true},
		{"Yes", true},
		{"1", true},
		{"false", false},
		{"no", false},
		{"0", false},
		{"", false},
		{"maybe", true}, // non-empty string falls through to Boolean(value)
		{float64(0), false},
		{float64(3), true},
		{nil, false},
	}
	for _, c := range cases {
		if got := toBooleanValue(c.in); got != c.want {
			t.Errorf("toBooleanValue(%#v) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestToNumberValue_NaNBecomesNil(t *testing.T) {
	if got := toNumberValue("not-a-number"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
	if got := toNumberValue("42.5"); got != 42.5 {
		t.Fatalf("expected 42.5, got %v", got)
	}
	if got := toNumberValue(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestApplyTransform_UnknownKindFailsClosed(t *testing.T) {
	_, err := applyTransform(Transform{Kind: "not-a-real-kind"}, "x", nil)
	if err == nil {
		t.Fatal("expected an error for an unrecognized transform kind")
	}
}

func TestApplyTransform_LookupUsesProvider(t *testing.T) {
	lookup := func(table string, key any) (any, bool) {
		if table == "factions" && key == "fed" {
			return "federation", true
		}
		return nil, false
	}
	got, err := applyTransform(Transform{Kind: TransformLookup, Table: "factions"}, "fed", lookup)
	if err != nil {
		t.Fatalf("apply transform: %v", err)
	}
	if got != "federation" {
		t.Fatalf("expected federation, got %v", got)
	}
}
