package translator

import "testing"

func TestTranslate_MapsFieldsAndDefaults(t *testing.T) {
	cfg := &Config{
		Name:    "test-vendor",
		Version: "1",
		Officers: &EntityConfig{
			SourcePath: "data.officers",
			IDField:    "id",
			IDPrefix:   "officer:",
			FieldMap:   map[string]string{"id": "vendorId", "officerName": "name", "lvl": "userLevel"},
			Defaults:   map[string]any{"target": false},
			Transforms: map[string]Transform{"userLevel": {Kind: TransformToNumber}},
		},
	}
	payload := rawPayload{
		"data": map[string]any{
			"officers": []any{
				map[string]any{"id": "42", "officerName": "Spock", "lvl": "10"},
				map[string]any{"id": "43", "officerName": "Kirk"}, // missing lvl is fine, not required
				"not-an-object",
				map[string]any{"officerName": "no id field"},
			},
		},
	}

	result, err := Translate(cfg, payload)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if !result.Success {
		t.Fatal("expected success with at least one translated row")
	}
	if result.Stats.Translated != 2 {
		t.Fatalf("expected 2 translated, got %d", result.Stats.Translated)
	}
	if result.Stats.Errored != 2 {
		t.Fatalf("expected 2 errored, got %d", result.Stats.Errored)
	}
	if len(result.Data.Officers) != 2 {
		t.Fatalf("expected 2 mapped officers, got %d", len(result.Data.Officers))
	}

	first := result.Data.Officers[0]
	if first.RefID != "officer:42" {
		t.Fatalf("expected officer:42, got %s", first.RefID)
	}
	if first.Fields["name"] != "Spock" {
		t.Fatalf("expected name Spock, got %v", first.Fields["name"])
	}
	if first.Fields["userLevel"] != 10.0 {
		t.Fatalf("expected userLevel 10, got %v", first.Fields["userLevel"])
	}
	if first.Fields["target"] != false {
		t.Fatalf("expected default target=false, got %v", first.Fields["target"])
	}
}

func TestTranslate_MissingSourcePathWarnsWithoutFatal(t *testing.T) {
	cfg := &Config{
		Officers: &EntityConfig{SourcePath: "nope.officers", IDField: "id", FieldMap: map[string]string{}},
	}
	result, err := Translate(cfg, rawPayload{})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if result.Success {
		t.Fatal("expected success=false when nothing translated")
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a warning about the missing sourcePath")
	}
}

func TestResolveSourcePath_WalksNestedObjects(t *testing.T) {
	payload := rawPayload{"a": map[string]any{"b": map[string]any{"c": "leaf"}}}
	v, ok := resolveSourcePath(payload, "a.b.c")
	if !ok || v != "leaf" {
		t.Fatalf("expected leaf, got %v, %v", v, ok)
	}
	if _, ok := resolveSourcePath(payload, "a.b.missing"); ok {
		t.Fatal("expected not found for a missing segment")
	}
}
