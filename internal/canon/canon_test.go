package canon

import "testing"

func TestHashStableAcrossKeyOrder(t *testing.T) {
	a := map[string]any{"b": 1, "a": 2}
	b := map[string]any{"a": 2, "b": 1}

	ha, err := Hash(a)
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	hb, err := Hash(b)
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if ha != hb {
		t.Fatalf("expected stable hash regardless of map key order, got %s vs %s", ha, hb)
	}
}

func TestArgsHashDiffersByTool(t *testing.T) {
	args := map[string]any{"shipRefId": "r1", "name": "Alpha"}
	h1, err := ArgsHash("create_loadout", args)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := ArgsHash("update_loadout", args)
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h2 {
		t.Fatalf("expected different hashes for different tools with same args")
	}
}

func TestWeakETagFormat(t *testing.T) {
	tag, err := WeakETag(map[string]any{"x": 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(tag) < 5 || tag[:3] != `W/"` {
		t.Fatalf("expected weak etag format, got %q", tag)
	}
}
