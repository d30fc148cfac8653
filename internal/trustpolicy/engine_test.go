package trustpolicy

import (
	"context"
	"errors"
	"testing"
)

type fakeSettings struct {
	valueJSON  []byte
	provenance string
	err        error
}

func (f fakeSettings) Get(ctx context.Context, userID, key string) ([]byte, string, error) {
	return f.valueJSON, f.provenance, f.err
}

func TestResolve_UserOverrideWinsWhenProvenanceIsUser(t *testing.T) {
	settings := fakeSettings{valueJSON: []byte(`{"activate_preset":"auto"}`), provenance: "user"}
	engine := NewEngine(settings, DefaultSystemTiers())

	got := engine.Resolve(context.Background(), "user-1", "activate_preset")
	if got != TierAuto {
		t.Fatalf("expected user override to win, got %q", got)
	}
}

func TestResolve_DefaultProvenanceOverrideIsIgnored(t *testing.T) {
	settings := fakeSettings{valueJSON: []byte(`{"activate_preset":"auto"}`), provenance: "default"}
	engine := NewEngine(settings, DefaultSystemTiers())

	got := engine.Resolve(context.Background(), "user-1", "activate_preset")
	if got != TierBlock {
		t.Fatalf("expected system default (block) since provenance isn't 'user', got %q", got)
	}
}

func TestResolve_FallsThroughToSystemDefaultOnSettingsError(t *testing.T) {
	settings := fakeSettings{err: errors.New("boom")}
	engine := NewEngine(settings, DefaultSystemTiers())

	got := engine.Resolve(context.Background(), "user-1", "activate_preset")
	if got != TierBlock {
		t.Fatalf("expected a settings failure to fall through to system default, got %q", got)
	}
}

func TestResolve_UnclassifiedMutatingToolDefaultsToApproveNeverAuto(t *testing.T) {
	settings := fakeSettings{err: ErrNotFound}
	engine := NewEngine(settings, DefaultSystemTiers())

	got := engine.Resolve(context.Background(), "user-1", "some_never_classified_tool")
	if got != TierApprove {
		t.Fatalf("expected approve fallback for an unclassified tool, got %q", got)
	}
}

func TestResolve_MalformedOverrideJSONFallsThrough(t *testing.T) {
	settings := fakeSettings{valueJSON: []byte(`not-json`), provenance: "user"}
	engine := NewEngine(settings, DefaultSystemTiers())

	got := engine.Resolve(context.Background(), "user-1", "activate_preset")
	if got != TierBlock {
		t.Fatalf("expected fall-through to system default on malformed override, got %q", got)
	}
}

func TestResolve_UnknownTierStringInOverrideFallsThrough(t *testing.T) {
	settings := fakeSettings{valueJSON: []byte(`{"activate_preset":"yolo"}`), provenance: "user"}
	engine := NewEngine(settings, DefaultSystemTiers())

	got := engine.Resolve(context.Background(), "user-1", "activate_preset")
	if got != TierBlock {
		t.Fatalf("expected fall-through on an invalid tier string, got %q", got)
	}
}
