package composition

import (
	"encoding/json"
	"testing"
)

func TestApplyStringPtrField_DistinguishesAbsentNullAndValue(t *testing.T) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(`{"notes": null, "bridgeCoreId": "bc-1"}`), &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	notes := stringPtr("old notes")
	applyStringPtrField(fields, "notes", &notes)
	if notes != nil {
		t.Fatalf("expected notes cleared to nil, got %v", *notes)
	}

	bridgeCoreID := stringPtr("old-bc")
	applyStringPtrField(fields, "bridgeCoreId", &bridgeCoreID)
	if bridgeCoreID == nil || *bridgeCoreID != "bc-1" {
		t.Fatalf("expected bridgeCoreId updated to bc-1, got %v", bridgeCoreID)
	}

	belowDeckPolicyID := stringPtr("unchanged")
	applyStringPtrField(fields, "belowDeckPolicyId", &belowDeckPolicyID)
	if belowDeckPolicyID == nil || *belowDeckPolicyID != "unchanged" {
		t.Fatalf("expected absent key to leave value unchanged, got %v", belowDeckPolicyID)
	}
}

func TestApplyStringSliceField_NullClearsToNil(t *testing.T) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(`{"tags": null}`), &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	tags := []string{"a", "b"}
	applyStringSliceField(fields, "tags", &tags)
	if tags != nil {
		t.Fatalf("expected tags cleared to nil, got %v", tags)
	}
}

func stringPtr(s string) *string { return &s }
