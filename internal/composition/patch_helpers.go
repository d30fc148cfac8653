package composition

import "encoding/json"

// applyStringField overwrites *dst with the patch's value for key, iff
// key is present. catalog.Patch keeps its raw fields unexported, so
// stores in this package re-derive the same absent/null/value
// three-state semantics from the map[string]json.RawMessage produced by
// its (exported) MarshalJSON rather than duplicating Patch itself. A
// present-but-null key clears dst to "".
func applyStringField(fields map[string]json.RawMessage, key string, dst *string) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	if string(raw) == "null" {
		*dst = ""
		return
	}
	var v string
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}

// applyStringPtrField overwrites *dst with the patch's value for key,
// iff key is present. A present-but-null key clears dst to nil.
func applyStringPtrField(fields map[string]json.RawMessage, key string, dst **string) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	if string(raw) == "null" {
		*dst = nil
		return
	}
	var v string
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = &v
	}
}

func applyIntField(fields map[string]json.RawMessage, key string, dst *int) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return
	}
	var v int
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}

func applyIntPtrField(fields map[string]json.RawMessage, key string, dst **int) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	if string(raw) == "null" {
		*dst = nil
		return
	}
	var v int
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = &v
	}
}

func applyBoolField(fields map[string]json.RawMessage, key string, dst *bool) {
	raw, ok := fields[key]
	if !ok || string(raw) == "null" {
		return
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}

// applyStringSliceField overwrites *dst with the patch's value for key,
// iff key is present. A present-but-null key clears dst to nil.
func applyStringSliceField(fields map[string]json.RawMessage, key string, dst *[]string) {
	raw, ok := fields[key]
	if !ok {
		return
	}
	if string(raw) == "null" {
		*dst = nil
		return
	}
	var v []string
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}
