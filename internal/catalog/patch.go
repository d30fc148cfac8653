package catalog

import "encoding/json"

// Patch wraps a raw JSON object so a field can be distinguished in three
// states: absent (left unchanged), present-and-null (cleared), or
// present-with-value (set) — §4.2's "patch fields are
// independently nullable" requirement, which a plain Go struct with
// pointer fields cannot express (a nil pointer is ambiguous between
// "omitted" and "explicitly null").
type Patch struct {
	raw map[string]json.RawMessage
}

// ParsePatch decodes a JSON object into a Patch. An empty or nil body
// parses to an empty Patch (every field absent).
func ParsePatch(body []byte) (Patch, error) {
	if len(body) == 0 {
		return Patch{raw: map[string]json.RawMessage{}}, nil
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return Patch{}, err
	}
	return Patch{raw: raw}, nil
}

// MarshalJSON re-emits the original patch object, so a Patch embedded in
// a changeset (e.g. for a receipt or an argsHash) round-trips faithfully
// instead of marshaling as {} (the default for a struct with only
// unexported fields).
func (p Patch) MarshalJSON() ([]byte, error) {
	if p.raw == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p.raw)
}

// NewPatchFromValues builds a Patch from an already-decoded value map —
// used by the translator's apply stage, which produces field values from
// mapping/transform logic rather than parsing a request body.
func NewPatchFromValues(values map[string]any) (Patch, error) {
	raw := make(map[string]json.RawMessage, len(values))
	for k, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return Patch{}, err
		}
		raw[k] = b
	}
	return Patch{raw: raw}, nil
}

func (p Patch) has(key string) bool {
	_, ok := p.raw[key]
	return ok
}

func (p Patch) isNull(key string) bool {
	v, ok := p.raw[key]
	return ok && string(v) == "null"
}

// stringField reports (value, present). value is nil if the key is
// absent or explicitly null.
func (p Patch) stringField(key string) (*string, bool, error) {
	if !p.has(key) {
		return nil, false, nil
	}
	if p.isNull(key) {
		return nil, true, nil
	}
	var s string
	if err := json.Unmarshal(p.raw[key], &s); err != nil {
		return nil, true, err
	}
	return &s, true, nil
}

func (p Patch) boolField(key string) (*bool, bool, error) {
	if !p.has(key) {
		return nil, false, nil
	}
	if p.isNull(key) {
		return nil, true, nil
	}
	var b bool
	if err := json.Unmarshal(p.raw[key], &b); err != nil {
		return nil, true, err
	}
	return &b, true, nil
}

func (p Patch) intField(key string) (*int, bool, error) {
	if !p.has(key) {
		return nil, false, nil
	}
	if p.isNull(key) {
		return nil, true, nil
	}
	var n int
	if err := json.Unmarshal(p.raw[key], &n); err != nil {
		return nil, true, err
	}
	return &n, true, nil
}

func (p Patch) int64Field(key string) (*int64, bool, error) {
	if !p.has(key) {
		return nil, false, nil
	}
	if p.isNull(key) {
		return nil, true, nil
	}
	var n int64
	if err := json.Unmarshal(p.raw[key], &n); err != nil {
		return nil, true, err
	}
	return &n, true, nil
}
