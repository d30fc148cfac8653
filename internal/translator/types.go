// Package translator implements the parse→translate→resolve→apply
// import pipeline (§4.3) as a sequence of functions over typed
// structs; the resolve stage reads the catalog through the narrow
// officerLister/shipLister interfaces for its fuzzy match. The transforms vocabulary is a closed Go switch over
// TransformKind, mirroring the enumerated-policy-kind dispatch in
// core/pkg/llm/modelpolicy/enforcer.go.
package translator

import "encoding/json"

// ParsedImportData is the output of the parse stage: raw tabular data
// with no semantic interpretation yet.
type ParsedImportData struct {
	Headers []string
	Rows    [][]string
}

// Format is the import payload's declared shape.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatJSON Format = "json"
)

// TransformKind is the closed, enumerated transform vocabulary (the design
// §4.3). An unrecognized kind is an error from applyTransform in the
// translate stage: the row is counted as errored and a warning is
// recorded, rather than the field passing through silently.
type TransformKind string

const (
	TransformLookup    TransformKind = "lookup"
	TransformToString  TransformKind = "toString"
	TransformToNumber  TransformKind = "toNumber"
	TransformToBoolean TransformKind = "toBoolean"
)

// Transform is one configured field transform. Table is only meaningful
// for TransformLookup.
type Transform struct {
	Kind  TransformKind `json:"kind"`
	Table string        `json:"table,omitempty"`
}

// EntityConfig is the declarative per-entity mapping section of a
// Translator (§4.3 "officers?{...}", "ships?{...}", "docks?{...}").
type EntityConfig struct {
	SourcePath    string               `json:"sourcePath"`
	IDField       string               `json:"idField"`
	IDPrefix      string               `json:"idPrefix"`
	ShipIDPrefix  string               `json:"shipIdPrefix,omitempty"`
	FieldMap      map[string]string    `json:"fieldMap"`
	Defaults      map[string]any       `json:"defaults,omitempty"`
	Transforms    map[string]Transform `json:"transforms,omitempty"`
}

// Config is a vendor-specific translator definition: a declarative
// configuration, not code, per §4.3.
type Config struct {
	Name       string        `json:"name"`
	Version    string        `json:"version"`
	SourceType string        `json:"sourceType"`
	Officers   *EntityConfig `json:"officers,omitempty"`
	Ships      *EntityConfig `json:"ships,omitempty"`
	Docks      *EntityConfig `json:"docks,omitempty"`
}

// MappedEntity is one translated row: refId plus every mapped/defaulted
// overlay field.
type MappedEntity struct {
	RefID  string
	Fields map[string]any
}

// MappedImport is the output of the translate stage.
type MappedImport struct {
	Version    string
	ExportDate string
	Source     string
	Officers   []MappedEntity
	Ships      []MappedEntity
	Docks      []MappedEntity
}

// Stats counts how the translate stage dispositioned every row it saw.
type Stats struct {
	Translated int
	Errored    int
	Skipped    int
}

// TranslateResult is the translate stage's outcome (§4.3: "{
// success: translatedCount>0 && !fatal, data?, stats, warnings[] }").
type TranslateResult struct {
	Success  bool
	Data     *MappedImport
	Stats    Stats
	Warnings []string
}

// NameCandidate is one fuzzy-match result from the resolve stage.
type NameCandidate struct {
	RefID      string
	Name       string
	Confidence float64
}

// ResolvedRow is one mapped entity after the resolve stage: either
// confidently matched (RefID set) or left for a human to pick among
// Candidates.
type ResolvedRow struct {
	RowIndex   int
	Entity     MappedEntity
	RefID      string
	Candidates []NameCandidate
}

// ResolvedImport groups resolved rows by entity kind, mirroring
// MappedImport's shape.
type ResolvedImport struct {
	Officers []ResolvedRow
	Ships    []ResolvedRow
	Docks    []ResolvedRow
}

// rawPayload is the generic decoded-JSON shape translate walks with
// resolveSourcePath.
type rawPayload = map[string]any

func mustRaw(b []byte) (rawPayload, error) {
	var v rawPayload
	err := json.Unmarshal(b, &v)
	return v, err
}
