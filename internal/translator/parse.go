package translator

import (
	"bytes"
	"encoding/base64"
	"encoding/csv"
	"fmt"
)

// ErrInvalidPayload marks every parse-stage failure §4.3 maps to
// INVALID_PARAM at the HTTP boundary.
type ErrInvalidPayload struct {
	Reason string
}

func (e *ErrInvalidPayload) Error() string { return "translator: invalid import payload: " + e.Reason }

// Parse decodes an import payload of the declared format into
// ParsedImportData. Only csv is implemented directly; xlsx decoding is
// wired as an open dispatch slot (see DESIGN.md) rather than
// hand-rolled, pending a spreadsheet-parsing dependency.
func Parse(fileName string, format Format, contentBase64 string) (*ParsedImportData, error) {
	raw, err := base64.StdEncoding.DecodeString(contentBase64)
	if err != nil {
		return nil, &ErrInvalidPayload{Reason: fmt.Sprintf("content is not valid base64: %v", err)}
	}

	switch format {
	case FormatCSV:
		return parseCSV(raw)
	case FormatXLSX:
		return nil, &ErrInvalidPayload{Reason: "xlsx decoding is not wired in this deployment"}
	default:
		return nil, &ErrInvalidPayload{Reason: fmt.Sprintf("unsupported format %q for %s", format, fileName)}
	}
}

func parseCSV(raw []byte) (*ParsedImportData, error) {
	reader := csv.NewReader(bytes.NewReader(raw))
	reader.FieldsPerRecord = -1 // rows may be ragged; callers validate per-row shape downstream

	records, err := reader.ReadAll()
	if err != nil {
		return nil, &ErrInvalidPayload{Reason: fmt.Sprintf("malformed csv: %v", err)}
	}
	if len(records) == 0 {
		return &ParsedImportData{}, nil
	}

	return &ParsedImportData{Headers: records[0], Rows: records[1:]}, nil
}
