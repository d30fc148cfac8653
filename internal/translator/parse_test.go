package translator

import (
	"encoding/base64"
	"testing"
)

func TestParse_CSVRoundTrips(t *testing.T) {
	csvBody := "name,level\nSpock,10\nKirk,9\n"
	encoded := base64.StdEncoding.EncodeToString([]byte(csvBody))

	data, err := Parse("roster.csv", FormatCSV, encoded)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(data.Headers) != 2 || data.Headers[0] != "name" {
		t.Fatalf("unexpected headers: %v", data.Headers)
	}
	if len(data.Rows) != 2 || data.Rows[0][0] != "Spock" {
		t.Fatalf("unexpected rows: %v", data.Rows)
	}
}

func TestParse_RejectsInvalidBase64(t *testing.T) {
	_, err := Parse("roster.csv", FormatCSV, "not-base64!!!")
	if err == nil {
		t.Fatal("expected an error for invalid base64")
	}
	var invalid *ErrInvalidPayload
	if _, ok := err.(*ErrInvalidPayload); !ok {
		t.Fatalf("expected *ErrInvalidPayload, got %T (%v)", err, invalid)
	}
}

func TestParse_XLSXNotWired(t *testing.T) {
	_, err := Parse("roster.xlsx", FormatXLSX, base64.StdEncoding.EncodeToString([]byte("x")))
	if err == nil {
		t.Fatal("expected xlsx to report unimplemented, not succeed silently")
	}
}

func TestParse_EmptyBodyYieldsEmptyData(t *testing.T) {
	data, err := Parse("empty.csv", FormatCSV, "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(data.Headers) != 0 || len(data.Rows) != 0 {
		t.Fatalf("expected empty result, got %+v", data)
	}
}
