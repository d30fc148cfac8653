package translator

import (
	"context"
	"testing"

	"github.com/fleetintel/core/internal/catalog"
)

type fakeOfficerLister struct{ officers []*catalog.Officer }

func (f fakeOfficerLister) List(ctx context.Context) ([]*catalog.Officer, error) { return f.officers, nil }

type fakeShipLister struct{ ships []*catalog.Ship }

func (f fakeShipLister) List(ctx context.Context) ([]*catalog.Ship, error) { return f.ships, nil }

func TestResolve_ExactNameMatchIsConfident(t *testing.T) {
	officers := fakeOfficerLister{officers: []*catalog.Officer{
		{RefID: "officer:spock", Name: "Spock"},
		{RefID: "officer:kirk", Name: "Kirk"},
	}}
	ships := fakeShipLister{}

	mapped := &MappedImport{Officers: []MappedEntity{
		{RefID: "vendor:1", Fields: map[string]any{"name": "Spock"}},
	}}

	resolved, err := Resolve(context.Background(), mapped, officers, ships)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolved.Officers) != 1 {
		t.Fatalf("expected 1 resolved row, got %d", len(resolved.Officers))
	}
	if resolved.Officers[0].RefID != "officer:spock" {
		t.Fatalf("expected officer:spock, got %q", resolved.Officers[0].RefID)
	}
	if len(resolved.Officers[0].Candidates) != 0 {
		t.Fatal("a confident exact match should carry no candidates")
	}
}

func TestResolve_AmbiguousNameYieldsCandidates(t *testing.T) {
	officers := fakeOfficerLister{officers: []*catalog.Officer{
		{RefID: "officer:spock-tos", Name: "Spock"},
		{RefID: "officer:spock-prime", Name: "Spock"},
	}}
	ships := fakeShipLister{}

	mapped := &MappedImport{Officers: []MappedEntity{
		{RefID: "vendor:1", Fields: map[string]any{"name": "Spock"}},
	}}

	resolved, err := Resolve(context.Background(), mapped, officers, ships)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	row := resolved.Officers[0]
	if row.RefID != "" {
		t.Fatalf("expected no confident match for an ambiguous exact name, got %q", row.RefID)
	}
	if len(row.Candidates) == 0 {
		t.Fatal("expected candidates for an ambiguous match")
	}
}

func TestResolve_FuzzyMatchRanksCloseNamesFirst(t *testing.T) {
	officers := fakeOfficerLister{officers: []*catalog.Officer{
		{RefID: "officer:spock", Name: "Spock"},
		{RefID: "officer:worf", Name: "Worf"},
	}}
	ships := fakeShipLister{}

	mapped := &MappedImport{Officers: []MappedEntity{
		{RefID: "vendor:1", Fields: map[string]any{"name": "Spok"}}, // one-char typo
	}}

	resolved, err := Resolve(context.Background(), mapped, officers, ships)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	row := resolved.Officers[0]
	if len(row.Candidates) == 0 {
		t.Fatal("expected fuzzy candidates for a near-miss name")
	}
	if row.Candidates[0].RefID != "officer:spock" {
		t.Fatalf("expected closest candidate to be officer:spock, got %q", row.Candidates[0].RefID)
	}
}

func TestResolve_DocksPassThroughUnchanged(t *testing.T) {
	mapped := &MappedImport{Docks: []MappedEntity{{RefID: "dock:1", Fields: map[string]any{}}}}
	resolved, err := Resolve(context.Background(), mapped, fakeOfficerLister{}, fakeShipLister{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if len(resolved.Docks) != 1 || resolved.Docks[0].RefID != "dock:1" {
		t.Fatalf("expected dock row to pass through with its refId intact, got %+v", resolved.Docks)
	}
}

func TestLevenshtein_KnownDistances(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"spock", "spock", 0},
		{"", "abc", 3},
	}
	for _, c := range cases {
		if got := levenshtein(c.a, c.b); got != c.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", c.a, c.b, got, c.want)
		}
	}
}
