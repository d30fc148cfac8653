package translator

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/fleetintel/core/internal/catalog"
)

// officerLister and shipLister are the narrow surfaces Resolve needs from
// internal/catalog — kept as local interfaces rather than importing the
// concrete stores' full method sets, the same pattern catalog itself
// uses for ReceiptWriter.
type officerLister interface {
	List(ctx context.Context) ([]*catalog.Officer, error)
}

type shipLister interface {
	List(ctx context.Context) ([]*catalog.Ship, error)
}

type nameIndexEntry struct {
	refID string
	name  string
}

// maxCandidates bounds how many fuzzy matches surface per unresolved row
// (§4.3: "top few candidates, not the whole catalog").
const maxCandidates = 5

// Resolve matches each mapped officer/ship against the reference catalog
// by name, in four widening passes (§4.3): exact, normalized
// (lowercase + trimmed), prefix, then a Levenshtein-bounded fuzzy match.
// A row with exactly one confident match gets RefID set directly; an
// ambiguous or low-confidence row is left for a human decision via
// Candidates. Docks are not catalog-backed, so they pass through
// unresolved-matching untouched.
func Resolve(ctx context.Context, mapped *MappedImport, officers officerLister, ships shipLister) (*ResolvedImport, error) {
	officerRows, err := officers.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("translator: list officers for resolve: %w", err)
	}
	shipRows, err := ships.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("translator: list ships for resolve: %w", err)
	}

	officerIndex := make([]nameIndexEntry, 0, len(officerRows))
	for _, o := range officerRows {
		officerIndex = append(officerIndex, nameIndexEntry{refID: o.RefID, name: o.Name})
	}
	shipIndex := make([]nameIndexEntry, 0, len(shipRows))
	for _, sh := range shipRows {
		shipIndex = append(shipIndex, nameIndexEntry{refID: sh.RefID, name: sh.Name})
	}

	out := &ResolvedImport{
		Officers: resolveRows(mapped.Officers, officerIndex),
		Ships:    resolveRows(mapped.Ships, shipIndex),
		Docks:    passthroughRows(mapped.Docks),
	}
	return out, nil
}

func resolveRows(entities []MappedEntity, index []nameIndexEntry) []ResolvedRow {
	out := make([]ResolvedRow, 0, len(entities))
	for i, e := range entities {
		row := ResolvedRow{RowIndex: i, Entity: e}

		name, _ := e.Fields["name"].(string)
		if name == "" {
			// Mapping supplied no name to match against; the vendor's own
			// id is the best we can do.
			row.RefID = e.RefID
			out = append(out, row)
			continue
		}

		refID, confident, candidates := matchName(name, index)
		if confident {
			row.RefID = refID
		} else {
			row.Candidates = candidates
		}
		out = append(out, row)
	}
	return out
}

func passthroughRows(entities []MappedEntity) []ResolvedRow {
	out := make([]ResolvedRow, 0, len(entities))
	for i, e := range entities {
		out = append(out, ResolvedRow{RowIndex: i, Entity: e, RefID: e.RefID})
	}
	return out
}

func matchName(name string, index []nameIndexEntry) (refID string, confident bool, candidates []NameCandidate) {
	normalized := normalizeName(name)

	var exact, normMatches []nameIndexEntry
	for _, entry := range index {
		if entry.name == name {
			exact = append(exact, entry)
		}
		if normalizeName(entry.name) == normalized {
			normMatches = append(normMatches, entry)
		}
	}
	if len(exact) == 1 {
		return exact[0].refID, true, nil
	}
	if len(normMatches) == 1 {
		return normMatches[0].refID, true, nil
	}

	var prefixMatches []nameIndexEntry
	for _, entry := range index {
		if strings.HasPrefix(normalizeName(entry.name), normalized) || strings.HasPrefix(normalized, normalizeName(entry.name)) {
			prefixMatches = append(prefixMatches, entry)
		}
	}
	if len(prefixMatches) == 1 {
		return prefixMatches[0].refID, true, nil
	}

	// Fuzzy fallback: rank every catalog entry by edit distance against
	// the normalized name, keep the closest few as candidates.
	type scored struct {
		entry nameIndexEntry
		dist  int
	}
	scoredEntries := make([]scored, 0, len(index))
	for _, entry := range index {
		scoredEntries = append(scoredEntries, scored{entry: entry, dist: levenshtein(normalized, normalizeName(entry.name))})
	}
	sort.Slice(scoredEntries, func(i, j int) bool { return scoredEntries[i].dist < scoredEntries[j].dist })

	limit := maxCandidates
	if len(scoredEntries) < limit {
		limit = len(scoredEntries)
	}
	for _, s := range scoredEntries[:limit] {
		maxLen := len(normalized)
		if len(s.entry.name) > maxLen {
			maxLen = len(s.entry.name)
		}
		confidence := 1.0
		if maxLen > 0 {
			confidence = 1.0 - float64(s.dist)/float64(maxLen)
		}
		if confidence < 0 {
			confidence = 0
		}
		candidates = append(candidates, NameCandidate{RefID: s.entry.refID, Name: s.entry.name, Confidence: confidence})
	}
	return "", false, candidates
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// levenshtein computes the classic single-row edit distance between a
// and b; good enough for short catalog names without pulling in a
// dedicated string-metrics dependency.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := cur[j-1] + 1
			sub := prev[j-1] + cost
			min := del
			if ins < min {
				min = ins
			}
			if sub < min {
				min = sub
			}
			cur[j] = min
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}
