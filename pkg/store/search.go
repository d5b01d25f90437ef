package store

import (
	"sort"
	"strings"
	"unicode"

	"saral/pkg/domain"
)

// searchTerms splits a query into lower-cased words of at least 3 runes.
func searchTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && !unicode.Is(unicode.Mn, r) && !unicode.Is(unicode.Mc, r)
	})
	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 3 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}

// rankChunks orders chunks by how many query term occurrences they contain
// and drops chunks with none.
func rankChunks(terms []string, chunks []domain.Chunk, limit int) []domain.Chunk {
	if len(terms) == 0 || limit <= 0 {
		return nil
	}
	type scored struct {
		chunk domain.Chunk
		score int
	}
	hits := make([]scored, 0, len(chunks))
	for _, c := range chunks {
		lower := strings.ToLower(c.Content)
		score := 0
		for _, term := range terms {
			score += strings.Count(lower, term)
		}
		if score > 0 {
			hits = append(hits, scored{chunk: c, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]domain.Chunk, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.chunk)
	}
	return out
}
