package match

import "strings"

// levenshteinThreshold is the maximum edit distance at which a header is
// still considered a match for a synonym.
const levenshteinThreshold = 3

// MaxSampleRows caps how many data rows the value-correction phase
// inspects per column.
const MaxSampleRows = 10

// Mapping ties one file column to a canonical field.
type Mapping struct {
	Column   int    `json:"columnIndex"`
	Header   string `json:"header"`
	Field    Field  `json:"field"`
	Required bool   `json:"required"`
	Enabled  bool   `json:"enabled"`
}

// AutoMatch proposes a mapping for every header. Headers are matched by
// name first; columns still unmapped (and email mappings that look
// wrong) are then corrected by sampling up to MaxSampleRows values from
// rows.
func AutoMatch(headers []string, rows [][]string) []Mapping {
	mappings := make([]Mapping, len(headers))
	for i, header := range headers {
		field := MatchHeader(header)
		mappings[i] = Mapping{
			Column:   i,
			Header:   header,
			Field:    field,
			Required: field.Required(),
			Enabled:  true,
		}
	}
	correctByValues(mappings, rows)
	return mappings
}

// MatchHeader matches a single raw header against the synonym lists.
// Exact and substring matches win outright; otherwise the closest
// synonym within the edit-distance threshold is used. Returns FieldNone
// when nothing is close enough.
func MatchHeader(header string) Field {
	normalized := normalizeHeader(header)
	if normalized == "" {
		return FieldNone
	}

	for _, field := range matchOrder {
		for _, synonym := range fieldSynonyms[field] {
			pattern := normalizeHeader(synonym)
			if normalized == pattern || strings.Contains(normalized, pattern) {
				return field
			}
		}
	}

	best := FieldNone
	bestDistance := levenshteinThreshold + 1
	for _, field := range matchOrder {
		for _, synonym := range fieldSynonyms[field] {
			d := levenshtein(normalized, normalizeHeader(synonym))
			if d < bestDistance {
				bestDistance = d
				best = field
			}
		}
	}
	return best
}

// correctByValues adjusts mappings in place based on what the sampled
// column values look like. Unmapped columns can be promoted to email or
// one of the name fields; a column mapped to email whose values are not
// email-shaped is demoted back to unmapped. Header-based mappings to
// other fields are never overridden. Ratios are over all sampled rows,
// so a mostly empty column never crosses a promotion threshold.
func correctByValues(mappings []Mapping, rows [][]string) {
	if len(rows) == 0 {
		return
	}
	if len(rows) > MaxSampleRows {
		rows = rows[:MaxSampleRows]
	}

	for i := range mappings {
		m := &mappings[i]
		samples := columnSamples(rows, m.Column)

		switch m.Field {
		case FieldNone:
			switch {
			case shapeRatio(samples, looksLikeEmail) >= 0.7:
				m.Field = FieldEmail
			case shapeRatio(samples, looksLikeFullName) >= 0.6:
				m.Field = FieldFullName
			case shapeRatio(samples, looksLikeFirstName) >= 0.5:
				m.Field = FieldFirstName
			case shapeRatio(samples, looksLikeLastName) >= 0.5:
				m.Field = FieldLastName
			}
			m.Required = m.Field.Required()
		case FieldEmail:
			if shapeRatio(samples, looksLikeEmail) < 0.3 {
				m.Field = FieldNone
				m.Required = false
			}
		}
	}
}

// columnSamples collects one value per sampled row for a column. Rows
// too short for the column contribute an empty value, which no shape
// predicate accepts.
func columnSamples(rows [][]string, col int) []string {
	samples := make([]string, len(rows))
	for i, row := range rows {
		if col < len(row) {
			samples[i] = strings.TrimSpace(row[col])
		}
	}
	return samples
}

// shapeRatio returns the fraction of samples the predicate accepts.
func shapeRatio(samples []string, pred func(string) bool) float64 {
	if len(samples) == 0 {
		return 0
	}
	n := 0
	for _, s := range samples {
		if pred(s) {
			n++
		}
	}
	return float64(n) / float64(len(samples))
}

// levenshtein computes the edit distance between two strings using a
// two-row rolling table.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
