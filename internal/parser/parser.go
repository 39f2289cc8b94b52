// Package parser turns raw delimited-text content into a grid of string
// cells. It detects the delimiter, the header row, and the starting column
// heuristically; all three are user-overridable via Options.
package parser

import (
	"regexp"
	"strings"
)

// MaxHeaderSearchRows is the maximum number of rows scanned for the header.
var MaxHeaderSearchRows = 10

// headerVocabulary contains field-name fragments that suggest a header row.
var headerVocabulary = []string{"name", "email", "first", "last", "company", "phone", "title", "address"}

var (
	emailCellRe     = regexp.MustCompile(`@`)
	dateCellRe      = regexp.MustCompile(`\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4}`)
	timestampCellRe = regexp.MustCompile(`\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}`)
	phoneCellRe     = regexp.MustCompile(`\d{3}[-.\s]?\d{3}[-.\s]?\d{4}`)
	isoDateCellRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	letterRe        = regexp.MustCompile(`[a-zA-Z]`)
)

// Grid is the parsed representation of a delimited file: the header cells,
// the data rows (both sliced from StartColumn), and the structural
// parameters that produced them. A Grid is immutable once produced;
// re-parsing with different parameters yields a new Grid.
type Grid struct {
	Headers     []string   `json:"headers"`
	Rows        [][]string `json:"rows"`
	TotalRows   int        `json:"totalRows"`
	AllRows     [][]string `json:"allRows"`
	Delimiter   rune       `json:"-"`
	HeaderRow   int        `json:"headerRowIndex"`
	StartColumn int        `json:"startColumnIndex"`
}

// Options override the structural detection. Zero-value fields mean
// "detect": a NUL Delimiter triggers delimiter detection, and negative
// HeaderRow/StartColumn trigger row/column detection. Use DetectAll for
// a fully-automatic parse.
type Options struct {
	Delimiter   rune
	HeaderRow   int
	StartColumn int
}

// DetectAll returns Options that leave every structural parameter to
// heuristic detection.
func DetectAll() Options {
	return Options{HeaderRow: -1, StartColumn: -1}
}

// Parse splits content into a Grid. Empty content yields an empty Grid,
// not an error; downstream code treats that as nothing to import.
func Parse(content string, opts Options) Grid {
	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter = DetectDelimiter(content)
	}

	allRows := splitRecords(content, delimiter)
	if len(allRows) == 0 {
		return Grid{Delimiter: delimiter, Headers: []string{}, Rows: [][]string{}, AllRows: [][]string{}}
	}

	headerRow := opts.HeaderRow
	if headerRow < 0 {
		headerRow = DetectHeaderRow(allRows)
	}
	if headerRow >= len(allRows) {
		headerRow = len(allRows) - 1
	}

	startColumn := opts.StartColumn
	if startColumn < 0 {
		startColumn = DetectStartColumn(allRows[headerRow])
	}
	if startColumn >= len(allRows[headerRow]) && len(allRows[headerRow]) > 0 {
		startColumn = 0
	}

	headers := sliceFrom(allRows[headerRow], startColumn)

	var rows [][]string
	for i := headerRow + 1; i < len(allRows); i++ {
		if len(allRows[i]) <= startColumn {
			continue
		}
		dataRow := sliceFrom(allRows[i], startColumn)
		if !isEmptyRow(dataRow) {
			rows = append(rows, dataRow)
		}
	}

	return Grid{
		Headers:     headers,
		Rows:        rows,
		TotalRows:   len(rows),
		AllRows:     allRows,
		Delimiter:   delimiter,
		HeaderRow:   headerRow,
		StartColumn: startColumn,
	}
}

// DetectDelimiter returns the candidate delimiter (comma, tab, semicolon)
// occurring most frequently in the first line. Comma wins ties and is the
// default for content with no candidate at all.
func DetectDelimiter(content string) rune {
	firstLine := content
	if idx := strings.IndexAny(content, "\r\n"); idx >= 0 {
		firstLine = content[:idx]
	}

	detected := ','
	maxCount := 0
	for _, delim := range []rune{',', '\t', ';'} {
		count := strings.Count(firstLine, string(delim))
		if count > maxCount {
			maxCount = count
			detected = delim
		}
	}
	return detected
}

// DetectHeaderRow scores each of the first MaxHeaderSearchRows rows and
// returns the index of the best-scoring one. Ties go to the lowest index;
// if every score is <= 0 the first row wins.
func DetectHeaderRow(allRows [][]string) int {
	if len(allRows) == 0 {
		return 0
	}

	rowsToCheck := MaxHeaderSearchRows
	if len(allRows) < rowsToCheck {
		rowsToCheck = len(allRows)
	}

	bestScore := 0
	bestRow := 0
	for i := 0; i < rowsToCheck; i++ {
		if score := ScoreHeaderRow(allRows[i]); score > bestScore {
			bestScore = score
			bestRow = i
		}
	}
	return bestRow
}

// ScoreHeaderRow rates how header-like a row is. Data-shaped cells
// (emails, phone numbers, timestamps, dates) push the score down; cells
// containing known field-name fragments push it up.
func ScoreHeaderRow(row []string) int {
	score := 0

	var hasEmails, hasDates, hasTimestamps, hasPhones bool
	for _, cell := range row {
		if emailCellRe.MatchString(cell) {
			hasEmails = true
		}
		if dateCellRe.MatchString(cell) {
			hasDates = true
		}
		if timestampCellRe.MatchString(cell) {
			hasTimestamps = true
		}
		if phoneCellRe.MatchString(cell) {
			hasPhones = true
		}
	}

	if hasEmails || hasPhones {
		score -= 10
	}
	if hasTimestamps {
		score -= 5
	}
	if hasDates && !hasTimestamps {
		score -= 2
	}

	for _, word := range headerVocabulary {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), word) {
				score += 2
				break
			}
		}
	}

	nonEmpty := 0
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			nonEmpty++
		}
	}
	if nonEmpty > 2 && nonEmpty == len(row) {
		score++
	}

	return score
}

// DetectStartColumn scans the header row left to right and returns the
// index of the first cell that is non-empty, not timestamp/ISO-date
// shaped, and contains at least one letter. Defaults to 0.
func DetectStartColumn(headerRow []string) int {
	for i, raw := range headerRow {
		cell := strings.TrimSpace(raw)
		if cell == "" {
			continue
		}
		if timestampCellRe.MatchString(cell) || isoDateCellRe.MatchString(cell) {
			continue
		}
		if letterRe.MatchString(cell) {
			return i
		}
	}
	return 0
}

// splitRecords splits content into rows of cells. Quote state is tracked
// across the whole input, so a quoted field may contain the delimiter or
// line breaks. An escaped quote is two consecutive quote characters.
// Fully blank records are dropped.
func splitRecords(content string, delimiter rune) [][]string {
	var (
		records  [][]string
		current  []string
		cell     strings.Builder
		inQuotes bool
	)

	endCell := func() {
		current = append(current, CleanCell(cell.String()))
		cell.Reset()
	}
	endRecord := func() {
		endCell()
		blank := true
		for _, c := range current {
			if c != "" {
				blank = false
				break
			}
		}
		if !blank {
			records = append(records, current)
		}
		current = nil
	}

	runes := []rune(content)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				cell.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == delimiter && !inQuotes:
			endCell()
		case (ch == '\n' || ch == '\r') && !inQuotes:
			if ch == '\r' && i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			endRecord()
		default:
			cell.WriteRune(ch)
		}
	}
	if cell.Len() > 0 || len(current) > 0 {
		endRecord()
	}

	return records
}

// CleanCell trims a cell and strips common spreadsheet-export artifacts:
// Excel formula prefixes (="value") and stray surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.TrimSpace(s)
}

func sliceFrom(row []string, start int) []string {
	if start >= len(row) {
		return []string{}
	}
	out := make([]string, len(row)-start)
	copy(out, row[start:])
	return out
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
