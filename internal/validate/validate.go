// Package validate checks mapped guest rows against the field rules and
// normalizes them for persistence.
package validate

import (
	"regexp"
	"strings"

	"github.com/JonMunkholm/guestlist/internal/match"
)

var (
	emailRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRe = regexp.MustCompile(`^\d{7,15}$`)
)

// Record is one guest row projected onto the canonical fields.
type Record struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	FullName  string `json:"fullName"`
	Email     string `json:"email"`
	Company   string `json:"company"`
	JobTitle  string `json:"jobTitle"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
}

// FieldError describes one validation failure on a row.
type FieldError struct {
	Field   match.Field `json:"field"`
	Message string      `json:"message"`
}

// Row pairs a projected record with its validation outcome. Number is
// the 1-based position in the original file counting the header row, so
// it matches what a user sees in a spreadsheet.
type Row struct {
	Index  int          `json:"rowIndex"`
	Number int          `json:"rowNumber"`
	Record Record       `json:"record"`
	Errors []FieldError `json:"errors,omitempty"`
	Valid  bool         `json:"valid"`
}

// Result summarizes validation over a whole grid.
type Result struct {
	Rows        []Row `json:"rows"`
	ValidCount  int   `json:"validCount"`
	ErrorCount  int   `json:"errorCount"`
	TotalErrors int   `json:"totalErrors"`
}

// Validate projects every data row through the enabled mappings and
// checks it. A full name is split into first and last before checking,
// so the derived names are visible on the returned rows. A row is valid
// when a name can be derived, the email is present and well formed, and
// any phone value is plausible.
func Validate(rows [][]string, mappings []match.Mapping) Result {
	result := Result{Rows: make([]Row, 0, len(rows))}
	for i, raw := range rows {
		record := Project(raw, mappings)
		if record.FullName != "" && record.FirstName == "" && record.LastName == "" {
			record.FirstName, record.LastName = SplitFullName(record.FullName)
		}
		row := Row{
			Index:  i,
			Number: i + 2,
			Record: record,
			Errors: checkRecord(record),
		}
		row.Valid = len(row.Errors) == 0
		if row.Valid {
			result.ValidCount++
		} else {
			result.ErrorCount++
			result.TotalErrors += len(row.Errors)
		}
		result.Rows = append(result.Rows, row)
	}
	return result
}

// Project builds a Record from one raw row using the enabled mappings.
// Disabled and unmapped columns are skipped; when two columns map to the
// same field the later column wins.
func Project(raw []string, mappings []match.Mapping) Record {
	var r Record
	for _, m := range mappings {
		if !m.Enabled || m.Column >= len(raw) {
			continue
		}
		value := strings.TrimSpace(raw[m.Column])
		if value == "" {
			continue
		}
		switch m.Field {
		case match.FieldFirstName:
			r.FirstName = value
		case match.FieldLastName:
			r.LastName = value
		case match.FieldFullName:
			r.FullName = value
		case match.FieldEmail:
			r.Email = value
		case match.FieldCompany:
			r.Company = value
		case match.FieldJobTitle:
			r.JobTitle = value
		case match.FieldPhone:
			r.Phone = value
		case match.FieldAddress:
			r.Address = value
		case match.FieldNotes:
			r.Notes = value
		}
	}
	return r
}

func checkRecord(r Record) []FieldError {
	var errs []FieldError

	if r.FirstName == "" && r.FullName == "" {
		errs = append(errs, FieldError{
			Field:   match.FieldFirstName,
			Message: "First name is required",
		})
	}
	if r.LastName == "" && r.FullName == "" {
		errs = append(errs, FieldError{
			Field:   match.FieldLastName,
			Message: "Last name is required",
		})
	}

	switch {
	case r.Email == "":
		errs = append(errs, FieldError{
			Field:   match.FieldEmail,
			Message: "Email is required",
		})
	case !emailRe.MatchString(r.Email):
		errs = append(errs, FieldError{
			Field:   match.FieldEmail,
			Message: "Email format is invalid",
		})
	}

	if r.Phone != "" && !phoneDigitsOK(r.Phone) {
		errs = append(errs, FieldError{
			Field:   match.FieldPhone,
			Message: "Phone number is invalid",
		})
	}

	return errs
}

// phoneDigitsOK strips common separators and checks the remaining
// digits. Phone problems never block an import, but they are surfaced.
func phoneDigitsOK(phone string) bool {
	stripped := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '+':
			return -1
		}
		return r
	}, phone)
	return phoneRe.MatchString(stripped)
}

// Normalize prepares a record for persistence: whitespace trimmed,
// email lower-cased, and first/last derived from the full name when
// both are missing.
func Normalize(r Record) Record {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Company = strings.TrimSpace(r.Company)
	r.JobTitle = strings.TrimSpace(r.JobTitle)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
	r.Notes = strings.TrimSpace(r.Notes)

	if r.FirstName == "" && r.LastName == "" && r.FullName != "" {
		r.FirstName, r.LastName = SplitFullName(r.FullName)
	}
	return r
}

// SplitFullName divides a full name on whitespace: first token becomes
// the first name, the remainder the last name.
func SplitFullName(full string) (first, last string) {
	parts := strings.Fields(full)
	if len(parts) == 0 {
		return "", ""
	}
	first = parts[0]
	if len(parts) > 1 {
		last = strings.Join(parts[1:], " ")
	}
	return first, last
}
