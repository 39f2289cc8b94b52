// Package match maps detected file columns to canonical guest fields.
// Matching is two-phase: header names first (synonym and edit-distance
// matching), then a correction pass driven by the shape of sample values.
package match

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Field is a canonical guest attribute a column can map to. FieldNone
// marks an unmapped column; FieldIgnore marks one the user excluded.
type Field string

const (
	FieldNone      Field = ""
	FieldFirstName Field = "first_name"
	FieldLastName  Field = "last_name"
	FieldFullName  Field = "full_name"
	FieldEmail     Field = "email"
	FieldCompany   Field = "company"
	FieldJobTitle  Field = "job_title"
	FieldPhone     Field = "phone"
	FieldAddress   Field = "address"
	FieldNotes     Field = "notes"
	FieldIgnore    Field = "ignore"
)

// Fields lists every assignable canonical field in display order.
var Fields = []Field{
	FieldFullName,
	FieldFirstName,
	FieldLastName,
	FieldEmail,
	FieldCompany,
	FieldJobTitle,
	FieldPhone,
	FieldAddress,
	FieldNotes,
}

// fieldSynonyms holds the known header phrasings per canonical field.
// Order matters for edit-distance fallback only in that the first field
// reaching the best distance wins.
var fieldSynonyms = map[Field][]string{
	FieldFirstName: {"first name", "firstname", "fname", "given name", "forename"},
	FieldLastName:  {"last name", "lastname", "lname", "surname", "family name"},
	FieldFullName:  {"full name", "fullname", "name", "attendee name", "guest name", "person name"},
	FieldEmail:     {"email", "e-mail", "email address", "e mail", "mail"},
	FieldCompany:   {"company", "organization", "org", "employer", "business", "firm"},
	FieldJobTitle:  {"job title", "jobtitle", "title", "position", "role", "occupation"},
	FieldPhone:     {"phone", "telephone", "tel", "mobile", "cell", "contact number"},
	FieldAddress:   {"address", "street", "location", "city", "state", "zip", "postal"},
	FieldNotes:     {"notes", "note", "comments", "comment", "remarks"},
}

// matchOrder fixes iteration order over fieldSynonyms so matching is
// deterministic.
var matchOrder = []Field{
	FieldFirstName, FieldLastName, FieldFullName, FieldEmail,
	FieldCompany, FieldJobTitle, FieldPhone, FieldAddress, FieldNotes,
}

// Valid reports whether f is an assignable field, FieldIgnore, or
// FieldNone.
func (f Field) Valid() bool {
	if f == FieldNone || f == FieldIgnore {
		return true
	}
	for _, known := range Fields {
		if f == known {
			return true
		}
	}
	return false
}

// Required reports whether f is one of the fields an importable row must
// be able to supply.
func (f Field) Required() bool {
	switch f {
	case FieldFirstName, FieldLastName, FieldFullName, FieldEmail:
		return true
	}
	return false
}

// Label returns a human-readable name for the field.
func (f Field) Label() string {
	switch f {
	case FieldFirstName:
		return "First Name"
	case FieldLastName:
		return "Last Name"
	case FieldFullName:
		return "Full Name"
	case FieldEmail:
		return "Email"
	case FieldCompany:
		return "Company"
	case FieldJobTitle:
		return "Job Title"
	case FieldPhone:
		return "Phone"
	case FieldAddress:
		return "Address"
	case FieldNotes:
		return "Notes"
	case FieldIgnore:
		return "Ignore"
	default:
		return "Unmapped"
	}
}

// normalizeHeader canonicalizes a raw header for matching: Unicode NFKC
// form, lower-cased, with everything but letters, digits, and spaces
// stripped.
func normalizeHeader(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(strings.TrimSpace(s))

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
