package validate

import (
	"testing"

	"github.com/JonMunkholm/guestlist/internal/match"
)

func nameEmailMappings() []match.Mapping {
	return []match.Mapping{
		{Column: 0, Header: "Full Name", Field: match.FieldFullName, Required: true, Enabled: true},
		{Column: 1, Header: "Email", Field: match.FieldEmail, Required: true, Enabled: true},
		{Column: 2, Header: "Phone", Field: match.FieldPhone, Enabled: true},
	}
}

func TestValidate_ValidRow(t *testing.T) {
	rows := [][]string{{"Alice Smith", "alice@example.com", "555-123-4567"}}
	result := Validate(rows, nameEmailMappings())

	if result.ValidCount != 1 || result.ErrorCount != 0 {
		t.Fatalf("counts = %d valid, %d errors, want 1/0", result.ValidCount, result.ErrorCount)
	}
	row := result.Rows[0]
	if !row.Valid {
		t.Errorf("row should be valid, errors: %+v", row.Errors)
	}
	if row.Number != 2 {
		t.Errorf("row number = %d, want 2", row.Number)
	}
}

func TestValidate_MissingName(t *testing.T) {
	rows := [][]string{{"", "alice@example.com", ""}}
	result := Validate(rows, nameEmailMappings())

	row := result.Rows[0]
	if row.Valid {
		t.Fatal("row without any name should be invalid")
	}
	if len(row.Errors) != 2 {
		t.Fatalf("got %d errors, want first and last name errors: %+v", len(row.Errors), row.Errors)
	}
	if row.Errors[0].Field != match.FieldFirstName || row.Errors[1].Field != match.FieldLastName {
		t.Errorf("unexpected error fields: %+v", row.Errors)
	}
}

func TestValidate_FullNameSatisfiesNames(t *testing.T) {
	mappings := []match.Mapping{
		{Column: 0, Field: match.FieldFullName, Enabled: true},
		{Column: 1, Field: match.FieldEmail, Enabled: true},
	}
	rows := [][]string{{"Bob Jones", "bob@example.com"}}
	result := Validate(rows, mappings)
	if !result.Rows[0].Valid {
		t.Errorf("full name should satisfy both name requirements: %+v", result.Rows[0].Errors)
	}
}

func TestValidate_SplitsFullName(t *testing.T) {
	mappings := []match.Mapping{
		{Column: 0, Field: match.FieldFullName, Enabled: true},
		{Column: 1, Field: match.FieldEmail, Enabled: true},
		{Column: 2, Field: match.FieldCompany, Enabled: true},
	}
	rows := [][]string{{"Jane Doe", "jane@example.com", "Acme"}}
	result := Validate(rows, mappings)

	record := result.Rows[0].Record
	if record.FirstName != "Jane" || record.LastName != "Doe" {
		t.Errorf("split names = %q / %q, want Jane / Doe", record.FirstName, record.LastName)
	}
	if record.FullName != "Jane Doe" {
		t.Errorf("full name = %q", record.FullName)
	}
}

func TestValidate_SplitKeepsExplicitNames(t *testing.T) {
	mappings := []match.Mapping{
		{Column: 0, Field: match.FieldFirstName, Enabled: true},
		{Column: 1, Field: match.FieldFullName, Enabled: true},
		{Column: 2, Field: match.FieldEmail, Enabled: true},
	}
	rows := [][]string{{"Alice", "Someone Else", "alice@example.com"}}
	result := Validate(rows, mappings)

	record := result.Rows[0].Record
	if record.FirstName != "Alice" || record.LastName != "" {
		t.Errorf("explicit names overwritten: %q / %q", record.FirstName, record.LastName)
	}
}

func TestValidate_Email(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		message string
	}{
		{"missing", "", "Email is required"},
		{"no domain", "alice@", "Email format is invalid"},
		{"no at sign", "alice.example.com", "Email format is invalid"},
		{"embedded space", "a b@example.com", "Email format is invalid"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := [][]string{{"Alice Smith", tt.email, ""}}
			result := Validate(rows, nameEmailMappings())
			row := result.Rows[0]
			if row.Valid {
				t.Fatal("row should be invalid")
			}
			if got := row.Errors[0].Message; got != tt.message {
				t.Errorf("message = %q, want %q", got, tt.message)
			}
		})
	}
}

func TestValidate_Phone(t *testing.T) {
	tests := []struct {
		name  string
		phone string
		valid bool
	}{
		{"empty is fine", "", true},
		{"dashed", "555-123-4567", true},
		{"international", "+1 (555) 123-4567", true},
		{"dotted", "555.123.4567", false},
		{"too short", "12345", false},
		{"too long", "12345678901234567890", false},
		{"letters", "call me maybe", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := [][]string{{"Alice Smith", "alice@example.com", tt.phone}}
			result := Validate(rows, nameEmailMappings())
			if got := result.Rows[0].Valid; got != tt.valid {
				t.Errorf("valid = %v, want %v (errors: %+v)", got, tt.valid, result.Rows[0].Errors)
			}
		})
	}
}

func TestValidate_DisabledMappingSkipped(t *testing.T) {
	mappings := []match.Mapping{
		{Column: 0, Field: match.FieldFullName, Enabled: true},
		{Column: 1, Field: match.FieldEmail, Enabled: false},
	}
	rows := [][]string{{"Alice Smith", "alice@example.com"}}
	result := Validate(rows, mappings)
	row := result.Rows[0]
	if row.Record.Email != "" {
		t.Errorf("disabled column projected anyway: %q", row.Record.Email)
	}
	if row.Valid {
		t.Error("row should be invalid without an email mapping")
	}
}

func TestValidate_ShortRowTolerated(t *testing.T) {
	rows := [][]string{{"Alice Smith"}}
	result := Validate(rows, nameEmailMappings())
	row := result.Rows[0]
	if row.Record.FullName != "Alice Smith" {
		t.Errorf("full name = %q", row.Record.FullName)
	}
	if row.Valid {
		t.Error("row missing the email cell should be invalid")
	}
}

func TestValidate_RowNumbersCountHeader(t *testing.T) {
	rows := [][]string{
		{"Alice Smith", "alice@example.com", ""},
		{"Bob Jones", "bob@example.com", ""},
	}
	result := Validate(rows, nameEmailMappings())
	for i, want := range []int{2, 3} {
		if got := result.Rows[i].Number; got != want {
			t.Errorf("row %d number = %d, want %d", i, got, want)
		}
	}
}

func TestNormalize(t *testing.T) {
	r := Normalize(Record{
		FullName: "  Alice Smith  ",
		Email:    " Alice@Example.COM ",
		Company:  " Acme ",
	})
	if r.Email != "alice@example.com" {
		t.Errorf("email = %q", r.Email)
	}
	if r.FirstName != "Alice" || r.LastName != "Smith" {
		t.Errorf("split names = %q / %q", r.FirstName, r.LastName)
	}
	if r.FullName != "Alice Smith" {
		t.Errorf("full name = %q", r.FullName)
	}
	if r.Company != "Acme" {
		t.Errorf("company = %q", r.Company)
	}
}

func TestNormalize_KeepsExplicitNames(t *testing.T) {
	r := Normalize(Record{FirstName: "Alice", FullName: "Someone Else", Email: "a@b.co"})
	if r.FirstName != "Alice" || r.LastName != "" {
		t.Errorf("explicit names overwritten: %q / %q", r.FirstName, r.LastName)
	}
}

func TestSplitFullName(t *testing.T) {
	tests := []struct {
		full, first, last string
	}{
		{"Alice Smith", "Alice", "Smith"},
		{"Ana de la Cruz", "Ana", "de la Cruz"},
		{"Cher", "Cher", ""},
		{"", "", ""},
		{"  spaced   out  ", "spaced", "out"},
	}
	for _, tt := range tests {
		first, last := SplitFullName(tt.full)
		if first != tt.first || last != tt.last {
			t.Errorf("SplitFullName(%q) = %q, %q; want %q, %q", tt.full, first, last, tt.first, tt.last)
		}
	}
}
