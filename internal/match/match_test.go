package match

import "testing"

func TestMatchHeader_ExactSynonyms(t *testing.T) {
	tests := []struct {
		header string
		want   Field
	}{
		{"Email", FieldEmail},
		{"E-Mail", FieldEmail},
		{"email address", FieldEmail},
		{"First Name", FieldFirstName},
		{"FIRSTNAME", FieldFirstName},
		{"fname", FieldFirstName},
		{"Surname", FieldLastName},
		{"Full Name", FieldFullName},
		{"Attendee Name", FieldFullName},
		{"Company", FieldCompany},
		{"Organization", FieldCompany},
		{"Job Title", FieldJobTitle},
		{"Position", FieldJobTitle},
		{"Phone", FieldPhone},
		{"Mobile", FieldPhone},
		{"Address", FieldAddress},
		{"City", FieldAddress},
		{"Notes", FieldNotes},
		{"Remarks", FieldNotes},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			if got := MatchHeader(tt.header); got != tt.want {
				t.Errorf("MatchHeader(%q) = %q, want %q", tt.header, got, tt.want)
			}
		})
	}
}

func TestMatchHeader_SubstringMatch(t *testing.T) {
	// "Work Email" contains the synonym "email" after normalization.
	if got := MatchHeader("Work Email"); got != FieldEmail {
		t.Errorf("MatchHeader(%q) = %q, want %q", "Work Email", got, FieldEmail)
	}
	if got := MatchHeader("Guest First Name"); got != FieldFirstName {
		t.Errorf("MatchHeader(%q) = %q, want %q", "Guest First Name", got, FieldFirstName)
	}
}

func TestMatchHeader_PunctuationStripped(t *testing.T) {
	if got := MatchHeader("  First-Name!  "); got != FieldFirstName {
		t.Errorf("MatchHeader stripped = %q, want %q", got, FieldFirstName)
	}
}

func TestMatchHeader_LevenshteinFallback(t *testing.T) {
	// "emial" is distance 2 from "email".
	if got := MatchHeader("emial"); got != FieldEmail {
		t.Errorf("MatchHeader(%q) = %q, want %q", "emial", got, FieldEmail)
	}
	// "phnoe" is distance 2 from "phone".
	if got := MatchHeader("phnoe"); got != FieldPhone {
		t.Errorf("MatchHeader(%q) = %q, want %q", "phnoe", got, FieldPhone)
	}
}

func TestMatchHeader_NoMatch(t *testing.T) {
	for _, header := range []string{"Ticket Count", "RSVP Status", ""} {
		if got := MatchHeader(header); got != FieldNone {
			t.Errorf("MatchHeader(%q) = %q, want unmapped", header, got)
		}
	}
}

func TestAutoMatch_ValuePromotion(t *testing.T) {
	headers := []string{"Column 1", "Column 2"}
	rows := [][]string{
		{"alice@example.com", "Alice Smith"},
		{"bob@example.com", "Bob Jones"},
		{"carol@example.com", "Carol White"},
	}
	mappings := AutoMatch(headers, rows)

	if mappings[0].Field != FieldEmail {
		t.Errorf("column 0: got %q, want %q", mappings[0].Field, FieldEmail)
	}
	if !mappings[0].Required {
		t.Error("email mapping should be required")
	}
	if mappings[1].Field != FieldFullName {
		t.Errorf("column 1: got %q, want %q", mappings[1].Field, FieldFullName)
	}
}

func TestAutoMatch_EmailDemotion(t *testing.T) {
	// Header says email but values are phone numbers.
	headers := []string{"Email"}
	rows := [][]string{
		{"555-123-4567"},
		{"555-987-6543"},
		{"555-222-3333"},
	}
	mappings := AutoMatch(headers, rows)
	if mappings[0].Field != FieldNone {
		t.Errorf("got %q, want unmapped after demotion", mappings[0].Field)
	}
	if mappings[0].Required {
		t.Error("demoted mapping should not be required")
	}
}

func TestAutoMatch_SparseColumnNotPromoted(t *testing.T) {
	// 3 emails across 10 rows is 30%, well under the 70% threshold.
	headers := []string{"Column 1"}
	rows := [][]string{
		{"alice@example.com"},
		{"bob@example.com"},
		{"carol@example.com"},
		{""}, {""}, {""}, {""}, {""}, {""}, {""},
	}
	mappings := AutoMatch(headers, rows)
	if mappings[0].Field != FieldNone {
		t.Errorf("got %q, want unmapped for a mostly empty column", mappings[0].Field)
	}
}

func TestAutoMatch_EmptyEmailColumnDemoted(t *testing.T) {
	headers := []string{"Email"}
	rows := [][]string{{""}, {""}, {""}}
	mappings := AutoMatch(headers, rows)
	if mappings[0].Field != FieldNone {
		t.Errorf("got %q, want unmapped when no values back the header", mappings[0].Field)
	}
}

func TestAutoMatch_NoRowsKeepsHeaderMatch(t *testing.T) {
	mappings := AutoMatch([]string{"Email"}, nil)
	if mappings[0].Field != FieldEmail {
		t.Errorf("got %q, want header match kept without sample rows", mappings[0].Field)
	}
}

func TestAutoMatch_HeaderMatchNotOverridden(t *testing.T) {
	// A "Notes" column full of name-shaped values stays notes.
	headers := []string{"Notes"}
	rows := [][]string{{"Alice"}, {"Bob"}, {"Carol"}}
	mappings := AutoMatch(headers, rows)
	if mappings[0].Field != FieldNotes {
		t.Errorf("got %q, want %q", mappings[0].Field, FieldNotes)
	}
}

func TestAutoMatch_ContactColumnWithPhonesNotEmail(t *testing.T) {
	headers := []string{"Contact"}
	rows := [][]string{
		{"555-123-4567"},
		{"555-987-6543"},
	}
	mappings := AutoMatch(headers, rows)
	if mappings[0].Field == FieldEmail {
		t.Error("phone-shaped values must not promote to email")
	}
}

func TestAutoMatch_Idempotent(t *testing.T) {
	headers := []string{"Name", "Email", "Mystery"}
	rows := [][]string{
		{"Alice Smith", "alice@example.com", "x"},
		{"Bob Jones", "bob@example.com", "y"},
	}
	first := AutoMatch(headers, rows)
	second := AutoMatch(headers, rows)
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("mapping %d differs between runs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestAutoMatch_EnabledByDefault(t *testing.T) {
	mappings := AutoMatch([]string{"Email", "Ticket Count"}, nil)
	for _, m := range mappings {
		if !m.Enabled {
			t.Errorf("column %d should default to enabled", m.Column)
		}
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"email", "email", 0},
		{"emial", "email", 2},
		{"kitten", "sitting", 3},
	}
	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestValuePredicates(t *testing.T) {
	t.Run("email", func(t *testing.T) {
		if !looksLikeEmail("a@b.co") {
			t.Error("a@b.co should look like an email")
		}
		for _, v := range []string{"a@b", "plain", "a b@c.d", ""} {
			if looksLikeEmail(v) {
				t.Errorf("%q should not look like an email", v)
			}
		}
	})
	t.Run("first name", func(t *testing.T) {
		if !looksLikeFirstName("Alice") {
			t.Error("Alice should look like a first name")
		}
		for _, v := range []string{"alice", "A", "Alice Smith", "1234", "a@b.co"} {
			if looksLikeFirstName(v) {
				t.Errorf("%q should not look like a first name", v)
			}
		}
	})
	t.Run("last name", func(t *testing.T) {
		for _, v := range []string{"Smith", "Van Dyke"} {
			if !looksLikeLastName(v) {
				t.Errorf("%q should look like a last name", v)
			}
		}
		if looksLikeLastName("De La Cruz Jr") {
			t.Error("four words should not look like a last name")
		}
	})
	t.Run("full name", func(t *testing.T) {
		if !looksLikeFullName("Alice Smith") {
			t.Error("Alice Smith should look like a full name")
		}
		for _, v := range []string{"Alice", "a@b.co x", "9 Lives"} {
			if looksLikeFullName(v) {
				t.Errorf("%q should not look like a full name", v)
			}
		}
	})
}

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  First Name  ", "first name"},
		{"E-Mail", "email"},
		{"PHONE#", "phone"},
		{"Ｅｍａｉｌ", "email"}, // full-width compatibility forms
	}
	for _, tt := range tests {
		if got := normalizeHeader(tt.in); got != tt.want {
			t.Errorf("normalizeHeader(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
