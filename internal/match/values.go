package match

import (
	"regexp"
	"strings"
	"unicode"
)

var emailValueRe = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// looksLikeEmail reports whether v has the shape of an email address.
func looksLikeEmail(v string) bool {
	return emailValueRe.MatchString(strings.TrimSpace(v))
}

// looksLikeFirstName accepts a single capitalized word of 2 to 20
// characters that is mostly letters.
func looksLikeFirstName(v string) bool {
	v = strings.TrimSpace(v)
	if len(v) < 2 || len(v) > 20 {
		return false
	}
	if !startsUpper(v) {
		return false
	}
	if allDigits(v) || strings.Contains(v, "@") {
		return false
	}
	if len(strings.Fields(v)) != 1 {
		return false
	}
	return letterRatio(v) > 0.7
}

// looksLikeLastName is like looksLikeFirstName but allows up to two
// words and 30 characters, for surnames like "van Dyke".
func looksLikeLastName(v string) bool {
	v = strings.TrimSpace(v)
	if len(v) < 2 || len(v) > 30 {
		return false
	}
	if !startsUpper(v) {
		return false
	}
	if allDigits(v) || strings.Contains(v, "@") {
		return false
	}
	if len(strings.Fields(v)) > 2 {
		return false
	}
	return letterRatio(v) > 0.7
}

// looksLikeFullName accepts two or more words where the first is
// capitalized and the whole value is mostly letters.
func looksLikeFullName(v string) bool {
	v = strings.TrimSpace(v)
	if len(v) < 3 || strings.Contains(v, "@") {
		return false
	}
	if v[0] >= '0' && v[0] <= '9' {
		return false
	}
	words := strings.Fields(v)
	if len(words) < 2 {
		return false
	}
	if !startsUpper(words[0]) {
		return false
	}
	return letterRatio(v) > 0.7
}

func startsUpper(v string) bool {
	for _, r := range v {
		return r >= 'A' && r <= 'Z'
	}
	return false
}

func allDigits(v string) bool {
	for _, r := range v {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(v) > 0
}

// letterRatio returns the fraction of runes in v that are letters,
// counting spaces as letters so multi-word names are not penalized.
func letterRatio(v string) float64 {
	if v == "" {
		return 0
	}
	letters, total := 0, 0
	for _, r := range v {
		total++
		if unicode.IsLetter(r) || r == ' ' {
			letters++
		}
	}
	return float64(letters) / float64(total)
}
