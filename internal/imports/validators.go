package imports

// validators.go holds the field-level predicates applied to raw cell values.
//
// Each validator answers "does this cell conform to its domain" and nothing
// else; normalization and type conversion happen in rows.go after the
// predicates pass. All of them reject rather than panic on empty or
// malformed input.

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// MaxEmailLength caps the accepted address length per RFC 5321's practical
// limit.
const MaxEmailLength = 254

var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidCapitalization reports whether every delimiter-separated word starts
// with an uppercase ASCII letter followed only by lowercase ASCII letters.
// Empty words from doubled delimiters are skipped, so an empty value is
// vacuously valid.
func ValidCapitalization(value, delimiter string) bool {
	for _, word := range strings.Split(value, delimiter) {
		if word == "" {
			continue
		}
		runes := []rune(word)
		if runes[0] < 'A' || runes[0] > 'Z' {
			return false
		}
		for _, r := range runes[1:] {
			if r < 'a' || r > 'z' {
				return false
			}
		}
	}
	return true
}

// ValidGrade reports whether the value is numeric and within grades 1-12.
// Fractional values such as "7.5" are accepted; the normalizer truncates
// them toward zero when building the typed row.
func ValidGrade(value string) bool {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(f) {
		return false
	}
	return f >= 1 && f <= 12
}

// ValidZipcode accepts a 5-digit zip or a 9-digit zip+4 in DDDDD-DDDD form.
func ValidZipcode(value string) bool {
	switch len(value) {
	case 5:
		return allDigits(value)
	case 10:
		return value[5] == '-' && allDigits(value[:5]) && allDigits(value[6:])
	default:
		return false
	}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ValidEmail checks basic address syntax and the overall length cap.
func ValidEmail(value string) bool {
	if len(value) > MaxEmailLength {
		return false
	}
	return emailRegex.MatchString(value)
}

// ValidDivision accepts the three fair divisions, case-sensitively.
func ValidDivision(value string) bool {
	switch value {
	case "Junior", "Senior", "Elementary":
		return true
	}
	return false
}

// ValidGender accepts the fair registration gender codes, case-sensitively.
func ValidGender(value string) bool {
	switch value {
	case "M", "F", "O", "N", "Z":
		return true
	}
	return false
}

// ValidTeam accepts the string-typed team flag exactly as exported by the
// registration system.
func ValidTeam(value string) bool {
	return value == "True" || value == "False"
}

// ValidRelease accepts the string-typed media release flag.
func ValidRelease(value string) bool {
	return value == "Yes" || value == "No"
}
