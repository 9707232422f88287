package services

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	reLetters = regexp.MustCompile(`\pL`)
	// Only allow digits, spaces, +, -, (, )
	reAllowed = regexp.MustCompile(`^[0-9+\-\s\(\)]+$`)
)

// NormPhone normalizes phone numbers to the +7XXXXXXXXXX form used in the app.
// Rules: strip spaces/dashes/parens; 00.. -> +..; 8XXXXXXXXXX -> +7..;
// 7XXXXXXXXXX -> +7..; 10 bare digits -> +7..; ensure leading +.
// Anything that is not a phone number yields "".
func NormPhone(p string) string {
	s := strings.TrimSpace(p)

	if s == "" {
		return ""
	}
	if reLetters.MatchString(s) {
		return ""
	}
	if !reAllowed.MatchString(s) {
		return ""
	}

	// strip separators
	repl := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "\n", "", "\r", "", "\t", "")
	s = repl.Replace(s)

	// 00.. -> +..
	if strings.HasPrefix(s, "00") {
		s = "+" + s[2:]
	}
	if !strings.HasPrefix(s, "+") {
		switch {
		// 8 (9xx) ... domestic trunk prefix
		case len(s) == 11 && s[0] == '8':
			s = "+7" + s[1:]
		case len(s) == 11 && s[0] == '7':
			s = "+" + s
		case len(s) == 10:
			s = "+7" + s
		default:
			s = "+" + s
		}
	}
	if strings.Count(s, "+") != 1 || len(digitsOnly(s)) < 7 {
		return ""
	}
	return s
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
