package normalize

import (
	"strings"
	"unicode"
)

// FirstName cleans a first name: non-ASCII characters are dropped, an
// email address becomes its local part, and names written entirely in
// upper or lower case are capitalized. Mixed case is kept as written.
func FirstName(name string) string {
	name = strings.TrimSpace(stripNonASCII(name))
	if at := strings.Index(name, "@"); at >= 0 {
		name = name[:at]
	}
	if isUpper(name) || isLower(name) {
		name = capitalize(name)
	}
	return name
}

// LastInitial keeps the first character of a last name, upper-cased, if it
// is a letter; anything else yields "".
func LastInitial(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	r := []rune(value)[0]
	if !unicode.IsLetter(r) {
		return ""
	}
	return string(unicode.ToUpper(r))
}

func stripNonASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r > unicode.MaxASCII {
			return -1
		}
		return r
	}, s)
}

// isUpper is true when s has cased letters and none are lower case.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func isLower(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsUpper(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
