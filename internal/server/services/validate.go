package services

import (
	"regexp"
	"strings"
)

// emailPattern accepts the usual local@domain.tld shape with a 2+ letter TLD.
var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidEmail reports whether s looks like a well-formed email address.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// anyBlank reports whether any field is empty after trimming whitespace.
func anyBlank(fields ...string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return true
		}
	}
	return false
}
