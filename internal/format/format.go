// internal/format/format.go

// Package format contains the pure string transformations applied to HR data
// before it is typed into the MetaX portal. Every function is deterministic
// and safe to call with empty input.
package format

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/xkilldash9x/metaxg-cli/internal/mappings"
)

// DigitsOnly strips every non-digit rune from s.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CPF formats an 11-digit CPF as XXX.XXX.XXX-XX. Empty input yields empty
// output; any other length is an error.
func CPF(cpf string) (string, error) {
	if cpf == "" {
		return "", nil
	}
	d := DigitsOnly(cpf)
	if len(d) != 11 {
		return "", fmt.Errorf("invalid CPF %q: expected 11 digits, got %d", cpf, len(d))
	}
	return fmt.Sprintf("%s.%s.%s-%s", d[:3], d[3:6], d[6:9], d[9:]), nil
}

// PIS normalizes a PIS/PASEP number to exactly 11 digits, left-padding with
// zeros when shorter. Empty input yields empty output.
func PIS(pis string) (string, error) {
	if pis == "" {
		return "", nil
	}
	d := DigitsOnly(pis)
	if len(d) < 11 {
		d = strings.Repeat("0", 11-len(d)) + d
	}
	if len(d) != 11 {
		return "", fmt.Errorf("invalid PIS/PASEP %q", pis)
	}
	return d, nil
}

// Date renders an ISO date (YYYY-MM-DD) or a time.Time as DD/MM/YYYY, the
// only format the portal's date fields accept.
func Date(v any) (string, error) {
	switch d := v.(type) {
	case nil:
		return "", nil
	case time.Time:
		if d.IsZero() {
			return "", nil
		}
		return d.Format("02/01/2006"), nil
	case string:
		if d == "" {
			return "", nil
		}
		t, err := time.Parse("2006-01-02", d)
		if err != nil {
			return "", fmt.Errorf("invalid date %q: %w", d, err)
		}
		return t.Format("02/01/2006"), nil
	default:
		return "", fmt.Errorf("invalid date value of type %T", v)
	}
}

// ClampDate caps future dates at today. Document issue dates occasionally
// arrive from the HR system with a future date the portal rejects.
func ClampDate(t, now time.Time) time.Time {
	if t.After(now) {
		return now
	}
	return t
}

// Phone strips a phone number down to digits and discards it entirely when
// fewer than 10 remain (DDD plus local number).
func Phone(phone string) string {
	d := DigitsOnly(phone)
	if len(d) < 10 {
		return ""
	}
	return d
}

var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeText trims, uppercases and removes accents so that HR values can
// be compared against portal option labels byte for byte.
func NormalizeText(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToUpper(strings.TrimSpace(s))
	out, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return out
}

// JobTitle normalizes an HR job description and applies the static rename
// table when the portal uses a different label for the same cargo.
func JobTitle(description string) string {
	n := NormalizeText(description)
	if mapped, ok := mappings.JobTitles[n]; ok {
		return mapped
	}
	return n
}

// HouseNumber replaces the HR placeholder "0" with the portal's convention
// for addresses without a number.
func HouseNumber(n string) string {
	n = strings.TrimSpace(n)
	if n == "" || n == "0" {
		return "S/N"
	}
	return n
}
