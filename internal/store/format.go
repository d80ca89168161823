package store

import (
	"strconv"
	"strings"
)

// Quote is a price rendered for the trigger table: the two emphasized
// digits operators glance at, plus the full figure underneath.
type Quote struct {
	Mini string
	Full string
}

// MiniQuote renders a price using the venue's decimal-precision hint and
// the instrument category. digits is nil when the venue supplied no hint.
func MiniQuote(price *float64, category string, digits *int) Quote {
	if price == nil {
		return Quote{Mini: "-", Full: "-"}
	}
	full := strconv.FormatFloat(*price, 'f', -1, 64)
	intPart, decPart := splitDigits(full)
	cat := strings.ToLower(category)

	if digits != nil && *digits == 0 {
		return Quote{Mini: firstTwoDigits(lastN(full, 3)), Full: full}
	}
	if strings.Contains(cat, "fx") || strings.Contains(cat, "cross") || strings.Contains(cat, "exotic") {
		if digits != nil && (*digits == 5 || *digits == 3) {
			return Quote{Mini: firstTwoDigits(lastN(intPart+decPart, 3)), Full: full}
		}
	}
	if strings.Contains(cat, "metal") {
		if digits != nil && *digits == 2 {
			return Quote{Mini: firstTwoDigits(lastN(full, 5)), Full: full}
		}
		if digits != nil && *digits == 3 {
			return Quote{Mini: firstTwoDigits(lastN(intPart+decPart, 3)), Full: full}
		}
	}
	if strings.Contains(cat, "crypto") {
		if digits != nil && *digits > 0 && len(intPart) >= 3 {
			return Quote{Mini: intPart[len(intPart)-3 : len(intPart)-1], Full: full}
		}
		return Quote{Mini: firstTwoDigits(lastN(full, 6)), Full: full}
	}
	if len(intPart) >= 2 {
		return Quote{Mini: intPart[len(intPart)-2:], Full: full}
	}
	return Quote{Mini: firstTwoDigits(full), Full: full}
}

// splitDigits separates a rendered number into its integer and decimal
// digit runs, dropping signs and separators.
func splitDigits(full string) (intPart, decPart string) {
	raw := full
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		intPart, decPart = raw[:i], raw[i+1:]
	} else {
		intPart = raw
	}
	return onlyDigits(intPart), onlyDigits(decPart)
}

// firstTwoDigits keeps the first two digits of s, padding with dashes
// when fewer remain.
func firstTwoDigits(s string) string {
	d := onlyDigits(s)
	for len(d) < 2 {
		d += "-"
	}
	return d[:2]
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func lastN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
