package match

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoRe      = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	numericRe  = regexp.MustCompile(`^(\d{1,2})[/.\- ](\d{1,2})[/.\- ](\d{2}|\d{4})$`)
	dayFirstRe = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]+)\.?,?\s+(\d{4})$`)
	monthDayRe = regexp.MustCompile(`^([A-Za-z]+)\.?\s+(\d{1,2}),?\s+(\d{4})$`)
)

var monthNames = map[string]time.Month{
	"january": time.January, "february": time.February, "march": time.March,
	"april": time.April, "may": time.May, "june": time.June,
	"july": time.July, "august": time.August, "september": time.September,
	"october": time.October, "november": time.November, "december": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"aug": time.August, "sep": time.September, "oct": time.October,
	"nov": time.November, "dec": time.December,
}

// Layouts tried by the free-text fallback. Each is validated by Go's strict
// calendar parsing, so 31 Feb style inputs fail rather than roll over.
var fallbackLayouts = []string{
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"January 2 2006",
	"2006-01-02",
	time.RFC3339,
	time.RFC1123,
}

// ParseDate parses heterogeneous user-entered date text into a strict ISO
// YYYY-MM-DD string. Numeric dates are always read day-first; text that could
// only be month-first is rejected rather than guessed. Returns false when the
// text is empty, unparseable or names an impossible calendar date.
func ParseDate(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", false
	}

	if m := isoRe.FindStringSubmatch(text); m != nil {
		return buildDate(atoi(m[1]), atoi(m[2]), atoi(m[3]))
	}

	if m := numericRe.FindStringSubmatch(text); m != nil {
		day, month, year := atoi(m[1]), atoi(m[2]), atoi(m[3])
		if len(m[3]) == 2 {
			if year >= 70 {
				year += 1900
			} else {
				year += 2000
			}
		}
		return buildDate(year, month, day)
	}

	if m := dayFirstRe.FindStringSubmatch(text); m != nil {
		if month, ok := monthNames[strings.ToLower(m[2])]; ok {
			return buildDate(atoi(m[3]), int(month), atoi(m[1]))
		}
		return "", false
	}

	if m := monthDayRe.FindStringSubmatch(text); m != nil {
		if month, ok := monthNames[strings.ToLower(m[1])]; ok {
			return buildDate(atoi(m[3]), int(month), atoi(m[2]))
		}
		return "", false
	}

	// Generic parsing is only worth attempting for text with a letter or a
	// comma; bare numerics that reached this point are ambiguous.
	if strings.ContainsAny(text, ",") || strings.IndexFunc(text, isLetter) >= 0 {
		for _, layout := range fallbackLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return buildDate(t.Year(), int(t.Month()), t.Day())
			}
		}
	}

	return "", false
}

// buildDate reconstructs a calendar date and confirms the components survive
// the round trip, rejecting overflow dates like 31 February.
func buildDate(year, month, day int) (string, bool) {
	if year < 1 || month < 1 || month > 12 || day < 1 || day > 31 {
		return "", false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return "", false
	}
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day), true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
