// Package dates parses Portuguese date expressions and validates event dates.
package dates

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/capitalize-ai/event-assistant/internal/textnorm"
)

// ISOLayout is the persisted date format.
const ISOLayout = "2006-01-02"

var months = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"marco":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

var weekdays = map[string]time.Weekday{
	"domingo": time.Sunday,
	"segunda": time.Monday,
	"terca":   time.Tuesday,
	"quarta":  time.Wednesday,
	"quinta":  time.Thursday,
	"sexta":   time.Friday,
	"sabado":  time.Saturday,
}

var (
	isoPattern     = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	numericPattern = regexp.MustCompile(`\b(\d{1,2})[/.-](\d{1,2})[/.-](\d{4}|\d{2})\b`)
	partialPattern = regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})\b`)
	verbosePattern = regexp.MustCompile(`\b(\d{1,2})o?\s+de\s+(janeiro|fevereiro|marco|abril|maio|junho|julho|agosto|setembro|outubro|novembro|dezembro)(?:\s+de\s+(\d{4}))?\b`)
	weekdayPattern = regexp.MustCompile(`\b(domingo|segunda|terca|quarta|quinta|sexta|sabado)(?:-feira|\s+feira)?\b`)
)

// Parse extracts the first date mentioned in text. Dates without a year
// resolve to the next occurrence relative to now.
func Parse(text string, now time.Time) (time.Time, bool) {
	s := textnorm.Clean(text)
	today := truncate(now)

	if m := isoPattern.FindStringSubmatch(s); m != nil {
		return build(atoi(m[1]), atoi(m[2]), atoi(m[3]), now.Location())
	}
	if m := numericPattern.FindStringSubmatch(s); m != nil {
		year := atoi(m[3])
		if len(m[3]) == 2 {
			year += 2000
		}
		return build(year, atoi(m[2]), atoi(m[1]), now.Location())
	}
	if m := verbosePattern.FindStringSubmatch(s); m != nil {
		if m[3] != "" {
			return build(atoi(m[3]), int(months[m[2]]), atoi(m[1]), now.Location())
		}
		return nextOccurrence(today, int(months[m[2]]), atoi(m[1]))
	}
	if m := partialPattern.FindStringSubmatch(s); m != nil {
		return nextOccurrence(today, atoi(m[2]), atoi(m[1]))
	}

	switch {
	case strings.Contains(s, "depois de amanha"):
		return today.AddDate(0, 0, 2), true
	case textnorm.ContainsWord(s, "amanha"):
		return today.AddDate(0, 0, 1), true
	case textnorm.ContainsWord(s, "hoje"):
		return today, true
	}

	if m := weekdayPattern.FindStringSubmatch(s); m != nil {
		target := weekdays[m[1]]
		ahead := (int(target) - int(today.Weekday()) + 7) % 7
		if ahead == 0 {
			ahead = 7
		}
		return today.AddDate(0, 0, ahead), true
	}

	return time.Time{}, false
}

// ParseISO parses text and returns the ISO representation.
func ParseISO(text string, now time.Time) (string, bool) {
	d, ok := Parse(text, now)
	if !ok {
		return "", false
	}
	return d.Format(ISOLayout), true
}

// FormatBR renders an ISO date as dd/mm/yyyy, returning the input when it is
// not an ISO date.
func FormatBR(iso string) string {
	d, err := time.Parse(ISOLayout, iso)
	if err != nil {
		return iso
	}
	return d.Format("02/01/2006")
}

func nextOccurrence(today time.Time, month, day int) (time.Time, bool) {
	d, ok := build(today.Year(), month, day, today.Location())
	if !ok {
		return time.Time{}, false
	}
	if d.Before(today) {
		return build(today.Year()+1, month, day, today.Location())
	}
	return d, true
}

// build rejects out-of-range components instead of letting time.Date normalize them.
func build(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	if d.Day() != day || int(d.Month()) != month {
		return time.Time{}, false
	}
	return d, true
}

func truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

var weekdayNames = [...]string{"domingo", "segunda-feira", "terça-feira", "quarta-feira", "quinta-feira", "sexta-feira", "sábado"}

// WeekdayName returns the Portuguese name of d.
func WeekdayName(d time.Weekday) string {
	return weekdayNames[d]
}
