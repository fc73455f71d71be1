// Package temporal resolves natural-language date phrases into ISO calendar
// dates, relative to a reference instant in a fixed deployment timezone.
package temporal

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// ISOLayout is the calendar date format used for every resolved date.
const ISOLayout = "2006-01-02"

// DefaultTimeZone is the deployment timezone used when none is configured.
const DefaultTimeZone = "Asia/Colombo"

// ErrUnresolvable is returned when a phrase cannot be mapped to a date.
var ErrUnresolvable = errors.New("unresolvable date phrase")

// IsISODate reports whether s is a valid YYYY-MM-DD calendar date.
func IsISODate(s string) bool {
	if len(s) != len(ISOLayout) {
		return false
	}
	_, err := time.Parse(ISOLayout, s)
	return err == nil
}

// Resolver binds Resolve to one timezone.
type Resolver struct {
	loc *time.Location
}

// NewResolver loads the named IANA timezone.
func NewResolver(tz string) (*Resolver, error) {
	if tz == "" {
		tz = DefaultTimeZone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}
	return &Resolver{loc: loc}, nil
}

// NewResolverIn creates a Resolver for an already loaded location.
func NewResolverIn(loc *time.Location) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc}
}

// Location returns the resolver's timezone.
func (r *Resolver) Location() *time.Location { return r.loc }

// Resolve converts phrase into an ISO date relative to ref.
func (r *Resolver) Resolve(phrase string, ref time.Time) (string, error) {
	return Resolve(phrase, ref, r.loc)
}

// Today returns the ISO date of ref in the resolver's timezone.
func (r *Resolver) Today(ref time.Time) string {
	return ref.In(r.loc).Format(ISOLayout)
}

// Resolve converts phrase into an ISO date relative to ref converted into
// loc. Ambiguous phrases prefer the future: a bare weekday is always 1 to 7
// days ahead. Fixed phrases, weekdays, numeric and month-day dates are
// matched locally; everything else goes to dateparser. It has no side
// effects.
func Resolve(phrase string, ref time.Time, loc *time.Location) (string, error) {
	raw := strings.TrimSpace(phrase)
	if raw == "" {
		return "", ErrUnresolvable
	}
	if IsISODate(raw) {
		return raw, nil
	}
	if loc == nil {
		loc = time.UTC
	}

	ref = ref.In(loc)
	today := midnight(ref)
	p := normalize(raw)
	rest, hasNext := strings.CutPrefix(p, "next ")

	if impossible(p) || (hasNext && impossible(rest)) {
		return "", fmt.Errorf("%w: %q", ErrUnresolvable, phrase)
	}

	if d, ok := interpret(p, today); ok {
		return d.Format(ISOLayout), nil
	}
	if hasNext {
		if d, ok := interpret(rest, today); ok {
			return d.Format(ISOLayout), nil
		}
	}
	if d, ok := parseFuzzy(p, ref); ok {
		return d.Format(ISOLayout), nil
	}
	if hasNext {
		if d, ok := parseFuzzy(rest, ref); ok {
			return d.Format(ISOLayout), nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnresolvable, phrase)
}

// parseFuzzy hands p to dateparser, anchored at ref and preferring future
// dates. The result is truncated to its calendar day in ref's location.
func parseFuzzy(p string, ref time.Time) (time.Time, bool) {
	p = canonicalRelative(strings.TrimPrefix(p, "the "))
	dt, err := dps.Parse(&dps.Configuration{
		Languages:           []string{"en"},
		CurrentTime:         ref,
		DefaultTimezone:     ref.Location(),
		PreferredDateSource: dps.Future,
	}, p)
	if err != nil || dt.Time.IsZero() {
		return time.Time{}, false
	}
	return midnight(dt.Time.In(ref.Location())), true
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

var (
	spaceRe    = regexp.MustCompile(`\s+`)
	leadingRe  = regexp.MustCompile(`^(?:due\s+(?:on|by)\s+|due\s+|by\s+|on\s+|for\s+)`)
	clockRe    = regexp.MustCompile(`\s+(?:at\s+)?\d{1,2}(?::\d{2})?\s*(?:am|pm)$|\s+at\s+\d{1,2}(?::\d{2})?$|\s+at\s+(?:noon|midnight)$`)
	partDayRe  = regexp.MustCompile(`\s+(?:morning|afternoon|evening|night|noon)$`)
	relativeRe = regexp.MustCompile(`^(?:in\s+)?(\d+|[a-z]+)\s+(day|week|month|year)s?(?:\s+(from now|from today|later|ago))?$`)
	monthDayRe = regexp.MustCompile(`^([a-z]+)\.?\s+(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?(?:,?\s+(\d{4}))?$`)
	dayMonthRe = regexp.MustCompile(`^(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)?\s+(?:of\s+)?([a-z]+)\.?(?:,?\s+(\d{4}))?$`)
	ordinalRe  = regexp.MustCompile(`^(?:the\s+)?(\d{1,2})(?:st|nd|rd|th)$`)
	dmyRe      = regexp.MustCompile(`^(\d{1,2})[/.](\d{1,2})[/.](\d{4})$`)
	ymdRe      = regexp.MustCompile(`^(\d{4})[/.-](\d{1,2})[/.-](\d{1,2})$`)
)

// normalize lowercases, collapses whitespace and strips punctuation and
// leading prepositions ("by Friday", "due on May 5").
func normalize(p string) string {
	p = strings.ToLower(p)
	p = spaceRe.ReplaceAllString(p, " ")
	p = strings.Trim(p, " .!?;\"'")
	p = leadingRe.ReplaceAllString(p, "")
	return strings.TrimSpace(p)
}

// impossible reports phrases naming a calendar date that never exists
// (February 30, 31/04, the 45th). They fail instead of being rolled over.
func impossible(p string) bool {
	if m := ymdRe.FindStringSubmatch(p); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		_, ok := calendarDate(y, time.Month(mo), d, time.UTC)
		return !ok
	}
	if m := dmyRe.FindStringSubmatch(p); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		_, ok := calendarDate(y, time.Month(mo), d, time.UTC)
		return !ok
	}
	if m := ordinalRe.FindStringSubmatch(p); m != nil {
		d, _ := strconv.Atoi(m[1])
		return d < 1 || d > 31
	}
	monthName, day, year, ok := splitMonthDay(p)
	if !ok {
		return false
	}
	month := months[monthName]
	if year != 0 {
		_, valid := calendarDate(year, month, day, time.UTC)
		return !valid
	}
	// 2024 is a leap year, so February 29 passes.
	_, valid := calendarDate(2024, month, day, time.UTC)
	return !valid
}

// canonicalRelative rewrites "two weeks from now" and "a month later" as
// "in 2 weeks" so dateparser sees one form per direction.
func canonicalRelative(p string) string {
	m := relativeRe.FindStringSubmatch(p)
	if m == nil {
		return p
	}
	if !strings.HasPrefix(p, "in ") && m[3] == "" {
		return p
	}
	n := m[1]
	if w, ok := numberWords[n]; ok {
		n = strconv.Itoa(w)
	}
	if m[3] == "ago" {
		return n + " " + m[2] + "s ago"
	}
	return "in " + n + " " + m[2] + "s"
}

// interpret tries each local phrase class, first on p and then with any
// trailing time-of-day removed ("tomorrow at 3pm", "friday evening").
func interpret(p string, today time.Time) (time.Time, bool) {
	if d, ok := interpretDate(p, today); ok {
		return d, true
	}
	stripped := strings.TrimSpace(partDayRe.ReplaceAllString(clockRe.ReplaceAllString(p, ""), ""))
	if stripped != p && stripped != "" {
		return interpretDate(stripped, today)
	}
	return time.Time{}, false
}

func interpretDate(p string, today time.Time) (time.Time, bool) {
	for _, rule := range rules {
		if d, ok := rule(p, today); ok {
			return d, true
		}
	}
	return time.Time{}, false
}

var rules = []func(string, time.Time) (time.Time, bool){
	keyword,
	weekday,
	monthDay,
	numeric,
}

func keyword(p string, today time.Time) (time.Time, bool) {
	switch p {
	case "today", "now", "tonight", "this morning", "this afternoon", "this evening", "this night", "end of day", "end of today":
		return today, true
	case "tomorrow", "tmrw", "tmr", "tomorrow night":
		return today.AddDate(0, 0, 1), true
	case "day after tomorrow", "the day after tomorrow":
		return today.AddDate(0, 0, 2), true
	case "yesterday":
		return today.AddDate(0, 0, -1), true
	case "day before yesterday", "the day before yesterday":
		return today.AddDate(0, 0, -2), true
	case "next week":
		return today.AddDate(0, 0, 7), true
	case "next month":
		return addMonths(today, 1), true
	case "next year":
		return addMonths(today, 12), true
	case "end of week", "end of the week", "end of this week", "this week":
		return weekEnd(today), true
	case "weekend", "this weekend":
		return onOrAfter(today, time.Saturday), true
	case "end of month", "end of the month", "end of this month", "this month":
		return monthEnd(today), true
	}
	return time.Time{}, false
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday, "tues": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday, "thur": time.Thursday, "thurs": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// weekday handles "<weekday>", "next <weekday>", "this <weekday>" and
// "last <weekday>".
func weekday(p string, today time.Time) (time.Time, bool) {
	qualifier, name := "", p
	if q, n, found := strings.Cut(p, " "); found {
		qualifier, name = q, n
	}
	wd, ok := weekdays[name]
	if !ok {
		return time.Time{}, false
	}
	switch qualifier {
	case "", "next", "coming":
		return after(today, wd), true
	case "this":
		return onOrAfter(today, wd), true
	case "last", "past", "previous":
		return before(today, wd), true
	}
	return time.Time{}, false
}

// after returns the first wd strictly after today (1 to 7 days ahead).
func after(today time.Time, wd time.Weekday) time.Time {
	delta := (int(wd) - int(today.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return today.AddDate(0, 0, delta)
}

// onOrAfter returns today when it is wd, otherwise the next wd.
func onOrAfter(today time.Time, wd time.Weekday) time.Time {
	delta := (int(wd) - int(today.Weekday()) + 7) % 7
	return today.AddDate(0, 0, delta)
}

// before returns the last wd strictly before today (1 to 7 days back).
func before(today time.Time, wd time.Weekday) time.Time {
	delta := (int(today.Weekday()) - int(wd) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return today.AddDate(0, 0, -delta)
}

var numberWords = map[string]int{
	"a": 1, "an": 1, "one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11,
	"twelve": 12, "fourteen": 14, "fifteen": 15, "twenty": 20, "thirty": 30,
}

var months = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may":  time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

// splitMonthDay matches "November 29", "Dec 5th, 2026" and "29 November".
// year is 0 when absent.
func splitMonthDay(p string) (monthName string, day, year int, ok bool) {
	var dayStr, yearStr string
	if m := monthDayRe.FindStringSubmatch(p); m != nil {
		monthName, dayStr, yearStr = m[1], m[2], m[3]
	} else if m := dayMonthRe.FindStringSubmatch(p); m != nil {
		dayStr, monthName, yearStr = m[1], m[2], m[3]
	} else {
		return "", 0, 0, false
	}
	if _, known := months[monthName]; !known {
		return "", 0, 0, false
	}
	day, _ = strconv.Atoi(dayStr)
	if yearStr != "" {
		year, _ = strconv.Atoi(yearStr)
	}
	return monthName, day, year, true
}

// monthDay resolves month-day dates. Without a year the nearest occurrence
// on or after today is used; February 29 waits for the next leap year.
func monthDay(p string, today time.Time) (time.Time, bool) {
	monthName, day, year, ok := splitMonthDay(p)
	if !ok {
		return time.Time{}, false
	}
	month := months[monthName]
	if year != 0 {
		return calendarDate(year, month, day, today.Location())
	}
	for y := today.Year(); y <= today.Year()+8; y++ {
		d, ok := calendarDate(y, month, day, today.Location())
		if ok && !d.Before(today) {
			return d, true
		}
	}
	return time.Time{}, false
}

func numeric(p string, today time.Time) (time.Time, bool) {
	if m := ymdRe.FindStringSubmatch(p); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return calendarDate(y, time.Month(mo), d, today.Location())
	}
	if m := dmyRe.FindStringSubmatch(p); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		y, _ := strconv.Atoi(m[3])
		return calendarDate(y, time.Month(mo), d, today.Location())
	}
	return time.Time{}, false
}

// calendarDate builds a date and rejects combinations that time.Date would
// normalize, such as February 30.
func calendarDate(year int, month time.Month, day int, loc *time.Location) (time.Time, bool) {
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

// addMonths adds n months, clamping the day to the target month's length.
func addMonths(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := monthEnd(first).Day()
	day := t.Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, t.Location())
}

func monthEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location())
}

// weekStart returns the Monday of t's week.
func weekStart(t time.Time) time.Time {
	delta := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -delta)
}

// weekEnd returns the Sunday of t's week.
func weekEnd(t time.Time) time.Time {
	return weekStart(t).AddDate(0, 0, 6)
}
