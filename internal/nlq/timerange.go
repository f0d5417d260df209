package nlq

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// TimeRange is a closed interval in UTC. Both bounds are inclusive when the
// range is used as a filter constraint. The zero value means "no constraint".
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// IsZero reports whether the range carries no constraint.
func (r TimeRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

// Ordered returns the range with Start <= End, reporting whether the bounds
// had to be swapped.
func (r TimeRange) Ordered() (TimeRange, bool) {
	if r.Start.After(r.End) {
		return TimeRange{Start: r.End, End: r.Start}, true
	}
	return r, false
}

// Contains reports whether t falls within the range, inclusive on both ends.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

var (
	relativeCountRe = regexp.MustCompile(`(?:last|past)\s+(\d+)\s+(minute|minutes|hour|hours|day|days|week|weeks)\b`)
	sinceRe         = regexp.MustCompile(`(?:since|after)\s+((?:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})|\d{4}-\d{2}-\d{2}(?:[t ][0-9:+.z-]+)?)`)
	beforeRe        = regexp.MustCompile(`before\s+((?:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})|\d{4}-\d{2}-\d{2}(?:[t ][0-9:+.z-]+)?)`)
	onDateRe        = regexp.MustCompile(`\bon\s+((?:(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2},?\s+\d{4})|\d{4}-\d{2}-\d{2})`)
	bareDateRe      = regexp.MustCompile(`\b(\d{4}-\d{2}-\d{2})\b`)
)

// monthNameFormats are the accepted spelled-out date layouts. Month and day
// names match case-insensitively, so lowercased input is fine.
var monthNameFormats = []string{
	"Jan 2 2006",
	"Jan 2, 2006",
	"January 2 2006",
	"January 2, 2006",
}

// FindTimeRange scans lowercased query text for the first recognizable time
// phrase and normalizes it to a UTC range relative to now. Recognized
// phrases:
//
//	yesterday            -> the full prior UTC day
//	today                -> start of the current UTC day .. now
//	last week            -> now-7d .. now
//	last/past N days     -> now-N*24h .. now (hours, minutes, weeks likewise)
//	since/after <date>   -> date .. now
//	before <date>        -> unix epoch .. date
//	on <date> / <date>   -> the full named UTC day
//
// Unrecognized phrases report false: absence of a time filter is always
// valid and never an error.
func FindTimeRange(text string, now time.Time) (TimeRange, bool) {
	now = now.UTC()

	if m := relativeCountRe.FindStringSubmatch(text); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil && n > 0 {
			var d time.Duration
			switch {
			case strings.HasPrefix(m[2], "minute"):
				d = time.Duration(n) * time.Minute
			case strings.HasPrefix(m[2], "hour"):
				d = time.Duration(n) * time.Hour
			case strings.HasPrefix(m[2], "day"):
				d = time.Duration(n) * 24 * time.Hour
			case strings.HasPrefix(m[2], "week"):
				d = time.Duration(n) * 7 * 24 * time.Hour
			}
			return TimeRange{Start: now.Add(-d), End: now}, true
		}
	}

	if strings.Contains(text, "yesterday") {
		start := startOfDay(now).AddDate(0, 0, -1)
		return dayRange(start), true
	}
	if strings.Contains(text, "today") {
		return TimeRange{Start: startOfDay(now), End: now}, true
	}
	if strings.Contains(text, "last week") || strings.Contains(text, "past week") {
		return TimeRange{Start: now.Add(-7 * 24 * time.Hour), End: now}, true
	}
	if strings.Contains(text, "last hour") || strings.Contains(text, "past hour") {
		return TimeRange{Start: now.Add(-time.Hour), End: now}, true
	}

	if m := sinceRe.FindStringSubmatch(text); m != nil {
		if t, ok := parseAbsolute(m[1]); ok {
			return TimeRange{Start: t, End: now}, true
		}
	}
	if m := beforeRe.FindStringSubmatch(text); m != nil {
		if t, ok := parseAbsolute(m[1]); ok {
			return TimeRange{Start: time.Unix(0, 0).UTC(), End: t}, true
		}
	}
	if m := onDateRe.FindStringSubmatch(text); m != nil {
		if t, ok := parseAbsolute(m[1]); ok {
			return dayRange(startOfDay(t)), true
		}
	}
	if m := bareDateRe.FindStringSubmatch(text); m != nil {
		if t, ok := parseAbsolute(m[1]); ok {
			return dayRange(startOfDay(t)), true
		}
	}

	return TimeRange{}, false
}

// NormalizeTimePhrase normalizes a single isolated phrase, such as one
// returned by the oracle. It accepts the same vocabulary as FindTimeRange.
func NormalizeTimePhrase(phrase string, now time.Time) (TimeRange, bool) {
	phrase = strings.ToLower(strings.TrimSpace(phrase))
	if phrase == "" {
		return TimeRange{}, false
	}
	if r, ok := FindTimeRange(phrase, now); ok {
		return r, true
	}
	// A bare date with no surrounding keyword means that whole day.
	if t, ok := parseAbsolute(phrase); ok {
		return dayRange(startOfDay(t)), true
	}
	return TimeRange{}, false
}

// parseAbsolute parses an explicit date or timestamp from a fixed set of
// accepted layouts. Input is expected lowercased; RFC3339 markers are
// restored before parsing.
func parseAbsolute(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.Trim(s, ".,"))
	if s == "" {
		return time.Time{}, false
	}
	if len(s) == len("2006-01-02") {
		if t, err := time.Parse("2006-01-02", s); err == nil {
			return t.UTC(), true
		}
	}
	if strings.ContainsAny(s, ":") {
		candidate := strings.ToUpper(s)
		if t, err := time.Parse(time.RFC3339, candidate); err == nil {
			return t.UTC(), true
		}
		if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range monthNameFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// dayRange expands a day's start into the inclusive full-day range ending at
// 23:59:59 of the same day.
func dayRange(start time.Time) TimeRange {
	return TimeRange{Start: start, End: start.Add(24*time.Hour - time.Second)}
}
