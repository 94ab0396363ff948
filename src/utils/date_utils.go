package utils

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DisplayTimestampFormat is the layout used for new transaction timestamps.
const DisplayTimestampFormat = "02-01-2006 15:04:05"

// DefaultDateFormat is the day-level layout used in reports.
const DefaultDateFormat = "02-01-2006"

// CivilDate is a calendar day with no time or location attached.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

func (d CivilDate) String() string {
	return fmt.Sprintf("%02d-%02d-%04d", d.Day, int(d.Month), d.Year)
}

// ISO returns the date as YYYY-MM-DD, which sorts chronologically as a string.
func (d CivilDate) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

func (d CivilDate) Before(o CivilDate) bool {
	return d.ISO() < o.ISO()
}

func civilFromTime(t time.Time) CivilDate {
	return CivilDate{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// DateIn returns the calendar day of t as seen in loc.
func DateIn(t time.Time, loc *time.Location) CivilDate {
	if loc == nil {
		loc = time.UTC
	}
	return civilFromTime(t.In(loc))
}

// TimestampParser is one strategy for reading a stored timestamp string.
// Parse returns ok=false when the string is not in the strategy's shape.
type TimestampParser struct {
	Name  string
	Parse func(s string, loc *time.Location) (time.Time, bool)
}

func layoutParser(name string, layouts ...string) TimestampParser {
	return TimestampParser{
		Name: name,
		Parse: func(s string, loc *time.Location) (time.Time, bool) {
			for _, layout := range layouts {
				if t, err := time.ParseInLocation(layout, s, loc); err == nil {
					return t, true
				}
			}
			return time.Time{}, false
		},
	}
}

var (
	slashDatePrefix = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})\b`)
	dashDatePrefix  = regexp.MustCompile(`^(\d{1,4})-(\d{1,2})-(\d{1,4})$`)
)

// TimestampParsers are tried in order; the first match wins.
var TimestampParsers = []TimestampParser{
	layoutParser("display", DisplayTimestampFormat, "2-1-2006 15:04:05"),
	// Browser toLocaleString output for en-IN / en-GB, e.g. "21/7/2025, 12:57:53 am".
	layoutParser("locale-dmy",
		"2/1/2006, 3:04:05 pm", "2/1/2006, 3:04:05 PM", "2/1/2006, 15:04:05",
		"2/1/2006 3:04:05 pm", "2/1/2006 15:04:05"),
	layoutParser("iso", time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"),
	{
		Name: "slash-date-prefix",
		Parse: func(s string, loc *time.Location) (time.Time, bool) {
			m := slashDatePrefix.FindStringSubmatch(s)
			if m == nil {
				return time.Time{}, false
			}
			return dateFromParts(m[3], m[2], m[1], loc)
		},
	},
	{
		Name: "dash-date-prefix",
		Parse: func(s string, loc *time.Location) (time.Time, bool) {
			datePart := strings.SplitN(strings.SplitN(s, "T", 2)[0], " ", 2)[0]
			m := dashDatePrefix.FindStringSubmatch(datePart)
			if m == nil {
				return time.Time{}, false
			}
			switch {
			case len(m[1]) == 4:
				return dateFromParts(m[1], m[2], m[3], loc)
			case len(m[3]) == 4:
				return dateFromParts(m[3], m[2], m[1], loc)
			}
			return time.Time{}, false
		},
	},
}

func dateFromParts(yearStr, monthStr, dayStr string, loc *time.Location) (time.Time, bool) {
	year, errY := strconv.Atoi(yearStr)
	month, errM := strconv.Atoi(monthStr)
	day, errD := strconv.Atoi(dayStr)
	if errY != nil || errM != nil || errD != nil {
		return time.Time{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalises 31/02 into March; reject instead.
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return time.Time{}, false
	}
	return t, true
}

// ParseTimestamp runs the ordered parser strategies against s.
func ParseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if loc == nil {
		loc = time.UTC
	}
	for _, p := range TimestampParsers {
		if t, ok := p.Parse(s, loc); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseCivilDate extracts the calendar day from a stored timestamp.
// Timestamps carrying an explicit offset are converted to loc first.
func ParseCivilDate(s string, loc *time.Location) (CivilDate, bool) {
	if loc == nil {
		loc = time.UTC
	}
	t, ok := ParseTimestamp(s, loc)
	if !ok {
		return CivilDate{}, false
	}
	return civilFromTime(t.In(loc)), true
}

// ParseISODate parses a YYYY-MM-DD query parameter.
func ParseISODate(s string) (CivilDate, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return CivilDate{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return civilFromTime(t), nil
}

// FormatTimestamp renders t in the display layout used for new transactions.
func FormatTimestamp(t time.Time) string {
	return t.Format(DisplayTimestampFormat)
}
