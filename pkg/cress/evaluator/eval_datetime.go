// eval_datetime.go - datetime and duration helpers for the Cress
// evaluator: the duration string grammar, calendar arithmetic, and
// datetime formatting.

package evaluator

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/goodsign/monday"
	cerrors "github.com/sambeau/cress/pkg/cress/errors"
)

// Millisecond equivalents used for duration comparison and coercion.
// These are never used to shift a timestamp: year and month shifts go
// through calendar arithmetic instead.
const (
	millisPerSecond = 1000.0
	millisPerMinute = 60 * millisPerSecond
	millisPerHour   = 60 * millisPerMinute
	millisPerDay    = 24 * millisPerHour
	millisPerWeek   = 7 * millisPerDay
	millisPerMonth  = 30 * millisPerDay
	millisPerYear   = 365 * millisPerDay
)

// TotalMillis resolves a duration to its millisecond equivalent
// (week=7d, day=24h, month=30d, year=365d). Used for ordering and
// equality only.
func (d *Duration) TotalMillis() float64 {
	var total float64
	for _, p := range d.Parts {
		total += p.Amount * unitMillis(p.Unit)
	}
	return total
}

func unitMillis(unit string) float64 {
	switch unit {
	case "y":
		return millisPerYear
	case "M":
		return millisPerMonth
	case "w":
		return millisPerWeek
	case "d":
		return millisPerDay
	case "h":
		return millisPerHour
	case "m":
		return millisPerMinute
	case "s":
		return millisPerSecond
	case "ms":
		return 1
	}
	return 0
}

// durationPartPattern matches one <signed-number><unit> token. The
// alternation is leftmost-first, so every multi-letter month spelling
// must come before minute's bare 'm'; the single letters 'M' and 'm'
// then disambiguate month from minute by case.
var durationPartPattern = regexp.MustCompile(
	`([+-]?\d+(?:\.\d+)?)\s*` +
		`(milliseconds?|millis?|ms|seconds?|secs?|s|months?|mo|minutes?|mins?|m|hours?|hrs?|h|days?|d|weeks?|w|M|years?|yrs?|y)`)

// canonicalUnit maps every accepted unit spelling to its short name
var canonicalUnit = map[string]string{
	"ms": "ms", "milli": "ms", "millis": "ms", "millisecond": "ms", "milliseconds": "ms",
	"s": "s", "sec": "s", "secs": "s", "second": "s", "seconds": "s",
	"m": "m", "min": "m", "mins": "m", "minute": "m", "minutes": "m",
	"h": "h", "hr": "h", "hrs": "h", "hour": "h", "hours": "h",
	"d": "d", "day": "d", "days": "d",
	"w": "w", "week": "w", "weeks": "w",
	"M": "M", "mo": "M", "month": "M", "months": "M",
	"y": "y", "yr": "y", "yrs": "y", "year": "y", "years": "y",
}

// ParseDuration parses a duration string: repeated
// <signed-number><unit> tokens, e.g. "1y6M", "2h30m", "-7d". Parts are
// additive and keep their source order.
func ParseDuration(s string) (*Duration, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, fmt.Errorf("empty duration")
	}

	matches := durationPartPattern.FindAllStringSubmatchIndex(trimmed, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("invalid duration %q", s)
	}

	// every character must belong to a matched part (whitespace aside)
	covered := 0
	parts := make([]DurationPart, 0, len(matches))
	for _, m := range matches {
		if strings.TrimSpace(trimmed[covered:m[0]]) != "" {
			return nil, fmt.Errorf("invalid duration %q", s)
		}
		covered = m[1]

		amount, err := strconv.ParseFloat(trimmed[m[2]:m[3]], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid duration %q", s)
		}
		unitText := trimmed[m[4]:m[5]]
		unit, ok := canonicalUnit[unitText]
		if !ok {
			return nil, fmt.Errorf("unknown duration unit %q", unitText)
		}
		parts = append(parts, DurationPart{Unit: unit, Amount: amount})
	}
	if strings.TrimSpace(trimmed[covered:]) != "" {
		return nil, fmt.Errorf("invalid duration %q", s)
	}

	return &Duration{Parts: parts}, nil
}

// applyDuration shifts a timestamp by a duration. Year and month parts
// use calendar-field arithmetic (day-of-month overflow normalizes, so
// Jan 31 + 1M lands in early March); all smaller units are flat
// millisecond addition. sign is +1 or -1.
func applyDuration(t time.Time, d *Duration, sign float64) time.Time {
	var years, months int
	var millis float64

	for _, p := range d.Parts {
		amount := p.Amount * sign
		switch p.Unit {
		case "y":
			years += int(amount)
			// fractional years fall through as months
			months += int(math.Round((amount - float64(int(amount))) * 12))
		case "M":
			months += int(amount)
		default:
			millis += amount * unitMillis(p.Unit)
		}
	}

	if years != 0 || months != 0 {
		t = t.AddDate(years, months, 0)
	}
	if millis != 0 {
		t = t.Add(millisToGoDuration(millis))
	}
	return t
}

func millisToGoDuration(millis float64) time.Duration {
	return time.Duration(millis * float64(time.Millisecond))
}

// ParseDatetime parses a datetime from a permissive set of formats.
// dateparse covers ISO dates, slash dates, RFC formats and epoch-like
// strings.
func ParseDatetime(s string) (time.Time, error) {
	return dateparse.ParseLocal(strings.TrimSpace(s))
}

// toDatetime converts a value to a timestamp for the date() builtin:
// datetimes pass through, numbers are epoch milliseconds, strings are
// parsed.
func toDatetime(obj Object) (Object, *Error) {
	switch obj := obj.(type) {
	case *Datetime:
		return obj, nil
	case *Number:
		return &Datetime{Time: time.UnixMilli(int64(obj.Value))}, nil
	case *String:
		t, err := ParseDatetime(obj.Value)
		if err != nil {
			return nil, newError(cerrors.ClassFormat, "cannot parse %q as a date", obj.Value)
		}
		return &Datetime{Time: t}, nil
	case *Null:
		return NULL, nil
	}
	return nil, newError(cerrors.ClassType, "cannot convert %s to a date", obj.Type())
}

// formatLocale is the locale used for month and weekday names in
// format() output
const formatLocale = monday.LocaleEnUS

// formatDatetime renders a timestamp with a pattern of YYYY/MM/DD/
// HH/mm/ss/SSS tokens, plus MMMM/MMM and dddd/ddd name tokens. Unknown
// characters pass through verbatim.
func formatDatetime(t time.Time, pattern string) string {
	var sb strings.Builder
	i := 0
	for i < len(pattern) {
		switch {
		case strings.HasPrefix(pattern[i:], "YYYY"):
			fmt.Fprintf(&sb, "%04d", t.Year())
			i += 4
		case strings.HasPrefix(pattern[i:], "MMMM"):
			sb.WriteString(monday.Format(t, "January", formatLocale))
			i += 4
		case strings.HasPrefix(pattern[i:], "MMM"):
			sb.WriteString(monday.Format(t, "Jan", formatLocale))
			i += 3
		case strings.HasPrefix(pattern[i:], "MM"):
			fmt.Fprintf(&sb, "%02d", int(t.Month()))
			i += 2
		case strings.HasPrefix(pattern[i:], "DD"):
			fmt.Fprintf(&sb, "%02d", t.Day())
			i += 2
		case strings.HasPrefix(pattern[i:], "dddd"):
			sb.WriteString(monday.Format(t, "Monday", formatLocale))
			i += 4
		case strings.HasPrefix(pattern[i:], "ddd"):
			sb.WriteString(monday.Format(t, "Mon", formatLocale))
			i += 3
		case strings.HasPrefix(pattern[i:], "HH"):
			fmt.Fprintf(&sb, "%02d", t.Hour())
			i += 2
		case strings.HasPrefix(pattern[i:], "mm"):
			fmt.Fprintf(&sb, "%02d", t.Minute())
			i += 2
		case strings.HasPrefix(pattern[i:], "ss"):
			fmt.Fprintf(&sb, "%02d", t.Second())
			i += 2
		case strings.HasPrefix(pattern[i:], "SSS"):
			fmt.Fprintf(&sb, "%03d", t.Nanosecond()/1e6)
			i += 3
		default:
			sb.WriteByte(pattern[i])
			i++
		}
	}
	return sb.String()
}

// relativeTime renders a timestamp as a human phrase relative to now:
// "3 days ago", "in 2 hours", "just now".
func relativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	past := diff >= 0
	if !past {
		diff = -diff
	}

	var phrase string
	switch {
	case diff < 45*time.Second:
		return "just now"
	case diff < 90*time.Minute:
		phrase = plural(int(math.Round(diff.Minutes())), "minute")
	case diff < 36*time.Hour:
		phrase = plural(int(math.Round(diff.Hours())), "hour")
	case diff < 26*24*time.Hour:
		phrase = plural(int(math.Round(diff.Hours()/24)), "day")
	case diff < 320*24*time.Hour:
		phrase = plural(int(math.Round(diff.Hours()/(24*30))), "month")
	default:
		phrase = plural(int(math.Round(diff.Hours()/(24*365))), "year")
	}

	if past {
		return phrase + " ago"
	}
	return "in " + phrase
}

func plural(n int, unit string) string {
	if n <= 1 {
		n = 1
	}
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
