package httpapi

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Interpolate expands every {{name}} token in text: name is first
// tried as a date expression ("today", "today-1day", ...) resolved to
// its Unix timestamp, then falls back to the value of the URL
// parameter of the same name, matching active_data/app.py's
// replace_vars exactly ("Date(var).unix, or value of URL parameter
// name").
func Interpolate(text string, params url.Values) string {
	var out strings.Builder
	i := 0
	for i < len(text) {
		start := strings.Index(text[i:], "{{")
		if start < 0 {
			out.WriteString(text[i:])
			break
		}
		start += i
		out.WriteString(text[i:start])

		end := strings.Index(text[start:], "}}")
		if end < 0 {
			out.WriteString(text[start:])
			break
		}
		end += start

		name := strings.TrimSpace(text[start+2 : end])
		out.WriteString(resolve(name, params))
		i = end + 2
	}
	return out.String()
}

func resolve(name string, params url.Values) string {
	if ts, ok := asUnixTimestamp(name); ok {
		return strconv.FormatInt(ts, 10)
	}
	return params.Get(name)
}

// asUnixTimestamp evaluates name as a date expression: a bare keyword
// ("today", "now") optionally followed by +/-N(day|hour|minute|week).
func asUnixTimestamp(name string) (int64, bool) {
	name = strings.TrimSpace(name)
	base := name
	var sign int64 = 1
	var offsetExpr string

	if idx := strings.IndexAny(name, "+-"); idx > 0 {
		base = name[:idx]
		if name[idx] == '-' {
			sign = -1
		}
		offsetExpr = name[idx+1:]
	}

	var now time.Time
	switch base {
	case "now":
		now = timeNow()
	case "today":
		n := timeNow()
		now = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, n.Location())
	default:
		return 0, false
	}

	if offsetExpr == "" {
		return now.Unix(), true
	}

	amount, unit, ok := splitOffset(offsetExpr)
	if !ok {
		return 0, false
	}
	d := durationOf(amount, unit)
	return now.Add(time.Duration(sign) * d).Unix(), true
}

func splitOffset(s string) (int64, string, bool) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", false
	}
	n, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return n, s[i:], true
}

func durationOf(n int64, unit string) time.Duration {
	switch unit {
	case "minute", "minutes":
		return time.Duration(n) * time.Minute
	case "hour", "hours":
		return time.Duration(n) * time.Hour
	case "day", "days":
		return time.Duration(n) * 24 * time.Hour
	case "week", "weeks":
		return time.Duration(n) * 7 * 24 * time.Hour
	default:
		return 0
	}
}

// timeNow is a seam so tests can substitute a fixed clock without
// reaching into package internals.
var timeNow = time.Now
