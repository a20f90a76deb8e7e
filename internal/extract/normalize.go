// Package extract turns raw listing/detail/review documents into structured
// records. Extractors are pure functions over a parsed document and tolerate
// absent nodes by yielding zero values, never errors.
package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var monthNumbers = map[string]string{
	"january":   "01",
	"february":  "02",
	"march":     "03",
	"april":     "04",
	"may":       "05",
	"june":      "06",
	"july":      "07",
	"august":    "08",
	"september": "09",
	"october":   "10",
	"november":  "11",
	"december":  "12",
}

var (
	digitsRe    = regexp.MustCompile(`\d+`)
	latinNoise  = regexp.MustCompile(`[a-zA-Z\s|.\\/]`)
	isoDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	yearOnlyRe  = regexp.MustCompile(`^\d{4}$`)
	dateSplitRe = regexp.MustCompile(`\s+`)
)

// DurationMinutes parses free-text runtimes into whole minutes. Both source
// conventions are supported: "142 minutes" / "142分钟" and "2h 22m" /
// JSON-LD "PT2H22M". Unparseable input yields zero.
func DurationMinutes(s string) int {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	s = strings.TrimPrefix(s, "pt")
	if strings.Contains(s, "h") {
		parts := strings.SplitN(s, "h", 2)
		hours := firstNumber(parts[0])
		minutes := 0
		if len(parts) == 2 {
			minutes = firstNumber(parts[1])
		}
		return hours*60 + minutes
	}
	return firstNumber(s)
}

func firstNumber(s string) int {
	match := digitsRe.FindString(s)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

// NormalizeDate converts source date strings to YYYY-MM-DD with degraded
// precision: a bare year becomes YYYY-01-01, "March 2020" becomes 2020-03-01
// and "15 March 2020" becomes 2020-03-15. Parenthesized region suffixes are
// dropped. Already-normalized input passes through; anything else yields "".
func NormalizeDate(s string) string {
	if idx := strings.IndexByte(s, '('); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if isoDateRe.MatchString(s) {
		return s
	}
	fields := dateSplitRe.Split(s, -1)
	switch len(fields) {
	case 1:
		if yearOnlyRe.MatchString(fields[0]) {
			return fields[0] + "-01-01"
		}
	case 2:
		month, ok := monthNumbers[strings.ToLower(fields[0])]
		if ok && yearOnlyRe.MatchString(fields[1]) {
			return fields[1] + "-" + month + "-01"
		}
	case 3:
		day := fields[0]
		month, ok := monthNumbers[strings.ToLower(fields[1])]
		if !ok || !yearOnlyRe.MatchString(fields[2]) {
			return ""
		}
		if len(day) < 2 {
			day = "0" + day
		}
		return fields[2] + "-" + month + "-" + day
	}
	return ""
}

// SplitNames breaks a credit line into individual names. The source separates
// names with " / ", but commas appear as a secondary malformation, and
// role-annotation suffixes ("Name ... Character") must be stripped.
func SplitNames(s string) []string {
	var names []string
	for _, chunk := range strings.Split(s, " / ") {
		for _, name := range strings.Split(chunk, ",") {
			name = strings.TrimSpace(strings.SplitN(name, "...", 2)[0])
			if name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

// CleanRegion strips latin letters, whitespace and separator noise from a
// region token, leaving the native-script name.
func CleanRegion(s string) string {
	return latinNoise.ReplaceAllString(s, "")
}

// SplitSlashList splits a "/"-separated info line, cleaning each token.
func SplitSlashList(s string) []string {
	var out []string
	for _, token := range strings.Split(s, "/") {
		token = CleanRegion(strings.TrimSpace(token))
		if token != "" {
			out = append(out, token)
		}
	}
	return out
}

// JoinParagraphs trims every line, drops the blanks and rejoins with the
// given separator.
func JoinParagraphs(s, sep string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, sep)
}

// NormalizeRating maps a rating on a 0-scale range onto the common 0-10
// scale. A zero scale yields zero.
func NormalizeRating(value, scale float64) float64 {
	if scale <= 0 {
		return 0
	}
	return value / scale * 10
}

// parseCount strips thousands separators and returns the leading integer.
func parseCount(s string) int {
	return firstNumber(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}
