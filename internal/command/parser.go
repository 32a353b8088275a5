// Package command extracts structured reminder and cancel requests from
// free text using an ordered list of pattern rules.
package command

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Kind is the reminder kind requested by the user.
type Kind int

// Reminder kinds.
const (
	OneTime Kind = iota
	Recurring
)

// String returns the kind label.
func (k Kind) String() string {
	if k == Recurring {
		return "recurring"
	}
	return "one_time"
}

// Request is a parsed reminder request. IntervalMinutes is set for
// Recurring, ScheduledAt for OneTime.
type Request struct {
	Task            string
	Kind            Kind
	IntervalMinutes int
	ScheduledAt     time.Time
	Rule            string
}

// CancelAll is returned by ParseCancel when every reminder should go.
const CancelAll = "__ALL__"

// rule pairs a pattern with an extractor. Extractors return false to let
// later rules try.
type rule struct {
	name    string
	pattern *regexp.Regexp
	extract func(m []string, now time.Time) (Request, bool)
}

// maxAmount bounds numeric amounts so durations cannot overflow.
const maxAmount = 1_000_000

const prefix = `(?i)^\s*remind(?:\s+me)?\s+to\s+(.+?)\s+`
const suffix = `\s*[.!]*\s*$`

// reminderRules are evaluated in order; the first successful rule wins.
var reminderRules = []rule{
	{
		name:    "recurring",
		pattern: regexp.MustCompile(prefix + `every\s+(?:(\d+)\s*)?(minutes?|mins?|hours?|hrs?)` + suffix),
		extract: extractRecurring,
	},
	{
		name:    "clock_time",
		pattern: regexp.MustCompile(prefix + `at\s+(\d{1,2})(?::(\d{2}))?\s*(am|pm|a\.m\.|p\.m\.)?` + suffix),
		extract: extractClockTime,
	},
	{
		name:    "relative",
		pattern: regexp.MustCompile(prefix + `(?:in|after)\s+(\d+)\s*(seconds?|secs?|minutes?|mins?|hours?|hrs?)` + suffix),
		extract: extractRelative,
	},
}

var (
	cancelAllPattern    = regexp.MustCompile(`(?i)\ball\b.*\breminders?\b`)
	cancelPhrasePattern = regexp.MustCompile(`(?i)\b(?:cancel|stop|remove|delete)\s+(?:my\s+|the\s+)?(.+?)\s+reminders?\b`)
	cancelToPattern     = regexp.MustCompile(`(?i)\b(?:cancel|stop|remove|delete)\s+(?:my\s+|the\s+)?reminders?\s+(?:to|for|about)\s+(.+?)\s*[.!]*\s*$`)
)

// Parser parses reminder commands. It has no side effects; the clock is
// injected so results are reproducible.
type Parser struct {
	now func() time.Time
}

// NewParser creates a Parser. A nil now defaults to time.Now.
func NewParser(now func() time.Time) *Parser {
	if now == nil {
		now = time.Now
	}
	return &Parser{now: now}
}

// ParseReminder returns the structured request for text, or false when
// no rule matches.
func (p *Parser) ParseReminder(text string) (Request, bool) {
	now := p.now()
	for _, r := range reminderRules {
		m := r.pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		req, ok := r.extract(m, now)
		if !ok {
			continue
		}
		req.Task = formatTask(req.Task)
		if req.Task == "" {
			continue
		}
		req.Rule = r.name
		return req, true
	}
	return Request{}, false
}

// ParseCancel returns CancelAll, a search phrase, or false.
func (p *Parser) ParseCancel(text string) (string, bool) {
	if cancelAllPattern.MatchString(text) {
		return CancelAll, true
	}
	for _, pattern := range []*regexp.Regexp{cancelToPattern, cancelPhrasePattern} {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		phrase := strings.TrimSpace(m[1])
		if _, filler := fillerWords[strings.ToLower(phrase)]; phrase != "" && !filler {
			return phrase, true
		}
	}
	return "", false
}

// fillerWords are captured by the phrase pattern for inputs such as
// "cancel the reminder" and never name a reminder.
var fillerWords = map[string]struct{}{
	"the": {}, "my": {}, "a": {}, "this": {}, "that": {}, "your": {},
}

func extractRecurring(m []string, _ time.Time) (Request, bool) {
	n := 1
	if m[2] != "" {
		v, err := strconv.Atoi(m[2])
		if err != nil || v <= 0 || v > maxAmount {
			return Request{}, false
		}
		n = v
	}
	if isHours(m[3]) {
		n *= 60
	}
	return Request{Task: m[1], Kind: Recurring, IntervalMinutes: n}, true
}

func extractClockTime(m []string, now time.Time) (Request, bool) {
	hour, err := strconv.Atoi(m[2])
	if err != nil {
		return Request{}, false
	}
	minute := 0
	if m[3] != "" {
		if minute, err = strconv.Atoi(m[3]); err != nil || minute > 59 {
			return Request{}, false
		}
	}

	switch meridiem := strings.ToLower(strings.ReplaceAll(m[4], ".", "")); meridiem {
	case "pm":
		if hour < 1 || hour > 12 {
			return Request{}, false
		}
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour < 1 || hour > 12 {
			return Request{}, false
		}
		if hour == 12 {
			hour = 0
		}
	default:
		if hour > 23 {
			return Request{}, false
		}
	}

	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return Request{Task: m[1], Kind: OneTime, ScheduledAt: at}, true
}

func extractRelative(m []string, now time.Time) (Request, bool) {
	n, err := strconv.Atoi(m[2])
	if err != nil || n > maxAmount {
		return Request{}, false
	}

	var minutes int
	switch unit := strings.ToLower(m[3]); {
	case strings.HasPrefix(unit, "s"):
		minutes = (n + 59) / 60
	case isHours(unit):
		minutes = n * 60
	default:
		minutes = n
	}
	if minutes < 1 {
		minutes = 1
	}

	return Request{
		Task:        m[1],
		Kind:        OneTime,
		ScheduledAt: now.Add(time.Duration(minutes) * time.Minute),
	}, true
}

func isHours(unit string) bool {
	return strings.HasPrefix(strings.ToLower(unit), "h")
}

// formatTask trims the task and upper-cases its first letter.
func formatTask(task string) string {
	task = strings.TrimSpace(task)
	if task == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(task)
	return string(unicode.ToUpper(r)) + task[size:]
}
