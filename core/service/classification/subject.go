package classification

import (
	"regexp"
	"strings"

	"ticket_server/core/domain"
)

// Prefix patterns that mark a subject as alarm traffic. Anchored at the
// start of the lowercased, trimmed subject.
var alarmSubjectPrefixes = compilePatterns(
	`^\[?alarm[:\]]`,
	`^alarm[:\s]`,
	`^health event[:\s\]]?`,
	`^incident[:\s\]]?`,
	`^\[?alert[:\s\]]?`,
	`^\[alert\]`,
	`^\[alert\]\s*\[firing\]`,
	`^\[action required\]`,
	`^\[firing[:\s\]]?`,
	`^\[resolved[:\s\]]?`,
)

// Indicator patterns matched anywhere in the subject.
var alarmSubjectIndicators = compilePatterns(
	`\bdown\b`,
	`\bup\b.*\b200\s*-\s*ok\b`,
	`status code\s*5\d\d`,
	`\b(request|connection)\s*failed\b`,
	`\bserver error\b`,
	`request failed with status code\s*5\d\d`,
	`\bpodrestart\b`,
	`cost anomaly detected`,
	`aws cost management`,
	`aws budgets?.*exceed(ed|ing)?`,
	`\bmonthly[_\s-]?budget\b`,
	`exceeded.*alert threshold`,
	`\baction may be required\b`,
	`docker v\d+\.\d+\.\d+`,
)

func compilePatterns(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// InferTypeFromSubject picks the processing pipeline from the subject line
// alone. Prefix patterns are checked before indicator patterns; anything
// that matches neither is client traffic.
func InferTypeFromSubject(subject string) domain.TicketType {
	subject = strings.ToLower(strings.TrimSpace(subject))

	for _, p := range alarmSubjectPrefixes {
		if loc := p.FindStringIndex(subject); loc != nil && loc[0] == 0 {
			return domain.TypeAlarm
		}
	}
	for _, p := range alarmSubjectIndicators {
		if p.MatchString(subject) {
			return domain.TypeAlarm
		}
	}
	return domain.TypeClient
}
