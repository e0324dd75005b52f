// Package classification decides the category and confidence of a ticket.
//
// Three layers, cheapest first: a literal-indicator alarm detector, an
// LLM-backed classifier, and a keyword fallback for when the model
// misbehaves. Subject-line heuristics that pick the alarm-vs-client
// pipeline also live here.
package classification

import "strings"

// alarmIndicators are literal fragments of SNS-delivered CloudWatch alarm
// mail. Matching is case-sensitive substring containment.
var alarmIndicators = []string{
	"Subject: ALARM:",
	"MetricNamespace:",
	"MetricName:",
	"Dimensions:",
	"Threshold:",
	"ALARM state",
	"GreaterThanOrEqualToThreshold",
	"Feedback-ID: ::1.ap-south-1",
	"no-reply@sns.amazonaws.com",
}

// alarmIndicatorThreshold is the minimum indicator count for a body to be
// treated as a CloudWatch alarm without consulting the model.
const alarmIndicatorThreshold = 4

// IsAlarmTicket reports whether the text carries enough CloudWatch alarm
// markers to skip model classification entirely.
func IsAlarmTicket(text string) bool {
	matches := 0
	for _, indicator := range alarmIndicators {
		if strings.Contains(text, indicator) {
			matches++
		}
	}
	return matches >= alarmIndicatorThreshold
}
