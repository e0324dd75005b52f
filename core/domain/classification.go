package domain

import "strings"

// Category is the fixed, closed taxonomy for ticket classification.
type Category string

const (
	CategoryAlarm    Category = "alarm"
	CategorySecurity Category = "security"
	CategoryCost     Category = "cost_optimization"
	CategoryCustom   Category = "custom"
	CategoryOS       Category = "os"
)

// ValidCategories lists every member of the taxonomy.
var ValidCategories = []Category{
	CategoryCost,
	CategorySecurity,
	CategoryAlarm,
	CategoryCustom,
	CategoryOS,
}

// ParseCategory lower-cases and trims the input and reports whether it is a
// member of the taxonomy.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ValidCategories {
		if c == v {
			return c, true
		}
	}
	return c, false
}

// TicketType is the subject heuristic's verdict: machine alarm or
// human-authored client ticket.
type TicketType string

const (
	TypeAlarm  TicketType = "alarm"
	TypeClient TicketType = "client"
)

// ClassificationResult pairs a category with a confidence score.
// By the time a result reaches the dispatcher, Category is always a
// member of the taxonomy and Confidence is within [0, 1].
type ClassificationResult struct {
	Category   Category
	Confidence float64
}

// ClampConfidence forces a confidence score into [0, 1]. It reports
// whether clamping was needed so callers can log it.
func ClampConfidence(c float64) (float64, bool) {
	switch {
	case c < 0.0:
		return 0.0, true
	case c > 1.0:
		return 1.0, true
	default:
		return c, false
	}
}

// RoutingDecision is the dispatcher's terminal output for one ticket.
type RoutingDecision struct {
	TicketID        string
	FinalCategory   Category
	FinalConfidence float64
	TicketType      TicketType
	Language        string
	HandlerInvoked  string
	EarlyExitReason string // empty unless a short-circuit resolved the ticket
	Reply           string
	StatusCode      int
}
