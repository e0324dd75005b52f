// Package domain contains the core entities of the ticket pipeline.
package domain

import (
	"regexp"
	"strings"
)

// Ticket is the unit of work: one inbound helpdesk ticket event.
// Tickets are read-only inside the core; they are created from the
// webhook payload and discarded when the pipeline completes.
type Ticket struct {
	ID            string
	Subject       string
	RawBody       string
	FromAddresses []string
	ToAddresses   []string
	CcAddresses   []string
	AccountRef    string // helpdesk-side account id, opaque
}

var emailPattern = regexp.MustCompile(`[\w.\-]+@[\w.\-]+`)

// CustomerEmail returns the last parseable address across cc, to and from,
// matching the upstream webhook's ordering convention.
func (t *Ticket) CustomerEmail() string {
	all := make([]string, 0, len(t.CcAddresses)+len(t.ToAddresses)+len(t.FromAddresses))
	all = append(all, t.CcAddresses...)
	all = append(all, t.ToAddresses...)
	all = append(all, t.FromAddresses...)

	last := ""
	for _, addr := range all {
		if m := emailPattern.FindString(addr); m != "" {
			last = m
		}
	}
	return last
}

// NormalizeAddressList flattens the shapes the helpdesk webhook sends for
// email fields: a bare string, a single-element list, or a comma-joined
// string inside a single-element list.
func NormalizeAddressList(raw []string) []string {
	var out []string
	for _, entry := range raw {
		for _, part := range strings.Split(entry, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// ExtractionPath identifies which normalizer strategy produced the clean text.
type ExtractionPath string

const (
	PathEmptyBody       ExtractionPath = "empty_body"
	PathNoReadableText  ExtractionPath = "no_readable_text"
	PathJSONBlock       ExtractionPath = "json_block"
	PathCloudWatchBlock ExtractionPath = "cloudwatch_block"
	PathStatusLines     ExtractionPath = "status_lines"
	PathGreetingWindow  ExtractionPath = "greeting_window"
	PathRawFallback     ExtractionPath = "raw_fallback"
)

// NormalizedMessage is the normalizer's output. Derived per ticket,
// never stored.
type NormalizedMessage struct {
	CleanText string
	Path      ExtractionPath
}
