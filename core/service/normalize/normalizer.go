// Package normalize turns raw helpdesk ticket bodies into the text a human
// actually typed (or, for automated alarm mail, the structured alarm block).
//
// Extraction is a strict strategy ladder: transport decode, markup strip,
// header removal, then four mutually exclusive content extractors (JSON
// block, CloudWatch alarm block, status-line summary, greeting window).
// The first extractor that succeeds wins; only the greeting window
// continues into quoted-history and signature stripping.
package normalize

import (
	"html"
	"io"
	"mime/quotedprintable"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	xhtml "golang.org/x/net/html"

	"ticket_server/core/domain"
)

// Placeholder messages returned when no content can be extracted. Normalize
// is a total function: it never returns an empty string and never panics.
const (
	PlaceholderEmptyBody      = "Ticket body is empty."
	PlaceholderNoReadableText = "Ticket body contained no readable text."
	PlaceholderNoContent      = "No meaningful content found in the ticket body."
)

// maxGreetingWindow bounds the distance between a greeting and a closing
// token for the greeting-window extractor.
const maxGreetingWindow = 5000

var (
	crPattern         = regexp.MustCompile(`\r`)
	blankRunPattern   = regexp.MustCompile(`\n+`)
	hspaceRunPattern  = regexp.MustCompile(`[ \t]+`)
	headerLinePattern = regexp.MustCompile(`(?im)^(Delivered-To|Received|Authentication-Results|ARC|Return-Path|DKIM-Signature|` +
		`Message-ID|Content-Type|Content-Transfer-Encoding|MIME-Version|X-[\w-]+|Thread-|` +
		`Received-SPF|SPF|DKIM|DMARC|ARC-Seal|ARC-Message-Signature|ARC-Authentication-Results):.*(?:\n[ \t].*)*`)

	cloudWatchPreamble = "You are receiving this email because your Amazon CloudWatch Alarm"

	// Section markers that terminate a CloudWatch alarm block. Scanned
	// case-insensitively anywhere after the preamble; the earliest match wins.
	alarmEndPatterns = compileAll(
		`^Top 5 processes.*`,
		`^Top \d+ processes.*`,
		`^Top Command Output.*`,
		`^Process details.*`,
		`^Running processes.*`,
		`^Storage Utilization Details.*`,
		`^Disk Usage Details.*`,
		`^File System Details.*`,
		`^Volume Information.*`,
		`^Partition Details.*`,
		`^Memory Consumption Output.*`,
		`^Memory Usage Details.*`,
		`^CPU Usage Breakdown.*`,
		`^System Resource Details.*`,
		`^Performance Metrics.*`,
		`^Network Interface Details.*`,
		`^Network Statistics.*`,
		`^Traffic Details.*`,
		`^System Information.*`,
		`^Host Details.*`,
		`^Instance Details.*`,
		`^Server Information.*`,
		`^Log Details.*`,
		`^Error Logs.*`,
		`^Recent Logs.*`,
		`^Troubleshooting Steps.*`,
		`^Recommended Actions.*`,
		`^Next Steps.*`,
		`^Resolution Steps.*`,
		`^(Regards|Thanks|Thank you|Sincerely|Best Regards|Kind Regards).*`,
		`^--+.*`,
		`^This email was sent.*`,
		`^Please do not reply.*`,
		`^For more information.*`,
		`^AWS Support.*`,
		`^Amazon Web Services.*`,
		`^Disclaimer:.*`,
		`^CONFIDENTIAL.*`,
		`^This message.*confidential.*`,
		`^To unsubscribe.*`,
		`^Unsubscribe.*`,
		`^If you no longer wish to receive.*`,
		`^Application Logs.*`,
		`^Service Status.*`,
		`^Health Check Results.*`,
		`^Monitoring Data.*`,
		`^Threshold Details.*`,
		`^Alert History.*`,
		`^Previous Alerts.*`,
		`^Recent Activity.*`,
		`^Last 24 hours.*`,
		`^Historical Data.*`,
		`^Account Information.*`,
		`^Billing Information.*`,
		`^Contact Information.*`,
	)

	statusLinePattern = regexp.MustCompile(`(?i)^\[[^\]]+\]\s*\[\s*(?:🔴|🟢|⚠️|✅|Down|Up|Critical|OK|Info)[^\]]*\].*`)
	timeLinePattern   = regexp.MustCompile(`^Time \(UTC\):`)

	greetingPattern = regexp.MustCompile(`(?i)\b(Hi|Hello|Hey|Hii|Dear|Greetings|Good\s+(morning|afternoon|evening)|Hi\s+Team|Hello\s+Team|Hi\s+All|Hello\s+All)\b`)
	closingPattern  = regexp.MustCompile(`(?i)\b(Regards|Thanks|Thank you|Sincerely|Cheers|Best\s+Regards|Warm\s+Regards|Kind\s+Regards|Looking forward to your (support|response|insights|reply)|With\s+gratitude|Faithfully|Yours\s+(truly|faithfully))\b`)

	quotedHistoryPattern = regexp.MustCompile(`(?i)(From: .*|On .* wrote:|Sent from my .*|-----Original Message-----|Begin forwarded message:)`)

	signaturePatterns = compileAll(
		`^--\s*$`,
		`^__\s*$`,
		`^Sent from my .*`,
		`^Sent with .*`,
		`^Get Outlook for .*`,
		`^Thanks.*`,
		`^Regards.*`,
		`^Cheers.*`,
	)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?im)` + p)
	}
	return out
}

// Normalize extracts the meaningful content from a raw ticket body.
// It never returns an empty string.
func Normalize(subject, rawBody string) string {
	return Extract(subject, rawBody).CleanText
}

// Extract is Normalize plus the extraction path taken, for testability.
func Extract(subject, rawBody string) *domain.NormalizedMessage {
	if strings.TrimSpace(rawBody) == "" {
		return &domain.NormalizedMessage{CleanText: PlaceholderEmptyBody, Path: domain.PathEmptyBody}
	}

	decoded := decodeQuotedPrintable(rawBody)
	text := html.UnescapeString(stripMarkup(decoded))

	// Whitespace normalization
	text = crPattern.ReplaceAllString(text, "")
	text = blankRunPattern.ReplaceAllString(text, "\n")
	text = hspaceRunPattern.ReplaceAllString(text, " ")
	clean := strings.TrimSpace(text)

	if clean == "" {
		return &domain.NormalizedMessage{CleanText: PlaceholderNoReadableText, Path: domain.PathNoReadableText}
	}

	clean = strings.TrimSpace(headerLinePattern.ReplaceAllString(clean, ""))
	if clean == "" {
		return &domain.NormalizedMessage{CleanText: PlaceholderNoReadableText, Path: domain.PathNoReadableText}
	}

	if block, ok := extractJSONBlock(clean); ok {
		return &domain.NormalizedMessage{CleanText: block, Path: domain.PathJSONBlock}
	}

	if block, ok := extractAlarmBlock(clean); ok {
		return &domain.NormalizedMessage{CleanText: block, Path: domain.PathCloudWatchBlock}
	}

	if lines, ok := extractStatusLines(clean, subject); ok {
		return &domain.NormalizedMessage{CleanText: lines, Path: domain.PathStatusLines}
	}

	path := domain.PathRawFallback
	if window, ok := extractGreetingWindow(clean); ok {
		clean = window
		path = domain.PathGreetingWindow
	}

	// The greeting window (and the raw fallback) still carry quoted
	// history and signatures; strip both.
	clean = stripQuotedHistory(clean)
	clean = stripSignature(clean)

	if clean == "" {
		return &domain.NormalizedMessage{CleanText: PlaceholderNoContent, Path: domain.PathRawFallback}
	}
	return &domain.NormalizedMessage{CleanText: clean, Path: path}
}

// decodeQuotedPrintable attempts quoted-printable decoding, falling back to
// the raw body on any decode error.
func decodeQuotedPrintable(body string) string {
	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(body)))
	if err != nil || len(decoded) == 0 {
		return body
	}
	return string(decoded)
}

// stripMarkup drops all HTML tags, keeping visible text with newline
// separators. Script and style content is discarded.
func stripMarkup(s string) string {
	tokenizer := xhtml.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0
	for {
		tt := tokenizer.Next()
		switch tt {
		case xhtml.ErrorToken:
			return b.String()
		case xhtml.StartTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); tag == "script" || tag == "style" {
				skipDepth++
			}
		case xhtml.EndTagToken:
			name, _ := tokenizer.TagName()
			if tag := string(name); (tag == "script" || tag == "style") && skipDepth > 0 {
				skipDepth--
			}
		case xhtml.TextToken:
			if skipDepth > 0 {
				continue
			}
			if txt := string(tokenizer.Text()); txt != "" {
				b.WriteString(txt)
				b.WriteString("\n")
			}
		}
	}
}

// extractJSONBlock scans for balanced {...} spans and returns the first one
// that parses as JSON, pretty-printed.
func extractJSONBlock(text string) (string, bool) {
	depth := 0
	start := -1
	for i, ch := range text {
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidate := text[start : i+1]
				var parsed map[string]any
				if err := json.Unmarshal([]byte(candidate), &parsed); err == nil {
					pretty, err := json.MarshalIndent(parsed, "", "  ")
					if err == nil {
						return string(pretty), true
					}
				}
				start = -1
			}
		}
	}
	return "", false
}

// extractAlarmBlock returns the CloudWatch alarm block: everything from the
// canonical preamble to the earliest known section-end marker, or to the end
// of the text when no marker matches.
func extractAlarmBlock(text string) (string, bool) {
	idx := strings.Index(text, cloudWatchPreamble)
	if idx < 0 {
		return "", false
	}
	content := text[idx:]

	earliest := -1
	for _, p := range alarmEndPatterns {
		// Markers only terminate the block; a marker at offset 0 would be
		// the preamble line itself, which cannot happen with these patterns.
		if loc := p.FindStringIndex(content); loc != nil {
			if earliest < 0 || loc[0] < earliest {
				earliest = loc[0]
			}
		}
	}
	if earliest >= 0 {
		return strings.TrimSpace(content[:earliest]), true
	}
	return strings.TrimSpace(content), true
}

// extractStatusLines collects bracketed-status lines and Time (UTC) lines
// from the body, falling back to the subject when the body has none.
func extractStatusLines(text, subject string) (string, bool) {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if statusLinePattern.MatchString(line) || timeLinePattern.MatchString(line) {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n"), true
	}

	for _, line := range strings.Split(subject, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && statusLinePattern.MatchString(line) {
			lines = append(lines, line)
		}
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n"), true
	}
	return "", false
}

// extractGreetingWindow returns the span between a greeting token and the
// next closing token, provided the closing follows within the window bound.
func extractGreetingWindow(text string) (string, bool) {
	gLoc := greetingPattern.FindStringIndex(text)
	if gLoc == nil {
		return "", false
	}
	rest := text[gLoc[0]:]
	cLoc := closingPattern.FindStringIndex(rest[gLoc[1]-gLoc[0]:])
	if cLoc == nil {
		return "", false
	}
	closingStart := (gLoc[1] - gLoc[0]) + cLoc[0]
	if closingStart > maxGreetingWindow {
		return "", false
	}
	return strings.TrimSpace(rest[:closingStart]), true
}

// stripQuotedHistory truncates at the first forwarded/reply marker.
func stripQuotedHistory(text string) string {
	if loc := quotedHistoryPattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	return strings.TrimSpace(text)
}

// stripSignature discards everything from the first signature-looking line.
func stripSignature(text string) string {
	var kept []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		trimmed := strings.TrimSpace(line)
		if matchesSignature(trimmed) {
			break
		}
		kept = append(kept, trimmed)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func matchesSignature(line string) bool {
	for _, p := range signaturePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}
