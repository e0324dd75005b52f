// Package siteprobe checks the liveness of URLs referenced in ticket
// bodies, producing the status message the dispatcher inspects.
package siteprobe

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"ticket_server/pkg/httputil"
	"ticket_server/pkg/logger"
)

// urlPattern matches markdown-style link blocks in either order:
// [URL | Label] or [Label | URL].
var urlPattern = regexp.MustCompile(`\[\s*(https?://[^\s\]]+)\s*\|\s*.*?\]|\[\s*.*?\|\s*(https?://[^\s\]]+)\s*\]`)

const probeTimeout = 5 * time.Second

// Prober implements the site-liveness port with a plain HTTP GET.
type Prober struct {
	client *http.Client
	log    *logger.Logger
}

func NewProber() *Prober {
	return &Prober{
		client: httputil.ProbeClient(),
		log:    logger.Default().WithField("component", "siteprobe"),
	}
}

// CheckSite probes the first URL found in the ticket body and returns a
// human-readable status message. It never returns an empty string.
func (p *Prober) CheckSite(ctx context.Context, ticketBody string) string {
	url := ExtractURL(ticketBody)
	if url == "" {
		return "❌ No valid URL found in the ticket body."
	}

	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Sprintf("❌ Site appears to be Down or Unreachable.\n🔗 URL: %s\n💥 Error: %v", url, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Sprintf("❌ Site appears to be Down or Unreachable.\n🔗 URL: %s\n💥 Error: %v", url, err)
	}
	defer resp.Body.Close()
	elapsed := time.Since(start).Round(time.Millisecond)

	statusMsg := fmt.Sprintf("🔗 URL: %s\n📶 Status: HTTP %d %s\n⏱️ Response Time: %s",
		url, resp.StatusCode, http.StatusText(resp.StatusCode), elapsed)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return "✅ Site is Up and Running.\n" + statusMsg
	}
	return "⚠️ Site responded but may have issues.\n" + statusMsg
}

// ExtractURL returns the first linked URL in the body, or empty.
func ExtractURL(body string) string {
	for _, match := range urlPattern.FindAllStringSubmatch(body, -1) {
		for _, group := range match[1:] {
			if group != "" {
				return group
			}
		}
	}
	return ""
}
