package normalize

import (
	"strings"
	"testing"

	"ticket_server/core/domain"
)

func TestExtractPlaceholders(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantText string
		wantPath domain.ExtractionPath
	}{
		{
			name:     "empty body",
			body:     "",
			wantText: PlaceholderEmptyBody,
			wantPath: domain.PathEmptyBody,
		},
		{
			name:     "whitespace only body",
			body:     "   \n\t  ",
			wantText: PlaceholderEmptyBody,
			wantPath: domain.PathEmptyBody,
		},
		{
			name:     "markup only body",
			body:     "<html><body><script>var x = 1;</script></body></html>",
			wantText: PlaceholderNoReadableText,
			wantPath: domain.PathNoReadableText,
		},
		{
			name:     "headers only body",
			body:     "Delivered-To: ops@example.com\nX-Mailer: something\n continuation line",
			wantText: PlaceholderNoReadableText,
			wantPath: domain.PathNoReadableText,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Extract("subject", tt.body)
			if got.CleanText != tt.wantText {
				t.Errorf("CleanText = %q, want %q", got.CleanText, tt.wantText)
			}
			if got.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", got.Path, tt.wantPath)
			}
		})
	}
}

func TestExtractJSONBlock(t *testing.T) {
	body := `Some preamble text
{"AlarmName": "HighCPU", "NewStateValue": "ALARM", "Region": "us-east-1"}
trailing noise`

	got := Extract("alert", body)
	if got.Path != domain.PathJSONBlock {
		t.Fatalf("Path = %q, want %q", got.Path, domain.PathJSONBlock)
	}
	if !strings.Contains(got.CleanText, `"AlarmName"`) {
		t.Errorf("pretty JSON missing AlarmName: %q", got.CleanText)
	}
	if strings.Contains(got.CleanText, "preamble") {
		t.Errorf("surrounding text leaked into JSON block: %q", got.CleanText)
	}
}

func TestExtractJSONBlockIgnoresInvalid(t *testing.T) {
	body := "Hi Team, braces {not json here} in prose. Regards"
	got := Extract("subject", body)
	if got.Path == domain.PathJSONBlock {
		t.Fatalf("invalid brace span must not be treated as JSON, got path %q", got.Path)
	}
}

func TestExtractAlarmBlock(t *testing.T) {
	body := "You are receiving this email because your Amazon CloudWatch Alarm \"HighCPU\" has entered the ALARM state.\n" +
		"Alarm Details:\nState Change: OK -> ALARM\n" +
		"Top 5 processes by CPU:\n1. java 98%\n"

	got := Extract("ALARM: HighCPU", body)
	if got.Path != domain.PathCloudWatchBlock {
		t.Fatalf("Path = %q, want %q", got.Path, domain.PathCloudWatchBlock)
	}
	if !strings.Contains(got.CleanText, "State Change") {
		t.Errorf("alarm details missing: %q", got.CleanText)
	}
	if strings.Contains(got.CleanText, "Top 5 processes") {
		t.Errorf("end marker section leaked into block: %q", got.CleanText)
	}
}

func TestExtractAlarmBlockNoEndMarker(t *testing.T) {
	body := "You are receiving this email because your Amazon CloudWatch Alarm \"DiskFull\" has entered the ALARM state.\nState Change: OK -> ALARM"
	got := Extract("", body)
	if got.Path != domain.PathCloudWatchBlock {
		t.Fatalf("Path = %q, want %q", got.Path, domain.PathCloudWatchBlock)
	}
	if !strings.Contains(got.CleanText, "State Change: OK -> ALARM") {
		t.Errorf("block should run to end of text: %q", got.CleanText)
	}
}

func TestExtractStatusLines(t *testing.T) {
	body := "noise line\n[prod-web] [🔴 Down] site unreachable\nTime (UTC): 2024-05-01 10:00\nmore noise"
	got := Extract("", body)
	if got.Path != domain.PathStatusLines {
		t.Fatalf("Path = %q, want %q", got.Path, domain.PathStatusLines)
	}
	wantLines := 2
	if n := len(strings.Split(got.CleanText, "\n")); n != wantLines {
		t.Errorf("got %d lines, want %d: %q", n, wantLines, got.CleanText)
	}
}

func TestExtractStatusLinesFromSubject(t *testing.T) {
	got := Extract("[prod-api] [Critical] latency breach", "unrelated body text without markers or greetings")
	if got.Path != domain.PathStatusLines {
		t.Fatalf("Path = %q, want %q", got.Path, domain.PathStatusLines)
	}
	if !strings.Contains(got.CleanText, "latency breach") {
		t.Errorf("subject status line missing: %q", got.CleanText)
	}
}

func TestExtractGreetingWindow(t *testing.T) {
	body := "Hi Team,\nWe need two new EC2 instances for the staging environment.\nPlease advise on sizing.\nRegards,\nPat\nFrom: someone@example.com\nOn Mon wrote:\n> old thread"

	got := Extract("EC2 request", body)
	if got.Path != domain.PathGreetingWindow {
		t.Fatalf("Path = %q, want %q", got.Path, domain.PathGreetingWindow)
	}
	if !strings.Contains(got.CleanText, "two new EC2 instances") {
		t.Errorf("request text missing: %q", got.CleanText)
	}
	if strings.Contains(got.CleanText, "old thread") {
		t.Errorf("quoted history leaked: %q", got.CleanText)
	}
	if strings.Contains(got.CleanText, "Regards") {
		t.Errorf("closing token should be excluded: %q", got.CleanText)
	}
}

func TestExtractRawFallbackStripsQuotedHistory(t *testing.T) {
	body := "server disk at 95 percent please check\nOn Tue, someone wrote:\n> previous reply"
	got := Extract("", body)
	if got.Path != domain.PathRawFallback {
		t.Fatalf("Path = %q, want %q", got.Path, domain.PathRawFallback)
	}
	if strings.Contains(got.CleanText, "previous reply") {
		t.Errorf("quoted history leaked: %q", got.CleanText)
	}
	if !strings.Contains(got.CleanText, "disk at 95 percent") {
		t.Errorf("body text missing: %q", got.CleanText)
	}
}

func TestExtractQuotedPrintable(t *testing.T) {
	body := "Hi Team,=0AThe nightly backup job failed with a permissions error.=0ARegards,=0AOps"
	got := Extract("backup failure", body)
	if !strings.Contains(got.CleanText, "nightly backup job failed") {
		t.Errorf("quoted-printable body not decoded: %q", got.CleanText)
	}
}

func TestExtractDecodesEntities(t *testing.T) {
	body := "Hi,\nDisk usage &gt; 90% on prod &amp; staging.\nThanks"
	got := Extract("", body)
	if !strings.Contains(got.CleanText, "> 90% on prod & staging") {
		t.Errorf("entities not decoded: %q", got.CleanText)
	}
}

func TestNormalizeNeverEmpty(t *testing.T) {
	bodies := []string{"", "   ", "<div></div>", "Regards,\nPat", "plain text"}
	for _, body := range bodies {
		if out := Normalize("s", body); strings.TrimSpace(out) == "" {
			t.Errorf("Normalize(%q) returned empty output", body)
		}
	}
}
