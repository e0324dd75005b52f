package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type scriptedCompleter struct {
	responses []string
	errs      []error
	calls     int
	prompts   []string
}

func (s *scriptedCompleter) Complete(_ context.Context, prompt string) (string, error) {
	i := s.calls
	s.calls++
	s.prompts = append(s.prompts, prompt)
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	var resp string
	if i < len(s.responses) {
		resp = s.responses[i]
	}
	return resp, err
}

func (s *scriptedCompleter) CompleteWithSystem(ctx context.Context, _, userPrompt string) (string, error) {
	return s.Complete(ctx, userPrompt)
}

func (s *scriptedCompleter) CompleteJSON(ctx context.Context, prompt string) (string, error) {
	return s.Complete(ctx, prompt)
}

func TestBackendStructuredResponse(t *testing.T) {
	c := &scriptedCompleter{responses: []string{`{"category": "alarm", "confidence": 0.9}`}}
	b := NewBackend(c)

	resp, err := b.Invoke(context.Background(), "t-1", "classify this")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if resp.Structured == nil {
		t.Fatalf("expected structured response, got raw %q", resp.RawText)
	}
	if got := resp.Structured["category"]; got != "alarm" {
		t.Errorf("category = %v, want alarm", got)
	}
}

func TestBackendRawResponse(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"I think this is an alarm ticket."}}
	b := NewBackend(c)

	resp, err := b.Invoke(context.Background(), "t-2", "classify this")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if resp.Structured != nil {
		t.Errorf("prose must not be structured: %v", resp.Structured)
	}
	if resp.RawText == "" {
		t.Error("raw text missing")
	}
}

func TestBackendRetriesThenSucceeds(t *testing.T) {
	c := &scriptedCompleter{
		errs:      []error{errors.New("timeout"), errors.New("timeout"), nil},
		responses: []string{"", "", "recovered"},
	}
	b := NewBackend(c)
	b.backoff = 0

	resp, err := b.Invoke(context.Background(), "t-3", "classify this")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if c.calls != 3 {
		t.Errorf("calls = %d, want 3", c.calls)
	}
	if resp.RawText != "recovered" {
		t.Errorf("raw = %q", resp.RawText)
	}
}

func TestBackendExhaustsRetries(t *testing.T) {
	boom := errors.New("permanently down")
	c := &scriptedCompleter{errs: []error{boom, boom, boom}}
	b := NewBackend(c)
	b.backoff = 0

	if _, err := b.Invoke(context.Background(), "t-4", "classify this"); err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if c.calls != 3 {
		t.Errorf("calls = %d, want 3", c.calls)
	}
}

func TestTranslatorEnglishPassthrough(t *testing.T) {
	c := &scriptedCompleter{responses: []string{`{"language": "en", "text": "ignored"}`}}
	tr := NewTranslator(c)

	lang, english, err := tr.DetectAndTranslate(context.Background(), "the server is down")
	if err != nil {
		t.Fatalf("DetectAndTranslate: %v", err)
	}
	if lang != "en" || english != "the server is down" {
		t.Errorf("got %q/%q, want en and the original text", lang, english)
	}
}

func TestTranslatorForeignText(t *testing.T) {
	c := &scriptedCompleter{responses: []string{`{"language": "es", "text": "the server is down"}`}}
	tr := NewTranslator(c)

	lang, english, err := tr.DetectAndTranslate(context.Background(), "el servidor no funciona")
	if err != nil {
		t.Fatalf("DetectAndTranslate: %v", err)
	}
	if lang != "es" || english != "the server is down" {
		t.Errorf("got %q/%q", lang, english)
	}
}

func TestTranslatorGarbageResponse(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"not json at all"}}
	tr := NewTranslator(c)

	if _, _, err := tr.DetectAndTranslate(context.Background(), "text"); err == nil {
		t.Fatal("expected error for unparseable response")
	}
}

func TestRepliesPromptComposition(t *testing.T) {
	c := &scriptedCompleter{responses: []string{"reply", "reply", "reply"}}
	r := NewReplies(c)

	if _, err := r.GenerateReply(context.Background(), "t-9", "description text"); err != nil {
		t.Fatalf("GenerateReply: %v", err)
	}
	if _, err := r.GenerateAlarmReply(context.Background(), "t-9", "subj", "alarm body", "description"); err != nil {
		t.Fatalf("GenerateAlarmReply: %v", err)
	}
	if _, err := r.GenerateRemediationReply(context.Background(), "t-9", "description", "started i-0abc"); err != nil {
		t.Fatalf("GenerateRemediationReply: %v", err)
	}

	if !strings.Contains(c.prompts[0], "Ticket ID: t-9") {
		t.Errorf("generic prompt missing ticket id: %q", c.prompts[0])
	}
	if !strings.Contains(c.prompts[1], "Alarm Content:\nalarm body") {
		t.Errorf("alarm prompt missing alarm content: %q", c.prompts[1])
	}
	if !strings.Contains(c.prompts[2], "Remediation Output:\nstarted i-0abc") {
		t.Errorf("remediation prompt missing output: %q", c.prompts[2])
	}
}
