package classification

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ticket_server/core/domain"
	"ticket_server/core/port/out"
)

type fakeBackend struct {
	resp    *out.AgentResponse
	err     error
	invoked bool
	prompt  string
}

func (f *fakeBackend) Invoke(_ context.Context, _ string, prompt string) (*out.AgentResponse, error) {
	f.invoked = true
	f.prompt = prompt
	return f.resp, f.err
}

const alarmBody = `Subject: ALARM: "HighCPU" in ap-south-1
MetricNamespace: AWS/EC2
MetricName: CPUUtilization
Dimensions: [InstanceId=i-0abc]
Threshold: 80.0
You are in ALARM state`

func TestClassifyAlarmShortCircuit(t *testing.T) {
	backend := &fakeBackend{}
	c := NewClassifier(backend)

	got := c.Classify(context.Background(), "t-1", alarmBody)
	if got.Category != domain.CategoryAlarm || got.Confidence != 0.95 {
		t.Errorf("got %s/%.2f, want alarm/0.95", got.Category, got.Confidence)
	}
	if backend.invoked {
		t.Error("model must not be invoked when alarm indicators match")
	}
}

func TestClassifyStructuredResponse(t *testing.T) {
	backend := &fakeBackend{resp: &out.AgentResponse{
		Structured: map[string]any{"category": "security", "confidence": 0.9},
	}}
	c := NewClassifier(backend)

	got := c.Classify(context.Background(), "t-2", "someone shared root credentials in chat")
	if got.Category != domain.CategorySecurity || got.Confidence != 0.9 {
		t.Errorf("got %s/%.2f, want security/0.90", got.Category, got.Confidence)
	}
	if !strings.Contains(backend.prompt, "someone shared root credentials") {
		t.Errorf("ticket text missing from prompt")
	}
}

func TestClassifyFencedJSONResponse(t *testing.T) {
	backend := &fakeBackend{resp: &out.AgentResponse{
		RawText: "Here you go:\n```json\n{\"category\": \"cost_optimization\", \"confidence\": 0.85}\n```",
	}}
	c := NewClassifier(backend)

	got := c.Classify(context.Background(), "t-3", "our bill doubled last month")
	if got.Category != domain.CategoryCost || got.Confidence != 0.85 {
		t.Errorf("got %s/%.2f, want cost_optimization/0.85", got.Category, got.Confidence)
	}
}

func TestClassifyConversationalResponseFallsBack(t *testing.T) {
	backend := &fakeBackend{resp: &out.AgentResponse{
		RawText: "I need to clarify a few things before answering. Should I: classify or summarize?",
	}}
	c := NewClassifier(backend)

	got := c.Classify(context.Background(), "t-4", "billing spike on the production account budget")
	if got.Category != domain.CategoryCost || got.Confidence != 0.7 {
		t.Errorf("got %s/%.2f, want cost_optimization/0.70 from keyword fallback", got.Category, got.Confidence)
	}
}

func TestClassifyBackendErrorFallsBack(t *testing.T) {
	backend := &fakeBackend{err: errors.New("agent unavailable")}
	c := NewClassifier(backend)

	got := c.Classify(context.Background(), "t-5", "unauthorized access attempt on the bastion")
	if got.Category != domain.CategorySecurity || got.Confidence != 0.7 {
		t.Errorf("got %s/%.2f, want security/0.70", got.Category, got.Confidence)
	}
}

func TestClassifyEmptyResponse(t *testing.T) {
	backend := &fakeBackend{resp: &out.AgentResponse{}}
	c := NewClassifier(backend)

	got := c.Classify(context.Background(), "t-6", "anything at all")
	if got.Category != domain.CategoryCustom || got.Confidence != 0.0 {
		t.Errorf("got %s/%.2f, want custom/0.00", got.Category, got.Confidence)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		obj      map[string]any
		wantCat  domain.Category
		wantConf float64
	}{
		{
			name:     "valid pair",
			obj:      map[string]any{"category": "os", "confidence": 0.75},
			wantCat:  domain.CategoryOS,
			wantConf: 0.75,
		},
		{
			name:     "category normalized",
			obj:      map[string]any{"category": "  ALARM ", "confidence": 0.9},
			wantCat:  domain.CategoryAlarm,
			wantConf: 0.9,
		},
		{
			name:     "unknown category",
			obj:      map[string]any{"category": "networking", "confidence": 0.9},
			wantCat:  domain.CategoryCustom,
			wantConf: 0.5,
		},
		{
			name:     "confidence above range clamped",
			obj:      map[string]any{"category": "security", "confidence": 1.8},
			wantCat:  domain.CategorySecurity,
			wantConf: 1.0,
		},
		{
			name:     "confidence below range clamped",
			obj:      map[string]any{"category": "security", "confidence": -0.3},
			wantCat:  domain.CategorySecurity,
			wantConf: 0.0,
		},
		{
			name:     "string confidence coerced",
			obj:      map[string]any{"category": "alarm", "confidence": "0.8"},
			wantCat:  domain.CategoryAlarm,
			wantConf: 0.8,
		},
		{
			name:     "unparseable confidence",
			obj:      map[string]any{"category": "alarm", "confidence": "high"},
			wantCat:  domain.CategoryCustom,
			wantConf: 0.0,
		},
		{
			name:     "missing category",
			obj:      map[string]any{"confidence": 0.9},
			wantCat:  domain.CategoryCustom,
			wantConf: 0.5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := validate(tt.obj)
			if got.Category != tt.wantCat || got.Confidence != tt.wantConf {
				t.Errorf("got %s/%.2f, want %s/%.2f", got.Category, got.Confidence, tt.wantCat, tt.wantConf)
			}
		})
	}
}

func TestIsAlarmTicket(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"full alarm body", alarmBody, true},
		{"three indicators only", "MetricName: CPU\nThreshold: 80\nDimensions: x", false},
		{"plain client mail", "Hi team, please resize our instance", false},
		{"case sensitive", "metricname: cpu metricnamespace: x dimensions: y threshold: 1", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsAlarmTicket(tt.text); got != tt.want {
				t.Errorf("IsAlarmTicket = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestInferTypeFromSubject(t *testing.T) {
	tests := []struct {
		subject string
		want    domain.TicketType
	}{
		{"ALARM: HighCPU in ap-south-1", domain.TypeAlarm},
		{"[Alarm] disk pressure", domain.TypeAlarm},
		{"Health Event: scheduled maintenance", domain.TypeAlarm},
		{"[ALERT] [FIRING] PodRestart", domain.TypeAlarm},
		{"[Action Required] certificate expiry", domain.TypeAlarm},
		{"[Resolved] api latency", domain.TypeAlarm},
		{"prod site is down", domain.TypeAlarm},
		{"Request failed with status code 503", domain.TypeAlarm},
		{"AWS Budgets: monthly budget exceeded", domain.TypeAlarm},
		{"Cost Anomaly Detected in account", domain.TypeAlarm},
		{"Need two new EC2 instances", domain.TypeClient},
		{"Question about invoice", domain.TypeClient},
		{"", domain.TypeClient},
	}
	for _, tt := range tests {
		t.Run(tt.subject, func(t *testing.T) {
			if got := InferTypeFromSubject(tt.subject); got != tt.want {
				t.Errorf("InferTypeFromSubject(%q) = %s, want %s", tt.subject, got, tt.want)
			}
		})
	}
}

func TestFallbackClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		wantCat  domain.Category
		wantConf float64
	}{
		{"alarm indicators win", alarmBody, domain.CategoryAlarm, 0.95},
		{"alarm keyword", "we keep getting a warning about cpu usage", domain.CategoryAlarm, 0.8},
		{"cost keyword", "the invoice charge looks too high", domain.CategoryCost, 0.7},
		{"security keyword", "please rotate the iam credential", domain.CategorySecurity, 0.7},
		{"os keyword", "the windows registry got corrupted", domain.CategoryOS, 0.7},
		{"alarm beats cost", "billing alert threshold breached", domain.CategoryAlarm, 0.8},
		{"nothing matches", "hello there general question", domain.CategoryCustom, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FallbackClassify(tt.text)
			if got.Category != tt.wantCat || got.Confidence != tt.wantConf {
				t.Errorf("got %s/%.2f, want %s/%.2f", got.Category, got.Confidence, tt.wantCat, tt.wantConf)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantCat string
		wantOK  bool
	}{
		{"json fence", "```json\n{\"category\": \"alarm\"}\n```", "alarm", true},
		{"bare fence", "```\n{\"category\": \"os\"}\n```", "os", true},
		{"embedded object", "the answer is {\"category\": \"security\", \"nested\": {\"a\": 1}} thanks", "security", true},
		{"prose only", "no json to be found here", "", false},
		{"broken braces", "oops {\"category\": ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, ok := ExtractJSON(tt.text)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got, _ := obj["category"].(string); got != tt.wantCat {
				t.Errorf("category = %q, want %q", got, tt.wantCat)
			}
		})
	}
}
