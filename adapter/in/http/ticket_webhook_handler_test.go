package http

import (
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

func TestAddressListShapes(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"single string", `"ops@example.com"`, []string{"ops@example.com"}},
		{"comma joined", `"a@example.com, b@example.com"`, []string{"a@example.com", "b@example.com"}},
		{"array", `["a@example.com","b@example.com"]`, []string{"a@example.com", "b@example.com"}},
		{"array with comma joined entry", `["a@example.com","b@example.com, c@example.com"]`, []string{"a@example.com", "b@example.com", "c@example.com"}},
		{"empty string", `""`, nil},
		{"blank entries dropped", `" , a@example.com , "`, []string{"a@example.com"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got addressList
			if err := json.Unmarshal([]byte(tt.raw), &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if !reflect.DeepEqual([]string(got), tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAddressListRejectsNonString(t *testing.T) {
	var got addressList
	if err := json.Unmarshal([]byte(`42`), &got); err == nil {
		t.Error("expected error for numeric address field")
	}
}

func TestTicketWebhookRejectsIncompletePayloads(t *testing.T) {
	h := NewTicketWebhookHandler(nil, nil)
	app := fiber.New()
	h.Register(app)

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{{`},
		{"missing subject", `{"ticketId":"77","ticketBody":"help"}`},
		{"missing body", `{"ticketId":"77","ticketSubject":"help"}`},
		{"empty subject", `{"ticketId":"77","ticketSubject":"","ticketBody":"help"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(fiber.MethodPost, "/webhook/ticket", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusBadRequest)
			}
		})
	}

	m := h.GetMetrics()
	if m.Rejected != int64(len(tests)) {
		t.Errorf("rejected = %d, want %d", m.Rejected, len(tests))
	}
}
