package helpdesk

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
)

type staticSource struct{ token string }

func (s staticSource) Refresh(context.Context) (string, error) { return s.token, nil }

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	tokens := NewTokenProvider(staticSource{token: "test-token"})
	client := NewClient(Config{
		BaseURL:      srv.URL,
		OrgID:        "org-1",
		SupportEmail: "support@example.com",
		TeamIDs:      map[string]string{"Uptime Team": "team-42"},
	}, tokens)
	return client, srv
}

func TestAssignToTeam(t *testing.T) {
	var gotPath, gotAuth, gotOrg string
	var gotPayload map[string]any

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.Method + " " + r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotOrg = r.Header.Get("orgId")
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		w.WriteHeader(http.StatusOK)
	})

	if err := client.AssignToTeam(context.Background(), "t-1", "Uptime Team"); err != nil {
		t.Fatalf("AssignToTeam: %v", err)
	}
	if gotPath != "PATCH /api/v1/tickets/t-1" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Zoho-oauthtoken test-token" || gotOrg != "org-1" {
		t.Errorf("auth headers = %q / %q", gotAuth, gotOrg)
	}
	if gotPayload["teamId"] != "team-42" {
		t.Errorf("payload = %v", gotPayload)
	}
}

func TestAssignToUnknownTeam(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	err := client.AssignToTeam(context.Background(), "t-1", "Nonexistent Team")
	if err == nil || !strings.Contains(err.Error(), "unknown team") {
		t.Fatalf("err = %v, want unknown team", err)
	}
}

func TestSendReply(t *testing.T) {
	var gotPayload map[string]any
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &gotPayload)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"id": "reply-1"}`))
	})

	res, err := client.SendReply(context.Background(), "t-2",
		[]string{"customer@example.com"}, []string{"customer@example.com"}, nil, "<p>hello</p>")
	if err != nil {
		t.Fatalf("SendReply: %v", err)
	}
	if res.StatusCode != 200 {
		t.Errorf("status = %d", res.StatusCode)
	}
	if gotPayload["channel"] != "EMAIL" || gotPayload["to"] != "customer@example.com" {
		t.Errorf("payload = %v", gotPayload)
	}
	if gotPayload["fromEmailAddress"] != "support@example.com" {
		t.Errorf("from = %v", gotPayload["fromEmailAddress"])
	}
}

func TestSendReplyNoRecipient(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if _, err := client.SendReply(context.Background(), "t-3", nil, nil, nil, "body"); err == nil {
		t.Fatal("expected error for missing recipient")
	}
}

func TestCallRetriesOnUnauthorized(t *testing.T) {
	calls := 0
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	if err := client.UpdateStatus(context.Background(), "t-4"); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestCallSurfacesAPIError(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errorCode": "INVALID_DATA"}`))
	})

	err := client.CloseTicket(context.Background(), "t-5")
	if err == nil || !strings.Contains(err.Error(), "422") {
		t.Fatalf("err = %v, want status 422", err)
	}
}
