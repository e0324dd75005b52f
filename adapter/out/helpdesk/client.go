package helpdesk

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"

	"ticket_server/core/port/out"
	"ticket_server/pkg/apperr"
	"ticket_server/pkg/httputil"
	"ticket_server/pkg/logger"
)

// Config holds the helpdesk API surface. TeamIDs maps human team names to
// the API's opaque team identifiers.
type Config struct {
	BaseURL      string
	OrgID        string
	SupportEmail string
	CCEmail      string
	TeamIDs      map[string]string
}

// Client implements the helpdesk port over the REST API. All calls share a
// circuit breaker so a flapping helpdesk degrades to fast failures that the
// dispatcher logs and moves past.
type Client struct {
	cfg     Config
	tokens  *TokenProvider
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     *logger.Logger
}

func NewClient(cfg Config, tokens *TokenProvider) *Client {
	return &Client{
		cfg:    cfg,
		tokens: tokens,
		http:   httputil.HelpdeskClient(),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "helpdesk",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
		log: logger.Default().WithField("component", "helpdesk"),
	}
}

func (c *Client) AssignToTeam(ctx context.Context, ticketID, teamName string) error {
	teamID, ok := c.cfg.TeamIDs[teamName]
	if !ok {
		return fmt.Errorf("unknown team name: %s", teamName)
	}
	_, err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/api/v1/tickets/%s", ticketID), map[string]any{
		"teamId":     teamID,
		"assigneeId": "",
	})
	return err
}

func (c *Client) UpdateStatus(ctx context.Context, ticketID string) error {
	_, err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/api/v1/tickets/%s", ticketID), map[string]any{
		"status": "Assigned",
	})
	return err
}

func (c *Client) CloseTicket(ctx context.Context, ticketID string) error {
	_, err := c.call(ctx, http.MethodPatch, fmt.Sprintf("/api/v1/tickets/%s", ticketID), map[string]any{
		"status": "Closed",
	})
	return err
}

func (c *Client) AddPrivateComment(ctx context.Context, ticketID, comment string) error {
	_, err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/v1/tickets/%s/comments", ticketID), map[string]any{
		"content": comment,
	})
	return err
}

func (c *Client) SendReply(ctx context.Context, ticketID string, fromEmails, toEmails, ccEmails []string, htmlBody string) (*out.ReplyResult, error) {
	if len(toEmails) == 0 {
		return nil, fmt.Errorf("no recipient for reply on ticket %s", ticketID)
	}

	payload := map[string]any{
		"channel":          "EMAIL",
		"fromEmailAddress": c.cfg.SupportEmail,
		"to":               toEmails[0],
		"contentType":      "html",
		"content":          htmlBody,
	}
	if c.cfg.CCEmail != "" {
		payload["cc"] = c.cfg.CCEmail
	}

	res, err := c.call(ctx, http.MethodPost, fmt.Sprintf("/api/v1/tickets/%s/sendReply", ticketID), payload)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// call issues one authenticated API request through the breaker. A 401
// invalidates the cached token and retries once with a fresh one.
func (c *Client) call(ctx context.Context, method, path string, payload any) (*out.ReplyResult, error) {
	res, err := c.do(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusUnauthorized {
		c.log.Warn("helpdesk rejected token, refreshing and retrying")
		c.tokens.Invalidate()
		res, err = c.do(ctx, method, path, payload)
		if err != nil {
			return nil, err
		}
	}
	if res.StatusCode >= 400 {
		return nil, apperr.HelpdeskError(
			fmt.Sprintf("%s %s", method, path),
			res.StatusCode,
			fmt.Errorf("status %d: %s", res.StatusCode, res.Body),
		)
	}
	return res, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (*out.ReplyResult, error) {
	result, err := c.breaker.Execute(func() (any, error) {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("access token: %w", err)
		}

		body, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}

		req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
		req.Header.Set("orgId", c.cfg.OrgID)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, err
		}
		return &out.ReplyResult{StatusCode: resp.StatusCode, Body: string(data)}, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*out.ReplyResult), nil
}
