package http

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"

	"ticket_server/core/port/out"
	"ticket_server/core/service/routing"
	"ticket_server/pkg/logger"
	"ticket_server/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const IdempotencyTTL = 5 * time.Minute

type WebhookMetrics struct {
	Processed  int64
	Duplicates int64
	Rejected   int64
	Failed     int64
}

// addressList accepts a single address, a JSON array of addresses, or a
// comma-joined string. Helpdesk webhook payloads use all three shapes.
type addressList []string

func (a *addressList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*a = splitAddresses(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("address field must be a string or an array of strings")
	}
	merged := make([]string, 0, len(many))
	for _, s := range many {
		merged = append(merged, splitAddresses(s)...)
	}
	*a = merged
	return nil
}

func splitAddresses(s string) []string {
	var addrs []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	return addrs
}

type ticketPayload struct {
	TicketID      string      `json:"ticketId"`
	TicketSubject string      `json:"ticketSubject"`
	TicketBody    string      `json:"ticketBody"`
	FromEmail     addressList `json:"fromEmail"`
	ToEmail       addressList `json:"toEmail"`
	CcEmail       addressList `json:"ccEmail"`
	AccountRef    string      `json:"zohoAccountId"`
}

type TicketWebhookHandler struct {
	dispatcher *routing.Dispatcher
	redis      *redis.Client
	metrics    WebhookMetrics
}

func NewTicketWebhookHandler(dispatcher *routing.Dispatcher, redisClient *redis.Client) *TicketWebhookHandler {
	return &TicketWebhookHandler{
		dispatcher: dispatcher,
		redis:      redisClient,
	}
}

func (h *TicketWebhookHandler) GetMetrics() WebhookMetrics {
	return WebhookMetrics{
		Processed:  atomic.LoadInt64(&h.metrics.Processed),
		Duplicates: atomic.LoadInt64(&h.metrics.Duplicates),
		Rejected:   atomic.LoadInt64(&h.metrics.Rejected),
		Failed:     atomic.LoadInt64(&h.metrics.Failed),
	}
}

func (h *TicketWebhookHandler) Register(app *fiber.App) {
	app.Post("/webhook/ticket", h.TicketWebhook)
	app.Post("/webhooks/ticket", h.TicketWebhook)
	app.Get("/webhook/metrics", h.Metrics)
}

func (h *TicketWebhookHandler) idempotencyKey(ticketID string) string {
	return fmt.Sprintf("ticket:idempotent:%s", ticketID)
}

func (h *TicketWebhookHandler) checkIdempotency(ctx context.Context, ticketID string) bool {
	if h.redis == nil || ticketID == "" {
		return false
	}
	ok, err := h.redis.SetNX(ctx, h.idempotencyKey(ticketID), "1", IdempotencyTTL).Result()
	if err != nil || !ok {
		atomic.AddInt64(&h.metrics.Duplicates, 1)
		return true
	}
	return false
}

func (h *TicketWebhookHandler) TicketWebhook(c *fiber.Ctx) error {
	var payload ticketPayload
	if err := json.Unmarshal(c.Body(), &payload); err != nil {
		logger.WithError(err).Warn("[TicketWebhook] Failed to parse payload")
		atomic.AddInt64(&h.metrics.Rejected, 1)
		return response.BadRequest(c, "invalid payload")
	}

	if payload.TicketSubject == "" || payload.TicketBody == "" {
		logger.Warn("[TicketWebhook] Missing subject or body: ticket=%s", payload.TicketID)
		atomic.AddInt64(&h.metrics.Rejected, 1)
		return response.BadRequest(c, "ticketSubject and ticketBody are required")
	}

	ctx := c.Context()

	if h.checkIdempotency(ctx, payload.TicketID) {
		logger.Debug("[TicketWebhook] Duplicate skipped: ticket=%s", payload.TicketID)
		return response.OK(c, fiber.Map{
			"ticketId": payload.TicketID,
			"status":   "duplicate",
		})
	}

	event := &out.TicketEvent{
		TicketID:      payload.TicketID,
		TicketSubject: payload.TicketSubject,
		TicketBody:    payload.TicketBody,
		FromEmail:     payload.FromEmail,
		ToEmail:       payload.ToEmail,
		CcEmail:       payload.CcEmail,
		AccountRef:    payload.AccountRef,
	}

	decision := h.dispatcher.Process(ctx, event)
	if decision.StatusCode >= fiber.StatusInternalServerError {
		atomic.AddInt64(&h.metrics.Failed, 1)
	} else {
		atomic.AddInt64(&h.metrics.Processed, 1)
	}

	logger.Info("[TicketWebhook] Processed: ticket=%s, category=%s, status=%d",
		payload.TicketID, decision.FinalCategory, decision.StatusCode)

	return response.Status(c, decision.StatusCode, fiber.Map{
		"ticketId":   decision.TicketID,
		"category":   string(decision.FinalCategory),
		"confidence": decision.FinalConfidence,
		"ticketType": string(decision.TicketType),
		"language":   decision.Language,
		"handler":    decision.HandlerInvoked,
		"earlyExit":  decision.EarlyExitReason,
	})
}

func (h *TicketWebhookHandler) Metrics(c *fiber.Ctx) error {
	m := h.GetMetrics()
	return c.JSON(fiber.Map{
		"processed":  m.Processed,
		"duplicates": m.Duplicates,
		"rejected":   m.Rejected,
		"failed":     m.Failed,
	})
}
