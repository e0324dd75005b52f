package classification

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"ticket_server/core/domain"
	"ticket_server/core/port/out"
	"ticket_server/pkg/logger"
)

// conversationalPhrases flag a model reply that is asking questions instead
// of classifying. Matched case-insensitively against the raw text.
var conversationalPhrases = []string{
	"i need to clarify",
	"should i:",
	"which format",
	"want to confirm",
}

const classificationPromptFormat = `
You are a support ticket classifier. Analyze the following customer issue and respond ONLY with a JSON object containing exactly two fields:

Required JSON format:
{"category": "alarm", "confidence": 0.95}

Categories:
- "cost_optimization": Issues related to AWS costs, billing, or resource optimization
- "security": Security concerns, access issues, or compliance matters
- "alarm": CloudWatch alarms, monitoring alerts, system alerts
- "custom": Custom application issues or specific business logic problems
- "os": Operating system related issues, server configuration problems

Customer Ticket:
"%s"

Respond with ONLY the JSON object, no additional text or explanation.`

// ============================================
// Classifier
// ============================================

// Classifier resolves a ticket's category through the model backend, with
// deterministic short-circuits and fallbacks around it. It never returns an
// error: every failure mode degrades to a usable category.
type Classifier struct {
	backend out.AgentBackend
	log     *logger.Logger
}

func NewClassifier(backend out.AgentBackend) *Classifier {
	return &Classifier{
		backend: backend,
		log:     logger.Default().WithField("component", "classifier"),
	}
}

// Classify returns the category and confidence for the normalized ticket
// text. The ticket ID keys the model session so retries of the same ticket
// share conversational state.
func (c *Classifier) Classify(ctx context.Context, ticketID, text string) domain.ClassificationResult {
	if IsAlarmTicket(text) {
		c.log.WithField("ticket_id", ticketID).Info("alarm indicators matched, skipping model")
		return domain.ClassificationResult{Category: domain.CategoryAlarm, Confidence: 0.95}
	}

	prompt := fmt.Sprintf(classificationPromptFormat, text)
	resp, err := c.backend.Invoke(ctx, ticketID, prompt)
	if err != nil {
		c.log.WithError(err).WithField("ticket_id", ticketID).Error("model invocation failed, using keyword fallback")
		return FallbackClassify(text)
	}
	if resp == nil || resp.Empty() {
		c.log.WithField("ticket_id", ticketID).Error("empty model response")
		return domain.ClassificationResult{Category: domain.CategoryCustom, Confidence: 0.0}
	}

	if resp.Structured != nil {
		if _, hasCat := resp.Structured["category"]; hasCat {
			if _, hasConf := resp.Structured["confidence"]; hasConf {
				return validate(resp.Structured)
			}
		}
	}

	raw := resp.RawText
	if raw == "" && resp.Structured != nil {
		raw = fmt.Sprintf("%v", resp.Structured)
	}

	if isConversational(raw) {
		c.log.WithField("ticket_id", ticketID).Warn("model returned conversational text instead of a classification")
		return FallbackClassify(text)
	}

	if obj, ok := ExtractJSON(raw); ok {
		return validate(obj)
	}

	c.log.WithField("ticket_id", ticketID).Warn("no JSON object recoverable from model response")
	return FallbackClassify(text)
}

func isConversational(raw string) bool {
	lower := strings.ToLower(raw)
	for _, phrase := range conversationalPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// validate coerces a parsed model object into a safe classification result.
// Unknown categories become custom at 0.5; out-of-range confidence is
// clamped to [0, 1].
func validate(obj map[string]any) domain.ClassificationResult {
	rawCategory, _ := obj["category"].(string)
	category, valid := domain.ParseCategory(rawCategory)

	confidence, err := toFloat(obj["confidence"])
	if err != nil {
		return domain.ClassificationResult{Category: domain.CategoryCustom, Confidence: 0.0}
	}

	if !valid {
		return domain.ClassificationResult{Category: domain.CategoryCustom, Confidence: 0.5}
	}

	confidence, _ = domain.ClampConfidence(confidence)
	return domain.ClassificationResult{Category: category, Confidence: confidence}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(n), 64)
	case nil:
		return 0.0, nil
	default:
		return 0, fmt.Errorf("unsupported confidence type %T", v)
	}
}
