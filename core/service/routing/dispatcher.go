// Package routing sequences the full ticket pipeline: normalization,
// account restriction, similarity lookup, site liveness, classification,
// priority resolution and category dispatch.
package routing

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/goccy/go-json"

	"ticket_server/core/domain"
	"ticket_server/core/port/out"
	"ticket_server/core/service/classification"
	"ticket_server/core/service/normalize"
	"ticket_server/pkg/logger"
)

const (
	uptimeTeam = "Uptime Team"

	confidenceFloor = 0.7

	defaultReply = "Thank you for reaching out."

	lowConfidenceNote = "Low confidence classification. Manual review required."
)

var (
	accountTextPattern = regexp.MustCompile(`(?i)AWS\s+Account\s*:\s*(\d{12})`)
	twelveDigits       = regexp.MustCompile(`^\d{12}$`)

	siteHealthyPattern = regexp.MustCompile(`📶 Status:\s+HTTP 2\d{2}`)

	iamRequestPattern = regexp.MustCompile(`(?i)(create|add|new)\s+(IAM\s+user|user)`)
)

// ============================================
// Dispatcher
// ============================================

// Dispatcher is the top-level decision procedure for one inbound ticket.
// Collaborator failures never abort the pipeline: each step degrades per
// its own fallback, and only an unrecovered panic reaches the dead-letter
// queue.
type Dispatcher struct {
	helpdesk    out.HelpdeskClient
	notifier    out.TeamNotifier
	classifier  *classification.Classifier
	replies     out.ReplyGenerator
	translator  out.Translator
	accounts    out.AccountStore
	similarity  out.SimilaritySearcher
	audit       out.ResponseAuditStore
	dlq         out.DeadLetterQueue
	prober      out.SiteProber
	remediation out.RemediationRunner
	iam         out.IAMProvisioner
	log         *logger.Logger
}

// Deps carries the dispatcher's collaborators. All fields are required
// except Remediation and IAM, which may be nil when automation is disabled.
type Deps struct {
	Helpdesk    out.HelpdeskClient
	Notifier    out.TeamNotifier
	Classifier  *classification.Classifier
	Replies     out.ReplyGenerator
	Translator  out.Translator
	Accounts    out.AccountStore
	Similarity  out.SimilaritySearcher
	Audit       out.ResponseAuditStore
	DLQ         out.DeadLetterQueue
	Prober      out.SiteProber
	Remediation out.RemediationRunner
	IAM         out.IAMProvisioner
}

func NewDispatcher(d Deps) *Dispatcher {
	return &Dispatcher{
		helpdesk:    d.Helpdesk,
		notifier:    d.Notifier,
		classifier:  d.Classifier,
		replies:     d.Replies,
		translator:  d.Translator,
		accounts:    d.Accounts,
		similarity:  d.Similarity,
		audit:       d.Audit,
		dlq:         d.DLQ,
		prober:      d.Prober,
		remediation: d.Remediation,
		iam:         d.IAM,
		log:         logger.Default().WithField("component", "dispatcher"),
	}
}

// Process runs the pipeline for one ticket event. It always returns a
// decision; an unrecovered panic inside the pipeline publishes the original
// event to the dead-letter queue and yields a 500 decision.
func (d *Dispatcher) Process(ctx context.Context, event *out.TicketEvent) (decision *domain.RoutingDecision) {
	defer func() {
		if r := recover(); r != nil {
			cause := fmt.Sprintf("%v", r)
			d.log.WithField("ticket_id", event.TicketID).Error("unhandled pipeline failure: %s", cause)
			if err := d.dlq.Publish(ctx, event, cause); err != nil {
				d.log.WithError(err).Error("failed to publish event to dead-letter queue")
			}
			decision = &domain.RoutingDecision{
				TicketID:        event.TicketID,
				EarlyExitReason: "internal_error",
				StatusCode:      500,
			}
		}
	}()
	return d.process(ctx, event)
}

func (d *Dispatcher) process(ctx context.Context, event *out.TicketEvent) *domain.RoutingDecision {
	log := d.log.WithField("ticket_id", event.TicketID)

	if strings.TrimSpace(event.TicketSubject) == "" || strings.TrimSpace(event.TicketBody) == "" {
		log.Warn("missing ticket subject or body")
		return &domain.RoutingDecision{
			TicketID:        event.TicketID,
			EarlyExitReason: "missing_fields",
			StatusCode:      400,
		}
	}

	ticket := &domain.Ticket{
		ID:            event.TicketID,
		Subject:       event.TicketSubject,
		RawBody:       event.TicketBody,
		FromAddresses: domain.NormalizeAddressList(event.FromEmail),
		ToAddresses:   domain.NormalizeAddressList(event.ToEmail),
		CcAddresses:   domain.NormalizeAddressList(event.CcEmail),
		AccountRef:    event.AccountRef,
	}

	ticketType := classification.InferTypeFromSubject(ticket.Subject)
	log.WithField("ticket_type", ticketType).Info("inferred ticket type from subject")

	body := normalize.Normalize(ticket.Subject, ticket.RawBody)
	log.Info("normalized ticket body")

	// Immediate first-response routing: park the ticket with the uptime
	// team and mark it assigned before any classification happens.
	d.assignAndMark(ctx, ticket.ID, uptimeTeam, log)

	if decision, done := d.checkAccountRestriction(ctx, ticket, body, ticketType, log); done {
		return decision
	}

	d.logSimilarTickets(ctx, body, log)

	d.checkSiteLiveness(ctx, ticket.ID, body, log)

	description := ticket.Subject + "\n\n" + body

	language, english := d.translate(ctx, description, log)

	result := d.classifier.Classify(ctx, ticket.ID, english)
	log.WithFields(map[string]any{
		"category":   result.Category,
		"confidence": result.Confidence,
	}).Info("initial classification result")

	// Priority resolution: the subject heuristic outranks the model, the
	// confidence floor outranks everything below it.
	if ticketType == domain.TypeClient {
		log.Info("subject heuristic says client, overriding category to custom")
		result = domain.ClassificationResult{Category: domain.CategoryCustom, Confidence: 1.0}
	} else if result.Confidence < confidenceFloor {
		log.Warn("low confidence classification, routing to manual review")
		d.notify(ctx, ticket, lowConfidenceNote, log)
		return &domain.RoutingDecision{
			TicketID:        ticket.ID,
			FinalCategory:   result.Category,
			FinalConfidence: result.Confidence,
			TicketType:      ticketType,
			Language:        language,
			EarlyExitReason: "low_confidence",
			StatusCode:      200,
		}
	}

	reply := d.generateReply(ctx, ticket, english, "general_support", log)

	decision := &domain.RoutingDecision{
		TicketID:        ticket.ID,
		FinalCategory:   result.Category,
		FinalConfidence: result.Confidence,
		TicketType:      ticketType,
		Language:        language,
		Reply:           reply,
		StatusCode:      200,
	}

	switch result.Category {
	case domain.CategoryAlarm, domain.CategorySecurity, domain.CategoryCost:
		decision.HandlerInvoked = string(result.Category)
		decision.Reply = d.handleEscalated(ctx, ticket, english, reply, log)
	case domain.CategoryCustom:
		decision.HandlerInvoked = "custom"
		decision.Reply = d.handleCustom(ctx, ticket, english, reply, log)
		return decision
	case domain.CategoryOS:
		// OS tickets ride the generic path: no automation hooks exist for
		// them, but they still get a first response and a named handler.
		decision.HandlerInvoked = "os"
		d.sendReply(ctx, ticket, decision.Reply, log)
	}

	if iamRequestPattern.MatchString(body) {
		log.Info("detected IAM user creation request")
		decision.Reply = d.handleIAMRequest(ctx, ticket, log)
		decision.HandlerInvoked = "iam_provisioning"
	}

	return decision
}

// ============================================
// Pipeline steps
// ============================================

func (d *Dispatcher) assignAndMark(ctx context.Context, ticketID, team string, log *logger.Logger) {
	log.WithField("team", team).Info("assigning ticket to team")
	if err := d.helpdesk.AssignToTeam(ctx, ticketID, team); err != nil {
		log.WithError(err).Error("team assignment failed")
	}
	if err := d.helpdesk.UpdateStatus(ctx, ticketID); err != nil {
		log.WithError(err).Error("status update failed")
	}
}

// checkAccountRestriction resolves the cloud account referenced by the
// ticket against the allow-list. A missing account id ends the pipeline as
// a client ticket; a known-but-unsupported id routes to the uptime team
// with a 403.
func (d *Dispatcher) checkAccountRestriction(ctx context.Context, ticket *domain.Ticket, body string, ticketType domain.TicketType, log *logger.Logger) (*domain.RoutingDecision, bool) {
	accountID := ExtractAccountID(body)
	if accountID == "" {
		log.Warn("no cloud account id found in ticket body, treating as client")
		return &domain.RoutingDecision{
			TicketID:        ticket.ID,
			FinalCategory:   domain.CategoryCustom,
			TicketType:      domain.TypeClient,
			EarlyExitReason: "account_not_found",
			StatusCode:      200,
		}, true
	}

	supported, err := d.accounts.IsSupported(ctx, accountID)
	if err != nil {
		log.WithError(err).WithField("account_id", accountID).Error("account lookup failed, treating as unsupported")
		supported = false
	}
	if !supported {
		log.WithField("account_id", accountID).Warn("account is not on the allow-list")
		d.assignAndMark(ctx, ticket.ID, uptimeTeam, log)
		d.notify(ctx, ticket, "", log)
		return &domain.RoutingDecision{
			TicketID:        ticket.ID,
			TicketType:      ticketType,
			EarlyExitReason: "account_not_supported",
			Reply:           fmt.Sprintf("AccountId %s is not supported. Ticket has been routed to %s.", accountID, uptimeTeam),
			StatusCode:      403,
		}, true
	}
	return nil, false
}

func (d *Dispatcher) logSimilarTickets(ctx context.Context, body string, log *logger.Logger) {
	res, err := d.similarity.Search(ctx, body)
	if err != nil {
		log.WithError(err).Error("similar ticket search failed")
		return
	}
	if res == nil || res.Status != "success" || len(res.Results) == 0 {
		log.Info("no similar tickets found above threshold")
		return
	}
	log.WithFields(map[string]any{
		"total_found": res.TotalFound,
		"elapsed":     res.Elapsed.String(),
	}).Info("found similar past tickets")
	for _, match := range res.Results {
		log.Info("similar ticket match: %.2f | %s", match.Similarity, match.TicketID)
	}
}

// checkSiteLiveness probes any URL in the body; a healthy 2xx response gets
// recorded as a private note and the ticket closed. The pipeline continues
// either way so the customer still receives a reply.
func (d *Dispatcher) checkSiteLiveness(ctx context.Context, ticketID, body string, log *logger.Logger) {
	status := d.prober.CheckSite(ctx, body)
	log.Info("site status: %s", status)
	if !siteHealthyPattern.MatchString(status) {
		return
	}
	log.Info("referenced site is healthy, closing ticket")
	if err := d.helpdesk.AddPrivateComment(ctx, ticketID, status); err != nil {
		log.WithError(err).Error("private comment failed")
	}
	if err := d.helpdesk.CloseTicket(ctx, ticketID); err != nil {
		log.WithError(err).Error("ticket close failed")
	}
}

func (d *Dispatcher) translate(ctx context.Context, description string, log *logger.Logger) (language, english string) {
	language, english, err := d.translator.DetectAndTranslate(ctx, description)
	if err != nil {
		log.WithError(err).Error("language detection failed, assuming english")
		return "en", description
	}
	log.WithField("language", language).Info("detected ticket language")
	return language, english
}

func (d *Dispatcher) generateReply(ctx context.Context, ticket *domain.Ticket, english, source string, log *logger.Logger) string {
	reply, err := d.replies.GenerateReply(ctx, ticket.ID, english)
	if err != nil {
		log.WithError(err).Error("reply generation failed, using default reply")
		return defaultReply
	}
	if strings.TrimSpace(reply) == "" {
		reply = defaultReply
	}
	d.auditReply(ctx, ticket, reply, source, log)
	return reply
}

func (d *Dispatcher) auditReply(ctx context.Context, ticket *domain.Ticket, reply, source string, log *logger.Logger) {
	rec := &out.ResponseRecord{
		TicketID:      ticket.ID,
		TicketSubject: ticket.Subject,
		TicketBody:    ticket.RawBody,
		Response:      reply,
		Source:        source,
	}
	if err := d.audit.SaveResponse(ctx, rec); err != nil {
		log.WithError(err).Error("response audit save failed")
	}
}

func (d *Dispatcher) notify(ctx context.Context, ticket *domain.Ticket, body string, log *logger.Logger) {
	addresses := append(append(append([]string{}, ticket.FromAddresses...), ticket.ToAddresses...), ticket.CcAddresses...)
	if err := d.notifier.NotifyTeam(ctx, uptimeTeam, ticket.Subject, ticket.ID, body, addresses); err != nil {
		log.WithError(err).Error("team notification failed")
	}
}

func (d *Dispatcher) sendReply(ctx context.Context, ticket *domain.Ticket, reply string, log *logger.Logger) {
	res, err := d.helpdesk.SendReply(ctx, ticket.ID, ticket.FromAddresses, ticket.ToAddresses, ticket.CcAddresses, reply)
	if err != nil {
		log.WithError(err).Error("first response send failed")
		return
	}
	log.WithField("status_code", res.StatusCode).Info("first response sent")
}

// ============================================
// Category handlers
// ============================================

// handleEscalated covers the alarm, security and cost categories: park with
// the uptime team, notify its chat channel, then send an alarm-grounded
// first response.
func (d *Dispatcher) handleEscalated(ctx context.Context, ticket *domain.Ticket, english, reply string, log *logger.Logger) string {
	d.assignAndMark(ctx, ticket.ID, uptimeTeam, log)
	d.notify(ctx, ticket, reply, log)

	alarmReply, err := d.replies.GenerateAlarmReply(ctx, ticket.ID, ticket.Subject, ticket.RawBody, english)
	if err != nil || strings.TrimSpace(alarmReply) == "" {
		if err != nil {
			log.WithError(err).Error("alarm reply generation failed, keeping generic reply")
		}
		alarmReply = reply
	} else {
		d.auditReply(ctx, ticket, alarmReply, "alarm_response", log)
	}

	d.sendReply(ctx, ticket, alarmReply, log)
	return alarmReply
}

// handleCustom runs the automation hooks for human-authored tickets: EC2
// and security-group remediation attempts feed the reply prompt, then the
// notifier's routing decides the owning team.
func (d *Dispatcher) handleCustom(ctx context.Context, ticket *domain.Ticket, english, reply string, log *logger.Logger) string {
	detail := d.runRemediation(ctx, ticket, log)

	if detail != "" {
		remReply, err := d.replies.GenerateRemediationReply(ctx, ticket.ID, english, detail)
		if err != nil || strings.TrimSpace(remReply) == "" {
			if err != nil {
				log.WithError(err).Error("remediation reply generation failed, keeping generic reply")
			}
		} else {
			d.auditReply(ctx, ticket, remReply, "remediation_response", log)
			reply = remReply
		}
	}

	d.sendReply(ctx, ticket, reply, log)
	d.notify(ctx, ticket, reply, log)

	if err := d.helpdesk.UpdateStatus(ctx, ticket.ID); err != nil {
		log.WithError(err).Error("status update failed")
	}
	return reply
}

func (d *Dispatcher) runRemediation(ctx context.Context, ticket *domain.Ticket, log *logger.Logger) string {
	if d.remediation == nil {
		return ""
	}
	var parts []string

	ec2, err := d.remediation.RunEC2(ctx, ticket.RawBody, ticket.FromAddresses)
	if err != nil {
		log.WithError(err).Error("ec2 remediation failed")
	} else if ec2 != nil && (ec2.StatusCode == 200 || ec2.StatusCode == 202) && ec2.Detail() != "" {
		parts = append(parts, "EC2 Response:\n"+ec2.Detail())
	}

	sg, err := d.remediation.RunSecurityGroups(ctx, ticket.RawBody, ticket.FromAddresses)
	if err != nil {
		log.WithError(err).Error("security group remediation failed")
	} else if sg != nil && (sg.StatusCode == 200 || sg.StatusCode == 202) && sg.Detail() != "" {
		parts = append(parts, "Security Group Response:\n"+sg.Detail())
	}

	return strings.Join(parts, "\n\n")
}

func (d *Dispatcher) handleIAMRequest(ctx context.Context, ticket *domain.Ticket, log *logger.Logger) string {
	if d.iam == nil {
		log.Warn("IAM provisioning requested but not configured")
		return defaultReply
	}

	requester := ""
	if len(ticket.FromAddresses) > 0 {
		requester = ticket.FromAddresses[0]
	}

	res, err := d.iam.CreateUser(ctx, ticket.RawBody, requester)
	reply := composeIAMReply(res, err)

	d.sendReply(ctx, ticket, reply, log)
	d.assignAndMark(ctx, ticket.ID, uptimeTeam, log)
	return reply
}

func composeIAMReply(res *out.IAMProvisioningResult, err error) string {
	if err != nil {
		return fmt.Sprintf("Failed to create IAM user: %v", err)
	}
	if res == nil || res.Err != "" {
		detail := "unknown error"
		if res != nil {
			detail = res.Err
		}
		return fmt.Sprintf("Failed to create IAM user: %s", detail)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "IAM user %s created successfully. ", res.Username)
	if res.TemporaryPasswordSet {
		b.WriteString("A temporary password has been set, and the user must reset it upon first login. ")
	}
	if res.MFARequired {
		b.WriteString("MFA is required for this user. ")
	}
	if res.AccessKeyCreated {
		fmt.Fprintf(&b, "Access Key ID: %s. ", res.AccessKeyID)
	}
	b.WriteString("Please check secure logs for sensitive information.")
	return b.String()
}

// ============================================
// Account id extraction
// ============================================

// ExtractAccountID pulls a 12-digit cloud account id out of the normalized
// ticket body. A labeled text mention wins over a JSON accountId field.
func ExtractAccountID(body string) string {
	if m := accountTextPattern.FindStringSubmatch(body); m != nil {
		return m[1]
	}

	var parsed map[string]any
	if err := json.Unmarshal([]byte(body), &parsed); err == nil {
		if raw, ok := parsed["accountId"].(string); ok && twelveDigits.MatchString(raw) {
			return raw
		}
	}
	return ""
}
