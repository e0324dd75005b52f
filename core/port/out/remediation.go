package out

import "context"

// RemediationOutcome reports what an automation handler did, if anything.
// Actionable is false when the handler found nothing in the ticket it could
// act on; DetailedMessage is the human-readable account of changes made.
type RemediationOutcome struct {
	Actionable      bool
	StatusCode      int
	Message         string
	DetailedMessage string
}

// Detail returns the richest description available, preferring the
// detailed message over the summary.
func (o *RemediationOutcome) Detail() string {
	if o == nil {
		return ""
	}
	if o.DetailedMessage != "" {
		return o.DetailedMessage
	}
	return o.Message
}

// RemediationRunner attempts concrete infrastructure remediation derived
// from the ticket text (instance start/stop, security-group edits).
type RemediationRunner interface {
	RunEC2(ctx context.Context, ticketBody string, fromEmails []string) (*RemediationOutcome, error)
	RunSecurityGroups(ctx context.Context, ticketBody string, fromEmails []string) (*RemediationOutcome, error)
}

// IAMProvisioningResult describes a provisioned IAM user.
type IAMProvisioningResult struct {
	Username             string
	TemporaryPasswordSet bool
	MFARequired          bool
	AccessKeyCreated     bool
	AccessKeyID          string
	Err                  string
}

// IAMProvisioner creates cloud IAM users requested in ticket text.
type IAMProvisioner interface {
	CreateUser(ctx context.Context, ticketBody, requesterEmail string) (*IAMProvisioningResult, error)
}

// SiteProber checks the liveness of a URL referenced in the ticket body and
// returns a human-readable status message.
type SiteProber interface {
	CheckSite(ctx context.Context, ticketBody string) string
}
