package classification

import (
	"strings"

	"ticket_server/core/domain"
)

// Keyword tables for the no-model fallback. Checked in priority order;
// alarm wins over everything because monitoring mail dominates the inbound
// volume and misrouting it is the costliest failure.
var (
	alarmKeywords = []string{
		"alarm", "alert", "cloudwatch", "metric", "threshold", "monitoring",
		"cpu", "memory", "disk", "warning", "critical", "metricnamespace",
		"metricname", "dimensions", "statistic", "period", "greaterthanorequaltothreshold",
	}
	costKeywords = []string{
		"cost", "billing", "expensive", "optimize", "budget", "spend", "charge",
	}
	securityKeywords = []string{
		"security", "access", "permission", "unauthorized", "breach",
		"credential", "authentication", "iam", "policy",
	}
	osKeywords = []string{
		"operating system", "windows", "linux", "server", "boot", "registry",
		"service", "process", "configuration",
	}
)

// FallbackClassify categorizes by keyword when the model is unavailable or
// returned something unusable. The alarm indicator check runs first so a
// full CloudWatch body still lands in alarm at high confidence.
func FallbackClassify(text string) domain.ClassificationResult {
	if IsAlarmTicket(text) {
		return domain.ClassificationResult{Category: domain.CategoryAlarm, Confidence: 0.95}
	}

	lower := strings.ToLower(text)
	if containsAny(lower, alarmKeywords) {
		return domain.ClassificationResult{Category: domain.CategoryAlarm, Confidence: 0.8}
	}
	if containsAny(lower, costKeywords) {
		return domain.ClassificationResult{Category: domain.CategoryCost, Confidence: 0.7}
	}
	if containsAny(lower, securityKeywords) {
		return domain.ClassificationResult{Category: domain.CategorySecurity, Confidence: 0.7}
	}
	if containsAny(lower, osKeywords) {
		return domain.ClassificationResult{Category: domain.CategoryOS, Confidence: 0.7}
	}
	return domain.ClassificationResult{Category: domain.CategoryCustom, Confidence: 0.5}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
