// Package engine holds the pure decision engines of the workbench:
// submission validation, risk scoring, underwriter assignment, and the
// workflow transition table. Everything here is deterministic and driven by
// the loaded business rule configuration; no I/O happens in this package.
package engine

import (
	"fmt"
	"strings"

	"uw_workbench_backend/internal/fields"
	"uw_workbench_backend/internal/rules"
	"uw_workbench_backend/internal/workitems/domain"
)

// ValidationResult is the verdict for one extracted submission. A rejected
// verdict carries exactly one reason, from the first rule that fired.
type ValidationResult struct {
	Status           string   `json:"status"`
	MissingFields    []string `json:"missingFields,omitempty"`
	RejectionReasons []string `json:"rejectionReasons,omitempty"`
}

// Validator applies the configured intake rules to extracted fields.
type Validator struct {
	cfg rules.ValidationConfig
}

// NewValidator creates a validation engine from loaded configuration.
func NewValidator(cfg rules.ValidationConfig) *Validator {
	return &Validator{cfg: cfg}
}

// Validate evaluates a submission. Missing required data always yields
// incomplete; the hard-rejection rules only run once the required fields are
// present, in their configured order, and the first firing rule decides the
// verdict. A coverage amount that is present but unparseable fails closed to
// incomplete rather than letting the floor and ceiling rules silently pass.
func (v *Validator) Validate(m fields.Map, senderEmail string) ValidationResult {
	coverage, coverageOK := m.Money("coverage_amount")
	coveragePresent := !m.Missing("coverage_amount")
	coverageUnparseable := coveragePresent && !coverageOK

	if missing := v.requiredMissing(m, coverageUnparseable); len(missing) > 0 {
		return ValidationResult{Status: domain.ValidationIncomplete, MissingFields: missing}
	}

	for _, rule := range v.cfg.RejectionRuleOrder {
		var reason string
		var fired bool
		switch rule {
		case rules.RuleSenderBlacklist:
			if domainName, blocked := v.blacklistedSender(senderEmail); blocked {
				reason, fired = fmt.Sprintf("sender domain %s is blacklisted", domainName), true
			}
		case rules.RulePolicyAppetite:
			reason, fired = v.outsideAppetite(m)
		case rules.RuleCoverageFloor:
			if coverageOK && coverage < v.cfg.CoverageFloor {
				reason, fired = fmt.Sprintf("requested coverage $%.0f is below the minimum of $%.0f", coverage, v.cfg.CoverageFloor), true
			}
		case rules.RuleIndustryCeiling:
			reason, fired = v.aboveCeiling(m, coverage, coverageOK)
		}
		if fired {
			return ValidationResult{Status: domain.ValidationRejected, RejectionReasons: []string{reason}}
		}
	}

	if missing := v.supplementalMissing(m); len(missing) > 0 {
		return ValidationResult{Status: domain.ValidationIncomplete, MissingFields: missing}
	}

	return ValidationResult{Status: domain.ValidationComplete}
}

func (v *Validator) blacklistedSender(senderEmail string) (string, bool) {
	at := strings.LastIndex(senderEmail, "@")
	if at < 0 {
		return "", false
	}
	domainName := strings.ToLower(strings.TrimSpace(senderEmail[at+1:]))
	for _, blocked := range v.cfg.SenderBlacklist {
		if domainName == blocked {
			return domainName, true
		}
	}
	return "", false
}

func (v *Validator) outsideAppetite(m fields.Map) (string, bool) {
	if m.Missing("policy_type") {
		return "", false
	}
	policyType := strings.ToLower(strings.TrimSpace(m.Display("policy_type")))
	for _, accepted := range v.cfg.AcceptedPolicyTypes {
		if policyType == accepted {
			return "", false
		}
	}
	return fmt.Sprintf("policy type %q is outside underwriting appetite", policyType), true
}

func (v *Validator) aboveCeiling(m fields.Map, coverage float64, coverageOK bool) (string, bool) {
	if !coverageOK || m.Missing("industry") {
		return "", false
	}
	industry := normalizeIndustry(m.Display("industry"))
	ceiling, ok := v.cfg.CeilingFor(industry)
	if !ok || coverage <= ceiling {
		return "", false
	}
	return fmt.Sprintf("requested coverage $%.0f exceeds the $%.0f ceiling for industry %s", coverage, ceiling, industry), true
}

// requiredMissing gates the rejection rules: the fixed required-field list
// plus a present-but-unparseable coverage amount.
func (v *Validator) requiredMissing(m fields.Map, coverageUnparseable bool) []string {
	var missing []string
	for _, field := range v.cfg.RequiredFields {
		if m.Missing(field) {
			missing = append(missing, field)
		}
	}
	if coverageUnparseable && !contains(missing, "coverage_amount") {
		missing = append(missing, "coverage_amount")
	}
	return missing
}

// supplementalMissing holds the follow-up information requests that only
// apply to otherwise acceptable submissions: extra detail for high-risk
// industries and existing coverage for large accounts.
func (v *Validator) supplementalMissing(m fields.Map) []string {
	var missing []string

	if !m.Missing("industry") && v.cfg.IsHighRisk(normalizeIndustry(m.Display("industry"))) {
		for _, field := range v.cfg.HighRiskExtraFields {
			if m.Missing(field) && !contains(missing, field) {
				missing = append(missing, field)
			}
		}
	}

	if revenue, ok := m.Money("revenue"); ok && revenue > v.cfg.LargeRevenueThreshold {
		if m.Missing("existing_cyber_coverage") && !contains(missing, "existing_cyber_coverage") {
			missing = append(missing, "existing_cyber_coverage")
		}
	}

	return missing
}

func contains(items []string, name string) bool {
	for _, item := range items {
		if item == name {
			return true
		}
	}
	return false
}

// normalizeIndustry maps free-text industry values onto configuration keys:
// lowercase with spaces collapsed to underscores.
func normalizeIndustry(industry string) string {
	industry = strings.ToLower(strings.TrimSpace(industry))
	return strings.ReplaceAll(industry, " ", "_")
}
