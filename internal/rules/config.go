// Package rules holds the declarative business configuration: required
// fields, rejection rules, risk weights, industry profiles, assignment
// thresholds, workflow transition tables, and notification templates.
// The configuration is loaded once at startup, validated, and injected
// immutably into each engine constructor.
package rules

// Config is the root of the business rule data.
type Config struct {
	Validation  ValidationConfig  `yaml:"validation"`
	Risk        RiskConfig        `yaml:"risk"`
	Assignment  AssignmentConfig  `yaml:"assignment"`
	Transitions TransitionsConfig `yaml:"transitions"`
	Templates   TemplatesConfig   `yaml:"templates"`
}

// ValidationConfig drives the ValidationEngine.
type ValidationConfig struct {
	// RequiredFields must all be present and non-empty before any
	// rejection rule is evaluated.
	RequiredFields []string `yaml:"required_fields"`
	// RejectionRuleOrder declares the deterministic evaluation order of the
	// hard-rejection rules; first match wins.
	RejectionRuleOrder []string `yaml:"rejection_rule_order"`
	// CoverageFloor is the absolute minimum coverage amount in dollars.
	CoverageFloor float64 `yaml:"coverage_floor"`
	// IndustryCeilingsMillions maps industry to its maximum coverage in
	// millions of dollars.
	IndustryCeilingsMillions map[string]float64 `yaml:"industry_ceilings_millions"`
	// SenderBlacklist lists rejected sender domains.
	SenderBlacklist []string `yaml:"sender_blacklist"`
	// AcceptedPolicyTypes is the underwriting appetite; empty means all.
	AcceptedPolicyTypes []string `yaml:"accepted_policy_types"`
	// IndustryRiskMultipliers scale inherent industry risk; 1.0 is neutral.
	IndustryRiskMultipliers map[string]float64 `yaml:"industry_risk_multipliers"`
	// HighRiskExtraFields are additionally required for industries whose
	// risk multiplier meets HighRiskMultiplierFloor.
	HighRiskExtraFields     []string `yaml:"high_risk_extra_fields"`
	HighRiskMultiplierFloor float64  `yaml:"high_risk_multiplier_floor"`
	// LargeRevenueThreshold is the revenue above which existing cyber
	// coverage details are required.
	LargeRevenueThreshold float64 `yaml:"large_revenue_threshold"`
}

// Known rejection rule names, in their canonical order.
const (
	RuleCoverageFloor   = "coverage_floor"
	RuleIndustryCeiling = "industry_ceiling"
	RuleSenderBlacklist = "sender_blacklist"
	RulePolicyAppetite  = "policy_appetite"
)

// CeilingFor returns the per-industry coverage ceiling in dollars.
// Unknown industries fall back to the "other" entry.
func (v ValidationConfig) CeilingFor(industry string) (float64, bool) {
	if ceiling, ok := v.IndustryCeilingsMillions[industry]; ok {
		return ceiling * 1_000_000, true
	}
	if ceiling, ok := v.IndustryCeilingsMillions["other"]; ok {
		return ceiling * 1_000_000, true
	}
	return 0, false
}

// MultiplierFor returns the industry risk multiplier, defaulting to 1.0.
func (v ValidationConfig) MultiplierFor(industry string) float64 {
	if multiplier, ok := v.IndustryRiskMultipliers[industry]; ok {
		return multiplier
	}
	return 1.0
}

// IsHighRisk reports whether the industry requires extra submission detail.
func (v ValidationConfig) IsHighRisk(industry string) bool {
	return v.MultiplierFor(industry) >= v.HighRiskMultiplierFloor
}

// RiskConfig drives the RiskScoringEngine.
type RiskConfig struct {
	Weights                RiskWeights                `yaml:"weights"`
	CategoryMix            CategoryMix                `yaml:"category_mix"`
	NotableFactorThreshold float64                    `yaml:"notable_factor_threshold"`
	PriorityBreakpoints    PriorityBreakpoints        `yaml:"priority_breakpoints"`
	IndustryProfiles       map[string]IndustryProfile `yaml:"industry_profiles"`
	SecurityControls       map[string]SecurityControl `yaml:"security_controls"`
	DataTypeRisks          map[string]float64         `yaml:"data_type_risks"`
	CompanySizeFactors     map[string]float64         `yaml:"company_size_factors"`
}

// RiskWeights are the top-level dimension weights; they must sum to 1.0.
type RiskWeights struct {
	IndustryRisk             float64 `yaml:"industry_risk"`
	CoverageAmount           float64 `yaml:"coverage_amount"`
	CompanySize              float64 `yaml:"company_size"`
	SecurityPosture          float64 `yaml:"security_posture"`
	ComplianceCertifications float64 `yaml:"compliance_certifications"`
	IncidentHistory          float64 `yaml:"incident_history"`
}

// Sum returns the total of all top-level weights.
func (w RiskWeights) Sum() float64 {
	return w.IndustryRisk + w.CoverageAmount + w.CompanySize +
		w.SecurityPosture + w.ComplianceCertifications + w.IncidentHistory
}

// CategoryMix blends dimension scores into the technical and operational
// category scores. Financial and compliance categories use their dimension
// scores directly. Each mix must sum to 1.0.
type CategoryMix struct {
	Technical   DimensionBlend `yaml:"technical"`
	Operational DimensionBlend `yaml:"operational"`
}

// DimensionBlend weights the contributing dimensions of one category.
type DimensionBlend struct {
	Industry        float64 `yaml:"industry"`
	CompanySize     float64 `yaml:"company_size"`
	DataSensitivity float64 `yaml:"data_sensitivity"`
	SecurityPosture float64 `yaml:"security_posture"`
}

// Sum returns the total of the blend weights.
func (b DimensionBlend) Sum() float64 {
	return b.Industry + b.CompanySize + b.DataSensitivity + b.SecurityPosture
}

// PriorityBreakpoints are the ascending score thresholds that map the
// overall risk score to a priority band. Scores below Moderate are low.
type PriorityBreakpoints struct {
	Moderate float64 `yaml:"moderate"`
	Medium   float64 `yaml:"medium"`
	High     float64 `yaml:"high"`
	Critical float64 `yaml:"critical"`
}

// IndustryProfile describes the inherent cyber risk of one industry.
type IndustryProfile struct {
	// BaseMultiplier scales the industry's inherent risk; 1.0 is neutral.
	BaseMultiplier float64 `yaml:"base_multiplier"`
	// DataSensitivity, RegulatoryBurden, and AttackFrequency are 0-100.
	DataSensitivity  float64  `yaml:"data_sensitivity"`
	RegulatoryBurden float64  `yaml:"regulatory_burden"`
	AttackFrequency  float64  `yaml:"attack_frequency"`
	CommonThreats    []string `yaml:"common_threats"`
}

// ProfileFor returns the industry profile, falling back to "other".
func (r RiskConfig) ProfileFor(industry string) (IndustryProfile, bool) {
	if profile, ok := r.IndustryProfiles[industry]; ok {
		return profile, true
	}
	profile, ok := r.IndustryProfiles["other"]
	return profile, ok
}

// SecurityControl describes one recognized security control.
type SecurityControl struct {
	// Effectiveness is the control's risk reduction strength in [0,1].
	Effectiveness float64 `yaml:"effectiveness"`
	// Category tags the control for factor reporting.
	Category string `yaml:"category"`
}

// AssignmentConfig drives the AssignmentEngine.
type AssignmentConfig struct {
	// SeniorCoverageThreshold: coverage at or above this requires senior tier.
	SeniorCoverageThreshold float64 `yaml:"senior_coverage_threshold"`
	// StandardCoverageThreshold: coverage at or above this requires at
	// least standard tier.
	StandardCoverageThreshold float64 `yaml:"standard_coverage_threshold"`
	// HighSensitivityIndustries always require senior tier regardless of
	// coverage.
	HighSensitivityIndustries []string `yaml:"high_sensitivity_industries"`
	// Scoring weights among eligible candidates.
	SpecializationBonus float64 `yaml:"specialization_bonus"`
	LoadPenalty         float64 `yaml:"load_penalty"`
	AvailabilityBonus   float64 `yaml:"availability_bonus"`
	// TopN bounds the recommendation list length.
	TopN int `yaml:"top_n"`
}

// IsHighSensitivity reports whether the industry always requires senior tier.
func (a AssignmentConfig) IsHighSensitivity(industry string) bool {
	for _, candidate := range a.HighSensitivityIndustries {
		if candidate == industry {
			return true
		}
	}
	return false
}

// TransitionsConfig holds the declarative successor tables for both state
// machines: the work-item machine governs underwriting work, the submission
// machine governs the envelope record.
type TransitionsConfig struct {
	WorkItem   map[string][]string `yaml:"work_item"`
	Submission map[string][]string `yaml:"submission"`
}

// TemplatesConfig holds the notification message templates.
type TemplatesConfig struct {
	Assignment  MessageTemplate `yaml:"assignment"`
	Rejection   MessageTemplate `yaml:"rejection"`
	InfoRequest MessageTemplate `yaml:"info_request"`
}

// MessageTemplate is one notification's subject and body in Go
// text/template syntax.
type MessageTemplate struct {
	Subject string `yaml:"subject"`
	Body    string `yaml:"body"`
}
