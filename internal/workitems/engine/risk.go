package engine

import (
	"fmt"
	"sort"
	"strings"

	"uw_workbench_backend/internal/fields"
	"uw_workbench_backend/internal/rules"
	"uw_workbench_backend/internal/workitems/domain"
)

// RiskAssessment is the output of one scoring run. The same fields always
// produce the same assessment.
type RiskAssessment struct {
	OverallScore    float64             `json:"overallScore"`
	Categories      map[string]float64  `json:"categories"`
	Priority        string              `json:"priority"`
	Factors         []domain.RiskFactor `json:"factors"`
	Recommendations []string            `json:"recommendations"`
	Confidence      float64             `json:"confidence"`
}

// Scorer computes risk assessments from extracted submission fields.
type Scorer struct {
	cfg rules.RiskConfig
}

// NewScorer creates a risk scoring engine from loaded configuration.
func NewScorer(cfg rules.RiskConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// neutralScore is the dimension score used when a signal is absent.
const neutralScore = 50.0

// dimension is one scored aspect of the submission. Flags are named
// contributions surfaced directly to the underwriter; recs are the
// mitigation suggestions the dimension produced.
type dimension struct {
	score float64
	flags []domain.RiskFactor
	recs  []string
}

// Score assesses a submission. Missing signals score neutral rather than
// zero so an empty submission lands mid-range with low confidence instead
// of looking artificially safe. Dimension scores run unclamped; only the
// published overall and category values are clamped to the 0-100 scale.
func (s *Scorer) Score(m fields.Map) RiskAssessment {
	industry := s.assessIndustry(m)
	coverage := s.assessCoverage(m)
	size := s.assessSize(m)
	data := s.assessData(m)
	security := s.assessSecurity(m)
	financial := s.assessFinancial(m)
	compliance := s.assessCompliance(m)
	incidents := s.assessIncidents(m)

	w := s.cfg.Weights
	overall := clamp(industry.score*w.IndustryRisk +
		coverage.score*w.CoverageAmount +
		size.score*w.CompanySize +
		security.score*w.SecurityPosture +
		compliance.score*w.ComplianceCertifications +
		incidents.score*w.IncidentHistory)

	categories := map[string]float64{
		"technical":   clamp(s.blend(s.cfg.CategoryMix.Technical, industry, size, data, security)),
		"operational": clamp(s.blend(s.cfg.CategoryMix.Operational, industry, size, data, security)),
		"financial":   clamp(financial.score),
		"compliance":  clamp(compliance.score),
	}

	weighted := []struct {
		name   string
		dim    dimension
		weight float64
	}{
		{"industry risk", industry, w.IndustryRisk},
		{"coverage amount", coverage, w.CoverageAmount},
		{"company size", size, w.CompanySize},
		{"security posture", security, w.SecurityPosture},
		{"compliance exposure", compliance, w.ComplianceCertifications},
		{"incident history", incidents, w.IncidentHistory},
	}

	var factors []domain.RiskFactor
	for _, wd := range weighted {
		impact := (wd.dim.score - neutralScore) * wd.weight
		if impact > s.cfg.NotableFactorThreshold || impact < -s.cfg.NotableFactorThreshold {
			factors = append(factors, domain.RiskFactor{
				Name:       wd.name,
				Impact:     impact,
				Mitigation: firstOrEmpty(wd.dim.recs),
			})
		}
		for _, flag := range wd.dim.flags {
			factors = append(factors, flag)
		}
	}
	for _, flag := range data.flags {
		factors = append(factors, flag)
	}

	recs := dedupe(collectRecs(industry, coverage, size, data, security, financial, compliance, incidents))
	priority := s.priorityFor(overall)
	if priority == domain.PriorityCritical {
		recs = append(recs, "escalate to senior underwriting review before quoting")
	}

	return RiskAssessment{
		OverallScore:    overall,
		Categories:      categories,
		Priority:        priority,
		Factors:         factors,
		Recommendations: recs,
		Confidence:      s.confidence(m),
	}
}

// PriorityFor exposes the breakpoint mapping for callers that re-derive
// priority from a stored score.
func (s *Scorer) PriorityFor(score float64) string {
	return s.priorityFor(score)
}

func (s *Scorer) priorityFor(score float64) string {
	bp := s.cfg.PriorityBreakpoints
	switch {
	case score >= bp.Critical:
		return domain.PriorityCritical
	case score >= bp.High:
		return domain.PriorityHigh
	case score >= bp.Medium:
		return domain.PriorityMedium
	case score >= bp.Moderate:
		return domain.PriorityModerate
	default:
		return domain.PriorityLow
	}
}

func (s *Scorer) blend(b rules.DimensionBlend, industry, size, data, security dimension) float64 {
	return industry.score*b.Industry +
		size.score*b.CompanySize +
		data.score*b.DataSensitivity +
		security.score*b.SecurityPosture
}

func (s *Scorer) assessIndustry(m fields.Map) dimension {
	if m.Missing("industry") {
		return dimension{score: neutralScore}
	}

	industry := normalizeIndustry(m.Display("industry"))
	profile, ok := s.cfg.ProfileFor(industry)
	if !ok {
		return dimension{score: neutralScore}
	}
	score := profile.BaseMultiplier*20 +
		profile.DataSensitivity*15 +
		profile.RegulatoryBurden*10 +
		profile.AttackFrequency*15

	d := dimension{score: score}
	if len(profile.CommonThreats) > 0 {
		d.recs = append(d.recs, fmt.Sprintf("review exposure to common %s threats: %s", industry, strings.Join(profile.CommonThreats, ", ")))
	}
	return d
}

func (s *Scorer) assessCoverage(m fields.Map) dimension {
	amount, ok := m.Money("coverage_amount")
	if !ok {
		return dimension{score: neutralScore}
	}

	var score float64
	switch {
	case amount >= 50_000_000:
		score = 85
	case amount >= 20_000_000:
		score = 75
	case amount >= 10_000_000:
		score = 65
	case amount >= 5_000_000:
		score = 55
	case amount >= 1_000_000:
		score = 45
	default:
		score = 35
	}
	return dimension{score: score}
}

func (s *Scorer) assessSize(m fields.Map) dimension {
	class := "medium"
	if employees, ok := m.Count("employee_count"); ok {
		switch {
		case employees < 50:
			class = "small"
		case employees < 500:
			class = "medium"
		case employees < 5000:
			class = "large"
		default:
			class = "enterprise"
		}
	}

	factor, ok := s.cfg.CompanySizeFactors[class]
	if !ok {
		factor = 1.0
	}
	d := dimension{score: neutralScore * factor}

	if revenue, ok := m.Money("revenue"); ok && revenue > 1_000_000_000 {
		d.score += 10
		d.flags = append(d.flags, domain.RiskFactor{
			Name:   "high-value target",
			Impact: 10,
		})
	}
	return d
}

func (s *Scorer) assessData(m fields.Map) dimension {
	types := m.List("data_types")
	if len(types) == 0 {
		return dimension{score: neutralScore}
	}

	var sum float64
	matched := 0
	for _, dt := range types {
		if weight, ok := s.cfg.DataTypeRisks[normalizeToken(dt)]; ok {
			sum += weight
			matched++
		}
	}
	if matched == 0 {
		return dimension{score: neutralScore}
	}

	avg := sum / float64(matched)
	d := dimension{score: neutralScore + avg*60}
	if avg >= 0.8 {
		d.recs = append(d.recs, "verify encryption and access controls for highly sensitive data holdings")
	}
	return d
}

func (s *Scorer) assessSecurity(m fields.Map) dimension {
	const base = 70.0

	measures := m.List("security_measures")
	if len(measures) == 0 {
		return dimension{
			score: base + 20,
			flags: []domain.RiskFactor{{
				Name:       "unknown security posture",
				Impact:     20,
				Mitigation: "request a completed security questionnaire",
			}},
			recs: []string{"request a completed security questionnaire"},
		}
	}

	var sum float64
	matched := 0
	unrecognized := false
	matchedControls := map[string]bool{}
	for _, measure := range measures {
		key := normalizeToken(measure)
		if control, ok := s.cfg.SecurityControls[key]; ok {
			sum += control.Effectiveness
			matched++
			matchedControls[key] = true
		} else {
			unrecognized = true
		}
	}

	score := base
	if matched > 0 {
		score -= (sum / float64(matched)) * 40
		if score < 20 {
			score = 20
		}
	}
	if unrecognized {
		score += 10
	}

	d := dimension{score: score}
	if !matchedControls["multi_factor_authentication"] {
		d.recs = append(d.recs, "require multi-factor authentication across remote access and email")
	}
	if !matchedControls["backup_and_recovery"] {
		d.recs = append(d.recs, "confirm tested, offline backup and recovery procedures")
	}
	return d
}

func (s *Scorer) assessFinancial(m fields.Map) dimension {
	score := neutralScore
	d := dimension{}

	if years, ok := m.Count("years_in_business"); ok {
		switch {
		case years < 2:
			score += 15
			d.flags = append(d.flags, domain.RiskFactor{Name: "newly established business", Impact: 15})
		case years > 10:
			score -= 10
		}
	}

	switch creditBand(m.Display("credit_rating")) {
	case creditStrong:
		score -= 15
	case creditWeak:
		score += 20
		d.recs = append(d.recs, "obtain recent financial statements before binding")
	}

	d.score = score
	return d
}

type credit int

const (
	creditUnknown credit = iota
	creditStrong
	creditNeutral
	creditWeak
)

func creditBand(rating string) credit {
	rating = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(rating), " ", ""))
	switch rating {
	case "":
		return creditUnknown
	case "AAA", "AA", "A":
		return creditStrong
	case "BBB", "BB":
		return creditNeutral
	default:
		return creditWeak
	}
}

func (s *Scorer) assessCompliance(m fields.Map) dimension {
	score := neutralScore
	d := dimension{}

	industry := normalizeIndustry(m.Display("industry"))
	switch industry {
	case "healthcare":
		score += 25
		d.recs = append(d.recs, "confirm HIPAA compliance program and breach notification procedures")
	case "financial_services", "banking":
		score += 30
		d.recs = append(d.recs, "confirm regulatory examination history and GLBA safeguards")
	}

	for _, dt := range m.List("data_types") {
		switch normalizeToken(dt) {
		case "payment_card_information":
			score += 20
			d.recs = append(d.recs, "verify current PCI DSS attestation of compliance")
		case "personal_identifiable_information":
			score += 15
		}
	}

	certs := m.List("compliance_certifications")
	if reduction := float64(len(certs)) * 5; reduction > 0 {
		if reduction > 20 {
			reduction = 20
		}
		score -= reduction
	}

	d.score = score
	return d
}

func (s *Scorer) assessIncidents(m fields.Map) dimension {
	score := neutralScore
	d := dimension{}

	if claims, ok := m.Count("previous_claims"); ok && claims > 0 {
		add := float64(claims) * 15
		if add > 40 {
			add = 40
		}
		score += add
		d.flags = append(d.flags, domain.RiskFactor{
			Name:       "prior cyber claims",
			Impact:     add,
			Mitigation: "collect loss runs and remediation evidence for each claim",
		})
	}

	if incidents, ok := m.Count("security_incidents"); ok && incidents > 0 {
		add := float64(incidents) * 10
		if add > 30 {
			add = 30
		}
		score += add
		d.recs = append(d.recs, "review incident post-mortems and confirmed remediation")
	}

	d.score = score
	return d
}

// confidence reports how much of the assessment rests on real signal:
// a completeness base over the key rating fields plus extra credit for
// recognized security controls.
func (s *Scorer) confidence(m fields.Map) float64 {
	keyFields := []string{"industry", "employee_count", "revenue", "data_types", "security_measures"}
	present := 0
	for _, field := range keyFields {
		if !m.Missing(field) {
			present++
		}
	}
	completeness := float64(present) / float64(len(keyFields))

	detail := 0.0
	for _, measure := range m.List("security_measures") {
		if _, ok := s.cfg.SecurityControls[normalizeToken(measure)]; ok {
			detail += 5
		}
	}
	if detail > 20 {
		detail = 20
	}

	return clamp(30 + completeness*40 + detail)
}

func clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// normalizeToken maps a free-text list entry onto a configuration key.
func normalizeToken(token string) string {
	token = strings.ToLower(strings.TrimSpace(token))
	token = strings.ReplaceAll(token, "-", " ")
	return strings.ReplaceAll(token, " ", "_")
}

func collectRecs(dims ...dimension) []string {
	var recs []string
	for _, d := range dims {
		recs = append(recs, d.recs...)
	}
	return recs
}

func dedupe(items []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	sort.Strings(out)
	return out
}

func firstOrEmpty(items []string) string {
	if len(items) == 0 {
		return ""
	}
	return items[0]
}
