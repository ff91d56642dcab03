package rules

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig marks configuration that fails structural validation.
// Callers treat it as fatal at startup; weights are never renormalized.
var ErrInvalidConfig = errors.New("invalid business configuration")

const weightTolerance = 1e-9

// Load reads, parses, and validates the business configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read business config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if err := c.Validation.validate(); err != nil {
		return err
	}
	if err := c.Risk.validate(); err != nil {
		return err
	}
	if err := c.Assignment.validate(); err != nil {
		return err
	}
	if err := c.Transitions.validate(); err != nil {
		return err
	}
	return nil
}

func (v ValidationConfig) validate() error {
	if len(v.RequiredFields) == 0 {
		return fmt.Errorf("%w: validation.required_fields is empty", ErrInvalidConfig)
	}
	if v.CoverageFloor <= 0 {
		return fmt.Errorf("%w: validation.coverage_floor must be positive", ErrInvalidConfig)
	}
	if len(v.IndustryCeilingsMillions) == 0 {
		return fmt.Errorf("%w: validation.industry_ceilings_millions is empty", ErrInvalidConfig)
	}
	if _, ok := v.IndustryCeilingsMillions["other"]; !ok {
		return fmt.Errorf("%w: validation.industry_ceilings_millions needs an %q fallback", ErrInvalidConfig, "other")
	}
	for industry, ceiling := range v.IndustryCeilingsMillions {
		if ceiling <= 0 {
			return fmt.Errorf("%w: ceiling for %s must be positive", ErrInvalidConfig, industry)
		}
	}

	known := map[string]bool{
		RuleCoverageFloor:   true,
		RuleIndustryCeiling: true,
		RuleSenderBlacklist: true,
		RulePolicyAppetite:  true,
	}
	if len(v.RejectionRuleOrder) == 0 {
		return fmt.Errorf("%w: validation.rejection_rule_order is empty", ErrInvalidConfig)
	}
	seen := map[string]bool{}
	for _, name := range v.RejectionRuleOrder {
		if !known[name] {
			return fmt.Errorf("%w: unknown rejection rule %q", ErrInvalidConfig, name)
		}
		if seen[name] {
			return fmt.Errorf("%w: duplicate rejection rule %q", ErrInvalidConfig, name)
		}
		seen[name] = true
	}
	return nil
}

func (r RiskConfig) validate() error {
	if sum := r.Weights.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: risk.weights must sum to 1.0, got %.12f", ErrInvalidConfig, sum)
	}
	if sum := r.CategoryMix.Technical.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: risk.category_mix.technical must sum to 1.0, got %.12f", ErrInvalidConfig, sum)
	}
	if sum := r.CategoryMix.Operational.Sum(); math.Abs(sum-1.0) > weightTolerance {
		return fmt.Errorf("%w: risk.category_mix.operational must sum to 1.0, got %.12f", ErrInvalidConfig, sum)
	}
	if r.NotableFactorThreshold < 0 {
		return fmt.Errorf("%w: risk.notable_factor_threshold must not be negative", ErrInvalidConfig)
	}

	bp := r.PriorityBreakpoints
	if !(bp.Moderate < bp.Medium && bp.Medium < bp.High && bp.High < bp.Critical) {
		return fmt.Errorf("%w: risk.priority_breakpoints must be strictly ascending", ErrInvalidConfig)
	}

	if len(r.IndustryProfiles) == 0 {
		return fmt.Errorf("%w: risk.industry_profiles is empty", ErrInvalidConfig)
	}
	if _, ok := r.IndustryProfiles["other"]; !ok {
		return fmt.Errorf("%w: risk.industry_profiles needs an %q fallback", ErrInvalidConfig, "other")
	}
	if len(r.CompanySizeFactors) == 0 {
		return fmt.Errorf("%w: risk.company_size_factors is empty", ErrInvalidConfig)
	}
	return nil
}

func (a AssignmentConfig) validate() error {
	if a.StandardCoverageThreshold <= 0 {
		return fmt.Errorf("%w: assignment.standard_coverage_threshold must be positive", ErrInvalidConfig)
	}
	if a.SeniorCoverageThreshold <= a.StandardCoverageThreshold {
		return fmt.Errorf("%w: assignment.senior_coverage_threshold must exceed the standard threshold", ErrInvalidConfig)
	}
	if a.TopN <= 0 {
		return fmt.Errorf("%w: assignment.top_n must be positive", ErrInvalidConfig)
	}
	return nil
}

func (t TransitionsConfig) validate() error {
	if len(t.WorkItem) == 0 {
		return fmt.Errorf("%w: transitions.work_item is empty", ErrInvalidConfig)
	}
	if len(t.Submission) == 0 {
		return fmt.Errorf("%w: transitions.submission is empty", ErrInvalidConfig)
	}
	// Every listed successor must itself be a known state.
	for from, successors := range t.WorkItem {
		for _, to := range successors {
			if _, ok := t.WorkItem[to]; !ok {
				return fmt.Errorf("%w: transitions.work_item: %s lists unknown state %s", ErrInvalidConfig, from, to)
			}
		}
	}
	for from, successors := range t.Submission {
		for _, to := range successors {
			if _, ok := t.Submission[to]; !ok {
				return fmt.Errorf("%w: transitions.submission: %s lists unknown state %s", ErrInvalidConfig, from, to)
			}
		}
	}
	return nil
}
