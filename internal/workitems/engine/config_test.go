package engine

import "uw_workbench_backend/internal/rules"

// Test rule sets mirroring the shipped configuration, built in Go so each
// test can tweak a single knob without parsing YAML.

func testValidationConfig() rules.ValidationConfig {
	return rules.ValidationConfig{
		RequiredFields: []string{"insured_name", "policy_type", "effective_date", "industry"},
		RejectionRuleOrder: []string{
			rules.RuleSenderBlacklist,
			rules.RulePolicyAppetite,
			rules.RuleCoverageFloor,
			rules.RuleIndustryCeiling,
		},
		CoverageFloor: 100_000,
		IndustryCeilingsMillions: map[string]float64{
			"healthcare": 25,
			"technology": 30,
			"other":      10,
		},
		SenderBlacklist:     []string{"spam.com", "test.com"},
		AcceptedPolicyTypes: []string{"cyber", "cyber liability", "technology e&o"},
		IndustryRiskMultipliers: map[string]float64{
			"healthcare": 1.8,
			"technology": 1.6,
			"retail":     1.4,
			"other":      1.0,
		},
		HighRiskExtraFields:     []string{"revenue", "employee_count", "data_types"},
		HighRiskMultiplierFloor: 1.6,
		LargeRevenueThreshold:   1_000_000_000,
	}
}

func testRiskConfig() rules.RiskConfig {
	return rules.RiskConfig{
		Weights: rules.RiskWeights{
			IndustryRisk:             0.25,
			CoverageAmount:           0.20,
			CompanySize:              0.15,
			SecurityPosture:          0.20,
			ComplianceCertifications: 0.10,
			IncidentHistory:          0.10,
		},
		CategoryMix: rules.CategoryMix{
			Technical:   rules.DimensionBlend{Industry: 0.2, CompanySize: 0.2, DataSensitivity: 0.3, SecurityPosture: 0.3},
			Operational: rules.DimensionBlend{Industry: 0.4, CompanySize: 0.4, DataSensitivity: 0.0, SecurityPosture: 0.2},
		},
		NotableFactorThreshold: 5.0,
		PriorityBreakpoints:    rules.PriorityBreakpoints{Moderate: 30, Medium: 55, High: 70, Critical: 85},
		IndustryProfiles: map[string]rules.IndustryProfile{
			"healthcare": {BaseMultiplier: 1.4, DataSensitivity: 0.8, RegulatoryBurden: 0.9, AttackFrequency: 0.7, CommonThreats: []string{"ransomware", "phi_theft"}},
			"technology": {BaseMultiplier: 1.2, DataSensitivity: 0.6, RegulatoryBurden: 0.3, AttackFrequency: 0.9},
			"other":      {BaseMultiplier: 1.0, DataSensitivity: 0.5, RegulatoryBurden: 0.5, AttackFrequency: 0.5},
		},
		SecurityControls: map[string]rules.SecurityControl{
			"multi_factor_authentication": {Effectiveness: 0.85, Category: "technical"},
			"encryption_at_rest":          {Effectiveness: 0.7, Category: "technical"},
			"backup_and_recovery":         {Effectiveness: 0.8, Category: "operational"},
			"incident_response_plan":      {Effectiveness: 0.65, Category: "operational"},
		},
		DataTypeRisks: map[string]float64{
			"protected_health_information":      0.9,
			"payment_card_information":          0.85,
			"personal_identifiable_information": 0.8,
			"marketing_data":                    0.3,
		},
		CompanySizeFactors: map[string]float64{"small": 0.8, "medium": 1.0, "large": 1.3, "enterprise": 1.6},
	}
}

func testAssignmentConfig() rules.AssignmentConfig {
	return rules.AssignmentConfig{
		SeniorCoverageThreshold:   20_000_000,
		StandardCoverageThreshold: 5_000_000,
		HighSensitivityIndustries: []string{"healthcare", "financial_services", "banking", "government"},
		SpecializationBonus:       25,
		LoadPenalty:               40,
		AvailabilityBonus:         15,
		TopN:                      5,
	}
}

func testWorkItemTransitions() map[string][]string {
	return map[string][]string{
		"pending":       {"in_review", "rejected"},
		"in_review":     {"pending_info", "quote_ready", "rejected"},
		"pending_info":  {"in_review"},
		"quote_ready":   {"approved", "rejected", "in_review"},
		"approved":      {"policy_issued"},
		"rejected":      {},
		"policy_issued": {},
	}
}
