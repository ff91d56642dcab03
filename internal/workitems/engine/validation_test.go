package engine

import (
	"reflect"
	"strings"
	"testing"

	"uw_workbench_backend/internal/fields"
	"uw_workbench_backend/internal/workitems/domain"
)

const okSender = "broker@goodbroker.com"

func completeSubmission() fields.Map {
	return fields.Map{
		"insured_name":    fields.String("Acme Logistics"),
		"policy_type":     fields.String("Cyber"),
		"effective_date":  fields.String("2026-10-01"),
		"industry":        fields.String("retail"),
		"coverage_amount": fields.String("$5M"),
	}
}

func TestValidateCompleteSubmission(t *testing.T) {
	v := NewValidator(testValidationConfig())

	result := v.Validate(completeSubmission(), okSender)
	if result.Status != domain.ValidationComplete {
		t.Fatalf("expected complete, got %+v", result)
	}
	if len(result.MissingFields) != 0 || len(result.RejectionReasons) != 0 {
		t.Fatalf("complete verdict must carry no details, got %+v", result)
	}
}

func TestValidateNullRequiredFieldIsIncomplete(t *testing.T) {
	cfg := testValidationConfig()
	cfg.RequiredFields = []string{"insured_name", "policy_type"}
	v := NewValidator(cfg)

	m := fields.Map{
		"insured_name":    fields.Null(),
		"policy_type":     fields.String("Cyber"),
		"coverage_amount": fields.Number(5_000_000),
	}

	result := v.Validate(m, okSender)
	if result.Status != domain.ValidationIncomplete {
		t.Fatalf("expected incomplete, got %+v", result)
	}
	if !reflect.DeepEqual(result.MissingFields, []string{"insured_name"}) {
		t.Fatalf("expected missing [insured_name], got %v", result.MissingFields)
	}
}

func TestValidateMissingDataNeverRejects(t *testing.T) {
	v := NewValidator(testValidationConfig())

	result := v.Validate(fields.Map{}, okSender)
	if result.Status != domain.ValidationIncomplete {
		t.Fatalf("an empty submission is incomplete, not rejected: %+v", result)
	}
	if len(result.RejectionReasons) != 0 {
		t.Fatalf("missing data must never produce rejection reasons, got %v", result.RejectionReasons)
	}
}

func TestValidateIndustryCeilingRejection(t *testing.T) {
	v := NewValidator(testValidationConfig())

	m := completeSubmission()
	m["industry"] = fields.String("healthcare")
	m["coverage_amount"] = fields.Number(30_000_000)
	m["revenue"] = fields.String("$200M")
	m["employee_count"] = fields.Number(900)
	m["data_types"] = fields.String("protected_health_information")

	result := v.Validate(m, okSender)
	if result.Status != domain.ValidationRejected {
		t.Fatalf("expected rejected, got %+v", result)
	}
	if len(result.RejectionReasons) != 1 {
		t.Fatalf("expected one reason, got %v", result.RejectionReasons)
	}
	if !strings.Contains(result.RejectionReasons[0], "25000000") {
		t.Fatalf("reason must mention the $25M ceiling, got %q", result.RejectionReasons[0])
	}
}

func TestValidateCoverageFloorRejection(t *testing.T) {
	v := NewValidator(testValidationConfig())

	m := completeSubmission()
	m["coverage_amount"] = fields.String("$50,000")

	result := v.Validate(m, okSender)
	if result.Status != domain.ValidationRejected {
		t.Fatalf("expected rejected, got %+v", result)
	}
	if !strings.Contains(result.RejectionReasons[0], "below the minimum") {
		t.Fatalf("unexpected reason %q", result.RejectionReasons[0])
	}
}

func TestValidateBlacklistedSender(t *testing.T) {
	v := NewValidator(testValidationConfig())

	result := v.Validate(completeSubmission(), "someone@spam.com")
	if result.Status != domain.ValidationRejected {
		t.Fatalf("expected rejected, got %+v", result)
	}
	if !strings.Contains(result.RejectionReasons[0], "spam.com") {
		t.Fatalf("reason must name the domain, got %q", result.RejectionReasons[0])
	}
}

func TestValidatePolicyOutsideAppetite(t *testing.T) {
	v := NewValidator(testValidationConfig())

	m := completeSubmission()
	m["policy_type"] = fields.String("Commercial Property")

	result := v.Validate(m, okSender)
	if result.Status != domain.ValidationRejected {
		t.Fatalf("expected rejected, got %+v", result)
	}
	if !strings.Contains(result.RejectionReasons[0], "appetite") {
		t.Fatalf("unexpected reason %q", result.RejectionReasons[0])
	}
}

func TestValidateFirstConfiguredRuleWins(t *testing.T) {
	v := NewValidator(testValidationConfig())

	// Trips the blacklist, the appetite rule, and the coverage floor at
	// once; only the first rule in configured order may decide.
	m := completeSubmission()
	m["policy_type"] = fields.String("Commercial Property")
	m["coverage_amount"] = fields.String("$50,000")

	result := v.Validate(m, "someone@test.com")
	if result.Status != domain.ValidationRejected {
		t.Fatalf("expected rejected, got %+v", result)
	}
	if len(result.RejectionReasons) != 1 {
		t.Fatalf("expected a single reason, got %v", result.RejectionReasons)
	}
	if !strings.Contains(result.RejectionReasons[0], "blacklisted") {
		t.Fatalf("first configured rule must win, got %q", result.RejectionReasons[0])
	}
}

func TestValidateIncompleteSubmissionSkipsRejectionRules(t *testing.T) {
	v := NewValidator(testValidationConfig())

	m := fields.Map{
		"policy_type":     fields.String("Cyber"),
		"coverage_amount": fields.Number(5_000_000),
	}

	result := v.Validate(m, "someone@spam.com")
	if result.Status != domain.ValidationIncomplete {
		t.Fatalf("missing required fields must yield incomplete even for a blacklisted sender, got %+v", result)
	}
	if len(result.RejectionReasons) != 0 {
		t.Fatalf("rejection rules must not run on incomplete data, got %v", result.RejectionReasons)
	}
	want := []string{"insured_name", "effective_date", "industry"}
	if !reflect.DeepEqual(result.MissingFields, want) {
		t.Fatalf("expected missing %v, got %v", want, result.MissingFields)
	}
}

func TestValidateUnparseableCoverageFailsClosed(t *testing.T) {
	v := NewValidator(testValidationConfig())

	m := completeSubmission()
	m["coverage_amount"] = fields.String("to be discussed")

	result := v.Validate(m, okSender)
	if result.Status != domain.ValidationIncomplete {
		t.Fatalf("unparseable coverage must be incomplete, not valid or rejected: %+v", result)
	}
	found := false
	for _, field := range result.MissingFields {
		if field == "coverage_amount" {
			found = true
		}
	}
	if !found {
		t.Fatalf("coverage_amount must be flagged for clarification, got %v", result.MissingFields)
	}
}

func TestValidateHighRiskIndustryNeedsExtraDetail(t *testing.T) {
	v := NewValidator(testValidationConfig())

	m := completeSubmission()
	m["industry"] = fields.String("healthcare")

	result := v.Validate(m, okSender)
	if result.Status != domain.ValidationIncomplete {
		t.Fatalf("expected incomplete, got %+v", result)
	}
	want := []string{"revenue", "employee_count", "data_types"}
	if !reflect.DeepEqual(result.MissingFields, want) {
		t.Fatalf("expected missing %v, got %v", want, result.MissingFields)
	}
}

func TestValidateLargeRevenueNeedsExistingCoverage(t *testing.T) {
	v := NewValidator(testValidationConfig())

	m := completeSubmission()
	m["revenue"] = fields.String("$2.5 billion")

	result := v.Validate(m, okSender)
	if result.Status != domain.ValidationIncomplete {
		t.Fatalf("expected incomplete, got %+v", result)
	}
	if !reflect.DeepEqual(result.MissingFields, []string{"existing_cyber_coverage"}) {
		t.Fatalf("expected missing [existing_cyber_coverage], got %v", result.MissingFields)
	}
}

func TestValidateIndustryWithSpacesMatchesConfigKeys(t *testing.T) {
	cfg := testValidationConfig()
	cfg.IndustryCeilingsMillions["financial_services"] = 50
	cfg.IndustryRiskMultipliers["financial_services"] = 1.9
	v := NewValidator(cfg)

	m := completeSubmission()
	m["industry"] = fields.String("Financial Services")
	m["coverage_amount"] = fields.Number(60_000_000)
	m["revenue"] = fields.String("$500M")
	m["employee_count"] = fields.Number(2000)
	m["data_types"] = fields.String("financial_records")

	result := v.Validate(m, okSender)
	if result.Status != domain.ValidationRejected {
		t.Fatalf("free-text industry should hit the configured ceiling, got %+v", result)
	}
}

func TestValidateDeterminism(t *testing.T) {
	v := NewValidator(testValidationConfig())

	m := completeSubmission()
	m["industry"] = fields.String("healthcare")
	first := v.Validate(m, okSender)
	for i := 0; i < 10; i++ {
		if got := v.Validate(m, okSender); !reflect.DeepEqual(got, first) {
			t.Fatalf("validation must be deterministic: %+v vs %+v", got, first)
		}
	}
}
