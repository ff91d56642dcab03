package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"uw_workbench_backend/internal/events"
	"uw_workbench_backend/internal/fields"
	"uw_workbench_backend/internal/rules"
	uwdomain "uw_workbench_backend/internal/underwriters/domain"
	uwrepo "uw_workbench_backend/internal/underwriters/repository"
	"uw_workbench_backend/internal/workitems/domain"
	"uw_workbench_backend/internal/workitems/repository"
	"uw_workbench_backend/platform/apperr"
	"uw_workbench_backend/platform/logger"
)

type fakeRepo struct {
	items       map[uuid.UUID]domain.WorkItem
	history     map[uuid.UUID][]domain.HistoryEntry
	assessments map[uuid.UUID][]domain.RiskAssessment
	// forceStaleVersion makes every guarded write lose its race once.
	forceStaleVersion bool
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		items:       map[uuid.UUID]domain.WorkItem{},
		history:     map[uuid.UUID][]domain.HistoryEntry{},
		assessments: map[uuid.UUID][]domain.RiskAssessment{},
	}
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.WorkItem, error) {
	item, ok := f.items[id]
	if !ok {
		return domain.WorkItem{}, apperr.NotFound("work item not found")
	}
	return item, nil
}

func (f *fakeRepo) List(_ context.Context, _ repository.ListParams) ([]domain.WorkItem, int, error) {
	items := make([]domain.WorkItem, 0, len(f.items))
	for _, item := range f.items {
		items = append(items, item)
	}
	return items, len(items), nil
}

func (f *fakeRepo) History(_ context.Context, id uuid.UUID) ([]domain.HistoryEntry, error) {
	return f.history[id], nil
}

func (f *fakeRepo) Assessments(_ context.Context, id uuid.UUID) ([]domain.RiskAssessment, error) {
	return f.assessments[id], nil
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateParams) (domain.WorkItem, error) {
	item := domain.WorkItem{
		ID:               uuid.New(),
		SubmissionID:     params.SubmissionID,
		SubmissionRef:    params.SubmissionRef,
		InsuredName:      params.InsuredName,
		Industry:         params.Industry,
		PolicyType:       params.PolicyType,
		CoverageAmount:   params.CoverageAmount,
		ExtractedFields:  params.ExtractedFields,
		Status:           params.Status,
		Priority:         params.Priority,
		RiskScore:        params.RiskScore,
		ValidationStatus: params.ValidationStatus,
		MissingFields:    params.MissingFields,
		RejectionReasons: params.RejectionReasons,
		Version:          1,
	}
	f.items[item.ID] = item
	f.appendHistory(item.ID, domain.HistoryCreated, "", params.Status, params.Actor, "")
	return item, nil
}

func (f *fakeRepo) Transition(_ context.Context, params repository.TransitionParams) (domain.WorkItem, bool, error) {
	item, ok := f.items[params.ID]
	if !ok || item.Version != params.Version || f.forceStaleVersion {
		f.forceStaleVersion = false
		return domain.WorkItem{}, false, nil
	}
	item.Status = params.ToStatus
	item.Version++
	f.items[params.ID] = item
	f.appendHistory(params.ID, domain.HistoryStatusChanged, params.FromStatus, params.ToStatus, params.Actor, params.Reason)
	return item, true, nil
}

func (f *fakeRepo) Assign(_ context.Context, params repository.AssignParams) (domain.WorkItem, bool, error) {
	item, ok := f.items[params.ID]
	if !ok || item.Version != params.Version || f.forceStaleVersion {
		f.forceStaleVersion = false
		return domain.WorkItem{}, false, nil
	}
	uw := params.UnderwriterID
	item.AssignedUnderwriterID = &uw
	item.Version++
	f.items[params.ID] = item
	f.appendHistory(params.ID, domain.HistoryAssigned, "", "", params.Actor, "assigned to "+uw)
	return item, true, nil
}

func (f *fakeRepo) AddAssessment(_ context.Context, params repository.AssessmentParams) (domain.RiskAssessment, error) {
	item, ok := f.items[params.WorkItemID]
	if !ok {
		return domain.RiskAssessment{}, apperr.NotFound("work item not found")
	}
	score := params.OverallScore
	item.RiskScore = &score
	item.Priority = params.Priority
	f.items[params.WorkItemID] = item

	a := domain.RiskAssessment{
		ID:              uuid.New(),
		WorkItemID:      params.WorkItemID,
		OverallScore:    params.OverallScore,
		Categories:      params.Categories,
		Priority:        params.Priority,
		Factors:         params.Factors,
		Recommendations: params.Recommendations,
		Confidence:      params.Confidence,
	}
	f.assessments[params.WorkItemID] = append(f.assessments[params.WorkItemID], a)
	f.appendHistory(params.WorkItemID, domain.HistoryRiskAssessed, "", "", params.Actor, "")
	return a, nil
}

func (f *fakeRepo) AddComment(_ context.Context, id uuid.UUID, actor, text string) error {
	if _, ok := f.items[id]; !ok {
		return apperr.NotFound("work item not found")
	}
	f.appendHistory(id, domain.HistoryCommented, "", "", actor, text)
	return nil
}

func (f *fakeRepo) appendHistory(id uuid.UUID, action, from, to, actor, reason string) {
	f.history[id] = append(f.history[id], domain.HistoryEntry{
		WorkItemID: id,
		Seq:        len(f.history[id]) + 1,
		Action:     action,
		FromStatus: from,
		ToStatus:   to,
		Actor:      actor,
		Reason:     reason,
	})
}

type fakeUWRepo struct {
	underwriters map[string]uwdomain.Underwriter
	claims       int
	releases     int
}

func newFakeUWRepo(uws ...uwdomain.Underwriter) *fakeUWRepo {
	f := &fakeUWRepo{underwriters: map[string]uwdomain.Underwriter{}}
	for _, uw := range uws {
		f.underwriters[uw.ID] = uw
	}
	return f
}

func (f *fakeUWRepo) GetByID(_ context.Context, id string) (uwdomain.Underwriter, error) {
	uw, ok := f.underwriters[id]
	if !ok {
		return uwdomain.Underwriter{}, apperr.NotFound("underwriter not found")
	}
	return uw, nil
}

func (f *fakeUWRepo) List(_ context.Context) ([]uwdomain.Underwriter, error) {
	return f.all(), nil
}

func (f *fakeUWRepo) ListAvailable(_ context.Context) ([]uwdomain.Underwriter, error) {
	var available []uwdomain.Underwriter
	for _, uw := range f.all() {
		if uw.IsAvailable {
			available = append(available, uw)
		}
	}
	return available, nil
}

func (f *fakeUWRepo) all() []uwdomain.Underwriter {
	items := make([]uwdomain.Underwriter, 0, len(f.underwriters))
	for _, uw := range f.underwriters {
		items = append(items, uw)
	}
	return items
}

func (f *fakeUWRepo) Create(_ context.Context, params uwrepo.CreateParams) (uwdomain.Underwriter, error) {
	uw := uwdomain.Underwriter{
		ID: params.ID, Name: params.Name, Email: params.Email,
		Tier: params.Tier, Specializations: params.Specializations,
		MaxCapacity: params.MaxCapacity, IsAvailable: true,
	}
	f.underwriters[uw.ID] = uw
	return uw, nil
}

func (f *fakeUWRepo) SetAvailability(_ context.Context, id string, available bool) (uwdomain.Underwriter, error) {
	uw, ok := f.underwriters[id]
	if !ok {
		return uwdomain.Underwriter{}, apperr.NotFound("underwriter not found")
	}
	uw.IsAvailable = available
	f.underwriters[id] = uw
	return uw, nil
}

func (f *fakeUWRepo) ClaimCapacity(_ context.Context, id string) (bool, error) {
	uw, ok := f.underwriters[id]
	if !ok || uw.AtCapacity() {
		return false, nil
	}
	uw.CurrentWorkload++
	f.underwriters[id] = uw
	f.claims++
	return true, nil
}

func (f *fakeUWRepo) ReleaseCapacity(_ context.Context, id string) error {
	uw, ok := f.underwriters[id]
	if !ok {
		return apperr.NotFound("underwriter not found")
	}
	if uw.CurrentWorkload > 0 {
		uw.CurrentWorkload--
	}
	f.underwriters[id] = uw
	f.releases++
	return nil
}

func testConfig() *rules.Config {
	return &rules.Config{
		Validation: rules.ValidationConfig{
			RequiredFields:           []string{"insured_name", "policy_type"},
			RejectionRuleOrder:       []string{rules.RuleCoverageFloor},
			CoverageFloor:            100_000,
			IndustryCeilingsMillions: map[string]float64{"other": 10},
		},
		Risk: rules.RiskConfig{
			Weights: rules.RiskWeights{
				IndustryRisk: 0.25, CoverageAmount: 0.20, CompanySize: 0.15,
				SecurityPosture: 0.20, ComplianceCertifications: 0.10, IncidentHistory: 0.10,
			},
			CategoryMix: rules.CategoryMix{
				Technical:   rules.DimensionBlend{Industry: 0.2, CompanySize: 0.2, DataSensitivity: 0.3, SecurityPosture: 0.3},
				Operational: rules.DimensionBlend{Industry: 0.4, CompanySize: 0.4, SecurityPosture: 0.2},
			},
			NotableFactorThreshold: 5,
			PriorityBreakpoints:    rules.PriorityBreakpoints{Moderate: 30, Medium: 55, High: 70, Critical: 85},
			IndustryProfiles: map[string]rules.IndustryProfile{
				"other": {BaseMultiplier: 1.0, DataSensitivity: 0.5, RegulatoryBurden: 0.5, AttackFrequency: 0.5},
			},
			CompanySizeFactors: map[string]float64{"small": 0.8, "medium": 1.0, "large": 1.3, "enterprise": 1.6},
		},
		Assignment: rules.AssignmentConfig{
			SeniorCoverageThreshold:   20_000_000,
			StandardCoverageThreshold: 5_000_000,
			HighSensitivityIndustries: []string{"healthcare"},
			SpecializationBonus:       25, LoadPenalty: 40, AvailabilityBonus: 15,
			TopN: 5,
		},
		Transitions: rules.TransitionsConfig{
			WorkItem: map[string][]string{
				"pending":       {"in_review", "rejected"},
				"in_review":     {"pending_info", "quote_ready", "rejected"},
				"pending_info":  {"in_review"},
				"quote_ready":   {"approved", "rejected", "in_review"},
				"approved":      {"policy_issued"},
				"rejected":      {},
				"policy_issued": {},
			},
		},
	}
}

func newTestService(t *testing.T, repo repository.Repository, uwRepo uwrepo.Repository) *Service {
	t.Helper()
	log := logger.New("test")
	bus := events.NewInMemoryBus(log)
	return New(repo, uwRepo, testConfig(), bus, log)
}

func pendingItem(t *testing.T, svc *Service, coverage float64, industry string) domain.WorkItem {
	t.Helper()
	m := fields.Map{
		"insured_name": fields.String("Acme Corp"),
		"policy_type":  fields.String("cyber"),
		"industry":     fields.String(industry),
	}
	if coverage > 0 {
		m["coverage_amount"] = fields.Number(coverage)
	}
	item, err := svc.Create(context.Background(), CreateInput{
		SubmissionID:    1,
		SubmissionRef:   uuid.New(),
		ExtractedFields: m,
		Validation:      svc.ValidateFields(m, "broker@example.com"),
		Actor:           SystemActor,
	})
	if err != nil {
		t.Fatalf("create work item: %v", err)
	}
	return item
}

func TestTransitionHappyPathRecordsHistory(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, newFakeUWRepo())
	item := pendingItem(t, svc, 2_000_000, "retail")

	updated, err := svc.Transition(context.Background(), item.ID, domain.StatusInReview, "ana", "")
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if updated.Status != domain.StatusInReview {
		t.Fatalf("expected in_review, got %q", updated.Status)
	}
	if updated.Version != item.Version+1 {
		t.Fatalf("version must advance: %d -> %d", item.Version, updated.Version)
	}

	history := repo.history[item.ID]
	if len(history) != 2 {
		t.Fatalf("expected creation + transition entries, got %d", len(history))
	}
	last := history[1]
	if last.Action != domain.HistoryStatusChanged || last.FromStatus != domain.StatusPending ||
		last.ToStatus != domain.StatusInReview || last.Actor != "ana" {
		t.Fatalf("unexpected history entry %+v", last)
	}
	if last.Seq != 2 {
		t.Fatalf("history sequence must be gapless, got seq %d", last.Seq)
	}
}

func TestTransitionIllegalMoveFails(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), newFakeUWRepo())
	item := pendingItem(t, svc, 2_000_000, "retail")

	_, err := svc.Transition(context.Background(), item.ID, domain.StatusPolicyIssued, "ana", "")
	if err == nil {
		t.Fatal("pending -> policy_issued must fail")
	}
	if apperr.GetKind(err) != apperr.KindUnprocessable {
		t.Fatalf("expected unprocessable, got %v", err)
	}
}

func TestTransitionRejectionRequiresReason(t *testing.T) {
	svc := newTestService(t, newFakeRepo(), newFakeUWRepo())
	item := pendingItem(t, svc, 2_000_000, "retail")

	_, err := svc.Transition(context.Background(), item.ID, domain.StatusRejected, "ana", "")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := svc.Transition(context.Background(), item.ID, domain.StatusRejected, "ana", "outside appetite"); err != nil {
		t.Fatalf("rejection with reason should pass: %v", err)
	}
}

func TestTransitionLostRaceIsConflict(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, newFakeUWRepo())
	item := pendingItem(t, svc, 2_000_000, "retail")

	repo.forceStaleVersion = true
	_, err := svc.Transition(context.Background(), item.ID, domain.StatusInReview, "ana", "")
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAssignClaimsCapacityAtomically(t *testing.T) {
	uwRepo := newFakeUWRepo(uwdomain.Underwriter{
		ID: "uw-001", Name: "Sam Rivera", Email: "sam@example.com",
		Tier: uwdomain.TierStandard, MaxCapacity: 2, CurrentWorkload: 1, IsAvailable: true,
	})
	svc := newTestService(t, newFakeRepo(), uwRepo)
	item := pendingItem(t, svc, 6_000_000, "retail")

	updated, err := svc.Assign(context.Background(), item.ID, "uw-001", "ana")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if updated.AssignedUnderwriterID == nil || *updated.AssignedUnderwriterID != "uw-001" {
		t.Fatalf("expected assignment to uw-001, got %+v", updated)
	}
	if uwRepo.underwriters["uw-001"].CurrentWorkload != 2 {
		t.Fatalf("workload must be claimed, got %d", uwRepo.underwriters["uw-001"].CurrentWorkload)
	}

	// Now at capacity: the next item must be refused with a conflict.
	second := pendingItem(t, svc, 6_000_000, "retail")
	_, err = svc.Assign(context.Background(), second.ID, "uw-001", "ana")
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict at capacity, got %v", err)
	}
}

func TestAssignBelowTierRefused(t *testing.T) {
	uwRepo := newFakeUWRepo(uwdomain.Underwriter{
		ID: "uw-jr", Name: "Lee Park", Email: "lee@example.com",
		Tier: uwdomain.TierJunior, MaxCapacity: 10, IsAvailable: true,
	})
	svc := newTestService(t, newFakeRepo(), uwRepo)
	item := pendingItem(t, svc, 30_000_000, "retail")

	_, err := svc.Assign(context.Background(), item.ID, "uw-jr", "ana")
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("a junior must never take a senior-tier item, got %v", err)
	}
	if uwRepo.claims != 0 {
		t.Fatal("no capacity may be claimed for a refused assignment")
	}
}

func TestAssignReleasesClaimWhenRaceLost(t *testing.T) {
	repo := newFakeRepo()
	uwRepo := newFakeUWRepo(uwdomain.Underwriter{
		ID: "uw-001", Name: "Sam Rivera", Email: "sam@example.com",
		Tier: uwdomain.TierSenior, MaxCapacity: 5, IsAvailable: true,
	})
	svc := newTestService(t, repo, uwRepo)
	item := pendingItem(t, svc, 30_000_000, "retail")

	repo.forceStaleVersion = true
	_, err := svc.Assign(context.Background(), item.ID, "uw-001", "ana")
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if uwRepo.underwriters["uw-001"].CurrentWorkload != 0 {
		t.Fatalf("claimed capacity must be released on a lost race, got %d",
			uwRepo.underwriters["uw-001"].CurrentWorkload)
	}
}

func TestTerminalTransitionReleasesAssignee(t *testing.T) {
	uwRepo := newFakeUWRepo(uwdomain.Underwriter{
		ID: "uw-001", Name: "Sam Rivera", Email: "sam@example.com",
		Tier: uwdomain.TierSenior, MaxCapacity: 5, IsAvailable: true,
	})
	svc := newTestService(t, newFakeRepo(), uwRepo)
	item := pendingItem(t, svc, 30_000_000, "retail")

	if _, err := svc.Assign(context.Background(), item.ID, "uw-001", "ana"); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := svc.Transition(context.Background(), item.ID, domain.StatusRejected, "ana", "declined"); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got := uwRepo.underwriters["uw-001"].CurrentWorkload; got != 0 {
		t.Fatalf("terminal transition must free the underwriter, workload %d", got)
	}
}

func TestRejectedSubmissionCreatesRejectedItem(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(t, repo, newFakeUWRepo())

	m := fields.Map{
		"insured_name":    fields.String("Tiny Shop"),
		"policy_type":     fields.String("cyber"),
		"coverage_amount": fields.Number(10_000),
	}
	item, err := svc.Create(context.Background(), CreateInput{
		SubmissionID:    7,
		SubmissionRef:   uuid.New(),
		ExtractedFields: m,
		Validation:      svc.ValidateFields(m, "broker@example.com"),
		Actor:           SystemActor,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.Status != domain.StatusRejected {
		t.Fatalf("rejected validation must open the item rejected, got %q", item.Status)
	}
	if len(item.RejectionReasons) == 0 {
		t.Fatal("rejection reasons must be preserved on the item")
	}

	// Terminal from birth.
	if _, err := svc.Transition(context.Background(), item.ID, domain.StatusInReview, "ana", ""); err == nil {
		t.Fatal("a rejected item must not transition")
	}
}
