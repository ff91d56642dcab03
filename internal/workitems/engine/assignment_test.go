package engine

import (
	"fmt"
	"math"
	"testing"

	uwdomain "uw_workbench_backend/internal/underwriters/domain"
)

func makeUnderwriter(id string, tier uwdomain.Tier, load, capacity int, specs ...string) uwdomain.Underwriter {
	return uwdomain.Underwriter{
		ID:              id,
		Name:            "Underwriter " + id,
		Email:           id + "@example.com",
		Tier:            tier,
		Specializations: specs,
		MaxCapacity:     capacity,
		CurrentWorkload: load,
		IsAvailable:     true,
	}
}

func TestRequiredTier(t *testing.T) {
	a := NewAssigner(testAssignmentConfig())

	cases := []struct {
		industry string
		coverage float64
		want     uwdomain.Tier
	}{
		{"retail", 30_000_000, uwdomain.TierSenior},
		{"retail", 20_000_000, uwdomain.TierSenior},
		{"healthcare", 1_000_000, uwdomain.TierSenior},
		{"Financial Services", 500_000, uwdomain.TierSenior},
		{"retail", 10_000_000, uwdomain.TierStandard},
		{"retail", 5_000_000, uwdomain.TierStandard},
		{"retail", 1_000_000, uwdomain.TierJunior},
		{"retail", 0, uwdomain.TierJunior},
	}
	for _, tc := range cases {
		got := a.RequiredTier(AssignmentRequest{Industry: tc.industry, CoverageAmount: tc.coverage})
		if got != tc.want {
			t.Fatalf("%s/$%.0f: expected %s, got %s", tc.industry, tc.coverage, tc.want, got)
		}
	}
}

func TestJuniorNeverListedAboveSeniorThreshold(t *testing.T) {
	a := NewAssigner(testAssignmentConfig())

	// A perfectly scoring junior: specialist, idle, available.
	junior := makeUnderwriter("uw-junior", uwdomain.TierJunior, 0, 10, "retail")
	senior := makeUnderwriter("uw-senior", uwdomain.TierSenior, 8, 10)
	roster := []uwdomain.Underwriter{junior, senior}

	for _, coverage := range []float64{20_000_000, 25_000_000, 50_000_000, 100_000_000} {
		got := a.Recommend(AssignmentRequest{Industry: "retail", CoverageAmount: coverage}, roster)
		for _, c := range got {
			if c.Underwriter.Tier == uwdomain.TierJunior {
				t.Fatalf("junior listed for $%.0f coverage: %+v", coverage, got)
			}
		}
		if len(got) != 1 || got[0].Underwriter.ID != "uw-senior" {
			t.Fatalf("$%.0f: expected only the senior, got %+v", coverage, got)
		}
	}
}

func TestSeniorAtCapacityYieldsEmptyList(t *testing.T) {
	a := NewAssigner(testAssignmentConfig())

	roster := []uwdomain.Underwriter{
		makeUnderwriter("uw-senior", uwdomain.TierSenior, 10, 10, "healthcare"),
		makeUnderwriter("uw-standard", uwdomain.TierStandard, 2, 10, "healthcare"),
	}

	// $30M healthcare requires senior tier: the standard is tier-excluded
	// and the only senior is full, so nobody can take the item.
	got := a.Recommend(AssignmentRequest{Industry: "healthcare", CoverageAmount: 30_000_000}, roster)
	if len(got) != 0 {
		t.Fatalf("expected empty recommendation list for escalation, got %+v", got)
	}
}

func TestSpecializationOutranksGeneralist(t *testing.T) {
	a := NewAssigner(testAssignmentConfig())

	roster := []uwdomain.Underwriter{
		makeUnderwriter("uw-generalist", uwdomain.TierStandard, 2, 10),
		makeUnderwriter("uw-specialist", uwdomain.TierStandard, 2, 10, "technology"),
	}

	got := a.Recommend(AssignmentRequest{Industry: "technology", CoverageAmount: 6_000_000}, roster)
	if len(got) != 2 {
		t.Fatalf("expected both standards listed, got %+v", got)
	}
	if got[0].Underwriter.ID != "uw-specialist" {
		t.Fatalf("specialist should rank first, got %+v", got)
	}
	if gap := got[0].Score - got[1].Score; math.Abs(gap-testAssignmentConfig().SpecializationBonus) > 1e-9 {
		t.Fatalf("score gap should equal the specialization bonus: %v vs %v", got[0].Score, got[1].Score)
	}
}

func TestLighterLoadRanksHigher(t *testing.T) {
	a := NewAssigner(testAssignmentConfig())

	roster := []uwdomain.Underwriter{
		makeUnderwriter("uw-busy", uwdomain.TierJunior, 8, 10),
		makeUnderwriter("uw-idle", uwdomain.TierJunior, 1, 10),
	}

	got := a.Recommend(AssignmentRequest{Industry: "retail", CoverageAmount: 500_000}, roster)
	if len(got) != 2 {
		t.Fatalf("expected both juniors listed, got %+v", got)
	}
	if got[0].Underwriter.ID != "uw-idle" {
		t.Fatalf("lighter workload should rank first, got %+v", got)
	}
}

func TestTieBreaksOnWorkloadThenID(t *testing.T) {
	a := NewAssigner(testAssignmentConfig())

	// Same score components except workload; then same everything but ID.
	roster := []uwdomain.Underwriter{
		makeUnderwriter("uw-b", uwdomain.TierStandard, 2, 10),
		makeUnderwriter("uw-a", uwdomain.TierStandard, 2, 10),
	}

	got := a.Recommend(AssignmentRequest{Industry: "retail", CoverageAmount: 6_000_000}, roster)
	if got[0].Underwriter.ID != "uw-a" || got[1].Underwriter.ID != "uw-b" {
		t.Fatalf("equal candidates must order by ID, got %+v", got)
	}
}

func TestRecommendationListBounded(t *testing.T) {
	a := NewAssigner(testAssignmentConfig())

	roster := make([]uwdomain.Underwriter, 0, 8)
	for i := 0; i < 8; i++ {
		roster = append(roster, makeUnderwriter(fmt.Sprintf("uw-%02d", i), uwdomain.TierJunior, i, 10))
	}

	got := a.Recommend(AssignmentRequest{Industry: "retail", CoverageAmount: 500_000}, roster)
	if len(got) != 5 {
		t.Fatalf("expected top 5, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Score < got[i].Score {
			t.Fatalf("candidates must be sorted by score descending: %+v", got)
		}
	}
}

func TestUnavailableUnderwriterLosesBonusOnly(t *testing.T) {
	a := NewAssigner(testAssignmentConfig())

	available := makeUnderwriter("uw-on", uwdomain.TierStandard, 2, 10)
	unavailable := makeUnderwriter("uw-off", uwdomain.TierStandard, 2, 10)
	unavailable.IsAvailable = false

	got := a.Recommend(AssignmentRequest{Industry: "retail", CoverageAmount: 6_000_000},
		[]uwdomain.Underwriter{unavailable, available})
	if len(got) != 2 {
		t.Fatalf("availability is scored, not gated: %+v", got)
	}
	if got[0].Underwriter.ID != "uw-on" {
		t.Fatalf("available underwriter should rank first, got %+v", got)
	}
	if gap := got[0].Score - got[1].Score; math.Abs(gap-testAssignmentConfig().AvailabilityBonus) > 1e-9 {
		t.Fatalf("score gap should equal the availability bonus: %v vs %v", got[0].Score, got[1].Score)
	}
}
