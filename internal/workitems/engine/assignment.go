package engine

import (
	"fmt"
	"sort"

	"uw_workbench_backend/internal/rules"
	uwdomain "uw_workbench_backend/internal/underwriters/domain"
)

// Candidate is one ranked recommendation from the assignment engine.
type Candidate struct {
	Underwriter uwdomain.Underwriter `json:"underwriter"`
	Score       float64              `json:"score"`
	Rationale   []string             `json:"rationale"`
}

// AssignmentRequest describes the work item needing an underwriter.
type AssignmentRequest struct {
	Industry       string
	CoverageAmount float64
}

// Assigner ranks underwriters for a work item.
type Assigner struct {
	cfg rules.AssignmentConfig
}

// NewAssigner creates an assignment engine from loaded configuration.
func NewAssigner(cfg rules.AssignmentConfig) *Assigner {
	return &Assigner{cfg: cfg}
}

// RequiredTier returns the minimum authority level for a work item. Large
// coverage or a high-sensitivity industry demands a senior underwriter.
func (a *Assigner) RequiredTier(req AssignmentRequest) uwdomain.Tier {
	industry := normalizeIndustry(req.Industry)
	if req.CoverageAmount >= a.cfg.SeniorCoverageThreshold || a.cfg.IsHighSensitivity(industry) {
		return uwdomain.TierSenior
	}
	if req.CoverageAmount >= a.cfg.StandardCoverageThreshold {
		return uwdomain.TierStandard
	}
	return uwdomain.TierJunior
}

// Recommend ranks the roster for a work item and returns the top candidates.
// Tier is the hard gate: a below-tier underwriter is never listed, no matter
// how well they would score. Capacity is a separate concern: an at-capacity
// underwriter stays tier-eligible but cannot take the item, so they are
// dropped from the final list. Availability is only a scored signal. An
// empty result means nobody on the roster can take the item and the work
// item should be escalated.
//
// Ranking is deterministic: ties break on lower workload, then roster ID.
func (a *Assigner) Recommend(req AssignmentRequest, roster []uwdomain.Underwriter) []Candidate {
	required := a.RequiredTier(req)
	industry := normalizeIndustry(req.Industry)

	candidates := make([]Candidate, 0, len(roster))
	for _, uw := range roster {
		if !uw.Tier.CanHandle(required) || uw.AtCapacity() {
			continue
		}
		candidates = append(candidates, a.score(uw, industry))
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ci, cj := candidates[i], candidates[j]
		if ci.Score != cj.Score {
			return ci.Score > cj.Score
		}
		if ci.Underwriter.CurrentWorkload != cj.Underwriter.CurrentWorkload {
			return ci.Underwriter.CurrentWorkload < cj.Underwriter.CurrentWorkload
		}
		return ci.Underwriter.ID < cj.Underwriter.ID
	})

	if len(candidates) > a.cfg.TopN {
		candidates = candidates[:a.cfg.TopN]
	}
	return candidates
}

func (a *Assigner) score(uw uwdomain.Underwriter, industry string) Candidate {
	score := 0.0
	var rationale []string

	if industry != "" && uw.Specializes(industry) {
		score += a.cfg.SpecializationBonus
		rationale = append(rationale, fmt.Sprintf("specializes in %s", industry))
	}

	if uw.MaxCapacity > 0 {
		load := float64(uw.CurrentWorkload) / float64(uw.MaxCapacity)
		if load > 1 {
			load = 1
		}
		penalty := a.cfg.LoadPenalty * load
		score -= penalty
		rationale = append(rationale, fmt.Sprintf("workload %d of %d", uw.CurrentWorkload, uw.MaxCapacity))
	}

	if uw.IsAvailable {
		score += a.cfg.AvailabilityBonus
	} else {
		rationale = append(rationale, "marked unavailable")
	}

	return Candidate{Underwriter: uw, Score: score, Rationale: rationale}
}
