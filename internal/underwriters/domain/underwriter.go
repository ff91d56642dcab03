// Package domain holds the underwriter roster types.
package domain

// Tier is an underwriter's authority level. Coverage amount and industry
// sensitivity determine the minimum tier a work item requires.
type Tier string

const (
	TierJunior   Tier = "junior"
	TierStandard Tier = "standard"
	TierSenior   Tier = "senior"
)

// Rank orders tiers for authority comparisons: senior outranks standard
// outranks junior. Unknown tiers rank below junior.
func (t Tier) Rank() int {
	switch t {
	case TierSenior:
		return 3
	case TierStandard:
		return 2
	case TierJunior:
		return 1
	default:
		return 0
	}
}

// Valid reports whether the tier is one of the three known levels.
func (t Tier) Valid() bool {
	return t == TierJunior || t == TierStandard || t == TierSenior
}

// CanHandle reports whether this tier meets or exceeds the required tier.
func (t Tier) CanHandle(required Tier) bool {
	return t.Rank() >= required.Rank()
}

// Underwriter is a roster entry. CurrentWorkload counts open work items
// assigned to the underwriter and is never allowed past MaxCapacity.
type Underwriter struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	Tier            Tier     `json:"tier"`
	Specializations []string `json:"specializations"`
	MaxCapacity     int      `json:"maxCapacity"`
	CurrentWorkload int      `json:"currentWorkload"`
	IsAvailable     bool     `json:"isAvailable"`
	CreatedAt       string   `json:"createdAt"`
	UpdatedAt       string   `json:"updatedAt"`
}

// AtCapacity reports whether the underwriter cannot take more work.
func (u Underwriter) AtCapacity() bool {
	return u.CurrentWorkload >= u.MaxCapacity
}

// Specializes reports whether the underwriter lists the given industry.
func (u Underwriter) Specializes(industry string) bool {
	for _, s := range u.Specializations {
		if s == industry {
			return true
		}
	}
	return false
}
