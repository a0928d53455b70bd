package hyperband

import (
	"math"

	"github.com/pkg/errors"
)

//////
// Const, vars, types.
//////

// ErrInvalidBudget is returned when the budget parameters cannot describe a
// valid Hyperband schedule (R < 1 or eta <= 1). It is a configuration error
// and is reported before any evaluation work is scheduled.
var ErrInvalidBudget = errors.New("invalid budget")

//////
// Exported functionalities.
//////

// SMax returns floor(log_eta(R)): the largest bracket index, and therefore
// the number of brackets minus one, for the given budget parameters.
func SMax(maxResource, eta float64) int {
	return int(math.Floor(math.Log(maxResource) / math.Log(eta)))
}

// PlanBrackets computes the full Hyperband bracket schedule for the given
// budget parameters.
//
// Parameters:
// - maxResource: R, the maximum resource any configuration may receive.
//   Must be >= 1.
// - eta: The elimination factor. Must be > 1. Typical values are 3 or 4.
//
// Returns:
// - []Bracket: Exactly SMax(maxResource, eta)+1 brackets ordered from the
//   most exploratory (s = s_max, many configurations at little resource)
//   down to the most exploitative (s = 0, few configurations at R).
// - error: Wraps ErrInvalidBudget if the parameters are out of range.
//
// For each bracket s, with B = (s_max+1)*R:
//
//	n = ceil(B * eta^s / (R * (s+1)))
//	r = R * eta^-s
//
// Every bracket consumes an approximately equal share of the total budget:
// n*r stays within a bounded constant factor across brackets, trading the
// number of configurations against per-configuration resource.
func PlanBrackets(maxResource, eta float64) ([]Bracket, error) {
	if maxResource < 1.0 {
		return nil, errors.Wrapf(ErrInvalidBudget, "R is %.2f, but it must be >= 1.0", maxResource)
	}

	if eta <= 1.0 {
		return nil, errors.Wrapf(ErrInvalidBudget, "eta is %.2f, but it must be > 1.0", eta)
	}

	sMax := SMax(maxResource, eta)

	// B is the per-bracket budget: every bracket spends about B in total.
	budget := float64(sMax+1) * maxResource

	brackets := make([]Bracket, 0, sMax+1)

	for s := sMax; s >= 0; s-- {
		n := int(math.Ceil(budget * math.Pow(eta, float64(s)) / (maxResource * float64(s+1))))
		r := maxResource * math.Pow(eta, -float64(s))

		brackets = append(brackets, Bracket{
			S:     s,
			N:     n,
			R:     r,
			Rungs: s + 1,
		})
	}

	return brackets, nil
}
