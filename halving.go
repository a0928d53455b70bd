package hyperband

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

//////
// Const, vars, types.
//////

// ErrSampler is returned when the configuration sampler cannot produce the
// number of configurations a bracket's schedule requires. A short sample
// would violate the allocation invariants, so the whole run halts rather
// than silently continuing with a smaller set.
var ErrSampler = errors.New("sampler failure")

// candidate is a surviving configuration together with its original sampling
// index. The index is the deterministic tie-break: two candidates with
// exactly equal losses are promoted in sampling order, no matter in which
// order their evaluations happened to finish.
type candidate[C comparable] struct {
	index  int
	config C
	loss   float64
}

//////
// Methods.
//////

// runBracket executes one bracket of successive halving to completion and
// returns its full trace, including the bracket's best (configuration, loss)
// pair.
//
// The bracket samples b.N configurations, then repeatedly evaluates the
// surviving set at geometrically increasing resource, keeping the best
// floor(n_i/eta) after each rung (or the single best, if that floor is
// zero). Every survivor must report a loss before a rung advances; the
// parallel engine guarantees that barrier.
func (s *searcher[C]) runBracket(ctx context.Context, b Bracket) (BracketTrace[C], error) {
	trace := BracketTrace[C]{Bracket: b}

	configs, err := s.sample(b.N)
	if err != nil {
		return trace, errors.Wrapf(err, "bracket s=%d: sampling %d configurations", b.S, b.N)
	}

	if len(configs) != b.N {
		return trace, errors.Wrapf(ErrSampler,
			"bracket s=%d: sampler returned %d configurations, want %d", b.S, len(configs), b.N)
	}

	survivors := make([]candidate[C], len(configs))
	for i, config := range configs {
		survivors[i] = candidate[C]{index: i, config: config}
	}

	for i := 0; i < b.Rungs; i++ {
		// n_i = floor(n * eta^-i), r_i = r * eta^i.
		rungSize := int(math.Floor(float64(b.N) * math.Pow(s.cfg.Eta, -float64(i))))
		resource := b.R * math.Pow(s.cfg.Eta, float64(i))

		rungConfigs := make([]C, len(survivors))
		for j, c := range survivors {
			rungConfigs[j] = c.config
		}

		losses := s.engine.evaluateAll(ctx, rungConfigs, resource)

		// The losses slice is complete even after cancellation (abandoned
		// units are +Inf), but a cancelled rung must not promote anyone.
		if err := ctx.Err(); err != nil {
			return trace, errors.Wrapf(err, "bracket s=%d: rung %d cancelled", b.S, i)
		}

		for j := range survivors {
			survivors[j].loss = losses[j]
		}

		// Sort by loss ascending, ties by original sampling order.
		slices.SortStableFunc(survivors, func(x, y candidate[C]) int {
			switch {
			case x.loss < y.loss:
				return -1
			case x.loss > y.loss:
				return 1
			default:
				return x.index - y.index
			}
		})

		// Keep floor(n_i/eta), but never eliminate the entire set.
		keep := int(math.Floor(float64(rungSize) / s.cfg.Eta))
		if keep < 1 {
			keep = 1
		}

		if keep > len(survivors) {
			keep = len(survivors)
		}

		evaluations := make([]Evaluation[C], len(survivors))
		for j, c := range survivors {
			evaluations[j] = Evaluation[C]{Config: c.config, Loss: c.loss}
		}

		survivors = survivors[:keep]

		kept := make([]C, len(survivors))
		for j, c := range survivors {
			kept[j] = c.config
		}

		trace.Rungs = append(trace.Rungs, RungTrace[C]{
			Rung:        i,
			Resource:    resource,
			Evaluations: evaluations,
			Kept:        kept,
		})

		s.logger.WithFields(logrus.Fields{
			"bracket":   b.S,
			"rung":      i,
			"resource":  resource,
			"evaluated": len(evaluations),
			"kept":      len(kept),
			"best_loss": survivors[0].loss,
		}).Debug("rung complete")

		s.reportProgress(ProgressUpdate{
			Bracket:         b.S,
			Rung:            i,
			Rungs:           b.Rungs,
			Resource:        resource,
			Evaluated:       len(evaluations),
			Survivors:       len(kept),
			BracketBestLoss: survivors[0].loss,
			GlobalBestLoss:  s.bestLoss,
		})
	}

	trace.Best = Evaluation[C]{Config: survivors[0].config, Loss: survivors[0].loss}

	return trace, nil
}
