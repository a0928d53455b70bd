package hyperband

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

//////
// Const, vars, types.
//////

// Sampler draws hyperparameter configurations from the search space.
// This function type represents the user-supplied sampling capability: given
// a count n, it must return exactly n configurations.
//
// Type Parameter:
//   - C: The configuration type. Opaque to the search; it only needs to be
//     comparable so configurations are distinguishable.
//
// Parameters:
//   - n: Number of configurations to draw. Always >= 1.
//
// Returns:
// - []C: Exactly n configurations, in sampling order
// - error: Return nil on success, or an error if the space cannot yield n
//   configurations (e.g., a finite discrete space is exhausted)
//
// Usage example:
//
//	sample := Sampler[float64](func(n int) ([]float64, error) {
//	    configs := make([]float64, n)
//	    for i := range configs {
//	        configs[i] = rng.Float64()*200 - 100
//	    }
//	    return configs, nil
//	})
//
// Important notes:
// - Called once per bracket; no state needs to be kept between calls
// - Returning fewer than n configurations is treated as a fatal error and
//   halts the whole search
// - Sampling order matters: it is the deterministic tie-break when two
//   configurations achieve exactly the same loss.
type Sampler[C comparable] func(n int) ([]C, error)

// Evaluator trains/evaluates a single configuration with a given amount of
// resource and reports its validation loss. This is the user-supplied black
// box the search spends its entire budget on.
//
// Type Parameter:
//   - C: The configuration type.
//
// Parameters:
//   - ctx: Carries the per-unit timeout and run cancellation. Long-running
//     evaluators should honor ctx.Done() and return early.
//   - config: The configuration to evaluate. Must not be mutated.
//   - resource: How much compute this evaluation may spend (iterations,
//     epochs, seconds — the search does not care about the unit).
//
// Returns:
// - float64: The validation loss. Lower is better.
// - error: Return nil on success. A non-nil error marks this single
//   evaluation as failed; it is retried up to SearchConfig.RetryLimit and
//   then penalized with a +Inf loss. It never aborts sibling evaluations.
//
// Thread safety:
// - Must be safe to call concurrently for different configurations; every
//   rung fans all of its survivors out at once.
type Evaluator[C comparable] func(ctx context.Context, config C, resource float64) (float64, error)

// Evaluation is a (configuration, loss) pair — the result of evaluating one
// configuration at some resource level.
type Evaluation[C comparable] struct {
	// Config is the evaluated configuration.
	Config C

	// Loss is the validation loss it achieved. Lower is better. A loss of
	// +Inf means every attempt to evaluate this configuration failed.
	Loss float64
}

// Bracket describes one successive-halving bracket of the Hyperband
// schedule: a fixed trade-off between the number of configurations sampled
// and the resource each one initially receives.
type Bracket struct {
	// S is the bracket index, counting down from SMax to 0. Higher S means
	// broad-and-shallow (many configurations, little resource); S = 0 means
	// narrow-and-deep.
	S int

	// N is the number of configurations sampled at the start of the bracket.
	N int

	// R is the resource allocated to each configuration in the first rung.
	// Later rungs multiply it by eta.
	R float64

	// Rungs is the number of evaluation rounds in this bracket (S + 1).
	Rungs int
}

// RungTrace records what happened in a single rung: every evaluation that
// ran at this resource level and the configurations kept afterwards.
type RungTrace[C comparable] struct {
	// Rung is the rung index within its bracket, starting at 0.
	Rung int

	// Resource is the resource each surviving configuration received.
	Resource float64

	// Evaluations holds one entry per survivor evaluated in this rung, in
	// promotion order (loss ascending, sampling order on ties).
	Evaluations []Evaluation[C]

	// Kept holds the configurations promoted to the next rung, in the same
	// order. After the final rung it holds the bracket's winner(s).
	Kept []C
}

// BracketTrace records one bracket's full successive-halving history.
type BracketTrace[C comparable] struct {
	// Bracket is the schedule entry this trace belongs to.
	Bracket Bracket

	// Rungs holds one trace per rung, in execution order.
	Rungs []RungTrace[C]

	// Best is the bracket's winning (configuration, loss) pair.
	Best Evaluation[C]
}

// SearchResult is the outcome of a full Hyperband run.
type SearchResult[C comparable] struct {
	// Best is the (configuration, loss) pair with the globally minimal loss
	// observed across every bracket.
	Best Evaluation[C]

	// Brackets is the per-bracket observability trace, in execution order
	// (most exploratory bracket first).
	Brackets []BracketTrace[C]
}

// ProgressUpdate is a snapshot of search progress, sent after each rung
// completes.
type ProgressUpdate struct {
	// Bracket is the index s of the bracket being run.
	Bracket int

	// Rung is the completed rung index within the bracket.
	Rung int

	// Rungs is the total number of rungs in this bracket.
	Rungs int

	// Resource is the resource level of the completed rung.
	Resource float64

	// Evaluated is how many configurations were evaluated in the rung.
	Evaluated int

	// Survivors is how many configurations were kept.
	Survivors int

	// BracketBestLoss is the best loss seen inside the current bracket.
	BracketBestLoss float64

	// GlobalBestLoss is the best loss seen across completed brackets.
	// +Inf until the first bracket completes.
	GlobalBestLoss float64
}

// SearchConfig holds all configuration parameters for a Hyperband run.
//
// Fields explanation:
// - MaxResource: Budget R — the most resource any single configuration gets
// - Eta: Elimination factor — roughly 1/Eta of survivors are kept per rung
// - RetryLimit: Per-evaluation retries before the +Inf penalty
// - Timeout: Optional per-evaluation deadline
// - CancelGracePeriod: How long to wait for in-flight evaluations once the
//   run context is cancelled
// - MaxConcurrency: Optional cap on simultaneous evaluations
// - Logger: Structured logger for bracket/rung progress
// - ProgressChan: Optional channel for progress snapshots
//
// Usage example:
//
//	config := DefaultSearchConfig()
//	config.MaxResource = 81
//	config.Timeout = 5 * time.Minute
//
// Note:
// - Create separate configs for concurrent searches.
type SearchConfig struct {
	// MaxResource is R: the maximum resource any configuration may receive.
	// Must be >= 1. Required; it has no useful default.
	MaxResource float64

	// Eta is the downsampling factor: each rung keeps roughly 1/Eta of its
	// survivors and multiplies their resource by Eta. Must be > 1.
	// Typical values are 3 or 4.
	Eta float64

	// RetryLimit is how many times a failed evaluation is retried with the
	// same (configuration, resource) input before being penalized with a
	// +Inf loss. 0 means no retries.
	RetryLimit int

	// Timeout bounds a single evaluation attempt. An attempt exceeding it
	// counts as a failure and is retried per RetryLimit. Zero means no
	// per-attempt deadline.
	Timeout time.Duration

	// CancelGracePeriod is how long the engine keeps waiting for an
	// in-flight evaluation after the run context is cancelled before
	// abandoning it. Zero abandons immediately.
	CancelGracePeriod time.Duration

	// MaxConcurrency caps how many evaluations run simultaneously within a
	// rung. Zero or negative means no cap: every survivor is dispatched at
	// once and the execution substrate decides the real parallelism.
	MaxConcurrency int

	// Logger receives structured bracket/rung progress. If nil, a quiet
	// (warn-level) logger is used.
	Logger *logrus.Logger

	// ProgressChan receives progress snapshots during the search.
	// Sends are non-blocking: if the channel is full, updates are dropped.
	// If nil, no updates are sent.
	ProgressChan chan<- ProgressUpdate
}
