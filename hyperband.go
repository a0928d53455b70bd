package hyperband

import (
	"context"
	"math"

	"github.com/sirupsen/logrus"
)

//////
// Const, vars, types.
//////

// searcher drives one Hyperband run: it owns the planned schedule's
// execution, the parallel engine, and the single global best-loss value.
// The best loss is updated only at bracket-completion boundaries, never by
// in-flight evaluations.
type searcher[C comparable] struct {
	cfg    SearchConfig
	logger *logrus.Logger
	engine *engine[C]
	sample Sampler[C]

	// bestLoss is the best loss across completed brackets; +Inf until the
	// first bracket finishes.
	bestLoss float64
}

//////
// Exported functionalities.
//////

// DefaultSearchConfig returns a default configuration. MaxResource has no
// sensible default and must be set by the caller.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Eta:        3.0,
		RetryLimit: 1,
	}
}

// Search runs the Hyperband hyperparameter search and returns the best
// configuration found together with the full per-bracket trace.
//
// Hyperband allocates a fixed resource budget adaptively: it plans a
// schedule of brackets that trade the number of sampled configurations
// against per-configuration resource, runs each bracket through successive
// halving (evaluate all survivors, keep the best 1/eta, repeat at eta times
// the resource), and reports the single best (configuration, loss) pair
// seen anywhere.
//
// Type Parameter:
//   - C: The configuration type. Opaque and comparable.
//
// Parameters:
//   - ctx: Cancels the run. On cancellation in-flight evaluations get
//     SearchConfig.CancelGracePeriod to finish; the run then halts with the
//     context's error, identifying the bracket and rung it stopped in.
//   - config: Budget parameters and execution policy. See SearchConfig.
//   - sample: The configuration sampler, called once per bracket.
//   - evaluate: The evaluation black box, called concurrently within a rung.
//
// Returns:
// - *SearchResult[C]: The global best pair plus per-bracket/per-rung traces.
// - error: Wraps ErrInvalidBudget for bad budget parameters (checked before
//   any evaluation is scheduled), ErrSampler or the sampler's own error for
//   sampling failures, and the context error for cancelled runs. Individual
//   evaluation failures never surface here; they are retried and then
//   penalized with +Inf losses.
//
// Usage example:
//
//	config := DefaultSearchConfig()
//	config.MaxResource = 81
//
//	result, err := Search(ctx, config,
//	    func(n int) ([]float64, error) { return sampleRhos(n), nil },
//	    func(ctx context.Context, rho float64, resource float64) (float64, error) {
//	        return trainAndValidate(ctx, rho, resource)
//	    },
//	)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(result.Best.Config, result.Best.Loss)
//
// How it works:
//  1. Plans s_max+1 brackets from (MaxResource, Eta), most exploratory
//     first.
//  2. Runs each bracket in sequence; within a rung, every surviving
//     configuration is evaluated concurrently and the rung only advances
//     once all of them have reported (or definitively failed).
//  3. After each bracket, keeps the result if its loss is strictly lower
//     than the best so far.
//
// Important notes:
// - Deterministic given a deterministic sampler and evaluator: promotion
//   ties are broken by sampling order regardless of evaluation completion
//   order, so repeated runs yield identical results.
// - Brackets are independent; no state carries over between them.
func Search[C comparable](
	ctx context.Context,
	config SearchConfig,
	sample Sampler[C],
	evaluate Evaluator[C],
) (*SearchResult[C], error) {
	logger := config.Logger
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	brackets, err := PlanBrackets(config.MaxResource, config.Eta)
	if err != nil {
		return nil, err
	}

	s := &searcher[C]{
		cfg:    config,
		logger: logger,
		sample: sample,
		engine: &engine[C]{
			evaluate:    evaluate,
			retryLimit:  config.RetryLimit,
			timeout:     config.Timeout,
			gracePeriod: config.CancelGracePeriod,
			maxWorkers:  config.MaxConcurrency,
			logger:      logger,
		},
		bestLoss: math.Inf(1),
	}

	logger.WithFields(logrus.Fields{
		"max_resource": config.MaxResource,
		"eta":          config.Eta,
		"brackets":     len(brackets),
	}).Info("starting hyperband search")

	result := &SearchResult[C]{
		Best:     Evaluation[C]{Loss: math.Inf(1)},
		Brackets: make([]BracketTrace[C], 0, len(brackets)),
	}

	for _, bracket := range brackets {
		trace, err := s.runBracket(ctx, bracket)
		if err != nil {
			return nil, err
		}

		result.Brackets = append(result.Brackets, trace)

		// The first bracket seeds the global best; later brackets replace
		// it only when strictly lower.
		if len(result.Brackets) == 1 || trace.Best.Loss < result.Best.Loss {
			result.Best = trace.Best
			s.bestLoss = trace.Best.Loss
		}

		s.logger.WithFields(logrus.Fields{
			"bracket":      bracket.S,
			"bracket_loss": trace.Best.Loss,
			"best_loss":    result.Best.Loss,
		}).Info("bracket complete")
	}

	return result, nil
}

//////
// Methods.
//////

// reportProgress sends a progress snapshot without blocking; updates are
// dropped if the channel is full.
func (s *searcher[C]) reportProgress(update ProgressUpdate) {
	if s.cfg.ProgressChan == nil {
		return
	}

	select {
	case s.cfg.ProgressChan <- update:
	default:
		// Skip update if channel is full.
	}
}
