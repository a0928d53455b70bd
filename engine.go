package hyperband

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
)

//////
// Const, vars, types.
//////

// engine is the parallel execution layer. It fans one rung's evaluations out
// to the execution substrate and blocks until a complete set of losses is
// available, absorbing individual failures along the way.
//
// Failure policy: a unit that keeps failing after retryLimit retries is
// assigned a +Inf loss, so it sorts last and is eliminated at the next rung
// boundary instead of taking the whole run down. A failing unit never aborts
// its siblings.
type engine[C comparable] struct {
	// evaluate is the user-supplied black box.
	evaluate Evaluator[C]

	// retryLimit is how many times a failed unit is re-submitted with the
	// same (configuration, resource) input.
	retryLimit int

	// timeout bounds a single attempt; zero means unbounded.
	timeout time.Duration

	// gracePeriod is how long to keep waiting for an in-flight attempt
	// after the run context is cancelled.
	gracePeriod time.Duration

	// maxWorkers caps simultaneous units; <= 0 means dispatch everything
	// at once and let the substrate decide.
	maxWorkers int

	logger *logrus.Logger
}

// evalResult carries one attempt's outcome across the goroutine boundary.
type evalResult struct {
	loss float64
	err  error
}

//////
// Methods.
//////

// evaluateAll evaluates every configuration at the given resource level
// concurrently and returns their losses, indexed like configs.
//
// This is the rung barrier: it does not return until every unit has either
// reported a loss or been definitively failed (+Inf). The returned slice is
// always complete, regardless of the order in which units finish and
// regardless of whether the substrate runs them with concurrency 1 or
// concurrency len(configs).
func (e *engine[C]) evaluateAll(ctx context.Context, configs []C, resource float64) []float64 {
	losses := make([]float64, len(configs))

	p := pool.New()
	if e.maxWorkers > 0 {
		p = p.WithMaxGoroutines(e.maxWorkers)
	}

	for i := range configs {
		p.Go(func() {
			// Each unit writes only its own slot; no shared mutable state.
			losses[i] = e.evaluateOne(ctx, configs[i], resource)
		})
	}

	p.Wait()

	return losses
}

// evaluateOne runs a single unit to a definitive outcome: a reported loss,
// or +Inf once retries are exhausted or the run is cancelled.
func (e *engine[C]) evaluateOne(ctx context.Context, config C, resource float64) float64 {
	for attempt := 0; ; attempt++ {
		loss, err := e.attempt(ctx, config, resource)
		if err == nil {
			return loss
		}

		fields := logrus.Fields{
			"config":   config,
			"resource": resource,
			"attempt":  attempt + 1,
		}

		// A cancelled run is not worth retrying against.
		if ctx.Err() != nil {
			e.logger.WithFields(fields).WithError(err).Warn("evaluation abandoned: run cancelled")

			return math.Inf(1)
		}

		if attempt >= e.retryLimit {
			e.logger.WithFields(fields).WithError(err).Warn("evaluation failed: assigning +Inf loss")

			return math.Inf(1)
		}

		e.logger.WithFields(fields).WithError(err).Debug("evaluation failed: retrying")
	}
}

// attempt performs one evaluation attempt with the per-unit timeout applied.
//
// The evaluator runs in its own goroutine so a stuck evaluator cannot wedge
// the rung barrier: once the attempt's context is done, the attempt is
// abandoned (after gracePeriod, if the whole run was cancelled) and its
// eventual result discarded.
func (e *engine[C]) attempt(ctx context.Context, config C, resource float64) (float64, error) {
	attemptCtx := ctx

	if e.timeout > 0 {
		var cancel context.CancelFunc

		attemptCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resultChan := make(chan evalResult, 1)

	go func() {
		loss, err := e.evaluate(attemptCtx, config, resource)
		resultChan <- evalResult{loss: loss, err: err}
	}()

	select {
	case res := <-resultChan:
		return res.loss, res.err
	case <-attemptCtx.Done():
	}

	// Run cancellation gets a grace period for in-flight work; a plain
	// per-attempt timeout does not.
	if ctx.Err() != nil && e.gracePeriod > 0 {
		timer := time.NewTimer(e.gracePeriod)
		defer timer.Stop()

		select {
		case res := <-resultChan:
			return res.loss, res.err
		case <-timer.C:
		}
	}

	return 0, attemptCtx.Err()
}
