// Package hyperband provides automated hyperparameter optimization using the
// Hyperband algorithm (Li et al., JMLR 18, 2018). It adaptively allocates a
// fixed resource budget across randomly sampled configurations, giving more
// resource to promising candidates and discarding poor ones early, which
// finds low-loss configurations faster than exhaustive or purely random
// search.
//
// # Features
//
// The package includes the following key features:
//
//   - Principled Budgeting: Plans brackets from (R, eta) using the exact
//     Hyperband allocation formulas, so every bracket spends an
//     approximately equal share of the total budget
//   - Successive Halving: Each bracket repeatedly evaluates its surviving
//     configurations at geometrically increasing resource and keeps the
//     best 1/eta of them
//   - Concurrent Evaluation: A rung's configurations are evaluated in
//     parallel; the rung only advances once every evaluation has reported
//   - Failure Isolation: A failing evaluation is retried and then penalized
//     with a +Inf loss instead of aborting its siblings or the run
//   - Deterministic Promotion: Loss ties are broken by sampling order, so
//     deterministic inputs give reproducible results regardless of the
//     order in which concurrent evaluations finish
//   - Generic Implementation: Works with any comparable configuration type;
//     the search never inspects configuration internals
//   - Progress Monitoring: Real-time rung-by-rung updates via channels,
//     plus a full per-bracket/per-rung trace in the result
//
// # Installation
//
// To install the package, use:
//
//	go get github.com/cdgreenidge/hyperband
//
// # Usage
//
// The caller supplies two collaborators: a Sampler that draws random
// configurations from the search space, and an Evaluator that trains a
// configuration with a given amount of resource and reports its validation
// loss. Everything else — bracket planning, rung scheduling, concurrency,
// retries — is handled here.
//
//	config := hyperband.DefaultSearchConfig()
//	config.MaxResource = 81 // e.g. maximum training epochs
//
//	result, err := hyperband.Search(ctx, config, sampleConfigs, trainAndScore)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("best: %v (loss %.4f)\n", result.Best.Config, result.Best.Loss)
//
// # Configuration
//
// The SearchConfig struct controls the run:
//
//	type SearchConfig struct {
//	    MaxResource       float64        // R: max resource per configuration
//	    Eta               float64        // elimination factor (default 3)
//	    RetryLimit        int            // retries before the +Inf penalty
//	    Timeout           time.Duration  // optional per-evaluation deadline
//	    CancelGracePeriod time.Duration  // wait for in-flight work on cancel
//	    MaxConcurrency    int            // optional cap on parallel units
//	    Logger            *logrus.Logger // structured progress logging
//	    ProgressChan      chan<- ProgressUpdate // progress monitoring
//	}
//
// Recommended settings:
//   - Eta: 3 or 4 (higher = more aggressive elimination)
//   - MaxResource: the largest budget that is meaningful for one
//     configuration (e.g. total epochs); brackets are derived from it
//   - RetryLimit: 0-2 depending on how flaky the evaluation substrate is
//
// # Thread Safety
//
// The evaluator must be safe to call concurrently for different
// configurations; that is the only concurrency the caller is exposed to.
// Separate searches with separate configs may run concurrently. The global
// best value is owned by the controller and updated only at
// bracket-completion boundaries, never by in-flight evaluations.
package hyperband
