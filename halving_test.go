package hyperband

import (
	"context"
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSearcher[C comparable](config SearchConfig, sample Sampler[C], evaluate Evaluator[C]) *searcher[C] {
	logger := newTestLogger()

	return &searcher[C]{
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
}

// sequenceSampler returns the first n values of a fixed sequence.
func sequenceSampler(values []int) Sampler[int] {
	return func(n int) ([]int, error) {
		if n > len(values) {
			return nil, errors.Errorf("space exhausted: want %d configurations, have %d", n, len(values))
		}

		return append([]int(nil), values[:n]...), nil
	}
}

func TestRunBracketPromotesBySampleOrderOnTies(t *testing.T) {
	// loss = -resource: every configuration ties at every rung, so the
	// stable tie-break must promote strictly in sampling order.
	config := DefaultSearchConfig()
	config.MaxResource = 9

	s := newTestSearcher(config,
		sequenceSampler([]int{10, 11, 12, 13, 14, 15, 16, 17, 18}),
		func(_ context.Context, _ int, resource float64) (float64, error) {
			return -resource, nil
		},
	)

	trace, err := s.runBracket(context.Background(), Bracket{S: 2, N: 9, R: 1, Rungs: 3})
	require.NoError(t, err)
	require.Len(t, trace.Rungs, 3)

	// Surviving counts follow 9 -> 3 -> 1.
	assert.Len(t, trace.Rungs[0].Evaluations, 9)
	assert.Equal(t, []int{10, 11, 12}, trace.Rungs[0].Kept)
	assert.Len(t, trace.Rungs[1].Evaluations, 3)
	assert.Equal(t, []int{10}, trace.Rungs[1].Kept)
	assert.Len(t, trace.Rungs[2].Evaluations, 1)
	assert.Equal(t, []int{10}, trace.Rungs[2].Kept)

	assert.Equal(t, 10, trace.Best.Config)
	assert.Equal(t, -9.0, trace.Best.Loss)
}

func TestRunBracketKeepsLowestLoss(t *testing.T) {
	losses := map[int]float64{
		10: 6889, 11: 1681, 12: 49, 13: 9216, 14: 9,
		15: 3364, 16: 484, 17: 961, 18: 4096,
	}

	config := DefaultSearchConfig()
	config.MaxResource = 9

	s := newTestSearcher(config,
		sequenceSampler([]int{10, 11, 12, 13, 14, 15, 16, 17, 18}),
		func(_ context.Context, c int, _ float64) (float64, error) {
			return losses[c], nil
		},
	)

	trace, err := s.runBracket(context.Background(), Bracket{S: 2, N: 9, R: 1, Rungs: 3})
	require.NoError(t, err)

	assert.Equal(t, []int{14, 12, 16}, trace.Rungs[0].Kept)
	assert.Equal(t, []int{14}, trace.Rungs[1].Kept)
	assert.Equal(t, 14, trace.Best.Config)
	assert.Equal(t, 9.0, trace.Best.Loss)
}

func TestRunBracketRungMonotonicity(t *testing.T) {
	config := DefaultSearchConfig()
	config.MaxResource = 9

	s := newTestSearcher(config,
		sequenceSampler([]int{1, 2, 3, 4, 5, 6, 7, 8, 9}),
		func(_ context.Context, c int, _ float64) (float64, error) {
			return float64(c), nil
		},
	)

	trace, err := s.runBracket(context.Background(), Bracket{S: 2, N: 9, R: 1, Rungs: 3})
	require.NoError(t, err)

	for i := 1; i < len(trace.Rungs); i++ {
		assert.Greater(t, trace.Rungs[i].Resource, trace.Rungs[i-1].Resource)
		assert.LessOrEqual(t, len(trace.Rungs[i].Evaluations), len(trace.Rungs[i-1].Evaluations))
	}
}

func TestRunBracketIdempotent(t *testing.T) {
	config := DefaultSearchConfig()
	config.MaxResource = 9

	build := func() *searcher[int] {
		return newTestSearcher(config,
			sequenceSampler([]int{5, 9, 2, 7, 1, 8, 3, 6, 4}),
			func(_ context.Context, c int, resource float64) (float64, error) {
				return float64(c*c) / resource, nil
			},
		)
	}

	first, err := build().runBracket(context.Background(), Bracket{S: 2, N: 9, R: 1, Rungs: 3})
	require.NoError(t, err)

	second, err := build().runBracket(context.Background(), Bracket{S: 2, N: 9, R: 1, Rungs: 3})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestRunBracketDegenerate(t *testing.T) {
	// n = 1: a single evaluation at full resource, no elimination.
	config := DefaultSearchConfig()
	config.MaxResource = 9

	s := newTestSearcher(config,
		sequenceSampler([]int{42}),
		func(_ context.Context, c int, resource float64) (float64, error) {
			return float64(c) - resource, nil
		},
	)

	trace, err := s.runBracket(context.Background(), Bracket{S: 0, N: 1, R: 9, Rungs: 1})
	require.NoError(t, err)
	require.Len(t, trace.Rungs, 1)

	assert.Equal(t, 42, trace.Best.Config)
	assert.Equal(t, 33.0, trace.Best.Loss)
}

func TestRunBracketSamplerFailure(t *testing.T) {
	config := DefaultSearchConfig()
	config.MaxResource = 9

	s := newTestSearcher(config,
		sequenceSampler([]int{1, 2, 3}),
		func(_ context.Context, c int, _ float64) (float64, error) {
			return float64(c), nil
		},
	)

	// The sequence holds 3 configurations but the bracket needs 9.
	_, err := s.runBracket(context.Background(), Bracket{S: 2, N: 9, R: 1, Rungs: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bracket s=2")
}

func TestRunBracketShortSample(t *testing.T) {
	config := DefaultSearchConfig()
	config.MaxResource = 9

	s := newTestSearcher(config,
		func(int) ([]int, error) { return []int{1, 2}, nil },
		func(_ context.Context, c int, _ float64) (float64, error) {
			return float64(c), nil
		},
	)

	_, err := s.runBracket(context.Background(), Bracket{S: 2, N: 9, R: 1, Rungs: 3})
	assert.ErrorIs(t, err, ErrSampler)
}
