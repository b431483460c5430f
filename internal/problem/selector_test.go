package problem

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/amcq/internal/logging"
	"github.com/verte-zerg/amcq/internal/model"
	"github.com/verte-zerg/amcq/internal/proxy"
)

type fetchFunc func(ctx context.Context, path string) (proxy.Content, error)

type fakeFetcher struct {
	paths []string
	fn    fetchFunc
}

func (f *fakeFetcher) Fetch(ctx context.Context, path string) (proxy.Content, error) {
	f.paths = append(f.paths, path)
	return f.fn(ctx, path)
}

func newSelector(fn fetchFunc, opts ...Option) (*Selector, *fakeFetcher) {
	f := &fakeFetcher{fn: fn}
	opts = append([]Option{WithRand(rand.New(rand.NewSource(1))), WithLogger(logging.Discard())}, opts...)
	return New(f, opts...), f
}

func answer(a string) fetchFunc {
	return func(context.Context, string) (proxy.Content, error) {
		return proxy.Content{Statement: "<p>s</p>", Solution: "<p>sol</p>", Answer: a}, nil
	}
}

func TestSelectSingleAIMEProblem(t *testing.T) {
	sel, f := newSelector(answer("7"))
	c := Criteria{
		Levels:         []model.Level{model.AIME},
		YearMin:        1990,
		YearMax:        1990,
		AIMEProblemMin: 5,
		AIMEProblemMax: 5,
	}

	p, err := sel.Select(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, model.Ref{Year: 1990, Level: model.AIME, Number: 5}, p.Ref)
	assert.Equal(t, "007", p.Answer)
	assert.Equal(t, []string{"1990_AIME_Problems_Problem_5.html"}, f.paths)
}

func TestSelectExhaustsAfterMaxAttempts(t *testing.T) {
	sel, f := newSelector(answer("<html>oops</html>"))
	c := FromSettings(model.DefaultSettings())

	_, err := sel.Select(context.Background(), c)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, errBadAnswer)
	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, DefaultMaxAttempts, ex.Attempts)
	assert.Len(t, f.paths, DefaultMaxAttempts)
}

func TestSelectRetriesUnavailableContent(t *testing.T) {
	calls := 0
	sel, f := newSelector(func(_ context.Context, path string) (proxy.Content, error) {
		calls++
		if calls < 3 {
			return proxy.Content{}, &proxy.FetchError{Part: proxy.PartStatement, Path: path, Reason: "full HTML document instead of fragment"}
		}
		return proxy.Content{Statement: "<p>s</p>", Answer: "c"}, nil
	}, WithMaxAttempts(5))

	p, err := sel.Select(context.Background(), Criteria{
		Levels: []model.Level{model.AMC10}, YearMin: 2010, YearMax: 2012, ProblemMin: 1, ProblemMax: 25,
	})
	require.NoError(t, err)
	assert.Equal(t, "C", p.Answer)
	assert.Len(t, f.paths, 3)
	assert.Contains(t, []string{"A", "B"}, p.Ref.Split)
}

func TestSelectStopsOnNonRetryableError(t *testing.T) {
	sel, f := newSelector(func(ctx context.Context, _ string) (proxy.Content, error) {
		return proxy.Content{}, context.Canceled
	})
	_, err := sel.Select(context.Background(), FromSettings(model.DefaultSettings()))
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrExhausted)
	assert.Len(t, f.paths, 1)
}

func TestSelectCancelledContext(t *testing.T) {
	sel, f := newSelector(answer("A"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sel.Select(ctx, FromSettings(model.DefaultSettings()))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, f.paths)
}

func TestSelectConfigurationErrors(t *testing.T) {
	sel, f := newSelector(answer("A"))

	_, err := sel.Select(context.Background(), Criteria{YearMin: 2000, YearMax: 2020})
	assert.ErrorIs(t, err, ErrNoLevels)

	_, err = sel.Select(context.Background(), Criteria{
		Levels: []model.Level{model.AMC10, model.AMC12}, YearMin: 1985, YearMax: 1995, ProblemMin: 1, ProblemMax: 25,
	})
	assert.ErrorIs(t, err, ErrEmptyYearRange)
	assert.Empty(t, f.paths)
}

func TestSelectSkipsLevelsOutsideYearWindow(t *testing.T) {
	sel, _ := newSelector(answer("12"))
	c := Criteria{
		Levels:         []model.Level{model.AMC8, model.AIME},
		YearMin:        1985,
		YearMax:        1995,
		ProblemMin:     1,
		ProblemMax:     25,
		AIMEProblemMin: 1,
		AIMEProblemMax: 15,
	}
	for i := 0; i < 20; i++ {
		p, err := sel.Select(context.Background(), c)
		require.NoError(t, err)
		assert.Equal(t, model.AIME, p.Ref.Level)
		assert.Empty(t, p.Ref.Sitting)
		assert.Equal(t, "012", p.Answer)
	}
}

func TestSelectExcludeCountsAsAttempt(t *testing.T) {
	sel, f := newSelector(answer("A"), WithMaxAttempts(4))
	c := Criteria{
		Levels: []model.Level{model.AMC8}, YearMin: 2005, YearMax: 2005, ProblemMin: 3, ProblemMax: 3,
		Exclude: func(id string) bool { return id == "2005_AMC_8_3" },
	}
	_, err := sel.Select(context.Background(), c)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.Empty(t, f.paths)
}

func TestDrawStaysInsideCriteria(t *testing.T) {
	sel, _ := newSelector(answer("A"))
	c := FromSettings(model.DefaultSettings())
	for i := 0; i < 500; i++ {
		ref, err := sel.Draw(c)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ref.Year, 2000)
		assert.LessOrEqual(t, ref.Year, 2020)
		assert.GreaterOrEqual(t, ref.Number, 1)
		assert.LessOrEqual(t, ref.Number, ref.Level.ProblemCount())
		if ref.Level.HasSplit(ref.Year) {
			assert.Contains(t, []string{"A", "B"}, ref.Split)
		} else {
			assert.Empty(t, ref.Split)
		}
		if ref.Level.IsAIME() {
			assert.Contains(t, []string{"I", "II"}, ref.Sitting)
		}
	}
}

func TestForTestProblem(t *testing.T) {
	c := ForTestProblem(model.AIME, 7)
	assert.Equal(t, 1983, c.YearMin)
	assert.Equal(t, model.LatestYear, c.YearMax)
	lo, hi := c.problemRange(model.AIME)
	assert.Equal(t, 7, lo)
	assert.Equal(t, 7, hi)
}
