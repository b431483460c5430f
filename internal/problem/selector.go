// Package problem draws random competition problems and fetches their content.
package problem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/verte-zerg/amcq/internal/model"
	"github.com/verte-zerg/amcq/internal/proxy"
	"github.com/verte-zerg/amcq/internal/scoring"
)

// DefaultMaxAttempts bounds how many draws Select makes before giving up.
const DefaultMaxAttempts = 10

var (
	// ErrNoLevels is returned when no competition level is enabled.
	ErrNoLevels = errors.New("no competition level enabled")
	// ErrEmptyYearRange is returned when no enabled level was held inside the
	// configured year range.
	ErrEmptyYearRange = errors.New("configured years exclude every enabled level")
	// ErrExhausted is matched by *ExhaustedError.
	ErrExhausted = errors.New("failed to load a problem")
	// errRejected marks a draw refused by Criteria.Exclude.
	errRejected = errors.New("draw excluded")
	// errBadAnswer marks a fetched answer of the wrong shape.
	errBadAnswer = errors.New("malformed answer")
)

// ExhaustedError reports that every attempt failed.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed to load a problem after %d attempts: %v", e.Attempts, e.Last)
}

// Unwrap exposes both ErrExhausted and the last attempt error.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrExhausted, e.Last}
}

// Fetcher retrieves the content of a problem page.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (proxy.Content, error)
}

// Criteria constrains a draw.
type Criteria struct {
	Levels         []model.Level
	YearMin        int
	YearMax        int
	ProblemMin     int
	ProblemMax     int
	AIMEProblemMin int
	AIMEProblemMax int
	// Exclude, when set, rejects a drawn problem id before it is fetched.
	Exclude func(id string) bool
}

// FromSettings builds criteria from persisted settings.
func FromSettings(s model.Settings) Criteria {
	s = s.Normalize()
	return Criteria{
		Levels:         append([]model.Level(nil), s.Levels...),
		YearMin:        s.YearMin,
		YearMax:        s.YearMax,
		ProblemMin:     s.ProblemMin,
		ProblemMax:     s.ProblemMax,
		AIMEProblemMin: s.AIMEProblemMin,
		AIMEProblemMax: s.AIMEProblemMax,
	}
}

// ForTestProblem builds criteria for problem number of a level, drawing from
// the level's whole history.
func ForTestProblem(level model.Level, number int) Criteria {
	lo, hi := level.YearBounds()
	return Criteria{
		Levels:         []model.Level{level},
		YearMin:        lo,
		YearMax:        hi,
		ProblemMin:     number,
		ProblemMax:     number,
		AIMEProblemMin: number,
		AIMEProblemMax: number,
	}
}

func (c Criteria) problemRange(l model.Level) (int, int) {
	if l.IsAIME() {
		return c.AIMEProblemMin, c.AIMEProblemMax
	}
	return c.ProblemMin, c.ProblemMax
}

type candidate struct {
	level   model.Level
	yearMin int
	yearMax int
}

// candidates intersects each level's history with the configured window and
// drops levels whose window is empty.
func (c Criteria) candidates() ([]candidate, error) {
	if len(c.Levels) == 0 {
		return nil, ErrNoLevels
	}
	out := make([]candidate, 0, len(c.Levels))
	for _, l := range c.Levels {
		lo, hi := l.YearBounds()
		lo = max(lo, c.YearMin)
		hi = min(hi, c.YearMax)
		if lo > hi {
			continue
		}
		pmin, pmax := c.problemRange(l)
		if pmin < 1 || pmax > l.ProblemCount() || pmin > pmax {
			continue
		}
		out = append(out, candidate{level: l, yearMin: lo, yearMax: hi})
	}
	if len(out) == 0 {
		return nil, ErrEmptyYearRange
	}
	return out, nil
}

// Selector draws problems and fetches them through a Fetcher.
type Selector struct {
	fetcher     Fetcher
	rnd         *rand.Rand
	maxAttempts int
	logger      *slog.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithRand sets the random source.
func WithRand(r *rand.Rand) Option {
	return func(s *Selector) { s.rnd = r }
}

// WithMaxAttempts sets the attempt bound. Values below one are ignored.
func WithMaxAttempts(n int) Option {
	return func(s *Selector) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Selector) {
		if l != nil {
			s.logger = l
		}
	}
}

// New returns a Selector using fetcher.
func New(fetcher Fetcher, opts ...Option) *Selector {
	s := &Selector{
		fetcher:     fetcher,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rnd == nil {
		s.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	s.logger = s.logger.With("component", "selector")
	return s
}

// Draw picks a random problem reference without fetching it.
func (s *Selector) Draw(c Criteria) (model.Ref, error) {
	cands, err := c.candidates()
	if err != nil {
		return model.Ref{}, err
	}
	return s.draw(c, cands), nil
}

func (s *Selector) draw(c Criteria, cands []candidate) model.Ref {
	cand := cands[s.rnd.Intn(len(cands))]
	year := cand.yearMin + s.rnd.Intn(cand.yearMax-cand.yearMin+1)
	pmin, pmax := c.problemRange(cand.level)
	ref := model.Ref{
		Year:   year,
		Level:  cand.level,
		Number: pmin + s.rnd.Intn(pmax-pmin+1),
	}
	if cand.level.HasSplit(year) {
		ref.Split = pick(s.rnd, "A", "B")
	}
	if cand.level.HasSittings(year) {
		ref.Sitting = pick(s.rnd, "I", "II")
	}
	return ref
}

func pick(r *rand.Rand, a, b string) string {
	if r.Intn(2) == 0 {
		return a
	}
	return b
}

// Select draws and fetches problems until one has a well formed answer or the
// attempt bound is reached.
func (s *Selector) Select(ctx context.Context, c Criteria) (model.Problem, error) {
	cands, err := c.candidates()
	if err != nil {
		return model.Problem{}, err
	}
	var last error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.Problem{}, err
		}
		ref := s.draw(c, cands)
		p, err := s.try(ctx, c, ref)
		if err == nil {
			s.logger.Debug("selected problem", "id", ref.ID(), "attempt", attempt)
			return p, nil
		}
		if !retryable(err) {
			return model.Problem{}, err
		}
		s.logger.Info("attempt failed", "id", ref.ID(), "attempt", attempt, "err", err)
		last = err
	}
	return model.Problem{}, &ExhaustedError{Attempts: s.maxAttempts, Last: last}
}

func (s *Selector) try(ctx context.Context, c Criteria, ref model.Ref) (model.Problem, error) {
	id := ref.ID()
	if c.Exclude != nil && c.Exclude(id) {
		return model.Problem{}, fmt.Errorf("%s: %w", id, errRejected)
	}
	content, err := s.fetcher.Fetch(ctx, ref.Path())
	if err != nil {
		return model.Problem{}, err
	}
	answer, ok := scoring.NormalizeAnswer(ref.Level, content.Answer)
	if !ok {
		return model.Problem{}, fmt.Errorf("%s: %w %q", id, errBadAnswer, content.Answer)
	}
	return model.Problem{
		Ref:       ref,
		Statement: content.Statement,
		Solution:  content.Solution,
		Answer:    answer,
	}, nil
}

func retryable(err error) bool {
	return errors.Is(err, proxy.ErrUnavailable) || errors.Is(err, errRejected) || errors.Is(err, errBadAnswer)
}
