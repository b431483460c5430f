// Package quiz owns the application state of a quiz run: mode, streak,
// current problem and the running test.
package quiz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/verte-zerg/amcq/internal/model"
	"github.com/verte-zerg/amcq/internal/problem"
	"github.com/verte-zerg/amcq/internal/proxy"
	"github.com/verte-zerg/amcq/internal/scoring"
	"github.com/verte-zerg/amcq/internal/session"
)

var (
	// ErrNoProblem is returned when there is nothing to answer.
	ErrNoProblem = errors.New("no problem loaded")
	// ErrAnswered is returned for a second submission of a practice problem.
	ErrAnswered = errors.New("problem already answered")
)

// Store is the persistence the controller writes through.
type Store interface {
	LoadSettings(ctx context.Context) (model.Settings, error)
	Streak(ctx context.Context) (int, error)
	SetStreak(ctx context.Context, n int) error
	Progress(ctx context.Context) (map[string]bool, error)
	SetProgress(ctx context.Context, problemID string, correct bool) error
	InsertTest(ctx context.Context, rec model.TestRecord) error
}

// Options configures a Controller.
type Options struct {
	Logger *slog.Logger
	Now    func() time.Time
	// SkipSolved keeps practice draws away from problems answered correctly.
	SkipSolved bool
}

// Outcome is the scored result of the current problem.
type Outcome struct {
	Submitted string
	Expected  string
	Correct   bool
	GaveUp    bool
}

// Summary describes a finished test.
type Summary struct {
	Kind     session.Kind
	Score    float64
	MaxScore float64
	Elapsed  time.Duration
	Results  []model.TestResult
}

// Request is one problem load. Results must be handed back to Deliver with
// the same Gen.
type Request struct {
	Gen      uint64
	Ctx      context.Context
	Criteria problem.Criteria
}

// Controller is the single owner of quiz state. It is not safe for
// concurrent use; the TUI calls it from its update loop only.
type Controller struct {
	store      Store
	logger     *slog.Logger
	now        func() time.Time
	skipSolved bool

	settings model.Settings
	streak   int
	progress map[string]bool

	state     session.State
	test      *session.Session
	summary   *Summary
	countdown session.Countdown

	gen     uint64
	cancel  context.CancelFunc
	loading bool
	pending bool

	problem *model.Problem
	outcome *Outcome
	loadErr error
	notice  string
}

// New loads settings, streak and progress from store.
func New(ctx context.Context, store Store, opts Options) (*Controller, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		store:      store,
		logger:     logger.With("component", "quiz"),
		now:        now,
		skipSolved: opts.SkipSolved,
		state:      session.Practice,
		pending:    true,
	}

	settings, err := store.LoadSettings(ctx)
	if err != nil {
		// LoadSettings falls back to defaults on corrupt data.
		c.logger.Warn("failed to load settings, using defaults", "err", err)
		settings = model.DefaultSettings()
	}
	c.settings = settings.Normalize()
	if c.streak, err = store.Streak(ctx); err != nil {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}
	if c.progress, err = store.Progress(ctx); err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	return c, nil
}

// Settings returns the active settings.
func (c *Controller) Settings() model.Settings { return c.settings }

// State returns the current mode.
func (c *Controller) State() session.State { return c.state }

// Streak returns the practice streak.
func (c *Controller) Streak() int { return c.streak }

// Loading reports whether a problem load is in flight.
func (c *Controller) Loading() bool { return c.loading }

// Pending reports whether the controller wants a new problem loaded.
func (c *Controller) Pending() bool { return c.pending }

// PracticeCriteria builds selector criteria from the settings.
func (c *Controller) PracticeCriteria() problem.Criteria {
	crit := problem.FromSettings(c.settings)
	if c.skipSolved {
		progress := c.progress
		crit.Exclude = func(id string) bool { return progress[id] }
	}
	return crit
}

// TestCriteria builds criteria for the current test problem.
func (c *Controller) TestCriteria() (problem.Criteria, bool) {
	if c.state != session.TestActive || c.test == nil || c.test.Done() {
		return problem.Criteria{}, false
	}
	return problem.ForTestProblem(c.test.Kind.Level, c.test.Current()), true
}

// CanRequest reports whether the user may ask for another problem. A test
// problem can only be re-requested after its load failed.
func (c *Controller) CanRequest() bool {
	switch c.state {
	case session.Practice:
		return true
	case session.TestActive:
		return c.problem == nil && !c.loading
	default:
		return false
	}
}

// Begin starts a new problem load, superseding any load in flight. It returns
// false when the current mode has nothing to load.
func (c *Controller) Begin(parent context.Context) (Request, bool) {
	var crit problem.Criteria
	switch c.state {
	case session.Practice:
		crit = c.PracticeCriteria()
	case session.TestActive:
		var ok bool
		if crit, ok = c.TestCriteria(); !ok {
			return Request{}, false
		}
	default:
		return Request{}, false
	}
	c.supersede()
	ctx, cancel := context.WithCancel(parent)
	c.cancel = cancel
	c.loading = true
	c.pending = false
	if c.state == session.Practice {
		c.countdown.Stop()
	}
	return Request{Gen: c.gen, Ctx: ctx, Criteria: crit}, true
}

// supersede invalidates the load in flight and clears the problem slot.
func (c *Controller) supersede() {
	c.gen++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.loading = false
	c.problem = nil
	c.outcome = nil
	c.loadErr = nil
	c.notice = ""
}

// Deliver applies the result of the load identified by gen. Results of
// superseded loads are discarded and Deliver returns false.
func (c *Controller) Deliver(gen uint64, p model.Problem, err error) bool {
	if gen != c.gen || !c.loading {
		c.logger.Debug("discarding stale problem", "gen", gen, "current", c.gen)
		return false
	}
	c.loading = false
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if err != nil {
		c.loadErr = err
		c.logger.Warn("failed to load problem", "err", err)
		return true
	}
	c.problem = &p
	if c.state == session.Practice && c.settings.TimerMinutes > 0 {
		c.countdown.Start(time.Duration(c.settings.TimerMinutes)*time.Minute, c.now())
	}
	return true
}

// Problem returns the loaded problem.
func (c *Controller) Problem() (model.Problem, bool) {
	if c.problem == nil {
		return model.Problem{}, false
	}
	return *c.problem, true
}

// Label names the current problem for display.
func (c *Controller) Label() string {
	if c.state == session.TestActive && c.test != nil {
		return fmt.Sprintf("%s - Problem %d of %d", c.test.Kind.Level, c.test.Current(), c.test.Kind.Problems)
	}
	if c.problem == nil {
		return ""
	}
	return c.problem.Ref.Label()
}

// Body is the problem text, or a message shown in its place.
func (c *Controller) Body() string {
	switch {
	case c.state == session.TestFinished:
		return ""
	case c.loading:
		return "Loading problem..."
	case c.loadErr != nil:
		return describe(c.loadErr)
	case c.problem == nil:
		if c.notice != "" {
			return c.notice
		}
		return "No problem loaded."
	}
	return proxy.ToText(c.problem.Statement)
}

// Solution returns the solution text once a practice problem is answered.
func (c *Controller) Solution() (string, bool) {
	if c.problem == nil || c.outcome == nil || c.state != session.Practice {
		return "", false
	}
	text := proxy.ToText(c.problem.Solution)
	return text, text != ""
}

// Outcome returns the result of the current practice problem.
func (c *Controller) Outcome() (Outcome, bool) {
	if c.outcome == nil {
		return Outcome{}, false
	}
	return *c.outcome, true
}

// ResultMessage is the verdict line for the current problem.
func (c *Controller) ResultMessage() string {
	o := c.outcome
	switch {
	case o == nil:
		return c.notice
	case o.GaveUp:
		return "The correct answer is: " + o.Expected
	case o.Correct:
		return "✓ Correct!"
	default:
		return "✗ Incorrect. The correct answer is: " + o.Expected
	}
}

// Feedback validates raw without submitting it. It returns "" for an
// acceptable answer.
func (c *Controller) Feedback(raw string) string {
	if c.problem == nil {
		return ""
	}
	level := c.problem.Ref.Level
	if scoring.ValidShape(level, scoring.Normalize(level, raw)) {
		return ""
	}
	if level.IsAIME() {
		return "Answer with an integer from 0 to 999."
	}
	return "Answer with one letter, A to E."
}

// Remaining returns the countdown value and whether a countdown is shown.
func (c *Controller) Remaining(now time.Time) (time.Duration, bool) {
	if c.state == session.TestActive && c.test != nil {
		return c.test.Remaining(now), true
	}
	if c.countdown.Running() {
		return c.countdown.Remaining(now), true
	}
	return 0, false
}

// Summary returns the report of a finished test.
func (c *Controller) Summary() (Summary, bool) {
	if c.state != session.TestFinished || c.summary == nil {
		return Summary{}, false
	}
	return *c.summary, true
}

// Submit scores raw against the current problem. A malformed answer returns
// scoring.ErrInvalidShape and changes nothing.
func (c *Controller) Submit(ctx context.Context, raw string) error {
	return c.submit(ctx, raw, false, false)
}

// GiveUp scores the current problem as incorrect without an answer.
func (c *Controller) GiveUp(ctx context.Context) error {
	return c.submit(ctx, "", true, true)
}

func (c *Controller) submit(ctx context.Context, raw string, forced, gaveUp bool) error {
	if c.problem == nil || c.loading {
		return ErrNoProblem
	}
	if c.state == session.Practice && c.outcome != nil {
		return ErrAnswered
	}
	p := c.problem
	v, err := scoring.Check(p.Ref.Level, raw, p.Answer, forced)
	if err != nil {
		return err
	}
	correct := v.Correct && !gaveUp

	switch c.state {
	case session.TestActive:
		c.recordTest(ctx, p.Ref.ID(), v.Submitted, p.Answer, correct)
		return nil
	case session.Practice:
		c.countdown.Stop()
		c.outcome = &Outcome{Submitted: v.Submitted, Expected: p.Answer, Correct: correct, GaveUp: gaveUp}
		return c.scorePractice(ctx, p.Ref.ID(), correct)
	default:
		return ErrNoProblem
	}
}

func (c *Controller) scorePractice(ctx context.Context, id string, correct bool) error {
	if correct {
		c.streak++
	} else {
		c.streak = 0
	}
	c.progress[id] = correct
	if err := c.store.SetStreak(ctx, c.streak); err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	if err := c.store.SetProgress(ctx, id, correct); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	c.logger.Debug("scored practice problem", "id", id, "correct", correct, "streak", c.streak)
	return nil
}

// recordTest appends a result and either queues the next problem or
// finishes the test.
func (c *Controller) recordTest(ctx context.Context, id, answer, expected string, correct bool) {
	done := c.test.Record(id, answer, expected, correct)
	if done {
		c.finishTest(ctx, c.now())
		return
	}
	c.supersede()
	c.pending = true
}

// Tick advances timers. raw is the text in the answer field, submitted as is
// when a test runs out of time.
func (c *Controller) Tick(ctx context.Context, now time.Time, raw string) {
	switch c.state {
	case session.TestActive:
		if c.test.Remaining(now) > 0 {
			return
		}
		id, expected := "", ""
		answer := ""
		if c.problem != nil {
			id, expected = c.problem.Ref.ID(), c.problem.Answer
			answer = scoring.Normalize(c.problem.Ref.Level, raw)
		}
		correct := answer != "" && answer == expected
		c.test.Record(id, answer, expected, correct)
		c.finishTest(ctx, now)
	case session.Practice:
		if !c.countdown.Expired(now) {
			return
		}
		c.countdown.Stop()
		c.supersede()
		c.notice = "Time is up!"
		c.pending = true
	}
}

func (c *Controller) finishTest(ctx context.Context, now time.Time) {
	c.supersede()
	c.countdown.Stop()
	c.test.Finish(now)
	rec := c.test.ToRecord()
	c.summary = &Summary{
		Kind:     c.test.Kind,
		Score:    rec.Score,
		MaxScore: rec.MaxScore,
		Elapsed:  c.test.Elapsed(now),
		Results:  rec.Results,
	}
	c.state = session.TestFinished
	c.pending = false
	if err := c.store.InsertTest(ctx, rec); err != nil {
		c.logger.Error("failed to save test", "id", rec.ID, "err", err)
		c.notice = "Test result could not be saved."
	}
	c.logger.Info("test finished", "id", rec.ID, "level", rec.Level, "score", rec.Score)
}

// StartTest begins a timed test of the type named by input. Unknown types
// leave the controller in practice mode and return false.
func (c *Controller) StartTest(input string) bool {
	kind, err := session.ParseKind(input)
	if err != nil {
		c.logger.Debug("ignoring unknown test type", "input", input)
		if c.state != session.Practice {
			c.SwitchToPractice()
		}
		return false
	}
	c.supersede()
	c.countdown.Stop()
	c.summary = nil
	c.test = session.New(kind, c.now())
	c.state = session.TestActive
	c.pending = true
	c.logger.Info("test started", "id", c.test.ID, "level", kind.Level)
	return true
}

// Dismiss closes a finished test summary and returns to practice.
func (c *Controller) Dismiss() {
	if c.state != session.TestFinished {
		return
	}
	c.SwitchToPractice()
}

// SwitchToPractice abandons any test and queues a practice problem.
func (c *Controller) SwitchToPractice() {
	if c.state != session.Practice {
		c.supersede()
	}
	c.countdown.Stop()
	c.test = nil
	c.summary = nil
	c.state = session.Practice
	c.pending = true
}

func describe(err error) string {
	switch {
	case errors.Is(err, problem.ErrNoLevels):
		return "Please select at least one competition level (amcq settings --levels)."
	case errors.Is(err, problem.ErrEmptyYearRange):
		return "None of the enabled competitions was held in the configured years. Adjust them with amcq settings."
	case errors.Is(err, problem.ErrExhausted):
		return "Error loading problem. Please try again."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "Loading was cancelled."
	default:
		return "Error loading problem: " + err.Error()
	}
}
