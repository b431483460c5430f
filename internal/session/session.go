// Package session models practice and timed test sessions.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/amcq/internal/model"
)

// State is the quiz mode.
type State int

// Quiz modes.
const (
	Practice State = iota
	TestActive
	TestFinished
)

func (s State) String() string {
	switch s {
	case Practice:
		return "practice"
	case TestActive:
		return "test"
	case TestFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Session is one timed test.
type Session struct {
	ID        string
	Kind      Kind
	StartedAt time.Time
	EndedAt   time.Time
	Results   []model.TestResult
}

// New starts a test of kind at now.
func New(kind Kind, now time.Time) *Session {
	return &Session{
		ID:        uuid.NewString(),
		Kind:      kind,
		StartedAt: now,
		Results:   make([]model.TestResult, 0, kind.Problems),
	}
}

// Current is the 1-based number of the problem being answered.
func (s *Session) Current() int {
	return len(s.Results) + 1
}

// Done reports whether every problem has a result.
func (s *Session) Done() bool {
	return len(s.Results) >= s.Kind.Problems
}

// Record appends a result for the current problem and reports whether the
// test is complete. Results beyond the problem count are ignored.
func (s *Session) Record(problemID, answer, correctAnswer string, correct bool) bool {
	if s.Done() {
		return true
	}
	s.Results = append(s.Results, model.TestResult{
		Number:        s.Current(),
		ProblemID:     problemID,
		Answer:        answer,
		CorrectAnswer: correctAnswer,
		Correct:       correct,
	})
	return s.Done()
}

// Finish stamps the end time once.
func (s *Session) Finish(now time.Time) {
	if s.EndedAt.IsZero() {
		s.EndedAt = now
	}
}

// Score sums the point values of correctly answered problems.
func (s *Session) Score() float64 {
	var total float64
	for _, r := range s.Results {
		if r.Correct {
			total += s.Kind.Point(r.Number)
		}
	}
	return total
}

// Elapsed is the time spent, frozen once the test is finished.
func (s *Session) Elapsed(now time.Time) time.Duration {
	end := now
	if !s.EndedAt.IsZero() {
		end = s.EndedAt
	}
	if d := end.Sub(s.StartedAt); d > 0 {
		return d
	}
	return 0
}

// Remaining is the time left before the test expires.
func (s *Session) Remaining(now time.Time) time.Duration {
	if d := s.Kind.Duration - s.Elapsed(now); d > 0 {
		return d
	}
	return 0
}

// ToRecord converts the session into its persisted form.
func (s *Session) ToRecord() model.TestRecord {
	results := make([]model.TestResult, len(s.Results))
	copy(results, s.Results)
	return model.TestRecord{
		ID:        s.ID,
		Level:     s.Kind.Level,
		Score:     s.Score(),
		MaxScore:  s.Kind.MaxScore(),
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Results:   results,
	}
}
