package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verte-zerg/amcq/internal/model"
)

var t0 = time.Date(2024, 11, 7, 8, 0, 0, 0, time.UTC)

func TestParseKind(t *testing.T) {
	cases := map[string]model.Level{
		"AMC10":    model.AMC10,
		"amc 12":   model.AMC12,
		" Amc8 ":   model.AMC8,
		"aime":     model.AIME,
		"AIME II":  model.AIME,
		"2019AIME": model.AIME,
	}
	for in, want := range cases {
		k, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, k.Level, in)
	}
	for _, in := range []string{"", "AMC 9", "USAMO", "10"} {
		_, err := ParseKind(in)
		assert.ErrorIs(t, err, ErrUnknownKind, in)
	}
}

func TestKindTables(t *testing.T) {
	amc8, _ := KindOf(model.AMC8)
	amc10, _ := KindOf(model.AMC10)
	aime, _ := KindOf(model.AIME)

	assert.Equal(t, 40*time.Minute, amc8.Duration)
	assert.Equal(t, 75*time.Minute, amc10.Duration)
	assert.Equal(t, 180*time.Minute, aime.Duration)
	assert.Equal(t, 15, aime.Problems)

	assert.InDelta(t, 25.0, amc8.MaxScore(), 1e-9)
	assert.InDelta(t, 37.5, amc10.MaxScore(), 1e-9)
	assert.InDelta(t, 15.0, aime.MaxScore(), 1e-9)

	assert.Equal(t, 1.0, amc10.Point(10))
	assert.Equal(t, 1.5, amc10.Point(11))
	assert.Equal(t, 2.0, amc10.Point(25))
	assert.Equal(t, 0.0, amc10.Point(26))
}

func answerAll(s *Session, correct func(n int) bool) {
	for !s.Done() {
		n := s.Current()
		s.Record(fmt.Sprintf("p%d", n), "A", "A", correct(n))
	}
}

func TestScoreAllCorrectGraduated(t *testing.T) {
	kind, _ := KindOf(model.AMC12)
	s := New(kind, t0)
	answerAll(s, func(int) bool { return true })
	assert.InDelta(t, 37.5, s.Score(), 1e-9)
}

func TestScoreLastFiveWrong(t *testing.T) {
	kind, _ := KindOf(model.AMC10)
	s := New(kind, t0)
	answerAll(s, func(n int) bool { return n <= 20 })
	require.Len(t, s.Results, 25)
	assert.InDelta(t, 25.0, s.Score(), 1e-9)
}

func TestRecordStopsAtProblemCount(t *testing.T) {
	kind, _ := KindOf(model.AIME)
	s := New(kind, t0)
	for i := 1; i < 15; i++ {
		assert.False(t, s.Record("x", "001", "001", true))
	}
	assert.True(t, s.Record("x", "001", "001", true))
	assert.True(t, s.Record("extra", "", "001", false))
	assert.Len(t, s.Results, 15)
	assert.Equal(t, 15, s.Results[14].Number)
}

func TestElapsedAndRemaining(t *testing.T) {
	kind, _ := KindOf(model.AMC8)
	s := New(kind, t0)
	now := t0.Add(90 * time.Second)
	assert.Equal(t, 90*time.Second, s.Elapsed(now))
	assert.Equal(t, 40*time.Minute-90*time.Second, s.Remaining(now))

	s.Finish(now)
	s.Finish(now.Add(time.Hour))
	assert.Equal(t, 90*time.Second, s.Elapsed(now.Add(time.Hour)))
	assert.Equal(t, time.Duration(0), s.Remaining(t0.Add(2*time.Hour)))
}

func TestToRecord(t *testing.T) {
	kind, _ := KindOf(model.AMC10)
	s := New(kind, t0)
	s.Record("2010_AMC_10A_1", "B", "B", true)
	s.Record("2011_AMC_10B_2", "", "C", false)
	s.Finish(t0.Add(time.Minute))

	rec := s.ToRecord()
	assert.Equal(t, s.ID, rec.ID)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, model.AMC10, rec.Level)
	assert.InDelta(t, 1.0, rec.Score, 1e-9)
	assert.InDelta(t, 37.5, rec.MaxScore, 1e-9)
	assert.Len(t, rec.Results, 2)
	assert.Equal(t, t0.Add(time.Minute), rec.EndedAt)
}

func TestCountdown(t *testing.T) {
	var c Countdown
	assert.False(t, c.Running())
	assert.False(t, c.Expired(t0))
	c.Stop()

	c.Start(time.Minute, t0)
	assert.True(t, c.Running())
	assert.Equal(t, time.Minute, c.Remaining(t0))
	assert.Equal(t, 31*time.Second, c.Remaining(t0.Add(29500*time.Millisecond)))
	assert.False(t, c.Expired(t0.Add(59*time.Second)))
	assert.True(t, c.Expired(t0.Add(time.Minute)))
	assert.Equal(t, time.Duration(0), c.Remaining(t0.Add(2*time.Minute)))

	c.Stop()
	c.Stop()
	assert.False(t, c.Running())
	assert.False(t, c.Expired(t0.Add(2*time.Minute)))
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "0:00", FormatClock(0))
	assert.Equal(t, "1:05", FormatClock(65*time.Second))
	assert.Equal(t, "59:59", FormatClock(time.Hour-time.Second))
	assert.Equal(t, "1:15:00", FormatClock(75*time.Minute))
	assert.Equal(t, "1:00:00", FormatClock(time.Hour))
	assert.Equal(t, "3:00:00", FormatClock(180*time.Minute))
}
