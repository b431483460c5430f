package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/amcq/internal/model"
)

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{10, 20, 30, 40}, 2)
	want := []float64{10, 15, 25, 35}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: expected %v, got %v", i, want[i], got[i])
		}
	}
	if out := MovingAverage(nil, 3); len(out) != 0 {
		t.Fatalf("expected empty output")
	}
}

func TestSparklineFixedScale(t *testing.T) {
	if got := Sparkline([]float64{0, 50, 100}); got != " +@" {
		t.Fatalf("unexpected sparkline: %q", got)
	}
	if got := Sparkline([]float64{-5, 140}); got != " @" {
		t.Fatalf("expected clamped sparkline, got %q", got)
	}
}

func sampleTests() []model.TestRecord {
	start := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	return []model.TestRecord{
		{
			ID: "a", Level: model.AMC10, Score: 25, MaxScore: 37.5,
			StartedAt: start, EndedAt: start.Add(70 * time.Minute),
			Results: []model.TestResult{{Number: 1, Correct: true}, {Number: 2}},
		},
		{
			ID: "b", Level: model.AIME, Score: 15, MaxScore: 15,
			StartedAt: start.Add(24 * time.Hour), EndedAt: start.Add(24*time.Hour + 95*time.Second),
			Results: []model.TestResult{{Number: 1, Correct: true}},
		},
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderSummary(&buf, sampleTests()); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Tests: 2", "Avg Score: 83.3%", "Best Score: 100.0%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}

	buf.Reset()
	if err := RenderSummary(&buf, nil); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "No tests found.\n" {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestRenderTestTable(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderTestTable(&buf, sampleTests()); err != nil {
		t.Fatalf("render: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[1], "AMC10") || !strings.Contains(lines[1], "25 / 37.5") || !strings.Contains(lines[1], "1:10:00") {
		t.Fatalf("unexpected first row: %q", lines[1])
	}
	if !strings.Contains(lines[2], "100.0%") || !strings.HasSuffix(lines[2], "1:35") {
		t.Fatalf("unexpected second row: %q", lines[2])
	}
}
