// Package stats contains progress and test history calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/amcq/internal/model"
	"github.com/verte-zerg/amcq/internal/session"
)

const sparkChars = " .:-=+*#%@"

// Percent returns score as a percentage of maxScore.
func Percent(score, maxScore float64) float64 {
	if maxScore <= 0 {
		return 0
	}
	return score / maxScore * 100
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(min(i+1, window))
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline on a fixed 0-100 scale.
func Sparkline(percents []float64) string {
	var b strings.Builder
	last := len(sparkChars) - 1
	for _, v := range percents {
		idx := int(math.Round(v / 100 * float64(last)))
		idx = max(0, min(idx, last))
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// TestPercents returns the score percentage of each test, oldest first.
func TestPercents(tests []model.TestRecord) []float64 {
	out := make([]float64, len(tests))
	for i, t := range tests {
		out[i] = Percent(t.Score, t.MaxScore)
	}
	return out
}

// RenderSummary prints an overview of finished tests.
func RenderSummary(w io.Writer, tests []model.TestRecord) error {
	if len(tests) == 0 {
		_, err := fmt.Fprintln(w, "No tests found.")
		return err
	}
	percents := TestPercents(tests)
	var total, best float64
	for _, p := range percents {
		total += p
		best = max(best, p)
	}
	lines := []string{
		"Summary",
		fmt.Sprintf("Tests: %d", len(tests)),
		fmt.Sprintf("Avg Score: %.1f%%", total/float64(len(tests))),
		fmt.Sprintf("Best Score: %.1f%%", best),
		fmt.Sprintf("Trend: %s", Sparkline(percents)),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTestTable prints one row per finished test.
func RenderTestTable(w io.Writer, tests []model.TestRecord) error {
	if len(tests) == 0 {
		return nil
	}
	headers := []string{"Date", "Test", "Score", "Percent", "Correct", "Time"}
	rows := make([][]string, 0, len(tests))
	for _, t := range tests {
		correct := 0
		for _, r := range t.Results {
			if r.Correct {
				correct++
			}
		}
		rows = append(rows, []string{
			t.StartedAt.Local().Format("2006-01-02 15:04"),
			string(t.Level),
			fmt.Sprintf("%g / %g", t.Score, t.MaxScore),
			fmt.Sprintf("%.1f%%", Percent(t.Score, t.MaxScore)),
			fmt.Sprintf("%d/%d", correct, len(t.Results)),
			session.FormatClock(t.EndedAt.Sub(t.StartedAt).Round(time.Second)),
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{2: true, 3: true, 4: true, 5: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
