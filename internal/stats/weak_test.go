package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/verte-zerg/amcq/internal/model"
)

func TestLevelStatsWeakestFirst(t *testing.T) {
	entries := []model.ProgressEntry{
		{ProblemID: "2010_AMC_10A_5", Correct: true},
		{ProblemID: "2011_AMC_10B_6", Correct: true},
		{ProblemID: "2012_AIME_II_7", Correct: false},
		{ProblemID: "2013_AIME_I_8", Correct: true},
		{ProblemID: "2014_AMC_8_9", Correct: false},
	}
	levels := LevelStats(entries)
	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	if levels[0].Level != model.AMC8 || levels[1].Level != model.AIME || levels[2].Level != model.AMC10 {
		t.Fatalf("unexpected order: %+v", levels)
	}
	if levels[1].Attempted() != 2 || levels[1].Accuracy() != 0.5 {
		t.Fatalf("unexpected AIME stats: %+v", levels[1])
	}

	var buf bytes.Buffer
	if err := RenderLevelTable(&buf, levels); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "AMC10  100.00%") {
		t.Fatalf("unexpected table: %q", buf.String())
	}
}
