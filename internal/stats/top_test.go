package stats

import (
	"bytes"
	"testing"
)

func TestTopMissed(t *testing.T) {
	groups := []MatrixGroup{
		{Year: 2012, Competition: "AMC 10A", Marks: []Mark{Missed, Solved, Missed}},
		{Year: 2011, Competition: "AIME I", Marks: []Mark{Solved, Solved, Unseen}},
		{Year: 2010, Competition: "AMC 8", Marks: []Mark{Missed, Missed, Missed}},
	}
	top := TopMissed(groups, 5)
	if len(top) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(top))
	}
	if top[0].Title() != "2010 AMC 8" || top[1].Title() != "2012 AMC 10A" {
		t.Fatalf("unexpected order: %v", top)
	}

	var buf bytes.Buffer
	if err := RenderTopMissed(&buf, groups, 1); err != nil {
		t.Fatalf("render: %v", err)
	}
	if got := buf.String(); got != "Most missed: 2010 AMC 8 (3)\n\n" {
		t.Fatalf("unexpected output: %q", got)
	}
}
