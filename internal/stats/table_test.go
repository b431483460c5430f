package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"Level", "Accuracy", "Correct"}
	rows := [][]string{
		{"AIME", "97.50%", "12"},
		{"AMC10", "8.00%", "3"},
	}
	rightAlign := map[int]bool{1: true, 2: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != "Level Accuracy Correct" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != "AIME    97.50%      12" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "AMC10    8.00%       3" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"A", "B"}, [][]string{{"ab", "x"}, {"漢", "y"}}, nil)
	if lines[1] != "ab x" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "漢 y" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}
