package stats

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// TopMissed returns up to n matrix groups with the most missed problems.
func TopMissed(groups []MatrixGroup, n int) []MatrixGroup {
	if n <= 0 || len(groups) == 0 {
		return nil
	}
	type item struct {
		group  MatrixGroup
		missed int
	}
	items := make([]item, 0, len(groups))
	for _, g := range groups {
		missed := countMarks(g, Missed)
		if missed == 0 {
			continue
		}
		items = append(items, item{group: g, missed: missed})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].missed > items[j].missed
	})
	n = min(n, len(items))
	out := make([]MatrixGroup, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, items[i].group)
	}
	return out
}

func countMarks(g MatrixGroup, m Mark) int {
	count := 0
	for _, mark := range g.Marks {
		if mark == m {
			count++
		}
	}
	return count
}

// RenderTopMissed prints the sittings with the most missed problems.
func RenderTopMissed(w io.Writer, groups []MatrixGroup, n int) error {
	top := TopMissed(groups, n)
	if len(top) == 0 {
		return nil
	}
	parts := make([]string, 0, len(top))
	for _, g := range top {
		parts = append(parts, fmt.Sprintf("%s (%d)", g.Title(), countMarks(g, Missed)))
	}
	_, err := fmt.Fprintf(w, "Most missed: %s\n\n", strings.Join(parts, ", "))
	return err
}
