package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/verte-zerg/amcq/internal/model"
)

// LevelStat aggregates the progress map for one level.
type LevelStat struct {
	Level     model.Level
	Correct   int
	Incorrect int
}

// Attempted is the number of distinct problems with a recorded answer.
func (s LevelStat) Attempted() int {
	return s.Correct + s.Incorrect
}

// Accuracy is the share of attempted problems last answered correctly.
func (s LevelStat) Accuracy() float64 {
	if s.Attempted() == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Attempted())
}

// LevelStats groups entries by level, weakest level first. Entries with
// unparseable ids are skipped.
func LevelStats(entries []model.ProgressEntry) []LevelStat {
	byLevel := map[model.Level]*LevelStat{}
	for _, e := range entries {
		ref, err := model.ParseID(e.ProblemID)
		if err != nil {
			continue
		}
		st, ok := byLevel[ref.Level]
		if !ok {
			st = &LevelStat{Level: ref.Level}
			byLevel[ref.Level] = st
		}
		if e.Correct {
			st.Correct++
		} else {
			st.Incorrect++
		}
	}
	out := make([]LevelStat, 0, len(byLevel))
	for _, st := range byLevel {
		out = append(out, *st)
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := out[i].Accuracy(), out[j].Accuracy()
		if ai == aj {
			return out[i].Level < out[j].Level
		}
		return ai < aj
	})
	return out
}

// RenderLevelTable prints per-level accuracy.
func RenderLevelTable(w io.Writer, levels []LevelStat) error {
	if len(levels) == 0 {
		_, err := fmt.Fprintln(w, "No progress recorded.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Per-Level"); err != nil {
		return err
	}
	headers := []string{"Level", "Accuracy", "Attempted", "Correct", "Incorrect"}
	rows := make([][]string, 0, len(levels))
	for _, l := range levels {
		rows = append(rows, []string{
			string(l.Level),
			fmt.Sprintf("%.2f%%", l.Accuracy()*100),
			fmt.Sprintf("%d", l.Attempted()),
			fmt.Sprintf("%d", l.Correct),
			fmt.Sprintf("%d", l.Incorrect),
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{1: true, 2: true, 3: true, 4: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}
