package stats

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/amcq/internal/model"
)

// Mark is the state of one matrix cell.
type Mark int

// Matrix cell states.
const (
	Unseen Mark = iota
	Solved
	Missed
)

// MatrixGroup is one sitting (year and competition) of the progress matrix.
type MatrixGroup struct {
	Year        int
	Competition string
	Level       model.Level
	// Marks is indexed by problem number minus one.
	Marks []Mark
}

// Title is the group heading, e.g. "2010 AMC 10A".
func (g MatrixGroup) Title() string {
	return fmt.Sprintf("%d %s", g.Year, g.Competition)
}

// BuildMatrix groups progress entries by year and competition, newest year
// first.
func BuildMatrix(entries []model.ProgressEntry) []MatrixGroup {
	type key struct {
		year int
		comp string
	}
	groups := map[key]*MatrixGroup{}
	for _, e := range entries {
		ref, err := model.ParseID(e.ProblemID)
		if err != nil {
			continue
		}
		k := key{year: ref.Year, comp: ref.Competition()}
		g, ok := groups[k]
		if !ok {
			g = &MatrixGroup{
				Year:        ref.Year,
				Competition: k.comp,
				Level:       ref.Level,
				Marks:       make([]Mark, ref.Level.ProblemCount()),
			}
			groups[k] = g
		}
		if ref.Number < 1 || ref.Number > len(g.Marks) {
			continue
		}
		if e.Correct {
			g.Marks[ref.Number-1] = Solved
		} else {
			g.Marks[ref.Number-1] = Missed
		}
	}
	out := make([]MatrixGroup, 0, len(groups))
	for _, g := range groups {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Competition < out[j].Competition
	})
	return out
}

var (
	solvedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	missedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	unseenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

const cellWidth = 4

func renderCell(n int, m Mark, useColor bool) string {
	var mark string
	var style lipgloss.Style
	switch m {
	case Solved:
		mark, style = "✓", solvedStyle
	case Missed:
		mark, style = "✗", missedStyle
	default:
		mark, style = "·", unseenStyle
	}
	cell := fmt.Sprintf("%2d%s", n, mark)
	if useColor {
		return style.Render(cell)
	}
	return cell
}

// RenderMatrix prints the progress matrix, wrapping cells to width columns.
func RenderMatrix(w io.Writer, groups []MatrixGroup, width int, useColor bool) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "No progress recorded.")
		return err
	}
	perLine := max(1, (width+1)/cellWidth)
	for _, g := range groups {
		if _, err := fmt.Fprintln(w, g.Title()); err != nil {
			return err
		}
		cells := make([]string, 0, perLine)
		for i, m := range g.Marks {
			cells = append(cells, renderCell(i+1, m, useColor))
			if len(cells) == perLine || i == len(g.Marks)-1 {
				if _, err := fmt.Fprintln(w, strings.Join(cells, " ")); err != nil {
					return err
				}
				cells = cells[:0]
			}
		}
		if _, err := fmt.Fprintln(w, ""); err != nil {
			return err
		}
	}
	return nil
}
