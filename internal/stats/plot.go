package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

// Series represents a named percentage series for plotting.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight   = 8
	minPlotWidth        = 10
	axisWidth           = 7
	colorReset          = "\x1b[0m"
	terminalWidthBackup = 80
)

var seriesColors = []string{"\x1b[36m", "\x1b[33m", "\x1b[35m"}

// PlotWidthFor computes a plot width that fits within the total available width.
func PlotWidthFor(totalWidth int) int {
	if totalWidth <= 0 {
		return minPlotWidth
	}
	return max(minPlotWidth, totalWidth-axisWidth)
}

// TerminalWidth returns the width of stdout, or 80 when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// UseColor reports whether w is a terminal that should receive ANSI colors.
func UseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

// PlotPercents renders series on a shared 0-100% axis using braille dots,
// two dots per column and four per row.
func PlotPercents(w io.Writer, title string, series []Series, width, height int, useColor bool) error {
	if len(series) == 0 || len(series[0].Values) == 0 {
		return nil
	}
	if height <= 0 {
		height = defaultPlotHeight
	}
	width = max(width, minPlotWidth)

	grid := make([][]uint8, height)
	owner := make([][]int, height)
	for y := range grid {
		grid[y] = make([]uint8, width)
		owner[y] = make([]int, width)
		for x := range owner[y] {
			owner[y][x] = -1
		}
	}
	dotsX, dotsY := width*2, height*4
	for si, s := range series {
		points := resample(s.Values, dotsX)
		prev := -1
		for x, v := range points {
			y := int(math.Round((1 - clampPercent(v)/100) * float64(dotsY-1)))
			lo, hi := y, y
			if prev >= 0 {
				lo, hi = min(prev, y), max(prev, y)
			}
			for dy := lo; dy <= hi; dy++ {
				cx, cy := x/2, dy/4
				grid[cy][cx] |= brailleDot(x%2, dy%4)
				if owner[cy][cx] < 0 {
					owner[cy][cx] = si
				}
			}
			prev = y
		}
	}

	if title != "" {
		if _, err := fmt.Fprintln(w, title); err != nil {
			return err
		}
	}
	for y := 0; y < height; y++ {
		var row strings.Builder
		row.WriteString(axisLabel(y, height))
		for x := 0; x < width; x++ {
			ch := rune(0x2800 + int(grid[y][x]))
			if useColor && owner[y][x] >= 0 {
				row.WriteString(seriesColors[owner[y][x]%len(seriesColors)])
				row.WriteRune(ch)
				row.WriteString(colorReset)
				continue
			}
			row.WriteRune(ch)
		}
		if _, err := fmt.Fprintln(w, row.String()); err != nil {
			return err
		}
	}
	names := make([]string, 0, len(series))
	for i, s := range series {
		name := s.Name
		if useColor {
			name = seriesColors[i%len(seriesColors)] + name + colorReset
		}
		names = append(names, name)
	}
	_, err := fmt.Fprintf(w, "Legend: %s\n\n", strings.Join(names, ", "))
	return err
}

func axisLabel(y, height int) string {
	label := ""
	switch {
	case y == 0:
		label = "100%"
	case y == height-1:
		label = "0%"
	case height > 2 && y == height/2:
		label = "50%"
	}
	return fmt.Sprintf("%4s │ ", label)
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// resample stretches or averages values to exactly n points.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	if len(values) == 1 {
		for i := range out {
			out[i] = values[0]
		}
		return out
	}
	if len(values) > n {
		for i := range out {
			start := i * len(values) / n
			end := max((i+1)*len(values)/n, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
		return out
	}
	for i := range out {
		pos := float64(i) * float64(len(values)-1) / float64(max(n-1, 1))
		idx := min(int(pos), len(values)-2)
		frac := pos - float64(idx)
		out[i] = values[idx]*(1-frac) + values[idx+1]*frac
	}
	return out
}

// brailleDot maps a dot inside a 2x4 braille cell to its bit.
func brailleDot(x, y int) uint8 {
	if y == 3 {
		return uint8(0x40 << x)
	}
	return uint8(1 << (y + 3*x))
}
