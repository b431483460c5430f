package tui

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// wrapText word-wraps each paragraph of text to width display columns.
// Words wider than width are broken.
func wrapText(text string, width int) string {
	if width <= 0 {
		return text
	}
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, wrapLine(line, width)...)
	}
	return strings.Join(out, "\n")
}

func wrapLine(line string, width int) []string {
	if runewidth.StringWidth(line) <= width {
		return []string{line}
	}
	var out []string
	var cur []rune
	curWidth := 0
	lastSpace := -1
	for _, r := range line {
		w := runewidth.RuneWidth(r)
		if curWidth+w > width && len(cur) > 0 {
			if lastSpace >= 0 {
				out = append(out, string(cur[:lastSpace]))
				cur = append([]rune{}, cur[lastSpace+1:]...)
			} else {
				out = append(out, string(cur))
				cur = cur[:0]
			}
			curWidth = runewidth.StringWidth(string(cur))
			lastSpace = lastSpaceIndex(cur)
		}
		if r == ' ' && len(cur) == 0 {
			continue
		}
		cur = append(cur, r)
		curWidth += w
		if r == ' ' {
			lastSpace = len(cur) - 1
		}
	}
	if len(cur) > 0 {
		out = append(out, strings.TrimRight(string(cur), " "))
	}
	return out
}

func lastSpaceIndex(line []rune) int {
	for i := len(line) - 1; i >= 0; i-- {
		if line[i] == ' ' {
			return i
		}
	}
	return -1
}
