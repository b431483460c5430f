// Package model defines shared data structures.
package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Level is a competition variant.
type Level string

// Supported competition levels.
const (
	AMC8  Level = "AMC8"
	AMC10 Level = "AMC10"
	AMC12 Level = "AMC12"
	AIME  Level = "AIME"
)

// Year bounds across all levels.
const (
	FirstYear  = 1983
	LatestYear = 2024
)

// AllLevels lists every supported level in display order.
var AllLevels = []Level{AMC8, AMC10, AMC12, AIME}

// ParseLevel parses a level name. It accepts "AMC 10", "amc10" and the bare
// numbers "8", "10" and "12".
func ParseLevel(s string) (Level, error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(s), ""))
	switch norm {
	case "AMC8", "8":
		return AMC8, nil
	case "AMC10", "10":
		return AMC10, nil
	case "AMC12", "12":
		return AMC12, nil
	case "AIME":
		return AIME, nil
	}
	return "", fmt.Errorf("unknown level %q", s)
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// IsAIME reports whether answers are three-digit numerals.
func (l Level) IsAIME() bool {
	return l == AIME
}

// ProblemCount is the number of problems in one sitting.
func (l Level) ProblemCount() int {
	if l == AIME {
		return 15
	}
	return 25
}

// YearBounds returns the inclusive range of years the level was held.
func (l Level) YearBounds() (int, int) {
	if l == AIME {
		return FirstYear, LatestYear
	}
	return 2000, LatestYear
}

// HasSplit reports whether the level had parallel A/B versions in year.
func (l Level) HasSplit(year int) bool {
	return (l == AMC10 || l == AMC12) && year >= 2002
}

// HasSittings reports whether the AIME had two sittings (I and II) in year.
func (l Level) HasSittings(year int) bool {
	return l == AIME && year >= 2000
}

func (l Level) amcNumber() string {
	return strings.TrimPrefix(string(l), "AMC")
}

// Settings are the persisted quiz preferences.
type Settings struct {
	Levels         []Level `json:"levels"`
	YearMin        int     `json:"yearMin"`
	YearMax        int     `json:"yearMax"`
	ProblemMin     int     `json:"problemMin"`
	ProblemMax     int     `json:"problemMax"`
	AIMEProblemMin int     `json:"aimeProblemMin"`
	AIMEProblemMax int     `json:"aimeProblemMax"`
	TimerMinutes   int     `json:"timerMinutes"`
}

// DefaultSettings returns the settings used before the user changes anything.
func DefaultSettings() Settings {
	return Settings{
		Levels:         []Level{AMC8, AMC10, AMC12, AIME},
		YearMin:        2000,
		YearMax:        2020,
		ProblemMin:     1,
		ProblemMax:     25,
		AIMEProblemMin: 1,
		AIMEProblemMax: 15,
		TimerMinutes:   0,
	}
}

// Normalize clamps every range so that min <= max and problem numbers exist.
func (s Settings) Normalize() Settings {
	out := s
	seen := make(map[Level]struct{}, len(s.Levels))
	out.Levels = make([]Level, 0, len(s.Levels))
	for _, l := range s.Levels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out.Levels = append(out.Levels, l)
	}
	if out.YearMin > out.YearMax {
		out.YearMin = out.YearMax
	}
	out.ProblemMin, out.ProblemMax = clampRange(out.ProblemMin, out.ProblemMax, 1, 25)
	out.AIMEProblemMin, out.AIMEProblemMax = clampRange(out.AIMEProblemMin, out.AIMEProblemMax, 1, 15)
	if out.TimerMinutes < 0 {
		out.TimerMinutes = 0
	}
	return out
}

// ProblemRange returns the configured problem numbers for level.
func (s Settings) ProblemRange(l Level) (int, int) {
	if l.IsAIME() {
		return s.AIMEProblemMin, s.AIMEProblemMax
	}
	return s.ProblemMin, s.ProblemMax
}

// HasLevel reports whether l is enabled.
func (s Settings) HasLevel(l Level) bool {
	for _, enabled := range s.Levels {
		if enabled == l {
			return true
		}
	}
	return false
}

func clampRange(lo, hi, floor, ceil int) (int, int) {
	hi = clampInt(hi, floor, ceil)
	lo = clampInt(lo, floor, ceil)
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Ref identifies one competition problem.
type Ref struct {
	Year    int
	Level   Level
	Split   string // "A", "B" or empty
	Sitting string // "I", "II" or empty
	Number  int
}

// Path builds the content proxy path for the problem page.
func (r Ref) Path() string {
	if r.Level.IsAIME() {
		sitting := ""
		if r.Sitting != "" {
			sitting = r.Sitting + "_"
		}
		return fmt.Sprintf("%d_AIME_%sProblems_Problem_%d.html", r.Year, sitting, r.Number)
	}
	return fmt.Sprintf("%d_AMC_%s%s_Problems_Problem_%d.html", r.Year, r.Level.amcNumber(), r.Split, r.Number)
}

// ID builds the stable progress identifier.
func (r Ref) ID() string {
	if r.Level.IsAIME() {
		if r.Sitting != "" {
			return fmt.Sprintf("%d_AIME_%s_%d", r.Year, r.Sitting, r.Number)
		}
		return fmt.Sprintf("%d_AIME_%d", r.Year, r.Number)
	}
	return fmt.Sprintf("%d_AMC_%s%s_%d", r.Year, r.Level.amcNumber(), r.Split, r.Number)
}

// Competition is the label of the sitting, e.g. "AMC 10A" or "AIME II".
func (r Ref) Competition() string {
	if r.Level.IsAIME() {
		if r.Sitting != "" {
			return "AIME " + r.Sitting
		}
		return "AIME"
	}
	return "AMC " + r.Level.amcNumber() + r.Split
}

// Label is the human readable name, e.g. "2010 AMC 10A #5".
func (r Ref) Label() string {
	return fmt.Sprintf("%d %s #%d", r.Year, r.Competition(), r.Number)
}

// ParseID reverses Ref.ID.
func ParseID(id string) (Ref, error) {
	parts := strings.Split(id, "_")
	if len(parts) < 3 {
		return Ref{}, fmt.Errorf("malformed problem id %q", id)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Ref{}, fmt.Errorf("malformed problem id %q: %w", id, err)
	}
	number, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return Ref{}, fmt.Errorf("malformed problem id %q: %w", id, err)
	}
	ref := Ref{Year: year, Number: number}
	switch {
	case parts[1] == "AIME" && len(parts) == 3:
		ref.Level = AIME
	case parts[1] == "AIME" && len(parts) == 4:
		ref.Level = AIME
		ref.Sitting = parts[2]
	case parts[1] == "AMC" && len(parts) == 4:
		variant := parts[2]
		if strings.HasSuffix(variant, "A") || strings.HasSuffix(variant, "B") {
			ref.Split = variant[len(variant)-1:]
			variant = variant[:len(variant)-1]
		}
		level, err := ParseLevel(variant)
		if err != nil {
			return Ref{}, fmt.Errorf("malformed problem id %q: %w", id, err)
		}
		ref.Level = level
	default:
		return Ref{}, fmt.Errorf("malformed problem id %q", id)
	}
	return ref, nil
}

// Problem is a fetched problem with its validated answer.
type Problem struct {
	Ref       Ref
	Statement string
	Solution  string
	Answer    string
}

// ProgressEntry is one row of the progress map.
type ProgressEntry struct {
	ProblemID string
	Correct   bool
	UpdatedAt time.Time
}

// ProgressFilter narrows a progress listing.
type ProgressFilter struct {
	Year  int
	Level Level
}

// TestResult is the outcome of one problem in a test.
type TestResult struct {
	Number        int
	ProblemID     string
	Answer        string
	CorrectAnswer string
	Correct       bool
}

// TestRecord is a finished test as persisted.
type TestRecord struct {
	ID        string
	Level     Level
	Score     float64
	MaxScore  float64
	StartedAt time.Time
	EndedAt   time.Time
	Results   []TestResult
}

// TestFilter narrows a test history listing.
type TestFilter struct {
	Level Level
	Last  int
}
