// Package scoring normalizes and checks competition answers.
package scoring

import (
	"errors"
	"regexp"
	"strings"

	"github.com/verte-zerg/amcq/internal/model"
)

// ErrInvalidShape is returned for a submission that cannot be an answer of
// the problem's level. The submission is not scored.
var ErrInvalidShape = errors.New("enter a valid response")

var (
	aimeRawRe = regexp.MustCompile(`^[0-9]{1,3}$`)
	aimeRe    = regexp.MustCompile(`^[0-9]{3}$`)
	amcRe     = regexp.MustCompile(`^[A-E]$`)
)

// Normalize uppercases and trims raw. For AIME a one to three digit numeral
// is left-padded with zeros to three digits. Normalize is idempotent.
func Normalize(level model.Level, raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if level.IsAIME() && aimeRawRe.MatchString(s) {
		s = strings.Repeat("0", 3-len(s)) + s
	}
	return s
}

// ValidShape reports whether a normalized answer has the level's format.
func ValidShape(level model.Level, normalized string) bool {
	if level.IsAIME() {
		return aimeRe.MatchString(normalized)
	}
	return amcRe.MatchString(normalized)
}

// NormalizeAnswer validates an answer returned by the content proxy.
func NormalizeAnswer(level model.Level, raw string) (string, bool) {
	s := Normalize(level, raw)
	return s, ValidShape(level, s)
}

// Verdict is the outcome of one submission.
type Verdict struct {
	Submitted string
	Expected  string
	Correct   bool
	Forced    bool
}

// Check scores raw against expected. Unless forced, a submission of the wrong
// shape yields ErrInvalidShape. Forced submissions (time expiry, give up) are
// compared as submitted, even when empty.
func Check(level model.Level, raw, expected string, forced bool) (Verdict, error) {
	submitted := Normalize(level, raw)
	if !forced && !ValidShape(level, submitted) {
		return Verdict{}, ErrInvalidShape
	}
	want := Normalize(level, expected)
	return Verdict{
		Submitted: submitted,
		Expected:  want,
		Correct:   submitted != "" && submitted == want,
		Forced:    forced,
	}, nil
}
