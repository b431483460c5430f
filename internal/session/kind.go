package session

import (
	"errors"
	"strings"
	"time"

	"github.com/verte-zerg/amcq/internal/model"
)

// ErrUnknownKind is returned by ParseKind for unrecognized test types.
var ErrUnknownKind = errors.New("unknown test type")

// Kind describes one timed test format.
type Kind struct {
	Level    model.Level
	Problems int
	Duration time.Duration
	Points   []float64
}

var graduated = func() []float64 {
	pts := make([]float64, 25)
	for i := range pts {
		switch {
		case i < 10:
			pts[i] = 1
		case i < 20:
			pts[i] = 1.5
		default:
			pts[i] = 2
		}
	}
	return pts
}()

func flat(n int) []float64 {
	pts := make([]float64, n)
	for i := range pts {
		pts[i] = 1
	}
	return pts
}

var kinds = map[model.Level]Kind{
	model.AMC8:  {Level: model.AMC8, Problems: 25, Duration: 40 * time.Minute, Points: flat(25)},
	model.AMC10: {Level: model.AMC10, Problems: 25, Duration: 75 * time.Minute, Points: graduated},
	model.AMC12: {Level: model.AMC12, Problems: 25, Duration: 75 * time.Minute, Points: graduated},
	model.AIME:  {Level: model.AIME, Problems: 15, Duration: 180 * time.Minute, Points: flat(15)},
}

// KindOf returns the test format of level.
func KindOf(level model.Level) (Kind, bool) {
	k, ok := kinds[level]
	return k, ok
}

// ParseKind maps user input such as "amc 10" or "AIME I" to a test format.
func ParseKind(input string) (Kind, error) {
	norm := strings.ToUpper(strings.Join(strings.Fields(input), ""))
	if strings.Contains(norm, "AIME") {
		return kinds[model.AIME], nil
	}
	switch norm {
	case "AMC8":
		return kinds[model.AMC8], nil
	case "AMC10":
		return kinds[model.AMC10], nil
	case "AMC12":
		return kinds[model.AMC12], nil
	}
	return Kind{}, ErrUnknownKind
}

// Point returns the value of the 1-based problem number.
func (k Kind) Point(number int) float64 {
	if number < 1 || number > len(k.Points) {
		return 0
	}
	return k.Points[number-1]
}

// MaxScore is the score of a perfect test.
func (k Kind) MaxScore() float64 {
	var total float64
	for _, p := range k.Points {
		total += p
	}
	return total
}
