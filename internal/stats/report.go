package stats

import (
	"context"
	"fmt"

	"github.com/verte-zerg/amcq/internal/model"
)

// Source is the store data the reports read.
type Source interface {
	ListProgress(ctx context.Context, filter model.ProgressFilter) ([]model.ProgressEntry, error)
	ListTests(ctx context.Context, filter model.TestFilter) ([]model.TestRecord, error)
}

// ProgressReport contains precomputed data for the progress view.
type ProgressReport struct {
	Entries []model.ProgressEntry
	Matrix  []MatrixGroup
	Levels  []LevelStat
}

// BuildProgressReport loads and groups progress entries.
func BuildProgressReport(ctx context.Context, src Source, filter model.ProgressFilter) (ProgressReport, error) {
	entries, err := src.ListProgress(ctx, filter)
	if err != nil {
		return ProgressReport{}, fmt.Errorf("failed to list progress: %w", err)
	}
	return ProgressReport{
		Entries: entries,
		Matrix:  BuildMatrix(entries),
		Levels:  LevelStats(entries),
	}, nil
}

// HistoryReport contains precomputed data for the history view.
type HistoryReport struct {
	Tests    []model.TestRecord
	Percents []float64
	Average  []float64
}

// BuildHistoryReport loads finished tests, oldest first, with a moving
// average of their percentages over window tests.
func BuildHistoryReport(ctx context.Context, src Source, filter model.TestFilter, window int) (HistoryReport, error) {
	tests, err := src.ListTests(ctx, filter)
	if err != nil {
		return HistoryReport{}, fmt.Errorf("failed to list tests: %w", err)
	}
	percents := TestPercents(tests)
	return HistoryReport{
		Tests:    tests,
		Percents: percents,
		Average:  MovingAverage(percents, window),
	}, nil
}
