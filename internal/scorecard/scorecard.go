// Package scorecard turns a validation run into overall and per-category quality scores.
package scorecard

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/claims-ops/internal/config"
	"github.com/vitebski/claims-ops/internal/docs"
	"github.com/vitebski/claims-ops/internal/gxcontext"
	"github.com/vitebski/claims-ops/internal/utils"
	"github.com/vitebski/claims-ops/internal/validation"
	"github.com/vitebski/claims-ops/pkg/models"
)

// Categories in report order
const (
	Completeness = "completeness"
	Validity     = "validity"
	Uniqueness   = "uniqueness"
	Consistency  = "consistency"
)

// Categories lists every category in report order
var Categories = []string{Completeness, Validity, Uniqueness, Consistency}

// Quality levels
const (
	LevelExcellent        = "EXCELLENT"
	LevelGood             = "GOOD"
	LevelAcceptable       = "ACCEPTABLE"
	LevelNeedsImprovement = "NEEDS IMPROVEMENT"
)

// Categorize assigns an expectation type to a category. The first matching rule wins.
func Categorize(expectationType string) string {
	switch {
	case strings.Contains(expectationType, "null"):
		return Completeness
	case strings.Contains(expectationType, "unique"):
		return Uniqueness
	case strings.Contains(expectationType, "between"), strings.Contains(expectationType, "in_set"):
		return Validity
	default:
		return Consistency
	}
}

// QualityLevel maps an overall score to its level
func QualityLevel(score float64) string {
	switch {
	case score >= 95:
		return LevelExcellent
	case score >= 90:
		return LevelGood
	case score >= 80:
		return LevelAcceptable
	default:
		return LevelNeedsImprovement
	}
}

// Recommendation returns the advice printed for a score
func Recommendation(score float64) string {
	switch {
	case score >= 95:
		return "[OK] Data quality is excellent. Maintain current standards."
	case score >= 90:
		return "[WARN] Data quality is good. Review failed expectations."
	default:
		return "[ERROR] Data quality needs improvement. Investigate failed expectations."
	}
}

func percent(passed, total int) float64 {
	return math.Round(float64(passed)/float64(total)*100*100) / 100
}

// Build computes the scorecard for a validation result
func Build(result *models.ValidationResult, now time.Time) *models.Scorecard {
	card := &models.Scorecard{
		Timestamp:          now.Format(time.RFC3339),
		SuiteName:          result.SuiteName,
		TotalExpectations:  len(result.Results),
		CategoryScores:     make(map[string]*float64, len(Categories)),
		FailedExpectations: []models.FailedExpectation{},
	}

	type tally struct{ passed, total int }
	tallies := make(map[string]*tally, len(Categories))
	for _, c := range Categories {
		tallies[c] = &tally{}
	}

	for _, res := range result.Results {
		t := tallies[Categorize(res.Expectation.Type)]
		t.total++
		if res.Success {
			t.passed++
			card.Passed++
			continue
		}
		card.Failed++
		col := res.Expectation.Column()
		if col == "" {
			col = "N/A"
		}
		card.FailedExpectations = append(card.FailedExpectations, models.FailedExpectation{
			ExpectationType: res.Expectation.Type,
			Column:          col,
		})
	}

	if card.TotalExpectations > 0 {
		card.OverallScore = percent(card.Passed, card.TotalExpectations)
	}
	for _, c := range Categories {
		if t := tallies[c]; t.total > 0 {
			score := percent(t.passed, t.total)
			card.CategoryScores[c] = &score
		} else {
			card.CategoryScores[c] = nil
		}
	}
	card.QualityLevel = QualityLevel(card.OverallScore)
	return card
}

// Print writes the scorecard report
func Print(w io.Writer, card *models.Scorecard) {
	fmt.Fprintln(w)
	utils.PrintBanner(w, "Data Quality Scorecard")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Overall Quality Score: %.2f%%\n", card.OverallScore)
	fmt.Fprintf(w, "  Passed: %d/%d\n", card.Passed, card.TotalExpectations)
	fmt.Fprintf(w, "  Failed: %d/%d\n", card.Failed, card.TotalExpectations)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Category Scores:")
	for _, c := range Categories {
		if s := card.CategoryScores[c]; s != nil {
			fmt.Fprintf(w, "  %-13s %.2f%%\n", c+":", *s)
		} else {
			fmt.Fprintf(w, "  %-13s N/A\n", c+":")
		}
	}
	fmt.Fprintln(w)

	if len(card.FailedExpectations) > 0 {
		fmt.Fprintln(w, "Failed Expectations:")
		for _, f := range card.FailedExpectations {
			fmt.Fprintf(w, "  - %s on %s\n", f.ExpectationType, f.Column)
		}
	} else {
		fmt.Fprintln(w, "[OK] All expectations passed!")
	}

	fmt.Fprintln(w)
	utils.PrintBanner(w, "Scorecard Summary")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Quality Level: [%s]\n", card.QualityLevel)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Recommendations:")
	fmt.Fprintf(w, "  %s\n", Recommendation(card.OverallScore))
}

// Generate runs a fresh validation of the marts checkpoint, prints the
// scorecard and saves it to the workspace.
func Generate(ctx context.Context, runner *validation.Runner, ws *gxcontext.Context, w io.Writer, logger *logrus.Logger) (*models.Scorecard, error) {
	utils.PrintBanner(w, "Generate Data Quality Scorecard")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Running validation to get latest results...")

	result, err := runner.Run(ctx, config.CheckpointName)
	if err != nil {
		return nil, err
	}

	card := Build(result, runner.Now())
	Print(w, card)

	path, err := ws.WriteScorecard(card)
	if err != nil {
		return card, fmt.Errorf("save scorecard: %w", err)
	}
	logger.Debugf("Scorecard appended to history for run %s", result.RunID)
	fmt.Fprintf(w, "\nScorecard saved to: %s\n", path)

	// The checkpoint rendered the docs before this scorecard existed.
	if _, err := docs.Build(ws, runner.Now()); err != nil {
		logger.Warnf("Could not update data docs: %v", err)
	}
	return card, nil
}
