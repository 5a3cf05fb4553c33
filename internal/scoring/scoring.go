// Package scoring grades a submitted answer set against a test's answer key.
// It is pure: the same inputs always produce the same score.
package scoring

import (
	"math"

	"github.com/mcqhub/mcqhub-backend/internal/model"
)

// Score computes the integer score for an answer set. Every question is
// worth maxMarks/N points, awarded on exact string equality between the
// answer at the question's index and the question's correct answer. Missing
// answers and answers at indices with no question contribute nothing. The
// summed total is rounded half-up.
func Score(questions []model.Question, maxMarks int, answers map[int]string) int {
	if len(questions) == 0 {
		return 0
	}

	perQuestion := float64(maxMarks) / float64(len(questions))

	var total float64
	for i, q := range questions {
		if answers[i] == q.CorrectAnswer {
			total += perQuestion
		}
	}

	return int(math.Round(total))
}
