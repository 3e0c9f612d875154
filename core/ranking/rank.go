package ranking

import (
	"math"
	"sort"

	"github.com/trezcool/academia/core/result"
)

// Rank computes class standings from the results of one class in one session.
//
// A student's average is the sum of their totals over the number of distinct subjects
// recorded for the class; subjects a student has no result for count as 0. Averages are
// rounded to 2 decimals. Equal averages share a position and the next distinct average
// resumes at the count of students ranked so far plus one ([90, 90, 80] -> [1, 1, 3]).
func Rank(results []result.Result) []Standing {
	if len(results) == 0 {
		return []Standing{}
	}

	subjects := make(map[string]struct{})
	sums := make(map[string]float64)
	for _, res := range results {
		subjects[res.SubjectID] = struct{}{}
		sums[res.StudentID] += res.Total
	}

	n := float64(len(subjects))
	standings := make([]Standing, 0, len(sums))
	for studentID, sum := range sums {
		standings = append(standings, Standing{StudentID: studentID, Average: round2(sum / n)})
	}

	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Average != standings[j].Average {
			return standings[i].Average > standings[j].Average
		}
		return standings[i].StudentID < standings[j].StudentID
	})

	for i := range standings {
		if i > 0 && standings[i].Average == standings[i-1].Average {
			standings[i].Position = standings[i-1].Position
		} else {
			standings[i].Position = i + 1
		}
	}
	return standings
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
