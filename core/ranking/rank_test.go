package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trezcool/academia/core/result"
)

func res(studentID, subjectID string, total float64) result.Result {
	return result.Result{StudentID: studentID, SubjectID: subjectID, Total: total}
}

func TestRank(t *testing.T) {
	tests := []struct {
		name    string
		results []result.Result
		want    []Standing
	}{
		{
			name:    "empty class",
			results: nil,
			want:    []Standing{},
		},
		{
			name: "competition ranking",
			results: []result.Result{
				res("s3", "math", 80),
				res("s1", "math", 90),
				res("s2", "math", 90),
			},
			want: []Standing{
				{StudentID: "s1", Average: 90, Position: 1},
				{StudentID: "s2", Average: 90, Position: 1},
				{StudentID: "s3", Average: 80, Position: 3},
			},
		},
		{
			name: "ties further down",
			results: []result.Result{
				res("a", "math", 95),
				res("b", "math", 70),
				res("c", "math", 70),
				res("d", "math", 70),
				res("e", "math", 10),
			},
			want: []Standing{
				{StudentID: "a", Average: 95, Position: 1},
				{StudentID: "b", Average: 70, Position: 2},
				{StudentID: "c", Average: 70, Position: 2},
				{StudentID: "d", Average: 70, Position: 2},
				{StudentID: "e", Average: 10, Position: 5},
			},
		},
		{
			name: "missing subjects count as zero",
			results: []result.Result{
				res("s1", "math", 60),
				res("s1", "english", 80),
				res("s1", "science", 70),
				res("s2", "math", 90),
			},
			want: []Standing{
				{StudentID: "s1", Average: 70, Position: 1},
				{StudentID: "s2", Average: 30, Position: 2},
			},
		},
		{
			name: "averages rounded to 2 decimals",
			results: []result.Result{
				res("s1", "math", 50),
				res("s1", "english", 50),
				res("s1", "science", 51),
			},
			want: []Standing{
				{StudentID: "s1", Average: 50.33, Position: 1},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rank(tt.results))
		})
	}
}

func TestRank_Stable(t *testing.T) {
	results := []result.Result{
		res("s1", "math", 72),
		res("s2", "math", 72),
		res("s3", "math", 65),
		res("s1", "english", 58),
		res("s2", "english", 58),
		res("s3", "english", 91),
	}
	first := Rank(results)

	// input order must not matter
	reversed := make([]result.Result, len(results))
	for i := range results {
		reversed[len(results)-1-i] = results[i]
	}
	assert.Equal(t, first, Rank(reversed))
	assert.Equal(t, first, Rank(results))
}

func TestDecide(t *testing.T) {
	tests := []struct {
		avg, threshold float64
		want           PromotionStatus
	}{
		{50, 50, Promoted},
		{49.99, 50, Repeated},
		{0, 0, Promoted},
		{100, 50, Promoted},
	}
	for _, tt := range tests {
		if got := Decide(tt.avg, tt.threshold); got != tt.want {
			t.Errorf("Decide(%v, %v) = %v; want %v", tt.avg, tt.threshold, got, tt.want)
		}
	}
}
