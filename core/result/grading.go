package result

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

// GradeBoundary maps every total >= Min to Grade.
type GradeBoundary struct {
	Grade string  `json:"grade"`
	Min   float64 `json:"min"`
}

// GradingScale is ordered by descending lower bound.
type GradingScale []GradeBoundary

// ParseGradingScale parses "A:70,B:60,C:50,D:45,F:0".
func ParseGradingScale(s string) (GradingScale, error) {
	parts := strings.Split(s, ",")
	scale := make(GradingScale, 0, len(parts))
	seen := make(map[string]bool, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		kv := strings.SplitN(part, ":", 2)
		if len(kv) != 2 {
			return nil, errors.Errorf("grading scale: malformed boundary %q", part)
		}
		grade := strings.TrimSpace(kv[0])
		if grade == "" {
			return nil, errors.Errorf("grading scale: empty grade in %q", part)
		}
		min, err := strconv.ParseFloat(strings.TrimSpace(kv[1]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "grading scale: lower bound of %q", grade)
		}
		if seen[grade] {
			return nil, errors.Errorf("grading scale: duplicate grade %q", grade)
		}
		seen[grade] = true
		scale = append(scale, GradeBoundary{Grade: grade, Min: min})
	}
	if len(scale) == 0 {
		return nil, errors.New("grading scale: no boundaries")
	}
	sort.SliceStable(scale, func(i, j int) bool { return scale[i].Min > scale[j].Min })
	return scale, nil
}

// Grade returns the grade of the highest boundary whose lower bound is <= total.
// Totals below every boundary get the lowest grade.
func (gs GradingScale) Grade(total float64) string {
	if len(gs) == 0 {
		return ""
	}
	for _, b := range gs {
		if total >= b.Min {
			return b.Grade
		}
	}
	return gs[len(gs)-1].Grade
}

// ScoreLimits holds the maximum mark of each component.
type ScoreLimits struct {
	FirstCA  float64 `json:"first_ca"`
	SecondCA float64 `json:"second_ca"`
	ThirdCA  float64 `json:"third_ca"`
	Exam     float64 `json:"exam"`
}

func (l ScoreLimits) Check(c Components) error {
	var flds []core.FieldError
	check := func(field string, v, max float64) {
		if math.IsNaN(v) || v < 0 || v > max {
			flds = append(flds, core.FieldError{
				Field: field,
				Error: "must be between 0 and " + strconv.FormatFloat(max, 'f', -1, 64),
			})
		}
	}
	check("first_ca", c.FirstCA, l.FirstCA)
	check("second_ca", c.SecondCA, l.SecondCA)
	check("third_ca", c.ThirdCA, l.ThirdCA)
	check("exam", c.Exam, l.Exam)
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// Config is the grading configuration consumed by the Service.
type Config struct {
	Scale  GradingScale
	Limits ScoreLimits
}

func NewConfig(conf *core.Config) (Config, error) {
	scale, err := ParseGradingScale(conf.Results.GradingScale)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Scale: scale,
		Limits: ScoreLimits{
			FirstCA:  conf.Results.MaxFirstCA,
			SecondCA: conf.Results.MaxSecondCA,
			ThirdCA:  conf.Results.MaxThirdCA,
			Exam:     conf.Results.MaxExam,
		},
	}, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
