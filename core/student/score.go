package student

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Tier is the display classification of an engagement score.
type Tier string

const (
	TierOtimo   Tier = "Ótimo"
	TierAtencao Tier = "Atenção"
	TierRisco   Tier = "Risco"
)

const (
	// ungraded students sit at the midpoint instead of zero
	neutralGradeMean  = 5.0
	defaultAttendance = 50.0

	gradeWeight      = 0.6
	attendanceWeight = 0.4

	riskGradeMean  = 6.0
	riskAttendance = 75.0
)

// Grade is one assessment value, eg. {prova2 8.5}.
type Grade struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

// Score is the 0-100 engagement score of s. It is never stored: every read recomputes it.
func Score(s Student) int {
	gradeAverage := neutralGradeMean
	if mean, ok := GradeMean(s); ok {
		gradeAverage = mean
	}
	gradeAverage *= 10

	attendance, ok := Attendance(s)
	if !ok {
		attendance = defaultAttendance
	}

	return roundHalfUp(clamp(gradeAverage*gradeWeight+attendance*attendanceWeight, 0, 100))
}

// TierFor classifies a score; lower bounds are inclusive.
func TierFor(score int) Tier {
	switch {
	case score >= 80:
		return TierOtimo
	case score >= 60:
		return TierAtencao
	}
	return TierRisco
}

// LocalRisk is the fallback risk heuristic used while no AI classification exists:
// a grade mean below 6.0 (no grades counts as 0) or a recorded attendance below 75%.
func LocalRisk(s Student) bool {
	mean, _ := GradeMean(s)
	if mean < riskGradeMean {
		return true
	}
	attendance, ok := Attendance(s)
	return ok && attendance < riskAttendance
}

// Grades returns the prova and trabalho values of s, provas first, each in assessment order.
func Grades(s Student) []Grade {
	grades := make([]Grade, 0, len(s.Attributes))
	for k, v := range s.Attributes {
		if IsGradeKey(k) {
			grades = append(grades, Grade{Key: k, Value: Coerce(v)})
		}
	}
	sort.Slice(grades, func(i, j int) bool { return lessKey(grades[i].Key, grades[j].Key) })
	return grades
}

// GradeMean is the plain mean of all grades (0-10); ok is false when there are none.
func GradeMean(s Student) (mean float64, ok bool) {
	grades := Grades(s)
	if len(grades) == 0 {
		return 0, false
	}
	var sum float64
	for _, g := range grades {
		sum += g.Value
	}
	return sum / float64(len(grades)), true
}

// Attendance returns the recorded frequencia. Absent, null and blank values are not recorded.
func Attendance(s Student) (float64, bool) {
	v, ok := s.Attributes[AttrFrequencia]
	if !ok || v == nil {
		return 0, false
	}
	if str, isStr := v.(string); isStr && strings.TrimSpace(str) == "" {
		return 0, false
	}
	return Coerce(v), true
}

func IsGradeKey(k string) bool {
	return strings.HasPrefix(k, prefixProva) || strings.HasPrefix(k, prefixTrabalho)
}

// Coerce converts an attribute value to a number and never fails:
// numbers pass through, numeric strings are parsed (a decimal comma is accepted),
// booleans are 1 or 0 and anything else, NaN and infinities included, is 0.
func Coerce(v interface{}) float64 {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int32:
		f = float64(val)
	case int64:
		f = float64(val)
	case json.Number:
		f, _ = val.Float64()
	case string:
		f = parseNumber(val)
	case bool:
		if val {
			f = 1
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

// clamp bounds x before any int conversion; NaN is treated as lo.
func clamp(x, lo, hi float64) float64 {
	switch {
	case math.IsNaN(x) || x < lo:
		return lo
	case x > hi:
		return hi
	}
	return x
}

// roundHalfUp rounds .5 towards +Inf.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

// lessKey orders prova before trabalho, then by assessment number, eg. prova2 < prova10.
func lessKey(a, b string) bool {
	pa, na := splitKey(a)
	pb, nb := splitKey(b)
	if pa != pb {
		return pa == prefixProva
	}
	if na != nb {
		return na < nb
	}
	return a < b
}

func splitKey(k string) (prefix string, n int) {
	prefix = prefixTrabalho
	if strings.HasPrefix(k, prefixProva) {
		prefix = prefixProva
	}
	n, err := strconv.Atoi(strings.TrimPrefix(k, prefix))
	if err != nil {
		n = math.MaxInt32
	}
	return prefix, n
}
