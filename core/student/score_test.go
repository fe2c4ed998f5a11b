package student

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newStudent(attrs map[string]interface{}) Student {
	return Student{ID: "1", Name: "Ana", Attributes: attrs}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]interface{}
		want  int
	}{
		{name: "no grades no attendance", attrs: nil, want: 50},
		{name: "grades and attendance", attrs: map[string]interface{}{"prova1": 8, "prova2": 9, "trabalho1": 7, "frequencia": 90}, want: 84},
		{name: "no grades full attendance", attrs: map[string]interface{}{"frequencia": 100}, want: 70},
		{name: "string grades", attrs: map[string]interface{}{"prova1": "8", "prova2": "9,0", "frequencia": "80"}, want: 83},
		{name: "garbage grade counts as zero", attrs: map[string]interface{}{"prova1": "abc", "prova2": 10, "frequencia": 100}, want: 70},
		{name: "zero attendance is recorded", attrs: map[string]interface{}{"prova1": 10, "frequencia": 0}, want: 60},
		{name: "null attendance is absent", attrs: map[string]interface{}{"prova1": 10, "frequencia": nil}, want: 80},
		{name: "blank attendance is absent", attrs: map[string]interface{}{"prova1": 10, "frequencia": " "}, want: 80},
		{name: "half rounds up", attrs: map[string]interface{}{"prova1": 7.75, "frequencia": 50}, want: 67},
		{name: "out of range is clamped", attrs: map[string]interface{}{"prova1": 50, "frequencia": 500}, want: 100},
		{name: "huge attendance is clamped", attrs: map[string]interface{}{"prova1": 100, "frequencia": 1e300}, want: 100},
		{name: "huge negative grade is clamped", attrs: map[string]interface{}{"prova1": -1e300, "frequencia": 100}, want: 0},
		{name: "negative is clamped", attrs: map[string]interface{}{"prova1": -50, "frequencia": -10}, want: 0},
		{name: "other keys ignored", attrs: map[string]interface{}{"role": "aluno", "nota": 1, "frequencia": 50}, want: 50},
		{name: "prefix match", attrs: map[string]interface{}{"provaFinal": 10, "trabalhoExtra": 10}, want: 80},
		{name: "booleans", attrs: map[string]interface{}{"prova1": true, "trabalho1": false}, want: 23},
		{name: "json numbers", attrs: map[string]interface{}{"prova1": json.Number("6.5"), "frequencia": json.Number("75")}, want: 69},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(newStudent(tt.attrs)))
		})
	}
}

func TestScore_Monotonic(t *testing.T) {
	prev := -1
	for freq := 0; freq <= 100; freq += 5 {
		score := Score(newStudent(map[string]interface{}{"prova1": 6, "frequencia": freq}))
		assert.GreaterOrEqual(t, score, prev, "frequencia %d", freq)
		prev = score
	}

	prev = -1
	for _, freq := range []float64{0, 100, 1e6, 1e20, 1e300} {
		score := Score(newStudent(map[string]interface{}{"prova1": 100, "frequencia": freq}))
		assert.GreaterOrEqual(t, score, prev, "frequencia %v", freq)
		prev = score
	}
	assert.Equal(t, 100, prev)

	prev = -1
	for grade := 0.0; grade <= 10; grade += 0.5 {
		score := Score(newStudent(map[string]interface{}{"prova1": grade, "trabalho1": 5, "frequencia": 80}))
		assert.GreaterOrEqual(t, score, prev, "grade %v", grade)
		prev = score
	}
}

func TestTierFor(t *testing.T) {
	tests := []struct {
		score int
		want  Tier
	}{
		{100, TierOtimo},
		{80, TierOtimo},
		{79, TierAtencao},
		{60, TierAtencao},
		{59, TierRisco},
		{0, TierRisco},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TierFor(tt.score), "score %d", tt.score)
	}
}

func TestLocalRisk(t *testing.T) {
	tests := []struct {
		name  string
		attrs map[string]interface{}
		want  bool
	}{
		{name: "no grades", attrs: map[string]interface{}{"frequencia": 100}, want: true},
		{name: "low mean", attrs: map[string]interface{}{"prova1": 5.9, "frequencia": 100}, want: true},
		{name: "mean at threshold", attrs: map[string]interface{}{"prova1": 6, "frequencia": 100}, want: false},
		{name: "low attendance", attrs: map[string]interface{}{"prova1": 9, "frequencia": 74}, want: true},
		{name: "attendance at threshold", attrs: map[string]interface{}{"prova1": 9, "frequencia": 75}, want: false},
		{name: "attendance absent", attrs: map[string]interface{}{"prova1": 9}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LocalRisk(newStudent(tt.attrs)))
		})
	}
}

func TestGrades_Order(t *testing.T) {
	s := newStudent(map[string]interface{}{
		"trabalho2": 1, "prova10": 2, "prova2": 3, "trabalho1": 4, "frequencia": 90, "role": "aluno",
	})
	var keys []string
	for _, g := range Grades(s) {
		keys = append(keys, g.Key)
	}
	assert.Equal(t, []string{"prova2", "prova10", "trabalho1", "trabalho2"}, keys)
}

func TestCoerce(t *testing.T) {
	tests := []struct {
		in   interface{}
		want float64
	}{
		{7, 7},
		{int64(3), 3},
		{float32(2.5), 2.5},
		{" 8.5 ", 8.5},
		{"7,5", 7.5},
		{"", 0},
		{"dez", 0},
		{true, 1},
		{false, 0},
		{nil, 0},
		{[]interface{}{1}, 0},
		{math.NaN(), 0},
		{math.Inf(1), 0},
		{"NaN", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Coerce(tt.in), "%#v", tt.in)
	}
}
