package student

import "math"

// Thresholds are the course's approval minimums.
type Thresholds struct {
	MediaMinima      float64 `json:"mediaMinima"`
	FrequenciaMinima float64 `json:"frequenciaMinima"`
}

func DefaultThresholds() Thresholds {
	return Thresholds{MediaMinima: 7, FrequenciaMinima: 75}
}

// WithDefaults replaces unset minimums.
func (t Thresholds) WithDefaults() Thresholds {
	def := DefaultThresholds()
	if t.MediaMinima <= 0 {
		t.MediaMinima = def.MediaMinima
	}
	if t.FrequenciaMinima <= 0 {
		t.FrequenciaMinima = def.FrequenciaMinima
	}
	return t
}

type GradeResult struct {
	Grade
	Passed bool `json:"passed"`
}

// Report is the per-student detail view.
type Report struct {
	Student            Student       `json:"student"`
	Score              int           `json:"score"`
	Tier               Tier          `json:"tier"`
	Provas             []GradeResult `json:"provas"`
	Trabalhos          []GradeResult `json:"trabalhos"`
	Media              *float64      `json:"media"` // 1 decimal; null when ungraded
	Frequencia         *float64      `json:"frequencia"`
	AprovadoMedia      bool          `json:"aprovadoMedia"`
	AprovadoFrequencia bool          `json:"aprovadoFrequencia"`
	Thresholds         Thresholds    `json:"thresholds"`
}

func NewReport(s Student, t Thresholds) Report {
	t = t.WithDefaults()
	score := Score(s)
	rep := Report{
		Student:    s,
		Score:      score,
		Tier:       TierFor(score),
		Provas:     []GradeResult{},
		Trabalhos:  []GradeResult{},
		Thresholds: t,
	}

	for _, g := range Grades(s) {
		res := GradeResult{Grade: g, Passed: g.Value >= t.MediaMinima}
		if splitPrefix(g.Key) == prefixProva {
			rep.Provas = append(rep.Provas, res)
		} else {
			rep.Trabalhos = append(rep.Trabalhos, res)
		}
	}

	if mean, ok := GradeMean(s); ok {
		media := Round(mean, 1)
		rep.Media = &media
		rep.AprovadoMedia = media >= t.MediaMinima
	}
	if freq, ok := Attendance(s); ok {
		rep.Frequencia = &freq
		rep.AprovadoFrequencia = freq >= t.FrequenciaMinima
	}
	return rep
}

func splitPrefix(k string) string {
	prefix, _ := splitKey(k)
	return prefix
}

// Round rounds x half-up to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Floor(x*p+0.5) / p
}
