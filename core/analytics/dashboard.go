package analytics

import (
	"fmt"
	"strings"

	"github.com/trezcool/edupilot/core/student"
)

const digestTitle = "Análise da turma concluída"

// BuildDashboard summarizes the roster. A non-nil analysis is authoritative for the
// risk and invisibility classification; otherwise the local heuristic is used.
// Class figures missing from the analysis are computed locally.
func BuildDashboard(students []student.Student, a *Analysis) Dashboard {
	d := Dashboard{
		TotalAlunos: len(students),
		Students:    make([]StudentSummary, 0, len(students)),
		Insights:    []string{},
		Sugestoes:   []string{},
		Analyzed:    a != nil,
	}

	var localRisk int
	for _, s := range students {
		score := student.Score(s)
		sum := StudentSummary{ID: s.ID, Name: s.Name, Score: score, Tier: student.TierFor(score)}
		if a != nil {
			var motivo string
			if motivo, sum.AtRisk = a.isAtRisk(s.ID); sum.AtRisk {
				sum.Motivo = motivo
			}
			if motivo, sum.Invisible = a.isInvisible(s.ID); sum.Invisible && sum.Motivo == "" {
				sum.Motivo = motivo
			}
		} else {
			sum.AtRisk = student.LocalRisk(s)
		}
		if student.LocalRisk(s) {
			localRisk++
		}
		d.Students = append(d.Students, sum)
	}

	if a != nil {
		d.AlunosEmRisco = len(a.AlunosEmRisco)
		d.AlunosInvisiveis = len(a.AlunosInvisiveis)
		d.Insights = append(d.Insights, a.Insights...)
		d.Sugestoes = append(d.Sugestoes, a.Sugestoes...)
	} else {
		d.AlunosEmRisco = localRisk
	}

	if a != nil && a.MediaGeral != nil {
		d.MediaGeral = *a.MediaGeral
	} else {
		d.MediaGeral = classMean(students)
	}
	if a != nil && a.FrequenciaMedia != nil {
		d.FrequenciaMedia = *a.FrequenciaMedia
	} else {
		d.FrequenciaMedia = attendanceMean(students)
	}
	return d
}

// classMean pools every grade of the class, 1 decimal.
func classMean(students []student.Student) float64 {
	var total float64
	var count int
	for _, s := range students {
		for _, g := range student.Grades(s) {
			total += g.Value
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return student.Round(total/float64(count), 1)
}

// attendanceMean averages the positive attendances, rounded to an integer.
func attendanceMean(students []student.Student) float64 {
	var total float64
	var count int
	for _, s := range students {
		if f, ok := student.Attendance(s); ok && f > 0 {
			total += f
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return student.Round(total/float64(count), 0)
}

// Digest consolidates an analysis into one notification; ok is false when there is nothing to say.
func Digest(a *Analysis) (n Notification, ok bool) {
	if a == nil {
		return Notification{}, false
	}

	var parts []string
	if len(a.AlunosEmRisco) > 0 {
		parts = append(parts, fmt.Sprintf("%d aluno(s) em risco", len(a.AlunosEmRisco)))
	}
	if len(a.AlunosInvisiveis) > 0 {
		parts = append(parts, fmt.Sprintf("%d aluno(s) invisível(eis)", len(a.AlunosInvisiveis)))
	}
	if len(a.Sugestoes) > 0 {
		parts = append(parts, fmt.Sprintf("%d sugestão(ões) disponível(eis)", len(a.Sugestoes)))
	}
	if len(parts) == 0 {
		return Notification{}, false
	}

	n = Notification{
		Type:    NotificationInsight,
		Title:   digestTitle,
		Message: strings.Join(parts, " · ") + ". Confira os detalhes no Dashboard.",
	}
	if len(a.AlunosEmRisco) > 0 {
		n.Type = NotificationAlert
	}
	return n, true
}
