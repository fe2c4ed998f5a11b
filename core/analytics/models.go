package analytics

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/trezcool/edupilot/core/student"
)

// Flag points at one student in an analysis, with the model's reason.
type Flag struct {
	ID     string `json:"_id"`
	Motivo string `json:"motivo,omitempty"`
}

// Analysis is the model's reading of the classroom.
type Analysis struct {
	AlunosInvisiveis []Flag    `json:"alunosInvisiveis"`
	AlunosEmRisco    []Flag    `json:"alunosEmRisco"`
	Insights         []string  `json:"insights"`
	Sugestoes        []string  `json:"sugestoes"`
	MediaGeral       *float64  `json:"mediaGeral,omitempty"`
	FrequenciaMedia  *float64  `json:"frequenciaMedia,omitempty"`
	AnalyzedAt       time.Time `json:"analyzedAt"`
}

func (a *Analysis) isAtRisk(id string) (string, bool)    { return findFlag(a.AlunosEmRisco, id) }
func (a *Analysis) isInvisible(id string) (string, bool) { return findFlag(a.AlunosInvisiveis, id) }

func findFlag(flags []Flag, id string) (string, bool) {
	for _, f := range flags {
		if f.ID == id {
			return f.Motivo, true
		}
	}
	return "", false
}

// analysisFromMap reads a decoded answer. Flags may be bare ids or {_id, motivo} objects.
func analysisFromMap(m map[string]interface{}) Analysis {
	return Analysis{
		AlunosInvisiveis: flagsFrom(m["alunosInvisiveis"]),
		AlunosEmRisco:    flagsFrom(m["alunosEmRisco"]),
		Insights:         stringsFrom(m["insights"]),
		Sugestoes:        stringsFrom(m["sugestoes"]),
		MediaGeral:       numberFrom(m["mediaGeral"]),
		FrequenciaMedia:  numberFrom(m["frequenciaMedia"]),
	}
}

func flagsFrom(v interface{}) []Flag {
	items, _ := v.([]interface{})
	flags := make([]Flag, 0, len(items))
	for _, item := range items {
		switch val := item.(type) {
		case string:
			if id := strings.TrimSpace(val); id != "" {
				flags = append(flags, Flag{ID: id})
			}
		case json.Number:
			flags = append(flags, Flag{ID: val.String()})
		case map[string]interface{}:
			id := scalarString(val["_id"])
			if id == "" {
				id = scalarString(val["id"])
			}
			if id != "" {
				flags = append(flags, Flag{ID: id, Motivo: scalarString(val["motivo"])})
			}
		}
	}
	return flags
}

func stringsFrom(v interface{}) []string {
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := scalarString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}

func scalarString(v interface{}) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	}
	return ""
}

// numberFrom keeps only positive numbers; a zero from the model means "not computed".
func numberFrom(v interface{}) *float64 {
	if v == nil {
		return nil
	}
	if _, ok := v.(bool); ok {
		return nil
	}
	f := student.Coerce(v)
	if f <= 0 {
		return nil
	}
	return &f
}

// StudentSummary is one roster line of the dashboard.
type StudentSummary struct {
	ID        string       `json:"_id"`
	Name      string       `json:"name"`
	Score     int          `json:"score"`
	Tier      student.Tier `json:"tier"`
	AtRisk    bool         `json:"atRisk"`
	Invisible bool         `json:"invisible"`
	Motivo    string       `json:"motivo,omitempty"`
}

// Dashboard is the classroom overview.
type Dashboard struct {
	TotalAlunos      int                `json:"totalAlunos"`
	AlunosEmRisco    int                `json:"alunosEmRisco"`
	AlunosInvisiveis int                `json:"alunosInvisiveis"`
	MediaGeral       float64            `json:"mediaGeral"`
	FrequenciaMedia  float64            `json:"frequenciaMedia"`
	Students         []StudentSummary   `json:"students"`
	Insights         []string           `json:"insights"`
	Sugestoes        []string           `json:"sugestoes"`
	Thresholds       student.Thresholds `json:"thresholds"`
	// Analyzed is false when every figure was computed locally.
	Analyzed bool `json:"analyzed"`
}

// NotificationType is how loud a notification is.
type NotificationType string

const (
	NotificationAlert   NotificationType = "alert"
	NotificationInsight NotificationType = "insight"
)

// Notification is the single consolidated message pushed after an analysis.
type Notification struct {
	Type    NotificationType `json:"type"`
	Title   string           `json:"title"`
	Message string           `json:"message"`
}
