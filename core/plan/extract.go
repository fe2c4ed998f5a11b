package plan

import (
	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core/llmjson"
)

var planOptions = llmjson.Options{
	AnchorKey:  "plano",
	ContentKey: "etapas",
	Accept:     hasEtapas,
}

// hasEtapas accepts {plano: {etapas: [...]}} and a bare {etapas: [...]}.
func hasEtapas(v interface{}) bool {
	m, ok := v.(map[string]interface{})
	if !ok {
		return false
	}
	if inner, ok := m["plano"].(map[string]interface{}); ok {
		m = inner
	}
	_, ok = m["etapas"].([]interface{})
	return ok
}

// Extract recovers a lesson plan from model output.
// It returns a *llmjson.ExtractionFailure holding the raw text when none is found.
func Extract(raw string) (LessonPlan, error) {
	res, err := llmjson.Extract(raw, planOptions)
	if err != nil {
		return LessonPlan{}, err
	}
	m := res.Value.(map[string]interface{})
	if inner, ok := m["plano"].(map[string]interface{}); ok {
		m = inner
	}
	return planFromMap(m), nil
}

// DocumentFromText is Structured on success and RawOnly, with raw preserved, otherwise.
func DocumentFromText(raw string) Document {
	lp, err := Extract(raw)
	if err != nil {
		return RawOnly{Text: raw}
	}
	return Structured{Plano: lp}
}

// IsExtractionFailure reports whether err is a failed extraction.
func IsExtractionFailure(err error) bool {
	_, ok := errors.Cause(err).(*llmjson.ExtractionFailure)
	return ok
}
