package plan

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// UnmarshalJSON is lenient: mistyped scalars, missing numbers and a string
// in place of a list never fail the decoding.
func (lp *LessonPlan) UnmarshalJSON(b []byte) error {
	var m map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&m); err != nil {
		return err
	}
	*lp = planFromMap(m)
	return nil
}

func planFromMap(m map[string]interface{}) LessonPlan {
	lp := LessonPlan{
		Titulo: asString(m["titulo"]),
		Ementa: asString(m["ementa"]),
		Etapas: []Etapa{},
	}
	etapas, _ := m["etapas"].([]interface{})
	for _, e := range etapas {
		em, ok := e.(map[string]interface{})
		if !ok {
			continue
		}
		lp.Etapas = append(lp.Etapas, etapaFromMap(em))
	}
	return lp
}

func etapaFromMap(m map[string]interface{}) Etapa {
	e := Etapa{Nome: asString(m["nome"]), Aulas: []Aula{}}
	aulas, _ := m["aulas"].([]interface{})
	for _, a := range aulas {
		am, ok := a.(map[string]interface{})
		if !ok {
			continue
		}
		e.Aulas = append(e.Aulas, aulaFromMap(am))
	}
	return e
}

func aulaFromMap(m map[string]interface{}) Aula {
	return Aula{
		Numero:      asInt(m["numero"]),
		Data:        asString(m["data"]),
		Tipo:        Tipo(strings.ToLower(asString(m["tipo"]))),
		Titulo:      asString(m["titulo"]),
		Conteudo:    asString(m["conteudo"]),
		Objetivos:   asStrings(m["objetivos"]),
		Referencias: asStrings(m["referencias"]),
	}
}

func asString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(val)
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func asInt(v interface{}) *int {
	var f float64
	switch val := v.(type) {
	case json.Number:
		parsed, err := val.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case float64:
		f = val
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if math.IsNaN(f) || f >= math.MaxInt || f < math.MinInt {
		return nil
	}
	n := int(f)
	return &n
}

// asStrings accepts a list of scalars or a single string.
func asStrings(v interface{}) []string {
	switch val := v.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
		return nil
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := asString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
