package plan

import "github.com/pkg/errors"

const newAulaTitulo = "Nova aula"

var (
	// errors
	ErrNotStructured = errors.New("the lesson plan has no structured etapas")
	ErrEtapaNotFound = errors.New("etapa not found")
	ErrAulaNotFound  = errors.New("aula not found")
)

// Edits work on a copy and return it; etapa and aula indices are 0-based.
// Numbers are never rewritten: a new aula gets max(numero)+1, removals leave gaps.

func AddAula(doc Document, etapa int) (Document, Aula, error) {
	lp, err := editable(doc, etapa)
	if err != nil {
		return nil, Aula{}, err
	}

	next := 1
	for _, a := range lp.Etapas[etapa].Aulas {
		if a.Numero != nil && *a.Numero >= next {
			next = *a.Numero + 1
		}
	}
	aula := Aula{Numero: &next, Tipo: TipoAula, Titulo: newAulaTitulo, Objetivos: []string{}, Referencias: []string{}}
	lp.Etapas[etapa].Aulas = append(lp.Etapas[etapa].Aulas, aula)
	return Structured{Plano: lp}, aula, nil
}

func UpdateAula(doc Document, etapa, aula int, patch AulaPatch) (Document, Aula, error) {
	lp, err := editable(doc, etapa)
	if err != nil {
		return nil, Aula{}, err
	}
	aulas := lp.Etapas[etapa].Aulas
	if aula < 0 || aula >= len(aulas) {
		return nil, Aula{}, ErrAulaNotFound
	}

	a := &aulas[aula]
	if patch.Data != nil {
		a.Data = *patch.Data
	}
	if patch.Tipo != nil {
		a.Tipo = *patch.Tipo
	}
	if patch.Titulo != nil {
		a.Titulo = *patch.Titulo
	}
	if patch.Conteudo != nil {
		a.Conteudo = *patch.Conteudo
	}
	if patch.Objetivos != nil {
		a.Objetivos = cloneStrings(*patch.Objetivos)
	}
	if patch.Referencias != nil {
		a.Referencias = cloneStrings(*patch.Referencias)
	}
	return Structured{Plano: lp}, *a, nil
}

func RemoveAula(doc Document, etapa, aula int) (Document, error) {
	lp, err := editable(doc, etapa)
	if err != nil {
		return nil, err
	}
	aulas := lp.Etapas[etapa].Aulas
	if aula < 0 || aula >= len(aulas) {
		return nil, ErrAulaNotFound
	}
	lp.Etapas[etapa].Aulas = append(aulas[:aula:aula], aulas[aula+1:]...)
	return Structured{Plano: lp}, nil
}

func editable(doc Document, etapa int) (LessonPlan, error) {
	if doc == nil {
		return LessonPlan{}, ErrNotStructured
	}
	lp, ok := doc.Plan()
	if !ok {
		return LessonPlan{}, ErrNotStructured
	}
	if etapa < 0 || etapa >= len(lp.Etapas) {
		return LessonPlan{}, ErrEtapaNotFound
	}
	return lp.Clone(), nil
}
