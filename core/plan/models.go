package plan

import (
	"encoding/json"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/student"
)

// Tipo is the kind of a scheduled session.
type Tipo string

const (
	TipoAula     Tipo = "aula"
	TipoProva    Tipo = "prova"
	TipoTrabalho Tipo = "trabalho"
	TipoRevisao  Tipo = "revisao"
	TipoRecesso  Tipo = "recesso"
)

var Tipos = []Tipo{TipoAula, TipoProva, TipoTrabalho, TipoRevisao, TipoRecesso}

func (t Tipo) Valid() bool {
	for _, tipo := range Tipos {
		if t == tipo {
			return true
		}
	}
	return false
}

// LessonPlan is a structured course plan: ordered etapas of ordered aulas.
// Absent titulo and ementa stay absent.
type LessonPlan struct {
	Titulo string  `json:"titulo,omitempty"`
	Ementa string  `json:"ementa,omitempty"`
	Etapas []Etapa `json:"etapas"`
}

// Etapa is a course segment, eg. a bimester.
type Etapa struct {
	Nome  string `json:"nome"`
	Aulas []Aula `json:"aulas"`
}

// Aula is one scheduled session: a class, an exam, an assignment, a review or a break.
// Numero is 1-based within its etapa and may be missing; Tipo is kept as produced.
type Aula struct {
	Numero      *int     `json:"numero,omitempty"`
	Data        string   `json:"data,omitempty"` // YYYY-MM-DD
	Tipo        Tipo     `json:"tipo,omitempty"`
	Titulo      string   `json:"titulo,omitempty"`
	Conteudo    string   `json:"conteudo,omitempty"`
	Objetivos   []string `json:"objetivos,omitempty"`
	Referencias []string `json:"referencias,omitempty"`
}

// Clone deep-copies the plan.
func (lp LessonPlan) Clone() LessonPlan {
	etapas := make([]Etapa, len(lp.Etapas))
	for i, e := range lp.Etapas {
		aulas := make([]Aula, len(e.Aulas))
		for j, a := range e.Aulas {
			if a.Numero != nil {
				n := *a.Numero
				a.Numero = &n
			}
			a.Objetivos = cloneStrings(a.Objetivos)
			a.Referencias = cloneStrings(a.Referencias)
			aulas[j] = a
		}
		etapas[i] = Etapa{Nome: e.Nome, Aulas: aulas}
	}
	lp.Etapas = etapas
	return lp
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

// Document is either a Structured plan or the RawOnly text the model produced.
type Document interface {
	isDocument()
	// Plan returns the structured plan, if any.
	Plan() (LessonPlan, bool)
}

// Structured is a successfully extracted plan.
type Structured struct {
	Plano LessonPlan
}

// RawOnly preserves a model answer that held no extractable plan, for display or regeneration.
type RawOnly struct {
	Text string
}

func (Structured) isDocument() {}
func (RawOnly) isDocument()    {}

func (s Structured) Plan() (LessonPlan, bool) { return s.Plano, true }
func (RawOnly) Plan() (LessonPlan, bool)      { return LessonPlan{}, false }

func (s Structured) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Plano LessonPlan `json:"plano"`
	}{s.Plano})
}

func (r RawOnly) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Raw string `json:"raw"`
	}{r.Text})
}

// Titulo is the display title of a document.
func Titulo(doc Document) string {
	if lp, ok := doc.Plan(); ok && lp.Titulo != "" {
		return lp.Titulo
	}
	return untitled
}

func cloneDocument(doc Document) Document {
	if s, ok := doc.(Structured); ok {
		return Structured{Plano: s.Plano.Clone()}
	}
	return doc
}

// StoredPlan is a persisted lesson plan document: either the user's current slot or a snapshot.
type StoredPlan struct {
	ID        string
	UserID    string
	Titulo    string
	Document  Document
	CreatedAt time.Time // UTC
	UpdatedAt time.Time // UTC
}

type storedPlanJSON struct {
	ID        string          `json:"_id"`
	UserID    string          `json:"userId"`
	Titulo    string          `json:"titulo"`
	Plano     json.RawMessage `json:"plano,omitempty"`
	Raw       *string         `json:"raw,omitempty"`
	CreatedAt *time.Time      `json:"createdAt,omitempty"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// MarshalJSON flattens the document into the stored layout:
// {_id, userId, titulo, plano | raw, createdAt, updatedAt}.
func (p StoredPlan) MarshalJSON() ([]byte, error) {
	out := storedPlanJSON{ID: p.ID, UserID: p.UserID, Titulo: p.Titulo}
	switch doc := p.Document.(type) {
	case Structured:
		b, err := json.Marshal(doc.Plano)
		if err != nil {
			return nil, err
		}
		out.Plano = b
	case RawOnly:
		out.Raw = &doc.Text
	}
	if !p.CreatedAt.IsZero() {
		out.CreatedAt = &p.CreatedAt
	}
	if !p.UpdatedAt.IsZero() {
		out.UpdatedAt = &p.UpdatedAt
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the stored layout. A stored raw text is re-extracted.
func (p *StoredPlan) UnmarshalJSON(b []byte) error {
	var in storedPlanJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*p = StoredPlan{ID: in.ID, UserID: in.UserID, Titulo: in.Titulo}
	if in.CreatedAt != nil {
		p.CreatedAt = in.CreatedAt.UTC()
	}
	if in.UpdatedAt != nil {
		p.UpdatedAt = in.UpdatedAt.UTC()
	}

	doc, err := documentFrom(in.Plano, in.Raw)
	if err != nil {
		return err
	}
	p.Document = doc
	return nil
}

// DecodeDocument reads a document encoded as {"plano": ...} or {"raw": ...}.
func DecodeDocument(b []byte) (Document, error) {
	var in struct {
		Plano json.RawMessage `json:"plano"`
		Raw   *string         `json:"raw"`
	}
	if err := json.Unmarshal(b, &in); err != nil {
		return nil, errors.Wrap(err, "decoding document")
	}
	return documentFrom(in.Plano, in.Raw)
}

func documentFrom(plano json.RawMessage, raw *string) (Document, error) {
	switch {
	case len(plano) > 0 && string(plano) != "null":
		var lp LessonPlan
		if err := json.Unmarshal(plano, &lp); err != nil {
			return nil, errors.Wrap(err, "decoding plano")
		}
		return Structured{Plano: lp}, nil
	case raw != nil:
		return DocumentFromText(*raw), nil
	default:
		return RawOnly{}, nil
	}
}

// lastModified orders plans newest first.
func (p StoredPlan) lastModified() time.Time {
	if !p.UpdatedAt.IsZero() {
		return p.UpdatedAt
	}
	return p.CreatedAt
}

// CourseConfig describes the course a plan is generated for.
type CourseConfig struct {
	Nivel             string   `json:"nivel"`
	Curso             string   `json:"curso"`
	Disciplina        string   `json:"disciplina"`
	Objetivo          string   `json:"objetivo"`
	Estrutura         string   `json:"estrutura" validate:"omitempty,oneof=Anual Semestral"`
	Subdivisao        string   `json:"subdivisao" validate:"omitempty,oneof=Bimestral Trimestral Etapas"`
	NumEtapas         int      `json:"numEtapas" validate:"gte=0,lte=12"`
	ProvasPorEtapa    int      `json:"provasPorEtapa" validate:"gte=0,lte=20"`
	TrabalhosPorEtapa int      `json:"trabalhosPorEtapa" validate:"gte=0,lte=20"`
	PesoProva         float64  `json:"pesoProva" validate:"gte=0,lte=100"`
	PesoTrabalho      float64  `json:"pesoTrabalho" validate:"gte=0,lte=100"`
	MediaMinima       float64  `json:"mediaMinima" validate:"gte=0,lte=10"`
	FrequenciaMinima  float64  `json:"frequenciaMinima" validate:"gte=0,lte=100"`
	AulasPorSemana    int      `json:"aulasPorSemana" validate:"gte=0,lte=40"`
	DuracaoAula       int      `json:"duracaoAula" validate:"gte=0,lte=600"`
	DataInicio        string   `json:"dataInicio" validate:"omitempty,datetime=2006-01-02"`
	DataFim           string   `json:"dataFim" validate:"omitempty,datetime=2006-01-02"`
	DiasAula          []string `json:"diasAula" validate:"omitempty,dive,oneof=dom seg ter qua qui sex sab"`
	PerfilTurma       string   `json:"perfilTurma"`
	InsightsProfessor string   `json:"insightsProfessor"`
}

func DefaultCourseConfig() CourseConfig {
	return CourseConfig{
		Nivel:             "Graduação",
		Estrutura:         "Semestral",
		Subdivisao:        "Etapas",
		NumEtapas:         3,
		ProvasPorEtapa:    1,
		TrabalhosPorEtapa: 1,
		PesoProva:         60,
		PesoTrabalho:      40,
		MediaMinima:       7,
		FrequenciaMinima:  75,
		AulasPorSemana:    2,
		DuracaoAula:       50,
		DiasAula:          []string{"seg", "qua"},
	}
}

func (c *CourseConfig) Validate(validate *validator.Validate) error {
	c.Nivel = core.CleanString(c.Nivel)
	c.Curso = core.CleanString(c.Curso)
	c.Disciplina = core.CleanString(c.Disciplina)
	c.Objetivo = core.CleanString(c.Objetivo)
	c.PerfilTurma = core.CleanString(c.PerfilTurma)
	c.InsightsProfessor = core.CleanString(c.InsightsProfessor)
	for i, d := range c.DiasAula {
		c.DiasAula[i] = core.CleanString(d, true /* lower */)
	}
	return validate.Struct(c)
}

func (c CourseConfig) Thresholds() student.Thresholds {
	return student.Thresholds{MediaMinima: c.MediaMinima, FrequenciaMinima: c.FrequenciaMinima}
}

// MaterialFile is one uploaded text document.
type MaterialFile struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// Materials is the course material topics are extracted from.
type Materials struct {
	Files        []MaterialFile `json:"files" validate:"required_without_all=Bibliografia Links,dive"`
	Bibliografia string         `json:"bibliografia"`
	Links        string         `json:"links"`
}

func (m *Materials) Validate(validate *validator.Validate) error {
	m.Bibliografia = core.CleanString(m.Bibliografia)
	m.Links = core.CleanString(m.Links)
	return validate.Struct(m)
}

// Text concatenates the materials into the prompt content.
func (m Materials) Text() string {
	var b []byte
	for _, f := range m.Files {
		b = append(b, "\n--- "+f.Name+" ---\n"+f.Content+"\n"...)
	}
	if m.Bibliografia != "" {
		b = append(b, "\n--- Bibliografia ---\n"+m.Bibliografia+"\n"...)
	}
	if m.Links != "" {
		b = append(b, "\n--- Links ---\n"+m.Links+"\n"...)
	}
	return string(b)
}

// Topics is what the model extracted from course material.
type Topics struct {
	Topicos     []interface{} `json:"topicos"`
	Conceitos   []interface{} `json:"conceitos"`
	Sequencia   []interface{} `json:"sequencia"`
	Referencias []interface{} `json:"referencias"`
}

// GenerationRequest is the input of a plan generation.
type GenerationRequest struct {
	Config       CourseConfig `json:"config"`
	Topics       *Topics      `json:"topicos,omitempty"`
	Bibliografia string       `json:"bibliografia"`
	Links        string       `json:"links"`
}

func (gr *GenerationRequest) Validate(validate *validator.Validate) error {
	return gr.Config.Validate(validate)
}

// AulaPatch is a field-level edit of one aula. Nil fields are left untouched.
type AulaPatch struct {
	Data        *string   `json:"data" validate:"omitempty,datetime=2006-01-02"`
	Tipo        *Tipo     `json:"tipo" validate:"omitempty,tipo"`
	Titulo      *string   `json:"titulo"`
	Conteudo    *string   `json:"conteudo"`
	Objetivos   *[]string `json:"objetivos"`
	Referencias *[]string `json:"referencias"`
}

func (ap *AulaPatch) Validate(validate *validator.Validate) error {
	if ap.Tipo != nil {
		tipo := Tipo(core.CleanString(string(*ap.Tipo), true /* lower */))
		ap.Tipo = &tipo
	}
	return validate.Struct(ap)
}
