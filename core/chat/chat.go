// Package chat answers the teacher's free-form questions about the classroom.
package chat

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/analytics"
	"github.com/trezcool/edupilot/core/plan"
	"github.com/trezcool/edupilot/core/student"
	"github.com/trezcool/edupilot/core/user"
)

const noPlan = "Não configurado"

type (
	Roster interface {
		List(ctx context.Context) ([]student.Student, error)
	}

	Plans interface {
		Draft(sess user.Session) (plan.Document, error)
		LoadCourseConfig(ctx context.Context, sess user.Session) (plan.CourseConfig, error)
	}

	Analyses interface {
		Latest(sess user.Session) *analytics.Analysis
	}

	Service struct {
		roster   Roster
		plans    Plans
		analyses Analyses
		oracle   core.TextOracle
		logger   core.Logger
	}
)

// Message is a question from the teacher.
type Message struct {
	Text string `json:"message" validate:"required"`
}

func (m *Message) Validate(validate *validator.Validate) error {
	m.Text = core.CleanString(m.Text)
	return validate.Struct(m)
}

// Reply is the assistant's answer.
type Reply struct {
	Text string `json:"reply"`
}

// Context is the classroom snapshot the assistant answers from.
type Context struct {
	Alunos          []map[string]interface{} `json:"alunos"`
	TotalAlunos     int                      `json:"totalAlunos"`
	PlanoDeAula     string                   `json:"planoDeAula"`
	Configuracao    *CourseSummary           `json:"configuracao"`
	AnaliseAnterior *analytics.Analysis      `json:"analiseAnterior"`
}

type CourseSummary struct {
	Disciplina       string  `json:"disciplina"`
	Curso            string  `json:"curso"`
	Nivel            string  `json:"nivel"`
	MediaMinima      float64 `json:"mediaMinima"`
	FrequenciaMinima float64 `json:"frequenciaMinima"`
}

func NewService(roster Roster, plans Plans, analyses Analyses, oracle core.TextOracle, logger core.Logger) *Service {
	return &Service{roster: roster, plans: plans, analyses: analyses, oracle: oracle, logger: logger}
}

// Reply asks the oracle to answer msg with the classroom context.
func (svc *Service) Reply(ctx context.Context, sess user.Session, msg Message) (Reply, error) {
	text := core.CleanString(msg.Text)
	if text == "" {
		return Reply{}, core.NewValidationError(nil, core.FieldError{Field: "message", Error: "this field is required"})
	}

	cc, err := svc.BuildContext(ctx, sess)
	if err != nil {
		return Reply{}, err
	}
	prompt, err := core.RenderPrompt("chat", struct {
		Context *Context
		Message string
	}{cc, text})
	if err != nil {
		return Reply{}, err
	}

	answer, err := svc.oracle.Generate(ctx, prompt, core.GenerateOptions{})
	if err != nil {
		return Reply{}, errors.Wrap(err, "asking the assistant")
	}
	return Reply{Text: answer}, nil
}

// BuildContext gathers the roster, the plan being edited, the course config and the latest analysis.
func (svc *Service) BuildContext(ctx context.Context, sess user.Session) (*Context, error) {
	var (
		students []student.Student
		conf     plan.CourseConfig
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		students, err = svc.roster.List(gctx)
		return errors.Wrap(err, "listing students")
	})
	g.Go(func() (err error) {
		conf, err = svc.plans.LoadCourseConfig(gctx, sess)
		return errors.Wrap(err, "loading course config")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	cc := &Context{
		Alunos:      make([]map[string]interface{}, 0, len(students)),
		TotalAlunos: len(students),
		PlanoDeAula: noPlan,
		Configuracao: &CourseSummary{
			Disciplina:       conf.Disciplina,
			Curso:            conf.Curso,
			Nivel:            conf.Nivel,
			MediaMinima:      conf.MediaMinima,
			FrequenciaMinima: conf.FrequenciaMinima,
		},
		AnaliseAnterior: svc.analyses.Latest(sess),
	}
	for _, s := range students {
		aluno := make(map[string]interface{}, len(s.Attributes)+2)
		for k, v := range s.Attributes {
			aluno[k] = v
		}
		aluno["id"] = s.ID
		aluno["nome"] = s.Name
		cc.Alunos = append(cc.Alunos, aluno)
	}

	if doc, err := svc.plans.Draft(sess); err == nil {
		if lp, ok := doc.Plan(); ok && lp.Titulo != "" {
			cc.PlanoDeAula = lp.Titulo
		}
	}
	return cc, nil
}
