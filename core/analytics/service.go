// Package analytics reads the classroom: model-driven analyses, the dashboard and digests.
package analytics

import (
	"context"
	"net/mail"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/llmjson"
	"github.com/trezcool/edupilot/core/plan"
	"github.com/trezcool/edupilot/core/student"
	"github.com/trezcool/edupilot/core/user"
)

const digestTemplate = "analysis_digest"

var (
	// errors
	ErrNoStudents = errors.New("there are no students to analyze")

	nowFunc = time.Now // mockable

	analysisOptions = llmjson.Options{
		AnchorKey:  "alunosEmRisco",
		ContentKey: "alunosInvisiveis",
		Accept:     llmjson.HasKeys("alunosInvisiveis", "alunosEmRisco", "insights", "sugestoes"),
	}
)

type (
	Roster interface {
		List(ctx context.Context) ([]student.Student, error)
	}

	CourseConfigs interface {
		LoadCourseConfig(ctx context.Context, sess user.Session) (plan.CourseConfig, error)
	}

	Service struct {
		roster  Roster
		configs CourseConfigs
		oracle  core.TextOracle
		mailSvc core.EmailService
		logger  core.Logger
		notify  bool

		mutex  sync.RWMutex
		latest map[string]*Analysis // {userID: analysis}
	}
)

// NewService returns the analytics service. mailSvc may be nil when digests are not e-mailed.
func NewService(roster Roster, configs CourseConfigs, oracle core.TextOracle, mailSvc core.EmailService, logger core.Logger, notifyByEmail bool) *Service {
	return &Service{
		roster:  roster,
		configs: configs,
		oracle:  oracle,
		mailSvc: mailSvc,
		logger:  logger,
		notify:  notifyByEmail && mailSvc != nil,
		latest:  make(map[string]*Analysis),
	}
}

// Analyze asks the oracle to classify the students and remembers the result as the
// teacher's latest analysis. The digest is e-mailed when enabled.
func (svc *Service) Analyze(ctx context.Context, sess user.Session, students []student.Student) (*Analysis, error) {
	if len(students) == 0 {
		return nil, ErrNoStudents
	}

	conf, err := svc.configs.LoadCourseConfig(ctx, sess)
	if err != nil {
		return nil, errors.Wrap(err, "loading course config")
	}
	t := conf.Thresholds().WithDefaults()

	prompt, err := core.RenderPrompt("classroom_analysis", struct {
		MediaMinima      float64
		FrequenciaMinima float64
		Alunos           []student.Student
	}{t.MediaMinima, t.FrequenciaMinima, students})
	if err != nil {
		return nil, err
	}

	raw, err := svc.oracle.Generate(ctx, prompt, core.GenerateOptions{JSON: true})
	if err != nil {
		return nil, errors.Wrap(err, "analyzing classroom")
	}
	res, err := llmjson.Extract(raw, analysisOptions)
	if err != nil {
		svc.logger.Warn("classroom analysis held no JSON", sess.Teacher,
			map[string]interface{}{"raw": core.Truncate(raw, 500)})
		return nil, err
	}

	a := analysisFromMap(res.Value.(map[string]interface{}))
	a.AnalyzedAt = nowFunc().UTC()

	svc.mutex.Lock()
	svc.latest[sess.UserID()] = &a
	svc.mutex.Unlock()

	if svc.notify {
		svc.sendDigest(sess.Teacher, &a)
	}
	return &a, nil
}

// Latest returns the teacher's last analysis, if any.
func (svc *Service) Latest(sess user.Session) *Analysis {
	svc.mutex.RLock()
	defer svc.mutex.RUnlock()
	a, ok := svc.latest[sess.UserID()]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

// Dashboard loads the roster and course config concurrently and builds the overview
// from the latest analysis.
func (svc *Service) Dashboard(ctx context.Context, sess user.Session) (Dashboard, error) {
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
		conf, err = svc.configs.LoadCourseConfig(gctx, sess)
		return errors.Wrap(err, "loading course config")
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}

	d := BuildDashboard(students, svc.Latest(sess))
	d.Thresholds = conf.Thresholds().WithDefaults()
	return d, nil
}

type digestData struct {
	Name      string
	Title     string
	Message   string
	AtRisk    []Flag
	Invisible []Flag
}

func (svc *Service) sendDigest(teacher user.Teacher, a *Analysis) {
	n, ok := Digest(a)
	if !ok {
		return
	}
	addr, err := mail.ParseAddress(teacher.Email)
	if err != nil {
		svc.logger.Debug("digest not sent: teacher has no e-mail address", teacher)
		return
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: teacher.Name, Address: addr.Address}},
		Subject:      n.Title,
		TemplateName: digestTemplate,
		TemplateData: digestData{
			Name:      teacher.Name,
			Title:     n.Title,
			Message:   n.Message,
			AtRisk:    a.AlunosEmRisco,
			Invisible: a.AlunosInvisiveis,
		},
	})
}
