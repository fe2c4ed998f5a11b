package analytics

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/llmjson"
	"github.com/trezcool/edupilot/core/plan"
	"github.com/trezcool/edupilot/core/student"
	"github.com/trezcool/edupilot/core/user"
)

type rosterMock []student.Student

func (r rosterMock) List(context.Context) ([]student.Student, error) { return r, nil }

type configsMock struct{ conf plan.CourseConfig }

func (c configsMock) LoadCourseConfig(context.Context, user.Session) (plan.CourseConfig, error) {
	return c.conf, nil
}

type oracleMock struct {
	answer string
	prompt string
}

func (o *oracleMock) Generate(_ context.Context, prompt string, _ core.GenerateOptions) (string, error) {
	o.prompt = prompt
	return o.answer, nil
}

type mailMock struct {
	mutex sync.Mutex
	sent  []*core.EmailMessage
}

func (m *mailMock) SendMessages(messages ...*core.EmailMessage) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.sent = append(m.sent, messages...)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

var (
	ctx  = context.Background()
	sess = user.Session{Teacher: user.Teacher{Username: "prof", Name: "Prof", Email: "prof@escola.com"}}

	classroom = rosterMock{
		{ID: "a1", Name: "Ana", Attributes: map[string]interface{}{"prova1": 8, "prova2": 9, "trabalho1": 7, "frequencia": 90}},
		{ID: "a2", Name: "Bruno", Attributes: map[string]interface{}{"prova1": 4, "frequencia": 60}},
		{ID: "a3", Name: "Caio"},
	}
)

func floatPtr(f float64) *float64 { return &f }

func TestBuildDashboard_Local(t *testing.T) {
	d := BuildDashboard(classroom, nil)

	assert.False(t, d.Analyzed)
	assert.Equal(t, 3, d.TotalAlunos)
	assert.Equal(t, 2, d.AlunosEmRisco)
	assert.Equal(t, 0, d.AlunosInvisiveis)
	assert.Equal(t, 7.0, d.MediaGeral)
	assert.Equal(t, 75.0, d.FrequenciaMedia)
	assert.Equal(t, []StudentSummary{
		{ID: "a1", Name: "Ana", Score: 84, Tier: student.TierOtimo},
		{ID: "a2", Name: "Bruno", Score: 48, Tier: student.TierRisco, AtRisk: true},
		{ID: "a3", Name: "Caio", Score: 50, Tier: student.TierRisco, AtRisk: true},
	}, d.Students)
}

func TestBuildDashboard_Analyzed(t *testing.T) {
	a := &Analysis{
		AlunosEmRisco:    []Flag{{ID: "a1", Motivo: "queda recente"}},
		AlunosInvisiveis: []Flag{{ID: "a3", Motivo: "não participa"}},
		Insights:         []string{"turma heterogênea"},
		MediaGeral:       floatPtr(6.5),
	}
	d := BuildDashboard(classroom, a)

	assert.True(t, d.Analyzed)
	assert.Equal(t, 1, d.AlunosEmRisco)
	assert.Equal(t, 1, d.AlunosInvisiveis)
	assert.Equal(t, 6.5, d.MediaGeral)
	assert.Equal(t, 75.0, d.FrequenciaMedia, "missing figures fall back locally")
	assert.Equal(t, []string{"turma heterogênea"}, d.Insights)
	assert.Equal(t, []string{}, d.Sugestoes)

	assert.True(t, d.Students[0].AtRisk)
	assert.Equal(t, "queda recente", d.Students[0].Motivo)
	assert.False(t, d.Students[1].AtRisk, "the analysis overrides the local heuristic")
	assert.True(t, d.Students[2].Invisible)
	assert.Equal(t, "não participa", d.Students[2].Motivo)
}

func TestBuildDashboard_Empty(t *testing.T) {
	d := BuildDashboard(nil, nil)
	assert.Equal(t, 0, d.TotalAlunos)
	assert.Equal(t, 0.0, d.MediaGeral)
	assert.Equal(t, 0.0, d.FrequenciaMedia)
	assert.Empty(t, d.Students)
}

func TestDigest(t *testing.T) {
	tests := []struct {
		name     string
		analysis *Analysis
		want     Notification
		wantOK   bool
	}{
		{name: "no analysis"},
		{name: "nothing to say", analysis: &Analysis{Insights: []string{"ok"}}},
		{
			name:     "students at risk",
			analysis: &Analysis{AlunosEmRisco: []Flag{{ID: "a"}}, Sugestoes: []string{"x", "y"}},
			want: Notification{
				Type:    NotificationAlert,
				Title:   digestTitle,
				Message: "1 aluno(s) em risco · 2 sugestão(ões) disponível(eis). Confira os detalhes no Dashboard.",
			},
			wantOK: true,
		},
		{
			name:     "invisible only",
			analysis: &Analysis{AlunosInvisiveis: []Flag{{ID: "a"}, {ID: "b"}}},
			want: Notification{
				Type:    NotificationInsight,
				Title:   digestTitle,
				Message: "2 aluno(s) invisível(eis). Confira os detalhes no Dashboard.",
			},
			wantOK: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := Digest(tt.analysis)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestService_Analyze(t *testing.T) {
	origNow := nowFunc
	nowFunc = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { nowFunc = origNow }()

	oracle := &oracleMock{answer: "Análise:\n```json\n" +
		`{"alunosInvisiveis":["a3"],"alunosEmRisco":[{"_id":"a2","motivo":"faltas"}],"insights":["i1"],"sugestoes":"tutoria","mediaGeral":6.3,"frequenciaMedia":0}` +
		"\n```"}
	mailer := new(mailMock)
	svc := NewService(classroom, configsMock{conf: plan.DefaultCourseConfig()}, oracle, mailer, nopLogger{}, true)

	assert.Nil(t, svc.Latest(sess))

	a, err := svc.Analyze(ctx, sess, classroom)
	require.NoError(t, err)
	assert.Equal(t, []Flag{{ID: "a3"}}, a.AlunosInvisiveis)
	assert.Equal(t, []Flag{{ID: "a2", Motivo: "faltas"}}, a.AlunosEmRisco)
	assert.Equal(t, []string{"tutoria"}, a.Sugestoes)
	require.NotNil(t, a.MediaGeral)
	assert.Equal(t, 6.3, *a.MediaGeral)
	assert.Nil(t, a.FrequenciaMedia)
	assert.Equal(t, 2025, a.AnalyzedAt.Year())

	assert.Contains(t, oracle.prompt, "média mínima (7)")
	assert.Contains(t, oracle.prompt, `"_id": "a2"`)

	latest := svc.Latest(sess)
	require.NotNil(t, latest)
	assert.Equal(t, a.AlunosEmRisco, latest.AlunosEmRisco)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "prof@escola.com", mailer.sent[0].To[0].Address)
	assert.Equal(t, digestTemplate, mailer.sent[0].TemplateName)

	d, err := svc.Dashboard(ctx, sess)
	require.NoError(t, err)
	assert.True(t, d.Analyzed)
	assert.Equal(t, 1, d.AlunosEmRisco)
	assert.Equal(t, 6.3, d.MediaGeral)
	assert.Equal(t, student.DefaultThresholds(), d.Thresholds)
}

func TestService_Analyze_Failures(t *testing.T) {
	oracle := &oracleMock{answer: "Não há dados suficientes."}
	svc := NewService(classroom, configsMock{}, oracle, nil, nopLogger{}, true)

	_, err := svc.Analyze(ctx, sess, nil)
	assert.Equal(t, ErrNoStudents, err)

	_, err = svc.Analyze(ctx, sess, classroom)
	var failure *llmjson.ExtractionFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, oracle.answer, failure.Raw)
	assert.Nil(t, svc.Latest(sess))

	// unset minimums fall back to the defaults in the prompt
	assert.Contains(t, oracle.prompt, "frequência abaixo de 75%")
}
