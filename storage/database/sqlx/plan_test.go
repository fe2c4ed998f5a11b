package sqlxrepos

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edupilot/core/plan"
	"github.com/trezcool/edupilot/tests"
)

func TestPlanRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := NewPlanRepository(db)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	numero := 1
	current := plan.StoredPlan{
		ID:     plan.CurrentID("prof"),
		UserID: "prof",
		Titulo: "Algoritmos",
		Document: plan.Structured{Plano: plan.LessonPlan{
			Titulo: "Algoritmos",
			Etapas: []plan.Etapa{{Nome: "E1", Aulas: []plan.Aula{{Numero: &numero, Titulo: "Intro"}}}},
		}},
		CreatedAt: created,
		UpdatedAt: created,
	}

	_, err := repo.Upsert(ctx, current)
	require.NoError(t, err)
	current.UpdatedAt = created.Add(time.Hour)
	_, err = repo.Upsert(ctx, current)
	require.NoError(t, err)

	_, err = repo.Create(ctx, plan.StoredPlan{ID: "plan_1", UserID: "prof", Document: plan.RawOnly{Text: "sem json"}, CreatedAt: created, UpdatedAt: created})
	require.NoError(t, err)
	_, err = repo.Create(ctx, plan.StoredPlan{ID: "plan_1", UserID: "prof", Document: plan.RawOnly{}, CreatedAt: created, UpdatedAt: created})
	assert.Error(t, err)

	got, err := repo.Get(ctx, current.ID)
	require.NoError(t, err)
	assert.Equal(t, current, got)

	_, err = repo.Get(ctx, "missing")
	assert.Equal(t, plan.ErrNotFound, err)

	plans, err := repo.QueryByUser(ctx, "prof")
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, current.ID, plans[0].ID)
	assert.Equal(t, plan.RawOnly{Text: "sem json"}, plans[1].Document)

	_, err = repo.GetCourseConfig(ctx, "prof")
	assert.Equal(t, plan.ErrNotFound, err)
	conf := plan.DefaultCourseConfig()
	require.NoError(t, repo.UpsertCourseConfig(ctx, "prof", conf))
	conf.Disciplina = "Algoritmos"
	require.NoError(t, repo.UpsertCourseConfig(ctx, "prof", conf))
	gotConf, err := repo.GetCourseConfig(ctx, "prof")
	require.NoError(t, err)
	assert.Equal(t, conf, gotConf)
}
