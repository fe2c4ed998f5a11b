// Package sqlxrepos implements the plan store on Postgres with sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core/plan"
)

type (
	planRepository struct {
		db *sqlx.DB
	}

	planRow struct {
		ID        string         `db:"id"`
		UserID    string         `db:"user_id"`
		Titulo    string         `db:"titulo"`
		Document  types.JSONText `db:"document"`
		CreatedAt time.Time      `db:"created_at"`
		UpdatedAt time.Time      `db:"updated_at"`
	}

	configRow struct {
		UserID    string         `db:"user_id"`
		Config    types.JSONText `db:"config"`
		UpdatedAt time.Time      `db:"updated_at"`
	}
)

var nowFunc = time.Now // mockable

func NewPlanRepository(db *sqlx.DB) plan.Repository {
	return &planRepository{db: db}
}

func rowFromPlan(p plan.StoredPlan) (planRow, error) {
	doc, err := json.Marshal(p.Document)
	if err != nil {
		return planRow{}, errors.Wrap(err, "encoding document")
	}
	return planRow{
		ID:        p.ID,
		UserID:    p.UserID,
		Titulo:    p.Titulo,
		Document:  doc,
		CreatedAt: p.CreatedAt.UTC(),
		UpdatedAt: p.UpdatedAt.UTC(),
	}, nil
}

func (r planRow) plan() (plan.StoredPlan, error) {
	doc, err := plan.DecodeDocument(r.Document)
	if err != nil {
		return plan.StoredPlan{}, errors.Wrapf(err, "lesson plan %q", r.ID)
	}
	return plan.StoredPlan{
		ID:        r.ID,
		UserID:    r.UserID,
		Titulo:    r.Titulo,
		Document:  doc,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}, nil
}

const (
	insertPlanQuery = `
INSERT INTO lesson_plans (id, user_id, titulo, document, created_at, updated_at)
VALUES (:id, :user_id, :titulo, :document, :created_at, :updated_at)`

	upsertPlanQuery = insertPlanQuery + `
ON CONFLICT (id) DO UPDATE
SET user_id = EXCLUDED.user_id, titulo = EXCLUDED.titulo, document = EXCLUDED.document,
    created_at = EXCLUDED.created_at, updated_at = EXCLUDED.updated_at`

	selectPlanQuery = `SELECT id, user_id, titulo, document, created_at, updated_at FROM lesson_plans`
)

func (repo *planRepository) Upsert(ctx context.Context, p plan.StoredPlan) (plan.StoredPlan, error) {
	return repo.write(ctx, upsertPlanQuery, p)
}

func (repo *planRepository) Create(ctx context.Context, p plan.StoredPlan) (plan.StoredPlan, error) {
	return repo.write(ctx, insertPlanQuery, p)
}

func (repo *planRepository) write(ctx context.Context, query string, p plan.StoredPlan) (plan.StoredPlan, error) {
	row, err := rowFromPlan(p)
	if err != nil {
		return plan.StoredPlan{}, err
	}
	if _, err = repo.db.NamedExecContext(ctx, query, row); err != nil {
		return plan.StoredPlan{}, errors.Wrapf(err, "writing lesson plan %q", p.ID)
	}
	return p, nil
}

func (repo *planRepository) Get(ctx context.Context, id string) (plan.StoredPlan, error) {
	var row planRow
	if err := repo.db.GetContext(ctx, &row, selectPlanQuery+` WHERE id = $1`, id); err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return plan.StoredPlan{}, plan.ErrNotFound
		}
		return plan.StoredPlan{}, errors.Wrapf(err, "getting lesson plan %q", id)
	}
	return row.plan()
}

func (repo *planRepository) QueryByUser(ctx context.Context, userID string) ([]plan.StoredPlan, error) {
	var rows []planRow
	query := selectPlanQuery + ` WHERE user_id = $1 ORDER BY updated_at DESC`
	if err := repo.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrapf(err, "querying lesson plans of %q", userID)
	}
	plans := make([]plan.StoredPlan, 0, len(rows))
	for _, row := range rows {
		p, err := row.plan()
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (repo *planRepository) UpsertCourseConfig(ctx context.Context, userID string, c plan.CourseConfig) error {
	conf, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encoding course config")
	}
	row := configRow{UserID: userID, Config: conf, UpdatedAt: nowFunc().UTC()}
	_, err = repo.db.NamedExecContext(ctx, `
INSERT INTO course_configs (user_id, config, updated_at) VALUES (:user_id, :config, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET config = EXCLUDED.config, updated_at = EXCLUDED.updated_at`, row)
	return errors.Wrapf(err, "saving course config of %q", userID)
}

func (repo *planRepository) GetCourseConfig(ctx context.Context, userID string) (plan.CourseConfig, error) {
	var row configRow
	err := repo.db.GetContext(ctx, &row, `SELECT user_id, config, updated_at FROM course_configs WHERE user_id = $1`, userID)
	if err != nil {
		if errors.Cause(err) == sql.ErrNoRows {
			return plan.CourseConfig{}, plan.ErrNotFound
		}
		return plan.CourseConfig{}, errors.Wrapf(err, "getting course config of %q", userID)
	}
	var c plan.CourseConfig
	if err = row.Config.Unmarshal(&c); err != nil {
		return plan.CourseConfig{}, errors.Wrap(err, "decoding course config")
	}
	return c, nil
}
