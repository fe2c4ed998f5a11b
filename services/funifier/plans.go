package funifiersvc

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core/plan"
)

const (
	lessonPlansCollection   = "lesson_plans"
	courseConfigsCollection = "course_config"
)

// PlanRepository keeps lesson plans and course configs in Funifier custom collections.
type PlanRepository struct {
	client *Client
}

var _ plan.Repository = (*PlanRepository)(nil)

func NewPlanRepository(client *Client) *PlanRepository {
	return &PlanRepository{client: client}
}

func (repo *PlanRepository) Upsert(ctx context.Context, p plan.StoredPlan) (plan.StoredPlan, error) {
	if err := repo.client.Upsert(ctx, lessonPlansCollection, p.ID, p); err != nil {
		return plan.StoredPlan{}, err
	}
	return p, nil
}

func (repo *PlanRepository) Create(ctx context.Context, p plan.StoredPlan) (plan.StoredPlan, error) {
	if err := repo.client.Insert(ctx, lessonPlansCollection, p.ID, p); err != nil {
		return plan.StoredPlan{}, err
	}
	return p, nil
}

func (repo *PlanRepository) Get(ctx context.Context, id string) (plan.StoredPlan, error) {
	plans, err := repo.find(ctx, map[string]string{"_id": id})
	if err != nil {
		return plan.StoredPlan{}, err
	}
	for _, p := range plans {
		if p.ID == id {
			return p, nil
		}
	}
	return plan.StoredPlan{}, plan.ErrNotFound
}

// QueryByUser may return other users' plans when Funifier ignores the filter; the plan service re-filters.
func (repo *PlanRepository) QueryByUser(ctx context.Context, userID string) ([]plan.StoredPlan, error) {
	return repo.find(ctx, map[string]string{"userId": userID})
}

func (repo *PlanRepository) find(ctx context.Context, query map[string]string) ([]plan.StoredPlan, error) {
	docs, err := repo.client.Find(ctx, lessonPlansCollection, query)
	if err != nil {
		return nil, err
	}
	plans := make([]plan.StoredPlan, 0, len(docs))
	for _, doc := range docs {
		var p plan.StoredPlan
		if err = json.Unmarshal(doc, &p); err != nil {
			repo.client.logger.Warn("skipping undecodable lesson plan", err)
			continue
		}
		plans = append(plans, p)
	}
	return plans, nil
}

func (repo *PlanRepository) UpsertCourseConfig(ctx context.Context, userID string, c plan.CourseConfig) error {
	return repo.client.Upsert(ctx, courseConfigsCollection, userID, c)
}

func (repo *PlanRepository) GetCourseConfig(ctx context.Context, userID string) (plan.CourseConfig, error) {
	docs, err := repo.client.Find(ctx, courseConfigsCollection, map[string]string{"_id": userID})
	if err != nil {
		return plan.CourseConfig{}, err
	}
	for _, doc := range docs {
		var c struct {
			ID string `json:"_id"`
			plan.CourseConfig
		}
		if err = json.Unmarshal(doc, &c); err != nil {
			return plan.CourseConfig{}, errors.Wrap(err, "decoding course config")
		}
		if c.ID == userID {
			return c.CourseConfig, nil
		}
	}
	return plan.CourseConfig{}, plan.ErrNotFound
}
