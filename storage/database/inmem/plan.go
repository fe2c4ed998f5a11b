package inmemdb

import (
	"context"

	"github.com/trezcool/edupilot/core/plan"
)

type planRepository struct {
	plans   *planTable
	configs *configTable
}

func NewPlanRepository(db *DB) plan.Repository {
	return &planRepository{plans: db.plans, configs: db.configs}
}

func (repo *planRepository) Upsert(_ context.Context, p plan.StoredPlan) (plan.StoredPlan, error) {
	repo.plans.Lock()
	defer repo.plans.Unlock()
	repo.plans.table[p.ID] = p
	return p, nil
}

func (repo *planRepository) Create(ctx context.Context, p plan.StoredPlan) (plan.StoredPlan, error) {
	return repo.Upsert(ctx, p)
}

func (repo *planRepository) Get(_ context.Context, id string) (plan.StoredPlan, error) {
	repo.plans.RLock()
	defer repo.plans.RUnlock()
	if p, ok := repo.plans.table[id]; ok {
		return p, nil
	}
	return plan.StoredPlan{}, plan.ErrNotFound
}

func (repo *planRepository) QueryByUser(_ context.Context, userID string) ([]plan.StoredPlan, error) {
	repo.plans.RLock()
	defer repo.plans.RUnlock()
	plans := make([]plan.StoredPlan, 0)
	for _, p := range repo.plans.table {
		if p.UserID == userID {
			plans = append(plans, p)
		}
	}
	return plans, nil
}

func (repo *planRepository) UpsertCourseConfig(_ context.Context, userID string, c plan.CourseConfig) error {
	repo.configs.Lock()
	defer repo.configs.Unlock()
	c.DiasAula = append([]string(nil), c.DiasAula...)
	repo.configs.table[userID] = c
	return nil
}

func (repo *planRepository) GetCourseConfig(_ context.Context, userID string) (plan.CourseConfig, error) {
	repo.configs.RLock()
	defer repo.configs.RUnlock()
	c, ok := repo.configs.table[userID]
	if !ok {
		return plan.CourseConfig{}, plan.ErrNotFound
	}
	c.DiasAula = append([]string(nil), c.DiasAula...)
	return c, nil
}
