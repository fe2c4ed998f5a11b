package student

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/user"
)

var (
	// errors
	ErrNotFound = errors.New("student not found")
	ErrExists   = errors.New("a student with this id already exists")

	bulkConcurrency = 4
)

type (
	// Repository is the roster store.
	Repository interface {
		List(ctx context.Context) ([]Student, error)
		Get(ctx context.Context, id string) (Student, error)
		Create(ctx context.Context, s Student) (Student, error)
		Update(ctx context.Context, s Student) (Student, error)
	}

	Service struct {
		repo   Repository
		logger core.Logger
	}
)

func NewService(repo Repository, logger core.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns every player that is not a professor.
func (svc *Service) List(ctx context.Context) ([]Student, error) {
	players, err := svc.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "listing players")
	}
	students := make([]Student, 0, len(players))
	for _, p := range players {
		if !p.IsProfessor() {
			students = append(students, p)
		}
	}
	return students, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	s, err := svc.repo.Get(ctx, core.CleanString(id))
	if err != nil {
		return Student{}, err
	}
	if s.IsProfessor() {
		return Student{}, ErrNotFound
	}
	return s, nil
}

// Create enrolls a student with role aluno, full attendance and a default e-mail.
func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	s := Student{
		ID:         ns.ID,
		Name:       ns.Name,
		Email:      ns.Email,
		Attributes: make(map[string]interface{}, len(ns.Attributes)+2),
	}
	if s.Email == "" {
		s.Email = fmt.Sprintf("%s@%s", ns.ID, defaultEmailDomain)
	}
	s.Attributes[AttrFrequencia] = initialAttendance
	for k, v := range ns.Attributes {
		if v != nil {
			s.Attributes[k] = normalizeValue(v)
		}
	}
	s.Attributes[AttrRole] = user.RoleAluno

	created, err := svc.repo.Create(ctx, s)
	if err != nil {
		if errors.Cause(err) == ErrExists {
			return Student{}, core.NewValidationError(err, core.FieldError{Field: "_id", Error: err.Error()})
		}
		return Student{}, errors.Wrap(err, "creating player")
	}
	return created, nil
}

// BulkCreate enrolls students concurrently. Duplicates, in the input or in the store, are skipped.
func (svc *Service) BulkCreate(ctx context.Context, students []NewStudent) (BulkResult, error) {
	res := BulkResult{Created: []Student{}, Skipped: []BulkSkip{}}

	created := make([]*Student, len(students))
	skipped := make(map[int]BulkSkip)
	var mu sync.Mutex

	seen := make(map[string]bool, len(students))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bulkConcurrency)

	for i, ns := range students {
		if seen[ns.ID] {
			mu.Lock()
			skipped[i] = BulkSkip{ID: ns.ID, Reason: "duplicated in input"}
			mu.Unlock()
			continue
		}
		seen[ns.ID] = true

		g.Go(func() error {
			s, err := svc.Create(gctx, ns)
			if err != nil {
				var vErr *core.ValidationError
				if errors.As(err, &vErr) && errors.Cause(vErr.Err) == ErrExists {
					mu.Lock()
					skipped[i] = BulkSkip{ID: ns.ID, Reason: ErrExists.Error()}
					mu.Unlock()
					return nil
				}
				return errors.Wrapf(err, "creating student %q", ns.ID)
			}
			created[i] = &s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return BulkResult{}, err
	}

	for i := range students {
		if s := created[i]; s != nil {
			res.Created = append(res.Created, *s)
		} else if skip, ok := skipped[i]; ok {
			res.Skipped = append(res.Skipped, skip)
		}
	}
	svc.logger.Info(fmt.Sprintf("bulk enrollment: %d created, %d skipped", len(res.Created), len(res.Skipped)))
	return res, nil
}

// UpdateAttributes merges ug into the student's attributes.
func (svc *Service) UpdateAttributes(ctx context.Context, id string, ug UpdateGrades) (Student, error) {
	s, err := svc.Get(ctx, id)
	if err != nil {
		return Student{}, err
	}

	s = s.Clone()
	for k, v := range ug.Attributes {
		if v == nil {
			delete(s.Attributes, k)
			continue
		}
		s.Attributes[k] = normalizeValue(v)
	}

	updated, err := svc.repo.Update(ctx, s)
	if err != nil {
		return Student{}, errors.Wrap(err, "updating player")
	}
	return updated, nil
}

// Report builds the detail view of one student.
func (svc *Service) Report(ctx context.Context, id string, t Thresholds) (Report, error) {
	s, err := svc.Get(ctx, id)
	if err != nil {
		return Report{}, err
	}
	return NewReport(s, t), nil
}

// normalizeValue stores numeric strings as numbers.
func normalizeValue(v interface{}) interface{} {
	if _, ok := v.(string); ok {
		return Coerce(v)
	}
	return v
}
