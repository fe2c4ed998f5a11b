package plan

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/llmjson"
	"github.com/trezcool/edupilot/core/user"
)

const (
	currentPrefix  = "current_"
	snapshotPrefix = "plan_"
	untitled       = "Plano sem título"

	generationMaxTokens int32 = 65536
)

var (
	// errors
	ErrNotFound = errors.New("lesson plan not found")
	ErrNoDraft  = errors.New("no lesson plan is being edited")

	nowFunc = time.Now // mockable
	newID   = func() string { return snapshotPrefix + uuid.NewString() }
)

type (
	// Repository is the plan store. Get and GetCourseConfig return ErrNotFound for unknown keys.
	Repository interface {
		Upsert(ctx context.Context, p StoredPlan) (StoredPlan, error)
		Create(ctx context.Context, p StoredPlan) (StoredPlan, error)
		Get(ctx context.Context, id string) (StoredPlan, error)
		QueryByUser(ctx context.Context, userID string) ([]StoredPlan, error)
		UpsertCourseConfig(ctx context.Context, userID string, c CourseConfig) error
		GetCourseConfig(ctx context.Context, userID string) (CourseConfig, error)
	}

	Service struct {
		repo   Repository
		oracle core.TextOracle
		logger core.Logger

		mutex  sync.Mutex
		drafts map[string]Document // {userID: draft}
	}
)

func NewService(repo Repository, oracle core.TextOracle, logger core.Logger) *Service {
	return &Service{
		repo:   repo,
		oracle: oracle,
		logger: logger,
		drafts: make(map[string]Document),
	}
}

// CurrentID is the id of the user's current plan slot.
func CurrentID(userID string) string {
	return currentPrefix + userID
}

// ExtractTopics asks the oracle to organize course material into topics.
// A *llmjson.ExtractionFailure carries the answer when it held no JSON.
func (svc *Service) ExtractTopics(ctx context.Context, m Materials) (Topics, error) {
	prompt, err := core.RenderPrompt("topics", struct{ Content string }{m.Text()})
	if err != nil {
		return Topics{}, err
	}
	raw, err := svc.oracle.Generate(ctx, prompt, core.GenerateOptions{})
	if err != nil {
		return Topics{}, errors.Wrap(err, "extracting topics")
	}

	res, err := llmjson.Extract(raw, llmjson.Options{
		AnchorKey:  "topicos",
		ContentKey: "topicos",
		Accept:     llmjson.HasKeys("topicos", "conceitos", "sequencia", "referencias"),
	})
	if err != nil {
		return Topics{}, err
	}
	obj := res.Value.(map[string]interface{})
	return Topics{
		Topicos:     asList(obj["topicos"]),
		Conceitos:   asList(obj["conceitos"]),
		Sequencia:   asList(obj["sequencia"]),
		Referencias: asList(obj["referencias"]),
	}, nil
}

// Generate saves the course config, asks the oracle for a plan and makes the answer
// the teacher's draft. The draft is saved as the current plan.
func (svc *Service) Generate(ctx context.Context, sess user.Session, req GenerationRequest) (StoredPlan, error) {
	uid := sess.UserID()
	if err := svc.repo.UpsertCourseConfig(ctx, uid, req.Config); err != nil {
		return StoredPlan{}, errors.Wrap(err, "saving course config")
	}

	prompt, err := core.RenderPrompt("lesson_plan", struct {
		Config CourseConfig
		Topics *Topics
		Extra  string
	}{
		Config: req.Config,
		Topics: req.Topics,
		Extra:  strings.TrimSpace(req.Bibliografia + "\n" + req.Links),
	})
	if err != nil {
		return StoredPlan{}, err
	}

	raw, err := svc.oracle.Generate(ctx, prompt, core.GenerateOptions{
		MaxOutputTokens: generationMaxTokens,
		JSON:            true,
	})
	if err != nil {
		return StoredPlan{}, errors.Wrap(err, "generating lesson plan")
	}

	doc := DocumentFromText(raw)
	if _, ok := doc.(RawOnly); ok {
		svc.logger.Warn("lesson plan answer held no structured plan", sess.Teacher,
			map[string]interface{}{"raw": core.Truncate(raw, 500)})
	}
	svc.setDraft(uid, doc)
	return svc.Save(ctx, sess)
}

// Draft returns the plan being edited.
func (svc *Service) Draft(sess user.Session) (Document, error) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	doc, ok := svc.drafts[sess.UserID()]
	if !ok {
		return nil, ErrNoDraft
	}
	return cloneDocument(doc), nil
}

func (svc *Service) AddAula(sess user.Session, etapa int) (Document, Aula, error) {
	var added Aula
	doc, err := svc.editDraft(sess, func(doc Document) (Document, error) {
		edited, aula, err := AddAula(doc, etapa)
		added = aula
		return edited, err
	})
	return doc, added, err
}

func (svc *Service) UpdateAula(sess user.Session, etapa, aula int, patch AulaPatch) (Document, Aula, error) {
	var updated Aula
	doc, err := svc.editDraft(sess, func(doc Document) (Document, error) {
		edited, a, err := UpdateAula(doc, etapa, aula, patch)
		updated = a
		return edited, err
	})
	return doc, updated, err
}

func (svc *Service) RemoveAula(sess user.Session, etapa, aula int) (Document, error) {
	return svc.editDraft(sess, func(doc Document) (Document, error) {
		return RemoveAula(doc, etapa, aula)
	})
}

func (svc *Service) editDraft(sess user.Session, edit func(Document) (Document, error)) (Document, error) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()

	uid := sess.UserID()
	doc, ok := svc.drafts[uid]
	if !ok {
		return nil, ErrNoDraft
	}
	edited, err := edit(doc)
	if err != nil {
		return nil, err
	}
	svc.drafts[uid] = edited
	return cloneDocument(edited), nil
}

func (svc *Service) setDraft(uid string, doc Document) {
	svc.mutex.Lock()
	defer svc.mutex.Unlock()
	svc.drafts[uid] = cloneDocument(doc)
}

// Save persists the draft as a whole: it replaces the current slot and adds a snapshot.
func (svc *Service) Save(ctx context.Context, sess user.Session) (StoredPlan, error) {
	doc, err := svc.Draft(sess)
	if err != nil {
		return StoredPlan{}, err
	}

	uid := sess.UserID()
	now := nowFunc().UTC()
	current := StoredPlan{
		ID:        CurrentID(uid),
		UserID:    uid,
		Titulo:    Titulo(doc),
		Document:  doc,
		CreatedAt: now,
		UpdatedAt: now,
	}
	prev, err := svc.repo.Get(ctx, current.ID)
	switch {
	case err == nil:
		if !prev.CreatedAt.IsZero() {
			current.CreatedAt = prev.CreatedAt
		}
	case errors.Cause(err) != ErrNotFound:
		return StoredPlan{}, errors.Wrap(err, "loading current plan")
	}

	saved, err := svc.repo.Upsert(ctx, current)
	if err != nil {
		return StoredPlan{}, errors.Wrap(err, "saving current plan")
	}

	snapshot := current
	snapshot.ID = newID()
	snapshot.CreatedAt = now
	if _, err := svc.repo.Create(ctx, snapshot); err != nil {
		return StoredPlan{}, errors.Wrap(err, "saving plan snapshot")
	}

	svc.logger.Info(fmt.Sprintf("lesson plan saved: %s", snapshot.ID), sess.Teacher)
	return saved, nil
}

// LoadCurrent makes the user's current plan the draft, falling back to their newest plan.
func (svc *Service) LoadCurrent(ctx context.Context, sess user.Session) (StoredPlan, error) {
	uid := sess.UserID()
	p, err := svc.repo.Get(ctx, CurrentID(uid))
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return StoredPlan{}, errors.Wrap(err, "loading current plan")
		}
		plans, err := svc.userPlans(ctx, uid)
		if err != nil {
			return StoredPlan{}, err
		}
		if len(plans) == 0 {
			return StoredPlan{}, ErrNotFound
		}
		p = plans[0]
	}
	svc.setDraft(uid, p.Document)
	return p, nil
}

// ListSaved returns the user's snapshots, newest first.
func (svc *Service) ListSaved(ctx context.Context, sess user.Session) ([]StoredPlan, error) {
	uid := sess.UserID()
	plans, err := svc.userPlans(ctx, uid)
	if err != nil {
		return nil, err
	}
	saved := make([]StoredPlan, 0, len(plans))
	for _, p := range plans {
		if p.ID != CurrentID(uid) {
			saved = append(saved, p)
		}
	}
	return saved, nil
}

// LoadSaved makes one of the user's plans the draft.
func (svc *Service) LoadSaved(ctx context.Context, sess user.Session, id string) (StoredPlan, error) {
	uid := sess.UserID()
	p, err := svc.repo.Get(ctx, core.CleanString(id))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return StoredPlan{}, ErrNotFound
		}
		return StoredPlan{}, errors.Wrap(err, "loading plan")
	}
	if p.UserID != uid {
		return StoredPlan{}, ErrNotFound
	}
	svc.setDraft(uid, p.Document)
	return p, nil
}

// userPlans lists the plans owned by uid, newest first.
// Stores may match loosely on the user, so the owner is checked again.
func (svc *Service) userPlans(ctx context.Context, uid string) ([]StoredPlan, error) {
	plans, err := svc.repo.QueryByUser(ctx, uid)
	if err != nil {
		return nil, errors.Wrap(err, "listing plans")
	}
	owned := make([]StoredPlan, 0, len(plans))
	for _, p := range plans {
		if p.UserID == uid {
			owned = append(owned, p)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		return owned[i].lastModified().After(owned[j].lastModified())
	})
	return owned, nil
}

func (svc *Service) SaveCourseConfig(ctx context.Context, sess user.Session, c CourseConfig) (CourseConfig, error) {
	if err := svc.repo.UpsertCourseConfig(ctx, sess.UserID(), c); err != nil {
		return CourseConfig{}, errors.Wrap(err, "saving course config")
	}
	return c, nil
}

// LoadCourseConfig returns the defaults when the user never saved one.
func (svc *Service) LoadCourseConfig(ctx context.Context, sess user.Session) (CourseConfig, error) {
	c, err := svc.repo.GetCourseConfig(ctx, sess.UserID())
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return DefaultCourseConfig(), nil
		}
		return CourseConfig{}, errors.Wrap(err, "loading course config")
	}
	return c, nil
}

func asList(v interface{}) []interface{} {
	switch val := v.(type) {
	case []interface{}:
		return val
	case nil:
		return []interface{}{}
	}
	return []interface{}{v}
}
