package funifiersvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/plan"
	"github.com/trezcool/edupilot/core/student"
	"github.com/trezcool/edupilot/core/user"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

// fakeFunifier mimics the subset of the Funifier API the client uses.
type fakeFunifier struct {
	mutex       sync.Mutex
	players     map[string]map[string]interface{}
	collections map[string]map[string]map[string]interface{}
	authHeaders []string
	puts, posts int
}

func newFakeFunifier() *fakeFunifier {
	return &fakeFunifier{
		players:     make(map[string]map[string]interface{}),
		collections: make(map[string]map[string]map[string]interface{}),
	}
}

func (f *fakeFunifier) snapshot(read func(f *fakeFunifier)) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	read(f)
}

func (f *fakeFunifier) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.authHeaders = append(f.authHeaders, r.Header.Get("Authorization"))

	var body map[string]interface{}
	if r.Method == http.MethodPost || r.Method == http.MethodPut {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}
	reply := func(v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(v)
	}

	path := r.URL.Path
	switch {
	case path == "/auth/token":
		if body["apiKey"] != "key" || body["grant_type"] != "password" || body["password"] != "secret123" {
			http.Error(w, `{"message":"bad credentials"}`, http.StatusUnauthorized)
			return
		}
		reply(map[string]interface{}{"access_token": "tok-" + body["username"].(string), "token_type": "Bearer"})

	case path == "/player":
		switch r.Method {
		case http.MethodGet:
			list := make([]interface{}, 0, len(f.players))
			for _, p := range f.players {
				list = append(list, p)
			}
			reply(list)
		case http.MethodPost:
			f.players[body["_id"].(string)] = body
			reply(body)
		case http.MethodPut:
			id := body["_id"].(string)
			if _, ok := f.players[id]; !ok {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			f.players[id] = body
			reply(body)
		}

	case strings.HasPrefix(path, "/player/"):
		p, ok := f.players[strings.TrimPrefix(path, "/player/")]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		reply(p)

	case strings.HasPrefix(path, "/database/"):
		name := strings.TrimPrefix(path, "/database/")
		if !strings.HasSuffix(name, "__c") {
			http.Error(w, "unknown collection", http.StatusNotFound)
			return
		}
		coll, ok := f.collections[name]
		if !ok {
			coll = make(map[string]map[string]interface{})
			f.collections[name] = coll
		}
		switch r.Method {
		case http.MethodGet:
			list := make([]interface{}, 0, len(coll))
		docs:
			for _, doc := range coll {
				for k, vals := range r.URL.Query() {
					if doc[k] != vals[0] {
						continue docs
					}
				}
				list = append(list, doc)
			}
			reply(list)
		case http.MethodPut:
			f.puts++
			id, _ := body["_id"].(string)
			if _, ok := coll[id]; !ok {
				http.Error(w, "document not found", http.StatusBadRequest)
				return
			}
			coll[id] = body
			w.WriteHeader(http.StatusOK)
		case http.MethodPost:
			f.posts++
			coll[body["_id"].(string)] = body
			w.WriteHeader(http.StatusOK)
		}

	default:
		http.NotFound(w, r)
	}
}

func setup(t *testing.T) (*Client, *fakeFunifier) {
	t.Helper()
	fake := newFakeFunifier()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	conf := &core.Config{}
	conf.Funifier.BaseURL = srv.URL
	conf.Funifier.APIKey = "key"
	conf.Funifier.BasicAuth = "dGVzdDp0ZXN0"
	conf.Funifier.Timeout = 5 * time.Second
	return NewClient(conf, nopLogger{}), fake
}

func TestClient_Authenticate(t *testing.T) {
	client, fake := setup(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		password  string
		wantToken string
		wantErr   error
	}{
		{name: "valid", password: "secret123", wantToken: "tok-prof"},
		{name: "rejected", password: "nope", wantErr: user.ErrAuthenticationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := client.Authenticate(ctx, "prof", tt.password)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantToken, token)
		})
	}
	fake.snapshot(func(f *fakeFunifier) {
		assert.Equal(t, "Basic dGVzdDp0ZXN0", f.authHeaders[0])
	})
}

func TestPlayerRepository(t *testing.T) {
	client, fake := setup(t)
	repo := NewPlayerRepository(client)
	ctx := context.Background()

	s := student.Student{
		ID: "a1", Name: "Ana", Email: "a1@escola.com",
		Attributes: map[string]interface{}{"role": "aluno", "frequencia": 100, "prova1": 8.5},
	}
	created, err := repo.Create(ctx, s)
	require.NoError(t, err)
	assert.Equal(t, s, created)

	_, err = repo.Create(ctx, s)
	assert.Equal(t, student.ErrExists, err)

	got, err := repo.Get(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	assert.Equal(t, 8.5, got.Attributes["prova1"])

	_, err = repo.Get(ctx, "zz")
	assert.Equal(t, student.ErrNotFound, err)

	got.Attributes["prova2"] = 6.0
	_, err = repo.Update(ctx, got)
	require.NoError(t, err)
	_, err = repo.Update(ctx, student.Student{ID: "zz"})
	assert.Equal(t, student.ErrNotFound, err)

	require.NoError(t, repo.RegisterTeacher(ctx, user.NewTeacher{Username: "prof", Name: "Prof", Password: "secret123"}))
	assert.Equal(t, user.ErrTeacherExists, repo.RegisterTeacher(ctx, user.NewTeacher{Username: "prof", Password: "x"}))
	fake.snapshot(func(f *fakeFunifier) {
		assert.Equal(t, "professor", f.players["prof"]["extra"].(map[string]interface{})["role"])
		assert.Equal(t, "secret123", f.players["prof"]["password"])
	})

	players, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, players, 2)
}

func TestClient_CancelledContext(t *testing.T) {
	client, _ := setup(t)
	repo := NewPlayerRepository(client)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := repo.List(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPlanRepository(t *testing.T) {
	client, fake := setup(t)
	repo := NewPlanRepository(client)
	ctx := context.Background()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	numero := 1
	p := plan.StoredPlan{
		ID:     "current_prof",
		UserID: "prof",
		Titulo: "Algoritmos",
		Document: plan.Structured{Plano: plan.LessonPlan{
			Titulo: "Algoritmos",
			Etapas: []plan.Etapa{{Nome: "Etapa 1", Aulas: []plan.Aula{{Numero: &numero, Titulo: "Intro", Tipo: "aula"}}}},
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	// first upsert falls back to insert, second updates
	_, err := repo.Upsert(ctx, p)
	require.NoError(t, err)
	_, err = repo.Upsert(ctx, p)
	require.NoError(t, err)
	fake.snapshot(func(f *fakeFunifier) {
		assert.Equal(t, 2, f.puts)
		assert.Equal(t, 1, f.posts)
	})

	snap := p
	snap.ID = "plan_1"
	snap.Document = plan.RawOnly{Text: "sem json"}
	_, err = repo.Create(ctx, snap)
	require.NoError(t, err)
	fake.snapshot(func(f *fakeFunifier) {
		assert.Contains(t, f.collections["lesson_plans__c"], "plan_1")
	})

	got, err := repo.Get(ctx, "current_prof")
	require.NoError(t, err)
	assert.Equal(t, "prof", got.UserID)
	assert.Equal(t, now, got.CreatedAt)
	lp, ok := got.Document.Plan()
	require.True(t, ok)
	assert.Equal(t, "Intro", lp.Etapas[0].Aulas[0].Titulo)

	_, err = repo.Get(ctx, "missing")
	assert.Equal(t, plan.ErrNotFound, errors.Cause(err))

	plans, err := repo.QueryByUser(ctx, "prof")
	require.NoError(t, err)
	assert.Len(t, plans, 2)

	// course config
	_, err = repo.GetCourseConfig(ctx, "prof")
	assert.Equal(t, plan.ErrNotFound, err)

	conf := plan.DefaultCourseConfig()
	conf.Disciplina = "Algoritmos"
	require.NoError(t, repo.UpsertCourseConfig(ctx, "prof", conf))
	gotConf, err := repo.GetCourseConfig(ctx, "prof")
	require.NoError(t, err)
	assert.Equal(t, conf, gotConf)
}

func TestIsStatus(t *testing.T) {
	err := errors.Wrap(&StatusError{StatusCode: 404}, "getting")
	assert.True(t, IsStatus(err, 400, 404))
	assert.False(t, IsStatus(err, 500))
	assert.False(t, IsStatus(errors.New("x"), 404))
	assert.Equal(t, "/database/lesson_plans__c", collectionPath("lesson_plans"))
	assert.Equal(t, "/database/course_config__c", collectionPath("course_config__c"))
}
