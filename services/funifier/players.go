package funifiersvc

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/trezcool/edupilot/core/student"
	"github.com/trezcool/edupilot/core/user"
)

const playerPath = "/player"

// PlayerRepository stores students and teachers as Funifier players.
type PlayerRepository struct {
	client *Client
}

var (
	_ student.Repository = (*PlayerRepository)(nil)
	_ user.Registrar     = (*PlayerRepository)(nil)
)

func NewPlayerRepository(client *Client) *PlayerRepository {
	return &PlayerRepository{client: client}
}

type teacherPlayer struct {
	ID       string                 `json:"_id"`
	Name     string                 `json:"name"`
	Email    string                 `json:"email,omitempty"`
	Password string                 `json:"password"`
	Extra    map[string]interface{} `json:"extra"`
}

func (repo *PlayerRepository) List(ctx context.Context) ([]student.Student, error) {
	var players []student.Student
	if err := repo.client.do(ctx, request{method: rest.Get, path: playerPath}, &players); err != nil {
		return nil, errors.Wrap(err, "listing players")
	}
	if players == nil {
		players = []student.Student{}
	}
	return players, nil
}

func (repo *PlayerRepository) Get(ctx context.Context, id string) (student.Student, error) {
	var s student.Student
	err := repo.client.do(ctx, request{method: rest.Get, path: playerPath + "/" + url.PathEscape(id)}, &s)
	if err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrapf(err, "getting player %q", id)
	}
	if s.ID == "" {
		return student.Student{}, student.ErrNotFound
	}
	return s, nil
}

// Create fails with student.ErrExists when the id is taken: a Funifier POST would overwrite it.
func (repo *PlayerRepository) Create(ctx context.Context, s student.Student) (student.Student, error) {
	if err := repo.ensureAbsent(ctx, s.ID); err != nil {
		if err == errTaken {
			return student.Student{}, student.ErrExists
		}
		return student.Student{}, err
	}
	if err := repo.client.do(ctx, request{method: rest.Post, path: playerPath, body: s}, nil); err != nil {
		return student.Student{}, errors.Wrapf(err, "creating player %q", s.ID)
	}
	return s, nil
}

func (repo *PlayerRepository) Update(ctx context.Context, s student.Student) (student.Student, error) {
	if err := repo.client.do(ctx, request{method: rest.Put, path: playerPath, body: s}, nil); err != nil {
		if IsStatus(err, http.StatusNotFound) {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, errors.Wrapf(err, "updating player %q", s.ID)
	}
	return s, nil
}

// RegisterTeacher creates the teacher's player with role professor.
func (repo *PlayerRepository) RegisterTeacher(ctx context.Context, nt user.NewTeacher) error {
	if err := repo.ensureAbsent(ctx, nt.Username); err != nil {
		if err == errTaken {
			return user.ErrTeacherExists
		}
		return err
	}
	t := nt.Teacher()
	p := teacherPlayer{
		ID:       t.Username,
		Name:     t.Name,
		Email:    t.Email,
		Password: nt.Password,
		Extra:    map[string]interface{}{student.AttrRole: user.RoleProfessor},
	}
	if err := repo.client.do(ctx, request{method: rest.Post, path: playerPath, body: p}, nil); err != nil {
		return errors.Wrapf(err, "creating teacher %q", t.Username)
	}
	return nil
}

var errTaken = errors.New("player id taken")

func (repo *PlayerRepository) ensureAbsent(ctx context.Context, id string) error {
	_, err := repo.Get(ctx, id)
	switch {
	case err == nil:
		return errTaken
	case err == student.ErrNotFound:
		return nil
	default:
		return err
	}
}
