package inmemdb

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/edupilot/core/student"
	"github.com/trezcool/edupilot/core/user"
)

// PlayerRepository is an in-memory roster that also authenticates teachers.
type PlayerRepository struct {
	db *playerTable
}

var (
	_ student.Repository = (*PlayerRepository)(nil)
	_ user.Registrar     = (*PlayerRepository)(nil)
	_ user.Authenticator = (*PlayerRepository)(nil)
)

func NewPlayerRepository(db *DB) *PlayerRepository {
	return &PlayerRepository{db: db.players}
}

func (repo *PlayerRepository) List(_ context.Context) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	players := make([]student.Student, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		players = append(players, s.Clone())
	}
	return players, nil
}

func (repo *PlayerRepository) Get(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if s, ok := repo.db.table[id]; ok {
		return s.Clone(), nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *PlayerRepository) Create(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[s.ID]; ok {
		return student.Student{}, student.ErrExists
	}
	repo.db.table[s.ID] = s.Clone()
	return s, nil
}

func (repo *PlayerRepository) Update(_ context.Context, s student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[s.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	repo.db.table[s.ID] = s.Clone()
	return s, nil
}

func (repo *PlayerRepository) RegisterTeacher(_ context.Context, nt user.NewTeacher) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(nt.Password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}

	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[nt.Username]; ok {
		return user.ErrTeacherExists
	}
	t := nt.Teacher()
	repo.db.table[t.Username] = student.Student{
		ID:         t.Username,
		Name:       t.Name,
		Email:      t.Email,
		Attributes: map[string]interface{}{student.AttrRole: user.RoleProfessor},
	}
	repo.db.passwords[t.Username] = hash
	return nil
}

// Authenticate checks a registered teacher's password and hands out a random token.
func (repo *PlayerRepository) Authenticate(_ context.Context, username, password string) (string, error) {
	repo.db.RLock()
	hash, ok := repo.db.passwords[username]
	repo.db.RUnlock()
	if !ok {
		return "", user.ErrAuthenticationFailed
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return "", user.ErrAuthenticationFailed
	}
	return uuid.NewString(), nil
}
