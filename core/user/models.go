package user

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edupilot/core"
)

// Roles stored in the roster store's `extra.role` attribute.
const (
	RoleProfessor = "professor"
	RoleAluno     = "aluno"
)

const anonymous = "anonymous"

// Teacher is the authenticated user of the application.
type Teacher struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email,omitempty"`
}

// Session is the explicit authentication state handed to the collaborators that need it.
type Session struct {
	Teacher     Teacher   `json:"teacher"`
	AccessToken string    `json:"access_token"`
	IssuedAt    time.Time `json:"issued_at"` // UTC
}

// UserID keys everything a teacher owns: plans, course config, drafts and analyses.
func (s Session) UserID() string {
	if s.Teacher.Username == "" {
		return anonymous
	}
	return s.Teacher.Username
}

func (s Session) IsZero() bool {
	return s.Teacher.Username == "" && s.AccessToken == ""
}

// NewTeacher contains information needed to register a teacher.
type NewTeacher struct {
	Username        string `json:"username" validate:"required"`
	Name            string `json:"name"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

func (nt *NewTeacher) Validate(validate *validator.Validate) error {
	nt.Username = core.CleanString(nt.Username, true /* lower */)
	nt.Name = core.CleanString(nt.Name)
	if nt.Name == "" {
		nt.Name = nt.Username
	}
	return validate.Struct(nt)
}

func (nt NewTeacher) Teacher() Teacher {
	return Teacher{Username: nt.Username, Name: nt.Name, Email: nt.Username}
}
