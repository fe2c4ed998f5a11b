package student

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/user"
)

// Attribute keys with a meaning of their own. Grade keys are discovered by prefix.
const (
	AttrRole       = "role"
	AttrFrequencia = "frequencia"

	prefixProva    = "prova"
	prefixTrabalho = "trabalho"

	defaultEmailDomain = "escola.com"
	initialAttendance  = 100
)

// Student is a player record of the roster store. Attributes is schemaless:
// `prova<N>` and `trabalho<N>` are grades on a 0-10 scale, `frequencia` is attendance (0-100).
type Student struct {
	ID         string                 `json:"_id"`
	Name       string                 `json:"name"`
	Email      string                 `json:"email,omitempty"`
	Attributes map[string]interface{} `json:"extra,omitempty"`
}

func (s Student) Role() string {
	role, _ := s.Attributes[AttrRole].(string)
	return role
}

func (s Student) IsProfessor() bool {
	return s.Role() == user.RoleProfessor
}

// Clone copies the attribute bag so callers can merge into it safely.
func (s Student) Clone() Student {
	attrs := make(map[string]interface{}, len(s.Attributes))
	for k, v := range s.Attributes {
		attrs[k] = v
	}
	s.Attributes = attrs
	return s
}

// NewStudent contains information needed to enroll a student.
type NewStudent struct {
	ID         string                 `json:"_id" validate:"required,max=64"`
	Name       string                 `json:"name" validate:"required"`
	Email      string                 `json:"email" validate:"omitempty,email"`
	Attributes map[string]interface{} `json:"extra" validate:"omitempty,dive,keys,assessmentkey,endkeys"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.ID = core.CleanString(ns.ID)
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	return validate.Struct(ns)
}

// UpdateGrades merges assessment values into a student's attributes. A null value removes the key.
type UpdateGrades struct {
	Attributes map[string]interface{} `json:"extra" validate:"required,min=1,dive,keys,assessmentkey,endkeys"`
}

func (ug *UpdateGrades) Validate(validate *validator.Validate) error {
	return validate.Struct(ug)
}

// BulkResult reports a BulkCreate: created students in input order and the skipped ones.
type BulkResult struct {
	Created []Student  `json:"created"`
	Skipped []BulkSkip `json:"skipped"`
}

type BulkSkip struct {
	ID     string `json:"_id"`
	Reason string `json:"reason"`
}
