package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/edupilot/core"
)

var (
	// errors
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrTeacherExists        = errors.New("a user with this username already exists")
	ErrNoSession            = errors.New("no active session")

	nowFunc = time.Now // mockable
)

type (
	// Authenticator exchanges credentials for an access token.
	// Rejected credentials must be reported as ErrAuthenticationFailed.
	Authenticator interface {
		Authenticate(ctx context.Context, username, password string) (string, error)
	}

	// Registrar creates the teacher's player record (role professor) in the roster store.
	Registrar interface {
		RegisterTeacher(ctx context.Context, nt NewTeacher) error
	}

	// SessionStore persists a Session between runs.
	SessionStore interface {
		// Load returns ErrNoSession when nothing was saved.
		Load(ctx context.Context) (Session, error)
		Save(ctx context.Context, sess Session) error
		Clear(ctx context.Context) error
	}

	Service struct {
		auth      Authenticator
		registrar Registrar
		logger    core.Logger
	}
)

func NewService(auth Authenticator, registrar Registrar, logger core.Logger) *Service {
	return &Service{auth: auth, registrar: registrar, logger: logger}
}

func (svc *Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = core.CleanString(username, true /* lower */)

	token, err := svc.auth.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Cause(err) == ErrAuthenticationFailed {
			return Session{}, ErrAuthenticationFailed
		}
		return Session{}, errors.Wrap(err, "authenticating")
	}

	return Session{
		Teacher:     Teacher{Username: username, Name: username},
		AccessToken: token,
		IssuedAt:    nowFunc().UTC(),
	}, nil
}

// Register creates the teacher then logs them in.
func (svc *Service) Register(ctx context.Context, nt NewTeacher) (Session, error) {
	if err := svc.registrar.RegisterTeacher(ctx, nt); err != nil {
		if errors.Cause(err) == ErrTeacherExists {
			return Session{}, core.NewValidationError(err, core.FieldError{Field: "username", Error: err.Error()})
		}
		return Session{}, errors.Wrap(err, "registering teacher")
	}
	svc.logger.Info("teacher registered", map[string]interface{}{"username": nt.Username})

	sess, err := svc.Login(ctx, nt.Username, nt.Password)
	if err != nil {
		return Session{}, err
	}
	sess.Teacher = nt.Teacher()
	return sess, nil
}
