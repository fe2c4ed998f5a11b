package user

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edupilot/core"
)

type fakeAuth struct {
	users map[string]string // {username: password}
	err   error
}

func (a *fakeAuth) Authenticate(_ context.Context, username, password string) (string, error) {
	if a.err != nil {
		return "", a.err
	}
	if pwd, ok := a.users[username]; ok && pwd == password {
		return "tok-" + username, nil
	}
	return "", errors.Wrap(ErrAuthenticationFailed, "POST /auth/token")
}

func (a *fakeAuth) RegisterTeacher(_ context.Context, nt NewTeacher) error {
	if _, ok := a.users[nt.Username]; ok {
		return ErrTeacherExists
	}
	a.users[nt.Username] = nt.Password
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func TestService_Login(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	auth := &fakeAuth{users: map[string]string{"prof@escola.com": "segredo1"}}
	svc := NewService(auth, auth, nopLogger{})

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{name: "valid credentials", username: "Prof@Escola.com ", password: "segredo1"},
		{name: "wrong password", username: "prof@escola.com", password: "nope", wantErr: ErrAuthenticationFailed},
		{name: "unknown user", username: "x", password: "y", wantErr: ErrAuthenticationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess, err := svc.Login(context.Background(), tt.username, tt.password)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "prof@escola.com", sess.UserID())
			assert.Equal(t, "tok-prof@escola.com", sess.AccessToken)
			assert.Equal(t, now, sess.IssuedAt)
		})
	}
}

func TestService_Login_TransportError(t *testing.T) {
	auth := &fakeAuth{err: errors.New("connection refused")}
	svc := NewService(auth, auth, nopLogger{})

	_, err := svc.Login(context.Background(), "a", "b")
	require.Error(t, err)
	assert.NotEqual(t, ErrAuthenticationFailed, errors.Cause(err))
}

func TestService_Register(t *testing.T) {
	auth := &fakeAuth{users: map[string]string{"taken@escola.com": "segredo1"}}
	svc := NewService(auth, auth, nopLogger{})

	sess, err := svc.Register(context.Background(), NewTeacher{Username: "nova@escola.com", Name: "Nova", Password: "segredo2"})
	require.NoError(t, err)
	assert.Equal(t, Teacher{Username: "nova@escola.com", Name: "Nova", Email: "nova@escola.com"}, sess.Teacher)
	assert.Equal(t, "tok-nova@escola.com", sess.AccessToken)

	_, err = svc.Register(context.Background(), NewTeacher{Username: "taken@escola.com", Password: "segredo1"})
	var vErr *core.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "username", vErr.Fields[0].Field)
}

func TestNewTeacher_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	tests := []struct {
		name    string
		nt      NewTeacher
		wantTag string
	}{
		{name: "valid", nt: NewTeacher{Username: "p@e.com", Password: "abc123", PasswordConfirm: "abc123"}},
		{name: "missing username", nt: NewTeacher{Password: "abc123", PasswordConfirm: "abc123"}, wantTag: "required"},
		{name: "mismatch", nt: NewTeacher{Username: "p", Password: "abc123", PasswordConfirm: "abc124"}, wantTag: "eqfield"},
		{name: "too short", nt: NewTeacher{Username: "p", Password: "ab1", PasswordConfirm: "ab1"}, wantTag: pwdMinLenTag},
		{name: "whitespace", nt: NewTeacher{Username: "p", Password: "abc 123", PasswordConfirm: "abc 123"}, wantTag: pwdNoSpaceTag},
		{name: "all numeric", nt: NewTeacher{Username: "p", Password: "123456", PasswordConfirm: "123456"}, wantTag: pwdNotAllNumTag},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nt.Validate(validate)
			if tt.wantTag == "" {
				assert.NoError(t, err)
				return
			}
			var vErrs validator.ValidationErrors
			require.ErrorAs(t, err, &vErrs)
			assert.Equal(t, tt.wantTag, vErrs[0].Tag())
		})
	}
}

func TestNewTeacher_ValidateDefaultsName(t *testing.T) {
	nt := NewTeacher{Username: " Prof@Escola.com ", Password: "abc123", PasswordConfirm: "abc123"}
	require.NoError(t, nt.Validate(validator.New()))
	assert.Equal(t, "prof@escola.com", nt.Username)
	assert.Equal(t, "prof@escola.com", nt.Name)
}
