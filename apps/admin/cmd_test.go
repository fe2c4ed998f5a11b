package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/llmjson"
	"github.com/trezcool/edupilot/core/student"
	"github.com/trezcool/edupilot/core/user"
	logsvc "github.com/trezcool/edupilot/services/logger"
	sessionsvc "github.com/trezcool/edupilot/services/session"
	inmemdb "github.com/trezcool/edupilot/storage/database/inmem"
)

type testCLI struct {
	*commandLine
	out     *bytes.Buffer
	players *inmemdb.PlayerRepository
}

func setup(t *testing.T) testCLI {
	t.Setenv("ENV", "test")
	t.Setenv("TEST_SESSIONFILE", filepath.Join(t.TempDir(), "session.json"))
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)

	players := inmemdb.NewPlayerRepository(inmemdb.Open())
	require.NoError(t, players.RegisterTeacher(context.Background(), user.NewTeacher{
		Username: "prof@escola.com", Name: "Prof", Password: "s3cret-pwd", PasswordConfirm: "s3cret-pwd",
	}))

	out := new(bytes.Buffer)
	cli := &commandLine{
		usrSvc:   user.NewService(players, players, logger),
		students: student.NewService(players, logger),
		sessions: sessionsvc.NewFileStore(conf),
		openDB: func(context.Context) (*sqlx.DB, error) {
			return sqlx.Open("postgres", "postgres://edupilot@localhost/edupilot?sslmode=disable") // never connects
		},
		out: out,
	}
	return testCLI{commandLine: cli, out: out, players: players}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Equal(t, tt.wantErrStr, err.Error())
		}
	default:
		assert.NoError(t, err)
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli := setup(t)

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "login: no username", args: []string{"login"}, wantErr: errHelp},
		{name: "extract: no file", args: []string{"extract"}, wantErr: errHelp},
		{name: "migrate: no command", args: []string{"migrate"}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(context.Background(), args))
		})
	}
	assert.Contains(t, cli.out.String(), "Usage:")
}

func Test_commandLine_session(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "roster before login", args: []string{"roster"}, wantErr: user.ErrNoSession},
		{name: "login: no password", args: []string{"login", "-username", "prof@escola.com"}, wantErr: errHelp},
		{name: "login: wrong password", args: []string{"login", "-username", "prof@escola.com"}, extra: extra{pwd: "nope"}, wantErr: user.ErrAuthenticationFailed},
		{name: "login", args: []string{"login", "-username", "PROF@escola.com"}, extra: extra{pwd: "s3cret-pwd"}},
		{name: "roster", args: []string{"roster"}},
		{name: "logout", args: []string{"logout"}},
		{name: "roster after logout", args: []string{"roster"}, wantErr: user.ErrNoSession},
		{name: "logout twice", args: []string{"logout"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(ctx, args))

			if tt.name == "login" {
				sess, err := cli.sessions.Load(ctx)
				require.NoError(t, err)
				assert.Equal(t, "prof@escola.com", sess.Teacher.Username)
				assert.NotEmpty(t, sess.AccessToken)
			}
		})
	}
}

func Test_commandLine_roster(t *testing.T) {
	cli := setup(t)
	ctx := context.Background()
	require.NoError(t, cli.sessions.Save(ctx, user.Session{Teacher: user.Teacher{Username: "prof@escola.com"}, AccessToken: "tok"}))

	for _, s := range []student.Student{
		{ID: "s2", Name: "Bia", Attributes: map[string]interface{}{"prova1": 10.0, "frequencia": 100.0}},
		{ID: "s1", Name: "Ana", Attributes: map[string]interface{}{"prova1": 2.0, "frequencia": 50.0}},
	} {
		_, err := cli.players.Create(ctx, s)
		require.NoError(t, err)
	}

	require.NoError(t, cli.run(ctx, []string{"admin", "roster"}))

	lines := strings.Split(strings.TrimSpace(cli.out.String()), "\n")
	require.Len(t, lines, 3, "header + students; the teacher is not listed")
	assert.Equal(t, []string{"ID", "NAME", "SCORE", "TIER"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"s1", "Ana", "32", string(student.TierFor(32))}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"s2", "Bia", "100", string(student.TierFor(100))}, strings.Fields(lines[2]))
}

func Test_commandLine_extract(t *testing.T) {
	cli := setup(t)
	dir := t.TempDir()

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}
	fenced := write("fenced.txt", "Aqui está:\n```json\n"+`{"plano":{"titulo":"Geometria","etapas":[{"nome":"E1","aulas":[]}]}}`+"\n```")
	prose := write("prose.txt", "Não consegui gerar o plano.")

	t.Run("structured", func(t *testing.T) {
		cli.out.Reset()
		require.NoError(t, cli.run(context.Background(), []string{"admin", "extract", "-file", fenced}))
		assert.Contains(t, cli.out.String(), `"titulo": "Geometria"`)
	})

	t.Run("no plan", func(t *testing.T) {
		err := cli.run(context.Background(), []string{"admin", "extract", "-file", prose})
		var failure *llmjson.ExtractionFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, "Não consegui gerar o plano.", failure.Raw)
	})

	t.Run("missing file", func(t *testing.T) {
		err := cli.run(context.Background(), []string{"admin", "extract", "-file", filepath.Join(dir, "nope.txt")})
		assert.True(t, os.IsNotExist(err))
	})
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	origRun := gooseRunFunc
	defer func() { gooseRunFunc = origRun }()
	gooseRunFunc = func(_ context.Context, _ *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "create", args: []string{"migrate", "create", "lesson_plans_index", "sql"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(context.Background(), args))
		})
	}
}
