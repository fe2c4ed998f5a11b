package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/trezcool/edupilot/core/plan"
	"github.com/trezcool/edupilot/core/student"
	"github.com/trezcool/edupilot/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	usrSvc   *user.Service
	students *student.Service
	sessions user.SessionStore
	openDB   func(ctx context.Context) (*sqlx.DB, error)
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  login -username USERNAME - log in; the password is prompted next")
	fmt.Fprintln(cli.out, "  logout - forget the saved session")
	fmt.Fprintln(cli.out, "  roster - list the students with their engagement score")
	fmt.Fprintln(cli.out, "  extract -file FILE - extract the lesson plan from a saved model answer")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose migration command")
}

func (cli *commandLine) run(ctx context.Context, args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	loginCmd := flag.NewFlagSet("login", flag.ContinueOnError)
	loginCmd.SetOutput(cli.out)
	loginUname := loginCmd.String("username", "", "The teacher's username. The password will be prompted next.")

	extractCmd := flag.NewFlagSet("extract", flag.ContinueOnError)
	extractCmd.SetOutput(cli.out)
	extractFile := extractCmd.String("file", "", "A file holding a model answer.")

	switch args[1] {
	case "login":
		if err := loginCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *loginUname == "" {
			loginCmd.Usage()
			return errHelp
		}
		fmt.Fprint(cli.out, "Enter password:")
		pwd, err := readPasswordFunc(int(syscall.Stdin))
		fmt.Fprintln(cli.out)
		if err != nil {
			return err
		}
		if len(pwd) == 0 {
			loginCmd.Usage()
			return errHelp
		}
		return cli.login(ctx, *loginUname, string(pwd))
	case "logout":
		return cli.logout(ctx)
	case "roster":
		return cli.roster(ctx)
	case "extract":
		if err := extractCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *extractFile == "" {
			extractCmd.Usage()
			return errHelp
		}
		return cli.extract(*extractFile)
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(ctx, args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) login(ctx context.Context, uname, pwd string) error {
	sess, err := cli.usrSvc.Login(ctx, uname, pwd)
	if err != nil {
		return err
	}
	if err := cli.sessions.Save(ctx, sess); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "logged in as %s\n", sess.Teacher.Username)
	return nil
}

func (cli *commandLine) logout(ctx context.Context) error {
	if err := cli.sessions.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cli.out, "logged out")
	return nil
}

func (cli *commandLine) roster(ctx context.Context) error {
	if _, err := cli.sessions.Load(ctx); err != nil {
		return err
	}
	students, err := cli.students.List(ctx)
	if err != nil {
		return err
	}
	sort.SliceStable(students, func(i, j int) bool {
		return strings.ToLower(students[i].Name) < strings.ToLower(students[j].Name)
	})

	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tSCORE\tTIER")
	for _, s := range students {
		score := student.Score(s)
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", s.ID, s.Name, score, student.TierFor(score))
	}
	return w.Flush()
}

// extract prints the structured plan found in file, or fails with a *llmjson.ExtractionFailure.
func (cli *commandLine) extract(file string) error {
	raw, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	lp, err := plan.Extract(string(raw))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(lp)
}
