package main

import (
	"context"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	dig_container "github.com/trezcool/edupilot/apps/api/di/dig"
	"github.com/trezcool/edupilot/core"
	"github.com/trezcool/edupilot/core/student"
	"github.com/trezcool/edupilot/core/user"
	sessionsvc "github.com/trezcool/edupilot/services/session"
	"github.com/trezcool/edupilot/storage/database"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stderr, "ADMIN : ", log.LstdFlags)

	c := dig_container.New()
	var cli *commandLine
	err := c.Invoke(func(conf *core.Config, usrSvc *user.Service, students *student.Service) {
		cli = &commandLine{
			usrSvc:   usrSvc,
			students: students,
			sessions: sessionsvc.NewFileStore(conf),
			openDB: func(ctx context.Context) (*sqlx.DB, error) {
				return database.Open(ctx, conf)
			},
			out: os.Stdout,
		}
	})
	errAndDie(err)

	if err := cli.run(context.Background(), os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
