package main

import (
	"context"

	"github.com/trezcool/edupilot/storage/database"
)

var gooseRunFunc = database.Run // mockable

func (cli *commandLine) migrate(ctx context.Context, args []string) error {
	db, err := cli.openDB(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	return gooseRunFunc(ctx, db, args[0], args[1:]...)
}
