package main

import (
	"errors"

	"github.com/trezcool/academia/storage/database"
)

var gooseRunFunc = database.RunMigrations // mockable

var errNoSQLDatabase = errors.New("migrations need the postgres engine")

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQLDatabase
	}
	arguments := make([]string, 0)
	if len(args) > 1 {
		arguments = append(arguments, args[1:]...)
	}
	return gooseRunFunc(args[0], cli.db, arguments...)
}
