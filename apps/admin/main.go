package main

import (
	"os"

	"github.com/sirupsen/logrus"

	dig_container "github.com/trezcool/academia/apps/api/di/dig"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/fee"
	"github.com/trezcool/academia/core/ranking"
	"github.com/trezcool/academia/core/session"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewStdLogger(os.Stderr, conf).WithField("component", "admin")

	cli := &commandLine{conf: conf, out: os.Stdout}

	var command string
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "", "token": // no storage needed
		exit(cli.run(os.Args), logger)
	case "migrate":
		exit(runMigrate(cli, conf), logger)
	default:
		exit(runWithServices(cli, conf), logger)
	}
}

// runMigrate runs on a bare connection: opening the store would migrate up first.
func runMigrate(cli *commandLine, conf *core.Config) error {
	if err := database.CreateIfNotExist(conf); err != nil {
		return err
	}
	db, err := database.Open(conf)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	cli.db = db.DB
	return cli.run(os.Args)
}

func runWithServices(cli *commandLine, conf *core.Config) error {
	var err error
	c := dig_container.New(func() *core.Config { return conf })
	invokeErr := c.Invoke(func(
		closeDB dig_container.Closer,
		sessions *session.Service,
		rankingSvc *ranking.Service,
		fees *fee.Service,
	) {
		defer func() { _ = closeDB() }()
		cli.sessions = sessions
		cli.ranking = rankingSvc
		cli.fees = fees
		err = cli.run(os.Args)
	})
	if invokeErr != nil {
		return invokeErr
	}
	return err
}

func exit(err error, logger *logrus.Entry) {
	if err == nil {
		os.Exit(0)
	}
	if err != errHelp {
		logger.Errorf("error: %s", err)
	}
	os.Exit(1)
}
