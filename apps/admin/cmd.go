package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/fee"
	"github.com/trezcool/academia/core/ranking"
	"github.com/trezcool/academia/core/session"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf     *core.Config
	db       *sql.DB // migrate only
	sessions *session.Service
	ranking  *ranking.Service
	fees     *fee.Service
	out      io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...)")
	fmt.Fprintln(cli.out, "  session open|close|publish|archive -id ID - move a session through its lifecycle")
	fmt.Fprintln(cli.out, "  rank -class CLASS -session SESSION - rank a class")
	fmt.Fprintln(cli.out, "  promote -class CLASS -session SESSION [-threshold N] - run promotion for a ranked class")
	fmt.Fprintln(cli.out, "  invoices -branch BRANCH -session SESSION -due YYYY-MM-DD - generate missing invoices")
	fmt.Fprintln(cli.out, "  token -id ID -roles ROLE[,ROLE] [-name NAME] [-email EMAIL] - print an API token")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "session":
		return cli.session(args[2:])
	case "rank":
		return cli.rank(args[2:])
	case "promote":
		return cli.promote(args[2:])
	case "invoices":
		return cli.invoices(args[2:])
	case "token":
		return cli.token(args[2:])
	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cli.out)
	return fs
}

// parse parses args and reports errHelp when any required flag is blank.
func parse(fs *flag.FlagSet, args []string, required ...*string) error {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return errHelp
		}
		return err
	}
	for _, val := range required {
		if core.CleanString(*val) == "" {
			fs.Usage()
			return errHelp
		}
	}
	return nil
}
