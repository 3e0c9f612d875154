package main

import (
	"fmt"
	"strings"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core/access"
)

// token prints a signed API token; there is no user store to log in against.
func (cli *commandLine) token(args []string) error {
	fs := cli.newFlagSet("token")
	id := fs.String("id", "", "The principal ID (a student's ID for students).")
	roles := fs.String("roles", "", "Comma separated roles, e.g. admin:principal.")
	name := fs.String("name", "", "The principal name.")
	email := fs.String("email", "", "The principal email.")
	if err := parse(fs, args, id, roles); err != nil {
		return err
	}

	p := access.Principal{ID: strings.TrimSpace(*id), Name: *name, Email: *email}
	for _, role := range strings.Split(*roles, ",") {
		role = strings.TrimSpace(role)
		if !access.IsValidRole(role) {
			return fmt.Errorf("invalid role %q", role)
		}
		p.Roles = append(p.Roles, role)
	}

	token, err := echoapi.GenerateToken(echoapi.NewClaims(p, cli.conf), cli.conf.SecretKey)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
