package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trezcool/academia/core/fee"
	"github.com/trezcool/academia/core/session"
)

func (cli *commandLine) session(args []string) error {
	if len(args) == 0 {
		cli.printUsage()
		return errHelp
	}
	action := args[0]
	fs := cli.newFlagSet("session " + action)
	id := fs.String("id", "", "The session ID.")
	if err := parse(fs, args[1:], id); err != nil {
		return err
	}

	ctx := context.Background()
	var (
		sess session.Session
		err  error
	)
	switch action {
	case "open":
		sess, err = cli.sessions.OpenEntry(ctx, *id)
	case "close":
		sess, err = cli.sessions.CloseEntry(ctx, *id)
	case "publish":
		sess, err = cli.sessions.Publish(ctx, *id)
	case "archive":
		sess, err = cli.sessions.Archive(ctx, *id)
	default:
		cli.printUsage()
		return errHelp
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "session %s %s %s: entry open=%t, %s\n",
		sess.ID, sess.AcademicYear, sess.Term, sess.IsResultEntryOpen, sess.PublicationStatus)
	return nil
}

func (cli *commandLine) rank(args []string) error {
	fs := cli.newFlagSet("rank")
	classID := fs.String("class", "", "The class ID.")
	sessionID := fs.String("session", "", "The session ID.")
	if err := parse(fs, args, classID, sessionID); err != nil {
		return err
	}

	ranked, err := cli.ranking.RankClass(context.Background(), *classID, *sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "ranked %d results\n", len(ranked))
	return nil
}

func (cli *commandLine) promote(args []string) error {
	fs := cli.newFlagSet("promote")
	classID := fs.String("class", "", "The class ID.")
	sessionID := fs.String("session", "", "The session ID.")
	threshold := fs.Float64("threshold", cli.conf.Promotion.Threshold, "The minimum average to be promoted.")
	if err := parse(fs, args, classID, sessionID); err != nil {
		return err
	}

	records, err := cli.ranking.RunPromotion(context.Background(), *classID, *sessionID, *threshold)
	if err != nil {
		return err
	}
	counts := make(map[string]int)
	for _, rec := range records {
		counts[string(rec.Status)]++
	}
	fmt.Fprintf(cli.out, "%d records: %d promoted, %d repeated\n", len(records), counts["Promoted"], counts["Repeated"])
	return nil
}

func (cli *commandLine) invoices(args []string) error {
	fs := cli.newFlagSet("invoices")
	branchID := fs.String("branch", "", "The branch ID.")
	sessionID := fs.String("session", "", "The session ID.")
	due := fs.String("due", "", "The due date (YYYY-MM-DD).")
	if err := parse(fs, args, branchID, sessionID, due); err != nil {
		return err
	}
	dueDate, err := time.Parse("2006-01-02", *due)
	if err != nil {
		return fmt.Errorf("invalid due date %q", *due)
	}

	report, err := cli.fees.GenerateInvoices(context.Background(), fee.BulkGenerate{
		BranchID:  *branchID,
		SessionID: *sessionID,
		DueDate:   dueDate,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "generated %d, skipped %d, failed %d\n", report.Generated, report.Skipped, report.Failed)
	for _, msg := range report.Errors {
		fmt.Fprintln(cli.out, "  "+strings.TrimSpace(msg))
	}
	return nil
}
