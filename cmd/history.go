package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/urfave/cli"
	"github.com/warpdl/cueline/cmd/common"
	"github.com/warpdl/cueline/internal/journal"
)

var (
	historyRun  string
	historyRuns bool

	historyFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "run, r",
			Usage:       "only print the hooks of this run",
			Destination: &historyRun,
		},
		cli.BoolFlag{
			Name:        "runs, l",
			Usage:       "list the recorded runs instead of their hooks",
			Destination: &historyRuns,
		},
		journalFlag,
	}
)

func history(ctx *cli.Context) error {
	p := ctx.Args().First()
	if p == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	if p == "" {
		p = journalPath
	}
	if p == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no journal provided"))
	}
	if _, err := os.Stat(p); err != nil {
		common.PrintRuntimeErr(ctx, "history", "journal_not_found", err)
		return nil
	}
	j, err := journal.Open(p, "", nil)
	if err != nil {
		common.PrintRuntimeErr(ctx, "history", "open_journal", err)
		return nil
	}
	defer j.Close()

	if historyRuns {
		runs, err := j.Runs(context.Background())
		if err != nil {
			common.PrintRuntimeErr(ctx, "history", "list_runs", err)
			return nil
		}
		if len(runs) == 0 {
			fmt.Println("cueline: no runs recorded")
			return nil
		}
		t := common.NewTable(
			common.Column{Title: "Run", Width: 22},
			common.Column{Title: "Hooks", Width: 7},
			common.Column{Title: "First", Width: 21},
			common.Column{Title: "Last", Width: 10},
		)
		for _, r := range runs {
			t.Append(r.Name, strconv.Itoa(r.Hooks),
				r.First.Format("2006-01-02 15:04:05"), r.Last.Format("15:04:05"))
		}
		fmt.Print(t)
		return nil
	}

	entries, err := j.Entries(context.Background(), historyRun)
	if err != nil {
		common.PrintRuntimeErr(ctx, "history", "entries", err)
		return nil
	}
	if len(entries) == 0 {
		fmt.Println("cueline: no hooks recorded")
		return nil
	}
	run := ""
	for _, e := range entries {
		if e.Run != run {
			run = e.Run
			fmt.Printf("run %s:\n", run)
		}
		fmt.Printf("  %s (context %.3f, position %.3f)\n", e.Hook, e.Context, e.Position)
	}
	return nil
}
