package cmd

import (
	"context"
	"os"
	"os/signal"

	"github.com/urfave/cli"
	"github.com/warpdl/cueline/cmd/common"
	"github.com/warpdl/cueline/internal/server"
	"github.com/warpdl/cueline/internal/session"
)

var (
	addr       string
	secret     string
	scriptPath string

	serveFlags = []cli.Flag{
		cli.StringFlag{
			Name:        "addr, a",
			Usage:       "address the JSON-RPC server listens on",
			Value:       server.DefaultAddr,
			EnvVar:      "CUELINE_ADDR",
			Destination: &addr,
		},
		cli.StringFlag{
			Name:        "secret",
			Usage:       "bearer token every request must carry (required)",
			EnvVar:      "CUELINE_RPC_SECRET",
			Destination: &secret,
		},
		cli.StringSliceFlag{
			Name:  "cue, c",
			Usage: "cron expression at which the transport restarts from zero (repeatable)",
		},
		cli.StringFlag{
			Name:        "script, s",
			Usage:       "cue script to run before serving",
			Destination: &scriptPath,
		},
		journalFlag,
		tickFlag,
		debugFlag,
		logFileFlag,
	}
)

func serve(ctx *cli.Context) error {
	if ctx.Args().First() == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	l, err := newLogger()
	if err != nil {
		common.PrintRuntimeErr(ctx, "serve", "log_file", err)
		return nil
	}
	defer l.Close()

	sess := session.New(&session.Options{Logger: l})
	defer sess.Close()
	closeJournal, err := openJournal(sess, l)
	if err != nil {
		common.PrintRuntimeErr(ctx, "serve", "open_journal", err)
		return nil
	}
	defer closeJournal()

	if scriptPath != "" {
		if _, err := loadScript(sess, scriptPath, l); err != nil {
			common.PrintRuntimeErr(ctx, "serve", "script", err)
			return nil
		}
	}

	srv, err := server.NewServer(&server.Config{
		Addr: addr,
		RPC: &server.RPCConfig{
			Secret:    secret,
			Version:   buildInfo.Version,
			Commit:    buildInfo.Commit,
			BuildType: buildInfo.BuildType,
		},
		Tick: tick,
		Cues: ctx.StringSlice("cue"),
	}, sess, l)
	if err != nil {
		common.PrintRuntimeErr(ctx, "serve", "new_server", err)
		return nil
	}

	sigCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if err := srv.Start(sigCtx); err != nil {
		common.PrintRuntimeErr(ctx, "serve", "start", err)
	}
	return nil
}
