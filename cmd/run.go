package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/warpdl/cueline/cmd/common"
	"github.com/warpdl/cueline/internal/journal"
	"github.com/warpdl/cueline/internal/script"
	"github.com/warpdl/cueline/internal/session"
	"github.com/warpdl/cueline/pkg/audioctx"
	"github.com/warpdl/cueline/pkg/logger"
)

var (
	until       float64
	journalPath string
	realtime    bool
	tick        time.Duration
	debug       bool
	logFile     string

	debugFlag = cli.BoolFlag{
		Name:        "debug, d",
		Usage:       "log every scheduling call",
		EnvVar:      "CUELINE_DEBUG",
		Destination: &debug,
	}
	journalFlag = cli.StringFlag{
		Name:        "journal, j",
		Usage:       "record every hook call into this sqlite database",
		EnvVar:      "CUELINE_JOURNAL",
		Destination: &journalPath,
	}
	logFileFlag = cli.StringFlag{
		Name:        "log-file",
		Usage:       "also append log lines to this file",
		EnvVar:      "CUELINE_LOG_FILE",
		Destination: &logFile,
	}
	tickFlag = cli.DurationFlag{
		Name:        "tick",
		Usage:       "wall-clock interval between two context steps",
		Value:       DEF_TICK,
		Destination: &tick,
	}

	runFlags = []cli.Flag{
		cli.Float64Flag{
			Name:        "until, u",
			Usage:       "advance the context to this time in seconds (default: the script's end, or 10)",
			Destination: &until,
		},
		cli.BoolFlag{
			Name:        "realtime, r",
			Usage:       "advance with the wall clock and show the position",
			Destination: &realtime,
		},
		journalFlag,
		tickFlag,
		debugFlag,
		logFileFlag,
	}
)

// newLogger returns the stderr logger shared by the commands, teeing into
// the --log-file when one is given.
func newLogger() (logger.Logger, error) {
	level := logger.LevelInfo
	if debug {
		level = logger.LevelDebug
	}
	console := logger.NewStandardLogger(log.New(os.Stderr, "cueline: ", log.LstdFlags))
	console.SetLevel(level)
	if logFile == "" {
		return console, nil
	}
	file, err := logger.NewFileLogger(logFile, "")
	if err != nil {
		return nil, err
	}
	file.SetLevel(level)
	return logger.NewMultiLogger(console, file), nil
}

// openJournal attaches a journal to s when a path was given. The returned
// close function is always safe to call.
func openJournal(s *session.Session, l logger.Logger) (func(), error) {
	if journalPath == "" {
		return func() {}, nil
	}
	j, err := journal.Open(journalPath, "", l)
	if err != nil {
		return func() {}, err
	}
	s.AddObserver(j)
	l.Info("journal: recording run %s into %s", j.RunName(), journalPath)
	return func() { _ = j.Close() }, nil
}

// loadScript runs the script at p against s.
func loadScript(s *session.Session, p string, l logger.Logger) (*script.Runtime, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return nil, err
	}
	rt, err := script.NewRuntime(s, afero.NewOsFs(), filepath.Dir(abs), os.Stdout, l)
	if err != nil {
		return nil, err
	}
	return rt, rt.RunFile(abs)
}

func run(ctx *cli.Context) error {
	p := ctx.Args().First()
	if p == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no script provided"))
	}
	if p == "help" {
		return cli.ShowCommandHelp(ctx, ctx.Command.Name)
	}
	l, err := newLogger()
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "log_file", err)
		return nil
	}
	defer l.Close()

	sess := session.New(&session.Options{Logger: l})
	defer sess.Close()
	closeJournal, err := openJournal(sess, l)
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "open_journal", err)
		return nil
	}
	defer closeJournal()

	rt, err := loadScript(sess, p, l)
	if err != nil {
		common.PrintRuntimeErr(ctx, "run", "script", err)
		return nil
	}

	length := DEF_UNTIL
	if ctx.IsSet("until") {
		length = until
	} else if end, ok := rt.End(); ok {
		length = end
	}

	if realtime {
		err = runRealtime(sess, length, l)
	} else {
		err = sess.Advance(length)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		common.PrintRuntimeErr(ctx, "run", "advance", err)
	}
	if err := rt.Err(); err != nil {
		common.PrintRuntimeErr(ctx, "run", "callback", err)
	}
	printReport(os.Stdout, sess)
	return nil
}

// runRealtime advances s with the wall clock until length, drawing a
// position bar. An interrupt stops early.
func runRealtime(s *session.Session, length float64, l logger.Logger) error {
	g := session.NewGuard(s)
	p := mpb.New(mpb.WithWidth(64), mpb.WithRefreshRate(100*time.Millisecond))
	bar := common.InitPositionBar(p, "", length, func() float64 {
		var pos float64
		_ = g.Do(func(s *session.Session) error {
			pos = s.Transport().Seconds()
			return nil
		})
		return pos
	})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	err := audioctx.NewDriver(g, tick, l).Run(ctx, length, func(t float64) {
		common.SetPosition(bar, t)
	})
	if err != nil {
		bar.Abort(false)
	}
	p.Wait()
	if err != nil {
		return fmt.Errorf("realtime: %w", err)
	}
	return nil
}
