package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"
	"github.com/warpdl/cueline/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

// buildInfo is reported by system.getVersion when serving.
var buildInfo BuildArgs

func Execute(args []string, bArgs BuildArgs) error {
	buildInfo = bArgs
	app := cli.App{
		Name:                  "cueline",
		HelpName:              "cueline",
		Usage:                 "A transport-synced playback scheduler.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "cueline <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: appHelpTemplate,
		OnUsageError:          common.UsageErrorCallback,
		Commands: []cli.Command{
			{
				Name:                   "run",
				Usage:                  "run a cue script on an offline context",
				UsageText:              "run [flags] <script.js>",
				Description:            RunDescription,
				OnUsageError:           common.UsageErrorCallback,
				CustomHelpTemplate:     commandHelpTemplate,
				Action:                 run,
				Flags:                  runFlags,
				UseShortOptionHandling: true,
			},
			{
				Name:               "serve",
				Aliases:            []string{"s"},
				Usage:              "serve a live session over JSON-RPC",
				UsageText:          "serve [flags]",
				Description:        ServeDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: commandHelpTemplate,
				Action:             serve,
				Flags:              serveFlags,
			},
			{
				Name:               "history",
				Usage:              "print the hook calls stored in a journal",
				UsageText:          "history [flags] <journal.db>",
				Description:        HistoryDescription,
				OnUsageError:       common.UsageErrorCallback,
				CustomHelpTemplate: commandHelpTemplate,
				Action:             history,
				Flags:              historyFlags,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Aliases:            []string{"v"},
				Usage:              "prints installed version of cueline",
				UsageText:          " ",
				CustomHelpTemplate: commandHelpTemplate,
				Action:             common.GetVersion,
			},
		},
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app.Run(args)
}
