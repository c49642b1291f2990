package main

import (
	"context"
	stdlog "log"
	"os"

	"github.com/rubiojr/glimpse/cmd"
	"github.com/rubiojr/glimpse/pkg/config"
	"github.com/rubiojr/glimpse/pkg/log"
	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "glimpse",
		Usage: "Search news, Twitter and Reddit archives through one interface",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
				Value: false,
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Configuration file path",
				Value: getDefaultConfigPathOrExit(),
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			log.SetGlobalDebug(c.Bool("debug"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			cmd.InitCommand(),
			cmd.PlatformsCommand(),
			cmd.CountCommand(),
			cmd.CountOverTimeCommand(),
			cmd.SampleCommand(),
			cmd.WordsCommand(),
			cmd.TagsCommand(),
			cmd.ItemCommand(),
			cmd.DumpCommand(),
			cmd.ServeCommand(),
			cmd.VersionCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		stdlog.Fatal(err)
	}
}

func getDefaultConfigPathOrExit() string {
	path, err := config.GetDefaultConfigPath()
	if err != nil {
		stdlog.Fatalf("Failed to get default config path: %v", err)
	}
	return path
}
