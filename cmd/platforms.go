package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/urfave/cli/v3"
)

// PlatformsCommand creates the platforms command
func PlatformsCommand() *cli.Command {
	return &cli.Command{
		Name:  "platforms",
		Usage: "List the available providers",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON instead of formatted output",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			available := core.GetGlobalRegistry().Available()
			if c.Bool("json") {
				return printJSON(os.Stdout, available)
			}

			fmt.Println(titleStyle.Render(fmt.Sprintf("%d providers", len(available))))
			for _, name := range available {
				fmt.Printf("  %s %s\n", headerStyle.Render(platformTitle(name)), metaStyle.Render(name))
			}
			return nil
		},
	}
}
