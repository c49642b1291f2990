package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rubiojr/glimpse/pkg/api"
	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/rubiojr/glimpse/pkg/log"
	"github.com/urfave/cli/v3"
)

// DumpCommand creates the dump command
func DumpCommand() *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "Write every item matching a query as CSV",
		Flags: append(queryFlags(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "CSV file to write (default stdout)",
			},
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "Stop after this many pages (0 for no limit)",
			},
		),
		Action: queryAction(func(ctx context.Context, c *cli.Command, provider core.Provider, q core.Query) error {
			var out io.Writer = os.Stdout
			if path := c.String("output"); path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("creating %s: %w", path, err)
				}
				defer f.Close()
				out = f
			}
			return dumpCSV(ctx, provider, q, out, c.Int("max-pages"))
		}),
	}
}

// dumpCSV drains the provider's walker page by page into out.
func dumpCSV(ctx context.Context, provider core.Provider, q core.Query, out io.Writer, maxPages int) error {
	logger := log.ForService("dump")

	walker, err := provider.AllItems(q)
	if err != nil {
		return err
	}

	w := api.NewCSVWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}

	var rows int
	for walker.Next(ctx) {
		page := walker.Page()
		if err := w.WriteRows(page); err != nil {
			return err
		}
		rows += len(page)
		logger.Debugf("page %d: %d rows", walker.Pages(), len(page))
		if maxPages > 0 && walker.Pages() >= maxPages {
			break
		}
	}
	if err := walker.Err(); err != nil {
		// keep what was already written
		_ = w.Flush()
		return fmt.Errorf("after %d rows: %w", rows, err)
	}

	logger.Infof("wrote %d rows in %d pages", rows, walker.Pages())
	return w.Flush()
}
