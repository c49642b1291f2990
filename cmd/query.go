package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/urfave/cli/v3"
)

// queryAction opens a session, builds the query from the flags and hands
// both to run.
func queryAction(run func(ctx context.Context, c *cli.Command, provider core.Provider, q core.Query) error) cli.ActionFunc {
	return func(ctx context.Context, c *cli.Command) error {
		s, err := openSession(ctx, c.String("config"))
		if err != nil {
			return err
		}
		defer s.Close()

		provider, q, err := s.queryFromFlags(c)
		if err != nil {
			return err
		}
		return run(ctx, c, provider, q)
	}
}

func limitFlag(value int) cli.Flag {
	return &cli.IntFlag{
		Name:  "limit",
		Usage: "Maximum number of results",
		Value: value,
	}
}

// CountCommand creates the count command
func CountCommand() *cli.Command {
	return &cli.Command{
		Name:  "count",
		Usage: "Count the items matching a query",
		Flags: queryFlags(),
		Action: queryAction(func(ctx context.Context, c *cli.Command, provider core.Provider, q core.Query) error {
			n, err := provider.Count(ctx, q)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(os.Stdout, map[string]int64{"count": n})
			}
			fmt.Println(renderTitle(provider, q))
			fmt.Println(renderCount(n))
			return nil
		}),
	}
}

// CountOverTimeCommand creates the count-over-time command
func CountOverTimeCommand() *cli.Command {
	return &cli.Command{
		Name:    "count-over-time",
		Aliases: []string{"cot"},
		Usage:   "Count the items matching a query per period",
		Flags: append(queryFlags(), &cli.BoolFlag{
			Name:  "normalized",
			Usage: "Also divide the total by the volume of the whole range",
		}),
		Action: queryAction(func(ctx context.Context, c *cli.Command, provider core.Provider, q core.Query) error {
			if c.Bool("normalized") {
				counts, err := provider.NormalizedCountOverTime(ctx, q)
				if err != nil {
					return err
				}
				if c.Bool("json") {
					return printJSON(os.Stdout, counts)
				}
				fmt.Println(renderTitle(provider, q))
				fmt.Println(renderCounts(counts.Counts, counts.Total))
				fmt.Println(metaStyle.Render(fmt.Sprintf("%.4f%% of all items in the range", counts.NormalizedTotal*100)))
				return nil
			}

			counts, err := provider.CountOverTime(ctx, q)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(os.Stdout, counts)
			}
			fmt.Println(renderTitle(provider, q))
			fmt.Println(renderCounts(counts.Counts, counts.Total))
			return nil
		}),
	}
}

// SampleCommand creates the sample command
func SampleCommand() *cli.Command {
	return &cli.Command{
		Name:  "sample",
		Usage: "Show a sample of the items matching a query",
		Flags: append(queryFlags(), limitFlag(20)),
		Action: queryAction(func(ctx context.Context, c *cli.Command, provider core.Provider, q core.Query) error {
			rows, err := provider.Sample(ctx, q, c.Int("limit"))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(os.Stdout, rows)
			}
			fmt.Println(renderTitle(provider, q))
			fmt.Println(renderRows(rows))
			return nil
		}),
	}
}

// WordsCommand creates the words command
func WordsCommand() *cli.Command {
	return &cli.Command{
		Name:  "words",
		Usage: "Show the top words of the items matching a query",
		Flags: append(queryFlags(), limitFlag(100), &cli.IntFlag{
			Name:  "sample-size",
			Usage: "How many items to look at",
		}),
		Action: queryAction(func(ctx context.Context, c *cli.Command, provider core.Provider, q core.Query) error {
			q.Options.SampleSize = c.Int("sample-size")
			words, err := provider.Words(ctx, q, c.Int("limit"))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(os.Stdout, words)
			}
			fmt.Println(renderTitle(provider, q))
			fmt.Print(renderWords(words))
			return nil
		}),
	}
}

// TagsCommand creates the tags command
func TagsCommand() *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "Show the top tags of the items matching a query",
		Flags: append(queryFlags(), limitFlag(100),
			&cli.IntFlag{
				Name:  "sample-size",
				Usage: "How many items to look at",
			},
			&cli.Int64Flag{
				Name:  "tag-sets-id",
				Usage: "Only count tags of this tag set",
			},
		),
		Action: queryAction(func(ctx context.Context, c *cli.Command, provider core.Provider, q core.Query) error {
			q.Options.SampleSize = c.Int("sample-size")
			q.Options.TagSetsID = c.Int64("tag-sets-id")
			tags, err := provider.Tags(ctx, q, c.Int("limit"))
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(os.Stdout, tags)
			}
			fmt.Println(renderTitle(provider, q))
			fmt.Print(renderTags(tags))
			return nil
		}),
	}
}

// ItemCommand creates the item command
func ItemCommand() *cli.Command {
	return &cli.Command{
		Name:      "item",
		Usage:     "Fetch a single item by its backend id",
		ArgsUsage: "<id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "platform",
				Aliases:  []string{"p"},
				Usage:    `Provider to query, as listed by "glimpse platforms"`,
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print JSON instead of formatted output",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			id := c.Args().First()
			if id == "" {
				return fmt.Errorf("an item id is required")
			}

			s, err := openSession(ctx, c.String("config"))
			if err != nil {
				return err
			}
			defer s.Close()

			provider, err := s.registry.ProviderFor(c.String("platform"))
			if err != nil {
				return err
			}
			row, err := provider.Item(ctx, id)
			if err != nil {
				return err
			}
			if c.Bool("json") {
				return printJSON(os.Stdout, row)
			}
			fmt.Println(renderRow(*row))
			return nil
		},
	}
}
