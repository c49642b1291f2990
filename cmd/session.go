package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/rubiojr/glimpse/pkg/cache"
	"github.com/rubiojr/glimpse/pkg/config"
	"github.com/rubiojr/glimpse/pkg/core"
	"github.com/rubiojr/glimpse/pkg/log"
	"github.com/urfave/cli/v3"
)

// session is what every command needs: the loaded config, the shared cache
// and a registry whose providers were configured from both.
type session struct {
	cfg      *config.Config
	cache    *cache.Cache
	registry *core.Registry
}

func openSession(ctx context.Context, configPath string) (*session, error) {
	if err := config.LoadEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	shared, err := cfg.OpenCache(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening %s cache: %w", cfg.Cache.Backend, err)
	}

	registry := core.GetGlobalRegistry()
	cfg.Configure(registry, shared)
	return &session{cfg: cfg, cache: shared, registry: registry}, nil
}

func (s *session) Close() {
	if err := s.cache.Close(); err != nil {
		log.ForService("cli").Warnf("failed to close cache: %v", err)
	}
}

// queryFlags are shared by every command that runs a search.
func queryFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "platform",
			Aliases:  []string{"p"},
			Usage:    `Provider to query, as listed by "glimpse platforms" (e.g. "reddit / pushshift")`,
			Required: true,
		},
		&cli.StringFlag{
			Name:    "terms",
			Aliases: []string{"q"},
			Usage:   "Search terms, passed to the backend as is",
		},
		&cli.StringFlag{
			Name:     "start",
			Usage:    "Start date (YYYY-MM-DD or RFC 3339)",
			Required: true,
		},
		&cli.StringFlag{
			Name:     "end",
			Usage:    "End date (YYYY-MM-DD or RFC 3339)",
			Required: true,
		},
		&cli.StringSliceFlag{
			Name:  "sources",
			Usage: "Media source ids. Can be used multiple times",
		},
		&cli.StringSliceFlag{
			Name:  "collections",
			Usage: "Collection ids. Can be used multiple times",
		},
		&cli.StringSliceFlag{
			Name:  "subreddits",
			Usage: "Subreddits to restrict reddit searches to. Can be used multiple times",
		},
		&cli.StringFlag{
			Name:  "period",
			Usage: "Count-over-time bucket width: day, week, month or year",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print JSON instead of formatted output",
		},
	}
}

// queryFromFlags resolves the provider and builds a validated query.
func (s *session) queryFromFlags(c *cli.Command) (core.Provider, core.Query, error) {
	provider, err := s.registry.ProviderFor(c.String("platform"))
	if err != nil {
		return nil, core.Query{}, err
	}
	q, err := buildQuery(c)
	if err != nil {
		return nil, core.Query{}, err
	}
	return provider, q, nil
}

func buildQuery(c *cli.Command) (core.Query, error) {
	start, err := core.ParseDate(c.String("start"))
	if err != nil {
		return core.Query{}, fmt.Errorf("--start: %w", err)
	}
	end, err := core.ParseDate(c.String("end"))
	if err != nil {
		return core.Query{}, fmt.Errorf("--end: %w", err)
	}

	q := core.NewQuery(c.String("terms"), start, end)
	q.Options.Subreddits = c.StringSlice("subreddits")
	q.Options.Period = core.Period(c.String("period"))
	if q.Options.Sources, err = parseIDList(c.StringSlice("sources")); err != nil {
		return core.Query{}, fmt.Errorf("--sources: %w", err)
	}
	if q.Options.Collections, err = parseIDList(c.StringSlice("collections")); err != nil {
		return core.Query{}, fmt.Errorf("--collections: %w", err)
	}
	if err := q.Validate(); err != nil {
		return core.Query{}, err
	}
	return q, nil
}

// parseIDList accepts repeated flags as well as comma separated values.
func parseIDList(values []string) ([]int64, error) {
	var ids []int64
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid id %q", part)
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}
