package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rubiojr/glimpse/pkg/api"
	"github.com/rubiojr/glimpse/pkg/config"
	"github.com/rubiojr/glimpse/pkg/log"
	"github.com/urfave/cli/v3"
)

// ServeCommand creates the serve command
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "Address to listen on (overrides [server] listen)",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return serve(ctx, c.String("config"), c.String("listen"))
		},
	}
}

func serve(ctx context.Context, configPath, listen string) error {
	logger := log.ForService("serve")

	s, err := openSession(ctx, configPath)
	if err != nil {
		return err
	}
	defer func() { s.Close() }()

	if listen == "" {
		listen = s.cfg.Server.Listen
	}

	mux := http.NewServeMux()
	api.NewServer(s.registry).RegisterRoutes(mux)
	server := &http.Server{
		Addr:              listen,
		Handler:           api.CorsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("Starting API server on http://%s", listen)
		logger.Infof("Providers: %v", s.registry.Available())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("failed to create config file watcher: %v", err)
	} else {
		defer watcher.Close()
		if err := watcher.Add(configPath); err != nil {
			logger.Warnf("failed to watch config file %s: %v", configPath, err)
		} else {
			logger.Infof("Watching config file for changes: %s", configPath)
		}
	}

	var (
		events <-chan fsnotify.Event
		errs   <-chan error
	)
	if watcher != nil {
		events, errs = watcher.Events, watcher.Errors
	}

	for {
		select {
		case err := <-errCh:
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
			return shutdown(server)
		case sig := <-sigCh:
			if sig == syscall.SIGHUP {
				logger.Infof("Received SIGHUP, reloading configuration...")
				reload(ctx, configPath, s)
				continue
			}
			logger.Infof("Shutting down API server...")
			return shutdown(server)
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove)) {
				continue
			}
			logger.Infof("Config file changed: %s (event: %s), reloading configuration...", event.Name, event.Op)

			// editors replace the file on save, which drops the watch
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				time.Sleep(200 * time.Millisecond)
				if _, err := os.Stat(configPath); os.IsNotExist(err) {
					logger.Warnf("Config file was removed and not replaced, skipping reload")
					continue
				}
				if err := watcher.Add(configPath); err != nil {
					logger.Warnf("failed to re-add config file to watcher: %v", err)
				}
			} else {
				time.Sleep(100 * time.Millisecond)
			}
			reload(ctx, configPath, s)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Warnf("config file watcher error: %v", err)
		}
	}
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// reload reconfigures every provider from the file. The cache is reopened
// only when its settings changed; a broken file keeps the running config.
func reload(ctx context.Context, configPath string, s *session) {
	logger := log.ForService("serve")

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Errorf("Failed to reload configuration: %v", err)
		return
	}

	shared := s.cache
	if cfg.Cache != s.cfg.Cache {
		if shared, err = cfg.OpenCache(ctx); err != nil {
			logger.Errorf("Failed to open the new cache, keeping the old configuration: %v", err)
			return
		}
	}

	cfg.Configure(s.registry, shared)
	if shared != s.cache {
		old := s.cache
		// requests already running keep using the old cache for a while
		time.AfterFunc(time.Minute, func() {
			if err := old.Close(); err != nil {
				logger.Warnf("failed to close the previous cache: %v", err)
			}
		})
	}
	if cfg.Server.Listen != s.cfg.Server.Listen {
		logger.Warnf("listen address changes need a restart")
	}
	s.cfg, s.cache = cfg, shared
	logger.Infof("Configuration reloaded successfully")
}
