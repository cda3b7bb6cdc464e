package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rtepass1986/reallifeberlin/internal/config"
	"github.com/rtepass1986/reallifeberlin/internal/scheduler"
	"github.com/rtepass1986/reallifeberlin/internal/seed"
)

type cli struct {
	configPath string
	loader     *config.Loader
	cfg        config.Config
	level      *slog.LevelVar
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{level: new(slog.LevelVar)}

	root := &cobra.Command{
		Use:           "reallife",
		Short:         "Contact follow-up workflows for the ReallifeBerlin church",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return c.load()
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", os.Getenv("REALLIFE_CONFIG"), "path to a YAML config file")

	root.AddCommand(c.serveCmd(), c.migrateCmd(), c.seedCmd(), c.jobCmd(), versionCmd())
	return root
}

func (c *cli) load() error {
	loader, err := config.NewLoader(c.configPath)
	if err != nil {
		return err
	}
	cfg, err := loader.Config()
	if err != nil {
		return err
	}
	c.loader, c.cfg = loader, cfg
	c.logger = newLogger(cfg.Log, c.level)
	slog.SetDefault(c.logger)
	return nil
}

func (c *cli) serveCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the follow-up scheduler",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.serve(cmd.Context(), migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply database migrations before serving")
	return cmd
}

func (c *cli) serve(ctx context.Context, migrate bool) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer a.close()

	if migrate {
		if err := a.migrate(ctx); err != nil {
			return err
		}
	}

	handler, err := a.router()
	if err != nil {
		return err
	}
	c.loader.WatchLogLevel(c.level, c.logger)

	server := &http.Server{
		Addr:              c.cfg.HTTP.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if c.cfg.Scheduler.Enabled {
		a.scheduler.Start()
		c.logger.Info("scheduler started", "jobs", a.scheduler.Jobs(), "next", a.scheduler.Next())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		c.logger.Info("listening", "addr", c.cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		c.logger.Info("shut down signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.cfg.HTTP.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if c.cfg.Scheduler.Enabled {
			if err := a.scheduler.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("scheduler stop: %w", err))
			}
		}
		if err := a.pool.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("worker pool shutdown: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	c.logger.Info("shut down gracefully")
	return nil
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.close()
			return a.migrate(cmd.Context())
		},
	}
}

func (c *cli) seedCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create users and small-group leaders from a YAML file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := seed.LoadFile(file)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.close()

			res, err := seed.Apply(cmd.Context(), a.store, data, c.logger)
			if err != nil {
				return err
			}
			c.logger.Info("seed applied",
				"users_created", res.UsersCreated,
				"users_skipped", res.UsersSkipped,
				"leaders_created", res.LeadersCreated,
				"leaders_skipped", res.LeadersSkipped,
			)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "seed.yaml", "seed file")
	return cmd
}

func (c *cli) jobCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "job <" + scheduler.JobDueTasks + "|" + scheduler.JobAdvance + ">",
		Short:     "Run one scheduler job now",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{scheduler.JobDueTasks, scheduler.JobAdvance},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			defer a.close()

			runErr := a.scheduler.RunJob(cmd.Context(), args[0])

			// queued notifications still go out
			drainCtx, cancel := context.WithTimeout(context.Background(), c.cfg.HTTP.ShutdownTimeout)
			defer cancel()
			return errors.Join(runErr, a.pool.Shutdown(drainCtx))
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("reallife %s (commit %s)\n", version, commit)
		},
	}
}

func newLogger(cfg config.Log, level *slog.LevelVar) *slog.Logger {
	lvl, err := config.ParseLevel(cfg.Level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	level.Set(lvl)

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
