package main

import (
	"civsim-server/internal/domain"
	"civsim-server/internal/engine"
	"civsim-server/internal/infrastructure/reports"
	"civsim-server/internal/infrastructure/storage"
	"civsim-server/internal/server"
	"civsim-server/internal/simulation"
	"civsim-server/internal/version"
	"civsim-server/pkg/logger"
	"civsim-server/pkg/worldgen"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

func init() {
	logger.Init()
}

type flags struct {
	configPath   string
	templatePath string
	replayPath   string
	simulate     bool
	workers      int
	simsPer      int
	maxTurns     int
	statTurns    string
	seed         int64
}

func main() {
	// 1. Парсинг конфигурации
	var f flags
	flag.StringVar(&f.configPath, "config", "", "Path to YAML config")
	flag.StringVar(&f.templatePath, "template", "", "Path to YAML game template (built-in default if empty)")
	flag.StringVar(&f.replayPath, "replay", "", "Path to .crpl action log to replay")
	flag.BoolVar(&f.simulate, "simulate", false, "Run a batch of AI-only games and print the report")
	flag.IntVar(&f.workers, "workers", 1, "Number of parallel workers")
	flag.IntVar(&f.simsPer, "sims-per-worker", 1, "Games played sequentially by each worker")
	flag.IntVar(&f.maxTurns, "max-turns", 500, "Turn limit of a single game")
	flag.StringVar(&f.statTurns, "stat-turns", "", "Comma separated turns to sample civ stats at, e.g. 50,100")
	flag.Int64Var(&f.seed, "seed", 0, "Master seed (0 for random)")
	flag.Parse()

	logger.Log.Info("Starting CivSim...")
	logger.Log.Info(version.String())

	cfg, err := buildConfig(f)
	if err != nil {
		logger.Log.Fatal("Config error: ", err)
	}

	tmpl, err := worldgen.LoadTemplate(cfg.TemplatePath)
	if err != nil {
		logger.Log.Fatal("Template error: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := 0
	switch {
	// РЕЖИМ РЕПЛЕЯ
	case f.replayPath != "":
		logger.Log.Info("💿 Mode: Replay")
		code = runReplay(ctx, cfg, f.replayPath)

	// РЕЖИМ ПАКЕТА
	case f.simulate:
		logger.Log.Info("🎲 Mode: Batch simulation")
		code = runBatch(ctx, cfg, tmpl)

	default:
		if err := runServer(ctx, cfg, tmpl); err != nil {
			logger.Log.Error("Server error: ", err)
			code = 1
		}
	}

	stop()
	os.Exit(code)
}

// buildConfig: умолчания -> YAML -> окружение -> флаги.
func buildConfig(f flags) (engine.Config, error) {
	cfg := engine.NewConfig()
	if f.configPath != "" {
		var err error
		if cfg, err = engine.LoadConfig(f.configPath); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()

	var parseErr error
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "workers":
			cfg.Batch.Workers = f.workers
		case "sims-per-worker":
			cfg.Batch.SimulationsPerWorker = f.simsPer
		case "max-turns":
			cfg.Batch.MaxTurns = f.maxTurns
		case "seed":
			if f.seed != 0 {
				cfg.Seed = f.seed
			}
		case "template":
			cfg.TemplatePath = f.templatePath
		case "stat-turns":
			cfg.Batch.StatTurns, parseErr = parseTurns(f.statTurns)
		}
	})
	if parseErr != nil {
		return cfg, parseErr
	}

	cfg.Batch.Seed = cfg.Seed
	return cfg, cfg.Batch.Validate()
}

func parseTurns(s string) ([]int, error) {
	var turns []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid stat turn %q: %w", part, err)
		}
		turns = append(turns, n)
	}
	return turns, nil
}

func runBatch(ctx context.Context, cfg engine.Config, tmpl domain.GameTemplate) int {
	logger.Log.Infof("🎲 Master Seed: %d", cfg.Seed)

	summary, err := simulation.NewSimulator(worldgen.Factory).Run(ctx, tmpl, cfg.Batch)
	if summary.Steps > 0 || summary.Failures > 0 {
		fmt.Print(summary.Text())
	}

	if err == nil && cfg.DatabaseURL != "" {
		exportReport(cfg.DatabaseURL, summary)
	}

	switch {
	case errors.Is(err, simulation.ErrAllSimulationsFailed):
		logger.Log.Error(err)
		return 1
	case err != nil:
		logger.Log.Warn("Batch interrupted: ", err)
		return 1
	}
	return 0
}

func exportReport(databaseURL string, summary simulation.Summary) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, err := reports.NewPostgresSink(ctx, databaseURL)
	if err != nil {
		logger.Log.WithError(err).Error("postgres unavailable, report not exported")
		return
	}
	defer sink.Close()

	id := uuid.NewString()
	if err := sink.Save(ctx, id, summary); err != nil {
		logger.Log.WithError(err).Error("report export failed")
		return
	}
	logger.Log.Infof("Report exported as %s", id)
}

func runReplay(ctx context.Context, cfg engine.Config, path string) int {
	log, err := (&storage.ReplayService{SaveDir: cfg.DataDir}).Load(path)
	if err != nil {
		logger.Log.Error("Failed to load replay: ", err)
		return 1
	}

	svc := engine.NewService(cfg, worldgen.DefaultTemplate(), nil)
	run, err := svc.RunReplay(ctx, log)
	if err != nil {
		logger.Log.Error("Replay failed: ", err)
		return 1
	}

	fmt.Printf("Replayed %d turns, %d actions, final turn %d\n", run.TurnsReplayed, run.ActionsApplied, run.FinalTurn)
	if run.Winner != "" {
		fmt.Printf("%s won %s victory\n", run.Winner, run.VictoryType)
	}
	if d := run.Divergence; d != nil {
		fmt.Printf("Divergence: %s turn %d action #%d %s: %s\n", d.Civ, d.Turn, d.ActionIndex, d.Kind, d.Message)
		return 1
	}
	return 0
}

func runServer(ctx context.Context, cfg engine.Config, tmpl domain.GameTemplate) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return err
	}
	store, err := storage.OpenSQLite(cfg.DatabasePath())
	if err != nil {
		return err
	}
	defer store.Close()

	// 2. Хранилища отчетов
	sinks := []reports.Sink{reports.NewSQLiteSink(store)}
	if cfg.DatabaseURL != "" {
		pg, err := reports.NewPostgresSink(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		sinks = append(sinks, pg)
	}

	// 3. Ядро и HTTP
	svc := engine.NewService(cfg, tmpl, store, sinks...)
	srv := server.New(svc, store, cfg.Port)

	err = srv.Run(ctx)

	logger.Log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if serr := svc.Shutdown(shutdownCtx); serr != nil {
		logger.Log.WithError(serr).Warn("jobs did not stop in time")
	}

	logger.Log.Info("Done.")
	return err
}
