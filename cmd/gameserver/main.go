// Package main provides the arcana server binary: the affinity ledger, perk
// index and channeled ability scheduler driven by a fixed-rate tick loop.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/arcana/internal/config"
	"github.com/cory-johannsen/arcana/internal/game/ability"
	"github.com/cory-johannsen/arcana/internal/game/npc"
	"github.com/cory-johannsen/arcana/internal/game/perk"
	"github.com/cory-johannsen/arcana/internal/game/school"
	"github.com/cory-johannsen/arcana/internal/gameserver"
	"github.com/cory-johannsen/arcana/internal/observability"
	"github.com/cory-johannsen/arcana/internal/scripting"
	"github.com/cory-johannsen/arcana/internal/server"
	"github.com/cory-johannsen/arcana/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	migrateOnStart := flag.Bool("migrate", false, "apply pending schema migrations before starting")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting arcana server",
		zap.Duration("tick_interval", cfg.Simulation.TickInterval),
	)

	perkStart := time.Now()
	catalog, err := perk.LoadDirectory(cfg.Content.PerksDir)
	if err != nil {
		logger.Fatal("loading perk catalog", zap.Error(err))
	}
	logger.Info("perk catalog loaded",
		zap.String("dir", cfg.Content.PerksDir),
		zap.Int("perks", catalog.TotalCount()),
		zap.Duration("elapsed", time.Since(perkStart)),
	)

	npcTemplates, err := npc.LoadTemplates(cfg.Content.NPCsDir)
	if err != nil {
		logger.Fatal("loading npc templates", zap.Error(err))
	}
	npcMgr := npc.NewManager()
	spawned := npcMgr.Populate(npcTemplates)
	logger.Info("initial NPC population complete",
		zap.Int("templates", len(npcTemplates)),
		zap.Int("spawned", spawned),
	)

	if *migrateOnStart {
		if err := postgres.MigrateUp(cfg.Database.DSN()); err != nil {
			logger.Fatal("applying migrations", zap.Error(err))
		}
		logger.Info("schema up to date")
	}

	dbStart := time.Now()
	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("connecting to database", zap.Error(err))
	}
	logger.Info("database connected",
		zap.String("host", cfg.Database.Host),
		zap.Duration("elapsed", time.Since(dbStart)),
	)

	sim, err := gameserver.NewSimulation(gameserver.Options{
		Simulation: cfg.Simulation,
		Affinity:   cfg.Affinity.Params(),
		Graph:      school.Default(),
		Catalog:    catalog,
		Store:      pool.Affinity(observability.Component(logger, "affinity_repo")),
		NPCs:       npcMgr,
		Logger:     logger,
	})
	if err != nil {
		logger.Fatal("creating simulation", zap.Error(err))
	}

	if cfg.Content.ScriptsDir != "" {
		scripts := scripting.NewManager(observability.Component(logger, "scripting"), cfg.Content.ScriptInstructionLimit)
		if err := scripts.Load(cfg.Content.ScriptsDir); err != nil {
			logger.Fatal("loading ability scripts", zap.Error(err))
		}
		defer scripts.Close()
		sim.Activator().Register("scripted", ability.NewScriptedFieldFactory(scripts))
	}

	lifecycle := server.NewLifecycle(logger)

	// Services stop in reverse order: the simulation saves before the pool closes.
	lifecycle.Add("postgres", &server.FuncService{
		StartFn: func(ctx context.Context) error {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-ticker.C:
					if err := pool.Health(ctx, 5*time.Second); err != nil {
						logger.Warn("database health check failed", zap.Error(err))
						continue
					}
					logger.Debug("database healthy", pool.StatFields()...)
				}
			}
		},
		StopFn: func() {
			pool.Close()
		},
	})

	lifecycle.Add("simulation", &server.FuncService{
		StartFn: sim.Start,
		StopFn: func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := sim.Shutdown(stopCtx); err != nil {
				logger.Error("saving affinity on shutdown", zap.Error(err))
			}
		},
	})

	logger.Info("arcana server initialized",
		zap.Duration("startup", time.Since(start)),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
