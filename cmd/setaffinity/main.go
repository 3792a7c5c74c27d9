// Package main provides a CLI tool for inspecting and editing a stored
// player's school affinity while the player is offline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arcana/internal/config"
	"github.com/cory-johannsen/arcana/internal/game/affinity"
	"github.com/cory-johannsen/arcana/internal/game/school"
	"github.com/cory-johannsen/arcana/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	playerArg := flag.String("player", "", "target player UUID (required)")
	schoolArg := flag.String("school", "", "school to set, e.g. fire (omit to only show)")
	value := flag.Float64("value", -1, "new affinity in [0,1] for -school")
	reset := flag.Bool("reset", false, "zero every school for the player")
	flag.Parse()

	if *playerArg == "" {
		flag.Usage()
		os.Exit(1)
	}
	player, err := uuid.Parse(*playerArg)
	if err != nil {
		log.Fatalf("invalid player id %q: %v", *playerArg, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := postgres.NewPool(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("connecting to database: %v", err)
	}
	defer pool.Close()

	repo := pool.Affinity(zap.NewNop())
	stored, _, err := repo.Load(ctx, player)
	if err != nil {
		log.Fatalf("loading affinity for %s: %v", player, err)
	}

	// Edits go through a ledger so they get the same clamp and normalize as live play.
	ledger, err := affinity.NewLedger(school.Default(), cfg.Affinity.Params(), zap.NewNop())
	if err != nil {
		log.Fatalf("creating ledger: %v", err)
	}
	ledger.Track(player, stored)

	changed := false
	switch {
	case *reset:
		if err := ledger.Reset(player); err != nil {
			log.Fatalf("resetting %s: %v", player, err)
		}
		changed = true
	case *schoolArg != "":
		s, err := school.Parse(*schoolArg)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if *value < 0 || *value > 1 {
			log.Fatalf("invalid value %v: must be in [0,1]", *value)
		}
		ledger.Set(player, s, *value)
		changed = true
	}

	if changed {
		if err := repo.Save(ctx, player, ledger.Snapshot(player)); err != nil {
			log.Fatalf("saving affinity: %v", err)
		}
	}

	tiers := ledger.Tiers(player)
	for _, s := range school.All() {
		fmt.Fprintf(os.Stdout, "%-7s %6.2f%%  %s\n", s, ledger.Affinity(player, s)*100, tiers[s])
	}
	fmt.Fprintf(os.Stdout, "player %s changed=%v [%s]\n", player, changed, time.Since(start))
}
