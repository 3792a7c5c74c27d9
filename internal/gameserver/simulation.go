// Package gameserver runs the authoritative simulation: player join and leave,
// affinity growth from spell casts, and the per-tick ability loop.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/arcana/internal/config"
	"github.com/cory-johannsen/arcana/internal/game/ability"
	"github.com/cory-johannsen/arcana/internal/game/affinity"
	"github.com/cory-johannsen/arcana/internal/game/cooldown"
	"github.com/cory-johannsen/arcana/internal/game/npc"
	"github.com/cory-johannsen/arcana/internal/game/perk"
	"github.com/cory-johannsen/arcana/internal/game/school"
	"github.com/cory-johannsen/arcana/internal/game/session"
)

// saveConcurrency bounds the number of concurrent Store.Save calls in SaveAll.
const saveConcurrency = 8

// ErrAlreadyRunning is returned by Start when the simulation is already running.
var ErrAlreadyRunning = errors.New("simulation already running")

// Options configures a Simulation.
type Options struct {
	Simulation config.SimulationConfig
	Affinity   affinity.Params
	// Graph defaults to school.Default() when nil.
	Graph   *school.Graph
	Catalog *perk.Catalog
	Store   affinity.Store
	// NPCs defaults to an empty manager when nil.
	NPCs   *npc.Manager
	Logger *zap.Logger
}

// Simulation owns every per-player subsystem and drives them from one tick goroutine.
//
// Step, Activate, Deactivate and Leave are serialized. ReportSpend may be called
// from any goroutine: the ledger and the perk index order their own writes.
type Simulation struct {
	cfg       config.SimulationConfig
	ledger    *affinity.Ledger
	index     *perk.Index
	scheduler *ability.Scheduler
	activator *ability.Activator
	cooldowns *cooldown.Tracker
	sessions  *session.Manager
	npcs      *npc.Manager
	world     *World
	catalog   *perk.Catalog
	store     affinity.Store
	logger    *zap.Logger

	stepMu sync.Mutex
	tick   atomic.Int64
	saving atomic.Bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSimulation wires the ledger, perk index, scheduler and activator together.
//
// Precondition: opts.Catalog and opts.Store must be non-nil.
// Postcondition: the perk index is subscribed to ledger tier changes.
func NewSimulation(opts Options) (*Simulation, error) {
	if opts.Catalog == nil {
		return nil, errors.New("simulation requires a perk catalog")
	}
	if opts.Store == nil {
		return nil, errors.New("simulation requires an affinity store")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	graph := opts.Graph
	if graph == nil {
		graph = school.Default()
	}
	npcs := opts.NPCs
	if npcs == nil {
		npcs = npc.NewManager()
	}

	ledger, err := affinity.NewLedger(graph, opts.Affinity, logger.Named("ledger"))
	if err != nil {
		return nil, fmt.Errorf("creating ledger: %w", err)
	}
	index := perk.NewIndex(opts.Catalog, ledger, logger.Named("perks"))
	// The index drops players the ledger no longer tracks, so a tier change
	// racing with Leave cannot resurrect a departed player's entry.
	ledger.Subscribe(index)
	ledger.Subscribe(affinity.TierListenerFunc(func(player uuid.UUID, changes []affinity.TierChange) {
		for _, c := range changes {
			logger.Info("affinity tier changed",
				zap.Stringer("player", player),
				zap.Stringer("school", c.School),
				zap.Stringer("from", c.From),
				zap.Stringer("to", c.To),
			)
		}
	}))

	sessions := session.NewManager()
	renderer := session.NewFieldRenderer(sessions, logger.Named("render"))
	cooldowns := cooldown.NewTracker()
	scheduler := ability.NewScheduler(renderer, cooldowns, logger.Named("abilities"))
	renderer.Attach(scheduler)
	world := NewWorld(npcs, sessions)

	return &Simulation{
		cfg:       opts.Simulation,
		ledger:    ledger,
		index:     index,
		scheduler: scheduler,
		activator: ability.NewActivator(index, scheduler, cooldowns, world, logger.Named("abilities")),
		cooldowns: cooldowns,
		sessions:  sessions,
		npcs:      npcs,
		world:     world,
		catalog:   opts.Catalog,
		store:     opts.Store,
		logger:    logger,
	}, nil
}

// Ledger returns the affinity ledger.
func (s *Simulation) Ledger() *affinity.Ledger { return s.ledger }

// Index returns the perk index.
func (s *Simulation) Index() *perk.Index { return s.index }

// Scheduler returns the ability scheduler.
func (s *Simulation) Scheduler() *ability.Scheduler { return s.scheduler }

// Activator returns the activator, e.g. to register additional ability factories.
func (s *Simulation) Activator() *ability.Activator { return s.activator }

// Sessions returns the connected player registry.
func (s *Simulation) Sessions() *session.Manager { return s.sessions }

// NPCs returns the live NPC registry.
func (s *Simulation) NPCs() *npc.Manager { return s.npcs }

// World returns the spatial view ability fields act on.
func (s *Simulation) World() *World { return s.world }

// Cooldowns returns the post-use cooldown tracker.
func (s *Simulation) Cooldowns() *cooldown.Tracker { return s.cooldowns }

// Ticks returns the number of completed simulation steps.
func (s *Simulation) Ticks() int64 { return s.tick.Load() }

// Join connects player: loads its stored vector (zero when absent), starts
// tracking it and resolves its perks.
//
// Postcondition: on success the player is connected, tracked and indexed.
func (s *Simulation) Join(ctx context.Context, player uuid.UUID, name string, pos ability.Vec3) (*session.PlayerSession, error) {
	if _, ok := s.sessions.GetPlayer(player); ok {
		return nil, fmt.Errorf("joining %s: %w", player, session.ErrAlreadyConnected)
	}
	v, found, err := s.store.Load(ctx, player)
	if err != nil {
		return nil, fmt.Errorf("loading affinity for %s: %w", player, err)
	}
	sess, err := s.sessions.AddPlayer(player, name, pos, s.cfg.MaxMana)
	if err != nil {
		return nil, fmt.Errorf("joining %s: %w", player, err)
	}
	s.ledger.Track(player, v)
	s.index.Rebuild(player)

	s.logger.Info("player joined",
		zap.Stringer("player", player),
		zap.String("name", name),
		zap.Bool("stored_affinity", found),
		zap.Int("perks", len(s.index.Active(player))),
	)
	return sess, nil
}

// Leave disconnects player. Its active ability is purged without release, its
// cooldowns are cleared and its final vector is saved.
//
// Postcondition: the player is no longer connected, tracked or indexed, even
// when the save fails.
func (s *Simulation) Leave(ctx context.Context, player uuid.UUID) error {
	s.stepMu.Lock()
	if _, err := s.sessions.RemovePlayer(player); err != nil {
		s.stepMu.Unlock()
		return fmt.Errorf("leaving: %w", err)
	}
	s.scheduler.Purge(player)
	s.cooldowns.Clear(player)
	v, tracked := s.ledger.Forget(player)
	s.index.Forget(player)
	s.stepMu.Unlock()

	s.logger.Info("player left", zap.Stringer("player", player))
	if !tracked {
		return nil
	}
	if err := s.store.Save(ctx, player, v); err != nil {
		s.logger.Error("saving affinity on leave failed", zap.Stringer("player", player), zap.Error(err))
		return fmt.Errorf("saving affinity for %s: %w", player, err)
	}
	return nil
}

// ReportSpend records that player resolved a spell of the given schools costing mana.
func (s *Simulation) ReportSpend(player uuid.UUID, schools []school.School, mana float64) {
	s.ledger.ApplySpend(player, schools, mana)
}

// Activate toggles the ability granted by perk kind for player.
//
// Postcondition: Returns session.ErrNotFound for an unknown player, otherwise
// the Activator's result.
func (s *Simulation) Activate(player uuid.UUID, kind perk.Kind) (bool, error) {
	sess, ok := s.sessions.GetPlayer(player)
	if !ok {
		return false, fmt.Errorf("activating %s: %w", kind, session.ErrNotFound)
	}
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	return s.activator.Activate(sess, kind)
}

// Deactivate stops player's active ability, running its release.
func (s *Simulation) Deactivate(player uuid.UUID) bool {
	sess, ok := s.sessions.GetPlayer(player)
	if !ok {
		return false
	}
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	return s.scheduler.Stop(sess)
}

// Step advances the simulation by one tick: cooldowns and effects expire, dead
// NPCs are removed, then each player in ID order regenerates mana and ticks
// its active ability.
func (s *Simulation) Step() {
	s.stepMu.Lock()
	defer s.stepMu.Unlock()
	n := s.tick.Add(1)

	for _, e := range s.cooldowns.Tick() {
		s.logger.Debug("cooldown expired",
			zap.Stringer("player", e.Player),
			zap.String("kind", e.Key),
		)
	}
	for _, id := range s.npcs.Tick() {
		s.logger.Debug("npc died", zap.String("npc", id), zap.Int64("tick", n))
	}
	for _, sess := range s.sessions.AllPlayers() {
		sess.Effects.Tick()
		sess.RegenMana(s.cfg.ManaRegenPerTick)
		s.scheduler.Tick(sess)
	}
}

// Start runs the tick loop until ctx is cancelled or Stop is called.
// It implements server.Service.
func (s *Simulation) Start(ctx context.Context) error {
	s.runMu.Lock()
	if s.cancel != nil {
		s.runMu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.runMu.Unlock()
	defer func() {
		cancel()
		s.runMu.Lock()
		if s.done == done {
			s.cancel, s.done = nil, nil
		}
		s.runMu.Unlock()
		close(done)
	}()

	tm := NewTickManager(s.cfg.TickInterval)
	tm.RegisterTick("simulation", s.Step)
	if every := s.autosaveEvery(); every > 0 {
		tm.RegisterTick("autosave", func() {
			if s.tick.Load()%every == 0 {
				s.autosave(ctx)
			}
		})
	}

	s.logger.Info("simulation started",
		zap.Duration("tick_interval", tm.Interval()),
		zap.Int("catalog_perks", s.catalog.TotalCount()),
	)
	err := tm.Run(ctx)
	s.logger.Info("simulation stopped", zap.Int64("ticks", s.tick.Load()))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop halts the tick loop and waits for the current tick to finish.
func (s *Simulation) Stop() {
	s.runMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.runMu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Shutdown stops the tick loop, drops every active ability without release
// and saves every tracked player.
func (s *Simulation) Shutdown(ctx context.Context) error {
	s.Stop()
	s.scheduler.Close()
	return s.SaveAll(ctx)
}

// SaveAll saves every tracked player's vector. A BatchStore receives them in
// one call; any other Store is saved per player concurrently.
//
// Postcondition: Returns the first save error; every save is attempted.
func (s *Simulation) SaveAll(ctx context.Context) error {
	players := s.ledger.Players()
	if bs, ok := s.store.(affinity.BatchStore); ok {
		vectors := make(map[uuid.UUID]affinity.Vector, len(players))
		for _, p := range players {
			vectors[p] = s.ledger.Snapshot(p)
		}
		err := bs.SaveMany(ctx, vectors)
		if err != nil {
			s.logger.Error("saving affinity batch failed", zap.Int("players", len(players)), zap.Error(err))
			err = fmt.Errorf("saving affinity for %d players: %w", len(players), err)
		}
		s.logger.Info("affinity saved", zap.Int("players", len(players)), zap.Bool("ok", err == nil), zap.Bool("batch", true))
		return err
	}

	var g errgroup.Group
	g.SetLimit(saveConcurrency)
	for _, p := range players {
		v := s.ledger.Snapshot(p)
		g.Go(func() error {
			if err := s.store.Save(ctx, p, v); err != nil {
				s.logger.Error("saving affinity failed", zap.Stringer("player", p), zap.Error(err))
				return fmt.Errorf("saving affinity for %s: %w", p, err)
			}
			return nil
		})
	}
	err := g.Wait()
	s.logger.Info("affinity saved", zap.Int("players", len(players)), zap.Bool("ok", err == nil))
	return err
}

func (s *Simulation) autosaveEvery() int64 {
	if s.cfg.AutosaveInterval <= 0 || s.cfg.TickInterval <= 0 {
		return 0
	}
	every := int64(s.cfg.AutosaveInterval / s.cfg.TickInterval)
	if every < 1 {
		every = 1
	}
	return every
}

// autosave runs SaveAll in the background unless a save is already running.
func (s *Simulation) autosave(ctx context.Context) {
	if !s.saving.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer s.saving.Store(false)
		_ = s.SaveAll(ctx)
	}()
}
