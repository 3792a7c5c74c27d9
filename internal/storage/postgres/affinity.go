package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/cory-johannsen/arcana/internal/game/affinity"
	"github.com/cory-johannsen/arcana/internal/game/school"
)

// ErrAffinityNotFound is returned by Get when a player has no stored vector.
var ErrAffinityNotFound = errors.New("affinity not found")

// AffinityRepository persists affinity vectors, one row per player and school.
// It implements affinity.Store.
type AffinityRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewAffinityRepository creates an AffinityRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewAffinityRepository(db *pgxpool.Pool, logger *zap.Logger) *AffinityRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AffinityRepository{db: db, logger: logger}
}

// Get returns the stored vector for player.
//
// Postcondition: Returns ErrAffinityNotFound if the player has no rows.
func (r *AffinityRepository) Get(ctx context.Context, player uuid.UUID) (affinity.Vector, error) {
	rows, err := r.db.Query(ctx,
		`SELECT school, value FROM player_affinity WHERE player_id = $1`,
		player,
	)
	if err != nil {
		return affinity.Vector{}, fmt.Errorf("querying affinity for %s: %w", player, err)
	}
	defer rows.Close()

	var v affinity.Vector
	found := false
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return affinity.Vector{}, fmt.Errorf("scanning affinity row: %w", err)
		}
		s, err := school.Parse(name)
		if err != nil {
			r.logger.Warn("ignoring stored affinity for unknown school",
				zap.Stringer("player", player),
				zap.String("school", name),
			)
			continue
		}
		v[s] = value
		found = true
	}
	if err := rows.Err(); err != nil {
		return affinity.Vector{}, fmt.Errorf("iterating affinity rows: %w", err)
	}
	if !found {
		return affinity.Vector{}, ErrAffinityNotFound
	}
	return v.Normalized(), nil
}

// Load implements affinity.Store.
func (r *AffinityRepository) Load(ctx context.Context, player uuid.UUID) (affinity.Vector, bool, error) {
	v, err := r.Get(ctx, player)
	if errors.Is(err, ErrAffinityNotFound) {
		return affinity.Vector{}, false, nil
	}
	if err != nil {
		return affinity.Vector{}, false, err
	}
	return v, true, nil
}

// Save implements affinity.Store by upserting every school in one transaction.
//
// Postcondition: either all schools of v are stored or none are.
func (r *AffinityRepository) Save(ctx context.Context, player uuid.UUID, v affinity.Vector) error {
	return inTx(ctx, r.db, r.logger.With(zap.Stringer("player", player)), func(tx pgx.Tx) error {
		return r.SaveTx(ctx, tx, player, v)
	})
}

// SaveMany stores several players' vectors in a single transaction.
//
// Postcondition: either every vector is stored or none are.
func (r *AffinityRepository) SaveMany(ctx context.Context, vectors map[uuid.UUID]affinity.Vector) error {
	if len(vectors) == 0 {
		return nil
	}
	return inTx(ctx, r.db, r.logger, func(tx pgx.Tx) error {
		for player, v := range vectors {
			if err := r.SaveTx(ctx, tx, player, v); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveTx upserts v within an existing transaction.
func (r *AffinityRepository) SaveTx(ctx context.Context, tx pgx.Tx, player uuid.UUID, v affinity.Vector) error {
	batch := &pgx.Batch{}
	for _, s := range school.All() {
		batch.Queue(
			`INSERT INTO player_affinity (player_id, school, value, updated_at)
			 VALUES ($1, $2, $3, NOW())
			 ON CONFLICT (player_id, school)
			 DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			player, s.String(), v[s],
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upserting affinity for %s: %w", player, err)
	}
	return nil
}

// Delete removes every stored affinity row for player.
func (r *AffinityRepository) Delete(ctx context.Context, player uuid.UUID) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM player_affinity WHERE player_id = $1`, player); err != nil {
		return fmt.Errorf("deleting affinity for %s: %w", player, err)
	}
	return nil
}
