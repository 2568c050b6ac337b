package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresSnapshotStore keeps one JSONB snapshot per player in player_states.
type PostgresSnapshotStore struct {
	pool *pgxpool.Pool
}

// NewPostgresSnapshotStore creates a PostgreSQL-backed snapshot store.
func NewPostgresSnapshotStore(pool *pgxpool.Pool) (*PostgresSnapshotStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("postgres pool is nil")
	}
	return &PostgresSnapshotStore{pool: pool}, nil
}

func (s *PostgresSnapshotStore) Load(ctx context.Context, playerID string) (Snapshot, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT snapshot FROM player_states WHERE player_id = $1`,
		playerID,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("select player state: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode player state: %w", err)
	}
	return snap, true, nil
}

func (s *PostgresSnapshotStore) Save(ctx context.Context, playerID string, snap Snapshot) error {
	if playerID == "" {
		return fmt.Errorf("player_id is required")
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode player state: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	if _, err := s.pool.Exec(ctx,
		`INSERT INTO player_states (player_id, snapshot, updated_at)
		 VALUES ($1, $2::jsonb, NOW())
		 ON CONFLICT (player_id)
		 DO UPDATE SET snapshot = EXCLUDED.snapshot, updated_at = NOW()`,
		playerID, string(data),
	); err != nil {
		return fmt.Errorf("upsert player state: %w", err)
	}
	return nil
}
