package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/steamdash/internal/config"
	"github.com/steamdash/internal/domain"
)

// Store is the PostgreSQL-backed document cache tier. It holds the
// potentially large per-game payloads the key/value tier shouldn't:
// resolved game records and full achievement lists, both as JSONB
// documents upserted by primary key.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a new PostgreSQL document store
func NewStore(cfg *config.PostgresConfig, logger *slog.Logger) (*Store, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Store{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (s *Store) Close() {
	s.pool.Close()
}

// Pool returns the underlying connection pool
func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

// RunMigrations executes database migrations
func (s *Store) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS games (
			app_id BIGINT PRIMARY KEY,
			data JSONB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS achievements (
			steam_id VARCHAR(32) NOT NULL,
			app_id BIGINT NOT NULL,
			data JSONB NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (steam_id, app_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_achievements_steam ON achievements(steam_id)`,
	}

	for _, migration := range migrations {
		_, err := s.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	s.logger.Info("database migrations completed")
	return nil
}

// PutGame upserts a resolved game record into the games collection
func (s *Store) PutGame(ctx context.Context, game domain.Game) error {
	data, err := json.Marshal(game)
	if err != nil {
		return fmt.Errorf("marshaling game: %w", err)
	}

	query := `
		INSERT INTO games (app_id, data, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (app_id)
		DO UPDATE SET data = $2, updated_at = $3
	`
	if _, err := s.pool.Exec(ctx, query, game.AppID, data, time.Now()); err != nil {
		return fmt.Errorf("upserting game: %w", err)
	}
	return nil
}

// GetGame retrieves a game record by app id
func (s *Store) GetGame(ctx context.Context, appID int64) (*domain.Game, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM games WHERE app_id = $1`, appID).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting game: %w", err)
	}

	var game domain.Game
	if err := json.Unmarshal(data, &game); err != nil {
		return nil, fmt.Errorf("unmarshaling game: %w", err)
	}
	return &game, nil
}

// ListGames retrieves all stored game records
func (s *Store) ListGames(ctx context.Context) ([]domain.Game, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM games ORDER BY app_id`)
	if err != nil {
		return nil, fmt.Errorf("listing games: %w", err)
	}
	defer rows.Close()

	var games []domain.Game
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning game: %w", err)
		}
		var game domain.Game
		if err := json.Unmarshal(data, &game); err != nil {
			return nil, fmt.Errorf("unmarshaling game: %w", err)
		}
		games = append(games, game)
	}
	return games, nil
}

// PutAchievements overwrites the merged achievement list for one
// player and game
func (s *Store) PutAchievements(ctx context.Context, steamID string, doc domain.GameAchievements) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling achievements: %w", err)
	}

	query := `
		INSERT INTO achievements (steam_id, app_id, data, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (steam_id, app_id)
		DO UPDATE SET data = $3, updated_at = $4
	`
	if _, err := s.pool.Exec(ctx, query, steamID, doc.AppID, data, time.Now()); err != nil {
		return fmt.Errorf("upserting achievements: %w", err)
	}
	return nil
}

// GetAchievements retrieves the stored achievement list for one
// player and game
func (s *Store) GetAchievements(ctx context.Context, steamID string, appID int64) (*domain.GameAchievements, error) {
	var data []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM achievements WHERE steam_id = $1 AND app_id = $2`,
		steamID, appID,
	).Scan(&data)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("getting achievements: %w", err)
	}

	var doc domain.GameAchievements
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("unmarshaling achievements: %w", err)
	}
	return &doc, nil
}

// ListAchievements retrieves every stored achievement document for a
// player
func (s *Store) ListAchievements(ctx context.Context, steamID string) ([]domain.GameAchievements, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT data FROM achievements WHERE steam_id = $1 ORDER BY app_id`, steamID)
	if err != nil {
		return nil, fmt.Errorf("listing achievements: %w", err)
	}
	defer rows.Close()

	var docs []domain.GameAchievements
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning achievements: %w", err)
		}
		var doc domain.GameAchievements
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("unmarshaling achievements: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// ClearAll wipes both collections. Backs the explicit "clear all
// local data" operation; there is no partial-clear mode.
func (s *Store) ClearAll(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE games, achievements`); err != nil {
		return fmt.Errorf("clearing document store: %w", err)
	}
	return nil
}
