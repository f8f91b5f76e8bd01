// Package store is the Postgres repository for the scheduling engine's
// persisted entities: social accounts, competitor accounts and social posts.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log"

	"github.com/pressroomhq/social-scheduler/internal/models"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle for collaborators that run their own
// queries (the BDD suite and the migration tool).
func (s *Store) DB() *sql.DB {
	return s.db
}

// GetAccount loads one social account by id.
func (s *Store) GetAccount(ctx context.Context, id string) (*models.SocialAccount, error) {
	var a models.SocialAccount
	err := s.db.QueryRowContext(ctx, `
		SELECT id, platform, name, publish_target, access_token_enc, created_at, updated_at
		  FROM public.social_accounts
		 WHERE id = $1
	`, id).Scan(&a.ID, &a.Platform, &a.Name, &a.PublishTarget, &a.AccessTokenEnc, &a.CreatedAt, &a.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAccounts returns all social accounts ordered by name.
func (s *Store) ListAccounts(ctx context.Context) ([]models.SocialAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, platform, name, publish_target, access_token_enc, created_at, updated_at
		  FROM public.social_accounts
		 ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.SocialAccount{}
	for rows.Next() {
		var a models.SocialAccount
		if err := rows.Scan(&a.ID, &a.Platform, &a.Name, &a.PublishTarget, &a.AccessTokenEnc, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ActiveCompetitorGrids returns the stored grids of active competitor
// accounts for a platform. Rows whose grid is missing or fails to decode are
// skipped, never surfaced as errors: a malformed grid is absent data.
func (s *Store) ActiveCompetitorGrids(ctx context.Context, platform models.Platform) ([][][]float64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, engagement_grid
		  FROM public.competitor_accounts
		 WHERE platform = $1
		   AND active = TRUE
		   AND engagement_grid IS NOT NULL
	`, platform)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	grids := [][][]float64{}
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var g [][]float64
		if err := json.Unmarshal(raw, &g); err != nil {
			log.Printf("[Store] skipping malformed competitor grid id=%s err=%v", id, err)
			continue
		}
		grids = append(grids, g)
	}
	return grids, rows.Err()
}
