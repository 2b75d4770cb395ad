package deployments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the deployment store
func NewStore(db *bun.DB) Store {
	return &pgStore{db: db}
}

func (s *pgStore) Save(ctx context.Context, d *Deployment) error {
	if d == nil || d.Name == "" || d.ChainID == "" {
		return fmt.Errorf("deployment name and chain id are required")
	}
	dao := toDeploymentDao(d)

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (name, chain_id) DO UPDATE").
		Set("code_id = EXCLUDED.code_id").
		Set("code_hash = EXCLUDED.code_hash").
		Set("address = EXCLUDED.address").
		Set("label = EXCLUDED.label").
		Set("created_at = NOW()").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save deployment %s: %w", d.Name, err)
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, chainID, name string) (*Deployment, error) {
	dao := new(DeploymentDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("chain_id = ?", chainID).
		Where("name = ?", name).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDeploymentNotFound
		}
		return nil, fmt.Errorf("failed to get deployment %s: %w", name, err)
	}
	return toDeployment(dao), nil
}

func (s *pgStore) List(ctx context.Context, chainID string) ([]*Deployment, error) {
	var daos []DeploymentDao
	err := s.db.NewSelect().
		Model(&daos).
		Where("chain_id = ?", chainID).
		Order("name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list deployments: %w", err)
	}
	out := make([]*Deployment, len(daos))
	for i := range daos {
		out[i] = toDeployment(&daos[i])
	}
	return out, nil
}
