// Package deployments records the contracts a harness run deployed so later runs
// can attach to them instead of uploading again.
package deployments

import (
	"context"
	"errors"
	"time"
)

// ErrDeploymentNotFound is returned when no deployment is recorded under a name.
var ErrDeploymentNotFound = errors.New("deployment not found")

// Well-known deployment names used by the scenario.
const (
	NameToken   = "token"
	NameContest = "contest"
)

// Deployment is a contract instance recorded on a chain.
type Deployment struct {
	Name      string
	ChainID   string
	CodeID    string
	CodeHash  string
	Address   string
	Label     string
	CreatedAt time.Time
}

// Store defines the interface for deployment persistence.
// Save replaces any deployment already recorded under the same name and chain.
type Store interface {
	Save(ctx context.Context, d *Deployment) error
	Get(ctx context.Context, chainID, name string) (*Deployment, error)
	List(ctx context.Context, chainID string) ([]*Deployment, error)
}
