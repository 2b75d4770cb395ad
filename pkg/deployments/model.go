package deployments

import (
	"time"

	"github.com/uptrace/bun"
)

// DeploymentDao is a data access object that maps directly to the 'deployments' table in PostgreSQL.
type DeploymentDao struct {
	bun.BaseModel `bun:"table:deployments,alias:d"`
	Name          string    `bun:"name,pk,type:varchar(64)"`
	ChainID       string    `bun:"chain_id,pk,type:varchar(64)"`
	CodeID        string    `bun:"code_id,notnull,type:varchar(32)"`
	CodeHash      string    `bun:"code_hash,notnull,type:varchar(64)"`
	Address       string    `bun:"address,notnull,type:varchar(128)"`
	Label         *string   `bun:"label,type:varchar(128)"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

func toDeploymentDao(d *Deployment) *DeploymentDao {
	dao := &DeploymentDao{
		Name:      d.Name,
		ChainID:   d.ChainID,
		CodeID:    d.CodeID,
		CodeHash:  d.CodeHash,
		Address:   d.Address,
		CreatedAt: d.CreatedAt,
	}
	if d.Label != "" {
		dao.Label = &d.Label
	}
	return dao
}

func toDeployment(dao *DeploymentDao) *Deployment {
	d := &Deployment{
		Name:      dao.Name,
		ChainID:   dao.ChainID,
		CodeID:    dao.CodeID,
		CodeHash:  dao.CodeHash,
		Address:   dao.Address,
		CreatedAt: dao.CreatedAt,
	}
	if dao.Label != nil {
		d.Label = *dao.Label
	}
	return d
}
