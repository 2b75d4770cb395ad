package scenario

import (
	"github.com/satoshispalace/contest-harness/pkg/chain"
	"github.com/satoshispalace/contest-harness/pkg/contract"
	"github.com/satoshispalace/contest-harness/pkg/deployments"

	"go.uber.org/zap"
)

type settings struct {
	logger   *zap.Logger
	resolver chain.Resolver
	store    deployments.Store
	labels   contract.LabelFunc
}

// Option configures a Runner.
type Option func(*settings)

// WithLogger sets the runner logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithResolver enables the resolve step. Only chains that can settle a contest
// outside of the oracle provide one.
func WithResolver(r chain.Resolver) Option {
	return func(s *settings) { s.resolver = r }
}

// WithDeployments sets where deployed contracts are recorded.
func WithDeployments(store deployments.Store) Option {
	return func(s *settings) {
		if store != nil {
			s.store = store
		}
	}
}

// WithLabels overrides the instantiate label generator.
func WithLabels(f contract.LabelFunc) Option {
	return func(s *settings) {
		if f != nil {
			s.labels = f
		}
	}
}

func applyOptions(opts []Option) settings {
	s := settings{
		logger: zap.NewNop(),
		store:  deployments.NewMemoryStore(),
		labels: contract.RandomLabel,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}
