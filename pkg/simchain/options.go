package simchain

import (
	"time"

	"github.com/satoshispalace/contest-harness/pkg/wallet"

	"go.uber.org/zap"
)

type settings struct {
	logger    *zap.Logger
	chainID   string
	prefix    string
	blockTime uint64
}

// Option configures the simulated chain.
type Option func(*settings)

// WithLogger sets a custom logger for the chain.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithChainID sets the chain id.
func WithChainID(id string) Option {
	return func(s *settings) { s.chainID = id }
}

// WithPrefix sets the bech32 prefix of contract addresses.
func WithPrefix(p string) Option {
	return func(s *settings) { s.prefix = p }
}

// WithBlockTime sets the initial block time in unix seconds.
func WithBlockTime(t uint64) Option {
	return func(s *settings) { s.blockTime = t }
}

func applyOptions(opts []Option) settings {
	s := settings{
		logger:    zap.NewNop(),
		chainID:   "secretdev-1",
		prefix:    wallet.DefaultPrefix,
		blockTime: uint64(time.Now().Unix()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}
