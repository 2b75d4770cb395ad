package contract

import (
	"math/rand/v2"
	"strconv"

	"go.uber.org/zap"
)

// LabelFunc produces the instantiate label of a new contract.
type LabelFunc func() string

type settings struct {
	logger *zap.Logger
	label  LabelFunc
}

// Option configures a contract handle.
type Option func(*settings)

// WithLogger sets a custom logger for the handle.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithLabel overrides the random instantiate label.
func WithLabel(f LabelFunc) Option {
	return func(s *settings) { s.label = f }
}

func applyOptions(opts []Option) settings {
	s := settings{logger: zap.NewNop(), label: RandomLabel}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// RandomLabel returns SP_Contract_<n> with n in [1, 10000].
func RandomLabel() string {
	return "SP_Contract_" + strconv.Itoa(rand.IntN(10000)+1)
}
