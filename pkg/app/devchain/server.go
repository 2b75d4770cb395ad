// Package devchain implements app.Runner for the simulated chain gateway.
package devchain

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/satoshispalace/contest-harness/pkg/app/httpserver"
	"github.com/satoshispalace/contest-harness/pkg/config"
	"github.com/satoshispalace/contest-harness/pkg/contract"
	"github.com/satoshispalace/contest-harness/pkg/gateway"
	"github.com/satoshispalace/contest-harness/pkg/simchain"

	"go.uber.org/zap"
)

// Server holds configuration for the devchain process.
type Server struct {
	cfg *config.DevchainConfig
}

// NewServer initializes a new devchain Server.
func NewServer(cfg *config.DevchainConfig) *Server {
	return &Server{cfg: cfg}
}

// Run starts the simulated chain behind the JSON-RPC gateway.
// It blocks until an OS shutdown signal is received or a fatal server error occurs.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg := s.cfg

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting devchain", zap.String("chain_id", cfg.ChainID))

	gw, err := NewGateway(cfg, logger)
	if err != nil {
		return err
	}

	srv := httpserver.New(cfg.Server.Address(), gw.Router())
	return httpserver.ServeAndWait(ctx, logger, srv, cfg.Shutdown.Timeout)
}

// NewGateway builds the simulated chain described by cfg with its programs bound,
// and the gateway that serves it.
func NewGateway(cfg *config.DevchainConfig, logger *zap.Logger) (*gateway.Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	chainOpts := []simchain.Option{
		simchain.WithLogger(logger),
		simchain.WithChainID(cfg.ChainID),
		simchain.WithPrefix(cfg.Bech32Prefix),
	}
	if cfg.StartTime != 0 {
		chainOpts = append(chainOpts, simchain.WithBlockTime(cfg.StartTime))
	}
	sim := simchain.New(chainOpts...)

	for _, p := range cfg.Programs {
		code, err := contract.ReadCode(p.CodePath)
		if err != nil {
			return nil, fmt.Errorf("read %s code: %w", p.Program, err)
		}
		hash, err := sim.BindByName(code, p.Program)
		if err != nil {
			return nil, fmt.Errorf("bind %s code: %w", p.Program, err)
		}
		logger.Info("Program bound",
			zap.String("program", p.Program),
			zap.String("code_path", p.CodePath),
			zap.String("code_hash", hash))
	}

	opts := []gateway.ServerOption{
		gateway.WithLogger(logger),
		gateway.WithPrefix(cfg.Bech32Prefix),
	}
	if cfg.JWTSecret != "" {
		opts = append(opts, gateway.WithJWTSecret(cfg.JWTSecret))
		logger.Info("Bearer authentication enabled")
	}
	if cfg.Monitoring.Enabled {
		opts = append(opts, gateway.WithMetrics())
	}
	return gateway.NewServer(sim, opts...), nil
}
