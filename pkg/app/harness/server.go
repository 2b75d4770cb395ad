// Package harness implements app.Runner for the contest scenario harness.
package harness

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/satoshispalace/contest-harness/pkg/app/httpserver"
	"github.com/satoshispalace/contest-harness/pkg/chain"
	"github.com/satoshispalace/contest-harness/pkg/config"
	"github.com/satoshispalace/contest-harness/pkg/contract"
	"github.com/satoshispalace/contest-harness/pkg/deployments"
	"github.com/satoshispalace/contest-harness/pkg/gateway"
	"github.com/satoshispalace/contest-harness/pkg/pgutil"
	"github.com/satoshispalace/contest-harness/pkg/scenario"
	"github.com/satoshispalace/contest-harness/pkg/simchain"
	"github.com/satoshispalace/contest-harness/pkg/wallet"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	defaultMetricsShutdownTimeout = 5 * time.Second
	// simulated clock starts an hour before the contest closes so bets are accepted
	simulatedLeadTime = 3600
)

// Server holds configuration for a scenario run.
type Server struct {
	cfg *config.HarnessConfig
}

// NewServer initializes a new harness Server.
func NewServer(cfg *config.HarnessConfig) *Server {
	return &Server{cfg: cfg}
}

// Run executes the scenario once. It returns when the scenario finishes, fails,
// or an OS shutdown signal is received.
func (s *Server) Run() error {
	if s.cfg == nil {
		return fmt.Errorf("nil config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := config.NewLogger(s.cfg.Logging)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	_, err = s.run(ctx, logger)
	return err
}

func (s *Server) run(ctx context.Context, logger *zap.Logger) (*scenario.Report, error) {
	cfg := s.cfg
	logger.Info("Starting contest harness",
		zap.String("chain_id", cfg.Chain.ChainID),
		zap.Bool("simulate", cfg.Chain.Simulate))

	w, err := wallet.FromMnemonic(cfg.Chain.Mnemonic,
		wallet.WithPrefix(cfg.Chain.Bech32Prefix),
		wallet.WithCoinType(cfg.Chain.CoinType))
	if err != nil {
		return nil, fmt.Errorf("derive wallet: %w", err)
	}
	logger.Info("Wallet ready", zap.String("address", w.Address()))

	client, resolver, err := s.connect(w, logger)
	if err != nil {
		return nil, err
	}

	store, cleanup, err := s.openDeployments(ctx, logger)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if cfg.Monitoring.Enabled {
		stopMetrics := s.serveMetrics(ctx, logger)
		defer stopMetrics()
	}

	opts := []scenario.Option{
		scenario.WithLogger(logger),
		scenario.WithDeployments(store),
	}
	if resolver != nil {
		opts = append(opts, scenario.WithResolver(resolver))
	}
	runner, err := scenario.NewRunner(client, w.Address(), cfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("create scenario runner: %w", err)
	}

	report, err := runner.Run(ctx)
	if err != nil {
		return report, fmt.Errorf("run scenario: %w", err)
	}

	logger.Info("Harness finished",
		zap.String("token", report.TokenAddress),
		zap.String("contest", report.ContestAddress),
		zap.Int("transactions", len(report.TxHashes)),
		zap.Bool("resolved", report.Resolved))
	return report, nil
}

// connect returns the client transacting as w, and the resolver when the chain offers one.
func (s *Server) connect(w *wallet.Wallet, logger *zap.Logger) (chain.Client, chain.Resolver, error) {
	cfg := s.cfg
	if cfg.Chain.Simulate {
		sim, err := newSimulatedChain(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return sim.As(w.Address()), sim, nil
	}

	opts := []gateway.ClientOption{gateway.WithClientLogger(logger)}
	if cfg.Chain.JWTSecret != "" {
		opts = append(opts, gateway.WithBearerSecret(cfg.Chain.JWTSecret))
	}
	gw, err := gateway.NewClient(cfg.Chain.RPCURL, w, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("create gateway client: %w", err)
	}
	logger.Info("Using chain gateway", zap.String("rpc_url", cfg.Chain.RPCURL))
	if cfg.Chain.DevResolve {
		return gw, gw, nil
	}
	return gw, nil, nil
}

func newSimulatedChain(cfg *config.HarnessConfig, logger *zap.Logger) (*simchain.Chain, error) {
	start := uint64(0)
	if closeAt := cfg.Scenario.Contest.TimeOfClose; closeAt > simulatedLeadTime {
		start = closeAt - simulatedLeadTime
	}
	sim := simchain.New(
		simchain.WithLogger(logger),
		simchain.WithChainID(cfg.Chain.ChainID),
		simchain.WithPrefix(cfg.Chain.Bech32Prefix),
		simchain.WithBlockTime(start),
	)

	bindings := []struct {
		path    string
		program string
	}{
		{cfg.Contracts.Token.CodePath, simchain.ProgramSnip20},
		{cfg.Contracts.Contest.CodePath, simchain.ProgramContest},
	}
	for _, b := range bindings {
		if b.path == "" {
			continue
		}
		if err := bindCode(sim, b.path, b.program); err != nil {
			return nil, err
		}
	}
	return sim, nil
}

func bindCode(sim *simchain.Chain, path, program string) error {
	code, err := contract.ReadCode(path)
	if err != nil {
		return fmt.Errorf("read %s code: %w", program, err)
	}
	if _, err := sim.BindByName(code, program); err != nil {
		return fmt.Errorf("bind %s code: %w", program, err)
	}
	return nil
}

func (s *Server) openDeployments(ctx context.Context, logger *zap.Logger) (deployments.Store, func(), error) {
	if !s.cfg.Database.Enabled {
		return deployments.NewMemoryStore(), func() {}, nil
	}
	db, err := pgutil.ConnectDB(ctx, &s.cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect deployments db: %w", err)
	}
	logger.Info("Database connection established",
		zap.String("host", s.cfg.Database.Host),
		zap.String("database", s.cfg.Database.Database))
	return deployments.NewStore(db), func() { _ = db.Close() }, nil
}

// serveMetrics exposes /metrics until the returned stop function is called.
func (s *Server) serveMetrics(ctx context.Context, logger *zap.Logger) func() {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.Handler())
	srv := httpserver.New(s.cfg.Monitoring.Address(), r)

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		err := httpserver.ServeAndWait(ctx, logger, srv, defaultMetricsShutdownTimeout)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics server stopped", zap.Error(err))
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
