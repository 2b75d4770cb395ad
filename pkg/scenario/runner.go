// Package scenario drives the token and contest contracts through one end-to-end run:
// deploy, mint, register, create a contest, bet, inspect, resolve and claim.
package scenario

import (
	"context"
	"errors"
	"fmt"

	"github.com/satoshispalace/contest-harness/internal/metrics"
	"github.com/satoshispalace/contest-harness/pkg/chain"
	"github.com/satoshispalace/contest-harness/pkg/config"
	"github.com/satoshispalace/contest-harness/pkg/contest"
	"github.com/satoshispalace/contest-harness/pkg/contract"
	"github.com/satoshispalace/contest-harness/pkg/deployments"
	"github.com/satoshispalace/contest-harness/pkg/oracle"
	"github.com/satoshispalace/contest-harness/pkg/snip20"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Runner executes the scenario with a single wallet. It is not safe for concurrent use.
type Runner struct {
	client    chain.Client
	wallet    string
	chainID   string
	contracts config.ContractsConfig
	scenario  config.ScenarioConfig

	resolver chain.Resolver
	store    deployments.Store
	labels   contract.LabelFunc
	logger   *zap.Logger

	token      *snip20.Client
	contest    *contest.Client
	viewingKey string
	report     *Report
}

// NewRunner creates a runner that transacts through client as wallet.
func NewRunner(client chain.Client, wallet string, cfg *config.HarnessConfig, opts ...Option) (*Runner, error) {
	if client == nil {
		return nil, errors.New("chain client is required")
	}
	if wallet == "" {
		return nil, errors.New("wallet address is required")
	}
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	s := applyOptions(opts)
	return &Runner{
		client:    client,
		wallet:    wallet,
		chainID:   cfg.Chain.ChainID,
		contracts: cfg.Contracts,
		scenario:  cfg.Scenario,
		resolver:  s.resolver,
		store:     s.store,
		labels:    s.labels,
		logger:    s.logger,
	}, nil
}

// Run executes every step in order. The first failing step aborts the run and its
// error is returned wrapped with the step name, together with the partial report.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	r.report = &Report{Stage: contest.StageUnregistered, TxHashes: make(map[string]string)}

	if err := r.checkOracle(ctx); err != nil {
		return r.report, fmt.Errorf("oracle: %w", err)
	}
	info := r.contestInfo()
	signature, oraclePub, err := r.oracle(info)
	if err != nil {
		return r.report, fmt.Errorf("oracle: %w", err)
	}

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{StepToken, r.setupToken},
		{StepMint, r.mint},
		{StepContest, func(ctx context.Context) error { return r.setupContest(ctx, oraclePub) }},
		{StepRegister, r.register},
		{StepViewKey, r.setViewingKey},
		{StepCreate, func(ctx context.Context) error { return r.createContest(ctx, info, signature) }},
		{StepBet, r.bet},
		{StepInspect, r.inspect},
		{StepResolve, r.resolve},
		{StepClaim, r.claim},
	}

	for _, st := range steps {
		r.logger.Info("Running scenario step", zap.String("step", st.name))
		err := st.fn(ctx)
		metrics.ScenarioStepsTotal.WithLabelValues(st.name, metrics.Status(err)).Inc()
		if err != nil {
			r.logger.Error("Scenario step failed",
				zap.String("step", st.name),
				zap.String("stage", r.report.Stage.String()),
				zap.Error(err))
			return r.report, fmt.Errorf("%s: %w", st.name, err)
		}
	}

	r.logger.Info("Scenario completed",
		zap.String("stage", r.report.Stage.String()),
		zap.String("final_balance", r.report.FinalBalance()))
	return r.report, nil
}

func (r *Runner) contestInfo() contest.ContestInfo {
	return ContestInfo(r.scenario.Contest)
}

// ContestInfo converts configured contest terms to the form the oracle signs.
func ContestInfo(c config.ContestInfoConfig) contest.ContestInfo {
	options := make([]contest.ContestOutcome, len(c.Options))
	for i, o := range c.Options {
		options[i] = contest.ContestOutcome{ID: o.ID, Name: o.Name}
	}
	return contest.ContestInfo{
		ID:            c.ID,
		Options:       options,
		TimeOfClose:   c.TimeOfClose,
		TimeOfResolve: c.TimeOfResolve,
		EventDetails:  c.EventDetails,
	}
}

// checkOracle rejects runs that would sign with an ephemeral key against a contest
// instantiated elsewhere: that contest trusts a key this run does not hold.
func (r *Runner) checkOracle(ctx context.Context) error {
	if r.scenario.OracleKey != "" || r.scenario.SignatureHex != "" {
		return nil
	}
	if src := r.contracts.Contest.ContractSource; src.Attached() {
		return fmt.Errorf("%w: attached contest %s requires scenario.oracle_key or scenario.signature_hex",
			contract.ErrPrecondition, src.Address)
	}
	if !r.scenario.ReuseDeployments {
		return nil
	}
	d, err := r.store.Get(ctx, r.chainID, deployments.NameContest)
	switch {
	case errors.Is(err, deployments.ErrDeploymentNotFound):
		return nil
	case err != nil:
		return err
	}
	return fmt.Errorf("%w: recorded contest %s requires scenario.oracle_key or scenario.signature_hex",
		contract.ErrPrecondition, d.Address)
}

// oracle returns the creation signature and the public key the contest must trust.
// Without a configured key or signature an ephemeral key signs the contest.
func (r *Runner) oracle(info contest.ContestInfo) (string, string, error) {
	if r.scenario.SignatureHex != "" && r.scenario.OracleKey == "" {
		return r.scenario.SignatureHex, r.contracts.Contest.OraclePublicKey, nil
	}

	var (
		signer *oracle.Signer
		err    error
	)
	if r.scenario.OracleKey != "" {
		signer, err = oracle.NewSigner(r.scenario.OracleKey)
	} else {
		signer, err = oracle.GenerateSigner()
		r.logger.Warn("No oracle key configured, signing with an ephemeral key")
	}
	if err != nil {
		return "", "", err
	}
	sig, err := signer.Sign(info)
	if err != nil {
		return "", "", err
	}
	return sig, signer.PublicKeyHex(), nil
}

func (r *Runner) advance(to contest.Stage) error {
	next, err := r.report.Stage.Advance(to)
	if err != nil {
		return err
	}
	r.report.Stage = next
	return nil
}

func (r *Runner) recordTx(step string, resp *chain.TxResponse) {
	if resp != nil {
		r.report.TxHashes[step] = resp.TxHash
	}
}

// =============================================================================
// Steps
// =============================================================================

func (r *Runner) setupToken(ctx context.Context) error {
	src := r.contracts.Token
	h, err := r.handle(ctx, deployments.NameToken, src.ContractSource,
		snip20.NewInitMsg(src.Name, src.Symbol, src.Decimals, src.PRNGSeed))
	if err != nil {
		return err
	}
	r.token, err = snip20.New(h, snip20.WithLogger(r.logger))
	if err != nil {
		return err
	}
	r.report.TokenAddress, err = h.Address()
	return err
}

func (r *Runner) mint(ctx context.Context) error {
	resp, err := r.token.Mint(ctx, r.wallet, r.scenario.MintAmount)
	if err != nil {
		return err
	}
	r.recordTx(StepMint, resp)
	return nil
}

func (r *Runner) setupContest(ctx context.Context, oraclePub string) error {
	src := r.contracts.Contest
	h, err := r.handle(ctx, deployments.NameContest, src.ContractSource, contest.InitMsg{
		OracleContract: src.OracleContract,
		SatoshisPalace: oraclePub,
	})
	if err != nil {
		return err
	}
	r.contest, err = contest.New(h, contest.WithLogger(r.logger))
	if err != nil {
		return err
	}
	r.report.ContestAddress, err = h.Address()
	return err
}

func (r *Runner) register(ctx context.Context) error {
	tokenAddr, tokenHash, err := r.token.Handle().Ref()
	if err != nil {
		return err
	}

	tokens, err := r.contest.ListRegisteredTokens(ctx)
	if err != nil {
		return err
	}
	if !hasToken(tokens, tokenAddr) {
		resp, err := r.contest.Register(ctx, tokenAddr, tokenHash)
		if err != nil {
			return err
		}
		r.recordTx(StepRegister, resp)

		if tokens, err = r.contest.ListRegisteredTokens(ctx); err != nil {
			return err
		}
	} else {
		r.logger.Info("Token already registered", zap.String("token", tokenAddr))
	}

	r.report.RegisteredTokens = tokens
	for _, t := range tokens {
		r.logger.Info("Registered token",
			zap.String("address", t.Address),
			zap.String("code_hash", t.CodeHash))
	}
	return r.advance(contest.StageTokenRegistered)
}

func (r *Runner) setViewingKey(ctx context.Context) error {
	key, err := snip20.NewViewingKey()
	if err != nil {
		return err
	}
	if err := r.token.SetViewingKey(ctx, key); err != nil {
		return err
	}
	r.viewingKey = key
	return r.checkBalance(ctx, StepViewKey)
}

func (r *Runner) createContest(ctx context.Context, info contest.ContestInfo, signature string) error {
	payload, err := r.contest.GetContestCreationPayload(ctx, info, signature, r.scenario.OutcomeID)
	if err != nil {
		return err
	}
	resp, err := r.send(ctx, payload, r.scenario.CreationAmount)
	if err != nil {
		return err
	}
	r.recordTx(StepCreate, resp)
	r.logger.Info("Contest created",
		zap.Uint32("contest_id", info.ID),
		zap.Uint8("outcome_id", r.scenario.OutcomeID),
		zap.String("amount", r.scenario.CreationAmount))

	if err := r.advance(contest.StageContestCreated); err != nil {
		return err
	}
	return r.checkBalance(ctx, StepCreate)
}

func (r *Runner) bet(ctx context.Context) error {
	id := r.scenario.Contest.ID
	payload, err := r.contest.GetBetPayload(ctx, id, r.scenario.BetOutcomeID)
	if err != nil {
		return err
	}
	resp, err := r.send(ctx, payload, r.scenario.BetAmount)
	if err != nil {
		return err
	}
	r.recordTx(StepBet, resp)
	r.logger.Info("Bet placed",
		zap.Uint32("contest_id", id),
		zap.Uint8("outcome_id", r.scenario.BetOutcomeID),
		zap.String("amount", r.scenario.BetAmount))

	if err := r.advance(contest.StageBetPlaced); err != nil {
		return err
	}
	return r.checkBalance(ctx, StepBet)
}

func (r *Runner) inspect(ctx context.Context) error {
	id := r.scenario.Contest.ID
	resp, err := r.contest.GetContest(ctx, id)
	if err != nil {
		return err
	}
	r.report.Contest = resp
	for _, o := range resp.ContestBetSummary.Options {
		r.logger.Info("Bet allocation",
			zap.Uint32("contest_id", id),
			zap.String("option", o.Option.Name),
			zap.String("allocation", o.BetAllocation))
	}

	bet, err := r.contest.GetUserBet(ctx, r.wallet, id, r.viewingKey)
	if err != nil {
		return err
	}
	r.report.UserBet = bet
	r.logger.Info("User bet",
		zap.String("amount", bet.Amount),
		zap.Uint8("outcome_id", bet.OutcomeID))
	return nil
}

func (r *Runner) resolve(ctx context.Context) error {
	if r.resolver == nil {
		r.logger.Info("No resolver configured, leaving resolution to the oracle")
		return nil
	}
	addr, err := r.contest.Handle().Address()
	if err != nil {
		return err
	}
	if err := r.resolver.ResolveContest(ctx, addr, r.scenario.Contest.ID, r.scenario.ResolveOutcomeID); err != nil {
		return err
	}
	r.report.Resolved = true
	return r.advance(contest.StageResolved)
}

func (r *Runner) claim(ctx context.Context) error {
	resp, err := r.contest.ClaimReward(ctx, r.scenario.Contest.ID)
	if err != nil {
		return err
	}
	r.recordTx(StepClaim, resp)

	// a successful claim means the oracle resolved the contest on chain
	if r.report.Stage == contest.StageBetPlaced {
		if err := r.advance(contest.StageResolved); err != nil {
			return err
		}
	}
	if err := r.advance(contest.StageClaimed); err != nil {
		return err
	}
	return r.checkBalance(ctx, StepClaim)
}

// =============================================================================
// Helpers
// =============================================================================

// send hands the contest-built payload to the token unmodified.
func (r *Runner) send(ctx context.Context, payload *contest.SendPayload, amount string) (*chain.TxResponse, error) {
	return r.token.Send(ctx, payload.Recipient, payload.RecipientCodeHash, amount, payload.Msg)
}

func (r *Runner) checkBalance(ctx context.Context, step string) error {
	amount, err := r.token.Balance(ctx, r.wallet, r.viewingKey)
	if err != nil {
		return fmt.Errorf("query balance: %w", err)
	}
	r.report.Balances = append(r.report.Balances, Balance{Step: step + balanceSuffix, Amount: amount})

	if d, err := decimal.NewFromString(amount); err == nil {
		metrics.TokenBalance.WithLabelValues(r.contracts.Token.Symbol).Set(d.InexactFloat64())
	}
	r.logger.Info("Balance",
		zap.String("step", step),
		zap.String("amount", amount))
	return nil
}

// handle attaches to a configured or recorded contract, or deploys a new one.
func (r *Runner) handle(ctx context.Context, name string, src config.ContractSource, initMsg any) (*contract.Handle, error) {
	opts := []contract.Option{contract.WithLogger(r.logger), contract.WithLabel(r.labels)}

	if src.Attached() {
		r.logger.Info("Attaching to configured contract",
			zap.String("name", name),
			zap.String("address", src.Address))
		return contract.Attach(r.client, src.Address, src.CodeHash, opts...), nil
	}

	if r.scenario.ReuseDeployments {
		d, err := r.store.Get(ctx, r.chainID, name)
		switch {
		case err == nil:
			r.logger.Info("Reusing recorded deployment",
				zap.String("name", name),
				zap.String("address", d.Address))
			return contract.Attach(r.client, d.Address, d.CodeHash, opts...), nil
		case !errors.Is(err, deployments.ErrDeploymentNotFound):
			return nil, err
		}
	}

	code, err := contract.ReadCode(src.CodePath)
	if err != nil {
		return nil, err
	}
	h := contract.New(r.client, code, opts...)
	if err := h.Deploy(ctx); err != nil {
		return nil, err
	}
	if err := h.Instantiate(ctx, initMsg); err != nil {
		return nil, err
	}

	info, _ := h.CodeInfo()
	addr, _ := h.Address()
	if err := r.store.Save(ctx, &deployments.Deployment{
		Name:     name,
		ChainID:  r.chainID,
		CodeID:   info.CodeID,
		CodeHash: info.CodeHash,
		Address:  addr,
		Label:    h.Label(),
	}); err != nil {
		return nil, fmt.Errorf("record deployment: %w", err)
	}
	return h, nil
}

func hasToken(tokens []contest.TokenRef, addr string) bool {
	for _, t := range tokens {
		if t.Address == addr {
			return true
		}
	}
	return false
}
