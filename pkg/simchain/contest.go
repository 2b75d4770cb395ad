package simchain

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/satoshispalace/contest-harness/pkg/contest"
	"github.com/satoshispalace/contest-harness/pkg/oracle"
	"github.com/satoshispalace/contest-harness/pkg/snip20"

	"github.com/shopspring/decimal"
)

const (
	keyContestConfig = "config"
	keySnip20s       = "snip20s"
	prefixContest    = "contest/"
	prefixBet        = "bet/"

	// winners share the pool minus this percentage
	feePercent = 1

	nullAndVoidName = "Null and Void"
)

// SudoMsg is a privileged contest message only the chain can send.
type SudoMsg struct {
	SetResult *SetResult `json:"set_result,omitempty"`
}

// SetResult records the oracle result of a contest.
type SetResult struct {
	ContestID uint32 `json:"contest_id"`
	OutcomeID uint8  `json:"outcome_id"`
}

type contestConfig struct {
	OracleContract string `json:"oracle_contract"`
	SatoshisPalace string `json:"satoshis_palace"`
}

type contestRecord struct {
	Info        contest.ContestInfo `json:"info"`
	Token       string              `json:"token"`
	TokenHash   string              `json:"token_hash"`
	Allocations []string            `json:"allocations"`
	Outcome     *uint8              `json:"outcome,omitempty"`
}

func (r *contestRecord) optionIndex(id uint8) int {
	for i, o := range r.Info.Options {
		if o.ID == id {
			return i
		}
	}
	return -1
}

func (r *contestRecord) pool() (decimal.Decimal, error) {
	total := decimal.Zero
	for _, a := range r.Allocations {
		d, err := snip20.ParseAmount(a)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(d)
	}
	return total, nil
}

func (r *contestRecord) response() contest.ContestResponse {
	summary := contest.ContestBetSummary{ContestID: r.Info.ID}
	for i, o := range r.Info.Options {
		summary.Options = append(summary.Options, contest.OptionBetSummary{Option: o, BetAllocation: r.Allocations[i]})
	}
	if r.Outcome != nil {
		out := contest.ContestOutcome{ID: *r.Outcome, Name: nullAndVoidName}
		if *r.Outcome != contest.NullAndVoidOutcome {
			out.Name = r.Info.Options[r.optionIndex(*r.Outcome)].Name
		}
		summary.Outcome = &out
	}
	return contest.ContestResponse{ContestInfo: r.Info, ContestBetSummary: summary}
}

// ContestProgram is a prediction market paid in registered SNIP-20 tokens.
type ContestProgram struct{}

func (p *ContestProgram) Instantiate(_ Env, store Store, msg json.RawMessage) (*Response, error) {
	var init contest.InitMsg
	if err := decodeMsg(msg, &init); err != nil {
		return nil, err
	}
	pub, err := hex.DecodeString(init.SatoshisPalace)
	if err != nil || (len(pub) != 33 && len(pub) != 65) {
		return nil, contractErr("satoshis_palace must be a hex secp256k1 public key")
	}
	cfg := contestConfig{OracleContract: init.OracleContract, SatoshisPalace: init.SatoshisPalace}
	if err := saveJSON(store, keyContestConfig, cfg); err != nil {
		return nil, err
	}
	return &Response{}, nil
}

func (p *ContestProgram) Execute(env Env, store Store, msg json.RawMessage) (*Response, error) {
	var m contest.ExecuteMsg
	if err := decodeMsg(msg, &m); err != nil {
		return nil, err
	}

	switch {
	case m.Register != nil:
		return p.register(env, store, m.Register)
	case m.Receive != nil:
		return p.receive(env, store, m.Receive)
	case m.Claim != nil:
		return p.claim(env, store, m.Claim.ContestID)
	case m.CreateContest != nil, m.BetContest != nil:
		return nil, contractErr("contests and bets must be paid through a token send")
	}
	return nil, contractErr("unsupported message")
}

func (p *ContestProgram) register(env Env, store Store, m *contest.Register) (*Response, error) {
	if m.RegAddr == "" || m.RegHash == "" {
		return nil, contractErr("reg_addr and reg_hash are required")
	}
	var tokens []contest.TokenRef
	if _, err := loadJSON(store, keySnip20s, &tokens); err != nil {
		return nil, err
	}
	for _, t := range tokens {
		if t.Address == m.RegAddr {
			return nil, contractErr("token %s is already registered", m.RegAddr)
		}
	}
	tokens = append(tokens, contest.TokenRef{Address: m.RegAddr, CodeHash: m.RegHash})
	if err := saveJSON(store, keySnip20s, tokens); err != nil {
		return nil, err
	}

	resp := &Response{}
	resp.attr("registered_token", m.RegAddr)
	reg := snip20.ExecuteMsg{RegisterReceive: &snip20.RegisterReceive{CodeHash: env.CodeHash}}
	if err := resp.call(m.RegAddr, m.RegHash, reg); err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *ContestProgram) receive(env Env, store Store, m *contest.Receive) (*Response, error) {
	token, ok, err := registeredToken(store, env.Sender)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, contractErr("token %s is not registered", env.Sender)
	}
	if m.Msg == "" {
		return nil, contractErr("receive requires a msg")
	}

	var inner contest.ExecuteMsg
	if err := snip20.DecodeSendPayload(m.Msg, &inner); err != nil {
		return nil, contractErr("%v", err)
	}
	switch {
	case inner.CreateContest != nil:
		return p.createContest(env, store, token, m.From, m.Amount, inner.CreateContest)
	case inner.BetContest != nil:
		return p.betContest(env, store, token, m.From, m.Amount, inner.BetContest.ContestID, inner.BetContest.OutcomeID)
	}
	return nil, contractErr("unsupported receive msg")
}

func (p *ContestProgram) createContest(env Env, store Store, token contest.TokenRef, user, amount string, m *contest.CreateContest) (*Response, error) {
	info := m.ContestInfo
	if env.BlockTime >= info.TimeOfClose {
		return nil, contractErr("contest %d: time of close has passed", info.ID)
	}
	if err := info.Validate(); err != nil {
		return nil, contractErr("%v", err)
	}
	if !info.HasOutcome(m.OutcomeID) {
		return nil, contractErr("contest %d has no outcome %d", info.ID, m.OutcomeID)
	}

	var cfg contestConfig
	if _, err := loadJSON(store, keyContestConfig, &cfg); err != nil {
		return nil, err
	}
	if err := oracle.Verify(cfg.SatoshisPalace, info, m.ContestInfoSignatureHex); err != nil {
		return nil, contractErr("contest %d: %v", info.ID, err)
	}
	if _, exists := store.Get(contestKey(info.ID)); exists {
		return nil, contractErr("contest with id %d already exists", info.ID)
	}

	rec := contestRecord{
		Info:        info,
		Token:       token.Address,
		TokenHash:   token.CodeHash,
		Allocations: make([]string, len(info.Options)),
	}
	for i := range rec.Allocations {
		rec.Allocations[i] = "0"
	}
	if err := saveJSON(store, contestKey(info.ID), rec); err != nil {
		return nil, err
	}

	resp, err := p.betContest(env, store, token, user, amount, info.ID, m.OutcomeID)
	if err != nil {
		return nil, err
	}
	resp.attr("created_contest", fmt.Sprint(info.ID))
	return resp, nil
}

func (p *ContestProgram) betContest(env Env, store Store, token contest.TokenRef, user, amount string, contestID uint32, outcomeID uint8) (*Response, error) {
	var rec contestRecord
	found, err := loadJSON(store, contestKey(contestID), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, contractErr("contest %d not found", contestID)
	}
	if rec.Token != token.Address {
		return nil, contractErr("contest %d is paid in %s", contestID, rec.Token)
	}
	if env.BlockTime >= rec.Info.TimeOfClose {
		return nil, contractErr("contest %d: time of close has passed", contestID)
	}
	idx := rec.optionIndex(outcomeID)
	if idx < 0 {
		return nil, contractErr("contest %d has no outcome %d", contestID, outcomeID)
	}
	stake, err := snip20.ParseAmount(amount)
	if err != nil || stake.IsZero() {
		return nil, contractErr("bet amount must be positive")
	}

	var bet contest.Bet
	hasBet, err := loadJSON(store, betKey(contestID, user), &bet)
	if err != nil {
		return nil, err
	}
	if hasBet {
		if bet.OutcomeID != outcomeID {
			return nil, contractErr("cannot bet on both sides of contest %d", contestID)
		}
		if bet.Amount, err = snip20.AddAmounts(bet.Amount, amount); err != nil {
			return nil, contractErr("%v", err)
		}
	} else {
		bet = contest.Bet{Amount: amount, OutcomeID: outcomeID}
	}
	if rec.Allocations[idx], err = snip20.AddAmounts(rec.Allocations[idx], amount); err != nil {
		return nil, contractErr("%v", err)
	}

	if err := saveJSON(store, betKey(contestID, user), bet); err != nil {
		return nil, err
	}
	if err := saveJSON(store, contestKey(contestID), rec); err != nil {
		return nil, err
	}

	resp := &Response{}
	resp.attr("bet", fmt.Sprintf("%d/%d/%s", contestID, outcomeID, amount))
	return resp, nil
}

func (p *ContestProgram) claim(env Env, store Store, contestID uint32) (*Response, error) {
	var rec contestRecord
	found, err := loadJSON(store, contestKey(contestID), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, contractErr("contest %d not found", contestID)
	}
	if env.BlockTime < rec.Info.TimeOfResolve {
		return nil, contractErr("contest %d: time of resolve has not passed", contestID)
	}
	if rec.Outcome == nil {
		return nil, contractErr("contest %d has no result yet", contestID)
	}

	var bet contest.Bet
	hasBet, err := loadJSON(store, betKey(contestID, env.Sender), &bet)
	if err != nil {
		return nil, err
	}
	if !hasBet {
		return nil, contractErr("user %s has not bet on contest %d", env.Sender, contestID)
	}
	if bet.HasBeenPaid {
		return nil, contractErr("bet on contest %d has already been paid", contestID)
	}

	payout, err := p.payout(&rec, bet)
	if err != nil {
		return nil, err
	}

	bet.HasBeenPaid = true
	if err := saveJSON(store, betKey(contestID, env.Sender), bet); err != nil {
		return nil, err
	}

	resp := &Response{}
	resp.attr("payout", payout)
	if payout == "0" {
		return resp, nil
	}
	transfer := snip20.ExecuteMsg{Transfer: &snip20.Transfer{Recipient: env.Sender, Amount: payout}}
	if err := resp.call(rec.Token, rec.TokenHash, transfer); err != nil {
		return nil, err
	}
	return resp, nil
}

// payout is the bet back for a voided contest, otherwise the bet's pro-rata
// share of the pool after fees.
func (p *ContestProgram) payout(rec *contestRecord, bet contest.Bet) (string, error) {
	if *rec.Outcome == contest.NullAndVoidOutcome {
		return bet.Amount, nil
	}
	if bet.OutcomeID != *rec.Outcome {
		return "", contractErr("cannot claim on lost contest %d", rec.Info.ID)
	}

	stake, err := snip20.ParseAmount(bet.Amount)
	if err != nil {
		return "", contractErr("%v", err)
	}
	pool, err := rec.pool()
	if err != nil {
		return "", contractErr("%v", err)
	}
	winning, err := snip20.ParseAmount(rec.Allocations[rec.optionIndex(*rec.Outcome)])
	if err != nil {
		return "", contractErr("%v", err)
	}
	if winning.IsZero() {
		return "0", nil
	}

	afterFee, _ := pool.Mul(decimal.NewFromInt(100 - feePercent)).QuoRem(decimal.NewFromInt(100), 0)
	share, _ := stake.Mul(afterFee).QuoRem(winning, 0)
	return share.String(), nil
}

func (p *ContestProgram) Query(env Env, store Store, msg json.RawMessage) (json.RawMessage, error) {
	var q contest.QueryMsg
	if err := decodeMsg(msg, &q); err != nil {
		return nil, err
	}

	switch {
	case q.GetContest != nil:
		var rec contestRecord
		found, err := loadJSON(store, contestKey(q.GetContest.ContestID), &rec)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, contractErr("contest %d not found", q.GetContest.ContestID)
		}
		return json.Marshal(rec.response())

	case q.GetContests != nil:
		answer := contest.ContestsResponse{Contests: []contest.ContestResponse{}}
		keys := make([]string, 0, len(q.GetContests.ContestIDs))
		for _, id := range q.GetContests.ContestIDs {
			keys = append(keys, contestKey(id))
		}
		if len(keys) == 0 {
			keys = store.Keys(prefixContest)
		}
		for _, key := range keys {
			var rec contestRecord
			found, err := loadJSON(store, key, &rec)
			if err != nil {
				return nil, err
			}
			if found {
				answer.Contests = append(answer.Contests, rec.response())
			}
		}
		return json.Marshal(answer)

	case q.GetSnip20s != nil:
		answer := contest.Snip20sResponse{Snip20s: []contest.TokenRef{}}
		if _, err := loadJSON(store, keySnip20s, &answer.Snip20s); err != nil {
			return nil, err
		}
		return json.Marshal(answer)

	case q.GetContestCreationMsgBinary != nil:
		m := q.GetContestCreationMsgBinary
		return sendAnswer(env, contest.ExecuteMsg{CreateContest: &contest.CreateContest{
			ContestInfo:             m.ContestInfo,
			ContestInfoSignatureHex: m.ContestInfoSignatureHex,
			OutcomeID:               m.OutcomeID,
		}})

	case q.GetBetContestMsgBinary != nil:
		m := q.GetBetContestMsgBinary
		return sendAnswer(env, contest.ExecuteMsg{BetContest: &contest.BetContest{
			ContestID: m.ContestID,
			OutcomeID: m.OutcomeID,
		}})

	case q.GetUserBet != nil:
		return p.userBet(env, store, q.GetUserBet)
	}
	return nil, contractErr("unsupported query")
}

func (p *ContestProgram) userBet(env Env, store Store, q *contest.GetUserBet) (json.RawMessage, error) {
	uc := q.UserContest
	var rec contestRecord
	found, err := loadJSON(store, contestKey(uc.ContestID), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, contractErr("contest %d not found", uc.ContestID)
	}

	// the token is the authority for viewing keys
	var balance snip20.BalanceAnswer
	bq := snip20.QueryMsg{Balance: &snip20.BalanceQuery{Address: uc.Address, Key: q.Key}}
	if err := env.Query(rec.Token, rec.TokenHash, bq, &balance); err != nil {
		return nil, err
	}
	if balance.ViewingKeyError != nil {
		return nil, contractErr("invalid viewing key for %s", uc.Address)
	}

	var bet contest.Bet
	hasBet, err := loadJSON(store, betKey(uc.ContestID, uc.Address), &bet)
	if err != nil {
		return nil, err
	}
	if !hasBet {
		return nil, contractErr("user %s has not bet on contest %d", uc.Address, uc.ContestID)
	}
	return json.Marshal(contest.UserBetResponse{Bet: bet})
}

func (p *ContestProgram) Sudo(env Env, store Store, msg json.RawMessage) (*Response, error) {
	var m SudoMsg
	if err := decodeMsg(msg, &m); err != nil {
		return nil, err
	}
	if m.SetResult == nil {
		return nil, contractErr("unsupported sudo message")
	}

	id := m.SetResult.ContestID
	var rec contestRecord
	found, err := loadJSON(store, contestKey(id), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, contractErr("contest %d not found", id)
	}
	if rec.Outcome != nil {
		return nil, contractErr("contest %d is already resolved", id)
	}
	if env.BlockTime < rec.Info.TimeOfResolve {
		return nil, contractErr("contest %d: time of resolve has not passed", id)
	}
	outcome := m.SetResult.OutcomeID
	if outcome != contest.NullAndVoidOutcome && rec.optionIndex(outcome) < 0 {
		return nil, contractErr("contest %d has no outcome %d", id, outcome)
	}
	rec.Outcome = &outcome
	if err := saveJSON(store, contestKey(id), rec); err != nil {
		return nil, err
	}
	return &Response{}, nil
}

func sendAnswer(env Env, inner contest.ExecuteMsg) (json.RawMessage, error) {
	msg, err := snip20.EncodeSendPayload(inner)
	if err != nil {
		return nil, err
	}
	return json.Marshal(contest.SendAnswer{Send: &contest.SendPayload{
		Recipient:         env.Contract,
		RecipientCodeHash: env.CodeHash,
		Amount:            "1",
		Msg:               msg,
	}})
}

func registeredToken(store Store, addr string) (contest.TokenRef, bool, error) {
	var tokens []contest.TokenRef
	if _, err := loadJSON(store, keySnip20s, &tokens); err != nil {
		return contest.TokenRef{}, false, err
	}
	for _, t := range tokens {
		if t.Address == addr {
			return t, true, nil
		}
	}
	return contest.TokenRef{}, false, nil
}

func contestKey(id uint32) string {
	return fmt.Sprintf("%s%010d", prefixContest, id)
}

func betKey(id uint32, user string) string {
	return fmt.Sprintf("%s%010d/%s", prefixBet, id, user)
}
