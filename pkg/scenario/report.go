package scenario

import (
	"github.com/satoshispalace/contest-harness/pkg/contest"
)

// Step names, in execution order.
const (
	StepToken     = "token"
	StepMint      = "mint"
	StepContest   = "contest"
	StepRegister  = "register"
	StepViewKey   = "viewing_key"
	StepCreate    = "create_contest"
	StepBet       = "bet"
	StepInspect   = "get_contest"
	StepResolve   = "resolve"
	StepClaim     = "claim"
	balanceSuffix = "_balance"
)

// Balance is the wallet balance observed after a step.
type Balance struct {
	Step   string `json:"step"`
	Amount string `json:"amount"`
}

// Report summarises a scenario run.
type Report struct {
	Stage            contest.Stage            `json:"stage"`
	TokenAddress     string                   `json:"token_address"`
	ContestAddress   string                   `json:"contest_address"`
	RegisteredTokens []contest.TokenRef       `json:"registered_tokens"`
	Balances         []Balance                `json:"balances"`
	Contest          *contest.ContestResponse `json:"contest,omitempty"`
	UserBet          *contest.Bet             `json:"user_bet,omitempty"`
	Resolved         bool                     `json:"resolved"`
	TxHashes         map[string]string        `json:"tx_hashes"`
}

// FinalBalance returns the last observed balance.
func (r *Report) FinalBalance() string {
	if len(r.Balances) == 0 {
		return ""
	}
	return r.Balances[len(r.Balances)-1].Amount
}
