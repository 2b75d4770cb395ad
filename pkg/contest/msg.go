package contest

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// NullAndVoidOutcome is the oracle result that cancels a contest and refunds every bet.
const NullAndVoidOutcome uint8 = 0

// ContestOutcome is one option a bettor can back.
type ContestOutcome struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
}

// ContestInfo describes a contest. The oracle signs its JSON form, so field order is fixed.
type ContestInfo struct {
	ID            uint32           `json:"id"`
	Options       []ContestOutcome `json:"options"`
	TimeOfClose   uint64           `json:"time_of_close"`
	TimeOfResolve uint64           `json:"time_of_resolve"`
	EventDetails  string           `json:"event_details"`
}

// SignedJSON returns the exact bytes the oracle signs: compact JSON without HTML
// escaping and with backslashes removed.
func (c ContestInfo) SignedJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(c); err != nil {
		return nil, fmt.Errorf("encode contest info: %w", err)
	}
	out := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return bytes.ReplaceAll(out, []byte(`\`), nil), nil
}

// HasOutcome reports whether id is one of the contest options.
func (c ContestInfo) HasOutcome(id uint8) bool {
	for _, o := range c.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// Validate checks the contest terms are usable.
func (c ContestInfo) Validate() error {
	if len(c.Options) < 2 {
		return fmt.Errorf("contest %d needs at least two options", c.ID)
	}
	seen := make(map[uint8]struct{}, len(c.Options))
	for _, o := range c.Options {
		if _, dup := seen[o.ID]; dup {
			return fmt.Errorf("contest %d has duplicate option %d", c.ID, o.ID)
		}
		seen[o.ID] = struct{}{}
	}
	if c.TimeOfResolve < c.TimeOfClose {
		return fmt.Errorf("contest %d resolves before it closes", c.ID)
	}
	return nil
}

// ExecuteMsg is the contest handle message. Exactly one field is set.
type ExecuteMsg struct {
	Register      *Register      `json:"register,omitempty"`
	Claim         *Claim         `json:"claim,omitempty"`
	Receive       *Receive       `json:"receive,omitempty"`
	CreateContest *CreateContest `json:"create_contest,omitempty"`
	BetContest    *BetContest    `json:"bet_contest,omitempty"`
}

// Register records a SNIP-20 token the contest accepts bets in.
type Register struct {
	RegAddr string `json:"reg_addr"`
	RegHash string `json:"reg_hash"`
}

// Claim pays out the caller's winnings for a resolved contest.
type Claim struct {
	ContestID uint32 `json:"contest_id"`
}

// Receive is the callback a SNIP-20 token invokes on send.
type Receive struct {
	Sender string  `json:"sender"`
	From   string  `json:"from"`
	Amount string  `json:"amount"`
	Memo   *string `json:"memo,omitempty"`
	Msg    string  `json:"msg"`
}

// CreateContest is carried inside a token send. The contest fills Sender and Amount
// from the receive callback.
type CreateContest struct {
	ContestInfo             ContestInfo `json:"contest_info"`
	ContestInfoSignatureHex string      `json:"contest_info_signature_hex"`
	OutcomeID               uint8       `json:"outcome_id"`
	Sender                  *string     `json:"sender,omitempty"`
	Amount                  *string     `json:"amount,omitempty"`
}

// BetContest is carried inside a token send.
type BetContest struct {
	ContestID uint32  `json:"contest_id"`
	OutcomeID uint8   `json:"outcome_id"`
	Sender    *string `json:"sender,omitempty"`
	Amount    *string `json:"amount,omitempty"`
}

// QueryMsg is the contest query message. Exactly one field is set.
type QueryMsg struct {
	GetContest                  *GetContest                  `json:"get_contest,omitempty"`
	GetContests                 *GetContests                 `json:"get_contests,omitempty"`
	GetSnip20s                  *GetSnip20s                  `json:"get_snip20s,omitempty"`
	GetContestCreationMsgBinary *GetContestCreationMsgBinary `json:"get_contest_creation_msg_binary,omitempty"`
	GetBetContestMsgBinary      *GetBetContestMsgBinary      `json:"get_bet_contest_msg_binary,omitempty"`
	GetUserBet                  *GetUserBet                  `json:"get_user_bet,omitempty"`
}

// GetContest reads one contest and its bet summary.
type GetContest struct {
	ContestID uint32 `json:"contest_id"`
}

// GetContests reads several contests, skipping unknown ids. No ids lists every contest.
type GetContests struct {
	ContestIDs []uint32 `json:"contest_ids"`
}

// GetSnip20s lists registered tokens.
type GetSnip20s struct{}

// GetContestCreationMsgBinary asks the contest to build the send message that creates a contest.
type GetContestCreationMsgBinary struct {
	ContestInfo             ContestInfo `json:"contest_info"`
	ContestInfoSignatureHex string      `json:"contest_info_signature_hex"`
	OutcomeID               uint8       `json:"outcome_id"`
}

// GetBetContestMsgBinary asks the contest to build the send message that places a bet.
type GetBetContestMsgBinary struct {
	ContestID uint32 `json:"contest_id"`
	OutcomeID uint8  `json:"outcome_id"`
}

// GetUserBet reads one user's bet, authenticated by a viewing key.
type GetUserBet struct {
	UserContest UserContest `json:"user_contest"`
	Key         string      `json:"key"`
}

// UserContest keys a bet.
type UserContest struct {
	Address   string `json:"address"`
	ContestID uint32 `json:"contest_id"`
}

// InitMsg instantiates the contest contract.
type InitMsg struct {
	OracleContract string `json:"oracle_contract"`
	// SatoshisPalace is the uncompressed hex public key of the contest signer.
	SatoshisPalace string `json:"satoshis_palace"`
}

// =============================================================================
// Answers
// =============================================================================

// SendPayload is the token send message built by the contest. Msg is opaque and
// must reach the token unmodified.
type SendPayload struct {
	Recipient         string  `json:"recipient"`
	RecipientCodeHash string  `json:"recipient_code_hash,omitempty"`
	Amount            string  `json:"amount"`
	Msg               string  `json:"msg"`
	Memo              *string `json:"memo,omitempty"`
	Padding           *string `json:"padding,omitempty"`
}

// SendAnswer wraps a SendPayload the way the token expects it.
type SendAnswer struct {
	Send *SendPayload `json:"send"`
}

// OptionBetSummary is the total staked on one option.
type OptionBetSummary struct {
	Option        ContestOutcome `json:"option"`
	BetAllocation string         `json:"bet_allocation"`
}

// ContestBetSummary aggregates bets for a contest.
type ContestBetSummary struct {
	ContestID uint32             `json:"contest_id"`
	Options   []OptionBetSummary `json:"options"`
	Outcome   *ContestOutcome    `json:"outcome,omitempty"`
}

// ContestResponse is the answer of get_contest.
type ContestResponse struct {
	ContestInfo       ContestInfo       `json:"contest_info"`
	ContestBetSummary ContestBetSummary `json:"contest_bet_summary"`
}

// ContestsResponse is the answer of get_contests.
type ContestsResponse struct {
	Contests []ContestResponse `json:"contests"`
}

// TokenRef identifies a registered token contract.
type TokenRef struct {
	Address  string `json:"address"`
	CodeHash string `json:"code_hash"`
}

// Snip20sResponse is the answer of get_snip20s.
type Snip20sResponse struct {
	Snip20s []TokenRef `json:"snip20s"`
}

// Bet is one user's stake in a contest.
type Bet struct {
	Amount      string `json:"amount"`
	OutcomeID   uint8  `json:"outcome_id"`
	HasBeenPaid bool   `json:"has_been_paid"`
}

// UserBetResponse is the answer of get_user_bet.
type UserBetResponse struct {
	Bet Bet `json:"bet"`
}
