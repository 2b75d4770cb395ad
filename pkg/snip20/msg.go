package snip20

import (
	"errors"
	"reflect"
)

// ExecuteMsg is the SNIP-20 handle message. Exactly one field is set.
type ExecuteMsg struct {
	Mint             *Mint             `json:"mint,omitempty"`
	Send             *Send             `json:"send,omitempty"`
	Transfer         *Transfer         `json:"transfer,omitempty"`
	SetViewingKey    *SetViewingKey    `json:"set_viewing_key,omitempty"`
	CreateViewingKey *CreateViewingKey `json:"create_viewing_key,omitempty"`
	RegisterReceive  *RegisterReceive  `json:"register_receive,omitempty"`
}

// QueryMsg is the SNIP-20 query message. Exactly one field is set.
type QueryMsg struct {
	Balance   *BalanceQuery   `json:"balance,omitempty"`
	TokenInfo *TokenInfoQuery `json:"token_info,omitempty"`
}

// Mint creates new tokens for recipient.
type Mint struct {
	Recipient string  `json:"recipient"`
	Amount    string  `json:"amount"`
	Memo      *string `json:"memo,omitempty"`
	Padding   *string `json:"padding,omitempty"`
}

// Send moves tokens to recipient and, when recipient is a contract, invokes
// its receive handler with Msg.
type Send struct {
	Recipient         string  `json:"recipient"`
	RecipientCodeHash string  `json:"recipient_code_hash,omitempty"`
	Amount            string  `json:"amount"`
	Msg               string  `json:"msg,omitempty"`
	Memo              *string `json:"memo,omitempty"`
	Padding           *string `json:"padding,omitempty"`
}

// Transfer moves tokens without invoking a receiver.
type Transfer struct {
	Recipient string  `json:"recipient"`
	Amount    string  `json:"amount"`
	Memo      *string `json:"memo,omitempty"`
	Padding   *string `json:"padding,omitempty"`
}

// SetViewingKey sets the caller's viewing key.
type SetViewingKey struct {
	Key     string  `json:"key"`
	Padding *string `json:"padding,omitempty"`
}

// CreateViewingKey asks the token to derive a viewing key from entropy.
type CreateViewingKey struct {
	Entropy string  `json:"entropy"`
	Padding *string `json:"padding,omitempty"`
}

// RegisterReceive registers the caller as a receiver contract.
type RegisterReceive struct {
	CodeHash string  `json:"code_hash"`
	Padding  *string `json:"padding,omitempty"`
}

// BalanceQuery reads the balance of address, authenticated by a viewing key.
type BalanceQuery struct {
	Address string `json:"address"`
	Key     string `json:"key"`
}

// TokenInfoQuery reads public token metadata.
type TokenInfoQuery struct{}

// InitMsg instantiates a SNIP-20 token.
type InitMsg struct {
	Name     string        `json:"name"`
	Symbol   string        `json:"symbol"`
	Decimals uint8         `json:"decimals"`
	PRNGSeed string        `json:"prng_seed"`
	Admin    string        `json:"admin,omitempty"`
	Config   *InitConfig   `json:"config,omitempty"`
	Balances []InitBalance `json:"initial_balances,omitempty"`
}

// InitConfig toggles optional token features.
type InitConfig struct {
	PublicTotalSupply bool `json:"public_total_supply"`
	EnableDeposit     bool `json:"enable_deposit"`
	EnableRedeem      bool `json:"enable_redeem"`
	EnableMint        bool `json:"enable_mint"`
	EnableBurn        bool `json:"enable_burn"`
}

// InitBalance is a balance assigned at instantiation.
type InitBalance struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// NewInitMsg returns an init message with every optional feature enabled.
func NewInitMsg(name, symbol string, decimals uint8, prngSeed string) InitMsg {
	return InitMsg{
		Name:     name,
		Symbol:   symbol,
		Decimals: decimals,
		PRNGSeed: prngSeed,
		Config: &InitConfig{
			PublicTotalSupply: true,
			EnableDeposit:     true,
			EnableRedeem:      true,
			EnableMint:        true,
			EnableBurn:        true,
		},
	}
}

// =============================================================================
// Answers
// =============================================================================

// BalanceAnswer is returned by the balance query.
type BalanceAnswer struct {
	Balance *struct {
		Amount string `json:"amount"`
	} `json:"balance,omitempty"`
	ViewingKeyError *struct {
		Msg string `json:"msg"`
	} `json:"viewing_key_error,omitempty"`
}

// TokenInfo is public token metadata.
type TokenInfo struct {
	Name        string  `json:"name"`
	Symbol      string  `json:"symbol"`
	Decimals    uint8   `json:"decimals"`
	TotalSupply *string `json:"total_supply,omitempty"`
}

// TokenInfoAnswer is returned by the token_info query.
type TokenInfoAnswer struct {
	TokenInfo TokenInfo `json:"token_info"`
}

// ExecuteAnswer is the data returned by execute messages.
type ExecuteAnswer struct {
	Mint             *StatusAnswer `json:"mint,omitempty"`
	Send             *StatusAnswer `json:"send,omitempty"`
	Transfer         *StatusAnswer `json:"transfer,omitempty"`
	SetViewingKey    *StatusAnswer `json:"set_viewing_key,omitempty"`
	RegisterReceive  *StatusAnswer `json:"register_receive,omitempty"`
	CreateViewingKey *struct {
		Key string `json:"key"`
	} `json:"create_viewing_key,omitempty"`
}

// StatusAnswer carries a success or failure status.
type StatusAnswer struct {
	Status string `json:"status"`
}

// Response status values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// errVariant reports a sum type with zero or more than one variant set.
var errVariant = errors.New("exactly one message variant must be set")

// Validate checks that exactly one variant is set.
func (m ExecuteMsg) Validate() error {
	return oneVariant(m)
}

// Validate checks that exactly one variant is set.
func (m QueryMsg) Validate() error {
	return oneVariant(m)
}

func oneVariant(v any) error {
	rv := reflect.ValueOf(v)
	set := 0
	for i := 0; i < rv.NumField(); i++ {
		if !rv.Field(i).IsNil() {
			set++
		}
	}
	if set != 1 {
		return errVariant
	}
	return nil
}
