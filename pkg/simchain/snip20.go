package simchain

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/satoshispalace/contest-harness/pkg/snip20"
)

const (
	keyTokenConfig    = "config"
	prefixBalance     = "balance/"
	prefixViewingKey  = "vk/"
	prefixReceiveHash = "receiver/"

	viewingKeyErrorMsg = "Wrong viewing key for this address or viewing key not set"
)

type tokenConfig struct {
	Name              string `json:"name"`
	Symbol            string `json:"symbol"`
	Decimals          uint8  `json:"decimals"`
	Admin             string `json:"admin"`
	PRNGSeed          string `json:"prng_seed"`
	TotalSupply       string `json:"total_supply"`
	PublicTotalSupply bool   `json:"public_total_supply"`
	EnableMint        bool   `json:"enable_mint"`
}

// receiveCallback is the message a token sends to a registered receiver.
type receiveCallback struct {
	Receive struct {
		Sender string  `json:"sender"`
		From   string  `json:"from"`
		Amount string  `json:"amount"`
		Memo   *string `json:"memo,omitempty"`
		Msg    *string `json:"msg,omitempty"`
	} `json:"receive"`
}

// Snip20Program is a fungible token with viewing keys and receiver callbacks.
type Snip20Program struct{}

func (p *Snip20Program) Instantiate(env Env, store Store, msg json.RawMessage) (*Response, error) {
	var init snip20.InitMsg
	if err := decodeMsg(msg, &init); err != nil {
		return nil, err
	}
	if init.Name == "" || init.Symbol == "" {
		return nil, contractErr("name and symbol are required")
	}

	cfg := tokenConfig{
		Name:        init.Name,
		Symbol:      init.Symbol,
		Decimals:    init.Decimals,
		Admin:       init.Admin,
		PRNGSeed:    init.PRNGSeed,
		TotalSupply: "0",
	}
	if cfg.Admin == "" {
		cfg.Admin = env.Sender
	}
	if init.Config != nil {
		cfg.PublicTotalSupply = init.Config.PublicTotalSupply
		cfg.EnableMint = init.Config.EnableMint
	}

	for _, b := range init.Balances {
		if err := credit(store, b.Address, b.Amount); err != nil {
			return nil, err
		}
		supply, err := snip20.AddAmounts(cfg.TotalSupply, b.Amount)
		if err != nil {
			return nil, contractErr("%v", err)
		}
		cfg.TotalSupply = supply
	}
	if err := saveJSON(store, keyTokenConfig, cfg); err != nil {
		return nil, err
	}
	return &Response{}, nil
}

func (p *Snip20Program) Execute(env Env, store Store, msg json.RawMessage) (*Response, error) {
	var m snip20.ExecuteMsg
	if err := decodeMsg(msg, &m); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, contractErr("%v", err)
	}

	switch {
	case m.Mint != nil:
		return p.mint(env, store, m.Mint)
	case m.Transfer != nil:
		if err := move(store, env.Sender, m.Transfer.Recipient, m.Transfer.Amount); err != nil {
			return nil, err
		}
		return statusResponse("transfer")
	case m.Send != nil:
		return p.send(env, store, m.Send)
	case m.SetViewingKey != nil:
		if m.SetViewingKey.Key == "" {
			return nil, contractErr("viewing key must not be empty")
		}
		store.Set(prefixViewingKey+env.Sender, hashKey(m.SetViewingKey.Key))
		return statusResponse("set_viewing_key")
	case m.CreateViewingKey != nil:
		return p.createViewingKey(env, store, m.CreateViewingKey)
	case m.RegisterReceive != nil:
		store.Set(prefixReceiveHash+env.Sender, []byte(m.RegisterReceive.CodeHash))
		return statusResponse("register_receive")
	}
	return nil, contractErr("unsupported message")
}

func (p *Snip20Program) mint(env Env, store Store, m *snip20.Mint) (*Response, error) {
	var cfg tokenConfig
	if _, err := loadJSON(store, keyTokenConfig, &cfg); err != nil {
		return nil, err
	}
	if !cfg.EnableMint {
		return nil, contractErr("mint functionality is not enabled for this token")
	}
	if env.Sender != cfg.Admin {
		return nil, contractErr("minting is allowed to minter accounts only")
	}
	if err := credit(store, m.Recipient, m.Amount); err != nil {
		return nil, err
	}
	supply, err := snip20.AddAmounts(cfg.TotalSupply, m.Amount)
	if err != nil {
		return nil, contractErr("%v", err)
	}
	cfg.TotalSupply = supply
	if err := saveJSON(store, keyTokenConfig, cfg); err != nil {
		return nil, err
	}
	resp, err := statusResponse("mint")
	if err != nil {
		return nil, err
	}
	resp.attr("minted", m.Amount)
	return resp, nil
}

func (p *Snip20Program) send(env Env, store Store, m *snip20.Send) (*Response, error) {
	if err := move(store, env.Sender, m.Recipient, m.Amount); err != nil {
		return nil, err
	}
	resp, err := statusResponse("send")
	if err != nil {
		return nil, err
	}

	codeHash := m.RecipientCodeHash
	if codeHash == "" {
		if h, ok := store.Get(prefixReceiveHash + m.Recipient); ok {
			codeHash = string(h)
		}
	}
	if codeHash == "" {
		return resp, nil
	}

	var cb receiveCallback
	cb.Receive.Sender = env.Sender
	cb.Receive.From = env.Sender
	cb.Receive.Amount = m.Amount
	cb.Receive.Memo = m.Memo
	if m.Msg != "" {
		cb.Receive.Msg = &m.Msg
	}
	if err := resp.call(m.Recipient, codeHash, cb); err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *Snip20Program) createViewingKey(env Env, store Store, m *snip20.CreateViewingKey) (*Response, error) {
	var cfg tokenConfig
	if _, err := loadJSON(store, keyTokenConfig, &cfg); err != nil {
		return nil, err
	}
	seed := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%d|%d", cfg.PRNGSeed, env.Sender, m.Entropy, env.BlockHeight, env.BlockTime)))
	key := "api_key_" + hex.EncodeToString(seed[:])
	store.Set(prefixViewingKey+env.Sender, hashKey(key))

	var answer snip20.ExecuteAnswer
	answer.CreateViewingKey = &struct {
		Key string `json:"key"`
	}{Key: key}
	data, err := json.Marshal(answer)
	if err != nil {
		return nil, err
	}
	return &Response{Data: data}, nil
}

func (p *Snip20Program) Query(_ Env, store Store, msg json.RawMessage) (json.RawMessage, error) {
	var q snip20.QueryMsg
	if err := decodeMsg(msg, &q); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, contractErr("%v", err)
	}

	switch {
	case q.Balance != nil:
		var answer snip20.BalanceAnswer
		if !checkViewingKey(store, q.Balance.Address, q.Balance.Key) {
			answer.ViewingKeyError = &struct {
				Msg string `json:"msg"`
			}{Msg: viewingKeyErrorMsg}
			return json.Marshal(answer)
		}
		answer.Balance = &struct {
			Amount string `json:"amount"`
		}{Amount: balanceOf(store, q.Balance.Address)}
		return json.Marshal(answer)
	case q.TokenInfo != nil:
		var cfg tokenConfig
		if _, err := loadJSON(store, keyTokenConfig, &cfg); err != nil {
			return nil, err
		}
		info := snip20.TokenInfo{Name: cfg.Name, Symbol: cfg.Symbol, Decimals: cfg.Decimals}
		if cfg.PublicTotalSupply {
			supply := cfg.TotalSupply
			info.TotalSupply = &supply
		}
		return json.Marshal(snip20.TokenInfoAnswer{TokenInfo: info})
	}
	return nil, contractErr("unsupported query")
}

func (p *Snip20Program) Sudo(Env, Store, json.RawMessage) (*Response, error) {
	return nil, contractErr("token has no sudo messages")
}

func statusResponse(variant string) (*Response, error) {
	data, err := json.Marshal(map[string]snip20.StatusAnswer{variant: {Status: snip20.StatusSuccess}})
	if err != nil {
		return nil, err
	}
	return &Response{Data: data}, nil
}

func balanceOf(store Store, addr string) string {
	if v, ok := store.Get(prefixBalance + addr); ok {
		return string(v)
	}
	return "0"
}

func credit(store Store, addr, amount string) error {
	if addr == "" {
		return contractErr("recipient is required")
	}
	sum, err := snip20.AddAmounts(balanceOf(store, addr), amount)
	if err != nil {
		return contractErr("%v", err)
	}
	store.Set(prefixBalance+addr, []byte(sum))
	return nil
}

func debit(store Store, addr, amount string) error {
	balance := balanceOf(store, addr)
	rest, err := snip20.SubAmounts(balance, amount)
	if err != nil {
		if verr := snip20.ValidateAmount(amount); verr != nil {
			return contractErr("%v", verr)
		}
		return contractErr("insufficient funds: balance=%s, required=%s", balance, amount)
	}
	store.Set(prefixBalance+addr, []byte(rest))
	return nil
}

func move(store Store, from, to, amount string) error {
	if err := debit(store, from, amount); err != nil {
		return err
	}
	return credit(store, to, amount)
}

func hashKey(key string) []byte {
	sum := sha256.Sum256([]byte(key))
	return sum[:]
}

func checkViewingKey(store Store, addr, key string) bool {
	stored, ok := store.Get(prefixViewingKey + addr)
	if !ok || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare(stored, hashKey(key)) == 1
}
