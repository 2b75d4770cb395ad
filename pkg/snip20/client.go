// Package snip20 implements the SNIP-20 token operations the harness drives:
// mint, send, transfer, viewing keys and balance queries.
package snip20

import (
	"context"
	"errors"
	"fmt"

	"github.com/satoshispalace/contest-harness/pkg/chain"
	"github.com/satoshispalace/contest-harness/pkg/contract"

	"go.uber.org/zap"
)

// ErrViewingKey is returned when the token rejects the viewing key of a balance query.
var ErrViewingKey = errors.New("viewing key rejected")

// Token defines SNIP-20 token operations.
type Token interface {
	// Mint creates amount tokens for recipient. The wallet must be a minter.
	Mint(ctx context.Context, recipient, amount string) (*chain.TxResponse, error)

	// Transfer moves amount tokens to recipient without a callback.
	Transfer(ctx context.Context, recipient, amount string) (*chain.TxResponse, error)

	// Send moves amount tokens to a contract and passes msg to its receive handler verbatim.
	Send(ctx context.Context, recipient, recipientCodeHash, amount, msg string) (*chain.TxResponse, error)

	// SendPayload encodes payload with EncodeSendPayload and sends it to recipient.
	SendPayload(ctx context.Context, recipient *contract.Handle, payload any, amount string) (*chain.TxResponse, error)

	// Balance returns the balance of address authenticated by viewingKey.
	Balance(ctx context.Context, address, viewingKey string) (string, error)

	// SetViewingKey sets the wallet's viewing key.
	SetViewingKey(ctx context.Context, key string) error

	// CreateViewingKey derives a viewing key on chain from entropy and returns it.
	CreateViewingKey(ctx context.Context, entropy string) (string, error)

	// TokenInfo returns public token metadata.
	TokenInfo(ctx context.Context) (*TokenInfo, error)
}

// Client implements Token on top of a contract handle.
type Client struct {
	handle *contract.Handle
	logger *zap.Logger
}

// New creates a token client for an instantiated or attached handle.
func New(h *contract.Handle, opts ...Option) (*Client, error) {
	if h == nil {
		return nil, fmt.Errorf("nil contract handle")
	}
	s := applyOptions(opts)
	return &Client{handle: h, logger: s.logger}, nil
}

// Handle returns the underlying contract handle.
func (c *Client) Handle() *contract.Handle {
	return c.handle
}

func (c *Client) Mint(ctx context.Context, recipient, amount string) (*chain.TxResponse, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	resp, err := c.handle.Execute(ctx, ExecuteMsg{Mint: &Mint{Recipient: recipient, Amount: amount}})
	if err != nil {
		return nil, fmt.Errorf("mint: %w", err)
	}
	c.logger.Info("Minted tokens",
		zap.String("recipient", recipient),
		zap.String("amount", amount),
		zap.String("tx_hash", resp.TxHash))
	return resp, nil
}

func (c *Client) Transfer(ctx context.Context, recipient, amount string) (*chain.TxResponse, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	resp, err := c.handle.Execute(ctx, ExecuteMsg{Transfer: &Transfer{Recipient: recipient, Amount: amount}})
	if err != nil {
		return nil, fmt.Errorf("transfer: %w", err)
	}
	return resp, nil
}

func (c *Client) Send(ctx context.Context, recipient, recipientCodeHash, amount, msg string) (*chain.TxResponse, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	resp, err := c.handle.Execute(ctx, ExecuteMsg{Send: &Send{
		Recipient:         recipient,
		RecipientCodeHash: recipientCodeHash,
		Amount:            amount,
		Msg:               msg,
	}})
	if err != nil {
		return nil, fmt.Errorf("send: %w", err)
	}
	c.logger.Info("Sent tokens",
		zap.String("recipient", recipient),
		zap.String("amount", amount),
		zap.String("tx_hash", resp.TxHash))
	return resp, nil
}

func (c *Client) SendPayload(ctx context.Context, recipient *contract.Handle, payload any, amount string) (*chain.TxResponse, error) {
	if recipient == nil {
		return nil, fmt.Errorf("nil recipient handle")
	}
	addr, codeHash, err := recipient.Ref()
	if err != nil {
		return nil, err
	}
	msg, err := EncodeSendPayload(payload)
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, addr, codeHash, amount, msg)
}

func (c *Client) Balance(ctx context.Context, address, viewingKey string) (string, error) {
	var answer BalanceAnswer
	err := c.handle.Query(ctx, QueryMsg{Balance: &BalanceQuery{Address: address, Key: viewingKey}}, &answer)
	if err != nil {
		return "", fmt.Errorf("balance: %w", err)
	}
	if answer.ViewingKeyError != nil {
		return "", fmt.Errorf("%w: %s", ErrViewingKey, answer.ViewingKeyError.Msg)
	}
	if answer.Balance == nil {
		return "", fmt.Errorf("%w: balance answer has no amount", contract.ErrEncoding)
	}
	return answer.Balance.Amount, nil
}

func (c *Client) SetViewingKey(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("viewing key is required")
	}
	if _, err := c.handle.Execute(ctx, ExecuteMsg{SetViewingKey: &SetViewingKey{Key: key}}); err != nil {
		return fmt.Errorf("set viewing key: %w", err)
	}
	return nil
}

// CreateViewingKey asks the token to derive a key from entropy and decodes it from the receipt.
//
// Deprecated: use NewViewingKey with SetViewingKey.
func (c *Client) CreateViewingKey(ctx context.Context, entropy string) (string, error) {
	resp, err := c.handle.Execute(ctx, ExecuteMsg{CreateViewingKey: &CreateViewingKey{Entropy: entropy}})
	if err != nil {
		return "", fmt.Errorf("create viewing key: %w", err)
	}
	return decodeCreatedKey(resp.Data)
}

func (c *Client) TokenInfo(ctx context.Context) (*TokenInfo, error) {
	var answer TokenInfoAnswer
	if err := c.handle.Query(ctx, QueryMsg{TokenInfo: &TokenInfoQuery{}}, &answer); err != nil {
		return nil, fmt.Errorf("token info: %w", err)
	}
	return &answer.TokenInfo, nil
}
