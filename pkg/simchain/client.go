package simchain

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/satoshispalace/contest-harness/pkg/chain"
	"github.com/satoshispalace/contest-harness/pkg/contest"

	"go.uber.org/zap"
)

var (
	_ chain.Client   = (*Client)(nil)
	_ chain.Resolver = (*Client)(nil)
	_ chain.Resolver = (*Chain)(nil)
)

// Client is a chain.Client that signs every transaction as one account.
type Client struct {
	chain  *Chain
	sender string
}

// Sender returns the account the client transacts as.
func (c *Client) Sender() string {
	return c.sender
}

func (c *Client) StoreCode(ctx context.Context, wasm []byte, gasLimit uint64) (*chain.TxResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.chain.storeCode(c.sender, wasm, gasLimit), nil
}

func (c *Client) CodeHashByCodeID(ctx context.Context, codeID string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.chain.codeHashByCodeID(codeID)
}

func (c *Client) InstantiateContract(ctx context.Context, req chain.InstantiateRequest) (*chain.TxResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.chain.instantiate(c.sender, req), nil
}

func (c *Client) ExecuteContract(ctx context.Context, req chain.ExecuteRequest) (*chain.TxResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.chain.execute(c.sender, req), nil
}

func (c *Client) QueryContract(ctx context.Context, req chain.QueryRequest) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.chain.query(req)
}

func (c *Client) ResolveContest(ctx context.Context, contestAddress string, contestID uint32, outcomeID uint8) error {
	return c.chain.ResolveContest(ctx, contestAddress, contestID, outcomeID)
}

// ResolveContest moves the clock to the contest's resolve time if needed and sets
// its result, standing in for the oracle.
func (c *Chain) ResolveContest(ctx context.Context, contestAddress string, contestID uint32, outcomeID uint8) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	q, err := json.Marshal(contest.QueryMsg{GetContest: &contest.GetContest{ContestID: contestID}})
	if err != nil {
		return err
	}
	raw, err := c.queryLocked(newTxn(c.state), contestAddress, "", q)
	if err != nil {
		return fmt.Errorf("resolve contest %d: %w", contestID, err)
	}
	var info contest.ContestResponse
	if err := json.Unmarshal(raw, &info); err != nil {
		return fmt.Errorf("resolve contest %d: %w", contestID, err)
	}
	if c.blockTime < info.ContestInfo.TimeOfResolve {
		c.blockTime = info.ContestInfo.TimeOfResolve
	}

	msg, err := json.Marshal(SudoMsg{SetResult: &SetResult{ContestID: contestID, OutcomeID: outcomeID}})
	if err != nil {
		return err
	}
	if err := c.sudo(contestAddress, msg); err != nil {
		return fmt.Errorf("resolve contest %d: %w", contestID, err)
	}
	c.logger.Info("Resolved contest",
		zap.String("contest", contestAddress),
		zap.Uint32("contest_id", contestID),
		zap.Uint8("outcome_id", outcomeID))
	return nil
}
