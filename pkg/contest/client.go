// Package contest drives the prediction-market contest contract: token
// registration, contest creation and bet payloads, queries and claims.
package contest

import (
	"context"
	"fmt"

	"github.com/satoshispalace/contest-harness/pkg/chain"
	"github.com/satoshispalace/contest-harness/pkg/contract"

	"go.uber.org/zap"
)

// Contest defines contest contract operations.
type Contest interface {
	// Register records the token at tokenAddress as an accepted currency.
	Register(ctx context.Context, tokenAddress, tokenCodeHash string) (*chain.TxResponse, error)

	// GetContestCreationPayload returns the token send message that creates info.
	GetContestCreationPayload(ctx context.Context, info ContestInfo, signatureHex string, outcomeID uint8) (*SendPayload, error)

	// GetBetPayload returns the token send message that bets on outcomeID.
	GetBetPayload(ctx context.Context, contestID uint32, outcomeID uint8) (*SendPayload, error)

	// GetContest returns a contest and its bet summary.
	GetContest(ctx context.Context, contestID uint32) (*ContestResponse, error)

	// GetContests returns the known contests among ids.
	GetContests(ctx context.Context, contestIDs []uint32) ([]ContestResponse, error)

	// ListRegisteredTokens returns every registered token.
	ListRegisteredTokens(ctx context.Context) ([]TokenRef, error)

	// GetUserBet returns the bet of user on a contest.
	GetUserBet(ctx context.Context, user string, contestID uint32, viewingKey string) (*Bet, error)

	// ClaimReward pays out the wallet's winnings.
	ClaimReward(ctx context.Context, contestID uint32) (*chain.TxResponse, error)
}

// Client implements Contest on top of a contract handle.
type Client struct {
	handle *contract.Handle
	logger *zap.Logger
}

// New creates a contest client for an instantiated or attached handle.
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

func (c *Client) Register(ctx context.Context, tokenAddress, tokenCodeHash string) (*chain.TxResponse, error) {
	resp, err := c.handle.Execute(ctx, ExecuteMsg{Register: &Register{RegAddr: tokenAddress, RegHash: tokenCodeHash}})
	if err != nil {
		return nil, fmt.Errorf("register token: %w", err)
	}
	c.logger.Info("Registered token with contest",
		zap.String("token", tokenAddress),
		zap.String("tx_hash", resp.TxHash))
	return resp, nil
}

func (c *Client) GetContestCreationPayload(ctx context.Context, info ContestInfo, signatureHex string, outcomeID uint8) (*SendPayload, error) {
	q := QueryMsg{GetContestCreationMsgBinary: &GetContestCreationMsgBinary{
		ContestInfo:             info,
		ContestInfoSignatureHex: signatureHex,
		OutcomeID:               outcomeID,
	}}
	return c.sendPayload(ctx, q, "contest creation")
}

func (c *Client) GetBetPayload(ctx context.Context, contestID uint32, outcomeID uint8) (*SendPayload, error) {
	q := QueryMsg{GetBetContestMsgBinary: &GetBetContestMsgBinary{ContestID: contestID, OutcomeID: outcomeID}}
	return c.sendPayload(ctx, q, "bet")
}

func (c *Client) sendPayload(ctx context.Context, q QueryMsg, what string) (*SendPayload, error) {
	var answer SendAnswer
	if err := c.handle.Query(ctx, q, &answer); err != nil {
		return nil, fmt.Errorf("get %s payload: %w", what, err)
	}
	if answer.Send == nil || answer.Send.Msg == "" {
		return nil, fmt.Errorf("%w: %s payload has no send.msg", contract.ErrEncoding, what)
	}
	return answer.Send, nil
}

func (c *Client) GetContest(ctx context.Context, contestID uint32) (*ContestResponse, error) {
	var answer ContestResponse
	if err := c.handle.Query(ctx, QueryMsg{GetContest: &GetContest{ContestID: contestID}}, &answer); err != nil {
		return nil, fmt.Errorf("get contest %d: %w", contestID, err)
	}
	return &answer, nil
}

func (c *Client) GetContests(ctx context.Context, contestIDs []uint32) ([]ContestResponse, error) {
	var answer ContestsResponse
	if err := c.handle.Query(ctx, QueryMsg{GetContests: &GetContests{ContestIDs: contestIDs}}, &answer); err != nil {
		return nil, fmt.Errorf("get contests: %w", err)
	}
	return answer.Contests, nil
}

func (c *Client) ListRegisteredTokens(ctx context.Context) ([]TokenRef, error) {
	var answer Snip20sResponse
	if err := c.handle.Query(ctx, QueryMsg{GetSnip20s: &GetSnip20s{}}, &answer); err != nil {
		return nil, fmt.Errorf("list registered tokens: %w", err)
	}
	return answer.Snip20s, nil
}

func (c *Client) GetUserBet(ctx context.Context, user string, contestID uint32, viewingKey string) (*Bet, error) {
	q := QueryMsg{GetUserBet: &GetUserBet{
		UserContest: UserContest{Address: user, ContestID: contestID},
		Key:         viewingKey,
	}}
	var answer UserBetResponse
	if err := c.handle.Query(ctx, q, &answer); err != nil {
		return nil, fmt.Errorf("get user bet: %w", err)
	}
	return &answer.Bet, nil
}

func (c *Client) ClaimReward(ctx context.Context, contestID uint32) (*chain.TxResponse, error) {
	resp, err := c.handle.Execute(ctx, ExecuteMsg{Claim: &Claim{ContestID: contestID}})
	if err != nil {
		return nil, fmt.Errorf("claim contest %d: %w", contestID, err)
	}
	c.logger.Info("Claimed reward",
		zap.Uint32("contest_id", contestID),
		zap.String("tx_hash", resp.TxHash))
	return resp, nil
}
