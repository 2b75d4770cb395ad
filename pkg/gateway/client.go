package gateway

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/satoshispalace/contest-harness/pkg/chain"
	"go.uber.org/zap"
)

const bearerTTL = 5 * time.Minute

var (
	_ chain.Client   = (*Client)(nil)
	_ chain.Resolver = (*Client)(nil)
)

// Signer signs request bodies on behalf of an account.
// *wallet.Wallet satisfies it.
type Signer interface {
	Address() string
	PublicKey() []byte
	Sign(msg []byte) ([]byte, error)
}

// Client talks to a gateway over JSON-RPC and signs every request with its wallet.
type Client struct {
	url        string
	signer     Signer
	httpClient *http.Client
	jwtSecret  []byte
	logger     *zap.Logger
}

// NewClient creates a gateway client for the JSON-RPC endpoint at url.
func NewClient(url string, signer Signer, opts ...ClientOption) (*Client, error) {
	if url == "" {
		return nil, errors.New("gateway url is required")
	}
	if signer == nil {
		return nil, errors.New("signer is required")
	}
	o := clientOptions{logger: zap.NewNop(), httpClient: &http.Client{Timeout: 30 * time.Second}}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Client{
		url:        strings.TrimSuffix(url, "/"),
		signer:     signer,
		httpClient: o.httpClient,
		jwtSecret:  o.jwtSecret,
		logger:     o.logger,
	}, nil
}

// Status returns the chain id and height reported by the gateway.
func (c *Client) Status(ctx context.Context) (*StatusResult, error) {
	var out StatusResult
	if err := c.call(ctx, MethodStatus, struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// StoreCode implements chain.Client.
func (c *Client) StoreCode(ctx context.Context, wasm []byte, gasLimit uint64) (*chain.TxResponse, error) {
	var out chain.TxResponse
	if err := c.call(ctx, MethodStoreCode, StoreCodeParams{WASMByteCode: wasm, GasLimit: gasLimit}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CodeHashByCodeID implements chain.Client.
func (c *Client) CodeHashByCodeID(ctx context.Context, codeID string) (string, error) {
	var out CodeHashResult
	if err := c.call(ctx, MethodCodeHash, CodeHashParams{CodeID: codeID}, &out); err != nil {
		return "", err
	}
	return out.CodeHash, nil
}

// InstantiateContract implements chain.Client.
func (c *Client) InstantiateContract(ctx context.Context, req chain.InstantiateRequest) (*chain.TxResponse, error) {
	var out chain.TxResponse
	params := InstantiateParams{
		CodeID:   req.CodeID,
		CodeHash: req.CodeHash,
		InitMsg:  req.InitMsg,
		Label:    req.Label,
		GasLimit: req.GasLimit,
	}
	if err := c.call(ctx, MethodInstantiate, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecuteContract implements chain.Client.
func (c *Client) ExecuteContract(ctx context.Context, req chain.ExecuteRequest) (*chain.TxResponse, error) {
	var out chain.TxResponse
	params := ExecuteParams{
		ContractAddress: req.ContractAddress,
		CodeHash:        req.CodeHash,
		Msg:             req.Msg,
		GasLimit:        req.GasLimit,
	}
	if err := c.call(ctx, MethodExecute, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// QueryContract implements chain.Client.
func (c *Client) QueryContract(ctx context.Context, req chain.QueryRequest) (json.RawMessage, error) {
	var out json.RawMessage
	params := QueryParams{
		ContractAddress: req.ContractAddress,
		CodeHash:        req.CodeHash,
		Query:           req.Query,
	}
	if err := c.call(ctx, MethodQuery, params, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ResolveContest implements chain.Resolver.
func (c *Client) ResolveContest(ctx context.Context, contestAddress string, contestID uint32, outcomeID uint8) error {
	var out ResolveContestResult
	params := ResolveContestParams{ContestAddress: contestAddress, ContestID: contestID, OutcomeID: outcomeID}
	if err := c.call(ctx, MethodResolveContest, params, &out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("resolve contest %d: not applied", contestID)
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal %s params: %w", method, err)
	}
	body, err := json.Marshal(Request{
		JSONRPC: "2.0",
		Method:  method,
		Params:  rawParams,
		ID:      uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/rpc", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(req, body); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s returned HTTP %d: %s", method, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var rpcResp rawResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return fmt.Errorf("decode %s response: %w", method, err)
	}
	if rpcResp.Error != nil {
		c.logger.Debug("RPC call returned error",
			zap.String("method", method),
			zap.Int("code", rpcResp.Error.Code),
			zap.String("message", rpcResp.Error.Message))
		return rpcResp.Error
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// authorize signs the body and attaches the bearer token when configured.
func (c *Client) authorize(req *http.Request, body []byte) error {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig, err := c.signer.Sign(SignedPayload(ts, body))
	if err != nil {
		return fmt.Errorf("sign request: %w", err)
	}
	req.Header.Set(HeaderPublicKey, hex.EncodeToString(c.signer.PublicKey()))
	req.Header.Set(HeaderSignature, hex.EncodeToString(sig))
	req.Header.Set(HeaderTimestamp, ts)

	if len(c.jwtSecret) > 0 {
		token, err := NewBearerToken(c.jwtSecret, c.signer.Address(), bearerTTL)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return nil
}
