// Package contract manages the lifecycle of a single deployed contract:
// upload, instantiate, then execute and query.
package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/satoshispalace/contest-harness/internal/metrics"
	"github.com/satoshispalace/contest-harness/pkg/chain"

	"go.uber.org/zap"
)

// Gas limits for each transaction kind.
const (
	GasUpload      uint64 = 4_000_000
	GasInstantiate uint64 = 400_000
	GasExecute     uint64 = 100_000
)

// CodeInfo identifies uploaded bytecode.
type CodeInfo struct {
	CodeID   string `json:"code_id"`
	CodeHash string `json:"code_hash"`
}

// Handle is a reference to one contract. A handle built with New moves through
// Deploy and Instantiate; a handle built with Attach is ready immediately.
// A handle is not safe for concurrent use.
type Handle struct {
	client   chain.Client
	code     []byte
	codeInfo *CodeInfo
	address  string
	label    string
	logger   *zap.Logger
	labelFn  LabelFunc
}

// New creates a handle for bytecode that has not been uploaded yet.
func New(client chain.Client, code []byte, opts ...Option) *Handle {
	s := applyOptions(opts)
	return &Handle{
		client:  client,
		code:    code,
		logger:  s.logger,
		labelFn: s.label,
	}
}

// Attach creates a handle for an already running contract.
// The code id is unknown for attached handles.
func Attach(client chain.Client, address, codeHash string, opts ...Option) *Handle {
	h := New(client, nil, opts...)
	h.address = address
	h.codeInfo = &CodeInfo{CodeHash: codeHash}
	return h
}

// Deploy uploads the bytecode and records its code id and hash.
// Calling Deploy again uploads again and replaces the recorded code info.
func (h *Handle) Deploy(ctx context.Context) (err error) {
	defer observe("deploy", time.Now(), &err)

	if len(h.code) == 0 {
		return fmt.Errorf("%w: no bytecode", ErrUpload)
	}

	resp, err := h.client.StoreCode(ctx, h.code, GasUpload)
	if err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	if err := receiptError(resp); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	metrics.GasUsed.WithLabelValues("deploy").Observe(float64(resp.GasUsed))

	codeID, ok := resp.Find(chain.LogTypeMessage, chain.LogKeyCodeID)
	if !ok || codeID == "" {
		return fmt.Errorf("%w: receipt %s has no code_id", ErrUpload, resp.TxHash)
	}

	codeHash, err := h.client.CodeHashByCodeID(ctx, codeID)
	if err != nil {
		return fmt.Errorf("get code hash for code id %s: %w", codeID, err)
	}
	if codeHash == "" {
		return fmt.Errorf("%w: empty code hash for code id %s", ErrUpload, codeID)
	}

	h.codeInfo = &CodeInfo{CodeID: codeID, CodeHash: codeHash}
	h.logger.Info("Contract uploaded",
		zap.String("code_id", codeID),
		zap.String("code_hash", codeHash),
		zap.String("tx_hash", resp.TxHash))
	return nil
}

// Instantiate creates a contract instance from the uploaded code.
func (h *Handle) Instantiate(ctx context.Context, initMsg any) (err error) {
	defer observe("instantiate", time.Now(), &err)

	if h.codeInfo == nil || h.codeInfo.CodeID == "" {
		return ErrNotUploaded
	}

	raw, err := encode(initMsg)
	if err != nil {
		return err
	}

	label := h.labelFn()
	resp, err := h.client.InstantiateContract(ctx, chain.InstantiateRequest{
		CodeID:   h.codeInfo.CodeID,
		CodeHash: h.codeInfo.CodeHash,
		InitMsg:  raw,
		Label:    label,
		GasLimit: GasInstantiate,
	})
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	if err := receiptError(resp); err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	metrics.GasUsed.WithLabelValues("instantiate").Observe(float64(resp.GasUsed))

	address, ok := resp.Find(chain.LogTypeMessage, chain.LogKeyContractAddr)
	if !ok || address == "" {
		return fmt.Errorf("%w: receipt %s has no contract_address", ErrInstantiate, resp.TxHash)
	}

	h.address = address
	h.label = label
	h.logger.Info("Contract instantiated",
		zap.String("address", address),
		zap.String("label", label),
		zap.String("tx_hash", resp.TxHash))
	return nil
}

// Execute sends a state-changing message and returns the receipt.
// A receipt with a non-zero code is reported as *chain.TxError.
func (h *Handle) Execute(ctx context.Context, msg any) (resp *chain.TxResponse, err error) {
	defer observe("execute", time.Now(), &err)

	if !h.ready() {
		return nil, ErrNotReady
	}

	raw, err := encode(msg)
	if err != nil {
		return nil, err
	}

	resp, err = h.client.ExecuteContract(ctx, chain.ExecuteRequest{
		ContractAddress: h.address,
		CodeHash:        h.codeInfo.CodeHash,
		Msg:             raw,
		GasLimit:        GasExecute,
	})
	if err != nil {
		return nil, fmt.Errorf("execute: %w", err)
	}
	if err := receiptError(resp); err != nil {
		return resp, err
	}
	metrics.GasUsed.WithLabelValues("execute").Observe(float64(resp.GasUsed))

	h.logger.Debug("Contract executed",
		zap.String("address", h.address),
		zap.String("tx_hash", resp.TxHash),
		zap.Uint64("gas_used", resp.GasUsed))
	return resp, nil
}

// Query runs a read-only query and decodes the answer into out.
// A nil out discards the answer.
func (h *Handle) Query(ctx context.Context, msg any, out any) (err error) {
	defer observe("query", time.Now(), &err)

	if !h.ready() {
		return ErrNotReady
	}

	raw, err := encode(msg)
	if err != nil {
		return err
	}

	answer, err := h.client.QueryContract(ctx, chain.QueryRequest{
		ContractAddress: h.address,
		CodeHash:        h.codeInfo.CodeHash,
		Query:           raw,
	})
	if err != nil {
		return fmt.Errorf("query: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(answer, out); err != nil {
		return fmt.Errorf("%w: decode query answer: %v", ErrEncoding, err)
	}
	return nil
}

// Address returns the contract address.
func (h *Handle) Address() (string, error) {
	if h.address == "" {
		return "", ErrNotInstantiated
	}
	return h.address, nil
}

// Label returns the instantiate label, empty for attached handles.
func (h *Handle) Label() string {
	return h.label
}

// CodeInfo returns the uploaded code id and hash.
func (h *Handle) CodeInfo() (CodeInfo, error) {
	if h.codeInfo == nil {
		return CodeInfo{}, ErrNotUploaded
	}
	return *h.codeInfo, nil
}

// Ref returns address and code hash, the pair other contracts need to call this one.
func (h *Handle) Ref() (address, codeHash string, err error) {
	if !h.ready() {
		return "", "", ErrNotReady
	}
	return h.address, h.codeInfo.CodeHash, nil
}

func (h *Handle) ready() bool {
	return h.address != "" && h.codeInfo != nil && h.codeInfo.CodeHash != ""
}

func encode(msg any) (json.RawMessage, error) {
	if raw, ok := msg.(json.RawMessage); ok {
		return raw, nil
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: encode message: %v", ErrEncoding, err)
	}
	return raw, nil
}

func receiptError(resp *chain.TxResponse) error {
	if resp == nil {
		return fmt.Errorf("empty receipt")
	}
	if resp.Code != 0 {
		return &chain.TxError{TxHash: resp.TxHash, Code: resp.Code, Log: resp.RawLog}
	}
	return nil
}

func observe(op string, start time.Time, err *error) {
	metrics.ContractCallsTotal.WithLabelValues(op, metrics.Status(*err)).Inc()
	metrics.ContractCallDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
