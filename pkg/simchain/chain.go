// Package simchain is an in-memory compute chain. Uploaded bytecode is bound to Go
// programs that reproduce the contract behaviour the harness observes, so the full
// scenario runs without a network.
package simchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/satoshispalace/contest-harness/internal/metrics"
	"github.com/satoshispalace/contest-harness/pkg/chain"
	"github.com/satoshispalace/contest-harness/pkg/contract"
	"github.com/satoshispalace/contest-harness/pkg/wallet"

	"go.uber.org/zap"
)

// Result codes of failed transactions.
const (
	CodeInvalidRequest uint32 = 2
	CodeContractFailed uint32 = 3
)

const (
	maxCallDepth = 10

	gasStoreBase   = 500_000
	gasExecuteBase = 30_000
	gasPerByte     = 10
)

// Lookup errors returned by queries.
var (
	ErrUnknownContract = fmt.Errorf("contract %w", chain.ErrNotFound)
	ErrUnknownCode     = fmt.Errorf("code %w", chain.ErrNotFound)
)

type codeEntry struct {
	id      string
	hash    string
	program Program
}

type instance struct {
	address string
	code    *codeEntry
	label   string
	creator string
}

// Chain is a single-node simulated chain. It is safe for concurrent use.
type Chain struct {
	mu sync.Mutex

	chainID   string
	prefix    string
	height    uint64
	blockTime uint64

	programs  map[string]Program
	codes     map[string]*codeEntry
	instances map[string]*instance
	labels    map[string]string
	state     map[string]kv
	nextCode  uint64
	nextInst  uint64

	logger *zap.Logger
}

// New creates an empty chain.
func New(opts ...Option) *Chain {
	s := applyOptions(opts)
	return &Chain{
		chainID:   s.chainID,
		prefix:    s.prefix,
		height:    1,
		blockTime: s.blockTime,
		programs:  make(map[string]Program),
		codes:     make(map[string]*codeEntry),
		instances: make(map[string]*instance),
		labels:    make(map[string]string),
		state:     make(map[string]kv),
		nextCode:  1,
		logger:    s.logger,
	}
}

// ChainID returns the chain id.
func (c *Chain) ChainID() string {
	return c.chainID
}

// Bind registers the program that runs bytecode wasm. wasm may be gzip compressed.
// It returns the code hash the bytecode will have once uploaded.
func (c *Chain) Bind(wasm []byte, program Program) (string, error) {
	hash, err := CodeHash(wasm)
	if err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.programs[hash] = program
	c.logger.Debug("Bound program", zap.String("code_hash", hash), zap.String("program", fmt.Sprintf("%T", program)))
	return hash, nil
}

// BindByName binds wasm to a built-in program.
func (c *Chain) BindByName(wasm []byte, name string) (string, error) {
	p, err := ProgramByName(name)
	if err != nil {
		return "", err
	}
	return c.Bind(wasm, p)
}

// CodeHash returns the hex sha256 of the uncompressed bytecode.
func CodeHash(wasm []byte) (string, error) {
	raw := wasm
	if contract.IsGzip(wasm) {
		var err error
		raw, err = contract.Decompress(wasm)
		if err != nil {
			return "", err
		}
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// Height returns the current block height.
func (c *Chain) Height() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.height
}

// Time returns the block time in unix seconds.
func (c *Chain) Time() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.blockTime
}

// SetTime moves the block clock to t. The clock never goes backwards.
func (c *Chain) SetTime(t uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.blockTime {
		c.blockTime = t
	}
}

// AdvanceTime moves the block clock forward by d.
func (c *Chain) AdvanceTime(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blockTime += uint64(d / time.Second)
}

// As returns a client that signs every transaction as sender.
func (c *Chain) As(sender string) *Client {
	return &Client{chain: c, sender: sender}
}

// ClientFor is As for callers that only need the chain.Client interface.
func (c *Chain) ClientFor(sender string) chain.Client {
	return c.As(sender)
}

// NewAccount returns a fresh random account address with the chain's prefix.
func (c *Chain) NewAccount() string {
	id := uuid.New()
	sum := sha256.Sum256(id[:])
	addr, err := wallet.EncodeAddress(c.prefix, sum[:20])
	if err != nil {
		panic(err)
	}
	return addr
}

// =============================================================================
// Transactions
// =============================================================================

func (c *Chain) storeCode(sender string, wasm []byte, gasLimit uint64) *chain.TxResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	gas := min(gasLimit, gasStoreBase+uint64(len(wasm))*gasPerByte)
	hash, err := CodeHash(wasm)
	if err != nil {
		return c.failed(CodeInvalidRequest, gasLimit, gas, fmt.Errorf("invalid bytecode: %w", err))
	}
	program, ok := c.programs[hash]
	if !ok {
		return c.failed(CodeInvalidRequest, gasLimit, gas, fmt.Errorf("no program bound for code hash %s", hash))
	}

	id := strconv.FormatUint(c.nextCode, 10)
	c.nextCode++
	c.codes[id] = &codeEntry{id: id, hash: hash, program: program}

	c.logger.Info("Stored code",
		zap.String("sender", sender),
		zap.String("code_id", id),
		zap.String("code_hash", hash))

	return c.succeeded(gasLimit, gas, []chain.Log{
		{Type: chain.LogTypeMessage, Key: "action", Value: "store-code"},
		{Type: chain.LogTypeMessage, Key: "sender", Value: sender},
		{Type: chain.LogTypeMessage, Key: chain.LogKeyCodeID, Value: id},
	}, nil)
}

func (c *Chain) codeHashByCodeID(codeID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	code, ok := c.codes[codeID]
	if !ok {
		return "", fmt.Errorf("%w: code id %s", ErrUnknownCode, codeID)
	}
	return code.hash, nil
}

func (c *Chain) instantiate(sender string, req chain.InstantiateRequest) *chain.TxResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	gas := min(req.GasLimit, gasExecuteBase+uint64(len(req.InitMsg))*gasPerByte)
	code, ok := c.codes[req.CodeID]
	if !ok {
		return c.failed(CodeInvalidRequest, req.GasLimit, gas, fmt.Errorf("%w: code id %s", ErrUnknownCode, req.CodeID))
	}
	if req.CodeHash != "" && !strings.EqualFold(req.CodeHash, code.hash) {
		return c.failed(CodeInvalidRequest, req.GasLimit, gas, fmt.Errorf("code hash mismatch for code id %s", req.CodeID))
	}
	if req.Label == "" {
		return c.failed(CodeInvalidRequest, req.GasLimit, gas, fmt.Errorf("label is required"))
	}
	if existing, taken := c.labels[req.Label]; taken {
		return c.failed(CodeInvalidRequest, req.GasLimit, gas, fmt.Errorf("label %s already used by %s", req.Label, existing))
	}

	c.nextInst++
	seed := sha256.Sum256([]byte(fmt.Sprintf("%s/%s/%d", code.id, req.Label, c.nextInst)))
	addr, err := wallet.EncodeAddress(c.prefix, seed[:20])
	if err != nil {
		return c.failed(CodeInvalidRequest, req.GasLimit, gas, err)
	}
	inst := &instance{address: addr, code: code, label: req.Label, creator: sender}

	tx := newTxn(c.state)
	env := c.env(tx, sender, inst)
	resp, err := safeRun(func() (*Response, error) {
		return code.program.Instantiate(env, tx.view(addr), req.InitMsg)
	})
	if err != nil {
		return c.failed(CodeContractFailed, req.GasLimit, gas, err)
	}

	// register before sub-messages so callbacks can reach the new contract
	c.instances[addr] = inst
	logs := []chain.Log{
		{Type: chain.LogTypeMessage, Key: "action", Value: "instantiate"},
		{Type: chain.LogTypeMessage, Key: "sender", Value: sender},
		{Type: chain.LogTypeMessage, Key: chain.LogKeyCodeID, Value: code.id},
		{Type: chain.LogTypeMessage, Key: chain.LogKeyContractAddr, Value: addr},
	}
	logs = appendAttributes(logs, addr, resp)
	if err := c.dispatchAll(tx, addr, resp, 1, &logs); err != nil {
		delete(c.instances, addr)
		return c.failed(CodeContractFailed, req.GasLimit, gas, err)
	}

	tx.commit()
	c.labels[req.Label] = addr
	c.logger.Info("Instantiated contract",
		zap.String("sender", sender),
		zap.String("code_id", code.id),
		zap.String("address", addr),
		zap.String("label", req.Label))
	return c.succeeded(req.GasLimit, gas, logs, resp.Data)
}

func (c *Chain) execute(sender string, req chain.ExecuteRequest) *chain.TxResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	gas := min(req.GasLimit, gasExecuteBase+uint64(len(req.Msg))*gasPerByte)
	tx := newTxn(c.state)
	logs := []chain.Log{
		{Type: chain.LogTypeMessage, Key: "action", Value: "execute"},
		{Type: chain.LogTypeMessage, Key: "sender", Value: sender},
		{Type: chain.LogTypeMessage, Key: chain.LogKeyContractAddr, Value: req.ContractAddress},
	}
	resp, err := c.dispatch(tx, sender, req.ContractAddress, req.CodeHash, req.Msg, 0, &logs)
	if err != nil {
		code := CodeContractFailed
		if errors.Is(err, ErrUnknownContract) {
			code = CodeInvalidRequest
		}
		return c.failed(code, req.GasLimit, gas, err)
	}
	tx.commit()
	return c.succeeded(req.GasLimit, gas, logs, resp.Data)
}

func (c *Chain) query(req chain.QueryRequest) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryLocked(newTxn(c.state), req.ContractAddress, req.CodeHash, req.Query)
}

func (c *Chain) queryLocked(tx *txn, addr, codeHash string, msg json.RawMessage) (json.RawMessage, error) {
	inst, err := c.lookup(addr, codeHash)
	if err != nil {
		return nil, err
	}
	env := c.env(tx, "", inst)
	var answer json.RawMessage
	_, err = safeRun(func() (*Response, error) {
		var qerr error
		answer, qerr = inst.code.program.Query(env, tx.view(addr), msg)
		return nil, qerr
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", addr, err)
	}
	return answer, nil
}

// sudo runs a privileged message and commits it as its own block.
func (c *Chain) sudo(addr string, msg json.RawMessage) error {
	inst, err := c.lookup(addr, "")
	if err != nil {
		return err
	}
	tx := newTxn(c.state)
	env := c.env(tx, "", inst)
	resp, err := safeRun(func() (*Response, error) {
		return inst.code.program.Sudo(env, tx.view(addr), msg)
	})
	if err != nil {
		return err
	}
	var logs []chain.Log
	if err := c.dispatchAll(tx, addr, resp, 1, &logs); err != nil {
		return err
	}
	tx.commit()
	c.nextBlock()
	return nil
}

func (c *Chain) dispatch(tx *txn, sender, addr, codeHash string, msg json.RawMessage, depth int, logs *[]chain.Log) (*Response, error) {
	if depth > maxCallDepth {
		return nil, contractErr("maximum call depth exceeded")
	}
	inst, err := c.lookup(addr, codeHash)
	if err != nil {
		return nil, err
	}
	env := c.env(tx, sender, inst)
	resp, err := safeRun(func() (*Response, error) {
		return inst.code.program.Execute(env, tx.view(addr), msg)
	})
	if err != nil {
		return nil, fmt.Errorf("execute %s: %w", addr, err)
	}
	*logs = appendAttributes(*logs, addr, resp)
	if err := c.dispatchAll(tx, addr, resp, depth+1, logs); err != nil {
		return nil, err
	}
	return resp, nil
}

func (c *Chain) dispatchAll(tx *txn, sender string, resp *Response, depth int, logs *[]chain.Log) error {
	if resp == nil {
		return nil
	}
	for _, sub := range resp.Messages {
		if _, err := c.dispatch(tx, sender, sub.Contract, sub.CodeHash, sub.Msg, depth, logs); err != nil {
			return err
		}
	}
	return nil
}

func (c *Chain) lookup(addr, codeHash string) (*instance, error) {
	inst, ok := c.instances[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContract, addr)
	}
	if codeHash != "" && !strings.EqualFold(codeHash, inst.code.hash) {
		return nil, contractErr("code hash mismatch for %s", addr)
	}
	return inst, nil
}

func (c *Chain) env(tx *txn, sender string, inst *instance) Env {
	return Env{
		BlockHeight: c.height,
		BlockTime:   c.blockTime,
		Sender:      sender,
		Contract:    inst.address,
		CodeHash:    inst.code.hash,
		querier:     txQuerier{chain: c, tx: tx},
	}
}

func (c *Chain) nextBlock() {
	c.height++
	metrics.BlockHeight.Set(float64(c.height))
}

func (c *Chain) succeeded(gasLimit, gasUsed uint64, logs []chain.Log, data []byte) *chain.TxResponse {
	c.nextBlock()
	return &chain.TxResponse{
		TxHash:    newTxHash(),
		Logs:      logs,
		Data:      data,
		GasWanted: gasLimit,
		GasUsed:   gasUsed,
	}
}

func (c *Chain) failed(code uint32, gasLimit, gasUsed uint64, err error) *chain.TxResponse {
	c.nextBlock()
	resp := &chain.TxResponse{
		TxHash:    newTxHash(),
		Code:      code,
		RawLog:    err.Error(),
		GasWanted: gasLimit,
		GasUsed:   gasUsed,
	}
	c.logger.Debug("Transaction failed",
		zap.String("tx_hash", resp.TxHash),
		zap.Uint32("code", code),
		zap.Error(err))
	return resp
}

type txQuerier struct {
	chain *Chain
	tx    *txn
}

func (q txQuerier) query(addr, codeHash string, msg json.RawMessage) (json.RawMessage, error) {
	return q.chain.queryLocked(q.tx, addr, codeHash, msg)
}

func appendAttributes(logs []chain.Log, addr string, resp *Response) []chain.Log {
	if resp == nil || len(resp.Attributes) == 0 {
		return logs
	}
	logs = append(logs, chain.Log{Type: "wasm", Key: chain.LogKeyContractAddr, Value: addr})
	for _, a := range resp.Attributes {
		logs = append(logs, chain.Log{Type: "wasm", Key: a.Key, Value: a.Value})
	}
	return logs
}

func safeRun(fn func() (*Response, error)) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = contractErr("program panicked: %v", r)
		}
	}()
	resp, err = fn()
	if err == nil && resp == nil {
		resp = &Response{}
	}
	return resp, err
}

func newTxHash() string {
	id := uuid.New()
	sum := sha256.Sum256(id[:])
	return strings.ToUpper(hex.EncodeToString(sum[:]))
}
