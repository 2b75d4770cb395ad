package chain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned for unknown code ids and contract addresses.
var ErrNotFound = errors.New("not found")

// Log attribute types and keys emitted by the compute module.
const (
	LogTypeMessage     = "message"
	LogKeyCodeID       = "code_id"
	LogKeyContractAddr = "contract_address"
)

// Log is a single flattened event attribute of a transaction.
type Log struct {
	Type  string `json:"type"`
	Key   string `json:"key"`
	Value string `json:"value"`
}

// TxResponse is the receipt of a broadcast transaction.
type TxResponse struct {
	TxHash    string `json:"tx_hash"`
	Code      uint32 `json:"code"`
	RawLog    string `json:"raw_log,omitempty"`
	Logs      []Log  `json:"logs,omitempty"`
	Data      []byte `json:"data,omitempty"`
	GasWanted uint64 `json:"gas_wanted"`
	GasUsed   uint64 `json:"gas_used"`
}

// Find returns the value of the first log entry with the given type and key.
func (r *TxResponse) Find(typ, key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, l := range r.Logs {
		if l.Type == typ && l.Key == key {
			return l.Value, true
		}
	}
	return "", false
}

// Succeeded reports whether the transaction was accepted.
func (r *TxResponse) Succeeded() bool {
	return r != nil && r.Code == 0
}

// TxError is returned for receipts carrying a non-zero result code.
type TxError struct {
	TxHash string
	Code   uint32
	Log    string
}

func (e *TxError) Error() string {
	return fmt.Sprintf("transaction %s failed with code %d: %s", e.TxHash, e.Code, e.Log)
}

// InstantiateRequest creates a contract instance from uploaded code.
type InstantiateRequest struct {
	CodeID   string          `json:"code_id"`
	CodeHash string          `json:"code_hash"`
	InitMsg  json.RawMessage `json:"init_msg"`
	Label    string          `json:"label"`
	GasLimit uint64          `json:"gas_limit"`
}

// ExecuteRequest runs a state-changing message against a contract.
type ExecuteRequest struct {
	ContractAddress string          `json:"contract_address"`
	CodeHash        string          `json:"code_hash"`
	Msg             json.RawMessage `json:"msg"`
	GasLimit        uint64          `json:"gas_limit"`
}

// QueryRequest runs a read-only query against a contract.
type QueryRequest struct {
	ContractAddress string          `json:"contract_address"`
	CodeHash        string          `json:"code_hash"`
	Query           json.RawMessage `json:"query"`
}
