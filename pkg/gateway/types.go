package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/satoshispalace/contest-harness/pkg/chain"
)

// JSON-RPC 2.0 Types
// https://www.jsonrpc.org/specification

// Request represents a JSON-RPC 2.0 request
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      interface{}     `json:"id"`
}

// Response represents a JSON-RPC 2.0 response
type Response struct {
	JSONRPC string      `json:"jsonrpc"`
	Result  interface{} `json:"result,omitempty"`
	Error   *Error      `json:"error,omitempty"`
	ID      interface{} `json:"id"`
}

// rawResponse is a Response with the result left undecoded
type rawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      interface{}     `json:"id"`
}

// Error represents a JSON-RPC 2.0 error
type Error struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *Error) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s: %v", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Unwrap lets errors.Is match chain.ErrNotFound across the wire.
func (e *Error) Unwrap() error {
	if e.Code == NotFound {
		return chain.ErrNotFound
	}
	return nil
}

// Standard JSON-RPC error codes
const (
	ParseError     = -32700
	InvalidRequest = -32600
	MethodNotFound = -32601
	InvalidParams  = -32602
	InternalError  = -32603

	// Custom error codes (application-specific)
	Unauthorized = -32001
	NotFound     = -32002
	QueryFailed  = -32003
)

// Error messages
var errorMessages = map[int]string{
	ParseError:     "Parse error",
	InvalidRequest: "Invalid Request",
	MethodNotFound: "Method not found",
	InvalidParams:  "Invalid params",
	InternalError:  "Internal error",
	Unauthorized:   "Unauthorized",
	NotFound:       "Not found",
	QueryFailed:    "Query failed",
}

// NewError creates a new JSON-RPC error
func NewError(code int, data interface{}) *Error {
	msg, ok := errorMessages[code]
	if !ok {
		msg = "Unknown error"
	}
	return &Error{
		Code:    code,
		Message: msg,
		Data:    data,
	}
}

// NewErrorWithMessage creates a new JSON-RPC error with a custom message
func NewErrorWithMessage(code int, message string, data interface{}) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// Validate validates the JSON-RPC request
func (r *Request) Validate() error {
	if r.JSONRPC != "2.0" {
		return fmt.Errorf("invalid jsonrpc version: expected 2.0")
	}
	if r.Method == "" {
		return fmt.Errorf("method is required")
	}
	return nil
}

// SuccessResponse creates a successful JSON-RPC response
func SuccessResponse(id interface{}, result interface{}) *Response {
	return &Response{
		JSONRPC: "2.0",
		Result:  result,
		ID:      id,
	}
}

// ErrorResponse creates an error JSON-RPC response
func ErrorResponse(id interface{}, err *Error) *Response {
	return &Response{
		JSONRPC: "2.0",
		Error:   err,
		ID:      id,
	}
}

// =============================================================================
// RPC Methods
// =============================================================================

// Method names served by the gateway
const (
	MethodStatus         = "chain_status"
	MethodStoreCode      = "compute_storeCode"
	MethodCodeHash       = "compute_codeHashByCodeId"
	MethodInstantiate    = "compute_instantiateContract"
	MethodExecute        = "compute_executeContract"
	MethodQuery          = "compute_queryContract"
	MethodResolveContest = "dev_resolveContest"
)

// Auth headers carried by signed requests
const (
	HeaderPublicKey = "X-Public-Key"
	HeaderSignature = "X-Signature"
	HeaderTimestamp = "X-Timestamp"
)

// =============================================================================
// RPC Method Parameters
// =============================================================================

// StoreCodeParams represents parameters for compute_storeCode
type StoreCodeParams struct {
	WASMByteCode []byte `json:"wasm_byte_code" validate:"required"`
	GasLimit     uint64 `json:"gas_limit" validate:"required"`
}

// CodeHashParams represents parameters for compute_codeHashByCodeId
type CodeHashParams struct {
	CodeID string `json:"code_id" validate:"required"`
}

// InstantiateParams represents parameters for compute_instantiateContract
type InstantiateParams struct {
	CodeID   string          `json:"code_id" validate:"required"`
	CodeHash string          `json:"code_hash"`
	InitMsg  json.RawMessage `json:"init_msg" validate:"required"`
	Label    string          `json:"label" validate:"required"`
	GasLimit uint64          `json:"gas_limit" validate:"required"`
}

// ExecuteParams represents parameters for compute_executeContract
type ExecuteParams struct {
	ContractAddress string          `json:"contract_address" validate:"required"`
	CodeHash        string          `json:"code_hash"`
	Msg             json.RawMessage `json:"msg" validate:"required"`
	GasLimit        uint64          `json:"gas_limit" validate:"required"`
}

// QueryParams represents parameters for compute_queryContract
type QueryParams struct {
	ContractAddress string          `json:"contract_address" validate:"required"`
	CodeHash        string          `json:"code_hash"`
	Query           json.RawMessage `json:"query" validate:"required"`
}

// ResolveContestParams represents parameters for dev_resolveContest
type ResolveContestParams struct {
	ContestAddress string `json:"contest_address" validate:"required"`
	ContestID      uint32 `json:"contest_id"`
	OutcomeID      uint8  `json:"outcome_id"`
}

// =============================================================================
// RPC Method Results
// =============================================================================

// StatusResult represents chain status
type StatusResult struct {
	ChainID string `json:"chain_id"`
	Height  uint64 `json:"height"`
}

// CodeHashResult represents a code hash lookup result
type CodeHashResult struct {
	CodeHash string `json:"code_hash"`
}

// ResolveContestResult represents contest resolution result
type ResolveContestResult struct {
	Success bool `json:"success"`
}
