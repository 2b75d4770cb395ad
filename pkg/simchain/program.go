package simchain

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Program names accepted by Bind.
const (
	ProgramSnip20  = "snip20"
	ProgramContest = "contest"
)

// ErrUnknownProgram is returned when binding code to a program name that does not exist.
var ErrUnknownProgram = errors.New("unknown program")

// Env is the context a program runs in.
type Env struct {
	BlockHeight uint64
	BlockTime   uint64
	Sender      string
	Contract    string
	CodeHash    string

	querier Querier
}

// Query runs a query against another contract in the same block.
func (e Env) Query(contractAddr, codeHash string, msg any, out any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	answer, err := e.querier.query(contractAddr, codeHash, raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(answer, out)
}

// Querier resolves cross-contract queries.
type Querier interface {
	query(contractAddr, codeHash string, msg json.RawMessage) (json.RawMessage, error)
}

// SubMsg is a contract call a program asks the chain to run after it returns.
// It runs with the emitting contract as sender, inside the same transaction.
type SubMsg struct {
	Contract string
	CodeHash string
	Msg      json.RawMessage
}

// Attribute is a key/value event attribute emitted by a program.
type Attribute struct {
	Key   string
	Value string
}

// Response is the result of instantiate, execute or sudo.
type Response struct {
	Messages   []SubMsg
	Attributes []Attribute
	Data       []byte
}

func (r *Response) call(contract, codeHash string, msg any) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	r.Messages = append(r.Messages, SubMsg{Contract: contract, CodeHash: codeHash, Msg: raw})
	return nil
}

func (r *Response) attr(key, value string) {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
}

// Program is the Go rendition of a contract bound to uploaded bytecode.
type Program interface {
	Instantiate(env Env, store Store, msg json.RawMessage) (*Response, error)
	Execute(env Env, store Store, msg json.RawMessage) (*Response, error)
	Query(env Env, store Store, msg json.RawMessage) (json.RawMessage, error)
	// Sudo runs privileged messages only the chain itself can send.
	Sudo(env Env, store Store, msg json.RawMessage) (*Response, error)
}

// ProgramByName returns a new instance of a built-in program.
func ProgramByName(name string) (Program, error) {
	switch name {
	case ProgramSnip20:
		return &Snip20Program{}, nil
	case ProgramContest:
		return &ContestProgram{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, name)
	}
}

// ContractError is a failure raised by program logic. It fails the transaction
// without being an infrastructure error.
type ContractError struct {
	Msg string
}

func (e *ContractError) Error() string {
	return e.Msg
}

func contractErr(format string, args ...any) error {
	return &ContractError{Msg: fmt.Sprintf(format, args...)}
}

func decodeMsg(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err != nil {
		return contractErr("parse error: %v", err)
	}
	return nil
}
