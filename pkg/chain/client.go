// Package chain defines the boundary between the harness and a CosmWasm compute chain.
// Signing, broadcasting, payload encryption and transport live behind Client.
package chain

import (
	"context"
	"encoding/json"
)

// Client is the set of compute module operations the harness relies on.
// All transactions are signed by the wallet the client was built with.
type Client interface {
	// StoreCode uploads compressed contract bytecode.
	StoreCode(ctx context.Context, wasm []byte, gasLimit uint64) (*TxResponse, error)

	// CodeHashByCodeID returns the hex code hash registered for a code id.
	CodeHashByCodeID(ctx context.Context, codeID string) (string, error)

	// InstantiateContract creates a new contract instance.
	InstantiateContract(ctx context.Context, req InstantiateRequest) (*TxResponse, error)

	// ExecuteContract runs a state-changing message.
	ExecuteContract(ctx context.Context, req ExecuteRequest) (*TxResponse, error)

	// QueryContract runs a read-only query and returns the raw JSON answer.
	QueryContract(ctx context.Context, req QueryRequest) (json.RawMessage, error)
}

// Resolver settles a contest outcome on chains that allow it outside of an oracle,
// such as the simulated chain used for local runs.
type Resolver interface {
	ResolveContest(ctx context.Context, contestAddress string, contestID uint32, outcomeID uint8) error
}
