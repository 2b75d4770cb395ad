package snip20

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"

	"github.com/satoshispalace/contest-harness/pkg/chain"
)

// mockChain is a testify mock of chain.Client
type mockChain struct {
	mock.Mock
}

func (m *mockChain) StoreCode(ctx context.Context, wasm []byte, gasLimit uint64) (*chain.TxResponse, error) {
	args := m.Called(ctx, wasm, gasLimit)
	resp, _ := args.Get(0).(*chain.TxResponse)
	return resp, args.Error(1)
}

func (m *mockChain) CodeHashByCodeID(ctx context.Context, codeID string) (string, error) {
	args := m.Called(ctx, codeID)
	return args.String(0), args.Error(1)
}

func (m *mockChain) InstantiateContract(ctx context.Context, req chain.InstantiateRequest) (*chain.TxResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*chain.TxResponse)
	return resp, args.Error(1)
}

func (m *mockChain) ExecuteContract(ctx context.Context, req chain.ExecuteRequest) (*chain.TxResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*chain.TxResponse)
	return resp, args.Error(1)
}

func (m *mockChain) QueryContract(ctx context.Context, req chain.QueryRequest) (json.RawMessage, error) {
	args := m.Called(ctx, req)
	raw, _ := args.Get(0).(json.RawMessage)
	return raw, args.Error(1)
}
