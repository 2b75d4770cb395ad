package contract

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/satoshispalace/contest-harness/pkg/chain"

	"github.com/stretchr/testify/mock"
)

// MockChainClient is a testify mock of chain.Client. Return values may be given
// directly or as a function with the method's signature.
type MockChainClient struct {
	mock.Mock
}

// NewMockChainClient creates a mock that asserts its expectations when t ends.
func NewMockChainClient(t *testing.T) *MockChainClient {
	m := &MockChainClient{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockChainClient) StoreCode(ctx context.Context, wasm []byte, gasLimit uint64) (*chain.TxResponse, error) {
	ret := m.Called(ctx, wasm, gasLimit)
	if rf, ok := ret.Get(0).(func(context.Context, []byte, uint64) (*chain.TxResponse, error)); ok {
		return rf(ctx, wasm, gasLimit)
	}
	return txResponse(ret), ret.Error(1)
}

func (m *MockChainClient) CodeHashByCodeID(ctx context.Context, codeID string) (string, error) {
	ret := m.Called(ctx, codeID)
	if rf, ok := ret.Get(0).(func(context.Context, string) (string, error)); ok {
		return rf(ctx, codeID)
	}
	return ret.String(0), ret.Error(1)
}

func (m *MockChainClient) InstantiateContract(ctx context.Context, req chain.InstantiateRequest) (*chain.TxResponse, error) {
	ret := m.Called(ctx, req)
	if rf, ok := ret.Get(0).(func(context.Context, chain.InstantiateRequest) (*chain.TxResponse, error)); ok {
		return rf(ctx, req)
	}
	return txResponse(ret), ret.Error(1)
}

func (m *MockChainClient) ExecuteContract(ctx context.Context, req chain.ExecuteRequest) (*chain.TxResponse, error) {
	ret := m.Called(ctx, req)
	if rf, ok := ret.Get(0).(func(context.Context, chain.ExecuteRequest) (*chain.TxResponse, error)); ok {
		return rf(ctx, req)
	}
	return txResponse(ret), ret.Error(1)
}

func (m *MockChainClient) QueryContract(ctx context.Context, req chain.QueryRequest) (json.RawMessage, error) {
	ret := m.Called(ctx, req)
	if rf, ok := ret.Get(0).(func(context.Context, chain.QueryRequest) (json.RawMessage, error)); ok {
		return rf(ctx, req)
	}
	var raw json.RawMessage
	if v := ret.Get(0); v != nil {
		raw = v.(json.RawMessage)
	}
	return raw, ret.Error(1)
}

func txResponse(ret mock.Arguments) *chain.TxResponse {
	if v := ret.Get(0); v != nil {
		return v.(*chain.TxResponse)
	}
	return nil
}
