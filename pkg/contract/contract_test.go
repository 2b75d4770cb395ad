package contract

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/satoshispalace/contest-harness/pkg/chain"

	"github.com/stretchr/testify/mock"
)

func storeReceipt(codeID string) *chain.TxResponse {
	return &chain.TxResponse{
		TxHash: "STORE",
		Logs: []chain.Log{
			{Type: "wasm", Key: "code_id", Value: "bogus"},
			{Type: chain.LogTypeMessage, Key: "action", Value: "/secret.compute.v1beta1.MsgStoreCode"},
			{Type: chain.LogTypeMessage, Key: chain.LogKeyCodeID, Value: codeID},
		},
	}
}

func instantiateReceipt(addr string) *chain.TxResponse {
	return &chain.TxResponse{
		TxHash: "INIT",
		Logs:   []chain.Log{{Type: chain.LogTypeMessage, Key: chain.LogKeyContractAddr, Value: addr}},
	}
}

// expectDeploy wires a successful upload and instantiate; every upload gets the next code id.
func expectDeploy(m *MockChainClient, addr string) {
	next := 0
	m.On("StoreCode", mock.Anything, mock.Anything, mock.Anything).
		Return(func(context.Context, []byte, uint64) (*chain.TxResponse, error) {
			next++
			return storeReceipt(strconv.Itoa(next)), nil
		})
	m.On("CodeHashByCodeID", mock.Anything, mock.Anything).
		Return(func(_ context.Context, codeID string) (string, error) {
			return "hash-" + codeID, nil
		})
	m.On("InstantiateContract", mock.Anything, mock.Anything).
		Return(instantiateReceipt(addr), nil).
		Maybe()
}

func TestHandle_PreconditionsBeforeInstantiate(t *testing.T) {
	ctx := context.Background()
	m := NewMockChainClient(t)
	expectDeploy(m, "secret1contract")
	m.On("ExecuteContract", mock.Anything, mock.Anything).Return(&chain.TxResponse{TxHash: "EXEC"}, nil).Once()
	m.On("QueryContract", mock.Anything, mock.Anything).Return(json.RawMessage(`{}`), nil).Once()
	h := New(m, []byte("code"))

	if _, err := h.Execute(ctx, map[string]any{"x": 1}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Execute() before deploy error = %v, want ErrNotReady", err)
	}
	if err := h.Query(ctx, map[string]any{"x": 1}, nil); !errors.Is(err, ErrPrecondition) {
		t.Fatalf("Query() before deploy error = %v, want ErrPrecondition", err)
	}
	if err := h.Instantiate(ctx, map[string]any{}); !errors.Is(err, ErrNotUploaded) {
		t.Fatalf("Instantiate() before deploy error = %v, want ErrNotUploaded", err)
	}
	if _, err := h.Address(); !errors.Is(err, ErrNotInstantiated) {
		t.Fatalf("Address() error = %v, want ErrNotInstantiated", err)
	}

	if err := h.Deploy(ctx); err != nil {
		t.Fatalf("Deploy() failed: %v", err)
	}
	if _, err := h.Execute(ctx, map[string]any{"x": 1}); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Execute() after deploy error = %v, want ErrNotReady", err)
	}

	if err := h.Instantiate(ctx, map[string]any{}); err != nil {
		t.Fatalf("Instantiate() failed: %v", err)
	}
	if _, err := h.Execute(ctx, map[string]any{"x": 1}); err != nil {
		t.Fatalf("Execute() after instantiate failed: %v", err)
	}
	if err := h.Query(ctx, map[string]any{"x": 1}, nil); err != nil {
		t.Fatalf("Query() after instantiate failed: %v", err)
	}
}

func TestHandle_DeployTwiceOverwritesCodeInfo(t *testing.T) {
	ctx := context.Background()
	m := NewMockChainClient(t)
	expectDeploy(m, "secret1contract")
	h := New(m, []byte("code"))

	if err := h.Deploy(ctx); err != nil {
		t.Fatalf("first Deploy() failed: %v", err)
	}
	first, _ := h.CodeInfo()
	if err := h.Deploy(ctx); err != nil {
		t.Fatalf("second Deploy() failed: %v", err)
	}
	second, _ := h.CodeInfo()

	if first.CodeID != "1" || second.CodeID != "2" {
		t.Errorf("code ids = %q, %q; want 1, 2", first.CodeID, second.CodeID)
	}
	if second.CodeHash != "hash-2" {
		t.Errorf("code hash = %q, want hash-2", second.CodeHash)
	}
	m.AssertNumberOfCalls(t, "StoreCode", 2)
}

func TestHandle_DeployMissingCodeID(t *testing.T) {
	m := NewMockChainClient(t)
	m.On("StoreCode", mock.Anything, mock.Anything, mock.Anything).
		Return(&chain.TxResponse{TxHash: "X", Logs: []chain.Log{{Type: "wasm", Key: "code_id", Value: "7"}}}, nil)
	h := New(m, []byte("code"))

	err := h.Deploy(context.Background())
	if !errors.Is(err, ErrUpload) {
		t.Fatalf("Deploy() error = %v, want ErrUpload", err)
	}
	if _, err := h.CodeInfo(); !errors.Is(err, ErrNotUploaded) {
		t.Errorf("CodeInfo() after failed deploy error = %v, want ErrNotUploaded", err)
	}
	m.AssertNotCalled(t, "CodeHashByCodeID", mock.Anything, mock.Anything)
}

func TestHandle_DeployEmptyCodeHash(t *testing.T) {
	m := NewMockChainClient(t)
	m.On("StoreCode", mock.Anything, mock.Anything, mock.Anything).Return(storeReceipt("1"), nil)
	m.On("CodeHashByCodeID", mock.Anything, "1").Return("", nil)
	h := New(m, []byte("code"))

	if err := h.Deploy(context.Background()); !errors.Is(err, ErrUpload) {
		t.Fatalf("Deploy() error = %v, want ErrUpload", err)
	}
}

func TestHandle_InstantiateMissingAddress(t *testing.T) {
	m := NewMockChainClient(t)
	m.On("StoreCode", mock.Anything, mock.Anything, mock.Anything).Return(storeReceipt("1"), nil)
	m.On("CodeHashByCodeID", mock.Anything, "1").Return("hash-1", nil)
	m.On("InstantiateContract", mock.Anything, mock.Anything).Return(&chain.TxResponse{TxHash: "X"}, nil)
	h := New(m, []byte("code"))
	if err := h.Deploy(context.Background()); err != nil {
		t.Fatalf("Deploy() failed: %v", err)
	}
	if err := h.Instantiate(context.Background(), map[string]any{}); !errors.Is(err, ErrInstantiate) {
		t.Fatalf("Instantiate() error = %v, want ErrInstantiate", err)
	}
}

func TestHandle_RequestParameters(t *testing.T) {
	var (
		initReq chain.InstantiateRequest
		execReq chain.ExecuteRequest
	)
	m := NewMockChainClient(t)
	m.On("StoreCode", mock.Anything, []byte("code"), GasUpload).Return(storeReceipt("9"), nil).Once()
	m.On("CodeHashByCodeID", mock.Anything, "9").Return("hash-9", nil).Once()
	m.On("InstantiateContract", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { initReq = args.Get(1).(chain.InstantiateRequest) }).
		Return(instantiateReceipt("secret1abc"), nil).
		Once()
	m.On("ExecuteContract", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { execReq = args.Get(1).(chain.ExecuteRequest) }).
		Return(&chain.TxResponse{TxHash: "EXEC"}, nil).
		Once()

	ctx := context.Background()
	h := New(m, []byte("code"))
	if err := h.Deploy(ctx); err != nil {
		t.Fatal(err)
	}
	if err := h.Instantiate(ctx, map[string]string{"name": "x"}); err != nil {
		t.Fatal(err)
	}
	if _, err := h.Execute(ctx, map[string]any{"mint": map[string]string{"amount": "1"}}); err != nil {
		t.Fatal(err)
	}

	if initReq.GasLimit != GasInstantiate || initReq.CodeID != "9" || initReq.CodeHash != "hash-9" {
		t.Errorf("unexpected instantiate request: %+v", initReq)
	}
	if !strings.HasPrefix(initReq.Label, "SP_Contract_") {
		t.Errorf("label = %q", initReq.Label)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(initReq.Label, "SP_Contract_"))
	if err != nil || n < 1 || n > 10000 {
		t.Errorf("label suffix out of range: %q", initReq.Label)
	}
	if execReq.GasLimit != GasExecute || execReq.ContractAddress != "secret1abc" || execReq.CodeHash != "hash-9" {
		t.Errorf("unexpected execute request: %+v", execReq)
	}
	if string(execReq.Msg) != `{"mint":{"amount":"1"}}` {
		t.Errorf("execute msg = %s", execReq.Msg)
	}
}

func TestHandle_ExecuteFailedReceipt(t *testing.T) {
	m := NewMockChainClient(t)
	m.On("ExecuteContract", mock.Anything, mock.Anything).
		Return(&chain.TxResponse{TxHash: "BAD", Code: 3, RawLog: "insufficient funds"}, nil)
	h := Attach(m, "secret1abc", "hash")

	resp, err := h.Execute(context.Background(), map[string]any{})
	var txErr *chain.TxError
	if !errors.As(err, &txErr) {
		t.Fatalf("Execute() error = %v, want *chain.TxError", err)
	}
	if txErr.Code != 3 || resp == nil || resp.TxHash != "BAD" {
		t.Errorf("unexpected failure details: %+v, %+v", txErr, resp)
	}
}

func TestHandle_AttachAndQueryDecode(t *testing.T) {
	m := NewMockChainClient(t)
	attached := mock.MatchedBy(func(req chain.QueryRequest) bool {
		return req.ContractAddress == "secret1abc" && req.CodeHash == "hash"
	})
	m.On("QueryContract", mock.Anything, attached).Return(json.RawMessage(`{"balance":{"amount":"42"}}`), nil).Once()
	m.On("QueryContract", mock.Anything, attached).Return(json.RawMessage(`not json`), nil).Once()
	h := Attach(m, "secret1abc", "hash")

	var out struct {
		Balance struct {
			Amount string `json:"amount"`
		} `json:"balance"`
	}
	if err := h.Query(context.Background(), map[string]any{"balance": map[string]any{}}, &out); err != nil {
		t.Fatalf("Query() failed: %v", err)
	}
	if out.Balance.Amount != "42" {
		t.Errorf("amount = %q, want 42", out.Balance.Amount)
	}

	if err := h.Query(context.Background(), map[string]any{}, &out); !errors.Is(err, ErrEncoding) {
		t.Errorf("Query() decode error = %v, want ErrEncoding", err)
	}
}

func TestReadCode(t *testing.T) {
	dir := t.TempDir()
	gz, err := Compress([]byte("\x00asm fake module"))
	if err != nil {
		t.Fatal(err)
	}
	good := filepath.Join(dir, "contract.wasm.gz")
	if err := os.WriteFile(good, gz, 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := ReadCode(good)
	if err != nil {
		t.Fatalf("ReadCode() failed: %v", err)
	}
	if string(got) != string(gz) {
		t.Error("ReadCode() should return the compressed bytes unchanged")
	}
	raw, err := Decompress(got)
	if err != nil || string(raw) != "\x00asm fake module" {
		t.Errorf("Decompress() = %q, %v", raw, err)
	}

	bad := filepath.Join(dir, "broken.wasm.gz")
	if err := os.WriteFile(bad, gz[:len(gz)-6], 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadCode(bad); err == nil {
		t.Error("ReadCode() should fail on a truncated gzip stream")
	}

	if _, err := ReadCode(filepath.Join(dir, "missing")); err == nil {
		t.Error("ReadCode() should fail on a missing file")
	}
}
