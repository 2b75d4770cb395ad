package gateway

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/satoshispalace/contest-harness/pkg/chain"
	"github.com/satoshispalace/contest-harness/pkg/contract"
	"github.com/satoshispalace/contest-harness/pkg/simchain"
	"github.com/satoshispalace/contest-harness/pkg/snip20"
	"github.com/satoshispalace/contest-harness/pkg/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

var testTokenWasm = []byte("\x00asm token")

func newTestWallet(t *testing.T) *wallet.Wallet {
	t.Helper()
	w, err := wallet.FromMnemonic(testMnemonic)
	require.NoError(t, err)
	return w
}

func newTestGateway(t *testing.T, opts ...ServerOption) (*simchain.Chain, *httptest.Server) {
	t.Helper()
	c := simchain.New()
	_, err := c.BindByName(testTokenWasm, simchain.ProgramSnip20)
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(c, opts...).Router())
	t.Cleanup(srv.Close)
	return c, srv
}

func postRPC(t *testing.T, url string, body []byte, headers map[string]string) rawResponse {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/rpc", bytes.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out rawResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestServer_Health(t *testing.T) {
	_, srv := newTestGateway(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	_, srv := newTestGateway(t, WithMetrics())

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	_, plain := newTestGateway(t)
	resp, err = http.Get(plain.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_RejectsMalformedRequests(t *testing.T) {
	_, srv := newTestGateway(t)

	resp := postRPC(t, srv.URL, []byte(`{not json`), nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ParseError, resp.Error.Code)

	resp = postRPC(t, srv.URL, []byte(`{"jsonrpc":"1.0","method":"chain_status","id":1}`), nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidRequest, resp.Error.Code)

	resp = postRPC(t, srv.URL, []byte(`{"jsonrpc":"2.0","method":"compute_nope","id":1}`), nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, MethodNotFound, resp.Error.Code)

	resp = postRPC(t, srv.URL, []byte(`{"jsonrpc":"2.0","method":"compute_queryContract","params":{"query":{}},"id":1}`), nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, InvalidParams, resp.Error.Code)
}

func TestServer_TransactionsRequireSignature(t *testing.T) {
	_, srv := newTestGateway(t)
	w := newTestWallet(t)

	body := []byte(`{"jsonrpc":"2.0","method":"compute_storeCode","params":{"wasm_byte_code":"AGFzbQ==","gas_limit":1000},"id":1}`)

	resp := postRPC(t, srv.URL, body, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, Unauthorized, resp.Error.Code)

	headers := signedHeaders(t, w, time.Now(), body)

	// signature over a different body
	tampered := bytes.Replace(body, []byte("1000"), []byte("2000"), 1)
	resp = postRPC(t, srv.URL, tampered, headers)
	require.NotNil(t, resp.Error)
	assert.Equal(t, Unauthorized, resp.Error.Code)

	resp = postRPC(t, srv.URL, body, headers)
	require.Nil(t, resp.Error)

	// no program is bound to these bytes, so the receipt fails but the call succeeds
	var receipt chain.TxResponse
	require.NoError(t, json.Unmarshal(resp.Result, &receipt))
	assert.False(t, receipt.Succeeded())
	assert.NotEmpty(t, receipt.TxHash)
}

func signedHeaders(t *testing.T, w *wallet.Wallet, at time.Time, body []byte) map[string]string {
	t.Helper()
	ts := strconv.FormatInt(at.Unix(), 10)
	sig, err := w.Sign(SignedPayload(ts, body))
	require.NoError(t, err)
	return map[string]string{
		HeaderPublicKey: w.PublicKeyHex(),
		HeaderSignature: hex.EncodeToString(sig),
		HeaderTimestamp: ts,
	}
}

func TestServer_RejectsReplayedRequests(t *testing.T) {
	_, srv := newTestGateway(t, WithReplayWindow(time.Minute))
	w := newTestWallet(t)
	body := []byte(`{"jsonrpc":"2.0","method":"compute_storeCode","params":{"wasm_byte_code":"AGFzbQ==","gas_limit":1000},"id":1}`)

	headers := signedHeaders(t, w, time.Now(), body)
	resp := postRPC(t, srv.URL, body, headers)
	require.Nil(t, resp.Error)

	resp = postRPC(t, srv.URL, body, headers)
	require.NotNil(t, resp.Error)
	assert.Equal(t, Unauthorized, resp.Error.Code)
	assert.Contains(t, fmt.Sprint(resp.Error.Data), "replayed")

	// the same signature with s flipped to n-s still verifies but is the same request
	sig, err := hex.DecodeString(headers[HeaderSignature])
	require.NoError(t, err)
	var s btcec.ModNScalar
	s.SetByteSlice(sig[32:])
	s.Negate()
	flipped := s.Bytes()
	malleated := map[string]string{
		HeaderPublicKey: headers[HeaderPublicKey],
		HeaderSignature: hex.EncodeToString(append(append([]byte{}, sig[:32]...), flipped[:]...)),
		HeaderTimestamp: headers[HeaderTimestamp],
	}
	resp = postRPC(t, srv.URL, body, malleated)
	require.NotNil(t, resp.Error)
	assert.Equal(t, Unauthorized, resp.Error.Code)

	// a fresh signature over the same body is a new request
	resp = postRPC(t, srv.URL, body, signedHeaders(t, w, time.Now().Add(time.Second), body))
	require.Nil(t, resp.Error)
}

func TestServer_RejectsStaleTimestamps(t *testing.T) {
	_, srv := newTestGateway(t, WithReplayWindow(time.Minute))
	w := newTestWallet(t)
	body := []byte(`{"jsonrpc":"2.0","method":"compute_storeCode","params":{"wasm_byte_code":"AGFzbQ==","gas_limit":1000},"id":1}`)

	for name, at := range map[string]time.Time{
		"stale":  time.Now().Add(-time.Hour),
		"future": time.Now().Add(time.Hour),
	} {
		t.Run(name, func(t *testing.T) {
			resp := postRPC(t, srv.URL, body, signedHeaders(t, w, at, body))
			require.NotNil(t, resp.Error)
			assert.Equal(t, Unauthorized, resp.Error.Code)
		})
	}

	t.Run("missing", func(t *testing.T) {
		headers := signedHeaders(t, w, time.Now(), body)
		delete(headers, HeaderTimestamp)
		resp := postRPC(t, srv.URL, body, headers)
		require.NotNil(t, resp.Error)
		assert.Equal(t, Unauthorized, resp.Error.Code)
	})

	t.Run("not a number", func(t *testing.T) {
		headers := signedHeaders(t, w, time.Now(), body)
		headers[HeaderTimestamp] = "yesterday"
		resp := postRPC(t, srv.URL, body, headers)
		require.NotNil(t, resp.Error)
		assert.Equal(t, Unauthorized, resp.Error.Code)
	})
}

func TestServer_BearerToken(t *testing.T) {
	_, srv := newTestGateway(t, WithJWTSecret("s3cret"))
	body := []byte(`{"jsonrpc":"2.0","method":"chain_status","id":1}`)

	resp := postRPC(t, srv.URL, body, nil)
	require.NotNil(t, resp.Error)
	assert.Equal(t, Unauthorized, resp.Error.Code)

	wrong, err := NewBearerToken([]byte("other"), "tester", time.Minute)
	require.NoError(t, err)
	resp = postRPC(t, srv.URL, body, map[string]string{"Authorization": "Bearer " + wrong})
	require.NotNil(t, resp.Error)

	expired, err := NewBearerToken([]byte("s3cret"), "tester", -time.Minute)
	require.NoError(t, err)
	resp = postRPC(t, srv.URL, body, map[string]string{"Authorization": "Bearer " + expired})
	require.NotNil(t, resp.Error)

	good, err := NewBearerToken([]byte("s3cret"), "tester", time.Minute)
	require.NoError(t, err)
	resp = postRPC(t, srv.URL, body, map[string]string{"Authorization": "Bearer " + good})
	require.Nil(t, resp.Error)

	var status StatusResult
	require.NoError(t, json.Unmarshal(resp.Result, &status))
	assert.Equal(t, "secretdev-1", status.ChainID)
}

func TestClient_TokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	_, srv := newTestGateway(t, WithJWTSecret("s3cret"))
	w := newTestWallet(t)

	client, err := NewClient(srv.URL, w, WithBearerSecret("s3cret"))
	require.NoError(t, err)

	status, err := client.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secretdev-1", status.ChainID)

	h := contract.New(client, testTokenWasm)
	require.NoError(t, h.Deploy(ctx))
	require.NoError(t, h.Instantiate(ctx, snip20.NewInitMsg("USDC", "USDC", 18, "seed")))

	token, err := snip20.New(h)
	require.NoError(t, err)

	// the admin is the address derived from the signing key
	_, err = token.Mint(ctx, w.Address(), "5000")
	require.NoError(t, err)

	key, err := snip20.NewViewingKey()
	require.NoError(t, err)
	require.NoError(t, token.SetViewingKey(ctx, key))

	balance, err := token.Balance(ctx, w.Address(), key)
	require.NoError(t, err)
	assert.Equal(t, "5000", balance)
}

func TestClient_NotFound(t *testing.T) {
	ctx := context.Background()
	_, srv := newTestGateway(t)

	client, err := NewClient(srv.URL, newTestWallet(t))
	require.NoError(t, err)

	_, err = client.CodeHashByCodeID(ctx, "42")
	require.ErrorIs(t, err, chain.ErrNotFound)

	_, err = client.QueryContract(ctx, chain.QueryRequest{
		ContractAddress: "secret1nothere",
		Query:           json.RawMessage(`{"token_info":{}}`),
	})
	require.ErrorIs(t, err, chain.ErrNotFound)
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("", newTestWallet(t))
	assert.Error(t, err)
	_, err = NewClient("http://localhost", nil)
	assert.Error(t, err)
}
