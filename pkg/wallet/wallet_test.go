package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck
)

const testMnemonic = "abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about"

func TestSeed_BIP39Vector(t *testing.T) {
	seed, err := Seed(testMnemonic, "TREZOR")
	require.NoError(t, err)
	assert.Equal(t,
		"c55257c360c07c72029aebc1b53c05ed0362ada38ead3e3e9efa3708e53495531f09a6987599d18264c1e1c92f2cf141630c7a3c4ab7c81b2f001698e7463b04",
		hex.EncodeToString(seed))
}

func TestSeed_NormalizesWhitespace(t *testing.T) {
	a, err := Seed(testMnemonic, "")
	require.NoError(t, err)
	b, err := Seed("  "+strings.ReplaceAll(testMnemonic, " ", "\n  ")+"\t", "")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSeed_RejectsInvalidMnemonic(t *testing.T) {
	tests := []struct {
		name     string
		mnemonic string
	}{
		{"word count", "abandon abandon about"},
		{"checksum", strings.Repeat("abandon ", 11) + "abandon"},
		{"unknown word", strings.Repeat("abandon ", 11) + "notaword"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Seed(tt.mnemonic, "")
			require.ErrorIs(t, err, ErrInvalidMnemonic)

			_, err = FromMnemonic(tt.mnemonic)
			require.ErrorIs(t, err, ErrInvalidMnemonic)
		})
	}
}

func TestFromMnemonic_Deterministic(t *testing.T) {
	w1, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)
	w2, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)

	assert.Equal(t, w1.Address(), w2.Address())
	assert.True(t, strings.HasPrefix(w1.Address(), "secret1"))
	assert.Len(t, w1.Address(), 45)

	other, err := FromMnemonic(testMnemonic, WithAccount(0, 1))
	require.NoError(t, err)
	assert.NotEqual(t, w1.Address(), other.Address())

	cosmos, err := FromMnemonic(testMnemonic, WithCoinType(118), WithPrefix("cosmos"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(cosmos.Address(), "cosmos1"))
}

func TestAddressFromPublicKey_MatchesHash(t *testing.T) {
	w, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)

	hrp, data, err := bech32.Decode(w.Address())
	require.NoError(t, err)
	assert.Equal(t, "secret", hrp)

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	require.NoError(t, err)

	sha := sha256.Sum256(w.PublicKey())
	rip := ripemd160.New()
	rip.Write(sha[:])
	assert.Equal(t, rip.Sum(nil), raw)
}

func TestSignVerify(t *testing.T) {
	w, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)

	msg := []byte(`{"jsonrpc":"2.0","method":"compute_executeContract"}`)
	sig, err := w.Sign(msg)
	require.NoError(t, err)
	require.Len(t, sig, 64)

	require.NoError(t, Verify(w.PublicKey(), msg, sig))

	err = Verify(w.PublicKey(), []byte("tampered"), sig)
	require.ErrorIs(t, err, ErrInvalidSignature)

	err = Verify(w.PublicKey(), msg, sig[:63])
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestFromPrivateKey_Length(t *testing.T) {
	_, err := FromPrivateKey([]byte{1, 2, 3}, DefaultPrefix)
	require.Error(t, err)
}

func TestDecodeAddress(t *testing.T) {
	w, err := FromMnemonic(testMnemonic)
	require.NoError(t, err)

	raw, err := DecodeAddress(DefaultPrefix, w.Address())
	require.NoError(t, err)
	require.Len(t, raw, 20)

	again, err := EncodeAddress(DefaultPrefix, raw)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), again)

	_, err = DecodeAddress("cosmos", w.Address())
	require.ErrorIs(t, err, ErrInvalidAddress)

	_, err = DecodeAddress(DefaultPrefix, "secret1notanaddress")
	require.ErrorIs(t, err, ErrInvalidAddress)
}
