// Package wallet derives the harness signing key from a BIP39 mnemonic and
// produces the bech32 account address and transaction signatures for it.
package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/cosmos/go-bip39"
	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // account addresses are defined over RIPEMD-160
)

const (
	// DefaultPrefix is the bech32 human readable part of Secret Network accounts.
	DefaultPrefix = "secret"
	// DefaultCoinType is the SLIP-44 coin type registered for Secret Network.
	DefaultCoinType = 529

	hardened = hdkeychain.HardenedKeyStart
)

var (
	// ErrInvalidMnemonic is returned for mnemonics with unknown words, a bad word count or a bad checksum.
	ErrInvalidMnemonic = errors.New("invalid mnemonic")
	// ErrInvalidSignature is returned when a signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidAddress is returned for malformed bech32 addresses.
	ErrInvalidAddress = errors.New("invalid address")
)

// Wallet holds a single secp256k1 account key. It is built once at process start
// and handed explicitly to every component that needs to sign.
type Wallet struct {
	key     *btcec.PrivateKey
	address string
}

type settings struct {
	prefix     string
	coinType   uint32
	account    uint32
	index      uint32
	passphrase string
}

// Option configures key derivation.
type Option func(*settings)

// WithPrefix sets the bech32 prefix of the derived address.
func WithPrefix(p string) Option {
	return func(s *settings) { s.prefix = p }
}

// WithCoinType sets the SLIP-44 coin type used in the derivation path.
func WithCoinType(c uint32) Option {
	return func(s *settings) { s.coinType = c }
}

// WithAccount sets the account and address index used in the derivation path.
func WithAccount(account, index uint32) Option {
	return func(s *settings) {
		s.account = account
		s.index = index
	}
}

// WithPassphrase sets the optional BIP39 passphrase.
func WithPassphrase(p string) Option {
	return func(s *settings) { s.passphrase = p }
}

func applyOptions(opts []Option) settings {
	s := settings{prefix: DefaultPrefix, coinType: DefaultCoinType}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s
}

// FromMnemonic derives the key at m/44'/coin'/account'/0/index.
func FromMnemonic(mnemonic string, opts ...Option) (*Wallet, error) {
	s := applyOptions(opts)

	seed, err := Seed(mnemonic, s.passphrase)
	if err != nil {
		return nil, err
	}

	// version bytes of the params only matter for xprv serialization, which is never used
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("master key: %w", err)
	}
	path := []uint32{44 + hardened, s.coinType + hardened, s.account + hardened, 0, s.index}
	for _, idx := range path {
		key, err = key.Derive(idx)
		if err != nil {
			return nil, fmt.Errorf("derive path: %w", err)
		}
	}

	priv, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("derive path: %w", err)
	}
	return FromPrivateKey(priv.Serialize(), s.prefix)
}

// FromPrivateKey wraps a raw 32-byte secp256k1 key.
func FromPrivateKey(raw []byte, prefix string) (*Wallet, error) {
	if len(raw) != 32 {
		return nil, fmt.Errorf("invalid private key length: expected 32 bytes, got %d", len(raw))
	}
	key, pub := btcec.PrivKeyFromBytes(raw)
	addr, err := AddressFromPublicKey(prefix, pub.SerializeCompressed())
	if err != nil {
		return nil, err
	}
	return &Wallet{key: key, address: addr}, nil
}

// Seed computes the BIP39 seed of a mnemonic after checking its words and checksum.
func Seed(mnemonic, passphrase string) ([]byte, error) {
	normalized := strings.Join(strings.Fields(mnemonic), " ")
	seed, err := bip39.NewSeedWithErrorChecking(normalized, passphrase)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMnemonic, err)
	}
	return seed, nil
}

// AddressFromPublicKey returns bech32(prefix, ripemd160(sha256(pubKey))).
func AddressFromPublicKey(prefix string, pubKey []byte) (string, error) {
	sha := sha256.Sum256(pubKey)
	rip := ripemd160.New()
	rip.Write(sha[:])
	return EncodeAddress(prefix, rip.Sum(nil))
}

// EncodeAddress bech32-encodes raw address bytes.
func EncodeAddress(prefix string, raw []byte) (string, error) {
	conv, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert address bits: %w", err)
	}
	addr, err := bech32.Encode(prefix, conv)
	if err != nil {
		return "", fmt.Errorf("encode address: %w", err)
	}
	return addr, nil
}

// DecodeAddress checks addr is bech32 with the given prefix and returns its bytes.
func DecodeAddress(prefix, addr string) ([]byte, error) {
	hrp, data, err := bech32.Decode(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if hrp != prefix {
		return nil, fmt.Errorf("%w: prefix %q, want %q", ErrInvalidAddress, hrp, prefix)
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	return raw, nil
}

// Address returns the bech32 account address.
func (w *Wallet) Address() string {
	return w.address
}

// PublicKey returns the compressed public key.
func (w *Wallet) PublicKey() []byte {
	return w.key.PubKey().SerializeCompressed()
}

// PublicKeyHex returns the compressed public key as hex.
func (w *Wallet) PublicKeyHex() string {
	return hex.EncodeToString(w.PublicKey())
}

// Sign returns a 64-byte r||s signature over sha256(msg).
func (w *Wallet) Sign(msg []byte) ([]byte, error) {
	hash := sha256.Sum256(msg)
	compact := ecdsa.SignCompact(w.key, hash[:], true)
	// drop the recovery byte
	return compact[1:], nil
}

// Verify checks a 64-byte r||s signature over sha256(msg) against a serialized public key.
func Verify(pubKey, msg, sig []byte) error {
	if len(sig) != 64 {
		return fmt.Errorf("%w: expected 64 bytes, got %d", ErrInvalidSignature, len(sig))
	}
	pub, err := btcec.ParsePubKey(pubKey)
	if err != nil {
		return fmt.Errorf("parse public key: %w", err)
	}

	var r, s btcec.ModNScalar
	if r.SetByteSlice(sig[:32]) || s.SetByteSlice(sig[32:]) {
		return fmt.Errorf("%w: scalar overflow", ErrInvalidSignature)
	}

	hash := sha256.Sum256(msg)
	if !ecdsa.NewSignature(&r, &s).Verify(hash[:], pub) {
		return ErrInvalidSignature
	}
	return nil
}
