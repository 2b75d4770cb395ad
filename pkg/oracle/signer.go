// Package oracle signs and verifies contest terms the way the contest contract
// checks them: secp256k1 ECDSA over the SHA-256 of the contest info JSON.
package oracle

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/satoshispalace/contest-harness/pkg/contest"
)

// ErrInvalidSignature is returned when a contest signature does not verify.
var ErrInvalidSignature = errors.New("invalid contest signature")

// Signer holds the oracle key.
type Signer struct {
	key *ecdsa.PrivateKey
}

// NewSigner loads a signer from a hex private key.
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid oracle key: %w", err)
	}
	return &Signer{key: key}, nil
}

// GenerateSigner creates a signer with a fresh random key.
func GenerateSigner() (*Signer, error) {
	key, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate oracle key: %w", err)
	}
	return &Signer{key: key}, nil
}

// PrivateKeyHex returns the private key as hex.
func (s *Signer) PrivateKeyHex() string {
	return hex.EncodeToString(crypto.FromECDSA(s.key))
}

// PublicKeyHex returns the uncompressed public key as hex, the form the contest
// contract takes at instantiation.
func (s *Signer) PublicKeyHex() string {
	return hex.EncodeToString(crypto.FromECDSAPub(&s.key.PublicKey))
}

// Sign returns the hex encoded 64-byte r||s signature of info.
func (s *Signer) Sign(info contest.ContestInfo) (string, error) {
	digest, err := Digest(info)
	if err != nil {
		return "", err
	}
	sig, err := crypto.Sign(digest, s.key)
	if err != nil {
		return "", fmt.Errorf("sign contest info: %w", err)
	}
	// drop the recovery id
	return hex.EncodeToString(sig[:64]), nil
}

// Digest returns the SHA-256 of the signed JSON form of info.
func Digest(info contest.ContestInfo) ([]byte, error) {
	raw, err := info.SignedJSON()
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(raw)
	return sum[:], nil
}

// Verify checks sigHex against info for the given public key. The key may be
// compressed or uncompressed hex.
func Verify(pubHex string, info contest.ContestInfo, sigHex string) error {
	pub, err := hex.DecodeString(strings.TrimPrefix(pubHex, "0x"))
	if err != nil {
		return fmt.Errorf("invalid public key hex: %w", err)
	}
	sig, err := hex.DecodeString(strings.TrimPrefix(sigHex, "0x"))
	if err != nil {
		return fmt.Errorf("%w: bad hex: %v", ErrInvalidSignature, err)
	}
	if len(sig) != 64 {
		return fmt.Errorf("%w: expected 64 bytes, got %d", ErrInvalidSignature, len(sig))
	}
	sig, err = lowS(sig)
	if err != nil {
		return err
	}
	digest, err := Digest(info)
	if err != nil {
		return err
	}
	if !crypto.VerifySignature(pub, digest, sig) {
		return ErrInvalidSignature
	}
	return nil
}

// lowS returns sig with s replaced by n-s when s is in the upper half of the
// curve order. The contract accepts both forms; go-ethereum only the lower one.
func lowS(sig []byte) ([]byte, error) {
	var s btcec.ModNScalar
	if s.SetByteSlice(sig[32:]) {
		return nil, fmt.Errorf("%w: s overflows the curve order", ErrInvalidSignature)
	}
	if !s.IsOverHalfOrder() {
		return sig, nil
	}
	s.Negate()
	b := s.Bytes()
	out := make([]byte, 0, 64)
	out = append(out, sig[:32]...)
	return append(out, b[:]...), nil
}
