package snip20

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/satoshispalace/contest-harness/pkg/contract"
)

// NewViewingKey returns 32 random bytes as hex.
func NewViewingKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate viewing key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// decodeCreatedKey extracts the key from create_viewing_key receipt data.
// Data is UTF-8 JSON, or base64 text wrapping it.
func decodeCreatedKey(data []byte) (string, error) {
	payload := bytes.TrimSpace(data)
	if len(payload) == 0 {
		return "", fmt.Errorf("%w: empty create_viewing_key data", contract.ErrEncoding)
	}
	if payload[0] != '{' {
		decoded, err := base64.StdEncoding.DecodeString(string(payload))
		if err != nil {
			return "", fmt.Errorf("%w: create_viewing_key data is neither JSON nor base64: %v", contract.ErrEncoding, err)
		}
		payload = bytes.TrimSpace(decoded)
	}

	var answer ExecuteAnswer
	if err := json.Unmarshal(payload, &answer); err != nil {
		return "", fmt.Errorf("%w: decode create_viewing_key data: %v", contract.ErrEncoding, err)
	}
	if answer.CreateViewingKey == nil || answer.CreateViewingKey.Key == "" {
		return "", fmt.Errorf("%w: create_viewing_key data has no key", contract.ErrEncoding)
	}
	return answer.CreateViewingKey.Key, nil
}
