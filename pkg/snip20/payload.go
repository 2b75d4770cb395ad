package snip20

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/satoshispalace/contest-harness/pkg/contract"
)

// EncodeSendPayload JSON-encodes payload and base64-encodes the result, the form
// the token forwards to a receiving contract.
func EncodeSendPayload(payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encode send payload: %v", contract.ErrEncoding, err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeSendPayload reverses EncodeSendPayload into out.
func DecodeSendPayload(msg string, out any) error {
	b, err := base64.StdEncoding.DecodeString(msg)
	if err != nil {
		return fmt.Errorf("%w: decode send payload: %v", contract.ErrEncoding, err)
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: decode send payload: %v", contract.ErrEncoding, err)
	}
	return nil
}
