package gateway

import (
	"context"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/satoshispalace/contest-harness/pkg/wallet"
)

// Context keys for authentication data
type contextKey string

// ContextKeySender is the context key for the authenticated sender address
const ContextKeySender contextKey = "sender"

// WithSender adds the sender address to the context
func WithSender(ctx context.Context, sender string) context.Context {
	return context.WithValue(ctx, ContextKeySender, sender)
}

// SenderFromContext retrieves the sender address from the context
func SenderFromContext(ctx context.Context) (string, bool) {
	sender, ok := ctx.Value(ContextKeySender).(string)
	return sender, ok && sender != ""
}

// AuthError represents an authentication error
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

const defaultReplayWindow = 5 * time.Minute

// SignedPayload returns the bytes a request signature covers: the unix timestamp
// header, a newline, then the body.
func SignedPayload(timestamp string, body []byte) []byte {
	out := make([]byte, 0, len(timestamp)+1+len(body))
	out = append(out, timestamp...)
	out = append(out, '\n')
	return append(out, body...)
}

// replayGuard accepts a signed request once, and only while its timestamp is
// within window of the server clock.
type replayGuard struct {
	mu     sync.Mutex
	window time.Duration
	now    func() time.Time
	seen   map[string]time.Time // key -> expiry
}

func newReplayGuard(window time.Duration) *replayGuard {
	if window <= 0 {
		window = defaultReplayWindow
	}
	return &replayGuard{window: window, now: time.Now, seen: make(map[string]time.Time)}
}

// fresh parses a unix seconds timestamp and checks it against the window.
func (g *replayGuard) fresh(timestamp string) (time.Time, error) {
	sec, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return time.Time{}, &AuthError{Message: "invalid timestamp: " + err.Error()}
	}
	issued := time.Unix(sec, 0)
	skew := g.now().Sub(issued)
	if skew > g.window || skew < -g.window {
		return time.Time{}, &AuthError{Message: "request timestamp outside the accepted window"}
	}
	return issued, nil
}

// remember records a verified signature. The key is the public key plus r, so a
// malleated s does not make a replay look new.
func (g *replayGuard) remember(pubHex, sigHex string, issued time.Time) error {
	key := strings.ToLower(pubHex) + ":" + strings.ToLower(sigHex[:64])

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for k, exp := range g.seen {
		if now.After(exp) {
			delete(g.seen, k)
		}
	}
	if _, ok := g.seen[key]; ok {
		return &AuthError{Message: "replayed request"}
	}
	g.seen[key] = issued.Add(g.window)
	return nil
}

// verifyRequestSignature checks a hex r||s signature over the signed payload and
// returns the sender address derived from the public key.
func verifyRequestSignature(prefix, pubHex, sigHex string, body []byte) (string, error) {
	pub, err := hex.DecodeString(pubHex)
	if err != nil {
		return "", &AuthError{Message: "invalid public key hex: " + err.Error()}
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return "", &AuthError{Message: "invalid signature hex: " + err.Error()}
	}
	if err := wallet.Verify(pub, body, sig); err != nil {
		return "", &AuthError{Message: "invalid signature: " + err.Error()}
	}
	addr, err := wallet.AddressFromPublicKey(prefix, pub)
	if err != nil {
		return "", &AuthError{Message: err.Error()}
	}
	return addr, nil
}

// validateBearer validates an HS256 token signed with secret
func validateBearer(secret []byte, token string) (jwt.MapClaims, error) {
	parsed, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, &AuthError{Message: "invalid token: " + err.Error()}
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok || !parsed.Valid {
		return nil, &AuthError{Message: "invalid token"}
	}
	return claims, nil
}

// NewBearerToken issues an HS256 token for subject, valid for ttl.
func NewBearerToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign bearer token: %w", err)
	}
	return signed, nil
}
