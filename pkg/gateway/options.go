package gateway

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

type serverOptions struct {
	logger       *zap.Logger
	prefix       string
	jwtSecret    []byte
	metrics      bool
	replayWindow time.Duration
}

// ServerOption configures a Server.
type ServerOption func(*serverOptions)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) ServerOption {
	return func(o *serverOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithPrefix sets the bech32 prefix used to derive sender addresses.
func WithPrefix(prefix string) ServerOption {
	return func(o *serverOptions) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithJWTSecret requires an HS256 bearer token signed with secret on every request.
func WithJWTSecret(secret string) ServerOption {
	return func(o *serverOptions) {
		o.jwtSecret = []byte(secret)
	}
}

// WithReplayWindow sets how far a signed request's timestamp may drift from the
// server clock. Signatures are remembered for the same span.
func WithReplayWindow(d time.Duration) ServerOption {
	return func(o *serverOptions) {
		o.replayWindow = d
	}
}

// WithMetrics mounts the Prometheus handler on /metrics.
func WithMetrics() ServerOption {
	return func(o *serverOptions) {
		o.metrics = true
	}
}

type clientOptions struct {
	logger     *zap.Logger
	httpClient *http.Client
	jwtSecret  []byte
}

// ClientOption configures a Client.
type ClientOption func(*clientOptions)

// WithClientLogger sets the client logger.
func WithClientLogger(l *zap.Logger) ClientOption {
	return func(o *clientOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *clientOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithBearerSecret makes the client attach an HS256 bearer token signed with secret.
func WithBearerSecret(secret string) ClientOption {
	return func(o *clientOptions) {
		o.jwtSecret = []byte(secret)
	}
}
