// Package gateway carries compute chain calls over JSON-RPC 2.0, with a client
// that signs each transaction and a server that fronts any Backend.
package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/satoshispalace/contest-harness/pkg/chain"
	"github.com/satoshispalace/contest-harness/pkg/wallet"
	"go.uber.org/zap"
)

const maxBodySize = 8 << 20 // bytecode uploads are large

// Backend executes requests on behalf of authenticated senders.
type Backend interface {
	ClientFor(sender string) chain.Client
	ResolveContest(ctx context.Context, contestAddress string, contestID uint32, outcomeID uint8) error
	ChainID() string
	Height() uint64
}

// Server handles JSON-RPC requests for the compute gateway
type Server struct {
	backend   Backend
	prefix    string
	jwtSecret []byte
	metrics   bool
	replay    *replayGuard
	validate  *validator.Validate
	logger    *zap.Logger
	handler   *MethodHandler
}

// NewServer creates a new RPC server
func NewServer(backend Backend, opts ...ServerOption) *Server {
	o := serverOptions{logger: zap.NewNop(), prefix: wallet.DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	s := &Server{
		backend:   backend,
		prefix:    o.prefix,
		jwtSecret: o.jwtSecret,
		metrics:   o.metrics,
		replay:    newReplayGuard(o.replayWindow),
		validate:  validator.New(),
		logger:    o.logger,
	}

	// Create method handler
	s.handler = NewMethodHandler(s)

	return s
}

// Router mounts the server on a chi router with health and metrics endpoints
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})
	r.Post("/rpc", s.ServeHTTP)
	if s.metrics {
		r.Handle("/metrics", promhttp.Handler())
	}
	return r
}

// ServeHTTP handles a single JSON-RPC request
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Read request body
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		s.writeError(w, nil, NewError(ParseError, "failed to read request"))
		return
	}

	// Parse JSON-RPC request
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, nil, NewError(ParseError, err.Error()))
		return
	}

	// Validate request
	if err := req.Validate(); err != nil {
		s.writeError(w, req.ID, NewError(InvalidRequest, err.Error()))
		return
	}

	ctx := r.Context()

	// Bearer token gates every method when a secret is configured
	if len(s.jwtSecret) > 0 {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || token == "" {
			s.reject(w, req, &AuthError{Message: "bearer token required"})
			return
		}
		if _, err := validateBearer(s.jwtSecret, token); err != nil {
			s.reject(w, req, err)
			return
		}
	}

	// Transactions are signed by the sender's wallet
	if s.handler.RequiresAuth(req.Method) {
		sender, err := s.authenticate(r, body)
		if err != nil {
			s.reject(w, req, err)
			return
		}
		ctx = WithSender(ctx, sender)
	}

	// Handle the method
	result, rpcErr := s.handler.Handle(ctx, req.Method, req.Params)
	if rpcErr != nil {
		observeRequest(req.Method, rpcErr)
		s.writeError(w, req.ID, rpcErr)
		return
	}

	// Write success response
	observeRequest(req.Method, nil)
	s.writeResponse(w, SuccessResponse(req.ID, result))
}

// authenticate verifies the request signature headers
func (s *Server) authenticate(r *http.Request, body []byte) (string, error) {
	pub := r.Header.Get(HeaderPublicKey)
	sig := r.Header.Get(HeaderSignature)
	ts := r.Header.Get(HeaderTimestamp)
	if pub == "" || sig == "" || ts == "" {
		return "", &AuthError{Message: "signature headers required"}
	}
	issued, err := s.replay.fresh(ts)
	if err != nil {
		return "", err
	}
	sender, err := verifyRequestSignature(s.prefix, pub, sig, SignedPayload(ts, body))
	if err != nil {
		return "", err
	}
	if err := s.replay.remember(pub, sig, issued); err != nil {
		return "", err
	}
	return sender, nil
}

func (s *Server) reject(w http.ResponseWriter, req Request, err error) {
	s.logger.Warn("Authentication failed",
		zap.String("method", req.Method),
		zap.Error(err))
	rpcErr := NewError(Unauthorized, err.Error())
	observeRequest(req.Method, rpcErr)
	s.writeError(w, req.ID, rpcErr)
}

// writeResponse writes a JSON-RPC response
func (s *Server) writeResponse(w http.ResponseWriter, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// writeError writes a JSON-RPC error response
func (s *Server) writeError(w http.ResponseWriter, id interface{}, err *Error) {
	s.writeResponse(w, ErrorResponse(id, err))
}
