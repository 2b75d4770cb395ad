package gateway

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/satoshispalace/contest-harness/internal/metrics"
	"github.com/satoshispalace/contest-harness/pkg/chain"
	"go.uber.org/zap"
)

// MethodHandler handles JSON-RPC method dispatch
type MethodHandler struct {
	server *Server
}

// NewMethodHandler creates a new method handler
func NewMethodHandler(server *Server) *MethodHandler {
	return &MethodHandler{server: server}
}

// Methods that require a signed request
var authenticatedMethods = map[string]bool{
	MethodStoreCode:      true,
	MethodInstantiate:    true,
	MethodExecute:        true,
	MethodResolveContest: true,
}

// RequiresAuth returns true if the method requires authentication
func (h *MethodHandler) RequiresAuth(method string) bool {
	return authenticatedMethods[method]
}

// Handle dispatches the method call
func (h *MethodHandler) Handle(ctx context.Context, method string, params json.RawMessage) (interface{}, *Error) {
	switch method {
	case MethodStatus:
		return &StatusResult{ChainID: h.server.backend.ChainID(), Height: h.server.backend.Height()}, nil
	case MethodStoreCode:
		return h.handleStoreCode(ctx, params)
	case MethodCodeHash:
		return h.handleCodeHash(ctx, params)
	case MethodInstantiate:
		return h.handleInstantiate(ctx, params)
	case MethodExecute:
		return h.handleExecute(ctx, params)
	case MethodQuery:
		return h.handleQuery(ctx, params)
	case MethodResolveContest:
		return h.handleResolveContest(ctx, params)
	default:
		return nil, NewError(MethodNotFound, method)
	}
}

// decode parses and validates params
func (h *MethodHandler) decode(params json.RawMessage, out interface{}) *Error {
	if len(params) == 0 {
		return NewError(InvalidParams, "params are required")
	}
	if err := json.Unmarshal(params, out); err != nil {
		return NewError(InvalidParams, err.Error())
	}
	if err := h.server.validate.Struct(out); err != nil {
		return NewError(InvalidParams, err.Error())
	}
	return nil
}

// =============================================================================
// Public Methods (No Auth Required)
// =============================================================================

func (h *MethodHandler) handleCodeHash(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p CodeHashParams
	if rpcErr := h.decode(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	hash, err := h.server.backend.ClientFor("").CodeHashByCodeID(ctx, p.CodeID)
	if err != nil {
		return nil, h.backendError(MethodCodeHash, err)
	}
	return &CodeHashResult{CodeHash: hash}, nil
}

func (h *MethodHandler) handleQuery(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	var p QueryParams
	if rpcErr := h.decode(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	answer, err := h.server.backend.ClientFor("").QueryContract(ctx, chain.QueryRequest{
		ContractAddress: p.ContractAddress,
		CodeHash:        p.CodeHash,
		Query:           p.Query,
	})
	if err != nil {
		if errors.Is(err, chain.ErrNotFound) {
			return nil, NewError(NotFound, err.Error())
		}
		return nil, NewError(QueryFailed, err.Error())
	}
	return answer, nil
}

// =============================================================================
// Authenticated Methods
// =============================================================================

func (h *MethodHandler) sender(ctx context.Context) (chain.Client, *Error) {
	sender, ok := SenderFromContext(ctx)
	if !ok {
		return nil, NewError(Unauthorized, "sender required")
	}
	return h.server.backend.ClientFor(sender), nil
}

func (h *MethodHandler) handleStoreCode(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	client, rpcErr := h.sender(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var p StoreCodeParams
	if rpcErr := h.decode(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	resp, err := client.StoreCode(ctx, p.WASMByteCode, p.GasLimit)
	if err != nil {
		return nil, h.backendError(MethodStoreCode, err)
	}
	return resp, nil
}

func (h *MethodHandler) handleInstantiate(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	client, rpcErr := h.sender(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var p InstantiateParams
	if rpcErr := h.decode(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	resp, err := client.InstantiateContract(ctx, chain.InstantiateRequest{
		CodeID:   p.CodeID,
		CodeHash: p.CodeHash,
		InitMsg:  p.InitMsg,
		Label:    p.Label,
		GasLimit: p.GasLimit,
	})
	if err != nil {
		return nil, h.backendError(MethodInstantiate, err)
	}
	return resp, nil
}

func (h *MethodHandler) handleExecute(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	client, rpcErr := h.sender(ctx)
	if rpcErr != nil {
		return nil, rpcErr
	}
	var p ExecuteParams
	if rpcErr := h.decode(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	resp, err := client.ExecuteContract(ctx, chain.ExecuteRequest{
		ContractAddress: p.ContractAddress,
		CodeHash:        p.CodeHash,
		Msg:             p.Msg,
		GasLimit:        p.GasLimit,
	})
	if err != nil {
		return nil, h.backendError(MethodExecute, err)
	}
	return resp, nil
}

func (h *MethodHandler) handleResolveContest(ctx context.Context, params json.RawMessage) (interface{}, *Error) {
	sender, _ := SenderFromContext(ctx)
	var p ResolveContestParams
	if rpcErr := h.decode(params, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := h.server.backend.ResolveContest(ctx, p.ContestAddress, p.ContestID, p.OutcomeID); err != nil {
		return nil, h.backendError(MethodResolveContest, err)
	}
	h.server.logger.Info("Contest resolved over RPC",
		zap.String("sender", sender),
		zap.String("contest", p.ContestAddress),
		zap.Uint32("contest_id", p.ContestID),
		zap.Uint8("outcome_id", p.OutcomeID))
	return &ResolveContestResult{Success: true}, nil
}

// backendError maps a backend failure to a JSON-RPC error
func (h *MethodHandler) backendError(method string, err error) *Error {
	if errors.Is(err, chain.ErrNotFound) {
		return NewError(NotFound, err.Error())
	}
	h.server.logger.Error("Backend call failed",
		zap.String("method", method),
		zap.Error(err))
	return NewError(InternalError, err.Error())
}

func observeRequest(method string, rpcErr *Error) {
	status := metrics.StatusSuccess
	if rpcErr != nil {
		status = metrics.StatusFailure
	}
	metrics.RPCRequestsTotal.WithLabelValues(method, status).Inc()
}
