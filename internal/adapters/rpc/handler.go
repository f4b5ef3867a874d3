// Package rpc exposes the action dispatcher as JSON-RPC 2.0 over HTTP.
// The method name is the action name and params is an action request.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"anchorcore/internal/action"
	"anchorcore/internal/view"
	"anchorcore/pkg/domain"
)

// JSON-RPC error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

const (
	version      = "2.0"
	maxBodyBytes = 1 << 20
)

// Dispatcher applies a named action.
type Dispatcher interface {
	Dispatch(ctx context.Context, name string, req action.Request) (view.Transaction, error)
}

// Handler serves POST /actions, plus /metrics when a metrics handler is set.
type Handler struct {
	Dispatcher Dispatcher
	Metrics    http.Handler
	Logger     *zap.Logger
}

// NewHandler constructs an RPC handler over d.
func NewHandler(d Dispatcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Dispatcher: d, Logger: logger}
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

type response struct {
	JSONRPC string            `json:"jsonrpc"`
	Result  *view.Transaction `json:"result,omitempty"`
	Error   *Error            `json:"error,omitempty"`
	ID      json.RawMessage   `json:"id"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Dispatcher == nil {
		writeError(w, http.StatusInternalServerError, "action dispatcher not configured")
		return
	}
	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/actions":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.handleActions(w, r)
	case path == "/healthz" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	case path == "/metrics" && h.Metrics != nil:
		h.Metrics.ServeHTTP(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleActions(w http.ResponseWriter, r *http.Request) {
	var body bytes.Buffer
	if _, err := body.ReadFrom(http.MaxBytesReader(w, r.Body, maxBodyBytes)); err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse(nil, CodeInvalidRequest, "request body too large"))
		return
	}
	raw := bytes.TrimSpace(body.Bytes())

	if len(raw) > 0 && raw[0] == '[' {
		var batch []json.RawMessage
		if err := json.Unmarshal(raw, &batch); err != nil {
			writeJSON(w, http.StatusOK, errorResponse(nil, CodeParseError, "parse error"))
			return
		}
		if len(batch) == 0 {
			writeJSON(w, http.StatusOK, errorResponse(nil, CodeInvalidRequest, "empty batch"))
			return
		}
		out := make([]response, 0, len(batch))
		for _, item := range batch {
			if resp, ok := h.call(r.Context(), item); ok {
				out = append(out, resp)
			}
		}
		if len(out) == 0 {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	resp, ok := h.call(r.Context(), raw)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// call runs one request. It reports false for notifications, which get no
// response.
func (h *Handler) call(ctx context.Context, raw json.RawMessage) (response, bool) {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return errorResponse(nil, CodeParseError, "parse error"), true
		}
		return errorResponse(nil, CodeInvalidRequest, "invalid request"), true
	}
	if req.JSONRPC != version || strings.TrimSpace(req.Method) == "" {
		return errorResponse(req.ID, CodeInvalidRequest, "invalid request"), true
	}

	var params action.Request
	if len(req.Params) > 0 && string(req.Params) != "null" {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, CodeInvalidParams, "invalid params: "+err.Error()), len(req.ID) > 0
		}
	}

	result, err := h.Dispatcher.Dispatch(ctx, req.Method, params)
	if len(req.ID) == 0 {
		return response{}, false
	}
	if err != nil {
		code, msg := errorCode(err)
		if code == CodeInternalError {
			h.Logger.Error("rpc action failed",
				zap.String("method", req.Method),
				zap.String("transaction_id", params.TransactionID),
				zap.Error(err))
		}
		return errorResponse(req.ID, code, msg), true
	}
	return response{JSONRPC: version, Result: &result, ID: req.ID}, true
}

// errorCode maps an action error to its JSON-RPC code and client message.
// Infrastructure errors are not echoed to the caller.
func errorCode(err error) (int, string) {
	var categorized domain.CategorizedError
	if !errors.As(err, &categorized) {
		return CodeInternalError, "internal error"
	}
	switch categorized.Category() {
	case domain.CategoryInvalidParams:
		return CodeInvalidParams, err.Error()
	case domain.CategoryMethodNotFound:
		return CodeMethodNotFound, err.Error()
	default:
		return CodeInvalidRequest, err.Error()
	}
}

func errorResponse(id json.RawMessage, code int, message string) response {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return response{JSONRPC: version, Error: &Error{Code: code, Message: message}, ID: id}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
