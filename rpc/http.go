package rpc

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lober-org/welovedogs/core"
	"github.com/lober-org/welovedogs/indexer"
	"github.com/lober-org/welovedogs/observability"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeServerError    = -32000
	codeUnauthorized   = -32001
	codeNotFound       = -32004
	codeNonceMismatch  = -32011
	codeRateLimited    = -32020
	codeConflict       = -32030
	codeOverflow       = -32040
	codeUnavailable    = -32050
)

// Config tunes the HTTP surface.
type Config struct {
	AuthToken          string
	RateLimitPerSecond float64
	RateLimitBurst     int
	MaxBodyBytes       int64
	// MaxScanLimit rejects listing limits above it; zero disables the cap.
	MaxScanLimit       uint32
	TrustProxyHeaders  bool
	TrustedProxies     []string
	ReadHeaderTimeout  time.Duration
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	IdleTimeout        time.Duration
}

type Server struct {
	node    *core.Node
	index   *indexer.Indexer
	cfg     Config
	limiter *rateLimiter
	tracer  trace.Tracer
	logger  *slog.Logger
	methods map[string]handlerFunc
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, req *RPCRequest)

// NewServer wires the JSON-RPC surface over node. index may be nil when the
// SQL index is disabled.
func NewServer(node *core.Node, index *indexer.Indexer, cfg Config, logger *slog.Logger) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = maxRequestBytes
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		node:    node,
		index:   index,
		cfg:     cfg,
		limiter: newRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst, cfg.TrustProxyHeaders, cfg.TrustedProxies),
		tracer:  otel.Tracer("welovedogs/rpc"),
		logger:  logger,
	}
	s.methods = map[string]handlerFunc{
		"donation_initialize":         s.handleDonationInitialize,
		"donation_donate":             s.handleDonationDonate,
		"donation_count":              s.handleDonationCount,
		"donation_get":                s.handleDonationGet,
		"donation_totalDonated":       s.handleDonationTotal,
		"donation_donorDonations":     s.handleDonorDonations,
		"donation_recipientDonations": s.handleRecipientDonations,
		"auth_nonce":                  s.handleAuthNonce,
		"pod_initialize":              s.handleBadgeInitialize,
		"pod_mint":                    s.handleBadgeMint,
		"pod_transfer":                s.handleBadgeTransfer,
		"pod_burn":                    s.handleBadgeBurn,
		"pod_pause":                   s.handleBadgePause,
		"pod_unpause":                 s.handleBadgeUnpause,
		"pod_setTokenUri":             s.handleBadgeSetTokenURI,
		"pod_transferOwnership":       s.handleBadgeTransferOwnership,
		"pod_owner":                   s.handleBadgeOwner,
		"pod_tokenUri":                s.handleBadgeTokenURI,
		"pod_ownerOf":                 s.handleBadgeOwnerOf,
		"pod_balanceOf":               s.handleBadgeBalanceOf,
		"pod_totalSupply":             s.handleBadgeTotalSupply,
		"pod_tokensOf":                s.handleBadgeTokensOf,
		"pod_paused":                  s.handleBadgePaused,
		"pod_metadata":                s.handleBadgeMetadata,
		"index_recipientStats":        s.handleIndexRecipientStats,
		"index_donorStats":            s.handleIndexDonorStats,
		"index_recent":                s.handleIndexRecent,
	}
	return s
}

// Handler returns the HTTP routes served by the node.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	r.Post("/rpc", s.handle)

	return otelhttp.NewHandler(r, "rpc")
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting JSON-RPC server", slog.String("rpcAddr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result"`
}

type RPCErrorResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Error   *RPCError   `json:"error"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string { return e.Message }

func writeError(w http.ResponseWriter, status int, id interface{}, code int, message string, data interface{}) {
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	errObj := &RPCError{Code: code, Message: message}
	if data != nil {
		errObj.Data = data
	}
	_ = json.NewEncoder(w).Encode(RPCErrorResponse{JSONRPC: jsonRPCVersion, ID: id, Error: errObj})
}

// writeResult always emits the result member, so absent values travel as
// "result": null.
func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	method := "unknown"
	defer func() {
		observability.ModuleMetrics().Observe(method, recorder.status, time.Since(start))
	}()

	if !s.limiter.Allow(r) {
		observability.ModuleMetrics().RecordThrottle("rate_limit")
		writeError(recorder, http.StatusTooManyRequests, nil, codeRateLimited, "rate limit exceeded", nil)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.MaxBodyBytes+1))
	if err != nil {
		writeError(recorder, http.StatusBadRequest, nil, codeInvalidRequest, "failed to read request body", err.Error())
		return
	}
	if int64(len(body)) > s.cfg.MaxBodyBytes {
		writeError(recorder, http.StatusRequestEntityTooLarge, nil, codeInvalidRequest, "request body too large", nil)
		return
	}
	req := &RPCRequest{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(req); err != nil {
		writeError(recorder, http.StatusBadRequest, nil, codeParseError, "invalid JSON payload", err.Error())
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(recorder, http.StatusBadRequest, req.ID, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
		return
	}
	handler, ok := s.methods[req.Method]
	if !ok {
		writeError(recorder, http.StatusNotFound, req.ID, codeMethodNotFound, fmt.Sprintf("method %s not found", req.Method), nil)
		return
	}
	method = req.Method

	ctx, span := s.tracer.Start(r.Context(), req.Method, trace.WithAttributes(
		attribute.String("rpc.system", "jsonrpc"),
		attribute.String("rpc.method", req.Method),
	))
	defer span.End()
	handler(recorder, r.WithContext(ctx), req)
	span.SetAttributes(attribute.Int("http.status_code", recorder.status))
	if recorder.status >= 400 {
		span.SetStatus(codes.Error, http.StatusText(recorder.status))
	}
}

func (s *Server) requireAuth(r *http.Request) *RPCError {
	if s.cfg.AuthToken == "" {
		return &RPCError{Code: codeUnauthorized, Message: "RPC authentication token not configured"}
	}
	header := r.Header.Get("Authorization")
	if header == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing Authorization header"}
	}
	if !strings.HasPrefix(header, "Bearer ") {
		return &RPCError{Code: codeUnauthorized, Message: "Authorization header must use Bearer scheme"}
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" {
		return &RPCError{Code: codeUnauthorized, Message: "missing bearer token"}
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AuthToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "invalid RPC credentials"}
	}
	return nil
}

// decodeParam decodes the single parameter object every method expects.
func decodeParam(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	dec := json.NewDecoder(bytes.NewReader(req.Params[0]))
	dec.DisallowUnknownFields()
	return dec.Decode(out)
}

func (s *Server) checkLimit(limit uint32) error {
	if s.cfg.MaxScanLimit > 0 && limit > s.cfg.MaxScanLimit {
		return fmt.Errorf("limit %d exceeds maximum %d", limit, s.cfg.MaxScanLimit)
	}
	return nil
}
