// Package api serves the orderbook over REST and WebSocket.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/smolpuddle/puddle/pkg/chain"
	"github.com/smolpuddle/puddle/pkg/crypto"
	"github.com/smolpuddle/puddle/pkg/metrics"
	"github.com/smolpuddle/puddle/pkg/order"
	"github.com/smolpuddle/puddle/pkg/orderbook"
	"github.com/smolpuddle/puddle/pkg/storage"
)

const maxOrderBytes = 64 << 10

type Config struct {
	Book           *orderbook.Book
	Contract       common.Address
	ChainID        int64
	AllowedOrigins []string
	Logger         *zap.SugaredLogger
	Metrics        *metrics.Metrics
}

// Server handles REST API and WebSocket connections
type Server struct {
	book     *orderbook.Book
	contract common.Address
	chainID  int64
	origins  []string
	router   *mux.Router
	hub      *Hub
	log      *zap.SugaredLogger
	metrics  *metrics.Metrics
}

// NewServer creates a new API server and subscribes its WebSocket hub to
// orders admitted by the book.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New(metrics.DefaultConfig())
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"http://localhost:3000"}
	}

	s := &Server{
		book:     cfg.Book,
		contract: cfg.Contract,
		chainID:  cfg.ChainID,
		origins:  cfg.AllowedOrigins,
		router:   mux.NewRouter(),
		hub:      NewHub(cfg.Logger, cfg.Metrics),
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
	}
	s.book.OnOrder(func(o order.Order, _ orderbook.Source) { s.hub.BroadcastOrder(o) })

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.Use(s.instrument)

	// Orders
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders", s.handleSubmitOrder).Methods("POST")
	api.HandleFunc("/orders/{hash}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{hash}", s.handleRefreshOrder).Methods("DELETE")
	api.HandleFunc("/orders/{hash}/calldata", s.handleCallData).Methods("GET")

	// Indexes
	api.HandleFunc("/sellers/{address}/orders", s.handleSellerOrders).Methods("GET")
	api.HandleFunc("/collections/{token}/orders", s.handleCollectionOrders).Methods("GET")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
}

// Handler returns the router wrapped in CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start runs the hub and serves addr until ctx is done.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Infow("api_listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxOrderBytes))
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "body too large", err.Error())
		return
	}

	o, err := s.book.Submit(body, orderbook.SourceAPI)
	if err != nil {
		respondError(w, submitStatus(err), orderbook.RejectReason(err), err.Error())
		return
	}

	respondJSONStatus(w, http.StatusCreated, SubmitOrderResponse{
		Status: "accepted",
		Hash:   o.Hash().Hex(),
	})
}

// submitStatus maps admission errors to HTTP codes: malformed input is 400,
// a known order 409, and a well-formed order that fails a check 422.
func submitStatus(err error) int {
	switch {
	case errors.Is(err, order.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, orderbook.ErrDuplicate):
		return http.StatusConflict
	case errors.Is(err, orderbook.ErrInvalidCurrency),
		errors.Is(err, order.ErrHashMismatch),
		errors.Is(err, order.ErrSignerMismatch),
		errors.Is(err, order.ErrSignatureFormat),
		errors.Is(err, order.ErrOutOfRange),
		errors.Is(err, orderbook.ErrExpired):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.book.All()
	s.respondOrders(w, orders, err)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, ok := s.lookup(w, r)
	if !ok {
		return
	}
	respondJSON(w, o)
}

func (s *Server) handleRefreshOrder(w http.ResponseWriter, r *http.Request) {
	h, ok := parseHash(w, r)
	if !ok {
		return
	}

	st, err := s.book.Refresh(r.Context(), h)
	switch {
	case err == nil:
		s.log.Debugw("order_refreshed", "hash", h.Hex(), "status", st.String())
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found", h.Hex())
	case errors.Is(err, orderbook.ErrStillOpen):
		respondJSONStatus(w, http.StatusConflict, RefreshResponse{Hash: h.Hex(), Status: st.String()})
	case errors.Is(err, orderbook.ErrNoStatusSource):
		respondError(w, http.StatusServiceUnavailable, "no status source", err.Error())
	default:
		respondError(w, http.StatusBadGateway, "status lookup failed", err.Error())
	}
}

func (s *Server) handleCallData(w http.ResponseWriter, r *http.Request) {
	o, ok := s.lookup(w, r)
	if !ok {
		return
	}
	data, err := chain.PackSwap(o)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "encode failed", err.Error())
		return
	}
	cd := CallData{
		To:      s.contract.Hex(),
		Data:    hexutil.Encode(data),
		ChainID: s.chainID,
	}
	if r, sv, v, err := crypto.SignatureToRSV(o.Signature()); err == nil {
		cd.R = hexutil.Encode(r.FillBytes(make([]byte, 32)))
		cd.S = hexutil.Encode(sv.FillBytes(make([]byte, 32)))
		cd.V = v
	}
	respondJSON(w, cd)
}

func (s *Server) handleSellerOrders(w http.ResponseWriter, r *http.Request) {
	seller, ok := parseAddress(w, mux.Vars(r)["address"])
	if !ok {
		return
	}
	orders, err := s.book.BySeller(seller)
	s.respondOrders(w, orders, err)
}

func (s *Server) handleCollectionOrders(w http.ResponseWriter, r *http.Request) {
	token, ok := parseAddress(w, mux.Vars(r)["token"])
	if !ok {
		return
	}
	orders, err := s.book.ByCollection(token)
	s.respondOrders(w, orders, err)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, HealthResponse{Status: "ok", Orders: s.book.Len()})
}

// ==============================
// Helper Functions
// ==============================

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (order.Order, bool) {
	h, ok := parseHash(w, r)
	if !ok {
		return order.Order{}, false
	}
	o, err := s.book.Get(h)
	switch {
	case err == nil:
		return o, true
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found", h.Hex())
	default:
		s.log.Warnw("order_lookup_failed", "hash", h.Hex(), "error", err)
		respondError(w, http.StatusInternalServerError, "lookup failed", err.Error())
	}
	return order.Order{}, false
}

func (s *Server) respondOrders(w http.ResponseWriter, orders []order.Order, err error) {
	if err != nil {
		s.log.Warnw("order_list_failed", "error", err)
		respondError(w, http.StatusInternalServerError, "list failed", err.Error())
		return
	}
	if orders == nil {
		orders = []order.Order{}
	}
	respondJSON(w, OrderList{Orders: orders, Count: len(orders)})
}

func parseHash(w http.ResponseWriter, r *http.Request) (common.Hash, bool) {
	raw := mux.Vars(r)["hash"]
	b, err := hexutil.Decode(raw)
	if err != nil || len(b) != common.HashLength {
		respondError(w, http.StatusBadRequest, "invalid hash", raw)
		return common.Hash{}, false
	}
	return common.BytesToHash(b), true
}

func parseAddress(w http.ResponseWriter, raw string) (common.Address, bool) {
	addr, ok := crypto.ParseAddress(raw)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid address", raw)
		return common.Address{}, false
	}
	return addr, true
}

func respondJSON(w http.ResponseWriter, data any) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondJSONStatus(w, status, ErrorResponse{
		Error:   error,
		Message: message,
	})
}

// statusRecorder captures the response code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request counts and latency per route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		s.metrics.ObserveRequest(route, rec.code, time.Since(start))
	})
}
