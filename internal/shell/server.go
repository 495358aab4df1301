package shell

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"drop-mint/internal/domain"
	"drop-mint/internal/mintview"
	"drop-mint/internal/observability"
)

//go:embed templates/page.html
var templateFS embed.FS

var pageTemplate = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"deref": func(v *uint64) uint64 {
		if v == nil {
			return 0
		}
		return *v
	},
}).ParseFS(templateFS, "templates/page.html"))

// Server renders the mint page from a view source and forwards claims.
type Server struct {
	cfg     Config
	view    mintview.Source
	claimer mintview.Claimer
	logger  *zap.Logger
	router  *chi.Mux
	started time.Time
}

// New creates a shell serving view and submitting claims through claimer.
func New(cfg Config, view mintview.Source, claimer mintview.Claimer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		cfg:     cfg.withDefaults(),
		view:    view,
		claimer: claimer,
		logger:  logger,
		router:  chi.NewRouter(),
		started: time.Now(),
	}
	s.RegisterRoutes(s.router)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// RegisterRoutes mounts the page, API and ops routes on router.
func (s *Server) RegisterRoutes(router *chi.Mux) {
	router.Use(middleware.Recoverer)
	router.Use(s.instrument)

	router.Get("/", s.handlePage)

	router.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/claim", s.handleClaim)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	router.Handle("/metrics", observability.Handler())
	router.Get("/status", s.handleStatus)
}

// instrument records request counts and latency per route pattern.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.cfg.Metrics.RecordHTTPRequest(route, r.Method, status, time.Since(start).Seconds())
	})
}

// pageData is the template input.
type pageData struct {
	Branding   Branding
	View       mintview.View
	Generation uint64
}

func (s *Server) currentView() (mintview.View, uint64) {
	snap := s.view.Snapshot()
	return mintview.Derive(snap, s.cfg.Quantity), s.view.Generation()
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	view, gen := s.currentView()

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, pageData{
		Branding:   s.cfg.Branding,
		View:       view,
		Generation: gen,
	}); err != nil {
		s.logger.Error("render page", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// StateResponse is the JSON response for /api/state.
type StateResponse struct {
	mintview.View
	Generation uint64    `json:"generation"`
	UpdatedAt  time.Time `json:"updatedAt,omitempty"`
	Network    string    `json:"network"`
	ChainID    int64     `json:"chainId"`
	Contract   string    `json:"contract"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	snap := s.view.Snapshot()
	writeJSON(w, http.StatusOK, StateResponse{
		View:       mintview.Derive(snap, s.cfg.Quantity),
		Generation: s.view.Generation(),
		UpdatedAt:  snap.UpdatedAt,
		Network:    string(s.cfg.Network.Network),
		ChainID:    s.cfg.Network.ChainID,
		Contract:   s.cfg.ContractAddress,
	})
}

// ClaimRequest is the optional body of POST /api/claim.
type ClaimRequest struct {
	Generation *uint64 `json:"generation,omitempty"`
}

// ClaimResponse is the JSON response for /api/claim.
type ClaimResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	Minted  int    `json:"minted"`
	TxHash  string `json:"txHash,omitempty"`
}

// handleClaim submits one claim for the configured quantity. Only same-origin
// JSON requests carrying the page's generation token are accepted, and only
// while the current view renders the mint button. A result that completes
// after the view moved on or the client left is logged and dropped.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	attempt := uuid.NewString()
	logger := s.logger.With(zap.String("attempt", attempt))

	if !sameOrigin(r) {
		logger.Warn("cross-origin claim rejected", zap.String("origin", r.Header.Get("Origin")))
		writeJSON(w, http.StatusForbidden, ClaimResponse{Message: "cross-origin request"})
		return
	}
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		writeJSON(w, http.StatusUnsupportedMediaType, ClaimResponse{Message: "content type must be application/json"})
		return
	}

	var req ClaimRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ClaimResponse{Message: "invalid request body"})
		return
	}
	if req.Generation == nil {
		writeJSON(w, http.StatusBadRequest, ClaimResponse{Message: "generation is required"})
		return
	}

	snap := s.view.Snapshot()
	gen := s.view.Generation()
	if *req.Generation != gen {
		logger.Info("claim from outdated page", zap.Uint64("page_generation", *req.Generation), zap.Uint64("generation", gen))
		writeJSON(w, http.StatusConflict, ClaimResponse{Message: "page is out of date"})
		return
	}
	if state := mintview.Derive(snap, s.cfg.Quantity).State; state != mintview.StateMintReady {
		logger.Info("claim while mint unavailable", zap.String("state", string(state)))
		writeJSON(w, http.StatusConflict, ClaimResponse{Message: "mint is not available"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.ClaimTimeout)
	defer cancel()

	mint := domain.MintRequest{ContractAddress: s.cfg.ContractAddress, Quantity: s.cfg.Quantity}
	logger.Info("claim submitted", zap.String("contract", mint.ContractAddress), zap.Int("quantity", mint.Quantity))

	start := time.Now()
	result, err := s.claimer.Claim(ctx, mint)
	elapsed := time.Since(start)

	var resp ClaimResponse
	if err != nil {
		s.cfg.Metrics.RecordClaim(observability.ClaimFailure, 0, elapsed.Seconds())
		logger.Warn("claim failed", zap.Error(err), zap.Duration("elapsed", elapsed))
		resp = ClaimResponse{Message: mintview.FailureMessage(err)}
	} else {
		s.cfg.Metrics.RecordClaim(observability.ClaimSuccess, result.Minted(), elapsed.Seconds())
		logger.Info("claim succeeded",
			zap.String("tx", result.TxHash),
			zap.Int("minted", result.Minted()),
			zap.Duration("elapsed", elapsed),
		)
		resp = ClaimResponse{
			OK:      true,
			Message: mintview.SuccessMessage(result.Minted()),
			Minted:  result.Minted(),
			TxHash:  result.TxHash,
		}
	}

	if r.Context().Err() != nil {
		logger.Info("dropping claim result, client disconnected", zap.Bool("ok", resp.OK))
		return
	}
	if s.view.Generation() != gen {
		logger.Info("dropping claim result, view was replaced", zap.Bool("ok", resp.OK))
		w.WriteHeader(http.StatusGone)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status      string    `json:"status"`
	Uptime      string    `json:"uptime"`
	Network     string    `json:"network"`
	ChainID     int64     `json:"chain_id"`
	RPCHost     string    `json:"rpc_host"`
	Contract    string    `json:"contract"`
	State       string    `json:"state"`
	Generation  uint64    `json:"generation"`
	LastRefresh time.Time `json:"last_refresh,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.view.Snapshot()
	writeJSON(w, http.StatusOK, StatusResponse{
		Status:      "running",
		Uptime:      time.Since(s.started).String(),
		Network:     s.cfg.Network.Name,
		ChainID:     s.cfg.Network.ChainID,
		RPCHost:     rpcHost(s.cfg.RPCURL),
		Contract:    s.cfg.ContractAddress,
		State:       string(mintview.Derive(snap, s.cfg.Quantity).State),
		Generation:  s.view.Generation(),
		LastRefresh: snap.UpdatedAt,
	})
}

// sameOrigin reports whether a browser request comes from this host.
// Requests without an Origin header (non-browser clients) pass.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// rpcHost strips path and query, which often carry provider API keys.
func rpcHost(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return ""
	}
	return u.Host
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
