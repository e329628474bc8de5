// ABOUTME: Local answer service implementing the server side of POST /chat
// ABOUTME: Validates requests, checks bearer tokens, refuses replayed idempotency keys, and delegates to a Responder

package answerserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/2389/ragchat/internal/answer"
	"github.com/2389/ragchat/internal/auth"
	"github.com/2389/ragchat/internal/dedupe"
)

// DefaultDedupeTTL is how long an idempotency key is remembered when none is configured.
const DefaultDedupeTTL = 10 * time.Minute

// maxBodyBytes caps the size of a /chat request body.
const maxBodyBytes = 1 << 20

// Responder produces the answer for a validated request.
type Responder interface {
	Respond(ctx context.Context, req *answer.ChatRequest) (*answer.ChatResponse, error)
}

// ResponderFunc adapts a function to the Responder interface.
type ResponderFunc func(ctx context.Context, req *answer.ChatRequest) (*answer.ChatResponse, error)

// Respond calls f.
func (f ResponderFunc) Respond(ctx context.Context, req *answer.ChatRequest) (*answer.ChatResponse, error) {
	return f(ctx, req)
}

// Config configures a Server.
type Config struct {
	Addr      string
	Verifier  auth.TokenVerifier // nil disables authentication
	DedupeTTL time.Duration
}

// Server is the HTTP answer service.
type Server struct {
	responder  Responder
	verifier   auth.TokenVerifier
	seen       *dedupe.Cache
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server. A nil responder selects EchoResponder. Pass nil logger for default.
func New(cfg Config, responder Responder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if responder == nil {
		responder = EchoResponder{}
	}
	ttl := cfg.DedupeTTL
	if ttl <= 0 {
		ttl = DefaultDedupeTTL
	}

	s := &Server{
		responder: responder,
		verifier:  cfg.Verifier,
		seen:      dedupe.New(ttl, dedupe.DefaultMaxSize),
		logger:    logger.With("component", "answerserver"),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle(answer.ChatPath, auth.RequireBearer(s.verifier)(http.HandlerFunc(s.handleChat)))
	return mux
}

// Serve accepts connections on l until Shutdown is called.
func (s *Server) Serve(l net.Listener) error {
	s.logger.Info("answer service listening", "addr", l.Addr().String(), "auth", s.verifier != nil)
	if err := s.httpServer.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on the configured address and serves until Shutdown.
func (s *Server) ListenAndServe() error {
	l, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Shutdown stops accepting requests, waits for in-flight ones, and releases the dedupe cache.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.seen.Close()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	req, err := parseChatRequest(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	key := r.Header.Get(answer.IdempotencyHeader)
	if key != "" && s.seen.CheckAndMark(key) {
		s.logger.Warn("rejected replayed request", "idempotency_key", key)
		s.sendJSONError(w, http.StatusConflict, "duplicate request")
		return
	}

	resp, err := s.responder.Respond(r.Context(), req)
	if err != nil {
		if key != "" {
			s.seen.Forget(key)
		}
		s.logger.Error("responder failed", "error", err)
		s.sendJSONError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Debug("answered",
		"subject", auth.SubjectFromContext(r.Context()),
		"sources", len(resp.Sources))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// parseChatRequest decodes and validates a ChatRequest.
func parseChatRequest(body io.Reader) (*answer.ChatRequest, error) {
	var req answer.ChatRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return nil, errors.New("invalid JSON body")
	}
	if strings.TrimSpace(req.Message) == "" {
		return nil, errors.New("message is required")
	}
	return &req, nil
}

func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(answer.ErrorResponse{Error: message})
}
