package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/auntie-care/auntie-voice/internal/calls"
	"github.com/auntie-care/auntie-voice/internal/config"
	"github.com/auntie-care/auntie-voice/internal/knowledge"
	"github.com/auntie-care/auntie-voice/internal/observability"
	"github.com/auntie-care/auntie-voice/internal/relay"
	"github.com/auntie-care/auntie-voice/internal/summarize"
)

// Deps are the collaborators the HTTP surface routes to. Summarizer may be
// nil, in which case /v1/summarize answers 503.
type Deps struct {
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Calls      *calls.Manager
	Relay      *relay.Relay
	Dialer     relay.Dialer
	Knowledge  knowledge.Store
	Summarizer summarize.Summarizer
}

type Server struct {
	cfg        config.Config
	logger     *zap.Logger
	metrics    *observability.Metrics
	calls      *calls.Manager
	relay      *relay.Relay
	dialer     relay.Dialer
	knowledge  knowledge.Store
	triager    *knowledge.Triager
	summarizer summarize.Summarizer
	upgrader   websocket.Upgrader
}

func New(cfg config.Config, deps Deps) *Server {
	return &Server{
		cfg:        cfg,
		logger:     deps.Logger.Named("http"),
		metrics:    deps.Metrics,
		calls:      deps.Calls,
		relay:      deps.Relay,
		dialer:     deps.Dialer,
		knowledge:  deps.Knowledge,
		triager:    knowledge.NewTriager(deps.Knowledge, cfg.KnowledgeDefaultRegion, cfg.KnowledgeResultLimit),
		summarizer: deps.Summarizer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// The carrier connects server-to-server and sends no Origin.
				// Browsers are held to same-origin unless explicitly allowed.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"message": "Twilio Media Stream server up"})
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/health", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		s.metrics.Handler().ServeHTTP(w, r)
	})

	r.Get("/incoming-call", s.handleIncomingCall)
	r.Post("/incoming-call", s.handleIncomingCall)
	r.Get("/media-stream", s.handleMediaStream)

	r.Get("/v1/calls", s.handleListCalls)
	r.Get("/v1/calls/{id}", s.handleGetCall)
	r.Get("/v1/snippets", s.handleSnippets)
	r.Get("/v1/resources", s.handleResources)
	r.Post("/v1/triage", s.handleTriage)
	r.Post("/v1/summarize", s.handleSummarize)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":               "ok",
		"active_calls":         s.calls.ActiveCount(),
		"knowledge_store_mode": s.knowledge.Mode(),
		"summarize_enabled":    s.summarizer != nil,
	})
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if s.relay == nil || s.dialer == nil {
		respondError(w, http.StatusServiceUnavailable, "not_ready", "relay not configured")
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":               "ready",
		"knowledge_store_mode": s.knowledge.Mode(),
	})
}

// handleMediaStream upgrades the carrier's media-stream connection and relays
// it until the call ends. The request context derives from the server's base
// context, so process shutdown ends every live call.
func (s *Server) handleMediaStream(w http.ResponseWriter, r *http.Request) {
	if s.relay == nil || s.dialer == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "relay not configured")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("media stream upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(1 << 20)
	s.metrics.CallEvents.WithLabelValues("ws_connected").Inc()

	if err := s.relay.Serve(r.Context(), conn, s.dialer); err != nil {
		s.logger.Warn("media stream relay failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
	}
	s.metrics.CallEvents.WithLabelValues("ws_disconnected").Inc()
}

func (s *Server) handleListCalls(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"calls":  s.calls.List(),
		"active": s.calls.ActiveCount(),
	})
}

func (s *Server) handleGetCall(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondError(w, http.StatusBadRequest, "invalid_call_id", "missing call id")
		return
	}
	call, err := s.calls.Get(id)
	if err != nil {
		if errors.Is(err, calls.ErrNotFound) {
			respondError(w, http.StatusNotFound, "call_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, call)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
