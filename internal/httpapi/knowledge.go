package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/auntie-care/auntie-voice/internal/knowledge"
	"github.com/auntie-care/auntie-voice/internal/summarize"
)

type snippetsResponse struct {
	Topic    string              `json:"topic"`
	Snippets []knowledge.Snippet `json:"snippets"`
}

type resourcesResponse struct {
	Topic     string               `json:"topic"`
	Region    string               `json:"region"`
	Resources []knowledge.Resource `json:"resources"`
}

type triageRequest struct {
	Text   string `json:"text"`
	Region string `json:"region"`
}

type summarizeRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSnippets(w http.ResponseWriter, r *http.Request) {
	topic := strings.TrimSpace(r.URL.Query().Get("topic"))
	if topic == "" {
		respondError(w, http.StatusBadRequest, "missing_topic", "query parameter topic is required")
		return
	}
	items, err := s.knowledge.Snippets(r.Context(), topic, s.cfg.KnowledgeResultLimit)
	if err != nil {
		s.logger.Error("snippet lookup failed", zap.String("topic", topic), zap.Error(err))
		respondError(w, http.StatusBadGateway, "knowledge_unavailable", "snippet lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, snippetsResponse{Topic: topic, Snippets: items})
}

func (s *Server) handleResources(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topic := strings.TrimSpace(q.Get("topic"))
	if topic == "" {
		respondError(w, http.StatusBadRequest, "missing_topic", "query parameter topic is required")
		return
	}
	region := strings.TrimSpace(q.Get("region"))
	if region == "" {
		region = s.cfg.KnowledgeDefaultRegion
	}
	items, err := s.knowledge.Resources(r.Context(), topic, region, s.cfg.KnowledgeResultLimit)
	if err != nil {
		s.logger.Error("resource lookup failed", zap.String("topic", topic), zap.String("region", region), zap.Error(err))
		respondError(w, http.StatusBadGateway, "knowledge_unavailable", "resource lookup failed")
		return
	}
	respondJSON(w, http.StatusOK, resourcesResponse{Topic: topic, Region: region, Resources: items})
}

func (s *Server) handleTriage(w http.ResponseWriter, r *http.Request) {
	var req triageRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "missing_text", "text is required")
		return
	}
	out, err := s.triager.Triage(r.Context(), req.Text, strings.TrimSpace(req.Region))
	if err != nil {
		s.logger.Error("triage failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "knowledge_unavailable", "triage failed")
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	if s.summarizer == nil {
		respondError(w, http.StatusServiceUnavailable, "summarize_disabled", summarize.ErrDisabled.Error())
		return
	}
	var req summarizeRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	out, err := s.summarizer.Summarize(r.Context(), req.Text)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, out)
	case errors.Is(err, summarize.ErrEmptyInput):
		respondError(w, http.StatusBadRequest, "missing_text", err.Error())
	default:
		s.metrics.ProviderErrors.WithLabelValues("gemini", "generate").Inc()
		s.logger.Warn("summarize failed", zap.Error(err))
		respondError(w, http.StatusBadGateway, "summarize_failed", "summarization failed")
	}
}
