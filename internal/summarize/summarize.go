// Package summarize turns longer care text into a short parent-friendly
// summary using Gemini.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/auntie-care/auntie-voice/internal/config"
	"github.com/auntie-care/auntie-voice/internal/policy"
)

const maxInputRunes = 16000

var (
	ErrDisabled   = errors.New("summarization is not configured")
	ErrEmptyInput = errors.New("text is required")
	ErrEmptyReply = errors.New("model returned an empty summary")
)

type Summary struct {
	Summary  string `json:"summary"`
	Model    string `json:"model"`
	Redacted bool   `json:"pii_redacted"`
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (Summary, error)
}

type Options struct {
	APIKey       string
	Model        string
	Instructions string
	// BaseURL overrides the Gemini API endpoint. Empty means the default.
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		APIKey:       cfg.GeminiAPIKey,
		Model:        cfg.GeminiModel,
		Instructions: cfg.SummaryInstructions,
		Timeout:      30 * time.Second,
	}
}

// GeminiSummarizer calls generateContent once per request.
type GeminiSummarizer struct {
	client *genai.Client
	opts   Options
	logger *zap.Logger
}

// New returns ErrDisabled when no API key is configured.
func New(ctx context.Context, opts Options, logger *zap.Logger) (*GeminiSummarizer, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrDisabled
	}
	if opts.Model == "" {
		opts.Model = "gemini-2.5-flash"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if opts.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: opts.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiSummarizer{client: client, opts: opts, logger: logger.Named("summarize")}, nil
}

func (s *GeminiSummarizer) Summarize(ctx context.Context, text string) (Summary, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Summary{}, ErrEmptyInput
	}
	if r := []rune(text); len(r) > maxInputRunes {
		text = string(r[:maxInputRunes])
	}
	redacted, changed := policy.RedactPII(text)

	ctx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()

	var cfg *genai.GenerateContentConfig
	if s.opts.Instructions != "" {
		cfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(s.opts.Instructions, genai.RoleUser),
		}
	}

	start := time.Now()
	resp, err := s.client.Models.GenerateContent(ctx, s.opts.Model, genai.Text(redacted), cfg)
	if err != nil {
		return Summary{}, fmt.Errorf("generate summary: %w", err)
	}
	out := strings.TrimSpace(resp.Text())
	if out == "" {
		return Summary{}, ErrEmptyReply
	}

	s.logger.Debug("summary generated",
		zap.String("model", s.opts.Model),
		zap.Int("input_chars", len(redacted)),
		zap.Bool("pii_redacted", changed),
		zap.Duration("latency", time.Since(start)),
	)
	return Summary{Summary: out, Model: s.opts.Model, Redacted: changed}, nil
}
