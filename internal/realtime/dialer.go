// Package realtime opens authenticated WebSocket sessions to the AI realtime
// endpoint.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/auntie-care/auntie-voice/internal/config"
	"github.com/auntie-care/auntie-voice/internal/relay"
	"github.com/auntie-care/auntie-voice/internal/reliability"
)

var ErrMissingAPIKey = errors.New("realtime api key is required")

// HandshakeError is returned when the endpoint answers the upgrade with a
// non-101 status.
type HandshakeError struct {
	StatusCode int
	Body       string
}

func (e *HandshakeError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("realtime handshake failed: status %d", e.StatusCode)
	}
	return fmt.Sprintf("realtime handshake failed: status %d: %s", e.StatusCode, e.Body)
}

type Dialer struct {
	endpoint    string
	apiKey      string
	model       string
	attempts    int
	backoffBase time.Duration
	backoffCap  time.Duration
	ws          *websocket.Dialer
	logger      *zap.Logger
}

func NewDialer(cfg config.Config, logger *zap.Logger) *Dialer {
	attempts := cfg.RealtimeDialAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return &Dialer{
		endpoint:    cfg.RealtimeURL,
		apiKey:      cfg.OpenAIAPIKey,
		model:       cfg.RealtimeModel,
		attempts:    attempts,
		backoffBase: 250 * time.Millisecond,
		backoffCap:  2 * time.Second,
		ws: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.RealtimeDialTimeout,
			ReadBufferSize:   16 << 10,
			WriteBufferSize:  16 << 10,
		},
		logger: logger.Named("realtime"),
	}
}

// Dial opens one realtime session. Transient failures (network errors, 429
// and 5xx handshakes) are retried with capped exponential backoff.
func (d *Dialer) Dial(ctx context.Context) (*websocket.Conn, error) {
	if strings.TrimSpace(d.apiKey) == "" {
		return nil, ErrMissingAPIKey
	}
	target, err := d.url()
	if err != nil {
		return nil, err
	}
	// GA endpoint: no OpenAI-Beta header, which would switch event names to
	// the beta set.
	headers := http.Header{}
	headers.Set("Authorization", "Bearer "+d.apiKey)

	var lastErr error
	for attempt := 0; attempt < d.attempts; attempt++ {
		if attempt > 0 {
			wait := reliability.ExponentialBackoff(attempt-1, d.backoffBase, d.backoffCap)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		conn, resp, err := d.ws.DialContext(ctx, target, headers)
		if err == nil {
			return conn, nil
		}
		var retry bool
		lastErr, retry = classify(err, resp)
		if !retry {
			return nil, lastErr
		}
		d.logger.Warn("realtime dial failed, retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", d.attempts),
			zap.Error(lastErr),
		)
	}
	return nil, fmt.Errorf("dial realtime after %d attempts: %w", d.attempts, lastErr)
}

// ForRelay adapts d to the relay's Dialer interface.
func (d *Dialer) ForRelay() relay.Dialer {
	return relay.DialFunc(func(ctx context.Context) (relay.Conn, error) {
		conn, err := d.Dial(ctx)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}

func (d *Dialer) url() (string, error) {
	u, err := url.Parse(strings.TrimSpace(d.endpoint))
	if err != nil {
		return "", fmt.Errorf("parse realtime url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported realtime url scheme %q", u.Scheme)
	}
	q := u.Query()
	if d.model != "" {
		q.Set("model", d.model)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func classify(err error, resp *http.Response) (error, bool) {
	if resp != nil {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		herr := &HandshakeError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		return herr, reliability.IsRetryableHTTPStatus(resp.StatusCode)
	}
	return fmt.Errorf("dial realtime: %w", err), reliability.IsTransientNetError(err)
}
