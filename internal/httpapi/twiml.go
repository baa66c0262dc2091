package httpapi

import (
	"encoding/xml"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/auntie-care/auntie-voice/internal/policy"
)

const mediaStreamPath = "/media-stream"

// TwiML returned for inbound calls. It only connects the media stream; the
// AI speaks first, so there is no <Say> or <Play>.
type twimlResponse struct {
	XMLName xml.Name     `xml:"Response"`
	Connect twimlConnect `xml:"Connect"`
}

type twimlConnect struct {
	Stream twimlStream `xml:"Stream"`
}

type twimlStream struct {
	URL string `xml:"url,attr"`
}

func (s *Server) handleIncomingCall(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err == nil {
			from, _ := policy.RedactPII(r.PostForm.Get("From"))
			s.logger.Info("incoming call",
				zap.String("call_sid", r.PostForm.Get("CallSid")),
				zap.String("from", from),
			)
		}
	}
	s.metrics.CallEvents.WithLabelValues("incoming").Inc()

	body, err := xml.Marshal(twimlResponse{
		Connect: twimlConnect{Stream: twimlStream{URL: s.mediaStreamURL(r)}},
	})
	if err != nil {
		respondError(w, http.StatusInternalServerError, "twiml_encode_failed", err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(xml.Header))
	_, _ = w.Write(body)
}

// mediaStreamURL is PUBLIC_BASE_URL with its scheme switched to ws/wss, or
// wss://<Host> when no public URL is configured.
func (s *Server) mediaStreamURL(r *http.Request) string {
	base := strings.TrimSpace(s.cfg.PublicBaseURL)
	if base != "" {
		if u, err := url.Parse(base); err == nil && u.Host != "" {
			switch u.Scheme {
			case "http":
				u.Scheme = "ws"
			case "ws":
			default:
				u.Scheme = "wss"
			}
			u.Path = strings.TrimRight(u.Path, "/") + mediaStreamPath
			u.RawQuery = ""
			return u.String()
		}
	}
	host := r.Host
	if fwd := strings.TrimSpace(r.Header.Get("X-Forwarded-Host")); fwd != "" {
		host = fwd
	}
	return "wss://" + host + mediaStreamPath
}
