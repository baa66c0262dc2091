// Command callsim plays the carrier side of a phone call against a running
// server: it fetches the call-routing TwiML, opens the media stream it points
// to, streams mu-law audio in 20ms frames and reports what the AI sent back.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/auntie-care/auntie-voice/internal/audio"
	"github.com/auntie-care/auntie-voice/internal/protocol"
)

const (
	frameMS    = 20
	frameBytes = audio.CarrierSampleRate * frameMS / 1000
)

type options struct {
	baseURL     string
	streamURL   string
	wavPath     string
	recordPath  string
	duration    time.Duration
	realtime    float64
	waitGreet   time.Duration
	stopTimeout time.Duration
	verbose     bool
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Connect struct {
		Stream struct {
			URL string `xml:"url,attr"`
		} `xml:"Stream"`
	} `xml:"Connect"`
}

type report struct {
	mu      sync.Mutex
	started time.Time
	stats   callStats
	record  bool
	heard   []byte
}

type callStats struct {
	firstAudio    time.Duration
	mediaFrames   int
	marks         int
	otherFrames   int
	payloadBytes  int
	streamMatches bool
}

func main() {
	cfg, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "callsim: %v\n", err)
		os.Exit(2)
	}
	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "callsim: %v\n", err)
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var cfg options
	var durationMS, waitGreetMS int

	flag.StringVar(&cfg.baseURL, "base-url", "http://127.0.0.1:5050", "server base URL used for /incoming-call")
	flag.StringVar(&cfg.streamURL, "stream-url", "", "media stream URL; skips the /incoming-call lookup when set")
	flag.StringVar(&cfg.wavPath, "wav", "", "optional 16-bit PCM WAV to stream instead of silence")
	flag.StringVar(&cfg.recordPath, "record", "", "optional path to write the AI audio as an 8kHz WAV")
	flag.IntVar(&durationMS, "duration-ms", 6000, "how long to stream caller audio in milliseconds")
	flag.Float64Var(&cfg.realtime, "realtime", 1.0, "frame pacing multiplier (1.0=realtime, 2.0=2x)")
	flag.IntVar(&waitGreetMS, "wait-greeting-ms", 5000, "time to wait for the first AI audio after start")
	flag.BoolVar(&cfg.verbose, "verbose", true, "print progress")
	flag.Parse()

	cfg.baseURL = strings.TrimRight(strings.TrimSpace(cfg.baseURL), "/")
	cfg.streamURL = strings.TrimSpace(cfg.streamURL)
	if cfg.baseURL == "" && cfg.streamURL == "" {
		return options{}, fmt.Errorf("base-url or stream-url is required")
	}
	if durationMS < frameMS {
		return options{}, fmt.Errorf("duration-ms must be >= %d", frameMS)
	}
	if cfg.realtime <= 0 {
		return options{}, fmt.Errorf("realtime must be > 0")
	}
	if waitGreetMS < 0 {
		waitGreetMS = 0
	}
	cfg.duration = time.Duration(durationMS) * time.Millisecond
	cfg.waitGreet = time.Duration(waitGreetMS) * time.Millisecond
	cfg.stopTimeout = 3 * time.Second
	return cfg, nil
}

func run(cfg options) error {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.duration+cfg.waitGreet+time.Minute)
	defer cancel()

	caller, err := loadAudio(cfg.wavPath, cfg.duration)
	if err != nil {
		return fmt.Errorf("prepare caller audio: %w", err)
	}

	streamURL := cfg.streamURL
	if streamURL == "" {
		httpClient := &http.Client{Timeout: 15 * time.Second}
		streamURL, err = fetchStreamURL(ctx, httpClient, cfg.baseURL)
		if err != nil {
			return fmt.Errorf("incoming-call: %w", err)
		}
		streamURL = matchBaseScheme(cfg.baseURL, streamURL)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, streamURL, nil)
	if err != nil {
		return fmt.Errorf("open media stream %s: %w", streamURL, err)
	}
	defer conn.Close()

	streamSID := "MZ" + strings.ReplaceAll(uuid.NewString(), "-", "")
	callSID := "CA" + strings.ReplaceAll(uuid.NewString(), "-", "")
	if cfg.verbose {
		fmt.Printf("callsim: stream=%s url=%s frames=%d realtime=%.2f\n", streamSID, streamURL, len(caller)/frameBytes, cfg.realtime)
	}

	rep := &report{stats: callStats{streamMatches: true}, record: cfg.recordPath != ""}
	readDone := make(chan error, 1)
	go func() { readDone <- readLoop(conn, streamSID, rep) }()

	if err := sendJSON(conn, map[string]any{"event": "connected", "protocol": "Call", "version": "1.0.0"}); err != nil {
		return fmt.Errorf("send connected: %w", err)
	}
	rep.mu.Lock()
	rep.started = time.Now()
	rep.mu.Unlock()
	if err := sendJSON(conn, startFrame(streamSID, callSID)); err != nil {
		return fmt.Errorf("send start: %w", err)
	}
	if err := streamAudio(ctx, conn, streamSID, caller, cfg.realtime); err != nil {
		return fmt.Errorf("stream audio: %w", err)
	}

	if cfg.waitGreet > 0 {
		deadline := time.Now().Add(cfg.waitGreet)
		for time.Now().Before(deadline) && rep.snapshot().mediaFrames == 0 {
			time.Sleep(50 * time.Millisecond)
		}
	}

	if err := sendJSON(conn, map[string]any{"event": "stop", "streamSid": streamSID, "stop": map[string]string{"callSid": callSID}}); err != nil {
		return fmt.Errorf("send stop: %w", err)
	}
	select {
	case <-readDone:
	case <-time.After(cfg.stopTimeout):
		return fmt.Errorf("server did not close the stream within %s after stop", cfg.stopTimeout)
	}

	final := rep.snapshot()
	if cfg.recordPath != "" {
		rep.mu.Lock()
		heard := audio.DecodeMulaw(rep.heard)
		rep.mu.Unlock()
		if err := audio.WriteWAVFile(cfg.recordPath, heard, audio.CarrierSampleRate); err != nil {
			return fmt.Errorf("write recording: %w", err)
		}
	}
	fmt.Printf("callsim: first_audio=%s media_frames=%d marks=%d other=%d payload_b64_bytes=%d stream_sid_ok=%t\n",
		final.firstAudio, final.mediaFrames, final.marks, final.otherFrames, final.payloadBytes, final.streamMatches)
	if final.mediaFrames == 0 {
		return errors.New("no AI audio received")
	}
	if !final.streamMatches {
		return errors.New("received frames for a different streamSid")
	}
	return nil
}

func fetchStreamURL(ctx context.Context, client *http.Client, baseURL string) (string, error) {
	form := url.Values{"CallSid": {"CAcallsim"}, "From": {"callsim"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/incoming-call", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()
	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	return parseStreamURL(body)
}

func parseStreamURL(twiml []byte) (string, error) {
	var out twimlResponse
	if err := xml.Unmarshal(twiml, &out); err != nil {
		return "", fmt.Errorf("decode twiml: %w", err)
	}
	if strings.TrimSpace(out.Connect.Stream.URL) == "" {
		return "", fmt.Errorf("twiml has no <Connect><Stream url>")
	}
	return out.Connect.Stream.URL, nil
}

// matchBaseScheme downgrades wss to ws when the server was reached over plain
// http on the same host, which is the usual local setup without PUBLIC_BASE_URL.
func matchBaseScheme(baseURL, streamURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme != "http" {
		return streamURL
	}
	stream, err := url.Parse(streamURL)
	if err != nil || stream.Scheme != "wss" || stream.Host != base.Host {
		return streamURL
	}
	stream.Scheme = "ws"
	return stream.String()
}

func startFrame(streamSID, callSID string) map[string]any {
	return map[string]any{
		"event":     "start",
		"streamSid": streamSID,
		"start": map[string]any{
			"streamSid": streamSID,
			"callSid":   callSID,
			"tracks":    []string{"inbound"},
			"mediaFormat": map[string]any{
				"encoding":   "audio/x-mulaw",
				"sampleRate": audio.CarrierSampleRate,
				"channels":   1,
			},
		},
	}
}

func readLoop(conn *websocket.Conn, streamSID string, rep *report) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		frame, err := protocol.ParseCarrierFrame(data)
		if err != nil {
			continue
		}
		rep.mu.Lock()
		st := &rep.stats
		switch f := frame.(type) {
		case protocol.MediaFrame:
			if st.mediaFrames == 0 {
				st.firstAudio = time.Since(rep.started)
			}
			st.mediaFrames++
			st.payloadBytes += len(f.Payload)
			if rep.record {
				if chunk, err := base64.StdEncoding.DecodeString(f.Payload); err == nil {
					rep.heard = append(rep.heard, chunk...)
				}
			}
			if f.StreamSID != streamSID {
				st.streamMatches = false
			}
		case protocol.MarkFrame:
			st.marks++
			if f.StreamSID != streamSID {
				st.streamMatches = false
			}
		default:
			st.otherFrames++
		}
		rep.mu.Unlock()
	}
}

func (r *report) snapshot() callStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

func streamAudio(ctx context.Context, conn *websocket.Conn, streamSID string, mulaw []byte, realtime float64) error {
	ticker := time.NewTicker(framePace(realtime))
	defer ticker.Stop()

	chunk := 0
	for off := 0; off+frameBytes <= len(mulaw); off += frameBytes {
		chunk++
		msg := map[string]any{
			"event":     "media",
			"streamSid": streamSID,
			"media": map[string]string{
				"track":     "inbound",
				"chunk":     fmt.Sprint(chunk),
				"timestamp": fmt.Sprint(chunk * frameMS),
				"payload":   base64.StdEncoding.EncodeToString(mulaw[off : off+frameBytes]),
			},
		}
		if err := sendJSON(conn, msg); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// framePace is the gap between media frames at the given speed-up. It never
// drops below 1ms, which also keeps time.NewTicker away from a zero period.
func framePace(realtime float64) time.Duration {
	pace := time.Duration(float64(frameMS*time.Millisecond) / realtime)
	return max(pace, time.Millisecond)
}

func sendJSON(conn *websocket.Conn, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, raw)
}

// loadAudio returns whole 20ms frames of 8kHz mu-law covering duration. The
// WAV, when given, is looped or cut to fit.
func loadAudio(wavPath string, duration time.Duration) ([]byte, error) {
	frames := int(duration / (frameMS * time.Millisecond))
	out := make([]byte, frames*frameBytes)
	if wavPath == "" {
		for i := range out {
			out[i] = audio.MulawSilence
		}
		return out, nil
	}

	data, err := os.ReadFile(wavPath)
	if err != nil {
		return nil, err
	}
	pcm, sampleRate, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", wavPath, err)
	}
	encoded := audio.EncodeMulaw(audio.Resample(pcm, sampleRate, audio.CarrierSampleRate))
	if len(encoded) == 0 {
		return nil, fmt.Errorf("%s produced no samples", wavPath)
	}
	for i := range out {
		out[i] = encoded[i%len(encoded)]
	}
	return out, nil
}
