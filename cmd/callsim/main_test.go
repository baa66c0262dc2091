package main

import (
	"encoding/binary"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/auntie-care/auntie-voice/internal/audio"
	"github.com/auntie-care/auntie-voice/internal/protocol"
)

func TestLoadAudioLoopsWAVAtCarrierRate(t *testing.T) {
	// 10ms of 16kHz audio at a constant 1000.
	pcm := make([]byte, 160*2)
	for i := 0; i < 160; i++ {
		binary.LittleEndian.PutUint16(pcm[i*2:], 1000)
	}
	path := filepath.Join(t.TempDir(), "in.wav")
	if err := audio.WriteWAVFile(path, pcm, 16000); err != nil {
		t.Fatalf("WriteWAVFile() error = %v", err)
	}

	caller, err := loadAudio(path, 40*time.Millisecond)
	if err != nil {
		t.Fatalf("loadAudio() error = %v", err)
	}
	if len(caller) != 2*frameBytes {
		t.Fatalf("len = %d, want %d", len(caller), 2*frameBytes)
	}
	want := audio.EncodeMulawSample(1000)
	for i, b := range caller {
		if b != want {
			t.Fatalf("caller[%d] = %#x, want %#x", i, b, want)
		}
	}
}

func TestLoadAudioSilenceFillsWholeFrames(t *testing.T) {
	audio, err := loadAudio("", 110*time.Millisecond)
	if err != nil {
		t.Fatalf("loadAudio() error = %v", err)
	}
	if len(audio) != 5*frameBytes {
		t.Fatalf("len(audio) = %d, want %d", len(audio), 5*frameBytes)
	}
}

func TestParseStreamURL(t *testing.T) {
	got, err := parseStreamURL([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Response><Connect><Stream url="wss://calls.example.org/media-stream"></Stream></Connect></Response>`))
	if err != nil {
		t.Fatalf("parseStreamURL() error = %v", err)
	}
	if got != "wss://calls.example.org/media-stream" {
		t.Fatalf("url = %q", got)
	}
	if _, err := parseStreamURL([]byte(`<Response><Say>hi</Say></Response>`)); err == nil {
		t.Fatalf("expected error for TwiML without a stream")
	}
}

func TestFramePace(t *testing.T) {
	cases := []struct {
		realtime float64
		want     time.Duration
	}{
		{1, 20 * time.Millisecond},
		{2, 10 * time.Millisecond},
		{1e12, time.Millisecond},
	}
	for _, tc := range cases {
		if got := framePace(tc.realtime); got != tc.want {
			t.Fatalf("framePace(%v) = %v, want %v", tc.realtime, got, tc.want)
		}
	}
}

func TestMatchBaseScheme(t *testing.T) {
	cases := []struct {
		base, stream, want string
	}{
		{"http://127.0.0.1:5050", "wss://127.0.0.1:5050/media-stream", "ws://127.0.0.1:5050/media-stream"},
		{"https://calls.example.org", "wss://calls.example.org/media-stream", "wss://calls.example.org/media-stream"},
		{"http://127.0.0.1:5050", "wss://tunnel.example.org/media-stream", "wss://tunnel.example.org/media-stream"},
	}
	for _, tc := range cases {
		if got := matchBaseScheme(tc.base, tc.stream); got != tc.want {
			t.Fatalf("matchBaseScheme(%q, %q) = %q, want %q", tc.base, tc.stream, got, tc.want)
		}
	}
}

func TestRunAgainstFakeServer(t *testing.T) {
	upgrader := websocket.Upgrader{}
	gotMedia := make(chan int, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /incoming-call", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(`<Response><Connect><Stream url="wss://` + r.Host + `/media-stream"></Stream></Connect></Response>`))
	})
	mux.HandleFunc("GET /media-stream", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		media := 0
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			frame, err := protocol.ParseCarrierFrame(data)
			if err != nil {
				continue
			}
			switch f := frame.(type) {
			case protocol.StartFrame:
				out, _ := json.Marshal(protocol.NewOutboundMedia(f.StreamSID, "BBBB"))
				_ = conn.WriteMessage(websocket.TextMessage, out)
				out, _ = json.Marshal(protocol.NewOutboundMark(f.StreamSID, protocol.TurnEndMark))
				_ = conn.WriteMessage(websocket.TextMessage, out)
			case protocol.MediaFrame:
				media++
			case protocol.StopFrame:
				gotMedia <- media
				return
			}
		}
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	recordPath := filepath.Join(t.TempDir(), "heard.wav")
	err := run(options{
		baseURL:     srv.URL,
		recordPath:  recordPath,
		duration:    60 * time.Millisecond,
		realtime:    10,
		waitGreet:   time.Second,
		stopTimeout: 3 * time.Second,
	})
	if err != nil {
		t.Fatalf("run() error = %v", err)
	}
	select {
	case n := <-gotMedia:
		if n != 3 {
			t.Fatalf("server saw %d media frames, want 3", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("server never saw stop")
	}

	// "BBBB" decodes to three mu-law bytes.
	data, err := os.ReadFile(recordPath)
	if err != nil {
		t.Fatalf("read recording: %v", err)
	}
	pcm, sr, err := audio.DecodeWAV(data)
	if err != nil || sr != audio.CarrierSampleRate || len(pcm) != 6 {
		t.Fatalf("recording: %d bytes at %d Hz, err %v", len(pcm), sr, err)
	}
}
