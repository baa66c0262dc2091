package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseRealtimeEventAudioDelta(t *testing.T) {
	raw := []byte(`{"type":"response.output_audio.delta","event_id":"ev1","response_id":"resp1","item_id":"item1","output_index":0,"content_index":0,"delta":"BBBB"}`)
	ev, err := ParseRealtimeEvent(raw)
	if err != nil {
		t.Fatalf("ParseRealtimeEvent() error = %v", err)
	}
	delta, ok := ev.(AudioDelta)
	if !ok {
		t.Fatalf("event type = %T, want AudioDelta", ev)
	}
	if delta.Delta != "BBBB" || delta.ResponseID != "resp1" || delta.ItemID != "item1" {
		t.Fatalf("unexpected delta: %+v", delta)
	}
}

func TestParseRealtimeEventVariants(t *testing.T) {
	cases := []struct {
		raw  string
		want RealtimeType
	}{
		{`{"type":"response.completed","response":{"id":"resp1"}}`, TypeResponseCompleted},
		{`{"type":"response.done","response":{"id":"resp1","status":"completed"}}`, TypeResponseDone},
		{`{"type":"session.created","session":{"id":"sess1"}}`, TypeSessionCreated},
		{`{"type":"session.updated","session":{"id":"sess1"}}`, TypeSessionUpdated},
		{`{"type":"rate_limits.updated","rate_limits":[{"name":"tokens","limit":100,"remaining":90,"reset_seconds":1.5}]}`, TypeRateLimitsUpdated},
		{`{"type":"error","error":{"type":"invalid_request_error","code":"bad","message":"nope"}}`, TypeError},
		{`{"type":"input_audio_buffer.speech_started"}`, RealtimeType("input_audio_buffer.speech_started")},
	}
	for _, tc := range cases {
		ev, err := ParseRealtimeEvent([]byte(tc.raw))
		if err != nil {
			t.Fatalf("ParseRealtimeEvent(%s) error = %v", tc.raw, err)
		}
		if got := ev.RealtimeType(); got != tc.want {
			t.Fatalf("ParseRealtimeEvent(%s) type = %q, want %q", tc.raw, got, tc.want)
		}
	}

	ev, _ := ParseRealtimeEvent([]byte(`{"type":"rate_limits.updated","rate_limits":[{"name":"tokens","remaining":90}]}`))
	limits := ev.(RateLimitsUpdated)
	if len(limits.RateLimits) != 1 || limits.RateLimits[0].Remaining != 90 {
		t.Fatalf("unexpected rate limits: %+v", limits)
	}

	ev, _ = ParseRealtimeEvent([]byte(`{"type":"error","error":{"code":"bad","message":"nope"}}`))
	if e := ev.(ErrorEvent); e.Error.Code != "bad" || e.Error.Message != "nope" {
		t.Fatalf("unexpected error event: %+v", e)
	}
}

func TestParseRealtimeEventRejectsMalformed(t *testing.T) {
	if _, err := ParseRealtimeEvent([]byte(`{{{`)); err == nil {
		t.Fatalf("expected error for non-JSON event")
	}
	if _, err := ParseRealtimeEvent([]byte(`{"delta":"AAAA"}`)); !errors.Is(err, ErrMissingType) {
		t.Fatalf("error = %v, want ErrMissingType", err)
	}
}

func TestIsDiagnostic(t *testing.T) {
	for _, typ := range []RealtimeType{TypeSessionUpdated, TypeRateLimitsUpdated, TypeResponseCompleted} {
		if !IsDiagnostic(typ) {
			t.Fatalf("IsDiagnostic(%q) = false, want true", typ)
		}
	}
	if IsDiagnostic(TypeOutputAudioDelta) {
		t.Fatalf("audio deltas should not be diagnostic")
	}
}

func TestSessionUpdateWireShape(t *testing.T) {
	raw, err := json.Marshal(NewSessionUpdate("gpt-realtime", "be kind", "aria"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"session.update","session":{"type":"realtime","model":"gpt-realtime","instructions":"be kind","output_modalities":["audio"],"audio":{"input":{"format":{"type":"audio/pcmu"},"turn_detection":{"type":"server_vad"}},"output":{"format":{"type":"audio/pcmu"},"voice":"aria"}}}}`
	if string(raw) != want {
		t.Fatalf("session.update = %s\nwant %s", raw, want)
	}
}

func TestCommandWireShapes(t *testing.T) {
	appendRaw, _ := json.Marshal(NewInputAudioAppend("AAAA"))
	if got, want := string(appendRaw), `{"type":"input_audio_buffer.append","audio":"AAAA"}`; got != want {
		t.Fatalf("append = %s, want %s", got, want)
	}
	createRaw, _ := json.Marshal(NewResponseCreate("hello"))
	if got, want := string(createRaw), `{"type":"response.create","response":{"modalities":["audio"],"instructions":"hello"}}`; got != want {
		t.Fatalf("response.create = %s, want %s", got, want)
	}
}
