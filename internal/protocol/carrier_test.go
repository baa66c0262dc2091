package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseCarrierFrameStart(t *testing.T) {
	raw := []byte(`{"event":"start","sequenceNumber":"1","start":{"streamSid":"MZ1","callSid":"CA1","accountSid":"AC1","tracks":["inbound"],"mediaFormat":{"encoding":"audio/x-mulaw","sampleRate":8000,"channels":1},"customParameters":{"from":"web"}},"streamSid":"MZ1"}`)
	frame, err := ParseCarrierFrame(raw)
	if err != nil {
		t.Fatalf("ParseCarrierFrame() error = %v", err)
	}
	start, ok := frame.(StartFrame)
	if !ok {
		t.Fatalf("frame type = %T, want StartFrame", frame)
	}
	if start.StreamSID != "MZ1" || start.CallSID != "CA1" {
		t.Fatalf("unexpected start frame: %+v", start)
	}
	if start.MediaFormat.SampleRate != 8000 || start.CustomParameters["from"] != "web" {
		t.Fatalf("unexpected start details: %+v", start)
	}
}

func TestParseCarrierFrameMediaKeepsPayloadVerbatim(t *testing.T) {
	payload := "f/7+/fz7+vn4AAECAwQ=+/"
	raw := []byte(`{"event":"media","streamSid":"MZ1","media":{"track":"inbound","chunk":"2","timestamp":"40","payload":"` + payload + `"}}`)
	frame, err := ParseCarrierFrame(raw)
	if err != nil {
		t.Fatalf("ParseCarrierFrame() error = %v", err)
	}
	media, ok := frame.(MediaFrame)
	if !ok {
		t.Fatalf("frame type = %T, want MediaFrame", frame)
	}
	if media.Payload != payload {
		t.Fatalf("Payload = %q, want %q", media.Payload, payload)
	}
}

func TestParseCarrierFrameVariants(t *testing.T) {
	cases := []struct {
		raw  string
		want CarrierEvent
	}{
		{`{"event":"media"}`, CarrierEventMedia},
		{`{"event":"stop","streamSid":"MZ1","stop":{"callSid":"CA1"}}`, CarrierEventStop},
		{`{"event":"mark","streamSid":"MZ1","mark":{"name":"auntie-turn-end"}}`, CarrierEventMark},
		{`{"event":"connected","protocol":"Call","version":"1.0.0"}`, CarrierEventConnected},
		{`{"event":"dtmf","dtmf":{"digit":"1"}}`, CarrierEvent("dtmf")},
	}
	for _, tc := range cases {
		frame, err := ParseCarrierFrame([]byte(tc.raw))
		if err != nil {
			t.Fatalf("ParseCarrierFrame(%s) error = %v", tc.raw, err)
		}
		if got := frame.CarrierEvent(); got != tc.want {
			t.Fatalf("ParseCarrierFrame(%s) event = %q, want %q", tc.raw, got, tc.want)
		}
	}

	frame, _ := ParseCarrierFrame([]byte(`{"event":"connected"}`))
	if _, ok := frame.(OtherFrame); !ok {
		t.Fatalf("connected frame type = %T, want OtherFrame", frame)
	}
}

func TestParseCarrierFrameRejectsMalformed(t *testing.T) {
	if _, err := ParseCarrierFrame([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for non-JSON frame")
	}
	if _, err := ParseCarrierFrame(nil); err == nil {
		t.Fatalf("expected error for empty frame")
	}
	if _, err := ParseCarrierFrame([]byte(`{"streamSid":"MZ1"}`)); !errors.Is(err, ErrMissingEvent) {
		t.Fatalf("error = %v, want ErrMissingEvent", err)
	}
	if _, err := ParseCarrierFrame([]byte(`{"event":"start","start":{}}`)); !errors.Is(err, ErrInvalidStart) {
		t.Fatalf("error = %v, want ErrInvalidStart", err)
	}
}

func TestOutboundCarrierFramesWireShape(t *testing.T) {
	media, err := json.Marshal(NewOutboundMedia("CA123", "BBBB"))
	if err != nil {
		t.Fatalf("marshal media: %v", err)
	}
	if got, want := string(media), `{"event":"media","streamSid":"CA123","media":{"payload":"BBBB"}}`; got != want {
		t.Fatalf("media = %s, want %s", got, want)
	}

	mark, err := json.Marshal(NewOutboundMark("CA123", TurnEndMark))
	if err != nil {
		t.Fatalf("marshal mark: %v", err)
	}
	if got, want := string(mark), `{"event":"mark","streamSid":"CA123","mark":{"name":"auntie-turn-end"}}`; got != want {
		t.Fatalf("mark = %s, want %s", got, want)
	}
}

func BenchmarkParseCarrierFrameMedia(b *testing.B) {
	raw := []byte(`{"event":"media","sequenceNumber":"3","media":{"track":"inbound","chunk":"1","timestamp":"5","payload":"/////////////////////w=="},"streamSid":"MZ1"}`)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		frame, err := ParseCarrierFrame(raw)
		if err != nil {
			b.Fatalf("ParseCarrierFrame() error = %v", err)
		}
		if _, ok := frame.(MediaFrame); !ok {
			b.Fatalf("frame type = %T, want MediaFrame", frame)
		}
	}
}
